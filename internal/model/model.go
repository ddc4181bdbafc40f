// Package model 定义数据模型
package model

import (
	"fmt"

	"gorm.io/gorm"
)

// AutoMigrate migrates the table behind key
// AutoMigrate 迁移 key 对应的数据表
func AutoMigrate(db *gorm.DB, key string) error {
	switch key {
	case "Institution":
		return db.AutoMigrate(Institution{})
	case "Course":
		return db.AutoMigrate(Course{})
	case "Revision":
		return db.AutoMigrate(Revision{})
	case "CourseMember":
		return db.AutoMigrate(CourseMember{})
	case "AuditLog":
		return db.AutoMigrate(AuditLog{})
	case "Student":
		return db.AutoMigrate(Student{})
	case "CourseArticle":
		return db.AutoMigrate(CourseArticle{})
	}
	return fmt.Errorf("model: unknown table key %q", key)
}

// Keys every migratable table key
var Keys = []string{"Institution", "Course", "Revision", "CourseMember", "AuditLog", "Student", "CourseArticle"}

// AutoMigrateAll migrates every table
// AutoMigrateAll 迁移全部数据表
func AutoMigrateAll(db *gorm.DB) error {
	for _, key := range Keys {
		if err := AutoMigrate(db, key); err != nil {
			return fmt.Errorf("migrate %s: %w", key, err)
		}
	}
	return nil
}
