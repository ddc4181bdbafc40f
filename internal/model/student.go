package model

import "github.com/haierkeys/edu-program-service/pkg/timex"

const TableNameStudent = "student"

// Student mapped from table <student>
type Student struct {
	ID            int64      `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	UserID        int64      `gorm:"column:user_id;not null;uniqueIndex:idx_student_user" json:"userId"`
	FirstEnrollAt timex.Time `gorm:"column:first_enroll;default:NULL" json:"firstEnroll"`
	LastEnrollAt  timex.Time `gorm:"column:last_enroll;default:NULL" json:"lastEnroll"`
	FirstCourseID int64      `gorm:"column:first_course;not null;default:0" json:"firstCourse"`
	LastCourseID  int64      `gorm:"column:last_course;not null;default:0" json:"lastCourse"`
	LastActiveAt  timex.Time `gorm:"column:last_active;default:NULL" json:"lastActive"`
}

// TableName Student's table name
func (*Student) TableName() string {
	return TableNameStudent
}
