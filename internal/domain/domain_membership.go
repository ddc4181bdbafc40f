package domain

import (
	"fmt"
	"time"
)

// Role membership role tag
// Role 成员角色
type Role string

const (
	RoleStudent    Role = "student"
	RoleInstructor Role = "instructor"
	RoleOnline     Role = "online"
	RoleCampus     Role = "campus"
)

// Roles every role in a stable order
var Roles = []Role{RoleStudent, RoleInstructor, RoleOnline, RoleCampus}

// ParseRole validates a role tag
func ParseRole(s string) (Role, error) {
	for _, r := range Roles {
		if string(r) == s {
			return r, nil
		}
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// RoleField returns the course list field backing role
// RoleField 返回角色对应的课程列表字段
func RoleField(role Role) string {
	switch role {
	case RoleStudent:
		return CourseStudents
	case RoleInstructor:
		return CourseInstructors
	case RoleOnline:
		return CourseOnlineAmbs
	case RoleCampus:
		return CourseCampusAmbs
	}
	return ""
}

// RoleOfField is the inverse of RoleField
func RoleOfField(field string) (Role, bool) {
	for _, r := range Roles {
		if RoleField(r) == field {
			return r, true
		}
	}
	return "", false
}

// Membership 课程成员关系（course_member 行）
type Membership struct {
	ID       int64
	CourseID int64
	UserID   int64
	Role     Role
	JoinedAt time.Time
}

// Student 学生活动记录
type Student struct {
	ID            int64
	UserID        int64
	FirstEnrollAt time.Time
	LastEnrollAt  time.Time
	FirstCourseID int64
	LastCourseID  int64
	LastActiveAt  time.Time
}

// CourseArticle 学生在课程中编辑的文章关联
type CourseArticle struct {
	ID        int64
	CourseID  int64
	UserID    int64
	PageTitle string
	CreatedAt time.Time
}
