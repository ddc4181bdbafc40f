package model

import "github.com/haierkeys/edu-program-service/pkg/timex"

const TableNameCourseMember = "course_member"

// CourseMember mapped from table <course_member>
type CourseMember struct {
	ID       int64      `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	CourseID int64      `gorm:"column:course_id;not null;uniqueIndex:idx_course_member,priority:1" json:"courseId"`
	Role     string     `gorm:"column:role;not null;uniqueIndex:idx_course_member,priority:2" json:"role"`
	UserID   int64      `gorm:"column:user_id;not null;uniqueIndex:idx_course_member,priority:3" json:"userId"`
	JoinedAt timex.Time `gorm:"column:joined_at;default:NULL" json:"joinedAt"`
}

// TableName CourseMember's table name
func (*CourseMember) TableName() string {
	return TableNameCourseMember
}
