package model

import "github.com/haierkeys/edu-program-service/pkg/timex"

const TableNameCourseArticle = "course_article"

// CourseArticle mapped from table <course_article>
type CourseArticle struct {
	ID        int64      `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	CourseID  int64      `gorm:"column:course_id;not null;index:idx_course_article,priority:1" json:"courseId"`
	UserID    int64      `gorm:"column:user_id;not null;index:idx_course_article,priority:2" json:"userId"`
	PageTitle string     `gorm:"column:page_title;not null" json:"pageTitle"`
	CreatedAt timex.Time `gorm:"column:created_at;default:NULL;autoCreateTime:false" json:"createdAt"`
}

// TableName CourseArticle's table name
func (*CourseArticle) TableName() string {
	return TableNameCourseArticle
}
