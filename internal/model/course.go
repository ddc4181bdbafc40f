package model

import "github.com/haierkeys/edu-program-service/pkg/timex"

const TableNameCourse = "course"

// Course mapped from table <course>
type Course struct {
	ID              int64      `gorm:"column:id;primaryKey" json:"id"`
	OrgID           int64      `gorm:"column:org_id;not null;index:idx_course_org" json:"orgId"`
	Title           string     `gorm:"column:title;not null;default:''" json:"title"`
	Term            string     `gorm:"column:term;not null;default:''" json:"term"`
	Start           timex.Time `gorm:"column:start;default:NULL" json:"start"`
	End             timex.Time `gorm:"column:end;default:NULL" json:"end"`
	Description     string     `gorm:"column:description;type:text" json:"description"`
	Lang            string     `gorm:"column:lang;not null;default:''" json:"lang"`
	Token           string     `gorm:"column:token;not null;default:''" json:"token"`
	Field           string     `gorm:"column:field;not null;default:''" json:"field"`
	Level           string     `gorm:"column:level;not null;default:''" json:"level"`
	Students        IDList     `gorm:"column:students;type:text" json:"students"`
	Instructors     IDList     `gorm:"column:instructors;type:text" json:"instructors"`
	OnlineAmbs      IDList     `gorm:"column:online_ambs;type:text" json:"onlineAmbs"`
	CampusAmbs      IDList     `gorm:"column:campus_ambs;type:text" json:"campusAmbs"`
	StudentCount    int64      `gorm:"column:student_count;not null;default:0" json:"studentCount"`
	InstructorCount int64      `gorm:"column:instructor_count;not null;default:0" json:"instructorCount"`
	OnlineCount     int64      `gorm:"column:online_count;not null;default:0" json:"onlineCount"`
	CampusCount     int64      `gorm:"column:campus_count;not null;default:0" json:"campusCount"`
	CreatedAt       timex.Time `gorm:"column:created_at;default:NULL;autoCreateTime:false" json:"createdAt"`
	UpdatedAt       timex.Time `gorm:"column:updated_at;default:NULL;autoUpdateTime:false" json:"updatedAt"`
}

// TableName Course's table name
func (*Course) TableName() string {
	return TableNameCourse
}
