package model

import "github.com/haierkeys/edu-program-service/pkg/timex"

const TableNameInstitution = "institution"

// Institution mapped from table <institution>
type Institution struct {
	ID              int64      `gorm:"column:id;primaryKey" json:"id"`
	Name            string     `gorm:"column:name;not null;default:''" json:"name"`
	City            string     `gorm:"column:city;not null;default:''" json:"city"`
	Country         string     `gorm:"column:country;not null;default:''" json:"country"`
	CourseCount     int64      `gorm:"column:course_count;not null;default:0" json:"courseCount"`
	StudentCount    int64      `gorm:"column:student_count;not null;default:0" json:"studentCount"`
	InstructorCount int64      `gorm:"column:instructor_count;not null;default:0" json:"instructorCount"`
	OnlineCount     int64      `gorm:"column:online_count;not null;default:0" json:"onlineCount"`
	CampusCount     int64      `gorm:"column:campus_count;not null;default:0" json:"campusCount"`
	LastActiveDate  timex.Time `gorm:"column:last_active_date;default:NULL" json:"lastActiveDate"`
	Active          bool       `gorm:"column:active;not null;default:false" json:"active"`
	CreatedAt       timex.Time `gorm:"column:created_at;default:NULL;autoCreateTime:false" json:"createdAt"`
	UpdatedAt       timex.Time `gorm:"column:updated_at;default:NULL;autoUpdateTime:false" json:"updatedAt"`
}

// TableName Institution's table name
func (*Institution) TableName() string {
	return TableNameInstitution
}
