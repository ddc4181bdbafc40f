package domain

import (
	"time"

	"github.com/haierkeys/edu-program-service/pkg/timex"
)

// Institution field names
// 机构字段名
const (
	InstitutionName            = "name"
	InstitutionCity            = "city"
	InstitutionCountry         = "country"
	InstitutionCourseCount     = "course_count"
	InstitutionStudentCount    = "student_count"
	InstitutionInstructorCount = "instructor_count"
	InstitutionOnlineCount     = "online_count"
	InstitutionCampusCount     = "campus_count"
	InstitutionLastActiveDate  = "last_active_date"
	InstitutionActive          = "active"
)

// InstitutionSchema declares the institution fields, counters are summary fields
var InstitutionSchema = &Schema{
	Kind: KindInstitution,
	Fields: []FieldSpec{
		{Name: InstitutionName, Type: FieldString},
		{Name: InstitutionCity, Type: FieldString},
		{Name: InstitutionCountry, Type: FieldString},
		{Name: InstitutionCourseCount, Type: FieldInt, Summary: true},
		{Name: InstitutionStudentCount, Type: FieldInt, Summary: true},
		{Name: InstitutionInstructorCount, Type: FieldInt, Summary: true},
		{Name: InstitutionOnlineCount, Type: FieldInt, Summary: true},
		{Name: InstitutionCampusCount, Type: FieldInt, Summary: true},
		{Name: InstitutionLastActiveDate, Type: FieldTime, Summary: true},
		{Name: InstitutionActive, Type: FieldBool, Summary: true},
	},
}

// Institution 机构（课程的父记录）
type Institution struct {
	ID      int64
	Name    string
	City    string
	Country string

	// Summary counters, recomputed from the institution's courses
	// 统计字段，由机构下的课程重新计算
	CourseCount     int64
	StudentCount    int64
	InstructorCount int64
	OnlineCount     int64
	CampusCount     int64
	LastActiveDate  time.Time
	Active          bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

var _ RevisionedEntity = (*Institution)(nil)

func (i *Institution) Kind() EntityKind { return KindInstitution }

func (i *Institution) GetID() int64 { return i.ID }

func (i *Institution) SetID(id int64) { i.ID = id }

func (i *Institution) Identifier() string { return i.Name }

func (i *Institution) Parent() (EntityKind, int64) { return "", 0 }

func (i *Institution) Fields() Fields {
	return Fields{
		InstitutionName:            i.Name,
		InstitutionCity:            i.City,
		InstitutionCountry:         i.Country,
		InstitutionCourseCount:     i.CourseCount,
		InstitutionStudentCount:    i.StudentCount,
		InstitutionInstructorCount: i.InstructorCount,
		InstitutionOnlineCount:     i.OnlineCount,
		InstitutionCampusCount:     i.CampusCount,
		InstitutionLastActiveDate:  timex.FormatStamp(i.LastActiveDate),
		InstitutionActive:          i.Active,
	}
}

func (i *Institution) SetFields(f Fields) error {
	nf, err := InstitutionSchema.Normalize(f)
	if err != nil {
		return err
	}
	for name, v := range nf {
		switch name {
		case InstitutionName:
			i.Name = v.(string)
		case InstitutionCity:
			i.City = v.(string)
		case InstitutionCountry:
			i.Country = v.(string)
		case InstitutionCourseCount:
			i.CourseCount = v.(int64)
		case InstitutionStudentCount:
			i.StudentCount = v.(int64)
		case InstitutionInstructorCount:
			i.InstructorCount = v.(int64)
		case InstitutionOnlineCount:
			i.OnlineCount = v.(int64)
		case InstitutionCampusCount:
			i.CampusCount = v.(int64)
		case InstitutionLastActiveDate:
			if i.LastActiveDate, err = timex.ParseStamp(v.(string)); err != nil {
				return err
			}
		case InstitutionActive:
			i.Active = v.(bool)
		}
	}
	return nil
}
