package domain

import (
	"time"

	"github.com/haierkeys/edu-program-service/pkg/timex"
)

// Course field names
// 课程字段名
const (
	CourseOrgID           = "org_id"
	CourseTitle           = "title"
	CourseTerm            = "term"
	CourseStart           = "start"
	CourseEnd             = "end"
	CourseDescription     = "description"
	CourseLang            = "lang"
	CourseToken           = "token"
	CourseField           = "field"
	CourseLevel           = "level"
	CourseStudents        = "students"
	CourseInstructors     = "instructors"
	CourseOnlineAmbs      = "online_ambs"
	CourseCampusAmbs      = "campus_ambs"
	CourseStudentCount    = "student_count"
	CourseInstructorCount = "instructor_count"
	CourseOnlineCount     = "online_count"
	CourseCampusCount     = "campus_count"
)

// CourseSchema declares the course fields
var CourseSchema = &Schema{
	Kind: KindCourse,
	Fields: []FieldSpec{
		{Name: CourseOrgID, Type: FieldInt, References: KindInstitution},
		{Name: CourseTitle, Type: FieldString},
		{Name: CourseTerm, Type: FieldString},
		{Name: CourseStart, Type: FieldTime},
		{Name: CourseEnd, Type: FieldTime},
		{Name: CourseDescription, Type: FieldString},
		{Name: CourseLang, Type: FieldString},
		{Name: CourseToken, Type: FieldString},
		{Name: CourseField, Type: FieldString},
		{Name: CourseLevel, Type: FieldString},
		{Name: CourseStudents, Type: FieldIDList},
		{Name: CourseInstructors, Type: FieldIDList},
		{Name: CourseOnlineAmbs, Type: FieldIDList},
		{Name: CourseCampusAmbs, Type: FieldIDList},
		{Name: CourseStudentCount, Type: FieldInt, Summary: true},
		{Name: CourseInstructorCount, Type: FieldInt, Summary: true},
		{Name: CourseOnlineCount, Type: FieldInt, Summary: true},
		{Name: CourseCampusCount, Type: FieldInt, Summary: true},
	},
}

// Course 课程，成员列表为 course_member 行的缓存
type Course struct {
	ID            int64
	InstitutionID int64
	Title         string
	Term          string
	Start         time.Time
	End           time.Time
	Description   string
	Lang          string
	Token         string
	Field         string
	Level         string

	// Embedded role lists, sorted and de-duplicated
	// 内嵌的角色成员列表（有序去重）
	Students          []int64
	Instructors       []int64
	OnlineAmbassadors []int64
	CampusAmbassadors []int64

	StudentCount    int64
	InstructorCount int64
	OnlineCount     int64
	CampusCount     int64

	CreatedAt time.Time
	UpdatedAt time.Time
}

var _ RevisionedEntity = (*Course)(nil)

func (c *Course) Kind() EntityKind { return KindCourse }

func (c *Course) GetID() int64 { return c.ID }

func (c *Course) SetID(id int64) { c.ID = id }

func (c *Course) Identifier() string { return c.Title }

func (c *Course) Parent() (EntityKind, int64) { return KindInstitution, c.InstitutionID }

// Members returns the embedded id list of role
// Members 返回角色的内嵌成员列表
func (c *Course) Members(role Role) []int64 {
	switch role {
	case RoleStudent:
		return NormalizeIDs(c.Students)
	case RoleInstructor:
		return NormalizeIDs(c.Instructors)
	case RoleOnline:
		return NormalizeIDs(c.OnlineAmbassadors)
	case RoleCampus:
		return NormalizeIDs(c.CampusAmbassadors)
	}
	return []int64{}
}

// SetMembers replaces the embedded id list of role and refreshes the counters
// SetMembers 替换角色的内嵌成员列表并刷新计数
func (c *Course) SetMembers(role Role, ids []int64) {
	ids = NormalizeIDs(ids)
	switch role {
	case RoleStudent:
		c.Students = ids
	case RoleInstructor:
		c.Instructors = ids
	case RoleOnline:
		c.OnlineAmbassadors = ids
	case RoleCampus:
		c.CampusAmbassadors = ids
	}
	c.RefreshCounts()
}

// RefreshCounts derives the course counters from its role lists
// RefreshCounts 根据角色列表计算课程计数
func (c *Course) RefreshCounts() {
	c.StudentCount = int64(len(NormalizeIDs(c.Students)))
	c.InstructorCount = int64(len(NormalizeIDs(c.Instructors)))
	c.OnlineCount = int64(len(NormalizeIDs(c.OnlineAmbassadors)))
	c.CampusCount = int64(len(NormalizeIDs(c.CampusAmbassadors)))
}

// IsActive reports whether the course runs at the given moment
// IsActive 课程在给定时刻是否进行中
func (c *Course) IsActive(at time.Time) bool {
	if c.Start.IsZero() || c.Start.After(at) {
		return false
	}
	return c.End.IsZero() || !c.End.Before(at)
}

func (c *Course) Fields() Fields {
	return Fields{
		CourseOrgID:           c.InstitutionID,
		CourseTitle:           c.Title,
		CourseTerm:            c.Term,
		CourseStart:           timex.FormatStamp(c.Start),
		CourseEnd:             timex.FormatStamp(c.End),
		CourseDescription:     c.Description,
		CourseLang:            c.Lang,
		CourseToken:           c.Token,
		CourseField:           c.Field,
		CourseLevel:           c.Level,
		CourseStudents:        NormalizeIDs(c.Students),
		CourseInstructors:     NormalizeIDs(c.Instructors),
		CourseOnlineAmbs:      NormalizeIDs(c.OnlineAmbassadors),
		CourseCampusAmbs:      NormalizeIDs(c.CampusAmbassadors),
		CourseStudentCount:    c.StudentCount,
		CourseInstructorCount: c.InstructorCount,
		CourseOnlineCount:     c.OnlineCount,
		CourseCampusCount:     c.CampusCount,
	}
}

func (c *Course) SetFields(f Fields) error {
	nf, err := CourseSchema.Normalize(f)
	if err != nil {
		return err
	}
	for name, v := range nf {
		switch name {
		case CourseOrgID:
			c.InstitutionID = v.(int64)
		case CourseTitle:
			c.Title = v.(string)
		case CourseTerm:
			c.Term = v.(string)
		case CourseStart:
			if c.Start, err = timex.ParseStamp(v.(string)); err != nil {
				return err
			}
		case CourseEnd:
			if c.End, err = timex.ParseStamp(v.(string)); err != nil {
				return err
			}
		case CourseDescription:
			c.Description = v.(string)
		case CourseLang:
			c.Lang = v.(string)
		case CourseToken:
			c.Token = v.(string)
		case CourseField:
			c.Field = v.(string)
		case CourseLevel:
			c.Level = v.(string)
		case CourseStudents:
			c.Students = v.([]int64)
		case CourseInstructors:
			c.Instructors = v.([]int64)
		case CourseOnlineAmbs:
			c.OnlineAmbassadors = v.([]int64)
		case CourseCampusAmbs:
			c.CampusAmbassadors = v.([]int64)
		}
	}
	c.RefreshCounts()
	return nil
}
