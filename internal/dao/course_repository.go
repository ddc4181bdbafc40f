package dao

import (
	"context"
	"time"

	"github.com/haierkeys/edu-program-service/internal/domain"
	"github.com/haierkeys/edu-program-service/internal/model"
	"github.com/haierkeys/edu-program-service/pkg/timex"
	"gorm.io/gorm"
)

// courseRepository 实现 domain.CourseRepository 接口
type courseRepository struct {
	dao *Dao
}

// NewCourseRepository 创建 CourseRepository 实例
func NewCourseRepository(dao *Dao) domain.CourseRepository {
	return &courseRepository{dao: dao}
}

var _ domain.CourseRepository = (*courseRepository)(nil)

const keyCourse = "Course"

func (r *courseRepository) toDomain(m *model.Course) *domain.Course {
	if m == nil {
		return nil
	}
	c := &domain.Course{
		ID:                m.ID,
		InstitutionID:     m.OrgID,
		Title:             m.Title,
		Term:              m.Term,
		Start:             time.Time(m.Start),
		End:               time.Time(m.End),
		Description:       m.Description,
		Lang:              m.Lang,
		Token:             m.Token,
		Field:             m.Field,
		Level:             m.Level,
		Students:          domain.NormalizeIDs(m.Students),
		Instructors:       domain.NormalizeIDs(m.Instructors),
		OnlineAmbassadors: domain.NormalizeIDs(m.OnlineAmbs),
		CampusAmbassadors: domain.NormalizeIDs(m.CampusAmbs),
		StudentCount:      m.StudentCount,
		InstructorCount:   m.InstructorCount,
		OnlineCount:       m.OnlineCount,
		CampusCount:       m.CampusCount,
		CreatedAt:         time.Time(m.CreatedAt),
		UpdatedAt:         time.Time(m.UpdatedAt),
	}
	return c
}

// toModel persists the counters derived from the role lists, dates are kept to whole seconds like the revision stamps
// toModel 持久化时计数由角色列表推导，日期按秒截断，与修订时间戳一致
func (r *courseRepository) toModel(c *domain.Course) *model.Course {
	c.RefreshCounts()
	c.Start = c.Start.Truncate(time.Second)
	c.End = c.End.Truncate(time.Second)
	return &model.Course{
		ID:              c.ID,
		OrgID:           c.InstitutionID,
		Title:           c.Title,
		Term:            c.Term,
		Start:           timex.Time(c.Start),
		End:             timex.Time(c.End),
		Description:     c.Description,
		Lang:            c.Lang,
		Token:           c.Token,
		Field:           c.Field,
		Level:           c.Level,
		Students:        model.IDList(domain.NormalizeIDs(c.Students)),
		Instructors:     model.IDList(domain.NormalizeIDs(c.Instructors)),
		OnlineAmbs:      model.IDList(domain.NormalizeIDs(c.OnlineAmbassadors)),
		CampusAmbs:      model.IDList(domain.NormalizeIDs(c.CampusAmbassadors)),
		StudentCount:    c.StudentCount,
		InstructorCount: c.InstructorCount,
		OnlineCount:     c.OnlineCount,
		CampusCount:     c.CampusCount,
		CreatedAt:       timex.Time(c.CreatedAt),
		UpdatedAt:       timex.Time(c.UpdatedAt),
	}
}

// GetByID 根据ID获取课程
func (r *courseRepository) GetByID(ctx context.Context, id int64, target domain.ReadTarget) (*domain.Course, error) {
	var m model.Course
	if err := r.dao.Reader(ctx, keyCourse, target).Where("id = ?", id).First(&m).Error; err != nil {
		return nil, err
	}
	return r.toDomain(&m), nil
}

// Exists 课程是否存在
func (r *courseRepository) Exists(ctx context.Context, id int64, target domain.ReadTarget) (bool, error) {
	var count int64
	err := r.dao.Reader(ctx, keyCourse, target).Model(&model.Course{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

// Create 创建课程
func (r *courseRepository) Create(ctx context.Context, course *domain.Course) (*domain.Course, error) {
	m := r.toModel(course)
	now := timex.Now()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	m.UpdatedAt = now

	err := r.dao.ExecuteWrite(ctx, keyCourse, func(db *gorm.DB) error {
		return db.Create(m).Error
	})
	if err != nil {
		return nil, err
	}
	return r.toDomain(m), nil
}

// Update 更新课程全部字段
func (r *courseRepository) Update(ctx context.Context, course *domain.Course) error {
	m := r.toModel(course)
	m.UpdatedAt = timex.Now()
	return r.dao.ExecuteWrite(ctx, keyCourse, func(db *gorm.DB) error {
		return db.Model(&model.Course{}).
			Where("id = ?", m.ID).
			Select("*").Omit("id", "created_at").
			Updates(m).Error
	})
}

// Delete 物理删除课程
func (r *courseRepository) Delete(ctx context.Context, id int64) error {
	return r.dao.ExecuteWrite(ctx, keyCourse, func(db *gorm.DB) error {
		return db.Where("id = ?", id).Delete(&model.Course{}).Error
	})
}

// ListByInstitution 获取机构下的全部课程
func (r *courseRepository) ListByInstitution(ctx context.Context, institutionID int64, target domain.ReadTarget) ([]*domain.Course, error) {
	var list []*model.Course
	err := r.dao.Reader(ctx, keyCourse, target).Where("org_id = ?", institutionID).Order("id").Find(&list).Error
	if err != nil {
		return nil, err
	}
	results := make([]*domain.Course, 0, len(list))
	for _, m := range list {
		results = append(results, r.toDomain(m))
	}
	return results, nil
}
