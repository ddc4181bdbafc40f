package dao

import (
	"context"
	"time"

	"github.com/haierkeys/edu-program-service/internal/domain"
	"github.com/haierkeys/edu-program-service/internal/model"
	"github.com/haierkeys/edu-program-service/pkg/timex"
	"gorm.io/gorm"
)

// institutionRepository 实现 domain.InstitutionRepository 接口
type institutionRepository struct {
	dao *Dao
}

// NewInstitutionRepository 创建 InstitutionRepository 实例
func NewInstitutionRepository(dao *Dao) domain.InstitutionRepository {
	return &institutionRepository{dao: dao}
}

var _ domain.InstitutionRepository = (*institutionRepository)(nil)

const keyInstitution = "Institution"

func (r *institutionRepository) toDomain(m *model.Institution) *domain.Institution {
	if m == nil {
		return nil
	}
	return &domain.Institution{
		ID:              m.ID,
		Name:            m.Name,
		City:            m.City,
		Country:         m.Country,
		CourseCount:     m.CourseCount,
		StudentCount:    m.StudentCount,
		InstructorCount: m.InstructorCount,
		OnlineCount:     m.OnlineCount,
		CampusCount:     m.CampusCount,
		LastActiveDate:  time.Time(m.LastActiveDate),
		Active:          m.Active,
		CreatedAt:       time.Time(m.CreatedAt),
		UpdatedAt:       time.Time(m.UpdatedAt),
	}
}

func (r *institutionRepository) toModel(i *domain.Institution) *model.Institution {
	return &model.Institution{
		ID:              i.ID,
		Name:            i.Name,
		City:            i.City,
		Country:         i.Country,
		CourseCount:     i.CourseCount,
		StudentCount:    i.StudentCount,
		InstructorCount: i.InstructorCount,
		OnlineCount:     i.OnlineCount,
		CampusCount:     i.CampusCount,
		LastActiveDate:  timex.Time(i.LastActiveDate),
		Active:          i.Active,
		CreatedAt:       timex.Time(i.CreatedAt),
		UpdatedAt:       timex.Time(i.UpdatedAt),
	}
}

// GetByID 根据ID获取机构
func (r *institutionRepository) GetByID(ctx context.Context, id int64, target domain.ReadTarget) (*domain.Institution, error) {
	var m model.Institution
	if err := r.dao.Reader(ctx, keyInstitution, target).Where("id = ?", id).First(&m).Error; err != nil {
		return nil, err
	}
	return r.toDomain(&m), nil
}

// Exists 机构是否存在
func (r *institutionRepository) Exists(ctx context.Context, id int64, target domain.ReadTarget) (bool, error) {
	var count int64
	err := r.dao.Reader(ctx, keyInstitution, target).Model(&model.Institution{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

// Create 创建机构
func (r *institutionRepository) Create(ctx context.Context, institution *domain.Institution) (*domain.Institution, error) {
	m := r.toModel(institution)
	now := timex.Now()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	m.UpdatedAt = now

	err := r.dao.ExecuteWrite(ctx, keyInstitution, func(db *gorm.DB) error {
		return db.Create(m).Error
	})
	if err != nil {
		return nil, err
	}
	return r.toDomain(m), nil
}

// Update 更新机构全部字段
func (r *institutionRepository) Update(ctx context.Context, institution *domain.Institution) error {
	m := r.toModel(institution)
	m.UpdatedAt = timex.Now()
	return r.dao.ExecuteWrite(ctx, keyInstitution, func(db *gorm.DB) error {
		return db.Model(&model.Institution{}).
			Where("id = ?", m.ID).
			Select("*").Omit("id", "created_at").
			Updates(m).Error
	})
}

// Delete 物理删除机构
func (r *institutionRepository) Delete(ctx context.Context, id int64) error {
	return r.dao.ExecuteWrite(ctx, keyInstitution, func(db *gorm.DB) error {
		return db.Where("id = ?", id).Delete(&model.Institution{}).Error
	})
}

// ListIDs 获取所有机构ID
func (r *institutionRepository) ListIDs(ctx context.Context, target domain.ReadTarget) ([]int64, error) {
	var ids []int64
	err := r.dao.Reader(ctx, keyInstitution, target).Model(&model.Institution{}).Order("id").Pluck("id", &ids).Error
	return ids, err
}
