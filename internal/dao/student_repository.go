package dao

import (
	"context"
	"time"

	"github.com/haierkeys/edu-program-service/internal/domain"
	"github.com/haierkeys/edu-program-service/internal/model"
	"github.com/haierkeys/edu-program-service/pkg/timex"
	"gorm.io/gorm"
)

// studentRepository 实现 domain.StudentRepository 接口
type studentRepository struct {
	dao *Dao
}

// NewStudentRepository 创建 StudentRepository 实例
func NewStudentRepository(dao *Dao) domain.StudentRepository {
	return &studentRepository{dao: dao}
}

var _ domain.StudentRepository = (*studentRepository)(nil)

const keyStudent = "Student"

func (r *studentRepository) toDomain(m *model.Student) *domain.Student {
	return &domain.Student{
		ID:            m.ID,
		UserID:        m.UserID,
		FirstEnrollAt: time.Time(m.FirstEnrollAt),
		LastEnrollAt:  time.Time(m.LastEnrollAt),
		FirstCourseID: m.FirstCourseID,
		LastCourseID:  m.LastCourseID,
		LastActiveAt:  time.Time(m.LastActiveAt),
	}
}

// GetByUserID 根据用户ID获取学生记录
func (r *studentRepository) GetByUserID(ctx context.Context, userID int64) (*domain.Student, error) {
	var m model.Student
	if err := r.dao.Reader(ctx, keyStudent, domain.ReadAuthoritative).Where("user_id = ?", userID).First(&m).Error; err != nil {
		return nil, err
	}
	return r.toDomain(&m), nil
}

// Save 创建或更新学生记录
func (r *studentRepository) Save(ctx context.Context, student *domain.Student) (*domain.Student, error) {
	m := &model.Student{
		ID:            student.ID,
		UserID:        student.UserID,
		FirstEnrollAt: timex.Time(student.FirstEnrollAt),
		LastEnrollAt:  timex.Time(student.LastEnrollAt),
		FirstCourseID: student.FirstCourseID,
		LastCourseID:  student.LastCourseID,
		LastActiveAt:  timex.Time(student.LastActiveAt),
	}
	err := r.dao.ExecuteWrite(ctx, keyStudent, func(db *gorm.DB) error {
		if m.ID == 0 {
			return db.Create(m).Error
		}
		return db.Model(&model.Student{}).Where("id = ?", m.ID).Select("*").Omit("id").Updates(m).Error
	})
	if err != nil {
		return nil, err
	}
	return r.toDomain(m), nil
}
