package dao

import (
	"context"
	"time"

	"github.com/haierkeys/edu-program-service/internal/domain"
	"github.com/haierkeys/edu-program-service/internal/model"
	"github.com/haierkeys/edu-program-service/pkg/timex"
	"gorm.io/gorm"
)

// courseArticleRepository 实现 domain.CourseArticleRepository 接口
type courseArticleRepository struct {
	dao *Dao
}

// NewCourseArticleRepository 创建 CourseArticleRepository 实例
func NewCourseArticleRepository(dao *Dao) domain.CourseArticleRepository {
	return &courseArticleRepository{dao: dao}
}

var _ domain.CourseArticleRepository = (*courseArticleRepository)(nil)

const keyCourseArticle = "CourseArticle"

// Create 创建关联
func (r *courseArticleRepository) Create(ctx context.Context, article *domain.CourseArticle) (*domain.CourseArticle, error) {
	m := &model.CourseArticle{
		CourseID:  article.CourseID,
		UserID:    article.UserID,
		PageTitle: article.PageTitle,
		CreatedAt: timex.Time(article.CreatedAt),
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = timex.Now()
	}
	err := r.dao.ExecuteWrite(ctx, keyCourseArticle, func(db *gorm.DB) error {
		return db.Create(m).Error
	})
	if err != nil {
		return nil, err
	}
	return &domain.CourseArticle{
		ID:        m.ID,
		CourseID:  m.CourseID,
		UserID:    m.UserID,
		PageTitle: m.PageTitle,
		CreatedAt: time.Time(m.CreatedAt),
	}, nil
}

// ListByCourse 获取课程的关联
func (r *courseArticleRepository) ListByCourse(ctx context.Context, courseID, userID int64) ([]*domain.CourseArticle, error) {
	q := r.dao.Reader(ctx, keyCourseArticle, domain.ReadAuthoritative).Where("course_id = ?", courseID)
	if userID != 0 {
		q = q.Where("user_id = ?", userID)
	}
	var list []*model.CourseArticle
	if err := q.Order("id").Find(&list).Error; err != nil {
		return nil, err
	}
	results := make([]*domain.CourseArticle, 0, len(list))
	for _, m := range list {
		results = append(results, &domain.CourseArticle{
			ID:        m.ID,
			CourseID:  m.CourseID,
			UserID:    m.UserID,
			PageTitle: m.PageTitle,
			CreatedAt: time.Time(m.CreatedAt),
		})
	}
	return results, nil
}

// DeleteByCourseUsers 删除课程中指定用户的关联
func (r *courseArticleRepository) DeleteByCourseUsers(ctx context.Context, courseID int64, userIDs []int64) error {
	if len(userIDs) == 0 {
		return nil
	}
	return r.dao.ExecuteWrite(ctx, keyCourseArticle, func(db *gorm.DB) error {
		return db.Where("course_id = ? AND user_id IN ?", courseID, userIDs).Delete(&model.CourseArticle{}).Error
	})
}

// DeleteByCourse 删除课程的全部关联
func (r *courseArticleRepository) DeleteByCourse(ctx context.Context, courseID int64) error {
	return r.dao.ExecuteWrite(ctx, keyCourseArticle, func(db *gorm.DB) error {
		return db.Where("course_id = ?", courseID).Delete(&model.CourseArticle{}).Error
	})
}
