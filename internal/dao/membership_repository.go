package dao

import (
	"context"
	"time"

	"github.com/haierkeys/edu-program-service/internal/domain"
	"github.com/haierkeys/edu-program-service/internal/model"
	"github.com/haierkeys/edu-program-service/pkg/timex"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// membershipRepository 实现 domain.MembershipRepository 接口
type membershipRepository struct {
	dao *Dao
}

// NewMembershipRepository 创建 MembershipRepository 实例
func NewMembershipRepository(dao *Dao) domain.MembershipRepository {
	return &membershipRepository{dao: dao}
}

var _ domain.MembershipRepository = (*membershipRepository)(nil)

const keyCourseMember = "CourseMember"

func (r *membershipRepository) toDomain(m *model.CourseMember) *domain.Membership {
	return &domain.Membership{
		ID:       m.ID,
		CourseID: m.CourseID,
		UserID:   m.UserID,
		Role:     domain.Role(m.Role),
		JoinedAt: time.Time(m.JoinedAt),
	}
}

// Create 批量写入成员行，已存在的 (课程, 角色, 用户) 保持原加入时间
func (r *membershipRepository) Create(ctx context.Context, members []*domain.Membership) error {
	if len(members) == 0 {
		return nil
	}
	rows := make([]*model.CourseMember, 0, len(members))
	for _, m := range members {
		rows = append(rows, &model.CourseMember{
			CourseID: m.CourseID,
			UserID:   m.UserID,
			Role:     string(m.Role),
			JoinedAt: timex.Time(m.JoinedAt),
		})
	}
	return r.dao.ExecuteWrite(ctx, keyCourseMember, func(db *gorm.DB) error {
		return db.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error
	})
}

// Delete 删除课程某角色下的指定用户
func (r *membershipRepository) Delete(ctx context.Context, courseID int64, role domain.Role, userIDs []int64) error {
	if len(userIDs) == 0 {
		return nil
	}
	return r.dao.ExecuteWrite(ctx, keyCourseMember, func(db *gorm.DB) error {
		return db.Where("course_id = ? AND role = ? AND user_id IN ?", courseID, string(role), userIDs).
			Delete(&model.CourseMember{}).Error
	})
}

// DeleteByCourse 删除课程的全部成员行
func (r *membershipRepository) DeleteByCourse(ctx context.Context, courseID int64) error {
	return r.dao.ExecuteWrite(ctx, keyCourseMember, func(db *gorm.DB) error {
		return db.Where("course_id = ?", courseID).Delete(&model.CourseMember{}).Error
	})
}

// ListByCourse 获取课程成员行
func (r *membershipRepository) ListByCourse(ctx context.Context, courseID int64, role domain.Role, target domain.ReadTarget) ([]*domain.Membership, error) {
	q := r.dao.Reader(ctx, keyCourseMember, target).Where("course_id = ?", courseID)
	if role != "" {
		q = q.Where("role = ?", string(role))
	}
	var list []*model.CourseMember
	if err := q.Order("user_id").Find(&list).Error; err != nil {
		return nil, err
	}
	results := make([]*domain.Membership, 0, len(list))
	for _, m := range list {
		results = append(results, r.toDomain(m))
	}
	return results, nil
}
