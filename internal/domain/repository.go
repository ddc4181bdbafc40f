// Package domain 定义领域模型和接口
package domain

import "context"

// InstitutionRepository 机构仓储接口
type InstitutionRepository interface {
	// GetByID 根据ID获取机构
	GetByID(ctx context.Context, id int64, target ReadTarget) (*Institution, error)

	// Exists 机构是否存在
	Exists(ctx context.Context, id int64, target ReadTarget) (bool, error)

	// Create 创建机构，ID 非零时保留该 ID（恢复删除）
	Create(ctx context.Context, institution *Institution) (*Institution, error)

	// Update 更新机构全部字段
	Update(ctx context.Context, institution *Institution) error

	// Delete 物理删除机构
	Delete(ctx context.Context, id int64) error

	// ListIDs 获取所有机构ID
	ListIDs(ctx context.Context, target ReadTarget) ([]int64, error)
}

// CourseRepository 课程仓储接口
type CourseRepository interface {
	// GetByID 根据ID获取课程
	GetByID(ctx context.Context, id int64, target ReadTarget) (*Course, error)

	// Exists 课程是否存在
	Exists(ctx context.Context, id int64, target ReadTarget) (bool, error)

	// Create 创建课程，ID 非零时保留该 ID（恢复删除）
	Create(ctx context.Context, course *Course) (*Course, error)

	// Update 更新课程全部字段
	Update(ctx context.Context, course *Course) error

	// Delete 物理删除课程
	Delete(ctx context.Context, id int64) error

	// ListByInstitution 获取机构下的全部课程
	ListByInstitution(ctx context.Context, institutionID int64, target ReadTarget) ([]*Course, error)
}

// RevisionRepository 修订快照仓储接口（只追加）
type RevisionRepository interface {
	// Create 写入快照
	Create(ctx context.Context, revision *Revision) (*Revision, error)

	// GetByID 根据ID获取快照
	GetByID(ctx context.Context, id int64) (*Revision, error)

	// GetLatest 获取记录的最新快照
	GetLatest(ctx context.Context, kind EntityKind, objectID int64) (*Revision, error)

	// GetPreceding 获取 ID 小于 beforeID 的最近快照
	GetPreceding(ctx context.Context, kind EntityKind, objectID, beforeID int64) (*Revision, error)

	// ListByObject 分页获取记录的快照（按 ID 倒序）
	ListByObject(ctx context.Context, kind EntityKind, objectID int64, page, pageSize int) ([]*Revision, error)

	// CountByObject 获取记录的快照数量
	CountByObject(ctx context.Context, kind EntityKind, objectID int64) (int64, error)
}

// MembershipRepository 课程成员仓储接口
type MembershipRepository interface {
	// Create 批量写入成员行
	Create(ctx context.Context, members []*Membership) error

	// Delete 删除课程某角色下的指定用户
	Delete(ctx context.Context, courseID int64, role Role, userIDs []int64) error

	// DeleteByCourse 删除课程的全部成员行
	DeleteByCourse(ctx context.Context, courseID int64) error

	// ListByCourse 获取课程成员行，role 为空时返回全部角色
	ListByCourse(ctx context.Context, courseID int64, role Role, target ReadTarget) ([]*Membership, error)
}

// StudentRepository 学生活动记录仓储接口
type StudentRepository interface {
	// GetByUserID 根据用户ID获取学生记录
	GetByUserID(ctx context.Context, userID int64) (*Student, error)

	// Save 创建或更新学生记录
	Save(ctx context.Context, student *Student) (*Student, error)
}

// CourseArticleRepository 课程文章关联仓储接口
type CourseArticleRepository interface {
	// Create 创建关联
	Create(ctx context.Context, article *CourseArticle) (*CourseArticle, error)

	// ListByCourse 获取课程的关联，userID 为 0 时返回全部
	ListByCourse(ctx context.Context, courseID, userID int64) ([]*CourseArticle, error)

	// DeleteByCourseUsers 删除课程中指定用户的关联
	DeleteByCourseUsers(ctx context.Context, courseID int64, userIDs []int64) error

	// DeleteByCourse 删除课程的全部关联
	DeleteByCourse(ctx context.Context, courseID int64) error
}

// AuditLogRepository 审计日志仓储接口
type AuditLogRepository interface {
	// Create 写入日志
	Create(ctx context.Context, ev *LogEvent) (*LogEvent, error)

	// ListByTarget 获取目标的日志（按 ID 升序）
	ListByTarget(ctx context.Context, target string) ([]*LogEvent, error)

	// ListByOperation 获取同一次操作的日志
	ListByOperation(ctx context.Context, operationID string) ([]*LogEvent, error)
}
