package dao

import (
	"context"
	"time"

	"github.com/haierkeys/edu-program-service/internal/domain"
	"github.com/haierkeys/edu-program-service/internal/model"
	"github.com/haierkeys/edu-program-service/pkg/timex"
	"gorm.io/gorm"
)

// auditLogRepository 实现 domain.AuditLogRepository 接口
type auditLogRepository struct {
	dao *Dao
}

// NewAuditLogRepository 创建 AuditLogRepository 实例
func NewAuditLogRepository(dao *Dao) domain.AuditLogRepository {
	return &auditLogRepository{dao: dao}
}

var _ domain.AuditLogRepository = (*auditLogRepository)(nil)

const keyAuditLog = "AuditLog"

func (r *auditLogRepository) toDomain(m *model.AuditLog) (*domain.LogEvent, error) {
	params := map[string]any{}
	if m.Params != "" {
		if err := blobAPI.UnmarshalFromString(m.Params, &params); err != nil {
			return nil, err
		}
	}
	return &domain.LogEvent{
		ID:          m.ID,
		OperationID: m.OperationID,
		Type:        m.Type,
		Subtype:     m.Subtype,
		ActorID:     m.ActorID,
		ActorName:   m.ActorName,
		Comment:     m.Comment,
		Target:      m.Target,
		Params:      params,
		CreatedAt:   time.Time(m.CreatedAt),
	}, nil
}

// Create 写入日志
func (r *auditLogRepository) Create(ctx context.Context, ev *domain.LogEvent) (*domain.LogEvent, error) {
	params := ev.Params
	if params == nil {
		params = map[string]any{}
	}
	blob, err := blobAPI.MarshalToString(params)
	if err != nil {
		return nil, err
	}
	m := &model.AuditLog{
		OperationID: ev.OperationID,
		Type:        ev.Type,
		Subtype:     ev.Subtype,
		ActorID:     ev.ActorID,
		ActorName:   ev.ActorName,
		Comment:     ev.Comment,
		Target:      ev.Target,
		Params:      blob,
		CreatedAt:   timex.Time(ev.CreatedAt),
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = timex.Now()
	}
	err = r.dao.ExecuteWrite(ctx, keyAuditLog, func(db *gorm.DB) error {
		return db.Create(m).Error
	})
	if err != nil {
		return nil, err
	}
	return r.toDomain(m)
}

// ListByTarget 获取目标的日志
func (r *auditLogRepository) ListByTarget(ctx context.Context, target string) ([]*domain.LogEvent, error) {
	return r.list(ctx, "target = ?", target)
}

// ListByOperation 获取同一次操作的日志
func (r *auditLogRepository) ListByOperation(ctx context.Context, operationID string) ([]*domain.LogEvent, error) {
	return r.list(ctx, "operation_id = ?", operationID)
}

func (r *auditLogRepository) list(ctx context.Context, where string, arg any) ([]*domain.LogEvent, error) {
	var list []*model.AuditLog
	if err := r.dao.Reader(ctx, keyAuditLog, domain.ReadReplica).Where(where, arg).Order("id").Find(&list).Error; err != nil {
		return nil, err
	}
	results := make([]*domain.LogEvent, 0, len(list))
	for _, m := range list {
		ev, err := r.toDomain(m)
		if err != nil {
			return nil, err
		}
		results = append(results, ev)
	}
	return results, nil
}
