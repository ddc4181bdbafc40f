package service

import (
	"context"
	"time"

	"github.com/haierkeys/edu-program-service/internal/domain"
	"github.com/haierkeys/edu-program-service/pkg/logger"
	"go.uber.org/zap"
)

// AuditLogService defines the audit log business service interface
// AuditLogService 定义审计日志业务服务接口
type AuditLogService interface {
	domain.EventLogger

	// ListByTarget 获取目标记录的日志
	ListByTarget(ctx context.Context, kind domain.EntityKind, id int64) ([]*domain.LogEvent, error)

	// ListByOperation 获取同一次操作的日志
	ListByOperation(ctx context.Context, operationID string) ([]*domain.LogEvent, error)
}

type auditLogService struct {
	repo   domain.AuditLogRepository
	logger *zap.Logger
}

// NewAuditLogService creates AuditLogService instance
// NewAuditLogService 创建 AuditLogService 实例
func NewAuditLogService(repo domain.AuditLogRepository, logger *zap.Logger) AuditLogService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &auditLogService{repo: repo, logger: logger}
}

// LogEvent 写入审计日志
func (s *auditLogService) LogEvent(ctx context.Context, ev *domain.LogEvent) error {
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now()
	}
	created, err := s.repo.Create(ctx, ev)
	if err != nil {
		s.logger.Error("audit log write failed",
			zap.String(logger.FieldMethod, "auditLogService.LogEvent"),
			zap.String(logger.FieldOperationID, ev.OperationID),
			zap.String(logger.FieldAction, ev.Type+"/"+ev.Subtype),
			zap.Error(err))
		return err
	}
	ev.ID = created.ID

	s.logger.Info("audit",
		zap.String(logger.FieldOperationID, ev.OperationID),
		zap.String(logger.FieldAction, ev.Type+"/"+ev.Subtype),
		zap.Int64(logger.FieldActorID, ev.ActorID),
		zap.String("target", ev.Target))
	return nil
}

func (s *auditLogService) ListByTarget(ctx context.Context, kind domain.EntityKind, id int64) ([]*domain.LogEvent, error) {
	return s.repo.ListByTarget(ctx, domain.TargetRef(kind, id))
}

func (s *auditLogService) ListByOperation(ctx context.Context, operationID string) ([]*domain.LogEvent, error) {
	return s.repo.ListByOperation(ctx, operationID)
}
