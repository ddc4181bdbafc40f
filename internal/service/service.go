package service

import (
	"github.com/haierkeys/edu-program-service/internal/domain"
	"go.uber.org/zap"
)

// Repositories repositories the services are built on
// Repositories 服务依赖的仓储集合
type Repositories struct {
	Institution domain.InstitutionRepository
	Course      domain.CourseRepository
	Revision    domain.RevisionRepository
	Membership  domain.MembershipRepository
	Student     domain.StudentRepository
	Article     domain.CourseArticleRepository
	AuditLog    domain.AuditLogRepository
}

// Services the wired service layer
// Services 已装配的服务层
type Services struct {
	AuditLog   AuditLogService
	Record     RecordService
	Membership MembershipService
	Summary    SummaryService
	Revision   RevisionService
	Metrics    *Metrics
}

// NewServices wires the services and registers the record hooks, membership sync runs before the summary cascade
// NewServices 装配服务并注册记录钩子，成员同步先于统计级联执行
func NewServices(repos Repositories, metrics *Metrics, logger *zap.Logger, config *ServiceConfig) *Services {
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	if config == nil {
		config = DefaultServiceConfig()
	}

	auditLog := NewAuditLogService(repos.AuditLog, logger.Named("audit"))
	records := NewRecordService(repos.Institution, repos.Course, repos.Revision, auditLog, metrics, logger.Named("record"), &config.Record)
	membership := NewMembershipService(records, repos.Membership, repos.Student, repos.Article, auditLog, logger.Named("membership"))
	summary := NewSummaryService(records, repos.Institution, repos.Course, metrics, logger.Named("summary"), &config.Summary)

	records.RegisterHook(domain.KindCourse, membership.OnCourseMutation)
	records.RegisterHook(domain.KindCourse, summary.OnCourseMutation)
	records.RegisterHook(domain.KindInstitution, summary.OnInstitutionMutation)

	return &Services{
		AuditLog:   auditLog,
		Record:     records,
		Membership: membership,
		Summary:    summary,
		Revision:   NewRevisionService(repos.Revision, &config.Record),
		Metrics:    metrics,
	}
}
