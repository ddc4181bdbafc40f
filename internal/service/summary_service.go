package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/haierkeys/edu-program-service/internal/domain"
	"github.com/haierkeys/edu-program-service/pkg/code"
	apperrors "github.com/haierkeys/edu-program-service/pkg/errors"
	"github.com/haierkeys/edu-program-service/pkg/logger"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// SummaryService defines the institution summary cascade interface
// SummaryService 定义机构统计级联接口
type SummaryService interface {
	// RecomputeSummary recounts the named summary fields of an institution from its courses, all when none named
	// RecomputeSummary 根据机构下的课程重新计算统计字段，未指定字段时全部计算
	RecomputeSummary(ctx context.Context, institutionID int64, target domain.ReadTarget, fields ...string) (bool, error)

	// OnCourseMutation recomputes the parents a course write affects, failures are queued for retry
	// OnCourseMutation 重新计算课程写入影响的父机构，失败时加入重试队列
	OnCourseMutation(ctx context.Context, m *Mutation) error

	// OnInstitutionMutation recounts an institution that was added or undeleted, its courses may still reference it
	// OnInstitutionMutation 新增或恢复删除机构后重新计算统计，其课程可能仍指向该机构
	OnInstitutionMutation(ctx context.Context, m *Mutation) error

	// RetryPending recomputes the institutions whose cascade failed, returns how many recovered
	// RetryPending 重试级联失败的机构，返回成功数量
	RetryPending(ctx context.Context) (int, error)

	// Pending returns the institution ids waiting for a retry
	// Pending 返回等待重试的机构 ID
	Pending() []int64

	// RecomputeAll recounts every institution from the replica path, returns how many changed
	// RecomputeAll 重新计算全部机构，返回发生变化的数量
	RecomputeAll(ctx context.Context, concurrency int) (int, error)
}

// roleCounterFields maps a role to its institution counter
var roleCounterFields = map[domain.Role]string{
	domain.RoleStudent:    domain.InstitutionStudentCount,
	domain.RoleInstructor: domain.InstitutionInstructorCount,
	domain.RoleOnline:     domain.InstitutionOnlineCount,
	domain.RoleCampus:     domain.InstitutionCampusCount,
}

var activityFields = []string{domain.InstitutionLastActiveDate, domain.InstitutionActive}

// summaryService implementation of SummaryService interface
// summaryService 实现 SummaryService 接口
type summaryService struct {
	records         RecordService
	institutionRepo domain.InstitutionRepository
	courseRepo      domain.CourseRepository
	metrics         *Metrics
	logger          *zap.Logger
	config          *SummaryServiceConfig
	now             func() time.Time

	sf      singleflight.Group
	mu      sync.Mutex
	pending map[int64]struct{}
}

// NewSummaryService creates SummaryService instance
// NewSummaryService 创建 SummaryService 实例
func NewSummaryService(
	records RecordService,
	institutionRepo domain.InstitutionRepository,
	courseRepo domain.CourseRepository,
	metrics *Metrics,
	logger *zap.Logger,
	config *SummaryServiceConfig,
) SummaryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	if config == nil {
		config = &DefaultServiceConfig().Summary
	}
	return &summaryService{
		records:         records,
		institutionRepo: institutionRepo,
		courseRepo:      courseRepo,
		metrics:         metrics,
		logger:          logger,
		config:          config,
		now:             time.Now,
		pending:         map[int64]struct{}{},
	}
}

// RecomputeSummary 重新计算机构统计
// The institution row is always read authoritatively, target only routes the course scan
// 机构行始终从主库读取，target 只决定课程扫描的连接
func (s *summaryService) RecomputeSummary(ctx context.Context, institutionID int64, target domain.ReadTarget, fields ...string) (bool, error) {
	started := time.Now()
	defer func() { s.metrics.RecomputeSeconds.Observe(time.Since(started).Seconds()) }()

	if len(fields) == 0 {
		fields = domain.InstitutionSchema.Summary()
	}
	for _, f := range fields {
		spec, ok := domain.InstitutionSchema.Spec(f)
		if !ok || !spec.Summary {
			return false, code.ErrorValidation.WithDetails(fmt.Sprintf("field %q is not a summary field", f))
		}
	}

	e, err := s.records.Load(ctx, domain.KindInstitution, institutionID, domain.ReadAuthoritative)
	if err != nil {
		return false, err
	}
	courses, err := s.courseRepo.ListByInstitution(ctx, institutionID, target)
	if err != nil {
		return false, apperrors.Storage(err)
	}

	counters := summarize(courses, s.now())
	if err := e.SetFields(counters.Only(fields)); err != nil {
		return false, code.ErrorInvalidField.WithDetails(err.Error())
	}
	return s.records.Save(ctx, e, WithSummaryMode())
}

// summarize derives every institution counter from its courses
// summarize 根据课程计算机构的全部统计字段
func summarize(courses []*domain.Course, now time.Time) domain.Fields {
	members := make(map[domain.Role]map[int64]struct{}, len(domain.Roles))
	for _, r := range domain.Roles {
		members[r] = map[int64]struct{}{}
	}

	var lastActive time.Time
	active := false
	for _, c := range courses {
		for _, r := range domain.Roles {
			for _, uid := range c.Members(r) {
				members[r][uid] = struct{}{}
			}
		}
		if c.End.After(lastActive) {
			lastActive = c.End
		}
		if c.IsActive(now) {
			active = true
		}
	}

	out := domain.Fields{
		domain.InstitutionCourseCount:    int64(len(courses)),
		domain.InstitutionLastActiveDate: lastActive,
		domain.InstitutionActive:         active,
	}
	for r, field := range roleCounterFields {
		out[field] = int64(len(members[r]))
	}
	return out
}

// OnCourseMutation 课程写入钩子
func (s *summaryService) OnCourseMutation(ctx context.Context, m *Mutation) error {
	all := domain.InstitutionSchema.Summary()
	affected := map[int64][]string{}

	switch m.Action {
	case domain.ActionAdd, domain.ActionUndelete:
		if next, ok := m.Next.(*domain.Course); ok {
			affected[next.InstitutionID] = all
		}

	case domain.ActionRemove:
		if prev, ok := m.Prev.(*domain.Course); ok {
			affected[prev.InstitutionID] = all
		}

	case domain.ActionUpdate:
		prev, _ := m.Prev.(*domain.Course)
		next, ok := m.Next.(*domain.Course)
		if !ok {
			return nil
		}
		if prev != nil && prev.InstitutionID != next.InstitutionID {
			affected[prev.InstitutionID] = all
			affected[next.InstitutionID] = all
			break
		}
		var fields []string
		for _, r := range domain.Roles {
			if m.ChangedAny(domain.RoleField(r)) {
				fields = append(fields, roleCounterFields[r])
			}
		}
		if m.ChangedAny(domain.CourseStart, domain.CourseEnd) {
			fields = append(fields, activityFields...)
		}
		if len(fields) > 0 {
			affected[next.InstitutionID] = fields
		}
	}

	for institutionID, fields := range affected {
		if institutionID == 0 {
			continue
		}
		s.cascade(ctx, institutionID, fields, m.OperationID)
	}
	return nil
}

// OnInstitutionMutation 机构写入钩子
func (s *summaryService) OnInstitutionMutation(ctx context.Context, m *Mutation) error {
	switch m.Action {
	case domain.ActionAdd, domain.ActionUndelete:
	default:
		return nil
	}
	if m.Next == nil || m.Next.GetID() == 0 {
		return nil
	}
	s.cascade(ctx, m.Next.GetID(), domain.InstitutionSchema.Summary(), m.OperationID)
	return nil
}

// cascade recomputes one parent, a failure is logged, counted and queued, never returned
func (s *summaryService) cascade(ctx context.Context, institutionID int64, fields []string, operationID string) {
	_, err := s.RecomputeSummary(ctx, institutionID, domain.ReadAuthoritative, fields...)
	if err == nil {
		return
	}
	if errors.Is(err, code.ErrorNotFound) {
		s.logger.Debug("summary cascade skipped, institution missing",
			zap.String(logger.FieldOperationID, operationID),
			zap.Int64(logger.FieldInstitutionID, institutionID))
		return
	}

	s.metrics.CascadeFailures.Inc()
	s.mu.Lock()
	s.pending[institutionID] = struct{}{}
	s.mu.Unlock()

	s.logger.Warn("summary cascade failed, queued for retry",
		zap.String(logger.FieldMethod, "summaryService.cascade"),
		zap.String(logger.FieldOperationID, operationID),
		zap.Int64(logger.FieldInstitutionID, institutionID),
		zap.Strings(logger.FieldFields, fields),
		zap.Error(err))
}

// Pending 等待重试的机构
func (s *summaryService) Pending() []int64 {
	s.mu.Lock()
	ids := make([]int64, 0, len(s.pending))
	for id := range s.pending {
		ids = append(ids, id)
	}
	s.mu.Unlock()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// RetryPending 重试失败的级联
func (s *summaryService) RetryPending(ctx context.Context) (int, error) {
	var errs []error
	recovered := 0
	for _, id := range s.Pending() {
		if err := ctx.Err(); err != nil {
			return recovered, err
		}
		_, err := s.RecomputeSummary(ctx, id, domain.ReadAuthoritative)
		if err != nil && !errors.Is(err, code.ErrorNotFound) {
			errs = append(errs, fmt.Errorf("institution %d: %w", id, err))
			continue
		}
		s.mu.Lock()
		delete(s.pending, id)
		s.mu.Unlock()
		recovered++
	}
	return recovered, errors.Join(errs...)
}

// RecomputeAll 批量重新计算
func (s *summaryService) RecomputeAll(ctx context.Context, concurrency int) (int, error) {
	if concurrency <= 0 {
		concurrency = s.config.RecountConcurrency
	}
	ids, err := s.institutionRepo.ListIDs(ctx, domain.ReadReplica)
	if err != nil {
		return 0, apperrors.Storage(err)
	}

	var changed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for _, id := range ids {
		g.Go(func() error {
			// Concurrent operator requests for one institution share a single recount
			// 同一机构的并发重算请求合并为一次
			v, err, _ := s.sf.Do(fmt.Sprintf("recompute_%d", id), func() (interface{}, error) {
				return s.RecomputeSummary(gctx, id, domain.ReadReplica)
			})
			if err != nil {
				if errors.Is(err, code.ErrorNotFound) {
					return nil
				}
				return fmt.Errorf("institution %d: %w", id, err)
			}
			if v.(bool) {
				changed.Add(1)
			}
			return nil
		})
	}
	err = g.Wait()

	s.logger.Info("summary recount finished",
		zap.String(logger.FieldMethod, "summaryService.RecomputeAll"),
		zap.Int("institutions", len(ids)),
		zap.Int64("changed", changed.Load()),
		zap.Error(err))
	return int(changed.Load()), err
}
