package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/haierkeys/edu-program-service/internal/domain"
	"github.com/haierkeys/edu-program-service/pkg/code"
	"github.com/haierkeys/edu-program-service/pkg/diff"
	apperrors "github.com/haierkeys/edu-program-service/pkg/errors"
	"github.com/haierkeys/edu-program-service/pkg/logger"
	"github.com/jinzhu/copier"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Mutation describes one accepted write, handed to the hooks of its kind
// Mutation 描述一次已接受的写操作，传递给该记录类型的钩子
type Mutation struct {
	Action string
	Kind   domain.EntityKind
	// Prev persisted state before the write, nil for add and undelete
	// Prev 写入前的持久化状态，新增与恢复删除时为 nil
	Prev domain.RevisionedEntity
	// Next state after the write, nil for remove
	// Next 写入后的状态，删除时为 nil
	Next        domain.RevisionedEntity
	Changed     []string
	OperationID string
	options     *writeOptions
}

// ChangedAny reports whether any of fields changed
func (m *Mutation) ChangedAny(fields ...string) bool {
	for _, f := range fields {
		for _, c := range m.Changed {
			if c == f {
				return true
			}
		}
	}
	return false
}

// Hook runs after the snapshot and log entry of a mutation
// Hook 在快照与日志写入后执行
type Hook func(ctx context.Context, m *Mutation) error

// RecordService defines the revisioned record business service interface
// RecordService 定义修订记录业务服务接口
type RecordService interface {
	// Load reads a record from the requested connection
	// Load 从指定连接读取记录
	Load(ctx context.Context, kind domain.EntityKind, id int64, target domain.ReadTarget) (domain.RevisionedEntity, error)

	// Insert persists a new record, writes the "add" snapshot and log entry
	// Insert 持久化新记录，写入 "add" 快照与日志
	Insert(ctx context.Context, e domain.RevisionedEntity, opts ...Option) (int64, error)

	// Save persists e when its revertible fields differ from the stored copy
	// Save 当可撤销字段与已存储版本不同时持久化
	Save(ctx context.Context, e domain.RevisionedEntity, opts ...Option) (bool, error)

	// Remove deletes the record, writes the "remove" snapshot and log entry
	// Remove 删除记录，写入 "remove" 快照与日志
	Remove(ctx context.Context, e domain.RevisionedEntity, opts ...Option) (bool, error)

	// Undelete reinserts a removed record from its latest snapshot
	// Undelete 从最新快照重新插入已删除的记录
	Undelete(ctx context.Context, kind domain.EntityKind, id int64, opts ...Option) (bool, error)

	// RestoreToRevision sets fields to their values in the revision
	// RestoreToRevision 将字段恢复为指定版本的值
	RestoreToRevision(ctx context.Context, e domain.RevisionedEntity, revisionID int64, fields []string, opts ...Option) (*diff.ChangeSet, error)

	// UndoRevision reverts the fields a revision changed, skipping fields edited since
	// UndoRevision 撤销某版本修改的字段，跳过之后被再次修改的字段
	UndoRevision(ctx context.Context, e domain.RevisionedEntity, revisionID int64, fields []string, opts ...Option) (*diff.ChangeSet, error)

	// RegisterHook appends a hook for kind, hooks run in registration order
	// RegisterHook 为记录类型追加钩子，按注册顺序执行
	RegisterHook(kind domain.EntityKind, hook Hook)
}

// entityStore adapts a typed repository to RevisionedEntity
type entityStore interface {
	get(ctx context.Context, id int64, target domain.ReadTarget) (domain.RevisionedEntity, error)
	exists(ctx context.Context, id int64, target domain.ReadTarget) (bool, error)
	create(ctx context.Context, e domain.RevisionedEntity) (int64, error)
	update(ctx context.Context, e domain.RevisionedEntity) error
	delete(ctx context.Context, id int64) error
}

// recordService implementation of RecordService interface
// recordService 实现 RecordService 接口
type recordService struct {
	stores       map[domain.EntityKind]entityStore
	revisionRepo domain.RevisionRepository
	events       domain.EventLogger
	metrics      *Metrics
	logger       *zap.Logger
	config       *RecordServiceConfig

	mu    sync.RWMutex
	hooks map[domain.EntityKind][]Hook
}

// NewRecordService creates RecordService instance
// NewRecordService 创建 RecordService 实例
func NewRecordService(
	institutionRepo domain.InstitutionRepository,
	courseRepo domain.CourseRepository,
	revisionRepo domain.RevisionRepository,
	events domain.EventLogger,
	metrics *Metrics,
	logger *zap.Logger,
	config *RecordServiceConfig,
) RecordService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	if config == nil {
		config = &DefaultServiceConfig().Record
	}
	return &recordService{
		stores: map[domain.EntityKind]entityStore{
			domain.KindInstitution: &institutionStore{repo: institutionRepo},
			domain.KindCourse:      &courseStore{repo: courseRepo},
		},
		revisionRepo: revisionRepo,
		events:       events,
		metrics:      metrics,
		logger:       logger,
		config:       config,
		hooks:        map[domain.EntityKind][]Hook{},
	}
}

func (s *recordService) RegisterHook(kind domain.EntityKind, hook Hook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks[kind] = append(s.hooks[kind], hook)
}

func (s *recordService) storeFor(kind domain.EntityKind) (entityStore, *domain.Schema, error) {
	store, ok := s.stores[kind]
	if !ok {
		return nil, nil, code.ErrorUnknownKind.WithDetails(string(kind))
	}
	schema, err := domain.SchemaFor(kind)
	if err != nil {
		return nil, nil, code.ErrorUnknownKind.WithDetails(string(kind))
	}
	return store, schema, nil
}

// Load 读取记录
func (s *recordService) Load(ctx context.Context, kind domain.EntityKind, id int64, target domain.ReadTarget) (domain.RevisionedEntity, error) {
	store, _, err := s.storeFor(kind)
	if err != nil {
		return nil, err
	}
	e, err := store.get(ctx, id, target)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, code.ErrorNotFound
		}
		return nil, apperrors.Storage(err)
	}
	return e, nil
}

// Insert 插入新记录
func (s *recordService) Insert(ctx context.Context, e domain.RevisionedEntity, opts ...Option) (int64, error) {
	if e.GetID() != 0 {
		return 0, code.ErrorRecordAlreadyInserted
	}
	o := buildOptions(s.config.SystemActorName, opts)
	store, schema, err := s.storeFor(e.Kind())
	if err != nil {
		return 0, err
	}

	id, err := store.create(ctx, e)
	if err != nil {
		return 0, apperrors.Storage(err)
	}
	e.SetID(id)

	rev, err := s.snapshot(ctx, e, schema, domain.ActionAdd, false, o)
	if err != nil {
		return id, err
	}
	if err := s.logRecord(ctx, e, domain.ActionAdd, rev, nil, o); err != nil {
		return id, err
	}

	err = s.runHooks(ctx, &Mutation{
		Action:      domain.ActionAdd,
		Kind:        e.Kind(),
		Next:        e,
		Changed:     schema.Revertible(),
		OperationID: o.operationID,
		options:     o,
	})
	return id, err
}

// Save 保存记录
func (s *recordService) Save(ctx context.Context, e domain.RevisionedEntity, opts ...Option) (bool, error) {
	if e.GetID() == 0 {
		if _, err := s.Insert(ctx, e, opts...); err != nil {
			return false, err
		}
		return true, nil
	}

	o := buildOptions(s.config.SystemActorName, opts)
	store, schema, err := s.storeFor(e.Kind())
	if err != nil {
		return false, err
	}

	stored, err := store.get(ctx, e.GetID(), domain.ReadAuthoritative)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, code.ErrorConflict.WithDetails(fmt.Sprintf("%s %d no longer exists", e.Kind(), e.GetID()))
		}
		return false, apperrors.Storage(err)
	}

	fields := schema.Revertible()
	if o.summaryMode {
		fields = schema.Summary()
	}
	changed := schema.Differs(stored.Fields(), e.Fields(), fields)
	if len(changed) == 0 {
		return false, nil
	}

	prev, err := cloneEntity(stored)
	if err != nil {
		return false, err
	}

	// Only the compared fields are taken from e, the rest keeps the stored values
	// 只写入参与比较的字段，其余字段保持已存储的值
	if err := stored.SetFields(e.Fields().Only(fields)); err != nil {
		return false, code.ErrorInvalidField.WithDetails(err.Error())
	}
	if err := store.update(ctx, stored); err != nil {
		return false, apperrors.Storage(err)
	}
	if err := e.SetFields(stored.Fields()); err != nil {
		return false, err
	}

	if o.summaryMode {
		s.logger.Debug("summary fields persisted",
			zap.String(logger.FieldMethod, "recordService.Save"),
			zap.String(logger.FieldKind, string(e.Kind())),
			zap.Int64(logger.FieldObjectID, e.GetID()),
			zap.Strings(logger.FieldFields, changed))
		return true, nil
	}

	rev, err := s.snapshot(ctx, e, schema, domain.ActionUpdate, false, o)
	if err != nil {
		return true, err
	}
	if err := s.logRecord(ctx, e, domain.ActionUpdate, rev, changed, o); err != nil {
		return true, err
	}

	err = s.runHooks(ctx, &Mutation{
		Action:      domain.ActionUpdate,
		Kind:        e.Kind(),
		Prev:        prev,
		Next:        e,
		Changed:     changed,
		OperationID: o.operationID,
		options:     o,
	})
	return true, err
}

// Remove 删除记录
func (s *recordService) Remove(ctx context.Context, e domain.RevisionedEntity, opts ...Option) (bool, error) {
	if e.GetID() == 0 {
		return false, code.ErrorNotFound
	}
	o := buildOptions(s.config.SystemActorName, opts)
	store, schema, err := s.storeFor(e.Kind())
	if err != nil {
		return false, err
	}

	stored, err := store.get(ctx, e.GetID(), domain.ReadAuthoritative)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, code.ErrorNotFound
		}
		return false, apperrors.Storage(err)
	}
	if err := store.delete(ctx, stored.GetID()); err != nil {
		return false, apperrors.Storage(err)
	}

	rev, err := s.snapshot(ctx, stored, schema, domain.ActionRemove, true, o)
	if err != nil {
		return true, err
	}
	if err := s.logRecord(ctx, stored, domain.ActionRemove, rev, nil, o); err != nil {
		return true, err
	}

	err = s.runHooks(ctx, &Mutation{
		Action:      domain.ActionRemove,
		Kind:        stored.Kind(),
		Prev:        stored,
		OperationID: o.operationID,
		options:     o,
	})
	return true, err
}

// Undelete 恢复删除的记录
func (s *recordService) Undelete(ctx context.Context, kind domain.EntityKind, id int64, opts ...Option) (bool, error) {
	o := buildOptions(s.config.SystemActorName, opts)
	store, schema, err := s.storeFor(kind)
	if err != nil {
		return false, err
	}

	exists, err := store.exists(ctx, id, domain.ReadAuthoritative)
	if err != nil {
		return false, apperrors.Storage(err)
	}
	if exists {
		return false, code.ErrorConflict.WithDetails(fmt.Sprintf("%s %d still exists", kind, id))
	}

	latest, err := s.revisionRepo.GetLatest(ctx, kind, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, code.ErrorNotFound.WithDetails(fmt.Sprintf("%s %d has no revisions", kind, id))
		}
		return false, apperrors.Storage(err)
	}

	e, err := domain.NewEntity(kind)
	if err != nil {
		return false, code.ErrorUnknownKind.WithDetails(string(kind))
	}
	if err := e.SetFields(latest.Data); err != nil {
		return false, code.ErrorInvalidField.WithDetails(err.Error())
	}
	e.SetID(id)

	if _, err := store.create(ctx, e); err != nil {
		return false, apperrors.Storage(err)
	}
	if err := s.logRecord(ctx, e, domain.ActionUndelete, latest, nil, o); err != nil {
		return true, err
	}

	err = s.runHooks(ctx, &Mutation{
		Action:      domain.ActionUndelete,
		Kind:        kind,
		Next:        e,
		Changed:     schema.Revertible(),
		OperationID: o.operationID,
		options:     o,
	})
	return true, err
}

// RestoreToRevision 恢复到指定版本
func (s *recordService) RestoreToRevision(ctx context.Context, e domain.RevisionedEntity, revisionID int64, fields []string, opts ...Option) (*diff.ChangeSet, error) {
	live, rev, schema, fields, err := s.prepareRevert(ctx, e, revisionID, fields)
	if err != nil {
		return nil, err
	}

	cs := diff.ForRestore(live.Fields(), rev.Data, fields)
	return s.applyChangeSet(ctx, e, live, schema, cs, opts)
}

// UndoRevision 撤销指定版本
func (s *recordService) UndoRevision(ctx context.Context, e domain.RevisionedEntity, revisionID int64, fields []string, opts ...Option) (*diff.ChangeSet, error) {
	live, rev, schema, fields, err := s.prepareRevert(ctx, e, revisionID, fields)
	if err != nil {
		return nil, err
	}

	preceding, err := s.revisionRepo.GetPreceding(ctx, rev.Kind, rev.ObjectID, rev.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, code.ErrorNotFound.WithDetails(fmt.Sprintf("revision %d has no preceding revision", rev.ID))
		}
		return nil, apperrors.Storage(err)
	}

	cs := diff.ForUndo(live.Fields(), rev.Data, preceding.Data, fields)
	return s.applyChangeSet(ctx, e, live, schema, cs, opts)
}

// prepareRevert loads the revision and the authoritative live copy of e
func (s *recordService) prepareRevert(ctx context.Context, e domain.RevisionedEntity, revisionID int64, fields []string) (domain.RevisionedEntity, *domain.Revision, *domain.Schema, []string, error) {
	store, schema, err := s.storeFor(e.Kind())
	if err != nil {
		return nil, nil, nil, nil, err
	}

	rev, err := s.revisionRepo.GetByID(ctx, revisionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, nil, nil, code.ErrorRevisionNotFound
		}
		return nil, nil, nil, nil, apperrors.Storage(err)
	}
	if rev.Kind != e.Kind() || rev.ObjectID != e.GetID() {
		return nil, nil, nil, nil, code.ErrorRevisionMismatch.WithDetails(
			fmt.Sprintf("revision %d belongs to %s %d", rev.ID, rev.Kind, rev.ObjectID))
	}

	live, err := store.get(ctx, e.GetID(), domain.ReadAuthoritative)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, nil, nil, code.ErrorNotFound
		}
		return nil, nil, nil, nil, apperrors.Storage(err)
	}

	if len(fields) == 0 {
		return live, rev, schema, schema.Revertible(), nil
	}
	for _, f := range fields {
		if !schema.IsRevertible(f) {
			return nil, nil, nil, nil, code.ErrorValidation.WithDetails(fmt.Sprintf("field %q is not revertible", f))
		}
	}
	return live, rev, schema, fields, nil
}

// applyChangeSet drops stale references, applies cs to live and saves it
// applyChangeSet 排除失效引用后将变更集应用到当前记录并保存
func (s *recordService) applyChangeSet(ctx context.Context, e, live domain.RevisionedEntity, schema *domain.Schema, cs *diff.ChangeSet, opts []Option) (*diff.ChangeSet, error) {
	if err := s.guardReferences(ctx, schema, cs); err != nil {
		return cs, err
	}
	if err := live.SetFields(cs.Targets()); err != nil {
		return cs, code.ErrorInvalidField.WithDetails(err.Error())
	}
	if _, err := s.Save(ctx, live, opts...); err != nil {
		return cs, err
	}
	if err := copier.Copy(e, live); err != nil {
		return cs, err
	}
	return cs, nil
}

// guardReferences skips reference fields whose target record no longer exists
// guardReferences 跳过引用目标已不存在的字段
func (s *recordService) guardReferences(ctx context.Context, schema *domain.Schema, cs *diff.ChangeSet) error {
	for _, f := range cs.Fields() {
		spec, _ := schema.Spec(f)
		if spec.References == "" {
			continue
		}
		c := cs.Changes[f]
		id, _ := c.To.(int64)
		if c.Remove || id == 0 || diff.Equal(c.From, c.To) {
			continue
		}
		store, ok := s.stores[spec.References]
		if !ok {
			continue
		}
		exists, err := store.exists(ctx, id, domain.ReadAuthoritative)
		if err != nil {
			return apperrors.Storage(err)
		}
		if !exists {
			cs.Skip(f, diff.SkipStaleReference)
			s.logger.Info("stale reference skipped",
				zap.String(logger.FieldMethod, "recordService.guardReferences"),
				zap.String(logger.FieldKind, string(schema.Kind)),
				zap.String("field", f),
				zap.Int64("reference", id))
		}
	}
	return nil
}

// snapshot writes the revertible fields of e as a new revision
// snapshot 将 e 的可撤销字段写入新的修订快照
func (s *recordService) snapshot(ctx context.Context, e domain.RevisionedEntity, schema *domain.Schema, action string, deleted bool, o *writeOptions) (*domain.Revision, error) {
	rev, err := s.revisionRepo.Create(ctx, &domain.Revision{
		Kind:             e.Kind(),
		ObjectID:         e.GetID(),
		ObjectIdentifier: e.Identifier(),
		ActorID:          o.actorID,
		ActorName:        o.actorName,
		Comment:          o.comment,
		Minor:            o.minor,
		Deleted:          deleted,
		Data:             e.Fields().Only(schema.Revertible()),
		CreatedAt:        time.Now(),
	})
	if err != nil {
		return nil, apperrors.Storage(err)
	}
	s.metrics.RevisionsWritten.WithLabelValues(string(e.Kind()), action).Inc()
	return rev, nil
}

func (s *recordService) logRecord(ctx context.Context, e domain.RevisionedEntity, action string, rev *domain.Revision, changed []string, o *writeOptions) error {
	if o.noLog {
		return nil
	}
	params := map[string]any{"identifier": e.Identifier()}
	if rev != nil {
		params["revision_id"] = rev.ID
	}
	if len(changed) > 0 {
		params["fields"] = changed
	}
	err := s.events.LogEvent(ctx, &domain.LogEvent{
		OperationID: o.operationID,
		Type:        string(e.Kind()),
		Subtype:     action,
		ActorID:     o.actorID,
		ActorName:   o.actorName,
		Comment:     o.comment,
		Target:      domain.TargetRef(e.Kind(), e.GetID()),
		Params:      params,
	})
	return apperrors.Storage(err)
}

func (s *recordService) runHooks(ctx context.Context, m *Mutation) error {
	s.mu.RLock()
	hooks := append([]Hook(nil), s.hooks[m.Kind]...)
	s.mu.RUnlock()

	for _, hook := range hooks {
		if err := hook(ctx, m); err != nil {
			return err
		}
	}
	return nil
}

// cloneEntity copies a record, id lists are rebuilt so the copy shares no slices
// cloneEntity 复制记录，ID 列表重新生成，不与原记录共享切片
func cloneEntity(e domain.RevisionedEntity) (domain.RevisionedEntity, error) {
	out, err := domain.NewEntity(e.Kind())
	if err != nil {
		return nil, err
	}
	if err := copier.Copy(out, e); err != nil {
		return nil, err
	}
	if err := out.SetFields(e.Fields()); err != nil {
		return nil, err
	}
	return out, nil
}

// institutionStore adapts domain.InstitutionRepository
type institutionStore struct {
	repo domain.InstitutionRepository
}

func (s *institutionStore) get(ctx context.Context, id int64, target domain.ReadTarget) (domain.RevisionedEntity, error) {
	in, err := s.repo.GetByID(ctx, id, target)
	if err != nil {
		return nil, err
	}
	return in, nil
}

func (s *institutionStore) exists(ctx context.Context, id int64, target domain.ReadTarget) (bool, error) {
	return s.repo.Exists(ctx, id, target)
}

func (s *institutionStore) create(ctx context.Context, e domain.RevisionedEntity) (int64, error) {
	in, ok := e.(*domain.Institution)
	if !ok {
		return 0, fmt.Errorf("expected *domain.Institution, got %T", e)
	}
	created, err := s.repo.Create(ctx, in)
	if err != nil {
		return 0, err
	}
	in.CreatedAt, in.UpdatedAt = created.CreatedAt, created.UpdatedAt
	return created.ID, nil
}

func (s *institutionStore) update(ctx context.Context, e domain.RevisionedEntity) error {
	in, ok := e.(*domain.Institution)
	if !ok {
		return fmt.Errorf("expected *domain.Institution, got %T", e)
	}
	return s.repo.Update(ctx, in)
}

func (s *institutionStore) delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}

// courseStore adapts domain.CourseRepository
type courseStore struct {
	repo domain.CourseRepository
}

func (s *courseStore) get(ctx context.Context, id int64, target domain.ReadTarget) (domain.RevisionedEntity, error) {
	c, err := s.repo.GetByID(ctx, id, target)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (s *courseStore) exists(ctx context.Context, id int64, target domain.ReadTarget) (bool, error) {
	return s.repo.Exists(ctx, id, target)
}

func (s *courseStore) create(ctx context.Context, e domain.RevisionedEntity) (int64, error) {
	c, ok := e.(*domain.Course)
	if !ok {
		return 0, fmt.Errorf("expected *domain.Course, got %T", e)
	}
	created, err := s.repo.Create(ctx, c)
	if err != nil {
		return 0, err
	}
	c.CreatedAt, c.UpdatedAt = created.CreatedAt, created.UpdatedAt
	return created.ID, nil
}

func (s *courseStore) update(ctx context.Context, e domain.RevisionedEntity) error {
	c, ok := e.(*domain.Course)
	if !ok {
		return fmt.Errorf("expected *domain.Course, got %T", e)
	}
	return s.repo.Update(ctx, c)
}

func (s *courseStore) delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}
