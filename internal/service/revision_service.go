package service

import (
	"context"
	"errors"

	"github.com/haierkeys/edu-program-service/internal/domain"
	"github.com/haierkeys/edu-program-service/pkg/code"
	"github.com/haierkeys/edu-program-service/pkg/diff"
	apperrors "github.com/haierkeys/edu-program-service/pkg/errors"
	"gorm.io/gorm"
)

// RevisionPage one page of a record's revisions, newest first
// RevisionPage 记录修订的一页（最新在前）
type RevisionPage struct {
	Items    []*domain.Revision
	Total    int64
	Page     int
	PageSize int
}

// FieldChange one field of a revision comparison
// FieldChange 修订对比中的一个字段
type FieldChange struct {
	Field   string
	From    any
	To      any
	Removed bool
	// Patch text diff, set for string fields only // 文本差异，仅字符串字段
	Patch string
}

// RevisionComparison changes a revision made relative to the preceding one
// RevisionComparison 修订相对前一版本的变更
type RevisionComparison struct {
	Revision  *domain.Revision
	Preceding *domain.Revision
	Changes   []FieldChange
}

// RevisionService defines the revision history read service interface
// RevisionService 定义修订历史查询服务接口
type RevisionService interface {
	// List 分页获取记录的修订
	List(ctx context.Context, kind domain.EntityKind, objectID int64, page, pageSize int) (*RevisionPage, error)

	// Get 获取单个修订
	Get(ctx context.Context, revisionID int64) (*domain.Revision, error)

	// Compare returns the field changes of a revision, the first revision compares against an empty record
	// Compare 返回修订修改的字段，第一个修订与空记录比较
	Compare(ctx context.Context, revisionID int64) (*RevisionComparison, error)
}

type revisionService struct {
	repo   domain.RevisionRepository
	config *RecordServiceConfig
}

// NewRevisionService creates RevisionService instance
// NewRevisionService 创建 RevisionService 实例
func NewRevisionService(repo domain.RevisionRepository, config *RecordServiceConfig) RevisionService {
	if config == nil {
		config = &DefaultServiceConfig().Record
	}
	return &revisionService{repo: repo, config: config}
}

func (s *revisionService) List(ctx context.Context, kind domain.EntityKind, objectID int64, page, pageSize int) (*RevisionPage, error) {
	if _, err := domain.SchemaFor(kind); err != nil {
		return nil, code.ErrorUnknownKind.WithDetails(string(kind))
	}
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = s.config.HistoryPageSize
	}

	items, err := s.repo.ListByObject(ctx, kind, objectID, page, pageSize)
	if err != nil {
		return nil, apperrors.Storage(err)
	}
	total, err := s.repo.CountByObject(ctx, kind, objectID)
	if err != nil {
		return nil, apperrors.Storage(err)
	}
	return &RevisionPage{Items: items, Total: total, Page: page, PageSize: pageSize}, nil
}

func (s *revisionService) Get(ctx context.Context, revisionID int64) (*domain.Revision, error) {
	rev, err := s.repo.GetByID(ctx, revisionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, code.ErrorRevisionNotFound
		}
		return nil, apperrors.Storage(err)
	}
	return rev, nil
}

func (s *revisionService) Compare(ctx context.Context, revisionID int64) (*RevisionComparison, error) {
	rev, err := s.Get(ctx, revisionID)
	if err != nil {
		return nil, err
	}
	schema, err := domain.SchemaFor(rev.Kind)
	if err != nil {
		return nil, code.ErrorUnknownKind.WithDetails(string(rev.Kind))
	}

	out := &RevisionComparison{Revision: rev}
	var before domain.Fields
	preceding, err := s.repo.GetPreceding(ctx, rev.Kind, rev.ObjectID, rev.ID)
	switch {
	case err == nil:
		out.Preceding = preceding
		before = preceding.Data
	case errors.Is(err, gorm.ErrRecordNotFound):
		before = domain.Fields{}
	default:
		return nil, apperrors.Storage(err)
	}

	cs := diff.Compute(before, rev.Data, schema.Revertible())
	for _, f := range cs.Fields() {
		c := cs.Changes[f]
		fc := FieldChange{Field: f, From: c.From, To: c.To, Removed: c.Remove}
		if spec, _ := schema.Spec(f); spec.Type == domain.FieldString {
			from, _ := c.From.(string)
			to, _ := c.To.(string)
			fc.Patch = diff.TextPatch(from, to)
		}
		out.Changes = append(out.Changes, fc)
	}
	return out, nil
}
