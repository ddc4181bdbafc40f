package dao

import (
	"context"
	"time"

	"github.com/bytedance/sonic"
	"github.com/haierkeys/edu-program-service/internal/domain"
	"github.com/haierkeys/edu-program-service/internal/model"
	"github.com/haierkeys/edu-program-service/pkg/timex"
	"gorm.io/gorm"
)

// blobAPI decodes numbers as int64 so id lists and counters round-trip exactly
// blobAPI 数字解码为 int64，保证 ID 列表与计数精确往返
var blobAPI = sonic.Config{UseInt64: true, SortMapKeys: true}.Froze()

// revisionRepository 实现 domain.RevisionRepository 接口，只追加
type revisionRepository struct {
	dao *Dao
}

// NewRevisionRepository 创建 RevisionRepository 实例
func NewRevisionRepository(dao *Dao) domain.RevisionRepository {
	return &revisionRepository{dao: dao}
}

var _ domain.RevisionRepository = (*revisionRepository)(nil)

const keyRevision = "Revision"

// EncodeFields serializes a field map into the revision blob
// EncodeFields 将字段映射序列化为修订快照数据
func EncodeFields(f domain.Fields) (string, error) {
	if f == nil {
		f = domain.Fields{}
	}
	return blobAPI.MarshalToString(map[string]any(f))
}

// DecodeFields parses a revision blob into canonical values
// Fields no longer declared by the kind are dropped
// DecodeFields 解析修订快照数据为规范值，已不再声明的字段被丢弃
func DecodeFields(kind domain.EntityKind, blob string) (domain.Fields, error) {
	schema, err := domain.SchemaFor(kind)
	if err != nil {
		return nil, err
	}
	raw := map[string]any{}
	if blob != "" {
		if err := blobAPI.UnmarshalFromString(blob, &raw); err != nil {
			return nil, err
		}
	}
	declared := domain.Fields{}
	for name, v := range raw {
		if _, ok := schema.Spec(name); ok {
			declared[name] = v
		}
	}
	return schema.Normalize(declared)
}

func (r *revisionRepository) toDomain(m *model.Revision) (*domain.Revision, error) {
	kind := domain.EntityKind(m.Type)
	data, err := DecodeFields(kind, m.Data)
	if err != nil {
		return nil, err
	}
	rev := &domain.Revision{
		ID:        m.ID,
		Kind:      kind,
		ActorID:   m.ActorID,
		ActorName: m.ActorName,
		Comment:   m.Comment,
		Minor:     m.Minor,
		Deleted:   m.Deleted,
		Data:      data,
		CreatedAt: time.Time(m.CreatedAt),
	}
	if m.ObjectID != nil {
		rev.ObjectID = *m.ObjectID
	}
	if m.ObjectIdentifier != nil {
		rev.ObjectIdentifier = *m.ObjectIdentifier
	}
	return rev, nil
}

// Create 写入快照
func (r *revisionRepository) Create(ctx context.Context, revision *domain.Revision) (*domain.Revision, error) {
	blob, err := EncodeFields(revision.Data)
	if err != nil {
		return nil, err
	}
	m := &model.Revision{
		Type:      string(revision.Kind),
		ActorID:   revision.ActorID,
		ActorName: revision.ActorName,
		Comment:   revision.Comment,
		Minor:     revision.Minor,
		Deleted:   revision.Deleted,
		Data:      blob,
		CreatedAt: timex.Time(revision.CreatedAt),
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = timex.Now()
	}
	if revision.ObjectID != 0 {
		id := revision.ObjectID
		m.ObjectID = &id
	}
	if revision.ObjectIdentifier != "" {
		identifier := revision.ObjectIdentifier
		m.ObjectIdentifier = &identifier
	}

	err = r.dao.ExecuteWrite(ctx, keyRevision, func(db *gorm.DB) error {
		return db.Create(m).Error
	})
	if err != nil {
		return nil, err
	}
	return r.toDomain(m)
}

// GetByID 根据ID获取快照
func (r *revisionRepository) GetByID(ctx context.Context, id int64) (*domain.Revision, error) {
	var m model.Revision
	if err := r.dao.Reader(ctx, keyRevision, domain.ReadAuthoritative).Where("id = ?", id).First(&m).Error; err != nil {
		return nil, err
	}
	return r.toDomain(&m)
}

// GetLatest 获取记录的最新快照
func (r *revisionRepository) GetLatest(ctx context.Context, kind domain.EntityKind, objectID int64) (*domain.Revision, error) {
	var m model.Revision
	err := r.dao.Reader(ctx, keyRevision, domain.ReadAuthoritative).
		Where("type = ? AND object_id = ?", string(kind), objectID).
		Order("id DESC").
		First(&m).Error
	if err != nil {
		return nil, err
	}
	return r.toDomain(&m)
}

// GetPreceding 获取 ID 小于 beforeID 的最近快照
func (r *revisionRepository) GetPreceding(ctx context.Context, kind domain.EntityKind, objectID, beforeID int64) (*domain.Revision, error) {
	var m model.Revision
	err := r.dao.Reader(ctx, keyRevision, domain.ReadAuthoritative).
		Where("type = ? AND object_id = ? AND id < ?", string(kind), objectID, beforeID).
		Order("id DESC").
		First(&m).Error
	if err != nil {
		return nil, err
	}
	return r.toDomain(&m)
}

// ListByObject 分页获取记录的快照（按 ID 倒序）
func (r *revisionRepository) ListByObject(ctx context.Context, kind domain.EntityKind, objectID int64, page, pageSize int) ([]*domain.Revision, error) {
	var list []*model.Revision
	err := r.dao.Reader(ctx, keyRevision, domain.ReadReplica).
		Where("type = ? AND object_id = ?", string(kind), objectID).
		Order("id DESC").
		Limit(pageSize).
		Offset(pageOffset(page, pageSize)).
		Find(&list).Error
	if err != nil {
		return nil, err
	}
	results := make([]*domain.Revision, 0, len(list))
	for _, m := range list {
		rev, err := r.toDomain(m)
		if err != nil {
			return nil, err
		}
		results = append(results, rev)
	}
	return results, nil
}

// CountByObject 获取记录的快照数量
func (r *revisionRepository) CountByObject(ctx context.Context, kind domain.EntityKind, objectID int64) (int64, error) {
	var count int64
	err := r.dao.Reader(ctx, keyRevision, domain.ReadReplica).Model(&model.Revision{}).
		Where("type = ? AND object_id = ?", string(kind), objectID).
		Count(&count).Error
	return count, err
}

func pageOffset(page, pageSize int) int {
	if page < 1 {
		return 0
	}
	return (page - 1) * pageSize
}
