package domain

import "fmt"

// EntityKind 记录类型标签
type EntityKind string

const (
	KindInstitution EntityKind = "institution"
	KindCourse      EntityKind = "course"
)

// ReadTarget selects the connection a read goes to
// ReadTarget 读取使用的连接
type ReadTarget int

const (
	// ReadReplica may be served by a lagging replica // 可能落后的从库
	ReadReplica ReadTarget = iota
	// ReadAuthoritative always reads the primary // 始终读取主库
	ReadAuthoritative
)

func (t ReadTarget) String() string {
	if t == ReadAuthoritative {
		return "authoritative"
	}
	return "replica"
}

// RevisionedEntity is a record with full version history
// RevisionedEntity 带完整版本历史的记录
type RevisionedEntity interface {
	Kind() EntityKind
	GetID() int64
	SetID(id int64)
	// Identifier textual name stored on revisions // 保存在修订版本上的文本标识
	Identifier() string
	// Fields returns every declared field in canonical form // 返回所有声明字段的规范值
	Fields() Fields
	// SetFields applies the given fields, keys not present are untouched
	// nil values reset the field to its zero value
	// SetFields 应用给定字段，未出现的字段保持不变，nil 重置为零值
	SetFields(f Fields) error
	// Parent returns the parent reference, zero id when the record has none
	// Parent 返回父记录引用，无父记录时 id 为 0
	Parent() (EntityKind, int64)
}

// SchemaFor returns the field declarations of kind
// SchemaFor 返回记录类型的字段声明
func SchemaFor(kind EntityKind) (*Schema, error) {
	switch kind {
	case KindInstitution:
		return InstitutionSchema, nil
	case KindCourse:
		return CourseSchema, nil
	}
	return nil, fmt.Errorf("unknown entity kind %q", kind)
}

// NewEntity returns an empty record of kind
func NewEntity(kind EntityKind) (RevisionedEntity, error) {
	switch kind {
	case KindInstitution:
		return &Institution{}, nil
	case KindCourse:
		return &Course{}, nil
	}
	return nil, fmt.Errorf("unknown entity kind %q", kind)
}

// TargetRef builds the audit log target of a record
// TargetRef 生成审计日志的目标引用
func TargetRef(kind EntityKind, id int64) string {
	return fmt.Sprintf("%s:%d", kind, id)
}
