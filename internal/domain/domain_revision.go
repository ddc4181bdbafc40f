package domain

import "time"

// Revision action tags
// 修订动作
const (
	ActionAdd      = "add"
	ActionUpdate   = "update"
	ActionRemove   = "remove"
	ActionUndelete = "undelete"
)

// Revision 修订快照领域模型，写入后不可修改
type Revision struct {
	ID int64
	// Kind record type tag // 记录类型
	Kind EntityKind
	// ObjectID zero when the record had no id // 记录无 ID 时为 0
	ObjectID int64
	// ObjectIdentifier textual name at snapshot time // 快照时的文本标识
	ObjectIdentifier string
	ActorID          int64
	ActorName        string
	Comment          string
	Minor            bool
	// Deleted marks the snapshot written on removal // 删除时写入的快照
	Deleted bool
	// Data full copy of the revertible fields // 可撤销字段的完整副本
	Data      Fields
	CreatedAt time.Time
}
