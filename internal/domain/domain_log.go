package domain

import (
	"context"
	"time"
)

// Enlist log subtypes
// 加入/移出课程日志子类型
const (
	SubtypeAdd        = "add"
	SubtypeRemove     = "remove"
	SubtypeSelfAdd    = "self-add"
	SubtypeSelfRemove = "self-remove"
)

// LogEvent 审计日志事件
type LogEvent struct {
	ID int64
	// OperationID correlates the revision, log entry and cascade warnings of one mutation
	// OperationID 关联同一次变更的修订、日志与级联告警
	OperationID string
	// Type record kind for record actions, role for enlist entries
	// Type 记录动作为记录类型，加入课程为角色
	Type      string
	Subtype   string
	ActorID   int64
	ActorName string
	Comment   string
	// Target "kind:id" reference // 目标引用
	Target    string
	Params    map[string]any
	CreatedAt time.Time
}

// EventLogger audit log sink
// EventLogger 审计日志输出
type EventLogger interface {
	LogEvent(ctx context.Context, ev *LogEvent) error
}
