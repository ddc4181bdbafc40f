package service

import (
	"github.com/google/uuid"
)

// Option scopes one write call
// Option 作用于单次写操作的选项
type Option func(*writeOptions)

type writeOptions struct {
	actorID     int64
	actorName   string
	comment     string
	minor       bool
	noLog       bool
	summaryMode bool
	operationID string
}

// WithActor sets the user the revision and log entry are attributed to
// WithActor 设置修订与日志的操作者
func WithActor(id int64, name string) Option {
	return func(o *writeOptions) {
		o.actorID = id
		o.actorName = name
	}
}

// WithComment 设置修订备注
func WithComment(comment string) Option {
	return func(o *writeOptions) { o.comment = comment }
}

// WithMinor marks the revision as a minor edit
// WithMinor 标记为小修改
func WithMinor() Option {
	return func(o *writeOptions) { o.minor = true }
}

// WithoutLogging suppresses the generic audit log entry, snapshots are still written
// WithoutLogging 不写通用审计日志，快照仍然写入
func WithoutLogging() Option {
	return func(o *writeOptions) { o.noLog = true }
}

// WithSummaryMode compares and persists summary fields only, no snapshot, no log, no cascade
// WithSummaryMode 只比较并持久化统计字段，不写快照、日志，不触发级联
func WithSummaryMode() Option {
	return func(o *writeOptions) { o.summaryMode = true }
}

// WithOperationID correlates the write with an enclosing operation
// WithOperationID 关联到外层操作
func WithOperationID(id string) Option {
	return func(o *writeOptions) { o.operationID = id }
}

func buildOptions(systemActor string, opts []Option) *writeOptions {
	o := &writeOptions{}
	for _, opt := range opts {
		opt(o)
	}
	if o.actorName == "" && o.actorID == 0 {
		o.actorName = systemActor
	}
	if o.operationID == "" {
		o.operationID = uuid.NewString()
	}
	return o
}

// forward keeps the actor, comment and operation of o for a nested write
func (o *writeOptions) forward(extra ...Option) []Option {
	out := []Option{
		WithActor(o.actorID, o.actorName),
		WithComment(o.comment),
		WithOperationID(o.operationID),
	}
	if o.minor {
		out = append(out, WithMinor())
	}
	return append(out, extra...)
}
