// Package diff computes and applies field-level change sets between record states
// Package diff 计算并应用记录状态之间的字段级变更集
package diff

import (
	"reflect"
	"sort"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// SkipReason explains why a field was left out of a change set
// SkipReason 字段被排除出变更集的原因
type SkipReason string

const (
	// SkipConflict the live value was edited again after the undone revision
	// SkipConflict 被撤销版本之后该字段又被修改
	SkipConflict SkipReason = "conflict"
	// SkipStaleReference the target value references a record that no longer exists
	// SkipStaleReference 目标值引用的记录已不存在
	SkipStaleReference SkipReason = "stale-reference"
)

// Change is the transition of one field
// Change 单个字段的变化
type Change struct {
	From any `json:"from"`
	To   any `json:"to"`
	// Remove resets the field to its default value // 将字段重置为默认值
	Remove bool `json:"remove,omitempty"`
}

// ChangeSet maps field names to their transition plus the fields skipped with reasons
// ChangeSet 字段名到变化的映射，以及被跳过的字段及原因
type ChangeSet struct {
	Changes map[string]Change     `json:"changes"`
	Skipped map[string]SkipReason `json:"skipped,omitempty"`
}

// New creates an empty change set
// New 创建空变更集
func New() *ChangeSet {
	return &ChangeSet{
		Changes: map[string]Change{},
		Skipped: map[string]SkipReason{},
	}
}

// Set schedules field to move from one value to another
func (cs *ChangeSet) Set(field string, from, to any) {
	delete(cs.Skipped, field)
	cs.Changes[field] = Change{From: from, To: to}
}

// MarkRemove schedules field for removal
func (cs *ChangeSet) MarkRemove(field string, from any) {
	delete(cs.Skipped, field)
	cs.Changes[field] = Change{From: from, Remove: true}
}

// Skip excludes field from the change set
// Skip 将字段从变更集中排除
func (cs *ChangeSet) Skip(field string, reason SkipReason) {
	delete(cs.Changes, field)
	cs.Skipped[field] = reason
}

// Fields returns the scheduled field names in sorted order
// Fields 返回已计划变更的字段名（有序）
func (cs *ChangeSet) Fields() []string {
	return sortedKeys(cs.Changes)
}

// SkippedFields returns the skipped field names in sorted order
func (cs *ChangeSet) SkippedFields() []string {
	return sortedKeys(cs.Skipped)
}

// Len number of scheduled fields
func (cs *ChangeSet) Len() int {
	return len(cs.Changes)
}

// Effective returns the scheduled fields whose value actually changes
// Effective 返回实际会改变值的字段
func (cs *ChangeSet) Effective() []string {
	var out []string
	for _, f := range cs.Fields() {
		c := cs.Changes[f]
		if c.Remove || !Equal(c.From, c.To) {
			out = append(out, f)
		}
	}
	return out
}

// IsEmpty reports whether nothing is scheduled
func (cs *ChangeSet) IsEmpty() bool {
	return len(cs.Changes) == 0
}

// IsValid reports whether the change set is well formed
// An empty change set is valid: nothing to do is a success
// IsValid 变更集是否合法，空变更集同样合法
func (cs *ChangeSet) IsValid() bool {
	if cs == nil || cs.Changes == nil {
		return false
	}
	for f := range cs.Skipped {
		if _, ok := cs.Changes[f]; ok {
			return false
		}
	}
	return true
}

// Targets returns field to target value, nil for removals
// Targets 返回字段到目标值的映射，删除的字段为 nil
func (cs *ChangeSet) Targets() map[string]any {
	out := make(map[string]any, len(cs.Changes))
	for f, c := range cs.Changes {
		if c.Remove {
			out[f] = nil
			continue
		}
		out[f] = c.To
	}
	return out
}

// Equal compares two canonical field values
// Equal 比较两个规范字段值
func Equal(a, b any) bool {
	return reflect.DeepEqual(a, b)
}

// Compute returns a change set holding the fields whose values differ between from and to
// A field present on one side only is a removal (absent in to) or a set (absent in from)
// Compute 返回 from 与 to 之间值不同的字段组成的变更集
func Compute(from, to map[string]any, fields []string) *ChangeSet {
	cs := New()
	for _, f := range fields {
		fv, fok := from[f]
		tv, tok := to[f]
		switch {
		case !fok && !tok:
		case !tok:
			cs.MarkRemove(f, fv)
		case !fok || !Equal(fv, tv):
			cs.Set(f, fv, tv)
		}
	}
	return cs
}

// ForRestore schedules every field of the snapshot over the live state
// Live fields missing from the snapshot are scheduled for removal
// ForRestore 以快照值覆盖当前值，快照中缺失的当前字段将被删除
func ForRestore(live, snapshot map[string]any, fields []string) *ChangeSet {
	cs := New()
	for _, f := range fields {
		sv, sok := snapshot[f]
		lv, lok := live[f]
		switch {
		case sok:
			cs.Set(f, lv, sv)
		case lok:
			cs.MarkRemove(f, lv)
		}
	}
	return cs
}

// ForUndo reverts the fields a revision changed, relative to its preceding revision
// A field whose live value no longer equals the revision value is skipped as a conflict
// ForUndo 撤销某版本相对前一版本修改的字段，当前值与该版本值不一致的字段作为冲突跳过
func ForUndo(live, target, preceding map[string]any, fields []string) *ChangeSet {
	cs := New()
	for _, f := range fields {
		tv, tok := target[f]
		pv, pok := preceding[f]
		if tok == pok && Equal(tv, pv) {
			continue
		}
		lv, lok := live[f]
		if lok != tok || !Equal(lv, tv) {
			cs.Skip(f, SkipConflict)
			continue
		}
		if pok {
			cs.Set(f, lv, pv)
		} else {
			cs.MarkRemove(f, lv)
		}
	}
	return cs
}

// Apply returns a copy of state with the change set applied
// Removed fields are deleted from the copy
// Apply 返回应用变更集后的副本，被删除的字段从副本中移除
func Apply(state map[string]any, cs *ChangeSet) map[string]any {
	out := make(map[string]any, len(state))
	for k, v := range state {
		out[k] = v
	}
	for f, c := range cs.Changes {
		if c.Remove {
			delete(out, f)
			continue
		}
		out[f] = c.To
	}
	return out
}

// TextPatch renders the difference between two strings as a unified patch
// TextPatch 以补丁文本形式输出两个字符串的差异
func TextPatch(from, to string) string {
	if from == to {
		return ""
	}
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(from, to, false)
	diffs = dmp.DiffCleanupSemantic(diffs)
	return dmp.PatchToText(dmp.PatchMake(from, diffs))
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
