// Package domain 定义领域模型和接口
package domain

import (
	"fmt"
	"reflect"
	"sort"
	"time"

	"github.com/haierkeys/edu-program-service/pkg/timex"
)

// Fields is a field name to canonical value map
// Canonical values: string, int64, bool, stamp string (FieldTime), sorted []int64 (FieldIDList)
// Fields 字段名到规范值的映射
type Fields map[string]any

// Clone returns a deep copy
// Clone 返回深拷贝
func (f Fields) Clone() Fields {
	if f == nil {
		return nil
	}
	out := make(Fields, len(f))
	for k, v := range f {
		if ids, ok := v.([]int64); ok {
			v = append([]int64{}, ids...)
		}
		out[k] = v
	}
	return out
}

// Only returns the subset of fields named in names, absent keys stay absent
// Only 返回指定字段名的子集
func (f Fields) Only(names []string) Fields {
	out := make(Fields, len(names))
	for _, n := range names {
		if v, ok := f[n]; ok {
			out[n] = v
		}
	}
	return out
}

// FieldType 字段类型
type FieldType int

const (
	FieldString FieldType = iota
	FieldInt
	FieldBool
	FieldTime
	FieldIDList
)

// FieldSpec declares one field of an entity kind
// FieldSpec 声明记录类型的一个字段
type FieldSpec struct {
	Name string
	Type FieldType
	// Summary marks denormalized counters: never snapshotted, never revertible
	// Summary 标记反规范化统计字段：不进入快照，不可撤销
	Summary bool
	// References names the kind a foreign key field points at
	// References 外键字段指向的记录类型
	References EntityKind
}

// Schema is the declared field set of one entity kind
// Schema 某一记录类型声明的字段集合
type Schema struct {
	Kind   EntityKind
	Fields []FieldSpec
}

// Spec returns the declaration of a field
func (s *Schema) Spec(name string) (FieldSpec, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldSpec{}, false
}

// Revertible returns the RevertibleFieldSet of the kind in declaration order
// Revertible 返回可撤销字段集合（按声明顺序）
func (s *Schema) Revertible() []string {
	var names []string
	for _, f := range s.Fields {
		if !f.Summary {
			names = append(names, f.Name)
		}
	}
	return names
}

// Summary returns the summary counter fields
// Summary 返回统计字段
func (s *Schema) Summary() []string {
	var names []string
	for _, f := range s.Fields {
		if f.Summary {
			names = append(names, f.Name)
		}
	}
	return names
}

// IsRevertible reports whether name belongs to the RevertibleFieldSet
func (s *Schema) IsRevertible(name string) bool {
	spec, ok := s.Spec(name)
	return ok && !spec.Summary
}

// Zero returns the canonical zero value of a field
// Zero 返回字段的规范零值
func (s *Schema) Zero(name string) any {
	spec, ok := s.Spec(name)
	if !ok {
		return nil
	}
	v, _ := normalizeValue(spec.Type, nil)
	return v
}

// Normalize converts every value to its canonical form and rejects undeclared fields
// nil values become the zero value of the field
// Normalize 将每个值转换为规范形式并拒绝未声明字段，nil 转为零值
func (s *Schema) Normalize(in Fields) (Fields, error) {
	out := make(Fields, len(in))
	for name, v := range in {
		spec, ok := s.Spec(name)
		if !ok {
			return nil, fmt.Errorf("%s: undeclared field %q", s.Kind, name)
		}
		nv, err := normalizeValue(spec.Type, v)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", s.Kind, name, err)
		}
		out[name] = nv
	}
	return out, nil
}

// Differs returns the names among fields whose canonical values differ between a and b
// A key absent on one side compares as that field's zero value
// Differs 返回 a 与 b 之间规范值不同的字段名，缺失字段视为零值
func (s *Schema) Differs(a, b Fields, fields []string) []string {
	var changed []string
	for _, name := range fields {
		av, aok := a[name]
		bv, bok := b[name]
		if !aok {
			av = s.Zero(name)
		}
		if !bok {
			bv = s.Zero(name)
		}
		if !EqualValues(av, bv) {
			changed = append(changed, name)
		}
	}
	return changed
}

// EqualValues compares two canonical values
// EqualValues 比较两个规范值
func EqualValues(a, b any) bool {
	return reflect.DeepEqual(a, b)
}

func normalizeValue(t FieldType, v any) (any, error) {
	switch t {
	case FieldString:
		switch x := v.(type) {
		case nil:
			return "", nil
		case string:
			return x, nil
		}
	case FieldInt:
		switch x := v.(type) {
		case nil:
			return int64(0), nil
		case int64:
			return x, nil
		case int:
			return int64(x), nil
		case int32:
			return int64(x), nil
		case uint64:
			return int64(x), nil
		case float64:
			if x == float64(int64(x)) {
				return int64(x), nil
			}
		}
	case FieldBool:
		switch x := v.(type) {
		case nil:
			return false, nil
		case bool:
			return x, nil
		}
	case FieldTime:
		switch x := v.(type) {
		case nil:
			return "", nil
		case time.Time:
			return timex.FormatStamp(x), nil
		case string:
			if _, err := timex.ParseStamp(x); err != nil {
				return nil, err
			}
			return x, nil
		}
	case FieldIDList:
		switch x := v.(type) {
		case nil:
			return []int64{}, nil
		case []int64:
			return NormalizeIDs(x), nil
		case []int:
			ids := make([]int64, 0, len(x))
			for _, id := range x {
				ids = append(ids, int64(id))
			}
			return NormalizeIDs(ids), nil
		case []any:
			ids := make([]int64, 0, len(x))
			for _, item := range x {
				id, err := normalizeValue(FieldInt, item)
				if err != nil {
					return nil, err
				}
				ids = append(ids, id.(int64))
			}
			return NormalizeIDs(ids), nil
		}
	}
	return nil, fmt.Errorf("unexpected value %v (%T)", v, v)
}

// NormalizeIDs sorts and de-duplicates an id list, never returns nil
// NormalizeIDs 排序并去重 ID 列表，不返回 nil
func NormalizeIDs(ids []int64) []int64 {
	out := make([]int64, 0, len(ids))
	seen := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
