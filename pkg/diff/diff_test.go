package diff

import (
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
)

var testFields = []string{"description", "title", "token"}

func toState(values []string) map[string]any {
	state := map[string]any{}
	for i, f := range testFields {
		if i < len(values) {
			state[f] = values[i]
		}
	}
	return state
}

// 恢复到同一快照两次，结果状态一致且第二次没有实际变化
func TestProperty_RestoreIsIdempotent(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("restore twice yields the same state", prop.ForAll(
		func(live, snapshot []string) bool {
			liveState := toState(live)
			snapState := toState(snapshot)

			first := Apply(liveState, ForRestore(liveState, snapState, testFields))
			second := ForRestore(first, snapState, testFields)
			again := Apply(first, second)

			return Equal(first, again) && len(second.Effective()) == 0
		},
		gen.SliceOfN(3, gen.AlphaString()),
		gen.SliceOfN(2, gen.AlphaString()),
	))

	properties.Property("restore reaches the snapshot state", prop.ForAll(
		func(live, snapshot []string) bool {
			liveState := toState(live)
			snapState := toState(snapshot)
			return Equal(Apply(liveState, ForRestore(liveState, snapState, testFields)), snapState)
		},
		gen.SliceOfN(3, gen.AlphaString()),
		gen.SliceOfN(3, gen.AlphaString()),
	))

	properties.TestingRun(t)
}

// 撤销时，之后被再次修改的字段必须作为冲突跳过
func TestProperty_UndoSkipsConflicts(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("undo of an overwritten revision is skipped", prop.ForAll(
		func(a, b, c string) bool {
			a, b, c = "a"+a, "b"+b, "c"+c
			s0 := map[string]any{"title": a}
			s1 := map[string]any{"title": b}
			live := map[string]any{"title": c}

			cs := ForUndo(live, s1, s0, testFields)
			return cs.IsValid() && cs.IsEmpty() && cs.Skipped["title"] == SkipConflict &&
				Apply(live, cs)["title"] == c
		},
		gen.AlphaString(), gen.AlphaString(), gen.AlphaString(),
	))

	properties.Property("undo of the live revision reverts to the preceding value", prop.ForAll(
		func(b, c string) bool {
			b, c = "b"+b, "c"+c
			s1 := map[string]any{"title": b}
			s2 := map[string]any{"title": c}

			cs := ForUndo(s2, s2, s1, testFields)
			return len(cs.Skipped) == 0 && Apply(s2, cs)["title"] == b
		},
		gen.AlphaString(), gen.AlphaString(),
	))

	properties.TestingRun(t)
}

func TestProperty_ComputeThenApply(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("applying the computed change set reaches the target", prop.ForAll(
		func(from, to []string) bool {
			fromState := toState(from)
			toStateMap := toState(to)
			return Equal(Apply(fromState, Compute(fromState, toStateMap, testFields)), toStateMap)
		},
		gen.SliceOf(gen.AlphaString()),
		gen.SliceOf(gen.AlphaString()),
	))

	properties.TestingRun(t)
}

func TestForUndo_PartialSuccess(t *testing.T) {
	preceding := map[string]any{"title": "Old", "description": "first", "token": "t1"}
	target := map[string]any{"title": "New", "description": "second", "token": "t1"}
	live := map[string]any{"title": "New", "description": "edited later", "token": "t1"}

	cs := ForUndo(live, target, preceding, testFields)

	assert.True(t, cs.IsValid())
	assert.Equal(t, []string{"title"}, cs.Fields())
	assert.Equal(t, []string{"description"}, cs.SkippedFields())
	assert.Equal(t, Change{From: "New", To: "Old"}, cs.Changes["title"])

	got := Apply(live, cs)
	assert.Equal(t, "Old", got["title"])
	assert.Equal(t, "edited later", got["description"])
}

func TestForUndo_FieldAbsentInPrecedingIsRemoved(t *testing.T) {
	cs := ForUndo(
		map[string]any{"token": "abc"},
		map[string]any{"token": "abc"},
		map[string]any{},
		testFields,
	)

	assert.True(t, cs.Changes["token"].Remove)
	assert.Nil(t, cs.Targets()["token"])
	_, ok := Apply(map[string]any{"token": "abc"}, cs)["token"]
	assert.False(t, ok)
}

func TestForRestore(t *testing.T) {
	tests := []struct {
		name       string
		live       map[string]any
		snapshot   map[string]any
		wantFields []string
		wantRemove []string
		effective  int
	}{
		{
			name:       "every snapshot field is reported even when equal",
			live:       map[string]any{"title": "A", "token": "x"},
			snapshot:   map[string]any{"title": "A", "token": "y"},
			wantFields: []string{"title", "token"},
			effective:  1,
		},
		{
			name:       "live field absent from snapshot is removed",
			live:       map[string]any{"title": "A", "description": "d"},
			snapshot:   map[string]any{"title": "A"},
			wantFields: []string{"description", "title"},
			wantRemove: []string{"description"},
			effective:  1,
		},
		{
			name:       "field absent on both sides is ignored",
			live:       map[string]any{},
			snapshot:   map[string]any{},
			wantFields: nil,
			effective:  0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cs := ForRestore(tt.live, tt.snapshot, testFields)
			assert.True(t, cs.IsValid())
			assert.Equal(t, tt.wantFields, nilIfEmpty(cs.Fields()))
			for _, f := range tt.wantRemove {
				assert.True(t, cs.Changes[f].Remove, f)
			}
			assert.Len(t, cs.Effective(), tt.effective)
		})
	}
}

func TestChangeSet_IsValid(t *testing.T) {
	var nilSet *ChangeSet
	assert.False(t, nilSet.IsValid())
	assert.True(t, New().IsValid())

	cs := New()
	cs.Set("title", "a", "b")
	cs.Skip("title", SkipStaleReference)
	assert.True(t, cs.IsValid())
	assert.True(t, cs.IsEmpty())
	assert.Equal(t, SkipStaleReference, cs.Skipped["title"])
}

func TestTextPatch(t *testing.T) {
	assert.Empty(t, TextPatch("same", "same"))

	patch := TextPatch("Intro to Go", "Intro to Rust")
	assert.True(t, strings.HasPrefix(patch, "@@"))
	assert.Contains(t, patch, "Rust")
}

func nilIfEmpty(s []string) []string {
	if len(s) == 0 {
		return nil
	}
	return s
}
