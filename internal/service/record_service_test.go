package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/haierkeys/edu-program-service/internal/domain"
	"github.com/haierkeys/edu-program-service/pkg/code"
	"github.com/haierkeys/edu-program-service/pkg/diff"
	"github.com/haierkeys/edu-program-service/pkg/timex"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInsert_WritesSnapshotAndLog(t *testing.T) {
	env := newTestEnv(t)
	in := env.insertInstitution(t, "Leiden University")

	require.NotZero(t, in.ID)
	assert.Equal(t, int64(1), env.revisionCount(t, domain.KindInstitution, in.ID))

	logs := env.logs(t, domain.KindInstitution, in.ID)
	require.Len(t, logs, 1)
	assert.Equal(t, domain.ActionAdd, logs[0].Subtype)
	assert.Equal(t, "admin", logs[0].ActorName)
	assert.NotEmpty(t, logs[0].OperationID)

	rev := env.latestRevision(t, domain.KindInstitution, in.ID)
	assert.Equal(t, "Leiden University", rev.ObjectIdentifier)
	assert.Equal(t, "Leiden University", rev.Data[domain.InstitutionName])
	_, hasCounter := rev.Data[domain.InstitutionCourseCount]
	assert.False(t, hasCounter, "summary fields are never snapshotted")

	assert.Equal(t, 1.0, testutil.ToFloat64(env.svc.Metrics.RevisionsWritten.WithLabelValues("institution", domain.ActionAdd)))
}

func TestInsert_RejectsExistingID(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.svc.Record.Insert(context.Background(), &domain.Institution{ID: 5, Name: "x"})
	assert.True(t, errors.Is(err, code.ErrorRecordAlreadyInserted))
}

func TestSave_SnapshotOnRealChangeOnly(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	in := env.insertInstitution(t, "Delft")

	tests := []struct {
		name        string
		mutate      func(*domain.Institution)
		opts        []Option
		wantChanged bool
		wantRevs    int64
		wantLogs    int
	}{
		{
			name:        "no change",
			mutate:      func(*domain.Institution) {},
			wantChanged: false, wantRevs: 1, wantLogs: 1,
		},
		{
			name:        "summary field in normal mode",
			mutate:      func(i *domain.Institution) { i.CourseCount = 9 },
			wantChanged: false, wantRevs: 1, wantLogs: 1,
		},
		{
			name:        "summary field in summary mode",
			mutate:      func(i *domain.Institution) { i.StudentCount = 12 },
			opts:        []Option{WithSummaryMode()},
			wantChanged: true, wantRevs: 1, wantLogs: 1,
		},
		{
			name:        "revertible field in summary mode",
			mutate:      func(i *domain.Institution) { i.City = "Rotterdam" },
			opts:        []Option{WithSummaryMode()},
			wantChanged: false, wantRevs: 1, wantLogs: 1,
		},
		{
			name:        "revertible field",
			mutate:      func(i *domain.Institution) { i.City = "The Hague" },
			wantChanged: true, wantRevs: 2, wantLogs: 2,
		},
		{
			name:        "revertible field without logging",
			mutate:      func(i *domain.Institution) { i.Country = "NL" },
			opts:        []Option{WithoutLogging()},
			wantChanged: true, wantRevs: 3, wantLogs: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cur := env.institution(t, in.ID)
			tt.mutate(cur)
			changed, err := env.svc.Record.Save(ctx, cur, tt.opts...)
			require.NoError(t, err)
			assert.Equal(t, tt.wantChanged, changed)
			assert.Equal(t, tt.wantRevs, env.revisionCount(t, domain.KindInstitution, in.ID))
			assert.Len(t, env.logs(t, domain.KindInstitution, in.ID), tt.wantLogs)
		})
	}

	got := env.institution(t, in.ID)
	assert.Equal(t, int64(12), got.StudentCount)
	assert.Equal(t, int64(0), got.CourseCount, "normal saves never write summary fields")
	assert.Equal(t, "The Hague", got.City)
}

func TestSave_MissingRowIsConflict(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.svc.Record.Save(context.Background(), &domain.Institution{ID: 404, Name: "gone"})
	assert.True(t, errors.Is(err, code.ErrorConflict))
}

func TestSave_LastWriterWins(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	in := env.insertInstitution(t, "Groningen")

	a := env.institution(t, in.ID)
	b := env.institution(t, in.ID)

	a.City = "Assen"
	_, err := env.svc.Record.Save(ctx, a)
	require.NoError(t, err)

	// b still holds the old city and overwrites it along with its own change
	b.Country = "NL"
	_, err = env.svc.Record.Save(ctx, b)
	require.NoError(t, err)

	got := env.institution(t, in.ID)
	assert.Equal(t, "Utrecht", got.City)
	assert.Equal(t, "NL", got.Country)
}

func TestRemove_And_Undelete(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	in := env.insertInstitution(t, "Twente")
	in.City = "Enschede"
	_, err := env.svc.Record.Save(ctx, in, WithComment("move"))
	require.NoError(t, err)

	_, err = env.svc.Record.Undelete(ctx, domain.KindInstitution, in.ID)
	assert.True(t, errors.Is(err, code.ErrorConflict), "undelete of a live record")

	removed, err := env.svc.Record.Remove(ctx, in)
	require.NoError(t, err)
	assert.True(t, removed)

	latest := env.latestRevision(t, domain.KindInstitution, in.ID)
	assert.True(t, latest.Deleted)
	assert.Equal(t, "Enschede", latest.Data[domain.InstitutionCity])

	_, err = env.svc.Record.Remove(ctx, in)
	assert.True(t, errors.Is(err, code.ErrorNotFound))

	_, err = env.svc.Record.Load(ctx, domain.KindInstitution, in.ID, domain.ReadAuthoritative)
	assert.True(t, errors.Is(err, code.ErrorNotFound))

	ok, err := env.svc.Record.Undelete(ctx, domain.KindInstitution, in.ID, WithActor(2, "ops"))
	require.NoError(t, err)
	assert.True(t, ok)

	got := env.institution(t, in.ID)
	assert.Equal(t, "Twente", got.Name)
	assert.Equal(t, "Enschede", got.City)
	assert.Equal(t, int64(3), env.revisionCount(t, domain.KindInstitution, in.ID), "undelete writes no snapshot")

	logs := env.logs(t, domain.KindInstitution, in.ID)
	require.Len(t, logs, 4)
	assert.Equal(t, domain.ActionUndelete, logs[3].Subtype)
	assert.Equal(t, latest.ID, logs[3].Params["revision_id"])
}

func TestUndelete_WithoutRevisions(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.svc.Record.Undelete(context.Background(), domain.KindCourse, 77)
	assert.True(t, errors.Is(err, code.ErrorNotFound))
}

func TestRestoreToRevision_Idempotent(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	in := env.insertInstitution(t, "Maastricht")
	first := env.latestRevision(t, domain.KindInstitution, in.ID)

	in.City = "Heerlen"
	in.Country = "NL"
	_, err := env.svc.Record.Save(ctx, in)
	require.NoError(t, err)

	cs, err := env.svc.Record.RestoreToRevision(ctx, in, first.ID, nil)
	require.NoError(t, err)
	assert.True(t, cs.IsValid())
	assert.ElementsMatch(t, []string{domain.InstitutionCity, domain.InstitutionCountry}, cs.Effective())
	assert.Equal(t, "Utrecht", in.City, "the caller's entity reflects the restored state")
	assert.Equal(t, int64(3), env.revisionCount(t, domain.KindInstitution, in.ID))

	cs, err = env.svc.Record.RestoreToRevision(ctx, in, first.ID, nil)
	require.NoError(t, err)
	assert.True(t, cs.IsValid())
	assert.Empty(t, cs.Effective())
	assert.Equal(t, int64(3), env.revisionCount(t, domain.KindInstitution, in.ID), "second restore is a no-op")

	got := env.institution(t, in.ID)
	assert.Equal(t, first.Data, got.Fields().Only(domain.InstitutionSchema.Revertible()))
}

func TestRestoreToRevision_SelectedFields(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	in := env.insertInstitution(t, "Tilburg")
	first := env.latestRevision(t, domain.KindInstitution, in.ID)

	in.City = "Breda"
	in.Country = "NL"
	_, err := env.svc.Record.Save(ctx, in)
	require.NoError(t, err)

	cs, err := env.svc.Record.RestoreToRevision(ctx, in, first.ID, []string{domain.InstitutionCity})
	require.NoError(t, err)
	assert.Equal(t, []string{domain.InstitutionCity}, cs.Effective())

	got := env.institution(t, in.ID)
	assert.Equal(t, "Utrecht", got.City)
	assert.Equal(t, "NL", got.Country)

	_, err = env.svc.Record.RestoreToRevision(ctx, in, first.ID, []string{domain.InstitutionCourseCount})
	assert.True(t, errors.Is(err, code.ErrorValidation))
}

func TestRestoreToRevision_Errors(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	a := env.insertInstitution(t, "A")
	b := env.insertInstitution(t, "B")
	revB := env.latestRevision(t, domain.KindInstitution, b.ID)

	_, err := env.svc.Record.RestoreToRevision(ctx, a, 9999, nil)
	assert.True(t, errors.Is(err, code.ErrorRevisionNotFound))

	_, err = env.svc.Record.RestoreToRevision(ctx, a, revB.ID, nil)
	assert.True(t, errors.Is(err, code.ErrorRevisionMismatch))
}

func TestRestoreToRevision_StaleReferenceSkipped(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	oldOrg := env.insertInstitution(t, "Old")
	newOrg := env.insertInstitution(t, "New")
	c := env.insertCourse(t, oldOrg.ID, "Wiki 101")
	added := env.latestRevision(t, domain.KindCourse, c.ID)

	c = env.course(t, c.ID)
	c.InstitutionID = newOrg.ID
	c.Term = "Fall"
	_, err := env.svc.Record.Save(ctx, c)
	require.NoError(t, err)

	_, err = env.svc.Record.Remove(ctx, env.institution(t, oldOrg.ID))
	require.NoError(t, err)

	cs, err := env.svc.Record.RestoreToRevision(ctx, c, added.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, diff.SkipStaleReference, cs.Skipped[domain.CourseOrgID])
	assert.Equal(t, []string{domain.CourseTerm}, cs.Effective())
	assert.True(t, cs.IsValid())

	got := env.course(t, c.ID)
	assert.Equal(t, newOrg.ID, got.InstitutionID)
	assert.Equal(t, "Spring", got.Term)
}

func TestUndoRevision_ConflictSkip(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	c := env.insertCourse(t, 0, "Wiki 101")

	c.Title = "Wiki 102"
	c.Description = "Changed"
	_, err := env.svc.Record.Save(ctx, c, WithComment("rename"))
	require.NoError(t, err)
	target := env.latestRevision(t, domain.KindCourse, c.ID)

	c.Title = "Wiki 103"
	_, err = env.svc.Record.Save(ctx, c)
	require.NoError(t, err)

	cs, err := env.svc.Record.UndoRevision(ctx, c, target.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, diff.SkipConflict, cs.Skipped[domain.CourseTitle])
	assert.Equal(t, []string{domain.CourseDescription}, cs.Effective())

	got := env.course(t, c.ID)
	assert.Equal(t, "Wiki 103", got.Title, "later edit survives")
	assert.Equal(t, "Intro", got.Description, "undone field reverted")
}

func TestUndoRevision_NoPreceding(t *testing.T) {
	env := newTestEnv(t)
	in := env.insertInstitution(t, "Solo")
	first := env.latestRevision(t, domain.KindInstitution, in.ID)

	_, err := env.svc.Record.UndoRevision(context.Background(), in, first.ID, nil)
	assert.True(t, errors.Is(err, code.ErrorNotFound))
}

// failingCourseRepo injects storage failures into the course table
type failingCourseRepo struct {
	domain.CourseRepository
	failCreate bool
}

func (r *failingCourseRepo) Create(ctx context.Context, c *domain.Course) (*domain.Course, error) {
	if r.failCreate {
		return nil, fmt.Errorf("disk I/O error")
	}
	return r.CourseRepository.Create(ctx, c)
}

func TestInsert_StorageFailureWritesNothing(t *testing.T) {
	repo := &failingCourseRepo{failCreate: true}
	env := newTestEnv(t, func(r *Repositories) {
		repo.CourseRepository = r.Course
		r.Course = repo
	})

	c := &domain.Course{Title: "Broken"}
	_, err := env.svc.Record.Insert(context.Background(), c)
	require.Error(t, err)
	assert.True(t, errors.Is(err, code.ErrorStorage))
	assert.Zero(t, c.ID)
	assert.Equal(t, 0.0, testutil.ToFloat64(env.svc.Metrics.RevisionsWritten.WithLabelValues("course", domain.ActionAdd)))
}

func TestHooks_RunInRegistrationOrder(t *testing.T) {
	env := newTestEnv(t)
	var order []string
	env.svc.Record.RegisterHook(domain.KindInstitution, func(ctx context.Context, m *Mutation) error {
		order = append(order, "first:"+m.Action)
		return nil
	})
	env.svc.Record.RegisterHook(domain.KindInstitution, func(ctx context.Context, m *Mutation) error {
		order = append(order, "second:"+m.Action)
		assert.Equal(t, domain.KindInstitution, m.Kind)
		assert.NotEmpty(t, m.OperationID)
		return nil
	})

	in := env.insertInstitution(t, "Hooked")
	in.City = "Zwolle"
	_, err := env.svc.Record.Save(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, []string{"first:add", "second:add", "first:update", "second:update"}, order)
}

func TestInsert_CourseDatesMatchSnapshot(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	in := env.insertInstitution(t, "Porto")

	start := time.Date(2024, 9, 2, 8, 30, 15, 750_000_000, time.UTC)
	c := &domain.Course{InstitutionID: in.ID, Title: "Wiki 201", Start: start, End: start.AddDate(0, 3, 0)}
	_, err := env.svc.Record.Insert(ctx, c)
	require.NoError(t, err)

	stored := env.course(t, c.ID)
	assert.True(t, stored.Start.Equal(start.Truncate(time.Second)))
	assert.True(t, c.Start.Equal(stored.Start))

	rev := env.latestRevision(t, domain.KindCourse, c.ID)
	assert.Equal(t, timex.FormatStamp(stored.Start), rev.Data[domain.CourseStart])
	assert.Equal(t, timex.FormatStamp(stored.End), rev.Data[domain.CourseEnd])

	changed, err := env.svc.Record.Save(ctx, stored)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, int64(1), env.revisionCount(t, domain.KindCourse, c.ID))
}
