package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/haierkeys/edu-program-service/internal/domain"
	"github.com/haierkeys/edu-program-service/pkg/code"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarize(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	courses := []*domain.Course{
		{
			Students:    []int64{1, 2},
			Instructors: []int64{9},
			Start:       now.AddDate(0, -2, 0),
			End:         now.AddDate(0, 1, 0),
		},
		{
			Students:          []int64{2, 3},
			CampusAmbassadors: []int64{4},
			Start:             now.AddDate(-1, 0, 0),
			End:               now.AddDate(0, -6, 0),
		},
	}

	got := summarize(courses, now)
	assert.Equal(t, int64(2), got[domain.InstitutionCourseCount])
	assert.Equal(t, int64(3), got[domain.InstitutionStudentCount], "users in several courses count once")
	assert.Equal(t, int64(1), got[domain.InstitutionInstructorCount])
	assert.Equal(t, int64(0), got[domain.InstitutionOnlineCount])
	assert.Equal(t, int64(1), got[domain.InstitutionCampusCount])
	assert.Equal(t, now.AddDate(0, 1, 0), got[domain.InstitutionLastActiveDate])
	assert.Equal(t, true, got[domain.InstitutionActive])

	empty := summarize(nil, now)
	assert.Equal(t, int64(0), empty[domain.InstitutionCourseCount])
	assert.Equal(t, false, empty[domain.InstitutionActive])
}

func TestCascade_CourseLifecycle(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	in := env.insertInstitution(t, "Amsterdam")

	c := env.insertCourse(t, in.ID, "Wiki 101")
	assert.Equal(t, int64(1), env.institution(t, in.ID).CourseCount)

	start := time.Now().Add(-24 * time.Hour).UTC().Truncate(time.Second)
	end := time.Now().Add(30 * 24 * time.Hour).UTC().Truncate(time.Second)
	c.Start, c.End = start, end
	_, err := env.svc.Record.Save(ctx, c)
	require.NoError(t, err)

	got := env.institution(t, in.ID)
	assert.True(t, got.Active)
	assert.True(t, got.LastActiveDate.Equal(end))

	_, err = env.svc.Membership.EnlistUsers(ctx, c.ID, []int64{4, 5}, domain.RoleInstructor, Actor{ID: 1}, "")
	require.NoError(t, err)
	assert.Equal(t, int64(2), env.institution(t, in.ID).InstructorCount)

	_, err = env.svc.Record.Remove(ctx, env.course(t, c.ID))
	require.NoError(t, err)
	got = env.institution(t, in.ID)
	assert.Equal(t, int64(0), got.CourseCount)
	assert.Equal(t, int64(0), got.InstructorCount)
	assert.False(t, got.Active)

	// summary writes never produce revisions or log entries on the institution
	assert.Equal(t, int64(1), env.revisionCount(t, domain.KindInstitution, in.ID))
	assert.Len(t, env.logs(t, domain.KindInstitution, in.ID), 1)
}

func TestRecomputeSummary_FieldsAndErrors(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	in := env.insertInstitution(t, "Nijmegen")
	env.insertCourse(t, in.ID, "A")

	// corrupt the counters out of band
	cur := env.institution(t, in.ID)
	cur.CourseCount, cur.StudentCount = 40, 50
	_, err := env.svc.Record.Save(ctx, cur, WithSummaryMode())
	require.NoError(t, err)

	changed, err := env.svc.Summary.RecomputeSummary(ctx, in.ID, domain.ReadReplica, domain.InstitutionCourseCount)
	require.NoError(t, err)
	assert.True(t, changed)
	got := env.institution(t, in.ID)
	assert.Equal(t, int64(1), got.CourseCount)
	assert.Equal(t, int64(50), got.StudentCount, "fields not named stay untouched")

	changed, err = env.svc.Summary.RecomputeSummary(ctx, in.ID, domain.ReadReplica)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, int64(0), env.institution(t, in.ID).StudentCount)

	changed, err = env.svc.Summary.RecomputeSummary(ctx, in.ID, domain.ReadReplica)
	require.NoError(t, err)
	assert.False(t, changed)

	_, err = env.svc.Summary.RecomputeSummary(ctx, in.ID, domain.ReadReplica, domain.InstitutionName)
	assert.True(t, errors.Is(err, code.ErrorValidation))

	_, err = env.svc.Summary.RecomputeSummary(ctx, 9999, domain.ReadReplica)
	assert.True(t, errors.Is(err, code.ErrorNotFound))
}

func TestRecomputeAll(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	var ids []int64
	for i := 0; i < 5; i++ {
		in := env.insertInstitution(t, fmt.Sprintf("I%d", i))
		env.insertCourse(t, in.ID, "C")
		cur := env.institution(t, in.ID)
		cur.CourseCount = 100
		_, err := env.svc.Record.Save(ctx, cur, WithSummaryMode())
		require.NoError(t, err)
		ids = append(ids, in.ID)
	}

	changed, err := env.svc.Summary.RecomputeAll(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 5, changed)
	for _, id := range ids {
		assert.Equal(t, int64(1), env.institution(t, id).CourseCount)
	}

	changed, err = env.svc.Summary.RecomputeAll(ctx, 0)
	require.NoError(t, err)
	assert.Zero(t, changed)
}

// flakyInstitutionRepo fails institution updates while fail is set
type flakyInstitutionRepo struct {
	domain.InstitutionRepository
	fail bool
}

func (r *flakyInstitutionRepo) Update(ctx context.Context, in *domain.Institution) error {
	if r.fail {
		return fmt.Errorf("database is locked")
	}
	return r.InstitutionRepository.Update(ctx, in)
}

func TestCascadeFailure_QueuedAndRetried(t *testing.T) {
	ctx := context.Background()
	repo := &flakyInstitutionRepo{}
	env := newTestEnv(t, func(r *Repositories) {
		repo.InstitutionRepository = r.Institution
		r.Institution = repo
	})
	in := env.insertInstitution(t, "Flaky")

	repo.fail = true
	c := &domain.Course{InstitutionID: in.ID, Title: "Still saved"}
	_, err := env.svc.Record.Insert(ctx, c)
	require.NoError(t, err, "cascade failures never reach the caller")
	assert.NotZero(t, c.ID)

	assert.Equal(t, []int64{in.ID}, env.svc.Summary.Pending())
	assert.Equal(t, 1.0, testutil.ToFloat64(env.svc.Metrics.CascadeFailures))
	assert.Equal(t, int64(0), env.institution(t, in.ID).CourseCount)

	recovered, err := env.svc.Summary.RetryPending(ctx)
	assert.Error(t, err)
	assert.Zero(t, recovered)

	repo.fail = false
	recovered, err = env.svc.Summary.RetryPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, recovered)
	assert.Empty(t, env.svc.Summary.Pending())
	assert.Equal(t, int64(1), env.institution(t, in.ID).CourseCount)
}

func TestSummaryAfterReparenting(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	orgs := make([]int64, 3)
	for i := range orgs {
		orgs[i] = env.insertInstitution(t, fmt.Sprintf("Org %d", i)).ID
	}
	courses := make([]int64, 4)
	for i := range courses {
		c := env.insertCourse(t, orgs[i%len(orgs)], fmt.Sprintf("Course %d", i))
		c.SetMembers(domain.RoleStudent, []int64{int64(i + 1), 100})
		_, err := env.svc.Record.Save(ctx, c)
		require.NoError(t, err)
		courses[i] = c.ID
	}

	params := gopter.DefaultTestParameters()
	params.MinSuccessfulTests = 25

	properties := gopter.NewProperties(params)
	properties.Property("every institution equals a recount of its current courses", prop.ForAll(
		func(courseIdx, orgIdx int) bool {
			c := env.course(t, courses[courseIdx])
			c.InstitutionID = orgs[orgIdx]
			if _, err := env.svc.Record.Save(ctx, c); err != nil {
				t.Logf("save: %v", err)
				return false
			}
			for _, id := range orgs {
				list, err := env.repos.Course.ListByInstitution(ctx, id, domain.ReadAuthoritative)
				if err != nil {
					return false
				}
				want := summarize(list, time.Now())
				got := env.institution(t, id)
				if got.CourseCount != want[domain.InstitutionCourseCount] ||
					got.StudentCount != want[domain.InstitutionStudentCount] {
					t.Logf("institution %d: got %d/%d want %v", id, got.CourseCount, got.StudentCount, want)
					return false
				}
			}
			return true
		},
		gen.IntRange(0, len(courses)-1), gen.IntRange(0, len(orgs)-1),
	))
	properties.TestingRun(t)
}

func TestCascade_InstitutionUndelete(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	in := env.insertInstitution(t, "Lisbon")

	for i, title := range []string{"Wiki 101", "Wiki 102"} {
		c := env.insertCourse(t, in.ID, title)
		c.SetMembers(domain.RoleStudent, []int64{int64(i + 1), 50})
		_, err := env.svc.Record.Save(ctx, c)
		require.NoError(t, err)
	}
	before := env.institution(t, in.ID)
	require.Equal(t, int64(2), before.CourseCount)
	require.Equal(t, int64(3), before.StudentCount)

	_, err := env.svc.Record.Remove(ctx, before)
	require.NoError(t, err)

	// the courses keep their org_id, the restored row is recounted from them
	ok, err := env.svc.Record.Undelete(ctx, domain.KindInstitution, in.ID)
	require.NoError(t, err)
	require.True(t, ok)

	got := env.institution(t, in.ID)
	assert.Equal(t, int64(2), got.CourseCount)
	assert.Equal(t, int64(3), got.StudentCount)
	assert.Empty(t, env.svc.Summary.Pending())

	changed, err := env.svc.Summary.RecomputeSummary(ctx, in.ID, domain.ReadAuthoritative)
	require.NoError(t, err)
	assert.False(t, changed, "undelete already left the counters equal to a recount")
}
