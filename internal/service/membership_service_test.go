package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/haierkeys/edu-program-service/internal/domain"
	"github.com/haierkeys/edu-program-service/pkg/code"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func memberIDs(list []*domain.Membership) []int64 {
	ids := make([]int64, 0, len(list))
	for _, m := range list {
		ids = append(ids, m.UserID)
	}
	return domain.NormalizeIDs(ids)
}

func TestEnlistUsers(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	c := env.insertCourse(t, 0, "Wiki 101")

	n, err := env.svc.Membership.EnlistUsers(ctx, c.ID, []int64{7, 3, 7}, domain.RoleStudent, Actor{ID: 1, Name: "admin"}, "term start")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	got := env.course(t, c.ID)
	assert.Equal(t, []int64{3, 7}, got.Students)
	assert.Equal(t, int64(2), got.StudentCount)

	rows, err := env.svc.Membership.ListMembers(ctx, c.ID, domain.RoleStudent)
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 7}, memberIDs(rows))

	// enlist writes its own log entry instead of the generic update entry, the snapshot is still written
	assert.Equal(t, int64(2), env.revisionCount(t, domain.KindCourse, c.ID))
	logs := env.logs(t, domain.KindCourse, c.ID)
	require.Len(t, logs, 2)
	assert.Equal(t, string(domain.RoleStudent), logs[1].Type)
	assert.Equal(t, domain.SubtypeAdd, logs[1].Subtype)
	assert.Equal(t, "term start", logs[1].Comment)

	st, err := env.repos.Student.GetByUserID(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, c.ID, st.FirstCourseID)
	assert.Equal(t, c.ID, st.LastCourseID)
	assert.False(t, st.LastEnrollAt.IsZero())

	n, err = env.svc.Membership.EnlistUsers(ctx, c.ID, []int64{3}, domain.RoleStudent, Actor{ID: 1}, "")
	require.NoError(t, err)
	assert.Zero(t, n, "already enrolled")
	assert.Equal(t, int64(2), env.revisionCount(t, domain.KindCourse, c.ID))
	assert.Len(t, env.logs(t, domain.KindCourse, c.ID), 2)
}

func TestEnlistUsers_Subtypes(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	c := env.insertCourse(t, 0, "Wiki 101")

	tests := []struct {
		name        string
		users       []int64
		actor       Actor
		add         bool
		wantSubtype string
	}{
		{name: "self add", users: []int64{5}, actor: Actor{ID: 5}, add: true, wantSubtype: domain.SubtypeSelfAdd},
		{name: "add by other", users: []int64{6}, actor: Actor{ID: 5}, add: true, wantSubtype: domain.SubtypeAdd},
		{name: "self remove", users: []int64{5}, actor: Actor{ID: 5}, add: false, wantSubtype: domain.SubtypeSelfRemove},
		{name: "remove by other", users: []int64{6}, actor: Actor{ID: 5}, add: false, wantSubtype: domain.SubtypeRemove},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var err error
			if tt.add {
				_, err = env.svc.Membership.EnlistUsers(ctx, c.ID, tt.users, domain.RoleOnline, tt.actor, "")
			} else {
				_, err = env.svc.Membership.UnenlistUsers(ctx, c.ID, tt.users, domain.RoleOnline, tt.actor, "")
			}
			require.NoError(t, err)
			logs := env.logs(t, domain.KindCourse, c.ID)
			last := logs[len(logs)-1]
			assert.Equal(t, string(domain.RoleOnline), last.Type)
			assert.Equal(t, tt.wantSubtype, last.Subtype)
		})
	}
}

func TestEnlistUsers_Validation(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	c := env.insertCourse(t, 0, "Wiki 101")

	tests := []struct {
		name  string
		users []int64
		role  domain.Role
	}{
		{name: "empty ids", users: nil, role: domain.RoleStudent},
		{name: "non positive id", users: []int64{3, 0}, role: domain.RoleStudent},
		{name: "negative id", users: []int64{-4}, role: domain.RoleInstructor},
		{name: "unknown role", users: []int64{3}, role: domain.Role("dean")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.svc.Membership.EnlistUsers(ctx, c.ID, tt.users, tt.role, Actor{ID: 1}, "")
			assert.True(t, errors.Is(err, code.ErrorValidation))
		})
	}

	_, err := env.svc.Membership.EnlistUsers(ctx, 9999, []int64{3}, domain.RoleStudent, Actor{ID: 1}, "")
	assert.True(t, errors.Is(err, code.ErrorNotFound))
}

func TestUnenlistStudent_PurgesArticles(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	c := env.insertCourse(t, 0, "Wiki 101")

	_, err := env.svc.Membership.EnlistUsers(ctx, c.ID, []int64{3, 4}, domain.RoleStudent, Actor{ID: 1}, "")
	require.NoError(t, err)

	_, err = env.svc.Membership.AssociateArticle(ctx, c.ID, 3, "Tulip mania")
	require.NoError(t, err)
	_, err = env.svc.Membership.AssociateArticle(ctx, c.ID, 4, "Dutch Golden Age")
	require.NoError(t, err)

	_, err = env.svc.Membership.AssociateArticle(ctx, c.ID, 8, "Stroopwafel")
	assert.True(t, errors.Is(err, code.ErrorNotEnrolled))

	n, err := env.svc.Membership.UnenlistUsers(ctx, c.ID, []int64{3, 99}, domain.RoleStudent, Actor{ID: 1}, "")
	require.NoError(t, err)
	assert.Equal(t, 1, n, "only enrolled users are removed")

	articles, err := env.repos.Article.ListByCourse(ctx, c.ID, 0)
	require.NoError(t, err)
	require.Len(t, articles, 1)
	assert.Equal(t, int64(4), articles[0].UserID)

	rows, err := env.svc.Membership.ListMembers(ctx, c.ID, domain.RoleStudent)
	require.NoError(t, err)
	assert.Equal(t, []int64{4}, memberIDs(rows))
}

func TestSync_KeepsJoinTime(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	c := env.insertCourse(t, 0, "Wiki 101")

	c.SetMembers(domain.RoleInstructor, []int64{10})
	_, err := env.svc.Record.Save(ctx, c)
	require.NoError(t, err)
	before, err := env.svc.Membership.ListMembers(ctx, c.ID, domain.RoleInstructor)
	require.NoError(t, err)
	require.Len(t, before, 1)

	time.Sleep(1100 * time.Millisecond)
	c.SetMembers(domain.RoleInstructor, []int64{10, 11})
	_, err = env.svc.Record.Save(ctx, c)
	require.NoError(t, err)

	after, err := env.svc.Membership.ListMembers(ctx, c.ID, domain.RoleInstructor)
	require.NoError(t, err)
	require.Len(t, after, 2)
	assert.True(t, after[0].JoinedAt.Equal(before[0].JoinedAt), "existing member keeps its join time")
	assert.True(t, after[1].JoinedAt.After(before[0].JoinedAt))
}

func TestMembershipCacheAgreement(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	c := env.insertCourse(t, 0, "Property")

	params := gopter.DefaultTestParameters()
	params.MinSuccessfulTests = 25

	roleGen := gen.OneConstOf(domain.RoleStudent, domain.RoleInstructor, domain.RoleOnline, domain.RoleCampus)
	idsGen := gen.SliceOfN(4, gen.Int64Range(1, 8))

	properties := gopter.NewProperties(params)
	properties.Property("embedded list equals membership rows after any save", prop.ForAll(
		func(role domain.Role, ids []int64) bool {
			cur := env.course(t, c.ID)
			cur.SetMembers(role, ids)
			if _, err := env.svc.Record.Save(ctx, cur); err != nil {
				t.Logf("save: %v", err)
				return false
			}
			stored := env.course(t, c.ID)
			for _, r := range domain.Roles {
				rows, err := env.svc.Membership.ListMembers(ctx, c.ID, r)
				if err != nil {
					return false
				}
				if !assert.ObjectsAreEqual(stored.Members(r), memberIDs(rows)) {
					return false
				}
			}
			return true
		},
		roleGen, idsGen,
	))
	properties.TestingRun(t)
}
