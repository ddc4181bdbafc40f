package service

import (
	"context"
	"errors"
	"testing"

	"github.com/haierkeys/edu-program-service/internal/domain"
	"github.com/haierkeys/edu-program-service/pkg/code"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRevisionService_ListAndCompare(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	c := env.insertCourse(t, 0, "Wiki 101")

	c.Description = "Intro to editing"
	_, err := env.svc.Record.Save(ctx, c, WithComment("expand"), WithMinor())
	require.NoError(t, err)
	c.Term = "Fall"
	_, err = env.svc.Record.Save(ctx, c)
	require.NoError(t, err)

	page, err := env.svc.Revision.List(ctx, domain.KindCourse, c.ID, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.Total)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "Fall", page.Items[0].Data[domain.CourseTerm])

	page, err = env.svc.Revision.List(ctx, domain.KindCourse, c.ID, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 20, page.PageSize)
	require.Len(t, page.Items, 3)

	second := page.Items[1]
	assert.Equal(t, "expand", second.Comment)
	assert.True(t, second.Minor)

	cmp, err := env.svc.Revision.Compare(ctx, second.ID)
	require.NoError(t, err)
	require.NotNil(t, cmp.Preceding)
	require.Len(t, cmp.Changes, 1)
	assert.Equal(t, domain.CourseDescription, cmp.Changes[0].Field)
	assert.Equal(t, "Intro", cmp.Changes[0].From)
	assert.Equal(t, "Intro to editing", cmp.Changes[0].To)
	assert.Contains(t, cmp.Changes[0].Patch, "to editing")

	first, err := env.svc.Revision.Compare(ctx, page.Items[2].ID)
	require.NoError(t, err)
	assert.Nil(t, first.Preceding)
	assert.NotEmpty(t, first.Changes)

	_, err = env.svc.Revision.Get(ctx, 12345)
	assert.True(t, errors.Is(err, code.ErrorRevisionNotFound))

	_, err = env.svc.Revision.List(ctx, domain.EntityKind("page"), 1, 1, 10)
	assert.True(t, errors.Is(err, code.ErrorUnknownKind))
}
