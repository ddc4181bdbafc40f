package service

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/haierkeys/edu-program-service/internal/dao"
	"github.com/haierkeys/edu-program-service/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testEnv struct {
	svc   *Services
	repos Repositories
	reg   *prometheus.Registry
}

// newTestEnv wires the services on a fresh SQLite database, wrap lets a test replace repositories
func newTestEnv(t *testing.T, wrap ...func(*Repositories)) *testEnv {
	t.Helper()
	cfg := &dao.DatabaseConfig{
		Type:        "sqlite",
		Path:        filepath.Join(t.TempDir(), "engine.sqlite3"),
		AutoMigrate: true,
	}
	db, err := dao.NewDBEngineWithConfig(cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	d := dao.New(db, context.Background(), dao.WithConfig(cfg))

	repos := Repositories{
		Institution: dao.NewInstitutionRepository(d),
		Course:      dao.NewCourseRepository(d),
		Revision:    dao.NewRevisionRepository(d),
		Membership:  dao.NewMembershipRepository(d),
		Student:     dao.NewStudentRepository(d),
		Article:     dao.NewCourseArticleRepository(d),
		AuditLog:    dao.NewAuditLogRepository(d),
	}
	for _, w := range wrap {
		w(&repos)
	}

	reg := prometheus.NewRegistry()
	svc := NewServices(repos, NewMetrics(reg), zap.NewNop(), nil)
	return &testEnv{svc: svc, repos: repos, reg: reg}
}

func (env *testEnv) insertInstitution(t *testing.T, name string) *domain.Institution {
	t.Helper()
	in := &domain.Institution{Name: name, City: "Utrecht"}
	_, err := env.svc.Record.Insert(context.Background(), in, WithActor(1, "admin"))
	require.NoError(t, err)
	return in
}

func (env *testEnv) insertCourse(t *testing.T, orgID int64, title string) *domain.Course {
	t.Helper()
	c := &domain.Course{InstitutionID: orgID, Title: title, Term: "Spring", Description: "Intro"}
	_, err := env.svc.Record.Insert(context.Background(), c, WithActor(1, "admin"))
	require.NoError(t, err)
	return c
}

func (env *testEnv) course(t *testing.T, id int64) *domain.Course {
	t.Helper()
	e, err := env.svc.Record.Load(context.Background(), domain.KindCourse, id, domain.ReadAuthoritative)
	require.NoError(t, err)
	return e.(*domain.Course)
}

func (env *testEnv) institution(t *testing.T, id int64) *domain.Institution {
	t.Helper()
	e, err := env.svc.Record.Load(context.Background(), domain.KindInstitution, id, domain.ReadAuthoritative)
	require.NoError(t, err)
	return e.(*domain.Institution)
}

func (env *testEnv) revisionCount(t *testing.T, kind domain.EntityKind, id int64) int64 {
	t.Helper()
	n, err := env.repos.Revision.CountByObject(context.Background(), kind, id)
	require.NoError(t, err)
	return n
}

func (env *testEnv) logs(t *testing.T, kind domain.EntityKind, id int64) []*domain.LogEvent {
	t.Helper()
	list, err := env.svc.AuditLog.ListByTarget(context.Background(), kind, id)
	require.NoError(t, err)
	return list
}

func (env *testEnv) latestRevision(t *testing.T, kind domain.EntityKind, id int64) *domain.Revision {
	t.Helper()
	rev, err := env.repos.Revision.GetLatest(context.Background(), kind, id)
	require.NoError(t, err)
	return rev
}
