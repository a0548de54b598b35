package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"ct-preinstall/internal/cache"
	"ct-preinstall/internal/conformity"
	"ct-preinstall/internal/database"
	"ct-preinstall/internal/models"
	"ct-preinstall/internal/notify"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func f(v float64) *float64 { return &v }

type recorder struct {
	mu     sync.Mutex
	events []notify.ReportEvent
	err    error
}

func (r *recorder) ReportCreated(_ context.Context, ev notify.ReportEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return r.err
}

type fixture struct {
	db       *gorm.DB
	svc      *ReportService
	redis    *miniredis.Miniredis
	notifier *recorder
	project  models.Project
	scanners map[string]models.ScannerModel
}

func setup(t *testing.T) *fixture {
	t.Helper()

	db, err := database.Open("file:"+uuid.NewString()+"?mode=memory&cache=shared", zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	_, err = database.SeedScanners(db, zap.NewNop())
	require.NoError(t, err)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	catalog, err := conformity.NewCatalog(conformity.DefaultPolicy())
	require.NoError(t, err)

	rec := &recorder{}
	fx := &fixture{
		db:       db,
		svc:      NewReportService(db, catalog, cache.NewMatrixCache(client, time.Minute, zap.NewNop()), rec, zap.NewNop()),
		redis:    mr,
		notifier: rec,
		project:  models.Project{Name: "City Hospital CT", ClientName: "City Hospital"},
		scanners: map[string]models.ScannerModel{},
	}
	require.NoError(t, db.Create(&fx.project).Error)

	var scanners []models.ScannerModel
	require.NoError(t, db.Find(&scanners).Error)
	for _, s := range scanners {
		fx.scanners[s.Name] = s
	}
	return fx
}

func (fx *fixture) site(t *testing.T, s models.SiteSpecification) models.SiteSpecification {
	t.Helper()
	s.ProjectID = fx.project.ID
	require.NoError(t, fx.db.Create(&s).Error)
	return s
}

func compliantSite() models.SiteSpecification {
	return models.SiteSpecification{
		Name:            "CT room 1",
		RoomLength:      6.5,
		RoomWidth:       4.2,
		RoomHeight:      2.43,
		DoorWidth:       f(1.2),
		FloorCapacity:   f(1000),
		ElectricalPower: "380V",
	}
}

func TestEvaluate_PersistsReport(t *testing.T) {
	fx := setup(t)
	site := fx.site(t, compliantSite())
	scanner := fx.scanners["NeuViz ACE"]

	report, err := fx.svc.Evaluate(context.Background(), site.ID, scanner.ID, "engineer")
	require.NoError(t, err)
	require.NotZero(t, report.ID)

	_, err = uuid.Parse(report.Reference)
	assert.NoError(t, err)
	assert.Equal(t, 100.0, report.ConformityScore)
	assert.True(t, report.PassFail)
	assert.Equal(t, 0, report.CriticalIssues)
	assert.Equal(t, 70.0, report.PassThreshold)
	assert.Equal(t, "engineer", report.CreatedBy)

	stored, err := fx.svc.Report(context.Background(), report.ID)
	require.NoError(t, err)
	require.Len(t, stored.Checks, 10)
	for i, c := range stored.Checks {
		assert.Equal(t, i, c.Position)
	}
	assert.Equal(t, "room_length", stored.Checks[0].CheckID)
	assert.Equal(t, "electrical_power", stored.Checks[5].CheckID)
	assert.Equal(t, "unknown", stored.Checks[6].Outcome())
	assert.Equal(t, "City Hospital CT", stored.SiteSpec.Project.Name)
	assert.Equal(t, "NeuViz ACE", stored.ScannerModel.Name)

	var audit models.AuditLog
	require.NoError(t, fx.db.Where("entity = ? AND entity_id = ?", "report", report.ID).First(&audit).Error)
	assert.Equal(t, "evaluate", audit.Action)
	assert.Equal(t, "engineer", audit.Actor)

	require.Len(t, fx.notifier.events, 1)
	ev := fx.notifier.events[0]
	assert.Equal(t, report.Reference, ev.Reference)
	assert.Equal(t, "CT room 1", ev.SiteName)
	assert.True(t, ev.Pass)
}

func TestEvaluate_UndersizedRoom(t *testing.T) {
	fx := setup(t)
	s := compliantSite()
	s.RoomLength, s.RoomWidth, s.RoomHeight = 6.0, 4.0, 2.3
	site := fx.site(t, s)

	report, err := fx.svc.Evaluate(context.Background(), site.ID, fx.scanners["NeuViz ACE"].ID, "admin")
	require.NoError(t, err)
	assert.Equal(t, 25.0, report.ConformityScore)
	assert.False(t, report.PassFail)
	assert.Equal(t, 3, report.CriticalIssues)
	assert.Equal(t, 110000.0, report.EstimatedCost)
}

func TestEvaluate_NotFound(t *testing.T) {
	fx := setup(t)
	site := fx.site(t, compliantSite())

	_, err := fx.svc.Evaluate(context.Background(), 999, fx.scanners["NeuViz ACE"].ID, "admin")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = fx.svc.Evaluate(context.Background(), site.ID, 999, "admin")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = fx.svc.Report(context.Background(), 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEvaluate_SiteOfDeletedProject(t *testing.T) {
	fx := setup(t)
	site := fx.site(t, compliantSite())
	require.NoError(t, fx.db.Delete(&fx.project).Error)

	_, err := fx.svc.Evaluate(context.Background(), site.ID, fx.scanners["NeuViz ACE"].ID, "admin")
	assert.ErrorIs(t, err, ErrNotFound)

	var n int64
	require.NoError(t, fx.db.Model(&models.ConformityReport{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestEvaluate_InvalidSiteCreatesNothing(t *testing.T) {
	fx := setup(t)
	s := compliantSite()
	s.RoomWidth = 0
	site := fx.site(t, s)

	_, err := fx.svc.Evaluate(context.Background(), site.ID, fx.scanners["NeuViz ACE"].ID, "admin")
	var verr *conformity.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "room_width", verr.Fields[0].Field)

	var n int64
	require.NoError(t, fx.db.Model(&models.ConformityReport{}).Count(&n).Error)
	assert.Zero(t, n)
	assert.Empty(t, fx.notifier.events)
}

func TestEvaluate_NotifierFailureIsNotFatal(t *testing.T) {
	fx := setup(t)
	fx.notifier.err = errors.New("webhook down")
	site := fx.site(t, compliantSite())

	report, err := fx.svc.Evaluate(context.Background(), site.ID, fx.scanners["GE Revolution CT"].ID, "admin")
	require.NoError(t, err)
	assert.NotZero(t, report.ID)
	assert.Len(t, fx.notifier.events, 1)
}

func TestEnsureSiteEditable(t *testing.T) {
	fx := setup(t)
	site := fx.site(t, compliantSite())

	require.NoError(t, fx.svc.EnsureSiteEditable(context.Background(), site.ID))

	_, err := fx.svc.Evaluate(context.Background(), site.ID, fx.scanners["NeuViz ACE"].ID, "admin")
	require.NoError(t, err)

	assert.ErrorIs(t, fx.svc.EnsureSiteEditable(context.Background(), site.ID), ErrSiteLocked)
}

func TestUpdateSite(t *testing.T) {
	fx := setup(t)
	site := fx.site(t, compliantSite())

	site.RoomLength = 7
	require.NoError(t, fx.svc.UpdateSite(context.Background(), &site, "j.doe"))

	var stored models.SiteSpecification
	require.NoError(t, fx.db.First(&stored, site.ID).Error)
	assert.Equal(t, 7.0, stored.RoomLength)

	var audit models.AuditLog
	require.NoError(t, fx.db.Where("entity = ? AND action = ?", "site", "update").First(&audit).Error)
	assert.Equal(t, "j.doe", audit.Actor)
	assert.Equal(t, site.ID, audit.EntityID)
}

func TestUpdateSite_RejectsEvaluatedSite(t *testing.T) {
	fx := setup(t)
	site := fx.site(t, compliantSite())

	// the edit form was loaded before the report existed
	edited := site
	edited.RoomLength = 3

	_, err := fx.svc.Evaluate(context.Background(), site.ID, fx.scanners["NeuViz ACE"].ID, "admin")
	require.NoError(t, err)

	assert.ErrorIs(t, fx.svc.UpdateSite(context.Background(), &edited, "j.doe"), ErrSiteLocked)

	var stored models.SiteSpecification
	require.NoError(t, fx.db.First(&stored, site.ID).Error)
	assert.Equal(t, 6.5, stored.RoomLength)

	var n int64
	require.NoError(t, fx.db.Model(&models.AuditLog{}).Where("entity = ? AND action = ?", "site", "update").Count(&n).Error)
	assert.Zero(t, n)

	missing := compliantSite()
	missing.ID = 999
	assert.ErrorIs(t, fx.svc.UpdateSite(context.Background(), &missing, "j.doe"), ErrNotFound)
}

func TestPreview_DoesNotPersist(t *testing.T) {
	fx := setup(t)

	scanner, a, err := fx.svc.Preview(context.Background(), compliantSite().Spec(), fx.scanners["NeuViz ACE"].ID)
	require.NoError(t, err)
	assert.Equal(t, "NeuViz ACE", scanner.Name)
	assert.True(t, a.Summary.Pass)
	assert.Len(t, a.Results, 10)

	var n int64
	require.NoError(t, fx.db.Model(&models.ConformityReport{}).Count(&n).Error)
	assert.Zero(t, n)

	_, _, err = fx.svc.Preview(context.Background(), conformity.SiteSpec{RoomLength: 6}, fx.scanners["NeuViz ACE"].ID)
	var verr *conformity.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestMatrix_SortedAndCached(t *testing.T) {
	fx := setup(t)
	site := fx.site(t, compliantSite())

	entries, err := fx.svc.Matrix(context.Background(), site.ID)
	require.NoError(t, err)
	require.Len(t, entries, 4)

	assert.True(t, entries[0].Summary.Pass)
	for i := 1; i < len(entries); i++ {
		prev, cur := entries[i-1].Summary, entries[i].Summary
		if prev.Pass == cur.Pass {
			assert.GreaterOrEqual(t, prev.Score, cur.Score)
		} else {
			assert.True(t, prev.Pass)
		}
	}
	assert.Len(t, fx.redis.Keys(), 1)

	again, err := fx.svc.Matrix(context.Background(), site.ID)
	require.NoError(t, err)
	assert.Equal(t, entries, again)

	fx.svc.InvalidateCatalog(context.Background())
	_, err = fx.svc.Matrix(context.Background(), site.ID)
	require.NoError(t, err)
	// catalog version key plus one matrix per version
	assert.Len(t, fx.redis.Keys(), 3)
}

func TestMatrix_PolicyChangeMissesCache(t *testing.T) {
	fx := setup(t)
	site := fx.site(t, compliantSite())

	_, err := fx.svc.Matrix(context.Background(), site.ID)
	require.NoError(t, err)
	require.Len(t, fx.redis.Keys(), 1)

	strict := conformity.DefaultPolicy()
	strict.PassThreshold = 100
	strict.SafetyFactor = 20
	catalog, err := conformity.NewCatalog(strict)
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: fx.redis.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	restarted := NewReportService(fx.db, catalog, cache.NewMatrixCache(client, time.Minute, zap.NewNop()), nil, zap.NewNop())

	entries, err := restarted.Matrix(context.Background(), site.ID)
	require.NoError(t, err)
	assert.Len(t, fx.redis.Keys(), 2)
	for _, e := range entries {
		assert.Equal(t, 100.0, e.Summary.PassThreshold, e.ScannerName)
	}
}

func TestMatrix_RedisDown(t *testing.T) {
	fx := setup(t)
	site := fx.site(t, compliantSite())
	fx.redis.Close()

	entries, err := fx.svc.Matrix(context.Background(), site.ID)
	require.NoError(t, err)
	assert.Len(t, entries, 4)

	_, err = fx.svc.Matrix(context.Background(), 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNewReportService_DefaultsToNop(t *testing.T) {
	catalog, err := conformity.NewCatalog(conformity.DefaultPolicy())
	require.NoError(t, err)

	svc := NewReportService(nil, catalog, nil, nil, zap.NewNop())
	assert.Equal(t, notify.Nop{}, svc.notifier)
	assert.Equal(t, 70.0, svc.Policy().PassThreshold)
}
