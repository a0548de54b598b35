package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"ct-preinstall/internal/cache"
	"ct-preinstall/internal/conformity"
	"ct-preinstall/internal/database"
	"ct-preinstall/internal/models"
	"ct-preinstall/internal/notify"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrSiteLocked = errors.New("site specification already has a conformity report")
)

const notifyTimeout = 15 * time.Second

type ReportService struct {
	db       *gorm.DB
	catalog  *conformity.Catalog
	cache    *cache.MatrixCache
	notifier notify.Notifier
	log      *zap.Logger
}

func NewReportService(db *gorm.DB, catalog *conformity.Catalog, matrixCache *cache.MatrixCache, notifier notify.Notifier, log *zap.Logger) *ReportService {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &ReportService{
		db:       db,
		catalog:  catalog,
		cache:    matrixCache.WithScope("p" + catalog.Policy().Fingerprint()),
		notifier: notifier,
		log:      log,
	}
}

func (s *ReportService) Policy() conformity.Policy {
	return s.catalog.Policy()
}

// Evaluate assesses a stored site against a stored scanner and persists the
// report, its checks and an audit entry in one transaction. The site row is
// locked for the duration so a concurrent edit cannot slip in between the
// assessment and the report. Notifiers run after the commit and cannot fail
// the call.
func (s *ReportService) Evaluate(ctx context.Context, siteID, scannerID uint, actor string) (*models.ConformityReport, error) {
	var scanner models.ScannerModel
	if err := s.db.WithContext(ctx).First(&scanner, scannerID).Error; err != nil {
		return nil, notFound("scanner model", scannerID, err)
	}

	var (
		site   models.SiteSpecification
		report models.ConformityReport
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockRow(tx).Scopes(ActiveSites).Preload("Project").First(&site, siteID).Error; err != nil {
			return notFound("site specification", siteID, err)
		}

		assessment, err := s.catalog.Assess(site.Spec(), scanner.Requirements())
		if err != nil {
			return err
		}

		report = models.ConformityReport{
			Reference:       uuid.NewString(),
			SiteSpecID:      site.ID,
			ScannerModelID:  scanner.ID,
			EvaluationText:  assessment.Summary.Narrative,
			ConformityScore: assessment.Summary.Score,
			PassFail:        assessment.Summary.Pass,
			CriticalIssues:  assessment.Summary.CriticalIssues,
			EstimatedCost:   assessment.Summary.EstimatedCost,
			PassThreshold:   assessment.Summary.PassThreshold,
			CreatedBy:       actor,
			Checks:          checkRows(assessment.Results),
		}
		if err := tx.Omit("SiteSpec", "ScannerModel").Create(&report).Error; err != nil {
			return fmt.Errorf("create report: %w", err)
		}
		details := fmt.Sprintf("site=%d scanner=%q score=%.0f pass=%t critical=%d",
			site.ID, scanner.Name, report.ConformityScore, report.PassFail, report.CriticalIssues)
		if err := database.WriteAudit(tx, actor, "report", report.ID, "evaluate", details); err != nil {
			return fmt.Errorf("write audit: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	report.SiteSpec = site
	report.ScannerModel = scanner

	s.log.Info("conformity report created",
		zap.Uint("report_id", report.ID),
		zap.String("reference", report.Reference),
		zap.Uint("site_id", site.ID),
		zap.String("scanner", scanner.Name),
		zap.Float64("score", report.ConformityScore),
		zap.Bool("pass", report.PassFail),
	)

	s.notify(ctx, &report)
	return &report, nil
}

func (s *ReportService) notify(ctx context.Context, r *models.ConformityReport) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()

	ev := notify.ReportEvent{
		ReportID:       r.ID,
		Reference:      r.Reference,
		ProjectName:    r.SiteSpec.Project.Name,
		SiteName:       r.SiteSpec.DisplayName(),
		ScannerName:    r.ScannerModel.Name,
		Score:          r.ConformityScore,
		Pass:           r.PassFail,
		CriticalIssues: r.CriticalIssues,
		EstimatedCost:  r.EstimatedCost,
		CreatedAt:      r.CreatedAt,
		URL:            fmt.Sprintf("/reports/%d", r.ID),
	}
	if err := s.notifier.ReportCreated(ctx, ev); err != nil {
		s.log.Warn("report notification failed",
			zap.Uint("report_id", r.ID),
			zap.Error(err),
		)
	}
}

func checkRows(results []conformity.CheckResult) []models.ConformityCheck {
	rows := make([]models.ConformityCheck, 0, len(results))
	for i, r := range results {
		rows = append(rows, models.ConformityCheck{
			Position:        i,
			CheckID:         r.CheckID,
			Label:           r.Label,
			Severity:        string(r.Severity),
			Category:        string(r.Category),
			Passed:          r.Passed,
			Detail:          r.Detail,
			RemediationCost: r.RemediationCost,
		})
	}
	return rows
}

// Preview assesses an ad-hoc site against a stored scanner without
// persisting anything.
func (s *ReportService) Preview(ctx context.Context, spec conformity.SiteSpec, scannerID uint) (*models.ScannerModel, conformity.Assessment, error) {
	var scanner models.ScannerModel
	if err := s.db.WithContext(ctx).First(&scanner, scannerID).Error; err != nil {
		return nil, conformity.Assessment{}, notFound("scanner model", scannerID, err)
	}
	assessment, err := s.catalog.Assess(spec, scanner.Requirements())
	if err != nil {
		return nil, conformity.Assessment{}, err
	}
	return &scanner, assessment, nil
}

// Report loads a report with its checks in catalog order. Site, project and
// scanner are loaded even when soft-deleted.
func (s *ReportService) Report(ctx context.Context, id uint) (*models.ConformityReport, error) {
	var report models.ConformityReport
	err := s.db.WithContext(ctx).
		Preload("Checks", func(db *gorm.DB) *gorm.DB { return db.Order("position") }).
		Preload("SiteSpec", unscoped).
		Preload("SiteSpec.Project", unscoped).
		Preload("ScannerModel", unscoped).
		First(&report, id).Error
	if err != nil {
		return nil, notFound("report", id, err)
	}
	return &report, nil
}

// EnsureSiteEditable returns ErrSiteLocked once a site has been evaluated.
func (s *ReportService) EnsureSiteEditable(ctx context.Context, siteID uint) error {
	var n int64
	if err := s.db.WithContext(ctx).Model(&models.ConformityReport{}).
		Where("site_spec_id = ?", siteID).Count(&n).Error; err != nil {
		return fmt.Errorf("count reports: %w", err)
	}
	if n > 0 {
		return ErrSiteLocked
	}
	return nil
}

// UpdateSite saves an edited site. The report count and the update run in
// one transaction under a row lock, so a site evaluated in the meantime is
// rejected with ErrSiteLocked.
func (s *ReportService) UpdateSite(ctx context.Context, site *models.SiteSpecification, actor string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current models.SiteSpecification
		if err := lockRow(tx).First(&current, site.ID).Error; err != nil {
			return notFound("site specification", site.ID, err)
		}

		var n int64
		if err := tx.Model(&models.ConformityReport{}).
			Where("site_spec_id = ?", site.ID).Count(&n).Error; err != nil {
			return fmt.Errorf("count reports: %w", err)
		}
		if n > 0 {
			return ErrSiteLocked
		}

		if err := tx.Omit("Project", "Reports").Save(site).Error; err != nil {
			return fmt.Errorf("save site: %w", err)
		}
		if err := database.WriteAudit(tx, actor, "site", site.ID, "update", "Site specification updated: "+site.DisplayName()); err != nil {
			return fmt.Errorf("write audit: %w", err)
		}
		return nil
	})
}

// MatrixEntry is one scanner's outcome for a site.
type MatrixEntry struct {
	ScannerID    uint               `json:"scanner_id"`
	ScannerName  string             `json:"scanner"`
	Manufacturer string             `json:"manufacturer"`
	Summary      conformity.Summary `json:"summary"`
}

// Matrix evaluates the site against every scanner in the catalog. Passing
// scanners come first, then by descending score.
func (s *ReportService) Matrix(ctx context.Context, siteID uint) ([]MatrixEntry, error) {
	var site models.SiteSpecification
	if err := s.db.WithContext(ctx).First(&site, siteID).Error; err != nil {
		return nil, notFound("site specification", siteID, err)
	}
	stamp := site.UpdatedAt.UnixNano()

	var entries []MatrixEntry
	hit, err := s.cache.Get(ctx, site.ID, stamp, &entries)
	if err != nil {
		s.log.Warn("matrix cache read failed", zap.Uint("site_id", site.ID), zap.Error(err))
	}
	if hit {
		return entries, nil
	}

	var scanners []models.ScannerModel
	if err := s.db.WithContext(ctx).Order("name").Find(&scanners).Error; err != nil {
		return nil, fmt.Errorf("list scanners: %w", err)
	}

	entries = make([]MatrixEntry, 0, len(scanners))
	for _, sc := range scanners {
		a, err := s.catalog.Assess(site.Spec(), sc.Requirements())
		if err != nil {
			return nil, err
		}
		entries = append(entries, MatrixEntry{
			ScannerID:    sc.ID,
			ScannerName:  sc.Name,
			Manufacturer: sc.Manufacturer,
			Summary:      a.Summary,
		})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i].Summary, entries[j].Summary
		if a.Pass != b.Pass {
			return a.Pass
		}
		return a.Score > b.Score
	})

	if err := s.cache.Set(ctx, site.ID, stamp, entries); err != nil {
		s.log.Warn("matrix cache write failed", zap.Uint("site_id", site.ID), zap.Error(err))
	}
	return entries, nil
}

// InvalidateCatalog must be called after any scanner model change.
func (s *ReportService) InvalidateCatalog(ctx context.Context) {
	if err := s.cache.BumpCatalog(ctx); err != nil {
		s.log.Warn("matrix cache invalidation failed", zap.Error(err))
	}
}

// ActiveSites limits a site query to sites whose project is not deleted.
func ActiveSites(db *gorm.DB) *gorm.DB {
	return db.Joins("JOIN projects ON projects.id = site_specifications.project_id AND projects.deleted_at IS NULL")
}

// lockRow selects FOR UPDATE where the dialect supports it.
func lockRow(tx *gorm.DB) *gorm.DB {
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

func unscoped(db *gorm.DB) *gorm.DB {
	return db.Unscoped()
}

func notFound(what string, id uint, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s %d: %w", what, id, ErrNotFound)
	}
	return fmt.Errorf("load %s %d: %w", what, id, err)
}
