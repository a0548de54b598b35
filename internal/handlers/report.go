package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"ct-preinstall/internal/conformity"
	"ct-preinstall/internal/database"
	"ct-preinstall/internal/middleware"
	"ct-preinstall/internal/models"
	"ct-preinstall/internal/service"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func unscoped(db *gorm.DB) *gorm.DB {
	return db.Unscoped()
}

//
// REPORT LIST
//

func ListReports(c *gin.Context) {
	result := c.Query("result")
	scannerID := queryID(c, "scanner_id")
	siteID := queryID(c, "site_id")

	dbq := database.DB.
		Preload("SiteSpec", unscoped).
		Preload("SiteSpec.Project", unscoped).
		Preload("ScannerModel", unscoped).
		Order("created_at desc").
		Limit(200)

	switch result {
	case "pass":
		dbq = dbq.Where("pass_fail = ?", true)
	case "fail":
		dbq = dbq.Where("pass_fail = ?", false)
	}
	if scannerID > 0 {
		dbq = dbq.Where("scanner_model_id = ?", scannerID)
	}
	if siteID > 0 {
		dbq = dbq.Where("site_spec_id = ?", siteID)
	}

	var reports []models.ConformityReport
	if err := dbq.Find(&reports).Error; err != nil {
		_ = c.Error(err)
		c.String(http.StatusInternalServerError, "failed to load reports")
		return
	}

	var scanners []models.ScannerModel
	database.DB.Unscoped().Order("name asc").Find(&scanners)

	render(c, http.StatusOK, "reports_list.html", gin.H{
		"reports":         reports,
		"scanners":        scanners,
		"FilterResult":    result,
		"FilterScannerID": scannerID,
		"FilterSiteID":    siteID,
	})
}

//
// EVALUATION
//

func ShowNewReport(c *gin.Context) {
	var sites []models.SiteSpecification
	database.DB.Scopes(service.ActiveSites).Preload("Project").
		Order("site_specifications.project_id asc, site_specifications.id asc").Find(&sites)

	var scanners []models.ScannerModel
	database.DB.Order("name asc").Find(&scanners)

	render(c, http.StatusOK, "reports_new.html", gin.H{
		"sites":          sites,
		"scanners":       scanners,
		"SelectedSiteID": queryID(c, "site_id"),
	})
}

func CreateReport(svc *service.ReportService) gin.HandlerFunc {
	return func(c *gin.Context) {
		siteID, err1 := strconv.ParseUint(c.PostForm("site_id"), 10, 64)
		scannerID, err2 := strconv.ParseUint(c.PostForm("scanner_id"), 10, 64)
		if err1 != nil || err2 != nil || siteID == 0 || scannerID == 0 {
			c.String(http.StatusBadRequest, "select a site specification and a scanner model")
			return
		}

		report, err := svc.Evaluate(c.Request.Context(), uint(siteID), uint(scannerID), middleware.Actor(c))
		if err != nil {
			renderServiceError(c, err)
			return
		}

		redirectWithFlash(c, fmt.Sprintf("/reports/%d", report.ID),
			fmt.Sprintf("Report created: %s, score %.0f/100", verdictLabel(report.PassFail), report.ConformityScore))
	}
}

func ShowReport(svc *service.ReportService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}

		report, err := svc.Report(c.Request.Context(), id)
		if err != nil {
			renderServiceError(c, err)
			return
		}

		render(c, http.StatusOK, "report_detail.html", gin.H{
			"report": report,
		})
	}
}

func verdictLabel(pass bool) string {
	if pass {
		return "PASS"
	}
	return "FAIL"
}

//
// JSON API
//

type evaluateRequest struct {
	ScannerID uint                `json:"scanner_id" binding:"required"`
	Site      conformity.SiteSpec `json:"site"`
}

// APIEvaluate assesses an ad-hoc site against a catalog scanner without
// storing anything.
func APIEvaluate(svc *service.ReportService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req evaluateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		scanner, assessment, err := svc.Preview(c.Request.Context(), req.Site, req.ScannerID)
		if err != nil {
			apiError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"scanner": gin.H{
				"id":           scanner.ID,
				"name":         scanner.Name,
				"manufacturer": scanner.Manufacturer,
			},
			"summary": assessment.Summary,
			"results": assessment.Results,
		})
	}
}

type reportJSON struct {
	ID             uint                     `json:"id"`
	Reference      string                   `json:"reference"`
	CreatedAt      time.Time                `json:"created_at"`
	CreatedBy      string                   `json:"created_by"`
	SiteID         uint                     `json:"site_id"`
	SiteName       string                   `json:"site"`
	ProjectName    string                   `json:"project"`
	ScannerID      uint                     `json:"scanner_id"`
	ScannerName    string                   `json:"scanner"`
	Score          float64                  `json:"conformity_score"`
	Pass           bool                     `json:"pass_fail"`
	CriticalIssues int                      `json:"critical_issues"`
	EstimatedCost  float64                  `json:"estimated_cost"`
	PassThreshold  float64                  `json:"pass_threshold"`
	EvaluationText string                   `json:"evaluation_text"`
	Checks         []conformity.CheckResult `json:"checks"`
}

func APIReport(svc *service.ReportService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseUint(c.Param("id"), 10, 64)
		if err != nil || id == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
			return
		}

		r, err := svc.Report(c.Request.Context(), uint(id))
		if err != nil {
			apiError(c, err)
			return
		}

		out := reportJSON{
			ID:             r.ID,
			Reference:      r.Reference,
			CreatedAt:      r.CreatedAt,
			CreatedBy:      r.CreatedBy,
			SiteID:         r.SiteSpecID,
			SiteName:       r.SiteSpec.DisplayName(),
			ProjectName:    r.SiteSpec.Project.Name,
			ScannerID:      r.ScannerModelID,
			ScannerName:    r.ScannerModel.Name,
			Score:          r.ConformityScore,
			Pass:           r.PassFail,
			CriticalIssues: r.CriticalIssues,
			EstimatedCost:  r.EstimatedCost,
			PassThreshold:  r.PassThreshold,
			EvaluationText: r.EvaluationText,
			Checks:         make([]conformity.CheckResult, 0, len(r.Checks)),
		}
		for _, chk := range r.Checks {
			out.Checks = append(out.Checks, chk.Result())
		}
		c.JSON(http.StatusOK, out)
	}
}

func apiError(c *gin.Context, err error) {
	status := errorStatus(err)
	body := gin.H{"error": err.Error()}

	var verr *conformity.ValidationError
	if errors.As(err, &verr) {
		body["fields"] = verr.Fields
	}
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		body["error"] = "internal error"
	}
	c.JSON(status, body)
}
