package handlers

import (
	"fmt"
	"net/http"
	"time"

	"ct-preinstall/internal/database"
	"ct-preinstall/internal/export"
	"ct-preinstall/internal/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

//
// XLSX EXPORT
//

func ExportProjects(c *gin.Context) {
	var projects []models.Project
	if err := database.DB.Preload("SiteSpecs").Order("created_at desc").Find(&projects).Error; err != nil {
		exportFailed(c, err)
		return
	}
	sendWorkbook(c, "projects", export.ProjectsSheet(projects))
}

func ExportScanners(c *gin.Context) {
	var scanners []models.ScannerModel
	if err := database.DB.Order("manufacturer asc, name asc").Find(&scanners).Error; err != nil {
		exportFailed(c, err)
		return
	}
	sendWorkbook(c, "scanners", export.ScannersSheet(scanners))
}

func ExportReports(c *gin.Context) {
	var reports []models.ConformityReport
	err := database.DB.
		Preload("Checks", func(db *gorm.DB) *gorm.DB { return db.Order("position") }).
		Preload("SiteSpec", unscoped).
		Preload("SiteSpec.Project", unscoped).
		Preload("ScannerModel", unscoped).
		Order("created_at desc").
		Find(&reports).Error
	if err != nil {
		exportFailed(c, err)
		return
	}
	sendWorkbook(c, "reports", export.ReportSheets(reports)...)
}

func sendWorkbook(c *gin.Context, name string, sheets ...export.Sheet) {
	data, err := export.Workbook(sheets...)
	if err != nil {
		exportFailed(c, err)
		return
	}
	filename := fmt.Sprintf("%s_%s.xlsx", name, time.Now().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, export.ContentType, data)
}

func exportFailed(c *gin.Context, err error) {
	_ = c.Error(err)
	c.String(http.StatusInternalServerError, "export failed")
}
