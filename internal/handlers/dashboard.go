package handlers

import (
	"net/http"

	"ct-preinstall/internal/database"
	"ct-preinstall/internal/models"

	"github.com/gin-gonic/gin"
)

const recentLimit = 5

func Dashboard(c *gin.Context) {
	var projectCount, scannerCount, siteCount, reportCount int64
	database.DB.Model(&models.Project{}).Count(&projectCount)
	database.DB.Model(&models.ScannerModel{}).Count(&scannerCount)
	database.DB.Model(&models.SiteSpecification{}).Count(&siteCount)
	database.DB.Model(&models.ConformityReport{}).Count(&reportCount)

	var projects []models.Project
	database.DB.Order("created_at desc").Limit(recentLimit).Find(&projects)

	var reports []models.ConformityReport
	database.DB.
		Preload("SiteSpec", unscoped).
		Preload("SiteSpec.Project", unscoped).
		Preload("ScannerModel", unscoped).
		Order("created_at desc").
		Limit(recentLimit).
		Find(&reports)

	render(c, http.StatusOK, "dashboard.html", gin.H{
		"ProjectCount":   projectCount,
		"ScannerCount":   scannerCount,
		"SiteCount":      siteCount,
		"ReportCount":    reportCount,
		"recentProjects": projects,
		"recentReports":  reports,
	})
}
