package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"ct-preinstall/internal/database"
	"ct-preinstall/internal/middleware"
	"ct-preinstall/internal/models"
	"ct-preinstall/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

//
// CATALOG
//

func ListScanners(c *gin.Context) {
	search := strings.TrimSpace(c.Query("q"))
	manufacturer := c.Query("manufacturer")

	dbq := database.DB.Order("manufacturer asc, name asc")
	if search != "" {
		like := "%" + strings.ToLower(search) + "%"
		dbq = dbq.Where("LOWER(name) LIKE ? OR LOWER(manufacturer) LIKE ?", like, like)
	}
	if manufacturer != "" {
		dbq = dbq.Where("manufacturer = ?", manufacturer)
	}

	var scanners []models.ScannerModel
	if err := dbq.Find(&scanners).Error; err != nil {
		_ = c.Error(err)
		c.String(http.StatusInternalServerError, "failed to load scanner models")
		return
	}

	var manufacturers []string
	database.DB.Model(&models.ScannerModel{}).
		Where("manufacturer <> ''").
		Distinct().
		Order("manufacturer asc").
		Pluck("manufacturer", &manufacturers)

	render(c, http.StatusOK, "scanners_list.html", gin.H{
		"scanners":           scanners,
		"manufacturers":      manufacturers,
		"FilterQuery":        search,
		"FilterManufacturer": manufacturer,
	})
}

func ShowNewScanner(c *gin.Context) {
	render(c, http.StatusOK, "scanners_form.html", gin.H{
		"scanner": models.ScannerModel{},
		"error":   "",
	})
}

func CreateScanner(svc *service.ReportService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var scanner models.ScannerModel
		if msg := bindScannerForm(c, &scanner); msg != "" {
			renderScannerError(c, scanner, msg)
			return
		}

		if err := database.DB.Create(&scanner).Error; err != nil {
			_ = c.Error(err)
			renderScannerError(c, scanner, "failed to save scanner model")
			return
		}
		svc.InvalidateCatalog(c.Request.Context())

		database.CreateAuditLog(middleware.Actor(c), "scanner", scanner.ID, "create", "Scanner model created: "+scanner.Name)

		redirectWithFlash(c, "/scanners", "Scanner model created")
	}
}

// bindScannerForm fills the model from the form and returns a user-facing
// message when the input is invalid.
func bindScannerForm(c *gin.Context, s *models.ScannerModel) string {
	s.Name = strings.TrimSpace(c.PostForm("name"))
	s.Manufacturer = strings.TrimSpace(c.PostForm("manufacturer"))
	s.PowerRequirement = strings.TrimSpace(c.PostForm("power_requirement"))
	s.SpecialRequirements = strings.TrimSpace(c.PostForm("special_requirements"))

	numbers := []struct {
		field string
		dst   **float64
	}{
		{"weight", &s.Weight},
		{"min_room_length", &s.MinRoomLength},
		{"min_room_width", &s.MinRoomWidth},
		{"min_room_height", &s.MinRoomHeight},
		{"min_door_width", &s.MinDoorWidth},
	}
	var problems []string
	for _, n := range numbers {
		v, err := formPositive(c, n.field)
		if err != nil {
			problems = append(problems, err.Error())
			continue
		}
		*n.dst = v
	}

	if len([]rune(s.Name)) < 2 {
		problems = append([]string{"name must be at least 2 characters"}, problems...)
	}
	if len(problems) > 0 {
		return strings.Join(problems, "; ")
	}

	// --- NAME UNIQUENESS ---
	var count int64
	q := database.DB.Model(&models.ScannerModel{}).Where("LOWER(name) = LOWER(?)", s.Name)
	if s.ID != 0 {
		q = q.Where("id <> ?", s.ID)
	}
	q.Count(&count)
	if count > 0 {
		return "a scanner model with this name already exists"
	}
	return ""
}

func renderScannerError(c *gin.Context, scanner models.ScannerModel, msg string) {
	render(c, http.StatusBadRequest, "scanners_form.html", gin.H{
		"scanner": scanner,
		"error":   msg,
	})
}

//
// EDIT / DELETE
//

func ShowEditScanner(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var scanner models.ScannerModel
	if err := database.DB.First(&scanner, id).Error; err != nil {
		c.String(http.StatusNotFound, "scanner model not found")
		return
	}

	render(c, http.StatusOK, "scanners_form.html", gin.H{
		"scanner": scanner,
		"error":   "",
	})
}

func UpdateScanner(svc *service.ReportService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}

		var scanner models.ScannerModel
		if err := database.DB.First(&scanner, id).Error; err != nil {
			c.String(http.StatusNotFound, "scanner model not found")
			return
		}

		if msg := bindScannerForm(c, &scanner); msg != "" {
			renderScannerError(c, scanner, msg)
			return
		}

		if err := database.DB.Save(&scanner).Error; err != nil {
			_ = c.Error(err)
			renderScannerError(c, scanner, "failed to save scanner model")
			return
		}
		svc.InvalidateCatalog(c.Request.Context())

		database.CreateAuditLog(middleware.Actor(c), "scanner", scanner.ID, "update", "Scanner model updated: "+scanner.Name)

		redirectWithFlash(c, "/scanners", "Scanner model updated")
	}
}

func DeleteScanner(svc *service.ReportService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}

		var scanner models.ScannerModel
		if err := database.DB.First(&scanner, id).Error; err != nil {
			c.String(http.StatusNotFound, "scanner model not found")
			return
		}

		if err := database.DB.Delete(&scanner).Error; err != nil {
			_ = c.Error(err)
			c.String(http.StatusInternalServerError, "failed to delete scanner model")
			return
		}
		svc.InvalidateCatalog(c.Request.Context())

		database.CreateAuditLog(middleware.Actor(c), "scanner", scanner.ID, "delete", "Scanner model deleted: "+scanner.Name)

		redirectWithFlash(c, "/scanners", "Scanner model deleted")
	}
}

// SeedScanners adds the reference models that are missing from the catalog.
func SeedScanners(svc *service.ReportService) gin.HandlerFunc {
	return func(c *gin.Context) {
		n, err := database.SeedScanners(database.DB, zap.L())
		if err != nil {
			_ = c.Error(err)
			c.String(http.StatusInternalServerError, "failed to seed scanner models")
			return
		}
		if n > 0 {
			svc.InvalidateCatalog(c.Request.Context())
			database.CreateAuditLog(middleware.Actor(c), "scanner", 0, "seed", fmt.Sprintf("Reference models added: %d", n))
		}

		redirectWithFlash(c, "/scanners", fmt.Sprintf("%d reference model(s) added", n))
	}
}
