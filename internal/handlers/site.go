package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"ct-preinstall/internal/conformity"
	"ct-preinstall/internal/database"
	"ct-preinstall/internal/middleware"
	"ct-preinstall/internal/models"
	"ct-preinstall/internal/service"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

//
// CREATE
//

func ShowNewSite(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var project models.Project
	if err := database.DB.First(&project, id).Error; err != nil {
		c.String(http.StatusNotFound, "project not found")
		return
	}

	render(c, http.StatusOK, "sites_form.html", gin.H{
		"project": project,
		"site":    models.SiteSpecification{ProjectID: project.ID},
		"error":   "",
	})
}

func CreateSite(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var project models.Project
	if err := database.DB.First(&project, id).Error; err != nil {
		c.String(http.StatusNotFound, "project not found")
		return
	}

	site := models.SiteSpecification{ProjectID: project.ID}
	if msg := bindSiteForm(c, &site); msg != "" {
		renderSiteError(c, project, site, msg)
		return
	}

	if err := database.DB.Omit("Project").Create(&site).Error; err != nil {
		_ = c.Error(err)
		renderSiteError(c, project, site, "failed to save site specification")
		return
	}

	database.CreateAuditLog(middleware.Actor(c), "site", site.ID, "create",
		fmt.Sprintf("Site specification created: %s (%.2f x %.2f x %.2f m)", site.DisplayName(), site.RoomLength, site.RoomWidth, site.RoomHeight))

	redirectWithFlash(c, fmt.Sprintf("/sites/%d", site.ID), "Site specification created")
}

// bindSiteForm fills the site from the form and validates it the same way
// the evaluator will.
func bindSiteForm(c *gin.Context, s *models.SiteSpecification) string {
	s.Name = strings.TrimSpace(c.PostForm("name"))
	s.ElectricalPower = strings.TrimSpace(c.PostForm("electrical_power"))
	s.HVACSystem = strings.TrimSpace(c.PostForm("hvac_system"))
	s.Notes = strings.TrimSpace(c.PostForm("notes"))

	var problems []string
	numbers := []struct {
		field string
		dst   **float64
	}{
		{"door_width", &s.DoorWidth},
		{"door_height", &s.DoorHeight},
		{"floor_capacity", &s.FloorCapacity},
	}
	for _, n := range numbers {
		v, err := formFloat(c, n.field)
		if err != nil {
			problems = append(problems, err.Error())
			continue
		}
		*n.dst = v
	}

	mandatory := []struct {
		field string
		dst   *float64
	}{
		{"room_length", &s.RoomLength},
		{"room_width", &s.RoomWidth},
		{"room_height", &s.RoomHeight},
	}
	for _, m := range mandatory {
		v, err := formFloat(c, m.field)
		if err != nil {
			problems = append(problems, err.Error())
			continue
		}
		*m.dst = value(v)
	}

	if len(problems) > 0 {
		return strings.Join(problems, "; ")
	}

	if _, err := conformity.Normalize(s.Spec()); err != nil {
		var verr *conformity.ValidationError
		if errors.As(err, &verr) {
			for _, f := range verr.Fields {
				problems = append(problems, f.Field+" "+f.Reason)
			}
			return strings.Join(problems, "; ")
		}
		return err.Error()
	}
	return ""
}

func renderSiteError(c *gin.Context, project models.Project, site models.SiteSpecification, msg string) {
	render(c, http.StatusBadRequest, "sites_form.html", gin.H{
		"project": project,
		"site":    site,
		"error":   msg,
	})
}

//
// DETAIL + COMPATIBILITY MATRIX
//

func ShowSite(svc *service.ReportService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}

		var site models.SiteSpecification
		err := database.DB.
			Preload("Project", func(db *gorm.DB) *gorm.DB { return db.Unscoped() }).
			Preload("Reports", func(db *gorm.DB) *gorm.DB { return db.Order("created_at desc") }).
			Preload("Reports.ScannerModel", func(db *gorm.DB) *gorm.DB { return db.Unscoped() }).
			First(&site, id).Error
		if err != nil {
			c.String(http.StatusNotFound, "site specification not found")
			return
		}

		data := gin.H{
			"site":   site,
			"locked": len(site.Reports) > 0,
		}

		matrix, err := svc.Matrix(c.Request.Context(), site.ID)
		if err != nil {
			_ = c.Error(err)
			data["matrixError"] = err.Error()
		}
		data["matrix"] = matrix

		var scanners []models.ScannerModel
		database.DB.Order("name asc").Find(&scanners)
		data["scanners"] = scanners

		render(c, http.StatusOK, "site_detail.html", data)
	}
}

//
// EDIT / DELETE
//

func ShowEditSite(svc *service.ReportService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}

		var site models.SiteSpecification
		if err := database.DB.Preload("Project").First(&site, id).Error; err != nil {
			c.String(http.StatusNotFound, "site specification not found")
			return
		}
		if err := svc.EnsureSiteEditable(c.Request.Context(), site.ID); err != nil {
			renderServiceError(c, err)
			return
		}

		render(c, http.StatusOK, "sites_form.html", gin.H{
			"project": site.Project,
			"site":    site,
			"error":   "",
		})
	}
}

func UpdateSite(svc *service.ReportService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}

		var site models.SiteSpecification
		if err := database.DB.Preload("Project").First(&site, id).Error; err != nil {
			c.String(http.StatusNotFound, "site specification not found")
			return
		}
		if err := svc.EnsureSiteEditable(c.Request.Context(), site.ID); err != nil {
			renderServiceError(c, err)
			return
		}

		if msg := bindSiteForm(c, &site); msg != "" {
			renderSiteError(c, site.Project, site, msg)
			return
		}

		if err := svc.UpdateSite(c.Request.Context(), &site, middleware.Actor(c)); err != nil {
			if errors.Is(err, service.ErrSiteLocked) || errors.Is(err, service.ErrNotFound) {
				renderServiceError(c, err)
				return
			}
			_ = c.Error(err)
			renderSiteError(c, site.Project, site, "failed to save site specification")
			return
		}

		redirectWithFlash(c, fmt.Sprintf("/sites/%d", site.ID), "Site specification updated")
	}
}

func DeleteSite(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var site models.SiteSpecification
	if err := database.DB.First(&site, id).Error; err != nil {
		c.String(http.StatusNotFound, "site specification not found")
		return
	}

	if err := database.DB.Delete(&site).Error; err != nil {
		_ = c.Error(err)
		c.String(http.StatusInternalServerError, "failed to delete site specification")
		return
	}

	database.CreateAuditLog(middleware.Actor(c), "site", site.ID, "delete", "Site specification deleted: "+site.DisplayName())

	redirectWithFlash(c, fmt.Sprintf("/projects/%d", site.ProjectID), "Site specification deleted")
}
