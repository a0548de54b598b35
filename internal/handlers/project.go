package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	"ct-preinstall/internal/database"
	"ct-preinstall/internal/middleware"
	"ct-preinstall/internal/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

//
// PROJECT LIST
//

func ListProjects(c *gin.Context) {
	search := strings.TrimSpace(c.Query("q"))
	statusStr := c.Query("status")

	dbq := database.DB.Preload("SiteSpecs").Order("created_at desc")

	if search != "" {
		like := "%" + strings.ToLower(search) + "%"
		dbq = dbq.Where("LOWER(name) LIKE ? OR LOWER(client_name) LIKE ? OR LOWER(engineer_name) LIKE ?", like, like, like)
	}
	if statusStr != "" {
		dbq = dbq.Where("status = ?", statusStr)
	}

	var projects []models.Project
	if err := dbq.Find(&projects).Error; err != nil {
		_ = c.Error(err)
		c.String(http.StatusInternalServerError, "failed to load projects")
		return
	}

	render(c, http.StatusOK, "projects_list.html", gin.H{
		"projects":     projects,
		"statuses":     models.ProjectStatuses,
		"FilterQuery":  search,
		"FilterStatus": statusStr,
	})
}

//
// CREATE
//

func ShowNewProject(c *gin.Context) {
	render(c, http.StatusOK, "projects_form.html", gin.H{
		"project": models.Project{Status: models.StatusDraft},
		"error":   "",
	})
}

func CreateProject(c *gin.Context) {
	project := models.Project{Status: models.StatusDraft}
	bindProjectForm(c, &project)

	if msg := validateProject(project); msg != "" {
		renderProjectError(c, project, msg)
		return
	}

	if err := database.DB.Create(&project).Error; err != nil {
		_ = c.Error(err)
		renderProjectError(c, project, "failed to save project")
		return
	}

	database.CreateAuditLog(middleware.Actor(c), "project", project.ID, "create", "Project created: "+project.Name)

	redirectWithFlash(c, fmt.Sprintf("/projects/%d", project.ID), "Project created")
}

func bindProjectForm(c *gin.Context, p *models.Project) {
	p.Name = strings.TrimSpace(c.PostForm("name"))
	p.Description = strings.TrimSpace(c.PostForm("description"))
	p.ClientName = strings.TrimSpace(c.PostForm("client_name"))
	p.EngineerName = strings.TrimSpace(c.PostForm("engineer_name"))
}

func validateProject(p models.Project) string {
	if utf8.RuneCountInString(p.Name) < 3 {
		return "Project name must be at least 3 characters"
	}
	if utf8.RuneCountInString(p.Name) > 200 {
		return "Project name must be at most 200 characters"
	}
	return ""
}

func renderProjectError(c *gin.Context, project models.Project, msg string) {
	render(c, http.StatusBadRequest, "projects_form.html", gin.H{
		"project": project,
		"error":   msg,
	})
}

//
// DETAIL
//

func ShowProject(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var project models.Project
	err := database.DB.
		Preload("SiteSpecs", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Preload("SiteSpecs.Reports", func(db *gorm.DB) *gorm.DB { return db.Order("created_at desc") }).
		Preload("SiteSpecs.Reports.ScannerModel", func(db *gorm.DB) *gorm.DB { return db.Unscoped() }).
		First(&project, id).Error
	if err != nil {
		c.String(http.StatusNotFound, "project not found")
		return
	}

	render(c, http.StatusOK, "project_detail.html", gin.H{
		"project":  project,
		"statuses": nextStatuses(project.Status),
	})
}

//
// STATUS CHANGE
//

func ChangeProjectStatus(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var project models.Project
	if err := database.DB.First(&project, id).Error; err != nil {
		c.String(http.StatusNotFound, "project not found")
		return
	}

	newStatus := models.ProjectStatus(c.PostForm("status"))
	if !newStatus.Valid() {
		c.String(http.StatusBadRequest, "invalid status")
		return
	}

	if !canChangeProjectStatus(project.Status, newStatus) {
		c.String(http.StatusConflict, "cannot move project from %s to %s", project.Status, newStatus)
		return
	}

	old := project.Status
	if err := database.DB.Model(&project).Update("status", newStatus).Error; err != nil {
		_ = c.Error(err)
		c.String(http.StatusInternalServerError, "failed to update status")
		return
	}

	database.CreateAuditLog(middleware.Actor(c), "project", project.ID, "status_change",
		fmt.Sprintf("Status changed: %s -> %s", old, newStatus))

	redirectWithFlash(c, fmt.Sprintf("/projects/%d", project.ID), "Status changed to "+string(newStatus))
}

// canChangeProjectStatus allows one step forward along the lifecycle, any
// step back, and cancellation of a project that is not finished.
func canChangeProjectStatus(current, next models.ProjectStatus) bool {
	if current == next {
		return false
	}
	if current == models.StatusInstalled || current == models.StatusCancelled {
		return false
	}
	if next == models.StatusCancelled {
		return true
	}

	cur, nxt := lifecycleIndex(current), lifecycleIndex(next)
	if cur < 0 || nxt < 0 {
		return false
	}
	return nxt <= cur+1
}

func lifecycleIndex(s models.ProjectStatus) int {
	for i, st := range models.ProjectStatuses {
		if st == models.StatusCancelled {
			break
		}
		if st == s {
			return i
		}
	}
	return -1
}

func nextStatuses(current models.ProjectStatus) []models.ProjectStatus {
	var out []models.ProjectStatus
	for _, s := range models.ProjectStatuses {
		if canChangeProjectStatus(current, s) {
			out = append(out, s)
		}
	}
	return out
}

//
// EDIT
//

func ShowEditProject(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var project models.Project
	if err := database.DB.First(&project, id).Error; err != nil {
		c.String(http.StatusNotFound, "project not found")
		return
	}

	render(c, http.StatusOK, "projects_form.html", gin.H{
		"project": project,
		"error":   "",
	})
}

func UpdateProject(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var project models.Project
	if err := database.DB.First(&project, id).Error; err != nil {
		c.String(http.StatusNotFound, "project not found")
		return
	}

	bindProjectForm(c, &project)
	if msg := validateProject(project); msg != "" {
		renderProjectError(c, project, msg)
		return
	}

	if err := database.DB.Save(&project).Error; err != nil {
		_ = c.Error(err)
		renderProjectError(c, project, "failed to save project")
		return
	}

	database.CreateAuditLog(middleware.Actor(c), "project", project.ID, "update", "Project updated: "+project.Name)

	redirectWithFlash(c, fmt.Sprintf("/projects/%d", project.ID), "Project updated")
}

//
// DELETE
//

func DeleteProject(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var project models.Project
	if err := database.DB.First(&project, id).Error; err != nil {
		c.String(http.StatusNotFound, "project not found")
		return
	}

	if err := database.DB.Delete(&project).Error; err != nil {
		_ = c.Error(err)
		c.String(http.StatusInternalServerError, "failed to delete project")
		return
	}

	database.CreateAuditLog(middleware.Actor(c), "project", project.ID, "delete", "Project deleted: "+project.Name)

	redirectWithFlash(c, "/projects", "Project deleted")
}

//
// HISTORY
//

func ShowProjectHistory(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var project models.Project
	if err := database.DB.Unscoped().First(&project, id).Error; err != nil {
		c.String(http.StatusNotFound, "project not found")
		return
	}

	var siteIDs []uint
	database.DB.Unscoped().Model(&models.SiteSpecification{}).Where("project_id = ?", id).Pluck("id", &siteIDs)

	dbq := database.DB.Where("entity = ? AND entity_id = ?", "project", id)
	if len(siteIDs) > 0 {
		dbq = dbq.Or("entity = ? AND entity_id IN ?", "site", siteIDs)
	}

	var logs []models.AuditLog
	dbq.Order("created_at asc").Find(&logs)

	render(c, http.StatusOK, "project_history.html", gin.H{
		"project": project,
		"logs":    logs,
	})
}
