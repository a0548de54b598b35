package handlers

import (
	"net/http"

	"ct-preinstall/internal/database"
	"ct-preinstall/internal/models"

	"github.com/gin-gonic/gin"
)

var auditEntities = []string{"project", "site", "scanner", "report"}

func ListAuditLogs(c *gin.Context) {
	entity := c.Query("entity")
	actor := c.Query("actor")

	dbq := database.DB.Order("created_at desc").Limit(200)
	if entity != "" {
		dbq = dbq.Where("entity = ?", entity)
	}
	if actor != "" {
		dbq = dbq.Where("actor = ?", actor)
	}

	var logs []models.AuditLog
	dbq.Find(&logs)

	render(c, http.StatusOK, "audit_list.html", gin.H{
		"logs":         logs,
		"entities":     auditEntities,
		"FilterEntity": entity,
		"FilterActor":  actor,
	})
}
