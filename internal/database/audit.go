package database

import (
	"ct-preinstall/internal/models"

	"gorm.io/gorm"
)

// WriteAudit records an audit entry inside the caller's transaction.
func WriteAudit(tx *gorm.DB, actor, entity string, entityID uint, action, details string) error {
	record := models.AuditLog{
		Actor:    actor,
		Entity:   entity,
		EntityID: entityID,
		Action:   action,
		Details:  details,
	}
	return tx.Create(&record).Error
}

// CreateAuditLog is the best-effort variant used by plain CRUD handlers.
func CreateAuditLog(actor, entity string, entityID uint, action, details string) {
	if DB == nil {
		return
	}
	_ = WriteAudit(DB, actor, entity, entityID, action, details)
}
