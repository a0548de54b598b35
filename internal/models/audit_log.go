package models

import "time"

type AuditLog struct {
	ID        uint      `gorm:"primaryKey"`
	CreatedAt time.Time `gorm:"index"`

	Actor    string `gorm:"size:100"`
	Entity   string `gorm:"size:50;not null;index:idx_audit_entity"` // "project", "site", "scanner", "report"
	EntityID uint   `gorm:"index:idx_audit_entity"`
	Action   string `gorm:"size:50;not null"` // "create", "status_change", "evaluate" ...
	Details  string `gorm:"type:text"`
}
