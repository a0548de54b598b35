package models

import (
	"time"

	"ct-preinstall/internal/conformity"
)

// ConformityReport is written once per evaluation and never updated;
// re-evaluating a pair creates a new report.
type ConformityReport struct {
	ID        uint      `gorm:"primaryKey"`
	CreatedAt time.Time `gorm:"index"`
	Reference string    `gorm:"size:36;uniqueIndex;not null"`

	SiteSpecID     uint `gorm:"not null;index"`
	SiteSpec       SiteSpecification
	ScannerModelID uint `gorm:"not null;index"`
	ScannerModel   ScannerModel

	EvaluationText  string `gorm:"type:text"`
	ConformityScore float64
	PassFail        bool
	CriticalIssues  int
	EstimatedCost   float64
	PassThreshold   float64 // threshold in force when the report was produced
	CreatedBy       string  `gorm:"size:100"`

	Checks []ConformityCheck `gorm:"foreignKey:ReportID"`
}

// ConformityCheck is one row of a report's check list, kept in catalog order.
type ConformityCheck struct {
	ID       uint `gorm:"primaryKey"`
	ReportID uint `gorm:"not null;index"`
	Position int  `gorm:"not null"`

	CheckID         string `gorm:"size:64;not null"`
	Label           string `gorm:"size:255"`
	Severity        string `gorm:"size:16"`
	Category        string `gorm:"size:32"`
	Passed          *bool
	Detail          string `gorm:"type:text"`
	RemediationCost float64
}

func (c ConformityCheck) Outcome() string {
	return c.Result().Outcome()
}

func (c ConformityCheck) Result() conformity.CheckResult {
	return conformity.CheckResult{
		CheckID:         c.CheckID,
		Label:           c.Label,
		Severity:        conformity.Severity(c.Severity),
		Category:        conformity.Category(c.Category),
		Passed:          c.Passed,
		Detail:          c.Detail,
		RemediationCost: c.RemediationCost,
	}
}
