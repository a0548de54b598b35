package models

import "gorm.io/gorm"

type ProjectStatus string

const (
	StatusDraft      ProjectStatus = "draft"
	StatusSiteSurvey ProjectStatus = "site_survey"
	StatusEvaluation ProjectStatus = "evaluation"
	StatusApproved   ProjectStatus = "approved"
	StatusInstalled  ProjectStatus = "installed"
	StatusCancelled  ProjectStatus = "cancelled"
)

// ProjectStatuses is the lifecycle order used by forms and filters.
var ProjectStatuses = []ProjectStatus{
	StatusDraft,
	StatusSiteSurvey,
	StatusEvaluation,
	StatusApproved,
	StatusInstalled,
	StatusCancelled,
}

func (s ProjectStatus) Valid() bool {
	for _, st := range ProjectStatuses {
		if st == s {
			return true
		}
	}
	return false
}

type Project struct {
	gorm.Model
	Name         string        `gorm:"size:200;not null"`
	Description  string        `gorm:"type:text"`
	Status       ProjectStatus `gorm:"type:varchar(50);not null;default:draft"`
	ClientName   string        `gorm:"size:100"` // hospital / clinic
	EngineerName string        `gorm:"size:100"` // field engineer in charge

	SiteSpecs []SiteSpecification
}
