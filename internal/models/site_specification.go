package models

import (
	"fmt"

	"ct-preinstall/internal/conformity"

	"gorm.io/gorm"
)

// SiteSpecification describes the scanner room of a project. Lengths are
// meters, floor capacity is kg/m². Nil pointers are "not measured yet".
type SiteSpecification struct {
	gorm.Model
	ProjectID uint `gorm:"not null;index"`
	Project   Project

	Name string `gorm:"size:150"` // "CT room 1", "basement, east wing"

	RoomLength float64 `gorm:"not null"`
	RoomWidth  float64 `gorm:"not null"`
	RoomHeight float64 `gorm:"not null"`
	DoorWidth  *float64
	DoorHeight *float64

	FloorCapacity   *float64
	ElectricalPower string `gorm:"size:100"`
	HVACSystem      string `gorm:"size:100"`
	Notes           string `gorm:"type:text"`

	Reports []ConformityReport `gorm:"foreignKey:SiteSpecID"`
}

func (s SiteSpecification) DisplayName() string {
	if s.Name != "" {
		return s.Name
	}
	if s.Project.Name != "" {
		return "Site spec for " + s.Project.Name
	}
	return fmt.Sprintf("Site spec #%d", s.ID)
}

// Spec converts the record into engine input.
func (s SiteSpecification) Spec() conformity.SiteSpec {
	return conformity.SiteSpec{
		RoomLength:      s.RoomLength,
		RoomWidth:       s.RoomWidth,
		RoomHeight:      s.RoomHeight,
		DoorWidth:       s.DoorWidth,
		DoorHeight:      s.DoorHeight,
		FloorCapacity:   s.FloorCapacity,
		ElectricalPower: s.ElectricalPower,
		HVACSystem:      s.HVACSystem,
		Notes:           s.Notes,
	}
}
