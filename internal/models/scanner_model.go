package models

import (
	"ct-preinstall/internal/conformity"

	"gorm.io/gorm"
)

// ScannerModel is a catalog entry with the manufacturer's installation
// requirements.
type ScannerModel struct {
	gorm.Model
	Name         string `gorm:"size:100;not null"`
	Manufacturer string `gorm:"size:100;index"`

	Weight        *float64 // kg
	MinRoomLength *float64 // m
	MinRoomWidth  *float64 // m
	MinRoomHeight *float64 // m
	MinDoorWidth  *float64 // m

	PowerRequirement    string `gorm:"size:50"`
	SpecialRequirements string `gorm:"type:text"`
}

func (m ScannerModel) DisplayName() string {
	if m.Manufacturer == "" {
		return m.Name
	}
	return m.Name + " (" + m.Manufacturer + ")"
}

func (m ScannerModel) Requirements() conformity.Scanner {
	return conformity.Scanner{
		Name:                m.Name,
		Manufacturer:        m.Manufacturer,
		Weight:              m.Weight,
		MinRoomLength:       m.MinRoomLength,
		MinRoomWidth:        m.MinRoomWidth,
		MinRoomHeight:       m.MinRoomHeight,
		MinDoorWidth:        m.MinDoorWidth,
		PowerRequirement:    m.PowerRequirement,
		SpecialRequirements: m.SpecialRequirements,
	}
}
