package database

import (
	"fmt"

	"ct-preinstall/internal/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

func ptr(v float64) *float64 { return &v }

// DefaultScanners is the reference catalog shipped with the application.
func DefaultScanners() []models.ScannerModel {
	return []models.ScannerModel{
		{
			Name:                "NeuViz ACE",
			Manufacturer:        "Neusoft Medical Systems",
			Weight:              ptr(1400),
			MinRoomLength:       ptr(6.5),
			MinRoomWidth:        ptr(4.2),
			MinRoomHeight:       ptr(2.43),
			MinDoorWidth:        ptr(1.2),
			PowerRequirement:    "380V 50kVA",
			SpecialRequirements: "Neusoft engineer required, Enhanced grounding, Temperature ±4.1°C/h, NPS-CT-0651 compliance",
		},
		{
			Name:                "NeuViz ACE SP",
			Manufacturer:        "Neusoft Medical Systems",
			Weight:              ptr(1450),
			MinRoomLength:       ptr(6.8),
			MinRoomWidth:        ptr(4.5),
			MinRoomHeight:       ptr(2.43),
			MinDoorWidth:        ptr(1.2),
			PowerRequirement:    "380V 55kVA",
			SpecialRequirements: "Neusoft engineer required, Enhanced grounding, Temperature ±4.1°C/h, NPS-CT-0651 compliance",
		},
		{
			Name:                "GE Revolution CT",
			Manufacturer:        "GE HealthCare",
			Weight:              ptr(1850),
			MinRoomLength:       ptr(7.0),
			MinRoomWidth:        ptr(4.8),
			MinRoomHeight:       ptr(2.5),
			MinDoorWidth:        ptr(1.3),
			PowerRequirement:    "400V 80kVA",
			SpecialRequirements: "Water cooling required, Advanced shielding, Revolution platform",
		},
		{
			Name:                "Siemens SOMATOM",
			Manufacturer:        "Siemens Healthineers",
			Weight:              ptr(1750),
			MinRoomLength:       ptr(6.8),
			MinRoomWidth:        ptr(4.5),
			MinRoomHeight:       ptr(2.4),
			MinDoorWidth:        ptr(1.25),
			PowerRequirement:    "480V 75kVA",
			SpecialRequirements: "Seismic isolation recommended, EMC testing required, Quantum technology",
		},
	}
}

// SeedCatalogIfEmpty loads the reference scanners on a fresh database only,
// so models deleted by operators do not come back on restart.
func SeedCatalogIfEmpty(db *gorm.DB, log *zap.Logger) (int, error) {
	var count int64
	if err := db.Model(&models.ScannerModel{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count scanner models: %w", err)
	}
	if count > 0 {
		return 0, nil
	}
	return SeedScanners(db, log)
}

// SeedScanners inserts every reference scanner whose name is not in the
// catalog yet and returns how many were created.
func SeedScanners(db *gorm.DB, log *zap.Logger) (int, error) {
	created := 0
	for _, sc := range DefaultScanners() {
		var count int64
		if err := db.Model(&models.ScannerModel{}).
			Where("name = ?", sc.Name).
			Count(&count).Error; err != nil {
			return created, fmt.Errorf("check scanner %s: %w", sc.Name, err)
		}
		if count > 0 {
			continue
		}

		sc := sc
		if err := db.Create(&sc).Error; err != nil {
			return created, fmt.Errorf("create scanner %s: %w", sc.Name, err)
		}
		created++
		log.Info("seeded scanner model", zap.String("name", sc.Name), zap.Uint("id", sc.ID))
	}
	return created, nil
}
