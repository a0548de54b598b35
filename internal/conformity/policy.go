package conformity

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityMajor    Severity = "major"
	SeverityMinor    Severity = "minor"
)

// Category groups checks that share a remediation cost band.
type Category string

const (
	CategoryRoomLength       Category = "room_length"
	CategoryRoomWidth        Category = "room_width"
	CategoryRoomHeight       Category = "room_height"
	CategoryDoorWidth        Category = "door_width"
	CategoryFloorLoad        Category = "floor_load"
	CategoryElectrical       Category = "electrical"
	CategorySeismicIsolation Category = "seismic_isolation"
	CategoryWaterCooling     Category = "water_cooling"
	CategorySpecial          Category = "special"
)

const (
	DefaultPassThreshold = 70.0
	DefaultSafetyFactor  = 1.5
)

// Policy is the configurable part of an evaluation: gating threshold,
// structural safety factor, score penalties and remediation cost bands.
type Policy struct {
	PassThreshold    float64              `yaml:"pass_threshold" json:"pass_threshold"`
	SafetyFactor     float64              `yaml:"safety_factor" json:"safety_factor"`
	Penalties        map[Severity]float64 `yaml:"penalties" json:"penalties"`
	RemediationCosts map[Category]float64 `yaml:"remediation_costs" json:"remediation_costs"`
}

func DefaultPolicy() Policy {
	return Policy{
		PassThreshold: DefaultPassThreshold,
		SafetyFactor:  DefaultSafetyFactor,
		Penalties: map[Severity]float64{
			SeverityCritical: 25,
			SeverityMajor:    10,
			SeverityMinor:    2,
		},
		RemediationCosts: map[Category]float64{
			CategoryRoomLength:       40000,
			CategoryRoomWidth:        40000,
			CategoryRoomHeight:       30000,
			CategoryDoorWidth:        8000,
			CategoryFloorLoad:        15000,
			CategoryElectrical:       12000,
			CategorySeismicIsolation: 20000,
			CategoryWaterCooling:     18000,
			CategorySpecial:          0,
		},
	}
}

// LoadPolicy reads a YAML policy file. Keys missing from the file keep
// their default values.
func LoadPolicy(path string) (Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Policy{}, fmt.Errorf("read policy %s: %w", path, err)
	}
	return ParsePolicy(data)
}

func ParsePolicy(data []byte) (Policy, error) {
	var raw struct {
		PassThreshold    *float64             `yaml:"pass_threshold"`
		SafetyFactor     *float64             `yaml:"safety_factor"`
		Penalties        map[Severity]float64 `yaml:"penalties"`
		RemediationCosts map[Category]float64 `yaml:"remediation_costs"`
	}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Policy{}, fmt.Errorf("parse policy: %w", err)
	}

	p := DefaultPolicy()
	if raw.PassThreshold != nil {
		p.PassThreshold = *raw.PassThreshold
	}
	if raw.SafetyFactor != nil {
		p.SafetyFactor = *raw.SafetyFactor
	}
	for sev, v := range raw.Penalties {
		p.Penalties[sev] = v
	}
	for cat, v := range raw.RemediationCosts {
		p.RemediationCosts[cat] = v
	}

	if err := p.Validate(); err != nil {
		return Policy{}, err
	}
	return p, nil
}

func (p Policy) Validate() error {
	if !finite(p.PassThreshold) || p.PassThreshold < 0 || p.PassThreshold > 100 {
		return fmt.Errorf("policy: pass_threshold must be within [0, 100], got %v", p.PassThreshold)
	}
	if !finite(p.SafetyFactor) || p.SafetyFactor <= 0 {
		return fmt.Errorf("policy: safety_factor must be positive, got %v", p.SafetyFactor)
	}
	for sev, v := range p.Penalties {
		switch sev {
		case SeverityCritical, SeverityMajor, SeverityMinor:
		default:
			return fmt.Errorf("policy: unknown severity %q in penalties", sev)
		}
		if !finite(v) || v < 0 {
			return fmt.Errorf("policy: penalty for %s must not be negative", sev)
		}
	}
	for cat, v := range p.RemediationCosts {
		if !knownCategory(cat) {
			return fmt.Errorf("policy: unknown category %q in remediation_costs", cat)
		}
		if !finite(v) || v < 0 {
			return fmt.Errorf("policy: remediation cost for %s must not be negative", cat)
		}
	}
	return nil
}

// Fingerprint is a short stable digest of the policy values. Policies that
// score identically share a fingerprint.
func (p Policy) Fingerprint() string {
	data, err := json.Marshal(p)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:6])
}

func (p Policy) penalty(sev Severity) float64 {
	return p.Penalties[sev]
}

func (p Policy) cost(cat Category) float64 {
	return p.RemediationCosts[cat]
}

func knownCategory(cat Category) bool {
	switch cat {
	case CategoryRoomLength, CategoryRoomWidth, CategoryRoomHeight, CategoryDoorWidth,
		CategoryFloorLoad, CategoryElectrical, CategorySeismicIsolation, CategoryWaterCooling,
		CategorySpecial:
		return true
	}
	return false
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
