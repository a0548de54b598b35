package conformity

import (
	"fmt"
	"strings"
)

// SiteSpec is a site specification as entered by a user. Room dimensions
// are mandatory; everything else may be absent.
type SiteSpec struct {
	RoomLength      float64  `json:"room_length" yaml:"room_length"`
	RoomWidth       float64  `json:"room_width" yaml:"room_width"`
	RoomHeight      float64  `json:"room_height" yaml:"room_height"`
	DoorWidth       *float64 `json:"door_width,omitempty" yaml:"door_width"`
	DoorHeight      *float64 `json:"door_height,omitempty" yaml:"door_height"`
	FloorCapacity   *float64 `json:"floor_capacity,omitempty" yaml:"floor_capacity"`
	ElectricalPower string   `json:"electrical_power,omitempty" yaml:"electrical_power"`
	HVACSystem      string   `json:"hvac_system,omitempty" yaml:"hvac_system"`
	Notes           string   `json:"notes,omitempty" yaml:"notes"`
}

// Site is a validated SiteSpec. Room dimensions are guaranteed positive;
// nil optionals and empty descriptors mean "not specified".
type Site struct {
	RoomLength      float64
	RoomWidth       float64
	RoomHeight      float64
	DoorWidth       *float64
	DoorHeight      *float64
	FloorCapacity   *float64
	ElectricalPower string
	HVACSystem      string
	Notes           string
}

type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// ValidationError lists every invalid field of a site specification.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+" "+f.Reason)
	}
	return "invalid site specification: " + strings.Join(parts, "; ")
}

// Normalize validates a raw specification. Mandatory room dimensions must be
// positive; optional numbers, when given, must be positive as well.
func Normalize(spec SiteSpec) (Site, error) {
	var verr ValidationError

	mandatory := []struct {
		name string
		v    float64
	}{
		{"room_length", spec.RoomLength},
		{"room_width", spec.RoomWidth},
		{"room_height", spec.RoomHeight},
	}
	for _, m := range mandatory {
		switch {
		case !finite(m.v):
			verr.Fields = append(verr.Fields, FieldError{m.name, "is not a number"})
		case m.v <= 0:
			verr.Fields = append(verr.Fields, FieldError{m.name, "is required and must be positive"})
		}
	}

	optional := []struct {
		name string
		v    *float64
	}{
		{"door_width", spec.DoorWidth},
		{"door_height", spec.DoorHeight},
		{"floor_capacity", spec.FloorCapacity},
	}
	for _, o := range optional {
		if o.v == nil {
			continue
		}
		if !finite(*o.v) || *o.v <= 0 {
			verr.Fields = append(verr.Fields, FieldError{o.name, fmt.Sprintf("must be positive when specified, got %v", *o.v)})
		}
	}

	if len(verr.Fields) > 0 {
		return Site{}, &verr
	}

	return Site{
		RoomLength:      spec.RoomLength,
		RoomWidth:       spec.RoomWidth,
		RoomHeight:      spec.RoomHeight,
		DoorWidth:       copyFloat(spec.DoorWidth),
		DoorHeight:      copyFloat(spec.DoorHeight),
		FloorCapacity:   copyFloat(spec.FloorCapacity),
		ElectricalPower: strings.TrimSpace(spec.ElectricalPower),
		HVACSystem:      strings.TrimSpace(spec.HVACSystem),
		Notes:           strings.TrimSpace(spec.Notes),
	}, nil
}

func copyFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
