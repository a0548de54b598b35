// Package conformity decides whether a site room can host a given CT
// scanner model: it normalizes the site specification, runs the constraint
// catalog and folds the results into a scored, costed verdict.
package conformity

import (
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

// Scanner holds the installation requirements of a scanner model. Nil
// values mean the manufacturer data does not state the requirement.
type Scanner struct {
	Name                string   `json:"name" yaml:"name"`
	Manufacturer        string   `json:"manufacturer,omitempty" yaml:"manufacturer"`
	Weight              *float64 `json:"weight,omitempty" yaml:"weight"`
	MinRoomLength       *float64 `json:"min_room_length,omitempty" yaml:"min_room_length"`
	MinRoomWidth        *float64 `json:"min_room_width,omitempty" yaml:"min_room_width"`
	MinRoomHeight       *float64 `json:"min_room_height,omitempty" yaml:"min_room_height"`
	MinDoorWidth        *float64 `json:"min_door_width,omitempty" yaml:"min_door_width"`
	PowerRequirement    string   `json:"power_requirement,omitempty" yaml:"power_requirement"`
	SpecialRequirements string   `json:"special_requirements,omitempty" yaml:"special_requirements"`
}

// Verdict is the outcome of a single predicate. A nil Passed means the
// check could not be evaluated with the data at hand.
type Verdict struct {
	Passed *bool
	Detail string
}

type Predicate func(site Site, scanner Scanner) Verdict

type ConstraintCheck struct {
	ID              string
	Label           string
	Severity        Severity
	Category        Category
	RemediationCost float64
	Predicate       Predicate
}

// Catalog is the ordered rule set applied to every (site, scanner) pair.
// It is immutable after NewCatalog and safe for concurrent use.
type Catalog struct {
	policy   Policy
	standard []ConstraintCheck
}

func NewCatalog(policy Policy) (*Catalog, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	p := clonePolicy(policy)

	c := &Catalog{policy: p}
	c.standard = []ConstraintCheck{
		c.minimumCheck("room_length", "Room length", CategoryRoomLength,
			func(s Site) *float64 { return &s.RoomLength },
			func(sc Scanner) *float64 { return sc.MinRoomLength }),
		c.minimumCheck("room_width", "Room width", CategoryRoomWidth,
			func(s Site) *float64 { return &s.RoomWidth },
			func(sc Scanner) *float64 { return sc.MinRoomWidth }),
		c.minimumCheck("room_height", "Room height", CategoryRoomHeight,
			func(s Site) *float64 { return &s.RoomHeight },
			func(sc Scanner) *float64 { return sc.MinRoomHeight }),
		c.minimumCheck("door_width", "Door width", CategoryDoorWidth,
			func(s Site) *float64 { return s.DoorWidth },
			func(sc Scanner) *float64 { return sc.MinDoorWidth }),
		{
			ID:              "floor_load",
			Label:           "Floor load capacity",
			Severity:        SeverityMajor,
			Category:        CategoryFloorLoad,
			RemediationCost: p.cost(CategoryFloorLoad),
			Predicate:       floorLoad(p.SafetyFactor),
		},
		{
			ID:              "electrical_power",
			Label:           "Electrical supply",
			Severity:        SeverityMajor,
			Category:        CategoryElectrical,
			RemediationCost: p.cost(CategoryElectrical),
			Predicate:       electricalPower,
		},
	}
	return c, nil
}

// Policy returns a copy of the policy the catalog was built with.
func (c *Catalog) Policy() Policy {
	return clonePolicy(c.policy)
}

// ListChecks returns the standard checks followed by one check per token of
// the scanner's special requirements.
func (c *Catalog) ListChecks(scanner Scanner) []ConstraintCheck {
	checks := make([]ConstraintCheck, 0, len(c.standard)+4)
	checks = append(checks, c.standard...)

	for i, token := range SplitSpecialRequirements(scanner.SpecialRequirements) {
		checks = append(checks, c.specialCheck(i+1, token))
	}
	return checks
}

func (c *Catalog) minimumCheck(id, label string, cat Category, actual func(Site) *float64, required func(Scanner) *float64) ConstraintCheck {
	what := strings.ToLower(label)
	return ConstraintCheck{
		ID:              id,
		Label:           label,
		Severity:        SeverityCritical,
		Category:        cat,
		RemediationCost: c.policy.cost(cat),
		Predicate: func(site Site, scanner Scanner) Verdict {
			limit := required(scanner)
			if limit == nil || *limit <= 0 {
				return unknown(fmt.Sprintf("scanner model does not specify a minimum %s", what))
			}
			have := actual(site)
			if have == nil {
				return unknown(fmt.Sprintf("%s not specified, cannot verify clearance against the %.2f m minimum", what, *limit))
			}
			if *have < *limit {
				return fail(fmt.Sprintf("%s %.2f m is below the %.2f m minimum (short by %.2f m)", what, *have, *limit, *limit-*have))
			}
			return pass(fmt.Sprintf("%s %.2f m meets the %.2f m minimum", what, *have, *limit))
		},
	}
}

func floorLoad(safetyFactor float64) Predicate {
	return func(site Site, scanner Scanner) Verdict {
		if scanner.Weight == nil || *scanner.Weight <= 0 {
			return unknown("scanner weight not specified, cannot verify floor load")
		}
		if site.FloorCapacity == nil {
			return unknown("floor capacity not specified, cannot verify floor load")
		}
		// room area stands in for the gantry footprint
		required := safetyFactor * *scanner.Weight / (site.RoomLength * site.RoomWidth)
		if *site.FloorCapacity < required {
			return fail(fmt.Sprintf("floor capacity %.1f kg/m² is below the required %.1f kg/m² (%.0f kg x %.2f safety factor)",
				*site.FloorCapacity, required, *scanner.Weight, safetyFactor))
		}
		return pass(fmt.Sprintf("floor capacity %.1f kg/m² covers the required %.1f kg/m²", *site.FloorCapacity, required))
	}
}

var voltagePattern = regexp.MustCompile(`(?i)(\d+(?:[.,]\d+)?)\s*v(?:ac|dc)?(?:[^a-z0-9]|$)`)

// voltages lists every voltage stated in a descriptor, normalized to
// "<number>V" ("400 VAC" and "400,0V~" both give "400V").
func voltages(s string) []string {
	var out []string
	for _, m := range voltagePattern.FindAllStringSubmatch(s, -1) {
		v, err := strconv.ParseFloat(strings.Replace(m[1], ",", ".", 1), 64)
		if err != nil {
			continue
		}
		out = append(out, strconv.FormatFloat(v, 'f', -1, 64)+"V")
	}
	return out
}

// VoltageToken extracts the first voltage ("380V") from a power requirement
// descriptor. Returns "" when none is present.
func VoltageToken(requirement string) string {
	if vs := voltages(requirement); len(vs) > 0 {
		return vs[0]
	}
	return ""
}

func electricalPower(site Site, scanner Scanner) Verdict {
	token := VoltageToken(scanner.PowerRequirement)
	if token == "" {
		return unknown("scanner power requirement states no voltage, cannot verify electrical supply")
	}
	if site.ElectricalPower == "" {
		return unknown(fmt.Sprintf("electrical power not specified, cannot verify the %s supply", token))
	}
	if !slices.Contains(voltages(site.ElectricalPower), token) {
		return fail(fmt.Sprintf("electrical supply %q does not provide the required %s", site.ElectricalPower, token))
	}
	return pass(fmt.Sprintf("electrical supply %q provides %s", site.ElectricalPower, token))
}

// specialKeyword maps a recognized special requirement to the single site
// descriptor that can confirm it.
type specialKeyword struct {
	phrase   string
	category Category
	evidence []string
	source   func(Site) string
	subject  string
}

var specialKeywords = []specialKeyword{
	{
		phrase:   "seismic isolation",
		category: CategorySeismicIsolation,
		evidence: []string{"seismic"},
		source:   func(s Site) string { return s.Notes },
		subject:  "site notes",
	},
	{
		phrase:   "water cooling",
		category: CategoryWaterCooling,
		evidence: []string{"water", "chiller", "liquid"},
		source:   func(s Site) string { return s.HVACSystem },
		subject:  "HVAC system",
	},
}

// SplitSpecialRequirements splits the free-text field on commas, semicolons
// and new lines, dropping empty tokens.
func SplitSpecialRequirements(text string) []string {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return r == ',' || r == ';' || r == '\n'
	})
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if t := strings.TrimSpace(f); t != "" {
			tokens = append(tokens, t)
		}
	}
	return tokens
}

func (c *Catalog) specialCheck(n int, token string) ConstraintCheck {
	id := fmt.Sprintf("special_%d", n)
	normalized := strings.ReplaceAll(strings.ToLower(token), "-", " ")

	for _, kw := range specialKeywords {
		if !strings.Contains(normalized, kw.phrase) {
			continue
		}
		kw := kw
		return ConstraintCheck{
			ID:              id,
			Label:           token,
			Severity:        SeverityMajor,
			Category:        kw.category,
			RemediationCost: c.policy.cost(kw.category),
			Predicate: func(site Site, _ Scanner) Verdict {
				text := kw.source(site)
				if text == "" {
					return unknown(fmt.Sprintf("%q: %s not described, cannot verify %s", token, kw.subject, kw.phrase))
				}
				lower := strings.ToLower(text)
				for _, e := range kw.evidence {
					if strings.Contains(lower, e) {
						return pass(fmt.Sprintf("%q: %s provision found in %s", token, kw.phrase, kw.subject))
					}
				}
				return fail(fmt.Sprintf("%q: no %s provision found in %s", token, kw.phrase, kw.subject))
			},
		}
	}

	return ConstraintCheck{
		ID:              id,
		Label:           token,
		Severity:        SeverityMinor,
		Category:        CategorySpecial,
		RemediationCost: c.policy.cost(CategorySpecial),
		Predicate: func(Site, Scanner) Verdict {
			return unknown(fmt.Sprintf("%q: special requirement must be verified on site", token))
		},
	}
}

func clonePolicy(p Policy) Policy {
	out := p
	out.Penalties = make(map[Severity]float64, len(p.Penalties))
	for k, v := range p.Penalties {
		out.Penalties[k] = v
	}
	out.RemediationCosts = make(map[Category]float64, len(p.RemediationCosts))
	for k, v := range p.RemediationCosts {
		out.RemediationCosts[k] = v
	}
	return out
}

func pass(detail string) Verdict {
	ok := true
	return Verdict{Passed: &ok, Detail: detail}
}

func fail(detail string) Verdict {
	ok := false
	return Verdict{Passed: &ok, Detail: detail}
}

func unknown(detail string) Verdict {
	return Verdict{Detail: detail}
}
