package export

import (
	"ct-preinstall/internal/models"
)

const dateLayout = "2006-01-02 15:04"

func ProjectsSheet(projects []models.Project) Sheet {
	sh := Sheet{
		Name: "Projects",
		Columns: []Column{
			{"ID", 8}, {"Name", 30}, {"Client", 25}, {"Engineer", 20},
			{"Status", 14}, {"Sites", 8}, {"Created", 18},
		},
	}
	for _, p := range projects {
		sh.Rows = append(sh.Rows, []any{
			p.ID, p.Name, p.ClientName, p.EngineerName,
			string(p.Status), len(p.SiteSpecs), p.CreatedAt.Format(dateLayout),
		})
	}
	return sh
}

func ScannersSheet(scanners []models.ScannerModel) Sheet {
	sh := Sheet{
		Name: "Scanners",
		Columns: []Column{
			{"ID", 8}, {"Name", 24}, {"Manufacturer", 20}, {"Weight, kg", 12},
			{"Min length, m", 14}, {"Min width, m", 14}, {"Min height, m", 14},
			{"Min door width, m", 18}, {"Power", 20}, {"Special requirements", 40},
		},
	}
	for _, s := range scanners {
		sh.Rows = append(sh.Rows, []any{
			s.ID, s.Name, s.Manufacturer, num(s.Weight),
			num(s.MinRoomLength), num(s.MinRoomWidth), num(s.MinRoomHeight),
			num(s.MinDoorWidth), s.PowerRequirement, s.SpecialRequirements,
		})
	}
	return sh
}

// ReportSheets returns the report summary sheet and a second sheet with
// one row per check. Reports must be loaded with their site, project,
// scanner and checks.
func ReportSheets(reports []models.ConformityReport) []Sheet {
	summary := Sheet{
		Name: "Reports",
		Columns: []Column{
			{"ID", 8}, {"Reference", 38}, {"Created", 18}, {"Project", 26},
			{"Site", 22}, {"Scanner", 22}, {"Score", 8}, {"Threshold", 10},
			{"Result", 8}, {"Critical issues", 15}, {"Estimated cost", 16}, {"Created by", 14},
		},
	}
	checks := Sheet{
		Name: "Checks",
		Columns: []Column{
			{"Report ID", 10}, {"#", 5}, {"Check", 22}, {"Label", 32},
			{"Severity", 10}, {"Outcome", 10}, {"Detail", 60}, {"Remediation cost", 16},
		},
	}

	for _, r := range reports {
		summary.Rows = append(summary.Rows, []any{
			r.ID, r.Reference, r.CreatedAt.Format(dateLayout), r.SiteSpec.Project.Name,
			r.SiteSpec.DisplayName(), r.ScannerModel.Name, r.ConformityScore, r.PassThreshold,
			verdict(r.PassFail), r.CriticalIssues, r.EstimatedCost, r.CreatedBy,
		})
		for _, c := range r.Checks {
			checks.Rows = append(checks.Rows, []any{
				r.ID, c.Position + 1, c.CheckID, c.Label,
				c.Severity, c.Outcome(), c.Detail, c.RemediationCost,
			})
		}
	}
	return []Sheet{summary, checks}
}

func num(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

func verdict(pass bool) string {
	if pass {
		return "PASS"
	}
	return "FAIL"
}
