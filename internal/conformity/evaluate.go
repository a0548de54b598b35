package conformity

// CheckResult is the verdict of one ConstraintCheck. Passed is nil when the
// check could not be evaluated.
type CheckResult struct {
	CheckID         string   `json:"check_id"`
	Label           string   `json:"label"`
	Severity        Severity `json:"severity"`
	Category        Category `json:"category"`
	Passed          *bool    `json:"passed"`
	Detail          string   `json:"detail"`
	RemediationCost float64  `json:"remediation_cost"`
}

func (r CheckResult) Failed() bool {
	return r.Passed != nil && !*r.Passed
}

func (r CheckResult) Unknown() bool {
	return r.Passed == nil
}

// Outcome renders the three-valued result as "pass", "fail" or "unknown".
func (r CheckResult) Outcome() string {
	switch {
	case r.Passed == nil:
		return "unknown"
	case *r.Passed:
		return "pass"
	default:
		return "fail"
	}
}

// Evaluate applies every check of the catalog to the site, in catalog order.
func (c *Catalog) Evaluate(site Site, scanner Scanner) []CheckResult {
	checks := c.ListChecks(scanner)
	results := make([]CheckResult, 0, len(checks))
	for _, chk := range checks {
		v := chk.Predicate(site, scanner)
		results = append(results, CheckResult{
			CheckID:         chk.ID,
			Label:           chk.Label,
			Severity:        chk.Severity,
			Category:        chk.Category,
			Passed:          v.Passed,
			Detail:          v.Detail,
			RemediationCost: chk.RemediationCost,
		})
	}
	return results
}

// Assessment is the full outcome of evaluating one (site, scanner) pair.
type Assessment struct {
	Summary Summary       `json:"summary"`
	Results []CheckResult `json:"results"`
}

// Assess runs normalization, evaluation and aggregation. Only a
// *ValidationError can be returned.
func (c *Catalog) Assess(spec SiteSpec, scanner Scanner) (Assessment, error) {
	site, err := Normalize(spec)
	if err != nil {
		return Assessment{}, err
	}
	results := c.Evaluate(site, scanner)
	return Assessment{
		Summary: Aggregate(results, c.policy),
		Results: results,
	}, nil
}
