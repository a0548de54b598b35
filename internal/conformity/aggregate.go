package conformity

import (
	"fmt"
	"strings"
)

// Summary holds the report-level figures derived from check results.
type Summary struct {
	Score          float64 `json:"conformity_score"`
	Pass           bool    `json:"pass_fail"`
	CriticalIssues int     `json:"critical_issues"`
	EstimatedCost  float64 `json:"estimated_cost"`
	PassThreshold  float64 `json:"pass_threshold"`
	Total          int     `json:"total_checks"`
	Passed         int     `json:"passed_checks"`
	Failed         int     `json:"failed_checks"`
	Unknown        int     `json:"unknown_checks"`
	Narrative      string  `json:"evaluation_text"`
}

// Aggregate folds check results into a Summary. Unknown results carry no
// penalty and no cost; they only appear as caveats in the narrative.
func Aggregate(results []CheckResult, policy Policy) Summary {
	s := Summary{
		Score:         100,
		PassThreshold: policy.PassThreshold,
		Total:         len(results),
	}

	for _, r := range results {
		switch {
		case r.Unknown():
			s.Unknown++
		case r.Failed():
			s.Failed++
			s.Score -= policy.penalty(r.Severity)
			s.EstimatedCost += r.RemediationCost
			if r.Severity == SeverityCritical {
				s.CriticalIssues++
			}
		default:
			s.Passed++
		}
	}

	if s.Score < 0 {
		s.Score = 0
	}
	s.Pass = s.CriticalIssues == 0 && s.Score >= policy.PassThreshold
	s.Narrative = narrative(results, s)
	return s
}

func narrative(results []CheckResult, s Summary) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%d of %d checks passed", s.Passed, s.Total)
	if s.Unknown > 0 {
		fmt.Fprintf(&b, " (%d could not be evaluated)", s.Unknown)
	}
	verdict := "PASS"
	if !s.Pass {
		verdict = "FAIL"
	}
	fmt.Fprintf(&b, ". Verdict: %s, score %.0f/100.", verdict, s.Score)

	for _, r := range results {
		if r.Failed() {
			fmt.Fprintf(&b, "\nFAIL [%s] %s: %s", r.Severity, r.Label, r.Detail)
		}
	}
	if s.Unknown > 0 {
		b.WriteString("\nCaveats:")
		for _, r := range results {
			if r.Unknown() {
				fmt.Fprintf(&b, "\nUNKNOWN [%s] %s: %s", r.Severity, r.Label, r.Detail)
			}
		}
	}
	return b.String()
}
