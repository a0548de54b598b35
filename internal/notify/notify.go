// Package notify tells outside systems that a conformity report was produced.
package notify

import (
	"context"
	"errors"
	"time"
)

// ReportEvent is the payload sent when a report has been committed.
type ReportEvent struct {
	ReportID       uint      `json:"report_id"`
	Reference      string    `json:"reference"`
	ProjectName    string    `json:"project"`
	SiteName       string    `json:"site"`
	ScannerName    string    `json:"scanner"`
	Score          float64   `json:"conformity_score"`
	Pass           bool      `json:"pass_fail"`
	CriticalIssues int       `json:"critical_issues"`
	EstimatedCost  float64   `json:"estimated_cost"`
	CreatedAt      time.Time `json:"created_at"`
	URL            string    `json:"url,omitempty"`
}

type Notifier interface {
	ReportCreated(ctx context.Context, ev ReportEvent) error
}

type Nop struct{}

func (Nop) ReportCreated(context.Context, ReportEvent) error { return nil }

// Multi fans an event out to every notifier and joins their errors.
type Multi []Notifier

func (m Multi) ReportCreated(ctx context.Context, ev ReportEvent) error {
	var errs []error
	for _, n := range m {
		if err := n.ReportCreated(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
