package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// Webhook POSTs every ReportEvent as JSON to a fixed URL.
type Webhook struct {
	client *resty.Client
	url    string
	log    *zap.Logger
}

func NewWebhook(url string, log *zap.Logger) *Webhook {
	client := resty.New().
		SetTimeout(10*time.Second).
		SetRetryCount(3).
		SetRetryWaitTime(500*time.Millisecond).
		SetRetryMaxWaitTime(3*time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= 500
		}).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &Webhook{client: client, url: url, log: log}
}

func (w *Webhook) ReportCreated(ctx context.Context, ev ReportEvent) error {
	resp, err := w.client.R().
		SetContext(ctx).
		SetBody(map[string]any{
			"event":  "conformity_report.created",
			"report": ev,
		}).
		Post(w.url)
	if err != nil {
		return fmt.Errorf("webhook: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("webhook: unexpected status %d", resp.StatusCode())
	}

	w.log.Debug("webhook delivered",
		zap.String("reference", ev.Reference),
		zap.Int("status", resp.StatusCode()),
		zap.Duration("elapsed", resp.Time()),
	)
	return nil
}
