package jobs

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/meridian-erp/meridian-erp/internal/jobs"
	"github.com/meridian-erp/meridian-erp/internal/sales"
)

// DueScanDeps wires the dues scan handler.
type DueScanDeps struct {
	Logger  *slog.Logger
	Sales   *sales.Service
	Mailer  *Client
	Metrics *jobmetrics.Metrics
	// NotifyTo receives the dues summary mail. Empty disables mail.
	NotifyTo string
}

// NewDueScanHandler rebuilds the sales dues report, refreshing the cached
// copy, and emits a reminder for every invoice still carrying a balance.
func NewDueScanHandler(deps DueScanDeps) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		tracker := deps.Metrics.Track("due_scan")

		report, err := deps.Sales.RefreshDuesReport(ctx)
		if err != nil {
			return tracker.End(err)
		}

		for _, entry := range report.Entries {
			deps.Logger.Info("invoice due",
				slog.String("number", entry.Number),
				slog.String("customer", entry.CustomerName),
				slog.String("due", entry.DueDisplay))
		}
		deps.Logger.Info("due scan complete",
			slog.Int("invoices", len(report.Entries)),
			slog.String("total_due", report.TotalDueDisplay))

		if deps.Mailer != nil && deps.NotifyTo != "" && len(report.Entries) > 0 {
			_, err := deps.Mailer.EnqueueSendEmail(ctx, SendEmailPayload{
				To:      deps.NotifyTo,
				Subject: "Outstanding dues: " + report.TotalDueDisplay,
				Body:    duesMailBody(report),
			})
			if err != nil {
				deps.Logger.Warn("enqueue dues mail", slog.Any("error", err))
			}
		}

		return tracker.End(nil)
	}
}

func duesMailBody(report sales.DuesReport) string {
	body := "Invoices with outstanding balance:\n"
	for _, entry := range report.Entries {
		body += entry.Number + " (" + entry.CustomerName + "): " + entry.DueDisplay + "\n"
	}
	body += "Total: " + report.TotalDueDisplay + "\n"
	return body
}
