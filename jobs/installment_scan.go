package jobs

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/meridian-erp/meridian-erp/internal/jobs"
	"github.com/meridian-erp/meridian-erp/internal/loans"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// InstallmentScanDeps wires the monthly loan scan handler.
type InstallmentScanDeps struct {
	Logger  *slog.Logger
	Loans   *loans.Service
	Metrics *jobmetrics.Metrics
}

// NewInstallmentScanHandler walks the open loan book once a month and logs
// the installment expected from each borrower.
func NewInstallmentScanHandler(deps InstallmentScanDeps) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		tracker := deps.Metrics.Track("installment_scan")

		open, err := deps.Loans.OpenLoans(ctx)
		if err != nil {
			return tracker.End(err)
		}

		for _, loan := range open {
			installment := loan.Schedule.InstallmentPerMonth
			if loan.Outstanding.LessThan(installment) {
				installment = loan.Outstanding
			}
			deps.Logger.Info("loan installment due",
				slog.Int64("loan_id", loan.ID),
				slog.String("employee", loan.EmployeeName),
				slog.String("installment", shared.FormatMoney(installment)),
				slog.String("outstanding", shared.FormatMoney(loan.Outstanding)))
		}
		deps.Logger.Info("installment scan complete", slog.Int("open_loans", len(open)))

		return tracker.End(nil)
	}
}
