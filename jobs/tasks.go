// Package jobs hosts the background worker: an Asynq server with a cron
// scheduler driving the ledger and loan scans, and a small client for
// enqueueing one-off tasks.
package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskDueScan rebuilds the sales dues report and emits reminders.
	TaskDueScan = "ledger:due_scan"
	// TaskInstallmentScan checks open employee loans once a month.
	TaskInstallmentScan = "loan:installment_scan"
	// TaskTypeSendEmail is the task type for sending transactional emails.
	TaskTypeSendEmail = "mail:send"
)

// NewDueScanTask constructs the dues scan task. It carries no payload.
func NewDueScanTask() *asynq.Task {
	return asynq.NewTask(TaskDueScan, nil)
}

// NewInstallmentScanTask constructs the loan installment scan task.
func NewInstallmentScanTask() *asynq.Task {
	return asynq.NewTask(TaskInstallmentScan, nil)
}

// SendEmailPayload describes the information required to send an email.
type SendEmailPayload struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// NewSendEmailTask constructs an Asynq task.
func NewSendEmailTask(payload SendEmailPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeSendEmail, data), nil
}

// NewSendEmailHandler processes TaskTypeSendEmail tasks. Delivery is a log
// line until an SMTP relay is configured.
func NewSendEmailHandler(logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload SendEmailPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		logger.Info("send email",
			slog.String("to", payload.To),
			slog.String("subject", payload.Subject))
		return nil
	}
}
