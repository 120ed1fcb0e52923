// Package notify carries budget-exceeded alerts to the user. The real
// delivery transport (push, email) lives outside this system; the log sink
// is the built-in relay.
package notify

import (
	"context"
	"log/slog"

	"github.com/cmather/budgetd/internal/model"
)

// LogSink writes alerts to the structured log.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink creates a log-backed alert sink.
func NewLogSink() *LogSink {
	return &LogSink{logger: slog.Default().With("component", "alerts")}
}

// Notify implements service.AlertSink.
func (s *LogSink) Notify(_ context.Context, alert model.BudgetExceededAlert) error {
	s.logger.Warn("Budget exceeded",
		"user_id", alert.UserID,
		"budget_id", alert.BudgetID,
		"category", alert.Category,
		"spent", alert.SpentAmount.String(),
		"limit", alert.Limit.String())
	return nil
}
