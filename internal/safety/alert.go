package safety

import (
	"context"
	"log/slog"
	"time"
)

// AlertRecommendedAction is the action every escalated alert carries.
const AlertRecommendedAction = "stop_training_and_consult_professional"

// Alert is the payload handed to an escalation consumer.
type Alert struct {
	Type              string    `json:"type"`
	Severity          RiskLevel `json:"severity"`
	UserID            string    `json:"user_id"`
	Timestamp         time.Time `json:"timestamp"`
	Reason            string    `json:"reason"`
	RecommendedAction string    `json:"recommended_action"`
	Message           string    `json:"message"`
}

// NewAlert builds a critical safety alert.
func NewAlert(userID, reason string, at time.Time) Alert {
	return Alert{
		Type:              "safety_alert",
		Severity:          RiskCritical,
		UserID:            userID,
		Timestamp:         at,
		Reason:            reason,
		RecommendedAction: AlertRecommendedAction,
		Message: "SAFETY ALERT: " + reason +
			"\n\nPlease stop training and consult with a healthcare professional if you experience: " +
			"chest pain, dizziness, severe discomfort, or abnormal heart rate patterns.",
	}
}

// Escalator receives unsafe check results.
type Escalator interface {
	Escalate(ctx context.Context, userID string, result CheckResult)
}

// LogEscalator writes unsafe results to a logger. Critical results are
// logged as alerts.
type LogEscalator struct {
	logger *slog.Logger
	now    func() time.Time
}

// NewLogEscalator creates a log-backed escalator.
func NewLogEscalator(logger *slog.Logger) *LogEscalator {
	return &LogEscalator{logger: logger, now: time.Now}
}

// Escalate implements Escalator.
func (e *LogEscalator) Escalate(ctx context.Context, userID string, result CheckResult) {
	if result.IsSafe {
		return
	}

	if result.RiskLevel != RiskCritical {
		e.logger.WarnContext(ctx, "unsafe state",
			"user_id", userID,
			"risk_level", result.RiskLevel,
			"recommended_action", result.RecommendedAction,
			"message", result.Message,
		)
		return
	}

	alert := NewAlert(userID, result.Message, e.now().UTC())
	e.logger.ErrorContext(ctx, "safety alert",
		"user_id", alert.UserID,
		"severity", alert.Severity,
		"reason", alert.Reason,
		"recommended_action", alert.RecommendedAction,
		"timestamp", alert.Timestamp,
	)
}
