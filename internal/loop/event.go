package loop

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/haskel/pacer/internal/recommend"
	"github.com/haskel/pacer/internal/state"
)

// EventType represents the kind of loop event.
type EventType string

const (
	EventPlanServed       EventType = "plan_served"
	EventFeedbackReceived EventType = "feedback_received"
)

// Topic returns the publish topic for the event type.
func (t EventType) Topic() string {
	switch t {
	case EventPlanServed:
		return "training.plan.served"
	case EventFeedbackReceived:
		return "training.user.feedback"
	}
	return "training.events"
}

// Event is one entry of the audit trail.
type Event struct {
	ID               string                    `json:"id"`
	Type             EventType                 `json:"event_type"`
	UserID           string                    `json:"user_id"`
	Timestamp        time.Time                 `json:"timestamp"`
	ActionID         int                       `json:"action_id"`
	RecommendationID string                    `json:"recommendation_id,omitempty"`
	State            state.State               `json:"state,omitempty"`
	Recommendation   *recommend.Recommendation `json:"recommendation,omitempty"`
	Feedback         map[string]any            `json:"feedback,omitempty"`
	Reward           *float64                  `json:"reward,omitempty"`
}

// Sink receives every appended event.
type Sink interface {
	Publish(ctx context.Context, e Event) error
}

// Log is the in-memory append-only event log.
type Log struct {
	mu     sync.RWMutex
	events []Event
}

// NewLog creates an empty log.
func NewLog() *Log {
	return &Log{events: make([]Event, 0)}
}

// Append adds an event.
func (l *Log) Append(e Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
}

// Len returns the number of events.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.events)
}

// Events returns a copy of all events in append order.
func (l *Log) Events() []Event {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Event, len(l.events))
	copy(out, l.events)
	return out
}

// ForUser returns the events of one user in append order.
func (l *Log) ForUser(userID string) []Event {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]Event, 0)
	for _, e := range l.events {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out
}

// LastServed returns the latest plan_served event for a user and action.
func (l *Log) LastServed(userID string, actionID int) (Event, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	for i := len(l.events) - 1; i >= 0; i-- {
		e := l.events[i]
		if e.Type == EventPlanServed && e.UserID == userID && e.ActionID == actionID {
			return e, true
		}
	}
	return Event{}, false
}

// Served returns the plan_served event carrying a recommendation ID.
func (l *Log) Served(recommendationID string) (Event, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	for i := len(l.events) - 1; i >= 0; i-- {
		e := l.events[i]
		if e.Type == EventPlanServed && e.RecommendationID == recommendationID {
			return e, true
		}
	}
	return Event{}, false
}

// LogSink publishes events as structured log lines.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink creates a sink writing to logger.
func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

// Publish logs the event.
func (s *LogSink) Publish(ctx context.Context, e Event) error {
	attrs := []any{
		"topic", e.Type.Topic(),
		"event_id", e.ID,
		"user_id", e.UserID,
		"action_id", e.ActionID,
	}
	if e.RecommendationID != "" {
		attrs = append(attrs, "recommendation_id", e.RecommendationID)
	}
	if e.Reward != nil {
		attrs = append(attrs, "reward", *e.Reward)
	}
	s.logger.InfoContext(ctx, "event", attrs...)
	return nil
}
