package loop

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"github.com/haskel/pacer/internal/recommend"
	"github.com/haskel/pacer/internal/reward"
	"github.com/haskel/pacer/internal/safety"
	"github.com/haskel/pacer/internal/state"
)

// FeedbackRecommendationID is the feedback key naming the served plan.
const FeedbackRecommendationID = "recommendation_id"

// ErrEmptyUser is returned when a call carries no user ID.
var ErrEmptyUser = errors.New("user id is required")

// Loop runs the closed cycle: state, recommendation, feedback, update.
type Loop struct {
	recommender *recommend.Recommender
	reward      *reward.Function
	log         *Log
	sinks       []Sink
	escalator   safety.Escalator
	logger      *slog.Logger
	now         func() time.Time
}

// Option configures a Loop.
type Option func(*Loop)

// WithSink adds an event sink.
func WithSink(s Sink) Option {
	return func(l *Loop) {
		l.sinks = append(l.sinks, s)
	}
}

// WithEscalator sets the consumer of unsafe results.
func WithEscalator(e safety.Escalator) Option {
	return func(l *Loop) {
		l.escalator = e
	}
}

// WithClock overrides the event timestamp source.
func WithClock(now func() time.Time) Option {
	return func(l *Loop) {
		l.now = now
	}
}

// New creates a loop.
func New(rec *recommend.Recommender, rf *reward.Function, logger *slog.Logger, opts ...Option) *Loop {
	if logger == nil {
		logger = slog.Default()
	}
	l := &Loop{
		recommender: rec,
		reward:      rf,
		log:         NewLog(),
		logger:      logger,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Recommender returns the underlying recommender.
func (l *Loop) Recommender() *recommend.Recommender {
	return l.recommender
}

// Log returns the in-memory audit trail.
func (l *Loop) Log() *Log {
	return l.log
}

// Replay loads persisted events into the log without publishing them.
func (l *Loop) Replay(events []Event) {
	for _, e := range events {
		l.log.Append(e)
	}
}

// ProcessDailyCycle recommends a plan for the user's state and records it.
func (l *Loop) ProcessDailyCycle(ctx context.Context, userID string, s state.State) (*recommend.Recommendation, error) {
	return l.process(ctx, userID, s, nil)
}

// ProcessDailyCycleWith is ProcessDailyCycle with a per-call learner override.
func (l *Loop) ProcessDailyCycleWith(ctx context.Context, userID string, s state.State, useRL *bool) (*recommend.Recommendation, error) {
	return l.process(ctx, userID, s, useRL)
}

func (l *Loop) process(ctx context.Context, userID string, s state.State, useRL *bool) (*recommend.Recommendation, error) {
	if userID == "" {
		return nil, ErrEmptyUser
	}
	if s == nil {
		s = state.State{}
	}

	rec := l.recommender.Recommend(s, useRL)
	rec.RecommendationID = uuid.NewString()

	l.emit(ctx, Event{
		ID:               ulid.Make().String(),
		Type:             EventPlanServed,
		UserID:           userID,
		Timestamp:        l.now(),
		ActionID:         rec.ActionID,
		RecommendationID: rec.RecommendationID,
		State:            s.Clone(),
		Recommendation:   rec,
	})

	if !rec.Safety.IsSafe && l.escalator != nil {
		l.escalator.Escalate(ctx, userID, rec.Safety)
	}

	return rec, nil
}

// ProcessFeedback scores feedback for a served action, updates the learner
// with the state the action was served in and records the outcome.
func (l *Loop) ProcessFeedback(ctx context.Context, userID string, actionID int, feedback map[string]any) (float64, error) {
	if userID == "" {
		return 0, ErrEmptyUser
	}
	if _, err := l.recommender.Space().Get(actionID); err != nil {
		return 0, fmt.Errorf("feedback: %w", err)
	}

	r := l.reward.ComputeFromMap(feedback)

	served, found := l.lookupServed(userID, actionID, feedback)
	servedState := state.State{}
	if found {
		servedState = served.State
	} else {
		l.logger.WarnContext(ctx, "feedback without served plan, updating with empty state",
			"user_id", userID,
			"action_id", actionID,
		)
	}

	if err := l.recommender.Update(actionID, servedState, r); err != nil {
		return 0, fmt.Errorf("feedback: %w", err)
	}

	l.emit(ctx, Event{
		ID:               ulid.Make().String(),
		Type:             EventFeedbackReceived,
		UserID:           userID,
		Timestamp:        l.now(),
		ActionID:         actionID,
		RecommendationID: served.RecommendationID,
		Feedback:         feedback,
		Reward:           &r,
	})

	return r, nil
}

func (l *Loop) lookupServed(userID string, actionID int, feedback map[string]any) (Event, bool) {
	if id, ok := feedback[FeedbackRecommendationID].(string); ok && id != "" {
		if e, ok := l.log.Served(id); ok && e.UserID == userID && e.ActionID == actionID {
			return e, true
		}
		l.logger.Debug("recommendation id not matched, using latest served plan",
			"recommendation_id", id,
		)
	}
	return l.log.LastServed(userID, actionID)
}

// emit appends to the log and publishes to every sink. Sink failures are
// logged and never reach the caller.
func (l *Loop) emit(ctx context.Context, e Event) {
	l.log.Append(e)

	for _, s := range l.sinks {
		if err := s.Publish(ctx, e); err != nil {
			l.logger.ErrorContext(ctx, "publish event",
				"event_id", e.ID,
				"topic", e.Type.Topic(),
				"error", err,
			)
		}
	}
}
