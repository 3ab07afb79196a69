package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/haskel/pacer/internal/action"
	"github.com/haskel/pacer/internal/bandit"
	"github.com/haskel/pacer/internal/config"
	"github.com/haskel/pacer/internal/eventstore"
	"github.com/haskel/pacer/internal/loop"
	"github.com/haskel/pacer/internal/recommend"
	"github.com/haskel/pacer/internal/reward"
	"github.com/haskel/pacer/internal/safety"
	"github.com/haskel/pacer/internal/storage"
)

// engine is the wired recommendation stack shared by serve and simulate.
type engine struct {
	space       *action.Space
	learner     bandit.Learner
	recommender *recommend.Recommender
	loop        *loop.Loop

	// storage is nil without a learner; events is nil when the event
	// store is disabled or not requested.
	storage *storage.Storage
	events  *eventstore.SQLiteStore
}

// buildEngine wires the engine from configuration. With withEvents the
// SQLite event store is opened, attached as a loop sink and replayed into
// the in-memory log.
func buildEngine(ctx context.Context, cfg *config.Config, log *slog.Logger, withEvents bool) (*engine, error) {
	space := action.NewSpace()
	gate := safety.NewGate(safety.NewGuardrails(cfg.Safety), space)

	lc := cfg.LearnerConfig(space.Count(), recommend.ContextDim)
	lc.Logger = log
	learner, err := bandit.NewFactory(lc).Create()
	if err != nil {
		return nil, fmt.Errorf("create learner: %w", err)
	}

	e := &engine{
		space:       space,
		learner:     learner,
		recommender: recommend.New(space, gate, learner, cfg.Engine.UseRL, log),
	}

	if learner != nil {
		e.storage = storage.New(cfg.Persistence.DataDir, cfg.FlushInterval(), learner, log)
	}

	opts := []loop.Option{
		loop.WithSink(loop.NewLogSink(log)),
		loop.WithEscalator(safety.NewLogEscalator(log)),
	}

	if path := cfg.EventsPath(); withEvents && path != "" {
		store, err := eventstore.NewSQLiteStore(path)
		if err != nil {
			return nil, fmt.Errorf("open event store: %w", err)
		}
		e.events = store
		opts = append(opts, loop.WithSink(store))
	}

	e.loop = loop.New(e.recommender, reward.New(cfg.Reward), log, opts...)

	if e.events != nil {
		events, err := e.events.List(ctx, "", 0)
		if err != nil {
			e.Close()
			return nil, fmt.Errorf("replay events: %w", err)
		}
		e.loop.Replay(events)
		log.Info("replayed events", "count", len(events))
	}

	return e, nil
}

// learnerName returns the configured learner type, "none" without one.
func (e *engine) learnerName() string {
	if e.learner == nil {
		return string(bandit.LearnerTypeNone)
	}
	return e.learner.Name()
}

// Close releases the event store.
func (e *engine) Close() error {
	var errs []error
	if e.events != nil {
		errs = append(errs, e.events.Close())
	}
	return errors.Join(errs...)
}
