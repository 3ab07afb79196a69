package recommend

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/haskel/pacer/internal/action"
	"github.com/haskel/pacer/internal/bandit"
	"github.com/haskel/pacer/internal/safety"
	"github.com/haskel/pacer/internal/state"
)

// Recommendation is the plan served for one state.
type Recommendation struct {
	RecommendationID string             `json:"recommendation_id,omitempty"`
	ActionID         int                `json:"action_id"`
	WorkoutType      action.WorkoutType `json:"workout_type"`
	Intensity        action.Intensity   `json:"intensity"`
	DurationMinutes  int                `json:"duration_minutes"`
	Description      string             `json:"description"`
	Rationale        string             `json:"rationale"`
	Safety           safety.CheckResult `json:"safety_check"`
	Strategy         string             `json:"strategy"`
	Candidates       []int              `json:"candidates"`
	Context          []float64          `json:"context,omitempty"`
}

// Recommender combines the safety gate with rule based or learned selection.
// Safe for concurrent use when its learner is.
type Recommender struct {
	space   *action.Space
	gate    *safety.Gate
	learner bandit.Learner
	rules   *RuleSelector
	bandit  *BanditSelector
	useRL   bool
	logger  *slog.Logger
}

// New creates a recommender. learner may be nil, in which case the rule
// selector is always used.
func New(space *action.Space, gate *safety.Gate, learner bandit.Learner, useRL bool, logger *slog.Logger) *Recommender {
	if logger == nil {
		logger = slog.Default()
	}

	r := &Recommender{
		space:   space,
		gate:    gate,
		learner: learner,
		rules:   NewRuleSelector(space),
		useRL:   useRL && learner != nil,
		logger:  logger,
	}
	if learner != nil {
		r.bandit = NewBanditSelector(learner)
	}
	return r
}

// Space returns the action space.
func (r *Recommender) Space() *action.Space {
	return r.space
}

// Gate returns the safety gate.
func (r *Recommender) Gate() *safety.Gate {
	return r.gate
}

// Learner returns the configured learner, or nil.
func (r *Recommender) Learner() bandit.Learner {
	return r.learner
}

// UseRL reports whether learned selection is the default.
func (r *Recommender) UseRL() bool {
	return r.useRL
}

// selector resolves which selector serves a request.
func (r *Recommender) selector(useRL *bool) Selector {
	use := r.useRL
	if useRL != nil {
		use = *useRL
	}
	if use && r.bandit != nil {
		return r.bandit
	}
	return r.rules
}

// Recommend returns the plan for a state. useRL overrides the configured
// default when non-nil. The result always names an action allowed by the
// safety gate.
func (r *Recommender) Recommend(s state.State, useRL *bool) *Recommendation {
	check := r.gate.Check(s)
	allowed := r.gate.FilterFor(check, r.space.IDs())

	sel := r.selector(useRL)
	strategy := sel.Name()

	var id int
	if needsRest(s) {
		id = action.RestID
		strategy = strategyForcedRest
	} else {
		id = sel.Select(s, allowed)
	}

	a, err := r.space.Get(id)
	if err != nil {
		r.logger.Warn("selector returned unknown action, falling back to rest",
			"selector", sel.Name(),
			"action_id", id,
		)
		a, _ = r.space.Get(action.RestID)
	}

	rec := &Recommendation{
		ActionID:        a.ID,
		WorkoutType:     a.WorkoutType,
		Intensity:       a.Intensity,
		DurationMinutes: a.DurationMinutes,
		Description:     a.Description,
		Rationale:       rationale(s, a),
		Safety:          check,
		Strategy:        strategy,
		Candidates:      allowed,
	}
	if _, learned := sel.(*BanditSelector); learned {
		rec.Context = ContextVector(s)
	}

	r.logger.Debug("recommendation",
		"action_id", rec.ActionID,
		"strategy", rec.Strategy,
		"risk_level", check.RiskLevel,
		"candidates", len(allowed),
	)

	return rec
}

// Update feeds a reward for an action served in state s to the learner.
// Without a learner it does nothing.
func (r *Recommender) Update(actionID int, s state.State, reward float64) error {
	if r.learner == nil {
		return nil
	}
	if err := r.learner.Update(actionID, ContextVector(s), reward); err != nil {
		return fmt.Errorf("update %s: %w", r.learner.Name(), err)
	}
	return nil
}

func rationale(s state.State, a action.Action) string {
	readiness := s.Float(state.ReadinessScore, defaultReadiness)
	sleep := s.Float(state.SleepDurationHours, defaultSleepHours)
	kind := strings.ToLower(string(a.WorkoutType))

	switch {
	case a.WorkoutType == action.WorkoutRest:
		return fmt.Sprintf("Rest day recommended due to low readiness (%g) or insufficient sleep (%.1fh)", readiness, sleep)
	case a.Intensity == action.IntensityLow:
		return fmt.Sprintf("Low intensity %s recommended based on current recovery state", kind)
	default:
		return fmt.Sprintf("%s intensity %s recommended - you're well recovered", a.Intensity, kind)
	}
}
