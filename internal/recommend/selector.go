package recommend

import (
	"github.com/haskel/pacer/internal/action"
	"github.com/haskel/pacer/internal/bandit"
	"github.com/haskel/pacer/internal/state"
)

// Selector picks one action among allowed candidates for a state.
type Selector interface {
	Name() string
	Select(s state.State, allowed []int) int
}

// Rule thresholds.
const (
	RestReadiness   = 40.0
	RestSleepHours  = 5.0
	RecoveryFatigue = 7.0
	ResumeRestDays  = 3.0
)

const (
	defaultReadiness  = 50.0
	defaultSleepHours = 7.0
	defaultFatigue    = 5.0
	defaultDaysSince  = 1.0

	strategyRules      = "rules"
	strategyForcedRest = "forced_rest"
)

// needsRest reports whether the state calls for a rest day regardless of
// the selector in use.
func needsRest(s state.State) bool {
	return s.Float(state.ReadinessScore, defaultReadiness) < RestReadiness ||
		s.Float(state.SleepDurationHours, defaultSleepHours) < RestSleepHours
}

// RuleSelector is the deterministic heuristic baseline.
type RuleSelector struct {
	space *action.Space
}

// NewRuleSelector creates a rule selector over an action space.
func NewRuleSelector(space *action.Space) *RuleSelector {
	return &RuleSelector{space: space}
}

// Name returns the selector name.
func (r *RuleSelector) Name() string {
	return strategyRules
}

// Select applies the rules in order, first match wins.
func (r *RuleSelector) Select(s state.State, allowed []int) int {
	if len(allowed) == 0 || needsRest(s) {
		return action.RestID
	}

	if s.Float(state.Fatigue, defaultFatigue) >= RecoveryFatigue {
		if id, ok := r.first(allowed, func(a action.Action) bool {
			return a.WorkoutType == action.WorkoutRecovery
		}); ok {
			return id
		}
	}

	if s.Float(state.DaysSinceTraining, defaultDaysSince) >= ResumeRestDays {
		if id, ok := r.first(allowed, func(a action.Action) bool {
			return a.Intensity == action.IntensityMedium
		}); ok {
			return id
		}
	}

	if id, ok := r.first(allowed, func(a action.Action) bool {
		return a.Intensity == action.IntensityLow
	}); ok {
		return id
	}

	return allowed[0]
}

func (r *RuleSelector) first(allowed []int, match func(action.Action) bool) (int, bool) {
	for _, id := range allowed {
		a, err := r.space.Get(id)
		if err != nil {
			continue
		}
		if match(a) {
			return id, true
		}
	}
	return 0, false
}

// BanditSelector delegates to a learner using the state's context vector.
type BanditSelector struct {
	learner bandit.Learner
}

// NewBanditSelector wraps a learner.
func NewBanditSelector(l bandit.Learner) *BanditSelector {
	return &BanditSelector{learner: l}
}

// Name returns the learner name.
func (b *BanditSelector) Name() string {
	return b.learner.Name()
}

// Select samples the learner over the allowed candidates.
func (b *BanditSelector) Select(s state.State, allowed []int) int {
	return b.learner.Select(ContextVector(s), allowed)
}
