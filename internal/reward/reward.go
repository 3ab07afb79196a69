package reward

import (
	"errors"
	"fmt"
	"math"

	"github.com/haskel/pacer/internal/state"
)

// Outcome keys accepted by OutcomeFromMap.
const (
	KeyCompletion     = "completion"
	KeyAdherenceRatio = "adherence_ratio"
	KeyRecoveryChange = "recovery_change"
	KeySatisfaction   = "satisfaction"
	KeyOvertraining   = "overtraining"
)

// Weights are the linear coefficients applied to each outcome component.
type Weights struct {
	Completion          float64 `yaml:"completion" json:"completion"`
	Adherence           float64 `yaml:"adherence" json:"adherence"`
	RecoveryChange      float64 `yaml:"recovery_change" json:"recovery_change"`
	Satisfaction        float64 `yaml:"satisfaction" json:"satisfaction"`
	OvertrainingPenalty float64 `yaml:"overtraining_penalty" json:"overtraining_penalty"`
}

// DefaultWeights returns the standard reward weights.
func DefaultWeights() Weights {
	return Weights{
		Completion:          1.0,
		Adherence:           0.5,
		RecoveryChange:      -1.0,
		Satisfaction:        0.3,
		OvertrainingPenalty: -2.0,
	}
}

// Validate checks that every weight is a finite number.
func (w Weights) Validate() error {
	var errs []error
	check := func(name string, v float64) {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			errs = append(errs, fmt.Errorf("%s must be finite", name))
		}
	}
	check("completion", w.Completion)
	check("adherence", w.Adherence)
	check("recovery_change", w.RecoveryChange)
	check("satisfaction", w.Satisfaction)
	check("overtraining_penalty", w.OvertrainingPenalty)
	return errors.Join(errs...)
}

// Outcome is the observed result of a served recommendation.
type Outcome struct {
	Completion     float64 `json:"completion"`
	AdherenceRatio float64 `json:"adherence_ratio"`
	RecoveryChange float64 `json:"recovery_change"`
	Satisfaction   float64 `json:"satisfaction"`
	Overtraining   bool    `json:"overtraining"`
}

// DefaultOutcome returns the outcome assumed for an empty feedback record.
func DefaultOutcome() Outcome {
	return Outcome{
		Completion:     0,
		AdherenceRatio: 1.0,
		RecoveryChange: 0,
		Satisfaction:   0.5,
		Overtraining:   false,
	}
}

// OutcomeFromMap reads an outcome from a feedback record, using the defaults
// for missing keys.
func OutcomeFromMap(m map[string]any) Outcome {
	s := state.State(m)
	def := DefaultOutcome()
	return Outcome{
		Completion:     s.Float(KeyCompletion, def.Completion),
		AdherenceRatio: s.Float(KeyAdherenceRatio, def.AdherenceRatio),
		RecoveryChange: s.Float(KeyRecoveryChange, def.RecoveryChange),
		Satisfaction:   s.Float(KeySatisfaction, def.Satisfaction),
		Overtraining:   s.Bool(KeyOvertraining),
	}
}

// Function maps outcomes to a scalar reward. It is pure and safe for
// concurrent use.
type Function struct {
	weights Weights
}

// New creates a reward function with the given weights.
func New(w Weights) *Function {
	return &Function{weights: w}
}

// Weights returns the weights in use.
func (f *Function) Weights() Weights {
	return f.weights
}

// Compute returns the weighted sum of the outcome components. The result is
// not clamped.
func (f *Function) Compute(o Outcome) float64 {
	w := f.weights

	r := w.Completion * o.Completion
	r += w.Adherence * o.AdherenceRatio
	r += w.RecoveryChange * o.RecoveryChange
	r += w.Satisfaction * o.Satisfaction
	if o.Overtraining {
		r += w.OvertrainingPenalty
	}

	return r
}

// ComputeFromMap computes the reward for a feedback record.
func (f *Function) ComputeFromMap(m map[string]any) float64 {
	return f.Compute(OutcomeFromMap(m))
}
