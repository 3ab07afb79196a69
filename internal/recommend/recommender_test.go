package recommend

import (
	"bytes"
	"io"
	"log/slog"
	"math"
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/haskel/pacer/internal/action"
	"github.com/haskel/pacer/internal/bandit"
	"github.com/haskel/pacer/internal/safety"
	"github.com/haskel/pacer/internal/state"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestRecommender(t *testing.T, learner bandit.Learner, useRL bool) *Recommender {
	t.Helper()
	space := action.NewSpace()
	gate := safety.NewGate(safety.NewGuardrails(safety.DefaultThresholds()), space)
	return New(space, gate, learner, useRL, discardLogger())
}

func healthyState() state.State {
	return state.State{
		state.ReadinessScore:     80.0,
		state.SleepDurationHours: 8.0,
		state.Fatigue:            3.0,
		state.DaysSinceTraining:  1.0,
	}
}

func boolPtr(b bool) *bool { return &b }

func TestRuleSelector_Rules(t *testing.T) {
	tests := []struct {
		name      string
		modify    func(state.State)
		wantType  action.WorkoutType
		wantLevel action.Intensity
	}{
		{
			name:      "low readiness rests",
			modify:    func(s state.State) { s[state.ReadinessScore] = 35.0 },
			wantType:  action.WorkoutRest,
			wantLevel: action.IntensityNone,
		},
		{
			name:      "short sleep rests",
			modify:    func(s state.State) { s[state.SleepDurationHours] = 4.5 },
			wantType:  action.WorkoutRest,
			wantLevel: action.IntensityNone,
		},
		{
			name:      "fatigue picks recovery",
			modify:    func(s state.State) { s[state.Fatigue] = 7.5 },
			wantType:  action.WorkoutRecovery,
			wantLevel: action.IntensityLow,
		},
		{
			name:      "long break picks medium",
			modify:    func(s state.State) { s[state.DaysSinceTraining] = 4.0 },
			wantType:  action.WorkoutStrength,
			wantLevel: action.IntensityMedium,
		},
		{
			name:      "default picks low",
			modify:    func(state.State) {},
			wantType:  action.WorkoutRecovery,
			wantLevel: action.IntensityLow,
		},
	}

	r := newTestRecommender(t, nil, false)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := healthyState()
			tt.modify(s)

			rec := r.Recommend(s, nil)
			if rec.WorkoutType != tt.wantType {
				t.Errorf("expected %s, got %s", tt.wantType, rec.WorkoutType)
			}
			if rec.Intensity != tt.wantLevel {
				t.Errorf("expected %s, got %s", tt.wantLevel, rec.Intensity)
			}
		})
	}
}

func TestRuleSelector_FallsBackToFirstAllowed(t *testing.T) {
	sel := NewRuleSelector(action.NewSpace())

	// Only high intensity cardio is allowed: no recovery, medium or low.
	if got := sel.Select(healthyState(), []int{16, 17}); got != 16 {
		t.Errorf("expected first allowed 16, got %d", got)
	}
	if got := sel.Select(healthyState(), nil); got != action.RestID {
		t.Errorf("expected RestID for empty candidates, got %d", got)
	}
}

func TestRecommend_ForcedRest(t *testing.T) {
	learner := bandit.NewBetaBernoulli(18, bandit.DefaultSuccessThreshold, bandit.NewSource(1))
	r := newTestRecommender(t, learner, true)

	s := state.State{
		state.ReadinessScore:     30.0,
		state.SleepDurationHours: 3.0,
	}

	for _, useRL := range []bool{true, false} {
		rec := r.Recommend(s, boolPtr(useRL))
		if rec.WorkoutType != action.WorkoutRest {
			t.Errorf("useRL=%v: expected REST, got %s", useRL, rec.WorkoutType)
		}
		if rec.Strategy != "forced_rest" {
			t.Errorf("useRL=%v: expected forced_rest strategy, got %s", useRL, rec.Strategy)
		}
		want := "Rest day recommended due to low readiness (30) or insufficient sleep (3.0h)"
		if rec.Rationale != want {
			t.Errorf("unexpected rationale %q", rec.Rationale)
		}
		if rec.Safety.IsSafe {
			t.Error("expected unsafe safety annotation")
		}
	}
}

func TestRecommend_HighFatigueStaysLight(t *testing.T) {
	learner := bandit.NewLinear(18, ContextDim, bandit.DefaultSigma, bandit.NewSource(3))
	r := newTestRecommender(t, learner, true)

	s := healthyState()
	s[state.Fatigue] = 9.0

	for i := 0; i < 100; i++ {
		rec := r.Recommend(s, nil)
		if rec.WorkoutType != action.WorkoutRest && rec.WorkoutType != action.WorkoutRecovery {
			t.Fatalf("unexpected workout type %s", rec.WorkoutType)
		}
		if rec.Intensity > action.IntensityLow {
			t.Fatalf("unexpected intensity %s", rec.Intensity)
		}
	}
}

func TestRecommend_NeverOutsideCandidates(t *testing.T) {
	learner := bandit.NewBetaBernoulli(18, bandit.DefaultSuccessThreshold, bandit.NewSource(5))
	r := newTestRecommender(t, learner, true)
	rng := rand.New(rand.NewPCG(1, 2))

	for i := 0; i < 500; i++ {
		s := state.State{
			state.ReadinessScore:     rng.Float64() * 100,
			state.SleepDurationHours: rng.Float64() * 10,
			state.Fatigue:            rng.Float64() * 10,
			state.Soreness:           rng.Float64() * 10,
			state.RestingHR:          40 + rng.Float64()*80,
			state.HRV:                rng.Float64() * 100,
			state.OvertrainingRisk:   rng.IntN(10) == 0,
		}

		rec := r.Recommend(s, boolPtr(i%2 == 0))

		if !slices.Contains(rec.Candidates, rec.ActionID) {
			t.Fatalf("action %d outside candidates %v for %v", rec.ActionID, rec.Candidates, s)
		}
		if rec.Safety.RiskLevel == safety.RiskCritical && rec.ActionID != action.RestID {
			t.Fatalf("critical state served action %d", rec.ActionID)
		}
		_ = r.Update(rec.ActionID, s, rng.Float64())
	}
}

func TestRecommend_Deterministic(t *testing.T) {
	build := func() *Recommender {
		learner := bandit.NewBetaBernoulli(18, bandit.DefaultSuccessThreshold, bandit.NewSource(42))
		return newTestRecommender(t, learner, true)
	}
	a, b := build(), build()

	states := []state.State{
		healthyState(),
		{state.ReadinessScore: 55.0, state.Fatigue: 6.0},
		{state.ReadinessScore: 90.0, state.DaysSinceTraining: 5.0},
		{state.Soreness: 9.0},
	}

	for round := 0; round < 5; round++ {
		for i, s := range states {
			ra, rb := a.Recommend(s, nil), b.Recommend(s, nil)
			if ra.ActionID != rb.ActionID || ra.Rationale != rb.Rationale {
				t.Fatalf("round %d state %d: %d vs %d", round, i, ra.ActionID, rb.ActionID)
			}
			_ = a.Update(ra.ActionID, s, 1)
			_ = b.Update(rb.ActionID, s, 1)
		}
	}
}

func TestRecommend_UseRLOverride(t *testing.T) {
	learner := bandit.NewBetaBernoulli(18, bandit.DefaultSuccessThreshold, bandit.NewSource(1))
	r := newTestRecommender(t, learner, false)

	if rec := r.Recommend(healthyState(), nil); rec.Strategy != "rules" {
		t.Errorf("expected rules by default, got %s", rec.Strategy)
	}

	rec := r.Recommend(healthyState(), boolPtr(true))
	if rec.Strategy != "beta_bernoulli" {
		t.Errorf("expected beta_bernoulli, got %s", rec.Strategy)
	}
	if len(rec.Context) != ContextDim {
		t.Errorf("expected context of length %d, got %v", ContextDim, rec.Context)
	}

	noLearner := newTestRecommender(t, nil, true)
	if noLearner.UseRL() {
		t.Error("UseRL should be false without a learner")
	}
	if rec := noLearner.Recommend(healthyState(), boolPtr(true)); rec.Strategy != "rules" {
		t.Errorf("expected rules without learner, got %s", rec.Strategy)
	}
}

func TestRecommend_Rationale(t *testing.T) {
	r := newTestRecommender(t, nil, false)

	rec := r.Recommend(healthyState(), nil)
	if rec.Rationale != "Low intensity recovery recommended based on current recovery state" {
		t.Errorf("unexpected rationale %q", rec.Rationale)
	}

	s := healthyState()
	s[state.DaysSinceTraining] = 3.0
	rec = r.Recommend(s, nil)
	if rec.Rationale != "MEDIUM intensity strength recommended - you're well recovered" {
		t.Errorf("unexpected rationale %q", rec.Rationale)
	}
}

func TestRecommender_Update(t *testing.T) {
	if err := newTestRecommender(t, nil, false).Update(3, healthyState(), 1); err != nil {
		t.Errorf("update without learner should be a no-op, got %v", err)
	}

	learner := bandit.NewLinear(18, ContextDim, bandit.DefaultSigma, bandit.NewSource(1))
	r := newTestRecommender(t, learner, true)

	if err := r.Update(3, healthyState(), 1.5); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got := learner.Stats().Actions[3].Count; got != 1 {
		t.Errorf("expected one update on action 3, got %d", got)
	}

	b, _ := learner.Precision(3)
	x := ContextVector(healthyState())
	if math.Abs(b.At(0, 0)-(1+x[0]*x[0])) > 1e-12 {
		t.Errorf("update did not use the served state context")
	}

	if err := r.Update(40, healthyState(), 1); err == nil {
		t.Error("expected error for unknown action")
	}
}

func TestContextVector(t *testing.T) {
	got := ContextVector(state.State{})
	want := []float64{0.5, 0.5, 0.5, 0.5, 0.6, 0.5, 1.0 / 7}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-12 {
			t.Errorf("feature %d: expected %f, got %f", i, want[i], got[i])
		}
	}

	got = ContextVector(state.State{state.ReadinessScore: 80.0, state.DaysSinceTraining: 14.0})
	if got[0] != 0.8 || got[6] != 2 {
		t.Errorf("unexpected vector %v", got)
	}
}

func TestContextVector_NonFiniteAndExtreme(t *testing.T) {
	got := ContextVector(state.State{
		state.ReadinessScore: "NaN",
		state.SleepScore:     math.Inf(1),
		state.HRV:            1e200,
		state.RestingHR:      -1e200,
	})

	want := []float64{0.5, 0.5, 0.5, maxFeature, -maxFeature, 0.5, 1.0 / 7}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-12 {
			t.Errorf("feature %d: expected %f, got %f", i, want[i], got[i])
		}
	}
}

func TestRecommender_ExtremeStateKeepsLinearUsable(t *testing.T) {
	learner := bandit.NewLinear(18, ContextDim, bandit.DefaultSigma, bandit.NewSource(9))
	r := newTestRecommender(t, learner, true)

	s := healthyState()
	s[state.HRV] = 1e200

	rec := r.Recommend(s, nil)
	if err := r.Update(rec.ActionID, s, 1.65); err != nil {
		t.Fatalf("Update: %v", err)
	}

	var buf bytes.Buffer
	if err := learner.Save(&buf); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if got := learner.Stats().Actions[rec.ActionID].Count; got != 1 {
		t.Errorf("expected one update, got %d", got)
	}
	for i := 0; i < 20; i++ {
		r.Recommend(healthyState(), nil)
	}
}
