// Package simulate trains a recommender offline against synthetic athletes.
package simulate

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"

	"github.com/haskel/pacer/internal/recommend"
	"github.com/haskel/pacer/internal/state"
)

// ProgressEvery is how many episodes pass between Progress calls.
const ProgressEvery = 20

// ErrNoEpisodes is returned when a run is asked for fewer than one episode.
var ErrNoEpisodes = errors.New("at least one episode is required")

// Options configures a simulation run.
type Options struct {
	Episodes int
	// Seed drives the synthetic states and outcomes. Zero picks a random seed.
	Seed uint64
	// UseRL overrides the recommender's default selection when non-nil.
	UseRL *bool
	// Progress, when set, is called with the number of finished episodes.
	Progress func(done int)
}

// ActionSummary is the outcome of one action over a run.
type ActionSummary struct {
	ActionID    int     `json:"action_id"`
	Description string  `json:"description"`
	Count       int     `json:"count"`
	Completions int     `json:"completions"`
	MeanReward  float64 `json:"mean_reward"`
}

// Result summarizes a run. Actions lists only served actions, by ID.
type Result struct {
	Episodes    int             `json:"episodes"`
	Completions int             `json:"completions"`
	Actions     []ActionSummary `json:"actions"`
}

// RandomState draws a plausible daily state.
func RandomState(rng *rand.Rand) state.State {
	uniform := func(lo, hi float64) float64 {
		return lo + rng.Float64()*(hi-lo)
	}

	return state.State{
		state.ReadinessScore:     uniform(30, 100),
		state.SleepScore:         uniform(40, 100),
		state.SleepDurationHours: uniform(4, 9),
		state.ActivityScore:      uniform(30, 100),
		state.HRV:                uniform(25, 90),
		state.RestingHR:          uniform(48, 85),
		state.Fatigue:            uniform(1, 9),
		state.Soreness:           uniform(0, 8),
		state.DaysSinceTraining:  float64(rng.IntN(6)),
	}
}

// Run serves Episodes synthetic days. The outcome of each day is a
// completion drawn with probability readiness/100, fed back as a binary
// reward.
func Run(rec *recommend.Recommender, opts Options) (*Result, error) {
	if opts.Episodes < 1 {
		return nil, ErrNoEpisodes
	}

	seed := opts.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

	byAction := make(map[int]*ActionSummary)
	result := &Result{Episodes: opts.Episodes}

	for i := 0; i < opts.Episodes; i++ {
		s := RandomState(rng)
		plan := rec.Recommend(s, opts.UseRL)

		completion := 0.0
		if rng.Float64() < s.Float(state.ReadinessScore, 50)/100 {
			completion = 1
		}

		if err := rec.Update(plan.ActionID, s, completion); err != nil {
			return nil, fmt.Errorf("episode %d: %w", i+1, err)
		}

		summary, ok := byAction[plan.ActionID]
		if !ok {
			summary = &ActionSummary{ActionID: plan.ActionID, Description: plan.Description}
			byAction[plan.ActionID] = summary
		}
		summary.Count++
		if completion > 0 {
			summary.Completions++
			result.Completions++
		}

		if opts.Progress != nil && (i+1)%ProgressEvery == 0 {
			opts.Progress(i + 1)
		}
	}

	for _, summary := range byAction {
		summary.MeanReward = float64(summary.Completions) / float64(summary.Count)
		result.Actions = append(result.Actions, *summary)
	}
	slices.SortFunc(result.Actions, func(a, b ActionSummary) int {
		return a.ActionID - b.ActionID
	})

	return result, nil
}
