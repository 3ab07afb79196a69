package bandit

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"sync"

	"gonum.org/v1/gonum/stat/distuv"
)

// DefaultSuccessThreshold is the reward above which an outcome counts as a success.
const DefaultSuccessThreshold = 0.5

const probabilityEpsilon = 1e-12

// BetaBernoulli is a Thompson sampler with a Beta(1, 1) prior per action.
// Rewards are binarized at the success threshold. Context is ignored.
type BetaBernoulli struct {
	threshold float64
	src       rand.Source
	logger    *slog.Logger

	mu           sync.RWMutex
	alpha        []float64
	beta         []float64
	counts       []int64
	totalRewards []float64
}

type betaBernoulliState struct {
	Learner      string    `json:"learner"`
	Threshold    float64   `json:"threshold"`
	Alpha        []float64 `json:"alpha"`
	Beta         []float64 `json:"beta"`
	Counts       []int64   `json:"counts"`
	TotalRewards []float64 `json:"total_rewards"`
}

// NewBetaBernoulli creates a sampler over numActions actions.
func NewBetaBernoulli(numActions int, threshold float64, src rand.Source) *BetaBernoulli {
	if src == nil {
		src = NewSource(0)
	}
	b := &BetaBernoulli{
		threshold:    threshold,
		src:          src,
		logger:       slog.Default(),
		alpha:        make([]float64, numActions),
		beta:         make([]float64, numActions),
		counts:       make([]int64, numActions),
		totalRewards: make([]float64, numActions),
	}
	for i := range b.alpha {
		b.alpha[i] = 1
		b.beta[i] = 1
	}
	return b
}

// SetLogger sets the logger used for snapshot warnings.
func (b *BetaBernoulli) SetLogger(logger *slog.Logger) {
	if logger != nil {
		b.logger = logger
	}
}

// Threshold returns the success threshold.
func (b *BetaBernoulli) Threshold() float64 {
	return b.threshold
}

// Name returns the learner name.
func (b *BetaBernoulli) Name() string {
	return string(LearnerTypeBetaBernoulli)
}

// Select draws one Beta sample per allowed action and returns the argmax.
func (b *BetaBernoulli) Select(_ []float64, allowed []int) int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return argmax(allowed, len(b.alpha), func(id int) float64 {
		d := distuv.Beta{Alpha: b.alpha[id], Beta: b.beta[id], Src: b.src}
		return d.Rand()
	})
}

// Update counts the reward as a success when it exceeds the threshold.
func (b *BetaBernoulli) Update(actionID int, _ []float64, reward float64) error {
	if err := checkReward(reward); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if actionID < 0 || actionID >= len(b.alpha) {
		return fmt.Errorf("action %d: %w", actionID, ErrUnknownAction)
	}

	if reward > b.threshold {
		b.alpha[actionID]++
	} else {
		b.beta[actionID]++
	}
	b.counts[actionID]++
	b.totalRewards[actionID] += reward

	return nil
}

// ExpectedReward returns the posterior mean success rate of an action.
func (b *BetaBernoulli) ExpectedReward(actionID int) (float64, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if actionID < 0 || actionID >= len(b.alpha) {
		return 0, fmt.Errorf("action %d: %w", actionID, ErrUnknownAction)
	}
	return b.mean(actionID), nil
}

func (b *BetaBernoulli) mean(id int) float64 {
	return b.alpha[id] / (b.alpha[id] + b.beta[id])
}

// Probabilities normalizes the expected rewards of the allowed actions.
// Unknown actions are skipped.
func (b *BetaBernoulli) Probabilities(allowed []int) map[int]float64 {
	b.mu.RLock()
	defer b.mu.RUnlock()

	expected := make(map[int]float64, len(allowed))
	var total float64
	for _, id := range allowed {
		if id < 0 || id >= len(b.alpha) {
			continue
		}
		if _, seen := expected[id]; seen {
			continue
		}
		expected[id] = b.mean(id)
		total += expected[id]
	}

	probs := make(map[int]float64, len(expected))
	for id, e := range expected {
		probs[id] = e / (total + probabilityEpsilon)
	}
	return probs
}

// Stats returns per-action counts and posteriors.
func (b *BetaBernoulli) Stats() *Stats {
	b.mu.RLock()
	defer b.mu.RUnlock()

	stats := &Stats{
		Learner: b.Name(),
		Actions: make([]*ActionStats, len(b.alpha)),
	}
	for i := range b.alpha {
		expected := b.mean(i)
		stats.TotalUpdates += b.counts[i]
		stats.Actions[i] = &ActionStats{
			ActionID:       i,
			Count:          b.counts[i],
			TotalReward:    b.totalRewards[i],
			Alpha:          b.alpha[i],
			Beta:           b.beta[i],
			ExpectedReward: &expected,
		}
	}
	return stats
}

// Save serializes the learner state to a writer.
func (b *BetaBernoulli) Save(w io.Writer) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return json.NewEncoder(w).Encode(betaBernoulliState{
		Learner:      b.Name(),
		Threshold:    b.threshold,
		Alpha:        b.alpha,
		Beta:         b.beta,
		Counts:       b.counts,
		TotalRewards: b.totalRewards,
	})
}

// Load deserializes the learner state from a reader. The snapshot must
// cover the same number of actions. The configured success threshold is
// kept when the snapshot was taken with another one.
func (b *BetaBernoulli) Load(r io.Reader) error {
	var st betaBernoulliState
	if err := json.NewDecoder(r).Decode(&st); err != nil {
		return fmt.Errorf("decode snapshot: %w", err)
	}

	if st.Learner != "" && st.Learner != b.Name() {
		return fmt.Errorf("snapshot is for learner %q, not %q", st.Learner, b.Name())
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	n := len(b.alpha)
	if len(st.Alpha) != n || len(st.Beta) != n {
		return fmt.Errorf("snapshot has %d actions, learner has %d: %w", len(st.Alpha), n, ErrDimensionMismatch)
	}
	for i := 0; i < n; i++ {
		if st.Alpha[i] <= 0 || st.Beta[i] <= 0 {
			return fmt.Errorf("action %d: beta parameters must be positive", i)
		}
	}
	if len(st.Counts) != n {
		st.Counts = make([]int64, n)
	}
	if len(st.TotalRewards) != n {
		st.TotalRewards = make([]float64, n)
	}

	if st.Threshold != 0 && st.Threshold != b.threshold {
		b.logger.Warn("snapshot success threshold differs, keeping configured value",
			"snapshot", st.Threshold,
			"configured", b.threshold,
		)
	}

	b.alpha = st.Alpha
	b.beta = st.Beta
	b.counts = st.Counts
	b.totalRewards = st.TotalRewards

	return nil
}
