package bandit

import (
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand/v2"
	"sync"

	"github.com/haskel/pacer/internal/action"
)

var (
	// ErrUnknownAction is returned when an update names an action outside the learner.
	ErrUnknownAction = errors.New("unknown action")
	// ErrInvalidReward is returned for NaN or infinite rewards.
	ErrInvalidReward = errors.New("invalid reward")
	// ErrInvalidContext is returned for contexts with non-finite entries or
	// whose update would overflow the posterior.
	ErrInvalidContext = errors.New("invalid context")
	// ErrDimensionMismatch is returned when a snapshot does not fit the learner.
	ErrDimensionMismatch = errors.New("dimension mismatch")
	// ErrNotPositiveDefinite is returned when a snapshot holds a precision
	// matrix that cannot be factorized.
	ErrNotPositiveDefinite = errors.New("precision matrix is not positive definite")
)

// LearnerType represents the type of bandit learner.
type LearnerType string

const (
	LearnerTypeNone          LearnerType = "none"
	LearnerTypeBetaBernoulli LearnerType = "beta_bernoulli"
	LearnerTypeLinear        LearnerType = "linear"
)

// IsValid checks if the learner type is valid.
func (t LearnerType) IsValid() bool {
	switch t {
	case LearnerTypeNone, LearnerTypeBetaBernoulli, LearnerTypeLinear:
		return true
	}
	return false
}

// String returns string representation.
func (t LearnerType) String() string {
	return string(t)
}

// Learner picks an action among allowed candidates and learns from rewards.
type Learner interface {
	// Name returns the learner type name.
	Name() string

	// Select returns one of allowed. An empty allowed list yields action.RestID.
	Select(context []float64, allowed []int) int

	// Update incorporates the reward observed for an action served in context.
	Update(actionID int, context []float64, reward float64) error

	// Stats returns learner statistics.
	Stats() *Stats

	// Persistence
	Save(w io.Writer) error
	Load(r io.Reader) error
}

// Stats contains overall learner statistics.
type Stats struct {
	Learner      string         `json:"learner"`
	TotalUpdates int64          `json:"total_updates"`
	Actions      []*ActionStats `json:"actions"`
}

// ActionStats contains statistics for one action.
type ActionStats struct {
	ActionID    int     `json:"action_id"`
	Count       int64   `json:"count"`
	TotalReward float64 `json:"total_reward"`

	// Beta-Bernoulli posterior
	Alpha          float64  `json:"alpha,omitempty"`
	Beta           float64  `json:"beta,omitempty"`
	ExpectedReward *float64 `json:"expected_reward,omitempty"`

	// Linear posterior mean
	Theta []float64 `json:"theta,omitempty"`
}

// lockedSource serializes access to a random source shared by readers.
type lockedSource struct {
	mu  sync.Mutex
	src rand.Source
}

func (s *lockedSource) Uint64() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.src.Uint64()
}

// NewSource returns a goroutine-safe random source. A zero seed draws a
// random one.
func NewSource(seed uint64) rand.Source {
	if seed == 0 {
		seed = rand.Uint64()
	}
	return &lockedSource{src: rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)}
}

func checkReward(reward float64) error {
	if math.IsNaN(reward) || math.IsInf(reward, 0) {
		return fmt.Errorf("%w: %v", ErrInvalidReward, reward)
	}
	return nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func checkContext(context []float64) error {
	for i, v := range context {
		if !isFinite(v) {
			return fmt.Errorf("%w: feature %d is %v", ErrInvalidContext, i, v)
		}
	}
	return nil
}

// argmax returns the candidate with the highest score. Ties keep the first
// candidate seen. Candidates outside [0, n) are skipped and a NaN score
// ranks lowest.
func argmax(allowed []int, n int, score func(id int) float64) int {
	best := action.RestID
	bestScore := math.Inf(-1)
	found := false

	for _, id := range allowed {
		if id < 0 || id >= n {
			continue
		}
		s := score(id)
		if math.IsNaN(s) {
			s = math.Inf(-1)
		}
		if !found || s > bestScore {
			best, bestScore, found = id, s, true
		}
	}

	return best
}
