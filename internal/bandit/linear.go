package bandit

import (
	"encoding/json"
	"fmt"
	"io"
	"math/rand/v2"
	"sync"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distmv"
)

// DefaultSigma is the default posterior noise scale of the linear learner.
const DefaultSigma = 1.0

// Linear is a Bayesian linear Thompson sampler. Each action keeps a
// precision matrix B (identity prior) and a reward-weighted context sum f.
// Contexts shorter than the learner dimension are zero padded, longer ones
// are truncated.
type Linear struct {
	dim   int
	sigma float64
	src   rand.Source

	mu   sync.RWMutex
	arms []*linearArm
}

type linearArm struct {
	b           *mat.SymDense
	f           *mat.VecDense
	count       int64
	totalReward float64
}

type linearArmState struct {
	B           []float64 `json:"b"`
	F           []float64 `json:"f"`
	Count       int64     `json:"count"`
	TotalReward float64   `json:"total_reward"`
}

type linearState struct {
	Learner string           `json:"learner"`
	Dim     int              `json:"dim"`
	Sigma   float64          `json:"sigma"`
	Arms    []linearArmState `json:"arms"`
}

// NewLinear creates a linear sampler over numActions actions with contexts
// of length dim.
func NewLinear(numActions, dim int, sigma float64, src rand.Source) *Linear {
	if dim < 1 {
		dim = 1
	}
	if sigma <= 0 {
		sigma = DefaultSigma
	}
	if src == nil {
		src = NewSource(0)
	}

	l := &Linear{
		dim:   dim,
		sigma: sigma,
		src:   src,
		arms:  make([]*linearArm, numActions),
	}
	for i := range l.arms {
		l.arms[i] = newLinearArm(dim)
	}
	return l
}

func newLinearArm(dim int) *linearArm {
	b := mat.NewSymDense(dim, nil)
	for i := 0; i < dim; i++ {
		b.SetSym(i, i, 1)
	}
	return &linearArm{
		b: b,
		f: mat.NewVecDense(dim, nil),
	}
}

// Name returns the learner name.
func (l *Linear) Name() string {
	return string(LearnerTypeLinear)
}

// Dim returns the context dimension.
func (l *Linear) Dim() int {
	return l.dim
}

// fit pads or truncates a context to the learner dimension.
func (l *Linear) fit(context []float64) *mat.VecDense {
	x := make([]float64, l.dim)
	copy(x, context)
	return mat.NewVecDense(l.dim, x)
}

// posterior returns the factorized precision and the posterior mean of an
// arm. A precision that cannot be factorized is a broken invariant: B starts
// at identity and only receives positive semi-definite updates.
func (l *Linear) posterior(id int) (*mat.Cholesky, *mat.VecDense) {
	arm := l.arms[id]

	var chol mat.Cholesky
	if ok := chol.Factorize(arm.b); !ok {
		panic(fmt.Sprintf("linear bandit: action %d: %v", id, ErrNotPositiveDefinite))
	}

	var theta mat.VecDense
	if err := chol.SolveVecTo(&theta, arm.f); err != nil {
		panic(fmt.Sprintf("linear bandit: action %d: solve posterior mean: %v", id, err))
	}

	return &chol, &theta
}

// Select samples a weight vector from each allowed action's posterior
// N(B⁻¹f, σ²B⁻¹) and returns the action with the highest sampled score.
func (l *Linear) Select(context []float64, allowed []int) int {
	x := l.fit(context)

	l.mu.RLock()
	defer l.mu.RUnlock()

	return argmax(allowed, len(l.arms), func(id int) float64 {
		chol, theta := l.posterior(id)

		var inv mat.SymDense
		if err := chol.InverseTo(&inv); err != nil {
			panic(fmt.Sprintf("linear bandit: action %d: invert precision: %v", id, err))
		}
		var cov mat.SymDense
		cov.ScaleSym(l.sigma*l.sigma, &inv)

		normal, ok := distmv.NewNormal(theta.RawVector().Data, &cov, l.src)
		if !ok {
			panic(fmt.Sprintf("linear bandit: action %d: %v", id, ErrNotPositiveDefinite))
		}

		sample := mat.NewVecDense(l.dim, normal.Rand(nil))
		return mat.Dot(sample, x)
	})
}

// Update adds the outer product of the context to B and reward times the
// context to f.
func (l *Linear) Update(actionID int, context []float64, reward float64) error {
	if err := checkReward(reward); err != nil {
		return err
	}
	x := l.fit(context)
	if err := checkContext(x.RawVector().Data); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if actionID < 0 || actionID >= len(l.arms) {
		return fmt.Errorf("action %d: %w", actionID, ErrUnknownAction)
	}

	arm := l.arms[actionID]

	// Build the update aside so an overflow leaves the arm untouched.
	b := mat.NewSymDense(l.dim, nil)
	b.SymRankOne(arm.b, 1, x)
	f := mat.NewVecDense(l.dim, nil)
	f.AddScaledVec(arm.f, reward, x)
	if !finiteSym(b) || checkContext(f.RawVector().Data) != nil {
		return fmt.Errorf("action %d: update overflows posterior: %w", actionID, ErrInvalidContext)
	}

	arm.b = b
	arm.f = f
	arm.count++
	arm.totalReward += reward

	return nil
}

func finiteSym(m *mat.SymDense) bool {
	n := m.SymmetricDim()
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			if !isFinite(m.At(i, j)) {
				return false
			}
		}
	}
	return true
}

// ExpectedReward returns θ̂·context for an action without sampling.
func (l *Linear) ExpectedReward(actionID int, context []float64) (float64, error) {
	x := l.fit(context)

	l.mu.RLock()
	defer l.mu.RUnlock()

	if actionID < 0 || actionID >= len(l.arms) {
		return 0, fmt.Errorf("action %d: %w", actionID, ErrUnknownAction)
	}

	_, theta := l.posterior(actionID)
	return mat.Dot(theta, x), nil
}

// Precision returns a copy of an action's precision matrix.
func (l *Linear) Precision(actionID int) (*mat.SymDense, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if actionID < 0 || actionID >= len(l.arms) {
		return nil, fmt.Errorf("action %d: %w", actionID, ErrUnknownAction)
	}

	out := mat.NewSymDense(l.dim, nil)
	out.CopySym(l.arms[actionID].b)
	return out, nil
}

// Stats returns per-action counts and posterior means.
func (l *Linear) Stats() *Stats {
	l.mu.RLock()
	defer l.mu.RUnlock()

	stats := &Stats{
		Learner: l.Name(),
		Actions: make([]*ActionStats, len(l.arms)),
	}
	for i, arm := range l.arms {
		_, theta := l.posterior(i)
		stats.TotalUpdates += arm.count
		stats.Actions[i] = &ActionStats{
			ActionID:    i,
			Count:       arm.count,
			TotalReward: arm.totalReward,
			Theta:       append([]float64(nil), theta.RawVector().Data...),
		}
	}
	return stats
}

// Save serializes the learner state to a writer.
func (l *Linear) Save(w io.Writer) error {
	l.mu.RLock()
	defer l.mu.RUnlock()

	st := linearState{
		Learner: l.Name(),
		Dim:     l.dim,
		Sigma:   l.sigma,
		Arms:    make([]linearArmState, len(l.arms)),
	}
	for i, arm := range l.arms {
		b := make([]float64, 0, l.dim*l.dim)
		for r := 0; r < l.dim; r++ {
			for c := 0; c < l.dim; c++ {
				b = append(b, arm.b.At(r, c))
			}
		}
		st.Arms[i] = linearArmState{
			B:           b,
			F:           append([]float64(nil), arm.f.RawVector().Data...),
			Count:       arm.count,
			TotalReward: arm.totalReward,
		}
	}

	return json.NewEncoder(w).Encode(st)
}

// Load deserializes the learner state from a reader. The snapshot must match
// the learner's action count and dimension, and every precision matrix must
// be symmetric positive definite.
func (l *Linear) Load(r io.Reader) error {
	var st linearState
	if err := json.NewDecoder(r).Decode(&st); err != nil {
		return fmt.Errorf("decode snapshot: %w", err)
	}

	if st.Learner != "" && st.Learner != l.Name() {
		return fmt.Errorf("snapshot is for learner %q, not %q", st.Learner, l.Name())
	}
	if st.Dim != l.dim {
		return fmt.Errorf("snapshot dim %d, learner dim %d: %w", st.Dim, l.dim, ErrDimensionMismatch)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if len(st.Arms) != len(l.arms) {
		return fmt.Errorf("snapshot has %d actions, learner has %d: %w", len(st.Arms), len(l.arms), ErrDimensionMismatch)
	}

	arms := make([]*linearArm, len(st.Arms))
	for i, a := range st.Arms {
		if len(a.B) != l.dim*l.dim || len(a.F) != l.dim {
			return fmt.Errorf("action %d: %w", i, ErrDimensionMismatch)
		}
		for r := 0; r < l.dim; r++ {
			for c := r + 1; c < l.dim; c++ {
				if a.B[r*l.dim+c] != a.B[c*l.dim+r] {
					return fmt.Errorf("action %d: precision matrix is not symmetric", i)
				}
			}
		}

		b := mat.NewSymDense(l.dim, append([]float64(nil), a.B...))
		var chol mat.Cholesky
		if ok := chol.Factorize(b); !ok {
			return fmt.Errorf("action %d: %w", i, ErrNotPositiveDefinite)
		}

		arms[i] = &linearArm{
			b:           b,
			f:           mat.NewVecDense(l.dim, append([]float64(nil), a.F...)),
			count:       a.Count,
			totalReward: a.TotalReward,
		}
	}

	l.arms = arms
	if st.Sigma > 0 {
		l.sigma = st.Sigma
	}

	return nil
}
