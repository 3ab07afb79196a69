package bandit

import (
	"fmt"
	"log/slog"
	"math/rand/v2"
)

// Config holds learner configuration.
type Config struct {
	Type             LearnerType
	NumActions       int
	Dim              int
	Sigma            float64
	SuccessThreshold float64
	Seed             uint64

	// Logger receives learner warnings. Nil uses slog.Default.
	Logger *slog.Logger
}

// DefaultConfig returns default learner configuration.
func DefaultConfig() Config {
	return Config{
		Type:             LearnerTypeBetaBernoulli,
		Dim:              7,
		Sigma:            DefaultSigma,
		SuccessThreshold: DefaultSuccessThreshold,
	}
}

// Factory creates learners.
type Factory struct {
	config Config
}

// NewFactory creates a new learner factory.
func NewFactory(cfg Config) *Factory {
	return &Factory{config: cfg}
}

// Create creates a learner based on configuration.
func (f *Factory) Create() (Learner, error) {
	return f.CreateByType(f.config.Type)
}

// CreateByType creates a learner of the specified type. LearnerTypeNone
// yields a nil Learner.
func (f *Factory) CreateByType(t LearnerType) (Learner, error) {
	if f.config.NumActions < 1 {
		return nil, fmt.Errorf("learner needs at least one action, got %d", f.config.NumActions)
	}

	src := f.source()

	switch t {
	case LearnerTypeNone:
		return nil, nil

	case LearnerTypeBetaBernoulli:
		b := NewBetaBernoulli(f.config.NumActions, f.config.SuccessThreshold, src)
		b.SetLogger(f.config.Logger)
		return b, nil

	case LearnerTypeLinear:
		return NewLinear(f.config.NumActions, f.config.Dim, f.config.Sigma, src), nil

	default:
		return nil, fmt.Errorf("unknown learner type: %s", t)
	}
}

func (f *Factory) source() rand.Source {
	return NewSource(f.config.Seed)
}
