package recommend

import (
	"math"

	"github.com/haskel/pacer/internal/state"
)

const (
	// ContextDim is the length of the vector built by ContextVector.
	ContextDim = 7

	// maxFeature bounds the magnitude of every normalized feature.
	maxFeature = 10.0
)

type feature struct {
	key   string
	def   float64
	scale float64
}

// features defines the context vector, in order.
var features = [ContextDim]feature{
	{state.ReadinessScore, 50, 100},
	{state.SleepScore, 50, 100},
	{state.ActivityScore, 50, 100},
	{state.HRV, 50, 100},
	{state.RestingHR, 60, 100},
	{state.Fatigue, 5, 10},
	{state.DaysSinceTraining, 1, 7},
}

// ContextVector converts a state into the normalized learner context.
// Missing and non-finite values take their defaults; every feature is
// clamped to [-maxFeature, maxFeature].
func ContextVector(s state.State) []float64 {
	out := make([]float64, ContextDim)
	for i, f := range features {
		v := s.Float(f.key, f.def) / f.scale
		out[i] = math.Max(-maxFeature, math.Min(maxFeature, v))
	}
	return out
}
