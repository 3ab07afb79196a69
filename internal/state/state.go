// Package state holds the flat feature map a user's day is described by.
package state

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Feature keys read by the engine.
const (
	ReadinessScore        = "readiness_score"
	SleepScore            = "sleep_score"
	SleepDurationHours    = "sleep_duration_hours"
	ActivityScore         = "activity_score"
	HRV                   = "hrv"
	RestingHR             = "resting_hr"
	Fatigue               = "fatigue"
	Soreness              = "soreness"
	DaysSinceTraining     = "days_since_training"
	OvertrainingRisk      = "overtraining_risk"
	TrainingFrequencyWeek = "training_frequency_last_week"
	InjuryHistory         = "injury_history"
)

// State is a flat mapping from feature name to value. Any key may be missing.
type State map[string]any

// Lookup returns the numeric value for key and whether it was present and
// numeric. NaN and infinite values count as missing.
func (s State) Lookup(key string) (float64, bool) {
	v, ok := s[key]
	if !ok || v == nil {
		return 0, false
	}
	return toFloat(v)
}

// Float returns the numeric value for key, or def when missing or not numeric.
func (s State) Float(key string, def float64) float64 {
	if v, ok := s.Lookup(key); ok {
		return v
	}
	return def
}

// Bool returns the boolean value for key. Numbers are true when non-zero.
func (s State) Bool(key string) bool {
	switch v := s[key].(type) {
	case bool:
		return v
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		return err == nil && b
	case nil:
		return false
	}
	f, ok := s.Lookup(key)
	return ok && f != 0
}

// String returns the string value for key.
func (s State) String(key string) string {
	if v, ok := s[key].(string); ok {
		return v
	}
	return ""
}

// Strings returns a list of strings for key. A single string is returned as a
// one element list.
func (s State) Strings(key string) []string {
	switch v := s[key].(type) {
	case []string:
		return v
	case string:
		if v == "" {
			return nil
		}
		return []string{v}
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if str, ok := item.(string); ok {
				out = append(out, str)
			}
		}
		return out
	}
	return nil
}

// Clone returns a shallow copy.
func (s State) Clone() State {
	out := make(State, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

func toFloat(v any) (float64, bool) {
	f, ok := numeric(v)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func numeric(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	}
	return 0, false
}
