package action

import (
	"fmt"
	"strings"
)

// WorkoutType is the kind of training session.
type WorkoutType string

const (
	WorkoutRest     WorkoutType = "REST"
	WorkoutRecovery WorkoutType = "RECOVERY"
	WorkoutStrength WorkoutType = "STRENGTH"
	WorkoutCardio   WorkoutType = "CARDIO"
)

// WorkoutTypes lists every workout type in catalogue order.
var WorkoutTypes = []WorkoutType{WorkoutRest, WorkoutRecovery, WorkoutStrength, WorkoutCardio}

// IsValid checks if the workout type is known.
func (w WorkoutType) IsValid() bool {
	switch w {
	case WorkoutRest, WorkoutRecovery, WorkoutStrength, WorkoutCardio:
		return true
	}
	return false
}

// String returns string representation.
func (w WorkoutType) String() string {
	return string(w)
}

// ParseWorkoutType parses a workout type name, case-insensitive.
func ParseWorkoutType(s string) (WorkoutType, error) {
	w := WorkoutType(strings.ToUpper(strings.TrimSpace(s)))
	if !w.IsValid() {
		return "", fmt.Errorf("unknown workout type: %q", s)
	}
	return w, nil
}

// Intensity is an ordered training load level.
type Intensity int

const (
	IntensityNone Intensity = iota
	IntensityLow
	IntensityMedium
	IntensityHigh
)

var intensityNames = map[Intensity]string{
	IntensityNone:   "NONE",
	IntensityLow:    "LOW",
	IntensityMedium: "MEDIUM",
	IntensityHigh:   "HIGH",
}

// String returns string representation.
func (i Intensity) String() string {
	if name, ok := intensityNames[i]; ok {
		return name
	}
	return "UNKNOWN"
}

// ParseIntensity parses an intensity name, case-insensitive.
func ParseIntensity(s string) (Intensity, error) {
	upper := strings.ToUpper(strings.TrimSpace(s))
	for level, name := range intensityNames {
		if name == upper {
			return level, nil
		}
	}
	return IntensityNone, fmt.Errorf("unknown intensity: %q", s)
}

// MarshalText encodes the intensity as its name.
func (i Intensity) MarshalText() ([]byte, error) {
	if _, ok := intensityNames[i]; !ok {
		return nil, fmt.Errorf("unknown intensity: %d", int(i))
	}
	return []byte(i.String()), nil
}

// UnmarshalText decodes an intensity name.
func (i *Intensity) UnmarshalText(text []byte) error {
	level, err := ParseIntensity(string(text))
	if err != nil {
		return err
	}
	*i = level
	return nil
}

// Action is one entry of the training catalogue.
type Action struct {
	ID              int         `json:"action_id"`
	WorkoutType     WorkoutType `json:"workout_type"`
	Intensity       Intensity   `json:"intensity"`
	DurationMinutes int         `json:"duration"`
	Description     string      `json:"description"`
}

func describe(w WorkoutType, i Intensity, duration int) string {
	switch w {
	case WorkoutRest:
		return "Rest day - no training"
	case WorkoutRecovery:
		return fmt.Sprintf("Recovery session - %d minutes", duration)
	case WorkoutStrength:
		return fmt.Sprintf("Strength training - %s intensity, %d min", i, duration)
	case WorkoutCardio:
		return fmt.Sprintf("Cardio - %s intensity, %d min", i, duration)
	}
	return fmt.Sprintf("%s - %s intensity, %d min", w, i, duration)
}
