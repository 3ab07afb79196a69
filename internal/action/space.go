package action

import (
	"errors"
	"fmt"
)

// RestID is the ID of the rest action in every catalogue.
const RestID = 0

// ErrNotFound is returned when an action ID is outside the catalogue.
var ErrNotFound = errors.New("action not found")

// Entry describes a catalogue action before an ID is assigned.
type Entry struct {
	WorkoutType     WorkoutType `json:"workout_type" yaml:"workout_type"`
	Intensity       Intensity   `json:"intensity" yaml:"intensity"`
	DurationMinutes int         `json:"duration" yaml:"duration"`
}

type actionKey struct {
	workoutType WorkoutType
	intensity   Intensity
	duration    int
}

// Space is an immutable catalogue of actions with stable IDs.
// Safe for concurrent use.
type Space struct {
	actions []Action
	byKey   map[actionKey]int
}

// NewSpace builds the default 18 action catalogue.
func NewSpace() *Space {
	entries := []Entry{
		{WorkoutRecovery, IntensityLow, 20},
		{WorkoutRecovery, IntensityLow, 30},
	}
	for _, level := range []Intensity{IntensityLow, IntensityMedium, IntensityHigh} {
		for _, d := range []int{30, 45} {
			entries = append(entries, Entry{WorkoutStrength, level, d})
		}
	}
	for _, level := range []Intensity{IntensityLow, IntensityMedium, IntensityHigh} {
		for _, d := range []int{20, 30, 45} {
			entries = append(entries, Entry{WorkoutCardio, level, d})
		}
	}

	s, err := NewCustomSpace(entries)
	if err != nil {
		panic(fmt.Sprintf("default action catalogue: %v", err))
	}
	return s
}

// NewCustomSpace builds a catalogue from entries. The rest action is always
// placed at RestID; rest entries in the input are rejected.
func NewCustomSpace(entries []Entry) (*Space, error) {
	s := &Space{
		actions: make([]Action, 0, len(entries)+1),
		byKey:   make(map[actionKey]int, len(entries)+1),
	}
	s.add(Entry{WorkoutRest, IntensityNone, 0})

	for i, e := range entries {
		if !e.WorkoutType.IsValid() {
			return nil, fmt.Errorf("entry %d: unknown workout type %q", i, e.WorkoutType)
		}
		if e.WorkoutType == WorkoutRest {
			return nil, fmt.Errorf("entry %d: rest action is implicit", i)
		}
		if e.Intensity < IntensityNone || e.Intensity > IntensityHigh {
			return nil, fmt.Errorf("entry %d: unknown intensity %d", i, int(e.Intensity))
		}
		if e.DurationMinutes <= 0 {
			return nil, fmt.Errorf("entry %d: duration must be positive, got %d", i, e.DurationMinutes)
		}
		key := actionKey{e.WorkoutType, e.Intensity, e.DurationMinutes}
		if _, exists := s.byKey[key]; exists {
			return nil, fmt.Errorf("entry %d: duplicate action %s/%s/%d", i, e.WorkoutType, e.Intensity, e.DurationMinutes)
		}
		s.add(e)
	}

	return s, nil
}

func (s *Space) add(e Entry) {
	id := len(s.actions)
	s.actions = append(s.actions, Action{
		ID:              id,
		WorkoutType:     e.WorkoutType,
		Intensity:       e.Intensity,
		DurationMinutes: e.DurationMinutes,
		Description:     describe(e.WorkoutType, e.Intensity, e.DurationMinutes),
	})
	s.byKey[actionKey{e.WorkoutType, e.Intensity, e.DurationMinutes}] = id
}

// Get returns the action with the given ID.
func (s *Space) Get(id int) (Action, error) {
	if id < 0 || id >= len(s.actions) {
		return Action{}, fmt.Errorf("id %d: %w", id, ErrNotFound)
	}
	return s.actions[id], nil
}

// ID returns the ID for a combination, or RestID if it is not in the catalogue.
func (s *Space) ID(w WorkoutType, i Intensity, duration int) int {
	if id, ok := s.byKey[actionKey{w, i, duration}]; ok {
		return id
	}
	return RestID
}

// Filter returns the IDs of actions whose type is in allowed and whose
// intensity does not exceed max, in ascending order.
func (s *Space) Filter(allowed []WorkoutType, max Intensity) []int {
	types := make(map[WorkoutType]bool, len(allowed))
	for _, w := range allowed {
		types[w] = true
	}

	ids := make([]int, 0, len(s.actions))
	for _, a := range s.actions {
		if types[a.WorkoutType] && a.Intensity <= max {
			ids = append(ids, a.ID)
		}
	}
	return ids
}

// Count returns the number of actions.
func (s *Space) Count() int {
	return len(s.actions)
}

// All returns a copy of the catalogue.
func (s *Space) All() []Action {
	out := make([]Action, len(s.actions))
	copy(out, s.actions)
	return out
}

// IDs returns every action ID in ascending order.
func (s *Space) IDs() []int {
	ids := make([]int, len(s.actions))
	for i := range s.actions {
		ids[i] = i
	}
	return ids
}
