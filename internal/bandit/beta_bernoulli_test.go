package bandit

import (
	"bytes"
	"errors"
	"log/slog"
	"math"
	"strings"
	"sync"
	"testing"

	"github.com/haskel/pacer/internal/action"
)

func TestBetaBernoulli_Name(t *testing.T) {
	b := NewBetaBernoulli(3, DefaultSuccessThreshold, NewSource(1))
	if b.Name() != "beta_bernoulli" {
		t.Errorf("expected name 'beta_bernoulli', got '%s'", b.Name())
	}
}

func TestBetaBernoulli_Prior(t *testing.T) {
	b := NewBetaBernoulli(4, DefaultSuccessThreshold, NewSource(1))
	for id := 0; id < 4; id++ {
		e, err := b.ExpectedReward(id)
		if err != nil {
			t.Fatalf("ExpectedReward(%d): %v", id, err)
		}
		if e != 0.5 {
			t.Errorf("expected prior mean 0.5, got %f", e)
		}
	}
}

func TestBetaBernoulli_SelectWithinAllowed(t *testing.T) {
	b := NewBetaBernoulli(18, DefaultSuccessThreshold, NewSource(7))
	allowed := []int{0, 1, 2}

	for i := 0; i < 200; i++ {
		got := b.Select(nil, allowed)
		if got < 0 || got > 2 {
			t.Fatalf("selected %d outside allowed set", got)
		}
	}
}

func TestBetaBernoulli_SelectEmptyAllowed(t *testing.T) {
	b := NewBetaBernoulli(18, DefaultSuccessThreshold, NewSource(7))
	if got := b.Select(nil, nil); got != action.RestID {
		t.Errorf("expected RestID for empty allowed set, got %d", got)
	}
	if got := b.Select(nil, []int{99, -3}); got != action.RestID {
		t.Errorf("expected RestID when no allowed action exists, got %d", got)
	}
}

func TestBetaBernoulli_SelectSingle(t *testing.T) {
	b := NewBetaBernoulli(18, DefaultSuccessThreshold, NewSource(7))
	if got := b.Select(nil, []int{5}); got != 5 {
		t.Errorf("expected 5, got %d", got)
	}
}

func TestBetaBernoulli_UpdateIncreasesExpectedReward(t *testing.T) {
	b := NewBetaBernoulli(5, DefaultSuccessThreshold, NewSource(3))

	prev := 0.5
	for k := 0; k < 10; k++ {
		if err := b.Update(2, nil, 1.0); err != nil {
			t.Fatalf("Update: %v", err)
		}
		e, _ := b.ExpectedReward(2)
		if e <= prev {
			t.Errorf("update %d: expected reward did not increase: %f <= %f", k, e, prev)
		}
		if e >= 1 {
			t.Errorf("expected reward should stay below 1, got %f", e)
		}
		prev = e
	}

	untouched, _ := b.ExpectedReward(1)
	if untouched != 0.5 {
		t.Errorf("untouched action changed: %f", untouched)
	}
	if prev <= untouched {
		t.Errorf("updated action %f should exceed untouched %f", prev, untouched)
	}
}

func TestBetaBernoulli_Binarization(t *testing.T) {
	b := NewBetaBernoulli(3, DefaultSuccessThreshold, NewSource(3))

	tests := []struct {
		reward      float64
		wantSuccess bool
	}{
		{0.51, true},
		{1.74, true},
		{0.5, false},
		{0.0, false},
		{-2.0, false},
	}

	for _, tt := range tests {
		before := b.Stats().Actions[0]
		if err := b.Update(0, nil, tt.reward); err != nil {
			t.Fatalf("Update(%f): %v", tt.reward, err)
		}
		after := b.Stats().Actions[0]

		gotSuccess := after.Alpha == before.Alpha+1
		if gotSuccess != tt.wantSuccess {
			t.Errorf("reward %f: expected success=%v", tt.reward, tt.wantSuccess)
		}
		if after.Alpha+after.Beta != before.Alpha+before.Beta+1 {
			t.Errorf("reward %f: exactly one parameter should increase", tt.reward)
		}
	}
}

func TestBetaBernoulli_CustomThreshold(t *testing.T) {
	b := NewBetaBernoulli(1, 1.5, NewSource(3))
	_ = b.Update(0, nil, 1.0)
	st := b.Stats().Actions[0]
	if st.Alpha != 1 || st.Beta != 2 {
		t.Errorf("reward 1.0 below threshold 1.5 should be a failure, got alpha=%f beta=%f", st.Alpha, st.Beta)
	}
}

func TestBetaBernoulli_UpdateErrors(t *testing.T) {
	b := NewBetaBernoulli(3, DefaultSuccessThreshold, NewSource(3))

	if err := b.Update(3, nil, 1); !errors.Is(err, ErrUnknownAction) {
		t.Errorf("expected ErrUnknownAction, got %v", err)
	}
	if err := b.Update(-1, nil, 1); !errors.Is(err, ErrUnknownAction) {
		t.Errorf("expected ErrUnknownAction, got %v", err)
	}
	if err := b.Update(0, nil, math.NaN()); !errors.Is(err, ErrInvalidReward) {
		t.Errorf("expected ErrInvalidReward, got %v", err)
	}
}

func TestBetaBernoulli_SameSeedSameDraw(t *testing.T) {
	a := NewBetaBernoulli(18, DefaultSuccessThreshold, NewSource(42))
	b := NewBetaBernoulli(18, DefaultSuccessThreshold, NewSource(42))

	allowed := []int{0, 1, 2, 3, 4, 5, 6, 7, 8}
	for i := 0; i < 20; i++ {
		if x, y := a.Select(nil, allowed), b.Select(nil, allowed); x != y {
			t.Fatalf("draw %d differs: %d vs %d", i, x, y)
		}
	}
}

func TestBetaBernoulli_LearnsBestAction(t *testing.T) {
	b := NewBetaBernoulli(3, DefaultSuccessThreshold, NewSource(11))
	for i := 0; i < 50; i++ {
		_ = b.Update(1, nil, 1)
		_ = b.Update(0, nil, 0)
		_ = b.Update(2, nil, 0)
	}

	wins := 0
	for i := 0; i < 100; i++ {
		if b.Select(nil, []int{0, 1, 2}) == 1 {
			wins++
		}
	}
	if wins < 95 {
		t.Errorf("expected action 1 to dominate, selected %d/100 times", wins)
	}
}

func TestBetaBernoulli_Probabilities(t *testing.T) {
	b := NewBetaBernoulli(4, DefaultSuccessThreshold, NewSource(3))
	_ = b.Update(1, nil, 1)
	_ = b.Update(1, nil, 1)

	probs := b.Probabilities([]int{0, 1, 3, 99})
	if len(probs) != 3 {
		t.Fatalf("expected 3 probabilities, got %v", probs)
	}

	var sum float64
	for _, p := range probs {
		sum += p
	}
	if math.Abs(sum-1) > 1e-9 {
		t.Errorf("probabilities should sum to 1, got %f", sum)
	}
	if probs[1] <= probs[0] {
		t.Errorf("rewarded action should be more probable: %v", probs)
	}

	if got := b.Probabilities(nil); len(got) != 0 {
		t.Errorf("expected empty map, got %v", got)
	}
}

func TestBetaBernoulli_SaveLoad(t *testing.T) {
	original := NewBetaBernoulli(4, DefaultSuccessThreshold, NewSource(3))
	_ = original.Update(2, nil, 1.0)
	_ = original.Update(2, nil, 0.2)
	_ = original.Update(3, nil, 0.9)

	var buf bytes.Buffer
	if err := original.Save(&buf); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded := NewBetaBernoulli(4, DefaultSuccessThreshold, NewSource(3))
	if err := loaded.Load(&buf); err != nil {
		t.Fatalf("Load: %v", err)
	}

	for id := 0; id < 4; id++ {
		want, _ := original.ExpectedReward(id)
		got, _ := loaded.ExpectedReward(id)
		if want != got {
			t.Errorf("action %d: expected %f, got %f", id, want, got)
		}
	}
	if loaded.Stats().TotalUpdates != 3 {
		t.Errorf("expected 3 updates, got %d", loaded.Stats().TotalUpdates)
	}
}

func TestBetaBernoulli_LoadKeepsConfiguredThreshold(t *testing.T) {
	original := NewBetaBernoulli(3, 0.8, NewSource(3))
	_ = original.Update(1, nil, 0.9)

	var snapshot bytes.Buffer
	if err := original.Save(&snapshot); err != nil {
		t.Fatalf("Save: %v", err)
	}
	data := snapshot.Bytes()

	tests := []struct {
		name      string
		threshold float64
		wantWarn  bool
	}{
		{name: "same threshold", threshold: 0.8},
		{name: "changed threshold", threshold: DefaultSuccessThreshold, wantWarn: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var logs bytes.Buffer
			loaded := NewBetaBernoulli(3, tt.threshold, NewSource(3))
			loaded.SetLogger(slog.New(slog.NewTextHandler(&logs, nil)))

			if err := loaded.Load(bytes.NewReader(data)); err != nil {
				t.Fatalf("Load: %v", err)
			}
			if loaded.Threshold() != tt.threshold {
				t.Errorf("expected threshold %v, got %v", tt.threshold, loaded.Threshold())
			}

			warned := strings.Contains(logs.String(), "snapshot success threshold differs")
			if warned != tt.wantWarn {
				t.Errorf("expected warning %v, logs: %s", tt.wantWarn, logs.String())
			}
		})
	}
}

func TestBetaBernoulli_LoadRejectsMismatch(t *testing.T) {
	small := NewBetaBernoulli(2, DefaultSuccessThreshold, NewSource(3))
	var buf bytes.Buffer
	_ = small.Save(&buf)

	big := NewBetaBernoulli(5, DefaultSuccessThreshold, NewSource(3))
	if err := big.Load(&buf); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}

	bad := `{"learner":"beta_bernoulli","alpha":[0,1],"beta":[1,1]}`
	if err := small.Load(strings.NewReader(bad)); err == nil {
		t.Error("expected error for non-positive alpha")
	}

	other := `{"learner":"linear","alpha":[1,1],"beta":[1,1]}`
	if err := small.Load(strings.NewReader(other)); err == nil {
		t.Error("expected error for foreign snapshot")
	}
}

func TestBetaBernoulli_Concurrent(t *testing.T) {
	b := NewBetaBernoulli(18, DefaultSuccessThreshold, NewSource(5))
	allowed := []int{0, 1, 2, 3, 4, 5}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				b.Select(nil, allowed)
			}
		}()
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = b.Update(i%18, nil, float64(j%2))
			}
		}(i)
	}
	wg.Wait()

	if got := b.Stats().TotalUpdates; got != 800 {
		t.Errorf("expected 800 updates, got %d", got)
	}
}
