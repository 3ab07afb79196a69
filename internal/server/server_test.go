package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/haskel/pacer/internal/action"
	"github.com/haskel/pacer/internal/bandit"
	"github.com/haskel/pacer/internal/config"
	"github.com/haskel/pacer/internal/eventstore"
	"github.com/haskel/pacer/internal/loop"
	"github.com/haskel/pacer/internal/recommend"
	"github.com/haskel/pacer/internal/reward"
	"github.com/haskel/pacer/internal/safety"
)

func TestServer_Integration(t *testing.T) {
	cfg := config.Default()
	cfg.Server.Port = 0
	cfg.Auth.Enabled = true
	cfg.Auth.User = "coach"
	cfg.Auth.Password = "secret"

	store, err := eventstore.NewSQLiteStore(filepath.Join(t.TempDir(), "events.db"))
	if err != nil {
		t.Fatalf("open event store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	space := action.NewSpace()
	gate := safety.NewGate(safety.NewGuardrails(cfg.Safety), space)
	learner := bandit.NewLinear(space.Count(), recommend.ContextDim, bandit.DefaultSigma, bandit.NewSource(11))
	rec := recommend.New(space, gate, learner, true, testLogger())
	lp := loop.New(rec, reward.New(cfg.Reward), testLogger(), loop.WithSink(store))

	srv := New(cfg, Deps{Loop: lp, Events: store}, testLogger(), "0.1.0")
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	call := func(method, path string, body any, auth bool) *http.Response {
		t.Helper()
		var buf bytes.Buffer
		if body != nil {
			if err := json.NewEncoder(&buf).Encode(body); err != nil {
				t.Fatalf("encode: %v", err)
			}
		}
		req, err := http.NewRequest(method, ts.URL+path, &buf)
		if err != nil {
			t.Fatalf("new request: %v", err)
		}
		if auth {
			req.SetBasicAuth("coach", "secret")
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		t.Cleanup(func() { resp.Body.Close() })
		return resp
	}

	t.Run("health without auth", func(t *testing.T) {
		resp := call(http.MethodGet, "/health", nil, false)
		if resp.StatusCode != http.StatusOK {
			t.Errorf("expected status 200, got %d", resp.StatusCode)
		}
	})

	t.Run("recommend requires auth", func(t *testing.T) {
		resp := call(http.MethodPost, "/recommend", RecommendRequest{UserID: "u1"}, false)
		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("expected status 401, got %d", resp.StatusCode)
		}
	})

	var served recommend.Recommendation
	t.Run("recommend", func(t *testing.T) {
		resp := call(http.MethodPost, "/recommend", map[string]any{
			"user_id": "u1",
			"state":   map[string]any{"readiness_score": 75, "sleep_duration_hours": 7.5, "fatigue": 3},
		}, true)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected status 200, got %d", resp.StatusCode)
		}
		if err := json.NewDecoder(resp.Body).Decode(&served); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if served.Strategy != "linear" || len(served.Context) != recommend.ContextDim {
			t.Errorf("unexpected recommendation %+v", served)
		}
	})

	t.Run("feedback", func(t *testing.T) {
		resp := call(http.MethodPost, "/feedback", map[string]any{
			"user_id":           "u1",
			"action_id":         served.ActionID,
			"recommendation_id": served.RecommendationID,
			"feedback":          map[string]any{"completion": 1, "satisfaction": 0.9},
		}, true)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected status 200, got %d", resp.StatusCode)
		}
		if got := learner.Stats().Actions[served.ActionID].Count; got != 1 {
			t.Errorf("expected learner update, got count %d", got)
		}
	})

	t.Run("events from store", func(t *testing.T) {
		resp := call(http.MethodGet, "/events?user_id=u1", nil, true)
		var events EventsResponse
		if err := json.NewDecoder(resp.Body).Decode(&events); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if events.Count != 2 {
			t.Fatalf("expected 2 persisted events, got %d", events.Count)
		}
		if events.Events[0].Type != loop.EventPlanServed || events.Events[1].Type != loop.EventFeedbackReceived {
			t.Errorf("unexpected event order %s, %s", events.Events[0].Type, events.Events[1].Type)
		}
	})

	t.Run("model stats include rewards", func(t *testing.T) {
		resp := call(http.MethodGet, "/model/stats", nil, true)
		var stats ModelStatsResponse
		if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if stats.Stats.Learner != "linear" || stats.Probabilities != nil {
			t.Errorf("unexpected stats %+v", stats)
		}
		if len(stats.Rewards) != 1 || stats.Rewards[0].ActionID != served.ActionID {
			t.Errorf("unexpected reward summary %+v", stats.Rewards)
		}
	})

	t.Run("status counts stored events", func(t *testing.T) {
		resp := call(http.MethodGet, "/status", nil, true)
		var status StatusResponse
		if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if status.Events != 2 {
			t.Errorf("expected 2 events, got %d", status.Events)
		}
	})
}

func TestServer_Addr(t *testing.T) {
	cfg := config.Default()
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = 9123

	srv := New(cfg, Deps{Loop: newLoop(nil)}, testLogger(), "test")
	if srv.Addr() != "127.0.0.1:9123" {
		t.Errorf("unexpected addr %s", srv.Addr())
	}
}
