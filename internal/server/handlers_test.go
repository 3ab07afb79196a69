package server

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/haskel/pacer/internal/action"
	"github.com/haskel/pacer/internal/bandit"
	"github.com/haskel/pacer/internal/config"
	"github.com/haskel/pacer/internal/loop"
	"github.com/haskel/pacer/internal/monitor"
	"github.com/haskel/pacer/internal/recommend"
	"github.com/haskel/pacer/internal/reward"
	"github.com/haskel/pacer/internal/safety"
	"github.com/haskel/pacer/internal/state"
	"github.com/haskel/pacer/internal/storage"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

type mockMonitor struct {
	name string
	data any
}

func (m *mockMonitor) Name() string {
	return m.name
}

func (m *mockMonitor) Collect() (any, error) {
	return m.data, nil
}

func newLoop(learner bandit.Learner) *loop.Loop {
	space := action.NewSpace()
	gate := safety.NewGate(safety.NewGuardrails(safety.DefaultThresholds()), space)
	rec := recommend.New(space, gate, learner, learner != nil, testLogger())
	return loop.New(rec, reward.New(reward.DefaultWeights()), testLogger())
}

func testServer(t *testing.T) (*Server, *bandit.BetaBernoulli) {
	t.Helper()

	learner := bandit.NewBetaBernoulli(18, bandit.DefaultSuccessThreshold, bandit.NewSource(7))

	agg := monitor.NewAggregator([]monitor.Monitor{
		&mockMonitor{name: "process", data: &monitor.ProcessState{PID: 42, Goroutines: 9}},
		&mockMonitor{name: "memory", data: &monitor.MemoryState{UsedBytes: 1024, TotalBytes: 4096, UsagePercent: 25}},
	}, time.Second, testLogger())
	if err := agg.Start(context.Background()); err != nil {
		t.Fatalf("start aggregator: %v", err)
	}
	t.Cleanup(func() { agg.Stop() })

	deps := Deps{
		Loop:       newLoop(learner),
		Storage:    storage.New(t.TempDir(), 0, learner, testLogger()),
		Aggregator: agg,
	}
	return New(config.Default(), deps, testLogger(), "0.1.0-test"), learner
}

func do(t *testing.T, srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(w.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, w.Body.String())
	}
	return v
}

func TestHandleInfo(t *testing.T) {
	srv, _ := testServer(t)

	w := do(t, srv, http.MethodGet, "/", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	info := decode[InfoResponse](t, w)
	if info.Name != "pacer" || info.Version != "0.1.0-test" {
		t.Errorf("unexpected info %+v", info)
	}
}

func TestHandleHealth(t *testing.T) {
	srv, _ := testServer(t)

	w := do(t, srv, http.MethodGet, "/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	if got := decode[HealthResponse](t, w); got.Status != "ok" {
		t.Errorf("expected ok, got %s", got.Status)
	}
	if w.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("expected security headers")
	}
}

func TestHandleStatus(t *testing.T) {
	srv, _ := testServer(t)

	w := do(t, srv, http.MethodGet, "/status", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	status := decode[StatusResponse](t, w)
	if status.Learner != "beta_bernoulli" || !status.UseRL {
		t.Errorf("unexpected learner %s use_rl=%v", status.Learner, status.UseRL)
	}
	if status.Actions != 18 {
		t.Errorf("expected 18 actions, got %d", status.Actions)
	}
	if status.Host == nil || status.Host.Process.PID != 42 || status.Host.Memory.UsagePercent != 25 {
		t.Errorf("unexpected host state %+v", status.Host)
	}
	if status.Snapshot == nil || status.Snapshot.Exists {
		t.Errorf("expected snapshot info without a saved file, got %+v", status.Snapshot)
	}
}

func TestHandleRecommend(t *testing.T) {
	srv, _ := testServer(t)

	w := do(t, srv, http.MethodPost, "/recommend", RecommendRequest{
		UserID: "u1",
		State: state.State{
			state.ReadinessScore:     85.0,
			state.SleepDurationHours: 8.0,
		},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	rec := decode[recommend.Recommendation](t, w)
	if rec.RecommendationID == "" {
		t.Error("expected a recommendation id")
	}
	if !rec.Safety.IsSafe {
		t.Errorf("expected safe annotation, got %+v", rec.Safety)
	}
	if rec.Strategy != "beta_bernoulli" {
		t.Errorf("expected learned selection, got %s", rec.Strategy)
	}
	if srv.deps.Loop.Log().Len() != 1 {
		t.Errorf("expected one served event, got %d", srv.deps.Loop.Log().Len())
	}
}

func TestHandleRecommend_RulesOverride(t *testing.T) {
	srv, _ := testServer(t)

	w := do(t, srv, http.MethodPost, "/recommend", `{"user_id":"u1","state":{"readiness_score":80},"use_rl":false}`)
	rec := decode[recommend.Recommendation](t, w)
	if rec.Strategy != "rules" {
		t.Errorf("expected rules, got %s", rec.Strategy)
	}
}

func TestHandleRecommend_Critical(t *testing.T) {
	srv, _ := testServer(t)

	w := do(t, srv, http.MethodPost, "/recommend", `{"user_id":"u1","state":{"overtraining_risk":true,"readiness_score":90}}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	rec := decode[recommend.Recommendation](t, w)
	if rec.ActionID != action.RestID {
		t.Errorf("expected rest, got %d", rec.ActionID)
	}
	if rec.Safety.RiskLevel != safety.RiskCritical {
		t.Errorf("expected critical, got %s", rec.Safety.RiskLevel)
	}
}

func TestHandleRecommend_BadRequests(t *testing.T) {
	srv, _ := testServer(t)

	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"user_id":`},
		{"missing user", `{"state":{}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, srv, http.MethodPost, "/recommend", tt.body)
			if w.Code != http.StatusBadRequest {
				t.Errorf("expected status 400, got %d", w.Code)
			}
			if ct := w.Header().Get("Content-Type"); ct != "application/problem+json" {
				t.Errorf("expected problem response, got %q", ct)
			}
			p := decode[Problem](t, w)
			if p.Status != http.StatusBadRequest || p.Instance != "/recommend" {
				t.Errorf("unexpected problem %+v", p)
			}
		})
	}
}

func TestHandleRecommend_BodyTooLarge(t *testing.T) {
	srv, _ := testServer(t)
	srv.config.Server.MaxBodyBytes = 64
	srv.httpServer.Handler = srv.routes()

	body := `{"user_id":"u1","state":{"note":"` + strings.Repeat("x", 128) + `"}}`
	w := do(t, srv, http.MethodPost, "/recommend", body)
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("expected status 413, got %d", w.Code)
	}
}

func TestHandleFeedback(t *testing.T) {
	srv, learner := testServer(t)

	rec := decode[recommend.Recommendation](t, do(t, srv, http.MethodPost, "/recommend", `{"user_id":"u1","state":{"readiness_score":80}}`))

	w := do(t, srv, http.MethodPost, "/feedback", FeedbackRequest{
		UserID:           "u1",
		ActionID:         &rec.ActionID,
		RecommendationID: rec.RecommendationID,
		Feedback:         map[string]any{"completion": 1.0},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	resp := decode[FeedbackResponse](t, w)
	if math.Abs(resp.Reward-1.65) > 1e-9 || resp.Status != "updated" {
		t.Errorf("unexpected response %+v", resp)
	}
	if got := learner.Stats().Actions[rec.ActionID].Count; got != 1 {
		t.Errorf("expected one update, got %d", got)
	}
	if !srv.deps.Storage.IsDirty() {
		t.Error("expected storage to be marked dirty")
	}

	events := srv.deps.Loop.Log().Events()
	if last := events[len(events)-1]; last.RecommendationID != rec.RecommendationID {
		t.Errorf("feedback not linked to served plan: %+v", last)
	}
}

func TestHandleFeedback_Errors(t *testing.T) {
	srv, _ := testServer(t)

	tests := []struct {
		name string
		body string
		want int
	}{
		{"malformed json", `{`, http.StatusBadRequest},
		{"missing action", `{"user_id":"u1","feedback":{}}`, http.StatusBadRequest},
		{"missing user", `{"action_id":1,"feedback":{}}`, http.StatusBadRequest},
		{"unknown action", `{"user_id":"u1","action_id":99,"feedback":{}}`, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, srv, http.MethodPost, "/feedback", tt.body)
			if w.Code != tt.want {
				t.Errorf("expected status %d, got %d: %s", tt.want, w.Code, w.Body.String())
			}
		})
	}
}

func TestHandleCheckPlan(t *testing.T) {
	srv, _ := testServer(t)

	tests := []struct {
		name string
		body string
		safe bool
		risk safety.RiskLevel
	}{
		{
			name: "injured exercise",
			body: `{"state":{"injury_history":["knee"]},"plan":{"intensity":"low","exercises":[{"name":"Knee extensions"}]}}`,
			risk: safety.RiskCritical,
		},
		{
			name: "high intensity while fatigued",
			body: `{"state":{"fatigue":7.5},"plan":{"intensity":"high"}}`,
			risk: safety.RiskHigh,
		},
		{
			name: "fine",
			body: `{"state":{"fatigue":2},"plan":{"intensity":"medium","exercises":[{"name":"Rowing"}]}}`,
			safe: true,
			risk: safety.RiskLow,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, srv, http.MethodPost, "/safety/plan", tt.body)
			if w.Code != http.StatusOK {
				t.Fatalf("expected status 200, got %d", w.Code)
			}
			got := decode[safety.CheckResult](t, w)
			if got.IsSafe != tt.safe || got.RiskLevel != tt.risk {
				t.Errorf("expected safe=%v risk=%s, got %+v", tt.safe, tt.risk, got)
			}
		})
	}
}

func TestHandleActions(t *testing.T) {
	srv, _ := testServer(t)

	resp := decode[ActionsResponse](t, do(t, srv, http.MethodGet, "/actions", nil))
	if resp.Count != 18 || len(resp.Actions) != 18 {
		t.Fatalf("expected 18 actions, got %d", resp.Count)
	}
	if resp.Actions[0].WorkoutType != action.WorkoutRest {
		t.Errorf("expected rest first, got %s", resp.Actions[0].WorkoutType)
	}
}

func TestHandleModelStats(t *testing.T) {
	srv, _ := testServer(t)

	w := do(t, srv, http.MethodGet, "/model/stats", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	resp := decode[ModelStatsResponse](t, w)
	if resp.Stats == nil || resp.Stats.Learner != "beta_bernoulli" {
		t.Fatalf("unexpected stats %+v", resp.Stats)
	}
	if len(resp.Probabilities) != 18 {
		t.Errorf("expected probabilities for 18 actions, got %d", len(resp.Probabilities))
	}
}

func TestHandleModelStats_NoLearner(t *testing.T) {
	srv := New(config.Default(), Deps{Loop: newLoop(nil)}, testLogger(), "test")

	w := do(t, srv, http.MethodGet, "/model/stats", nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status 503, got %d", w.Code)
	}

	w = do(t, srv, http.MethodPost, "/model/snapshot", nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status 503, got %d", w.Code)
	}

	status := decode[StatusResponse](t, do(t, srv, http.MethodGet, "/status", nil))
	if status.Learner != "none" || status.UseRL || status.Host != nil || status.Snapshot != nil {
		t.Errorf("unexpected status %+v", status)
	}
}

func TestHandleEvents_FromLog(t *testing.T) {
	srv, _ := testServer(t)

	for _, user := range []string{"u1", "u2", "u1"} {
		do(t, srv, http.MethodPost, "/recommend", RecommendRequest{UserID: user, State: state.State{}})
	}

	resp := decode[EventsResponse](t, do(t, srv, http.MethodGet, "/events?user_id=u1", nil))
	if resp.Count != 2 {
		t.Errorf("expected 2 events for u1, got %d", resp.Count)
	}

	resp = decode[EventsResponse](t, do(t, srv, http.MethodGet, "/events?limit=1", nil))
	if resp.Count != 1 || resp.Events[0].UserID != "u1" {
		t.Errorf("expected latest event only, got %+v", resp.Events)
	}

	for _, limit := range []string{"0", "-3", "many"} {
		if w := do(t, srv, http.MethodGet, "/events?limit="+limit, nil); w.Code != http.StatusBadRequest {
			t.Errorf("limit %q: expected status 400, got %d", limit, w.Code)
		}
	}
}

func TestHandleSnapshot(t *testing.T) {
	srv, _ := testServer(t)

	w := do(t, srv, http.MethodPost, "/model/snapshot", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	info := decode[storage.Info](t, w)
	if !info.Exists || info.Size == 0 {
		t.Errorf("expected saved snapshot, got %+v", info)
	}
}

func TestRouting(t *testing.T) {
	srv, _ := testServer(t)

	if w := do(t, srv, http.MethodGet, "/nope", nil); w.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", w.Code)
	}
	if w := do(t, srv, http.MethodGet, "/recommend", nil); w.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected status 405, got %d", w.Code)
	}
}
