package server

import (
	"encoding/json"
	"errors"
	"maps"
	"net/http"
	"strconv"
	"time"

	"github.com/haskel/pacer/internal/action"
	"github.com/haskel/pacer/internal/bandit"
	"github.com/haskel/pacer/internal/eventstore"
	"github.com/haskel/pacer/internal/loop"
	"github.com/haskel/pacer/internal/monitor"
	"github.com/haskel/pacer/internal/safety"
	"github.com/haskel/pacer/internal/state"
	"github.com/haskel/pacer/internal/storage"
)

// DefaultEventsLimit is the page size of GET /events without a limit.
const DefaultEventsLimit = 100

type InfoResponse struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

type HealthResponse struct {
	Status string `json:"status"`
}

type StatusResponse struct {
	Status        string             `json:"status"`
	Version       string             `json:"version"`
	UptimeSeconds float64            `json:"uptime_seconds"`
	Learner       string             `json:"learner"`
	UseRL         bool               `json:"use_rl"`
	Actions       int                `json:"actions"`
	Events        int                `json:"events"`
	Host          *monitor.HostState `json:"host,omitempty"`
	Snapshot      *storage.Info      `json:"snapshot,omitempty"`
}

type RecommendRequest struct {
	UserID string      `json:"user_id"`
	State  state.State `json:"state"`
	UseRL  *bool       `json:"use_rl,omitempty"`
}

type FeedbackRequest struct {
	UserID           string         `json:"user_id"`
	ActionID         *int           `json:"action_id"`
	RecommendationID string         `json:"recommendation_id,omitempty"`
	Feedback         map[string]any `json:"feedback"`
}

type FeedbackResponse struct {
	Reward float64 `json:"reward"`
	Status string  `json:"status"`
}

type PlanCheckRequest struct {
	State state.State `json:"state"`
	Plan  safety.Plan `json:"plan"`
}

type ActionsResponse struct {
	Actions []action.Action `json:"actions"`
	Count   int             `json:"count"`
}

type ModelStatsResponse struct {
	Stats         *bandit.Stats              `json:"stats"`
	Probabilities map[int]float64            `json:"probabilities,omitempty"`
	Rewards       []eventstore.RewardSummary `json:"rewards,omitempty"`
}

type EventsResponse struct {
	Events []loop.Event `json:"events"`
	Count  int          `json:"count"`
}

// probabilityEstimator is implemented by learners that can report how often
// each action would be selected.
type probabilityEstimator interface {
	Probabilities(allowed []int) map[int]float64
}

func (s *Server) learnerName() string {
	if l := s.deps.Loop.Recommender().Learner(); l != nil {
		return l.Name()
	}
	return string(bandit.LearnerTypeNone)
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, InfoResponse{
		Name:    "pacer",
		Version: s.version,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	rec := s.deps.Loop.Recommender()

	resp := StatusResponse{
		Status:        "ok",
		Version:       s.version,
		UptimeSeconds: time.Since(s.startedAt).Seconds(),
		Learner:       s.learnerName(),
		UseRL:         rec.UseRL(),
		Actions:       rec.Space().Count(),
		Events:        s.deps.Loop.Log().Len(),
	}

	if s.deps.Events != nil {
		n, err := s.deps.Events.Count(r.Context())
		if err != nil {
			s.logger.Error("count events", "error", err)
		} else {
			resp.Events = n
		}
	}
	if s.deps.Aggregator != nil {
		host := s.deps.Aggregator.GetState()
		resp.Host = &host
	}
	if s.deps.Storage != nil {
		info := s.deps.Storage.Info()
		resp.Snapshot = &info
	}

	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRecommend(w http.ResponseWriter, r *http.Request) {
	var req RecommendRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	rec, err := s.deps.Loop.ProcessDailyCycleWith(r.Context(), req.UserID, req.State, req.UseRL)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request) {
	var req FeedbackRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.ActionID == nil {
		writeProblem(w, r, http.StatusBadRequest, "action_id is required")
		return
	}

	feedback := make(map[string]any, len(req.Feedback)+1)
	maps.Copy(feedback, req.Feedback)
	if req.RecommendationID != "" {
		feedback[loop.FeedbackRecommendationID] = req.RecommendationID
	}

	reward, err := s.deps.Loop.ProcessFeedback(r.Context(), req.UserID, *req.ActionID, feedback)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if s.deps.Storage != nil {
		s.deps.Storage.MarkDirty()
	}

	s.writeJSON(w, http.StatusOK, FeedbackResponse{
		Reward: reward,
		Status: "updated",
	})
}

func (s *Server) handleCheckPlan(w http.ResponseWriter, r *http.Request) {
	var req PlanCheckRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result := s.deps.Loop.Recommender().Gate().Guardrails().CheckPlan(req.Plan, req.State)
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleActions(w http.ResponseWriter, r *http.Request) {
	actions := s.deps.Loop.Recommender().Space().All()
	s.writeJSON(w, http.StatusOK, ActionsResponse{
		Actions: actions,
		Count:   len(actions),
	})
}

func (s *Server) handleModelStats(w http.ResponseWriter, r *http.Request) {
	rec := s.deps.Loop.Recommender()
	learner := rec.Learner()
	if learner == nil {
		writeProblem(w, r, http.StatusServiceUnavailable, "no learner configured")
		return
	}

	resp := ModelStatsResponse{Stats: learner.Stats()}
	if est, ok := learner.(probabilityEstimator); ok {
		resp.Probabilities = est.Probabilities(rec.Space().IDs())
	}
	if s.deps.Events != nil {
		rewards, err := s.deps.Events.Rewards(r.Context())
		if err != nil {
			s.logger.Error("aggregate rewards", "error", err)
		} else {
			resp.Rewards = rewards
		}
	}

	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")

	limit := DefaultEventsLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeProblem(w, r, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	var events []loop.Event
	if s.deps.Events != nil {
		var err error
		events, err = s.deps.Events.List(r.Context(), userID, limit)
		if err != nil {
			s.logger.Error("list events", "error", err)
			writeProblem(w, r, http.StatusInternalServerError, "failed to list events")
			return
		}
	} else {
		if userID != "" {
			events = s.deps.Loop.Log().ForUser(userID)
		} else {
			events = s.deps.Loop.Log().Events()
		}
		if len(events) > limit {
			events = events[len(events)-limit:]
		}
	}

	s.writeJSON(w, http.StatusOK, EventsResponse{
		Events: events,
		Count:  len(events),
	})
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if s.deps.Storage == nil || s.deps.Loop.Recommender().Learner() == nil {
		writeProblem(w, r, http.StatusServiceUnavailable, "snapshot persistence is not configured")
		return
	}

	if err := s.deps.Storage.Save(); err != nil {
		s.logger.Error("save snapshot", "error", err)
		writeProblem(w, r, http.StatusInternalServerError, "failed to save snapshot")
		return
	}

	s.writeJSON(w, http.StatusOK, s.deps.Storage.Info())
}

// writeError maps engine errors to problem responses.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, loop.ErrEmptyUser):
		writeProblem(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, action.ErrNotFound), errors.Is(err, bandit.ErrUnknownAction):
		writeProblem(w, r, http.StatusNotFound, err.Error())
	case errors.Is(err, bandit.ErrInvalidReward), errors.Is(err, bandit.ErrInvalidContext):
		writeProblem(w, r, http.StatusBadRequest, err.Error())
	default:
		s.logger.Error("request failed", "path", r.URL.Path, "error", err)
		writeProblem(w, r, http.StatusInternalServerError, "Internal Server Error")
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("failed to encode JSON response",
			"error", err,
			"status", status,
		)
	}
}
