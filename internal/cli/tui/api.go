package tui

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// eventsShown is how many recent events the dashboard lists.
const eventsShown = 6

var errNoLearner = errors.New("no learner configured")

// Messages for tea.Cmd
type statusMsg struct {
	data *StatusData
	err  error
}

type statsMsg struct {
	data *StatsData
	err  error
}

type eventsMsg struct {
	data []EventData
	err  error
}

type tickMsg time.Time

// API client for TUI
type apiClient struct {
	baseURL  string
	client   *http.Client
	user     string
	password string
}

func newAPIClient(cfg Config) *apiClient {
	return &apiClient{
		baseURL: cfg.ServerURL,
		client: &http.Client{
			Timeout: 5 * time.Second,
		},
		user:     cfg.User,
		password: cfg.Password,
	}
}

func (c *apiClient) get(path string, out any) error {
	req, err := http.NewRequest(http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}

	if c.user != "" && c.password != "" {
		req.SetBasicAuth(c.user, c.password)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusServiceUnavailable:
		return errNoLearner
	default:
		return fmt.Errorf("server returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

func fetchStatus(cfg Config) tea.Cmd {
	return func() tea.Msg {
		var status StatusData
		if err := newAPIClient(cfg).get("/status", &status); err != nil {
			return statusMsg{err: err}
		}
		return statusMsg{data: &status}
	}
}

func fetchStats(cfg Config) tea.Cmd {
	return func() tea.Msg {
		var stats StatsData
		if err := newAPIClient(cfg).get("/model/stats", &stats); err != nil {
			return statsMsg{err: err}
		}
		return statsMsg{data: &stats}
	}
}

func fetchEvents(cfg Config) tea.Cmd {
	return func() tea.Msg {
		var resp struct {
			Events []EventData `json:"events"`
		}
		if err := newAPIClient(cfg).get(fmt.Sprintf("/events?limit=%d", eventsShown), &resp); err != nil {
			return eventsMsg{err: err}
		}
		return eventsMsg{data: resp.Events}
	}
}

func fetchAll(cfg Config) tea.Cmd {
	return tea.Batch(fetchStatus(cfg), fetchStats(cfg), fetchEvents(cfg))
}

// tick creates a periodic tick command
func tick(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}
