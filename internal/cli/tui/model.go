package tui

import (
	"time"
)

// Config holds TUI configuration
type Config struct {
	ServerURL       string
	RefreshInterval time.Duration
	User            string
	Password        string
}

// Model represents the TUI state
type Model struct {
	config Config

	// Data from API
	status *StatusData
	stats  *StatsData
	events []EventData

	// noLearner is set when the server runs the rule selector only.
	noLearner bool

	// UI state
	width       int
	height      int
	loading     bool
	err         error
	lastUpdated time.Time

	// Table scroll position
	tableOffset int
}

// StatusData represents the /status response
type StatusData struct {
	Version       string          `json:"version"`
	UptimeSeconds float64         `json:"uptime_seconds"`
	Learner       string          `json:"learner"`
	UseRL         bool            `json:"use_rl"`
	Actions       int             `json:"actions"`
	Events        int             `json:"events"`
	Host          *HostStatus     `json:"host"`
	Snapshot      *SnapshotStatus `json:"snapshot"`
}

type HostStatus struct {
	Memory  MemoryStatus  `json:"memory"`
	Process ProcessStatus `json:"process"`
}

type MemoryStatus struct {
	UsagePercent float64 `json:"usage_percent"`
	TotalBytes   uint64  `json:"total_bytes"`
	UsedBytes    uint64  `json:"used_bytes"`
}

type ProcessStatus struct {
	RSSBytes   uint64  `json:"rss_bytes"`
	CPUPercent float64 `json:"cpu_percent"`
	Threads    int     `json:"threads"`
	Goroutines int     `json:"goroutines"`
}

type SnapshotStatus struct {
	Exists    bool      `json:"exists"`
	Path      string    `json:"path"`
	UpdatedAt time.Time `json:"updated_at"`
	Dirty     bool      `json:"dirty"`
}

// StatsData represents the /model/stats response
type StatsData struct {
	Stats struct {
		Learner      string         `json:"learner"`
		TotalUpdates int64          `json:"total_updates"`
		Actions      []*ActionStats `json:"actions"`
	} `json:"stats"`
	Probabilities map[int]float64 `json:"probabilities"`
}

type ActionStats struct {
	ActionID       int      `json:"action_id"`
	Count          int64    `json:"count"`
	TotalReward    float64  `json:"total_reward"`
	ExpectedReward *float64 `json:"expected_reward"`
}

// EventData is one audit log entry from /events
type EventData struct {
	Type      string    `json:"event_type"`
	UserID    string    `json:"user_id"`
	Timestamp time.Time `json:"timestamp"`
	ActionID  int       `json:"action_id"`
	Reward    *float64  `json:"reward"`
}

// NewModel creates a new TUI model
func NewModel(cfg Config) Model {
	return Model{
		config:  cfg,
		loading: true,
	}
}
