// Package monitor samples the serving process and host for the status endpoint.
package monitor

import "time"

type Monitor interface {
	Name() string
	Collect() (any, error)
}

type MemoryState struct {
	UsedBytes      uint64  `json:"used_bytes"`
	AvailableBytes uint64  `json:"available_bytes"`
	TotalBytes     uint64  `json:"total_bytes"`
	UsagePercent   float64 `json:"usage_percent"`
}

type ProcessState struct {
	PID        int32     `json:"pid"`
	RSSBytes   uint64    `json:"rss_bytes"`
	CPUPercent float64   `json:"cpu_percent"`
	Threads    int32     `json:"threads"`
	Goroutines int       `json:"goroutines"`
	StartedAt  time.Time `json:"started_at"`
}

// HostState is the latest sample of every monitor.
type HostState struct {
	Memory    MemoryState  `json:"memory"`
	Process   ProcessState `json:"process"`
	Timestamp time.Time    `json:"timestamp"`
}
