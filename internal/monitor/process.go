package monitor

import (
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v4/process"
)

// ProcessMonitor samples the current process.
type ProcessMonitor struct {
	proc      *process.Process
	startedAt time.Time
	mu        sync.Mutex
}

func NewProcessMonitor() (*ProcessMonitor, error) {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return nil, err
	}

	m := &ProcessMonitor{
		proc:      p,
		startedAt: time.Now(),
	}
	if created, err := p.CreateTime(); err == nil {
		m.startedAt = time.UnixMilli(created)
	}
	return m, nil
}

func (m *ProcessMonitor) Name() string {
	return "process"
}

func (m *ProcessMonitor) Collect() (any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	mem, err := m.proc.MemoryInfo()
	if err != nil {
		return nil, err
	}

	state := &ProcessState{
		PID:        m.proc.Pid,
		RSSBytes:   mem.RSS,
		Goroutines: runtime.NumGoroutine(),
		StartedAt:  m.startedAt,
	}

	// Both are best effort on restricted platforms.
	if cpu, err := m.proc.CPUPercent(); err == nil {
		state.CPUPercent = cpu
	}
	if threads, err := m.proc.NumThreads(); err == nil {
		state.Threads = threads
	}

	return state, nil
}
