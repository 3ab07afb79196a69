// Package storage persists learner snapshots on disk.
package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const snapshotFileName = "pacer_model.json"

// Snapshotter is a learner that can be written to and restored from a stream.
type Snapshotter interface {
	Save(w io.Writer) error
	Load(r io.Reader) error
}

// Storage handles persistence of one learner snapshot.
type Storage struct {
	dataDir       string
	flushInterval time.Duration
	learner       Snapshotter
	logger        *slog.Logger

	mu     sync.Mutex
	dirty  bool
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a new Storage instance for a learner.
func New(dataDir string, flushInterval time.Duration, learner Snapshotter, logger *slog.Logger) *Storage {
	return &Storage{
		dataDir:       dataDir,
		flushInterval: flushInterval,
		learner:       learner,
		logger:        logger,
		done:          make(chan struct{}),
	}
}

// Path returns the snapshot file path.
func (s *Storage) Path() string {
	return filepath.Join(s.dataDir, snapshotFileName)
}

// Load restores the learner from disk. A missing file is not an error. A
// snapshot the learner rejects is logged and the learner keeps its prior.
func (s *Storage) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	filePath := s.Path()

	file, err := os.Open(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			s.logger.Info("no existing snapshot, starting fresh", "path", filePath)
			return nil
		}
		return fmt.Errorf("open snapshot: %w", err)
	}
	defer file.Close()

	if err := s.learner.Load(file); err != nil {
		s.logger.Warn("failed to load snapshot, starting fresh",
			"path", filePath,
			"error", err,
		)
		return nil
	}

	s.logger.Info("loaded snapshot from disk", "path", filePath)
	return nil
}

// Save writes the learner to disk atomically.
func (s *Storage) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.saveLocked()
}

func (s *Storage) saveLocked() error {
	if err := os.MkdirAll(s.dataDir, 0755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	filePath := s.Path()
	tempPath := filePath + ".tmp"

	file, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}

	if err := s.learner.Save(file); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("write snapshot: %w", err)
	}

	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("close temp file: %w", err)
	}

	// Atomic rename
	if err := os.Rename(tempPath, filePath); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("rename temp file: %w", err)
	}

	s.dirty = false
	s.logger.Debug("saved snapshot to disk", "path", filePath)

	return nil
}

// Start starts the periodic flush goroutine. A non-positive interval
// disables periodic flushing.
func (s *Storage) Start(ctx context.Context) {
	if s.flushInterval <= 0 {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)

	go s.flushLoop(ctx)
}

// Stop stops the periodic flush and saves final state.
func (s *Storage) Stop() error {
	if s.cancel != nil {
		s.cancel()
		<-s.done
	}

	// Final save
	return s.Save()
}

func (s *Storage) flushLoop(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !s.IsDirty() {
				continue
			}
			if err := s.Save(); err != nil {
				s.logger.Error("failed to save snapshot", "error", err)
			}
		}
	}
}

// MarkDirty marks the learner as needing to be saved.
func (s *Storage) MarkDirty() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dirty = true
}

// IsDirty returns whether the learner has unsaved changes.
func (s *Storage) IsDirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

// Exists returns whether a saved snapshot exists.
func (s *Storage) Exists() bool {
	_, err := os.Stat(s.Path())
	return err == nil
}

// Info describes the saved snapshot.
type Info struct {
	Exists    bool      `json:"exists"`
	Path      string    `json:"path"`
	Size      int64     `json:"size,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
	Dirty     bool      `json:"dirty"`
}

// Info returns information about the saved snapshot.
func (s *Storage) Info() Info {
	info := Info{
		Path:  s.Path(),
		Dirty: s.IsDirty(),
	}

	stat, err := os.Stat(info.Path)
	if err != nil {
		return info
	}

	info.Exists = true
	info.Size = stat.Size()
	info.UpdatedAt = stat.ModTime()
	return info
}

// Delete removes the saved snapshot file.
func (s *Storage) Delete() error {
	if err := os.Remove(s.Path()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete snapshot: %w", err)
	}
	return nil
}
