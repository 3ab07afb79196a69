// Package eventstore persists loop events in SQLite.
package eventstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/haskel/pacer/internal/loop"
)

// SQLiteStore is an append-only event table. It implements loop.Sink.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates the database at dbPath and applies
// migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := enablePragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable pragmas: %w", err)
	}

	if err := RunMigrations(db); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteStore{db: db}, nil
}

func enablePragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
		"PRAGMA synchronous=NORMAL",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("execute %s: %w", pragma, err)
		}
	}

	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Publish stores an event.
func (s *SQLiteStore) Publish(ctx context.Context, e loop.Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode event %s: %w", e.ID, err)
	}

	var recID sql.NullString
	if e.RecommendationID != "" {
		recID = sql.NullString{String: e.RecommendationID, Valid: true}
	}
	var reward sql.NullFloat64
	if e.Reward != nil {
		reward = sql.NullFloat64{Float64: *e.Reward, Valid: true}
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO events (id, event_type, user_id, action_id, recommendation_id, reward, payload, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, e.ID, string(e.Type), e.UserID, e.ActionID, recID, reward, string(payload), e.Timestamp.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("insert event %s: %w", e.ID, err)
	}

	return nil
}

// List returns events in append order. An empty userID matches every user;
// a positive limit keeps only the most recent events.
func (s *SQLiteStore) List(ctx context.Context, userID string, limit int) ([]loop.Event, error) {
	query := `SELECT id, payload FROM events`
	var args []any
	if userID != "" {
		query += ` WHERE user_id = ?`
		args = append(args, userID)
	}
	query += ` ORDER BY id DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT payload FROM (`+query+`) ORDER BY id ASC`, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	events := make([]loop.Event, 0)
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		var e loop.Event
		if err := json.Unmarshal([]byte(payload), &e); err != nil {
			return nil, fmt.Errorf("decode event: %w", err)
		}
		events = append(events, e)
	}

	return events, rows.Err()
}

// Count returns the number of stored events.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM events").Scan(&count)
	return count, err
}

// RewardSummary aggregates feedback rewards per action.
type RewardSummary struct {
	ActionID   int     `json:"action_id"`
	Feedbacks  int     `json:"feedbacks"`
	MeanReward float64 `json:"mean_reward"`
}

// Rewards returns per-action reward aggregates over stored feedback events.
func (s *SQLiteStore) Rewards(ctx context.Context) ([]RewardSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT action_id, COUNT(*), AVG(reward)
		FROM events
		WHERE event_type = ? AND reward IS NOT NULL
		GROUP BY action_id
		ORDER BY action_id
	`, string(loop.EventFeedbackReceived))
	if err != nil {
		return nil, fmt.Errorf("query rewards: %w", err)
	}
	defer rows.Close()

	out := make([]RewardSummary, 0)
	for rows.Next() {
		var r RewardSummary
		if err := rows.Scan(&r.ActionID, &r.Feedbacks, &r.MeanReward); err != nil {
			return nil, fmt.Errorf("scan rewards: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
