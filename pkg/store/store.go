// Package store persists monitoring sessions and alert events in SQLite.
// The schema is managed by goose migrations embedded in the binary.
package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"

	"github.com/teslashibe/go-drowsy/internal/log"
	"github.com/teslashibe/go-drowsy/pkg/drowsiness"
)

//go:embed migrations/*.sql
var migrations embed.FS

// ErrNotFound is returned when a session does not exist.
var ErrNotFound = errors.New("not found")

// Session is one run of the monitor.
type Session struct {
	ID        string     `json:"id"`
	Source    string     `json:"source"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
	Frames    int64      `json:"frames"`

	EARThreshold  float64 `json:"ear_threshold"`
	EyeFrames     int     `json:"eye_frames"`
	YawnThreshold float64 `json:"yawn_threshold"`
	YawnFrames    int     `json:"yawn_frames"`
}

// Event is a persisted alert transition.
type Event struct {
	ID        string          `json:"id"`
	SessionID string          `json:"session_id"`
	Kind      drowsiness.Kind `json:"kind"`
	Seq       uint64          `json:"seq"`
	Value     float64         `json:"value"`
	Count     int             `json:"count"`
	Time      time.Time       `json:"time"`
}

// Query filters ListEvents. Zero values match everything.
type Query struct {
	SessionID string
	Kind      *drowsiness.Kind
	Since     time.Time
	Limit     int
}

// Store wraps the database handle.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and applies migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", path, err)
	}

	// SQLite allows one writer
	db.SetMaxOpenConns(1)

	if err := migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	log.Info("🗄️  database ready", "path", path)
	return &Store{db: db}, nil
}

func migrate(ctx context.Context, db *sql.DB) error {
	fsys, err := fs.Sub(migrations, "migrations")
	if err != nil {
		return err
	}

	provider, err := goose.NewProvider(goose.DialectSQLite3, db, fsys)
	if err != nil {
		return fmt.Errorf("migrations: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	for _, r := range results {
		log.Debug("applied migration", "source", r.Source.Path, "duration", r.Duration)
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// StartSession records a new session.
func (s *Store) StartSession(ctx context.Context, source string, cfg drowsiness.Config) (Session, error) {
	sess := Session{
		ID:            uuid.NewString(),
		Source:        source,
		StartedAt:     time.Now().UTC(),
		EARThreshold:  cfg.EARThreshold,
		EyeFrames:     cfg.EyeFrames,
		YawnThreshold: cfg.YawnThreshold,
		YawnFrames:    cfg.YawnFrames,
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, source, started_at, ear_threshold, eye_frames, yawn_threshold, yawn_frames)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sess.ID, sess.Source, sess.StartedAt, sess.EARThreshold, sess.EyeFrames, sess.YawnThreshold, sess.YawnFrames)
	if err != nil {
		return Session{}, fmt.Errorf("insert session: %w", err)
	}
	return sess, nil
}

// EndSession stamps the end time and frame count.
func (s *Store) EndSession(ctx context.Context, id string, frames int64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET ended_at = ?, frames = ? WHERE id = ?`,
		time.Now().UTC(), frames, id)
	if err != nil {
		return fmt.Errorf("end session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	return nil
}

// GetSession loads one session.
func (s *Store) GetSession(ctx context.Context, id string) (Session, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, source, started_at, ended_at, frames, ear_threshold, eye_frames, yawn_threshold, yawn_frames
		FROM sessions WHERE id = ?`, id)

	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	return sess, err
}

// ListSessions returns the most recent sessions first.
func (s *Store) ListSessions(ctx context.Context, limit int) ([]Session, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, source, started_at, ended_at, frames, ear_threshold, eye_frames, yawn_threshold, yawn_frames
		FROM sessions ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (Session, error) {
	var (
		sess  Session
		ended sql.NullTime
	)
	err := row.Scan(&sess.ID, &sess.Source, &sess.StartedAt, &ended, &sess.Frames,
		&sess.EARThreshold, &sess.EyeFrames, &sess.YawnThreshold, &sess.YawnFrames)
	if err != nil {
		return Session{}, err
	}
	if ended.Valid {
		t := ended.Time
		sess.EndedAt = &t
	}
	return sess, nil
}

// InsertEvent stores an alert transition for a session.
func (s *Store) InsertEvent(ctx context.Context, sessionID string, e drowsiness.Event) (Event, error) {
	t := e.Time
	if t.IsZero() {
		t = time.Now()
	}
	ev := Event{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Kind:      e.Kind,
		Seq:       e.Seq,
		Value:     e.Value,
		Count:     e.Count,
		Time:      t.UTC(),
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO alert_events (id, session_id, kind, seq, value, count, occurred_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		ev.ID, ev.SessionID, ev.Kind.String(), int64(ev.Seq), ev.Value, ev.Count, ev.Time)
	if err != nil {
		return Event{}, fmt.Errorf("insert event: %w", err)
	}
	return ev, nil
}

// ListEvents returns matching events, newest first.
func (s *Store) ListEvents(ctx context.Context, q Query) ([]Event, error) {
	query := `SELECT id, session_id, kind, seq, value, count, occurred_at FROM alert_events WHERE 1=1`
	var args []any

	if q.SessionID != "" {
		query += ` AND session_id = ?`
		args = append(args, q.SessionID)
	}
	if q.Kind != nil {
		query += ` AND kind = ?`
		args = append(args, q.Kind.String())
	}
	if !q.Since.IsZero() {
		query += ` AND occurred_at >= ?`
		args = append(args, q.Since.UTC())
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` ORDER BY occurred_at DESC, seq DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var (
			ev   Event
			kind string
			seq  int64
		)
		if err := rows.Scan(&ev.ID, &ev.SessionID, &kind, &seq, &ev.Value, &ev.Count, &ev.Time); err != nil {
			return nil, err
		}
		if ev.Kind, err = drowsiness.ParseKind(kind); err != nil {
			return nil, err
		}
		ev.Seq = uint64(seq)
		out = append(out, ev)
	}
	return out, rows.Err()
}

// CountEvents returns per-kind totals for a session, or for all sessions when
// sessionID is empty.
func (s *Store) CountEvents(ctx context.Context, sessionID string) (map[drowsiness.Kind]int, error) {
	query := `SELECT kind, COUNT(*) FROM alert_events`
	var args []any
	if sessionID != "" {
		query += ` WHERE session_id = ?`
		args = append(args, sessionID)
	}
	query += ` GROUP BY kind`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("count events: %w", err)
	}
	defer rows.Close()

	out := make(map[drowsiness.Kind]int)
	for rows.Next() {
		var (
			kind string
			n    int
		)
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, err
		}
		k, err := drowsiness.ParseKind(kind)
		if err != nil {
			return nil, err
		}
		out[k] = n
	}
	return out, rows.Err()
}
