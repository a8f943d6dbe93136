package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Fight outcomes accepted by the registry.
const (
	OutcomeWin  = "win"
	OutcomeLoss = "loss"
)

// ErrNotFound indicates the requested session is not in the catalog.
var ErrNotFound = errors.New("catalog: session not found")

// ErrDuplicateSession indicates a session id was registered twice.
var ErrDuplicateSession = errors.New("catalog: session already registered")

// Session is one catalog row describing a recorded session.
type Session struct {
	ID               string
	Name             string
	CreatedAt        time.Time
	Hostname         string
	AppVersion       string
	FrameRate        float64
	State            string
	FramesWritten    int64
	FightsMarked     int
	FightTimeSeconds float64
}

// Fight is one recorded fight outcome.
type Fight struct {
	ID              int64
	SessionID       string
	Boss            string
	Outcome         string
	DurationSeconds float64
	CreatedAt       time.Time
}

// BossRecord aggregates win/loss counts for one boss.
type BossRecord struct {
	Boss   string
	Wins   int
	Losses int
}

// Store provides session and fight persistence on top of the catalog DB.
type Store struct {
	db *DB
}

// NewStore creates a Store backed by db.
func NewStore(db *DB) *Store {
	return &Store{db: db}
}

// InsertSession registers a completed or in-progress session.
func (s *Store) InsertSession(ctx context.Context, sess Session) error {
	if strings.TrimSpace(sess.ID) == "" {
		return errors.New("catalog: session id must not be empty")
	}

	query := `
		INSERT INTO sessions (
			id, name, created_at, hostname, app_version,
			frame_rate, state, frames_written, fights_marked, fight_time_seconds
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		sess.ID,
		sess.Name,
		sess.CreatedAt.UTC(),
		sess.Hostname,
		sess.AppVersion,
		sess.FrameRate,
		sess.State,
		sess.FramesWritten,
		sess.FightsMarked,
		sess.FightTimeSeconds,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateSession
		}
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// UpdateOutcome records the final counters for a session after it stops.
func (s *Store) UpdateOutcome(ctx context.Context, sess Session) error {
	query := `
		UPDATE sessions
		SET state = ?, frames_written = ?, fights_marked = ?, fight_time_seconds = ?
		WHERE id = ?
	`

	result, err := s.db.ExecContext(ctx, query,
		sess.State,
		sess.FramesWritten,
		sess.FightsMarked,
		sess.FightTimeSeconds,
		sess.ID,
	)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// GetSession retrieves one session by id.
func (s *Store) GetSession(ctx context.Context, id string) (Session, error) {
	query := `
		SELECT id, name, created_at, hostname, app_version,
		       frame_rate, state, frames_written, fights_marked, fight_time_seconds
		FROM sessions
		WHERE id = ?
	`

	var sess Session
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&sess.ID,
		&sess.Name,
		&sess.CreatedAt,
		&sess.Hostname,
		&sess.AppVersion,
		&sess.FrameRate,
		&sess.State,
		&sess.FramesWritten,
		&sess.FightsMarked,
		&sess.FightTimeSeconds,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, ErrNotFound
	}
	if err != nil {
		return Session{}, fmt.Errorf("get session: %w", err)
	}
	return sess, nil
}

// ListSessions returns sessions newest first, up to limit (0 means all).
func (s *Store) ListSessions(ctx context.Context, limit int) ([]Session, error) {
	query := `
		SELECT id, name, created_at, hostname, app_version,
		       frame_rate, state, frames_written, fights_marked, fight_time_seconds
		FROM sessions
		ORDER BY created_at DESC
	`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		var sess Session
		if err := rows.Scan(
			&sess.ID,
			&sess.Name,
			&sess.CreatedAt,
			&sess.Hostname,
			&sess.AppVersion,
			&sess.FrameRate,
			&sess.State,
			&sess.FramesWritten,
			&sess.FightsMarked,
			&sess.FightTimeSeconds,
		); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return sessions, nil
}

// InsertFight records one fight outcome for a registered session.
func (s *Store) InsertFight(ctx context.Context, fight Fight) error {
	if fight.Outcome != OutcomeWin && fight.Outcome != OutcomeLoss {
		return fmt.Errorf("catalog: invalid outcome %q", fight.Outcome)
	}

	query := `
		INSERT INTO fights (session_id, boss, outcome, duration_seconds, created_at)
		VALUES (?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		fight.SessionID,
		fight.Boss,
		fight.Outcome,
		fight.DurationSeconds,
		fight.CreatedAt.UTC(),
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrNotFound
		}
		return fmt.Errorf("insert fight: %w", err)
	}
	return nil
}

// WinLoss aggregates win/loss counts per boss across all sessions.
func (s *Store) WinLoss(ctx context.Context) ([]BossRecord, error) {
	query := `
		SELECT boss,
		       SUM(CASE WHEN outcome = 'win' THEN 1 ELSE 0 END),
		       SUM(CASE WHEN outcome = 'loss' THEN 1 ELSE 0 END)
		FROM fights
		GROUP BY boss
		ORDER BY boss
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("aggregate fights: %w", err)
	}
	defer rows.Close()

	var records []BossRecord
	for rows.Next() {
		var rec BossRecord
		if err := rows.Scan(&rec.Boss, &rec.Wins, &rec.Losses); err != nil {
			return nil, fmt.Errorf("scan boss record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("aggregate fights: %w", err)
	}
	return records, nil
}
