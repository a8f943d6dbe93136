// Package catalog keeps a SQLite registry of recorded sessions and fight
// outcomes so the sessions and report commands can query history without
// walking artifact directories.
package catalog

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// DB wraps a SQLite database connection.
type DB struct {
	*sql.DB
}

// Open creates a SQLite connection at path and ensures the schema exists.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open catalog database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	wrapped := &DB{db}
	if err := wrapped.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return wrapped, nil
}

func (db *DB) migrate() error {
	schema := `
CREATE TABLE IF NOT EXISTS sessions (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL,
    hostname TEXT NOT NULL DEFAULT '',
    app_version TEXT NOT NULL DEFAULT '',
    frame_rate REAL NOT NULL,
    state TEXT NOT NULL CHECK(state IN ('pending', 'recording', 'completed', 'error')),
    frames_written INTEGER NOT NULL DEFAULT 0,
    fights_marked INTEGER NOT NULL DEFAULT 0,
    fight_time_seconds REAL NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_sessions_created ON sessions(created_at);

CREATE TABLE IF NOT EXISTS fights (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id TEXT NOT NULL,
    boss TEXT NOT NULL,
    outcome TEXT NOT NULL CHECK(outcome IN ('win', 'loss')),
    duration_seconds REAL NOT NULL DEFAULT 0,
    created_at TIMESTAMP NOT NULL,
    FOREIGN KEY (session_id) REFERENCES sessions(id)
);
CREATE INDEX IF NOT EXISTS idx_fights_session ON fights(session_id);
CREATE INDEX IF NOT EXISTS idx_fights_boss ON fights(boss);
`

	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("run catalog migrations: %w", err)
	}
	return nil
}
