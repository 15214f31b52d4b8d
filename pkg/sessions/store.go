// Package sessions persists user-named snapshots of lyrics and results.
package sessions

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/versewright/versewright/pkg/models"
)

// ErrNotFound is returned when a session ID does not exist.
var ErrNotFound = errors.New("session not found")

const createTable = `
CREATE TABLE IF NOT EXISTS saved_sessions (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	lyrics TEXT NOT NULL,
	payload TEXT NOT NULL,
	created_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_saved_sessions_created ON saved_sessions(created_at);
`

// Store is a SQLite-backed session store.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// dsnOptions lets several handles share one database file.
const dsnOptions = "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"

// New opens (or creates) the session database at dbPath.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+dsnOptions)
	if err != nil {
		return nil, fmt.Errorf("open sessions db: %w", err)
	}
	if _, err := db.Exec(createTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate sessions db: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

// Save stores s and returns its ID. A new ID is assigned when s.ID is empty;
// an existing ID is overwritten.
func (st *Store) Save(ctx context.Context, s models.SavedSession) (string, error) {
	if strings.TrimSpace(s.Title) == "" {
		return "", errors.New("save session: title required")
	}
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = st.now().UTC()
	}
	payload, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("save session: encode: %w", err)
	}
	_, err = st.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO saved_sessions (id, title, lyrics, payload, created_at) VALUES (?, ?, ?, ?, ?)`,
		s.ID, s.Title, s.Lyrics, string(payload), s.CreatedAt,
	)
	if err != nil {
		return "", fmt.Errorf("save session: %w", err)
	}
	return s.ID, nil
}

// Get loads one session.
func (st *Store) Get(ctx context.Context, id string) (models.SavedSession, error) {
	var payload string
	err := st.db.QueryRowContext(ctx, `SELECT payload FROM saved_sessions WHERE id = ?`, id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return models.SavedSession{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return models.SavedSession{}, fmt.Errorf("get session: %w", err)
	}
	var s models.SavedSession
	if err := json.Unmarshal([]byte(payload), &s); err != nil {
		return models.SavedSession{}, fmt.Errorf("get session: decode: %w", err)
	}
	return s, nil
}

// List returns all sessions, newest first.
func (st *Store) List(ctx context.Context) ([]models.SavedSession, error) {
	rows, err := st.db.QueryContext(ctx, `SELECT payload FROM saved_sessions ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []models.SavedSession
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		var s models.SavedSession
		if err := json.Unmarshal([]byte(payload), &s); err != nil {
			return nil, fmt.Errorf("decode session: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Delete removes a session.
func (st *Store) Delete(ctx context.Context, id string) error {
	res, err := st.db.ExecContext(ctx, `DELETE FROM saved_sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// Close releases the database connection.
func (st *Store) Close() error {
	return st.db.Close()
}
