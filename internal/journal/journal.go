// Package journal records hook invocations in a SQLite database with FTS5
// search, so a session's PDCA activity can be reviewed after the fact.
package journal

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

// FileName is the journal path relative to the project root.
const FileName = "docs/.bkit-journal.db"

// Path returns the journal path for a project.
func Path(projectRoot string) string {
	return filepath.Join(projectRoot, filepath.FromSlash(FileName))
}

// ─── Types ───────────────────────────────────────────────────────────────────

// Session is one host session, keyed by the UUID recorded at SessionStart.
type Session struct {
	ID        string  `json:"id"`
	Project   string  `json:"project"`
	Platform  string  `json:"platform"`
	StartedAt string  `json:"started_at"`
	EndedAt   *string `json:"ended_at,omitempty"`
}

// Event is one hook invocation.
type Event struct {
	ID        int64  `json:"id"`
	SessionID string `json:"session_id"`
	Event     string `json:"event"`
	Handler   string `json:"handler"`
	ToolName  string `json:"tool_name,omitempty"`
	Decision  string `json:"decision,omitempty"`
	Feature   string `json:"feature,omitempty"`
	Phase     string `json:"phase,omitempty"`
	Message   string `json:"message,omitempty"`
	CreatedAt string `json:"created_at"`
}

// Filter narrows Recent. Empty fields match everything.
type Filter struct {
	SessionID string
	Feature   string
	Event     string
	Limit     int
}

// Stats holds aggregate counts.
type Stats struct {
	TotalSessions int            `json:"total_sessions"`
	TotalEvents   int            `json:"total_events"`
	Blocked       int            `json:"blocked"`
	ByEvent       map[string]int `json:"by_event"`
}

// ─── Store ───────────────────────────────────────────────────────────────────

// Store is the journal database.
type Store struct {
	db *sql.DB
}

// MaxMessageLength caps stored messages.
const MaxMessageLength = 2000

// Open creates the parent directory if needed, opens SQLite in WAL mode,
// and runs migrations.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("journal: create dir: %w", err)
	}

	db, err := openDB("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("journal: open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("journal: pragma %q: %w", p, err)
		}
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("journal: migration: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// ─── Migrations ──────────────────────────────────────────────────────────────

func (s *Store) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS sessions (
			id         TEXT PRIMARY KEY,
			project    TEXT NOT NULL,
			platform   TEXT NOT NULL DEFAULT '',
			started_at TEXT NOT NULL DEFAULT (datetime('now')),
			ended_at   TEXT
		);

		CREATE TABLE IF NOT EXISTS events (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT    NOT NULL DEFAULT '',
			event      TEXT    NOT NULL,
			handler    TEXT    NOT NULL DEFAULT '',
			tool_name  TEXT    NOT NULL DEFAULT '',
			decision   TEXT    NOT NULL DEFAULT '',
			feature    TEXT    NOT NULL DEFAULT '',
			phase      TEXT    NOT NULL DEFAULT '',
			message    TEXT    NOT NULL DEFAULT '',
			created_at TEXT    NOT NULL DEFAULT (datetime('now'))
		);

		CREATE INDEX IF NOT EXISTS idx_events_session ON events(session_id);
		CREATE INDEX IF NOT EXISTS idx_events_feature ON events(feature);
		CREATE INDEX IF NOT EXISTS idx_events_created ON events(created_at DESC);

		CREATE VIRTUAL TABLE IF NOT EXISTS events_fts USING fts5(
			event,
			handler,
			tool_name,
			feature,
			message,
			content='events',
			content_rowid='id'
		);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}

	var name string
	err := s.db.QueryRow(
		"SELECT name FROM sqlite_master WHERE type='trigger' AND name='events_fts_insert'",
	).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		triggers := `
			CREATE TRIGGER events_fts_insert AFTER INSERT ON events BEGIN
				INSERT INTO events_fts(rowid, event, handler, tool_name, feature, message)
				VALUES (new.id, new.event, new.handler, new.tool_name, new.feature, new.message);
			END;

			CREATE TRIGGER events_fts_delete AFTER DELETE ON events BEGIN
				INSERT INTO events_fts(events_fts, rowid, event, handler, tool_name, feature, message)
				VALUES ('delete', old.id, old.event, old.handler, old.tool_name, old.feature, old.message);
			END;
		`
		if _, err := s.db.Exec(triggers); err != nil {
			return err
		}
	} else if err != nil {
		return err
	}
	return nil
}

// ─── Sessions ────────────────────────────────────────────────────────────────

// CreateSession registers a session. Re-registering an ID is a no-op.
func (s *Store) CreateSession(id, project, platform string) error {
	_, err := s.db.Exec(
		`INSERT OR IGNORE INTO sessions (id, project, platform, started_at) VALUES (?, ?, ?, ?)`,
		id, project, platform, Now(),
	)
	return err
}

// EndSession stamps the session's end time.
func (s *Store) EndSession(id string) error {
	_, err := s.db.Exec(`UPDATE sessions SET ended_at = ? WHERE id = ?`, Now(), id)
	return err
}

// GetSession retrieves a session by ID.
func (s *Store) GetSession(id string) (*Session, error) {
	row := s.db.QueryRow(`SELECT id, project, platform, started_at, ended_at FROM sessions WHERE id = ?`, id)
	var sess Session
	if err := row.Scan(&sess.ID, &sess.Project, &sess.Platform, &sess.StartedAt, &sess.EndedAt); err != nil {
		return nil, err
	}
	return &sess, nil
}

// ─── Events ──────────────────────────────────────────────────────────────────

// Record inserts e and returns its ID. Messages are truncated to
// MaxMessageLength.
func (s *Store) Record(e Event) (int64, error) {
	if e.Event == "" {
		return 0, fmt.Errorf("journal: event name is required")
	}
	if e.CreatedAt == "" {
		e.CreatedAt = Now()
	}
	res, err := s.db.Exec(
		`INSERT INTO events (session_id, event, handler, tool_name, decision, feature, phase, message, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.SessionID, e.Event, e.Handler, e.ToolName, e.Decision, e.Feature, e.Phase,
		Truncate(e.Message, MaxMessageLength), e.CreatedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("journal: record: %w", err)
	}
	return res.LastInsertId()
}

const eventColumns = `id, session_id, event, handler, tool_name, decision, feature, phase, message, created_at`

// Recent returns the newest events matching f, newest first.
func (s *Store) Recent(f Filter) ([]Event, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 20
	}
	query := `SELECT ` + eventColumns + ` FROM events WHERE 1=1`
	var args []any
	if f.SessionID != "" {
		query += " AND session_id = ?"
		args = append(args, f.SessionID)
	}
	if f.Feature != "" {
		query += " AND feature = ?"
		args = append(args, f.Feature)
	}
	if f.Event != "" {
		query += " AND event = ?"
		args = append(args, f.Event)
	}
	query += " ORDER BY id DESC LIMIT ?"
	args = append(args, limit)
	return s.queryEvents(query, args...)
}

// Search runs a full-text query over event names, handlers, tools,
// features and messages. An empty query falls back to Recent.
func (s *Store) Search(query string, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 10
	}
	fts := sanitizeFTS(query)
	if fts == "" {
		return s.Recent(Filter{Limit: limit})
	}
	return s.queryEvents(`
		SELECT e.id, e.session_id, e.event, e.handler, e.tool_name, e.decision, e.feature, e.phase, e.message, e.created_at
		FROM events_fts fts
		JOIN events e ON e.id = fts.rowid
		WHERE events_fts MATCH ?
		ORDER BY fts.rank LIMIT ?`, fts, limit)
}

func (s *Store) queryEvents(query string, args ...any) ([]Event, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("journal: query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.ID, &e.SessionID, &e.Event, &e.Handler, &e.ToolName,
			&e.Decision, &e.Feature, &e.Phase, &e.Message, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// ─── Stats ───────────────────────────────────────────────────────────────────

// Stats returns aggregate counts.
func (s *Store) Stats() (*Stats, error) {
	stats := &Stats{ByEvent: map[string]int{}}

	_ = s.db.QueryRow("SELECT COUNT(*) FROM sessions").Scan(&stats.TotalSessions)
	_ = s.db.QueryRow("SELECT COUNT(*) FROM events").Scan(&stats.TotalEvents)
	_ = s.db.QueryRow("SELECT COUNT(*) FROM events WHERE decision = 'block'").Scan(&stats.Blocked)

	rows, err := s.db.Query("SELECT event, COUNT(*) FROM events GROUP BY event")
	if err != nil {
		return stats, nil
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var name string
		var n int
		if err := rows.Scan(&name, &n); err == nil {
			stats.ByEvent[name] = n
		}
	}
	return stats, nil
}

// ─── Context Formatting ─────────────────────────────────────────────────────

// FormatContext renders the newest events of feature as markdown, or ""
// when there are none.
func (s *Store) FormatContext(feature string, limit int) (string, error) {
	events, err := s.Recent(Filter{Feature: feature, Limit: limit})
	if err != nil {
		return "", err
	}
	if len(events) == 0 {
		return "", nil
	}

	var b strings.Builder
	b.WriteString("## Recent Hook Activity\n\n")
	for _, e := range events {
		line := fmt.Sprintf("- %s %s", e.CreatedAt, e.Event)
		if e.Handler != "" {
			line += "/" + e.Handler
		}
		if e.Decision != "" {
			line += " [" + e.Decision + "]"
		}
		if e.Message != "" {
			line += ": " + Truncate(e.Message, 120)
		}
		b.WriteString(line + "\n")
	}
	return b.String(), nil
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

// Truncate shortens s to max runes, appending "...".
func Truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "..."
}

// sanitizeFTS wraps each word in quotes for safe FTS5 queries.
// "rm build" → `"rm" "build"`
func sanitizeFTS(query string) string {
	words := strings.Fields(query)
	for i, w := range words {
		words[i] = `"` + strings.ReplaceAll(w, `"`, "") + `"`
	}
	return strings.Join(words, " ")
}

// timeNow is a package-level variable for testability.
var timeNow = time.Now

// Now returns the current time formatted for SQLite.
func Now() string {
	return timeNow().UTC().Format("2006-01-02 15:04:05")
}
