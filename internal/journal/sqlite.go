// Package journal keeps an append-only SQLite audit trail of planning steps
// and task completions. In-memory sessions stay authoritative; the journal is
// for history queries after the process exits.
package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Session kinds.
const (
	KindPlanning  = "planning"
	KindExecution = "execution"
)

// SessionEntry records the creation of a planning or execution session.
type SessionEntry struct {
	ID           string    `json:"id"`
	Kind         string    `json:"kind"`
	ProjectName  string    `json:"project_name"`
	DocumentPath string    `json:"document_path,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// StepEntry records one accepted planning step.
type StepEntry struct {
	SessionID   string    `json:"session_id"`
	StepNumber  int       `json:"step_number"`
	TotalSteps  int       `json:"total_steps"`
	Text        string    `json:"text"`
	TasksAdded  int       `json:"tasks_added"`
	IsRevision  bool      `json:"is_revision,omitempty"`
	RevisesStep int       `json:"revises_step,omitempty"`
	BranchID    string    `json:"branch_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// CompletionEntry records one executed task and its propagated ancestors.
type CompletionEntry struct {
	SessionID     string    `json:"session_id"`
	Step          int       `json:"step"`
	TaskID        string    `json:"task_id"`
	Title         string    `json:"title"`
	Rationale     string    `json:"rationale,omitempty"`
	ActionNote    string    `json:"action_note,omitempty"`
	AutoCompleted []string  `json:"auto_completed,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// SQLiteJournal implements the journal on SQLite.
type SQLiteJournal struct {
	db *sql.DB
}

// Open opens (creating if needed) the journal database at path. ":memory:"
// gives a private in-memory journal.
func Open(path string) (*SQLiteJournal, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create journal directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	// A single connection keeps ":memory:" databases shared and serializes writes.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	j := &SQLiteJournal{db: db}
	if err := j.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return j, nil
}

func (j *SQLiteJournal) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		project_name TEXT NOT NULL DEFAULT '',
		document_path TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS planning_steps (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		step_number INTEGER NOT NULL,
		total_steps INTEGER NOT NULL,
		text TEXT NOT NULL,
		tasks_added INTEGER NOT NULL DEFAULT 0,
		is_revision INTEGER NOT NULL DEFAULT 0,
		revises_step INTEGER NOT NULL DEFAULT 0,
		branch_id TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS completions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		step INTEGER NOT NULL,
		task_id TEXT NOT NULL,
		title TEXT NOT NULL,
		rationale TEXT NOT NULL DEFAULT '',
		action_note TEXT NOT NULL DEFAULT '',
		auto_completed TEXT NOT NULL DEFAULT '[]',
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_planning_steps_session ON planning_steps(session_id);
	CREATE INDEX IF NOT EXISTS idx_completions_session ON completions(session_id);
	`
	_, err := j.db.Exec(schema)
	return err
}

// Close closes the database.
func (j *SQLiteJournal) Close() error {
	return j.db.Close()
}

// RecordSession stores a session row. Re-recording the same id is a no-op.
func (j *SQLiteJournal) RecordSession(ctx context.Context, e SessionEntry) error {
	_, err := j.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO sessions (id, kind, project_name, document_path, created_at) VALUES (?, ?, ?, ?, ?)`,
		e.ID, e.Kind, e.ProjectName, e.DocumentPath, formatTime(e.CreatedAt))
	if err != nil {
		return fmt.Errorf("record session %s: %w", e.ID, err)
	}
	return nil
}

// RecordStep appends a planning step.
func (j *SQLiteJournal) RecordStep(ctx context.Context, e StepEntry) error {
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO planning_steps (session_id, step_number, total_steps, text, tasks_added, is_revision, revises_step, branch_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.SessionID, e.StepNumber, e.TotalSteps, e.Text, e.TasksAdded, boolToInt(e.IsRevision), e.RevisesStep, e.BranchID, formatTime(e.CreatedAt))
	if err != nil {
		return fmt.Errorf("record step %d of %s: %w", e.StepNumber, e.SessionID, err)
	}
	return nil
}

// RecordCompletion appends a task completion.
func (j *SQLiteJournal) RecordCompletion(ctx context.Context, e CompletionEntry) error {
	auto, err := json.Marshal(nonNil(e.AutoCompleted))
	if err != nil {
		return fmt.Errorf("marshal auto-completed: %w", err)
	}
	_, err = j.db.ExecContext(ctx,
		`INSERT INTO completions (session_id, step, task_id, title, rationale, action_note, auto_completed, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.SessionID, e.Step, e.TaskID, e.Title, e.Rationale, e.ActionNote, string(auto), formatTime(e.CreatedAt))
	if err != nil {
		return fmt.Errorf("record completion of %s in %s: %w", e.TaskID, e.SessionID, err)
	}
	return nil
}

// Sessions lists recorded sessions, newest first. kind may be empty for all.
func (j *SQLiteJournal) Sessions(ctx context.Context, kind string) ([]SessionEntry, error) {
	query := `SELECT id, kind, project_name, document_path, created_at FROM sessions`
	var args []any
	if kind != "" {
		query += ` WHERE kind = ?`
		args = append(args, kind)
	}
	query += ` ORDER BY created_at DESC, id`

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []SessionEntry
	for rows.Next() {
		var e SessionEntry
		var created string
		if err := rows.Scan(&e.ID, &e.Kind, &e.ProjectName, &e.DocumentPath, &created); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		e.CreatedAt = parseTime(created)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Steps returns the planning steps of a session in insertion order.
func (j *SQLiteJournal) Steps(ctx context.Context, sessionID string) ([]StepEntry, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT session_id, step_number, total_steps, text, tasks_added, is_revision, revises_step, branch_id, created_at
		 FROM planning_steps WHERE session_id = ? ORDER BY id`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query steps: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []StepEntry
	for rows.Next() {
		var e StepEntry
		var isRevision int
		var created string
		if err := rows.Scan(&e.SessionID, &e.StepNumber, &e.TotalSteps, &e.Text, &e.TasksAdded, &isRevision, &e.RevisesStep, &e.BranchID, &created); err != nil {
			return nil, fmt.Errorf("scan step: %w", err)
		}
		e.IsRevision = isRevision != 0
		e.CreatedAt = parseTime(created)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Completions returns the task completions of a session in insertion order.
func (j *SQLiteJournal) Completions(ctx context.Context, sessionID string) ([]CompletionEntry, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT session_id, step, task_id, title, rationale, action_note, auto_completed, created_at
		 FROM completions WHERE session_id = ? ORDER BY id`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query completions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []CompletionEntry
	for rows.Next() {
		var e CompletionEntry
		var auto, created string
		if err := rows.Scan(&e.SessionID, &e.Step, &e.TaskID, &e.Title, &e.Rationale, &e.ActionNote, &auto, &created); err != nil {
			return nil, fmt.Errorf("scan completion: %w", err)
		}
		if err := json.Unmarshal([]byte(auto), &e.AutoCompleted); err != nil {
			return nil, fmt.Errorf("decode auto-completed for %s: %w", e.TaskID, err)
		}
		if len(e.AutoCompleted) == 0 {
			e.AutoCompleted = nil
		}
		e.CreatedAt = parseTime(created)
		out = append(out, e)
	}
	return out, rows.Err()
}

// ResolveSession maps a session id prefix to a recorded id.
func (j *SQLiteJournal) ResolveSession(ctx context.Context, prefix string) ([]string, error) {
	escaped := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(prefix)
	rows, err := j.db.QueryContext(ctx, `SELECT id FROM sessions WHERE id LIKE ? ESCAPE '\' ORDER BY id`, escaped+"%")
	if err != nil {
		return nil, fmt.Errorf("resolve session: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
