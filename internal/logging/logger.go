package logging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"storyloop/internal/errs"
	"storyloop/internal/escalation"
	"storyloop/internal/observability"
	"storyloop/internal/risk"
)

type CompletionMetadata struct {
	Operation    string        `json:"operation"`
	Model        string        `json:"model,omitempty"`
	MaxTokens    int           `json:"max_tokens"`
	ResponseTime time.Duration `json:"response_time_ms"`
	Error        *string       `json:"error,omitempty"`
}

// Completion is one generated (or fallback) text and the prompt behind it.
type Completion struct {
	Prompt   string
	Response string
	Metadata CompletionMetadata
}

type CompletionLog struct {
	ID        int       `db:"id" json:"id"`
	Timestamp time.Time `db:"timestamp" json:"timestamp"`
	SessionID string    `db:"session_id" json:"session_id"`
	Prompt    string    `db:"prompt" json:"prompt"`
	Response  string    `db:"response" json:"response"`
	Metadata  string    `db:"metadata" json:"metadata"`
	Rating    *int      `db:"rating" json:"rating,omitempty"`
	Notes     *string   `db:"notes" json:"notes,omitempty"`
}

type EscalationLog struct {
	ID         int       `db:"id" json:"id"`
	Timestamp  time.Time `db:"timestamp" json:"timestamp"`
	Kind       string    `db:"kind" json:"kind"`
	Message    string    `db:"message" json:"message"`
	Score      float64   `db:"score" json:"score"`
	Threshold  float64   `db:"threshold" json:"threshold"`
	Breakdown  string    `db:"breakdown" json:"breakdown"`
	ContextRaw string    `db:"context" json:"context"`
}

// TurnRecord is one pipeline pass as written to the audit log.
type TurnRecord struct {
	ID        int       `db:"id" json:"id"`
	Timestamp time.Time `db:"timestamp" json:"timestamp"`
	SessionID string    `db:"session_id" json:"session_id"`
	Actor     string    `db:"actor" json:"actor"`
	Action    string    `db:"action" json:"action"`
	Location  string    `db:"location" json:"location"`
	EventID   string    `db:"event_id" json:"event_id"`
	Category  string    `db:"category" json:"category"`
	Score     float64   `db:"score" json:"score"`
	Escalated bool      `db:"escalated" json:"escalated"`
	Outcome   string    `db:"outcome" json:"outcome"`
	Text      string    `db:"text" json:"text"`
}

// Store is the sqlite audit log for completions, escalations and turns.
type Store struct {
	db *sqlx.DB
}

// Open opens or creates the database at path. ":memory:" is accepted.
func Open(path string) (*Store, error) {
	db, err := sqlx.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection keeps in-memory databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return store, nil
}

func (s *Store) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS completions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP,
		session_id TEXT NOT NULL DEFAULT '',
		prompt TEXT NOT NULL,
		response TEXT NOT NULL,
		metadata TEXT NOT NULL,
		rating INTEGER,
		notes TEXT
	);

	CREATE TABLE IF NOT EXISTS escalations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP,
		kind TEXT NOT NULL,
		message TEXT NOT NULL,
		score REAL NOT NULL,
		threshold REAL NOT NULL,
		breakdown TEXT NOT NULL,
		context TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS turns (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP,
		session_id TEXT NOT NULL DEFAULT '',
		actor TEXT NOT NULL,
		action TEXT NOT NULL,
		location TEXT NOT NULL,
		event_id TEXT NOT NULL,
		category TEXT NOT NULL,
		score REAL NOT NULL,
		escalated INTEGER NOT NULL,
		outcome TEXT NOT NULL,
		text TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_completions_timestamp ON completions(timestamp);
	CREATE INDEX IF NOT EXISTS idx_turns_actor ON turns(actor);
	`
	_, err := s.db.Exec(schema)
	return err
}

// LogCompletion records a generation attempt. It satisfies the composer's
// completion recorder.
func (s *Store) LogCompletion(ctx context.Context, entry Completion) error {
	metadataJSON, err := json.Marshal(entry.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO completions (session_id, prompt, response, metadata)
		VALUES (?, ?, ?, ?)
	`, observability.GetSessionIDFromContext(ctx), entry.Prompt, entry.Response, string(metadataJSON))
	return err
}

// RecordEscalation satisfies escalation.Sink.
func (s *Store) RecordEscalation(ctx context.Context, outcome escalation.Outcome, assessment risk.Assessment) error {
	breakdownJSON, err := json.Marshal(assessment.Breakdown)
	if err != nil {
		return fmt.Errorf("failed to marshal breakdown: %w", err)
	}
	contextJSON, err := json.Marshal(outcome.Context)
	if err != nil {
		return fmt.Errorf("failed to marshal context: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO escalations (kind, message, score, threshold, breakdown, context)
		VALUES (?, ?, ?, ?, ?, ?)
	`, string(outcome.Kind), outcome.Message, assessment.Score, assessment.Threshold, string(breakdownJSON), string(contextJSON))
	return err
}

func (s *Store) RecordTurn(ctx context.Context, rec TurnRecord) error {
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO turns (session_id, actor, action, location, event_id, category, score, escalated, outcome, text)
		VALUES (:session_id, :actor, :action, :location, :event_id, :category, :score, :escalated, :outcome, :text)
	`, rec)
	return err
}

// RecentTurns returns up to limit turns, newest first.
func (s *Store) RecentTurns(ctx context.Context, limit int) ([]TurnRecord, error) {
	var turns []TurnRecord
	err := s.db.SelectContext(ctx, &turns,
		"SELECT * FROM turns ORDER BY id DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("select turns: %w", err)
	}
	return turns, nil
}

func (s *Store) RecentEscalations(ctx context.Context, limit int) ([]EscalationLog, error) {
	var out []EscalationLog
	err := s.db.SelectContext(ctx, &out,
		"SELECT * FROM escalations ORDER BY id DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("select escalations: %w", err)
	}
	return out, nil
}

func (s *Store) RecentCompletions(ctx context.Context, limit int) ([]CompletionLog, error) {
	var out []CompletionLog
	err := s.db.SelectContext(ctx, &out,
		"SELECT * FROM completions ORDER BY id DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("select completions: %w", err)
	}
	return out, nil
}

// RateCompletion attaches a 1-5 rating and optional notes to a completion.
func (s *Store) RateCompletion(ctx context.Context, id, rating int, notes string) error {
	if rating < 1 || rating > 5 {
		return errs.Validation("rating", "must be between 1 and 5")
	}
	var notesPtr *string
	if notes != "" {
		notesPtr = &notes
	}

	res, err := s.db.ExecContext(ctx, "UPDATE completions SET rating = ?, notes = ? WHERE id = ?", rating, notesPtr, id)
	if err != nil {
		return fmt.Errorf("failed to rate completion: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to rate completion: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("completion %d not found", id)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
