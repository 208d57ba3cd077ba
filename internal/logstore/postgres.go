// Package logstore persists LLM interactions for audit and replay. The log
// is append-only: records are immutable once written and schema changes are
// additive.
package logstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// ErrNotFound is returned when no interaction exists for the requested id.
var ErrNotFound = errors.New("no interaction found for id")

// Record is one interaction to append.
type Record struct {
	LocationName string
	WeatherInput []byte // raw weather payload as fetched
	LLMContext   string // the exact formatted context sent to the model
	SystemPrompt string
	ModelUsed    string
	LLMOutput    []byte // raw response plus structured result
	Description  string
	Source       string // e.g. "web", "cli", "replay"
}

// Interaction is one stored row.
type Interaction struct {
	ID           int64
	Timestamp    time.Time
	LocationName string
	WeatherInput []byte
	LLMContext   string
	SystemPrompt string
	ModelUsed    string
	LLMOutput    []byte
	Description  string
	Source       string
}

// Store writes interaction records to Postgres.
type Store struct {
	db *sql.DB
}

// Open connects to Postgres using the given DSN.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	return &Store{db: db}, nil
}

// NewWithDB wraps an existing connection, mainly for tests.
func NewWithDB(db *sql.DB) *Store {
	return &Store{db: db}
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

const createTable = `
CREATE TABLE IF NOT EXISTS llm_interactions (
	id BIGSERIAL PRIMARY KEY,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	location_name TEXT,
	weather_input TEXT,
	llm_context TEXT,
	system_prompt TEXT,
	model_used TEXT,
	llm_output TEXT,
	description TEXT,
	source TEXT
)`

// EnsureSchema creates the table if needed and adds columns introduced after
// the table first shipped. It is idempotent and never drops anything.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, createTable); err != nil {
		return fmt.Errorf("create llm_interactions: %w", err)
	}
	// Databases created before llm_context existed get the column added.
	if _, err := s.db.ExecContext(ctx,
		`ALTER TABLE llm_interactions ADD COLUMN IF NOT EXISTS llm_context TEXT`); err != nil {
		return fmt.Errorf("add llm_context column: %w", err)
	}
	return nil
}

// Log appends one interaction. The database assigns the id and timestamp.
func (s *Store) Log(ctx context.Context, rec Record) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO llm_interactions (
			location_name, weather_input, llm_context,
			system_prompt, model_used, llm_output,
			description, source
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		rec.LocationName, string(rec.WeatherInput), rec.LLMContext,
		rec.SystemPrompt, rec.ModelUsed, string(rec.LLMOutput),
		rec.Description, rec.Source,
	)
	if err != nil {
		return fmt.Errorf("insert interaction: %w", err)
	}
	return nil
}

// GetByID fetches one interaction for replay.
func (s *Store) GetByID(ctx context.Context, id int64) (*Interaction, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, created_at, location_name, weather_input, llm_context,
		       system_prompt, model_used, llm_output, description, source
		FROM llm_interactions WHERE id = $1`, id)

	var (
		rec          Interaction
		weatherInput sql.NullString
		llmContext   sql.NullString
		llmOutput    sql.NullString
		location     sql.NullString
		prompt       sql.NullString
		model        sql.NullString
		description  sql.NullString
		source       sql.NullString
	)
	err := row.Scan(&rec.ID, &rec.Timestamp, &location, &weatherInput, &llmContext,
		&prompt, &model, &llmOutput, &description, &source)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("fetch interaction %d: %w", id, err)
	}

	rec.LocationName = location.String
	rec.WeatherInput = []byte(weatherInput.String)
	rec.LLMContext = llmContext.String
	rec.SystemPrompt = prompt.String
	rec.ModelUsed = model.String
	rec.LLMOutput = []byte(llmOutput.String)
	rec.Description = description.String
	rec.Source = source.String
	return &rec, nil
}
