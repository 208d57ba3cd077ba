package logstore

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewWithDB(db), mock
}

func TestEnsureSchemaIsAdditive(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS llm_interactions`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`ALTER TABLE llm_interactions ADD COLUMN IF NOT EXISTS llm_context`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, store.EnsureSchema(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLogInsertsAllFields(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(`INSERT INTO llm_interactions`).
		WithArgs("America/New_York", `{"lat":38.9}`, "formatted context",
			"system prompt", "gpt-x", `{"description":"Sunny!"}`, "Sunny!", "web").
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := store.Log(context.Background(), Record{
		LocationName: "America/New_York",
		WeatherInput: []byte(`{"lat":38.9}`),
		LLMContext:   "formatted context",
		SystemPrompt: "system prompt",
		ModelUsed:    "gpt-x",
		LLMOutput:    []byte(`{"description":"Sunny!"}`),
		Description:  "Sunny!",
		Source:       "web",
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByIDRoundTrip(t *testing.T) {
	store, mock := newMockStore(t)

	created := time.Date(2024, 3, 10, 8, 30, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{
		"id", "created_at", "location_name", "weather_input", "llm_context",
		"system_prompt", "model_used", "llm_output", "description", "source",
	}).AddRow(int64(42), created, "America/New_York", `{"lat":38.9}`, "ctx",
		"prompt", "gpt-x", `{"description":"Sunny!"}`, "Sunny!", "cli")

	mock.ExpectQuery(`FROM llm_interactions WHERE id = \$1`).
		WithArgs(int64(42)).
		WillReturnRows(rows)

	rec, err := store.GetByID(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, int64(42), rec.ID)
	assert.Equal(t, created, rec.Timestamp)
	assert.Equal(t, "America/New_York", rec.LocationName)
	assert.Equal(t, "ctx", rec.LLMContext)
	assert.Equal(t, "gpt-x", rec.ModelUsed)
	assert.JSONEq(t, `{"lat":38.9}`, string(rec.WeatherInput))
	assert.Equal(t, "cli", rec.Source)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByIDMissingRow(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`FROM llm_interactions WHERE id = \$1`).
		WithArgs(int64(999)).
		WillReturnError(sql.ErrNoRows)

	_, err := store.GetByID(context.Background(), 999)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestGetByIDNullColumns(t *testing.T) {
	store, mock := newMockStore(t)

	rows := sqlmock.NewRows([]string{
		"id", "created_at", "location_name", "weather_input", "llm_context",
		"system_prompt", "model_used", "llm_output", "description", "source",
	}).AddRow(int64(7), time.Now(), nil, nil, nil, nil, nil, nil, nil, nil)

	mock.ExpectQuery(`FROM llm_interactions WHERE id = \$1`).
		WithArgs(int64(7)).
		WillReturnRows(rows)

	rec, err := store.GetByID(context.Background(), 7)
	require.NoError(t, err)
	assert.Empty(t, rec.LocationName)
	assert.Empty(t, rec.LLMContext)
	assert.Empty(t, string(rec.LLMOutput))
}
