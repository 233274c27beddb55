package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/hanasu-app/hanasu/internal/domain"
	"github.com/hanasu-app/hanasu/internal/shared"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// Open database with WAL mode for better concurrency.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS users (
		user_id TEXT PRIMARY KEY,
		username TEXT NOT NULL,
		course_id TEXT NOT NULL DEFAULT 'free',
		last_seen_at INTEGER NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_users_last_seen ON users(last_seen_at);

	CREATE TABLE IF NOT EXISTS scores (
		doc_id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		theme_id TEXT NOT NULL,
		level TEXT,
		type TEXT,
		sub TEXT,
		display_id TEXT,
		score INTEGER NOT NULL,
		is_pass INTEGER NOT NULL,
		duration_s INTEGER NOT NULL,
		char_count INTEGER NOT NULL,
		transcript_raw TEXT,
		transcript_hira TEXT,
		diagnostics_json TEXT,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_scores_user ON scores(user_id, updated_at);

	CREATE TABLE IF NOT EXISTS themes (
		id TEXT PRIMARY KEY,
		level TEXT NOT NULL,
		type TEXT,
		sub TEXT,
		display_id TEXT,
		question TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_themes_level_type ON themes(level, type);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// docID is the first 32 hex chars of the (user, theme) digest. One live
// score record exists per doc_id.
func docID(userID, themeID string) string {
	sum := sha256.Sum256([]byte(userID + "::" + themeID))
	return hex.EncodeToString(sum[:])[:32]
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// GetUser retrieves a user by their user ID.
func (s *SQLiteStore) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	query := `
		SELECT user_id, username, course_id, last_seen_at, created_at, updated_at
		FROM users WHERE user_id = ?`

	row := s.db.QueryRowContext(ctx, query, userID)

	var user domain.User
	var lastSeen, createdAt, updatedAt int64

	err := row.Scan(
		&user.UserID, &user.Username, &user.CourseID,
		&lastSeen, &createdAt, &updatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan user row: %w", err)
	}

	user.LastSeenAt = time.Unix(lastSeen, 0)
	user.CreatedAt = time.Unix(createdAt, 0)
	user.UpdatedAt = time.Unix(updatedAt, 0)

	return &user, nil
}

// UpsertUser creates or updates a user record.
func (s *SQLiteStore) UpsertUser(ctx context.Context, user *domain.User) error {
	query := `
	INSERT INTO users (user_id, username, course_id, last_seen_at, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(user_id) DO UPDATE SET
		username = excluded.username,
		course_id = excluded.course_id,
		last_seen_at = excluded.last_seen_at,
		updated_at = excluded.updated_at`

	_, err := s.db.ExecContext(ctx, query,
		user.UserID, user.Username, user.CourseID,
		user.LastSeenAt.Unix(), user.CreatedAt.Unix(), user.UpdatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}

// UpdateLastSeen updates the last_seen_at timestamp for a user.
func (s *SQLiteStore) UpdateLastSeen(ctx context.Context, userID string, lastSeen time.Time) error {
	query := `UPDATE users SET last_seen_at = ?, updated_at = ? WHERE user_id = ?`
	result, err := s.db.ExecContext(ctx, query, lastSeen.Unix(), time.Now().Unix(), userID)
	if err != nil {
		return fmt.Errorf("update last_seen: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		slog.Warn("UpdateLastSeen affected 0 rows", "user_id", userID)
	}

	return nil
}

// UpsertScore writes the score record for its (user, theme) pair.
// Retries with exponential backoff on SQLite concurrency errors.
func (s *SQLiteStore) UpsertScore(ctx context.Context, rec *domain.ScoreRecord) error {
	maxRetries := 3
	baseDelay := 100 * time.Millisecond

	for i := 0; i < maxRetries; i++ {
		err := s.upsertScoreOnce(ctx, rec)
		if err == nil {
			return nil
		}

		if shared.IsSQLiteConflictError(err) && i < maxRetries-1 {
			delay := baseDelay * time.Duration(1<<i)
			slog.Debug("UpsertScore hit SQLITE_BUSY, retrying",
				"doc_id", rec.DocID,
				"attempt", i+1,
				"delay", delay)
			time.Sleep(delay)
			continue
		}

		return fmt.Errorf("upsert score %s after %d attempts: %w", rec.DocID, i+1, err)
	}

	return nil
}

func (s *SQLiteStore) upsertScoreOnce(ctx context.Context, rec *domain.ScoreRecord) error {
	if rec.DocID == "" {
		rec.DocID = docID(rec.UserID, rec.ThemeID)
	}
	now := time.Now()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now

	query := `
	INSERT INTO scores (
		doc_id, user_id, theme_id, level, type, sub, display_id,
		score, is_pass, duration_s, char_count,
		transcript_raw, transcript_hira, diagnostics_json,
		created_at, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(doc_id) DO UPDATE SET
		level = excluded.level,
		type = excluded.type,
		sub = excluded.sub,
		display_id = excluded.display_id,
		score = excluded.score,
		is_pass = excluded.is_pass,
		duration_s = excluded.duration_s,
		char_count = excluded.char_count,
		transcript_raw = excluded.transcript_raw,
		transcript_hira = excluded.transcript_hira,
		diagnostics_json = excluded.diagnostics_json,
		updated_at = excluded.updated_at`

	_, err := s.db.ExecContext(ctx, query,
		rec.DocID, rec.UserID, rec.ThemeID, rec.Level, rec.Type, rec.Sub, rec.DisplayID,
		rec.Score, rec.IsPass, rec.DurationSeconds, rec.CharCount,
		rec.TranscriptRaw, rec.TranscriptHira, rec.Diagnostics,
		rec.CreatedAt.Unix(), rec.UpdatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("upsert score: %w", err)
	}
	return nil
}

const scoreColumns = `doc_id, user_id, theme_id, level, type, sub, display_id,
       score, is_pass, duration_s, char_count,
       transcript_raw, transcript_hira, diagnostics_json,
       created_at, updated_at`

// GetScore retrieves the score record for a (user, theme) pair.
func (s *SQLiteStore) GetScore(ctx context.Context, userID, themeID string) (*domain.ScoreRecord, error) {
	query := `SELECT ` + scoreColumns + ` FROM scores WHERE doc_id = ?`
	row := s.db.QueryRowContext(ctx, query, docID(userID, themeID))

	rec, err := scanScore(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan score row: %w", err)
	}
	return rec, nil
}

// ListScores retrieves all score records for a user, newest first.
func (s *SQLiteStore) ListScores(ctx context.Context, userID string) ([]*domain.ScoreRecord, error) {
	query := `SELECT ` + scoreColumns + ` FROM scores WHERE user_id = ? ORDER BY updated_at DESC`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("query scores: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close score rows", "error", closeErr)
		}
	}()

	var recs []*domain.ScoreRecord
	for rows.Next() {
		rec, err := scanScore(rows)
		if err != nil {
			return nil, fmt.Errorf("scan score row: %w", err)
		}
		recs = append(recs, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate scores: %w", err)
	}

	return recs, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanScore(row rowScanner) (*domain.ScoreRecord, error) {
	var rec domain.ScoreRecord
	var level, ptype, sub, displayID, raw, hira, diag sql.NullString
	var createdAt, updatedAt int64

	err := row.Scan(
		&rec.DocID, &rec.UserID, &rec.ThemeID, &level, &ptype, &sub, &displayID,
		&rec.Score, &rec.IsPass, &rec.DurationSeconds, &rec.CharCount,
		&raw, &hira, &diag,
		&createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	rec.Level = level.String
	rec.Type = ptype.String
	rec.Sub = sub.String
	rec.DisplayID = displayID.String
	rec.TranscriptRaw = raw.String
	rec.TranscriptHira = hira.String
	rec.Diagnostics = diag.String
	rec.CreatedAt = time.Unix(createdAt, 0)
	rec.UpdatedAt = time.Unix(updatedAt, 0)

	return &rec, nil
}

// ListPrompts retrieves the full theme catalog.
func (s *SQLiteStore) ListPrompts(ctx context.Context) ([]*domain.Prompt, error) {
	query := `SELECT id, level, type, sub, display_id, question FROM themes ORDER BY level, sub, id`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query themes: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close theme rows", "error", closeErr)
		}
	}()

	var prompts []*domain.Prompt
	for rows.Next() {
		var p domain.Prompt
		var ptype, sub, displayID sql.NullString
		if err := rows.Scan(&p.ID, &p.Level, &ptype, &sub, &displayID, &p.Text); err != nil {
			return nil, fmt.Errorf("scan theme row: %w", err)
		}
		p.Type = ptype.String
		p.Sub = sub.String
		p.DisplayID = displayID.String
		prompts = append(prompts, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate themes: %w", err)
	}

	return prompts, nil
}

// UpsertPrompts replaces or inserts catalog rows by ID inside one
// transaction.
func (s *SQLiteStore) UpsertPrompts(ctx context.Context, prompts []*domain.Prompt) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin theme upsert: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	query := `
	INSERT INTO themes (id, level, type, sub, display_id, question)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		level = excluded.level,
		type = excluded.type,
		sub = excluded.sub,
		display_id = excluded.display_id,
		question = excluded.question`

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("prepare theme upsert: %w", err)
	}
	defer func() {
		if closeErr := stmt.Close(); closeErr != nil {
			slog.Warn("failed to close theme upsert statement", "error", closeErr)
		}
	}()

	for _, p := range prompts {
		if _, err := stmt.ExecContext(ctx, p.Key(), p.Level, p.Type, p.Sub, p.DisplayID, p.Text); err != nil {
			return fmt.Errorf("upsert theme %s: %w", p.Key(), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit theme upsert: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}
