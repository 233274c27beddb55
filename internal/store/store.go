// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"time"

	"github.com/hanasu-app/hanasu/internal/domain"
)

// Repository defines the interface for persisting users, scores and the
// theme catalog.
type Repository interface {
	// GetUser retrieves a user by their user ID.
	GetUser(ctx context.Context, userID string) (*domain.User, error)

	// UpsertUser creates or updates a user record.
	UpsertUser(ctx context.Context, user *domain.User) error

	// UpdateLastSeen updates the last_seen_at timestamp for a user.
	UpdateLastSeen(ctx context.Context, userID string, lastSeen time.Time) error

	// UpsertScore writes the score record for its (user, theme) pair.
	// A record already present for the pair is overwritten.
	UpsertScore(ctx context.Context, rec *domain.ScoreRecord) error

	// GetScore retrieves the score record for a (user, theme) pair.
	GetScore(ctx context.Context, userID, themeID string) (*domain.ScoreRecord, error)

	// ListScores retrieves all score records for a user, newest first.
	ListScores(ctx context.Context, userID string) ([]*domain.ScoreRecord, error)

	// ListPrompts retrieves the full theme catalog.
	ListPrompts(ctx context.Context) ([]*domain.Prompt, error)

	// UpsertPrompts replaces or inserts catalog rows by ID.
	UpsertPrompts(ctx context.Context, prompts []*domain.Prompt) error

	// Ping verifies database connectivity and returns an error if the database is unreachable.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}

// DocID derives the stable document key for a (user, theme) pair. The key
// is what makes repeated saves overwrite rather than accumulate.
func DocID(userID, themeID string) string {
	return docID(userID, themeID)
}
