// Package store provides the dead-letter persistence for post-call tasks
// that could not be processed.
package store

import (
	"context"
	"time"
)

// DeadLetter is a post-call payload that was rejected (queue full) or whose
// processing run failed, kept for postmortem and manual replay.
type DeadLetter struct {
	ID             string
	ConversationID string
	Payload        []byte
	Reason         string
	CreatedAt      time.Time
}

// DeadLetterStore persists dead letters.
type DeadLetterStore interface {
	// Insert records a dead letter.
	Insert(ctx context.Context, dl *DeadLetter) error

	// List returns up to limit dead letters, newest first.
	List(ctx context.Context, limit int) ([]*DeadLetter, error)

	// Delete removes a dead letter by id.
	Delete(ctx context.Context, id string) error

	// Purge removes dead letters older than the cutoff and reports how many
	// were deleted.
	Purge(ctx context.Context, olderThan time.Time) (int64, error)

	// Ping verifies database connectivity.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
