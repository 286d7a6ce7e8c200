package store

import (
	"context"
	"errors"

	"github.com/zoq/relay/internal/models"
)

// ErrUserNotFound is returned by Directory lookups for unknown ids.
var ErrUserNotFound = errors.New("user not found")

// MessageStore is the durable side of the relay. Messages are append-only;
// the read flag is the only mutable field.
type MessageStore interface {
	// SaveMessage persists a new unread message and returns it with the
	// generated id and timestamp filled in.
	SaveMessage(ctx context.Context, fromUserID, toUserID, content string) (models.Message, error)

	// MessagesBetween returns every message exchanged between the two users,
	// chronological ascending.
	MessagesBetween(ctx context.Context, userID, partnerID string) ([]models.Message, error)

	// MarkRead flips every unread message from fromUserID to toUserID to read.
	MarkRead(ctx context.Context, fromUserID, toUserID string) error

	// MessagesInvolving returns every message sent or received by the user,
	// most recent first. Feeds the conversation aggregation.
	MessagesInvolving(ctx context.Context, userID string) ([]models.Message, error)
}

// Directory is the read-only view of the external user directory, consulted
// only to enrich payloads.
type Directory interface {
	GetUser(ctx context.Context, id string) (*models.User, error)
}

// Store is what the wiring layer opens: both concerns usually live in the
// same database.
type Store interface {
	MessageStore
	Directory
}
