package chat

import (
	"context"

	"meme-service/internal/models"
)

// Snapshot is one full delivery of a live query's current result set. The
// store redelivers the entire set on every underlying change; it never sends
// incremental diffs. Identical snapshots may be delivered more than once.
type Snapshot struct {
	Messages []models.Message
	// Ordered reports whether the store applied the requested ordering. When
	// false the consumer sorts client-side.
	Ordered bool
}

// Stream is a live subscription over the message collection. Snapshots is
// closed after Close, or after an unrecoverable query error; Err reports the
// latter. Close is synchronous: no snapshot is delivered after it returns.
type Stream interface {
	Snapshots() <-chan Snapshot
	Err() error
	Close()
}

// MessageSource opens live subscriptions. An ordered subscription may fail
// where an unordered one succeeds (the ordered query needs an index); callers
// fall back to ordered=false and sort themselves.
type MessageSource interface {
	// WatchInbox covers every message where userID is sender or receiver.
	WatchInbox(ctx context.Context, userID string, ordered bool) (Stream, error)
	// WatchConversation covers a single conversation key.
	WatchConversation(ctx context.Context, key string, ordered bool) (Stream, error)
}

// MessageWriter appends messages. The store assigns id and created_at.
type MessageWriter interface {
	Create(ctx context.Context, msg models.Message) (models.Message, error)
}

// ReadMarker flips a message's read flag to true. Marking an already-read
// message is a no-op, not an error.
type ReadMarker interface {
	MarkRead(ctx context.Context, messageID string) error
}

// Directory resolves user ids to display profiles.
type Directory interface {
	GetProfile(ctx context.Context, userID string) (models.Profile, error)
}

// openWithFallback tries the ordered subscription first and degrades to the
// unordered one on error. The second return value reports the degraded mode.
func openWithFallback(open func(ordered bool) (Stream, error)) (Stream, bool, error) {
	stream, err := open(true)
	if err == nil {
		return stream, false, nil
	}
	stream, ferr := open(false)
	if ferr != nil {
		return nil, true, ferr
	}
	return stream, true, nil
}
