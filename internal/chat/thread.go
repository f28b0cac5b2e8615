package chat

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"meme-service/internal/models"
	"meme-service/internal/observability"
)

// ThreadSync maintains the ordered message list of a single conversation and
// marks incoming messages read. One instance serves one open chat view; it is
// discarded on view teardown.
type ThreadSync struct {
	self   string
	key    string
	source MessageSource
	marker ReadMarker
	log    *zap.Logger
	marked map[string]struct{}
}

// NewThreadSync builds a ThreadSync for one conversation from self's
// perspective.
func NewThreadSync(self, key string, source MessageSource, marker ReadMarker, log *zap.Logger) *ThreadSync {
	return &ThreadSync{
		self:   self,
		key:    key,
		source: source,
		marker: marker,
		log:    log,
		marked: make(map[string]struct{}),
	}
}

// Run consumes conversation snapshots until ctx is cancelled, emitting the
// full ordered message list per snapshot and marking unread incoming messages
// read. The ordered-query fallback mirrors the inbox aggregator.
func (t *ThreadSync) Run(ctx context.Context, emit func(models.ThreadEvent)) error {
	stream, degraded, err := openWithFallback(func(ordered bool) (Stream, error) {
		return t.source.WatchConversation(ctx, t.key, ordered)
	})
	if err != nil {
		t.log.Warn("conversation subscription failed", zap.String("conversation_key", t.key), zap.Error(err))
		emit(models.ThreadEvent{Type: "thread", ConversationKey: t.key, Messages: []models.Message{}, Degraded: true})
		return err
	}
	if degraded {
		observability.IncSnapshotFallback("thread")
	}
	// Closure so the fallback reopen below swaps the stream being closed.
	defer func() { stream.Close() }()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case snap, ok := <-stream.Snapshots():
			if !ok {
				err := stream.Err()
				if err == nil {
					return nil
				}
				if degraded {
					return err
				}
				observability.IncSnapshotFallback("thread")
				t.log.Warn("conversation stream degraded to unordered query", zap.String("conversation_key", t.key), zap.Error(err))
				next, ferr := t.source.WatchConversation(ctx, t.key, false)
				if ferr != nil {
					return err
				}
				stream.Close()
				stream = next
				degraded = true
				continue
			}
			msgs := OrderThread(snap.Messages, snap.Ordered)
			observability.ObserveSnapshotFold("thread", len(msgs))
			emit(models.ThreadEvent{Type: "thread", ConversationKey: t.key, Messages: msgs, Degraded: degraded})
			t.markRead(ctx, msgs)
		}
	}
}

// markRead flips read on every unread message addressed to self, at most once
// per message for this session. Failures are logged and forgotten: the
// message simply stays unread and a later snapshot gets another chance.
func (t *ThreadSync) markRead(ctx context.Context, msgs []models.Message) {
	for _, msg := range msgs {
		if msg.ReceiverID != t.self || msg.Read {
			continue
		}
		if _, done := t.marked[msg.ID]; done {
			continue
		}
		t.marked[msg.ID] = struct{}{}
		if err := t.marker.MarkRead(ctx, msg.ID); err != nil {
			delete(t.marked, msg.ID)
			observability.IncReadMark("error")
			t.log.Warn("mark read failed", zap.String("message_id", msg.ID), zap.Error(err))
			continue
		}
		observability.IncReadMark("ok")
	}
}

// OrderThread deduplicates a thread snapshot and ensures ascending
// (created_at, id) order. Snapshots the store already ordered are only
// deduplicated; the final order is identical either way.
func OrderThread(msgs []models.Message, ordered bool) []models.Message {
	seen := make(map[string]struct{}, len(msgs))
	out := make([]models.Message, 0, len(msgs))
	for _, msg := range msgs {
		if msg.ID != "" {
			if _, dup := seen[msg.ID]; dup {
				continue
			}
			seen[msg.ID] = struct{}{}
		}
		out = append(out, msg)
	}
	if !ordered {
		sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	}
	return out
}
