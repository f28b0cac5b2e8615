package chat

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"meme-service/internal/models"
	"meme-service/internal/observability"
)

// Aggregator maintains the conversation summaries of one user across inbox
// snapshots. Each snapshot is diffed against the carried message index and
// only the touched conversations are refolded; the emitted state is identical
// to a from-scratch fold of the same set. It owns a profile cache for the
// lifetime of the subscription; profiles are not expected to change
// mid-session and staleness is accepted.
type Aggregator struct {
	self     string
	source   MessageSource
	users    Directory
	log      *zap.Logger
	profiles map[string]models.Profile

	index     map[string]models.Message
	byConv    map[string]map[string]struct{}
	summaries map[string]models.ConversationSummary
}

// NewAggregator builds an Aggregator for the given user.
func NewAggregator(self string, source MessageSource, users Directory, log *zap.Logger) *Aggregator {
	return &Aggregator{
		self:      self,
		source:    source,
		users:     users,
		log:       log,
		profiles:  make(map[string]models.Profile),
		index:     make(map[string]models.Message),
		byConv:    make(map[string]map[string]struct{}),
		summaries: make(map[string]models.ConversationSummary),
	}
}

// Run consumes snapshots until ctx is cancelled or the stream fails beyond
// recovery, emitting a full conversation list per snapshot. A failed ordered
// subscription degrades to an unordered one; if that also fails an empty
// degraded event is emitted so the view renders instead of crashing.
func (a *Aggregator) Run(ctx context.Context, emit func(models.ConversationEvent)) error {
	stream, degraded, err := openWithFallback(func(ordered bool) (Stream, error) {
		return a.source.WatchInbox(ctx, a.self, ordered)
	})
	if err != nil {
		a.log.Warn("inbox subscription failed", zap.String("user_id", a.self), zap.Error(err))
		emit(models.ConversationEvent{Type: "conversations", Conversations: []models.ConversationSummary{}, Degraded: true})
		return err
	}
	if degraded {
		observability.IncSnapshotFallback("inbox")
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
				// Ordered query broke mid-stream; reopen without ordering. The
				// carried index stays valid because every snapshot is a full set.
				observability.IncSnapshotFallback("inbox")
				a.log.Warn("inbox stream degraded to unordered query", zap.String("user_id", a.self), zap.Error(err))
				next, ferr := a.source.WatchInbox(ctx, a.self, false)
				if ferr != nil {
					return err
				}
				stream.Close()
				stream = next
				degraded = true
				continue
			}
			observability.ObserveSnapshotFold("inbox", len(snap.Messages))
			summaries, totalUnread := a.apply(ctx, snap.Messages)
			emit(models.ConversationEvent{
				Type:          "conversations",
				Conversations: summaries,
				TotalUnread:   totalUnread,
				Degraded:      degraded,
			})
		}
	}
}

// apply diffs a snapshot against the carried index, refolds the touched
// conversations, and returns the full summary list sorted by most recent
// activity. Duplicate ids within a snapshot count once and a redelivered
// identical snapshot touches nothing.
func (a *Aggregator) apply(ctx context.Context, msgs []models.Message) ([]models.ConversationSummary, int) {
	incoming := make(map[string]models.Message, len(msgs))
	for _, msg := range msgs {
		if msg.ID == "" {
			continue
		}
		if _, dup := incoming[msg.ID]; dup {
			continue
		}
		incoming[msg.ID] = msg
	}

	touched := make(map[string]struct{})
	for id, msg := range incoming {
		old, known := a.index[id]
		if known && old == msg {
			continue
		}
		a.index[id] = msg
		members, ok := a.byConv[msg.ConversationKey]
		if !ok {
			members = make(map[string]struct{})
			a.byConv[msg.ConversationKey] = members
		}
		members[id] = struct{}{}
		touched[msg.ConversationKey] = struct{}{}
	}
	for id, msg := range a.index {
		if _, present := incoming[id]; present {
			continue
		}
		delete(a.index, id)
		delete(a.byConv[msg.ConversationKey], id)
		touched[msg.ConversationKey] = struct{}{}
	}

	for key := range touched {
		a.refold(key)
	}

	out := make([]models.ConversationSummary, 0, len(a.summaries))
	totalUnread := 0
	for _, summary := range a.summaries {
		summary.Counterparty = a.profile(ctx, summary.Counterparty.ID)
		out = append(out, summary)
		totalUnread += summary.UnreadCount
	}
	sort.Slice(out, func(i, j int) bool {
		return out[j].LastMessage.Before(*out[i].LastMessage)
	})
	return out, totalUnread
}

// refold recomputes one conversation's summary from its current members.
func (a *Aggregator) refold(key string) {
	members := a.byConv[key]
	if len(members) == 0 {
		delete(a.byConv, key)
		delete(a.summaries, key)
		return
	}
	other, ok := Counterparty(key, a.self)
	if !ok {
		delete(a.summaries, key)
		return
	}

	summary := models.ConversationSummary{
		ConversationKey: key,
		Counterparty:    models.Profile{ID: other},
	}
	for id := range members {
		msg := a.index[id]
		if summary.LastMessage == nil || summary.LastMessage.Before(msg) {
			last := msg
			summary.LastMessage = &last
		}
		if msg.ReceiverID == a.self && !msg.Read {
			summary.UnreadCount++
		}
	}
	a.summaries[key] = summary
}

func (a *Aggregator) profile(ctx context.Context, id string) models.Profile {
	if p, ok := a.profiles[id]; ok {
		return p
	}
	p, err := a.users.GetProfile(ctx, id)
	if err != nil {
		a.log.Warn("counterparty lookup failed", zap.String("user_id", id), zap.Error(err))
		p = models.UnknownProfile(id)
	}
	a.profiles[id] = p
	return p
}

// FoldConversations folds a message set into one summary per conversation
// key, sorted by most recent activity descending. The fold is independent of
// input order and counts duplicate ids once, so redelivered snapshots cannot
// double-count. Counterparty profiles are left unresolved (id only).
func FoldConversations(self string, msgs []models.Message) []models.ConversationSummary {
	seen := make(map[string]struct{}, len(msgs))
	byKey := make(map[string]*models.ConversationSummary)
	for i := range msgs {
		msg := msgs[i]
		if msg.ID != "" {
			if _, dup := seen[msg.ID]; dup {
				continue
			}
			seen[msg.ID] = struct{}{}
		}
		other, ok := Counterparty(msg.ConversationKey, self)
		if !ok {
			continue
		}
		summary := byKey[msg.ConversationKey]
		if summary == nil {
			summary = &models.ConversationSummary{
				ConversationKey: msg.ConversationKey,
				Counterparty:    models.Profile{ID: other},
			}
			byKey[msg.ConversationKey] = summary
		}
		if summary.LastMessage == nil || summary.LastMessage.Before(msg) {
			last := msg
			summary.LastMessage = &last
		}
		if msg.ReceiverID == self && !msg.Read {
			summary.UnreadCount++
		}
	}

	out := make([]models.ConversationSummary, 0, len(byKey))
	for _, summary := range byKey {
		out = append(out, *summary)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[j].LastMessage.Before(*out[i].LastMessage)
	})
	return out
}

// CountUnread counts messages addressed to self that are still unread,
// ignoring duplicate ids.
func CountUnread(self string, msgs []models.Message) int {
	seen := make(map[string]struct{}, len(msgs))
	count := 0
	for _, msg := range msgs {
		if msg.ID != "" {
			if _, dup := seen[msg.ID]; dup {
				continue
			}
			seen[msg.ID] = struct{}{}
		}
		if msg.ReceiverID == self && !msg.Read {
			count++
		}
	}
	return count
}
