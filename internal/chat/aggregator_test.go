package chat

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"meme-service/internal/models"
)

var errStreamBroken = errors.New("stream broken")

type fakeStream struct {
	ch  chan Snapshot
	err error
}

func (s *fakeStream) Snapshots() <-chan Snapshot { return s.ch }
func (s *fakeStream) Err() error                 { return s.err }
func (s *fakeStream) Close()                     {}

// newFakeStream buffers the given snapshots and closes the channel, so a
// consumer drains them and then sees a normal end of stream.
func newFakeStream(snaps ...Snapshot) *fakeStream {
	s := &fakeStream{ch: make(chan Snapshot, len(snaps))}
	for _, snap := range snaps {
		s.ch <- snap
	}
	close(s.ch)
	return s
}

type fakeSource struct {
	watchInbox        func(ordered bool) (Stream, error)
	watchConversation func(ordered bool) (Stream, error)
}

func (f *fakeSource) WatchInbox(ctx context.Context, userID string, ordered bool) (Stream, error) {
	return f.watchInbox(ordered)
}

func (f *fakeSource) WatchConversation(ctx context.Context, key string, ordered bool) (Stream, error) {
	return f.watchConversation(ordered)
}

type fakeDirectory struct {
	profiles map[string]models.Profile
	err      error
	calls    int
}

func (d *fakeDirectory) GetProfile(ctx context.Context, userID string) (models.Profile, error) {
	d.calls++
	if p, ok := d.profiles[userID]; ok {
		return p, nil
	}
	if d.err != nil {
		return models.Profile{}, d.err
	}
	return models.Profile{}, errors.New("profile not found")
}

var baseTime = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func msg(id, sender, receiver string, minutes int, read bool) models.Message {
	return models.Message{
		ID:              id,
		ConversationKey: ConversationKey(sender, receiver),
		SenderID:        sender,
		ReceiverID:      receiver,
		Body:            "hello",
		CreatedAt:       baseTime.Add(time.Duration(minutes) * time.Minute),
		Read:            read,
	}
}

func TestFoldConversationsBuildsSummaries(t *testing.T) {
	msgs := []models.Message{
		msg("m1", "bob", "alice", 0, true),
		msg("m2", "alice", "bob", 1, false),
		msg("m3", "carol", "alice", 2, false),
		msg("m4", "carol", "alice", 3, false),
	}

	summaries := FoldConversations("alice", msgs)
	require.Len(t, summaries, 2)

	// Most recent activity first.
	assert.Equal(t, ConversationKey("alice", "carol"), summaries[0].ConversationKey)
	assert.Equal(t, "carol", summaries[0].Counterparty.ID)
	assert.Equal(t, "m4", summaries[0].LastMessage.ID)
	assert.Equal(t, 2, summaries[0].UnreadCount)

	assert.Equal(t, ConversationKey("alice", "bob"), summaries[1].ConversationKey)
	assert.Equal(t, "m2", summaries[1].LastMessage.ID)
	// m2 was sent by alice, m1 is already read.
	assert.Equal(t, 0, summaries[1].UnreadCount)
}

func TestFoldConversationsIsOrderIndependent(t *testing.T) {
	msgs := []models.Message{
		msg("m1", "bob", "alice", 0, false),
		msg("m2", "alice", "bob", 1, false),
		msg("m3", "carol", "alice", 2, false),
	}
	reversed := []models.Message{msgs[2], msgs[1], msgs[0]}

	assert.Equal(t, FoldConversations("alice", msgs), FoldConversations("alice", reversed))
}

func TestFoldConversationsCountsDuplicateIDsOnce(t *testing.T) {
	unread := msg("m1", "bob", "alice", 0, false)
	summaries := FoldConversations("alice", []models.Message{unread, unread, unread})

	require.Len(t, summaries, 1)
	assert.Equal(t, 1, summaries[0].UnreadCount)
}

func TestFoldConversationsAttachmentReplyScenario(t *testing.T) {
	hi := msg("m1", "alice", "bob", 0, false)
	reply := models.Message{
		ID:              "m2",
		ConversationKey: ConversationKey("alice", "bob"),
		SenderID:        "bob",
		ReceiverID:      "alice",
		Attachment:      "meme-1",
		CreatedAt:       baseTime.Add(time.Minute),
	}

	summaries := FoldConversations("alice", []models.Message{hi, reply})
	require.Len(t, summaries, 1)
	assert.Equal(t, "bob", summaries[0].Counterparty.ID)
	assert.Equal(t, 1, summaries[0].UnreadCount)
	assert.Equal(t, "m2", summaries[0].LastMessage.ID)
	assert.Equal(t, "meme-1", summaries[0].LastMessage.Attachment)

	// After the thread view marks the reply read, the badge clears.
	read := reply
	read.Read = true
	after := FoldConversations("alice", []models.Message{hi, read})
	require.Len(t, after, 1)
	assert.Equal(t, 0, after[0].UnreadCount)
}

func TestCountUnread(t *testing.T) {
	msgs := []models.Message{
		msg("m1", "bob", "alice", 0, false),
		msg("m1", "bob", "alice", 0, false),
		msg("m2", "bob", "alice", 1, true),
		msg("m3", "alice", "bob", 2, false),
		msg("m4", "carol", "alice", 3, false),
	}

	assert.Equal(t, 2, CountUnread("alice", msgs))
	assert.Equal(t, 1, CountUnread("bob", msgs))
}

func TestAggregatorEmitsOneEventPerSnapshot(t *testing.T) {
	first := Snapshot{Messages: []models.Message{msg("m1", "bob", "alice", 0, false)}, Ordered: true}
	second := Snapshot{Messages: []models.Message{
		msg("m1", "bob", "alice", 0, false),
		msg("m2", "bob", "alice", 1, false),
	}, Ordered: true}

	source := &fakeSource{watchInbox: func(ordered bool) (Stream, error) {
		require.True(t, ordered)
		return newFakeStream(first, second), nil
	}}
	directory := &fakeDirectory{profiles: map[string]models.Profile{
		"bob": {ID: "bob", DisplayName: "Bob"},
	}}

	var events []models.ConversationEvent
	agg := NewAggregator("alice", source, directory, zap.NewNop())
	err := agg.Run(context.Background(), func(ev models.ConversationEvent) { events = append(events, ev) })

	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, 1, events[0].TotalUnread)
	assert.Equal(t, 2, events[1].TotalUnread)
	assert.Equal(t, "Bob", events[1].Conversations[0].Counterparty.DisplayName)
	assert.False(t, events[1].Degraded)
	// Profile resolved once, then served from the session cache.
	assert.Equal(t, 1, directory.calls)
}

func TestAggregatorFallsBackToUnorderedOpen(t *testing.T) {
	snap := Snapshot{Messages: []models.Message{msg("m1", "bob", "alice", 0, false)}}
	source := &fakeSource{watchInbox: func(ordered bool) (Stream, error) {
		if ordered {
			return nil, errStreamBroken
		}
		return newFakeStream(snap), nil
	}}
	directory := &fakeDirectory{profiles: map[string]models.Profile{"bob": {ID: "bob"}}}

	var events []models.ConversationEvent
	agg := NewAggregator("alice", source, directory, zap.NewNop())
	err := agg.Run(context.Background(), func(ev models.ConversationEvent) { events = append(events, ev) })

	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.True(t, events[0].Degraded)
}

func TestAggregatorEmitsEmptyDegradedEventWhenBothOpensFail(t *testing.T) {
	source := &fakeSource{watchInbox: func(ordered bool) (Stream, error) {
		return nil, errStreamBroken
	}}

	var events []models.ConversationEvent
	agg := NewAggregator("alice", source, &fakeDirectory{}, zap.NewNop())
	err := agg.Run(context.Background(), func(ev models.ConversationEvent) { events = append(events, ev) })

	require.Error(t, err)
	require.Len(t, events, 1)
	assert.True(t, events[0].Degraded)
	assert.Empty(t, events[0].Conversations)
}

func TestAggregatorReopensUnorderedAfterMidStreamFailure(t *testing.T) {
	snap := Snapshot{Messages: []models.Message{msg("m1", "bob", "alice", 0, false)}}

	broken := &fakeStream{ch: make(chan Snapshot, 1), err: errStreamBroken}
	broken.ch <- snap
	close(broken.ch)

	source := &fakeSource{watchInbox: func(ordered bool) (Stream, error) {
		if ordered {
			return broken, nil
		}
		return newFakeStream(snap), nil
	}}
	directory := &fakeDirectory{profiles: map[string]models.Profile{"bob": {ID: "bob"}}}

	var events []models.ConversationEvent
	agg := NewAggregator("alice", source, directory, zap.NewNop())
	err := agg.Run(context.Background(), func(ev models.ConversationEvent) { events = append(events, ev) })

	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.False(t, events[0].Degraded)
	assert.True(t, events[1].Degraded)
}

func TestAggregatorAppliesReadFlagChanges(t *testing.T) {
	unread := msg("m1", "bob", "alice", 0, false)
	read := unread
	read.Read = true

	source := &fakeSource{watchInbox: func(ordered bool) (Stream, error) {
		return newFakeStream(
			Snapshot{Messages: []models.Message{unread}, Ordered: true},
			Snapshot{Messages: []models.Message{read}, Ordered: true},
		), nil
	}}
	directory := &fakeDirectory{profiles: map[string]models.Profile{"bob": {ID: "bob"}}}

	var events []models.ConversationEvent
	agg := NewAggregator("alice", source, directory, zap.NewNop())
	err := agg.Run(context.Background(), func(ev models.ConversationEvent) { events = append(events, ev) })

	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, 1, events[0].TotalUnread)
	assert.Equal(t, 0, events[1].TotalUnread)
	assert.True(t, events[1].Conversations[0].LastMessage.Read)
}

func TestAggregatorDropsConversationsAbsentFromSnapshot(t *testing.T) {
	bob := msg("m1", "bob", "alice", 0, false)
	carol := msg("m2", "carol", "alice", 1, false)

	source := &fakeSource{watchInbox: func(ordered bool) (Stream, error) {
		return newFakeStream(
			Snapshot{Messages: []models.Message{bob, carol}, Ordered: true},
			Snapshot{Messages: []models.Message{carol}, Ordered: true},
		), nil
	}}
	directory := &fakeDirectory{profiles: map[string]models.Profile{
		"bob":   {ID: "bob"},
		"carol": {ID: "carol"},
	}}

	var events []models.ConversationEvent
	agg := NewAggregator("alice", source, directory, zap.NewNop())
	err := agg.Run(context.Background(), func(ev models.ConversationEvent) { events = append(events, ev) })

	require.NoError(t, err)
	require.Len(t, events, 2)
	require.Len(t, events[0].Conversations, 2)
	require.Len(t, events[1].Conversations, 1)
	assert.Equal(t, "carol", events[1].Conversations[0].Counterparty.ID)
	assert.Equal(t, 1, events[1].TotalUnread)
}

func TestAggregatorMatchesFromScratchFold(t *testing.T) {
	msgs := []models.Message{
		msg("m1", "bob", "alice", 0, true),
		msg("m2", "alice", "bob", 1, false),
		msg("m3", "carol", "alice", 2, false),
		msg("m4", "carol", "alice", 3, false),
	}

	// Deliver the set in two stages; the incremental state must converge to
	// the same result as folding the final set from scratch.
	source := &fakeSource{watchInbox: func(ordered bool) (Stream, error) {
		return newFakeStream(
			Snapshot{Messages: msgs[:2], Ordered: true},
			Snapshot{Messages: msgs, Ordered: true},
		), nil
	}}

	var events []models.ConversationEvent
	agg := NewAggregator("alice", source, &fakeDirectory{}, zap.NewNop())
	err := agg.Run(context.Background(), func(ev models.ConversationEvent) { events = append(events, ev) })
	require.NoError(t, err)
	require.Len(t, events, 2)

	want := FoldConversations("alice", msgs)
	for i := range want {
		want[i].Counterparty = models.UnknownProfile(want[i].Counterparty.ID)
	}
	assert.Equal(t, want, events[1].Conversations)
	assert.Equal(t, CountUnread("alice", msgs), events[1].TotalUnread)
}

func TestAggregatorRendersUnknownCounterparty(t *testing.T) {
	snap := Snapshot{Messages: []models.Message{msg("m1", "ghost", "alice", 0, false)}}
	source := &fakeSource{watchInbox: func(ordered bool) (Stream, error) {
		return newFakeStream(snap), nil
	}}

	var events []models.ConversationEvent
	agg := NewAggregator("alice", source, &fakeDirectory{}, zap.NewNop())
	err := agg.Run(context.Background(), func(ev models.ConversationEvent) { events = append(events, ev) })

	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Len(t, events[0].Conversations, 1)
	assert.Equal(t, models.UnknownProfile("ghost"), events[0].Conversations[0].Counterparty)
}
