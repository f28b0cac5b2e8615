package repositories

import (
	"context"
	"sync"

	"meme-service/internal/chat"
	"meme-service/internal/models"
	"meme-service/internal/store"
)

// messageStream turns topic wakeups into full-result snapshots by re-running
// the scoped query on every notification.
type messageStream struct {
	ordered   bool
	snapshots chan chat.Snapshot
	done      chan struct{}
	closeOnce sync.Once

	mu  sync.Mutex
	err error
}

func newMessageStream(ordered bool) *messageStream {
	return &messageStream{
		ordered:   ordered,
		snapshots: make(chan chat.Snapshot, 1),
		done:      make(chan struct{}),
	}
}

func (s *messageStream) Snapshots() <-chan chat.Snapshot {
	return s.snapshots
}

func (s *messageStream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *messageStream) Close() {
	s.closeOnce.Do(func() { close(s.done) })
}

func (s *messageStream) run(ctx context.Context, sub *store.Subscription, fetch func(context.Context) ([]models.Message, error), initial []models.Message) {
	defer close(s.snapshots)
	defer sub.Close()

	if !s.emit(ctx, chat.Snapshot{Messages: initial, Ordered: s.ordered}) {
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		case _, ok := <-sub.C():
			if !ok {
				return
			}
			msgs, err := fetch(ctx)
			if err != nil {
				s.fail(err)
				return
			}
			if !s.emit(ctx, chat.Snapshot{Messages: msgs, Ordered: s.ordered}) {
				return
			}
		}
	}
}

func (s *messageStream) emit(ctx context.Context, snap chat.Snapshot) bool {
	select {
	case s.snapshots <- snap:
		return true
	case <-ctx.Done():
		return false
	case <-s.done:
		return false
	}
}

func (s *messageStream) fail(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}
