package store

import "sync"

// Notifier fans collection-change notifications out to live subscriptions.
// Topics are opaque strings (one per query scope). Notifications carry no
// payload: a subscriber reacts by re-running its query, which is what makes
// every delivery a full snapshot. Pending notifications coalesce, so a
// subscriber may observe fewer wakeups than writes but never misses the
// final state.
type Notifier struct {
	mu     sync.RWMutex
	topics map[string]map[*Subscription]struct{}
}

// Subscription is one listener on one topic.
type Subscription struct {
	notifier *Notifier
	topic    string
	ch       chan struct{}
	once     sync.Once
}

// NewNotifier creates an empty notifier.
func NewNotifier() *Notifier {
	return &Notifier{topics: make(map[string]map[*Subscription]struct{})}
}

// Subscribe registers a listener on topic.
func (n *Notifier) Subscribe(topic string) *Subscription {
	sub := &Subscription{notifier: n, topic: topic, ch: make(chan struct{}, 1)}
	n.mu.Lock()
	defer n.mu.Unlock()
	if _, ok := n.topics[topic]; !ok {
		n.topics[topic] = make(map[*Subscription]struct{})
	}
	n.topics[topic][sub] = struct{}{}
	return sub
}

// Notify wakes every subscriber of the given topics. It never blocks: a
// subscriber with a wakeup already pending is left as is.
func (n *Notifier) Notify(topics ...string) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	for _, topic := range topics {
		for sub := range n.topics[topic] {
			select {
			case sub.ch <- struct{}{}:
			default:
			}
		}
	}
}

// C delivers wakeups. The channel is closed when the subscription is closed.
func (s *Subscription) C() <-chan struct{} {
	return s.ch
}

// Close removes the subscription. Synchronous: once it returns no further
// wakeup is delivered.
func (s *Subscription) Close() {
	s.once.Do(func() {
		n := s.notifier
		n.mu.Lock()
		defer n.mu.Unlock()
		if subs, ok := n.topics[s.topic]; ok {
			delete(subs, s)
			if len(subs) == 0 {
				delete(n.topics, s.topic)
			}
		}
		close(s.ch)
	})
}
