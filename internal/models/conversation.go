package models

// ConversationSummary is the derived, per-counterparty view of a message set.
// It is recomputed from scratch on every snapshot and never persisted.
type ConversationSummary struct {
	ConversationKey string   `json:"conversation_key"`
	Counterparty    Profile  `json:"counterparty"`
	LastMessage     *Message `json:"last_message"`
	UnreadCount     int      `json:"unread_count"`
}

// ConversationEvent is pushed over a websocket session while the inbox view
// is active.
type ConversationEvent struct {
	Type          string                `json:"type"`
	Conversations []ConversationSummary `json:"conversations"`
	TotalUnread   int                   `json:"total_unread"`
	Degraded      bool                  `json:"degraded,omitempty"`
}

// ThreadEvent is pushed over a websocket session while a chat view is active.
type ThreadEvent struct {
	Type            string    `json:"type"`
	ConversationKey string    `json:"conversation_key"`
	Messages        []Message `json:"messages"`
	Degraded        bool      `json:"degraded,omitempty"`
}
