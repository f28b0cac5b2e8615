package models

import "time"

// Message is a direct message between two users. A message is immutable after
// creation except for the Read flag, which transitions false to true exactly
// once, and only for the receiver.
type Message struct {
	ID              string    `bson:"_id" json:"id"`
	ConversationKey string    `bson:"conversation_key" json:"conversation_key"`
	SenderID        string    `bson:"sender_id" json:"sender_id"`
	ReceiverID      string    `bson:"receiver_id" json:"receiver_id"`
	Body            string    `bson:"body,omitempty" json:"body,omitempty"`
	Attachment      string    `bson:"attachment,omitempty" json:"attachment,omitempty"`
	Read            bool      `bson:"read" json:"read"`
	CreatedAt       time.Time `bson:"created_at" json:"created_at"`
}

// Before reports whether m sorts before other. CreatedAt is the primary order,
// id breaks ties so the order is total regardless of snapshot arrival order.
func (m Message) Before(other Message) bool {
	if m.CreatedAt.Equal(other.CreatedAt) {
		return m.ID < other.ID
	}
	return m.CreatedAt.Before(other.CreatedAt)
}
