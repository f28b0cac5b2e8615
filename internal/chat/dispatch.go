package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"meme-service/internal/models"
)

var (
	ErrEmptyMessage = errors.New("message needs a body or an attachment")
	ErrSelfMessage  = errors.New("cannot send a message to yourself")
)

// Dispatcher is the single write path for messages. Writes are independent
// appends; there is no client-side locking and no retry. A failed write is
// surfaced to the caller so the input is never silently lost.
type Dispatcher struct {
	messages MessageWriter
	users    Directory
}

// NewDispatcher builds a Dispatcher.
func NewDispatcher(messages MessageWriter, users Directory) *Dispatcher {
	return &Dispatcher{messages: messages, users: users}
}

// Send validates and appends one message. The receiver must resolve to an
// existing user. The store assigns id and created_at and the message starts
// unread; the resulting change notification reaches both participants'
// subscriptions.
func (d *Dispatcher) Send(ctx context.Context, senderID, receiverID, body, attachment string) (models.Message, error) {
	body = strings.TrimSpace(body)
	if senderID == receiverID {
		return models.Message{}, ErrSelfMessage
	}
	if body == "" && attachment == "" {
		return models.Message{}, ErrEmptyMessage
	}
	if _, err := d.users.GetProfile(ctx, receiverID); err != nil {
		return models.Message{}, fmt.Errorf("resolve receiver %s: %w", receiverID, err)
	}

	msg := models.Message{
		ConversationKey: ConversationKey(senderID, receiverID),
		SenderID:        senderID,
		ReceiverID:      receiverID,
		Body:            body,
		Attachment:      attachment,
		Read:            false,
	}
	return d.messages.Create(ctx, msg)
}
