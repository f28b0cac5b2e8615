package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/oklog/ulid/v2"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"meme-service/internal/chat"
	"meme-service/internal/models"
	"meme-service/internal/store"
)

var ErrMessageNotFound = errors.New("message not found")

// MessageRepository persists messages and exposes live snapshot subscriptions
// over them. Messages are append-only apart from the read flag.
type MessageRepository interface {
	Create(ctx context.Context, msg models.Message) (models.Message, error)
	MarkRead(ctx context.Context, messageID string) error
	ListInbox(ctx context.Context, userID string, ordered bool) ([]models.Message, error)
	ListConversation(ctx context.Context, key string, ordered bool) ([]models.Message, error)
	WatchInbox(ctx context.Context, userID string, ordered bool) (chat.Stream, error)
	WatchConversation(ctx context.Context, key string, ordered bool) (chat.Stream, error)
}

// MessageRepo is the mongo implementation of MessageRepository.
type MessageRepo struct {
	col      *mongo.Collection
	notifier *store.Notifier
}

// NewMessageRepo constructs a MessageRepo.
func NewMessageRepo(database *mongo.Database, notifier *store.Notifier) *MessageRepo {
	return &MessageRepo{col: database.Collection("messages"), notifier: notifier}
}

// Create appends a message, assigning its id and server timestamp, and wakes
// the subscriptions of both participants and of the conversation.
func (r *MessageRepo) Create(ctx context.Context, msg models.Message) (models.Message, error) {
	msg.ID = ulid.Make().String()
	msg.CreatedAt = time.Now().UTC()
	if _, err := r.col.InsertOne(ctx, msg); err != nil {
		return models.Message{}, err
	}
	r.notifier.Notify(inboxTopic(msg.SenderID), inboxTopic(msg.ReceiverID), conversationTopic(msg.ConversationKey))
	return msg, nil
}

// MarkRead sets read=true. Marking an already-read message is a no-op.
func (r *MessageRepo) MarkRead(ctx context.Context, messageID string) error {
	var msg models.Message
	err := r.col.FindOneAndUpdate(ctx,
		bson.M{"_id": messageID},
		bson.M{"$set": bson.M{"read": true}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&msg)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrMessageNotFound
	}
	if err != nil {
		return err
	}
	r.notifier.Notify(inboxTopic(msg.SenderID), inboxTopic(msg.ReceiverID), conversationTopic(msg.ConversationKey))
	return nil
}

// ListInbox returns every message the user sent or received. The ordered
// variant sorts newest first on the store side and hints the created_at
// index, so it fails where the index is missing.
func (r *MessageRepo) ListInbox(ctx context.Context, userID string, ordered bool) ([]models.Message, error) {
	filter := bson.M{"$or": bson.A{
		bson.M{"sender_id": userID},
		bson.M{"receiver_id": userID},
	}}
	opts := options.Find()
	if ordered {
		opts.SetSort(bson.D{{Key: "created_at", Value: -1}}).SetHint("created_at_1")
	}
	return r.find(ctx, filter, opts)
}

// ListConversation returns every message of one conversation, oldest first
// when ordered.
func (r *MessageRepo) ListConversation(ctx context.Context, key string, ordered bool) ([]models.Message, error) {
	filter := bson.M{"conversation_key": key}
	opts := options.Find()
	if ordered {
		opts.SetSort(bson.D{{Key: "conversation_key", Value: 1}, {Key: "created_at", Value: 1}}).
			SetHint("conversation_key_1_created_at_1")
	}
	return r.find(ctx, filter, opts)
}

// WatchInbox opens a live snapshot subscription over the user's inbox scope.
func (r *MessageRepo) WatchInbox(ctx context.Context, userID string, ordered bool) (chat.Stream, error) {
	return r.watch(ctx, inboxTopic(userID), ordered, func(ctx context.Context) ([]models.Message, error) {
		return r.ListInbox(ctx, userID, ordered)
	})
}

// WatchConversation opens a live snapshot subscription over one conversation.
func (r *MessageRepo) WatchConversation(ctx context.Context, key string, ordered bool) (chat.Stream, error) {
	return r.watch(ctx, conversationTopic(key), ordered, func(ctx context.Context) ([]models.Message, error) {
		return r.ListConversation(ctx, key, ordered)
	})
}

func (r *MessageRepo) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.Message, error) {
	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	msgs := []models.Message{}
	if err := cur.All(ctx, &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

// watch runs the query once synchronously so subscription-setup errors (a
// missing index on the ordered path) surface to the caller, then keeps
// re-running it on every topic wakeup.
func (r *MessageRepo) watch(ctx context.Context, topic string, ordered bool, fetch func(context.Context) ([]models.Message, error)) (chat.Stream, error) {
	initial, err := fetch(ctx)
	if err != nil {
		return nil, err
	}
	sub := r.notifier.Subscribe(topic)
	s := newMessageStream(ordered)
	go s.run(ctx, sub, fetch, initial)
	return s, nil
}

func inboxTopic(userID string) string { return "inbox:" + userID }

func conversationTopic(key string) string { return "conv:" + key }
