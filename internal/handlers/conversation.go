package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"meme-service/internal/chat"
	"meme-service/internal/models"
	"meme-service/internal/observability"
	"meme-service/internal/presence"
	"meme-service/internal/repositories"
)

// ConversationHandler serves one-shot reads of the conversation state. The
// live view of the same data flows over the websocket session; these endpoints
// run the identical queries and folds once.
type ConversationHandler struct {
	messages repositories.MessageRepository
	users    repositories.UserRepository
	tracker  *presence.Tracker
	log      *zap.Logger
}

// NewConversationHandler builds a ConversationHandler.
func NewConversationHandler(messages repositories.MessageRepository, users repositories.UserRepository, tracker *presence.Tracker, log *zap.Logger) *ConversationHandler {
	return &ConversationHandler{messages: messages, users: users, tracker: tracker, log: log}
}

// ListConversations returns the caller's conversation summaries with unread
// counts. An ordered-query failure degrades to an unordered fetch; the fold
// itself is order-independent.
func (h *ConversationHandler) ListConversations(c *gin.Context) {
	userID := c.GetString("userID")
	ctx := c.Request.Context()

	degraded := false
	msgs, err := h.messages.ListInbox(ctx, userID, true)
	if err != nil {
		observability.IncSnapshotFallback("inbox")
		h.log.Warn("ordered inbox query failed", zap.String("user_id", userID), zap.Error(err))
		degraded = true
		msgs, err = h.messages.ListInbox(ctx, userID, false)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load conversations"})
			return
		}
	}

	summaries := chat.FoldConversations(userID, msgs)
	observability.ObserveSnapshotFold("inbox", len(msgs))

	profiles := make(map[string]models.Profile, len(summaries))
	counterpartyIDs := make([]string, 0, len(summaries))
	for _, summary := range summaries {
		id := summary.Counterparty.ID
		if _, ok := profiles[id]; ok {
			continue
		}
		profile, err := h.users.GetProfile(ctx, id)
		if err != nil {
			h.log.Warn("counterparty lookup failed", zap.String("user_id", id), zap.Error(err))
			profile = models.UnknownProfile(id)
		}
		profiles[id] = profile
		counterpartyIDs = append(counterpartyIDs, id)
	}

	online, err := h.tracker.Online(ctx, counterpartyIDs)
	if err != nil {
		h.log.Debug("presence lookup failed", zap.Error(err))
		online = map[string]bool{}
	}

	type conversationResponse struct {
		models.ConversationSummary
		Online bool `json:"online"`
	}
	responses := make([]conversationResponse, 0, len(summaries))
	for _, summary := range summaries {
		summary.Counterparty = profiles[summary.Counterparty.ID]
		responses = append(responses, conversationResponse{
			ConversationSummary: summary,
			Online:              online[summary.Counterparty.ID],
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"conversations": responses,
		"total_unread":  chat.CountUnread(userID, msgs),
		"degraded":      degraded,
	})
}

// GetThread returns the ordered message list of one conversation. Reading over
// REST does not mark anything read; only an open chat view does that.
func (h *ConversationHandler) GetThread(c *gin.Context) {
	userID := c.GetString("userID")
	key := c.Param("conversation_key")
	if _, ok := chat.Counterparty(key, userID); !ok {
		c.JSON(http.StatusForbidden, gin.H{"error": "not a participant of this conversation"})
		return
	}

	ctx := c.Request.Context()
	ordered := true
	msgs, err := h.messages.ListConversation(ctx, key, true)
	if err != nil {
		observability.IncSnapshotFallback("thread")
		h.log.Warn("ordered thread query failed", zap.String("conversation_key", key), zap.Error(err))
		ordered = false
		msgs, err = h.messages.ListConversation(ctx, key, false)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load messages"})
			return
		}
	}

	msgs = chat.OrderThread(msgs, ordered)
	observability.ObserveSnapshotFold("thread", len(msgs))

	c.JSON(http.StatusOK, gin.H{
		"conversation_key": key,
		"messages":         msgs,
		"degraded":         !ordered,
	})
}
