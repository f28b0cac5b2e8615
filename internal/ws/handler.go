package ws

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"meme-service/internal/auth"
	"meme-service/internal/chat"
	"meme-service/internal/observability"
	"meme-service/internal/presence"
	"meme-service/internal/repositories"
)

// Handler upgrades authenticated clients to websocket sessions.
type Handler struct {
	hub      *Hub
	verifier *auth.Verifier
	source   chat.MessageSource
	marker   chat.ReadMarker
	users    repositories.UserRepository
	memes    repositories.MemeRepository
	tracker  *presence.Tracker
	log      *zap.Logger
}

// NewHandler constructs a Handler.
func NewHandler(
	hub *Hub,
	verifier *auth.Verifier,
	source chat.MessageSource,
	marker chat.ReadMarker,
	users repositories.UserRepository,
	memes repositories.MemeRepository,
	tracker *presence.Tracker,
	log *zap.Logger,
) *Handler {
	return &Handler{
		hub:      hub,
		verifier: verifier,
		source:   source,
		marker:   marker,
		users:    users,
		memes:    memes,
		tracker:  tracker,
		log:      log,
	}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handle upgrades the connection and runs the session until it closes.
func (h *Handler) Handle(c *gin.Context) {
	ctx, span := otel.Tracer("meme-service/ws").Start(c.Request.Context(), "ws.session")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	userID, err := h.verifier.Verify(bearerToken(c))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	traceID := span.SpanContext().TraceID().String()
	requestID := observability.RequestIDFromRequest(c.Request)
	info := ConnInfo{
		ConnID:      newConnID(),
		UserID:      userID,
		IP:          observability.IPFromRequest(c.Request),
		RequestID:   requestID,
		TraceID:     traceID,
		ConnectedAt: time.Now(),
	}
	sess := newSession(conn, userID, info, h.source, h.marker, h.users, h.memes, h.tracker, h.log)

	h.hub.Register(sess)
	observability.IncWSActive()
	observability.IncWSEvent("ws_connect")
	_ = observability.PublishEvent(ctx, "ws_events.sessions", sessionEvent("ws_connect", info, 0, ""))

	if err := h.tracker.Touch(ctx, userID); err != nil {
		h.log.Debug("presence touch failed", zap.String("user_id", userID), zap.Error(err))
	}

	var closeReason string
	defer func() {
		h.hub.Unregister(sess)
		if h.hub.SessionCount(userID) == 0 {
			if err := h.tracker.Clear(context.Background(), userID); err != nil {
				h.log.Debug("presence clear failed", zap.String("user_id", userID), zap.Error(err))
			}
		}
		observability.DecWSActive()
		observability.IncWSEvent("ws_disconnect")
		_ = observability.PublishEvent(ctx, "ws_events.sessions",
			sessionEvent("ws_disconnect", info, time.Since(info.ConnectedAt).Milliseconds(), closeReason))
		conn.Close()
	}()

	if err := sess.Run(ctx); err != nil {
		closeReason = err.Error()
		if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
			observability.IncWSEvent("ws_error")
			_ = observability.PublishEvent(ctx, "ws_events.sessions",
				sessionEvent("ws_error", info, time.Since(info.ConnectedAt).Milliseconds(), closeReason))
		}
	}
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if parts := strings.SplitN(header, " ", 2); len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return parts[1]
	}
	return c.Query("token")
}

func sessionEvent(name string, info ConnInfo, durationMs int64, reason string) observability.EventEnvelope {
	return observability.EventEnvelope{
		EventType: "ws_events",
		EventName: name,
		Payload: map[string]interface{}{
			"ws": map[string]interface{}{
				"event":       name,
				"conn_id":     info.ConnID,
				"duration_ms": durationMs,
				"reason":      reason,
			},
			"identity": map[string]interface{}{
				"user_id": info.UserID,
				"ip":      info.IP,
			},
			"correlation": observability.BuildHeaders(info.RequestID, info.TraceID),
		},
	}
}
