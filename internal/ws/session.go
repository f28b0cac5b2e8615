package ws

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"meme-service/internal/chat"
	"meme-service/internal/models"
	"meme-service/internal/observability"
	"meme-service/internal/presence"
	"meme-service/internal/repositories"
)

const writeTimeout = 10 * time.Second

// command is what the client sends to switch views.
type command struct {
	Action          string `json:"action"`
	ConversationKey string `json:"conversation_key,omitempty"`
	UserID          string `json:"user_id,omitempty"`
}

// ProfileEvent is pushed once when the client opens another user's profile.
type ProfileEvent struct {
	Type    string         `json:"type"`
	Profile models.Profile `json:"profile"`
	Memes   []models.Meme  `json:"memes"`
	Online  bool           `json:"online"`
}

type errorEvent struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

// Session is one websocket connection of one user. The inbox aggregation runs
// for the whole session; at most one chat view (with its own thread sync) is
// active at a time, and switching views tears the old one down synchronously
// before the next one starts, so two syncs never mark the same thread.
type Session struct {
	conn    *websocket.Conn
	userID  string
	info    ConnInfo
	source  chat.MessageSource
	marker  chat.ReadMarker
	users   repositories.UserRepository
	memes   repositories.MemeRepository
	tracker *presence.Tracker
	log     *zap.Logger

	writeMu sync.Mutex

	view       ViewState
	cancelView context.CancelFunc
	viewDone   chan struct{}
}

func newSession(
	conn *websocket.Conn,
	userID string,
	info ConnInfo,
	source chat.MessageSource,
	marker chat.ReadMarker,
	users repositories.UserRepository,
	memes repositories.MemeRepository,
	tracker *presence.Tracker,
	log *zap.Logger,
) *Session {
	return &Session{
		conn:    conn,
		userID:  userID,
		info:    info,
		source:  source,
		marker:  marker,
		users:   users,
		memes:   memes,
		tracker: tracker,
		log:     log,
		view:    ListView(),
	}
}

// Run drives the session until the connection drops or ctx is cancelled. The
// returned error is the read error that ended the session.
func (s *Session) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)

	inboxDone := make(chan struct{})
	go func() {
		defer close(inboxDone)
		agg := chat.NewAggregator(s.userID, s.source, s.users, s.log)
		if err := agg.Run(ctx, func(ev models.ConversationEvent) { s.writeJSON(ev) }); err != nil && ctx.Err() == nil {
			s.log.Warn("inbox aggregation stopped",
				zap.String("user_id", s.userID), zap.String("conn_id", s.info.ConnID), zap.Error(err))
		}
	}()

	defer func() {
		s.closeView()
		cancel()
		<-inboxDone
	}()

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			return err
		}
		if err := s.tracker.Touch(ctx, s.userID); err != nil {
			s.log.Debug("presence touch failed", zap.String("user_id", s.userID), zap.Error(err))
		}
		var cmd command
		if err := json.Unmarshal(data, &cmd); err != nil {
			s.writeError("malformed command")
			continue
		}
		s.handle(ctx, cmd)
	}
}

func (s *Session) handle(ctx context.Context, cmd command) {
	switch cmd.Action {
	case "open_chat":
		key := cmd.ConversationKey
		if key == "" && cmd.UserID != "" {
			key = chat.ConversationKey(s.userID, cmd.UserID)
		}
		if _, ok := chat.Counterparty(key, s.userID); !ok {
			s.writeError("not a participant of this conversation")
			return
		}
		s.closeView()
		s.openChat(ctx, key)
	case "close_chat", "open_list":
		s.closeView()
	case "open_profile":
		if cmd.UserID == "" {
			s.writeError("user_id required")
			return
		}
		s.closeView()
		s.openProfile(ctx, cmd.UserID)
	default:
		s.writeError("unknown action: " + cmd.Action)
		return
	}
	observability.IncWSEvent(cmd.Action)
	s.log.Debug("view changed", zap.String("conn_id", s.info.ConnID), zap.Stringer("view", s.view))
}

// openChat starts a thread sync for one conversation. Read-marking happens
// only while this view is active.
func (s *Session) openChat(ctx context.Context, key string) {
	viewCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.view = ChatView(key)
	s.cancelView = cancel
	s.viewDone = done

	sync := chat.NewThreadSync(s.userID, key, s.source, s.marker, s.log)
	go func() {
		defer close(done)
		if err := sync.Run(viewCtx, func(ev models.ThreadEvent) { s.writeJSON(ev) }); err != nil && viewCtx.Err() == nil {
			s.log.Warn("thread sync stopped",
				zap.String("conversation_key", key), zap.String("conn_id", s.info.ConnID), zap.Error(err))
		}
	}()
}

// openProfile pushes a one-shot snapshot of another user's public page. No
// stream is held open; profile data is accepted as stale until reopened.
func (s *Session) openProfile(ctx context.Context, userID string) {
	profile, err := s.users.GetProfile(ctx, userID)
	if errors.Is(err, repositories.ErrUserNotFound) {
		s.writeError("user not found")
		return
	}
	if err != nil {
		s.log.Warn("profile lookup failed", zap.String("user_id", userID), zap.Error(err))
		s.writeError("profile unavailable")
		return
	}
	memes, err := s.memes.ListPublishedByOwner(ctx, userID)
	if err != nil {
		s.log.Warn("published memes lookup failed", zap.String("user_id", userID), zap.Error(err))
		memes = []models.Meme{}
	}
	online := false
	if state, err := s.tracker.Online(ctx, []string{userID}); err == nil {
		online = state[userID]
	}

	s.view = ProfileView(userID)
	s.writeJSON(ProfileEvent{Type: "profile", Profile: profile, Memes: memes, Online: online})
}

// closeView tears the active view down and waits for its goroutine to exit
// before returning. The session falls back to the list view.
func (s *Session) closeView() {
	if s.cancelView != nil {
		s.cancelView()
		<-s.viewDone
		s.cancelView = nil
		s.viewDone = nil
	}
	s.view = ListView()
}

func (s *Session) writeError(msg string) {
	s.writeJSON(errorEvent{Type: "error", Error: msg})
}

func (s *Session) writeJSON(v any) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := s.conn.WriteJSON(v); err != nil {
		s.log.Debug("websocket write failed", zap.String("conn_id", s.info.ConnID), zap.Error(err))
	}
}
