package ws

import "fmt"

// ViewKind enumerates the client views a session can show.
type ViewKind int

const (
	// ViewList is the conversation list (the default after connect).
	ViewList ViewKind = iota
	// ViewProfile shows another user's public profile and published memes.
	ViewProfile
	// ViewChat is an open conversation thread.
	ViewChat
)

// ViewState is the session's current view as a tagged union: exactly one
// variant is active and only that variant's field is set, so impossible
// combinations ("chat selected but no key") cannot be represented.
type ViewState struct {
	Kind            ViewKind
	UserID          string
	ConversationKey string
}

// ListView returns the conversation-list state.
func ListView() ViewState {
	return ViewState{Kind: ViewList}
}

// ProfileView returns the profile state for one user.
func ProfileView(userID string) ViewState {
	return ViewState{Kind: ViewProfile, UserID: userID}
}

// ChatView returns the open-thread state for one conversation.
func ChatView(conversationKey string) ViewState {
	return ViewState{Kind: ViewChat, ConversationKey: conversationKey}
}

func (v ViewState) String() string {
	switch v.Kind {
	case ViewProfile:
		return fmt.Sprintf("profile(%s)", v.UserID)
	case ViewChat:
		return fmt.Sprintf("chat(%s)", v.ConversationKey)
	default:
		return "list"
	}
}
