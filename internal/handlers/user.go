package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"meme-service/internal/models"
	"meme-service/internal/observability"
	"meme-service/internal/presence"
	"meme-service/internal/repositories"
	"meme-service/internal/telemetry"
)

// UserHandler manages profiles and friend edges.
type UserHandler struct {
	users   repositories.UserRepository
	tracker *presence.Tracker
	audit   *telemetry.AuditEmitter
	log     *zap.Logger
}

// NewUserHandler builds a UserHandler.
func NewUserHandler(users repositories.UserRepository, tracker *presence.Tracker, audit *telemetry.AuditEmitter, log *zap.Logger) *UserHandler {
	return &UserHandler{users: users, tracker: tracker, audit: audit, log: log}
}

// GetMe returns the caller's own profile. 404 means the profile was never
// created; the client treats that as the onboarding signal.
func (h *UserHandler) GetMe(c *gin.Context) {
	userID := c.GetString("userID")

	user, err := h.users.Get(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "profile not created"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load profile"})
		return
	}

	c.JSON(http.StatusOK, user)
}

// UpdateMe creates or updates the caller's profile.
func (h *UserHandler) UpdateMe(c *gin.Context) {
	userID := c.GetString("userID")

	var req struct {
		DisplayName string `json:"display_name" binding:"required"`
		AvatarURL   string `json:"avatar_url"`
		Bio         string `json:"bio"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	saved, err := h.users.Upsert(c.Request.Context(), models.User{
		ID:          userID,
		DisplayName: req.DisplayName,
		AvatarURL:   req.AvatarURL,
		Bio:         req.Bio,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save profile"})
		return
	}

	c.JSON(http.StatusOK, saved)
}

// ListUsers returns every member with their live presence flag.
func (h *UserHandler) ListUsers(c *gin.Context) {
	ctx := c.Request.Context()

	users, err := h.users.List(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load users"})
		return
	}

	ids := make([]string, 0, len(users))
	for _, user := range users {
		ids = append(ids, user.ID)
	}
	online, err := h.tracker.Online(ctx, ids)
	if err != nil {
		h.log.Debug("presence lookup failed", zap.Error(err))
		online = map[string]bool{}
	}

	type userResponse struct {
		models.User
		Online bool `json:"online"`
	}
	responses := make([]userResponse, 0, len(users))
	for _, user := range users {
		responses = append(responses, userResponse{User: user, Online: online[user.ID]})
	}

	c.JSON(http.StatusOK, gin.H{"users": responses})
}

// AddFriend writes both friend edges. The two writes are independent; if the
// reciprocal write fails the edges disagree until one side retries, which is
// accepted and audited rather than rolled back.
func (h *UserHandler) AddFriend(c *gin.Context) {
	userID := c.GetString("userID")
	friendID := c.Param("user_id")
	if friendID == userID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot befriend yourself"})
		return
	}

	ctx := c.Request.Context()
	if err := h.users.AddFriend(ctx, userID, friendID); err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to add friend"})
		return
	}
	if err := h.users.AddFriend(ctx, friendID, userID); err != nil {
		h.log.Warn("reciprocal friend edge write failed",
			zap.String("user_id", userID), zap.String("friend_id", friendID), zap.Error(err))
		h.audit.Emit(ctx, "warn",
			fmt.Sprintf("friend edge incomplete: %s -> %s written, reverse failed", userID, friendID),
			observability.RequestIDFromRequest(c.Request), userID)
	}

	c.Status(http.StatusNoContent)
}

// RemoveFriend removes both friend edges, with the same independent-write
// semantics as AddFriend.
func (h *UserHandler) RemoveFriend(c *gin.Context) {
	userID := c.GetString("userID")
	friendID := c.Param("user_id")

	ctx := c.Request.Context()
	if err := h.users.RemoveFriend(ctx, userID, friendID); err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to remove friend"})
		return
	}
	if err := h.users.RemoveFriend(ctx, friendID, userID); err != nil && !errors.Is(err, repositories.ErrUserNotFound) {
		h.log.Warn("reciprocal friend edge removal failed",
			zap.String("user_id", userID), zap.String("friend_id", friendID), zap.Error(err))
		h.audit.Emit(ctx, "warn",
			fmt.Sprintf("friend edge incomplete: %s -> %s removed, reverse failed", userID, friendID),
			observability.RequestIDFromRequest(c.Request), userID)
	}

	c.Status(http.StatusNoContent)
}
