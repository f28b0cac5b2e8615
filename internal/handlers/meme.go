package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"meme-service/internal/imaging"
	"meme-service/internal/models"
	"meme-service/internal/observability"
	"meme-service/internal/repositories"
	"meme-service/internal/storage"
)

// MemeHandler manages meme creation, publishing and image delivery. Clients
// submit the composed canvas as a base64 data URL; the server re-encodes it to
// JPEG and keeps the payload in object storage.
type MemeHandler struct {
	memes  repositories.MemeRepository
	images storage.ImageStorage
	log    *zap.Logger
}

// NewMemeHandler builds a MemeHandler.
func NewMemeHandler(memes repositories.MemeRepository, images storage.ImageStorage, log *zap.Logger) *MemeHandler {
	return &MemeHandler{memes: memes, images: images, log: log}
}

// CreateMeme stores a new meme, unpublished by default.
func (h *MemeHandler) CreateMeme(c *gin.Context) {
	userID := c.GetString("userID")

	var req struct {
		Name  string `json:"name" binding:"required"`
		Image string `json:"image" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	data, err := imaging.ReencodeDataURL(req.Image)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid image payload"})
		return
	}

	ctx := c.Request.Context()
	key := fmt.Sprintf("memes/%s/%s.jpg", userID, uuid.NewString())
	if err := h.images.Put(ctx, key, data, "image/jpeg"); err != nil {
		h.log.Error("image upload failed", zap.String("key", key), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store image"})
		return
	}

	meme, err := h.memes.Create(ctx, models.Meme{
		UserID:   userID,
		Name:     req.Name,
		ImageKey: key,
	})
	if err != nil {
		if derr := h.images.Delete(ctx, key); derr != nil {
			h.log.Warn("orphaned image cleanup failed", zap.String("key", key), zap.Error(derr))
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save meme"})
		return
	}

	_ = observability.PublishEvent(ctx, "memes.created", observability.EventEnvelope{
		EventType: "meme_events",
		EventName: "meme_created",
		Payload:   map[string]interface{}{"meme_id": meme.ID, "user_id": userID},
	})
	c.JSON(http.StatusCreated, meme)
}

// ListMyMemes returns every meme of the caller, drafts included.
func (h *MemeHandler) ListMyMemes(c *gin.Context) {
	userID := c.GetString("userID")

	memes, err := h.memes.ListByOwner(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load memes"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"memes": memes})
}

// ListUserMemes returns another user's gallery. Only published memes are
// visible to anyone but the owner.
func (h *MemeHandler) ListUserMemes(c *gin.Context) {
	userID := c.GetString("userID")
	targetID := c.Param("user_id")

	var memes []models.Meme
	var err error
	if targetID == userID {
		memes, err = h.memes.ListByOwner(c.Request.Context(), targetID)
	} else {
		memes, err = h.memes.ListPublishedByOwner(c.Request.Context(), targetID)
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load memes"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"memes": memes})
}

// SetPublished toggles a meme's publish flag; owner only.
func (h *MemeHandler) SetPublished(c *gin.Context) {
	userID := c.GetString("userID")
	memeID := c.Param("meme_id")

	var req struct {
		Published *bool `json:"published" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	if err := h.memes.SetPublished(ctx, memeID, userID, *req.Published); err != nil {
		if errors.Is(err, repositories.ErrMemeNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "meme not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update meme"})
		return
	}

	_ = observability.PublishEvent(ctx, "memes.published", observability.EventEnvelope{
		EventType: "meme_events",
		EventName: "meme_publish_changed",
		Payload:   map[string]interface{}{"meme_id": memeID, "user_id": userID, "published": *req.Published},
	})
	c.Status(http.StatusNoContent)
}

// DeleteMeme removes a meme and its stored image; owner only.
func (h *MemeHandler) DeleteMeme(c *gin.Context) {
	userID := c.GetString("userID")
	memeID := c.Param("meme_id")

	ctx := c.Request.Context()
	meme, err := h.memes.Get(ctx, memeID)
	if err != nil || meme.UserID != userID {
		c.JSON(http.StatusNotFound, gin.H{"error": "meme not found"})
		return
	}

	if err := h.memes.Delete(ctx, memeID, userID); err != nil {
		if errors.Is(err, repositories.ErrMemeNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "meme not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete meme"})
		return
	}

	// Metadata is authoritative; a leftover object is only storage waste.
	if err := h.images.Delete(ctx, meme.ImageKey); err != nil {
		h.log.Warn("image cleanup failed", zap.String("key", meme.ImageKey), zap.Error(err))
	}

	c.Status(http.StatusNoContent)
}

// GetImage streams the image payload. Unpublished memes resolve only for the
// owner; everyone else gets a 404 rather than a hint that the meme exists.
func (h *MemeHandler) GetImage(c *gin.Context) {
	userID := c.GetString("userID")
	memeID := c.Param("meme_id")

	ctx := c.Request.Context()
	meme, err := h.memes.Get(ctx, memeID)
	if err != nil || (!meme.Published && meme.UserID != userID) {
		c.JSON(http.StatusNotFound, gin.H{"error": "meme not found"})
		return
	}

	data, contentType, err := h.images.Get(ctx, meme.ImageKey)
	if err != nil {
		h.log.Error("image fetch failed", zap.String("key", meme.ImageKey), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load image"})
		return
	}

	c.Data(http.StatusOK, contentType, data)
}
