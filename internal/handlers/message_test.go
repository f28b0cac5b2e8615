package handlers

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"meme-service/internal/chat"
	"meme-service/internal/mocks"
	"meme-service/internal/models"
	"meme-service/internal/repositories"
)

func setupMessageRouter(handler *MessageHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("userID", "u1")
		c.Next()
	})
	r.POST("/messages", handler.PostMessage)
	return r
}

func TestPostMessageSuccess(t *testing.T) {
	messageRepo := new(mocks.MessageRepositoryMock)
	userRepo := new(mocks.UserRepositoryMock)
	handler := NewMessageHandler(chat.NewDispatcher(messageRepo, userRepo))
	router := setupMessageRouter(handler)

	userRepo.On("GetProfile", mock.Anything, "bob").Return(models.Profile{ID: "bob"}, nil).Once()
	messageRepo.On("Create", mock.Anything, mock.AnythingOfType("models.Message")).
		Return(models.Message{ID: "m1", ConversationKey: "bob_u1", SenderID: "u1", ReceiverID: "bob", Body: "hi", CreatedAt: time.Now().UTC()}, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/messages", bytes.NewBufferString(`{"receiver_id":"bob","body":"hi"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	messageRepo.AssertExpectations(t)
	userRepo.AssertExpectations(t)
}

func TestPostMessageToSelf(t *testing.T) {
	handler := NewMessageHandler(chat.NewDispatcher(new(mocks.MessageRepositoryMock), new(mocks.UserRepositoryMock)))
	router := setupMessageRouter(handler)

	req := httptest.NewRequest(http.MethodPost, "/messages", bytes.NewBufferString(`{"receiver_id":"u1","body":"hi"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPostMessageEmptyBody(t *testing.T) {
	handler := NewMessageHandler(chat.NewDispatcher(new(mocks.MessageRepositoryMock), new(mocks.UserRepositoryMock)))
	router := setupMessageRouter(handler)

	req := httptest.NewRequest(http.MethodPost, "/messages", bytes.NewBufferString(`{"receiver_id":"bob","body":"   "}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPostMessageMissingReceiver(t *testing.T) {
	handler := NewMessageHandler(chat.NewDispatcher(new(mocks.MessageRepositoryMock), new(mocks.UserRepositoryMock)))
	router := setupMessageRouter(handler)

	req := httptest.NewRequest(http.MethodPost, "/messages", bytes.NewBufferString(`{"body":"hi"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPostMessageUnknownReceiver(t *testing.T) {
	userRepo := new(mocks.UserRepositoryMock)
	handler := NewMessageHandler(chat.NewDispatcher(new(mocks.MessageRepositoryMock), userRepo))
	router := setupMessageRouter(handler)

	userRepo.On("GetProfile", mock.Anything, "ghost").Return(models.Profile{}, repositories.ErrUserNotFound).Once()

	req := httptest.NewRequest(http.MethodPost, "/messages", bytes.NewBufferString(`{"receiver_id":"ghost","body":"hi"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	userRepo.AssertExpectations(t)
}

func TestPostMessageStoreError(t *testing.T) {
	messageRepo := new(mocks.MessageRepositoryMock)
	userRepo := new(mocks.UserRepositoryMock)
	handler := NewMessageHandler(chat.NewDispatcher(messageRepo, userRepo))
	router := setupMessageRouter(handler)

	userRepo.On("GetProfile", mock.Anything, "bob").Return(models.Profile{ID: "bob"}, nil).Once()
	messageRepo.On("Create", mock.Anything, mock.AnythingOfType("models.Message")).
		Return(models.Message{}, assert.AnError).Once()

	req := httptest.NewRequest(http.MethodPost, "/messages", bytes.NewBufferString(`{"receiver_id":"bob","body":"hi"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	messageRepo.AssertExpectations(t)
}
