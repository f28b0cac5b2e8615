package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"meme-service/internal/mocks"
	"meme-service/internal/models"
	"meme-service/internal/repositories"
)

func setupUserRouter(handler *UserHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("userID", "u1")
		c.Next()
	})
	r.GET("/me", handler.GetMe)
	r.PUT("/me", handler.UpdateMe)
	r.GET("/users", handler.ListUsers)
	r.PUT("/friends/:user_id", handler.AddFriend)
	r.DELETE("/friends/:user_id", handler.RemoveFriend)
	return r
}

func TestGetMeSuccess(t *testing.T) {
	userRepo := new(mocks.UserRepositoryMock)
	handler := NewUserHandler(userRepo, testTracker(), nil, zap.NewNop())
	router := setupUserRouter(handler)

	userRepo.On("Get", mock.Anything, "u1").Return(models.User{ID: "u1", DisplayName: "Me"}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	userRepo.AssertExpectations(t)
}

func TestGetMeNotCreatedYet(t *testing.T) {
	userRepo := new(mocks.UserRepositoryMock)
	handler := NewUserHandler(userRepo, testTracker(), nil, zap.NewNop())
	router := setupUserRouter(handler)

	userRepo.On("Get", mock.Anything, "u1").Return(models.User{}, repositories.ErrUserNotFound).Once()

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	userRepo.AssertExpectations(t)
}

func TestUpdateMeSuccess(t *testing.T) {
	userRepo := new(mocks.UserRepositoryMock)
	handler := NewUserHandler(userRepo, testTracker(), nil, zap.NewNop())
	router := setupUserRouter(handler)

	userRepo.On("Upsert", mock.Anything, models.User{ID: "u1", DisplayName: "Me", Bio: "hi"}).
		Return(models.User{ID: "u1", DisplayName: "Me", Bio: "hi"}, nil).Once()

	req := httptest.NewRequest(http.MethodPut, "/me", bytes.NewBufferString(`{"display_name":"Me","bio":"hi"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	userRepo.AssertExpectations(t)
}

func TestUpdateMeRequiresDisplayName(t *testing.T) {
	handler := NewUserHandler(new(mocks.UserRepositoryMock), testTracker(), nil, zap.NewNop())
	router := setupUserRouter(handler)

	req := httptest.NewRequest(http.MethodPut, "/me", bytes.NewBufferString(`{"bio":"hi"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListUsersPresenceUnavailable(t *testing.T) {
	userRepo := new(mocks.UserRepositoryMock)
	handler := NewUserHandler(userRepo, testTracker(), nil, zap.NewNop())
	router := setupUserRouter(handler)

	userRepo.On("List", mock.Anything).Return([]models.User{{ID: "u2", DisplayName: "Bob"}}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/users", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Users []struct {
			ID     string `json:"id"`
			Online bool   `json:"online"`
		} `json:"users"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Users, 1)
	assert.False(t, resp.Users[0].Online)
	userRepo.AssertExpectations(t)
}

func TestAddFriendWritesBothEdges(t *testing.T) {
	userRepo := new(mocks.UserRepositoryMock)
	handler := NewUserHandler(userRepo, testTracker(), nil, zap.NewNop())
	router := setupUserRouter(handler)

	userRepo.On("AddFriend", mock.Anything, "u1", "u2").Return(nil).Once()
	userRepo.On("AddFriend", mock.Anything, "u2", "u1").Return(nil).Once()

	req := httptest.NewRequest(http.MethodPut, "/friends/u2", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	userRepo.AssertExpectations(t)
}

func TestAddFriendSelf(t *testing.T) {
	userRepo := new(mocks.UserRepositoryMock)
	handler := NewUserHandler(userRepo, testTracker(), nil, zap.NewNop())
	router := setupUserRouter(handler)

	req := httptest.NewRequest(http.MethodPut, "/friends/u1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	userRepo.AssertNotCalled(t, "AddFriend", mock.Anything, mock.Anything, mock.Anything)
}

func TestAddFriendUnknownUser(t *testing.T) {
	userRepo := new(mocks.UserRepositoryMock)
	handler := NewUserHandler(userRepo, testTracker(), nil, zap.NewNop())
	router := setupUserRouter(handler)

	userRepo.On("AddFriend", mock.Anything, "u1", "ghost").Return(repositories.ErrUserNotFound).Once()

	req := httptest.NewRequest(http.MethodPut, "/friends/ghost", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	userRepo.AssertExpectations(t)
}

func TestAddFriendReciprocalFailureStillSucceeds(t *testing.T) {
	userRepo := new(mocks.UserRepositoryMock)
	handler := NewUserHandler(userRepo, testTracker(), nil, zap.NewNop())
	router := setupUserRouter(handler)

	userRepo.On("AddFriend", mock.Anything, "u1", "u2").Return(nil).Once()
	userRepo.On("AddFriend", mock.Anything, "u2", "u1").Return(assert.AnError).Once()

	req := httptest.NewRequest(http.MethodPut, "/friends/u2", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	// The first edge is written; the disagreement is audited, not rolled back.
	require.Equal(t, http.StatusNoContent, rec.Code)
	userRepo.AssertExpectations(t)
}

func TestRemoveFriendRemovesBothEdges(t *testing.T) {
	userRepo := new(mocks.UserRepositoryMock)
	handler := NewUserHandler(userRepo, testTracker(), nil, zap.NewNop())
	router := setupUserRouter(handler)

	userRepo.On("RemoveFriend", mock.Anything, "u1", "u2").Return(nil).Once()
	userRepo.On("RemoveFriend", mock.Anything, "u2", "u1").Return(nil).Once()

	req := httptest.NewRequest(http.MethodDelete, "/friends/u2", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	userRepo.AssertExpectations(t)
}
