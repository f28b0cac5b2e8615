package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"meme-service/internal/chat"
	"meme-service/internal/models"
)

type MessageRepositoryMock struct {
	mock.Mock
}

func (m *MessageRepositoryMock) Create(ctx context.Context, msg models.Message) (models.Message, error) {
	args := m.Called(ctx, msg)
	var saved models.Message
	if val := args.Get(0); val != nil {
		saved = val.(models.Message)
	}
	return saved, args.Error(1)
}

func (m *MessageRepositoryMock) MarkRead(ctx context.Context, messageID string) error {
	args := m.Called(ctx, messageID)
	return args.Error(0)
}

func (m *MessageRepositoryMock) ListInbox(ctx context.Context, userID string, ordered bool) ([]models.Message, error) {
	args := m.Called(ctx, userID, ordered)
	var msgs []models.Message
	if val := args.Get(0); val != nil {
		msgs = val.([]models.Message)
	}
	return msgs, args.Error(1)
}

func (m *MessageRepositoryMock) ListConversation(ctx context.Context, key string, ordered bool) ([]models.Message, error) {
	args := m.Called(ctx, key, ordered)
	var msgs []models.Message
	if val := args.Get(0); val != nil {
		msgs = val.([]models.Message)
	}
	return msgs, args.Error(1)
}

func (m *MessageRepositoryMock) WatchInbox(ctx context.Context, userID string, ordered bool) (chat.Stream, error) {
	args := m.Called(ctx, userID, ordered)
	var stream chat.Stream
	if val := args.Get(0); val != nil {
		stream = val.(chat.Stream)
	}
	return stream, args.Error(1)
}

func (m *MessageRepositoryMock) WatchConversation(ctx context.Context, key string, ordered bool) (chat.Stream, error) {
	args := m.Called(ctx, key, ordered)
	var stream chat.Stream
	if val := args.Get(0); val != nil {
		stream = val.(chat.Stream)
	}
	return stream, args.Error(1)
}

type UserRepositoryMock struct {
	mock.Mock
}

func (m *UserRepositoryMock) Upsert(ctx context.Context, user models.User) (models.User, error) {
	args := m.Called(ctx, user)
	var saved models.User
	if val := args.Get(0); val != nil {
		saved = val.(models.User)
	}
	return saved, args.Error(1)
}

func (m *UserRepositoryMock) Get(ctx context.Context, userID string) (models.User, error) {
	args := m.Called(ctx, userID)
	var user models.User
	if val := args.Get(0); val != nil {
		user = val.(models.User)
	}
	return user, args.Error(1)
}

func (m *UserRepositoryMock) GetProfile(ctx context.Context, userID string) (models.Profile, error) {
	args := m.Called(ctx, userID)
	var profile models.Profile
	if val := args.Get(0); val != nil {
		profile = val.(models.Profile)
	}
	return profile, args.Error(1)
}

func (m *UserRepositoryMock) List(ctx context.Context) ([]models.User, error) {
	args := m.Called(ctx)
	var users []models.User
	if val := args.Get(0); val != nil {
		users = val.([]models.User)
	}
	return users, args.Error(1)
}

func (m *UserRepositoryMock) AddFriend(ctx context.Context, userID, friendID string) error {
	args := m.Called(ctx, userID, friendID)
	return args.Error(0)
}

func (m *UserRepositoryMock) RemoveFriend(ctx context.Context, userID, friendID string) error {
	args := m.Called(ctx, userID, friendID)
	return args.Error(0)
}

type MemeRepositoryMock struct {
	mock.Mock
}

func (m *MemeRepositoryMock) Create(ctx context.Context, meme models.Meme) (models.Meme, error) {
	args := m.Called(ctx, meme)
	var saved models.Meme
	if val := args.Get(0); val != nil {
		saved = val.(models.Meme)
	}
	return saved, args.Error(1)
}

func (m *MemeRepositoryMock) Get(ctx context.Context, memeID string) (models.Meme, error) {
	args := m.Called(ctx, memeID)
	var meme models.Meme
	if val := args.Get(0); val != nil {
		meme = val.(models.Meme)
	}
	return meme, args.Error(1)
}

func (m *MemeRepositoryMock) ListByOwner(ctx context.Context, userID string) ([]models.Meme, error) {
	args := m.Called(ctx, userID)
	var memes []models.Meme
	if val := args.Get(0); val != nil {
		memes = val.([]models.Meme)
	}
	return memes, args.Error(1)
}

func (m *MemeRepositoryMock) ListPublishedByOwner(ctx context.Context, userID string) ([]models.Meme, error) {
	args := m.Called(ctx, userID)
	var memes []models.Meme
	if val := args.Get(0); val != nil {
		memes = val.([]models.Meme)
	}
	return memes, args.Error(1)
}

func (m *MemeRepositoryMock) SetPublished(ctx context.Context, memeID, ownerID string, published bool) error {
	args := m.Called(ctx, memeID, ownerID, published)
	return args.Error(0)
}

func (m *MemeRepositoryMock) Delete(ctx context.Context, memeID, ownerID string) error {
	args := m.Called(ctx, memeID, ownerID)
	return args.Error(0)
}

type ImageStorageMock struct {
	mock.Mock
}

func (m *ImageStorageMock) Put(ctx context.Context, key string, data []byte, contentType string) error {
	args := m.Called(ctx, key, data, contentType)
	return args.Error(0)
}

func (m *ImageStorageMock) Get(ctx context.Context, key string) ([]byte, string, error) {
	args := m.Called(ctx, key)
	var data []byte
	if val := args.Get(0); val != nil {
		data = val.([]byte)
	}
	return data, args.String(1), args.Error(2)
}

func (m *ImageStorageMock) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}
