package repositories

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"meme-service/internal/models"
)

var ErrUserNotFound = errors.New("user not found")

// UserRepository persists user profiles and their one-directional friend
// edges.
type UserRepository interface {
	Upsert(ctx context.Context, user models.User) (models.User, error)
	Get(ctx context.Context, userID string) (models.User, error)
	GetProfile(ctx context.Context, userID string) (models.Profile, error)
	List(ctx context.Context) ([]models.User, error)
	AddFriend(ctx context.Context, userID, friendID string) error
	RemoveFriend(ctx context.Context, userID, friendID string) error
}

// UserRepo is the mongo implementation of UserRepository.
type UserRepo struct {
	col *mongo.Collection
}

// NewUserRepo constructs a UserRepo.
func NewUserRepo(database *mongo.Database) *UserRepo {
	return &UserRepo{col: database.Collection("users")}
}

// Upsert creates or updates the profile fields, leaving friend edges alone.
func (r *UserRepo) Upsert(ctx context.Context, user models.User) (models.User, error) {
	now := time.Now().UTC()
	update := bson.M{
		"$set": bson.M{
			"display_name": user.DisplayName,
			"avatar_url":   user.AvatarURL,
			"bio":          user.Bio,
			"updated_at":   now,
		},
		"$setOnInsert": bson.M{"created_at": now},
	}
	var saved models.User
	err := r.col.FindOneAndUpdate(ctx,
		bson.M{"_id": user.ID},
		update,
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&saved)
	return saved, err
}

// Get fetches a user by id.
func (r *UserRepo) Get(ctx context.Context, userID string) (models.User, error) {
	var user models.User
	err := r.col.FindOne(ctx, bson.M{"_id": userID}).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.User{}, ErrUserNotFound
	}
	return user, err
}

// GetProfile fetches the display profile of a user.
func (r *UserRepo) GetProfile(ctx context.Context, userID string) (models.Profile, error) {
	var profile models.Profile
	err := r.col.FindOne(ctx, bson.M{"_id": userID},
		options.FindOne().SetProjection(bson.M{"_id": 1, "display_name": 1, "avatar_url": 1}),
	).Decode(&profile)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Profile{}, ErrUserNotFound
	}
	return profile, err
}

// List returns all users, newest first.
func (r *UserRepo) List(ctx context.Context) ([]models.User, error) {
	cur, err := r.col.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, err
	}
	users := []models.User{}
	if err := cur.All(ctx, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// AddFriend adds friendID to userID's edge set. The reciprocal edge is a
// separate write owned by the caller.
func (r *UserRepo) AddFriend(ctx context.Context, userID, friendID string) error {
	res, err := r.col.UpdateOne(ctx, bson.M{"_id": userID}, bson.M{"$addToSet": bson.M{"friends": friendID}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrUserNotFound
	}
	return nil
}

// RemoveFriend removes friendID from userID's edge set.
func (r *UserRepo) RemoveFriend(ctx context.Context, userID, friendID string) error {
	res, err := r.col.UpdateOne(ctx, bson.M{"_id": userID}, bson.M{"$pull": bson.M{"friends": friendID}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrUserNotFound
	}
	return nil
}
