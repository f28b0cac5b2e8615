package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/oklog/ulid/v2"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"meme-service/internal/models"
)

var ErrMemeNotFound = errors.New("meme not found")

// MemeRepository persists meme metadata. Image payloads live in object
// storage under Meme.ImageKey.
type MemeRepository interface {
	Create(ctx context.Context, meme models.Meme) (models.Meme, error)
	Get(ctx context.Context, memeID string) (models.Meme, error)
	ListByOwner(ctx context.Context, userID string) ([]models.Meme, error)
	ListPublishedByOwner(ctx context.Context, userID string) ([]models.Meme, error)
	SetPublished(ctx context.Context, memeID, ownerID string, published bool) error
	Delete(ctx context.Context, memeID, ownerID string) error
}

// MemeRepo is the mongo implementation of MemeRepository.
type MemeRepo struct {
	col *mongo.Collection
}

// NewMemeRepo constructs a MemeRepo.
func NewMemeRepo(database *mongo.Database) *MemeRepo {
	return &MemeRepo{col: database.Collection("memes")}
}

// Create stores meme metadata, assigning id and server timestamp.
func (r *MemeRepo) Create(ctx context.Context, meme models.Meme) (models.Meme, error) {
	meme.ID = ulid.Make().String()
	meme.CreatedAt = time.Now().UTC()
	if _, err := r.col.InsertOne(ctx, meme); err != nil {
		return models.Meme{}, err
	}
	return meme, nil
}

// Get fetches a meme by id.
func (r *MemeRepo) Get(ctx context.Context, memeID string) (models.Meme, error) {
	var meme models.Meme
	err := r.col.FindOne(ctx, bson.M{"_id": memeID}).Decode(&meme)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Meme{}, ErrMemeNotFound
	}
	return meme, err
}

// ListByOwner returns all memes of a user, newest first.
func (r *MemeRepo) ListByOwner(ctx context.Context, userID string) ([]models.Meme, error) {
	return r.list(ctx, bson.M{"user_id": userID})
}

// ListPublishedByOwner returns only the memes a user published.
func (r *MemeRepo) ListPublishedByOwner(ctx context.Context, userID string) ([]models.Meme, error) {
	return r.list(ctx, bson.M{"user_id": userID, "published": true})
}

// SetPublished toggles the publish flag; only the owner may do so.
func (r *MemeRepo) SetPublished(ctx context.Context, memeID, ownerID string, published bool) error {
	res, err := r.col.UpdateOne(ctx,
		bson.M{"_id": memeID, "user_id": ownerID},
		bson.M{"$set": bson.M{"published": published}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrMemeNotFound
	}
	return nil
}

// Delete removes a meme; only the owner may do so.
func (r *MemeRepo) Delete(ctx context.Context, memeID, ownerID string) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": memeID, "user_id": ownerID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrMemeNotFound
	}
	return nil
}

func (r *MemeRepo) list(ctx context.Context, filter bson.M) ([]models.Meme, error) {
	cur, err := r.col.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, err
	}
	memes := []models.Meme{}
	if err := cur.All(ctx, &memes); err != nil {
		return nil, err
	}
	return memes, nil
}
