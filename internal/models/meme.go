package models

import "time"

// Meme is a rendered meme image owned by a user. The image payload itself
// lives in object storage under ImageKey; only metadata is kept in the store.
type Meme struct {
	ID        string    `bson:"_id" json:"id"`
	UserID    string    `bson:"user_id" json:"user_id"`
	Name      string    `bson:"name" json:"name"`
	ImageKey  string    `bson:"image_key" json:"image_key"`
	Published bool      `bson:"published" json:"published"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}
