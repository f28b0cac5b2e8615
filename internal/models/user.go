package models

import "time"

// User is a member profile. Friends holds one-directional edges; the
// reciprocal edge lives on the other user's document and the two are written
// independently, so they can disagree after a partial failure.
type User struct {
	ID          string    `bson:"_id" json:"id"`
	DisplayName string    `bson:"display_name" json:"display_name"`
	AvatarURL   string    `bson:"avatar_url,omitempty" json:"avatar_url,omitempty"`
	Bio         string    `bson:"bio,omitempty" json:"bio,omitempty"`
	Friends     []string  `bson:"friends,omitempty" json:"friends,omitempty"`
	CreatedAt   time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time `bson:"updated_at" json:"updated_at"`
}

// Profile is the subset of User shown next to messages and conversations.
type Profile struct {
	ID          string `bson:"_id" json:"id"`
	DisplayName string `bson:"display_name" json:"display_name"`
	AvatarURL   string `bson:"avatar_url,omitempty" json:"avatar_url,omitempty"`
}

// UnknownProfile stands in for a counterparty whose document is missing. The
// conversation still renders instead of failing the whole view.
func UnknownProfile(id string) Profile {
	return Profile{ID: id, DisplayName: "unknown user"}
}

// Profile projects the User to its public profile fields.
func (u User) Profile() Profile {
	return Profile{ID: u.ID, DisplayName: u.DisplayName, AvatarURL: u.AvatarURL}
}
