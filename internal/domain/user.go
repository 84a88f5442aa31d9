package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Auth is the credentials document. It is split from User so that password
// material never travels with profile reads.
type Auth struct {
	ID                   primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UID                  string             `bson:"uId" json:"uId"`
	Username             string             `bson:"username" json:"username"`
	Email                string             `bson:"email" json:"email"`
	Password             string             `bson:"password" json:"-"`
	AvatarColor          string             `bson:"avatarColor" json:"avatarColor"`
	PasswordResetToken   string             `bson:"passwordResetToken,omitempty" json:"-"`
	PasswordResetExpires time.Time          `bson:"passwordResetExpires,omitempty" json:"-"`
	CreatedAt            time.Time          `bson:"createdAt" json:"createdAt"`
}

type NotificationSettings struct {
	Messages  bool `bson:"messages" json:"messages"`
	Reactions bool `bson:"reactions" json:"reactions"`
	Comments  bool `bson:"comments" json:"comments"`
	Follows   bool `bson:"follows" json:"follows"`
}

type SocialLinks struct {
	Facebook  string `bson:"facebook" json:"facebook"`
	Instagram string `bson:"instagram" json:"instagram"`
	Twitter   string `bson:"twitter" json:"twitter"`
	Youtube   string `bson:"youtube" json:"youtube"`
}

// User is the profile document. Counter fields (postsCount, followersCount,
// followingCount) are denormalized and eventually consistent with the
// underlying collections.
type User struct {
	ID             primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	AuthID         primitive.ObjectID   `bson:"authId" json:"authId"`
	UID            string               `bson:"uId" json:"uId"`
	Username       string               `bson:"username" json:"username"`
	Email          string               `bson:"email" json:"email"`
	AvatarColor    string               `bson:"avatarColor" json:"avatarColor"`
	ProfilePicture string               `bson:"profilePicture" json:"profilePicture"`
	PostsCount     int                  `bson:"postsCount" json:"postsCount"`
	FollowersCount int                  `bson:"followersCount" json:"followersCount"`
	FollowingCount int                  `bson:"followingCount" json:"followingCount"`
	Blocked        []primitive.ObjectID `bson:"blocked" json:"blocked"`
	BlockedBy      []primitive.ObjectID `bson:"blockedBy" json:"blockedBy"`
	Notifications  NotificationSettings `bson:"notifications" json:"notifications"`
	Social         SocialLinks          `bson:"social" json:"social"`
	Work           string               `bson:"work" json:"work"`
	School         string               `bson:"school" json:"school"`
	Location       string               `bson:"location" json:"location"`
	Quote          string               `bson:"quote" json:"quote"`
	BgImageID      string               `bson:"bgImageId" json:"bgImageId"`
	BgImageVersion string               `bson:"bgImageVersion" json:"bgImageVersion"`
	CreatedAt      time.Time            `bson:"createdAt" json:"createdAt"`
}

// AuthPayload is the set of claims carried in the signed session token.
type AuthPayload struct {
	UserID      string `json:"userId"`
	UID         string `json:"uId"`
	Username    string `json:"username"`
	Email       string `json:"email"`
	AvatarColor string `json:"avatarColor"`
}
