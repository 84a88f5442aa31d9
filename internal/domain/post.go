package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Reactions holds the six fixed reaction counters.
type Reactions struct {
	Like  int `bson:"like" json:"like"`
	Love  int `bson:"love" json:"love"`
	Happy int `bson:"happy" json:"happy"`
	Wow   int `bson:"wow" json:"wow"`
	Sad   int `bson:"sad" json:"sad"`
	Angry int `bson:"angry" json:"angry"`
}

// Post is a feed entry. Username, Email, AvatarColor and ProfilePicture are
// an author snapshot copied at creation time; later profile edits do not
// rewrite existing posts.
type Post struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID         string             `bson:"userId" json:"userId"`
	Username       string             `bson:"username" json:"username"`
	Email          string             `bson:"email" json:"email"`
	AvatarColor    string             `bson:"avatarColor" json:"avatarColor"`
	ProfilePicture string             `bson:"profilePicture" json:"profilePicture"`
	Post           string             `bson:"post" json:"post"`
	BgColor        string             `bson:"bgColor" json:"bgColor"`
	Feelings       string             `bson:"feelings" json:"feelings"`
	Privacy        string             `bson:"privacy" json:"privacy"`
	GifURL         string             `bson:"gifUrl" json:"gifUrl"`
	ImgID          string             `bson:"imgId" json:"imgId"`
	ImgVersion     string             `bson:"imgVersion" json:"imgVersion"`
	CommentsCount  int                `bson:"commentsCount" json:"commentsCount"`
	Reactions      Reactions          `bson:"reactions" json:"reactions"`
	CreatedAt      time.Time          `bson:"createdAt" json:"createdAt"`
}

// HasImage reports whether the post carries an uploaded image or a gif link.
func (p *Post) HasImage() bool {
	return p.ImgID != "" || p.GifURL != ""
}
