package storage

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/chattyapp/chatty-server/internal/domain"
)

// AuthStore owns the credentials collection.
type AuthStore struct {
	coll *mongo.Collection
}

func NewAuthStore(db *mongo.Database) *AuthStore {
	return &AuthStore{coll: db.Collection(authCollection)}
}

func (s *AuthStore) AddAuthUser(ctx context.Context, auth *domain.Auth) error {
	_, err := s.coll.InsertOne(ctx, auth)
	return errors.Wrap(err, "insert auth user")
}

// GetByUsernameOrEmail returns nil when neither identity exists. It backs the
// duplicate-identity check at signup.
func (s *AuthStore) GetByUsernameOrEmail(ctx context.Context, username, email string) (*domain.Auth, error) {
	filter := bson.M{"$or": []bson.M{{"username": username}, {"email": email}}}
	return s.findOne(ctx, filter)
}

func (s *AuthStore) GetByUsername(ctx context.Context, username string) (*domain.Auth, error) {
	return s.findOne(ctx, bson.M{"username": username})
}

func (s *AuthStore) GetByEmail(ctx context.Context, email string) (*domain.Auth, error) {
	return s.findOne(ctx, bson.M{"email": email})
}

// GetByPasswordToken matches only unexpired reset tokens.
func (s *AuthStore) GetByPasswordToken(ctx context.Context, token string) (*domain.Auth, error) {
	filter := bson.M{
		"passwordResetToken":   token,
		"passwordResetExpires": bson.M{"$gt": time.Now()},
	}
	return s.findOne(ctx, filter)
}

func (s *AuthStore) UpdatePasswordToken(ctx context.Context, authID string, token string, expires time.Time) error {
	id, err := primitive.ObjectIDFromHex(authID)
	if err != nil {
		return errors.Wrap(err, "parse auth id")
	}
	_, err = s.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{"passwordResetToken": token, "passwordResetExpires": expires},
	})
	return errors.Wrap(err, "update password token")
}

// UpdatePassword replaces the hash and clears any outstanding reset token.
func (s *AuthStore) UpdatePassword(ctx context.Context, authID string, hashed string) error {
	id, err := primitive.ObjectIDFromHex(authID)
	if err != nil {
		return errors.Wrap(err, "parse auth id")
	}
	_, err = s.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set":   bson.M{"password": hashed},
		"$unset": bson.M{"passwordResetToken": "", "passwordResetExpires": ""},
	})
	return errors.Wrap(err, "update password")
}

func (s *AuthStore) findOne(ctx context.Context, filter bson.M) (*domain.Auth, error) {
	var auth domain.Auth
	err := s.coll.FindOne(ctx, filter).Decode(&auth)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "find auth user")
	}
	return &auth, nil
}
