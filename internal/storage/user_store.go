package storage

import (
	"context"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/chattyapp/chatty-server/internal/domain"
)

// UserStore owns the profile collection.
type UserStore struct {
	coll *mongo.Collection
}

func NewUserStore(db *mongo.Database) *UserStore {
	return &UserStore{coll: db.Collection(userCollection)}
}

func (s *UserStore) AddUser(ctx context.Context, user *domain.User) error {
	_, err := s.coll.InsertOne(ctx, user)
	return errors.Wrap(err, "insert user")
}

func (s *UserStore) GetUserByID(ctx context.Context, userID string) (*domain.User, error) {
	id, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, errors.Wrap(err, "parse user id")
	}
	return s.findOne(ctx, bson.M{"_id": id})
}

func (s *UserStore) GetUserByAuthID(ctx context.Context, authID string) (*domain.User, error) {
	id, err := primitive.ObjectIDFromHex(authID)
	if err != nil {
		return nil, errors.Wrap(err, "parse auth id")
	}
	return s.findOne(ctx, bson.M{"authId": id})
}

// IncrementPostsCount adjusts the denormalized counter by delta, which may
// be negative.
func (s *UserStore) IncrementPostsCount(ctx context.Context, userID string, delta int) error {
	id, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return errors.Wrap(err, "parse user id")
	}
	_, err = s.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$inc": bson.M{"postsCount": delta}})
	return errors.Wrap(err, "increment posts count")
}

func (s *UserStore) findOne(ctx context.Context, filter bson.M) (*domain.User, error) {
	var user domain.User
	err := s.coll.FindOne(ctx, filter).Decode(&user)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "find user")
	}
	return &user, nil
}
