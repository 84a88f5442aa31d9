package storage

import (
	"context"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/sync/errgroup"

	"github.com/chattyapp/chatty-server/internal/domain"
)

// PostStore owns the posts collection and the postsCount adjustments that
// ride along with post writes.
type PostStore struct {
	coll  *mongo.Collection
	users *UserStore
}

func NewPostStore(db *mongo.Database, users *UserStore) *PostStore {
	return &PostStore{coll: db.Collection(postCollection), users: users}
}

// AddPost inserts the post and bumps the owner's postsCount. The two writes
// go to different collections and are not atomic together.
func (s *PostStore) AddPost(ctx context.Context, userID string, post *domain.Post) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		_, err := s.coll.InsertOne(gctx, post)
		return errors.Wrap(err, "insert post")
	})
	g.Go(func() error {
		return s.users.IncrementPostsCount(gctx, userID, 1)
	})
	return g.Wait()
}

// UpdatePost replaces the mutable fields with the merged record produced by
// the cache layer.
func (s *PostStore) UpdatePost(ctx context.Context, postID string, post *domain.Post) error {
	id, err := primitive.ObjectIDFromHex(postID)
	if err != nil {
		return errors.Wrap(err, "parse post id")
	}
	update := bson.M{"$set": bson.M{
		"post":           post.Post,
		"bgColor":        post.BgColor,
		"feelings":       post.Feelings,
		"privacy":        post.Privacy,
		"gifUrl":         post.GifURL,
		"imgId":          post.ImgID,
		"imgVersion":     post.ImgVersion,
		"profilePicture": post.ProfilePicture,
	}}
	_, err = s.coll.UpdateOne(ctx, bson.M{"_id": id}, update)
	return errors.Wrap(err, "update post")
}

// DeletePost removes the post and decrements the owner's postsCount, again
// without cross-collection atomicity.
func (s *PostStore) DeletePost(ctx context.Context, postID, userID string) error {
	id, err := primitive.ObjectIDFromHex(postID)
	if err != nil {
		return errors.Wrap(err, "parse post id")
	}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		_, err := s.coll.DeleteOne(gctx, bson.M{"_id": id})
		return errors.Wrap(err, "delete post")
	})
	g.Go(func() error {
		return s.users.IncrementPostsCount(gctx, userID, -1)
	})
	return g.Wait()
}

// GetPosts runs a match/sort/skip/limit aggregation for durable feed reads.
func (s *PostStore) GetPosts(ctx context.Context, filter bson.M, skip, limit int64, sort bson.D) ([]*domain.Post, error) {
	pipeline := mongo.Pipeline{
		bson.D{{Key: "$match", Value: filter}},
		bson.D{{Key: "$sort", Value: sort}},
		bson.D{{Key: "$skip", Value: skip}},
		bson.D{{Key: "$limit", Value: limit}},
	}
	cur, err := s.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, errors.Wrap(err, "aggregate posts")
	}
	defer cur.Close(ctx)
	var posts []*domain.Post
	if err := cur.All(ctx, &posts); err != nil {
		return nil, errors.Wrap(err, "decode posts")
	}
	return posts, nil
}

// PostsWithImagesFilter matches posts that carry an uploaded image or a gif.
func PostsWithImagesFilter() bson.M {
	return bson.M{"$or": []bson.M{
		{"imgId": bson.M{"$ne": ""}},
		{"gifUrl": bson.M{"$ne": ""}},
	}}
}

func (s *PostStore) CountPosts(ctx context.Context) (int64, error) {
	n, err := s.coll.CountDocuments(ctx, bson.M{})
	return n, errors.Wrap(err, "count posts")
}
