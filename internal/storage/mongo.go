// Package storage is the durable-store layer over MongoDB. Stores are thin:
// one collection each, no caching, no cross-collection transactions. Counter
// adjustments that accompany a primary write are issued concurrently and
// awaited together; a partial failure leaves the counter and the document
// out of sync until the job retry closes the gap.
package storage

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	authCollection = "auth"
	userCollection = "users"
	postCollection = "posts"
)

// Connect dials MongoDB and verifies the connection before returning.
func Connect(ctx context.Context, uri, db string) (*mongo.Database, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, errors.Wrap(err, "connect mongo")
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, errors.Wrap(err, "ping mongo")
	}
	return client.Database(db), nil
}
