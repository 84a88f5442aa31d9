package workers

import (
	"context"

	"github.com/pkg/errors"

	"github.com/chattyapp/chatty-server/internal/domain"
	"github.com/chattyapp/chatty-server/internal/queue"
)

// AddPost inserts the post and bumps the owner's postsCount.
func AddPost(store PostPersister) queue.HandlerFunc {
	return func(ctx context.Context, job *domain.Job) error {
		var payload domain.KeyValueJob[domain.Post]
		if err := job.DecodePayload(&payload); err != nil {
			return errors.Wrap(err, "decode post payload")
		}
		return store.AddPost(ctx, payload.Key, &payload.Value)
	}
}

// UpdatePost applies the merged record produced by the cache layer.
func UpdatePost(store PostPersister) queue.HandlerFunc {
	return func(ctx context.Context, job *domain.Job) error {
		var payload domain.KeyValueJob[domain.Post]
		if err := job.DecodePayload(&payload); err != nil {
			return errors.Wrap(err, "decode post payload")
		}
		return store.UpdatePost(ctx, payload.Key, &payload.Value)
	}
}

// DeletePost removes the post and decrements the owner's postsCount.
func DeletePost(store PostPersister) queue.HandlerFunc {
	return func(ctx context.Context, job *domain.Job) error {
		var payload domain.KeyPairJob
		if err := job.DecodePayload(&payload); err != nil {
			return errors.Wrap(err, "decode post payload")
		}
		return store.DeletePost(ctx, payload.KeyOne, payload.KeyTwo)
	}
}
