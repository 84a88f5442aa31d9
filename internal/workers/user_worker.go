package workers

import (
	"context"

	"github.com/pkg/errors"

	"github.com/chattyapp/chatty-server/internal/domain"
	"github.com/chattyapp/chatty-server/internal/queue"
)

// AddUser persists the profile document created at signup.
func AddUser(store UserPersister) queue.HandlerFunc {
	return func(ctx context.Context, job *domain.Job) error {
		var payload domain.KeyValueJob[domain.User]
		if err := job.DecodePayload(&payload); err != nil {
			return errors.Wrap(err, "decode user payload")
		}
		return store.AddUser(ctx, &payload.Value)
	}
}
