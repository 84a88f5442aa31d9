package workers

import (
	"context"

	"github.com/pkg/errors"

	"github.com/chattyapp/chatty-server/internal/domain"
	"github.com/chattyapp/chatty-server/internal/queue"
)

// AddAuthUser persists the credentials document created at signup.
func AddAuthUser(store AuthPersister) queue.HandlerFunc {
	return func(ctx context.Context, job *domain.Job) error {
		var payload domain.KeyValueJob[domain.Auth]
		if err := job.DecodePayload(&payload); err != nil {
			return errors.Wrap(err, "decode auth payload")
		}
		return store.AddAuthUser(ctx, &payload.Value)
	}
}
