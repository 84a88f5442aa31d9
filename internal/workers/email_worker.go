package workers

import (
	"context"

	"github.com/pkg/errors"

	"github.com/chattyapp/chatty-server/internal/domain"
	"github.com/chattyapp/chatty-server/internal/mail"
	"github.com/chattyapp/chatty-server/internal/queue"
)

// SendEmail delivers a rendered message through the mail transport.
func SendEmail(sender mail.Sender) queue.HandlerFunc {
	return func(ctx context.Context, job *domain.Job) error {
		var payload domain.EmailJob
		if err := job.DecodePayload(&payload); err != nil {
			return errors.Wrap(err, "decode email payload")
		}
		return sender.Send(payload.Receiver, payload.Subject, payload.Body)
	}
}
