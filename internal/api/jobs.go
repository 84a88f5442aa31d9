package api

import (
	"context"

	"go.uber.org/zap"

	"github.com/chattyapp/chatty-server/internal/queue"
)

// enqueue submits a durable job fire-and-forget. The request has usually
// already succeeded as far as the client is concerned; a submission failure
// is logged and absorbed, consistent with the eventual-consistency contract.
func (s *Server) enqueue(ctx context.Context, q *queue.Queue, jobType string, payload any) {
	if _, err := q.Enqueue(ctx, jobType, payload); err != nil {
		s.log.Error("enqueue failed",
			zap.String("queue", q.Name()),
			zap.String("jobType", jobType),
			zap.Error(err))
	}
}
