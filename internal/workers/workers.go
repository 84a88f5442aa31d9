// Package workers holds the job handlers: one handler per job type, each
// performing exactly one durable-store unit of work. A handler reports
// failure by returning the error; the queue's retry policy takes it from
// there. Handlers never panic outward.
package workers

import (
	"context"

	"go.uber.org/zap"

	"github.com/chattyapp/chatty-server/internal/domain"
	"github.com/chattyapp/chatty-server/internal/mail"
	"github.com/chattyapp/chatty-server/internal/queue"
)

type AuthPersister interface {
	AddAuthUser(ctx context.Context, auth *domain.Auth) error
}

type UserPersister interface {
	AddUser(ctx context.Context, user *domain.User) error
}

type PostPersister interface {
	AddPost(ctx context.Context, userID string, post *domain.Post) error
	UpdatePost(ctx context.Context, postID string, post *domain.Post) error
	DeletePost(ctx context.Context, postID, userID string) error
}

// DefaultConcurrency is the per-job-type handler ceiling when Deps leaves
// Concurrency unset.
const DefaultConcurrency = 5

type Deps struct {
	AuthStore   AuthPersister
	UserStore   UserPersister
	PostStore   PostPersister
	Sender      mail.Sender
	Concurrency int
	Log         *zap.Logger
}

// RegisterAll binds every handler on its queue's worker.
func RegisterAll(authW, userW, postW, emailW *queue.Worker, deps Deps) {
	n := deps.Concurrency
	if n < 1 {
		n = DefaultConcurrency
	}
	authW.Register(domain.JobAddAuthUser, n, AddAuthUser(deps.AuthStore))
	userW.Register(domain.JobAddUser, n, AddUser(deps.UserStore))
	postW.Register(domain.JobAddPost, n, AddPost(deps.PostStore))
	postW.Register(domain.JobUpdatePost, n, UpdatePost(deps.PostStore))
	postW.Register(domain.JobDeletePost, n, DeletePost(deps.PostStore))
	emailW.Register(domain.JobForgotPasswordEmail, n, SendEmail(deps.Sender))
}
