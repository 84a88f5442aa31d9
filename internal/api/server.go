// Package api wires the HTTP surface and orchestrates the write pipeline:
// validate, cache write, broadcast, enqueue durable job, respond. Success is
// reported to the client once the side effects have been issued, not once
// the durable store has caught up.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"

	"github.com/chattyapp/chatty-server/internal/cache"
	"github.com/chattyapp/chatty-server/internal/config"
	"github.com/chattyapp/chatty-server/internal/domain"
	"github.com/chattyapp/chatty-server/internal/images"
	"github.com/chattyapp/chatty-server/internal/queue"
	"github.com/chattyapp/chatty-server/internal/realtime"
)

// AuthStorer is the auth-collection surface the handlers need.
type AuthStorer interface {
	GetByUsernameOrEmail(ctx context.Context, username, email string) (*domain.Auth, error)
	GetByUsername(ctx context.Context, username string) (*domain.Auth, error)
	GetByEmail(ctx context.Context, email string) (*domain.Auth, error)
	GetByPasswordToken(ctx context.Context, token string) (*domain.Auth, error)
	UpdatePasswordToken(ctx context.Context, authID, token string, expires time.Time) error
	UpdatePassword(ctx context.Context, authID, hashed string) error
}

// UserStorer is the profile-collection surface the handlers need.
type UserStorer interface {
	GetUserByID(ctx context.Context, userID string) (*domain.User, error)
	GetUserByAuthID(ctx context.Context, authID string) (*domain.User, error)
}

// PostStorer is the durable fallback for feed reads.
type PostStorer interface {
	GetPosts(ctx context.Context, filter bson.M, skip, limit int64, sort bson.D) ([]*domain.Post, error)
	CountPosts(ctx context.Context) (int64, error)
}

// Deps carries the explicitly constructed collaborators; nothing here is an
// ambient global.
type Deps struct {
	UserCache *cache.UserCache
	PostCache *cache.PostCache

	AuthStore AuthStorer
	UserStore UserStorer
	PostStore PostStorer

	AuthQueue  *queue.Queue
	UserQueue  *queue.Queue
	PostQueue  *queue.Queue
	EmailQueue *queue.Queue

	Emitter  realtime.Emitter
	Uploader images.Uploader

	// SocketHandler serves the websocket upgrade endpoint; nil disables it.
	SocketHandler http.Handler
}

type Server struct {
	cfg      config.Config
	log      *zap.Logger
	validate *validator.Validate
	deps     Deps
}

func NewServer(cfg config.Config, log *zap.Logger, deps Deps) *Server {
	return &Server{
		cfg:      cfg,
		log:      log.Named("api"),
		validate: validator.New(),
		deps:     deps,
	}
}

func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(s.requestLogger)
	r.Use(s.recoverer)

	r.Get("/health", s.handleHealth)
	if s.deps.SocketHandler != nil {
		r.Handle("/socket", s.deps.SocketHandler)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/signup", s.handleSignup)
		r.Post("/signin", s.handleSignin)
		r.Get("/signout", s.handleSignout)
		r.Post("/forgot-password", s.handleForgotPassword)
		r.Post("/reset-password/{token}", s.handleResetPassword)

		r.Group(func(r chi.Router) {
			r.Use(s.requireAuth)
			r.Get("/currentuser", s.handleCurrentUser)
			r.Get("/queues", s.handleQueueStats)

			r.Post("/post", s.handleCreatePost)
			r.Post("/post/image", s.handleCreatePostWithImage)
			r.Put("/post/{postId}", s.handleUpdatePost)
			r.Put("/post/image/{postId}", s.handleUpdatePostWithImage)
			r.Delete("/post/{postId}", s.handleDeletePost)
			r.Get("/post/all/{page}", s.handleGetPosts)
			r.Get("/post/images/{page}", s.handleGetPostsWithImages)
		})
	})
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respond(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleQueueStats is the queue monitoring surface; permanently failed jobs
// show up here and nowhere else.
func (s *Server) handleQueueStats(w http.ResponseWriter, r *http.Request) {
	out := make(map[string]queue.Stats)
	for _, q := range []*queue.Queue{s.deps.AuthQueue, s.deps.UserQueue, s.deps.PostQueue, s.deps.EmailQueue} {
		if q == nil {
			continue
		}
		stats, err := q.Stats(r.Context())
		if err != nil {
			s.writeError(w, err)
			return
		}
		out[q.Name()] = stats
	}
	s.respond(w, http.StatusOK, out)
}
