package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/chattyapp/chatty-server/internal/auth"
	"github.com/chattyapp/chatty-server/internal/domain"
)

type contextKey string

const currentUserKey contextKey = "currentUser"

// CurrentUser returns the authenticated claims placed by requireAuth.
func CurrentUser(ctx context.Context) (domain.AuthPayload, bool) {
	payload, ok := ctx.Value(currentUserKey).(domain.AuthPayload)
	return payload, ok
}

func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			s.writeError(w, domain.NewUnauthorizedError("Token is not available. Please login again."))
			return
		}
		token := strings.TrimPrefix(header, "Bearer ")
		payload, err := auth.VerifyToken(token, s.cfg.JWTSecret)
		if err != nil {
			s.writeError(w, err)
			return
		}
		ctx := context.WithValue(r.Context(), currentUserKey, payload)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.log.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)))
	})
}

func (s *Server) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.log.Error("panic in handler", zap.Any("panic", rec), zap.String("path", r.URL.Path))
				s.respond(w, http.StatusInternalServerError, errorBody{Message: "Internal server error"})
			}
		}()
		next.ServeHTTP(w, r)
	})
}
