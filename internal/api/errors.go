package api

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/chattyapp/chatty-server/internal/domain"
)

type errorBody struct {
	Message string `json:"message"`
}

// writeError maps the error taxonomy to statuses. Anything unclassified is
// reported generically; the cause is logged, never leaked.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	switch {
	case domain.IsValidation(err):
		s.respond(w, http.StatusBadRequest, errorBody{Message: err.Error()})
	case domain.IsUnauthorized(err):
		s.respond(w, http.StatusUnauthorized, errorBody{Message: err.Error()})
	case domain.IsNotFound(err):
		s.respond(w, http.StatusNotFound, errorBody{Message: err.Error()})
	case domain.IsConflict(err):
		s.respond(w, http.StatusConflict, errorBody{Message: err.Error()})
	default:
		s.log.Error("internal error", zap.Error(err))
		s.respond(w, http.StatusInternalServerError, errorBody{Message: "Internal server error"})
	}
}
