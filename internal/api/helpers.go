package api

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"math/big"
	"net"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/chattyapp/chatty-server/internal/domain"
)

const pageSize = 10

func (s *Server) respond(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// decodeAndValidate decodes the JSON body into v and applies the struct's
// validation rules. Failures surface as validation errors before any
// pipeline side effect.
func (s *Server) decodeAndValidate(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return domain.NewValidationError("Invalid request body")
	}
	if err := s.validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return domain.NewValidationError("%s is invalid", strings.ToLower(verrs[0].Field()))
		}
		return domain.NewValidationError("Invalid request body")
	}
	return nil
}

// pageBounds computes the pagination offsets. The durable store skips
// zero-based; the cache index skips one further except on the first page.
func pageBounds(page int) (skip, limit, cacheSkip int64) {
	skip = int64(page-1) * pageSize
	limit = int64(page) * pageSize
	cacheSkip = skip
	if skip != 0 {
		cacheSkip = skip + 1
	}
	return skip, limit, cacheSkip
}

func capPosts(posts []*domain.Post) []*domain.Post {
	if len(posts) > pageSize {
		return posts[:pageSize]
	}
	return posts
}

// titleCase uppercases the first letter, matching how usernames are
// canonicalized at signup and lookup.
func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}

// randomDigits generates the numeric uid used as the cache index score.
func randomDigits(n int) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		max := int64(10)
		if i == 0 {
			max = 9 // no leading zero
		}
		d, err := rand.Int(rand.Reader, big.NewInt(max))
		if err != nil {
			b.WriteByte('1')
			continue
		}
		if i == 0 {
			b.WriteByte(byte('1' + d.Int64()))
			continue
		}
		b.WriteByte(byte('0' + d.Int64()))
	}
	return b.String()
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return strings.TrimSpace(strings.Split(fwd, ",")[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
