// Package cache holds the Redis read-path: denormalized hash records per
// entity plus sorted-set indexes for feed pagination. Records are stored
// flattened as field/value strings; numeric and JSON subfields are re-parsed
// on every read.
package cache

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/chattyapp/chatty-server/internal/domain"
)

const (
	userZSet = "user"
	postZSet = "post"

	userKeyPrefix = "users:"
	postKeyPrefix = "posts:"
)

// upstream logs the real cause and returns the generic internal
// classification. Callers never see fine-grained cache error kinds.
func upstream(log *zap.Logger, op string, err error) error {
	log.Error(op, zap.Error(err))
	return errors.Wrap(domain.ErrUpstream, op)
}

func intField(n int) string {
	return strconv.Itoa(n)
}

func parseIntField(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

func parseTimeField(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func jsonField(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

func parseJSONField(s string, v any) {
	if s == "" {
		return
	}
	// malformed subfields leave the zero value in place
	_ = json.Unmarshal([]byte(s), v)
}

func scoreFromUID(uid string) float64 {
	score, err := strconv.ParseFloat(uid, 64)
	if err != nil {
		return 0
	}
	return score
}
