package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"

	"github.com/chattyapp/chatty-server/internal/domain"
)

type claims struct {
	UserID      string `json:"userId"`
	UID         string `json:"uId"`
	Username    string `json:"username"`
	Email       string `json:"email"`
	AvatarColor string `json:"avatarColor"`
	jwt.RegisteredClaims
}

// SignToken issues the session token carrying the identity snapshot that
// post creation later copies into author snapshots.
func SignToken(payload domain.AuthPayload, secret string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		UserID:      payload.UserID,
		UID:         payload.UID,
		Username:    payload.Username,
		Email:       payload.Email,
		AvatarColor: payload.AvatarColor,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(time.Now()),
		},
	})
	signed, err := token.SignedString([]byte(secret))
	return signed, errors.Wrap(err, "sign token")
}

// VerifyToken parses and validates the token, returning its claims.
func VerifyToken(tokenString, secret string) (domain.AuthPayload, error) {
	var c claims
	_, err := jwt.ParseWithClaims(tokenString, &c, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return domain.AuthPayload{}, domain.NewUnauthorizedError("Invalid token")
	}
	return domain.AuthPayload{
		UserID:      c.UserID,
		UID:         c.UID,
		Username:    c.Username,
		Email:       c.Email,
		AvatarColor: c.AvatarColor,
	}, nil
}
