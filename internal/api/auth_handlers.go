package api

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/chattyapp/chatty-server/internal/auth"
	"github.com/chattyapp/chatty-server/internal/domain"
	"github.com/chattyapp/chatty-server/internal/images"
	"github.com/chattyapp/chatty-server/internal/mail"
	"github.com/chattyapp/chatty-server/internal/realtime"
)

type signupRequest struct {
	Username    string `json:"username" validate:"required,min=4,max=8"`
	Password    string `json:"password" validate:"required,min=4,max=8"`
	Email       string `json:"email" validate:"required,email"`
	AvatarColor string `json:"avatarColor" validate:"required"`
	AvatarImage string `json:"avatarImage" validate:"required"`
}

type authResponse struct {
	Message string       `json:"message"`
	User    *domain.User `json:"user"`
	Token   string       `json:"token"`
}

// handleSignup runs the full signup pipeline: conflict check, avatar upload,
// cache write, broadcast, durable jobs, token. Upload failure aborts with no
// side effects; a cache write failure stops broadcast and enqueue.
func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := s.decodeAndValidate(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	ctx := r.Context()
	username := titleCase(req.Username)
	email := strings.ToLower(req.Email)

	existing, err := s.deps.AuthStore.GetByUsernameOrEmail(ctx, username, email)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if existing != nil {
		s.writeError(w, domain.NewConflictError("Invalid credentials"))
		return
	}

	authID := primitive.NewObjectID()
	userID := primitive.NewObjectID()
	uid := randomDigits(12)

	hashed, err := auth.HashPassword(req.Password)
	if err != nil {
		s.writeError(w, err)
		return
	}

	result, err := s.deps.Uploader.Upload(ctx, req.AvatarImage, userID.Hex())
	if err != nil {
		s.writeError(w, domain.NewValidationError("File upload error"))
		return
	}

	now := time.Now().UTC()
	authData := &domain.Auth{
		ID:          authID,
		UID:         uid,
		Username:    username,
		Email:       email,
		Password:    hashed,
		AvatarColor: req.AvatarColor,
		CreatedAt:   now,
	}
	user := newUserFromAuth(authData, userID)
	user.ProfilePicture = images.PictureURL(s.cfg.CloudName, result.Version, userID.Hex())

	if err := s.deps.UserCache.SaveUser(ctx, userID.Hex(), uid, user); err != nil {
		s.writeError(w, err)
		return
	}
	s.deps.Emitter.Emit(realtime.EventUserCreated, user)

	s.enqueue(ctx, s.deps.AuthQueue, domain.JobAddAuthUser, domain.KeyValueJob[domain.Auth]{Value: *authData})
	s.enqueue(ctx, s.deps.UserQueue, domain.JobAddUser, domain.KeyValueJob[domain.User]{Value: *user})

	token, err := auth.SignToken(domain.AuthPayload{
		UserID:      userID.Hex(),
		UID:         uid,
		Username:    username,
		Email:       email,
		AvatarColor: req.AvatarColor,
	}, s.cfg.JWTSecret)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.respond(w, http.StatusCreated, authResponse{Message: "User created successfully", User: user, Token: token})
}

func newUserFromAuth(a *domain.Auth, userID primitive.ObjectID) *domain.User {
	return &domain.User{
		ID:          userID,
		AuthID:      a.ID,
		UID:         a.UID,
		Username:    a.Username,
		Email:       a.Email,
		AvatarColor: a.AvatarColor,
		Blocked:     []primitive.ObjectID{},
		BlockedBy:   []primitive.ObjectID{},
		Notifications: domain.NotificationSettings{
			Messages:  true,
			Reactions: true,
			Comments:  true,
			Follows:   true,
		},
		Social:    domain.SocialLinks{},
		CreatedAt: a.CreatedAt,
	}
}

type signinRequest struct {
	Username string `json:"username" validate:"required,min=4,max=8"`
	Password string `json:"password" validate:"required,min=4,max=8"`
}

func (s *Server) handleSignin(w http.ResponseWriter, r *http.Request) {
	var req signinRequest
	if err := s.decodeAndValidate(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	ctx := r.Context()

	existing, err := s.deps.AuthStore.GetByUsername(ctx, titleCase(req.Username))
	if err != nil {
		s.writeError(w, err)
		return
	}
	if existing == nil || !auth.ComparePassword(existing.Password, req.Password) {
		s.writeError(w, domain.NewValidationError("Invalid credentials"))
		return
	}

	user, err := s.deps.UserStore.GetUserByAuthID(ctx, existing.ID.Hex())
	if err != nil {
		s.writeError(w, err)
		return
	}
	if user == nil {
		s.writeError(w, domain.NewValidationError("Invalid credentials"))
		return
	}

	token, err := auth.SignToken(domain.AuthPayload{
		UserID:      user.ID.Hex(),
		UID:         existing.UID,
		Username:    existing.Username,
		Email:       existing.Email,
		AvatarColor: existing.AvatarColor,
	}, s.cfg.JWTSecret)
	if err != nil {
		s.writeError(w, err)
		return
	}

	user.UID = existing.UID
	user.Username = existing.Username
	user.Email = existing.Email
	user.AvatarColor = existing.AvatarColor
	user.CreatedAt = existing.CreatedAt

	s.respond(w, http.StatusOK, authResponse{Message: "User logged in successfully", User: user, Token: token})
}

func (s *Server) handleSignout(w http.ResponseWriter, r *http.Request) {
	// stateless tokens: nothing to revoke server-side
	s.respond(w, http.StatusOK, map[string]string{"message": "Logout successful"})
}

type currentUserResponse struct {
	IsUser bool         `json:"isUser"`
	User   *domain.User `json:"user"`
}

// handleCurrentUser is a cache-first read with a durable-store fallback and
// cache repopulation on miss.
func (s *Server) handleCurrentUser(w http.ResponseWriter, r *http.Request) {
	claims, _ := CurrentUser(r.Context())
	ctx := r.Context()

	user, err := s.deps.UserCache.GetUser(ctx, claims.UserID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if user == nil {
		user, err = s.deps.UserStore.GetUserByID(ctx, claims.UserID)
		if err != nil {
			s.writeError(w, err)
			return
		}
		if user != nil {
			if err := s.deps.UserCache.SaveUser(ctx, claims.UserID, user.UID, user); err != nil {
				s.writeError(w, err)
				return
			}
		}
	}
	s.respond(w, http.StatusOK, currentUserResponse{IsUser: user != nil, User: user})
}

type forgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

func (s *Server) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if err := s.decodeAndValidate(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	ctx := r.Context()

	existing, err := s.deps.AuthStore.GetByEmail(ctx, strings.ToLower(req.Email))
	if err != nil {
		s.writeError(w, err)
		return
	}
	if existing == nil {
		s.writeError(w, domain.NewValidationError("Invalid credentials"))
		return
	}

	raw := make([]byte, 20)
	if _, err := rand.Read(raw); err != nil {
		s.writeError(w, err)
		return
	}
	token := hex.EncodeToString(raw)

	if err := s.deps.AuthStore.UpdatePasswordToken(ctx, existing.ID.Hex(), token, time.Now().Add(time.Hour)); err != nil {
		s.writeError(w, err)
		return
	}

	resetLink := s.cfg.ClientURL + "/reset-password?token=" + token
	body, err := mail.RenderForgotPassword(mail.ForgotPasswordParams{Username: existing.Username, ResetLink: resetLink})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.enqueue(ctx, s.deps.EmailQueue, domain.JobForgotPasswordEmail, domain.EmailJob{
		Receiver: existing.Email,
		Subject:  "Reset your password",
		Body:     body,
	})
	s.respond(w, http.StatusOK, map[string]string{"message": "Password reset email sent"})
}

type resetPasswordRequest struct {
	Password        string `json:"password" validate:"required,min=4,max=8"`
	ConfirmPassword string `json:"confirmPassword" validate:"required,eqfield=Password"`
}

func (s *Server) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := s.decodeAndValidate(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	ctx := r.Context()

	existing, err := s.deps.AuthStore.GetByPasswordToken(ctx, chi.URLParam(r, "token"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	if existing == nil {
		s.writeError(w, domain.NewValidationError("Reset token has expired"))
		return
	}

	hashed, err := auth.HashPassword(req.Password)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.deps.AuthStore.UpdatePassword(ctx, existing.ID.Hex(), hashed); err != nil {
		s.writeError(w, err)
		return
	}

	body, err := mail.RenderResetConfirmation(mail.ResetConfirmationParams{
		Username:  existing.Username,
		Email:     existing.Email,
		IPAddress: clientIP(r),
		Date:      time.Now().Format("2006/01/02 15:04"),
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.enqueue(ctx, s.deps.EmailQueue, domain.JobForgotPasswordEmail, domain.EmailJob{
		Receiver: existing.Email,
		Subject:  "Password reset confirmation",
		Body:     body,
	})
	s.respond(w, http.StatusOK, map[string]string{"message": "Password successfully updated"})
}
