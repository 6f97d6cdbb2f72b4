package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/geocoder89/userauth/internal/config"
	"github.com/geocoder89/userauth/internal/domain/user"
	"github.com/geocoder89/userauth/internal/security"
	"github.com/gin-gonic/gin"
)

type CredentialStore interface {
	Create(ctx context.Context, email, passwordHash, name string) (user.User, error)
	GetByEmail(ctx context.Context, email string) (user.User, error)
}

type TokenIssuer interface {
	IssueToken(userID int64) (string, time.Time, error)
}

type PasswordHasher interface {
	Hash(plain string) (string, error)
	Verify(plain, hash string) bool
	VerifyMissing(plain string) bool
}

type AuthObserver interface {
	ObserveAuth(op, outcome string)
}

type AuthHandler struct {
	users  CredentialStore
	tokens TokenIssuer
	hasher PasswordHasher
	log    *slog.Logger
	obs    AuthObserver
}

func NewAuthHandler(users CredentialStore, tokens TokenIssuer, hasher PasswordHasher, log *slog.Logger, obs AuthObserver) *AuthHandler {
	if log == nil {
		log = slog.Default()
	}
	return &AuthHandler{
		users:  users,
		tokens: tokens,
		hasher: hasher,
		log:    log,
		obs:    obs,
	}
}

type authResponse struct {
	Message   string    `json:"message"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	User      user.User `json:"user"`
}

func (h *AuthHandler) Register(ctx *gin.Context) {
	var req user.RegisterRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	// fast path only, the unique constraint still decides races below
	_, err := h.users.GetByEmail(cctx, req.Email)
	switch {
	case err == nil:
		h.observe("register", "email_taken")
		RespondEmailTaken(ctx)
		return
	case !errors.Is(err, user.ErrNotFound):
		h.log.ErrorContext(cctx, "register: lookup failed", "err", err)
		RespondInternal(ctx, "Could not create user")
		return
	}

	hash, err := h.hasher.Hash(req.Password)
	if errors.Is(err, security.ErrPasswordTooLong) {
		RespondBadRequest(ctx, "Invalid request body", gin.H{
			"fields": []FieldError{{Field: "password", Rule: "bcryptlen", Message: validationMessage("bcryptlen", "")}},
		})
		return
	}
	if err != nil {
		h.log.ErrorContext(cctx, "register: hash failed", "err", err)
		RespondInternal(ctx, "Could not create user")
		return
	}

	u, err := h.users.Create(cctx, req.Email, hash, req.Name)
	if err != nil {
		if errors.Is(err, user.ErrEmailTaken) {
			h.observe("register", "email_taken")
			RespondEmailTaken(ctx)
			return
		}

		h.log.ErrorContext(cctx, "register: create failed", "err", err)
		RespondInternal(ctx, "Could not create user")
		return
	}

	token, expiresAt, err := h.tokens.IssueToken(u.ID)
	if err != nil {
		h.log.ErrorContext(cctx, "register: issue token failed", "err", err, "user_id", u.ID)
		RespondInternal(ctx, "Could not generate access token")
		return
	}

	h.observe("register", "ok")

	ctx.JSON(http.StatusCreated, authResponse{
		Message:   "User created successfully",
		Token:     token,
		ExpiresAt: expiresAt,
		User:      u,
	})
}

func (h *AuthHandler) Login(ctx *gin.Context) {
	var req user.LoginRequest

	if !BindJSON(ctx, &req) {
		return
	}

	// short timeout for the lookup
	cctx, cancel := config.WithTimeout(ctx.Request.Context(), 2*time.Second)
	defer cancel()

	found, err := h.users.GetByEmail(cctx, req.Email)
	if err != nil {
		if !errors.Is(err, user.ErrNotFound) {
			h.log.ErrorContext(cctx, "login: lookup failed", "err", err)
			RespondInternal(ctx, "Could not log in")
			return
		}

		h.hasher.VerifyMissing(req.Password)
		h.observe("login", "invalid_credentials")
		RespondInvalidCredentials(ctx)
		return
	}

	if !h.hasher.Verify(req.Password, found.PasswordHash) {
		h.observe("login", "invalid_credentials")
		RespondInvalidCredentials(ctx)
		return
	}

	token, expiresAt, err := h.tokens.IssueToken(found.ID)
	if err != nil {
		h.log.ErrorContext(cctx, "login: issue token failed", "err", err, "user_id", found.ID)
		RespondInternal(ctx, "Could not generate access token")
		return
	}

	h.observe("login", "ok")

	ctx.JSON(http.StatusOK, authResponse{
		Message:   "Login successful",
		Token:     token,
		ExpiresAt: expiresAt,
		User:      found,
	})
}

func (h *AuthHandler) observe(op, outcome string) {
	if h.obs != nil {
		h.obs.ObserveAuth(op, outcome)
	}
}
