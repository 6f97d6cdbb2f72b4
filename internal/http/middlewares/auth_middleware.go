package middlewares

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/geocoder89/userauth/internal/actorctx"
	"github.com/geocoder89/userauth/internal/auth"
	"github.com/gin-gonic/gin"
)

// Keep this small interface so tests can fake it easily.
type TokenVerifier interface {
	VerifyToken(token string) (int64, error)
}

type AuthObserver interface {
	ObserveAuth(op, outcome string)
}

type AuthMiddleware struct {
	jwt TokenVerifier
	log *slog.Logger
	obs AuthObserver
}

func NewAuthMiddleware(jwt TokenVerifier, log *slog.Logger, obs AuthObserver) *AuthMiddleware {
	if log == nil {
		log = slog.Default()
	}
	return &AuthMiddleware{jwt: jwt, log: log, obs: obs}
}

// One body for every failure: callers cannot tell a missing token from a
// forged or expired one.
const unauthorizedMessage = "Missing, invalid or expired access token"

func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			m.reject(c, "missing")
			return
		}

		userID, err := m.jwt.VerifyToken(raw)
		if err != nil {
			outcome := "invalid"
			if errors.Is(err, auth.ErrTokenExpired) {
				outcome = "expired"
			}
			m.reject(c, outcome)
			return
		}

		m.observe("ok")

		c.Set(CtxUserID, userID)
		c.Request = c.Request.WithContext(actorctx.WithUserID(c.Request.Context(), userID))

		c.Next()
	}
}

func (m *AuthMiddleware) reject(c *gin.Context, outcome string) {
	m.observe(outcome)

	m.log.DebugContext(c.Request.Context(), "auth rejected",
		"outcome", outcome,
		"route", c.FullPath(),
		"request_id", c.GetString(CtxRequestID),
	)

	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error": gin.H{
			"code":      "unauthorized",
			"message":   unauthorizedMessage,
			"requestId": c.GetString(CtxRequestID),
		},
	})
}

func (m *AuthMiddleware) observe(outcome string) {
	if m.obs != nil {
		m.obs.ObserveAuth("verify_token", outcome)
	}
}

// bearerToken extracts the credential of an "Authorization: Bearer <token>"
// header. The scheme is case-insensitive.
func bearerToken(header string) (string, bool) {
	scheme, raw, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}

	raw = strings.TrimSpace(raw)
	if raw == "" || strings.ContainsAny(raw, " \t") {
		return "", false
	}

	return raw, true
}

// Optional helper so handlers don't need to know the magic key.
func UserIDFromContext(c *gin.Context) (int64, bool) {
	v, ok := c.Get(CtxUserID)
	if !ok {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok && id > 0
}
