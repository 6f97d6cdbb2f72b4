package middlewares

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// AccessPolicy decides whether an authenticated caller may act on the user
// record named in the path.
type AccessPolicy string

const (
	// any token holder may read, update or delete any user record
	PolicyAnyAuthenticated AccessPolicy = "any_authenticated"
	// callers may only act on their own record
	PolicyOwnerOnly AccessPolicy = "owner_only"
)

func ParseAccessPolicy(s string) (AccessPolicy, error) {
	switch p := AccessPolicy(s); p {
	case PolicyAnyAuthenticated, PolicyOwnerOnly:
		return p, nil
	default:
		return "", fmt.Errorf("unknown access policy %q", s)
	}
}

// RequireAccess runs after RequireAuth on routes that target one user by
// the :param path segment. Malformed ids fall through to the handler, which
// reports them as validation errors.
func (m *AuthMiddleware) RequireAccess(policy AccessPolicy, param string) gin.HandlerFunc {
	return func(c *gin.Context) {
		callerID, ok := UserIDFromContext(c)

		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{
					"code":      "unauthorized",
					"message":   unauthorizedMessage,
					"requestId": c.GetString(CtxRequestID),
				},
			})
			return
		}

		if policy != PolicyOwnerOnly {
			c.Next()
			return
		}

		targetID, err := strconv.ParseInt(c.Param(param), 10, 64)
		if err != nil {
			c.Next()
			return
		}

		if targetID != callerID {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": gin.H{
					"code":      "forbidden",
					"message":   "You may only access your own account",
					"requestId": c.GetString(CtxRequestID),
				},
			})
			return
		}
		c.Next()
	}
}
