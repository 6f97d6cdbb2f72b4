package middlewares_test

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/geocoder89/userauth/internal/actorctx"
	"github.com/geocoder89/userauth/internal/auth"
	"github.com/geocoder89/userauth/internal/http/middlewares"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type outcomeRecorder struct {
	outcomes []string
}

func (o *outcomeRecorder) ObserveAuth(op, outcome string) {
	o.outcomes = append(o.outcomes, op+":"+outcome)
}

type protected struct {
	router *gin.Engine
	calls  int
}

func newProtected(t *testing.T, verifier middlewares.TokenVerifier, obs middlewares.AuthObserver) *protected {
	t.Helper()

	p := &protected{router: gin.New()}
	m := middlewares.NewAuthMiddleware(verifier, nil, obs)

	p.router.Use(middlewares.RequestID())
	p.router.GET("/me", m.RequireAuth(), func(c *gin.Context) {
		p.calls++

		id, ok := middlewares.UserIDFromContext(c)
		ctxID, ctxOK := actorctx.UserIDFrom(c.Request.Context())
		if !ok || !ctxOK || id != ctxID {
			c.Status(http.StatusTeapot)
			return
		}

		c.String(http.StatusOK, strconv.FormatInt(id, 10))
	})

	return p
}

func (p *protected) get(authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("X-Request-Id", "req-1")
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}

	w := httptest.NewRecorder()
	p.router.ServeHTTP(w, req)
	return w
}

func TestRequireAuth_ValidTokenPassesUserID(t *testing.T) {
	mgr := auth.NewManager("test-secret")
	token, _, err := mgr.IssueToken(42)
	require.NoError(t, err)

	obs := &outcomeRecorder{}
	p := newProtected(t, mgr, obs)

	for _, header := range []string{"Bearer " + token, "bearer " + token} {
		w := p.get(header)
		assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(t, "42", w.Body.String())
	}

	assert.Equal(t, 2, p.calls)
	assert.Equal(t, []string{"verify_token:ok", "verify_token:ok"}, obs.outcomes)
}

func TestRequireAuth_RejectionsAreIndistinguishable(t *testing.T) {
	mgr := auth.NewManager("test-secret")

	valid, _, err := mgr.IssueToken(7)
	require.NoError(t, err)

	foreign, _, err := auth.NewManager("other-secret").IssueToken(7)
	require.NoError(t, err)

	issuedLongAgo := mgr.WithClock(func() time.Time { return time.Now().Add(-8 * 24 * time.Hour) })
	expired, _, err := issuedLongAgo.IssueToken(7)
	require.NoError(t, err)

	// flip one full base64 character inside the signature
	i := len(valid) - 10
	repl := byte('A')
	if valid[i] == 'A' {
		repl = 'B'
	}
	tampered := valid[:i] + string(repl) + valid[i+1:]

	tests := []struct {
		name    string
		header  string
		outcome string
	}{
		{name: "no header", header: "", outcome: "missing"},
		{name: "wrong scheme", header: "Basic " + valid, outcome: "missing"},
		{name: "scheme only", header: "Bearer", outcome: "missing"},
		{name: "empty token", header: "Bearer   ", outcome: "missing"},
		{name: "garbage", header: "Bearer not.a.jwt", outcome: "invalid"},
		{name: "tampered signature", header: "Bearer " + tampered, outcome: "invalid"},
		{name: "foreign secret", header: "Bearer " + foreign, outcome: "invalid"},
		{name: "expired", header: "Bearer " + expired, outcome: "expired"},
	}

	var firstBody string

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obs := &outcomeRecorder{}
			p := newProtected(t, mgr, obs)

			w := p.get(tt.header)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Zero(t, p.calls, "handler must not run")
			assert.Equal(t, []string{"verify_token:" + tt.outcome}, obs.outcomes)

			if firstBody == "" {
				firstBody = w.Body.String()
			}
			assert.JSONEq(t, firstBody, w.Body.String())
		})
	}

	assert.JSONEq(t,
		`{"error":{"code":"unauthorized","message":"Missing, invalid or expired access token","requestId":"req-1"}}`,
		firstBody,
	)
}

func TestRequireAccess(t *testing.T) {
	mgr := auth.NewManager("test-secret")
	token, _, err := mgr.IssueToken(5)
	require.NoError(t, err)

	build := func(policy middlewares.AccessPolicy) *gin.Engine {
		m := middlewares.NewAuthMiddleware(mgr, nil, nil)
		r := gin.New()
		r.GET("/users/:id", m.RequireAuth(), m.RequireAccess(policy, "id"), func(c *gin.Context) {
			c.Status(http.StatusOK)
		})
		return r
	}

	tests := []struct {
		name   string
		policy middlewares.AccessPolicy
		path   string
		want   int
	}{
		{name: "any: own record", policy: middlewares.PolicyAnyAuthenticated, path: "/users/5", want: http.StatusOK},
		{name: "any: other record", policy: middlewares.PolicyAnyAuthenticated, path: "/users/6", want: http.StatusOK},
		{name: "owner: own record", policy: middlewares.PolicyOwnerOnly, path: "/users/5", want: http.StatusOK},
		{name: "owner: other record", policy: middlewares.PolicyOwnerOnly, path: "/users/6", want: http.StatusForbidden},
		{name: "owner: malformed id reaches handler", policy: middlewares.PolicyOwnerOnly, path: "/users/abc", want: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			req.Header.Set("Authorization", "Bearer "+token)

			w := httptest.NewRecorder()
			build(tt.policy).ServeHTTP(w, req)

			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}
}

func TestParseAccessPolicy(t *testing.T) {
	p, err := middlewares.ParseAccessPolicy("owner_only")
	require.NoError(t, err)
	assert.Equal(t, middlewares.PolicyOwnerOnly, p)

	_, err = middlewares.ParseAccessPolicy("root")
	assert.Error(t, err)
}
