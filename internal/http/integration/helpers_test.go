package integration_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/geocoder89/userauth/internal/auth"
	"github.com/geocoder89/userauth/internal/config"
	"github.com/geocoder89/userauth/internal/db"
	apphttp "github.com/geocoder89/userauth/internal/http"
	"github.com/geocoder89/userauth/internal/observability"
	"github.com/geocoder89/userauth/internal/repo/memory"
	"github.com/geocoder89/userauth/internal/repo/postgres"
	"github.com/geocoder89/userauth/internal/security"
	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "test-secret-key"

func testConfig() config.Config {
	return config.Config{
		Env:          "test",
		APIPrefix:    "/api/users",
		StoreDriver:  config.StoreDriverMemory,
		JWTSecret:    testSecret,
		BcryptCost:   bcrypt.MinCost,
		AuthzPolicy:  "any_authenticated",
		MaxBodyBytes: 1 << 20,
		ServiceName:  "userauth-test",
	}
}

type storeCase struct {
	name  string
	store func(t *testing.T, prom *observability.Prom) apphttp.Store
}

// stores runs every scenario against the in-memory store, and against
// Postgres when TEST_DB_DSN points at a database.
func stores() []storeCase {
	cases := []storeCase{{
		name: "memory",
		store: func(t *testing.T, _ *observability.Prom) apphttp.Store {
			return memory.NewUsersRepo()
		},
	}}

	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		return cases
	}

	return append(cases, storeCase{
		name: "postgres",
		store: func(t *testing.T, prom *observability.Prom) apphttp.Store {
			t.Helper()
			ctx := context.Background()

			pool, err := db.NewPool(ctx, dsn)
			if err != nil {
				t.Fatalf("Failed to create pgx pool: %v", err)
			}
			t.Cleanup(pool.Close)

			if err := db.Migrate(ctx, pool, "up"); err != nil {
				t.Fatalf("migrate: %v", err)
			}
			if _, err := pool.Exec(ctx, `TRUNCATE users RESTART IDENTITY CASCADE`); err != nil {
				t.Fatalf("failed to truncate users: %v", err)
			}

			return postgres.NewUsersRepo(pool, prom)
		},
	})
}

type testApp struct {
	router *gin.Engine
	store  apphttp.Store
	prom   *observability.Prom
}

func newTestApp(t *testing.T, sc storeCase, mutate func(*config.Config)) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := testConfig()
	if mutate != nil {
		mutate(&cfg)
	}

	prom := observability.NewProm()
	store := sc.store(t, prom)

	logger := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))

	router, err := apphttp.NewRouter(apphttp.Deps{
		Config: cfg,
		Log:    logger,
		Store:  store,
		Tokens: auth.NewManager(cfg.JWTSecret),
		Hasher: security.NewPasswordHasher(cfg.BcryptCost),
		Prom:   prom,
	})
	if err != nil {
		t.Fatalf("router: %v", err)
	}

	return &testApp{router: router, store: store, prom: prom}
}

func (a *testApp) do(t *testing.T, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()

	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}

	req := httptest.NewRequest(method, path, rdr)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

type authResponse struct {
	Message string `json:"message"`
	Token   string `json:"token"`
	User    struct {
		ID    int64  `json:"id"`
		Email string `json:"email"`
		Name  string `json:"name"`
	} `json:"user"`
}

func (a *testApp) register(t *testing.T, email, password, name string) authResponse {
	t.Helper()

	w := a.do(t, http.MethodPost, "/api/users/register", "",
		`{"email":"`+email+`","password":"`+password+`","name":"`+name+`"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("register %s: expected 201, got %d, body=%s", email, w.Code, w.Body.String())
	}

	var resp authResponse
	decode(t, w, &resp)
	return resp
}

func decode(t *testing.T, w *httptest.ResponseRecorder, out any) {
	t.Helper()

	if err := json.Unmarshal(w.Body.Bytes(), out); err != nil {
		t.Fatalf("decode body: %v body=%s", err, w.Body.String())
	}
}
