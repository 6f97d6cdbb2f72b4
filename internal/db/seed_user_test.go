package db_test

import (
	"context"
	"testing"

	"github.com/geocoder89/userauth/internal/config"
	"github.com/geocoder89/userauth/internal/db"
	"github.com/geocoder89/userauth/internal/repo/memory"
	"github.com/geocoder89/userauth/internal/security"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestEnsureSeedUser(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewUsersRepo()
	hasher := security.NewPasswordHasher(bcrypt.MinCost)

	cfg := config.Config{
		SeedUserEmail:    "seed@example.com",
		SeedUserPassword: "seed-password",
		SeedUserName:     "Seed",
	}

	created, err := db.EnsureSeedUser(ctx, repo, hasher, cfg)
	require.NoError(t, err)
	assert.True(t, created)

	u, err := repo.GetByEmail(ctx, "seed@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Seed", u.Name)
	assert.True(t, hasher.Verify("seed-password", u.PasswordHash))

	// second run leaves the existing account alone
	created, err = db.EnsureSeedUser(ctx, repo, hasher, cfg)
	require.NoError(t, err)
	assert.False(t, created)

	all, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestEnsureSeedUser_Disabled(t *testing.T) {
	repo := memory.NewUsersRepo()

	created, err := db.EnsureSeedUser(context.Background(), repo, security.NewPasswordHasher(bcrypt.MinCost), config.Config{SeedUserEmail: "x@example.com"})
	require.NoError(t, err)
	assert.False(t, created)

	all, err := repo.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
}
