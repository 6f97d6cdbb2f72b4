package db

import (
	"context"
	"errors"

	"github.com/geocoder89/userauth/internal/config"
	"github.com/geocoder89/userauth/internal/domain/user"
)

type SeedStore interface {
	Create(ctx context.Context, email, passwordHash, name string) (user.User, error)
}

type Hasher interface {
	Hash(plain string) (string, error)
}

// EnsureSeedUser creates the configured local-development account once.
// It is a no-op when SEED_USER_EMAIL or SEED_USER_PASSWORD is unset, and
// when the account already exists.
func EnsureSeedUser(ctx context.Context, users SeedStore, hasher Hasher, cfg config.Config) (created bool, err error) {
	if cfg.SeedUserEmail == "" || cfg.SeedUserPassword == "" {
		return false, nil
	}

	hash, err := hasher.Hash(cfg.SeedUserPassword)

	if err != nil {
		return false, err
	}

	_, err = users.Create(ctx, cfg.SeedUserEmail, hash, cfg.SeedUserName)

	if errors.Is(err, user.ErrEmailTaken) {
		return false, nil
	}

	if err != nil {
		return false, err
	}

	return true, nil
}
