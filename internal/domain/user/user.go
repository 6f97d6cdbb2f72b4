package user

import (
	"errors"
	"time"
)

var (
	ErrNotFound   = errors.New("user not found")
	ErrEmailTaken = errors.New("email already in use")
)

type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // never expose hash in JSON
	Name         string    `json:"name"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Patch carries the optional fields of an update; nil means "leave as is".
type Patch struct {
	Email *string
	Name  *string
}

func (p Patch) IsEmpty() bool {
	return p.Email == nil && p.Name == nil
}

type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email,max=254"`
	Password string `json:"password" binding:"required,min=6,bcryptlen"`
	Name     string `json:"name" binding:"required,min=1,max=120"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// a partial update, absent or null fields are kept. Unlike a "skip falsy
// values" patch, an explicit "" for name or email is a validation error.
type UpdateUserRequest struct {
	Email *string `json:"email" binding:"omitnil,email,max=254"`
	Name  *string `json:"name" binding:"omitnil,min=1,max=120"`
}

func (r UpdateUserRequest) Patch() Patch {
	return Patch{Email: r.Email, Name: r.Name}
}
