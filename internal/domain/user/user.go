package user

import (
	"errors"
	"time"
)

type User struct {
	ID           int64     `json:"id"`
	Login        string    `json:"login"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // never expose hash in JSON
	Name         *string   `json:"name,omitempty"`
	Phone        *string   `json:"phone,omitempty"`
	Address      *string   `json:"address,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

var (
	ErrNotFound   = errors.New("user not found")
	ErrLoginTaken = errors.New("login already in use")
	ErrEmailTaken = errors.New("email already in use")
)

// CreateParams is what a store needs to insert a user; the hash is computed by the caller.
type CreateParams struct {
	Login        string
	Email        string
	PasswordHash string
	Name         *string
	Phone        *string
	Address      *string
}

// UpdateParams holds the mutable profile fields. nil means "leave as is".
// id, created_at and password are not representable here.
type UpdateParams struct {
	Login   *string `json:"login" binding:"omitempty,min=3,max=64"`
	Email   *string `json:"email" binding:"omitempty,email"`
	Name    *string `json:"name" binding:"omitempty,max=120"`
	Phone   *string `json:"phone" binding:"omitempty,max=32"`
	Address *string `json:"address" binding:"omitempty,max=255"`
}

func (p UpdateParams) IsEmpty() bool {
	return p.Login == nil && p.Email == nil && p.Name == nil && p.Phone == nil && p.Address == nil
}

type RegisterRequest struct {
	Login    string  `json:"login" binding:"required,min=3,max=64"`
	Email    string  `json:"email" binding:"required,email"`
	Password string  `json:"password" binding:"required,min=6,strongpassword"`
	Name     *string `json:"name" binding:"omitempty,max=120"`
	Phone    *string `json:"phone" binding:"omitempty,max=32"`
	Address  *string `json:"address" binding:"omitempty,max=255"`
}

// Login may be either the user's login or email.
type LoginRequest struct {
	Login    string `json:"login" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// DisplayName is what the CRM contact gets as NAME.
func (u User) DisplayName() string {
	if u.Name != nil && *u.Name != "" {
		return *u.Name
	}
	return u.Login
}
