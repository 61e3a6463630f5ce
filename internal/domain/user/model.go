package user

import (
	"context"
	"time"
)

type SignupType string

const (
	SignupQuick SignupType = "quick"
	SignupFull  SignupType = "full"
)

type User struct {
	ID           int64      `json:"id"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	FirstName    string     `json:"first_name"`
	LastName     string     `json:"last_name"`
	DateOfBirth  *time.Time `json:"date_of_birth,omitempty"`
	Location     string     `json:"location"`
	Gender       string     `json:"gender"`
	IsVerified   bool       `json:"is_verified"`
	IsActive     bool       `json:"is_active"`
	CreatedAt    time.Time  `json:"created_at"`
}

// RegisterInput is the signup payload. DateOfBirth uses the 2006-01-02 layout.
type RegisterInput struct {
	Email       string     `json:"email"`
	Password    string     `json:"password"`
	FirstName   string     `json:"first_name"`
	LastName    string     `json:"last_name"`
	DateOfBirth string     `json:"date_of_birth"`
	Location    string     `json:"location"`
	Gender      string     `json:"gender"`
	SignupType  SignupType `json:"signup_type"`
}

type Repository interface {
	Create(ctx context.Context, u *User) error
	Update(ctx context.Context, u *User) error
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByID(ctx context.Context, id int64) (*User, error)
	SetVerified(ctx context.Context, id int64) error
}

// Verifier issues and checks single-purpose verification codes.
type Verifier interface {
	GenerateVerification(userID int64) (string, error)
	ParseVerification(code string) (int64, error)
}

// Notifier delivers verification codes to users.
type Notifier interface {
	SendVerification(ctx context.Context, u *User, code string) error
}
