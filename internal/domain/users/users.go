package users

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrUserLoginEmpty    = errors.New("user login is empty")
	ErrUserPasswdEmpty   = errors.New("user password is empty")
	ErrUserRoleUnknown   = errors.New("user role is unknown")
	ErrUserStatusUnknown = errors.New("user status is unknown")
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

func ParseRole(role string) (Role, error) {
	switch Role(role) {
	case RoleUser, RoleAdmin:
		return Role(role), nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUserRoleUnknown, role)
	}
}

type Status string

const (
	StatusActive    Status = "active"
	StatusInactive  Status = "inactive"
	StatusSuspended Status = "suspended"
)

func ParseStatus(status string) (Status, error) {
	switch Status(status) {
	case StatusActive, StatusInactive, StatusSuspended:
		return Status(status), nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUserStatusUnknown, status)
	}
}

type User struct {
	ID           string
	Login        string
	PasswordHash string
	Role         Role
	Status       Status
	Balance      decimal.Decimal
	RegisteredAt time.Time
}

// CreateUser builds a new active user from registration input.
// The password is stored as a bcrypt hash.
func CreateUser(login, password string) (*User, error) {
	if err := ValidateLogin(login); err != nil {
		return nil, err
	}

	if err := validatePassword(password); err != nil {
		return nil, err
	}

	passwordHash, err := getPasswordHash(password)
	if err != nil {
		return nil, fmt.Errorf("getPasswordHash: %w", err)
	}

	return &User{
		ID:           uuid.NewString(),
		Login:        login,
		PasswordHash: passwordHash,
		Role:         RoleUser,
		Status:       StatusActive,
		Balance:      decimal.Zero,
		RegisteredAt: time.Now(),
	}, nil
}

func getPasswordHash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("bcrypt.GenerateFromPassword: %w", err)
	}

	return string(hash), nil
}

func ValidateLogin(login string) error {
	if login == "" {
		return ErrUserLoginEmpty
	}

	return nil
}

func validatePassword(password string) error {
	if password == "" {
		return ErrUserPasswdEmpty
	}

	return nil
}
