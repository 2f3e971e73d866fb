package domain

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"
)

const (
	MinPasswordLen = 8
	passwordCost   = 12
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailAlreadyExists = errors.New("email already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidEmail       = errors.New("invalid email format")
	ErrPasswordTooShort   = fmt.Errorf("password must be at least %d characters long", MinPasswordLen)
)

type User struct {
	ID           string    `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// NewUser lowercases the address so lookups by email are case-insensitive.
func NewUser(id, email string) (*User, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(email))
	if err != nil || addr.Name != "" {
		return nil, ErrInvalidEmail
	}

	created := time.Now().UTC()
	return &User{
		ID:        id,
		Email:     strings.ToLower(addr.Address),
		CreatedAt: created,
		UpdatedAt: created,
	}, nil
}

func (u *User) SetPassword(plain string) error {
	if utf8.RuneCountInString(plain) < MinPasswordLen {
		return ErrPasswordTooShort
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(plain), passwordCost)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}
	u.PasswordHash = string(hash)
	u.UpdatedAt = time.Now().UTC()
	return nil
}

// CheckPassword reports a mismatch as ErrInvalidCredentials.
func (u *User) CheckPassword(plain string) error {
	err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(plain))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrInvalidCredentials
	}
	return err
}

// AccountAgeDays counts calendar days from the signup date to now, both taken
// in now's location. It is the ceiling for the "all" dashboard range.
func (u *User) AccountAgeDays(now time.Time) int {
	if u.CreatedAt.IsZero() || now.Before(u.CreatedAt) {
		return 0
	}
	signup := calendarDay(u.CreatedAt.In(now.Location()))
	days := 0
	for d := calendarDay(now); d.After(signup); d = d.AddDate(0, 0, -1) {
		days++
	}
	return days
}

func calendarDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
