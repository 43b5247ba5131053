// internal/auth/service.go
package auth

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"logininfo/internal/settings"
)

var ErrWeakPassword = errors.New("password does not meet requirements")

const minPasswordLength = 10

var commonPasswords = map[string]bool{
	"password123!": true,
	"password1234": true,
	"qwerty12345!": true,
	"welcome123!":  true,
	"admin123456!": true,
	"letmein1234!": true,
}

// Service wraps the user and session queries with the password policy.
type Service struct {
	db *sql.DB
}

func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

// ValidatePassword enforces length and character class requirements.
func ValidatePassword(password string) error {
	if len(password) < minPasswordLength {
		return fmt.Errorf("%w: must be at least %d characters", ErrWeakPassword, minPasswordLength)
	}
	if commonPasswords[strings.ToLower(password)] {
		return fmt.Errorf("%w: too common", ErrWeakPassword)
	}

	var upper, lower, digit, special bool
	for _, c := range password {
		switch {
		case unicode.IsUpper(c):
			upper = true
		case unicode.IsLower(c):
			lower = true
		case unicode.IsDigit(c):
			digit = true
		case unicode.IsPunct(c) || unicode.IsSymbol(c):
			special = true
		}
	}
	switch {
	case !upper:
		return fmt.Errorf("%w: needs an uppercase letter", ErrWeakPassword)
	case !lower:
		return fmt.Errorf("%w: needs a lowercase letter", ErrWeakPassword)
	case !digit:
		return fmt.Errorf("%w: needs a digit", ErrWeakPassword)
	case !special:
		return fmt.Errorf("%w: needs a special character", ErrWeakPassword)
	}
	return nil
}

func (s *Service) CreateUser(username, password, role string) (int64, error) {
	if err := ValidatePassword(password); err != nil {
		return 0, err
	}
	return CreateUser(s.db, username, password, role)
}

func (s *Service) Authenticate(username, password string) (*Session, error) {
	return Authenticate(s.db, username, password)
}

func (s *Service) ValidateSession(sessionID string) (*Session, error) {
	return ValidateSession(s.db, sessionID)
}

func (s *Service) InvalidateSession(sessionID string) error {
	return InvalidateSession(s.db, sessionID)
}

func (s *Service) CleanExpiredSessions() error {
	return CleanExpiredSessions(s.db)
}

func (s *Service) HasUsers() (bool, error) {
	count, err := CountUsers(s.db)
	return count > 0, err
}

// Actor resolves a session to the identity used for settings authorization.
func (s *Service) Actor(sessionID string) (settings.Actor, error) {
	session, err := ValidateSession(s.db, sessionID)
	if err != nil {
		return settings.Actor{}, err
	}
	user, err := GetUserByID(s.db, session.UserID)
	if err != nil {
		return settings.Actor{}, err
	}
	return ActorFor(user), nil
}
