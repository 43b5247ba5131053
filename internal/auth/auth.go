// internal/auth/auth.go
package auth

import (
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"logininfo/internal/settings"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrSessionNotFound    = errors.New("session not found")
	ErrSessionExpired     = errors.New("session expired")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidRole        = errors.New("invalid role")
)

// Roles a user may hold. Only admins may change system settings.
const (
	RoleAdmin  = "admin"
	RoleMember = "member"
)

const sessionTTL = 24 * time.Hour

type User struct {
	ID           int64
	Username     string
	PasswordHash string
	Role         string
	LastLogin    sql.NullTime
	CreatedAt    time.Time
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

type Session struct {
	ID        string
	UserID    int64
	CreatedAt time.Time
	ExpiresAt time.Time
}

// IsExpired reports whether the session is past its expiry.
func (s *Session) IsExpired() bool {
	return !time.Now().Before(s.ExpiresAt)
}

// ValidRole reports whether role is one of the known roles.
func ValidRole(role string) bool {
	return role == RoleAdmin || role == RoleMember
}

// CreateUser creates a user with a hashed password. Usernames are stored lowercase.
func CreateUser(db *sql.DB, username, password, role string) (int64, error) {
	if !ValidRole(role) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" {
		return 0, errors.New("username required")
	}

	// Hash password with bcrypt
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return 0, err
	}

	result, err := db.Exec(
		"INSERT INTO admin_users (username, password_hash, role) VALUES (?, ?, ?)",
		username, string(hash), role,
	)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// Authenticate verifies username and password, returns a new session if successful
func Authenticate(db *sql.DB, username, password string) (*Session, error) {
	var user User
	err := db.QueryRow(
		"SELECT id, password_hash FROM admin_users WHERE username = ?",
		strings.ToLower(strings.TrimSpace(username)),
	).Scan(&user.ID, &user.PasswordHash)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword(
		[]byte(user.PasswordHash),
		[]byte(password),
	); err != nil {
		return nil, ErrInvalidCredentials
	}

	if _, err := db.Exec(
		"UPDATE admin_users SET last_login = ? WHERE id = ?",
		time.Now(), user.ID,
	); err != nil {
		return nil, err
	}

	return createSession(db, user.ID)
}

// createSession creates a new session for the user
func createSession(db *sql.DB, userID int64) (*Session, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}
	now := time.Now()
	session := &Session{
		ID:        base64.URLEncoding.EncodeToString(b),
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(sessionTTL),
	}

	_, err := db.Exec(
		"INSERT INTO sessions (id, user_id, created_at, expires_at) VALUES (?, ?, ?, ?)",
		session.ID, session.UserID, session.CreatedAt, session.ExpiresAt,
	)
	if err != nil {
		return nil, err
	}
	return session, nil
}

// ValidateSession checks if a session is valid and not expired
func ValidateSession(db *sql.DB, sessionID string) (*Session, error) {
	var session Session
	err := db.QueryRow(
		`SELECT id, user_id, created_at, expires_at
         FROM sessions
         WHERE id = ?`,
		sessionID,
	).Scan(&session.ID, &session.UserID, &session.CreatedAt, &session.ExpiresAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	if session.IsExpired() {
		return nil, ErrSessionExpired
	}
	return &session, nil
}

// InvalidateSession removes a session from the database
func InvalidateSession(db *sql.DB, sessionID string) error {
	_, err := db.Exec("DELETE FROM sessions WHERE id = ?", sessionID)
	return err
}

// CleanExpiredSessions removes all expired sessions
func CleanExpiredSessions(db *sql.DB) error {
	_, err := db.Exec("DELETE FROM sessions WHERE expires_at <= ?", time.Now())
	return err
}

// GetUserByID loads a user without the password hash.
func GetUserByID(db *sql.DB, id int64) (*User, error) {
	var user User
	err := db.QueryRow(
		`SELECT id, username, role, last_login, created_at
         FROM admin_users WHERE id = ?`,
		id,
	).Scan(&user.ID, &user.Username, &user.Role, &user.LastLogin, &user.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// CountUsers returns the number of users. Zero means first-run setup is pending.
func CountUsers(db *sql.DB) (int, error) {
	var count int
	err := db.QueryRow("SELECT COUNT(*) FROM admin_users").Scan(&count)
	return count, err
}

// ActorFor builds the settings actor for a user.
func ActorFor(user *User) settings.Actor {
	return settings.Actor{
		ID:       user.ID,
		Username: user.Username,
		IsAdmin:  user.IsAdmin(),
	}
}
