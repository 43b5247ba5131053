// internal/server/csrf.go
package server

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"net/http"
	"sync"
	"time"
)

var (
	ErrTokenMissing = errors.New("CSRF token missing")
	ErrTokenInvalid = errors.New("CSRF token invalid")
)

// CSRFConfig holds configuration for CSRF protection
type CSRFConfig struct {
	Cookie          string
	Header          string
	FieldName       string
	Secure          bool
	Expiry          time.Duration
	CleanupInterval time.Duration
}

// DefaultCSRFConfig returns the default CSRF configuration
func DefaultCSRFConfig() CSRFConfig {
	return CSRFConfig{
		Cookie:          "csrf_token",
		Header:          "X-CSRF-Token",
		FieldName:       "csrf_token",
		Secure:          true, // Will be overridden by server config
		Expiry:          24 * time.Hour,
		CleanupInterval: 6 * time.Hour,
	}
}

// CSRF issues double-submit tokens: the token is set as a cookie and must come back in the
// header (or form field) of every unsafe request.
type CSRF struct {
	config CSRFConfig
	tokens sync.Map
	done   chan struct{}
	once   sync.Once
}

// NewCSRF creates a CSRF instance and starts its expiry sweep.
func NewCSRF(config CSRFConfig) *CSRF {
	c := &CSRF{
		config: config,
		done:   make(chan struct{}),
	}
	go c.cleanupLoop()
	return c
}

// Close stops the expiry sweep.
func (c *CSRF) Close() {
	c.once.Do(func() { close(c.done) })
}

func (c *CSRF) generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

// Token returns the caller's current token, issuing a new one when the cookie is missing
// or unknown.
func (c *CSRF) Token(w http.ResponseWriter, r *http.Request) string {
	if cookie, err := r.Cookie(c.config.Cookie); err == nil && cookie.Value != "" {
		if c.known(cookie.Value) {
			return cookie.Value
		}
	}

	token, err := c.generateToken()
	if err != nil {
		return ""
	}
	c.tokens.Store(token, time.Now().Add(c.config.Expiry))

	http.SetCookie(w, &http.Cookie{
		Name:     c.config.Cookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   c.config.Secure,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   int(c.config.Expiry.Seconds()),
	})
	return token
}

// Check validates the token carried by r.
func (c *CSRF) Check(r *http.Request) error {
	token := r.Header.Get(c.config.Header)
	if token == "" {
		if err := r.ParseForm(); err == nil {
			token = r.PostFormValue(c.config.FieldName)
		}
	}
	if token == "" {
		return ErrTokenMissing
	}

	cookie, err := r.Cookie(c.config.Cookie)
	if err != nil {
		return ErrTokenMissing
	}
	if subtle.ConstantTimeCompare([]byte(token), []byte(cookie.Value)) != 1 {
		return ErrTokenInvalid
	}
	if !c.known(token) {
		return ErrTokenInvalid
	}
	return nil
}

// Validate writes a 403 JSON error and returns false when r fails the check.
func (c *CSRF) Validate(w http.ResponseWriter, r *http.Request) bool {
	if err := c.Check(r); err != nil {
		RespondWithError(w, http.StatusForbidden, "CSRF validation failed")
		return false
	}
	return true
}

func (c *CSRF) known(token string) bool {
	expiry, ok := c.tokens.Load(token)
	if !ok {
		return false
	}
	if expiry.(time.Time).Before(time.Now()) {
		c.tokens.Delete(token)
		return false
	}
	return true
}

// cleanup removes expired tokens
func (c *CSRF) cleanup() {
	now := time.Now()
	c.tokens.Range(func(key, value any) bool {
		if value.(time.Time).Before(now) {
			c.tokens.Delete(key)
		}
		return true
	})
}

func (c *CSRF) cleanupLoop() {
	ticker := time.NewTicker(c.config.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.cleanup()
		case <-c.done:
			return
		}
	}
}

func isSafeMethod(method string) bool {
	return method == http.MethodGet || method == http.MethodHead || method == http.MethodOptions
}
