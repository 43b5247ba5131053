// internal/server/middleware.go
package server

import (
	"errors"
	"net/http"
	"time"

	"logininfo/internal/auth"
)

const sessionCookieName = "session"

// authenticate resolves the session cookie to an actor.
func (s *Server) authenticate(r *http.Request) (*http.Request, error) {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil || cookie.Value == "" {
		return nil, auth.ErrSessionNotFound
	}
	actor, err := s.auth.Actor(cookie.Value)
	if err != nil {
		return nil, err
	}
	return r.WithContext(withActor(r.Context(), actor, cookie.Value)), nil
}

// requireAuth sends unauthenticated browsers to the sign-in page.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authed, err := s.authenticate(r)
		if err != nil {
			if !isSessionError(err) {
				s.logger.Printf("Error resolving session: %v", err)
			}
			http.Redirect(w, r, "/admin/login", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, authed)
	}
}

// requireAPIAuth answers unauthenticated API calls with 401.
func (s *Server) requireAPIAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authed, err := s.authenticate(r)
		if err != nil {
			if !isSessionError(err) {
				s.logger.Printf("Error resolving session: %v", err)
				RespondWithError(w, http.StatusInternalServerError, "Internal server error")
				return
			}
			RespondWithError(w, http.StatusUnauthorized, "Authentication required")
			return
		}
		next.ServeHTTP(w, authed)
	}
}

// csrfProtect validates the CSRF token on unsafe methods.
func (s *Server) csrfProtect(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !isSafeMethod(r.Method) && !s.csrf.Validate(w, r) {
			return
		}
		next.ServeHTTP(w, r)
	}
}

// logRequests logs each request outside production mode.
func (s *Server) logRequests(next http.Handler) http.Handler {
	if s.config.ProductionMode {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Printf("%s %s (%s)", r.Method, r.URL.Path, time.Since(start).Round(time.Millisecond))
	})
}

func isSessionError(err error) bool {
	return errors.Is(err, auth.ErrSessionNotFound) ||
		errors.Is(err, auth.ErrSessionExpired) ||
		errors.Is(err, auth.ErrUserNotFound)
}
