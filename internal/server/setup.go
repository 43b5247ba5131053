// internal/server/setup.go
package server

import (
	"errors"
	"net/http"
	"strings"

	"logininfo/internal/auth"
)

func (s *Server) isFirstRun() (bool, error) {
	has, err := s.auth.HasUsers()
	if err != nil {
		return false, err
	}
	return !has, nil
}

// handleSetup creates the first administrator. It is only reachable while no user exists.
func (s *Server) handleSetup(w http.ResponseWriter, r *http.Request) {
	isFirstRun, err := s.isFirstRun()
	if err != nil {
		s.logger.Printf("Error checking first run: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if !isFirstRun {
		http.Redirect(w, r, "/admin/login", http.StatusSeeOther)
		return
	}

	switch r.Method {
	case http.MethodGet:
		data := BaseTemplateData{CSRFToken: s.csrf.Token(w, r)}
		if err := s.renderTemplate(w, "setup.html", data); err != nil {
			s.logger.Printf("Error rendering setup template: %v", err)
			http.Error(w, "Error rendering template", http.StatusInternalServerError)
		}

	case http.MethodPost:
		if !s.csrf.Validate(w, r) {
			return
		}
		var req setupRequest
		if err := decodeJSON(w, r, &req); err != nil {
			RespondWithError(w, http.StatusBadRequest, "Invalid request")
			return
		}
		if strings.TrimSpace(req.Username) == "" || req.Password == "" {
			RespondWithError(w, http.StatusBadRequest, "Username and password are required")
			return
		}
		if req.Password != req.ConfirmPassword {
			RespondWithError(w, http.StatusBadRequest, "Passwords do not match")
			return
		}

		if _, err := s.auth.CreateUser(req.Username, req.Password, auth.RoleAdmin); err != nil {
			if errors.Is(err, auth.ErrWeakPassword) {
				RespondWithError(w, http.StatusBadRequest, err.Error())
				return
			}
			s.logger.Printf("Failed to create user: %v", err)
			RespondWithError(w, http.StatusInternalServerError, "Failed to create user")
			return
		}
		s.logger.Printf("Created administrator %q", strings.ToLower(strings.TrimSpace(req.Username)))
		RespondWithJSON(w, http.StatusOK, map[string]bool{"success": true})

	default:
		RespondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}
