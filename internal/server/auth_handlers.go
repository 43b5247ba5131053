// internal/server/auth_handlers.go
package server

import (
	"bytes"
	"context"
	"errors"
	"html/template"
	"net/http"

	"logininfo/internal/auth"
	"logininfo/internal/layout"
)

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleLoginPage(w, r)

	case http.MethodPost:
		if !s.csrf.Validate(w, r) {
			if !s.config.ProductionMode {
				s.logger.Printf("CSRF validation failed for login")
			}
			return
		}
		var req loginRequest
		if err := decodeJSON(w, r, &req); err != nil {
			RespondWithError(w, http.StatusBadRequest, "Invalid request")
			return
		}
		session, err := s.auth.Authenticate(req.Username, req.Password)
		if err != nil {
			if errors.Is(err, auth.ErrInvalidCredentials) {
				RespondWithError(w, http.StatusUnauthorized, "Invalid credentials")
				return
			}
			s.logger.Printf("Authentication error: %v", err)
			RespondWithError(w, http.StatusInternalServerError, "Internal server error")
			return
		}
		http.SetCookie(w, &http.Cookie{
			Name:     sessionCookieName,
			Value:    session.ID,
			Path:     "/",
			HttpOnly: true,
			Secure:   s.config.UseHTTPS,
			SameSite: http.SameSiteStrictMode,
			Expires:  session.ExpiresAt,
		})
		RespondWithJSON(w, http.StatusOK, map[string]bool{"success": true})

	default:
		RespondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// handleLoginPage renders the sign-in page. A composed AuthLayout already carries the
// widget; otherwise the page is rendered into a live document that the injector polls.
func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	isFirstRun, err := s.isFirstRun()
	if err != nil {
		s.logger.Printf("Error checking first run: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if isFirstRun {
		http.Redirect(w, r, "/setup", http.StatusSeeOther)
		return
	}

	data := LoginTemplateData{
		BaseTemplateData: BaseTemplateData{CSRFToken: s.csrf.Token(w, r)},
		Title:            s.config.SiteTitle,
	}
	layoutData := authLayoutData{Title: s.config.SiteTitle}

	if s.injector.State() == layout.StateComposed {
		var buf bytes.Buffer
		if err := s.components.Render(r.Context(), ComponentAuthLayout, &buf, layoutData); err != nil {
			s.logger.Printf("Error rendering auth layout: %v", err)
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		data.Layout = template.HTML(buf.String())
		if err := s.renderTemplate(w, "login.html", data); err != nil {
			s.logger.Printf("Error rendering login template: %v", err)
			http.Error(w, "Internal server error", http.StatusInternalServerError)
		}
		return
	}

	doc, err := s.renderAttached(r.Context(), data, layoutData)
	if err != nil {
		s.logger.Printf("Error rendering login page: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	var buf bytes.Buffer
	if err := doc.Render(&buf); err != nil {
		s.logger.Printf("Error serializing login page: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

// renderAttached renders the built-in sign-in page into a document in the background while
// the injector looks for the widget's place in it.
func (s *Server) renderAttached(ctx context.Context, data LoginTemplateData, layoutData authLayoutData) (*layout.Document, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	doc := layout.NewDocument()
	renderErr := make(chan error, 1)
	go func() {
		err := s.renderLoginDocument(doc, data, layoutData)
		if err != nil {
			cancel()
		}
		renderErr <- err
	}()

	result := s.injector.Attach(ctx, doc, layoutData)
	if err := <-renderErr; err != nil {
		return nil, err
	}
	if !s.config.ProductionMode {
		s.logger.Printf("Record number widget %s after %d attempts", result.State, result.Attempts)
	}
	return doc, nil
}

func (s *Server) renderLoginDocument(doc *layout.Document, data LoginTemplateData, layoutData authLayoutData) error {
	var fragment bytes.Buffer
	if err := s.executeTemplate(&fragment, "auth_layout.html", layoutData); err != nil {
		return err
	}
	data.Layout = template.HTML(fragment.String())

	var page bytes.Buffer
	if err := s.executeTemplate(&page, "login.html", data); err != nil {
		return err
	}
	return doc.ReplaceHTML(&page)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Redirect(w, r, "/admin/login", http.StatusSeeOther)
		return
	}
	if err := s.csrf.Check(r); err != nil {
		http.Redirect(w, r, "/admin/login", http.StatusSeeOther)
		return
	}

	if sessionID := getSessionID(r.Context()); sessionID != "" {
		if err := s.auth.InvalidateSession(sessionID); err != nil {
			s.logger.Printf("Error invalidating session: %v", err)
		}
	}
	http.SetCookie(w, &http.Cookie{
		Name:   sessionCookieName,
		Value:  "",
		Path:   "/",
		MaxAge: -1, // Delete cookie
	})
	http.Redirect(w, r, "/admin/login", http.StatusSeeOther)
}
