// internal/server/handlers.go
package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"logininfo/internal/settings"
)

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.db.PingContext(ctx); err != nil {
		s.logger.Printf("Health check failed: DB ping error: %v", err)
		http.Error(w, "DB Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "ok")
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
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
	http.Redirect(w, r, "/admin/login", http.StatusSeeOther)
}

func (s *Server) handleAdmin(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/admin/settings", http.StatusSeeOther)
}

// handleSystemSettingsGet returns the shared settings record. A missing record is reported
// with empty options.
func (s *Server) handleSystemSettingsGet(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		RespondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	rec, err := s.settings.Current(r.Context())
	if err != nil {
		s.logger.Printf("Error loading system settings: %v", err)
		RespondWithError(w, http.StatusInternalServerError, "Failed to load system settings")
		return
	}
	RespondWithJSON(w, http.StatusOK, rec)
}

func (s *Server) handleUpdateRecordNumber(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		RespondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	actor, ok := getActor(r.Context())
	if !ok {
		RespondWithError(w, http.StatusUnauthorized, "Authentication required")
		return
	}
	if !actor.IsAdmin {
		s.logger.Printf("Record number update rejected for %s (user %d)", actor.Username, actor.ID)
		RespondWithError(w, http.StatusForbidden, "Forbidden")
		return
	}

	var req updateRecordNumberRequest
	if err := decodeJSON(w, r, &req); err != nil {
		RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	raw := req.RecordNumber
	if len(raw) == 0 {
		raw = req.Values.RecordNumber
	}
	value, err := recordNumberValue(raw)
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	rec, err := s.settings.UpdateRecordNumber(r.Context(), actor, value)
	if err != nil {
		switch {
		case errors.Is(err, settings.ErrForbidden):
			RespondWithError(w, http.StatusForbidden, "Forbidden")
		case errors.Is(err, settings.ErrInvalidRecordNumber):
			RespondWithError(w, http.StatusBadRequest, err.Error())
		default:
			s.logger.Printf("Error updating record number: %v", err)
			RespondWithError(w, http.StatusInternalServerError, "Failed to save record number")
		}
		return
	}
	RespondWithJSON(w, http.StatusOK, rec)
}

func (s *Server) adminPageData(w http.ResponseWriter, r *http.Request, title string) AdminPageData {
	actor, _ := getActor(r.Context())
	return AdminPageData{
		BaseTemplateData: BaseTemplateData{CSRFToken: s.csrf.Token(w, r)},
		Title:            title,
		Active:           "settings",
		Username:         actor.Username,
	}
}

func (s *Server) handleSettingsIndex(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	data := SettingsIndexData{
		AdminPageData: s.adminPageData(w, r, "Settings"),
		Pages:         s.pages.List(),
	}
	if err := s.renderTemplate(w, "admin/settings.html", data); err != nil {
		s.logger.Printf("Error rendering settings template: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

// handleSettingsPage renders a registered settings page through its component.
func (s *Server) handleSettingsPage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	page, ok := s.pages.Get(r.PathValue("name"))
	if !ok {
		http.NotFound(w, r)
		return
	}

	data, err := s.settingsPageData(w, r, page)
	if err != nil {
		s.logger.Printf("Error loading settings page %s: %v", page.Name, err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := s.components.Render(r.Context(), page.Component, &buf, data); err != nil {
		s.logger.Printf("Error rendering settings page %s: %v", page.Name, err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

func (s *Server) settingsPageData(w http.ResponseWriter, r *http.Request, page SettingsPage) (any, error) {
	base := s.adminPageData(w, r, page.Title)
	if page.Name != loginInfoPageName {
		return base, nil
	}

	rec, err := s.settings.Current(r.Context())
	if err != nil {
		return nil, err
	}
	value := settings.ParseLoginInfo(rec.Options).Value()
	if value == "" {
		value = settings.DefaultRecordNumber
	}
	actor, _ := getActor(r.Context())
	return LoginInfoPageData{
		AdminPageData: base,
		RecordNumber:  value,
		UpdatedAt:     rec.UpdatedAt,
		CanEdit:       actor.IsAdmin,
	}, nil
}
