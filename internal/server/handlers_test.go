package server

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"logininfo/internal/auth"
	"logininfo/internal/database"
	"logininfo/internal/layout"
	"logininfo/internal/settings"
	"logininfo/internal/settings/store"

	"github.com/PuerkitoBio/goquery"
)

const (
	testAdminUser     = "admin"
	testAdminPassword = "Adm1n-Passw0rd!"
	testMemberUser    = "member"
	testMemberPass    = "Memb3r-Passw0rd!"
)

type testServer struct {
	server   *Server
	db       *database.DB
	settings *settings.Service
}

func newTestServer(t *testing.T, cfg Config) *testServer {
	t.Helper()
	db, err := database.NewDB(":memory:", database.DefaultConfig())
	if err != nil {
		t.Fatalf("Failed to initialize in-memory database: %v", err)
	}

	logger := log.New(io.Discard, "", 0)
	settingsService := settings.NewService(store.NewSQLite(db), logger)

	srv, err := NewServer(db, logger, settingsService, cfg)
	if err != nil {
		db.Close()
		t.Fatalf("Failed to initialize server: %v", err)
	}
	t.Cleanup(func() {
		srv.Close()
		if err := db.Close(); err != nil {
			t.Logf("Warning: error closing test database: %v", err)
		}
	})
	return &testServer{server: srv, db: db, settings: settingsService}
}

// composedConfig exposes the sign-in layout so the widget is composed with it.
func composedConfig() Config {
	return Config{ExposeAuthLayout: true}
}

func fallbackConfig() Config {
	return Config{
		Layout: layout.Options{
			Interval: 5 * time.Millisecond,
			Timeout:  2 * time.Second,
		},
	}
}

func (ts *testServer) serve(req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	ts.server.Routes().ServeHTTP(rr, req)
	return rr
}

func createUser(t *testing.T, ts *testServer, username, password, role string) {
	t.Helper()
	if _, err := ts.server.auth.CreateUser(username, password, role); err != nil {
		t.Fatalf("Failed to create user %s: %v", username, err)
	}
}

func extractCSRFToken(t *testing.T, body string) string {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		t.Fatalf("Failed to parse HTML: %v", err)
	}
	token, ok := doc.Find(`meta[name="csrf-token"]`).Attr("content")
	if !ok || token == "" {
		t.Fatalf("CSRF token meta tag not found in HTML body.\nHTML Body:\n%s", body)
	}
	return token
}

func findCookie(rr *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rr.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// session is a signed-in browser: its session cookie plus the CSRF pair.
type session struct {
	cookie     *http.Cookie
	csrfToken  string
	csrfCookie *http.Cookie
}

func (s session) request(method, path string, body io.Reader) *http.Request {
	req := httptest.NewRequest(method, path, body)
	if s.cookie != nil {
		req.AddCookie(s.cookie)
	}
	if s.csrfCookie != nil {
		req.AddCookie(s.csrfCookie)
		req.Header.Set("X-CSRF-Token", s.csrfToken)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req
}

func loginAs(t *testing.T, ts *testServer, username, password string) session {
	t.Helper()
	getRR := ts.serve(httptest.NewRequest(http.MethodGet, "/admin/login", nil))
	if getRR.Code != http.StatusOK {
		t.Fatalf("GET /admin/login: status %d, body: %s", getRR.Code, getRR.Body.String())
	}
	s := session{
		csrfToken:  extractCSRFToken(t, getRR.Body.String()),
		csrfCookie: findCookie(getRR, "csrf_token"),
	}
	if s.csrfCookie == nil {
		t.Fatalf("CSRF cookie not set by login page")
	}

	body := `{"username":"` + username + `","password":"` + password + `"}`
	postRR := ts.serve(s.request(http.MethodPost, "/admin/login", strings.NewReader(body)))
	if postRR.Code != http.StatusOK {
		t.Fatalf("POST /admin/login: status %d, body: %s", postRR.Code, postRR.Body.String())
	}
	var resp struct{ Success bool }
	if err := json.Unmarshal(postRR.Body.Bytes(), &resp); err != nil || !resp.Success {
		t.Fatalf("Login response did not indicate success: %s", postRR.Body.String())
	}
	s.cookie = findCookie(postRR, sessionCookieName)
	if s.cookie == nil {
		t.Fatalf("Session cookie not found after login")
	}
	return s
}

func decodeRecord(t *testing.T, rr *httptest.ResponseRecorder) settings.Record {
	t.Helper()
	var rec settings.Record
	if err := json.Unmarshal(rr.Body.Bytes(), &rec); err != nil {
		t.Fatalf("Failed to decode record: %v. Body: %s", err, rr.Body.String())
	}
	return rec
}

func TestHandleIndex_FirstRun(t *testing.T) {
	ts := newTestServer(t, composedConfig())
	rr := ts.serve(httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusSeeOther || rr.Header().Get("Location") != "/setup" {
		t.Fatalf("Expected redirect to /setup, got %d %q", rr.Code, rr.Header().Get("Location"))
	}

	rr = ts.serve(httptest.NewRequest(http.MethodGet, "/admin/login", nil))
	if rr.Code != http.StatusSeeOther || rr.Header().Get("Location") != "/setup" {
		t.Fatalf("Expected login to redirect to /setup, got %d %q", rr.Code, rr.Header().Get("Location"))
	}
}

func TestHandleIndex_AfterSetup(t *testing.T) {
	ts := newTestServer(t, composedConfig())
	createUser(t, ts, testAdminUser, testAdminPassword, auth.RoleAdmin)

	rr := ts.serve(httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusSeeOther || rr.Header().Get("Location") != "/admin/login" {
		t.Fatalf("Expected redirect to /admin/login, got %d %q", rr.Code, rr.Header().Get("Location"))
	}

	rr = ts.serve(httptest.NewRequest(http.MethodGet, "/nope", nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("Expected 404 for unknown path, got %d", rr.Code)
	}
}

func TestHandleHealthz(t *testing.T) {
	ts := newTestServer(t, composedConfig())
	rr := ts.serve(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rr.Code != http.StatusOK || strings.TrimSpace(rr.Body.String()) != "ok" {
		t.Fatalf("Expected 200 ok, got %d %q", rr.Code, rr.Body.String())
	}
}

func TestHandleSetup(t *testing.T) {
	ts := newTestServer(t, composedConfig())

	getRR := ts.serve(httptest.NewRequest(http.MethodGet, "/setup", nil))
	if getRR.Code != http.StatusOK {
		t.Fatalf("GET /setup: status %d", getRR.Code)
	}
	s := session{
		csrfToken:  extractCSRFToken(t, getRR.Body.String()),
		csrfCookie: findCookie(getRR, "csrf_token"),
	}

	mismatch := `{"username":"admin","password":"` + testAdminPassword + `","confirmPassword":"other"}`
	rr := ts.serve(s.request(http.MethodPost, "/setup", strings.NewReader(mismatch)))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400 for mismatched passwords, got %d", rr.Code)
	}

	weak := `{"username":"admin","password":"short","confirmPassword":"short"}`
	rr = ts.serve(s.request(http.MethodPost, "/setup", strings.NewReader(weak)))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400 for weak password, got %d", rr.Code)
	}

	noCSRF := httptest.NewRequest(http.MethodPost, "/setup", strings.NewReader(weak))
	if rr := ts.serve(noCSRF); rr.Code != http.StatusForbidden {
		t.Fatalf("Expected 403 without CSRF token, got %d", rr.Code)
	}

	ok := `{"username":"Admin","password":"` + testAdminPassword + `","confirmPassword":"` + testAdminPassword + `"}`
	rr = ts.serve(s.request(http.MethodPost, "/setup", strings.NewReader(ok)))
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200 from setup, got %d: %s", rr.Code, rr.Body.String())
	}

	rr = ts.serve(httptest.NewRequest(http.MethodGet, "/setup", nil))
	if rr.Code != http.StatusSeeOther || rr.Header().Get("Location") != "/admin/login" {
		t.Fatalf("Expected setup to redirect once complete, got %d %q", rr.Code, rr.Header().Get("Location"))
	}

	loginAs(t, ts, testAdminUser, testAdminPassword)
}

func TestHandleLogin_InvalidCredentials(t *testing.T) {
	ts := newTestServer(t, composedConfig())
	createUser(t, ts, testAdminUser, testAdminPassword, auth.RoleAdmin)

	getRR := ts.serve(httptest.NewRequest(http.MethodGet, "/admin/login", nil))
	s := session{
		csrfToken:  extractCSRFToken(t, getRR.Body.String()),
		csrfCookie: findCookie(getRR, "csrf_token"),
	}
	body := `{"username":"admin","password":"wrong-password"}`
	rr := ts.serve(s.request(http.MethodPost, "/admin/login", strings.NewReader(body)))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("Expected 401, got %d", rr.Code)
	}
	if findCookie(rr, sessionCookieName) != nil {
		t.Fatalf("Session cookie must not be set on failed login")
	}
}

func TestHandleLogout(t *testing.T) {
	ts := newTestServer(t, composedConfig())
	createUser(t, ts, testAdminUser, testAdminPassword, auth.RoleAdmin)
	s := loginAs(t, ts, testAdminUser, testAdminPassword)

	rr := ts.serve(s.request(http.MethodPost, "/admin/logout", nil))
	if rr.Code != http.StatusSeeOther || rr.Header().Get("Location") != "/admin/login" {
		t.Fatalf("Expected redirect after logout, got %d %q", rr.Code, rr.Header().Get("Location"))
	}

	rr = ts.serve(s.request(http.MethodGet, "/admin/settings", nil))
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("Expected session to be invalid after logout, got %d", rr.Code)
	}
}

func TestLoginPage_ComposedWidget(t *testing.T) {
	ts := newTestServer(t, composedConfig())
	createUser(t, ts, testAdminUser, testAdminPassword, auth.RoleAdmin)
	if state := ts.server.injector.State(); state != layout.StateComposed {
		t.Fatalf("Expected composed injector, got %s", state)
	}
	if err := ts.settings.EnsureDefault(context.Background(), settings.DefaultRecordNumber); err != nil {
		t.Fatalf("EnsureDefault failed: %v", err)
	}

	rr := ts.serve(httptest.NewRequest(http.MethodGet, "/admin/login", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("GET /admin/login: status %d", rr.Code)
	}
	doc, err := goquery.NewDocumentFromReader(rr.Body)
	if err != nil {
		t.Fatalf("Failed to parse HTML: %v", err)
	}
	if doc.Find("#login-form").Length() != 1 {
		t.Fatalf("Login form missing")
	}
	widget := doc.Find(".record-number-display")
	if widget.Length() != 1 {
		t.Fatalf("Expected one record number widget, found %d", widget.Length())
	}
	if got := widget.Text(); got != "Record Number: 10" {
		t.Fatalf("Widget text = %q", got)
	}
	// Composition places the widget directly after the layout.
	if !widget.Prev().Is(`div[style*="max-width: 320px"]`) {
		t.Fatalf("Widget should follow the auth layout container")
	}
}

func TestLoginPage_FallbackMountsBeforePoweredBy(t *testing.T) {
	ts := newTestServer(t, fallbackConfig())
	createUser(t, ts, testAdminUser, testAdminPassword, auth.RoleAdmin)
	if state := ts.server.injector.State(); state != layout.StatePolling {
		t.Fatalf("Expected polling injector, got %s", state)
	}
	if err := ts.settings.EnsureDefault(context.Background(), "42"); err != nil {
		t.Fatalf("EnsureDefault failed: %v", err)
	}

	rr := ts.serve(httptest.NewRequest(http.MethodGet, "/admin/login", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("GET /admin/login: status %d", rr.Code)
	}
	doc, err := goquery.NewDocumentFromReader(rr.Body)
	if err != nil {
		t.Fatalf("Failed to parse HTML: %v", err)
	}
	mount := doc.Find("#" + layout.DefaultMountID)
	if mount.Length() != 1 {
		t.Fatalf("Expected one mount node, found %d", mount.Length())
	}
	if !mount.Parent().Is(`div[style*="max-width: 320px"]`) {
		t.Fatalf("Mount node should be inside the layout container")
	}
	if !mount.Next().Is(".powered-by") {
		t.Fatalf("Mount node should be placed before the powered-by block")
	}
	if got := mount.Find(".record-number-display").Text(); got != "Record Number: 42" {
		t.Fatalf("Widget text = %q", got)
	}
	if doc.Find(`meta[name="csrf-token"]`).Length() != 1 {
		t.Fatalf("Login page lost its head while being attached")
	}
}

func TestLoginPage_NoWidgetWhenUnset(t *testing.T) {
	for name, cfg := range map[string]Config{"composed": composedConfig(), "fallback": fallbackConfig()} {
		t.Run(name, func(t *testing.T) {
			ts := newTestServer(t, cfg)
			createUser(t, ts, testAdminUser, testAdminPassword, auth.RoleAdmin)

			rr := ts.serve(httptest.NewRequest(http.MethodGet, "/admin/login", nil))
			if rr.Code != http.StatusOK {
				t.Fatalf("GET /admin/login: status %d", rr.Code)
			}
			doc, err := goquery.NewDocumentFromReader(rr.Body)
			if err != nil {
				t.Fatalf("Failed to parse HTML: %v", err)
			}
			if n := doc.Find(".record-number-display").Length(); n != 0 {
				t.Fatalf("Expected no widget while the value is unset, found %d", n)
			}
			if doc.Find("#login-form").Length() != 1 {
				t.Fatalf("Login form missing")
			}
		})
	}
}

func TestUpdateRecordNumber_RequiresSession(t *testing.T) {
	ts := newTestServer(t, composedConfig())
	req := httptest.NewRequest(http.MethodPost, "/api/loginInfo:updateRecordNumber", strings.NewReader(`{"recordNumber":"25"}`))
	rr := ts.serve(req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("Expected 401, got %d", rr.Code)
	}
}

func TestUpdateRecordNumber_RequiresCSRF(t *testing.T) {
	ts := newTestServer(t, composedConfig())
	createUser(t, ts, testAdminUser, testAdminPassword, auth.RoleAdmin)
	s := loginAs(t, ts, testAdminUser, testAdminPassword)
	s.csrfCookie = nil

	rr := ts.serve(s.request(http.MethodPost, "/api/loginInfo:updateRecordNumber", strings.NewReader(`{"recordNumber":"25"}`)))
	if rr.Code != http.StatusForbidden {
		t.Fatalf("Expected 403, got %d", rr.Code)
	}
	if value, _ := ts.settings.RecordNumber(context.Background()); value != "" {
		t.Fatalf("Store must be untouched, got %q", value)
	}
}

func TestUpdateRecordNumber_NonAdminForbidden(t *testing.T) {
	ts := newTestServer(t, composedConfig())
	createUser(t, ts, testAdminUser, testAdminPassword, auth.RoleAdmin)
	createUser(t, ts, testMemberUser, testMemberPass, auth.RoleMember)
	if err := ts.settings.EnsureDefault(context.Background(), "15"); err != nil {
		t.Fatalf("EnsureDefault failed: %v", err)
	}
	s := loginAs(t, ts, testMemberUser, testMemberPass)

	rr := ts.serve(s.request(http.MethodPost, "/api/loginInfo:updateRecordNumber", strings.NewReader(`{"recordNumber":"25"}`)))
	if rr.Code != http.StatusForbidden {
		t.Fatalf("Expected 403, got %d", rr.Code)
	}
	if value, _ := ts.settings.RecordNumber(context.Background()); value != "15" {
		t.Fatalf("Record number changed by non-admin: %q", value)
	}
}

func TestUpdateRecordNumber_Admin(t *testing.T) {
	ts := newTestServer(t, composedConfig())
	createUser(t, ts, testAdminUser, testAdminPassword, auth.RoleAdmin)
	ctx := context.Background()
	if _, err := ts.db.CreateSystemSettings(ctx, "Site", `{"otherFeature":{"html":"<b>x</b>"},"pluginLoginInfo":{"theme":"dark"}}`); err != nil {
		t.Fatalf("Failed to seed settings: %v", err)
	}
	s := loginAs(t, ts, testAdminUser, testAdminPassword)

	tests := []struct {
		name string
		body string
		want string
	}{
		{"top-level string", `{"recordNumber":"25"}`, "25"},
		{"top-level number", `{"recordNumber":30}`, "30"},
		{"nested values", `{"values":{"recordNumber":"35"}}`, "35"},
		{"nested number", `{"values":{"recordNumber":40}}`, "40"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := ts.serve(s.request(http.MethodPost, "/api/loginInfo:updateRecordNumber", strings.NewReader(tt.body)))
			if rr.Code != http.StatusOK {
				t.Fatalf("Expected 200, got %d: %s", rr.Code, rr.Body.String())
			}
			rec := decodeRecord(t, rr)
			if got := settings.ParseLoginInfo(rec.Options).Value(); got != tt.want {
				t.Fatalf("Response record number = %q, want %q", got, tt.want)
			}
			if got, _ := ts.settings.RecordNumber(ctx); got != tt.want {
				t.Fatalf("Stored record number = %q, want %q", got, tt.want)
			}
		})
	}

	row, err := ts.db.GetSystemSettings(ctx)
	if err != nil {
		t.Fatalf("GetSystemSettings failed: %v", err)
	}
	want := `{"otherFeature":{"html":"<b>x</b>"},"pluginLoginInfo":{"recordNumber":"40","theme":"dark"}}`
	if row.Options != want {
		t.Fatalf("Stored options = %s, want %s", row.Options, want)
	}
	if row.Title != "Site" {
		t.Fatalf("Title changed: %q", row.Title)
	}
}

func TestUpdateRecordNumber_InvalidValues(t *testing.T) {
	ts := newTestServer(t, composedConfig())
	createUser(t, ts, testAdminUser, testAdminPassword, auth.RoleAdmin)
	s := loginAs(t, ts, testAdminUser, testAdminPassword)

	for _, body := range []string{
		`{"recordNumber":"abc"}`,
		`{"recordNumber":"0"}`,
		`{"recordNumber":-3}`,
		`{"recordNumber":1.5}`,
		`{"recordNumber":""}`,
		`{"recordNumber":true}`,
		`{}`,
		`not json`,
	} {
		rr := ts.serve(s.request(http.MethodPost, "/api/loginInfo:updateRecordNumber", strings.NewReader(body)))
		if rr.Code != http.StatusBadRequest {
			t.Errorf("body %s: expected 400, got %d", body, rr.Code)
		}
	}
	if value, _ := ts.settings.RecordNumber(context.Background()); value != "" {
		t.Fatalf("Invalid updates must not write, got %q", value)
	}
}

func TestUpdateRecordNumber_MethodNotAllowed(t *testing.T) {
	ts := newTestServer(t, composedConfig())
	createUser(t, ts, testAdminUser, testAdminPassword, auth.RoleAdmin)
	s := loginAs(t, ts, testAdminUser, testAdminPassword)

	rr := ts.serve(s.request(http.MethodGet, "/api/loginInfo:updateRecordNumber", nil))
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("Expected 405, got %d", rr.Code)
	}
}

func TestSystemSettingsGet(t *testing.T) {
	ts := newTestServer(t, composedConfig())

	rr := ts.serve(httptest.NewRequest(http.MethodGet, "/api/systemSettings:get", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rr.Code)
	}
	if rec := decodeRecord(t, rr); len(rec.Options) != 0 {
		t.Fatalf("Expected empty options before init, got %v", rec.Options)
	}

	if err := ts.settings.EnsureDefault(context.Background(), settings.DefaultRecordNumber); err != nil {
		t.Fatalf("EnsureDefault failed: %v", err)
	}
	rr = ts.serve(httptest.NewRequest(http.MethodGet, "/api/systemSettings:get", nil))
	rec := decodeRecord(t, rr)
	if got := settings.ParseLoginInfo(rec.Options).Value(); got != "10" {
		t.Fatalf("Record number = %q, want 10", got)
	}
}

func TestSettingsPages(t *testing.T) {
	ts := newTestServer(t, composedConfig())
	createUser(t, ts, testAdminUser, testAdminPassword, auth.RoleAdmin)
	s := loginAs(t, ts, testAdminUser, testAdminPassword)

	rr := ts.serve(s.request(http.MethodGet, "/admin/settings", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("GET /admin/settings: status %d", rr.Code)
	}
	doc, err := goquery.NewDocumentFromReader(rr.Body)
	if err != nil {
		t.Fatalf("Failed to parse HTML: %v", err)
	}
	link := doc.Find(`a[href="/admin/settings/login-info"]`)
	if link.Length() != 1 || strings.TrimSpace(link.Text()) != "Login Info Settings" {
		t.Fatalf("Login info settings link missing")
	}
	if icon, _ := link.Attr("data-icon"); icon != "SafetyOutlined" {
		t.Fatalf("Icon = %q", icon)
	}

	rr = ts.serve(s.request(http.MethodGet, "/admin/settings/login-info", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("GET /admin/settings/login-info: status %d", rr.Code)
	}
	doc, err = goquery.NewDocumentFromReader(rr.Body)
	if err != nil {
		t.Fatalf("Failed to parse HTML: %v", err)
	}
	input := doc.Find("#recordNumber")
	if value, _ := input.Attr("value"); value != settings.DefaultRecordNumber {
		t.Fatalf("Form should fall back to the default, got %q", value)
	}
	if _, disabled := input.Attr("disabled"); disabled {
		t.Fatalf("Admin form must be editable")
	}

	rr = ts.serve(s.request(http.MethodGet, "/admin/settings/unknown", nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("Expected 404 for unknown page, got %d", rr.Code)
	}
}

func TestSettingsPage_MemberReadOnly(t *testing.T) {
	ts := newTestServer(t, composedConfig())
	createUser(t, ts, testAdminUser, testAdminPassword, auth.RoleAdmin)
	createUser(t, ts, testMemberUser, testMemberPass, auth.RoleMember)
	if err := ts.settings.EnsureDefault(context.Background(), "15"); err != nil {
		t.Fatalf("EnsureDefault failed: %v", err)
	}
	s := loginAs(t, ts, testMemberUser, testMemberPass)

	rr := ts.serve(s.request(http.MethodGet, "/admin/settings/login-info", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d", rr.Code)
	}
	doc, err := goquery.NewDocumentFromReader(rr.Body)
	if err != nil {
		t.Fatalf("Failed to parse HTML: %v", err)
	}
	input := doc.Find("#recordNumber")
	if value, _ := input.Attr("value"); value != "15" {
		t.Fatalf("Form value = %q, want 15", value)
	}
	if _, disabled := input.Attr("disabled"); !disabled {
		t.Fatalf("Member form must be read-only")
	}
}

func TestSettingsRequiresAuth(t *testing.T) {
	ts := newTestServer(t, composedConfig())
	rr := ts.serve(httptest.NewRequest(http.MethodGet, "/admin/settings/login-info", nil))
	if rr.Code != http.StatusSeeOther || rr.Header().Get("Location") != "/admin/login" {
		t.Fatalf("Expected redirect to login, got %d %q", rr.Code, rr.Header().Get("Location"))
	}
}

func TestCleanupSessions(t *testing.T) {
	ts := newTestServer(t, composedConfig())
	createUser(t, ts, testAdminUser, testAdminPassword, auth.RoleAdmin)
	if _, err := ts.db.Exec(
		"INSERT INTO sessions (id, user_id, expires_at) VALUES (?, 1, ?)",
		"stale", time.Now().Add(-time.Hour),
	); err != nil {
		t.Fatalf("Failed to insert session: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		ts.server.cleanupSessions(ctx, 5*time.Millisecond)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for {
		var count int
		if err := ts.db.QueryRow("SELECT COUNT(*) FROM sessions").Scan(&count); err != nil {
			t.Fatalf("Count failed: %v", err)
		}
		if count == 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("Expired session was not removed")
		}
		time.Sleep(10 * time.Millisecond)
	}
	cancel()
	<-done
}
