// internal/server/server.go
package server

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"time"

	"logininfo/internal/auth"
	"logininfo/internal/database"
	"logininfo/internal/layout"
	"logininfo/internal/settings"
)

// Names of the components the host registers.
const (
	ComponentAuthLayout    = "AuthLayout"
	ComponentSettingsPage  = "SettingsPage"
	ComponentRecordDisplay = "RecordNumberDisplay"

	loginInfoPageName = "login-info"
)

const sessionCleanupInterval = time.Hour

type Config struct {
	UseHTTPS       bool
	ProductionMode bool
	// ExposeAuthLayout registers the sign-in layout as a component so the widget can be
	// composed with it. When false the widget is attached to the rendered page instead.
	ExposeAuthLayout bool
	Layout           layout.Options
	SiteTitle        string
}

type Server struct {
	db            *database.DB
	logger        *log.Logger
	auth          *auth.Service
	settings      *settings.Service
	components    *layout.Registry
	injector      *layout.Injector
	pages         *SettingsPages
	csrf          *CSRF
	config        Config
	templateCache map[string]*template.Template
}

func NewServer(db *database.DB, logger *log.Logger, settingsService *settings.Service, config Config) (*Server, error) {
	if config.SiteTitle == "" {
		config.SiteTitle = "Sign in"
	}

	csrfConfig := DefaultCSRFConfig()
	csrfConfig.Secure = config.UseHTTPS

	s := &Server{
		db:         db,
		logger:     logger,
		auth:       auth.NewService(db.DB),
		settings:   settingsService,
		components: layout.NewRegistry(),
		pages:      NewSettingsPages(),
		csrf:       NewCSRF(csrfConfig),
		config:     config,
	}

	templates, err := LoadTemplates(webContent, s.registerTemplateFuncs())
	if err != nil {
		s.csrf.Close()
		return nil, fmt.Errorf("failed to load templates: %w", err)
	}
	s.templateCache = templates
	if !s.config.ProductionMode {
		s.logger.Printf("Successfully loaded and cached %d templates.", len(s.templateCache))
	}

	if err := s.registerComponents(); err != nil {
		s.csrf.Close()
		return nil, err
	}

	if !s.config.ProductionMode {
		s.logger.Printf("Server initialized successfully (components: %v, record number widget: %s)",
			s.components.Names(), s.injector.State())
	}
	return s, nil
}

// registerComponents wires the host components, the login-info settings page and the
// record-number widget.
func (s *Server) registerComponents() error {
	if s.config.ExposeAuthLayout {
		if err := s.components.Add(ComponentAuthLayout, templateComponent{server: s, name: "auth_layout.html"}, false); err != nil {
			return err
		}
	}

	display := layout.NewDisplay(s.settings, s.logger)
	if err := s.components.Add(ComponentRecordDisplay, display, false); err != nil {
		return err
	}
	if err := s.components.Add(ComponentSettingsPage, templateComponent{server: s, name: "admin/login_info.html"}, false); err != nil {
		return err
	}
	if err := s.pages.Add(SettingsPage{
		Name:      loginInfoPageName,
		Title:     "Login Info Settings",
		Icon:      "SafetyOutlined",
		Component: ComponentSettingsPage,
	}); err != nil {
		return err
	}

	opts := s.config.Layout
	opts.LayoutName = ComponentAuthLayout
	opts.Verbose = opts.Verbose || !s.config.ProductionMode
	injector, err := layout.NewInjector(s.components, display, opts, s.logger)
	if err != nil {
		return fmt.Errorf("failed to configure record number widget: %w", err)
	}
	injector.Install()
	s.injector = injector
	return nil
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/setup", s.handleSetup)
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/admin/login", s.handleLogin)
	mux.HandleFunc("/admin/logout", s.requireAuth(s.handleLogout))
	mux.HandleFunc("/admin/settings", s.requireAuth(s.handleSettingsIndex))
	mux.HandleFunc("/admin/settings/{name}", s.requireAuth(s.handleSettingsPage))
	mux.HandleFunc("/admin", s.requireAuth(s.handleAdmin))
	mux.HandleFunc("/api/systemSettings:get", s.handleSystemSettingsGet)
	mux.HandleFunc("/api/loginInfo:updateRecordNumber", s.requireAPIAuth(s.csrfProtect(s.handleUpdateRecordNumber)))

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			RespondWithError(w, http.StatusNotFound, "Not found")
			return
		}
		s.handleIndex(w, r)
	})

	return s.logRequests(gzipMiddleware(mux))
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
		// The sign-in page may wait for the widget poll to finish.
		WriteTimeout: s.injector.Options().Timeout + 20*time.Second,
	}

	go s.cleanupSessions(ctx, sessionCleanupInterval)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Printf("Starting server on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.logger.Printf("Shutting down server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("error shutting down server: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// cleanupSessions deletes expired sessions every interval until ctx is done.
func (s *Server) cleanupSessions(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := s.auth.CleanExpiredSessions(); err != nil {
				s.logger.Printf("Error cleaning expired sessions: %v", err)
			}
		case <-ctx.Done():
			return
		}
	}
}

// Close releases background resources.
func (s *Server) Close() {
	s.csrf.Close()
}
