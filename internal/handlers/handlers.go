package handlers

import (
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"time"

	"github.com/abrezinsky/kioskfeedback/internal/auth"
	"github.com/abrezinsky/kioskfeedback/internal/services"
	"github.com/abrezinsky/kioskfeedback/internal/websocket"
)

// NewStaticServer creates a static file server from an fs.FS
func NewStaticServer(staticFS fs.FS) http.Handler {
	return http.FileServer(http.FS(staticFS))
}

// Templates holds all parsed HTML templates
type Templates struct {
	StaffLogin *template.Template
	Staff      *template.Template
}

// Handlers holds all HTTP handler dependencies
type Handlers struct {
	Controller   services.ControllerServicer
	Draft        services.DraftEditor
	Auth         *auth.Auth
	Hub          *websocket.Hub
	Log          HTTPLogger
	templates    *Templates
	staticServer http.Handler
	now          func() time.Time
}

// HTTPLogger is an interface for loggers that support HTTP logging control
type HTTPLogger interface {
	IsHTTPLoggingEnabled() bool
}

// New creates a new Handlers instance with all dependencies
func New(
	controller services.ControllerServicer,
	draft services.DraftEditor,
	templatesFS fs.FS,
	staticServer http.Handler,
	staffAuth *auth.Auth,
	hub *websocket.Hub,
	log HTTPLogger,
) (*Handlers, error) {
	templates, err := loadTemplates(templatesFS)
	if err != nil {
		return nil, fmt.Errorf("failed to load templates: %w", err)
	}

	return &Handlers{
		Controller:   controller,
		Draft:        draft,
		Auth:         staffAuth,
		Hub:          hub,
		Log:          log,
		templates:    templates,
		staticServer: staticServer,
		now:          time.Now,
	}, nil
}

// NoopHTTPLogger is a test logger that always returns false for HTTP logging
type NoopHTTPLogger struct{}

func (NoopHTTPLogger) IsHTTPLoggingEnabled() bool { return false }

// NewForTesting creates a Handlers instance without loading templates (for testing API endpoints)
func NewForTesting(controller services.ControllerServicer, draft services.DraftEditor, hub *websocket.Hub) *Handlers {
	return &Handlers{
		Controller:   controller,
		Draft:        draft,
		Auth:         auth.New("test-password"),
		Hub:          hub,
		Log:          NoopHTTPLogger{},
		staticServer: http.NotFoundHandler(),
		now:          time.Now,
	}
}

// loadTemplates parses all templates once at startup
func loadTemplates(templatesFS fs.FS) (*Templates, error) {
	t := &Templates{}
	var err error

	if t.StaffLogin, err = template.ParseFS(templatesFS, "login.html"); err != nil {
		return nil, fmt.Errorf("staff login template: %w", err)
	}
	if t.Staff, err = template.ParseFS(templatesFS, "staff.html"); err != nil {
		return nil, fmt.Errorf("staff template: %w", err)
	}

	return t, nil
}
