package app

import (
	"context"
	stderrors "errors"
	"fmt"
	"io/fs"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/abrezinsky/kioskfeedback/internal/auth"
	"github.com/abrezinsky/kioskfeedback/internal/config"
	"github.com/abrezinsky/kioskfeedback/internal/events"
	"github.com/abrezinsky/kioskfeedback/internal/handlers"
	"github.com/abrezinsky/kioskfeedback/internal/logger"
	"github.com/abrezinsky/kioskfeedback/internal/models"
	"github.com/abrezinsky/kioskfeedback/internal/repository"
	"github.com/abrezinsky/kioskfeedback/internal/services"
	"github.com/abrezinsky/kioskfeedback/internal/store"
	"github.com/abrezinsky/kioskfeedback/internal/tasks"
	"github.com/abrezinsky/kioskfeedback/internal/websocket"
	"github.com/abrezinsky/kioskfeedback/pkg/kioskapi"
)

// Housekeeping policy
const (
	JanitorInterval  = 10 * time.Minute
	JournalRetention = 30 * 24 * time.Hour
)

// App holds all application dependencies
type App struct {
	log        logger.Logger
	cfg        *config.Config
	handlers   *handlers.Handlers
	repo       *repository.Repository
	store      *store.Store
	hub        *websocket.Hub
	controller *services.Controller
	journal    *services.JournalService
	staffAuth  *auth.Auth
	publisher  events.Publisher
	janitor    *tasks.Periodic

	mu        sync.Mutex
	server    *http.Server
	closeOnce sync.Once
}

// New creates and initializes a new application instance
func New(log logger.Logger, cfg *config.Config, dbPath string, client kioskapi.Client, templatesFS, staticFS fs.FS, staffAuth *auth.Auth) (*App, error) {
	repo, err := repository.New(dbPath)
	if err != nil {
		return nil, err
	}

	publisher := newPublisher(log, cfg)
	journal := services.NewJournalService(log.With("component", "journal"), repo, cfg.DeviceID)
	journal.SetPublisher(publisher)

	st := store.New()

	// WebSocket hub doubles as the navigation collaborator
	hub := websocket.New(log)
	hub.Start()

	controller := services.NewController(log, services.ControllerConfig{
		DeviceID:          cfg.DeviceID,
		PollInterval:      cfg.PollInterval,
		HardTimeout:       cfg.HardTimeout,
		InactivityTimeout: cfg.InactivityTimeout,
		ThankYouDelay:     cfg.ThankYouDelay,
	}, client, st, hub, journal)
	controller.SetBroadcaster(hub)
	hub.SetStateSource(controller)
	// Any screen change reported by the shell counts as interaction
	hub.SetScreenListener(func(models.Screen) { controller.Touch() })

	staticServer := handlers.NewStaticServer(staticFS)

	h, err := handlers.New(controller, st, templatesFS, staticServer, staffAuth, hub, log)
	if err != nil {
		publisher.Close()
		repo.Close()
		return nil, fmt.Errorf("failed to initialize handlers: %w", err)
	}

	a := &App{
		log:        log,
		cfg:        cfg,
		handlers:   h,
		repo:       repo,
		store:      st,
		hub:        hub,
		controller: controller,
		journal:    journal,
		staffAuth:  staffAuth,
		publisher:  publisher,
	}
	a.janitor = tasks.NewPeriodic("janitor", JanitorInterval, log, a.housekeeping)
	return a, nil
}

// newPublisher connects to NATS when configured. A failed connection is not
// fatal; notifications are simply dropped.
func newPublisher(log logger.Logger, cfg *config.Config) events.Publisher {
	if cfg.NATSURL == "" {
		return events.NopPublisher{}
	}
	p, err := events.NewNATSPublisher(cfg.NATSURL, "kioskfeedback-"+cfg.DeviceID)
	if err != nil {
		log.Warn("Staff notifications disabled", "nats_url", cfg.NATSURL, "error", err)
		return events.NopPublisher{}
	}
	log.Info("Staff notifications enabled", "nats_url", cfg.NATSURL)
	return p
}

// housekeeping drops expired staff sessions and old journal rows
func (a *App) housekeeping(ctx context.Context, tok tasks.Token) {
	if n := a.staffAuth.PruneExpired(); n > 0 {
		a.log.Debug("Pruned staff sessions", "count", n)
	}
	if !tok.Alive() {
		return
	}
	if _, err := a.journal.Prune(ctx, JournalRetention); err != nil {
		a.log.Warn("Journal prune failed", "error", err)
	}
}

// Router returns the configured HTTP router
func (a *App) Router() chi.Router {
	return a.handlers.Router()
}

// Controller returns the session controller
func (a *App) Controller() *services.Controller {
	return a.controller
}

// Start begins polling the backend and periodic housekeeping
func (a *App) Start(ctx context.Context) {
	a.controller.Start(ctx)
	a.janitor.Start(ctx)
}

// Run starts the HTTP server and blocks until it stops. A server stopped by
// Shutdown or Close returns nil.
func (a *App) Run(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	port := addr
	if tcp, ok := ln.Addr().(*net.TCPAddr); ok {
		port = fmt.Sprintf(":%d", tcp.Port)
	}
	baseURL := fmt.Sprintf("http://%s%s", getPreferredIP(realNetworkProvider{}), port)

	srv := &http.Server{Handler: a.Router()}
	a.mu.Lock()
	a.server = srv
	a.mu.Unlock()

	a.log.Info("Server starting", "url", baseURL, "device_id", a.cfg.DeviceID, "backend", a.cfg.APIBaseURL)
	a.log.Info("Staff console", "url", baseURL+"/staff")
	a.log.Info("Shell websocket", "url", strings.Replace(baseURL, "http://", "ws://", 1)+"/ws")

	if err := srv.Serve(ln); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests, waits for in-flight ones and then
// releases all resources
func (a *App) Shutdown(ctx context.Context) error {
	a.mu.Lock()
	srv := a.server
	a.mu.Unlock()

	var err error
	if srv != nil {
		err = srv.Shutdown(ctx)
	}
	a.Close()
	return err
}

// Close stops background work and releases resources. Safe to call twice.
func (a *App) Close() {
	a.closeOnce.Do(func() {
		a.janitor.Stop()
		a.controller.Stop()

		a.mu.Lock()
		if a.server != nil {
			a.server.Close()
		}
		a.mu.Unlock()

		if err := a.publisher.Close(); err != nil {
			a.log.Warn("Failed to close publisher", "error", err)
		}
		if err := a.repo.Close(); err != nil {
			a.log.Warn("Failed to close journal", "error", err)
		}
	})
}

// ResetSession abandons the current session, as the staff reset does
func (a *App) ResetSession(ctx context.Context) error {
	return a.controller.StaffReset(ctx)
}

// networkInterface wraps net.Interface for testing
type networkInterface interface {
	Flags() net.Flags
	Addrs() ([]net.Addr, error)
}

// realInterface wraps a real net.Interface
type realInterface struct {
	iface net.Interface
}

func (r realInterface) Flags() net.Flags {
	return r.iface.Flags
}

func (r realInterface) Addrs() ([]net.Addr, error) {
	return r.iface.Addrs()
}

// networkProvider is an interface for getting network interfaces (for testing)
type networkProvider interface {
	Interfaces() ([]networkInterface, error)
}

// realNetworkProvider implements networkProvider using actual net package
type realNetworkProvider struct{}

func (realNetworkProvider) Interfaces() ([]networkInterface, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}
	result := make([]networkInterface, len(ifaces))
	for i, iface := range ifaces {
		result[i] = realInterface{iface: iface}
	}
	return result, nil
}

// getPreferredIP returns the address staff should use to reach the kiosk
// from another device on the LAN. Private network addresses are preferred;
// localhost is the fallback.
func getPreferredIP(provider networkProvider) string {
	ifaces, err := provider.Interfaces()
	if err != nil {
		return "localhost"
	}

	var candidates []net.IP
	for _, iface := range ifaces {
		flags := iface.Flags()
		if flags&net.FlagUp == 0 || flags&net.FlagLoopback != 0 {
			continue
		}

		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}

		for _, addr := range addrs {
			var ip net.IP
			switch v := addr.(type) {
			case *net.IPNet:
				ip = v.IP
			case *net.IPAddr:
				ip = v.IP
			}
			if ip == nil || ip.To4() == nil || ip.IsLoopback() {
				continue
			}
			candidates = append(candidates, ip)
		}
	}

	for _, ip := range candidates {
		if ip.IsPrivate() {
			return ip.String()
		}
	}
	if len(candidates) > 0 {
		return candidates[0].String()
	}
	return "localhost"
}
