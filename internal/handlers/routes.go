package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// conditionalHTTPLogger only logs HTTP requests when HTTP logging is enabled
func (h *Handlers) conditionalHTTPLogger(next http.Handler) http.Handler {
	logger := middleware.Logger(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.Log != nil && h.Log.IsHTTPLoggingEnabled() {
			logger.ServeHTTP(w, r)
		} else {
			next.ServeHTTP(w, r)
		}
	})
}

// Router returns a configured chi router with all routes
func (h *Handlers) Router() chi.Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(h.conditionalHTTPLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RedirectSlashes)

	// WebSocket connections are long lived, so they stay outside the timeout
	r.Get("/ws", h.Hub.ServeWs)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(30 * time.Second))

		r.Handle("/static/*", http.StripPrefix("/static/", h.staticServer))
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, "/staff", http.StatusFound)
		})
		r.Get("/healthz", h.handleHealth)

		// Shell API (local, unauthenticated)
		r.Route("/api", func(r chi.Router) {
			r.Get("/state", h.handleGetState)
			r.Post("/session/start", h.handleStartSession)
			r.Post("/touch", h.handleTouch)
			r.Post("/submit", h.handleSubmit)
			r.Post("/screen", h.handleReportScreen)
			r.Post("/notice/clear", h.handleClearNotice)
			r.Get("/escalation/qr", h.handleEscalationQR)

			r.Route("/draft", func(r chi.Router) {
				r.Post("/overall", h.handleSetOverallRating)
				r.Post("/items/{itemID}/rating", h.handleSetItemRating)
				r.Post("/items/{itemID}/comment", h.handleSetItemComment)
				r.Post("/items/{itemID}/chips", h.handleToggleItemChip)
				r.Post("/general/text", h.handleSetGeneralText)
				r.Post("/general/chips", h.handleToggleGeneralChip)
				r.Post("/contact", h.handleSetAllowContact)
			})

			// Staff API
			r.Post("/staff/login", h.handleStaffLogin)
			r.Post("/staff/logout", h.handleStaffLogout)
			r.Group(func(r chi.Router) {
				r.Use(h.Auth.RequireStaffAPI)
				r.Get("/staff/stats", h.handleStaffStats)
				r.Get("/staff/events", h.handleStaffEvents)
				r.Post("/staff/reset", h.handleStaffReset)
				r.Post("/staff/acknowledge", h.handleStaffAcknowledge)
			})
		})

		// Staff console pages
		r.Get("/staff/login", h.handleLoginPage)
		r.Post("/staff/login", h.handleLoginForm)
		r.Post("/staff/logout", h.handleLogoutForm)
		r.Group(func(r chi.Router) {
			r.Use(h.Auth.RequireStaff)
			r.Get("/staff", h.handleStaffPage)
		})
	})

	return r
}
