package handlers

import (
	"net/http"
	"time"

	"github.com/abrezinsky/kioskfeedback/internal/auth"
	"github.com/abrezinsky/kioskfeedback/internal/models"
)

const defaultStatsWindow = 24 * time.Hour

// handleLoginPage renders the staff login form
func (h *Handlers) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	if h.Auth.GetSessionFromRequest(r) {
		http.Redirect(w, r, "/staff", http.StatusFound)
		return
	}
	h.templates.StaffLogin.Execute(w, LoginPageData{})
}

// handleLoginForm processes the login form submission
func (h *Handlers) handleLoginForm(w http.ResponseWriter, r *http.Request) {
	token, ok := h.Auth.Login(r.FormValue("password"))
	if !ok {
		w.WriteHeader(http.StatusUnauthorized)
		h.templates.StaffLogin.Execute(w, LoginPageData{Error: "Invalid password"})
		return
	}

	auth.SetSessionCookie(w, token)
	http.Redirect(w, r, "/staff", http.StatusFound)
}

// handleLogoutForm clears the session and redirects to login
func (h *Handlers) handleLogoutForm(w http.ResponseWriter, r *http.Request) {
	h.logout(w, r)
	http.Redirect(w, r, auth.LoginPath, http.StatusFound)
}

func (h *Handlers) handleStaffLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	token, ok := h.Auth.Login(req.Password)
	if !ok {
		respondError(w, Unauthorized("Invalid password"))
		return
	}
	auth.SetSessionCookie(w, token)
	respondSuccess(w, "Logged in")
}

func (h *Handlers) handleStaffLogout(w http.ResponseWriter, r *http.Request) {
	h.logout(w, r)
	respondSuccess(w, "Logged out")
}

func (h *Handlers) logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(auth.CookieName); err == nil {
		h.Auth.Logout(cookie.Value)
	}
	auth.ClearSessionCookie(w)
}

// handleStaffPage renders the staff console
func (h *Handlers) handleStaffPage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	data := StaffPageData{
		Title:    "Kiosk Staff Console",
		DeviceID: h.Controller.DeviceID(),
		Snapshot: h.Controller.Snapshot(),
	}
	// The console still renders when the journal is unavailable
	if stats, err := h.Controller.Stats(ctx, h.now().Add(-defaultStatsWindow)); err == nil {
		data.Stats = stats
	}
	if events, err := h.Controller.RecentEvents(ctx, "", 25); err == nil {
		data.Events = events
	}
	h.templates.Staff.Execute(w, data)
}

func (h *Handlers) handleStaffStats(w http.ResponseWriter, r *http.Request) {
	since := h.now().Add(-defaultStatsWindow)
	if raw := r.URL.Query().Get("since"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			respondError(w, BadRequest("Invalid since parameter: expected RFC3339"))
			return
		}
		since = t
	}

	stats, err := h.Controller.Stats(r.Context(), since)
	if err != nil {
		respondError(w, err)
		return
	}

	snap := h.Controller.Snapshot()
	respondOK(w, StaffStatsResponse{
		DeviceID:            h.Controller.DeviceID(),
		Since:               since.UTC(),
		ConnectionOK:        snap.ConnectionOK,
		Locked:              snap.Session.Locked,
		SessionID:           snap.Session.SessionID,
		ConsecutiveFailures: snap.Submission.ConsecutiveFailures,
		Escalated:           snap.Submission.Escalated,
		Journal:             stats,
	})
}

func (h *Handlers) handleStaffEvents(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 100)
	if err != nil {
		respondError(w, err)
		return
	}
	events, err := h.Controller.RecentEvents(r.Context(), r.URL.Query().Get("kind"), limit)
	if err != nil {
		respondError(w, err)
		return
	}
	// Ensure we return an empty array, not null
	if events == nil {
		events = []models.JournalEvent{}
	}
	respondOK(w, EventsResponse{Events: events})
}

func (h *Handlers) handleStaffReset(w http.ResponseWriter, r *http.Request) {
	if err := h.Controller.StaffReset(r.Context()); err != nil {
		respondError(w, err)
		return
	}
	respondSuccess(w, "Kiosk reset")
}

func (h *Handlers) handleStaffAcknowledge(w http.ResponseWriter, r *http.Request) {
	respondOK(w, AcknowledgeResponse{Acknowledged: h.Controller.AcknowledgeEscalation(r.Context())})
}
