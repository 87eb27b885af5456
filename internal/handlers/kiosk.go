package handlers

import (
	"net/http"
)

func (h *Handlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	snap := h.Controller.Snapshot()
	respondOK(w, HealthResponse{
		OK:           true,
		DeviceID:     h.Controller.DeviceID(),
		ConnectionOK: snap.ConnectionOK,
		Locked:       snap.Session.Locked,
	})
}

func (h *Handlers) handleGetState(w http.ResponseWriter, r *http.Request) {
	respondOK(w, h.Controller.Snapshot())
}

func (h *Handlers) handleStartSession(w http.ResponseWriter, r *http.Request) {
	id, err := h.Controller.StartSession(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, StartSessionResponse{SessionID: id})
}

func (h *Handlers) handleTouch(w http.ResponseWriter, r *http.Request) {
	h.Controller.Touch()
	w.WriteHeader(http.StatusNoContent)
}

// editDraft applies a draft edit, counts it as interaction and returns the new state
func (h *Handlers) editDraft(w http.ResponseWriter, edit func() error) {
	if err := edit(); err != nil {
		respondError(w, err)
		return
	}
	h.Controller.Touch()
	respondOK(w, h.Controller.Snapshot())
}

func (h *Handlers) handleSetOverallRating(w http.ResponseWriter, r *http.Request) {
	var req RatingRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	h.editDraft(w, func() error { return h.Draft.SetOverallRating(req.Rating) })
}

func (h *Handlers) handleSetItemRating(w http.ResponseWriter, r *http.Request) {
	itemID, err := urlParam(r, "itemID")
	if err != nil {
		respondError(w, err)
		return
	}
	var req RatingRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	h.editDraft(w, func() error { return h.Draft.SetItemRating(itemID, req.Rating) })
}

func (h *Handlers) handleSetItemComment(w http.ResponseWriter, r *http.Request) {
	itemID, err := urlParam(r, "itemID")
	if err != nil {
		respondError(w, err)
		return
	}
	var req TextRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	h.editDraft(w, func() error { return h.Draft.SetItemComment(itemID, req.Text) })
}

func (h *Handlers) handleToggleItemChip(w http.ResponseWriter, r *http.Request) {
	itemID, err := urlParam(r, "itemID")
	if err != nil {
		respondError(w, err)
		return
	}
	var req ChipRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if req.Chip == "" {
		respondError(w, BadRequest("chip is required"))
		return
	}
	h.editDraft(w, func() error { return h.Draft.ToggleItemChip(itemID, req.Chip) })
}

func (h *Handlers) handleSetGeneralText(w http.ResponseWriter, r *http.Request) {
	var req TextRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	h.editDraft(w, func() error { return h.Draft.SetGeneralText(req.Text) })
}

func (h *Handlers) handleToggleGeneralChip(w http.ResponseWriter, r *http.Request) {
	var req ChipRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if req.Chip == "" {
		respondError(w, BadRequest("chip is required"))
		return
	}
	h.editDraft(w, func() error { return h.Draft.ToggleGeneralChip(req.Chip) })
}

func (h *Handlers) handleSetAllowContact(w http.ResponseWriter, r *http.Request) {
	var req ContactRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	h.editDraft(w, func() error { return h.Draft.SetAllowContact(req.Allow) })
}

func (h *Handlers) handleSubmit(w http.ResponseWriter, r *http.Request) {
	result, err := h.Controller.Submit(r.Context())
	if err != nil {
		if result == nil {
			respondError(w, err)
			return
		}
		// The backend call itself failed; the shell shows the message and may retry
		respondJSON(w, http.StatusBadGateway, SubmitFailedResponse{
			Code:      ErrCodeSubmitFailed,
			Message:   result.Message,
			Failures:  result.Failures,
			Escalated: result.Escalated,
		})
		return
	}
	respondOK(w, result)
}

func (h *Handlers) handleReportScreen(w http.ResponseWriter, r *http.Request) {
	var req ScreenRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if !h.Hub.SetCurrentScreen(req.Screen) {
		respondError(w, BadRequest("Invalid screen: "+string(req.Screen)))
		return
	}
	respondOK(w, ScreenResponse{Screen: h.Hub.CurrentScreen()})
}

func (h *Handlers) handleClearNotice(w http.ResponseWriter, r *http.Request) {
	h.Draft.ClearNotice()
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) handleEscalationQR(w http.ResponseWriter, r *http.Request) {
	size, err := queryInt(r, "size", 256)
	if err != nil {
		respondError(w, err)
		return
	}
	if size < 64 || size > 1024 {
		respondError(w, BadRequest("Invalid size parameter: must be between 64 and 1024"))
		return
	}

	png, err := h.Controller.EscalationQR(size)
	if err != nil {
		respondError(w, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-cache")
	w.Write(png)
}
