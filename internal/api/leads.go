package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"renoquote/internal/leads"
	"renoquote/internal/renovation"
)

// SubmitLead handles POST /leads.
func (h Handler) SubmitLead(w http.ResponseWriter, r *http.Request) {
	var lead leads.Lead
	if err := decodeJSON(w, r, &lead); err != nil {
		writeError(w, err)
		return
	}

	enriched, err := h.Leads.Submit(r.Context(), lead)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "lead": enriched})
	case errors.Is(err, renovation.ErrValidation):
		writeError(w, err)
	case errors.Is(err, leads.ErrDelivery):
		log.Error().Err(err).Str("sink", h.Leads.SinkName()).Msg("lead delivery failed")
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: "Transmission du lead impossible", Details: err.Error()})
	default:
		writeError(w, err)
	}
}

// ListLeads handles GET /leads?limit=N.
func (h Handler) ListLeads(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	recent, err := h.Leads.Recent(r.Context(), limit)
	if errors.Is(err, leads.ErrNotListable) {
		writeJSON(w, http.StatusNotImplemented, errorResponse{Error: "Les leads ne sont pas conservés", Details: err.Error()})
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "leads": recent})
}

// StreamLeads handles GET /leads/stream as server-sent events.
func (h Handler) StreamLeads(w http.ResponseWriter, r *http.Request) {
	if h.Events == nil {
		writeJSON(w, http.StatusNotImplemented, errorResponse{Error: "Flux de leads inactif"})
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "streaming non supporté"})
		return
	}

	// Subscriptions outlive the server write timeout.
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	ch := h.Events.Subscribe()
	defer h.Events.Unsubscribe(ch)

	keepAlive := time.NewTicker(25 * time.Second)
	defer keepAlive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-keepAlive.C:
			_, _ = fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		case evt, open := <-ch:
			if !open {
				return
			}
			payload, err := json.Marshal(evt)
			if err != nil {
				log.Error().Err(err).Msg("encode lead event")
				continue
			}
			_, _ = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", evt.Type, payload)
			flusher.Flush()
		}
	}
}
