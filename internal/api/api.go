// Package api exposes the renovation services over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"renoquote/internal/events"
	"renoquote/internal/inspiration"
	"renoquote/internal/leads"
	"renoquote/internal/orchestrator"
	"renoquote/internal/renovation"
)

// Bodies carry up to ten base64 photos.
const maxBodyBytes = 256 << 20

// Processor is satisfied by *orchestrator.Facade.
type Processor interface {
	Process(ctx context.Context, req renovation.Request) (orchestrator.Result, error)
}

// Inspirer is satisfied by *inspiration.Service.
type Inspirer interface {
	Find(ctx context.Context, room renovation.Room, style renovation.Style, count int) inspiration.Result
}

// Providers reports which upstream services are configured.
type Providers struct {
	OpenAI bool `json:"openai"`
	Gemini bool `json:"gemini"`
	Imagen bool `json:"imagen"`
	Pexels bool `json:"pexels"`
}

// Handler bundles the endpoints. Probe and Events are optional.
type Handler struct {
	Facade    Processor
	Estimator orchestrator.Estimator
	Inspirer  Inspirer
	Leads     *leads.Service
	Events    *events.Broker
	Probe     Prober
	Providers Providers
	Tiers     []string
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return renovation.Invalid("body", "corps de requête JSON invalide: %v", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Error().Err(err).Msg("encode response")
	}
}

// writeError maps validation errors to 400 and everything else to 500.
func writeError(w http.ResponseWriter, err error) {
	var verr *renovation.ValidationError
	if errors.As(err, &verr) {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Données invalides", Details: verr.Error()})
		return
	}
	log.Error().Err(err).Msg("request failed")
	writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Erreur interne du serveur", Details: err.Error()})
}

// Health handles GET /health.
func (h Handler) Health(w http.ResponseWriter, _ *http.Request) {
	sink := ""
	if h.Leads != nil {
		sink = h.Leads.SinkName()
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"providers": h.Providers,
		"tiers":     h.Tiers,
		"leadSink":  sink,
	})
}
