package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"google.golang.org/genai"

	"renoquote/internal/transform"
)

const smokePrompt = "Réponds simplement « OK » pour confirmer que la connexion fonctionne."

// Diagnostic is the body returned by GET /test-banana.
type Diagnostic struct {
	Success       bool   `json:"success"`
	Provider      string `json:"provider"`
	Model         string `json:"model"`
	KeyConfigured bool   `json:"keyConfigured"`
	KeyPreview    string `json:"keyPreview,omitempty"`
	Response      string `json:"response,omitempty"`
	Error         string `json:"error,omitempty"`
	Kind          string `json:"kind,omitempty"`
	ElapsedMS     int64  `json:"elapsedMs"`
}

// Prober checks a provider key with one live call and returns the HTTP status to use.
type Prober interface {
	Probe(ctx context.Context) (Diagnostic, int)
}

// GeminiProbe runs a one-line text generation against the Gemini API.
type GeminiProbe struct {
	models transform.ContentGenerator
	model  string
	apiKey string
}

// NewGeminiProbe builds a probe. An empty key yields a probe that reports 401.
func NewGeminiProbe(ctx context.Context, apiKey, model string) (*GeminiProbe, error) {
	p := &GeminiProbe{model: model, apiKey: strings.TrimSpace(apiKey)}
	if p.apiKey == "" {
		return p, nil
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: p.apiKey, Backend: genai.BackendGeminiAPI})
	if err != nil {
		return nil, fmt.Errorf("diagnostics: create genai client: %w", err)
	}
	p.models = client.Models
	return p, nil
}

func (p *GeminiProbe) Probe(ctx context.Context) (Diagnostic, int) {
	started := time.Now()
	d := Diagnostic{Provider: "gemini", Model: p.model, KeyConfigured: p.apiKey != ""}
	if !d.KeyConfigured || p.models == nil {
		d.Error = "GEMINI_API_KEY n'est pas configurée"
		d.Kind = KindNoKey
		return d, http.StatusUnauthorized
	}
	d.KeyPreview = preview(p.apiKey)

	ctx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()
	resp, err := p.models.GenerateContent(ctx, p.model, genai.Text(smokePrompt), &genai.GenerateContentConfig{
		MaxOutputTokens: 20,
	})
	d.ElapsedMS = time.Since(started).Milliseconds()
	if err != nil {
		d.Error = err.Error()
		d.Kind = classify(err)
		if d.Kind == KindInvalidKey {
			return d, http.StatusUnauthorized
		}
		return d, http.StatusInternalServerError
	}

	d.Response = responseText(resp)
	if d.Response == "" {
		d.Error = "réponse vide"
		d.Kind = KindUnknown
		return d, http.StatusInternalServerError
	}
	d.Success = true
	return d, http.StatusOK
}

// Failure kinds reported by a probe.
const (
	KindNoKey      = "no_key"
	KindInvalidKey = "invalid_key"
	KindQuota      = "quota"
	KindNetwork    = "network"
	KindUnknown    = "unknown"
)

func classify(err error) string {
	switch transform.APIStatus(err) {
	case http.StatusUnauthorized, http.StatusForbidden:
		return KindInvalidKey
	case http.StatusTooManyRequests:
		return KindQuota
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindNetwork
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "api key not valid"), strings.Contains(msg, "permission denied"), strings.Contains(msg, "api_key_invalid"):
		return KindInvalidKey
	case strings.Contains(msg, "quota"), strings.Contains(msg, "resource_exhausted"):
		return KindQuota
	case strings.Contains(msg, "connection refused"), strings.Contains(msg, "no such host"), strings.Contains(msg, "timeout"):
		return KindNetwork
	default:
		return KindUnknown
	}
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	var parts []string
	for _, c := range resp.Candidates {
		if c == nil || c.Content == nil {
			continue
		}
		for _, part := range c.Content.Parts {
			if part != nil && strings.TrimSpace(part.Text) != "" {
				parts = append(parts, strings.TrimSpace(part.Text))
			}
		}
	}
	return strings.Join(parts, " ")
}

func preview(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "…" + key[len(key)-4:]
}

// TestBanana handles GET /test-banana.
func (h Handler) TestBanana(w http.ResponseWriter, r *http.Request) {
	if h.Probe == nil {
		writeJSON(w, http.StatusUnauthorized, Diagnostic{Provider: "gemini", Error: "aucun fournisseur vision configuré"})
		return
	}
	d, status := h.Probe.Probe(r.Context())
	if status != http.StatusOK {
		log.Warn().Str("provider", d.Provider).Int("status", status).Str("err", d.Error).Msg("provider diagnostic failed")
	}
	writeJSON(w, status, d)
}
