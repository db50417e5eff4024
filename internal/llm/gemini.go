package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"renoquote/internal/renovation"
)

const (
	defaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	generativeScope      = "https://www.googleapis.com/auth/generative-language"
)

// GeminiClient wraps the Google Generative Language REST API.
type GeminiClient struct {
	apiKey      string
	model       string
	baseURL     string
	client      *http.Client
	tokenSource oauth2.TokenSource
}

// NewGeminiClient constructs a Gemini client for the desired model.
func NewGeminiClient(apiKey, model string, timeout time.Duration, tokenSource oauth2.TokenSource) *GeminiClient {
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	return &GeminiClient{
		apiKey:      apiKey,
		model:       normalizeGeminiModel(model),
		baseURL:     defaultGeminiBaseURL,
		client:      &http.Client{Timeout: timeout},
		tokenSource: tokenSource,
	}
}

// ServiceAccountTokenSource builds a token source from service account JSON.
func ServiceAccountTokenSource(ctx context.Context, credentialsJSON string) (oauth2.TokenSource, error) {
	creds, err := google.CredentialsFromJSON(ctx, []byte(credentialsJSON), generativeScope)
	if err != nil {
		return nil, fmt.Errorf("gemini: parse service account: %w", err)
	}
	return creds.TokenSource, nil
}

// Name identifies the provider in logs and errors.
func (c *GeminiClient) Name() string { return "gemini" }

// ChatCompletion sends conversational content to Gemini and returns the first candidate text.
func (c *GeminiClient) ChatCompletion(ctx context.Context, messages []ChatMessage, opts Options) (string, error) {
	var systemPrompts []string
	var contents []map[string]any

	for _, msg := range messages {
		role := strings.ToLower(strings.TrimSpace(msg.Role))
		switch role {
		case "system":
			systemPrompts = append(systemPrompts, msg.Content)
			continue
		case "assistant":
			role = "model"
		default:
			role = "user"
		}

		parts := []map[string]any{{"text": msg.Content}}
		for _, img := range msg.Images {
			mime, data, ok := splitDataURI(img)
			if !ok {
				return "", renovation.Invalid("image", "expected a base64 data URI")
			}
			parts = append(parts, map[string]any{
				"inline_data": map[string]string{"mime_type": mime, "data": data},
			})
		}
		contents = append(contents, map[string]any{"role": role, "parts": parts})
	}

	if len(contents) == 0 {
		return "", renovation.Invalid("messages", "gemini: missing user or assistant messages")
	}

	generation := map[string]any{"temperature": opts.Temperature}
	if opts.MaxTokens > 0 {
		generation["maxOutputTokens"] = opts.MaxTokens
	}
	if opts.JSON {
		generation["responseMimeType"] = "application/json"
	}
	payload := map[string]any{
		"contents":         contents,
		"generationConfig": generation,
	}
	if len(systemPrompts) > 0 {
		payload["systemInstruction"] = map[string]any{
			"parts": []map[string]string{
				{"text": strings.Join(systemPrompts, "\n\n")},
			},
		}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal gemini payload: %w", err)
	}

	model := c.model
	if override := modelFromContext(ctx); override != "" {
		model = normalizeGeminiModel(override)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, url.PathEscape(model))
	if c.tokenSource == nil {
		if strings.TrimSpace(c.apiKey) == "" {
			return "", &renovation.ProviderError{Provider: c.Name(), Err: errors.New("missing API key or service account credentials")}
		}
		endpoint = fmt.Sprintf("%s?key=%s", endpoint, url.QueryEscape(c.apiKey))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("gemini request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	if c.tokenSource != nil {
		token, err := c.tokenSource.Token()
		if err != nil {
			return "", &renovation.ProviderError{Provider: c.Name(), Err: fmt.Errorf("fetch oauth token: %w", err)}
		}
		req.Header.Set("Authorization", "Bearer "+token.AccessToken)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", &renovation.ProviderError{Provider: c.Name(), Err: fmt.Errorf("perform request: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var failure struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&failure)
		return "", &renovation.ProviderError{Provider: c.Name(), StatusCode: resp.StatusCode, Err: errors.New(failure.Error.Message)}
	}

	var completion struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
		return "", &renovation.ParseError{Provider: c.Name(), Err: err}
	}

	if len(completion.Candidates) == 0 {
		return "", &renovation.ProviderError{Provider: c.Name(), Err: errors.New("no candidates returned")}
	}

	var texts []string
	for _, part := range completion.Candidates[0].Content.Parts {
		if trimmed := strings.TrimSpace(part.Text); trimmed != "" {
			texts = append(texts, trimmed)
		}
	}
	if len(texts) == 0 {
		return "", &renovation.ProviderError{Provider: c.Name(), Err: errors.New("candidate missing text")}
	}
	return strings.Join(texts, "\n\n"), nil
}

func normalizeGeminiModel(model string) string {
	clean := strings.TrimSpace(model)
	clean = strings.TrimPrefix(clean, "models/")
	if clean == "" {
		return "gemini-2.5-flash"
	}
	return clean
}
