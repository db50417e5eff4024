package llm

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"renoquote/internal/renovation"
)

const defaultOpenAIBaseURL = "https://api.openai.com/v1"

// OpenAIClient wraps the chat completion and image generation endpoints.
type OpenAIClient struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

// NewOpenAIClient constructs a client using the provided API key and default model.
func NewOpenAIClient(apiKey, model string) *OpenAIClient {
	if model == "" {
		model = "gpt-4o"
	}
	return &OpenAIClient{
		apiKey:  apiKey,
		model:   model,
		baseURL: defaultOpenAIBaseURL,
		client:  &http.Client{Timeout: 90 * time.Second},
	}
}

// Name identifies the provider in logs and errors.
func (c *OpenAIClient) Name() string { return "openai" }

// Model returns the default chat model.
func (c *OpenAIClient) Model() string { return c.model }

// ChatCompletion sends chat messages to OpenAI and returns the first response content.
func (c *OpenAIClient) ChatCompletion(ctx context.Context, messages []ChatMessage, opts Options) (string, error) {
	model := c.model
	if override := modelFromContext(ctx); override != "" {
		model = override
	}

	wire := make([]map[string]any, 0, len(messages))
	for _, msg := range messages {
		if len(msg.Images) == 0 {
			wire = append(wire, map[string]any{"role": msg.Role, "content": msg.Content})
			continue
		}
		parts := []map[string]any{{"type": "text", "text": msg.Content}}
		for _, img := range msg.Images {
			parts = append(parts, map[string]any{
				"type":      "image_url",
				"image_url": map[string]string{"url": img, "detail": "high"},
			})
		}
		wire = append(wire, map[string]any{"role": msg.Role, "content": parts})
	}

	payload := map[string]any{
		"model":       model,
		"temperature": opts.Temperature,
		"messages":    wire,
	}
	if opts.MaxTokens > 0 {
		payload["max_tokens"] = opts.MaxTokens
	}
	if opts.JSON {
		payload["response_format"] = map[string]string{"type": "json_object"}
	}

	var completion struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := c.post(ctx, "/chat/completions", payload, &completion); err != nil {
		return "", err
	}

	if len(completion.Choices) == 0 || strings.TrimSpace(completion.Choices[0].Message.Content) == "" {
		return "", &renovation.ProviderError{Provider: c.Name(), Err: errors.New("no choices returned")}
	}
	return completion.Choices[0].Message.Content, nil
}

// ImageRequest describes a text-to-image generation.
type ImageRequest struct {
	Model   string
	Prompt  string
	Size    string
	Quality string
}

// GeneratedImage is the first image returned by the generation endpoint. Data holds
// the decoded PNG; URL is only set when the API answered with a hosted link.
type GeneratedImage struct {
	Data          []byte
	MIMEType      string
	URL           string
	RevisedPrompt string
}

// GenerateImage calls the image generation endpoint and asks for the image bytes,
// since hosted URLs expire after about an hour.
func (c *OpenAIClient) GenerateImage(ctx context.Context, req ImageRequest) (GeneratedImage, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return GeneratedImage{}, renovation.Invalid("prompt", "prompt is required")
	}
	if req.Model == "" {
		req.Model = "dall-e-3"
	}
	if req.Size == "" {
		req.Size = "1024x1024"
	}
	if req.Quality == "" {
		req.Quality = "standard"
	}

	payload := map[string]any{
		"model":           req.Model,
		"prompt":          req.Prompt,
		"n":               1,
		"size":            req.Size,
		"quality":         req.Quality,
		"response_format": "b64_json",
	}

	var generation struct {
		Data []struct {
			B64JSON       string `json:"b64_json"`
			URL           string `json:"url"`
			RevisedPrompt string `json:"revised_prompt"`
		} `json:"data"`
	}
	if err := c.post(ctx, "/images/generations", payload, &generation); err != nil {
		return GeneratedImage{}, err
	}
	if len(generation.Data) == 0 || (generation.Data[0].B64JSON == "" && generation.Data[0].URL == "") {
		return GeneratedImage{}, &renovation.ProviderError{Provider: c.Name(), Err: errors.New("no image returned")}
	}

	first := generation.Data[0]
	img := GeneratedImage{URL: first.URL, RevisedPrompt: first.RevisedPrompt}
	if first.B64JSON != "" {
		data, err := base64.StdEncoding.DecodeString(first.B64JSON)
		if err != nil {
			return GeneratedImage{}, &renovation.ParseError{Provider: c.Name(), Err: fmt.Errorf("decode b64_json: %w", err)}
		}
		img.Data = data
		img.MIMEType = "image/png"
	}
	return img, nil
}

func (c *OpenAIClient) post(ctx context.Context, path string, payload any, dest any) error {
	if strings.TrimSpace(c.apiKey) == "" {
		return &renovation.ProviderError{Provider: c.Name(), Err: errors.New("missing API key")}
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal openai payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return &renovation.ProviderError{Provider: c.Name(), Err: fmt.Errorf("perform request: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var failure struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&failure)
		return &renovation.ProviderError{Provider: c.Name(), StatusCode: resp.StatusCode, Err: errors.New(failure.Error.Message)}
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return &renovation.ParseError{Provider: c.Name(), Err: err}
	}
	return nil
}
