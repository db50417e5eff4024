package transform

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"renoquote/internal/media"
	"renoquote/internal/prompts"
	"renoquote/internal/renovation"
)

const defaultGeminiImageModel = "gemini-2.5-flash-image"

// ContentGenerator is satisfied by the Models service of a *genai.Client.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiTier sends the photo and prompt to a Gemini image model. When the model answers
// with text only, the original photo is returned next to the description.
type GeminiTier struct {
	models ContentGenerator
	model  string
	store  media.Store
}

// NewGeminiTier creates a genai client for the Gemini Developer API.
func NewGeminiTier(ctx context.Context, apiKey, model string, store media.Store) (*GeminiTier, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("gemini: missing API key")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: create genai client: %w", err)
	}
	return newGeminiTier(client.Models, model, store), nil
}

func newGeminiTier(models ContentGenerator, model string, store media.Store) *GeminiTier {
	model = strings.TrimPrefix(strings.TrimSpace(model), "models/")
	if model == "" {
		model = defaultGeminiImageModel
	}
	if store == nil {
		store = media.Inline()
	}
	return &GeminiTier{models: models, model: model, store: store}
}

func (g *GeminiTier) Name() string { return g.model }

func (g *GeminiTier) Transform(ctx context.Context, in Input) (renovation.TransformationResult, error) {
	started := time.Now()
	system, prompt := prompts.VisionPrompts(in.Room, in.Style, in.CustomPrompt, in.Dimensions)

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromBytes(in.Photo.Data, in.Photo.MIMEType),
			genai.NewPartFromText(prompt),
		}, genai.RoleUser),
	}
	cfg := &genai.GenerateContentConfig{
		SystemInstruction:  genai.NewContentFromText(system, genai.RoleUser),
		ResponseModalities: []string{"TEXT", "IMAGE"},
		Temperature:        genai.Ptr[float32](0.4),
	}

	resp, err := g.models.GenerateContent(ctx, g.model, contents, cfg)
	if err != nil {
		return renovation.TransformationResult{}, &renovation.ProviderError{Provider: "gemini", StatusCode: APIStatus(err), Err: err}
	}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return renovation.TransformationResult{}, &renovation.ProviderError{Provider: "gemini", Err: errors.New("no candidates returned")}
	}

	var (
		texts    []string
		rendered *genai.Blob
	)
	for _, part := range resp.Candidates[0].Content.Parts {
		if part == nil {
			continue
		}
		if part.InlineData != nil && len(part.InlineData.Data) > 0 && rendered == nil {
			rendered = part.InlineData
			continue
		}
		if text := strings.TrimSpace(part.Text); text != "" {
			texts = append(texts, text)
		}
	}
	description := strings.Join(texts, "\n\n")

	if rendered != nil {
		if description == "" {
			description = prompt
		}
		return renovation.TransformationResult{
			TransformedPhoto: media.Publish(ctx, g.store, media.Image{Data: rendered.Data, MIMEType: rendered.MIMEType}),
			Description:      description,
			Confidence:       85,
			ProcessingTime:   time.Since(started).Milliseconds(),
			Model:            g.model,
			Mode:             renovation.ModeGenerated,
		}, nil
	}
	if description == "" {
		return renovation.TransformationResult{}, &renovation.ParseError{Provider: "gemini", Err: errors.New("response had neither image nor text")}
	}

	return renovation.TransformationResult{
		TransformedPhoto: in.Photo.URI(),
		Description:      description,
		Confidence:       70,
		ProcessingTime:   time.Since(started).Milliseconds(),
		Model:            g.model,
		Mode:             renovation.ModeAnnotatedOriginal,
		Degraded:         true,
	}, nil
}

// APIStatus returns the HTTP code of a genai error, or 0. The SDK returns
// APIError by value; the pointer form is matched too.
func APIStatus(err error) int {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return apiErrPtr.Code
	}
	return 0
}
