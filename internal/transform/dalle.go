package transform

import (
	"context"
	"strings"
	"time"

	"renoquote/internal/llm"
	"renoquote/internal/media"
	"renoquote/internal/prompts"
	"renoquote/internal/renovation"
)

// ImageGenerator is satisfied by *llm.OpenAIClient.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, req llm.ImageRequest) (llm.GeneratedImage, error)
}

// DalleTier draws the renovated room from the text prompt alone. Rendered bytes are
// saved to the media store like the other tiers.
type DalleTier struct {
	generator ImageGenerator
	model     string
	store     media.Store
}

// NewDalleTier wires the image generation tier.
func NewDalleTier(generator ImageGenerator, model string, store media.Store) *DalleTier {
	if strings.TrimSpace(model) == "" {
		model = "dall-e-3"
	}
	return &DalleTier{generator: generator, model: model, store: store}
}

func (d *DalleTier) Name() string { return d.model }

func (d *DalleTier) Transform(ctx context.Context, in Input) (renovation.TransformationResult, error) {
	started := time.Now()
	prompt := prompts.TransformationPrompt(in.Room, in.Style, in.CustomPrompt, in.Dimensions)

	img, err := d.generator.GenerateImage(ctx, llm.ImageRequest{Model: d.model, Prompt: prompt})
	if err != nil {
		return renovation.TransformationResult{}, err
	}

	description := img.RevisedPrompt
	if description == "" {
		description = prompt
	}
	photo := img.URL
	if len(img.Data) > 0 {
		photo = media.Publish(ctx, d.store, media.Image{Data: img.Data, MIMEType: img.MIMEType})
	}
	return renovation.TransformationResult{
		TransformedPhoto: photo,
		Description:      description,
		Confidence:       85,
		ProcessingTime:   time.Since(started).Milliseconds(),
		Model:            d.model,
		Mode:             renovation.ModeGenerated,
	}, nil
}
