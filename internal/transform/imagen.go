package transform

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	aiplatform "cloud.google.com/go/aiplatform/apiv1"
	"cloud.google.com/go/aiplatform/apiv1/aiplatformpb"
	"google.golang.org/api/option"
	"google.golang.org/protobuf/types/known/structpb"

	"renoquote/internal/config"
	"renoquote/internal/media"
	"renoquote/internal/prompts"
	"renoquote/internal/renovation"
)

// Predictor is the subset of the Vertex prediction client used by ImagenTier.
type Predictor interface {
	Predict(ctx context.Context, req *aiplatformpb.PredictRequest) (*aiplatformpb.PredictResponse, error)
}

// ImagenTier edits the source photo with Vertex AI Imagen, so the layout of the
// original room conditions the render.
type ImagenTier struct {
	predictor Predictor
	endpoint  string
	model     string
	store     media.Store
}

// NewImagenTier dials the regional prediction endpoint. The returned close func releases the connection.
func NewImagenTier(ctx context.Context, cfg config.VertexConfig, store media.Store) (*ImagenTier, func() error, error) {
	if !cfg.Enabled() {
		return nil, nil, errors.New("imagen: missing project/location/model")
	}
	opts := []option.ClientOption{option.WithEndpoint(fmt.Sprintf("%s-aiplatform.googleapis.com:443", cfg.Location))}
	if cfg.ServiceAccountFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.ServiceAccountFile))
	}

	client, err := aiplatform.NewPredictionClient(ctx, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("imagen: prediction client: %w", err)
	}
	tier := newImagenTier(predictionAdapter{client}, cfg, store)
	return tier, client.Close, nil
}

func newImagenTier(p Predictor, cfg config.VertexConfig, store media.Store) *ImagenTier {
	if store == nil {
		store = media.Inline()
	}
	return &ImagenTier{
		predictor: p,
		endpoint:  fmt.Sprintf("projects/%s/locations/%s/publishers/google/models/%s", cfg.ProjectID, cfg.Location, cfg.Model),
		model:     cfg.Model,
		store:     store,
	}
}

type predictionAdapter struct {
	client *aiplatform.PredictionClient
}

func (a predictionAdapter) Predict(ctx context.Context, req *aiplatformpb.PredictRequest) (*aiplatformpb.PredictResponse, error) {
	return a.client.Predict(ctx, req)
}

func (t *ImagenTier) Name() string { return "imagen:" + t.model }

func (t *ImagenTier) Transform(ctx context.Context, in Input) (renovation.TransformationResult, error) {
	started := time.Now()
	prompt := prompts.TransformationPrompt(in.Room, in.Style, in.CustomPrompt, in.Dimensions)

	instance, err := structpb.NewValue(map[string]any{
		"prompt": prompt,
		"image": map[string]any{
			"bytesBase64Encoded": base64.StdEncoding.EncodeToString(in.Photo.Data),
		},
	})
	if err != nil {
		return renovation.TransformationResult{}, fmt.Errorf("imagen: build instance: %w", err)
	}
	params, err := structpb.NewValue(map[string]any{
		"sampleCount": 1,
		"editMode":    "inpainting-free-form",
	})
	if err != nil {
		return renovation.TransformationResult{}, fmt.Errorf("imagen: build parameters: %w", err)
	}

	resp, err := t.predictor.Predict(ctx, &aiplatformpb.PredictRequest{
		Endpoint:   t.endpoint,
		Instances:  []*structpb.Value{instance},
		Parameters: params,
	})
	if err != nil {
		return renovation.TransformationResult{}, &renovation.ProviderError{Provider: "imagen", Err: err}
	}
	if len(resp.GetPredictions()) == 0 {
		return renovation.TransformationResult{}, &renovation.ProviderError{Provider: "imagen", Err: errors.New("empty prediction response")}
	}

	fields := resp.GetPredictions()[0].GetStructValue().GetFields()
	encoded := fields["bytesBase64Encoded"].GetStringValue()
	if encoded == "" {
		return renovation.TransformationResult{}, &renovation.ParseError{Provider: "imagen", Err: errors.New("prediction missing bytes")}
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return renovation.TransformationResult{}, &renovation.ParseError{Provider: "imagen", Err: err}
	}
	mimeType := strings.TrimSpace(fields["mimeType"].GetStringValue())
	if mimeType == "" {
		mimeType = "image/png"
	}

	return renovation.TransformationResult{
		TransformedPhoto: media.Publish(ctx, t.store, media.Image{Data: data, MIMEType: mimeType}),
		Description:      prompt,
		Confidence:       88,
		ProcessingTime:   time.Since(started).Milliseconds(),
		Model:            t.Name(),
		Mode:             renovation.ModeGenerated,
	}, nil
}
