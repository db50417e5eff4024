package llm

import (
	"context"
	"strings"
)

// ChatMessage represents a generic chat turn in the prompt history.
// Images are data URIs attached to the turn for vision-capable models.
type ChatMessage struct {
	Role    string
	Content string
	Images  []string
}

// Options tunes a completion request.
type Options struct {
	Temperature float64
	MaxTokens   int
	// JSON asks the provider for a JSON object response when it supports it.
	JSON bool
}

// Client defines the behaviour required by the estimation and analysis adapters.
type Client interface {
	ChatCompletion(ctx context.Context, messages []ChatMessage, opts Options) (string, error)
	Name() string
}

type modelKey struct{}

// WithModel makes the next completion on ctx use model instead of the client default.
// A blank model leaves ctx unchanged.
func WithModel(ctx context.Context, model string) context.Context {
	if model = strings.TrimSpace(model); model == "" {
		return ctx
	}
	return context.WithValue(ctx, modelKey{}, model)
}

func modelFromContext(ctx context.Context) string {
	model, _ := ctx.Value(modelKey{}).(string)
	return model
}

// splitDataURI returns the mime type and base64 payload of a data URI.
func splitDataURI(uri string) (string, string, bool) {
	if !strings.HasPrefix(uri, "data:") {
		return "", "", false
	}
	header, payload, found := strings.Cut(strings.TrimPrefix(uri, "data:"), ",")
	if !found || !strings.HasSuffix(header, ";base64") {
		return "", "", false
	}
	mime := strings.TrimSuffix(header, ";base64")
	if mime == "" {
		mime = "image/jpeg"
	}
	return mime, payload, true
}
