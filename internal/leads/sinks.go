package leads

import (
	"context"

	"renoquote/internal/config"
)

// NewSink picks the webhook when a URL is configured, then Postgres, then memory.
// The returned close func is never nil.
func NewSink(ctx context.Context, cfg config.Config) (Sink, func(), error) {
	if cfg.Leads.WebhookURL != "" {
		return NewWebhookSink(cfg.Leads.WebhookURL), func() {}, nil
	}
	if cfg.DatabaseURL != "" {
		pg, err := NewPostgresSink(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, func() {}, err
		}
		return pg, pg.Close, nil
	}
	return NewMemorySink(), func() {}, nil
}
