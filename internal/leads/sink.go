package leads

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"renoquote/internal/events"
	"renoquote/internal/renovation"
)

var (
	// ErrDelivery wraps any failure of the configured sink.
	ErrDelivery = errors.New("lead delivery failed")
	// ErrNotListable is returned by Recent when the sink forwards leads without keeping them.
	ErrNotListable = errors.New("sink does not keep leads")
)

// Sink receives enriched leads.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, lead Enriched) error
}

// Lister is implemented by sinks that can show recent deliveries.
type Lister interface {
	Recent(ctx context.Context, limit int) ([]Enriched, error)
}

// Publisher is notified after each successful delivery. *events.Broker satisfies it.
type Publisher interface {
	Publish(evt events.Event)
}

// Service enriches and delivers leads.
type Service struct {
	sink      Sink
	publisher Publisher
	now       func() time.Time
}

// NewService wires the sink. A nil sink keeps leads in memory.
func NewService(sink Sink) *Service {
	if sink == nil {
		sink = NewMemorySink()
	}
	return &Service{sink: sink, now: time.Now}
}

// Notify registers a publisher for delivered leads.
func (s *Service) Notify(p Publisher) { s.publisher = p }

// SinkName names the active sink.
func (s *Service) SinkName() string { return s.sink.Name() }

// Submit validates, enriches and delivers one lead. Validation errors are returned as
// is; sink failures are wrapped in ErrDelivery.
func (s *Service) Submit(ctx context.Context, lead Lead) (Enriched, error) {
	enriched, err := Enrich(lead, s.now().UTC())
	if err != nil {
		return Enriched{}, err
	}
	enriched.ID = uuid.NewString()

	if err := s.sink.Deliver(ctx, enriched); err != nil {
		return Enriched{}, fmt.Errorf("%w: %s: %v", ErrDelivery, s.sink.Name(), err)
	}
	log.Info().
		Str("lead_id", enriched.ID).
		Str("sink", s.sink.Name()).
		Int("priority", enriched.PriorityScore).
		Str("segment", enriched.MarketSegment).
		Msg("lead delivered")

	if s.publisher != nil {
		s.publisher.Publish(events.Event{
			Type:          events.TypeLeadDelivered,
			LeadID:        enriched.ID,
			PriorityScore: enriched.PriorityScore,
			MarketSegment: enriched.MarketSegment,
			Region:        enriched.Region,
			ReceivedAt:    enriched.ReceivedAt,
		})
	}
	return enriched, nil
}

// Recent lists the latest leads when the sink keeps them.
func (s *Service) Recent(ctx context.Context, limit int) ([]Enriched, error) {
	lister, ok := s.sink.(Lister)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotListable, s.sink.Name())
	}
	return lister.Recent(ctx, limit)
}

// WebhookSink posts each lead as JSON to an external URL.
type WebhookSink struct {
	url    string
	client *http.Client
}

// NewWebhookSink builds a sink for the given endpoint.
func NewWebhookSink(url string) *WebhookSink {
	return &WebhookSink{url: strings.TrimSpace(url), client: &http.Client{Timeout: 15 * time.Second}}
}

func (w *WebhookSink) Name() string { return "webhook" }

func (w *WebhookSink) Deliver(ctx context.Context, lead Enriched) error {
	body, err := json.Marshal(lead)
	if err != nil {
		return fmt.Errorf("marshal lead: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Lead-ID", lead.ID)

	resp, err := w.client.Do(req)
	if err != nil {
		return &renovation.ProviderError{Provider: "webhook", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &renovation.ProviderError{Provider: "webhook", StatusCode: resp.StatusCode, Err: errors.New(strings.TrimSpace(string(snippet)))}
	}
	return nil
}
