// Package app builds the services from configuration. It is shared by the HTTP
// server, the Lambda entry point and the CLI.
package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"

	"renoquote/internal/analysis"
	"renoquote/internal/api"
	"renoquote/internal/auth"
	"renoquote/internal/config"
	"renoquote/internal/estimation"
	"renoquote/internal/events"
	"renoquote/internal/inspiration"
	"renoquote/internal/leads"
	"renoquote/internal/llm"
	"renoquote/internal/media"
	"renoquote/internal/orchestrator"
	"renoquote/internal/retry"
	"renoquote/internal/server"
	"renoquote/internal/transform"
)

// App holds the wired services.
type App struct {
	Config    config.Config
	Handler   api.Handler
	Options   server.Options
	Facade    *orchestrator.Facade
	Estimator *estimation.Estimator
	Inspire   *inspiration.Service
	Leads     *leads.Service
	Events    *events.Broker

	closers []func()
}

// Close releases provider connections and the lead sink.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// Policy converts the retry configuration.
func Policy(cfg config.RetryConfig) retry.Policy {
	p := retry.DefaultPolicy()
	if cfg.Attempts > 0 {
		p.Attempts = cfg.Attempts
	}
	if cfg.TimeoutMS > 0 {
		p.Timeout = cfg.Timeout()
	}
	return p
}

// Build wires every component. Missing provider keys remove that provider; only
// broken infrastructure (media store, database, credentials) is an error.
func Build(ctx context.Context, cfg config.Config) (*App, error) {
	a := &App{Config: cfg}
	policy := Policy(cfg.Retry)

	store, err := media.New(ctx, cfg.Media)
	if err != nil {
		return nil, fmt.Errorf("media store: %w", err)
	}

	var openai *llm.OpenAIClient
	if cfg.AI.OpenAI.APIKey != "" {
		openai = llm.NewOpenAIClient(cfg.AI.OpenAI.APIKey, cfg.AI.OpenAI.Model)
	}
	gemini, err := geminiTextClient(ctx, cfg)
	if err != nil {
		return nil, err
	}

	text := TextClient(cfg.AI.TextProvider, openai, gemini)
	a.Estimator = estimation.New(text,
		estimation.WithRetryPolicy(policy),
		estimation.WithGeneration(cfg.AI.Temperature, cfg.AI.MaxTokens),
	)

	var analyzer *analysis.Analyzer
	switch {
	case openai != nil:
		analyzer = analysis.New(openai, cfg.AI.OpenAI.VisionModel, cfg.AI.MaxTokens)
	case gemini != nil:
		analyzer = analysis.New(gemini, cfg.AI.Gemini.TextModel, cfg.AI.MaxTokens)
	}

	tiers, closers, err := Tiers(ctx, cfg, openai, store)
	if err != nil {
		for _, c := range closers {
			c()
		}
		return nil, err
	}
	a.closers = append(a.closers, closers...)

	deps := orchestrator.Deps{
		Tiers:     tiers,
		Estimator: a.Estimator,
		Policy:    policy,
		Budget:    cfg.Retry.Budget(),
	}
	if analyzer != nil {
		deps.Analyzer = analyzer
	}
	a.Facade = orchestrator.New(deps)
	a.Inspire = inspiration.New(cfg.Pexels.APIKey, policy)

	sink, closeSink, err := leads.NewSink(ctx, cfg)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("lead sink: %w", err)
	}
	a.closers = append(a.closers, closeSink)
	a.Leads = leads.NewService(sink)
	a.Events = events.NewBroker()
	a.Leads.Notify(a.Events)

	probe, err := api.NewGeminiProbe(ctx, cfg.AI.Gemini.APIKey, cfg.AI.Gemini.TextModel)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.Handler = api.Handler{
		Facade:    a.Facade,
		Estimator: a.Estimator,
		Inspirer:  a.Inspire,
		Leads:     a.Leads,
		Events:    a.Events,
		Probe:     probe,
		Providers: api.Providers{
			OpenAI: openai != nil,
			Gemini: cfg.AI.Gemini.APIKey != "",
			Imagen: cfg.Vertex.Enabled(),
			Pexels: cfg.Pexels.APIKey != "",
		},
		Tiers: a.Facade.TierNames(),
	}
	a.Options = server.Options{Guard: auth.KeyGuard{Hash: cfg.Diagnostics.KeyHash}}
	if cfg.Media.Bucket == "" && cfg.Media.LocalDir != "" {
		a.Options.MediaDir = cfg.Media.LocalDir
	}

	textName := "fallback"
	if text != nil {
		textName = text.Name()
	}
	log.Info().
		Strs("tiers", a.Handler.Tiers).
		Str("text_provider", textName).
		Bool("analysis", analyzer != nil).
		Bool("pexels", a.Handler.Providers.Pexels).
		Str("lead_sink", a.Leads.SinkName()).
		Dur("request_budget", a.Facade.Budget()).
		Msg("services ready")
	return a, nil
}

// TextClient picks the estimation model. The configured provider wins when it is
// available; otherwise whichever client exists is used. The result may be nil.
func TextClient(provider string, openai *llm.OpenAIClient, gemini *llm.GeminiClient) llm.Client {
	preferGemini := strings.EqualFold(strings.TrimSpace(provider), "gemini")
	switch {
	case preferGemini && gemini != nil:
		return gemini
	case openai != nil:
		return openai
	case gemini != nil:
		return gemini
	default:
		return nil
	}
}

func geminiTextClient(ctx context.Context, cfg config.Config) (*llm.GeminiClient, error) {
	g := cfg.AI.Gemini
	var ts oauth2.TokenSource
	if strings.TrimSpace(g.ServiceAccountJSON) != "" {
		var err error
		ts, err = llm.ServiceAccountTokenSource(ctx, g.ServiceAccountJSON)
		if err != nil {
			return nil, err
		}
	}
	if g.APIKey == "" && ts == nil {
		return nil, nil
	}
	return llm.NewGeminiClient(g.APIKey, g.TextModel, cfg.Retry.Timeout(), ts), nil
}

// Tiers builds the transformation tiers in preference order: DALL-E, Imagen, Gemini.
func Tiers(ctx context.Context, cfg config.Config, openai *llm.OpenAIClient, store media.Store) ([]transform.Tier, []func(), error) {
	var (
		tiers   []transform.Tier
		closers []func()
	)
	if openai != nil {
		tiers = append(tiers, transform.NewDalleTier(openai, cfg.AI.OpenAI.ImageModel, store))
	}
	if cfg.Vertex.Enabled() {
		imagen, closeFn, err := transform.NewImagenTier(ctx, cfg.Vertex, store)
		if err != nil {
			return nil, closers, err
		}
		tiers = append(tiers, imagen)
		closers = append(closers, func() {
			if err := closeFn(); err != nil {
				log.Warn().Err(err).Msg("close imagen client")
			}
		})
	}
	if cfg.AI.Gemini.APIKey != "" {
		gemini, err := transform.NewGeminiTier(ctx, cfg.AI.Gemini.APIKey, cfg.AI.Gemini.Model, store)
		if err != nil {
			return nil, closers, err
		}
		tiers = append(tiers, gemini)
	}
	return tiers, closers, nil
}
