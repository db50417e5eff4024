// Package estimation produces cost estimates from a text model, falling back to a
// deterministic regional table whenever the provider is missing or fails.
package estimation

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/rs/zerolog/log"

	"renoquote/internal/llm"
	"renoquote/internal/prompts"
	"renoquote/internal/renovation"
	"renoquote/internal/retry"
)

// Source labels disclosed to the caller.
const (
	SourceOpenAI   = "GPT-4 + Prix Québec 2024"
	SourceGemini   = "Gemini + Prix Québec 2024"
	SourceFallback = "Estimation approximative"
)

// PercentTolerance is how far the breakdown may drift from 100 before it is rescaled.
const PercentTolerance = 5.0

// Result is an estimate plus where it came from.
type Result struct {
	Estimate  renovation.CostEstimate
	Source    string
	Fallback  bool
	Reason    string
	Timestamp time.Time
}

// Estimator wraps the optional text model.
type Estimator struct {
	client      llm.Client
	policy      retry.Policy
	temperature float64
	maxTokens   int
	now         func() time.Time
}

// Option tunes an Estimator.
type Option func(*Estimator)

// WithRetryPolicy overrides the default retry policy.
func WithRetryPolicy(p retry.Policy) Option {
	return func(e *Estimator) { e.policy = p }
}

// WithGeneration sets the model temperature and token budget.
func WithGeneration(temperature float64, maxTokens int) Option {
	return func(e *Estimator) {
		e.temperature = temperature
		e.maxTokens = maxTokens
	}
}

// New builds an estimator. A nil client means every call uses the fallback table.
func New(client llm.Client, opts ...Option) *Estimator {
	e := &Estimator{
		client:      client,
		policy:      retry.DefaultPolicy(),
		temperature: 0.3,
		maxTokens:   2000,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Estimate never fails: provider errors, timeouts and unparseable output all
// degrade to the fallback table.
func (e *Estimator) Estimate(ctx context.Context, req renovation.EstimateRequest) Result {
	if e == nil || e.client == nil {
		return e.fallback(req, "no text provider configured")
	}

	est, err := retry.Do(ctx, e.policy, "cost-estimation", func(ctx context.Context) (renovation.CostEstimate, error) {
		return e.ask(ctx, req)
	})
	if err != nil {
		log.Warn().Err(err).Str("provider", e.client.Name()).Msg("cost estimation degraded to fallback table")
		return e.fallback(req, err.Error())
	}

	source := SourceOpenAI
	if e.client.Name() == "gemini" {
		source = SourceGemini
	}
	return Result{Estimate: est, Source: source, Timestamp: e.clock()}
}

func (e *Estimator) ask(ctx context.Context, req renovation.EstimateRequest) (renovation.CostEstimate, error) {
	system, user, err := prompts.BuildEstimationPrompts(req)
	if err != nil {
		return renovation.CostEstimate{}, err
	}
	content, err := e.client.ChatCompletion(ctx, []llm.ChatMessage{
		{Role: "system", Content: system},
		{Role: "user", Content: user},
	}, llm.Options{Temperature: e.temperature, MaxTokens: e.maxTokens, JSON: true})
	if err != nil {
		return renovation.CostEstimate{}, err
	}

	est, err := llm.ParseJSON[renovation.CostEstimate](content)
	if err != nil {
		return renovation.CostEstimate{}, &renovation.ParseError{Provider: e.client.Name(), Err: err}
	}
	if len(est.Breakdown) == 0 || (est.TotalCost.Min <= 0 && est.TotalCost.Max <= 0 && est.TotalCost.Average <= 0) {
		return renovation.CostEstimate{}, &renovation.ParseError{Provider: e.client.Name(), Err: errors.New("estimate missing totalCost or breakdown")}
	}
	return Normalize(est), nil
}

func (e *Estimator) fallback(req renovation.EstimateRequest, reason string) Result {
	return Result{
		Estimate:  Fallback(req),
		Source:    SourceFallback,
		Fallback:  true,
		Reason:    reason,
		Timestamp: e.clock(),
	}
}

func (e *Estimator) clock() time.Time {
	if e == nil || e.now == nil {
		return time.Now()
	}
	return e.now()
}

// Normalize rescales breakdown percentages by 100/sum when they drift more than
// PercentTolerance from 100. Costs are left untouched.
func Normalize(est renovation.CostEstimate) renovation.CostEstimate {
	if est.TotalCost.Average <= 0 {
		est.TotalCost.Average = math.Round((est.TotalCost.Min + est.TotalCost.Max) / 2)
	}
	if est.Recommendations == nil {
		est.Recommendations = []string{}
	}

	breakdown := make([]renovation.CostItem, len(est.Breakdown))
	copy(breakdown, est.Breakdown)
	est.Breakdown = breakdown

	sum := est.PercentageSum()
	if sum <= 0 || math.Abs(sum-100) <= PercentTolerance {
		return est
	}
	factor := 100 / sum
	for i := range est.Breakdown {
		est.Breakdown[i].Percentage = math.Round(est.Breakdown[i].Percentage*factor*10) / 10
	}
	return est
}
