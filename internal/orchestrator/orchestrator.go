// Package orchestrator sequences photo analysis, the transformation tiers and cost
// estimation for one renovation request.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"renoquote/internal/estimation"
	"renoquote/internal/media"
	"renoquote/internal/renovation"
	"renoquote/internal/retry"
	"renoquote/internal/transform"
)

// Analyzer is satisfied by *analysis.Analyzer.
type Analyzer interface {
	Analyze(ctx context.Context, photo media.Photo, room renovation.Room, style renovation.Style) (renovation.PhotoAnalysis, error)
}

// Estimator is satisfied by *estimation.Estimator.
type Estimator interface {
	Estimate(ctx context.Context, req renovation.EstimateRequest) estimation.Result
}

// Attempt outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeSkipped = "skipped"
)

// DefaultBudget bounds a whole request and stays under the HTTP server's write timeout.
const DefaultBudget = 4 * time.Minute

// Budget shares, in percent of the request budget, at which each step must be done.
// Estimation always keeps the remainder.
const (
	analysisShare  = 25
	transformShare = 75
)

// Attempt records one transformation tier that was tried.
type Attempt struct {
	Tier      string `json:"tier"`
	Outcome   string `json:"outcome"`
	Error     string `json:"error,omitempty"`
	ElapsedMS int64  `json:"elapsedMs"`
}

// AIResults groups what the providers produced.
type AIResults struct {
	Transformation renovation.TransformationResult `json:"transformation"`
	Analysis       *renovation.PhotoAnalysis       `json:"analysis,omitempty"`
	Attempts       []Attempt                       `json:"attempts"`
}

// Result is the composed response of one request.
type Result struct {
	AIResults        AIResults               `json:"aiResults"`
	CostEstimation   renovation.CostEstimate `json:"costEstimation"`
	EstimationSource string                  `json:"estimationSource"`
}

// Deps are the collaborators of a Facade. Analyzer may be nil; Tiers may be empty.
// Budget caps one Process call; zero means DefaultBudget.
type Deps struct {
	Analyzer  Analyzer
	Tiers     []transform.Tier
	Estimator Estimator
	Policy    retry.Policy
	Budget    time.Duration
	Now       func() time.Time
}

// Facade is stateless apart from its collaborators and safe for concurrent use.
type Facade struct {
	analyzer  Analyzer
	tiers     []transform.Tier
	estimator Estimator
	policy    retry.Policy
	budget    time.Duration
	now       func() time.Time
}

// New builds a Facade.
func New(deps Deps) *Facade {
	if deps.Estimator == nil {
		deps.Estimator = estimation.New(nil)
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Budget <= 0 {
		deps.Budget = DefaultBudget
	}
	return &Facade{
		analyzer:  deps.Analyzer,
		tiers:     deps.Tiers,
		estimator: deps.Estimator,
		policy:    deps.Policy,
		budget:    deps.Budget,
		now:       deps.Now,
	}
}

// Budget is the longest a Process call runs before answering with what it has.
func (f *Facade) Budget() time.Duration { return f.budget }

// TierNames lists the configured transformation tiers in order.
func (f *Facade) TierNames() []string {
	names := make([]string, 0, len(f.tiers))
	for _, t := range f.tiers {
		names = append(names, t.Name())
	}
	return names
}

// Process validates the request and runs every step within the budget. Analysis
// must finish in the first quarter and the tiers by three quarters, so estimation
// always has time left. Only validation errors are returned; provider failures and
// an exhausted budget degrade to the next tier, the simulation or the fallback table.
func (f *Facade) Process(ctx context.Context, req renovation.Request) (Result, error) {
	if err := req.Validate(f.now()); err != nil {
		return Result{}, err
	}
	photos, err := DecodePhotos(req.Project.Photos)
	if err != nil {
		return Result{}, err
	}

	room := req.Project.PrimaryRoom()
	style := req.Project.SelectedStyle

	started := time.Now()
	ctx, cancel := context.WithTimeout(ctx, f.budget)
	defer cancel()

	var out Result
	if len(photos) > 0 {
		analyzeCtx, cancelAnalyze := context.WithDeadline(ctx, started.Add(f.share(analysisShare)))
		out.AIResults.Analysis = f.analyze(analyzeCtx, photos[0], room, style)
		cancelAnalyze()

		in := transform.Input{
			Photo:        photos[0],
			Room:         room,
			Style:        style,
			CustomPrompt: req.Project.CustomPrompt,
			Dimensions:   req.Project.DimensionsFor(room),
		}
		transformCtx, cancelTransform := context.WithDeadline(ctx, started.Add(f.share(transformShare)))
		out.AIResults.Transformation, out.AIResults.Attempts = f.Transform(transformCtx, in)
		cancelTransform()
	}

	estimateReq := req.EstimateRequest()
	estimateReq.Analysis = out.AIResults.Analysis
	est := f.estimator.Estimate(ctx, estimateReq)
	out.CostEstimation = est.Estimate
	out.EstimationSource = est.Source

	log.Info().
		Str("model", out.AIResults.Transformation.Model).
		Str("mode", out.AIResults.Transformation.Mode).
		Bool("analysis", out.AIResults.Analysis != nil).
		Str("estimation_source", est.Source).
		Dur("elapsed", time.Since(started)).
		Msg("renovation request processed")
	return out, nil
}

func (f *Facade) share(percent int) time.Duration {
	return f.budget * time.Duration(percent) / 100
}

// Transform walks the tiers in order and returns the first success, or the
// simulated result once every tier has failed or ctx is done. Tiers left untried
// when ctx ends are recorded as skipped.
func (f *Facade) Transform(ctx context.Context, in transform.Input) (renovation.TransformationResult, []Attempt) {
	started := time.Now()
	attempts := make([]Attempt, 0, len(f.tiers)+1)

	for _, tier := range f.tiers {
		if err := ctx.Err(); err != nil {
			attempts = append(attempts, Attempt{Tier: tier.Name(), Outcome: OutcomeSkipped, Error: err.Error()})
			continue
		}
		tierStarted := time.Now()
		res, err := retry.Do(ctx, f.policy, "transform:"+tier.Name(), func(ctx context.Context) (renovation.TransformationResult, error) {
			return tier.Transform(ctx, in)
		})
		attempt := Attempt{Tier: tier.Name(), ElapsedMS: time.Since(tierStarted).Milliseconds()}
		if err == nil {
			attempt.Outcome = OutcomeSuccess
			attempts = append(attempts, attempt)
			log.Info().Str("tier", tier.Name()).Str("outcome", OutcomeSuccess).Msg("transformation tier")
			if res.ProcessingTime == 0 {
				res.ProcessingTime = time.Since(started).Milliseconds()
			}
			return res, attempts
		}
		attempt.Outcome = OutcomeFailure
		attempt.Error = err.Error()
		attempts = append(attempts, attempt)
		log.Warn().Err(err).Str("tier", tier.Name()).Str("outcome", OutcomeFailure).Msg("transformation tier")
	}

	attempts = append(attempts, Attempt{Tier: transform.SimulationModel, Outcome: OutcomeSuccess})
	return transform.Simulate(in, started), attempts
}

func (f *Facade) analyze(ctx context.Context, photo media.Photo, room renovation.Room, style renovation.Style) *renovation.PhotoAnalysis {
	if f.analyzer == nil {
		return nil
	}
	result, err := retry.Do(ctx, f.policy, "photo-analysis", func(ctx context.Context) (renovation.PhotoAnalysis, error) {
		return f.analyzer.Analyze(ctx, photo, room, style)
	})
	if err != nil {
		log.Warn().Err(err).Msg("photo analysis skipped")
		return nil
	}
	return &result
}

// DecodePhotos validates every photo payload as a base64 image data URI.
func DecodePhotos(raw []string) ([]media.Photo, error) {
	photos := make([]media.Photo, 0, len(raw))
	for i, p := range raw {
		photo, err := media.ParseDataURI(fmt.Sprintf("project.photos[%d]", i), p)
		if err != nil {
			return nil, err
		}
		photos = append(photos, photo)
	}
	return photos, nil
}
