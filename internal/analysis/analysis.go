// Package analysis asks a vision-capable model to measure and price a room from one photo.
package analysis

import (
	"context"
	"errors"
	"math"
	"strings"

	"renoquote/internal/llm"
	"renoquote/internal/media"
	"renoquote/internal/prompts"
	"renoquote/internal/renovation"
)

const (
	DefaultConfidence = 70
	DefaultMultiplier = 1.2
)

// Analyzer produces a PhotoAnalysis from a single photo.
type Analyzer struct {
	client    llm.Client
	model     string
	maxTokens int
}

// New wires the analyzer. model overrides the client's default (a vision model), when set.
func New(client llm.Client, model string, maxTokens int) *Analyzer {
	if maxTokens <= 0 {
		maxTokens = 2000
	}
	return &Analyzer{client: client, model: model, maxTokens: maxTokens}
}

// Name identifies the backing provider.
func (a *Analyzer) Name() string {
	if a == nil || a.client == nil {
		return ""
	}
	return a.client.Name()
}

// Analyze prompts the model with the photo and returns a fully populated analysis.
func (a *Analyzer) Analyze(ctx context.Context, photo media.Photo, room renovation.Room, style renovation.Style) (renovation.PhotoAnalysis, error) {
	if a == nil || a.client == nil {
		return renovation.PhotoAnalysis{}, &renovation.ProviderError{Provider: "analysis", Err: errors.New("no vision provider configured")}
	}
	if len(photo.Data) == 0 {
		return renovation.PhotoAnalysis{}, renovation.Invalid("photo", "une photo est requise pour l'analyse")
	}

	system, user := prompts.BuildAnalysisPrompts(room, style)
	ctx = llm.WithModel(ctx, a.model)
	content, err := a.client.ChatCompletion(ctx, []llm.ChatMessage{
		{Role: "system", Content: system},
		{Role: "user", Content: user, Images: []string{photo.URI()}},
	}, llm.Options{Temperature: 0.2, MaxTokens: a.maxTokens, JSON: true})
	if err != nil {
		return renovation.PhotoAnalysis{}, err
	}
	return Decode(a.client.Name(), content)
}

type rawAnalysis struct {
	Dimensions struct {
		Length     float64  `json:"length"`
		Width      float64  `json:"width"`
		Height     float64  `json:"height"`
		Area       float64  `json:"area"`
		Confidence *float64 `json:"confidence"`
	} `json:"dimensions"`
	Materials  renovation.MaterialPlan `json:"materials"`
	Labor      []renovation.LaborLine  `json:"labor"`
	Complexity struct {
		Level      string   `json:"level"`
		Factors    []string `json:"factors"`
		Multiplier *float64 `json:"multiplier"`
	} `json:"complexity"`
	TotalCost *renovation.AnalysisTotals `json:"totalCost"`
}

// Decode parses model output and fills every optional field exactly once.
// A response without totalCost is rejected.
func Decode(provider, content string) (renovation.PhotoAnalysis, error) {
	raw, err := llm.ParseJSON[rawAnalysis](content)
	if err != nil {
		return renovation.PhotoAnalysis{}, &renovation.ParseError{Provider: provider, Err: err}
	}
	if raw.TotalCost == nil {
		return renovation.PhotoAnalysis{}, &renovation.ParseError{Provider: provider, Err: errors.New("totalCost is missing")}
	}

	out := renovation.PhotoAnalysis{
		Dimensions: renovation.MeasuredDimensions{
			Length: nonNegative(raw.Dimensions.Length),
			Width:  nonNegative(raw.Dimensions.Width),
			Height: nonNegative(raw.Dimensions.Height),
			Area:   nonNegative(raw.Dimensions.Area),
		},
		Materials: raw.Materials,
		Labor:     raw.Labor,
		Complexity: renovation.Complexity{
			Level:   normalizeLevel(raw.Complexity.Level),
			Factors: raw.Complexity.Factors,
		},
		TotalCost: *raw.TotalCost,
	}

	out.Dimensions.Confidence = DefaultConfidence
	if c := raw.Dimensions.Confidence; c != nil {
		out.Dimensions.Confidence = clamp(*c, 0, 100)
	}
	if out.Dimensions.Area == 0 {
		out.Dimensions.Area = round2(out.Dimensions.Length * out.Dimensions.Width)
	}

	out.Complexity.Multiplier = DefaultMultiplier
	if m := raw.Complexity.Multiplier; m != nil && *m > 0 {
		out.Complexity.Multiplier = clamp(*m, 1, 2)
	}
	if out.Complexity.Factors == nil {
		out.Complexity.Factors = []string{}
	}

	if out.Materials.Existing == nil {
		out.Materials.Existing = []renovation.MaterialLine{}
	}
	if out.Materials.Needed == nil {
		out.Materials.Needed = []renovation.MaterialLine{}
	}
	for i, m := range out.Materials.Needed {
		if m.TotalPrice == 0 && m.UnitPrice > 0 {
			out.Materials.Needed[i].TotalPrice = round2(m.UnitPrice * m.Quantity)
		}
	}
	if out.Labor == nil {
		out.Labor = []renovation.LaborLine{}
	}
	for i, l := range out.Labor {
		if l.TotalCost == 0 && l.HourlyRate > 0 {
			out.Labor[i].TotalCost = round2(l.HourlyRate * l.Hours)
		}
	}

	t := &out.TotalCost
	if t.Total == 0 {
		t.Total = round2(t.Materials + t.Labor + t.Taxes + t.Contingency)
	}
	if t.Total <= 0 {
		return renovation.PhotoAnalysis{}, &renovation.ParseError{Provider: provider, Err: errors.New("totalCost is empty")}
	}
	return out, nil
}

func normalizeLevel(level string) string {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "simple":
		return renovation.ComplexitySimple
	case "modéré", "modere", "modérée", "moderate":
		return renovation.ComplexityModere
	case "complexe", "complex":
		return renovation.ComplexityComplexe
	case "expert":
		return renovation.ComplexityExpert
	default:
		return renovation.ComplexityModere
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func nonNegative(v float64) float64 {
	return math.Max(0, v)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
