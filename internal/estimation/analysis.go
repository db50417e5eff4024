package estimation

import (
	"fmt"
	"math"
	"strings"

	"renoquote/internal/renovation"
)

// SourceAnalysis labels estimates derived from a photo analysis.
const SourceAnalysis = "Analyse photo + Prix Québec 2024"

// FromAnalysis turns the totals of a photo analysis into an estimate without another
// provider call. ok is false when the analysis carries no usable total.
func FromAnalysis(a renovation.PhotoAnalysis, req renovation.EstimateRequest) (renovation.CostEstimate, bool) {
	total := a.TotalCost.Total
	if total <= 0 {
		return renovation.CostEstimate{}, false
	}

	lines := []struct {
		category string
		cost     float64
		details  []string
	}{
		{"Matériaux", a.TotalCost.Materials, materialDetails(a.Materials.Needed)},
		{"Main-d'œuvre", a.TotalCost.Labor, laborDetails(a.Labor)},
		{"Permis et taxes", a.TotalCost.Taxes, []string{"TPS 5 %", "TVQ 9,975 %"}},
		{"Imprévus", a.TotalCost.Contingency, []string{"Réserve pour imprévus"}},
	}
	breakdown := make([]renovation.CostItem, 0, len(lines))
	for _, l := range lines {
		if l.cost <= 0 {
			continue
		}
		breakdown = append(breakdown, renovation.CostItem{
			Category:   l.category,
			Cost:       math.Round(l.cost),
			Percentage: math.Round(l.cost/total*1000) / 10,
			Details:    l.details,
		})
	}

	confidence := "Moyenne"
	if a.Dimensions.Confidence >= 80 {
		confidence = "Élevée"
	}
	recs := fallbackRecommendations(req)
	if len(a.Complexity.Factors) > 0 {
		recs = append(recs, "Points d'attention: "+strings.Join(a.Complexity.Factors, ", "))
	}

	return Normalize(renovation.CostEstimate{
		TotalCost: renovation.CostRange{
			Min:     math.Round(total * MinShade),
			Max:     math.Round(total * MaxShade),
			Average: math.Round(total),
		},
		Breakdown:       breakdown,
		Timeline:        Timeline(len(req.Rooms), req.Style),
		Confidence:      renovation.FlexString(confidence),
		Recommendations: recs,
	}), true
}

func materialDetails(lines []renovation.MaterialLine) []string {
	out := make([]string, 0, len(lines))
	for _, m := range lines {
		out = append(out, fmt.Sprintf("%s: %g %s", m.Material, m.Quantity, m.Unit))
	}
	return out
}

func laborDetails(lines []renovation.LaborLine) []string {
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		out = append(out, fmt.Sprintf("%s: %g h", l.Specialty, l.Hours))
	}
	return out
}
