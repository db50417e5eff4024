package estimation

import (
	"fmt"
	"math"

	"renoquote/internal/renovation"
)

// Uncertainty shading applied to the summed range.
const (
	MinShade = 0.9
	MaxShade = 1.1
)

// Fixed shares of the average used by the fallback breakdown. They sum to 100.
var fallbackShares = []struct {
	category string
	percent  float64
	details  []string
}{
	{"Matériaux", 38, []string{"Revêtements et finis", "Quincaillerie et accessoires", "Prix fournisseurs Québec 2024-2025"}},
	{"Main-d'œuvre", 45, []string{"Entrepreneur général", "Corps de métier spécialisés (CCQ)"}},
	{"Permis et taxes", 10, []string{"Permis municipal", "TPS 5 % + TVQ 9,975 %"}},
	{"Imprévus", 7, []string{"Surprises derrière les murs", "Ajustements de chantier"}},
}

// FallbackRange sums the regional room ranges, applies the style multiplier and
// shades the result down/up for uncertainty.
func FallbackRange(rooms []renovation.Room, style renovation.Style) renovation.CostRange {
	var minSum, maxSum float64
	for _, r := range rooms {
		p := r.Describe().Price
		minSum += p.Min
		maxSum += p.Max
	}
	mult := style.Describe().CostMultiplier
	lo := math.Round(minSum * mult * MinShade)
	hi := math.Round(maxSum * mult * MaxShade)
	return renovation.CostRange{Min: lo, Max: hi, Average: math.Round((lo + hi) / 2)}
}

// Fallback builds the deterministic estimate used when no provider answers.
func Fallback(req renovation.EstimateRequest) renovation.CostEstimate {
	total := FallbackRange(req.Rooms, req.Style)

	breakdown := make([]renovation.CostItem, 0, len(fallbackShares))
	for _, share := range fallbackShares {
		breakdown = append(breakdown, renovation.CostItem{
			Category:   share.category,
			Cost:       math.Round(total.Average * share.percent / 100),
			Percentage: share.percent,
			Details:    append([]string(nil), share.details...),
		})
	}

	return renovation.CostEstimate{
		TotalCost:       total,
		Breakdown:       breakdown,
		Timeline:        Timeline(len(req.Rooms), req.Style),
		Confidence:      "Approximative",
		Recommendations: fallbackRecommendations(req),
	}
}

// DurationWeeks is ceil(2 weeks x rooms x style complexity factor).
func DurationWeeks(rooms int, style renovation.Style) int {
	if rooms <= 0 {
		return 0
	}
	return int(math.Ceil(2 * float64(rooms) * style.Describe().ComplexityFactor))
}

// Timeline renders the duration as a range of weeks.
func Timeline(rooms int, style renovation.Style) string {
	weeks := DurationWeeks(rooms, style)
	if weeks <= 0 {
		return "À déterminer"
	}
	return fmt.Sprintf("%d-%d semaines", weeks, weeks+2)
}

func fallbackRecommendations(req renovation.EstimateRequest) []string {
	recs := []string{
		"Obtenir au moins trois soumissions d'entrepreneurs licenciés RBQ",
		fmt.Sprintf("Prévoir une réserve de %d %% pour les imprévus", int(fallbackShares[3].percent)),
		"Vérifier les permis requis auprès de votre municipalité",
	}
	for _, r := range req.Rooms {
		switch r {
		case renovation.RoomCuisine:
			recs = append(recs, "Commander les armoires et comptoirs tôt: les délais de fabrication sont de 4 à 8 semaines")
		case renovation.RoomSalleDeBain:
			recs = append(recs, "Faire inspecter la plomberie et l'étanchéité avant de refaire la douche")
		case renovation.RoomSousSol:
			recs = append(recs, "Valider l'humidité et le drain français avant de finir le sous-sol")
		}
	}
	if req.House != nil && req.House.ConstructionYear > 0 && req.House.ConstructionYear < 1980 {
		recs = append(recs, "Maison d'avant 1980: prévoir une vérification de l'amiante et du filage électrique")
	}
	return recs
}
