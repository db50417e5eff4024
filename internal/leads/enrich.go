// Package leads enriches completed submissions and delivers them to a sink.
package leads

import (
	"fmt"
	"math"
	"strings"
	"time"

	"renoquote/internal/estimation"
	"renoquote/internal/renovation"
)

// Lead is a completed wizard submission.
type Lead struct {
	Client         renovation.ClientInfo            `json:"client"`
	House          renovation.HouseInfo             `json:"house"`
	Project        Project                          `json:"project"`
	CostEstimation *renovation.CostEstimate         `json:"costEstimation,omitempty"`
	Transformation *renovation.TransformationResult `json:"transformation,omitempty"`
}

// Project is the part of the wizard project kept with a lead. Photos are not forwarded.
type Project struct {
	SelectedRooms []renovation.Room `json:"selectedRooms"`
	SelectedStyle renovation.Style  `json:"selectedStyle"`
	CustomPrompt  string            `json:"customPrompt,omitempty"`
}

// Market segments by average cost.
const (
	SegmentBudget   = "Budget"
	SegmentStandard = "Standard"
	SegmentPremium  = "Premium"
	SegmentLuxe     = "Luxe"
)

// Enriched is the payload sent downstream.
type Enriched struct {
	ID                     string    `json:"id"`
	ReceivedAt             time.Time `json:"receivedAt"`
	Lead                   Lead      `json:"lead"`
	AverageCost            float64   `json:"averageCost"`
	PriorityScore          int       `json:"priorityScore"`
	MarketSegment          string    `json:"marketSegment"`
	EstimatedDurationWeeks int       `json:"estimatedDurationWeeks"`
	EstimatedDuration      string    `json:"estimatedDuration"`
	Complexity             string    `json:"complexity"`
	Region                 string    `json:"region"`
	Tags                   []string  `json:"tags"`
}

// Validate runs the checks required before any delivery attempt and normalises tags.
func (l *Lead) Validate() error {
	if strings.TrimSpace(l.Client.Email) == "" || !renovation.ValidEmail(l.Client.Email) {
		return renovation.Invalid("client.email", "adresse courriel invalide")
	}
	rooms, style, err := renovation.ValidateSelection(l.Project.SelectedRooms, l.Project.SelectedStyle)
	if err != nil {
		return err
	}
	l.Project.SelectedRooms = rooms
	l.Project.SelectedStyle = style
	return nil
}

// Enrich validates the lead and derives the scoring fields.
func Enrich(lead Lead, now time.Time) (Enriched, error) {
	if err := lead.Validate(); err != nil {
		return Enriched{}, err
	}

	avg := AverageCost(lead)
	confidence := 0.0
	if lead.Transformation != nil {
		confidence = float64(lead.Transformation.Confidence)
	}
	rooms := len(lead.Project.SelectedRooms)
	weeks := estimation.DurationWeeks(rooms, lead.Project.SelectedStyle)
	region := Region(lead.Client.PostalCode)

	return Enriched{
		ReceivedAt:             now,
		Lead:                   lead,
		AverageCost:            avg,
		PriorityScore:          PriorityScore(avg, rooms, confidence),
		MarketSegment:          MarketSegment(avg),
		EstimatedDurationWeeks: weeks,
		EstimatedDuration:      fmt.Sprintf("%d semaines", weeks),
		Complexity:             Complexity(lead.Project.SelectedRooms, lead.House.ConstructionYear, avg),
		Region:                 region,
		Tags:                   Tags(lead, avg, region),
	}, nil
}

// AverageCost uses the estimate attached to the lead, else the fallback table.
func AverageCost(lead Lead) float64 {
	if lead.CostEstimation != nil {
		if avg := lead.CostEstimation.TotalCost.Average; avg > 0 {
			return avg
		}
		if t := lead.CostEstimation.TotalCost; t.Min > 0 || t.Max > 0 {
			return math.Round((t.Min + t.Max) / 2)
		}
	}
	return estimation.FallbackRange(lead.Project.SelectedRooms, lead.Project.SelectedStyle).Average
}

// PriorityScore is 50 + cost bonus + 5 per room + 0.3 x AI confidence, capped at 100.
func PriorityScore(avg float64, rooms int, confidence float64) int {
	score := 50.0
	switch {
	case avg > 30000:
		score += 20
	case avg > 15000:
		score += 10
	}
	score += 5 * float64(rooms)
	score += 0.3 * confidence
	return int(math.Round(math.Min(score, 100)))
}

// MarketSegment buckets the average cost.
func MarketSegment(avg float64) string {
	switch {
	case avg < 10000:
		return SegmentBudget
	case avg < 25000:
		return SegmentStandard
	case avg < 50000:
		return SegmentPremium
	default:
		return SegmentLuxe
	}
}

// Complexity grades the project from a point score.
func Complexity(rooms []renovation.Room, constructionYear int, avg float64) string {
	points := 0
	for _, r := range rooms {
		switch r {
		case renovation.RoomCuisine, renovation.RoomSalleDeBain:
			points += 3
		}
	}
	if len(rooms) > 3 {
		points += 2
	}
	if constructionYear > 0 && constructionYear < 1980 {
		points += 2
	}
	if avg > 30000 {
		points += 2
	}

	switch {
	case points <= 3:
		return renovation.ComplexitySimple
	case points <= 7:
		return renovation.ComplexityModere
	default:
		return renovation.ComplexityComplexe
	}
}

// Region maps a Canadian postal code to a sales region.
func Region(postalCode string) string {
	code := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(postalCode), " ", ""))
	switch {
	case code == "":
		return "inconnue"
	case strings.HasPrefix(code, "H"):
		return "montreal"
	case strings.HasPrefix(code, "G1"), strings.HasPrefix(code, "G2"), strings.HasPrefix(code, "G3"):
		return "quebec"
	case strings.HasPrefix(code, "G"):
		return "est-du-quebec"
	case strings.HasPrefix(code, "J"):
		return "regions"
	default:
		return "hors-quebec"
	}
}

// Tags builds the deterministic tag list used for routing.
func Tags(lead Lead, avg float64, region string) []string {
	tags := []string{"propriete:" + string(lead.House.PropertyType)}
	for _, r := range lead.Project.SelectedRooms {
		tags = append(tags, "piece:"+string(r))
	}
	tags = append(tags, "style:"+string(lead.Project.SelectedStyle))

	switch {
	case avg > 30000:
		tags = append(tags, "budget:30k+")
	case avg > 15000:
		tags = append(tags, "budget:15k-30k")
	default:
		tags = append(tags, "budget:moins-15k")
	}
	return append(tags, "region:"+region)
}
