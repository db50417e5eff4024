package renovation

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Request is the aggregate built by the wizard and consumed by the orchestrator.
type Request struct {
	Client  ClientInfo `json:"client"`
	House   HouseInfo  `json:"house"`
	Project Project    `json:"project"`
}

// ClientInfo holds the contact details of the lead.
type ClientInfo struct {
	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	Address    string `json:"address"`
	City       string `json:"city"`
	PostalCode string `json:"postalCode"`
}

// PropertyType is the kind of dwelling being renovated.
type PropertyType string

const (
	PropertyAppartement PropertyType = "appartement"
	PropertyCondo       PropertyType = "condo"
	PropertyJumele      PropertyType = "jumele"
	PropertyDetache     PropertyType = "detache"
)

// Valid reports whether the property type is one of the known kinds.
func (p PropertyType) Valid() bool {
	switch p {
	case PropertyAppartement, PropertyCondo, PropertyJumele, PropertyDetache:
		return true
	default:
		return false
	}
}

// HouseInfo describes the property.
type HouseInfo struct {
	PropertyType     PropertyType `json:"propertyType"`
	ConstructionYear int          `json:"constructionYear"`
	SurfaceSqFt      float64      `json:"surfaceSqFt"`
	RoomCount        int          `json:"roomCount"`
	Floors           int          `json:"floors,omitempty"`
}

// Dimensions are room measurements in feet.
type Dimensions struct {
	Width  float64 `json:"width"`
	Length float64 `json:"length"`
	Height float64 `json:"height"`
}

// Project captures what the client wants done.
type Project struct {
	SelectedRooms  []Room              `json:"selectedRooms"`
	SelectedStyle  Style               `json:"selectedStyle"`
	Photos         []string            `json:"photos"`
	RoomDimensions map[Room]Dimensions `json:"roomDimensions,omitempty"`
	CustomPrompt   string              `json:"customPrompt,omitempty"`
}

// PrimaryRoom returns the first selected room, used when a single room drives a provider call.
func (p Project) PrimaryRoom() Room {
	if len(p.SelectedRooms) == 0 {
		return RoomOther
	}
	return p.SelectedRooms[0]
}

// DimensionsFor returns the measurements supplied for a room, if any.
func (p Project) DimensionsFor(room Room) *Dimensions {
	if d, ok := p.RoomDimensions[room]; ok {
		return &d
	}
	return nil
}

// Transformation modes disclose how a TransformationResult was produced.
const (
	ModeGenerated         = "generated"
	ModeAnnotatedOriginal = "annotated-original"
	ModeSimulated         = "simulated"
)

// TransformationResult is produced by the image transformation adapter.
type TransformationResult struct {
	TransformedPhoto string `json:"transformedPhoto"`
	Description      string `json:"description"`
	Confidence       int    `json:"confidence"`
	ProcessingTime   int64  `json:"processingTime"`
	Model            string `json:"model"`
	Mode             string `json:"mode"`
	Degraded         bool   `json:"degraded"`
}

// CostRange is a min/max/average amount in CAD.
type CostRange struct {
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Average float64 `json:"average"`
}

// CostItem is one line of an estimate breakdown.
type CostItem struct {
	Category   string   `json:"category"`
	Cost       float64  `json:"cost"`
	Percentage float64  `json:"percentage"`
	Details    []string `json:"details"`
}

// CostEstimate is produced by the cost estimation adapter or its fallback table.
type CostEstimate struct {
	TotalCost       CostRange  `json:"totalCost"`
	Breakdown       []CostItem `json:"breakdown"`
	Timeline        string     `json:"timeline"`
	Confidence      FlexString `json:"confidence"`
	Recommendations []string   `json:"recommendations"`
}

// PercentageSum adds the breakdown percentages.
func (c CostEstimate) PercentageSum() float64 {
	var sum float64
	for _, item := range c.Breakdown {
		sum += item.Percentage
	}
	return sum
}

// FlexString accepts either a JSON string or a JSON number.
type FlexString string

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexString) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" {
		*f = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = FlexString(s)
		return nil
	}
	var n float64
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = FlexString(strconv.FormatFloat(n, 'f', -1, 64))
	return nil
}

// PhotoAnalysis is produced by the photo cost-analysis adapter.
type PhotoAnalysis struct {
	Dimensions MeasuredDimensions `json:"dimensions"`
	Materials  MaterialPlan       `json:"materials"`
	Labor      []LaborLine        `json:"labor"`
	Complexity Complexity         `json:"complexity"`
	TotalCost  AnalysisTotals     `json:"totalCost"`
}

// MeasuredDimensions are the dimensions inferred from a photo, in feet.
type MeasuredDimensions struct {
	Length     float64 `json:"length"`
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
	Area       float64 `json:"area"`
	Confidence float64 `json:"confidence"`
}

// MaterialPlan lists what is in place and what must be bought.
type MaterialPlan struct {
	Existing []MaterialLine `json:"existing"`
	Needed   []MaterialLine `json:"needed"`
}

// MaterialLine is a quantity of one material.
type MaterialLine struct {
	Material   string  `json:"material"`
	Quantity   float64 `json:"quantity"`
	Unit       string  `json:"unit"`
	UnitPrice  float64 `json:"unitPrice,omitempty"`
	TotalPrice float64 `json:"totalPrice,omitempty"`
}

// LaborLine is the work of one trade.
type LaborLine struct {
	Specialty   string  `json:"specialty"`
	Hours       float64 `json:"hours"`
	HourlyRate  float64 `json:"hourlyRate"`
	TotalCost   float64 `json:"totalCost"`
	Description string  `json:"description"`
}

// Complexity levels reported by photo analysis.
const (
	ComplexitySimple   = "Simple"
	ComplexityModere   = "Modéré"
	ComplexityComplexe = "Complexe"
	ComplexityExpert   = "Expert"
)

// Complexity grades how hard the job looks.
type Complexity struct {
	Level      string   `json:"level"`
	Factors    []string `json:"factors"`
	Multiplier float64  `json:"multiplier"`
}

// AnalysisTotals sums the analysis costs in CAD.
type AnalysisTotals struct {
	Materials   float64 `json:"materials"`
	Labor       float64 `json:"labor"`
	Taxes       float64 `json:"taxes"`
	Contingency float64 `json:"contingency"`
	Total       float64 `json:"total"`
}

// InspirationPhoto is a stock photo matching a room/style pair.
type InspirationPhoto struct {
	ID              string `json:"id"`
	URL             string `json:"url"`
	Alt             string `json:"alt"`
	Photographer    string `json:"photographer"`
	PhotographerURL string `json:"photographerUrl"`
	SourceURL       string `json:"sourceUrl"`
}

// EstimateRequest is everything the cost estimation adapter looks at.
type EstimateRequest struct {
	Rooms          []Room              `json:"selectedRooms"`
	Style          Style               `json:"selectedStyle"`
	Goals          string              `json:"transformationGoals,omitempty"`
	PhotoCount     int                 `json:"photoCount,omitempty"`
	House          *HouseInfo          `json:"houseInfo,omitempty"`
	RoomDimensions map[Room]Dimensions `json:"roomDimensions,omitempty"`
	Analysis       *PhotoAnalysis      `json:"photoAnalysis,omitempty"`
}

// EstimateRequest derives the estimation input from a full request.
func (r Request) EstimateRequest() EstimateRequest {
	house := r.House
	return EstimateRequest{
		Rooms:          r.Project.SelectedRooms,
		Style:          r.Project.SelectedStyle,
		Goals:          r.Project.CustomPrompt,
		PhotoCount:     len(r.Project.Photos),
		House:          &house,
		RoomDimensions: r.Project.RoomDimensions,
	}
}
