package renovation

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func validRequest() Request {
	return Request{
		Client: ClientInfo{
			FirstName: "Marie", LastName: "Tremblay", Email: "marie@example.ca",
			Phone: "514-555-0101", Address: "123 rue Principale", City: "Montréal", PostalCode: "H2X 1Y4",
		},
		House: HouseInfo{PropertyType: PropertyDetache, ConstructionYear: 1975, SurfaceSqFt: 1400, RoomCount: 6},
		Project: Project{
			SelectedRooms: []Room{"cuisine", "salle-de-bains"},
			SelectedStyle: "rustique",
			Photos:        []string{"a", "b", "c"},
			RoomDimensions: map[Room]Dimensions{
				"cuisine": {Width: 12, Length: 14, Height: 8},
				"garage":  {Width: 20, Length: 20, Height: 9},
			},
		},
	}
}

func TestValidate_NormalizesTags(t *testing.T) {
	req := validRequest()
	if err := req.Validate(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.Project.SelectedStyle != StyleCampagne {
		t.Errorf("expected campagne, got %s", req.Project.SelectedStyle)
	}
	if req.Project.SelectedRooms[1] != RoomSalleDeBain {
		t.Errorf("expected salle-de-bain, got %s", req.Project.SelectedRooms[1])
	}
	if _, ok := req.Project.RoomDimensions["garage"]; ok {
		t.Errorf("expected unknown room dimensions to be dropped")
	}
	if req.Project.DimensionsFor(RoomCuisine) == nil {
		t.Errorf("expected kitchen dimensions to survive")
	}
}

func TestValidate_Rejections(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	cases := map[string]func(r *Request){
		"bad email":     func(r *Request) { r.Client.Email = "marie-at-example" },
		"no rooms":      func(r *Request) { r.Project.SelectedRooms = nil },
		"unknown room":  func(r *Request) { r.Project.SelectedRooms = []Room{"piscine"} },
		"no style":      func(r *Request) { r.Project.SelectedStyle = "" },
		"unknown style": func(r *Request) { r.Project.SelectedStyle = "baroque" },
		"two photos":    func(r *Request) { r.Project.Photos = r.Project.Photos[:2] },
		"future year":   func(r *Request) { r.House.ConstructionYear = 2030 },
		"ancient year":  func(r *Request) { r.House.ConstructionYear = 1700 },
		"no surface":    func(r *Request) { r.House.SurfaceSqFt = 0 },
		"bad property":  func(r *Request) { r.House.PropertyType = "chateau" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			req := validRequest()
			mutate(&req)
			err := req.Validate(now)
			if !errors.Is(err, ErrValidation) {
				t.Errorf("expected validation error, got %v", err)
			}
		})
	}
}

func TestStyleProfilesAreTotal(t *testing.T) {
	for _, s := range append(Styles, Style("inconnu")) {
		p := s.Describe()
		if p.Label == "" || p.Description == "" || p.Search == "" || p.CostMultiplier <= 0 {
			t.Errorf("style %q has incomplete profile: %+v", s, p)
		}
	}
	if StyleClassique.Describe().CostMultiplier <= StyleCampagne.Describe().CostMultiplier {
		t.Errorf("expected classique to cost more than campagne")
	}
}

func TestRoomProfilesAreTotal(t *testing.T) {
	for _, r := range append(Rooms, Room("garage")) {
		p := r.Describe()
		if p.Label == "" || p.Search == "" || p.Price.Min <= 0 || p.Price.Max < p.Price.Min {
			t.Errorf("room %q has incomplete profile: %+v", r, p)
		}
	}
}

func TestFlexString(t *testing.T) {
	var payload struct {
		A FlexString `json:"a"`
		B FlexString `json:"b"`
	}
	if err := json.Unmarshal([]byte(`{"a":"Élevée","b":85}`), &payload); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if payload.A != "Élevée" || payload.B != "85" {
		t.Errorf("unexpected values: %+v", payload)
	}
}

func TestErrorTaxonomy(t *testing.T) {
	timeout := &TimeoutError{Label: "x", After: time.Second}
	parse := &ParseError{Provider: "openai", Err: errors.New("eof")}
	if !errors.Is(timeout, ErrProvider) || !errors.Is(parse, ErrProvider) {
		t.Errorf("timeout and parse errors must be provider errors")
	}
	if errors.Is(Invalid("f", "bad"), ErrProvider) {
		t.Errorf("validation error must not be a provider error")
	}
}
