package leads

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"renoquote/internal/config"
	"renoquote/internal/events"
	"renoquote/internal/renovation"
)

func kitchenBathLead() Lead {
	return Lead{
		Client: renovation.ClientInfo{FirstName: "Luc", LastName: "Gagnon", Email: "luc@example.ca", PostalCode: "h2x 1k4"},
		House:  renovation.HouseInfo{PropertyType: renovation.PropertyDetache, ConstructionYear: 1975},
		Project: Project{
			SelectedRooms: []renovation.Room{"cuisine", "salle-de-bain"},
			SelectedStyle: "moderne",
		},
		CostEstimation: &renovation.CostEstimate{TotalCost: renovation.CostRange{Min: 25000, Max: 39000, Average: 32000}},
		Transformation: &renovation.TransformationResult{Confidence: 85},
	}
}

func TestEnrich_LargeKitchenBathProject(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	got, err := Enrich(kitchenBathLead(), now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.PriorityScore != 100 {
		t.Errorf("expected priority capped at 100, got %d", got.PriorityScore)
	}
	if got.MarketSegment != SegmentPremium {
		t.Errorf("expected Premium, got %s", got.MarketSegment)
	}
	if got.EstimatedDurationWeeks != 4 || got.EstimatedDuration != "4 semaines" {
		t.Errorf("expected 4 weeks, got %d (%s)", got.EstimatedDurationWeeks, got.EstimatedDuration)
	}
	if got.Complexity != renovation.ComplexityComplexe {
		t.Errorf("expected Complexe, got %s", got.Complexity)
	}
	want := []string{"propriete:detache", "piece:cuisine", "piece:salle-de-bain", "style:moderne", "budget:30k+", "region:montreal"}
	if !reflect.DeepEqual(got.Tags, want) {
		t.Errorf("expected tags %v, got %v", want, got.Tags)
	}
	if !got.ReceivedAt.Equal(now) {
		t.Errorf("expected receivedAt %v, got %v", now, got.ReceivedAt)
	}
}

func TestEnrich_WithoutEstimateUsesFallbackTable(t *testing.T) {
	lead := Lead{
		Client:  renovation.ClientInfo{Email: "a@b.ca", PostalCode: "G1V 0A6"},
		House:   renovation.HouseInfo{PropertyType: renovation.PropertyDetache, ConstructionYear: 2005},
		Project: Project{SelectedRooms: []renovation.Room{"salon"}, SelectedStyle: "classique"},
	}
	got, err := Enrich(lead, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.AverageCost != 10220 {
		t.Errorf("expected fallback average 10220, got %v", got.AverageCost)
	}
	if got.PriorityScore != 55 {
		t.Errorf("expected priority 55, got %d", got.PriorityScore)
	}
	if got.MarketSegment != SegmentStandard {
		t.Errorf("expected Standard, got %s", got.MarketSegment)
	}
	if got.EstimatedDurationWeeks != 3 {
		t.Errorf("expected ceil(2*1.4) = 3 weeks, got %d", got.EstimatedDurationWeeks)
	}
	if got.Complexity != renovation.ComplexitySimple {
		t.Errorf("expected Simple, got %s", got.Complexity)
	}
	if got.Region != "quebec" {
		t.Errorf("expected quebec region, got %s", got.Region)
	}
}

func TestEnrich_Validation(t *testing.T) {
	badEmail := kitchenBathLead()
	badEmail.Client.Email = "luc-at-example"
	noRooms := kitchenBathLead()
	noRooms.Project.SelectedRooms = nil
	noStyle := kitchenBathLead()
	noStyle.Project.SelectedStyle = ""

	for name, lead := range map[string]Lead{"email": badEmail, "rooms": noRooms, "style": noStyle} {
		t.Run(name, func(t *testing.T) {
			if _, err := Enrich(lead, time.Now()); !errors.Is(err, renovation.ErrValidation) {
				t.Errorf("expected validation error, got %v", err)
			}
		})
	}
}

func TestPriorityScore(t *testing.T) {
	tests := []struct {
		avg        float64
		rooms      int
		confidence float64
		want       int
	}{
		{avg: 5000, rooms: 1, confidence: 0, want: 55},
		{avg: 16000, rooms: 1, confidence: 0, want: 65},
		{avg: 31000, rooms: 2, confidence: 50, want: 95},
		{avg: 31000, rooms: 4, confidence: 100, want: 100},
	}
	for _, tt := range tests {
		if got := PriorityScore(tt.avg, tt.rooms, tt.confidence); got != tt.want {
			t.Errorf("PriorityScore(%v, %d, %v): expected %d, got %d", tt.avg, tt.rooms, tt.confidence, tt.want, got)
		}
	}
}

func TestMarketSegment(t *testing.T) {
	cases := map[float64]string{9999: SegmentBudget, 10000: SegmentStandard, 24999: SegmentStandard, 25000: SegmentPremium, 49999: SegmentPremium, 50000: SegmentLuxe}
	for avg, want := range cases {
		if got := MarketSegment(avg); got != want {
			t.Errorf("MarketSegment(%v): expected %s, got %s", avg, want, got)
		}
	}
}

func TestComplexityThresholds(t *testing.T) {
	if got := Complexity([]renovation.Room{renovation.RoomCuisine}, 2010, 10000); got != renovation.ComplexitySimple {
		t.Errorf("expected 3 points to be Simple, got %s", got)
	}
	if got := Complexity([]renovation.Room{renovation.RoomCuisine}, 1950, 10000); got != renovation.ComplexityModere {
		t.Errorf("expected 5 points to be Modéré, got %s", got)
	}
	rooms := []renovation.Room{renovation.RoomSalon, renovation.RoomChambre, renovation.RoomBureau, renovation.RoomEntree}
	if got := Complexity(rooms, 1950, 40000); got != renovation.ComplexityModere {
		t.Errorf("expected 6 points to be Modéré, got %s", got)
	}
}

func TestRegion(t *testing.T) {
	cases := map[string]string{"H3A 0G4": "montreal", "g2k1a1": "quebec", "G5L 3A1": "est-du-quebec", "J4K 2T5": "regions", "K1A 0B1": "hors-quebec", "": "inconnue"}
	for code, want := range cases {
		if got := Region(code); got != want {
			t.Errorf("Region(%q): expected %s, got %s", code, want, got)
		}
	}
}

func TestService_SubmitToMemory(t *testing.T) {
	sink := NewMemorySink()
	svc := NewService(sink)

	got, err := svc.Submit(context.Background(), kitchenBathLead())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID == "" {
		t.Error("expected an id")
	}
	recent, err := svc.Recent(context.Background(), 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(recent) != 1 || recent[0].ID != got.ID {
		t.Errorf("expected the lead to be kept, got %+v", recent)
	}
}

func TestMemorySink_KeepsNewestFifty(t *testing.T) {
	sink := NewMemorySink()
	for i := 0; i < 60; i++ {
		sink.Deliver(context.Background(), Enriched{ID: string(rune('a' + i%26)), PriorityScore: i})
	}
	all, _ := sink.Recent(context.Background(), 0)
	if len(all) != 50 {
		t.Fatalf("expected 50 leads, got %d", len(all))
	}
	if all[0].PriorityScore != 59 {
		t.Errorf("expected newest first, got %d", all[0].PriorityScore)
	}
}

func TestService_WebhookDelivery(t *testing.T) {
	var received Enriched
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("expected JSON content type, got %q", r.Header.Get("Content-Type"))
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if r.Header.Get("X-Lead-ID") != received.ID {
			t.Errorf("expected X-Lead-ID header to match payload id")
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	svc := NewService(NewWebhookSink(srv.URL))
	got, err := svc.Submit(context.Background(), kitchenBathLead())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if received.ID != got.ID || received.MarketSegment != SegmentPremium {
		t.Errorf("unexpected webhook payload %+v", received)
	}
	if _, err := svc.Recent(context.Background(), 5); !errors.Is(err, ErrNotListable) {
		t.Errorf("expected ErrNotListable, got %v", err)
	}
}

func TestService_WebhookFailureIsDeliveryError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "crm down", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewService(NewWebhookSink(srv.URL)).Submit(context.Background(), kitchenBathLead())
	if !errors.Is(err, ErrDelivery) {
		t.Errorf("expected ErrDelivery, got %v", err)
	}
}

func TestService_InvalidLeadNeverDelivered(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer srv.Close()

	lead := kitchenBathLead()
	lead.Client.Email = ""
	_, err := NewService(NewWebhookSink(srv.URL)).Submit(context.Background(), lead)
	if !errors.Is(err, renovation.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
	if calls != 0 {
		t.Errorf("expected no delivery, got %d calls", calls)
	}
}

func TestNewSink_Defaults(t *testing.T) {
	sink, closeFn, err := NewSink(context.Background(), config.Config{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer closeFn()
	if sink.Name() != "memory" {
		t.Errorf("expected memory sink, got %s", sink.Name())
	}

	sink, _, _ = NewSink(context.Background(), config.Config{Leads: config.LeadsConfig{WebhookURL: "https://crm.example/hook"}})
	if sink.Name() != "webhook" {
		t.Errorf("expected webhook sink, got %s", sink.Name())
	}
}

func TestService_PublishesDeliveredLeads(t *testing.T) {
	broker := events.NewBroker()
	ch := broker.Subscribe()
	svc := NewService(nil)
	svc.Notify(broker)

	got, err := svc.Submit(context.Background(), kitchenBathLead())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	select {
	case evt := <-ch:
		if evt.LeadID != got.ID || evt.Type != events.TypeLeadDelivered || evt.Region != "montreal" {
			t.Errorf("unexpected event %+v", evt)
		}
	default:
		t.Fatal("expected an event")
	}

	bad := kitchenBathLead()
	bad.Client.Email = ""
	_, _ = svc.Submit(context.Background(), bad)
	if len(ch) != 0 {
		t.Error("expected no event for a rejected lead")
	}
}
