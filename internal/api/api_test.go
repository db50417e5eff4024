package api

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"google.golang.org/genai"

	"renoquote/internal/estimation"
	"renoquote/internal/events"
	"renoquote/internal/inspiration"
	"renoquote/internal/leads"
	"renoquote/internal/orchestrator"
	"renoquote/internal/renovation"
	"renoquote/internal/retry"
)

type fakeProcessor struct {
	result orchestrator.Result
	err    error
}

func (f fakeProcessor) Process(context.Context, renovation.Request) (orchestrator.Result, error) {
	return f.result, f.err
}

type countingEstimator struct {
	calls int
}

func (c *countingEstimator) Estimate(ctx context.Context, req renovation.EstimateRequest) estimation.Result {
	c.calls++
	return estimation.New(nil).Estimate(ctx, req)
}

func newHandler() Handler {
	return Handler{
		Facade:    fakeProcessor{},
		Estimator: estimation.New(nil),
		Inspirer:  inspiration.New("", retry.Policy{}),
		Leads:     leads.NewService(leads.NewMemorySink()),
	}
}

func post(t *testing.T, fn http.HandlerFunc, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case string:
		buf.WriteString(b)
	default:
		if err := json.NewEncoder(&buf).Encode(b); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(http.MethodPost, "/", &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	fn(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out
}

func TestProcessRenovation(t *testing.T) {
	h := newHandler()
	h.Facade = fakeProcessor{result: orchestrator.Result{
		AIResults:      orchestrator.AIResults{Transformation: renovation.TransformationResult{Model: "simulation-fallback"}},
		CostEstimation: renovation.CostEstimate{Timeline: "2-4 semaines"},
	}}

	rec := post(t, h.ProcessRenovation, map[string]any{"client": map[string]any{}})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := decode[map[string]any](t, rec)
	data, ok := body["data"].(map[string]any)
	if body["success"] != true || !ok {
		t.Fatalf("expected success with data, got %v", body)
	}
	if _, ok := data["aiResults"]; !ok {
		t.Error("expected aiResults in data")
	}
	if _, ok := data["costEstimation"]; !ok {
		t.Error("expected costEstimation in data")
	}
}

func TestProcessRenovation_Errors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		body string
		want int
	}{
		{name: "validation", err: renovation.Invalid("client.email", "adresse courriel invalide"), body: `{}`, want: http.StatusBadRequest},
		{name: "internal", err: errors.New("boom"), body: `{}`, want: http.StatusInternalServerError},
		{name: "malformed json", body: `{"client":`, want: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHandler()
			h.Facade = fakeProcessor{err: tt.err}
			rec := post(t, h.ProcessRenovation, tt.body)
			if rec.Code != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, rec.Code)
			}
			body := decode[errorResponse](t, rec)
			if body.Error == "" || body.Details == "" {
				t.Errorf("expected error and details, got %+v", body)
			}
		})
	}
}

func TestCostEstimation_FallbackWithoutProvider(t *testing.T) {
	rec := post(t, newHandler().CostEstimation, map[string]any{
		"selectedRooms": []string{"cuisine"},
		"selectedStyle": "moderne",
		"photos":        []string{"a", "b", "c"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := decode[costEstimationResponse](t, rec)
	if !body.Success || body.Source != estimation.SourceFallback || !body.Fallback {
		t.Errorf("expected successful fallback, got %+v", body)
	}
	if body.Estimation.TotalCost.Min != 8640 || body.Estimation.TotalCost.Max != 23760 {
		t.Errorf("expected 8640-23760, got %+v", body.Estimation.TotalCost)
	}
	if body.Timestamp.IsZero() {
		t.Error("expected a timestamp")
	}
}

func TestCostEstimation_RequiresSelection(t *testing.T) {
	rec := post(t, newHandler().CostEstimation, map[string]any{"selectedStyle": "moderne"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestInspiration_SeededFallback(t *testing.T) {
	rec := post(t, newHandler().Inspiration, map[string]any{"roomType": "salon", "style": "industriel", "count": 6})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := decode[inspirationResponse](t, rec)
	if len(body.Inspirations) != 6 {
		t.Fatalf("expected 6 photos, got %d", len(body.Inspirations))
	}
	for i, p := range body.Inspirations {
		want := fmt.Sprintf("https://picsum.photos/400/300?random=%d", 330+i)
		if p.URL != want {
			t.Errorf("photo %d: expected %s, got %s", i, want, p.URL)
		}
	}
	if body.Meta.Source != inspiration.SourceFallback {
		t.Errorf("expected fallback source, got %s", body.Meta.Source)
	}
}

func TestInspiration_RequiresRoomAndStyle(t *testing.T) {
	for _, body := range []map[string]any{{"style": "moderne"}, {"roomType": "salon"}} {
		rec := post(t, newHandler().Inspiration, body)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400 for %v, got %d", body, rec.Code)
		}
	}
}

func TestTransformation_UsesSuppliedAnalysis(t *testing.T) {
	est := &countingEstimator{}
	h := newHandler()
	h.Estimator = est

	rec := post(t, h.Transformation, map[string]any{
		"selectedRooms": []string{"salle-de-bain"},
		"selectedStyle": "spa",
		"photoAnalysis": map[string]any{
			"totalCost": map[string]any{"materials": 5000, "labor": 5000, "total": 10000},
		},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := decode[transformationResponse](t, rec)
	if body.Source != estimation.SourceAnalysis {
		t.Errorf("expected analysis source, got %s", body.Source)
	}
	if est.calls != 0 {
		t.Errorf("expected no estimator call, got %d", est.calls)
	}
	if len(body.Transformation.Images) != 3 || body.Transformation.Images[0] != "https://picsum.photos/800/600?random=701" {
		t.Errorf("unexpected gallery %v", body.Transformation.Images)
	}
}

func TestTransformation_FallsBackToEstimator(t *testing.T) {
	est := &countingEstimator{}
	h := newHandler()
	h.Estimator = est

	rec := post(t, h.Transformation, map[string]any{"selectedRooms": []string{"cuisine"}, "selectedStyle": "moderne"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := decode[transformationResponse](t, rec)
	if est.calls != 1 {
		t.Errorf("expected one estimator call, got %d", est.calls)
	}
	if body.Source != estimation.SourceFallback {
		t.Errorf("expected fallback source, got %s", body.Source)
	}
}

func validLead() map[string]any {
	return map[string]any{
		"client":  map[string]any{"firstName": "Marie", "email": "marie@example.ca", "postalCode": "H2X 1Y4"},
		"house":   map[string]any{"propertyType": "condo", "constructionYear": 1990},
		"project": map[string]any{"selectedRooms": []string{"cuisine"}, "selectedStyle": "scandinave"},
	}
}

type leadResponse struct {
	Success bool           `json:"success"`
	Lead    leads.Enriched `json:"lead"`
}

func TestSubmitLead(t *testing.T) {
	h := newHandler()
	rec := post(t, h.SubmitLead, validLead())
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := decode[leadResponse](t, rec)
	if !body.Success || body.Lead.ID == "" || body.Lead.Region != "montreal" {
		t.Errorf("unexpected lead response %+v", body)
	}

	list := httptest.NewRecorder()
	h.ListLeads(list, httptest.NewRequest(http.MethodGet, "/leads?limit=5", nil))
	if list.Code != http.StatusOK {
		t.Fatalf("expected 200 listing, got %d", list.Code)
	}
}

func TestSubmitLead_InvalidEmail(t *testing.T) {
	lead := validLead()
	lead["client"] = map[string]any{"email": "nope"}
	rec := post(t, newHandler().SubmitLead, lead)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestSubmitLead_DeliveryFailure(t *testing.T) {
	hook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer hook.Close()

	h := newHandler()
	h.Leads = leads.NewService(leads.NewWebhookSink(hook.URL))
	rec := post(t, h.SubmitLead, validLead())
	if rec.Code != http.StatusBadGateway {
		t.Errorf("expected 502, got %d", rec.Code)
	}

	list := httptest.NewRecorder()
	h.ListLeads(list, httptest.NewRequest(http.MethodGet, "/leads", nil))
	if list.Code != http.StatusNotImplemented {
		t.Errorf("expected 501 for a webhook sink, got %d", list.Code)
	}
}

type fakeModels struct {
	resp *genai.GenerateContentResponse
	err  error
}

func (f fakeModels) GenerateContent(context.Context, string, []*genai.Content, *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	return f.resp, f.err
}

func TestTestBanana(t *testing.T) {
	okResp := &genai.GenerateContentResponse{Candidates: []*genai.Candidate{
		{Content: &genai.Content{Parts: []*genai.Part{{Text: "OK"}}}},
	}}
	tests := []struct {
		name  string
		probe Prober
		want  int
		kind  string
	}{
		{name: "no probe", probe: nil, want: http.StatusUnauthorized},
		{name: "no key", probe: &GeminiProbe{model: "gemini-2.5-flash"}, want: http.StatusUnauthorized, kind: KindNoKey},
		{name: "ok", probe: &GeminiProbe{models: fakeModels{resp: okResp}, model: "gemini-2.5-flash", apiKey: "AIzaSyExampleKey"}, want: http.StatusOK},
		{name: "invalid key", probe: &GeminiProbe{models: fakeModels{err: errors.New("Error 400, API key not valid. Please pass a valid API key.")}, apiKey: "AIzaSyExampleKey"}, want: http.StatusUnauthorized, kind: KindInvalidKey},
		{name: "server error", probe: &GeminiProbe{models: fakeModels{err: errors.New("internal")}, apiKey: "AIzaSyExampleKey"}, want: http.StatusInternalServerError, kind: KindUnknown},
		{name: "forbidden status", probe: &GeminiProbe{models: fakeModels{err: genai.APIError{Code: 403, Status: "PERMISSION_DENIED"}}, apiKey: "AIzaSyExampleKey"}, want: http.StatusUnauthorized, kind: KindInvalidKey},
		{name: "unauthenticated status", probe: &GeminiProbe{models: fakeModels{err: genai.APIError{Code: 401, Status: "UNAUTHENTICATED", Message: "Request had invalid authentication credentials."}}, apiKey: "AIzaSyExampleKey"}, want: http.StatusUnauthorized, kind: KindInvalidKey},
		{name: "empty answer", probe: &GeminiProbe{models: fakeModels{resp: &genai.GenerateContentResponse{}}, apiKey: "AIzaSyExampleKey"}, want: http.StatusInternalServerError, kind: KindUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHandler()
			h.Probe = tt.probe
			rec := httptest.NewRecorder()
			h.TestBanana(rec, httptest.NewRequest(http.MethodGet, "/test-banana", nil))
			if rec.Code != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, rec.Code)
			}
			d := decode[Diagnostic](t, rec)
			if d.Kind != tt.kind {
				t.Errorf("expected kind %q, got %q", tt.kind, d.Kind)
			}
			if tt.want == http.StatusOK && (!d.Success || d.Response != "OK" || d.KeyPreview != "AIza…eKey") {
				t.Errorf("unexpected diagnostic %+v", d)
			}
		})
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "403 value", err: genai.APIError{Code: 403, Status: "PERMISSION_DENIED"}, want: KindInvalidKey},
		{name: "429 without quota text", err: genai.APIError{Code: 429, Status: "TOO_MANY_REQUESTS"}, want: KindQuota},
		{name: "pointer", err: &genai.APIError{Code: 401}, want: KindInvalidKey},
		{name: "deadline", err: context.DeadlineExceeded, want: KindNetwork},
		{name: "key text", err: errors.New("API key not valid"), want: KindInvalidKey},
		{name: "other", err: errors.New("boom"), want: KindUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classify(tt.err); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestHealth(t *testing.T) {
	h := newHandler()
	h.Providers = Providers{Pexels: true}
	rec := httptest.NewRecorder()
	h.Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	body := decode[map[string]any](t, rec)
	if body["status"] != "ok" || body["leadSink"] != "memory" {
		t.Errorf("unexpected health body %v", body)
	}
	providers, _ := body["providers"].(map[string]any)
	if providers["pexels"] != true || providers["openai"] != false {
		t.Errorf("unexpected providers %v", providers)
	}
}

func TestStreamLeads(t *testing.T) {
	broker := events.NewBroker()
	h := newHandler()
	h.Events = broker
	h.Leads.Notify(broker)

	srv := httptest.NewServer(http.HandlerFunc(h.StreamLeads))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("expected event stream, got %q", ct)
	}

	reader := bufio.NewReader(resp.Body)
	if line, _ := reader.ReadString('\n'); !strings.HasPrefix(line, ": connected") {
		t.Fatalf("expected connected comment, got %q", line)
	}
	_, _ = reader.ReadString('\n')

	deadline := time.Now().Add(2 * time.Second)
	for broker.Subscribers() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	submitted := post(t, h.SubmitLead, validLead())
	if submitted.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", submitted.Code)
	}

	event, _ := reader.ReadString('\n')
	data, _ := reader.ReadString('\n')
	if strings.TrimSpace(event) != "event: "+events.TypeLeadDelivered {
		t.Errorf("unexpected event line %q", event)
	}
	if !strings.Contains(data, `"region":"montreal"`) {
		t.Errorf("unexpected data line %q", data)
	}
}

func TestStreamLeads_Disabled(t *testing.T) {
	rec := httptest.NewRecorder()
	newHandler().StreamLeads(rec, httptest.NewRequest(http.MethodGet, "/leads/stream", nil))
	if rec.Code != http.StatusNotImplemented {
		t.Errorf("expected 501, got %d", rec.Code)
	}
}
