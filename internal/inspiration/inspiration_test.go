package inspiration

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sync/atomic"
	"testing"
	"time"

	"renoquote/internal/renovation"
	"renoquote/internal/retry"
)

func instantPolicy() retry.Policy {
	p := retry.DefaultPolicy()
	p.Sleep = func(context.Context, time.Duration) error { return nil }
	return p
}

func TestFind_NoKeyUsesSeededFallback(t *testing.T) {
	res := New("", instantPolicy()).Find(context.Background(), renovation.RoomSalon, renovation.StyleIndustriel, 6)

	if len(res.Photos) != 6 {
		t.Fatalf("expected 6 photos, got %d", len(res.Photos))
	}
	seed := 300 + 30
	if Seed(renovation.RoomSalon, renovation.StyleIndustriel) != seed {
		t.Fatalf("expected seed %d", seed)
	}
	for i, p := range res.Photos {
		want := fmt.Sprintf("https://picsum.photos/400/300?random=%d", seed+i)
		if p.URL != want {
			t.Errorf("photo %d: expected %s, got %s", i, want, p.URL)
		}
	}
	if res.Meta.Source != SourceFallback || !res.Meta.Fallback {
		t.Errorf("expected fallback meta, got %+v", res.Meta)
	}
	if res.Meta.Query != "industrial loft exposed brick living room interior design home decor" {
		t.Errorf("unexpected query %q", res.Meta.Query)
	}
}

func TestFallback_Reproducible(t *testing.T) {
	for _, style := range renovation.Styles {
		for _, room := range renovation.Rooms {
			a := Fallback(room, style, 8)
			b := Fallback(room, style, 8)
			if !reflect.DeepEqual(a, b) {
				t.Fatalf("expected identical fallback for %s/%s", room, style)
			}
		}
	}
}

func TestClampCount(t *testing.T) {
	cases := map[int]int{0: 6, -3: 6, 1: 1, 20: 20, 50: 20}
	for in, want := range cases {
		if got := ClampCount(in); got != want {
			t.Errorf("ClampCount(%d): expected %d, got %d", in, want, got)
		}
	}
}

func TestFind_Pexels(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "px-key" {
			t.Errorf("expected API key header, got %q", r.Header.Get("Authorization"))
		}
		if r.URL.Query().Get("per_page") != "2" {
			t.Errorf("expected per_page=2, got %q", r.URL.Query().Get("per_page"))
		}
		w.Write([]byte(`{"total_results":120,"photos":[
			{"id":1,"url":"https://pexels.com/photo/1","photographer":"Ana","photographer_url":"https://pexels.com/@ana","alt":"kitchen","src":{"large":"https://images.pexels.com/1-large.jpg"}},
			{"id":2,"url":"https://pexels.com/photo/2","photographer":"Ben","photographer_url":"https://pexels.com/@ben","alt":"sink","src":{"medium":"https://images.pexels.com/2-medium.jpg"}}
		]}`))
	}))
	defer srv.Close()

	svc := New("px-key", instantPolicy())
	svc.baseURL = srv.URL

	res := svc.Find(context.Background(), renovation.RoomCuisine, renovation.StyleScandinave, 2)
	if res.Meta.Source != SourcePexels || res.Meta.TotalResults != 120 {
		t.Fatalf("unexpected meta %+v", res.Meta)
	}
	if len(res.Photos) != 2 {
		t.Fatalf("expected 2 photos, got %d", len(res.Photos))
	}
	if res.Photos[0].ID != "1" || res.Photos[0].URL != "https://images.pexels.com/1-large.jpg" {
		t.Errorf("unexpected first photo %+v", res.Photos[0])
	}
	if res.Photos[1].URL != "https://images.pexels.com/2-medium.jpg" || res.Photos[1].SourceURL != "https://pexels.com/photo/2" {
		t.Errorf("unexpected second photo %+v", res.Photos[1])
	}
}

func TestFind_PexelsErrorFallsBack(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	svc := New("bad-key", instantPolicy())
	svc.baseURL = srv.URL

	res := svc.Find(context.Background(), renovation.RoomSalon, renovation.StyleIndustriel, 3)
	if res.Meta.Source != SourceFallback {
		t.Fatalf("expected fallback, got %+v", res.Meta)
	}
	if !reflect.DeepEqual(res.Photos, Fallback(renovation.RoomSalon, renovation.StyleIndustriel, 3)) {
		t.Error("expected the seeded fallback sequence")
	}
	if got := atomic.LoadInt32(&calls); got != int32(retry.DefaultAttempts) {
		t.Errorf("expected %d attempts, got %d", retry.DefaultAttempts, got)
	}
}

func TestFind_EmptyPexelsPageFallsBack(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"total_results":0,"photos":[]}`))
	}))
	defer srv.Close()

	svc := New("px-key", instantPolicy())
	svc.baseURL = srv.URL
	res := svc.Find(context.Background(), renovation.RoomBureau, renovation.StyleSpa, 4)
	if !res.Meta.Fallback || len(res.Photos) != 4 {
		t.Errorf("expected 4 fallback photos, got %+v", res.Meta)
	}
}
