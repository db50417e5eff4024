// Package inspiration searches stock photos for a room/style pair and falls back to a
// seeded placeholder sequence that is reproducible without network access.
package inspiration

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"renoquote/internal/renovation"
	"renoquote/internal/retry"
)

const (
	DefaultCount = 6
	MaxCount     = 20

	SourcePexels   = "pexels"
	SourceFallback = "fallback"

	querySuffix          = "interior design home decor"
	defaultPexelsBaseURL = "https://api.pexels.com/v1"
)

// Meta describes how a result set was obtained.
type Meta struct {
	Source         string `json:"source"`
	Query          string `json:"query"`
	TotalResults   int    `json:"totalResults"`
	Count          int    `json:"count"`
	ProcessingTime int64  `json:"processingTime"`
	Room           string `json:"roomType"`
	Style          string `json:"style"`
	Fallback       bool   `json:"fallback"`
	Reason         string `json:"reason,omitempty"`
}

// Result is the photos plus their meta.
type Result struct {
	Photos []renovation.InspirationPhoto
	Meta   Meta
}

// Service queries Pexels when a key is configured.
type Service struct {
	apiKey  string
	baseURL string
	client  *http.Client
	policy  retry.Policy
}

// New builds the service. An empty apiKey makes every call use the fallback.
func New(apiKey string, policy retry.Policy) *Service {
	return &Service{
		apiKey:  strings.TrimSpace(apiKey),
		baseURL: defaultPexelsBaseURL,
		client:  &http.Client{Timeout: 15 * time.Second},
		policy:  policy,
	}
}

// Query builds the English search string for a room/style pair.
func Query(room renovation.Room, style renovation.Style) string {
	return fmt.Sprintf("%s %s %s", style.Describe().Search, room.Describe().Search, querySuffix)
}

// ClampCount applies the default and the page size cap.
func ClampCount(count int) int {
	switch {
	case count <= 0:
		return DefaultCount
	case count > MaxCount:
		return MaxCount
	default:
		return count
	}
}

// Find returns count photos for the pair. It never fails.
func (s *Service) Find(ctx context.Context, room renovation.Room, style renovation.Style, count int) Result {
	started := time.Now()
	count = ClampCount(count)
	query := Query(room, style)
	meta := Meta{Query: query, Room: string(room), Style: string(style)}

	if s == nil || s.apiKey == "" {
		return fallbackResult(room, style, count, meta, started, "no stock photo key configured")
	}

	page, err := retry.Do(ctx, s.policy, "inspiration-search", func(ctx context.Context) (pexelsPage, error) {
		return s.search(ctx, query, count)
	})
	if err == nil && len(page.photos) == 0 {
		err = errors.New("no photos returned")
	}
	if err != nil {
		log.Warn().Err(err).Str("query", query).Msg("inspiration search degraded to fallback")
		return fallbackResult(room, style, count, meta, started, err.Error())
	}

	meta.Source = SourcePexels
	meta.TotalResults = page.total
	meta.Count = len(page.photos)
	meta.ProcessingTime = time.Since(started).Milliseconds()
	return Result{Photos: page.photos, Meta: meta}
}

// Fallback returns the deterministic sequence for the pair: seeds
// base, base+1, ..., base+count-1 where base is the style seed plus the room offset.
func Fallback(room renovation.Room, style renovation.Style, count int) []renovation.InspirationPhoto {
	seed := Seed(room, style)
	label := fmt.Sprintf("%s %s", room.Describe().Label, strings.ToLower(style.Describe().Label))

	photos := make([]renovation.InspirationPhoto, 0, count)
	for i := 0; i < count; i++ {
		n := seed + i
		u := "https://picsum.photos/400/300?random=" + strconv.Itoa(n)
		photos = append(photos, renovation.InspirationPhoto{
			ID:              fmt.Sprintf("fallback-%d", n),
			URL:             u,
			Alt:             fmt.Sprintf("Inspiration %s %d", label, i+1),
			Photographer:    "Lorem Picsum",
			PhotographerURL: "https://picsum.photos",
			SourceURL:       u,
		})
	}
	return photos
}

// Seed is the first seed of the fallback sequence.
func Seed(room renovation.Room, style renovation.Style) int {
	return style.Describe().BaseSeed + room.Describe().SeedOffset
}

func fallbackResult(room renovation.Room, style renovation.Style, count int, meta Meta, started time.Time, reason string) Result {
	photos := Fallback(room, style, count)
	meta.Source = SourceFallback
	meta.Fallback = true
	meta.Reason = reason
	meta.TotalResults = len(photos)
	meta.Count = len(photos)
	meta.ProcessingTime = time.Since(started).Milliseconds()
	return Result{Photos: photos, Meta: meta}
}

type pexelsPage struct {
	photos []renovation.InspirationPhoto
	total  int
}

type pexelsResponse struct {
	TotalResults int `json:"total_results"`
	Photos       []struct {
		ID              int64  `json:"id"`
		URL             string `json:"url"`
		Photographer    string `json:"photographer"`
		PhotographerURL string `json:"photographer_url"`
		Alt             string `json:"alt"`
		Src             struct {
			Original string `json:"original"`
			Large    string `json:"large"`
			Medium   string `json:"medium"`
		} `json:"src"`
	} `json:"photos"`
}

func (s *Service) search(ctx context.Context, query string, count int) (pexelsPage, error) {
	params := url.Values{}
	params.Set("query", query)
	params.Set("per_page", strconv.Itoa(count))
	params.Set("orientation", "landscape")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return pexelsPage{}, fmt.Errorf("pexels request: %w", err)
	}
	req.Header.Set("Authorization", s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return pexelsPage{}, &renovation.ProviderError{Provider: "pexels", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return pexelsPage{}, &renovation.ProviderError{Provider: "pexels", StatusCode: resp.StatusCode, Err: errors.New(http.StatusText(resp.StatusCode))}
	}

	var decoded pexelsResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return pexelsPage{}, &renovation.ParseError{Provider: "pexels", Err: err}
	}

	page := pexelsPage{total: decoded.TotalResults}
	for _, p := range decoded.Photos {
		src := p.Src.Large
		if src == "" {
			src = p.Src.Medium
		}
		if src == "" {
			src = p.Src.Original
		}
		page.photos = append(page.photos, renovation.InspirationPhoto{
			ID:              strconv.FormatInt(p.ID, 10),
			URL:             src,
			Alt:             p.Alt,
			Photographer:    p.Photographer,
			PhotographerURL: p.PhotographerURL,
			SourceURL:       p.URL,
		})
		if len(page.photos) == count {
			break
		}
	}
	return page, nil
}
