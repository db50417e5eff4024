package api

import (
	"fmt"
	"net/http"
	"time"

	"renoquote/internal/estimation"
	"renoquote/internal/renovation"
)

type costEstimationRequest struct {
	renovation.EstimateRequest
	Photos []string `json:"photos,omitempty"`
}

type costEstimationResponse struct {
	Success    bool                    `json:"success"`
	Estimation renovation.CostEstimate `json:"estimation"`
	Source     string                  `json:"source"`
	Fallback   bool                    `json:"fallback"`
	Timestamp  time.Time               `json:"timestamp"`
}

// CostEstimation handles POST /cost-estimation. Provider failures fall back to the
// regional table, so only an invalid selection is rejected.
func (h Handler) CostEstimation(w http.ResponseWriter, r *http.Request) {
	var body costEstimationRequest
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, err)
		return
	}
	req, err := normalizeEstimate(body)
	if err != nil {
		writeError(w, err)
		return
	}

	res := h.Estimator.Estimate(r.Context(), req)
	writeJSON(w, http.StatusOK, costEstimationResponse{
		Success:    true,
		Estimation: res.Estimate,
		Source:     res.Source,
		Fallback:   res.Fallback,
		Timestamp:  res.Timestamp,
	})
}

func normalizeEstimate(body costEstimationRequest) (renovation.EstimateRequest, error) {
	req := body.EstimateRequest
	rooms, style, err := renovation.ValidateSelection(req.Rooms, req.Style)
	if err != nil {
		return renovation.EstimateRequest{}, err
	}
	req.Rooms = rooms
	req.Style = style
	if len(body.Photos) > 0 {
		req.PhotoCount = len(body.Photos)
	}
	return req, nil
}

// StyleGallery is the static set of reference images shown for a style.
func StyleGallery(style renovation.Style) []string {
	seed := style.Describe().BaseSeed
	urls := make([]string, 0, 3)
	for i := 1; i <= 3; i++ {
		urls = append(urls, fmt.Sprintf("https://picsum.photos/800/600?random=%d", seed+i))
	}
	return urls
}

type transformationResponse struct {
	Success        bool                    `json:"success"`
	Transformation legacyTransformation    `json:"transformation"`
	Estimation     renovation.CostEstimate `json:"estimation"`
	Source         string                  `json:"source"`
	Timestamp      time.Time               `json:"timestamp"`
}

type legacyTransformation struct {
	Style       renovation.Style `json:"style"`
	Label       string           `json:"label"`
	Description string           `json:"description"`
	Images      []string         `json:"images"`
}

// Transformation handles the legacy POST /transformation. It pairs the static style
// gallery with an estimate taken from the supplied photo analysis, or from the same
// estimator /cost-estimation uses.
func (h Handler) Transformation(w http.ResponseWriter, r *http.Request) {
	var body costEstimationRequest
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, err)
		return
	}
	req, err := normalizeEstimate(body)
	if err != nil {
		writeError(w, err)
		return
	}

	profile := req.Style.Describe()
	resp := transformationResponse{
		Success: true,
		Transformation: legacyTransformation{
			Style:       req.Style,
			Label:       profile.Label,
			Description: profile.Description,
			Images:      StyleGallery(req.Style),
		},
	}

	if req.Analysis != nil {
		if est, ok := estimation.FromAnalysis(*req.Analysis, req); ok {
			resp.Estimation = est
			resp.Source = estimation.SourceAnalysis
			resp.Timestamp = time.Now().UTC()
			writeJSON(w, http.StatusOK, resp)
			return
		}
	}

	res := h.Estimator.Estimate(r.Context(), req)
	resp.Estimation = res.Estimate
	resp.Source = res.Source
	resp.Timestamp = res.Timestamp
	writeJSON(w, http.StatusOK, resp)
}
