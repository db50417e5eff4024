package api

import (
	"net/http"
	"strings"

	"renoquote/internal/inspiration"
	"renoquote/internal/renovation"
)

type inspirationRequest struct {
	RoomType string `json:"roomType"`
	Style    string `json:"style"`
	Count    int    `json:"count"`
}

type inspirationResponse struct {
	Success      bool                          `json:"success"`
	Inspirations []renovation.InspirationPhoto `json:"inspirations"`
	Meta         inspiration.Meta              `json:"meta"`
}

// Inspiration handles POST /inspiration.
func (h Handler) Inspiration(w http.ResponseWriter, r *http.Request) {
	var req inspirationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if strings.TrimSpace(req.RoomType) == "" {
		writeError(w, renovation.Invalid("roomType", "le type de pièce est requis"))
		return
	}
	if strings.TrimSpace(req.Style) == "" {
		writeError(w, renovation.Invalid("style", "le style est requis"))
		return
	}

	room, _ := renovation.ParseRoom(req.RoomType)
	style, ok := renovation.ParseStyle(req.Style)
	if !ok {
		style = renovation.Style(strings.ToLower(strings.TrimSpace(req.Style)))
	}

	res := h.Inspirer.Find(r.Context(), room, style, req.Count)
	writeJSON(w, http.StatusOK, inspirationResponse{Success: true, Inspirations: res.Photos, Meta: res.Meta})
}
