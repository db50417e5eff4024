package api

import (
	"net/http"

	"renoquote/internal/orchestrator"
	"renoquote/internal/renovation"
)

type processResponse struct {
	Success bool                `json:"success"`
	Data    orchestrator.Result `json:"data"`
}

// ProcessRenovation handles POST /renovation/process.
func (h Handler) ProcessRenovation(w http.ResponseWriter, r *http.Request) {
	var req renovation.Request
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	result, err := h.Facade.Process(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, processResponse{Success: true, Data: result})
}
