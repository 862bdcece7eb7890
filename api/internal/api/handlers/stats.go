package handlers

import (
	"net/http"

	"stockroom/api/internal/core/domain"
)

type StatsHandler struct {
	Service domain.InventoryService
}

func NewStatsHandler(service domain.InventoryService) *StatsHandler {
	return &StatsHandler{Service: service}
}

// TotalValue handles GET /api/stats/total-value
func (h *StatsHandler) TotalValue(w http.ResponseWriter, r *http.Request) {
	total, err := h.Service.TotalValue(r.Context())
	if err != nil {
		HandleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, total)
}

// GroupTotalValue handles GET /api/stats/groups/{id}/total-value
func (h *StatsHandler) GroupTotalValue(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	total, err := h.Service.GroupTotalValue(r.Context(), id)
	if err != nil {
		HandleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, total)
}
