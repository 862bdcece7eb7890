package handlers

import (
	"net/http"

	"stockroom/api/internal/core/domain"
)

// ==============================================================================
// 1. Request Payloads (Input Validation)
// ==============================================================================

type GroupRequest struct {
	Name        string `json:"name" validate:"required,max=255"`
	Description string `json:"description" validate:"max=2000"`
}

// ==============================================================================
// 2. The Handler Struct (Dependency Injection)
// ==============================================================================

type GroupHandler struct {
	Service domain.InventoryService
}

func NewGroupHandler(service domain.InventoryService) *GroupHandler {
	return &GroupHandler{Service: service}
}

// ==============================================================================
// 3. HTTP Methods
// ==============================================================================

// List handles GET /api/groups
func (h *GroupHandler) List(w http.ResponseWriter, r *http.Request) {
	groups, err := h.Service.ListGroups(r.Context())
	if err != nil {
		HandleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, groups)
}

// Get handles GET /api/groups/{id}
func (h *GroupHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	group, err := h.Service.GetGroup(r.Context(), id)
	if err != nil {
		HandleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, group)
}

// Create handles POST /api/groups
func (h *GroupHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req GroupRequest
	if !decodeBody(w, r, &req) {
		return
	}

	group, err := h.Service.CreateGroup(r.Context(), domain.ProductGroup{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		HandleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, group)
}

// Update handles PUT /api/groups/{id}
func (h *GroupHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req GroupRequest
	if !decodeBody(w, r, &req) {
		return
	}

	group, err := h.Service.UpdateGroup(r.Context(), id, domain.ProductGroup{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		HandleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, group)
}

// Delete handles DELETE /api/groups/{id}. Products of the group go with it.
func (h *GroupHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.Service.DeleteGroup(r.Context(), id); err != nil {
		HandleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
