package handlers

import (
	"context"
	"net/http"
	"strconv"

	"stockroom/api/internal/core/domain"
)

type ProductRequest struct {
	GroupID      int64   `json:"groupId" validate:"gt=0"`
	Name         string  `json:"name" validate:"required,max=255"`
	Description  string  `json:"description" validate:"max=2000"`
	Manufacturer string  `json:"manufacturer" validate:"max=255"`
	Quantity     int64   `json:"quantity" validate:"gte=0"`
	Price        float64 `json:"price" validate:"gte=0"`
}

func (req ProductRequest) toDomain() domain.Product {
	return domain.Product{
		GroupID:      req.GroupID,
		Name:         req.Name,
		Description:  req.Description,
		Manufacturer: req.Manufacturer,
		Quantity:     req.Quantity,
		Price:        req.Price,
	}
}

// StockRequest is the body of the add/sell stock movements.
type StockRequest struct {
	Amount int64 `json:"amount" validate:"gt=0"`
}

type ProductHandler struct {
	Service domain.InventoryService
}

func NewProductHandler(service domain.InventoryService) *ProductHandler {
	return &ProductHandler{Service: service}
}

// List handles GET /api/products, optionally filtered by ?groupId=
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	var groupID int64
	if raw := r.URL.Query().Get("groupId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			writeMessage(w, http.StatusBadRequest, "Invalid groupId")
			return
		}
		groupID = id
	}

	products, err := h.Service.ListProducts(r.Context(), groupID)
	if err != nil {
		HandleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, products)
}

// Search handles GET /api/products/search?q=
func (h *ProductHandler) Search(w http.ResponseWriter, r *http.Request) {
	products, err := h.Service.SearchProducts(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		HandleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, products)
}

// Get handles GET /api/products/{id}
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	product, err := h.Service.GetProduct(r.Context(), id)
	if err != nil {
		HandleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

// Create handles POST /api/products
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req ProductRequest
	if !decodeBody(w, r, &req) {
		return
	}

	product, err := h.Service.CreateProduct(r.Context(), req.toDomain())
	if err != nil {
		HandleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, product)
}

// Update handles PUT /api/products/{id}
func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req ProductRequest
	if !decodeBody(w, r, &req) {
		return
	}

	product, err := h.Service.UpdateProduct(r.Context(), id, req.toDomain())
	if err != nil {
		HandleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

// Delete handles DELETE /api/products/{id}
func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.Service.DeleteProduct(r.Context(), id); err != nil {
		HandleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddStock handles POST /api/products/{id}/add
func (h *ProductHandler) AddStock(w http.ResponseWriter, r *http.Request) {
	h.moveStock(w, r, h.Service.AddStock)
}

// SellStock handles POST /api/products/{id}/sell
func (h *ProductHandler) SellStock(w http.ResponseWriter, r *http.Request) {
	h.moveStock(w, r, h.Service.SellStock)
}

func (h *ProductHandler) moveStock(
	w http.ResponseWriter,
	r *http.Request,
	move func(ctx context.Context, id, amount int64) (*domain.Product, error),
) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req StockRequest
	if !decodeBody(w, r, &req) {
		return
	}

	product, err := move(r.Context(), id, req.Amount)
	if err != nil {
		HandleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, product)
}
