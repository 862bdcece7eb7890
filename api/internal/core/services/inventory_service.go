package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"stockroom/api/internal/core/domain"
)

// InventoryService owns the business rules: unique names, group membership, and
// stock arithmetic. Handlers never talk to repositories directly.
type InventoryService struct {
	groups   domain.ProductGroupRepository
	products domain.ProductRepository
	events   domain.EventPublisher
	logger   *slog.Logger
	now      func() time.Time
}

func NewInventoryService(
	groups domain.ProductGroupRepository,
	products domain.ProductRepository,
	events domain.EventPublisher,
	logger *slog.Logger,
) *InventoryService {
	if logger == nil {
		logger = slog.Default()
	}
	return &InventoryService{
		groups:   groups,
		products: products,
		events:   events,
		logger:   logger,
		now:      time.Now,
	}
}

// ==============================================================================
// 1. Product Groups
// ==============================================================================

func (s *InventoryService) ListGroups(ctx context.Context) ([]domain.ProductGroup, error) {
	return s.groups.List(ctx)
}

func (s *InventoryService) GetGroup(ctx context.Context, id int64) (*domain.ProductGroup, error) {
	g, err := s.groups.GetByID(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.Errorf(domain.ErrNotFound, "Group not found")
	}
	return g, err
}

func (s *InventoryService) CreateGroup(ctx context.Context, in domain.ProductGroup) (*domain.ProductGroup, error) {
	g := &domain.ProductGroup{
		Name:        strings.TrimSpace(in.Name),
		Description: strings.TrimSpace(in.Description),
	}
	if g.Name == "" {
		return nil, domain.Errorf(domain.ErrInvalidInput, "Group name is required")
	}

	if err := s.ensureGroupNameFree(ctx, g.Name, 0); err != nil {
		return nil, err
	}

	if err := s.groups.Create(ctx, g); err != nil {
		return nil, err
	}

	s.logger.Info("Product group created", slog.Int64("group_id", g.ID), slog.String("name", g.Name))
	s.publish(domain.Event{Type: domain.EventGroupCreated, GroupID: g.ID})
	return g, nil
}

func (s *InventoryService) UpdateGroup(ctx context.Context, id int64, in domain.ProductGroup) (*domain.ProductGroup, error) {
	if _, err := s.GetGroup(ctx, id); err != nil {
		return nil, err
	}

	g := &domain.ProductGroup{
		ID:          id,
		Name:        strings.TrimSpace(in.Name),
		Description: strings.TrimSpace(in.Description),
	}
	if g.Name == "" {
		return nil, domain.Errorf(domain.ErrInvalidInput, "Group name is required")
	}

	if err := s.ensureGroupNameFree(ctx, g.Name, id); err != nil {
		return nil, err
	}

	if err := s.groups.Update(ctx, g); err != nil {
		return nil, err
	}

	s.publish(domain.Event{Type: domain.EventGroupUpdated, GroupID: id})
	return g, nil
}

// DeleteGroup removes the group together with every product in it.
func (s *InventoryService) DeleteGroup(ctx context.Context, id int64) error {
	if err := s.groups.Delete(ctx, id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Errorf(domain.ErrNotFound, "Group not found")
		}
		return err
	}

	s.logger.Info("Product group deleted", slog.Int64("group_id", id))
	s.publish(domain.Event{Type: domain.EventGroupDeleted, GroupID: id})
	return nil
}

func (s *InventoryService) ensureGroupNameFree(ctx context.Context, name string, selfID int64) error {
	existing, err := s.groups.GetByName(ctx, name)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return nil
	case err != nil:
		return err
	case existing.ID == selfID:
		return nil
	case selfID == 0:
		return domain.Errorf(domain.ErrConflict, "Group with this name already exists")
	default:
		return domain.Errorf(domain.ErrConflict, "Another group with this name already exists")
	}
}

// ==============================================================================
// 2. Products
// ==============================================================================

// ListProducts lists every product, or only those of groupID when it is positive.
func (s *InventoryService) ListProducts(ctx context.Context, groupID int64) ([]domain.Product, error) {
	if groupID > 0 {
		return s.products.ListByGroup(ctx, groupID)
	}
	return s.products.List(ctx)
}

func (s *InventoryService) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	p, err := s.products.GetByID(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.Errorf(domain.ErrNotFound, "Product not found")
	}
	return p, err
}

func (s *InventoryService) CreateProduct(ctx context.Context, in domain.Product) (*domain.Product, error) {
	p := normalizeProduct(in)
	p.ID = 0
	if err := s.checkProduct(ctx, p); err != nil {
		return nil, err
	}

	if err := s.ensureProductNameFree(ctx, p.Name, 0); err != nil {
		return nil, err
	}

	if err := s.products.Create(ctx, p); err != nil {
		return nil, err
	}

	s.logger.Info("Product created", slog.Int64("product_id", p.ID), slog.Int64("group_id", p.GroupID))
	s.publish(domain.Event{Type: domain.EventProductCreated, GroupID: p.GroupID, ProductID: p.ID, Quantity: &p.Quantity})
	return p, nil
}

func (s *InventoryService) UpdateProduct(ctx context.Context, id int64, in domain.Product) (*domain.Product, error) {
	if _, err := s.GetProduct(ctx, id); err != nil {
		return nil, err
	}

	p := normalizeProduct(in)
	p.ID = id
	if err := s.checkProduct(ctx, p); err != nil {
		return nil, err
	}

	if err := s.ensureProductNameFree(ctx, p.Name, id); err != nil {
		return nil, err
	}

	if err := s.products.Update(ctx, p); err != nil {
		return nil, err
	}

	s.publish(domain.Event{Type: domain.EventProductUpdated, GroupID: p.GroupID, ProductID: id, Quantity: &p.Quantity})
	return p, nil
}

func (s *InventoryService) DeleteProduct(ctx context.Context, id int64) error {
	if err := s.products.Delete(ctx, id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Errorf(domain.ErrNotFound, "Product not found")
		}
		return err
	}

	s.publish(domain.Event{Type: domain.EventProductDeleted, ProductID: id})
	return nil
}

// SearchProducts returns products matching query; a blank query matches nothing.
func (s *InventoryService) SearchProducts(ctx context.Context, query string) ([]domain.Product, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []domain.Product{}, nil
	}
	return s.products.Search(ctx, query)
}

func (s *InventoryService) checkProduct(ctx context.Context, p *domain.Product) error {
	if p.Name == "" {
		return domain.Errorf(domain.ErrInvalidInput, "Product name is required")
	}
	if p.Quantity < 0 {
		return domain.Errorf(domain.ErrInvalidInput, "Quantity cannot be negative")
	}
	if p.Price < 0 {
		return domain.Errorf(domain.ErrInvalidInput, "Price cannot be negative")
	}

	if _, err := s.groups.GetByID(ctx, p.GroupID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Errorf(domain.ErrInvalidInput, "Group %d does not exist", p.GroupID)
		}
		return err
	}
	return nil
}

func (s *InventoryService) ensureProductNameFree(ctx context.Context, name string, selfID int64) error {
	existing, err := s.products.GetByName(ctx, name)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return nil
	case err != nil:
		return err
	case existing.ID == selfID:
		return nil
	case selfID == 0:
		return domain.Errorf(domain.ErrConflict, "Product with this name already exists")
	default:
		return domain.Errorf(domain.ErrConflict, "Another product with this name already exists")
	}
}

func normalizeProduct(in domain.Product) *domain.Product {
	return &domain.Product{
		ID:           in.ID,
		GroupID:      in.GroupID,
		Name:         strings.TrimSpace(in.Name),
		Description:  strings.TrimSpace(in.Description),
		Manufacturer: strings.TrimSpace(in.Manufacturer),
		Quantity:     in.Quantity,
		Price:        in.Price,
	}
}

// ==============================================================================
// 3. Stock Movements
// ==============================================================================

// AddStock receives amount units into stock.
func (s *InventoryService) AddStock(ctx context.Context, id int64, amount int64) (*domain.Product, error) {
	if amount <= 0 {
		return nil, domain.Errorf(domain.ErrInvalidInput, "Amount must be positive")
	}
	return s.adjust(ctx, id, amount, domain.EventStockAdded)
}

// SellStock removes amount units from stock, refusing to go below zero.
func (s *InventoryService) SellStock(ctx context.Context, id int64, amount int64) (*domain.Product, error) {
	if amount <= 0 {
		return nil, domain.Errorf(domain.ErrInvalidInput, "Amount must be positive")
	}
	return s.adjust(ctx, id, -amount, domain.EventStockSold)
}

func (s *InventoryService) adjust(ctx context.Context, id, delta int64, kind domain.EventType) (*domain.Product, error) {
	p, err := s.products.AdjustQuantity(ctx, id, delta)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return nil, domain.Errorf(domain.ErrNotFound, "Product not found")
	case errors.Is(err, domain.ErrInsufficientStock):
		return nil, domain.Errorf(domain.ErrInsufficientStock, "Not enough stock")
	case errors.Is(err, domain.ErrStockOverflow):
		return nil, domain.Errorf(domain.ErrInvalidInput, "Amount exceeds the maximum stock quantity")
	case err != nil:
		return nil, fmt.Errorf("stock adjustment failed: %w", err)
	}

	s.logger.Info("Stock adjusted",
		slog.Int64("product_id", id),
		slog.Int64("delta", delta),
		slog.Int64("quantity", p.Quantity))
	s.publish(domain.Event{Type: kind, GroupID: p.GroupID, ProductID: id, Quantity: &p.Quantity})
	return p, nil
}

// ==============================================================================
// 4. Statistics
// ==============================================================================

func (s *InventoryService) TotalValue(ctx context.Context) (domain.TotalValue, error) {
	v, err := s.products.TotalValue(ctx)
	return domain.TotalValue{TotalValue: v}, err
}

// GroupTotalValue sums one group; unknown groups are worth zero.
func (s *InventoryService) GroupTotalValue(ctx context.Context, groupID int64) (domain.TotalValue, error) {
	v, err := s.products.TotalValueByGroup(ctx, groupID)
	return domain.TotalValue{TotalValue: v}, err
}

func (s *InventoryService) publish(e domain.Event) {
	if s.events == nil {
		return
	}
	e.At = s.now().UTC()
	s.events.Publish(e)
}
