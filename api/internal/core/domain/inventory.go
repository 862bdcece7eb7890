package domain

import (
	"context"
	"time"
)

// ProductGroup is a named bucket of products (e.g. "Groceries").
type ProductGroup struct {
	ID          int64  `json:"id" db:"id"`
	Name        string `json:"name" db:"name"`
	Description string `json:"description" db:"description"`
}

// Product is a stock-keeping unit inside exactly one group.
type Product struct {
	ID           int64   `json:"id" db:"id"`
	GroupID      int64   `json:"groupId" db:"group_id"`
	Name         string  `json:"name" db:"name"`
	Description  string  `json:"description" db:"description"`
	Manufacturer string  `json:"manufacturer" db:"manufacturer"`
	Quantity     int64   `json:"quantity" db:"quantity"`
	Price        float64 `json:"price" db:"price"`
}

// Value is the stock value of the product: quantity × price.
func (p Product) Value() float64 {
	return float64(p.Quantity) * p.Price
}

// TotalValue is the aggregate inventory value response.
type TotalValue struct {
	TotalValue float64 `json:"totalValue"`
}

// ProductGroupRepository defines the persistence contract for groups.
type ProductGroupRepository interface {
	Create(ctx context.Context, g *ProductGroup) error
	List(ctx context.Context) ([]ProductGroup, error)
	GetByID(ctx context.Context, id int64) (*ProductGroup, error)
	GetByName(ctx context.Context, name string) (*ProductGroup, error)
	Update(ctx context.Context, g *ProductGroup) error

	// Delete removes the group and, through the foreign key, its products.
	Delete(ctx context.Context, id int64) error
}

// ProductRepository defines the persistence contract for products.
type ProductRepository interface {
	Create(ctx context.Context, p *Product) error
	List(ctx context.Context) ([]Product, error)
	ListByGroup(ctx context.Context, groupID int64) ([]Product, error)
	GetByID(ctx context.Context, id int64) (*Product, error)
	GetByName(ctx context.Context, name string) (*Product, error)
	Update(ctx context.Context, p *Product) error
	Delete(ctx context.Context, id int64) error

	// Search matches query case-insensitively against name, description and manufacturer.
	Search(ctx context.Context, query string) ([]Product, error)

	// AdjustQuantity atomically adds delta to the stored quantity.
	// 🛡️ Implementation detail for adapters: must return ErrInsufficientStock instead
	// of letting the quantity go negative, ErrStockOverflow instead of overflowing
	// int64, and ErrNotFound for unknown ids.
	AdjustQuantity(ctx context.Context, id int64, delta int64) (*Product, error)

	TotalValue(ctx context.Context) (float64, error)
	TotalValueByGroup(ctx context.Context, groupID int64) (float64, error)
}

// EventType names an inventory mutation broadcast to live listeners.
type EventType string

const (
	EventGroupCreated   EventType = "group.created"
	EventGroupUpdated   EventType = "group.updated"
	EventGroupDeleted   EventType = "group.deleted"
	EventProductCreated EventType = "product.created"
	EventProductUpdated EventType = "product.updated"
	EventProductDeleted EventType = "product.deleted"
	EventStockAdded     EventType = "stock.added"
	EventStockSold      EventType = "stock.sold"
	EventStockLow       EventType = "stock.low"
	EventStockRestocked EventType = "stock.restocked"
)

// Event is one inventory mutation.
type Event struct {
	Type      EventType `json:"type"`
	GroupID   int64     `json:"groupId,omitempty"`
	ProductID int64     `json:"productId,omitempty"`
	Quantity  *int64    `json:"quantity,omitempty"`
	At        time.Time `json:"at"`
}

// EventPublisher fans inventory events out to subscribers.
type EventPublisher interface {
	Publish(e Event)
}

// InventoryService is the use-case surface driven by the HTTP handlers.
type InventoryService interface {
	ListGroups(ctx context.Context) ([]ProductGroup, error)
	GetGroup(ctx context.Context, id int64) (*ProductGroup, error)
	CreateGroup(ctx context.Context, in ProductGroup) (*ProductGroup, error)
	UpdateGroup(ctx context.Context, id int64, in ProductGroup) (*ProductGroup, error)
	DeleteGroup(ctx context.Context, id int64) error

	ListProducts(ctx context.Context, groupID int64) ([]Product, error)
	GetProduct(ctx context.Context, id int64) (*Product, error)
	CreateProduct(ctx context.Context, in Product) (*Product, error)
	UpdateProduct(ctx context.Context, id int64, in Product) (*Product, error)
	DeleteProduct(ctx context.Context, id int64) error
	SearchProducts(ctx context.Context, query string) ([]Product, error)

	AddStock(ctx context.Context, id int64, amount int64) (*Product, error)
	SellStock(ctx context.Context, id int64, amount int64) (*Product, error)

	TotalValue(ctx context.Context) (TotalValue, error)
	GroupTotalValue(ctx context.Context, groupID int64) (TotalValue, error)
}
