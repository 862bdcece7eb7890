package workers

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"stockroom/api/internal/core/domain"
)

// StockMonitor periodically sweeps the catalogue and announces products whose
// quantity crosses the low-stock threshold, in either direction.
type StockMonitor struct {
	products  domain.ProductRepository
	events    domain.EventPublisher
	logger    *slog.Logger
	interval  time.Duration
	threshold int64
	now       func() time.Time

	mu  sync.Mutex
	low map[int64]bool // product id -> last reported low state
}

func NewStockMonitor(
	products domain.ProductRepository,
	events domain.EventPublisher,
	logger *slog.Logger,
	interval time.Duration,
	threshold int64,
) *StockMonitor {
	if interval <= 0 {
		interval = time.Minute
	}
	return &StockMonitor{
		products:  products,
		events:    events,
		logger:    logger,
		interval:  interval,
		threshold: threshold,
		now:       time.Now,
		low:       make(map[int64]bool),
	}
}

func (m *StockMonitor) Start(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.Sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep(ctx)
		}
	}
}

// Sweep runs one pass. Only state changes are published, so a product that stays
// low is reported once.
func (m *StockMonitor) Sweep(ctx context.Context) {
	// 🛡️ SLA: one slow query must not pile sweeps on top of each other
	ctx, cancel := context.WithTimeout(ctx, m.interval)
	defer cancel()

	products, err := m.products.List(ctx)
	if err != nil {
		m.logger.Error("Stock sweep failed to list products", slog.Any("error", err))
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	seen := make(map[int64]struct{}, len(products))
	for _, p := range products {
		seen[p.ID] = struct{}{}
		isLow := p.Quantity <= m.threshold

		switch wasLow := m.low[p.ID]; {
		case isLow && !wasLow:
			m.handleLowStock(p)
		case !isLow && wasLow:
			m.handleRestock(p)
		}
		m.low[p.ID] = isLow
	}

	// Forget deleted products
	for id := range m.low {
		if _, ok := seen[id]; !ok {
			delete(m.low, id)
		}
	}
}

func (m *StockMonitor) handleLowStock(p domain.Product) {
	m.logger.Warn("Product stock is low",
		slog.Int64("product_id", p.ID),
		slog.String("name", p.Name),
		slog.Int64("quantity", p.Quantity),
		slog.Int64("threshold", m.threshold))
	m.publish(domain.EventStockLow, p)
}

func (m *StockMonitor) handleRestock(p domain.Product) {
	m.logger.Info("Product restocked",
		slog.Int64("product_id", p.ID),
		slog.Int64("quantity", p.Quantity))
	m.publish(domain.EventStockRestocked, p)
}

func (m *StockMonitor) publish(kind domain.EventType, p domain.Product) {
	if m.events == nil {
		return
	}
	qty := p.Quantity
	m.events.Publish(domain.Event{
		Type:      kind,
		GroupID:   p.GroupID,
		ProductID: p.ID,
		Quantity:  &qty,
		At:        m.now().UTC(),
	})
}
