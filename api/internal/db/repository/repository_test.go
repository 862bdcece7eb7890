package repository_test

import (
	"context"
	"math"
	"path/filepath"
	"sync"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockroom/api/internal/core/domain"
	"stockroom/api/internal/db/repository"
	"stockroom/api/internal/db/sqlite"
)

func openDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := sqlite.Open(context.Background(), filepath.Join(t.TempDir(), "stockroom.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

type fixture struct {
	groups   *repository.GroupRepository
	products *repository.ProductRepository
	groupID  int64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := openDB(t)
	f := &fixture{
		groups:   repository.NewGroupRepository(db),
		products: repository.NewProductRepository(db),
	}
	g := &domain.ProductGroup{Name: "Test Group"}
	require.NoError(t, f.groups.Create(context.Background(), g))
	f.groupID = g.ID
	return f
}

func (f *fixture) product(t *testing.T, name, desc, manu string, qty int64, price float64) *domain.Product {
	t.Helper()
	p := &domain.Product{GroupID: f.groupID, Name: name, Description: desc, Manufacturer: manu, Quantity: qty, Price: price}
	require.NoError(t, f.products.Create(context.Background(), p))
	return p
}

// ==============================================================================
// Groups
// ==============================================================================

func TestGroupRepository_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	groups := repository.NewGroupRepository(openDB(t))

	g := &domain.ProductGroup{Name: "Groceries", Description: "Food items"}
	require.NoError(t, groups.Create(ctx, g))
	assert.NotZero(t, g.ID)

	found, err := groups.GetByID(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, "Groceries", found.Name)
	assert.Equal(t, "Food items", found.Description)

	byName, err := groups.GetByName(ctx, "Groceries")
	require.NoError(t, err)
	assert.Equal(t, g.ID, byName.ID)

	_, err = groups.GetByName(ctx, "DoesNotExist")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGroupRepository_ListOrdersByID(t *testing.T) {
	ctx := context.Background()
	groups := repository.NewGroupRepository(openDB(t))

	empty, err := groups.List(ctx)
	require.NoError(t, err)
	assert.NotNil(t, empty, "an empty table must list as [] not null")
	assert.Empty(t, empty)

	require.NoError(t, groups.Create(ctx, &domain.ProductGroup{Name: "Group1", Description: "Desc1"}))
	require.NoError(t, groups.Create(ctx, &domain.ProductGroup{Name: "Group2", Description: "Desc2"}))

	list, err := groups.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Group1", list[0].Name)
	assert.Equal(t, "Group2", list[1].Name)
}

func TestGroupRepository_UpdateAndDelete(t *testing.T) {
	ctx := context.Background()
	groups := repository.NewGroupRepository(openDB(t))

	g := &domain.ProductGroup{Name: "Original Name", Description: "Original Desc"}
	require.NoError(t, groups.Create(ctx, g))

	g.Name, g.Description = "New Name", "New Desc"
	require.NoError(t, groups.Update(ctx, g))

	found, err := groups.GetByID(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, "New Name", found.Name)
	assert.Equal(t, "New Desc", found.Description)

	require.NoError(t, groups.Delete(ctx, g.ID))
	_, err = groups.GetByID(ctx, g.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assert.ErrorIs(t, groups.Delete(ctx, g.ID), domain.ErrNotFound)
	assert.ErrorIs(t, groups.Update(ctx, g), domain.ErrNotFound)
}

func TestGroupRepository_DuplicateNameIsConflict(t *testing.T) {
	ctx := context.Background()
	groups := repository.NewGroupRepository(openDB(t))

	require.NoError(t, groups.Create(ctx, &domain.ProductGroup{Name: "Tools"}))
	err := groups.Create(ctx, &domain.ProductGroup{Name: "Tools"})
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestGroupRepository_DeleteCascadesToProducts(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := f.product(t, "Orphan", "", "", 1, 1)

	require.NoError(t, f.groups.Delete(ctx, f.groupID))

	_, err := f.products.GetByID(ctx, p.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// ==============================================================================
// Products
// ==============================================================================

func TestProductRepository_CreateGetUpdateDelete(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	p := f.product(t, "Test Product", "Desc", "Manu", 10, 9.99)
	assert.NotZero(t, p.ID)

	found, err := f.products.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, *p, *found)

	p.Name, p.Quantity, p.Price = "New Name", 20, 19.99
	require.NoError(t, f.products.Update(ctx, p))

	found, err = f.products.GetByName(ctx, "New Name")
	require.NoError(t, err)
	assert.Equal(t, int64(20), found.Quantity)
	assert.InDelta(t, 19.99, found.Price, 1e-9)

	require.NoError(t, f.products.Delete(ctx, p.ID))
	_, err = f.products.GetByID(ctx, p.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestProductRepository_UnknownGroupIsInvalid(t *testing.T) {
	f := newFixture(t)
	err := f.products.Create(context.Background(), &domain.Product{GroupID: f.groupID + 100, Name: "Ghost"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestProductRepository_Search(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.product(t, "Apple", "A fruit", "Farm", 10, 1)
	f.product(t, "Banana", "A yellow FRUIT", "Farm", 20, 10)
	f.product(t, "Car", "A vehicle", "Factory", 30, 0)
	f.product(t, "100% Juice", "Drink", "Press_Co", 1, 2)

	results, err := f.products.Search(ctx, "fruit")
	require.NoError(t, err)
	assert.Len(t, results, 2)

	results, err = f.products.Search(ctx, "fact")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Car", results[0].Name)

	// Wildcards are literal.
	results, err = f.products.Search(ctx, "%")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "100% Juice", results[0].Name)

	results, err = f.products.Search(ctx, "s_c")
	require.NoError(t, err)
	assert.Len(t, results, 1)

	results, err = f.products.Search(ctx, "nothing-like-this")
	require.NoError(t, err)
	assert.NotNil(t, results)
	assert.Empty(t, results)
}

func TestProductRepository_ListByGroup(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	other := &domain.ProductGroup{Name: "Another Group"}
	require.NoError(t, f.groups.Create(ctx, other))

	f.product(t, "Product A", "", "", 1, 1)
	require.NoError(t, f.products.Create(ctx, &domain.Product{GroupID: other.ID, Name: "Product B", Quantity: 1, Price: 1}))

	list, err := f.products.ListByGroup(ctx, f.groupID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Product A", list[0].Name)

	all, err := f.products.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestProductRepository_TotalValue(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	total, err := f.products.TotalValue(ctx)
	require.NoError(t, err)
	assert.Zero(t, total)

	other := &domain.ProductGroup{Name: "Another Group"}
	require.NoError(t, f.groups.Create(ctx, other))

	f.product(t, "P1", "", "", 10, 1.50) // 15.00
	require.NoError(t, f.products.Create(ctx, &domain.Product{GroupID: other.ID, Name: "P2", Quantity: 5, Price: 10})) // 50.00

	total, err = f.products.TotalValue(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 65.0, total, 1e-9)

	groupTotal, err := f.products.TotalValueByGroup(ctx, f.groupID)
	require.NoError(t, err)
	assert.InDelta(t, 15.0, groupTotal, 1e-9)

	emptyTotal, err := f.products.TotalValueByGroup(ctx, other.ID+100)
	require.NoError(t, err)
	assert.Zero(t, emptyTotal)
}

func TestProductRepository_AdjustQuantity(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := f.product(t, "Bolts", "", "", 10, 0.1)

	updated, err := f.products.AdjustQuantity(ctx, p.ID, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(15), updated.Quantity)

	updated, err = f.products.AdjustQuantity(ctx, p.ID, -15)
	require.NoError(t, err)
	assert.Equal(t, int64(0), updated.Quantity)

	_, err = f.products.AdjustQuantity(ctx, p.ID, -1)
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)

	_, err = f.products.AdjustQuantity(ctx, p.ID+100, 1)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestProductRepository_AdjustQuantityStaysInRange(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := f.product(t, "Rivets", "", "", 10, 0)

	_, err := f.products.AdjustQuantity(ctx, p.ID, math.MaxInt64)
	require.ErrorIs(t, err, domain.ErrStockOverflow)

	_, err = f.products.AdjustQuantity(ctx, p.ID, math.MinInt64)
	require.ErrorIs(t, err, domain.ErrInsufficientStock)

	unchanged, err := f.products.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(10), unchanged.Quantity)

	full, err := f.products.AdjustQuantity(ctx, p.ID, math.MaxInt64-10)
	require.NoError(t, err)
	assert.Equal(t, int64(math.MaxInt64), full.Quantity)

	_, err = f.products.AdjustQuantity(ctx, p.ID, 1)
	assert.ErrorIs(t, err, domain.ErrStockOverflow)

	drained, err := f.products.AdjustQuantity(ctx, p.ID, -math.MaxInt64)
	require.NoError(t, err)
	assert.Equal(t, int64(0), drained.Quantity)
}

func TestProductRepository_ConcurrentSalesNeverOversell(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := f.product(t, "Limited", "", "", 10, 1)

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		sold int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.products.AdjustQuantity(ctx, p.ID, -1); err == nil {
				mu.Lock()
				sold++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, sold)
	final, err := f.products.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), final.Quantity)
}
