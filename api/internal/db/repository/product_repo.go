package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/jmoiron/sqlx"

	"stockroom/api/internal/core/domain"
)

// ProductRepository implements domain.ProductRepository.
type ProductRepository struct {
	db *sqlx.DB
}

func NewProductRepository(db *sqlx.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

const productColumns = `id, group_id, name, description, manufacturer, quantity, price`

// Create inserts the product and scans the generated id back into it.
func (r *ProductRepository) Create(ctx context.Context, p *domain.Product) error {
	query := r.db.Rebind(`
		INSERT INTO products (group_id, name, description, manufacturer, quantity, price)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING id
	`)

	err := r.db.QueryRowxContext(ctx, query,
		p.GroupID,
		p.Name,
		p.Description,
		p.Manufacturer,
		p.Quantity,
		p.Price,
	).Scan(&p.ID)
	if err != nil {
		return fmt.Errorf("failed to create product: %w", translate(err))
	}
	return nil
}

func (r *ProductRepository) List(ctx context.Context) ([]domain.Product, error) {
	return r.selectMany(ctx, `SELECT `+productColumns+` FROM products ORDER BY id`)
}

func (r *ProductRepository) ListByGroup(ctx context.Context, groupID int64) ([]domain.Product, error) {
	return r.selectMany(ctx, `SELECT `+productColumns+` FROM products WHERE group_id = ? ORDER BY id`, groupID)
}

func (r *ProductRepository) GetByID(ctx context.Context, id int64) (*domain.Product, error) {
	return getProduct(ctx, r.db, `SELECT `+productColumns+` FROM products WHERE id = ?`, id)
}

func (r *ProductRepository) GetByName(ctx context.Context, name string) (*domain.Product, error) {
	return getProduct(ctx, r.db, `SELECT `+productColumns+` FROM products WHERE name = ?`, name)
}

func (r *ProductRepository) Update(ctx context.Context, p *domain.Product) error {
	query := r.db.Rebind(`
		UPDATE products
		SET group_id = ?, name = ?, description = ?, manufacturer = ?, quantity = ?, price = ?
		WHERE id = ?
	`)

	res, err := r.db.ExecContext(ctx, query,
		p.GroupID,
		p.Name,
		p.Description,
		p.Manufacturer,
		p.Quantity,
		p.Price,
		p.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update product: %w", translate(err))
	}
	return requireRow(res)
}

func (r *ProductRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM products WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	return requireRow(res)
}

// Search runs a case-insensitive substring match. LIKE wildcards typed by the user
// are matched literally.
func (r *ProductRepository) Search(ctx context.Context, query string) ([]domain.Product, error) {
	pattern := "%" + escapeLike(strings.ToLower(query)) + "%"

	return r.selectMany(ctx, `
		SELECT `+productColumns+` FROM products
		WHERE LOWER(name) LIKE ? ESCAPE '\'
		   OR LOWER(description) LIKE ? ESCAPE '\'
		   OR LOWER(manufacturer) LIKE ? ESCAPE '\'
		ORDER BY id
	`, pattern, pattern, pattern)
}

// AdjustQuantity applies delta inside one transaction. The range guard in the WHERE
// clause keeps concurrent sales from overselling and keeps quantity + delta inside
// int64, so neither engine ever evaluates an overflowing sum.
func (r *ProductRepository) AdjustQuantity(ctx context.Context, id int64, delta int64) (*domain.Product, error) {
	if delta == math.MinInt64 {
		return nil, domain.ErrInsufficientStock
	}

	// Accepted current quantities: lo <= quantity <= hi
	lo, hi := int64(0), int64(math.MaxInt64)
	if delta < 0 {
		lo = -delta
	} else {
		hi = math.MaxInt64 - delta
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin stock adjustment: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		tx.Rebind(`UPDATE products SET quantity = quantity + ? WHERE id = ? AND quantity >= ? AND quantity <= ?`),
		delta, id, lo, hi,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to adjust stock: %w", err)
	}

	if err := requireRow(res); err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		// No row changed: the id is unknown or the guard refused the movement.
		if _, lookupErr := getProduct(ctx, tx, `SELECT `+productColumns+` FROM products WHERE id = ?`, id); lookupErr != nil {
			return nil, lookupErr
		}
		if delta > 0 {
			return nil, domain.ErrStockOverflow
		}
		return nil, domain.ErrInsufficientStock
	}

	p, err := getProduct(ctx, tx, `SELECT `+productColumns+` FROM products WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit stock adjustment: %w", err)
	}
	return p, nil
}

func (r *ProductRepository) TotalValue(ctx context.Context) (float64, error) {
	var total float64
	query := `SELECT CAST(COALESCE(SUM(quantity * price), 0) AS DOUBLE PRECISION) FROM products`

	if err := r.db.GetContext(ctx, &total, query); err != nil {
		return 0, fmt.Errorf("failed to sum inventory value: %w", err)
	}
	return total, nil
}

func (r *ProductRepository) TotalValueByGroup(ctx context.Context, groupID int64) (float64, error) {
	var total float64
	query := r.db.Rebind(`SELECT CAST(COALESCE(SUM(quantity * price), 0) AS DOUBLE PRECISION) FROM products WHERE group_id = ?`)

	if err := r.db.GetContext(ctx, &total, query, groupID); err != nil {
		return 0, fmt.Errorf("failed to sum group inventory value: %w", err)
	}
	return total, nil
}

func (r *ProductRepository) selectMany(ctx context.Context, query string, args ...any) ([]domain.Product, error) {
	products := []domain.Product{}
	if err := r.db.SelectContext(ctx, &products, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return products, nil
}

// queryer is satisfied by both *sqlx.DB and *sqlx.Tx.
type queryer interface {
	sqlx.QueryerContext
	Rebind(string) string
}

func getProduct(ctx context.Context, q queryer, query string, arg any) (*domain.Product, error) {
	var p domain.Product
	if err := sqlx.GetContext(ctx, q, &p, q.Rebind(query), arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to query product: %w", err)
	}
	return &p, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
