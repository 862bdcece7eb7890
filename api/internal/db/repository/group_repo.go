// Package repository implements the inventory repositories over sqlx.
// Queries are written with '?' placeholders and rebound per driver, so the same
// code serves the Postgres (pgx) and embedded SQLite deployments.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"stockroom/api/internal/core/domain"
)

// GroupRepository implements domain.ProductGroupRepository.
type GroupRepository struct {
	db *sqlx.DB
}

func NewGroupRepository(db *sqlx.DB) *GroupRepository {
	return &GroupRepository{db: db}
}

const groupColumns = `id, name, description`

// Create inserts the group and scans the generated id back into it.
func (r *GroupRepository) Create(ctx context.Context, g *domain.ProductGroup) error {
	query := r.db.Rebind(`INSERT INTO product_groups (name, description) VALUES (?, ?) RETURNING id`)

	if err := r.db.QueryRowxContext(ctx, query, g.Name, g.Description).Scan(&g.ID); err != nil {
		return fmt.Errorf("failed to create product group: %w", translate(err))
	}
	return nil
}

func (r *GroupRepository) List(ctx context.Context) ([]domain.ProductGroup, error) {
	groups := []domain.ProductGroup{}
	query := `SELECT ` + groupColumns + ` FROM product_groups ORDER BY id`

	if err := r.db.SelectContext(ctx, &groups, query); err != nil {
		return nil, fmt.Errorf("failed to list product groups: %w", err)
	}
	return groups, nil
}

func (r *GroupRepository) GetByID(ctx context.Context, id int64) (*domain.ProductGroup, error) {
	return r.getOne(ctx, `SELECT `+groupColumns+` FROM product_groups WHERE id = ?`, id)
}

func (r *GroupRepository) GetByName(ctx context.Context, name string) (*domain.ProductGroup, error) {
	return r.getOne(ctx, `SELECT `+groupColumns+` FROM product_groups WHERE name = ?`, name)
}

func (r *GroupRepository) getOne(ctx context.Context, query string, arg any) (*domain.ProductGroup, error) {
	var g domain.ProductGroup
	if err := r.db.GetContext(ctx, &g, r.db.Rebind(query), arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to query product group: %w", err)
	}
	return &g, nil
}

func (r *GroupRepository) Update(ctx context.Context, g *domain.ProductGroup) error {
	query := r.db.Rebind(`UPDATE product_groups SET name = ?, description = ? WHERE id = ?`)

	res, err := r.db.ExecContext(ctx, query, g.Name, g.Description, g.ID)
	if err != nil {
		return fmt.Errorf("failed to update product group: %w", translate(err))
	}
	return requireRow(res)
}

func (r *GroupRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM product_groups WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("failed to delete product group: %w", err)
	}
	return requireRow(res)
}
