package repository

import (
	"context"
	"database/sql"

	"github.com/content-lifecycle-api/internal/database"
	"github.com/content-lifecycle-api/internal/models"
)

// categoryRepo is the concrete implementation of CategoryRepository
type categoryRepo struct {
	db *database.DB
}

// NewCategoryRepo creates a new category repository
func NewCategoryRepo(db *database.DB) CategoryRepository {
	return &categoryRepo{db: db}
}

// FindByID retrieves a category by id; returns nil when absent
func (r *categoryRepo) FindByID(ctx context.Context, id int64) (*models.Category, error) {
	var category models.Category
	var modifyAt sql.NullTime
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, create_at, modify_at FROM categories WHERE id = $1`, id).
		Scan(&category.ID, &category.Name, &category.CreateAt, &modifyAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if modifyAt.Valid {
		category.ModifyAt = &modifyAt.Time
	}
	return &category, nil
}
