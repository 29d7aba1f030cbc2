package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/content-lifecycle-api/internal/database"
	"github.com/content-lifecycle-api/internal/models"
	"github.com/lib/pq"
)

// tagRepo is the concrete implementation of TagRepository
type tagRepo struct {
	db *database.DB
}

// NewTagRepo creates a new tag repository
func NewTagRepo(db *database.DB) TagRepository {
	return &tagRepo{db: db}
}

// Insert inserts a new tag and assigns its id. Losing a creation race on the
// name column is reported as ErrDuplicateTag so callers can retry as a
// lookup. ON CONFLICT keeps the enclosing transaction usable, which a raw
// unique violation would not.
func (r *tagRepo) Insert(ctx context.Context, tag *models.Tag) error {
	query := `
		INSERT INTO tags (name, create_at, modify_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (name) DO NOTHING
		RETURNING id
	`
	err := r.db.QueryRowContext(ctx, query, tag.Name, tag.CreateAt, tag.ModifyAt).Scan(&tag.ID)
	if err == sql.ErrNoRows {
		return ErrDuplicateTag
	}
	return err
}

// FindByID retrieves a tag by id; returns nil when absent
func (r *tagRepo) FindByID(ctx context.Context, id int64) (*models.Tag, error) {
	return r.scanOne(r.db.QueryRowContext(ctx,
		`SELECT id, name, create_at, modify_at FROM tags WHERE id = $1`, id))
}

// FindByName retrieves a tag by exact name; returns nil when absent
func (r *tagRepo) FindByName(ctx context.Context, name string) (*models.Tag, error) {
	return r.scanOne(r.db.QueryRowContext(ctx,
		`SELECT id, name, create_at, modify_at FROM tags WHERE name = $1`, name))
}

func (r *tagRepo) scanOne(row *sql.Row) (*models.Tag, error) {
	var tag models.Tag
	var modifyAt sql.NullTime
	err := row.Scan(&tag.ID, &tag.Name, &tag.CreateAt, &modifyAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if modifyAt.Valid {
		tag.ModifyAt = &modifyAt.Time
	}
	return &tag, nil
}

// ErrDuplicateTag signals that a tag with the same name already exists
var ErrDuplicateTag = errors.New("tag name already exists")

// articleTagRepo is the concrete implementation of ArticleTagRepository
type articleTagRepo struct {
	db *database.DB
}

// NewArticleTagRepo creates a new article-tag association repository
func NewArticleTagRepo(db *database.DB) ArticleTagRepository {
	return &articleTagRepo{db: db}
}

// DeleteByArticle removes every association row of the article
func (r *articleTagRepo) DeleteByArticle(ctx context.Context, articleID int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM article_tags WHERE article_id = $1`, articleID)
	return err
}

// BatchInsert inserts one association row per resolved tag
func (r *articleTagRepo) BatchInsert(ctx context.Context, rows []models.ArticleTag) error {
	if len(rows) == 0 {
		return nil
	}
	articleIDs := make([]int64, len(rows))
	tagIDs := make([]int64, len(rows))
	for i, row := range rows {
		articleIDs[i] = row.ArticleID
		tagIDs[i] = row.TagID
	}
	query := `
		INSERT INTO article_tags (article_id, tag_id)
		SELECT * FROM unnest($1::bigint[], $2::bigint[])
	`
	_, err := r.db.ExecContext(ctx, query, pq.Array(articleIDs), pq.Array(tagIDs))
	return err
}

// FindByArticle returns the association rows of the article
func (r *articleTagRepo) FindByArticle(ctx context.Context, articleID int64) ([]models.ArticleTag, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT article_id, tag_id FROM article_tags WHERE article_id = $1`, articleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []models.ArticleTag
	for rows.Next() {
		var row models.ArticleTag
		if err := rows.Scan(&row.ArticleID, &row.TagID); err != nil {
			return nil, err
		}
		result = append(result, row)
	}
	return result, rows.Err()
}
