package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/content-lifecycle-api/internal/database"
	"github.com/content-lifecycle-api/internal/models"
	"github.com/lib/pq"
)

const articleColumns = `id, alias, title, content, feature_image, status, category_id, hits, allow_comment, is_private, create_at, modify_at, post_at`

// articleRepo is the concrete implementation of ArticleRepository
type articleRepo struct {
	db *database.DB
}

// NewArticleRepo creates a new article repository
func NewArticleRepo(db *database.DB) ArticleRepository {
	return &articleRepo{db: db}
}

// Insert inserts a new article and assigns its id
func (r *articleRepo) Insert(ctx context.Context, article *models.Article) error {
	query := `
		INSERT INTO articles (alias, title, content, feature_image, status, category_id, hits, allow_comment, is_private, create_at, modify_at, post_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id
	`
	return r.db.QueryRowContext(ctx, query,
		nullString(article.Alias), article.Title, article.Content, article.FeatureImage,
		article.Status, nullInt64(article.CategoryID), article.Hits,
		article.AllowComment, article.Private,
		article.CreateAt, article.ModifyAt, article.PostAt,
	).Scan(&article.ID)
}

// Update rewrites an existing article row
func (r *articleRepo) Update(ctx context.Context, article *models.Article) error {
	query := `
		UPDATE articles
		SET alias = $1, title = $2, content = $3, feature_image = $4, status = $5,
		    category_id = $6, allow_comment = $7, is_private = $8, modify_at = $9, post_at = $10
		WHERE id = $11
	`
	_, err := r.db.ExecContext(ctx, query,
		nullString(article.Alias), article.Title, article.Content, article.FeatureImage,
		article.Status, nullInt64(article.CategoryID),
		article.AllowComment, article.Private,
		article.ModifyAt, article.PostAt, article.ID,
	)
	return err
}

// FindByID retrieves an article by id; returns nil when absent
func (r *articleRepo) FindByID(ctx context.Context, id int64) (*models.Article, error) {
	query := fmt.Sprintf(`SELECT %s FROM articles WHERE id = $1`, articleColumns)
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

// FindByAlias retrieves an article by alias; returns nil when absent
func (r *articleRepo) FindByAlias(ctx context.Context, alias string) (*models.Article, error) {
	query := fmt.Sprintf(`SELECT %s FROM articles WHERE alias = $1`, articleColumns)
	return r.scanOne(r.db.QueryRowContext(ctx, query, alias))
}

// FindByIDs retrieves all articles matching the given ids
func (r *articleRepo) FindByIDs(ctx context.Context, ids []int64) ([]*models.Article, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := fmt.Sprintf(`SELECT %s FROM articles WHERE id = ANY($1)`, articleColumns)
	rows, err := r.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return r.scanAll(rows)
}

// Delete removes an article row; association rows cascade
func (r *articleRepo) Delete(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM articles WHERE id = $1`, id)
	return err
}

// Count returns the number of articles matching the filter
func (r *articleRepo) Count(ctx context.Context, filter *models.ArticleFilter) (int, error) {
	where, args := buildFilter(filter)
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM articles`+where, args...).Scan(&count)
	return count, err
}

// FindPage fetches one page of articles matching the filter, newest
// publication first. The (post_at, id) pair keeps the order deterministic.
func (r *articleRepo) FindPage(ctx context.Context, filter *models.ArticleFilter) ([]*models.Article, error) {
	where, args := buildFilter(filter)
	query := fmt.Sprintf(
		`SELECT %s FROM articles%s ORDER BY post_at DESC NULLS LAST, id DESC OFFSET $%d LIMIT $%d`,
		articleColumns, where, len(args)+1, len(args)+2,
	)
	args = append(args, filter.Offset, filter.Limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return r.scanAll(rows)
}

// FindPrev returns the published article preceding the given one in publish
// order; nil at the start of the timeline
func (r *articleRepo) FindPrev(ctx context.Context, id int64) (*models.Article, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM articles
		WHERE status = $1 AND (post_at, id) < (SELECT post_at, id FROM articles WHERE id = $2)
		ORDER BY post_at DESC, id DESC LIMIT 1
	`, articleColumns)
	return r.scanOne(r.db.QueryRowContext(ctx, query, models.StatusPost, id))
}

// FindNext returns the published article following the given one in publish
// order; nil at the end of the timeline
func (r *articleRepo) FindNext(ctx context.Context, id int64) (*models.Article, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM articles
		WHERE status = $1 AND (post_at, id) > (SELECT post_at, id FROM articles WHERE id = $2)
		ORDER BY post_at ASC, id ASC LIMIT 1
	`, articleColumns)
	return r.scanOne(r.db.QueryRowContext(ctx, query, models.StatusPost, id))
}

// UpdateHits rewrites an article's hit counter
func (r *articleRepo) UpdateHits(ctx context.Context, id int64, hits int) error {
	_, err := r.db.ExecContext(ctx, `UPDATE articles SET hits = $1 WHERE id = $2`, hits, id)
	return err
}

// FindScheduled returns all articles awaiting deferred publication
func (r *articleRepo) FindScheduled(ctx context.Context) ([]*models.Article, error) {
	query := fmt.Sprintf(`SELECT %s FROM articles WHERE status = $1 ORDER BY post_at`, articleColumns)
	rows, err := r.db.QueryContext(ctx, query, models.StatusScheduled)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return r.scanAll(rows)
}

// StreamPosted streams all published articles (for index rebuilds)
func (r *articleRepo) StreamPosted(ctx context.Context, callback func(*models.Article) error) error {
	query := fmt.Sprintf(`SELECT %s FROM articles WHERE status = $1 ORDER BY id`, articleColumns)
	rows, err := r.db.QueryContext(ctx, query, models.StatusPost)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		article, err := scanArticle(rows)
		if err != nil {
			return err
		}
		if err := callback(article); err != nil {
			return err
		}
	}
	return rows.Err()
}

// buildFilter renders the WHERE clause for an ArticleFilter
func buildFilter(filter *models.ArticleFilter) (string, []interface{}) {
	var clauses []string
	var args []interface{}

	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			statuses[i] = string(s)
		}
		args = append(args, pq.Array(statuses))
		clauses = append(clauses, fmt.Sprintf("status = ANY($%d)", len(args)))
	}
	if filter.CategoryID > 0 {
		args = append(args, filter.CategoryID)
		clauses = append(clauses, fmt.Sprintf("category_id = $%d", len(args)))
	}
	if filter.IDs != nil {
		args = append(args, pq.Array(filter.IDs))
		clauses = append(clauses, fmt.Sprintf("id = ANY($%d)", len(args)))
	}

	if len(clauses) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanArticle(row rowScanner) (*models.Article, error) {
	var article models.Article
	var alias sql.NullString
	var categoryID sql.NullInt64
	var modifyAt, postAt sql.NullTime

	err := row.Scan(
		&article.ID, &alias, &article.Title, &article.Content, &article.FeatureImage,
		&article.Status, &categoryID, &article.Hits,
		&article.AllowComment, &article.Private,
		&article.CreateAt, &modifyAt, &postAt,
	)
	if err != nil {
		return nil, err
	}

	if alias.Valid {
		article.Alias = alias.String
	}
	if categoryID.Valid {
		article.CategoryID = categoryID.Int64
	}
	if modifyAt.Valid {
		article.ModifyAt = &modifyAt.Time
	}
	if postAt.Valid {
		article.PostAt = &postAt.Time
	}
	return &article, nil
}

func (r *articleRepo) scanOne(row *sql.Row) (*models.Article, error) {
	article, err := scanArticle(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return article, nil
}

func (r *articleRepo) scanAll(rows *sql.Rows) ([]*models.Article, error) {
	var articles []*models.Article
	for rows.Next() {
		article, err := scanArticle(rows)
		if err != nil {
			return nil, err
		}
		articles = append(articles, article)
	}
	return articles, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt64(v int64) sql.NullInt64 {
	return sql.NullInt64{Int64: v, Valid: v > 0}
}
