// Package search maintains the full-text article index. The index is a
// derived artifact: it lives in its own SQLite file, is mutated only after
// the relational transaction commits, and can be rebuilt from the relational
// store at any time.
package search

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/content-lifecycle-api/internal/models"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE VIRTUAL TABLE IF NOT EXISTS article_index USING fts5(
	title,
	content,
	tags,
	article_id UNINDEXED,
	status UNINDEXED,
	category_id UNINDEXED
);
`

// Index is an FTS5-backed full-text index over article content
type Index struct {
	db  *sql.DB
	log zerolog.Logger
}

// Open opens (creating if necessary) the index at path; ":memory:" gives an
// ephemeral index
func Open(path string, log zerolog.Logger) (*Index, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create index directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open search index: %w", err)
	}
	// A single writer keeps FTS5 updates serialized
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create index schema: %w", err)
	}

	idx := &Index{
		db:  db,
		log: log.With().Str("component", "search").Logger(),
	}
	idx.log.Info().Str("path", path).Msg("Search index opened")
	return idx, nil
}

// Close closes the index file
func (i *Index) Close() error {
	return i.db.Close()
}

// AddOrUpdate replaces the index entry of the article. Delete-then-insert
// keeps the operation idempotent per commit.
func (i *Index) AddOrUpdate(ctx context.Context, article *models.Article) error {
	tx, err := i.db.BeginTx(ctx, nil)
	if err != nil {
		return models.NewIndexError("add", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM article_index WHERE article_id = ?`, article.ID); err != nil {
		return models.NewIndexError("add", err)
	}

	tagNames := make([]string, len(article.Tags))
	for n, tag := range article.Tags {
		tagNames[n] = tag.Name
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO article_index (title, content, tags, article_id, status, category_id)
		VALUES (?, ?, ?, ?, ?, ?)`,
		article.Title, article.Content, strings.Join(tagNames, " "),
		article.ID, string(article.Status), article.CategoryID,
	)
	if err != nil {
		return models.NewIndexError("add", err)
	}

	if err := tx.Commit(); err != nil {
		return models.NewIndexError("add", err)
	}
	return nil
}

// Remove drops the index entry of the article; removing an absent entry is
// not an error
func (i *Index) Remove(ctx context.Context, articleID int64) error {
	_, err := i.db.ExecContext(ctx,
		`DELETE FROM article_index WHERE article_id = ?`, articleID)
	if err != nil {
		return models.NewIndexError("remove", err)
	}
	return nil
}

// Search returns the ids of articles matching the keyword, best match first,
// constrained by the optional status and category filters. Query parse
// failures surface as IndexError.
func (i *Index) Search(ctx context.Context, q *models.IndexQuery) ([]int64, error) {
	query := `
		SELECT article_id FROM article_index
		WHERE article_index MATCH ?
	`
	args := []interface{}{q.Keyword}

	if len(q.Statuses) > 0 {
		placeholders := make([]string, len(q.Statuses))
		for n, status := range q.Statuses {
			placeholders[n] = "?"
			args = append(args, string(status))
		}
		query += ` AND status IN (` + strings.Join(placeholders, ", ") + `)`
	}
	if q.CategoryID > 0 {
		query += ` AND category_id = ?`
		args = append(args, q.CategoryID)
	}

	query += ` ORDER BY bm25(article_index)`
	if q.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, q.Limit)
	}

	rows, err := i.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, models.NewIndexError("search", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, models.NewIndexError("search", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, models.NewIndexError("search", err)
	}
	return ids, nil
}

// Rebuild wipes the index and repopulates it from the given stream of
// published articles. Returns the number of entries written.
func (i *Index) Rebuild(ctx context.Context, stream func(ctx context.Context, callback func(*models.Article) error) error) (int, error) {
	if _, err := i.db.ExecContext(ctx, `DELETE FROM article_index`); err != nil {
		return 0, models.NewIndexError("rebuild", err)
	}

	indexed := 0
	err := stream(ctx, func(article *models.Article) error {
		if err := i.AddOrUpdate(ctx, article); err != nil {
			return err
		}
		indexed++
		return nil
	})
	if err != nil {
		return indexed, models.NewIndexError("rebuild", err)
	}

	i.log.Info().Int("indexed", indexed).Msg("Search index rebuilt")
	return indexed, nil
}
