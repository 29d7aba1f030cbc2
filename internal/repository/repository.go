package repository

import (
	"context"

	"github.com/content-lifecycle-api/internal/database"
	"github.com/content-lifecycle-api/internal/models"
)

// ArticleRepository defines the interface for article data operations.
// All methods participate in the ambient transaction of their context.
type ArticleRepository interface {
	Insert(ctx context.Context, article *models.Article) error
	Update(ctx context.Context, article *models.Article) error
	FindByID(ctx context.Context, id int64) (*models.Article, error)
	FindByAlias(ctx context.Context, alias string) (*models.Article, error)
	FindByIDs(ctx context.Context, ids []int64) ([]*models.Article, error)
	Delete(ctx context.Context, id int64) error
	Count(ctx context.Context, filter *models.ArticleFilter) (int, error)
	FindPage(ctx context.Context, filter *models.ArticleFilter) ([]*models.Article, error)
	FindPrev(ctx context.Context, id int64) (*models.Article, error)
	FindNext(ctx context.Context, id int64) (*models.Article, error)
	UpdateHits(ctx context.Context, id int64, hits int) error
	FindScheduled(ctx context.Context) ([]*models.Article, error)
	StreamPosted(ctx context.Context, callback func(*models.Article) error) error
}

// TagRepository defines the interface for tag data operations
type TagRepository interface {
	Insert(ctx context.Context, tag *models.Tag) error
	FindByID(ctx context.Context, id int64) (*models.Tag, error)
	FindByName(ctx context.Context, name string) (*models.Tag, error)
}

// ArticleTagRepository defines the interface for the article-tag association
type ArticleTagRepository interface {
	DeleteByArticle(ctx context.Context, articleID int64) error
	BatchInsert(ctx context.Context, rows []models.ArticleTag) error
	FindByArticle(ctx context.Context, articleID int64) ([]models.ArticleTag, error)
}

// CategoryRepository defines the interface for category lookups
type CategoryRepository interface {
	FindByID(ctx context.Context, id int64) (*models.Category, error)
}

// Repositories holds all repository interfaces
type Repositories struct {
	Article    ArticleRepository
	Tag        TagRepository
	ArticleTag ArticleTagRepository
	Category   CategoryRepository
}

// New creates all repositories with the given database connection
func New(db *database.DB) *Repositories {
	return &Repositories{
		Article:    NewArticleRepo(db),
		Tag:        NewTagRepo(db),
		ArticleTag: NewArticleTagRepo(db),
		Category:   NewCategoryRepo(db),
	}
}
