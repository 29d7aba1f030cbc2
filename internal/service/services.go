package service

import (
	"context"
	"time"

	"github.com/content-lifecycle-api/internal/config"
	"github.com/content-lifecycle-api/internal/database"
	"github.com/content-lifecycle-api/internal/models"
	"github.com/content-lifecycle-api/internal/render"
	"github.com/content-lifecycle-api/internal/repository"
	"github.com/rs/zerolog"
)

// ArticleService defines the article lifecycle, query and maintenance
// operations
type ArticleService interface {
	Save(ctx context.Context, article *models.Article) (*models.ArticleSaved, error)
	Update(ctx context.Context, article *models.Article) error
	Delete(ctx context.Context, id int64) error
	DeleteByIDs(ctx context.Context, ids []int64) error
	FindPage(ctx context.Context, param *models.ArticleQueryParam) (*models.ArticlePage, error)
	FindArticle(ctx context.Context, idOrAlias string) (*models.Article, error)
	FindArticleForEdit(ctx context.Context, id int64) (*models.Article, error)
	FindNav(ctx context.Context, id int64) (*models.ArticleNav, error)
	Hits(ctx context.Context, id int64) error
	RebuildIndex(ctx context.Context) (int, error)
	PublishDue(ctx context.Context, articleID int64) error
}

// SearchIndex is the full-text index consulted by the query pipeline and
// maintained by post-commit callbacks
type SearchIndex interface {
	AddOrUpdate(ctx context.Context, article *models.Article) error
	Remove(ctx context.Context, articleID int64) error
	Search(ctx context.Context, q *models.IndexQuery) ([]int64, error)
	Rebuild(ctx context.Context, stream func(ctx context.Context, callback func(*models.Article) error) error) (int, error)
}

// Scheduler registers one-shot deferred publish tasks
type Scheduler interface {
	Schedule(articleID int64, delay time.Duration)
}

// Services holds all service implementations
type Services struct {
	Article   ArticleService
	Scheduler *PublishScheduler
}

// NewServices creates all services and wires the scheduler to the article
// publish path. A nil sink falls back to a logging sink.
func NewServices(runner database.TxRunner, repos *repository.Repositories, index SearchIndex,
	renderer *render.Renderer, sink EventSink, cfg *config.Config, log zerolog.Logger) *Services {

	if sink == nil {
		sink = NewLogSink(log)
	}

	scheduler := NewPublishScheduler(repos.Article, cfg.Publish, log)
	articleSvc := newArticleService(runner, repos, index, renderer, scheduler, sink, cfg.Publish.MaxTagsPerArticle, log)
	scheduler.SetPublisher(articleSvc)

	return &Services{
		Article:   articleSvc,
		Scheduler: scheduler,
	}
}
