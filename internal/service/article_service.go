package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/content-lifecycle-api/internal/auth"
	"github.com/content-lifecycle-api/internal/database"
	"github.com/content-lifecycle-api/internal/models"
	"github.com/content-lifecycle-api/internal/render"
	"github.com/content-lifecycle-api/internal/repository"
	"github.com/rs/zerolog"
)

const defaultPageSize = 10

// articleService is the concrete implementation of ArticleService
type articleService struct {
	runner         database.TxRunner
	articleRepo    repository.ArticleRepository
	tagRepo        repository.TagRepository
	articleTagRepo repository.ArticleTagRepository
	categoryRepo   repository.CategoryRepository
	index          SearchIndex
	renderer       *render.Renderer
	scheduler      Scheduler
	sink           EventSink
	maxTags        int
	log            zerolog.Logger
}

// newArticleService creates a new ArticleService
func newArticleService(runner database.TxRunner, repos *repository.Repositories, index SearchIndex,
	renderer *render.Renderer, scheduler Scheduler, sink EventSink, maxTags int, log zerolog.Logger) *articleService {
	return &articleService{
		runner:         runner,
		articleRepo:    repos.Article,
		tagRepo:        repos.Tag,
		articleTagRepo: repos.ArticleTag,
		categoryRepo:   repos.Category,
		index:          index,
		renderer:       renderer,
		scheduler:      scheduler,
		sink:           sink,
		maxTags:        maxTags,
		log:            log.With().Str("service", "article").Logger(),
	}
}

// Save persists a new article. The lifecycle status decides the timestamps:
// DRAFT touches modifyAt only, POST publishes immediately, SCHEDULED
// validates the future postAt and registers a deferred publish task once the
// transaction commits.
func (s *articleService) Save(ctx context.Context, article *models.Article) (*models.ArticleSaved, error) {
	now := time.Now()
	article.Hits = 0
	article.CreateAt = now

	if article.Status == "" {
		article.Status = models.StatusPost
	}

	err := s.runner.InTx(ctx, func(ctx context.Context) error {
		if err := s.validateTagCount(article); err != nil {
			return err
		}
		if err := s.resolveCategory(ctx, article); err != nil {
			return err
		}
		if article.Alias != "" {
			existing, err := s.articleRepo.FindByAlias(ctx, article.Alias)
			if err != nil {
				return err
			}
			if existing != nil {
				return models.NewConflictError("alias.exists", "alias is already in use")
			}
		}

		var delay time.Duration
		switch article.Status {
		case models.StatusDraft:
			article.ModifyAt = &now
		case models.StatusPost:
			article.ModifyAt = &now
			article.PostAt = &now
		case models.StatusScheduled:
			if article.PostAt == nil || !article.PostAt.After(now) {
				return models.NewValidationError("postAt.illegal", "publish time must be in the future")
			}
			delay = time.Until(*article.PostAt)
			if delay <= 0 {
				return models.NewValidationError("scheduled.error", "scheduled publish time is invalid")
			}
		default:
			return models.NewValidationError("illegal.status", fmt.Sprintf("unknown article status %q", article.Status))
		}

		s.backfillFeatureImage(article)

		if err := s.articleRepo.Insert(ctx, article); err != nil {
			return err
		}
		if err := s.reconcileTags(ctx, article); err != nil {
			return err
		}

		s.queueIndexSync(ctx, article, "")
		if article.Status == models.StatusScheduled {
			id, d := article.ID, delay
			database.OnCommit(ctx, func() {
				s.scheduler.Schedule(id, d)
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Int64("article_id", article.ID).
		Str("status", string(article.Status)).
		Msg("Article saved")
	return &models.ArticleSaved{ID: article.ID, Status: true}, nil
}

// Update rewrites an existing article. postAt is re-derived rather than
// trusted: moving to POST keeps the prior instant unless it is missing or in
// the future, moving to DRAFT keeps the publish history untouched.
func (s *articleService) Update(ctx context.Context, article *models.Article) error {
	now := time.Now()

	err := s.runner.InTx(ctx, func(ctx context.Context) error {
		existing, err := s.articleRepo.FindByID(ctx, article.ID)
		if err != nil {
			return err
		}
		if existing == nil {
			return models.NewNotFoundError("article.notFound", "article not found")
		}
		if article.Alias != "" {
			owner, err := s.articleRepo.FindByAlias(ctx, article.Alias)
			if err != nil {
				return err
			}
			if owner != nil && owner.ID != article.ID {
				return models.NewConflictError("alias.exists", "alias is already in use")
			}
		}
		if err := s.validateTagCount(article); err != nil {
			return err
		}
		if err := s.resolveCategory(ctx, article); err != nil {
			return err
		}

		article.CreateAt = existing.CreateAt
		article.Hits = existing.Hits
		article.ModifyAt = &now

		var delay time.Duration
		switch article.Status {
		case models.StatusPost:
			article.PostAt = existing.PostAt
			if article.PostAt == nil || article.PostAt.After(now) {
				article.PostAt = &now
			}
		case models.StatusDraft:
			article.PostAt = existing.PostAt
		case models.StatusScheduled:
			if article.PostAt == nil || !article.PostAt.After(now) {
				return models.NewValidationError("postAt.illegal", "publish time must be in the future")
			}
			delay = time.Until(*article.PostAt)
		default:
			return models.NewValidationError("illegal.status", fmt.Sprintf("unknown article status %q", article.Status))
		}

		s.backfillFeatureImage(article)

		if err := s.reconcileTags(ctx, article); err != nil {
			return err
		}
		if err := s.articleRepo.Update(ctx, article); err != nil {
			return err
		}

		s.queueIndexSync(ctx, article, existing.Status)
		if article.Status == models.StatusScheduled {
			id, d := article.ID, delay
			database.OnCommit(ctx, func() {
				s.scheduler.Schedule(id, d)
			})
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.log.Info().
		Int64("article_id", article.ID).
		Str("status", string(article.Status)).
		Msg("Article updated")
	return nil
}

// PublishDue transitions one SCHEDULED article to POST at fire time. The
// state check and the transition share a single transaction, so a concurrent
// manual edit serializes against it on the article row. Stale state (the
// article is gone, no longer SCHEDULED, or rescheduled to a later instant)
// is a silent no-op.
func (s *articleService) PublishDue(ctx context.Context, articleID int64) error {
	now := time.Now()
	return s.runner.InTx(ctx, func(ctx context.Context) error {
		article, err := s.articleRepo.FindByID(ctx, articleID)
		if err != nil {
			return err
		}
		if article == nil || article.Status != models.StatusScheduled {
			return nil
		}
		if article.PostAt != nil && article.PostAt.After(now) {
			// rescheduled since this task was registered; a newer task owns it
			return nil
		}

		article.Status = models.StatusPost
		article.ModifyAt = &now
		if article.PostAt == nil {
			article.PostAt = &now
		}

		tags, err := s.loadTags(ctx, article.ID)
		if err != nil {
			return err
		}
		article.Tags = tags

		if err := s.articleRepo.Update(ctx, article); err != nil {
			return err
		}

		s.queueIndexSync(ctx, article, models.StatusScheduled)
		return nil
	})
}

// Delete removes an article and its tag associations; the deletion event
// fires after commit and drives the index removal
func (s *articleService) Delete(ctx context.Context, id int64) error {
	return s.runner.InTx(ctx, func(ctx context.Context) error {
		article, err := s.articleRepo.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if article == nil {
			return models.NewNotFoundError("article.notExists", "article not found")
		}
		if err := s.articleTagRepo.DeleteByArticle(ctx, id); err != nil {
			return err
		}
		if err := s.articleRepo.Delete(ctx, id); err != nil {
			return err
		}
		database.OnCommit(ctx, func() {
			s.sink.ArticleDeleted(article)
		})
		return nil
	})
}

// DeleteByIDs removes a batch of articles in one transaction; ids that do
// not resolve are skipped and an empty surviving set is a no-op
func (s *articleService) DeleteByIDs(ctx context.Context, ids []int64) error {
	return s.runner.InTx(ctx, func(ctx context.Context) error {
		articles, err := s.articleRepo.FindByIDs(ctx, ids)
		if err != nil {
			return err
		}
		if len(articles) == 0 {
			return nil
		}
		for _, article := range articles {
			if err := s.articleTagRepo.DeleteByArticle(ctx, article.ID); err != nil {
				return err
			}
			if err := s.articleRepo.Delete(ctx, article.ID); err != nil {
				return err
			}
		}
		database.OnCommit(ctx, func() {
			s.sink.ArticlesDeleted(articles)
		})
		return nil
	})
}

// FindPage composes visibility rules, the optional keyword search and
// pagination into one read path
func (s *articleService) FindPage(ctx context.Context, param *models.ArticleQueryParam) (*models.ArticlePage, error) {
	if param.Size <= 0 {
		param.Size = defaultPageSize
	}
	if param.Page < 1 {
		param.Page = 1
	}
	filter := &models.ArticleFilter{Offset: param.Offset(), Limit: param.Size}

	if param.CategoryID > 0 {
		category, err := s.categoryRepo.FindByID(ctx, param.CategoryID)
		if err != nil {
			return nil, err
		}
		if category == nil {
			return models.EmptyPage(param), nil
		}
		filter.CategoryID = param.CategoryID
	}

	if !auth.IsAuthenticated(ctx) {
		filter.Statuses = []models.ArticleStatus{models.StatusPost}
	}

	if keyword := strings.TrimSpace(param.Query); keyword != "" {
		ids, err := s.index.Search(ctx, &models.IndexQuery{
			Keyword:    keyword,
			Statuses:   filter.Statuses,
			CategoryID: filter.CategoryID,
		})
		if err != nil {
			// index failure degrades to an empty result, never an error
			s.log.Error().Err(err).Str("query", keyword).Msg("Search index lookup failed")
			return models.EmptyPage(param), nil
		}
		if len(ids) == 0 {
			return models.EmptyPage(param), nil
		}
		filter.IDs = ids
	}

	total, err := s.articleRepo.Count(ctx, filter)
	if err != nil {
		return nil, err
	}
	if total == 0 {
		return models.EmptyPage(param), nil
	}

	articles, err := s.articleRepo.FindPage(ctx, filter)
	if err != nil {
		return nil, err
	}

	if err := s.attachTags(ctx, articles); err != nil {
		return nil, err
	}
	s.renderArticles(articles)

	return &models.ArticlePage{
		Page:     param.Page,
		Size:     param.Size,
		Total:    total,
		Articles: articles,
	}, nil
}

// FindArticle resolves by numeric id first, falling back to alias, and
// applies the same visibility and rendering rules as FindPage
func (s *articleService) FindArticle(ctx context.Context, idOrAlias string) (*models.Article, error) {
	var article *models.Article
	if id, parseErr := strconv.ParseInt(idOrAlias, 10, 64); parseErr == nil {
		found, err := s.articleRepo.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		article = found
	}
	if article == nil {
		found, err := s.articleRepo.FindByAlias(ctx, idOrAlias)
		if err != nil {
			return nil, err
		}
		article = found
	}
	if article == nil {
		return nil, models.NewNotFoundError("article.notExists", "article not found")
	}

	if !auth.IsAuthenticated(ctx) && article.Status != models.StatusPost {
		return nil, models.NewValidationError("invalid.articleStatus", "article is not published")
	}

	tags, err := s.loadTags(ctx, article.ID)
	if err != nil {
		return nil, err
	}
	article.Tags = tags

	s.renderArticle(article)
	return article, nil
}

// FindArticleForEdit returns the raw row for the editing surface
func (s *articleService) FindArticleForEdit(ctx context.Context, id int64) (*models.Article, error) {
	article, err := s.articleRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if article == nil {
		return nil, models.NewNotFoundError("article.notExists", "article not found")
	}
	tags, err := s.loadTags(ctx, id)
	if err != nil {
		return nil, err
	}
	article.Tags = tags
	return article, nil
}

// FindNav returns the neighbouring published articles in publish order
func (s *articleService) FindNav(ctx context.Context, id int64) (*models.ArticleNav, error) {
	current, err := s.articleRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, models.NewNotFoundError("article.notExists", "article not found")
	}

	prev, err := s.articleRepo.FindPrev(ctx, id)
	if err != nil {
		return nil, err
	}
	next, err := s.articleRepo.FindNext(ctx, id)
	if err != nil {
		return nil, err
	}
	return &models.ArticleNav{Prev: prev, Next: next}, nil
}

// Hits increments the article's hit counter for unauthenticated reads
func (s *articleService) Hits(ctx context.Context, id int64) error {
	return s.runner.InTx(ctx, func(ctx context.Context) error {
		article, err := s.articleRepo.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if article == nil {
			return models.NewNotFoundError("article.notExists", "article not found")
		}
		// authenticated reads do not count
		if auth.IsAuthenticated(ctx) {
			return nil
		}
		return s.articleRepo.UpdateHits(ctx, id, article.Hits+1)
	})
}

// RebuildIndex repopulates the search index from the relational store
func (s *articleService) RebuildIndex(ctx context.Context) (int, error) {
	return s.index.Rebuild(ctx, func(ctx context.Context, callback func(*models.Article) error) error {
		return s.articleRepo.StreamPosted(ctx, func(article *models.Article) error {
			tags, err := s.loadTags(ctx, article.ID)
			if err != nil {
				return err
			}
			article.Tags = tags
			return callback(article)
		})
	})
}

// validateTagCount rejects oversized tag sets before any write
func (s *articleService) validateTagCount(article *models.Article) error {
	if len(article.Tags) > s.maxTags {
		return models.NewValidationError("tags.exceed.limit",
			fmt.Sprintf("at most %d tags are allowed", s.maxTags))
	}
	return nil
}

// resolveCategory checks the category reference at write time rather than
// trusting the foreign key blindly
func (s *articleService) resolveCategory(ctx context.Context, article *models.Article) error {
	if article.CategoryID <= 0 {
		return nil
	}
	category, err := s.categoryRepo.FindByID(ctx, article.CategoryID)
	if err != nil {
		return err
	}
	if category == nil {
		return models.NewNotFoundError("category.notExists", "category not found")
	}
	article.Category = category
	return nil
}

// reconcileTags rewrites the article's tag associations: every requested
// name is trimmed and resolved find-or-create, then the association table is
// fully replaced (delete-all, insert-new; never diffed)
func (s *articleService) reconcileTags(ctx context.Context, article *models.Article) error {
	if err := s.articleTagRepo.DeleteByArticle(ctx, article.ID); err != nil {
		return err
	}

	now := time.Now()
	seen := make(map[string]bool, len(article.Tags))
	rows := make([]models.ArticleTag, 0, len(article.Tags))
	resolved := make([]models.Tag, 0, len(article.Tags))

	for _, requested := range article.Tags {
		name := strings.TrimSpace(requested.Name)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true

		tag, err := s.tagRepo.FindByName(ctx, name)
		if err != nil {
			return err
		}
		if tag == nil {
			tag = &models.Tag{Name: name, CreateAt: now, ModifyAt: &now}
			err := s.tagRepo.Insert(ctx, tag)
			if errors.Is(err, repository.ErrDuplicateTag) {
				// lost a concurrent first-creation race; the row exists now
				tag, err = s.tagRepo.FindByName(ctx, name)
				if err != nil {
					return err
				}
				if tag == nil {
					return fmt.Errorf("tag %q missing after duplicate insert", name)
				}
			} else if err != nil {
				return err
			}
		}

		rows = append(rows, models.ArticleTag{ArticleID: article.ID, TagID: tag.ID})
		resolved = append(resolved, *tag)
	}

	article.Tags = resolved
	return s.articleTagRepo.BatchInsert(ctx, rows)
}

// queueIndexSync registers the post-commit index mutation for a save or
// update. The index reflects committed state only: the hook runs once, after
// the transaction is durable, and never on rollback. Index failures are
// logged and do not affect the relational result. A publish event fires when
// the article enters POST from another state.
func (s *articleService) queueIndexSync(ctx context.Context, article *models.Article, prior models.ArticleStatus) {
	if article.Status == models.StatusPost {
		database.OnCommit(ctx, func() {
			if err := s.index.AddOrUpdate(context.Background(), article); err != nil {
				s.log.Error().Err(err).Int64("article_id", article.ID).Msg("Search index update failed")
			}
			if prior != models.StatusPost {
				s.sink.ArticlePublished(article)
			}
		})
		return
	}
	if prior == models.StatusPost {
		// unpublished: drop the stale index entry
		database.OnCommit(ctx, func() {
			if err := s.index.Remove(context.Background(), article.ID); err != nil {
				s.log.Error().Err(err).Int64("article_id", article.ID).Msg("Search index removal failed")
			}
		})
	}
}

// loadTags resolves the article's association rows to live tag rows,
// dropping ids that no longer resolve
func (s *articleService) loadTags(ctx context.Context, articleID int64) ([]models.Tag, error) {
	assocs, err := s.articleTagRepo.FindByArticle(ctx, articleID)
	if err != nil {
		return nil, err
	}
	tags := make([]models.Tag, 0, len(assocs))
	for _, assoc := range assocs {
		tag, err := s.tagRepo.FindByID(ctx, assoc.TagID)
		if err != nil {
			return nil, err
		}
		if tag == nil {
			continue
		}
		tags = append(tags, *tag)
	}
	return tags, nil
}

// backfillFeatureImage derives the feature image from the first image of the
// rendered content when the caller supplied none
func (s *articleService) backfillFeatureImage(article *models.Article) {
	if article.FeatureImage != "" || article.Content == "" {
		return
	}
	html, err := s.renderer.Render(article.Content)
	if err != nil {
		return
	}
	if src, ok := render.FirstImage(html); ok {
		article.FeatureImage = src
	}
}

// renderArticle converts the article content to display HTML and backfills
// the feature image from the rendered output
func (s *articleService) renderArticle(article *models.Article) {
	html, err := s.renderer.Render(article.Content)
	if err != nil {
		s.log.Error().Err(err).Int64("article_id", article.ID).Msg("Markdown rendering failed")
		return
	}
	if article.FeatureImage == "" {
		if src, ok := render.FirstImage(html); ok {
			article.FeatureImage = src
		}
	}
	article.Content = html
}

// renderArticles is the batch form used by the page read path
func (s *articleService) renderArticles(articles []*models.Article) {
	markdowns := make(map[int64]string, len(articles))
	for _, article := range articles {
		if article.Content != "" {
			markdowns[article.ID] = article.Content
		}
	}
	rendered := s.renderer.RenderAll(markdowns)

	for _, article := range articles {
		html, ok := rendered[article.ID]
		if !ok {
			continue
		}
		if article.FeatureImage == "" {
			if src, found := render.FirstImage(html); found {
				article.FeatureImage = src
			}
		}
		article.Content = html
	}
}

// attachTags resolves tag rows for each article on the page
func (s *articleService) attachTags(ctx context.Context, articles []*models.Article) error {
	for _, article := range articles {
		tags, err := s.loadTags(ctx, article.ID)
		if err != nil {
			return err
		}
		article.Tags = tags
	}
	return nil
}
