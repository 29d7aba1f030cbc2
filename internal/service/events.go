package service

import (
	"context"

	"github.com/content-lifecycle-api/internal/models"
	"github.com/rs/zerolog"
)

// EventSink receives lifecycle notifications after the corresponding
// relational transaction commits. Delivery is synchronous and at-least-once
// within a process lifetime. Components receive their sink at construction;
// there is no global publisher.
type EventSink interface {
	ArticlePublished(article *models.Article)
	ArticleDeleted(article *models.Article)
	ArticlesDeleted(articles []*models.Article)
}

// LogSink logs every event it receives
type LogSink struct {
	log zerolog.Logger
}

// NewLogSink creates an EventSink that only logs
func NewLogSink(log zerolog.Logger) *LogSink {
	return &LogSink{log: log.With().Str("component", "events").Logger()}
}

func (s *LogSink) ArticlePublished(article *models.Article) {
	s.log.Info().Int64("article_id", article.ID).Str("alias", article.Alias).Msg("Article published")
}

func (s *LogSink) ArticleDeleted(article *models.Article) {
	s.log.Info().Int64("article_id", article.ID).Msg("Article deleted")
}

func (s *LogSink) ArticlesDeleted(articles []*models.Article) {
	ids := make([]int64, len(articles))
	for i, a := range articles {
		ids[i] = a.ID
	}
	s.log.Info().Ints64("article_ids", ids).Msg("Articles deleted")
}

// IndexSink removes deleted articles from the search index. The write path
// maintains additions itself; deletions arrive here via events so the
// removal runs only after the delete transaction commits. A failed removal
// is logged and never blocks the deletion result.
type IndexSink struct {
	index SearchIndex
	log   zerolog.Logger
}

// NewIndexSink creates the index-maintenance sink
func NewIndexSink(index SearchIndex, log zerolog.Logger) *IndexSink {
	return &IndexSink{
		index: index,
		log:   log.With().Str("component", "index-sink").Logger(),
	}
}

func (s *IndexSink) ArticlePublished(article *models.Article) {}

func (s *IndexSink) ArticleDeleted(article *models.Article) {
	if err := s.index.Remove(context.Background(), article.ID); err != nil {
		s.log.Error().Err(err).Int64("article_id", article.ID).Msg("Search index removal failed")
	}
}

func (s *IndexSink) ArticlesDeleted(articles []*models.Article) {
	for _, article := range articles {
		s.ArticleDeleted(article)
	}
}

// MultiSink fans an event out to every sink in order
type MultiSink []EventSink

func (m MultiSink) ArticlePublished(article *models.Article) {
	for _, sink := range m {
		sink.ArticlePublished(article)
	}
}

func (m MultiSink) ArticleDeleted(article *models.Article) {
	for _, sink := range m {
		sink.ArticleDeleted(article)
	}
}

func (m MultiSink) ArticlesDeleted(articles []*models.Article) {
	for _, sink := range m {
		sink.ArticlesDeleted(articles)
	}
}
