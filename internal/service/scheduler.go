package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/content-lifecycle-api/internal/config"
	"github.com/content-lifecycle-api/internal/repository"
	"github.com/rs/zerolog"
)

// Publisher executes the scheduled-to-published transition for one article.
// The implementation re-reads the article at fire time inside its own
// transaction, so stale tasks degrade to no-ops.
type Publisher interface {
	PublishDue(ctx context.Context, articleID int64) error
}

// PublishScheduler holds in-memory deferred publish tasks. Tasks do not
// survive a restart; the startup recovery sweep re-registers every SCHEDULED
// article instead.
type PublishScheduler struct {
	articleRepo repository.ArticleRepository
	publisher   Publisher
	log         zerolog.Logger

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool
	sweep   bool
	// Semaphore: buffered channel bounding concurrent firings so a burst of
	// due articles cannot exhaust database connections
	sem chan struct{}
}

// NewPublishScheduler creates a scheduler with a fixed-size worker pool
func NewPublishScheduler(articleRepo repository.ArticleRepository, cfg config.PublishConfig, log zerolog.Logger) *PublishScheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &PublishScheduler{
		articleRepo: articleRepo,
		log:         log.With().Str("service", "scheduler").Logger(),
		ctx:         ctx,
		cancel:      cancel,
		sweep:       cfg.RecoverySweep,
		sem:         make(chan struct{}, cfg.Workers),
	}
}

// SetPublisher wires the publish path; called once during service assembly
func (s *PublishScheduler) SetPublisher(publisher Publisher) {
	s.publisher = publisher
}

// Start runs the recovery sweep: every SCHEDULED article is re-registered,
// past-due ones with zero delay so they fire immediately
func (s *PublishScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = true
	s.mu.Unlock()

	if !s.sweep {
		s.log.Info().Msg("Recovery sweep disabled; pending schedules from previous runs are dropped")
		return nil
	}

	articles, err := s.articleRepo.FindScheduled(ctx)
	if err != nil {
		return fmt.Errorf("failed to scan scheduled articles: %w", err)
	}

	for _, article := range articles {
		var delay time.Duration
		if article.PostAt != nil {
			delay = time.Until(*article.PostAt)
		}
		if delay < 0 {
			delay = 0
		}
		s.Schedule(article.ID, delay)
	}

	if len(articles) > 0 {
		s.log.Info().Int("count", len(articles)).Msg("Re-registered scheduled articles")
	}
	return nil
}

// Schedule enqueues exactly one deferred task for the article. At fire time
// the task re-reads current state through the publish path; if the article
// was deleted or moved away from SCHEDULED meanwhile, it is a no-op.
func (s *PublishScheduler) Schedule(articleID int64, delay time.Duration) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		timer := time.NewTimer(delay)
		defer timer.Stop()

		select {
		case <-s.ctx.Done():
			return
		case <-timer.C:
		}

		// Acquire a worker slot; blocks when all workers are busy
		select {
		case s.sem <- struct{}{}:
		case <-s.ctx.Done():
			return
		}
		defer func() { <-s.sem }()

		// Panic recovery keeps one bad firing from crashing the process
		defer func() {
			if r := recover(); r != nil {
				s.log.Error().
					Interface("panic", r).
					Int64("article_id", articleID).
					Msg("Deferred publish panicked - recovered")
			}
		}()

		s.fire(articleID)
	}()

	s.log.Debug().
		Int64("article_id", articleID).
		Dur("delay", delay).
		Msg("Deferred publish registered")
}

// fire executes one deferred publish
func (s *PublishScheduler) fire(articleID int64) {
	if s.publisher == nil {
		s.log.Error().Int64("article_id", articleID).Msg("No publisher wired; dropping task")
		return
	}
	if err := s.publisher.PublishDue(s.ctx, articleID); err != nil {
		s.log.Error().Err(err).Int64("article_id", articleID).Msg("Deferred publish failed")
		return
	}
	s.log.Info().Int64("article_id", articleID).Msg("Deferred publish fired")
}

// Stop cancels pending timers and waits for in-flight firings to finish
func (s *PublishScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cancel()
	s.wg.Wait()
	s.running = false
	s.log.Info().Msg("Publish scheduler stopped")
}
