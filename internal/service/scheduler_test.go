package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/content-lifecycle-api/internal/config"
	"github.com/content-lifecycle-api/internal/mocks"
	"github.com/content-lifecycle-api/internal/models"
	"github.com/content-lifecycle-api/internal/render"
	"github.com/content-lifecycle-api/internal/repository"
	"github.com/content-lifecycle-api/internal/service"
	"github.com/rs/zerolog"
)

func TestScheduler_RecoverySweepRepublishesPending(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	// one past-due task lost to a restart, one still in the future
	h.articles.Seed(&models.Article{ID: 1, Title: "Overdue", Status: models.StatusScheduled, PostAt: ptrTime(time.Now().Add(-time.Minute))})
	h.articles.Seed(&models.Article{ID: 2, Title: "Soon", Status: models.StatusScheduled, PostAt: ptrTime(time.Now().Add(60 * time.Millisecond))})

	if err := h.services.Scheduler.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	published := func(id int64) func() bool {
		return func() bool {
			article, _ := h.articles.FindByID(ctx, id)
			return article != nil && article.Status == models.StatusPost
		}
	}
	if !waitFor(t, 3*time.Second, published(1)) {
		t.Error("Expected the past-due article to publish immediately after the sweep")
	}
	if !waitFor(t, 3*time.Second, published(2)) {
		t.Error("Expected the future article to publish at its scheduled time")
	}
	if !waitFor(t, time.Second, func() bool { return h.sink.PublishedCount() == 2 }) {
		t.Errorf("Expected 2 published events, got %d", h.sink.PublishedCount())
	}
}

func TestScheduler_SweepDisabledDropsPendingTasks(t *testing.T) {
	runner := &mocks.MockTxRunner{}
	articles := mocks.NewMockArticleRepository()
	repos := &repository.Repositories{
		Article:    articles,
		Tag:        mocks.NewMockTagRepository(),
		ArticleTag: mocks.NewMockArticleTagRepository(),
		Category:   mocks.NewMockCategoryRepository(),
	}
	cfg := &config.Config{Publish: config.PublishConfig{MaxTagsPerArticle: 5, Workers: 2, RecoverySweep: false}}
	services := service.NewServices(runner, repos, mocks.NewMockSearchIndex(), render.New(), nil, cfg, zerolog.Nop())
	defer services.Scheduler.Stop()

	ctx := context.Background()
	articles.Seed(&models.Article{ID: 1, Title: "Lost", Status: models.StatusScheduled, PostAt: ptrTime(time.Now().Add(-time.Minute))})

	if err := services.Scheduler.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	time.Sleep(150 * time.Millisecond)

	article, _ := articles.FindByID(ctx, 1)
	if article.Status != models.StatusScheduled {
		t.Errorf("Expected the article to stay SCHEDULED with the sweep disabled, got %s", article.Status)
	}
}

func TestScheduler_StopCancelsPendingTimers(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.articles.Seed(&models.Article{ID: 1, Title: "Far out", Status: models.StatusScheduled, PostAt: ptrTime(time.Now().Add(time.Hour))})
	h.services.Scheduler.Schedule(1, time.Hour)

	done := make(chan struct{})
	go func() {
		h.services.Scheduler.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return; pending timer was not cancelled")
	}

	article, _ := h.articles.FindByID(ctx, 1)
	if article.Status != models.StatusScheduled {
		t.Errorf("Expected no publish after Stop, got %s", article.Status)
	}
}

func TestScheduler_StaleTaskIsNoop(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	// the article moved to POST by hand before the timer fired
	postAt := time.Now().Add(-time.Hour)
	h.articles.Seed(&models.Article{ID: 1, Title: "Already live", Status: models.StatusPost, PostAt: ptrTime(postAt)})

	h.services.Scheduler.Schedule(1, time.Millisecond)
	time.Sleep(150 * time.Millisecond)

	article, _ := h.articles.FindByID(ctx, 1)
	if article.PostAt == nil || !article.PostAt.Equal(postAt) {
		t.Errorf("Stale task must not rewrite postAt, got %v", article.PostAt)
	}
	if h.articles.UpdateCalls != 0 {
		t.Errorf("Stale task must not write, got %d updates", h.articles.UpdateCalls)
	}
	if h.sink.PublishedCount() != 0 {
		t.Error("Stale task must not emit a published event")
	}
}

func TestScheduler_NotYetDueTaskIsNoop(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	// a task firing early, before the stored postAt, leaves the row alone
	h.articles.Seed(&models.Article{ID: 1, Title: "Early", Status: models.StatusScheduled, PostAt: ptrTime(time.Now().Add(time.Hour))})

	h.services.Scheduler.Schedule(1, time.Millisecond)
	time.Sleep(150 * time.Millisecond)

	article, _ := h.articles.FindByID(ctx, 1)
	if article.Status != models.StatusScheduled {
		t.Errorf("Expected the article to stay SCHEDULED, got %s", article.Status)
	}
}

func TestScheduler_StartTwiceIsHarmless(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	if err := h.services.Scheduler.Start(ctx); err != nil {
		t.Fatalf("First Start failed: %v", err)
	}
	if err := h.services.Scheduler.Start(ctx); err != nil {
		t.Fatalf("Second Start failed: %v", err)
	}
}
