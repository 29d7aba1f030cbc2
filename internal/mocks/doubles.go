package mocks

import (
	"context"
	"sync"

	"github.com/content-lifecycle-api/internal/database"
	"github.com/content-lifecycle-api/internal/models"
)

// MockTxRunner simulates the transaction boundary: the function runs
// directly, and the post-commit hooks queued through database.OnCommit fire
// only when it succeeds
type MockTxRunner struct {
	mu        sync.Mutex
	Commits   int
	Rollbacks int
}

func (m *MockTxRunner) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	ctx, hooks := database.ContextWithHooks(ctx)
	if err := fn(ctx); err != nil {
		m.mu.Lock()
		m.Rollbacks++
		m.mu.Unlock()
		return err
	}
	m.mu.Lock()
	m.Commits++
	m.mu.Unlock()
	hooks.Run()
	return nil
}

// MockSearchIndex is an in-memory stand-in for the FTS index
type MockSearchIndex struct {
	mu      sync.Mutex
	Entries map[int64]*models.Article

	SearchIDs []int64
	SearchErr error
	AddErr    error
	RemoveErr error

	AddCalls    int
	RemoveCalls int
	SearchCalls int
}

func NewMockSearchIndex() *MockSearchIndex {
	return &MockSearchIndex{Entries: make(map[int64]*models.Article)}
}

func (m *MockSearchIndex) AddOrUpdate(ctx context.Context, article *models.Article) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.AddCalls++
	if m.AddErr != nil {
		return m.AddErr
	}
	clone := *article
	m.Entries[article.ID] = &clone
	return nil
}

func (m *MockSearchIndex) Remove(ctx context.Context, articleID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RemoveCalls++
	if m.RemoveErr != nil {
		return m.RemoveErr
	}
	delete(m.Entries, articleID)
	return nil
}

func (m *MockSearchIndex) Search(ctx context.Context, q *models.IndexQuery) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SearchCalls++
	if m.SearchErr != nil {
		return nil, m.SearchErr
	}
	return m.SearchIDs, nil
}

func (m *MockSearchIndex) Rebuild(ctx context.Context, stream func(ctx context.Context, callback func(*models.Article) error) error) (int, error) {
	m.mu.Lock()
	m.Entries = make(map[int64]*models.Article)
	m.mu.Unlock()

	indexed := 0
	err := stream(ctx, func(article *models.Article) error {
		if err := m.AddOrUpdate(ctx, article); err != nil {
			return err
		}
		indexed++
		return nil
	})
	return indexed, err
}

// Has reports whether the index holds an entry for the article
func (m *MockSearchIndex) Has(articleID int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.Entries[articleID]
	return ok
}

// CaptureSink records every event it receives
type CaptureSink struct {
	mu           sync.Mutex
	Published    []*models.Article
	Deleted      []*models.Article
	BatchDeleted [][]*models.Article
}

func (s *CaptureSink) ArticlePublished(article *models.Article) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Published = append(s.Published, article)
}

func (s *CaptureSink) ArticleDeleted(article *models.Article) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Deleted = append(s.Deleted, article)
}

func (s *CaptureSink) ArticlesDeleted(articles []*models.Article) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.BatchDeleted = append(s.BatchDeleted, articles)
}

// PublishedCount returns the number of published events seen
func (s *CaptureSink) PublishedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Published)
}
