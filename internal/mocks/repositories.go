package mocks

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/content-lifecycle-api/internal/models"
	"github.com/content-lifecycle-api/internal/repository"
)

// MockArticleRepository is an in-memory implementation of ArticleRepository
type MockArticleRepository struct {
	mu       sync.Mutex
	Articles map[int64]*models.Article
	nextID   int64

	InsertError   error
	UpdateError   error
	CountCalls    int
	FindPageCalls int
	UpdateCalls   int
}

func NewMockArticleRepository() *MockArticleRepository {
	return &MockArticleRepository{Articles: make(map[int64]*models.Article)}
}

func copyArticle(a *models.Article) *models.Article {
	if a == nil {
		return nil
	}
	clone := *a
	return &clone
}

func (m *MockArticleRepository) Insert(ctx context.Context, article *models.Article) error {
	if m.InsertError != nil {
		return m.InsertError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	article.ID = m.nextID
	m.Articles[article.ID] = copyArticle(article)
	return nil
}

func (m *MockArticleRepository) Update(ctx context.Context, article *models.Article) error {
	if m.UpdateError != nil {
		return m.UpdateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.UpdateCalls++
	m.Articles[article.ID] = copyArticle(article)
	return nil
}

func (m *MockArticleRepository) FindByID(ctx context.Context, id int64) (*models.Article, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return copyArticle(m.Articles[id]), nil
}

func (m *MockArticleRepository) FindByAlias(ctx context.Context, alias string) (*models.Article, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, article := range m.Articles {
		if article.Alias == alias {
			return copyArticle(article), nil
		}
	}
	return nil, nil
}

func (m *MockArticleRepository) FindByIDs(ctx context.Context, ids []int64) ([]*models.Article, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*models.Article
	for _, id := range ids {
		if article, ok := m.Articles[id]; ok {
			result = append(result, copyArticle(article))
		}
	}
	return result, nil
}

func (m *MockArticleRepository) Delete(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.Articles, id)
	return nil
}

func (m *MockArticleRepository) matches(article *models.Article, filter *models.ArticleFilter) bool {
	if len(filter.Statuses) > 0 {
		ok := false
		for _, status := range filter.Statuses {
			if article.Status == status {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	if filter.CategoryID > 0 && article.CategoryID != filter.CategoryID {
		return false
	}
	if filter.IDs != nil {
		ok := false
		for _, id := range filter.IDs {
			if article.ID == id {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	return true
}

func (m *MockArticleRepository) filtered(filter *models.ArticleFilter) []*models.Article {
	var result []*models.Article
	for _, article := range m.Articles {
		if m.matches(article, filter) {
			result = append(result, copyArticle(article))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		a, b := result[i], result[j]
		switch {
		case a.PostAt == nil && b.PostAt == nil:
			return a.ID > b.ID
		case a.PostAt == nil:
			return false
		case b.PostAt == nil:
			return true
		case a.PostAt.Equal(*b.PostAt):
			return a.ID > b.ID
		default:
			return a.PostAt.After(*b.PostAt)
		}
	})
	return result
}

func (m *MockArticleRepository) Count(ctx context.Context, filter *models.ArticleFilter) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CountCalls++
	return len(m.filtered(filter)), nil
}

func (m *MockArticleRepository) FindPage(ctx context.Context, filter *models.ArticleFilter) ([]*models.Article, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.FindPageCalls++
	result := m.filtered(filter)
	if filter.Offset >= len(result) {
		return nil, nil
	}
	result = result[filter.Offset:]
	if filter.Limit > 0 && filter.Limit < len(result) {
		result = result[:filter.Limit]
	}
	return result, nil
}

func (m *MockArticleRepository) FindPrev(ctx context.Context, id int64) (*models.Article, error) {
	posted := m.postedTimeline()
	for i, article := range posted {
		if article.ID == id && i > 0 {
			return posted[i-1], nil
		}
	}
	return nil, nil
}

func (m *MockArticleRepository) FindNext(ctx context.Context, id int64) (*models.Article, error) {
	posted := m.postedTimeline()
	for i, article := range posted {
		if article.ID == id && i < len(posted)-1 {
			return posted[i+1], nil
		}
	}
	return nil, nil
}

// postedTimeline returns published articles oldest first
func (m *MockArticleRepository) postedTimeline() []*models.Article {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := m.filtered(&models.ArticleFilter{Statuses: []models.ArticleStatus{models.StatusPost}})
	for i, j := 0, len(result)-1; i < j; i, j = i+1, j-1 {
		result[i], result[j] = result[j], result[i]
	}
	return result
}

func (m *MockArticleRepository) UpdateHits(ctx context.Context, id int64, hits int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if article, ok := m.Articles[id]; ok {
		article.Hits = hits
	}
	return nil
}

func (m *MockArticleRepository) FindScheduled(ctx context.Context) ([]*models.Article, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*models.Article
	for _, article := range m.Articles {
		if article.Status == models.StatusScheduled {
			result = append(result, copyArticle(article))
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *MockArticleRepository) StreamPosted(ctx context.Context, callback func(*models.Article) error) error {
	m.mu.Lock()
	var posted []*models.Article
	for _, article := range m.Articles {
		if article.Status == models.StatusPost {
			posted = append(posted, copyArticle(article))
		}
	}
	m.mu.Unlock()
	sort.Slice(posted, func(i, j int) bool { return posted[i].ID < posted[j].ID })
	for _, article := range posted {
		if err := callback(article); err != nil {
			return err
		}
	}
	return nil
}

// Seed inserts an article with a fixed id, bypassing the insert path
func (m *MockArticleRepository) Seed(article *models.Article) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if article.ID == 0 {
		m.nextID++
		article.ID = m.nextID
	} else if article.ID > m.nextID {
		m.nextID = article.ID
	}
	m.Articles[article.ID] = copyArticle(article)
}

// MockTagRepository is an in-memory implementation of TagRepository
type MockTagRepository struct {
	mu     sync.Mutex
	Tags   map[int64]*models.Tag
	nextID int64

	// DuplicateOnInsert simulates losing the creation race for the named
	// tags: Insert fails with ErrDuplicateTag and the winner's row appears
	DuplicateOnInsert map[string]bool

	InsertCalls int
}

func NewMockTagRepository() *MockTagRepository {
	return &MockTagRepository{Tags: make(map[int64]*models.Tag)}
}

func (m *MockTagRepository) Insert(ctx context.Context, tag *models.Tag) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.InsertCalls++
	if m.DuplicateOnInsert[tag.Name] {
		delete(m.DuplicateOnInsert, tag.Name)
		m.nextID++
		winner := &models.Tag{ID: m.nextID, Name: tag.Name, CreateAt: time.Now()}
		m.Tags[winner.ID] = winner
		return repository.ErrDuplicateTag
	}
	for _, existing := range m.Tags {
		if existing.Name == tag.Name {
			return repository.ErrDuplicateTag
		}
	}
	m.nextID++
	tag.ID = m.nextID
	clone := *tag
	m.Tags[tag.ID] = &clone
	return nil
}

func (m *MockTagRepository) FindByID(ctx context.Context, id int64) (*models.Tag, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if tag, ok := m.Tags[id]; ok {
		clone := *tag
		return &clone, nil
	}
	return nil, nil
}

func (m *MockTagRepository) FindByName(ctx context.Context, name string) (*models.Tag, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, tag := range m.Tags {
		if tag.Name == name {
			clone := *tag
			return &clone, nil
		}
	}
	return nil, nil
}

// MockArticleTagRepository is an in-memory ArticleTagRepository
type MockArticleTagRepository struct {
	mu           sync.Mutex
	Associations map[int64][]models.ArticleTag

	DeleteCalls      int
	BatchInsertCalls int
	BatchInsertError error
}

func NewMockArticleTagRepository() *MockArticleTagRepository {
	return &MockArticleTagRepository{Associations: make(map[int64][]models.ArticleTag)}
}

func (m *MockArticleTagRepository) DeleteByArticle(ctx context.Context, articleID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DeleteCalls++
	delete(m.Associations, articleID)
	return nil
}

func (m *MockArticleTagRepository) BatchInsert(ctx context.Context, rows []models.ArticleTag) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.BatchInsertCalls++
	if m.BatchInsertError != nil {
		return m.BatchInsertError
	}
	for _, row := range rows {
		m.Associations[row.ArticleID] = append(m.Associations[row.ArticleID], row)
	}
	return nil
}

func (m *MockArticleTagRepository) FindByArticle(ctx context.Context, articleID int64) ([]models.ArticleTag, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.ArticleTag(nil), m.Associations[articleID]...), nil
}

// MockCategoryRepository is an in-memory CategoryRepository
type MockCategoryRepository struct {
	Categories map[int64]*models.Category
	FindCalls  int
}

func NewMockCategoryRepository() *MockCategoryRepository {
	return &MockCategoryRepository{Categories: make(map[int64]*models.Category)}
}

func (m *MockCategoryRepository) FindByID(ctx context.Context, id int64) (*models.Category, error) {
	m.FindCalls++
	return m.Categories[id], nil
}
