package search

import (
	"context"
	"testing"

	"github.com/content-lifecycle-api/internal/models"
	"github.com/rs/zerolog"
)

func openTestIndex(t *testing.T) *Index {
	t.Helper()
	idx, err := Open(":memory:", zerolog.Nop())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { idx.Close() })
	return idx
}

func addArticle(t *testing.T, idx *Index, article *models.Article) {
	t.Helper()
	if err := idx.AddOrUpdate(context.Background(), article); err != nil {
		t.Fatalf("AddOrUpdate failed: %v", err)
	}
}

func TestIndex_SearchMatchesTitleContentAndTags(t *testing.T) {
	idx := openTestIndex(t)
	ctx := context.Background()

	addArticle(t, idx, &models.Article{ID: 1, Title: "Profiling Go services", Content: "pprof walkthrough", Status: models.StatusPost})
	addArticle(t, idx, &models.Article{ID: 2, Title: "Sourdough notes", Content: "starter feeding schedule", Status: models.StatusPost})
	addArticle(t, idx, &models.Article{ID: 3, Title: "Release log", Content: "misc", Status: models.StatusPost,
		Tags: []models.Tag{{Name: "golang"}, {Name: "tooling"}}})

	cases := []struct {
		name    string
		keyword string
		want    map[int64]bool
	}{
		{"title match", "profiling", map[int64]bool{1: true}},
		{"content match", "sourdough OR starter", map[int64]bool{2: true}},
		{"tag match", "tooling", map[int64]bool{3: true}},
		{"no match", "kubernetes", map[int64]bool{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ids, err := idx.Search(ctx, &models.IndexQuery{Keyword: tc.keyword})
			if err != nil {
				t.Fatalf("Search failed: %v", err)
			}
			if len(ids) != len(tc.want) {
				t.Fatalf("Expected %d matches, got %v", len(tc.want), ids)
			}
			for _, id := range ids {
				if !tc.want[id] {
					t.Errorf("Unexpected match %d", id)
				}
			}
		})
	}
}

func TestIndex_SearchRanksBetterMatchesFirst(t *testing.T) {
	idx := openTestIndex(t)
	ctx := context.Background()

	addArticle(t, idx, &models.Article{ID: 1, Title: "Databases", Content: "a single mention of indexing", Status: models.StatusPost})
	addArticle(t, idx, &models.Article{ID: 2, Title: "Indexing deep dive", Content: "indexing indexing indexing", Status: models.StatusPost})

	ids, err := idx.Search(ctx, &models.IndexQuery{Keyword: "indexing"})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(ids) != 2 || ids[0] != 2 {
		t.Errorf("Expected the denser match first, got %v", ids)
	}
}

func TestIndex_SearchFilters(t *testing.T) {
	idx := openTestIndex(t)
	ctx := context.Background()

	addArticle(t, idx, &models.Article{ID: 1, Title: "shipping v1", Status: models.StatusPost, CategoryID: 10})
	addArticle(t, idx, &models.Article{ID: 2, Title: "shipping v2 draft", Status: models.StatusDraft, CategoryID: 10})
	addArticle(t, idx, &models.Article{ID: 3, Title: "shipping elsewhere", Status: models.StatusPost, CategoryID: 20})

	posted, err := idx.Search(ctx, &models.IndexQuery{Keyword: "shipping", Statuses: []models.ArticleStatus{models.StatusPost}})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(posted) != 2 {
		t.Errorf("Expected 2 published matches, got %v", posted)
	}

	inCategory, err := idx.Search(ctx, &models.IndexQuery{
		Keyword:    "shipping",
		Statuses:   []models.ArticleStatus{models.StatusPost},
		CategoryID: 10,
	})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(inCategory) != 1 || inCategory[0] != 1 {
		t.Errorf("Expected only article 1, got %v", inCategory)
	}

	limited, err := idx.Search(ctx, &models.IndexQuery{Keyword: "shipping", Limit: 1})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(limited) != 1 {
		t.Errorf("Expected the limit to apply, got %v", limited)
	}
}

func TestIndex_AddOrUpdateReplacesEntry(t *testing.T) {
	idx := openTestIndex(t)
	ctx := context.Background()

	addArticle(t, idx, &models.Article{ID: 1, Title: "before rename", Status: models.StatusPost})
	addArticle(t, idx, &models.Article{ID: 1, Title: "after rename", Status: models.StatusPost})

	ids, err := idx.Search(ctx, &models.IndexQuery{Keyword: "rename"})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(ids) != 1 {
		t.Errorf("Expected a single entry after re-add, got %v", ids)
	}

	stale, err := idx.Search(ctx, &models.IndexQuery{Keyword: "before"})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(stale) != 0 {
		t.Errorf("Expected the old entry gone, got %v", stale)
	}
}

func TestIndex_RemoveIsIdempotent(t *testing.T) {
	idx := openTestIndex(t)
	ctx := context.Background()

	addArticle(t, idx, &models.Article{ID: 1, Title: "temporary", Status: models.StatusPost})

	if err := idx.Remove(ctx, 1); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if err := idx.Remove(ctx, 1); err != nil {
		t.Errorf("Removing an absent entry must not fail: %v", err)
	}

	ids, err := idx.Search(ctx, &models.IndexQuery{Keyword: "temporary"})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(ids) != 0 {
		t.Errorf("Expected no matches after removal, got %v", ids)
	}
}

func TestIndex_BadQuerySurfacesIndexError(t *testing.T) {
	idx := openTestIndex(t)

	_, err := idx.Search(context.Background(), &models.IndexQuery{Keyword: `"unterminated`})
	if err == nil {
		t.Fatal("Expected a query parse failure")
	}
	if !models.IsIndexError(err) {
		t.Errorf("Expected an IndexError, got %T: %v", err, err)
	}
}

func TestIndex_RebuildReplacesEverything(t *testing.T) {
	idx := openTestIndex(t)
	ctx := context.Background()

	addArticle(t, idx, &models.Article{ID: 1, Title: "stale entry", Status: models.StatusPost})

	fresh := []*models.Article{
		{ID: 2, Title: "fresh two", Status: models.StatusPost},
		{ID: 3, Title: "fresh three", Status: models.StatusPost},
	}
	count, err := idx.Rebuild(ctx, func(ctx context.Context, callback func(*models.Article) error) error {
		for _, article := range fresh {
			if err := callback(article); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Rebuild failed: %v", err)
	}
	if count != 2 {
		t.Errorf("Expected 2 indexed entries, got %d", count)
	}

	stale, err := idx.Search(ctx, &models.IndexQuery{Keyword: "stale"})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(stale) != 0 {
		t.Errorf("Expected the stale entry wiped, got %v", stale)
	}
	ids, err := idx.Search(ctx, &models.IndexQuery{Keyword: "fresh"})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(ids) != 2 {
		t.Errorf("Expected both fresh entries, got %v", ids)
	}
}
