package models

// ArticleQueryParam carries the caller-facing paging and filter options
type ArticleQueryParam struct {
	Page       int    `json:"page" form:"page"`
	Size       int    `json:"size" form:"size"`
	CategoryID int64  `json:"category_id" form:"category_id"`
	Query      string `json:"query" form:"query"`
}

// Offset returns the row offset for the requested page
func (p *ArticleQueryParam) Offset() int {
	if p.Page < 1 {
		return 0
	}
	return (p.Page - 1) * p.Size
}

// ArticleFilter is the resolved, internal filter set built by the query
// pipeline: visibility statuses, an optional category and an optional
// candidate id set coming from the search index
type ArticleFilter struct {
	Statuses   []ArticleStatus
	CategoryID int64
	IDs        []int64
	Offset     int
	Limit      int
}

// IndexQuery is the filter set handed to the search index
type IndexQuery struct {
	Keyword    string
	Statuses   []ArticleStatus
	CategoryID int64
	Limit      int
}

// ArticlePage is one page of query results plus the unpaged total
type ArticlePage struct {
	Page     int        `json:"page"`
	Size     int        `json:"size"`
	Total    int        `json:"total"`
	Articles []*Article `json:"articles"`
}

// EmptyPage returns a zero-result page for the given query params
func EmptyPage(p *ArticleQueryParam) *ArticlePage {
	return &ArticlePage{Page: p.Page, Size: p.Size, Total: 0, Articles: []*Article{}}
}
