package models

import (
	"time"
)

// ArticleStatus is the lifecycle status of an article
type ArticleStatus string

const (
	StatusDraft     ArticleStatus = "DRAFT"
	StatusPost      ArticleStatus = "POST"
	StatusScheduled ArticleStatus = "SCHEDULED"
)

// Valid reports whether the status is one of the known lifecycle states
func (s ArticleStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusPost, StatusScheduled:
		return true
	}
	return false
}

// Article represents a long-form content entry with a lifecycle status
type Article struct {
	ID           int64         `json:"id" db:"id"`
	Alias        string        `json:"alias,omitempty" db:"alias"`
	Title        string        `json:"title" db:"title"`
	Content      string        `json:"content" db:"content"`
	FeatureImage string        `json:"feature_image,omitempty" db:"feature_image"`
	Status       ArticleStatus `json:"status" db:"status"`
	CategoryID   int64         `json:"category_id,omitempty" db:"category_id"`
	Category     *Category     `json:"category,omitempty" db:"-"`
	Tags         []Tag         `json:"tags" db:"-"`
	Hits         int           `json:"hits" db:"hits"`
	AllowComment bool          `json:"allow_comment" db:"allow_comment"`
	Private      bool          `json:"private" db:"is_private"`
	CreateAt     time.Time     `json:"create_at" db:"create_at"`
	ModifyAt     *time.Time    `json:"modify_at,omitempty" db:"modify_at"`
	PostAt       *time.Time    `json:"post_at,omitempty" db:"post_at"`
}

// ArticleSaved reports the outcome of a save operation
type ArticleSaved struct {
	ID     int64 `json:"id"`
	Status bool  `json:"status"`
}

// ArticleNav holds the neighbouring published articles of a given article
type ArticleNav struct {
	Prev *Article `json:"prev,omitempty"`
	Next *Article `json:"next,omitempty"`
}
