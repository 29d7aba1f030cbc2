package models

import (
	"time"
)

// Tag is a canonical tag row; Name is the natural dedup key (case-sensitive)
type Tag struct {
	ID       int64      `json:"id" db:"id"`
	Name     string     `json:"name" db:"name"`
	CreateAt time.Time  `json:"create_at" db:"create_at"`
	ModifyAt *time.Time `json:"modify_at,omitempty" db:"modify_at"`
}

// ArticleTag is a pure association row between an article and a tag
type ArticleTag struct {
	ArticleID int64 `json:"article_id" db:"article_id"`
	TagID     int64 `json:"tag_id" db:"tag_id"`
}

// Category is referenced, never owned, by Article
type Category struct {
	ID       int64      `json:"id" db:"id"`
	Name     string     `json:"name" db:"name"`
	CreateAt time.Time  `json:"create_at" db:"create_at"`
	ModifyAt *time.Time `json:"modify_at,omitempty" db:"modify_at"`
}
