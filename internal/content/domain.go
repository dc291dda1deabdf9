// Package content serves the bakery blog.
package content

import (
	"errors"
	"time"

	"github.com/larkspur-bakery/storefront/internal/shared"
)

// ErrNotFound indicates the post does not exist or is unpublished.
var ErrNotFound = errors.New("post not found")

// Post is a blog entry authored in markdown.
type Post struct {
	ID           int64     `json:"id"`
	Slug         string    `json:"slug"`
	Title        string    `json:"title"`
	Excerpt      string    `json:"excerpt"`
	BodyMarkdown string    `json:"-"`
	BodyHTML     string    `json:"body_html,omitempty"`
	PublishedAt  time.Time `json:"published_at"`
	IsPublished  bool      `json:"-"`
}

// PostPage is a page of published post summaries.
type PostPage struct {
	Items []Post `json:"items"`
	shared.Pagination
}
