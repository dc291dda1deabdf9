package content

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"

	"github.com/larkspur-bakery/storefront/internal/shared"
)

// renderCacheSize bounds the number of rendered bodies kept in memory.
const renderCacheSize = 256

// Service lists posts and renders their markdown bodies.
type Service struct {
	repo     Repository
	markdown goldmark.Markdown
	rendered *lru.Cache[string, string]
}

// NewService constructs a Service. Raw HTML in post bodies is not rendered.
func NewService(repo Repository) *Service {
	md := goldmark.New(
		goldmark.WithExtensions(extension.GFM, extension.Typographer),
		goldmark.WithParserOptions(parser.WithAutoHeadingID()),
	)
	// lru.New only fails for non-positive sizes.
	rendered, _ := lru.New[string, string](renderCacheSize)
	return &Service{repo: repo, markdown: md, rendered: rendered}
}

const (
	defaultPageSize = 10
	maxPageSize     = 50
)

// List returns a page of published post summaries, newest first.
func (s *Service) List(ctx context.Context, page, limit int) (PostPage, error) {
	if page < 1 {
		page = 1
	}
	switch {
	case limit < 1:
		limit = defaultPageSize
	case limit > maxPageSize:
		limit = maxPageSize
	}
	total, err := s.repo.CountPublished(ctx)
	if err != nil {
		return PostPage{}, err
	}
	items, err := s.repo.ListPublished(ctx, limit, (page-1)*limit)
	if err != nil {
		return PostPage{}, err
	}
	return PostPage{Items: items, Pagination: shared.NewPagination(page, limit, total)}, nil
}

// Get returns a published post with BodyHTML rendered.
func (s *Service) Get(ctx context.Context, slug string) (Post, error) {
	slug = strings.ToLower(strings.TrimSpace(slug))
	if slug == "" {
		return Post{}, ErrNotFound
	}
	post, err := s.repo.GetPublished(ctx, slug)
	if err != nil {
		return Post{}, err
	}
	html, err := s.Render(post.BodyMarkdown)
	if err != nil {
		return Post{}, err
	}
	post.BodyHTML = html
	return post, nil
}

// Render converts markdown to HTML. Results are memoised by body digest,
// so an edited post renders afresh.
func (s *Service) Render(markdown string) (string, error) {
	sum := sha256.Sum256([]byte(markdown))
	key := hex.EncodeToString(sum[:])
	if html, ok := s.rendered.Get(key); ok {
		return html, nil
	}
	var buf bytes.Buffer
	if err := s.markdown.Convert([]byte(markdown), &buf); err != nil {
		return "", fmt.Errorf("content: render markdown: %w", err)
	}
	html := buf.String()
	s.rendered.Add(key, html)
	return html, nil
}

// CachedRenders reports how many rendered bodies are held in memory.
func (s *Service) CachedRenders() int {
	return s.rendered.Len()
}
