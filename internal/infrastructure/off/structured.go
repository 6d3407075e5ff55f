package off

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/platewise/resolver/internal/domain"
	"github.com/platewise/resolver/internal/infrastructure/httpx"
)

// Structured is the tag-filter search backend: it filters directly on
// brand/category tag fields with no relevance ranking. A stage timeout
// surfaces as a distinguishable ErrTimeout so the router can tell it from
// a hard backend failure.
type Structured struct {
	baseURL  string
	http     *httpx.Client
	timeout  time.Duration
	pageSize int
}

// NewStructured creates the structured filter adapter.
func NewStructured(baseURL string, client *httpx.Client, timeout time.Duration, pageSize int) *Structured {
	if pageSize <= 0 {
		pageSize = 20
	}
	return &Structured{baseURL: strings.TrimRight(baseURL, "/"), http: client, timeout: timeout, pageSize: pageSize}
}

func (a *Structured) Name() string { return "structured" }

// Search filters on brand and category tags; the term only narrows results
// further via the generic search parameter.
func (a *Structured) Search(ctx context.Context, query *domain.SearchQuery) (*domain.SearchResult, error) {
	params := url.Values{}
	if query.Brand != "" {
		params.Set("brands_tags", tagSlug(query.Brand))
	}
	if len(query.CategoriesInclude) > 0 {
		params.Set("categories_tags", strings.Join(query.CategoriesInclude, ","))
	}
	if term := strings.TrimSpace(query.Term); term != "" {
		params.Set("search_terms", term)
	}
	if query.Locale != "" {
		params.Set("cc", query.Locale)
	}
	params.Set("page_size", fmt.Sprintf("%d", a.pageSize))
	if query.Page > 1 {
		params.Set("page", fmt.Sprintf("%d", query.Page))
	}
	params.Set("fields", productFields)

	reqURL := fmt.Sprintf("%s/api/v2/search?%s", a.baseURL, params.Encode())

	sctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	body, err := a.http.Get(sctx, reqURL)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(sctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: structured search stage", domain.ErrTimeout)
		}
		return nil, fmt.Errorf("%w: structured: %v", domain.ErrBackendError, err)
	}

	return &domain.SearchResult{
		Products: parseProducts(body, "products"),
		Count:    countEstimate(body),
		Backend:  a.Name(),
	}, nil
}

// tagSlug converts a display brand into the backend's tag form
// ("Central Lechera Asturiana" → "central-lechera-asturiana").
func tagSlug(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		default:
			return '-'
		}
	}, s)
	for strings.Contains(s, "--") {
		s = strings.ReplaceAll(s, "--", "-")
	}
	return strings.Trim(s, "-")
}
