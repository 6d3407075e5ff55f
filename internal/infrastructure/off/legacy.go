package off

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/platewise/resolver/internal/domain"
	"github.com/platewise/resolver/internal/infrastructure/httpx"
)

// Legacy is the old CGI keyword search: tolerant substring matching with
// tag filters and pagination. Weakest precision but highest availability,
// so the router uses it as the last resort.
type Legacy struct {
	baseURL  string
	http     *httpx.Client
	timeout  time.Duration
	pageSize int
}

// NewLegacy creates the legacy keyword adapter.
func NewLegacy(baseURL string, client *httpx.Client, timeout time.Duration, pageSize int) *Legacy {
	if pageSize <= 0 {
		pageSize = 24
	}
	return &Legacy{baseURL: strings.TrimRight(baseURL, "/"), http: client, timeout: timeout, pageSize: pageSize}
}

func (a *Legacy) Name() string { return "legacy" }

func (a *Legacy) Search(ctx context.Context, query *domain.SearchQuery) (*domain.SearchResult, error) {
	params := url.Values{}
	params.Set("action", "process")
	params.Set("json", "1")
	params.Set("search_simple", "1")
	params.Set("search_terms", strings.TrimSpace(query.Term))
	params.Set("page_size", strconv.Itoa(a.pageSize))
	if query.Page > 1 {
		params.Set("page", strconv.Itoa(query.Page))
	}
	params.Set("fields", productFields)

	tag := 0
	if query.Brand != "" {
		addTagFilter(params, &tag, "brands", "contains", tagSlug(query.Brand))
	}
	for _, cat := range query.CategoriesInclude {
		addTagFilter(params, &tag, "categories", "contains", cat)
	}
	for _, cat := range query.CategoriesExclude {
		addTagFilter(params, &tag, "categories", "does_not_contain", cat)
	}

	reqURL := fmt.Sprintf("%s/cgi/search.pl?%s", a.baseURL, params.Encode())

	sctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	body, err := a.http.Get(sctx, reqURL)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: legacy: %v", domain.ErrBackendError, err)
	}

	return &domain.SearchResult{
		Products: parseProducts(body, "products"),
		Count:    countEstimate(body),
		Backend:  a.Name(),
	}, nil
}

func addTagFilter(params url.Values, i *int, tagType, mode, value string) {
	params.Set(fmt.Sprintf("tagtype_%d", *i), tagType)
	params.Set(fmt.Sprintf("tag_contains_%d", *i), mode)
	params.Set(fmt.Sprintf("tag_%d", *i), value)
	*i++
}
