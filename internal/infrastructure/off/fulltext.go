package off

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/platewise/resolver/internal/domain"
	"github.com/platewise/resolver/internal/infrastructure/httpx"
)

// productFields is requested from every backend so responses stay small and
// shaped alike.
const productFields = "code,product_name,product_name_en,generic_name,brands,brands_tags," +
	"categories_tags,labels_tags,countries_tags,nutriments,quantity,serving_size,completeness"

// FullText is the relevance-ranked search backend. It gives the best
// ranking but is flaky under load, so it runs with a short strict timeout
// and converts 5xx and timeouts into "no answer" (nil result, nil error).
// The router treats that as a signal to fall back, never as a hard failure.
type FullText struct {
	baseURL  string
	http     *httpx.Client
	timeout  time.Duration
	pageSize int
}

// NewFullText creates the full-text adapter.
func NewFullText(baseURL string, client *httpx.Client, timeout time.Duration, pageSize int) *FullText {
	if pageSize <= 0 {
		pageSize = 20
	}
	return &FullText{baseURL: strings.TrimRight(baseURL, "/"), http: client, timeout: timeout, pageSize: pageSize}
}

func (a *FullText) Name() string { return "fulltext" }

// Search runs a constructed relevance query with weighted brand and variant
// clauses and phrase boosting on the term.
func (a *FullText) Search(ctx context.Context, query *domain.SearchQuery) (*domain.SearchResult, error) {
	params := url.Values{}
	params.Set("q", buildRelevanceQuery(query))
	params.Set("page_size", fmt.Sprintf("%d", a.pageSize))
	if query.Page > 1 {
		params.Set("page", fmt.Sprintf("%d", query.Page))
	}
	if query.Locale != "" {
		params.Set("langs", query.Locale)
	}
	params.Set("fields", productFields)

	reqURL := fmt.Sprintf("%s/api/v3/search?%s", a.baseURL, params.Encode())

	sctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	body, err := a.http.Get(sctx, reqURL)
	if err != nil {
		// Caller cancellation still propagates.
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		var statusErr *httpx.StatusError
		if errors.As(err, &statusErr) && !statusErr.Retryable() {
			return nil, fmt.Errorf("%w: fulltext: %v", domain.ErrBackendError, err)
		}
		// 5xx, 429 exhaustion or stage timeout: no answer, let the router fall back.
		return nil, nil
	}

	return &domain.SearchResult{
		Products: parseProducts(body, "products"),
		Count:    countEstimate(body),
		Backend:  a.Name(),
	}, nil
}

// buildRelevanceQuery weights the brand clause highest, boosts the exact
// term phrase over its loose tokens, and appends variant tokens.
func buildRelevanceQuery(query *domain.SearchQuery) string {
	var clauses []string
	term := strings.TrimSpace(query.Term)
	if term != "" {
		if strings.Contains(term, " ") {
			clauses = append(clauses, fmt.Sprintf("%q^2", term))
		}
		clauses = append(clauses, term)
	}
	if brand := strings.TrimSpace(query.Brand); brand != "" {
		clauses = append(clauses, fmt.Sprintf("brands:%q^3", brand))
	}
	for _, tok := range query.VariantTokens {
		if tok = strings.TrimSpace(tok); tok != "" {
			clauses = append(clauses, tok)
		}
	}
	return strings.Join(clauses, " ")
}

func countEstimate(body []byte) int {
	if v := gjson.GetBytes(body, "count"); v.Exists() {
		return int(v.Int())
	}
	return int(gjson.GetBytes(body, "total").Int())
}
