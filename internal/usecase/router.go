package usecase

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/platewise/resolver/internal/domain"
)

// RouterConfig holds the routing policy knobs.
type RouterConfig struct {
	// Timeout is the router's own top-level budget, beyond the per-adapter
	// timeouts. When it fires the router returns whatever it has.
	Timeout time.Duration
	// MinLocalHits is the structured-backend hit count below which a local
	// brand query falls back to full-text.
	MinLocalHits int
	// MaxGlobalPages caps pagination depth on global catalogs.
	MaxGlobalPages int
	// PreferredMinHits is the hit count a backend needs for the
	// unknown-brand tie-break to prefer it outright.
	PreferredMinHits int
	// DominanceRatio: when both backends answer, the non-full-text result
	// wins only with more than this many times the hits.
	DominanceRatio float64
}

func (c *RouterConfig) setDefaults() {
	if c.Timeout <= 0 {
		c.Timeout = 4 * time.Second
	}
	if c.MinLocalHits <= 0 {
		c.MinLocalHits = 2
	}
	if c.MaxGlobalPages <= 0 {
		c.MaxGlobalPages = 2
	}
	if c.PreferredMinHits <= 0 {
		c.PreferredMinHits = 3
	}
	if c.DominanceRatio <= 0 {
		c.DominanceRatio = 2
	}
}

// Router classifies the brand context and picks adapter order, concurrency
// and fallbacks under a latency budget. Every adapter call passes through
// the shared rate limiter; every decision emits one telemetry event.
type Router struct {
	fulltext   domain.SearchBackend
	structured domain.SearchBackend
	legacy     domain.SearchBackend
	limiter    domain.RateLimiter
	rules      *Rules
	logger     *zap.Logger
	cfg        RouterConfig
}

// NewRouter wires the three adapters behind the routing policy.
func NewRouter(fulltext, structured, legacy domain.SearchBackend, limiter domain.RateLimiter, rules *Rules, cfg RouterConfig, logger *zap.Logger) *Router {
	cfg.setDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{
		fulltext:   fulltext,
		structured: structured,
		legacy:     legacy,
		limiter:    limiter,
		rules:      rules,
		logger:     logger,
		cfg:        cfg,
	}
}

// Route runs one search attempt through the policy for the query's brand
// class. It always returns a (possibly empty) result rather than hanging
// or surfacing adapter failures; only caller cancellation aborts it.
func (r *Router) Route(ctx context.Context, query *domain.SearchQuery) *domain.SearchResult {
	rctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	class := r.rules.ClassifyBrand(query.Brand)
	start := time.Now()

	var result *domain.SearchResult
	var reason string
	switch class {
	case BrandLocal:
		result, reason = r.routeLocal(rctx, query)
	case BrandGlobal:
		result, reason = r.routeGlobal(rctx, query)
	default:
		result, reason = r.routeUnknown(rctx, query)
	}

	if result == nil {
		result = &domain.SearchResult{}
	}
	r.logger.Info("search routed",
		zap.String("strategy", class.String()),
		zap.String("backend", result.Backend),
		zap.String("fallback_reason", reason),
		zap.Duration("latency", time.Since(start)),
		zap.Int("hits", len(result.Products)),
		zap.Int("count_estimate", result.Count),
	)
	return result
}

// routeLocal: regional catalogs index local brands best, so the structured
// filter backend goes first; full-text only covers for thin or failed
// answers, legacy is the last resort.
func (r *Router) routeLocal(ctx context.Context, query *domain.SearchQuery) (*domain.SearchResult, string) {
	res, err := r.call(ctx, r.structured, query)
	if err == nil && res != nil && len(res.Products) >= r.cfg.MinLocalHits {
		return res, ""
	}

	reason := "structured_thin"
	if err != nil || res == nil {
		reason = "structured_failed"
	}

	fb, fbErr := r.call(ctx, r.fulltext, query)
	if fbErr == nil && fb != nil && len(fb.Products) > hitCount(res) {
		return fb, reason
	}
	if hitCount(res) > 0 {
		return res, ""
	}

	lg, lgErr := r.call(ctx, r.legacy, query)
	if lgErr == nil && hitCount(lg) > 0 {
		return lg, reason + "+fulltext_empty"
	}
	return res, reason
}

// routeGlobal: global catalogs are huge, so full-text relevance ranking
// goes first with capped pagination; legacy covers failures.
func (r *Router) routeGlobal(ctx context.Context, query *domain.SearchQuery) (*domain.SearchResult, string) {
	q := *query
	if q.Page > r.cfg.MaxGlobalPages {
		q.Page = r.cfg.MaxGlobalPages
	}

	res, err := r.call(ctx, r.fulltext, &q)
	if err == nil && hitCount(res) > 0 {
		return res, ""
	}

	fb, fbErr := r.call(ctx, r.legacy, &q)
	if fbErr == nil && hitCount(fb) > 0 {
		return fb, "fulltext_unavailable"
	}
	return res, "fulltext_unavailable"
}

// routeUnknown: with no brand signal, race structured and full-text under
// the shared budget and pick by fixed tie-break: prefer a backend with
// enough hits; when both qualify, prefer full-text unless the other side
// has more than DominanceRatio times the hits.
func (r *Router) routeUnknown(ctx context.Context, query *domain.SearchQuery) (*domain.SearchResult, string) {
	var ftRes, stRes *domain.SearchResult

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		res, err := r.call(gctx, r.fulltext, query)
		if err == nil {
			ftRes = res
		}
		return nil
	})
	g.Go(func() error {
		res, err := r.call(gctx, r.structured, query)
		if err == nil {
			stRes = res
		}
		return nil
	})
	g.Wait()

	ftHits, stHits := hitCount(ftRes), hitCount(stRes)
	switch {
	case ftHits == 0 && stHits == 0:
		return nil, "both_empty"
	case stHits == 0:
		return ftRes, ""
	case ftHits == 0:
		return stRes, "fulltext_empty"
	case ftHits >= r.cfg.PreferredMinHits && float64(stHits) <= r.cfg.DominanceRatio*float64(ftHits):
		return ftRes, ""
	case stHits >= r.cfg.PreferredMinHits:
		return stRes, "structured_dominant"
	case ftHits >= stHits:
		return ftRes, ""
	default:
		return stRes, "structured_dominant"
	}
}

// call gates one adapter call behind the shared rate limiter.
func (r *Router) call(ctx context.Context, backend domain.SearchBackend, query *domain.SearchQuery) (*domain.SearchResult, error) {
	if err := r.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	return backend.Search(ctx, query)
}

func hitCount(res *domain.SearchResult) int {
	if res == nil {
		return 0
	}
	return len(res.Products)
}
