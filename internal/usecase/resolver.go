package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/platewise/resolver/internal/domain"
)

// assumedGrams is applied when the portion expression cannot be resolved;
// the result is flagged as an assumption.
const assumedGrams = 100

// unresolvedConfidenceFactor reduces the upstream confidence on items the
// engine could not ground.
const unresolvedConfidenceFactor = 0.5

// ResolverConfig holds the per-item resolution knobs. All of them are
// hot-swappable via UpdateConfig.
type ResolverConfig struct {
	// StrongBrandScore stops the strategy loop early once some candidate's
	// brand component reaches it.
	StrongBrandScore float64
	// TimeBudget bounds the whole strategy loop for one item.
	TimeBudget time.Duration
	// MaxAttempts caps the generated strategy list.
	MaxAttempts int
}

func (c *ResolverConfig) setDefaults() {
	if c.StrongBrandScore <= 0 {
		c.StrongBrandScore = brandExactBonus
	}
	if c.TimeBudget <= 0 {
		c.TimeBudget = 6 * time.Second
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 6
	}
}

// Resolver grounds one descriptor at a time: barcode shortcut, then the
// strategy loop through the router, then scoring, portion conversion and
// nutrient mapping.
type Resolver struct {
	router     *Router
	scorer     *Scorer
	portions   *PortionResolver
	rules      *Rules
	queryCache domain.QueryCache
	store      domain.ProductStore   // optional
	barcode    domain.BarcodeClient  // optional
	logger     *zap.Logger

	mu  sync.Mutex
	cfg ResolverConfig
}

// NewResolver wires the resolution pipeline. store and barcode may be nil;
// the engine then resolves purely by search.
func NewResolver(
	router *Router,
	scorer *Scorer,
	portions *PortionResolver,
	rules *Rules,
	queryCache domain.QueryCache,
	store domain.ProductStore,
	barcode domain.BarcodeClient,
	cfg ResolverConfig,
	logger *zap.Logger,
) *Resolver {
	cfg.setDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		router:     router,
		scorer:     scorer,
		portions:   portions,
		rules:      rules,
		queryCache: queryCache,
		store:      store,
		barcode:    barcode,
		logger:     logger,
		cfg:        cfg,
	}
}

// UpdateConfig swaps the resolution knobs at runtime.
func (r *Resolver) UpdateConfig(cfg ResolverConfig) {
	cfg.setDefaults()
	r.mu.Lock()
	r.cfg = cfg
	r.mu.Unlock()
}

func (r *Resolver) config() ResolverConfig {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cfg
}

// ResolveOne resolves a single descriptor to a grounded nutrition record,
// or to a typed unresolved result. It never returns an error: backend
// failures and exhausted strategies all land in the result's reason.
func (r *Resolver) ResolveOne(ctx context.Context, d *domain.ItemDescriptor) *domain.ResolutionResult {
	canonical := CanonicalKey(d.SearchName(), d.BrandContext())

	if strings.TrimSpace(d.SearchName()) == "" && strings.TrimSpace(d.Brand) == "" {
		return r.unresolved(d, canonical, domain.ErrEmptyQuery)
	}

	if product := r.byBarcode(ctx, d); product != nil {
		return r.accepted(d, canonical, product, nil)
	}

	candidates, err := r.collectCandidates(ctx, d)
	if err != nil {
		return r.unresolved(d, canonical, err)
	}

	best, err := r.scorer.SelectBest(d, candidates)
	if err != nil {
		return r.unresolved(d, canonical, err)
	}
	return r.accepted(d, canonical, &best.Product, &best.Score)
}

// byBarcode short-circuits resolution when the extractor read a barcode:
// durable cache first, then the live lookup. Store failures are non-fatal.
func (r *Resolver) byBarcode(ctx context.Context, d *domain.ItemDescriptor) *domain.ProductRecord {
	code := strings.TrimSpace(d.Barcode)
	if code == "" {
		return nil
	}

	if r.store != nil {
		if product, err := r.store.Get(ctx, code); err == nil && HasUsableNutrients(product) {
			return product
		}
	}
	if r.barcode == nil {
		return nil
	}

	product, err := r.barcode.Lookup(ctx, code)
	if err != nil || !HasUsableNutrients(product) {
		return nil
	}
	if r.store != nil {
		if err := r.store.Put(ctx, code, product); err != nil {
			r.logger.Warn("product store write failed", zap.String("code", code), zap.Error(err))
		}
	}
	return product
}

// collectCandidates walks the strategy list through the router, deduping
// hits by code, stopping early on a strong brand match or an exhausted
// budget.
func (r *Resolver) collectCandidates(ctx context.Context, d *domain.ItemDescriptor) ([]domain.ProductRecord, error) {
	cfg := r.config()
	deadline := time.Now().Add(cfg.TimeBudget)

	var candidates []domain.ProductRecord
	seen := make(map[string]struct{})
	strong := false

	for _, attempt := range GenerateAttempts(d, cfg.MaxAttempts) {
		if ctx.Err() != nil {
			break
		}
		if time.Now().After(deadline) {
			break
		}
		if strong {
			break
		}

		result := r.search(ctx, d, attempt)
		for _, p := range result.Products {
			key := p.Code
			if key == "" {
				key = Normalize(p.ProductName)
			}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			candidates = append(candidates, p)

			if r.scorer.Score(d, &p).Brand >= cfg.StrongBrandScore {
				strong = true
			}
		}
	}

	if len(candidates) == 0 {
		if ctx.Err() != nil {
			return nil, domain.ErrTimeout
		}
		return nil, domain.ErrNoCandidate
	}
	return candidates, nil
}

// search runs one attempt, going through the short-TTL cache around the
// router.
func (r *Resolver) search(ctx context.Context, d *domain.ItemDescriptor, attempt Attempt) *domain.SearchResult {
	query := &domain.SearchQuery{
		Term:          attempt.Term,
		Brand:         attempt.Brand,
		VariantTokens: d.RequiredTokens,
		Locale:        d.Locale,
	}
	if hint, ok := r.rules.CategoryTagHints[strings.ToLower(d.CanonicalCategory)]; ok {
		query.CategoriesInclude = []string{hint}
	}

	key := query.Key()
	if r.queryCache != nil {
		if cached, err := r.queryCache.Get(ctx, key); err == nil {
			return cached
		}
	}

	result := r.router.Route(ctx, query)
	if r.queryCache != nil && len(result.Products) > 0 {
		if err := r.queryCache.Set(ctx, key, result); err != nil {
			r.logger.Warn("query cache write failed", zap.Error(err))
		}
	}
	return result
}

// accepted builds the resolved result, scaling the product's per-100g
// profile to the item's own portion.
func (r *Resolver) accepted(d *domain.ItemDescriptor, canonical string, product *domain.ProductRecord, score *domain.CandidateScore) *domain.ResolutionResult {
	grams, ok := r.portions.ToGrams(d.PortionValue, d.PortionUnit, d.Name, d.CanonicalCategory)
	assumed := !ok
	if assumed {
		grams = assumedGrams
	}

	per100, usable := PerHundred(product)
	if !usable {
		return r.unresolved(d, canonical, domain.ErrNoUsefulNutrients)
	}
	nutrients := ScaleToPortion(per100, grams)

	return &domain.ResolutionResult{
		Item:         *d,
		Resolved:     true,
		Product:      product,
		Score:        score,
		Grams:        grams,
		GramsAssumed: assumed,
		Nutrients:    &nutrients,
		Canonical:    canonical,
		Confidence:   d.Confidence,
	}
}

func (r *Resolver) unresolved(d *domain.ItemDescriptor, canonical string, err error) *domain.ResolutionResult {
	if ctxErr := contextError(err); ctxErr != nil {
		err = ctxErr
	}
	return &domain.ResolutionResult{
		Item:               *d,
		Resolved:           false,
		Reason:             domain.UnresolvedReason(err),
		Canonical:          canonical,
		Confidence:         d.Confidence * unresolvedConfidenceFactor,
		NeedsClarification: true,
	}
}

// contextError folds context cancellation into the timeout reason.
func contextError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return domain.ErrTimeout
	}
	return nil
}
