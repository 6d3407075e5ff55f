package usecase

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platewise/resolver/internal/domain"
)

type fakeQueryCache struct {
	mu sync.Mutex
	m  map[string]*domain.SearchResult
}

func newFakeQueryCache() *fakeQueryCache {
	return &fakeQueryCache{m: make(map[string]*domain.SearchResult)}
}

func (c *fakeQueryCache) Get(_ context.Context, key string) (*domain.SearchResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if res, ok := c.m[key]; ok {
		return res, nil
	}
	return nil, domain.ErrCacheMiss
}

func (c *fakeQueryCache) Set(_ context.Context, key string, result *domain.SearchResult) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[key] = result
	return nil
}

type fakeProductStore struct {
	mu   sync.Mutex
	m    map[string]*domain.ProductRecord
	puts int
}

func newFakeProductStore() *fakeProductStore {
	return &fakeProductStore{m: make(map[string]*domain.ProductRecord)}
}

func (s *fakeProductStore) Get(_ context.Context, code string) (*domain.ProductRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.m[code]; ok {
		return p, nil
	}
	return nil, domain.ErrCacheMiss
}

func (s *fakeProductStore) Put(_ context.Context, code string, p *domain.ProductRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[code] = p
	s.puts++
	return nil
}

func (s *fakeProductStore) Close() error { return nil }

type fakeBarcodeClient struct {
	product *domain.ProductRecord
	err     error
	calls   int
}

func (f *fakeBarcodeClient) Lookup(context.Context, string) (*domain.ProductRecord, error) {
	f.calls++
	return f.product, f.err
}

func milkProduct() domain.ProductRecord {
	return domain.ProductRecord{
		Code:             "8480000101234",
		ProductName:      "Leche Entera",
		CategoriesTags:   []string{"en:dairies", "en:milks"},
		DataQualityScore: 0.8,
		Nutriments: map[string]float64{
			"energy-kcal_100g": 64, "proteins_100g": 3.2,
			"fat_100g": 3.6, "carbohydrates_100g": 4.7,
		},
	}
}

type resolverFixture struct {
	resolver *Resolver
	fulltext *fakeBackend
	store    *fakeProductStore
	barcode  *fakeBarcodeClient
}

func newResolverFixture(product domain.ProductRecord) *resolverFixture {
	rules := DefaultRules()
	portions := NewPortionResolver(rules)
	scorer := NewScorer(rules, portions, ScorerConfig{}, nil)

	ft := &fakeBackend{name: "fulltext", result: &domain.SearchResult{
		Products: []domain.ProductRecord{product}, Count: 1, Backend: "fulltext",
	}}
	st := &fakeBackend{name: "structured", result: &domain.SearchResult{Backend: "structured"}}
	lg := &fakeBackend{name: "legacy", result: &domain.SearchResult{Backend: "legacy"}}
	router := NewRouter(ft, st, lg, openLimiter{}, rules, RouterConfig{}, nil)

	store := newFakeProductStore()
	barcode := &fakeBarcodeClient{}
	resolver := NewResolver(router, scorer, portions, rules, newFakeQueryCache(), store, barcode, ResolverConfig{}, nil)
	return &resolverFixture{resolver: resolver, fulltext: ft, store: store, barcode: barcode}
}

func TestResolveOne_SearchHappyPath(t *testing.T) {
	fx := newResolverFixture(milkProduct())

	d := &domain.ItemDescriptor{
		Name:         "leche entera",
		Confidence:   0.9,
		PortionValue: 250,
		PortionUnit:  "ml",
	}
	res := fx.resolver.ResolveOne(context.Background(), d)

	require.True(t, res.Resolved)
	require.NotNil(t, res.Product)
	assert.Equal(t, "8480000101234", res.Product.Code)
	assert.False(t, res.GramsAssumed)
	assert.InDelta(t, 257.5, res.Grams, 0.01)
	assert.Equal(t, 165, res.Nutrients.Kcal)
	assert.InDelta(t, 8.2, res.Nutrients.Protein, 0.001)
	assert.InDelta(t, 0.9, res.Confidence, 0.001)
	assert.Equal(t, "leche entera", res.Canonical)
}

func TestResolveOne_AssumedPortion(t *testing.T) {
	fx := newResolverFixture(milkProduct())

	d := &domain.ItemDescriptor{Name: "leche entera", Confidence: 0.9}
	res := fx.resolver.ResolveOne(context.Background(), d)

	require.True(t, res.Resolved)
	assert.True(t, res.GramsAssumed)
	assert.InDelta(t, 100, res.Grams, 0.001)
	assert.Equal(t, 64, res.Nutrients.Kcal)
}

func TestResolveOne_EmptyDescriptor(t *testing.T) {
	fx := newResolverFixture(milkProduct())

	res := fx.resolver.ResolveOne(context.Background(), &domain.ItemDescriptor{Confidence: 0.9})
	assert.False(t, res.Resolved)
	assert.Equal(t, "empty_query", res.Reason)
	assert.True(t, res.NeedsClarification)
	assert.InDelta(t, 0.45, res.Confidence, 0.001)
	assert.Equal(t, int32(0), fx.fulltext.calls.Load())
}

func TestResolveOne_NoCandidate(t *testing.T) {
	fx := newResolverFixture(milkProduct())
	fx.fulltext.result = &domain.SearchResult{Backend: "fulltext"}

	res := fx.resolver.ResolveOne(context.Background(), &domain.ItemDescriptor{
		Name: "leche entera", Confidence: 0.9,
	})
	assert.False(t, res.Resolved)
	assert.Equal(t, "no_candidate", res.Reason)
}

func TestResolveOne_BarcodeShortcut(t *testing.T) {
	fx := newResolverFixture(milkProduct())
	product := milkProduct()
	fx.barcode.product = &product

	d := &domain.ItemDescriptor{
		Name:       "leche entera",
		Barcode:    "8480000101234",
		Confidence: 0.9,
	}
	res := fx.resolver.ResolveOne(context.Background(), d)

	require.True(t, res.Resolved)
	assert.Equal(t, 1, fx.barcode.calls)
	assert.Equal(t, int32(0), fx.fulltext.calls.Load(), "barcode hit must skip search")
	assert.Equal(t, 1, fx.store.puts, "live lookup is persisted")

	// Second resolution is served from the durable store.
	res = fx.resolver.ResolveOne(context.Background(), d)
	require.True(t, res.Resolved)
	assert.Equal(t, 1, fx.barcode.calls)
}

func TestResolveOne_BarcodeMissFallsBackToSearch(t *testing.T) {
	fx := newResolverFixture(milkProduct())
	fx.barcode.err = domain.ErrNoCandidate

	res := fx.resolver.ResolveOne(context.Background(), &domain.ItemDescriptor{
		Name:       "leche entera",
		Barcode:    "0000000000000",
		Confidence: 0.9,
	})
	require.True(t, res.Resolved)
	assert.Greater(t, fx.fulltext.calls.Load(), int32(0))
}

func TestResolveOne_QueryCacheShortCircuits(t *testing.T) {
	fx := newResolverFixture(milkProduct())
	d := &domain.ItemDescriptor{Name: "leche entera", Confidence: 0.9}

	fx.resolver.ResolveOne(context.Background(), d)
	after := fx.fulltext.calls.Load()

	fx.resolver.ResolveOne(context.Background(), d)
	assert.Equal(t, after, fx.fulltext.calls.Load(), "repeat query must be served from cache")
}

func TestResolveOne_CancelledContext(t *testing.T) {
	fx := newResolverFixture(milkProduct())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := fx.resolver.ResolveOne(ctx, &domain.ItemDescriptor{Name: "leche entera", Confidence: 0.9})
	assert.False(t, res.Resolved)
	assert.Equal(t, "timeout", res.Reason)
}
