package domain

import "context"

// SearchBackend is one external product search service, normalized to the
// canonical ProductRecord shape by its adapter.
type SearchBackend interface {
	Name() string
	Search(ctx context.Context, query *SearchQuery) (*SearchResult, error)
}

// BarcodeClient looks a single product up by its barcode.
type BarcodeClient interface {
	Lookup(ctx context.Context, code string) (*ProductRecord, error)
}

// QueryCache is the short-TTL cache for backend search results, keyed by
// SearchQuery.Key().
type QueryCache interface {
	Get(ctx context.Context, key string) (*SearchResult, error)
	Set(ctx context.Context, key string, result *SearchResult) error
}

// ProductStore is the optional durable barcode→product cache. Misses and
// failures are non-fatal; callers fall back to a live fetch.
type ProductStore interface {
	Get(ctx context.Context, code string) (*ProductRecord, error)
	Put(ctx context.Context, code string, product *ProductRecord) error
	Close() error
}

// RateLimiter gates outbound search calls. Acquire blocks until a token is
// available or ctx is done.
type RateLimiter interface {
	Acquire(ctx context.Context) error
}
