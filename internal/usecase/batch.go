package usecase

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/platewise/resolver/internal/domain"
)

// BatchConfig bounds one user turn.
type BatchConfig struct {
	// MaxItems caps how many descriptors one turn may carry; extras are
	// dropped with a typed reason.
	MaxItems int
	// MinConfidence excludes low-confidence extractions before any backend
	// is contacted.
	MinConfidence float64
	// Workers bounds resolution concurrency across groups.
	Workers int
	// BatchTimeout is the global budget for the whole turn.
	BatchTimeout time.Duration
	// GroupTimeout bounds each deduplicated group's resolution.
	GroupTimeout time.Duration
}

func (c *BatchConfig) setDefaults() {
	if c.MaxItems <= 0 {
		c.MaxItems = 10
	}
	if c.MinConfidence <= 0 {
		c.MinConfidence = 0.2
	}
	if c.Workers <= 0 {
		c.Workers = 3
	}
	if c.BatchTimeout <= 0 {
		c.BatchTimeout = 20 * time.Second
	}
	if c.GroupTimeout <= 0 {
		c.GroupTimeout = 8 * time.Second
	}
}

// Orchestrator resolves several items from one user turn: it dedupes items
// by canonical name so identical dishes hit the backends once, bounds
// worker concurrency, and nests cancellation so a slow group times out
// alone while batch cancellation stops everything.
type Orchestrator struct {
	resolver *Resolver
	logger   *zap.Logger
	cfg      BatchConfig
}

// NewOrchestrator creates the batch orchestrator.
func NewOrchestrator(resolver *Resolver, cfg BatchConfig, logger *zap.Logger) *Orchestrator {
	cfg.setDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{resolver: resolver, logger: logger, cfg: cfg}
}

// itemGroup is one set of batch indices sharing a canonical key.
type itemGroup struct {
	canonical string
	indices   []int
}

// ResolveBatch resolves a turn's descriptors. Items in a group share the
// resolved product but are scaled individually by their own grams. An
// unresolved group never blocks the rest of the batch.
func (o *Orchestrator) ResolveBatch(ctx context.Context, items []domain.ItemDescriptor) *domain.BatchResult {
	result := &domain.BatchResult{Items: make([]domain.ResolutionResult, len(items))}
	if len(items) == 0 {
		return result
	}

	bctx, cancel := context.WithTimeout(ctx, o.cfg.BatchTimeout)
	defer cancel()

	groups := o.partition(items, result)

	g, gctx := errgroup.WithContext(bctx)
	sem := make(chan struct{}, o.cfg.Workers)
	for _, group := range groups {
		group := group
		g.Go(func() error {
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-gctx.Done():
				o.failGroup(items, group, result, domain.ErrTimeout)
				return nil
			}
			o.resolveGroup(gctx, items, group, result)
			return nil
		})
	}
	g.Wait()

	o.aggregate(result)
	return result
}

// partition filters out over-cap and low-confidence items and groups the
// remainder by canonical key. Filtered items get their unresolved results
// immediately.
func (o *Orchestrator) partition(items []domain.ItemDescriptor, result *domain.BatchResult) []itemGroup {
	byKey := make(map[string]*itemGroup)
	var groups []itemGroup
	order := make([]string, 0, len(items))

	for i := range items {
		d := &items[i]
		canonical := CanonicalKey(d.SearchName(), d.BrandContext())

		switch {
		case i >= o.cfg.MaxItems:
			result.Items[i] = skipped(d, canonical, "batch_limit_exceeded")
		case d.Confidence < o.cfg.MinConfidence:
			result.Items[i] = skipped(d, canonical, "low_confidence")
		default:
			group, ok := byKey[canonical]
			if !ok {
				byKey[canonical] = &itemGroup{canonical: canonical}
				group = byKey[canonical]
				order = append(order, canonical)
			}
			group.indices = append(group.indices, i)
		}
	}

	for _, key := range order {
		groups = append(groups, *byKey[key])
	}
	return groups
}

// resolveGroup resolves one canonical group under its own timer and fans
// the outcome out to every member.
func (o *Orchestrator) resolveGroup(ctx context.Context, items []domain.ItemDescriptor, group itemGroup, result *domain.BatchResult) {
	gctx, cancel := context.WithTimeout(ctx, o.cfg.GroupTimeout)
	defer cancel()

	representative := items[group.indices[0]]
	resolved := o.resolver.ResolveOne(gctx, &representative)

	if !resolved.Resolved {
		o.logger.Debug("group unresolved",
			zap.String("canonical", group.canonical),
			zap.String("reason", resolved.Reason),
			zap.Int("members", len(group.indices)))
	}

	for _, i := range group.indices {
		d := &items[i]
		if !resolved.Resolved {
			r := *resolved
			r.Item = *d
			r.Confidence = d.Confidence * unresolvedConfidenceFactor
			result.Items[i] = r
			continue
		}
		// Shared product, per-item portion scaling.
		result.Items[i] = *o.resolver.accepted(d, group.canonical, resolved.Product, resolved.Score)
	}
}

// failGroup marks every member unresolved when the group never got to run.
func (o *Orchestrator) failGroup(items []domain.ItemDescriptor, group itemGroup, result *domain.BatchResult, err error) {
	for _, i := range group.indices {
		result.Items[i] = *o.resolver.unresolved(&items[i], group.canonical, err)
	}
}

// aggregate sums nutrients over resolved items and collects unresolved
// reasons.
func (o *Orchestrator) aggregate(result *domain.BatchResult) {
	for i := range result.Items {
		item := &result.Items[i]
		if item.Resolved && item.Nutrients != nil {
			result.Aggregate.Add(*item.Nutrients)
		} else if item.Reason != "" {
			result.UnresolvedReasons = append(result.UnresolvedReasons, item.Reason)
		}
	}
}

func skipped(d *domain.ItemDescriptor, canonical, reason string) domain.ResolutionResult {
	return domain.ResolutionResult{
		Item:               *d,
		Resolved:           false,
		Reason:             reason,
		Canonical:          canonical,
		Confidence:         d.Confidence * unresolvedConfidenceFactor,
		NeedsClarification: true,
	}
}
