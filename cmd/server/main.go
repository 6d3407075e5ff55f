package main

import (
	"fmt"
	"log"
	"os"

	"go.uber.org/zap"

	"github.com/platewise/resolver/config"
	httpDelivery "github.com/platewise/resolver/internal/delivery/http"
	"github.com/platewise/resolver/internal/domain"
	"github.com/platewise/resolver/internal/infrastructure/cache"
	"github.com/platewise/resolver/internal/infrastructure/httpx"
	"github.com/platewise/resolver/internal/infrastructure/off"
	"github.com/platewise/resolver/internal/infrastructure/ratelimit"
	"github.com/platewise/resolver/internal/usecase"
)

func main() {
	// Rate limiter, scorer and resolver pick hot-reloaded values up through
	// the onChange callback; everything else requires a restart.
	var (
		limiter  *ratelimit.Bucket
		scorer   *usecase.Scorer
		resolver *usecase.Resolver
	)

	cfg, err := config.LoadAndWatch(func(next *config.Config) {
		limiter.Reconfigure(next.RateLimit.Capacity, next.RateLimit.Interval)
		scorer.SetThresholds(next.Resolver.AcceptThreshold, next.Resolver.BrandAcceptThreshold)
		resolver.UpdateConfig(usecase.ResolverConfig{
			TimeBudget:  next.Resolver.TimeBudget,
			MaxAttempts: next.Resolver.MaxAttempts,
		})
		log.Printf("configuration reloaded")
	})
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := buildLogger(cfg.Server.Environment)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	log.Printf("Starting PlateWise Resolver v1.0.0")
	log.Printf("Environment: %s", cfg.Server.Environment)
	log.Printf("Port: %s", cfg.Server.Port)
	log.Printf("Backend: %s", cfg.Backends.BaseURL)

	limiter, err = ratelimit.New(cfg.RateLimit.Capacity, cfg.RateLimit.Interval)
	if err != nil {
		log.Fatalf("Failed to create rate limiter: %v", err)
	}
	log.Printf("Outbound rate limit: %d searches per %s", cfg.RateLimit.Capacity, cfg.RateLimit.Interval)

	queryCache := cache.NewMemoryCache(cfg.Cache.QueryTTL, cfg.Cache.MaxEntries)

	httpClient := httpx.New(cfg.Backends.LegacyTimeout, cfg.Backends.MaxRetries, cfg.Backends.UserAgent)
	fulltext := off.NewFullText(cfg.Backends.BaseURL, httpClient, cfg.Backends.FulltextTimeout, 0)
	structured := off.NewStructured(cfg.Backends.BaseURL, httpClient, cfg.Backends.StructuredTimeout, 0)
	legacy := off.NewLegacy(cfg.Backends.BaseURL, httpClient, cfg.Backends.LegacyTimeout, 0)
	barcode := off.NewBarcode(cfg.Backends.BaseURL, httpClient, cfg.Backends.StructuredTimeout)

	rules := usecase.DefaultRules()
	portions := usecase.NewPortionResolver(rules)
	scorer = usecase.NewScorer(rules, portions, usecase.ScorerConfig{
		AcceptThreshold:      cfg.Resolver.AcceptThreshold,
		BrandAcceptThreshold: cfg.Resolver.BrandAcceptThreshold,
		Debug:                cfg.Resolver.DebugScoring,
	}, logger)

	searchRouter := usecase.NewRouter(fulltext, structured, legacy, limiter, rules, usecase.RouterConfig{
		Timeout:        cfg.Router.Timeout,
		MinLocalHits:   cfg.Router.MinLocalHits,
		MaxGlobalPages: cfg.Router.MaxGlobalPages,
	}, logger)

	// A typed nil must not reach the resolver's interface field.
	var store domain.ProductStore
	if s := openProductStore(cfg); s != nil {
		defer s.Close()
		store = s
	}

	resolver = usecase.NewResolver(searchRouter, scorer, portions, rules, queryCache, store, barcode, usecase.ResolverConfig{
		TimeBudget:  cfg.Resolver.TimeBudget,
		MaxAttempts: cfg.Resolver.MaxAttempts,
	}, logger)

	orchestrator := usecase.NewOrchestrator(resolver, usecase.BatchConfig{
		MaxItems:      cfg.Batch.MaxItems,
		MinConfidence: cfg.Batch.MinConfidence,
		Workers:       cfg.Batch.Workers,
		BatchTimeout:  cfg.Batch.BatchTimeout,
		GroupTimeout:  cfg.Batch.GroupTimeout,
	}, logger)

	handler := httpDelivery.NewHandler(resolver, orchestrator)
	router := httpDelivery.SetupRouter(cfg, handler)

	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	log.Printf("Server listening on %s", addr)

	if err := router.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// openProductStore opens the durable barcode cache. A failure disables the
// store rather than aborting startup; resolution then runs search-only.
func openProductStore(cfg *config.Config) *cache.SQLiteStore {
	if cfg.Cache.ProductPath == "" {
		return nil
	}
	store, err := cache.NewSQLiteStore(cfg.Cache.ProductPath, cfg.Cache.ProductFresh)
	if err != nil {
		log.Printf("WARNING: product store unavailable (%v), continuing without it", err)
		return nil
	}
	log.Printf("Product store: %s (freshness %s)", cfg.Cache.ProductPath, cfg.Cache.ProductFresh)
	return store
}

func buildLogger(environment string) (*zap.Logger, error) {
	if environment == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

func init() {
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	log.SetOutput(os.Stdout)
}
