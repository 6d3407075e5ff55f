package config

import (
	"os"
	"testing"
	"time"
)

func cleanupEnv() {
	os.Unsetenv("PLATEWISE_SERVER_PORT")
	os.Unsetenv("PLATEWISE_SERVER_ENVIRONMENT")
	os.Unsetenv("PLATEWISE_BACKENDS_BASE_URL")
	os.Unsetenv("PLATEWISE_BACKENDS_USER_AGENT")
	os.Unsetenv("PLATEWISE_CACHE_QUERY_TTL")
	os.Unsetenv("PLATEWISE_CACHE_PRODUCT_PATH")
	os.Unsetenv("PLATEWISE_RATELIMIT_CAPACITY")
	os.Unsetenv("PLATEWISE_RATELIMIT_INTERVAL")
	os.Unsetenv("PLATEWISE_RESOLVER_ACCEPT_THRESHOLD")
	os.Unsetenv("PLATEWISE_BATCH_MAX_ITEMS")
	os.Unsetenv("PLATEWISE_BATCH_MIN_CONFIDENCE")
}

func TestLoad(t *testing.T) {
	t.Run("loads with defaults when no env vars set", func(t *testing.T) {
		cleanupEnv()
		defer cleanupEnv()

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load() error = %v, want nil", err)
		}

		if cfg.Server.Port != "8080" {
			t.Errorf("Server.Port = %s, want 8080", cfg.Server.Port)
		}
		if cfg.Server.Environment != "development" {
			t.Errorf("Server.Environment = %s, want development", cfg.Server.Environment)
		}
		if cfg.Backends.BaseURL != "https://world.openfoodfacts.org" {
			t.Errorf("Backends.BaseURL = %s, want https://world.openfoodfacts.org", cfg.Backends.BaseURL)
		}
		if cfg.Cache.QueryTTL != 10*time.Minute {
			t.Errorf("Cache.QueryTTL = %v, want 10m", cfg.Cache.QueryTTL)
		}
		if cfg.RateLimit.Capacity != 10 {
			t.Errorf("RateLimit.Capacity = %d, want 10", cfg.RateLimit.Capacity)
		}
		if cfg.RateLimit.Interval != time.Minute {
			t.Errorf("RateLimit.Interval = %v, want 1m", cfg.RateLimit.Interval)
		}
		if cfg.Resolver.AcceptThreshold != 30.0 {
			t.Errorf("Resolver.AcceptThreshold = %v, want 30", cfg.Resolver.AcceptThreshold)
		}
		if cfg.Batch.MaxItems != 10 {
			t.Errorf("Batch.MaxItems = %d, want 10", cfg.Batch.MaxItems)
		}
	})

	t.Run("loads custom values from environment variables", func(t *testing.T) {
		cleanupEnv()
		os.Setenv("PLATEWISE_SERVER_PORT", "9090")
		os.Setenv("PLATEWISE_SERVER_ENVIRONMENT", "production")
		os.Setenv("PLATEWISE_BACKENDS_BASE_URL", "https://staging.openfoodfacts.net")
		os.Setenv("PLATEWISE_CACHE_QUERY_TTL", "1m")
		os.Setenv("PLATEWISE_RATELIMIT_CAPACITY", "5")
		os.Setenv("PLATEWISE_RATELIMIT_INTERVAL", "30s")
		os.Setenv("PLATEWISE_BATCH_MAX_ITEMS", "20")
		defer cleanupEnv()

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load() error = %v, want nil", err)
		}

		if cfg.Server.Port != "9090" {
			t.Errorf("Server.Port = %s, want 9090", cfg.Server.Port)
		}
		if cfg.Backends.BaseURL != "https://staging.openfoodfacts.net" {
			t.Errorf("Backends.BaseURL = %s, want staging URL", cfg.Backends.BaseURL)
		}
		if cfg.Cache.QueryTTL != time.Minute {
			t.Errorf("Cache.QueryTTL = %v, want 1m", cfg.Cache.QueryTTL)
		}
		if cfg.RateLimit.Capacity != 5 {
			t.Errorf("RateLimit.Capacity = %d, want 5", cfg.RateLimit.Capacity)
		}
		if cfg.RateLimit.Interval != 30*time.Second {
			t.Errorf("RateLimit.Interval = %v, want 30s", cfg.RateLimit.Interval)
		}
		if cfg.Batch.MaxItems != 20 {
			t.Errorf("Batch.MaxItems = %d, want 20", cfg.Batch.MaxItems)
		}
	})

	t.Run("fails validation for non-positive rate limit capacity", func(t *testing.T) {
		cleanupEnv()
		os.Setenv("PLATEWISE_RATELIMIT_CAPACITY", "0")
		defer cleanupEnv()

		if _, err := Load(); err == nil {
			t.Error("Load() error = nil, want error for zero capacity")
		}
	})

	t.Run("fails validation for out-of-range min confidence", func(t *testing.T) {
		cleanupEnv()
		os.Setenv("PLATEWISE_BATCH_MIN_CONFIDENCE", "1.5")
		defer cleanupEnv()

		if _, err := Load(); err == nil {
			t.Error("Load() error = nil, want error for min confidence > 1")
		}
	})
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Backends:  BackendsConfig{BaseURL: "https://world.openfoodfacts.org"},
			RateLimit: RateLimitConfig{Capacity: 10, Interval: time.Minute},
			Resolver:  ResolverConfig{AcceptThreshold: 30, BrandAcceptThreshold: 45},
			Batch:     BatchConfig{MaxItems: 10, MinConfidence: 0.2},
		}
	}

	t.Run("validates successfully with all required fields", func(t *testing.T) {
		if err := validate(valid()); err != nil {
			t.Errorf("validate() error = %v, want nil", err)
		}
	})

	t.Run("fails when base URL is empty", func(t *testing.T) {
		cfg := valid()
		cfg.Backends.BaseURL = ""
		if err := validate(cfg); err == nil {
			t.Error("validate() error = nil, want error for empty base URL")
		}
	})

	t.Run("fails when interval is zero", func(t *testing.T) {
		cfg := valid()
		cfg.RateLimit.Interval = 0
		if err := validate(cfg); err == nil {
			t.Error("validate() error = nil, want error for zero interval")
		}
	})

	t.Run("fails when thresholds are inverted", func(t *testing.T) {
		cfg := valid()
		cfg.Resolver.AcceptThreshold = 50
		cfg.Resolver.BrandAcceptThreshold = 45
		if err := validate(cfg); err == nil {
			t.Error("validate() error = nil, want error for inverted thresholds")
		}
	})
}

func TestLoadEnvFile(t *testing.T) {
	t.Run("returns nil when .env file doesn't exist", func(t *testing.T) {
		originalDir, _ := os.Getwd()
		defer os.Chdir(originalDir)
		os.Chdir(t.TempDir())

		if err := loadEnvFile(); err != nil {
			t.Errorf("loadEnvFile() error = %v, want nil when file doesn't exist", err)
		}
	})

	t.Run("loads variables, skipping comments and blanks", func(t *testing.T) {
		originalDir, _ := os.Getwd()
		defer os.Chdir(originalDir)
		os.Chdir(t.TempDir())

		envContent := `
# Comment line
TEST_VAR_1=value1

   # Indented comment
TEST_VAR_2=value2
`
		if err := os.WriteFile(".env", []byte(envContent), 0644); err != nil {
			t.Fatalf("Failed to create test .env file: %v", err)
		}
		os.Unsetenv("TEST_VAR_1")
		os.Unsetenv("TEST_VAR_2")
		defer os.Unsetenv("TEST_VAR_1")
		defer os.Unsetenv("TEST_VAR_2")

		if err := loadEnvFile(); err != nil {
			t.Fatalf("loadEnvFile() error = %v, want nil", err)
		}
		if os.Getenv("TEST_VAR_1") != "value1" {
			t.Errorf("TEST_VAR_1 = %s, want value1", os.Getenv("TEST_VAR_1"))
		}
		if os.Getenv("TEST_VAR_2") != "value2" {
			t.Errorf("TEST_VAR_2 = %s, want value2", os.Getenv("TEST_VAR_2"))
		}
	})

	t.Run("doesn't override existing environment variables", func(t *testing.T) {
		originalDir, _ := os.Getwd()
		defer os.Chdir(originalDir)
		os.Chdir(t.TempDir())

		os.Setenv("TEST_OVERRIDE", "existing-value")
		defer os.Unsetenv("TEST_OVERRIDE")

		if err := os.WriteFile(".env", []byte("TEST_OVERRIDE=new-value"), 0644); err != nil {
			t.Fatalf("Failed to create test .env file: %v", err)
		}
		if err := loadEnvFile(); err != nil {
			t.Fatalf("loadEnvFile() error = %v, want nil", err)
		}
		if os.Getenv("TEST_OVERRIDE") != "existing-value" {
			t.Errorf("TEST_OVERRIDE = %s, want existing-value", os.Getenv("TEST_OVERRIDE"))
		}
	})
}
