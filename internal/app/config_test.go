package app

import (
	"os"
	"testing"
	"time"
)

var configEnvVars = []string{
	"HTTP_ADDR", "LOG_LEVEL", "LOG_FORMAT", "MONGO_URI", "MONGO_DB", "REDIS_URL",
	"IGDB_CLIENT_ID", "IGDB_CLIENT_SECRET", "IGDB_ACCESS_TOKEN", "IGDB_BASE_URL",
	"IGDB_TOKEN_URL", "IGDB_REQUESTS_PER_SECOND", "REMOTE_TIMEOUT", "REMOTE_CACHE_TTL",
	"REMOTE_CACHE_DISABLED", "PLATFORM_ALIASES_PATH", "HTTP_RATE_LIMIT_RPS",
	"HTTP_RATE_LIMIT_BURST", "OTEL_EXPORTER_OTLP_ENDPOINT", "OTEL_SAMPLE_RATIO",
}

func clearConfigEnv(t *testing.T) {
	t.Helper()
	for _, k := range configEnvVars {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	clearConfigEnv(t)
	cfg := LoadConfig()

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"HTTPAddr", cfg.HTTPAddr, ":8095"},
		{"LogLevel", cfg.LogLevel, "info"},
		{"LogFormat", cfg.LogFormat, "text"},
		{"MongoURI", cfg.MongoURI, "mongodb://localhost:27017"},
		{"MongoDatabase", cfg.MongoDatabase, "gamecatalog"},
		{"RedisURL", cfg.RedisURL, ""},
		{"IGDBClientID", cfg.IGDBClientID, ""},
		{"IGDBBaseURL", cfg.IGDBBaseURL, "https://api.igdb.com/v4"},
		{"IGDBRequestsPerS", cfg.IGDBRequestsPerS, 4.0},
		{"RemoteTimeout", cfg.RemoteTimeout, 3 * time.Second},
		{"RemoteCacheTTL", cfg.RemoteCacheTTL, 10 * time.Minute},
		{"RemoteCacheDisabled", cfg.RemoteCacheDisabled, false},
		{"AliasesPath", cfg.AliasesPath, ""},
		{"RateLimitRPS", cfg.RateLimitRPS, 50.0},
		{"RateLimitBurst", cfg.RateLimitBurst, 100},
		{"OTELSampleRatio", cfg.OTELSampleRatio, 1.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %v (%T), want %v (%T)", tt.got, tt.got, tt.want, tt.want)
			}
		})
	}
}

func TestLoadConfigFromEnv(t *testing.T) {
	clearConfigEnv(t)
	for k, v := range map[string]string{
		"HTTP_ADDR":             ":9000",
		"LOG_LEVEL":             "DEBUG",
		"LOG_FORMAT":            "JSON",
		"MONGO_DB":              "catalog_test",
		"IGDB_CLIENT_ID":        " client ",
		"IGDB_CLIENT_SECRET":    "secret",
		"REMOTE_TIMEOUT":        "1500ms",
		"REMOTE_CACHE_TTL":      "60",
		"REMOTE_CACHE_DISABLED": "yes",
		"HTTP_RATE_LIMIT_BURST": "7",
	} {
		t.Setenv(k, v)
	}
	cfg := LoadConfig()

	if cfg.HTTPAddr != ":9000" || cfg.LogLevel != "debug" || cfg.LogFormat != "json" {
		t.Fatalf("unexpected server settings: %+v", cfg)
	}
	if cfg.MongoDatabase != "catalog_test" {
		t.Fatalf("MongoDatabase = %q", cfg.MongoDatabase)
	}
	if cfg.IGDBClientID != "client" || cfg.IGDBClientSecret != "secret" {
		t.Fatalf("unexpected igdb credentials: %q %q", cfg.IGDBClientID, cfg.IGDBClientSecret)
	}
	if cfg.RemoteTimeout != 1500*time.Millisecond {
		t.Fatalf("RemoteTimeout = %v", cfg.RemoteTimeout)
	}
	if cfg.RemoteCacheTTL != time.Minute {
		t.Fatalf("RemoteCacheTTL = %v", cfg.RemoteCacheTTL)
	}
	if !cfg.RemoteCacheDisabled || cfg.RateLimitBurst != 7 {
		t.Fatalf("unexpected cache/rate settings: %+v", cfg)
	}
}

func TestInvalidValuesFallBack(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("REMOTE_TIMEOUT", "-2s")
	t.Setenv("HTTP_RATE_LIMIT_BURST", "many")
	t.Setenv("HTTP_RATE_LIMIT_RPS", "0")
	t.Setenv("REMOTE_CACHE_DISABLED", "maybe")

	cfg := LoadConfig()
	if cfg.RemoteTimeout != 3*time.Second {
		t.Fatalf("RemoteTimeout = %v", cfg.RemoteTimeout)
	}
	if cfg.RateLimitBurst != 100 || cfg.RateLimitRPS != 50 {
		t.Fatalf("rate limit fallbacks not applied: %v %v", cfg.RateLimitRPS, cfg.RateLimitBurst)
	}
	if cfg.RemoteCacheDisabled {
		t.Fatalf("unparseable bool must fall back to false")
	}
}
