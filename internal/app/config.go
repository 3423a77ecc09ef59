package app

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	HTTPAddr  string
	LogLevel  string
	LogFormat string

	MongoURI      string
	MongoDatabase string
	RedisURL      string

	IGDBClientID     string
	IGDBClientSecret string
	IGDBAccessToken  string
	IGDBBaseURL      string
	IGDBTokenURL     string
	IGDBRequestsPerS float64

	RemoteTimeout       time.Duration
	RemoteCacheTTL      time.Duration
	RemoteCacheDisabled bool
	AliasesPath         string

	RateLimitRPS   float64
	RateLimitBurst int

	OTLPEndpoint    string
	OTELSampleRatio float64
}

func LoadConfig() Config {
	return Config{
		HTTPAddr:            getEnv("HTTP_ADDR", ":8095"),
		LogLevel:            strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFormat:           strings.ToLower(getEnv("LOG_FORMAT", "text")),
		MongoURI:            getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase:       getEnv("MONGO_DB", "gamecatalog"),
		RedisURL:            getEnv("REDIS_URL", ""),
		IGDBClientID:        getEnv("IGDB_CLIENT_ID", ""),
		IGDBClientSecret:    strings.TrimSpace(os.Getenv("IGDB_CLIENT_SECRET")),
		IGDBAccessToken:     strings.TrimSpace(os.Getenv("IGDB_ACCESS_TOKEN")),
		IGDBBaseURL:         getEnv("IGDB_BASE_URL", "https://api.igdb.com/v4"),
		IGDBTokenURL:        getEnv("IGDB_TOKEN_URL", "https://id.twitch.tv/oauth2/token"),
		IGDBRequestsPerS:    getEnvFloat("IGDB_REQUESTS_PER_SECOND", 4),
		RemoteTimeout:       getEnvDuration("REMOTE_TIMEOUT", 3*time.Second),
		RemoteCacheTTL:      getEnvDuration("REMOTE_CACHE_TTL", 10*time.Minute),
		RemoteCacheDisabled: getEnvBool("REMOTE_CACHE_DISABLED", false),
		AliasesPath:         getEnv("PLATFORM_ALIASES_PATH", ""),
		RateLimitRPS:        getEnvFloat("HTTP_RATE_LIMIT_RPS", 50),
		RateLimitBurst:      getEnvInt("HTTP_RATE_LIMIT_BURST", 100),
		OTLPEndpoint:        getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		OTELSampleRatio:     getEnvFloat("OTEL_SAMPLE_RATIO", 1),
	}
}

func getEnv(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func getEnvInt(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func getEnvFloat(key string, fallback float64) float64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(raw, 64)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	raw := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if raw == "" {
		return fallback
	}
	switch raw {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

// getEnvDuration accepts Go duration strings ("3s") or bare seconds ("3").
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	if parsed, err := time.ParseDuration(raw); err == nil {
		if parsed <= 0 {
			return fallback
		}
		return parsed
	}
	seconds, err := strconv.Atoi(raw)
	if err != nil || seconds <= 0 {
		return fallback
	}
	return time.Duration(seconds) * time.Second
}
