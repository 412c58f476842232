package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port               string
	DatabaseURL        string
	AuthToken          string
	CorsAllowedOrigins []string

	JWTSecret    string
	JWTExpiresIn time.Duration

	// PostsRequireAuth guards post mutations behind a JWT bearer token.
	PostsRequireAuth bool

	Search SearchConfig

	LogLevel  string
	LogFormat string
}

// SearchConfig describes the optional Elasticsearch cluster. An empty
// Addresses list disables indexing and search.
type SearchConfig struct {
	Addresses    []string
	Username     string
	Password     string
	Index        string
	HealthCheck  bool
	IndexTimeout time.Duration
}

func (s SearchConfig) Enabled() bool {
	return len(s.Addresses) > 0
}

// Load reads the process environment, after merging a .env file if one is
// present in the working directory.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Port:               getEnv("PORT", "8080"),
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		AuthToken:          getEnv("AUTH_TOKEN", ""),
		CorsAllowedOrigins: splitCSV(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		JWTSecret:          getEnv("JWT_SECRET", ""),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		LogFormat:          getEnv("LOG_FORMAT", "text"),
		Search: SearchConfig{
			Username: getEnv("ELASTICSEARCH_USERNAME", ""),
			Password: getEnv("ELASTICSEARCH_PASSWORD", ""),
			Index:    getEnv("ELASTICSEARCH_INDEX", "posts"),
		},
	}
	if raw := getEnv("ELASTICSEARCH_URL", ""); raw != "" {
		cfg.Search.Addresses = splitCSV(raw)
	}

	var err error
	if cfg.JWTExpiresIn, err = getDuration("JWT_EXPIRES_IN", 24*time.Hour); err != nil {
		return Config{}, err
	}
	if cfg.Search.IndexTimeout, err = getDuration("INDEX_TIMEOUT", 5*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.Search.HealthCheck, err = getBool("SEARCH_HEALTHCHECK", true); err != nil {
		return Config{}, err
	}
	if cfg.PostsRequireAuth, err = getBool("POSTS_REQUIRE_AUTH", false); err != nil {
		return Config{}, err
	}

	if cfg.DatabaseURL == "" {
		return Config{}, errors.New("DATABASE_URL is required")
	}
	if cfg.JWTSecret == "" {
		return Config{}, errors.New("JWT_SECRET is required")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	value := getEnv(key, "")
	if value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("%s: invalid duration %q", key, value)
	}
	return d, nil
}

func getBool(key string, fallback bool) (bool, error) {
	value := getEnv(key, "")
	if value == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("%s: invalid boolean %q", key, value)
	}
	return b, nil
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		item := strings.TrimSpace(part)
		if item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}
