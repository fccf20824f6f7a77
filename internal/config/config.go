package config

import (
	_ "embed"
	"os"
	"strconv"
)

//go:embed defaults.yaml
var defaultsYAML []byte

type Config struct {
	Database  DatabaseConfig
	Embedding EmbeddingConfig
	Matching  MatchingConfig
	Evidence  EvidenceConfig
	SIS       SISConfig
	Web       WebConfig
	Defaults  DefaultsConfig
}

type DatabaseConfig struct {
	URL          string // PostgreSQL connection URL
	MaxOpenConns int    // Maximum open connections (default 25)
	MaxIdleConns int    // Maximum idle connections (default 5)
}

type EmbeddingConfig struct {
	URL string // base URL of the face embedding service, defaults to http://localhost:8000
	Dim int    // signature dimensionality, defaults to the embedded matching.dim
}

type MatchingConfig struct {
	Threshold float64 // maximum accepted face distance, defaults to the embedded matching.threshold
}

type EvidenceConfig struct {
	Dir          string // directory for captured probe images (empty disables evidence storage)
	MaxImageSize int    // longest edge in pixels for stored evidence (default 1024)
}

type SISConfig struct {
	DSN string // read-only MySQL DSN of the school information system (import only)
}

type WebConfig struct {
	APIToken string // static bearer token for the HTTP API (empty disables auth)
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envFloat reads an environment variable and parses it as a positive float.
// Returns the default value if the env var is unset, empty, or invalid.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 {
		return f
	}
	return defaultVal
}

func Load() *Config {
	defaults := loadDefaults()

	return &Config{
		Database: DatabaseConfig{
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 5),
		},
		Embedding: EmbeddingConfig{
			URL: os.Getenv("EMBEDDING_URL"),
			Dim: envInt("EMBEDDING_DIM", defaults.Matching.Dim),
		},
		Matching: MatchingConfig{
			Threshold: envFloat("MATCH_THRESHOLD", defaults.Matching.Threshold),
		},
		Evidence: EvidenceConfig{
			Dir:          os.Getenv("EVIDENCE_DIR"),
			MaxImageSize: envInt("EVIDENCE_MAX_IMAGE_SIZE", 1024),
		},
		SIS: SISConfig{
			DSN: os.Getenv("SIS_DATABASE_DSN"),
		},
		Web: WebConfig{
			APIToken: os.Getenv("WEB_API_TOKEN"),
		},
		Defaults: defaults,
	}
}
