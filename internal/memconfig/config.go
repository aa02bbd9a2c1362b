// Package memconfig loads runtime configuration from environment variables
// and an optional JSONC search-weights file, layering file values over
// built-in defaults and environment variables over both.
package memconfig

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the fully resolved runtime configuration.
type Config struct {
	DBPath        string
	DBDir         string
	AllowedPaths  []string

	EmbeddingsProvider string
	VoyageAPIKey       string
	OpenAIAPIKey       string
	EmbeddingDim       int

	EnableBM25        bool
	EnableRRFFusion   bool
	EnableFuzzyMatch  bool
	EnableCrossEncoder bool

	CrossEncoderProvider string
	MaxRerankCandidates  int
	RerankP95Threshold   time.Duration
	RerankCacheTTL       time.Duration
	RerankCacheSize      int

	Weights SearchWeights
}

// SearchWeights mirrors the optional search-weights.json file's schema.
type SearchWeights struct {
	HybridSearch struct {
		Enabled     bool    `json:"enabled"`
		VectorWeight float64 `json:"vectorWeight"`
		FTSWeight    float64 `json:"ftsWeight"`
	} `json:"hybridSearch"`
	MemoryDecay struct {
		Enabled   bool    `json:"enabled"`
		DecayWeight float64 `json:"decayWeight"`
		ScaleDays float64 `json:"scaleDays"`
	} `json:"memoryDecay"`
	CompositeScoring struct {
		Enabled bool `json:"enabled"`
	} `json:"compositeScoring"`
	SmartRanking struct {
		RecencyWeight   float64 `json:"recencyWeight"`
		AccessWeight    float64 `json:"accessWeight"`
		RelevanceWeight float64 `json:"relevanceWeight"`
	} `json:"smartRanking"`
	MaxTriggersPerMemory int `json:"maxTriggersPerMemory"`
}

// defaultAllowedPaths are always allow-listed regardless of
// MEMORY_ALLOWED_PATHS.
var defaultAllowedPaths = []string{"./specs/", "./.opencode/"}

// Default returns the built-in configuration defaults.
func Default() Config {
	cfg := Config{
		DBPath:             "database/context-index.sqlite",
		AllowedPaths:       append([]string(nil), defaultAllowedPaths...),
		EnableBM25:         true,
		EnableRRFFusion:    true,
		EnableFuzzyMatch:   true,
		EnableCrossEncoder: false,
		CrossEncoderProvider: "auto",
		MaxRerankCandidates:  20,
		RerankP95Threshold:   500 * time.Millisecond,
		RerankCacheTTL:       5 * time.Minute,
		RerankCacheSize:      500,
		EmbeddingDim:         0,
	}
	cfg.Weights.SmartRanking.RelevanceWeight = 0.5
	cfg.Weights.SmartRanking.RecencyWeight = 0.3
	cfg.Weights.SmartRanking.AccessWeight = 0.2
	cfg.Weights.MaxTriggersPerMemory = 20
	cfg.Weights.HybridSearch.Enabled = true
	cfg.Weights.HybridSearch.VectorWeight = 0.5
	cfg.Weights.HybridSearch.FTSWeight = 0.5
	cfg.Weights.CompositeScoring.Enabled = true
	return cfg
}

// Load resolves Config starting from defaults, overlaying weightsPath's
// JSONC content (if it exists; silently skipped otherwise) and finally
// environment variables, which always win.
func Load(weightsPath string) (Config, error) {
	cfg := Default()

	if weightsPath != "" {
		if weights, err := loadWeightsFile(weightsPath); err == nil {
			cfg.Weights = weights
		}
		// A missing or invalid file silently keeps the defaults; the
		// warning is the caller's responsibility to log (see
		// loadWeightsFile's own logging in weights.go).
	}

	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("MEMORY_DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("MEMORY_DB_DIR"); v != "" {
		cfg.DBDir = v
	}
	if v := os.Getenv("MEMORY_ALLOWED_PATHS"); v != "" {
		cfg.AllowedPaths = append(cfg.AllowedPaths, strings.Split(v, ":")...)
	}
	if v := os.Getenv("EMBEDDINGS_PROVIDER"); v != "" {
		cfg.EmbeddingsProvider = v
	}
	cfg.VoyageAPIKey = os.Getenv("VOYAGE_API_KEY")
	cfg.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")

	setBoolEnv("ENABLE_BM25", &cfg.EnableBM25)
	setBoolEnv("ENABLE_RRF_FUSION", &cfg.EnableRRFFusion)
	setBoolEnv("ENABLE_FUZZY_MATCH", &cfg.EnableFuzzyMatch)
	setBoolEnv("ENABLE_CROSS_ENCODER", &cfg.EnableCrossEncoder)

	if v := os.Getenv("CROSS_ENCODER_PROVIDER"); v != "" {
		cfg.CrossEncoderProvider = v
	}
	setIntEnv("MAX_RERANK_CANDIDATES", &cfg.MaxRerankCandidates)
	setDurationMsEnv("RERANK_P95_THRESHOLD", &cfg.RerankP95Threshold)
	setDurationMsEnv("RERANK_CACHE_TTL", &cfg.RerankCacheTTL)
	setIntEnv("RERANK_CACHE_SIZE", &cfg.RerankCacheSize)
	setIntEnv("EMBEDDING_DIM", &cfg.EmbeddingDim)
}

func setBoolEnv(name string, dst *bool) {
	v := os.Getenv(name)
	if v == "" {
		return
	}
	if parsed, err := strconv.ParseBool(v); err == nil {
		*dst = parsed
	}
}

func setIntEnv(name string, dst *int) {
	v := os.Getenv(name)
	if v == "" {
		return
	}
	if parsed, err := strconv.Atoi(v); err == nil {
		*dst = parsed
	}
}

func setDurationMsEnv(name string, dst *time.Duration) {
	v := os.Getenv(name)
	if v == "" {
		return
	}
	if parsed, err := strconv.Atoi(v); err == nil {
		*dst = time.Duration(parsed) * time.Millisecond
	}
}
