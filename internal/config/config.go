package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	LLMBaseURL           string
	LLMModelName         string
	LLMAPIKey            string
	LLMTemperature       float32
	LLMMaxTokens         int
	LLMRequestsPerSecond float64
	LLMMaxRetries        int

	TTSBaseURL string
	TTSAPIKey  string
	TTSModel   string

	DBPath        string
	LibraryDir    string
	LibraryConfig string
	LibraryWatch  bool

	DefaultLanguage string

	ChunkSize       int
	ChunkOverlap    int
	ChunkMinContent int

	RetrievalCacheTTL   time.Duration
	TranslationCacheTTL time.Duration

	ForceMinScore         float64
	TryMinScore           float64
	GeneralMinScore       float64
	MaxResults            int
	GeneralMaxResults     int
	FallbackLeadingChunks int

	APIPort   string
	LogLevel  slog.Level
	LogFormat string
}

// Load reads configuration from environment variables and returns a Config struct.
// It applies defaults for optional fields and validates required fields.
// If a .env file exists in the current directory or project root, it will be loaded automatically.
// Environment variables already set take precedence over .env file values.
func Load() (*Config, error) {
	_ = godotenv.Load()

	// Walk up a few levels so commands started from a subdirectory still find the project .env
	wd, err := os.Getwd()
	if err == nil {
		dir := wd
		for i := 0; i < 5; i++ {
			envPath := filepath.Join(dir, ".env")
			if _, err := os.Stat(envPath); err == nil {
				_ = godotenv.Load(envPath)
				break
			}
			parent := filepath.Dir(dir)
			if parent == dir {
				break
			}
			dir = parent
		}
	}

	cfg := &Config{
		LLMBaseURL:    getEnv("LLM_BASE_URL", "http://localhost:8080"),
		LLMModelName:  getEnv("LLM_MODEL", "Llama-3.1-8B-Instruct"),
		LLMAPIKey:     getEnv("LLM_API_KEY", "dummy-key"),
		TTSBaseURL:    getEnv("TTS_BASE_URL", ""),
		TTSAPIKey:     getEnv("TTS_API_KEY", ""),
		TTSModel:      getEnv("TTS_MODEL", "tts-1"),
		DBPath:        getEnv("DB_PATH", "./data/breslov-ai.db"),
		LibraryDir:    getEnv("LIBRARY_DIR", ""),
		LibraryConfig: getEnv("LIBRARY_CONFIG", "./library.yaml"),
		APIPort:       getEnv("API_PORT", "9000"),
		LogFormat:     strings.ToLower(getEnv("LOG_FORMAT", "text")),
	}

	var errs []string
	collect := func(err error) {
		if err != nil {
			errs = append(errs, err.Error())
		}
	}

	var temperature float64
	temperature, err = getFloat("LLM_TEMPERATURE", 0.3)
	collect(err)
	cfg.LLMTemperature = float32(temperature)

	cfg.LLMMaxTokens, err = getInt("LLM_MAX_TOKENS", 1024)
	collect(err)
	cfg.LLMRequestsPerSecond, err = getFloat("LLM_REQUESTS_PER_SECOND", 2)
	collect(err)
	cfg.LLMMaxRetries, err = getInt("LLM_MAX_RETRIES", 2)
	collect(err)
	cfg.LibraryWatch, err = getBool("LIBRARY_WATCH", false)
	collect(err)

	cfg.ChunkSize, err = getInt("CHUNK_SIZE", 30)
	collect(err)
	cfg.ChunkOverlap, err = getInt("CHUNK_OVERLAP", 5)
	collect(err)
	cfg.ChunkMinContent, err = getInt("CHUNK_MIN_CONTENT", 50)
	collect(err)

	cfg.RetrievalCacheTTL, err = getDuration("RETRIEVAL_CACHE_TTL", 10*time.Minute)
	collect(err)
	cfg.TranslationCacheTTL, err = getDuration("TRANSLATION_CACHE_TTL", 30*time.Minute)
	collect(err)

	cfg.ForceMinScore, err = getFloat("FORCE_MIN_SCORE", 0)
	collect(err)
	cfg.TryMinScore, err = getFloat("TRY_MIN_SCORE", 30)
	collect(err)
	cfg.GeneralMinScore, err = getFloat("GENERAL_MIN_SCORE", 0)
	collect(err)
	cfg.MaxResults, err = getInt("MAX_RESULTS", 8)
	collect(err)
	cfg.GeneralMaxResults, err = getInt("GENERAL_MAX_RESULTS", 3)
	collect(err)
	cfg.FallbackLeadingChunks, err = getInt("FALLBACK_LEADING_CHUNKS", 2)
	collect(err)

	cfg.LogLevel, err = parseLogLevel(getEnv("LOG_LEVEL", "info"))
	collect(err)

	cfg.DefaultLanguage = strings.ToLower(getEnv("DEFAULT_LANGUAGE", "fr"))

	if len(errs) > 0 {
		return nil, fmt.Errorf("invalid configuration: %s", strings.Join(errs, "; "))
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Create the data directory for the SQLite file
	dataDir := filepath.Dir(cfg.DBPath)
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	return cfg, nil
}

// Validate checks required fields and value ranges.
func (c *Config) Validate() error {
	if c.LibraryDir == "" {
		return fmt.Errorf("LIBRARY_DIR is required")
	}
	if c.ChunkSize <= 0 {
		return fmt.Errorf("CHUNK_SIZE must be greater than 0")
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("CHUNK_OVERLAP must be in [0, CHUNK_SIZE)")
	}
	if c.ChunkMinContent < 0 {
		return fmt.Errorf("CHUNK_MIN_CONTENT must not be negative")
	}
	if c.MaxResults <= 0 || c.GeneralMaxResults <= 0 {
		return fmt.Errorf("MAX_RESULTS and GENERAL_MAX_RESULTS must be greater than 0")
	}
	if c.LLMRequestsPerSecond <= 0 {
		return fmt.Errorf("LLM_REQUESTS_PER_SECOND must be greater than 0")
	}
	if c.LLMMaxRetries < 0 {
		return fmt.Errorf("LLM_MAX_RETRIES must not be negative")
	}
	switch c.DefaultLanguage {
	case "fr", "en", "he":
	default:
		return fmt.Errorf("DEFAULT_LANGUAGE must be one of fr, en, he")
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("LOG_FORMAT must be text or json")
	}
	return nil
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid integer: %w", key, err)
	}
	return v, nil
}

func getFloat(key string, defaultValue float64) (float64, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid number: %w", key, err)
	}
	return v, nil
}

func getBool(key string, defaultValue bool) (bool, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%s must be a boolean: %w", key, err)
	}
	return v, nil
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration: %w", key, err)
	}
	if v <= 0 {
		return 0, fmt.Errorf("%s must be positive", key)
	}
	return v, nil
}

func parseLogLevel(raw string) (slog.Level, error) {
	switch strings.ToLower(raw) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("LOG_LEVEL must be one of debug, info, warn, error")
}
