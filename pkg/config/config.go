package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
)

type Config struct {
	CompletionsAPIURL string
	CompletionsAPIKey string
	CompletionsModel  string
	EmbeddingsAPIURL  string
	EmbeddingsAPIKey  string
	EmbeddingsModel   string
	WeaviateHost      string
	WeaviateScheme    string
	Language          string

	// Pipeline tunables.
	ConflictMaxCount int
	InsightMaxCount  int
	InsightThreshold float64
	DensityMaxSize   int
	TodayTopK        int
}

func getEnv(key, defaultValue string, printEnv bool) string {
	logger := log.Default()
	value := os.Getenv(key)
	if printEnv {
		logger.Info("Env", "key", key, "value", value)
	}
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvOrPanic(key string, printEnv bool) string {
	value := getEnv(key, "", printEnv)
	if value == "" {
		panic(fmt.Sprintf("Environment variable %s is not set", key))
	}
	return value
}

func getEnvInt(key string, defaultValue int, printEnv bool) int {
	value := getEnv(key, "", printEnv)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		log.Default().Warn("Ignoring non-integer env value", "key", key, "value", value)
		return defaultValue
	}
	return n
}

func getEnvFloat(key string, defaultValue float64, printEnv bool) float64 {
	value := getEnv(key, "", printEnv)
	if value == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		log.Default().Warn("Ignoring non-numeric env value", "key", key, "value", value)
		return defaultValue
	}
	return f
}

func LoadConfig(printEnv bool) (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		CompletionsAPIURL: getEnv("COMPLETIONS_API_URL", "https://api.openai.com/v1", printEnv),
		CompletionsAPIKey: getEnvOrPanic("COMPLETIONS_API_KEY", false),
		CompletionsModel:  getEnv("COMPLETIONS_MODEL", "gpt-4o-mini", printEnv),
		EmbeddingsAPIURL:  getEnv("EMBEDDINGS_API_URL", "https://api.openai.com/v1", printEnv),
		EmbeddingsAPIKey:  getEnv("EMBEDDINGS_API_KEY", "", printEnv),
		EmbeddingsModel:   getEnv("EMBEDDINGS_MODEL", "text-embedding-3-small", printEnv),
		WeaviateHost:      getEnv("WEAVIATE_HOST", "localhost:8080", printEnv),
		WeaviateScheme:    getEnv("WEAVIATE_SCHEME", "http", printEnv),
		Language:          getEnv("CURATION_LANGUAGE", "en", printEnv),
		ConflictMaxCount:  getEnvInt("CONFLICT_MAX_COUNT", 50, printEnv),
		InsightMaxCount:   getEnvInt("INSIGHT_MAX_COUNT", 5, printEnv),
		InsightThreshold:  getEnvFloat("INSIGHT_THRESHOLD", 0.3, printEnv),
		DensityMaxSize:    getEnvInt("DENSITY_MAX_SIZE", 2000, printEnv),
		TodayTopK:         getEnvInt("TODAY_TOP_K", 30, printEnv),
	}

	if cfg.EmbeddingsAPIKey == "" {
		cfg.EmbeddingsAPIKey = cfg.CompletionsAPIKey
	}

	return cfg, nil
}
