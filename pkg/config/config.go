package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Engine   EngineConfig
	Stages   StageConfig
	Storage  StorageConfig
	Database DatabaseConfig
	AI       AIConfig
	Batch    BatchConfig
}

// EngineConfig holds core engine configuration
type EngineConfig struct {
	Version     string
	Environment string
	DryRun      bool
}

// StageConfig enables or disables individual pipeline stages
type StageConfig struct {
	Extract    bool
	Marketing  bool
	Compliance bool
	Embeddings bool
}

// StorageConfig holds storage adapter configuration
type StorageConfig struct {
	// Mode is one of "auto", "embedded", "relational"
	Mode       string
	SQLitePath string
}

// DatabaseConfig holds relational backend configuration
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// AIConfig holds AI gateway and provider configuration
type AIConfig struct {
	OpenAIKey      string
	OpenAIModel    string
	AnthropicKey   string
	AnthropicModel string
	Offline        bool
	RateLimitRPM   int
	RateLimitBurst int

	CacheMaxEntries int
	CacheTTL        time.Duration
	SnapshotPath    string

	// Tunable defaults carried over from the original deployment.
	BreakerThreshold      int
	BreakerCooldown       time.Duration
	AutoApproveConfidence float64
}

// BatchConfig holds batch driver configuration
type BatchConfig struct {
	MaxConcurrency int
	WebhookURL     string
	SynonymsPath   string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	return &Config{
		Engine: EngineConfig{
			Version:     getEnv("ENGINE_VERSION", "v1.0.0"),
			Environment: getEnv("APP_ENV", "development"),
			DryRun:      getEnvAsBool("DRY_RUN", false),
		},
		Stages: StageConfig{
			Extract:    getEnvAsBool("STAGE_EXTRACT_ENABLED", true),
			Marketing:  getEnvAsBool("STAGE_MARKETING_ENABLED", true),
			Compliance: getEnvAsBool("STAGE_COMPLIANCE_ENABLED", true),
			Embeddings: getEnvAsBool("STAGE_EMBEDDINGS_ENABLED", false),
		},
		Storage: StorageConfig{
			Mode:       getEnv("STORAGE_MODE", "auto"),
			SQLitePath: getEnv("SQLITE_PATH", "catalog_enrichment.db"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Database: getEnv("DB_NAME", "catalog_enrichment"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		AI: AIConfig{
			OpenAIKey:             getEnv("OPENAI_API_KEY", ""),
			OpenAIModel:           getEnv("OPENAI_MODEL", "gpt-4o-mini"),
			AnthropicKey:          getEnv("ANTHROPIC_API_KEY", ""),
			AnthropicModel:        getEnv("ANTHROPIC_MODEL", "claude-3-5-haiku-latest"),
			Offline:               getEnvAsBool("AI_OFFLINE_MODE", false),
			RateLimitRPM:          getEnvAsInt("AI_RATE_LIMIT_RPM", 60),
			RateLimitBurst:        getEnvAsInt("AI_RATE_LIMIT_BURST", 5),
			CacheMaxEntries:       getEnvAsInt("AI_CACHE_MAX_ENTRIES", 256),
			CacheTTL:              getEnvAsDuration("AI_CACHE_TTL", 7*24*time.Hour),
			SnapshotPath:          getEnv("AI_CACHE_SNAPSHOT_PATH", ""),
			BreakerThreshold:      getEnvAsInt("AI_BREAKER_THRESHOLD", 3),
			BreakerCooldown:       getEnvAsDuration("AI_BREAKER_COOLDOWN", 5*time.Minute),
			AutoApproveConfidence: getEnvAsFloat("AI_AUTO_APPROVE_CONFIDENCE", 0.90),
		},
		Batch: BatchConfig{
			MaxConcurrency: getEnvAsInt("MAX_CONCURRENCY", 3),
			WebhookURL:     getEnv("BATCH_WEBHOOK_URL", ""),
			SynonymsPath:   getEnv("SYNONYMS_PATH", ""),
		},
	}, nil
}

// DatabaseDSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
