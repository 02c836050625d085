package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Port               string
	BaseURL            string
	GoogleClientID     string
	GoogleClientSecret string
	SessionSecret      string
	DatabaseURL        string
	Env                string

	// LLM providers
	OpenAIKey         string
	ClassifierModel   string
	AnthropicKey      string
	AnalyzerModel     string
	ClassifyThreshold float64
	ScreenBatchSize   int

	// Object storage (S3-compatible)
	StorageEndpoint  string
	StorageRegion    string
	StorageBucket    string
	StorageAccessKey string
	StorageSecretKey string

	// Scan tuning
	ScanPageSize       int64
	ScanMaxPages       int
	ExternalTimeoutSec int
}

func LoadConfig() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	return &Config{
		Port:               GetEnv("PORT", "8080"),
		BaseURL:            GetEnv("BASE_URL", "http://localhost:8080"),
		GoogleClientID:     GetEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: GetEnv("GOOGLE_CLIENT_SECRET", ""),
		SessionSecret:      GetEnv("SESSION_SECRET", "9f1c3a6e-4b2d-4e8a-9c77-2d5f0b1a8e64"),
		DatabaseURL:        GetEnv("DATABASE_URL", ""),
		Env:                GetEnv("ENV", "development"),

		OpenAIKey:         GetEnv("OPENAI_API_KEY", ""),
		ClassifierModel:   GetEnv("CLASSIFIER_MODEL", "gpt-4o-mini"),
		AnthropicKey:      GetEnv("ANTHROPIC_API_KEY", ""),
		AnalyzerModel:     GetEnv("ANALYZER_MODEL", "claude-3-5-sonnet-20241022"),
		ClassifyThreshold: GetEnvFloat("CLASSIFY_THRESHOLD", 0.5),
		ScreenBatchSize:   GetEnvInt("SCREEN_BATCH_SIZE", 20),

		StorageEndpoint:  GetEnv("STORAGE_ENDPOINT", ""),
		StorageRegion:    GetEnv("STORAGE_REGION", "us-east-1"),
		StorageBucket:    GetEnv("STORAGE_BUCKET", "medvault-documents"),
		StorageAccessKey: GetEnv("STORAGE_ACCESS_KEY", ""),
		StorageSecretKey: GetEnv("STORAGE_SECRET_KEY", ""),

		ScanPageSize:       int64(GetEnvInt("SCAN_PAGE_SIZE", 50)),
		ScanMaxPages:       GetEnvInt("SCAN_MAX_PAGES", 5),
		ExternalTimeoutSec: GetEnvInt("EXTERNAL_TIMEOUT_SECONDS", 30),
	}, nil
}

func GetEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func GetEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func GetEnvFloat(key string, defaultValue float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func (c *Config) Validate() error {
	if c.GoogleClientID == "" {
		return fmt.Errorf("GOOGLE_CLIENT_ID is required")
	}
	if c.GoogleClientSecret == "" {
		return fmt.Errorf("GOOGLE_CLIENT_SECRET is required")
	}
	if c.SessionSecret == "" {
		return fmt.Errorf("SESSION_SECRET is required")
	}
	if c.OpenAIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required")
	}
	if c.AnthropicKey == "" {
		return fmt.Errorf("ANTHROPIC_API_KEY is required")
	}
	if c.ScanPageSize < 1 || c.ScanPageSize > 50 {
		return fmt.Errorf("SCAN_PAGE_SIZE must be between 1 and 50")
	}
	return nil
}
