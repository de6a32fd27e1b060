package internal

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env         string
	Port        int
	LogLevel    string
	DatabaseUrl string

	// Application base URL (for SMS resource links and payment redirects)
	BaseURL string

	// Storage Configuration
	StorageProvider string // "local" or "r2"

	// Local Storage (development)
	LocalStoragePath string // Base directory for local file storage
	LocalStorageURL  string // Base URL for accessing local files

	// R2 Storage (production)
	R2AccountID       string
	R2AccessKeyID     string
	R2SecretAccessKey string
	R2BucketName      string
	R2PublicURL       string // Optional custom domain URL

	// Worker Configuration
	WorkerEnabled      bool
	WorkerConcurrency  int
	WorkerPollInterval time.Duration
	WorkerJobTimeout   time.Duration

	// AI Provider Configuration
	AIProvider string // "openai" or "mock"
	AIAPIKey   string
	AIBaseURL  string // Override for OpenAI-compatible endpoints
	AIModel    string

	// Payment Provider Configuration
	// The mobile-money providers cover the primary markets: Flutterwave
	// for multi-country, Paystack for Nigeria and Ghana. Leaving the
	// provider unset disables payments entirely; the server then runs
	// without the checkout, verify and webhook routes.
	PaymentProvider          string // "flutterwave", "paystack" or "" (disabled)
	FlutterwaveSecretKey     string
	FlutterwaveWebhookSecret string // verif-hash value set in the dashboard
	PaystackSecretKey        string

	// Africa's Talking (USSD and SMS)
	// Username "sandbox" routes SMS through the sandbox API.
	ATUsername string
	ATAPIKey   string
	ATFrom     string // Optional sender ID or short code

	// Metrics endpoint authentication
	// If both are empty, the /metrics endpoint will be unprotected (not recommended)
	MetricsUsername string
	MetricsPassword string

	// Admin endpoint authentication
	// If empty, the /api/admin endpoints are disabled.
	AdminToken string
}

func NewConfig() (*Config, error) {
	// Load .env file if it exists (ignored in production)
	_ = godotenv.Load()

	cfg := &Config{
		Env:      getEnv("ENV", "development"),
		Port:     getEnvInt("PORT", 8080),
		LogLevel: getEnv("LOG_LEVEL", "debug"),

		// Base URL defaults to localhost for development
		BaseURL: getEnv("BASE_URL", "http://localhost:8080"),

		// Storage defaults to local filesystem for development
		StorageProvider:  getEnv("STORAGE_PROVIDER", "local"),
		LocalStoragePath: getEnv("LOCAL_STORAGE_PATH", "./storage"),
		LocalStorageURL:  getEnv("LOCAL_STORAGE_URL", "http://localhost:8080/files"),

		// R2 configuration (production only)
		R2AccountID:       getEnv("R2_ACCOUNT_ID", ""),
		R2AccessKeyID:     getEnv("R2_ACCESS_KEY_ID", ""),
		R2SecretAccessKey: getEnv("R2_SECRET_ACCESS_KEY", ""),
		R2BucketName:      getEnv("R2_BUCKET_NAME", ""),
		R2PublicURL:       getEnv("R2_PUBLIC_URL", ""),

		// Worker defaults
		WorkerEnabled:      getEnvBool("WORKER_ENABLED", true),
		WorkerConcurrency:  getEnvInt("WORKER_CONCURRENCY", 2),
		WorkerPollInterval: getEnvDuration("WORKER_POLL_INTERVAL", 5*time.Second),
		WorkerJobTimeout:   getEnvDuration("WORKER_JOB_TIMEOUT", 5*time.Minute),

		// AI provider defaults
		AIProvider: getEnv("AI_PROVIDER", "mock"),
		AIAPIKey:   getEnv("AI_API_KEY", ""),
		AIBaseURL:  getEnv("AI_BASE_URL", ""),
		AIModel:    getEnv("AI_MODEL", "gpt-4o-mini"),

		// Payments stay disabled until a provider is configured
		PaymentProvider:          getEnv("PAYMENT_PROVIDER", ""),
		FlutterwaveSecretKey:     getEnv("FLW_SECRET_KEY", ""),
		FlutterwaveWebhookSecret: getEnv("FLW_WEBHOOK_HASH", ""),
		PaystackSecretKey:        getEnv("PAYSTACK_SECRET_KEY", ""),

		// Africa's Talking defaults to sandbox for development
		ATUsername: getEnv("AT_USERNAME", "sandbox"),
		ATAPIKey:   getEnv("AT_API_KEY", ""),
		ATFrom:     getEnv("AT_FROM", ""),

		// Metrics authentication
		MetricsUsername: getEnv("METRICS_USERNAME", ""),
		MetricsPassword: getEnv("METRICS_PASSWORD", ""),

		// Admin authentication
		AdminToken: getEnv("ADMIN_TOKEN", ""),
	}

	// Required
	cfg.DatabaseUrl = os.Getenv("DATABASE_URL")
	if cfg.DatabaseUrl == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	// Validate storage configuration
	if cfg.StorageProvider == "r2" {
		if cfg.R2AccountID == "" {
			return nil, fmt.Errorf("R2_ACCOUNT_ID is required when STORAGE_PROVIDER is 'r2'")
		}
		if cfg.R2AccessKeyID == "" {
			return nil, fmt.Errorf("R2_ACCESS_KEY_ID is required when STORAGE_PROVIDER is 'r2'")
		}
		if cfg.R2SecretAccessKey == "" {
			return nil, fmt.Errorf("R2_SECRET_ACCESS_KEY is required when STORAGE_PROVIDER is 'r2'")
		}
		if cfg.R2BucketName == "" {
			return nil, fmt.Errorf("R2_BUCKET_NAME is required when STORAGE_PROVIDER is 'r2'")
		}
	} else if cfg.StorageProvider != "local" {
		return nil, fmt.Errorf("STORAGE_PROVIDER must be either 'local' or 'r2', got: %s", cfg.StorageProvider)
	}

	// Validate AI provider configuration
	if cfg.AIProvider == "openai" {
		if cfg.AIAPIKey == "" {
			return nil, fmt.Errorf("AI_API_KEY is required when AI_PROVIDER is 'openai'")
		}
	} else if cfg.AIProvider != "mock" {
		return nil, fmt.Errorf("AI_PROVIDER must be either 'openai' or 'mock', got: %s", cfg.AIProvider)
	}

	// Validate payment provider configuration; empty means disabled
	switch cfg.PaymentProvider {
	case "", "flutterwave", "paystack":
	default:
		return nil, fmt.Errorf("PAYMENT_PROVIDER must be 'flutterwave', 'paystack' or unset, got: %s", cfg.PaymentProvider)
	}
	if cfg.Env != "development" {
		if cfg.PaymentProvider == "flutterwave" && cfg.FlutterwaveSecretKey == "" {
			return nil, fmt.Errorf("FLW_SECRET_KEY is required when PAYMENT_PROVIDER is 'flutterwave'")
		}
		if cfg.PaymentProvider == "paystack" && cfg.PaystackSecretKey == "" {
			return nil, fmt.Errorf("PAYSTACK_SECRET_KEY is required when PAYMENT_PROVIDER is 'paystack'")
		}
	}

	return cfg, nil
}

// PaymentsEnabled reports whether a payment provider is configured.
func (c *Config) PaymentsEnabled() bool {
	return c.PaymentProvider != ""
}

// PaymentSecretKey returns the secret key for the configured provider.
func (c *Config) PaymentSecretKey() string {
	if c.PaymentProvider == "paystack" {
		return c.PaystackSecretKey
	}
	return c.FlutterwaveSecretKey
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
