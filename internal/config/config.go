package config

import (
	"fmt"
	"os"
)

type Config struct {
	// Design generation API (2D candidate images)
	DesignAPIBaseURL string
	DesignAPIKey     string

	// 3D reconstruction API
	ReconAPIBaseURL string
	ReconAPIKey     string

	// Payment provider
	PaymentAPIBaseURL string
	PaymentAPIKey     string

	// Remote tunable settings document
	SettingsURL string

	// Supabase storage for uploaded input images
	SupabaseURL           string
	SupabaseServiceKey    string
	SupabaseStorageBucket string

	// Email (verification codes)
	SendGridAPIKey string
	EmailFromName  string
	EmailFromAddr  string

	// Identity
	JWTSecret string

	// Verification sentinel for test flows. Never enabled in production.
	TestVerificationEnabled bool
	TestVerificationEmail   string

	// Infra
	DatabaseURL string
	RedisURL    string

	// Server
	Port        string
	Environment string
	BaseURL     string
}

func Load() (*Config, error) {
	cfg := &Config{
		DesignAPIBaseURL: getEnv("DESIGN_API_BASE_URL", "https://api.design-studio.ai/v1/"),
		DesignAPIKey:     getEnv("DESIGN_API_KEY", ""),

		ReconAPIBaseURL: getEnv("RECON_API_BASE_URL", "https://api.recon3d.io/v1/"),
		ReconAPIKey:     getEnv("RECON_API_KEY", ""),

		PaymentAPIBaseURL: getEnv("PAYMENT_API_BASE_URL", ""),
		PaymentAPIKey:     getEnv("PAYMENT_API_KEY", ""),

		SettingsURL: getEnv("SETTINGS_URL", ""),

		SupabaseURL:           getEnv("SUPABASE_URL", ""),
		SupabaseServiceKey:    getEnv("SUPABASE_SERVICE_KEY", ""),
		SupabaseStorageBucket: getEnv("SUPABASE_STORAGE_BUCKET", "input-images"),

		SendGridAPIKey: getEnv("SENDGRID_API_KEY", ""),
		EmailFromName:  getEnv("EMAIL_FROM_NAME", "Atelier"),
		EmailFromAddr:  getEnv("EMAIL_FROM_ADDR", "no-reply@atelier.example"),

		JWTSecret: getEnv("JWT_SECRET", ""),

		TestVerificationEnabled: getEnv("TEST_VERIFICATION_ENABLED", "") == "true",
		TestVerificationEmail:   getEnv("TEST_VERIFICATION_EMAIL", ""),

		DatabaseURL: getEnv("DATABASE_URL", ""),
		RedisURL:    getEnv("REDIS_URL", "redis://localhost:6379/0"),

		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),
		BaseURL:     getEnv("BASE_URL", "http://localhost:8080"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.DesignAPIKey == "" {
		return fmt.Errorf("DESIGN_API_KEY is required")
	}
	if c.ReconAPIKey == "" {
		return fmt.Errorf("RECON_API_KEY is required")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.TestVerificationEnabled && c.Environment == "production" {
		return fmt.Errorf("TEST_VERIFICATION_ENABLED must not be set in production")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
