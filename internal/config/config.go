package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Default parcel registry region used when a request omits state or county.
const (
	DefaultParcelState  = "CA"
	DefaultParcelCounty = "Los Angeles"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	CORS       CORSConfig
	Auth       AuthConfig
	Parcels    ParcelsConfig
	OpenAI     OpenAIConfig
	Imagery    ImageryConfig
	Checkout   CheckoutConfig
	Generation GenerationConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string
	Env  string
}

// DatabaseConfig holds PostgreSQL connection configuration.
type DatabaseConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	PoolMin  int
	PoolMax  int
}

// CORSConfig holds CORS configuration.
type CORSConfig struct {
	Origins []string
}

// AuthConfig holds the secret used to verify bearer tokens.
type AuthConfig struct {
	JWTSecret string
}

// ParcelsConfig holds parcel registry client configuration.
type ParcelsConfig struct {
	BaseURL       string
	APIKey        string
	APIVersion    string
	DefaultState  string
	DefaultCounty string
	Timeout       time.Duration
	RateLimit     float64 // requests per second, 0 disables limiting
}

// OpenAIConfig holds text-generation provider configuration.
// An empty APIKey disables the provider and every description uses the template.
type OpenAIConfig struct {
	APIKey      string
	Model       string
	BaseURL     string
	MaxTokens   int
	Temperature float32
	Timeout     time.Duration
}

// ImageryConfig holds aerial imagery provider configuration.
type ImageryConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// CheckoutConfig holds checkout-session provider configuration.
type CheckoutConfig struct {
	BaseURL string
	APIKey  string
}

// GenerationConfig bounds listing generation runs.
// StepTimeout applies to every pipeline step and to the listing submission.
type GenerationConfig struct {
	StepTimeout time.Duration
}

// Load reads configuration from environment variables.
// A .env file in the working directory is loaded first when present.
func Load() (*Config, error) {
	cfg := read()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// LoadProviders reads configuration like Load but only validates the
// outbound provider sections. Used by tooling that never opens the database.
func LoadProviders() (*Config, error) {
	cfg := read()

	if err := cfg.ValidateProviders(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func read() *Config {
	// Missing .env is normal outside local development
	_ = godotenv.Load()

	v := viper.New()

	v.SetDefault("PORT", "8080")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_HOST", "host.docker.internal")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_NAME", "acreage")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_POOL_MIN", 2)
	v.SetDefault("DB_POOL_MAX", 10)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000,http://localhost:3001")

	v.SetDefault("PARCELS_BASE_URL", "https://reportallusa.com/api")
	v.SetDefault("PARCELS_API_VERSION", "9")
	v.SetDefault("PARCELS_DEFAULT_STATE", DefaultParcelState)
	v.SetDefault("PARCELS_DEFAULT_COUNTY", DefaultParcelCounty)
	v.SetDefault("PARCELS_TIMEOUT", "15s")
	v.SetDefault("PARCELS_RATE_LIMIT", 5.0)

	v.SetDefault("OPENAI_MODEL", "gpt-4o-mini")
	v.SetDefault("OPENAI_BASE_URL", "https://api.openai.com/v1")
	v.SetDefault("OPENAI_MAX_TOKENS", 300)
	v.SetDefault("OPENAI_TEMPERATURE", 0.7)
	v.SetDefault("OPENAI_TIMEOUT", "30s")

	v.SetDefault("IMAGERY_TIMEOUT", "20s")

	v.SetDefault("GENERATION_STEP_TIMEOUT", "60s")

	v.AutomaticEnv()

	return &Config{
		Server: ServerConfig{
			Port: v.GetString("PORT"),
			Env:  v.GetString("ENV"),
		},
		Database: DatabaseConfig{
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetString("DB_PORT"),
			Name:     v.GetString("DB_NAME"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			PoolMin:  v.GetInt("DB_POOL_MIN"),
			PoolMax:  v.GetInt("DB_POOL_MAX"),
		},
		CORS: CORSConfig{
			Origins: parseOrigins(v.GetString("CORS_ORIGINS")),
		},
		Auth: AuthConfig{
			JWTSecret: v.GetString("JWT_SECRET"),
		},
		Parcels: ParcelsConfig{
			BaseURL:       strings.TrimRight(v.GetString("PARCELS_BASE_URL"), "/"),
			APIKey:        v.GetString("PARCELS_API_KEY"),
			APIVersion:    v.GetString("PARCELS_API_VERSION"),
			DefaultState:  strings.ToUpper(v.GetString("PARCELS_DEFAULT_STATE")),
			DefaultCounty: v.GetString("PARCELS_DEFAULT_COUNTY"),
			Timeout:       v.GetDuration("PARCELS_TIMEOUT"),
			RateLimit:     v.GetFloat64("PARCELS_RATE_LIMIT"),
		},
		OpenAI: OpenAIConfig{
			APIKey:      v.GetString("OPENAI_API_KEY"),
			Model:       v.GetString("OPENAI_MODEL"),
			BaseURL:     strings.TrimRight(v.GetString("OPENAI_BASE_URL"), "/"),
			MaxTokens:   v.GetInt("OPENAI_MAX_TOKENS"),
			Temperature: float32(v.GetFloat64("OPENAI_TEMPERATURE")),
			Timeout:     v.GetDuration("OPENAI_TIMEOUT"),
		},
		Imagery: ImageryConfig{
			BaseURL: strings.TrimRight(v.GetString("IMAGERY_BASE_URL"), "/"),
			APIKey:  v.GetString("IMAGERY_API_KEY"),
			Timeout: v.GetDuration("IMAGERY_TIMEOUT"),
		},
		Checkout: CheckoutConfig{
			BaseURL: strings.TrimRight(v.GetString("CHECKOUT_BASE_URL"), "/"),
			APIKey:  v.GetString("CHECKOUT_API_KEY"),
		},
		Generation: GenerationConfig{
			StepTimeout: v.GetDuration("GENERATION_STEP_TIMEOUT"),
		},
	}
}

// Validate checks that required configuration is present and valid.
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("PORT is required")
	}

	if c.Database.Host == "" {
		return fmt.Errorf("DB_HOST is required")
	}
	if c.Database.Port == "" {
		return fmt.Errorf("DB_PORT is required")
	}
	if c.Database.Name == "" {
		return fmt.Errorf("DB_NAME is required")
	}
	if c.Database.User == "" {
		return fmt.Errorf("DB_USER is required")
	}
	if c.Database.Password == "" {
		return fmt.Errorf("DB_PASSWORD is required")
	}
	if c.Database.PoolMin < 0 {
		return fmt.Errorf("DB_POOL_MIN must be non-negative")
	}
	if c.Database.PoolMax < 1 {
		return fmt.Errorf("DB_POOL_MAX must be at least 1")
	}
	if c.Database.PoolMin > c.Database.PoolMax {
		return fmt.Errorf("DB_POOL_MIN must be less than or equal to DB_POOL_MAX")
	}

	if len(c.CORS.Origins) == 0 {
		return fmt.Errorf("CORS_ORIGINS is required")
	}

	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}

	if c.Generation.StepTimeout <= 0 {
		return fmt.Errorf("GENERATION_STEP_TIMEOUT must be positive")
	}

	return c.ValidateProviders()
}

// ValidateProviders checks the outbound provider sections only.
func (c *Config) ValidateProviders() error {
	if c.Parcels.BaseURL == "" {
		return fmt.Errorf("PARCELS_BASE_URL is required")
	}
	if c.Parcels.APIKey == "" {
		return fmt.Errorf("PARCELS_API_KEY is required")
	}
	if len(c.Parcels.DefaultState) != 2 {
		return fmt.Errorf("PARCELS_DEFAULT_STATE must be a 2-letter state code")
	}
	if c.Parcels.DefaultCounty == "" {
		return fmt.Errorf("PARCELS_DEFAULT_COUNTY is required")
	}
	if c.Parcels.Timeout <= 0 {
		return fmt.Errorf("PARCELS_TIMEOUT must be positive")
	}
	if c.Parcels.RateLimit < 0 {
		return fmt.Errorf("PARCELS_RATE_LIMIT must be non-negative")
	}

	if c.OpenAI.APIKey != "" && c.OpenAI.Model == "" {
		return fmt.Errorf("OPENAI_MODEL is required when OPENAI_API_KEY is set")
	}
	if c.OpenAI.APIKey != "" && c.OpenAI.Timeout <= 0 {
		return fmt.Errorf("OPENAI_TIMEOUT must be positive when OPENAI_API_KEY is set")
	}
	if c.OpenAI.MaxTokens < 1 {
		return fmt.Errorf("OPENAI_MAX_TOKENS must be at least 1")
	}

	if c.Imagery.BaseURL != "" && c.Imagery.Timeout <= 0 {
		return fmt.Errorf("IMAGERY_TIMEOUT must be positive")
	}

	return nil
}

// parseOrigins splits a comma-separated string of origins into a slice.
func parseOrigins(origins string) []string {
	if origins == "" {
		return []string{}
	}

	parts := strings.Split(origins, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
