package config

import (
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	DatabaseURL       string
	Port              string
	IsProduction      bool
	EnableDBCheck     bool
	JWTSecret         string
	JWTExpiryDuration time.Duration
	JWTIssuer         string

	// Rate limiting (requests per period, per client IP)
	RateLimitRequests int64
	RateLimitPeriod   time.Duration
}

// LoadConfig loads configuration from environment variables and .env file if present.
func LoadConfig() (*Config, error) {
	// Attempt to load .env file, ignore error if it doesn't exist
	_ = godotenv.Load()

	viper.SetDefault("PGSQL_URL", "")
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("IS_PRODUCTION", false)
	viper.SetDefault("ENABLE_DB_CHECK", false)
	viper.SetDefault("JWT_SECRET", "a-very-secret-key-should-be-longer-and-random")
	viper.SetDefault("JWT_EXPIRY_DURATION", "1h")
	viper.SetDefault("JWT_ISSUER", "backoffice-app")
	viper.SetDefault("RATE_LIMIT_REQUESTS", 100)
	viper.SetDefault("RATE_LIMIT_PERIOD", "1m")

	viper.AutomaticEnv()

	cfg := &Config{}

	cfg.DatabaseURL = viper.GetString("PGSQL_URL")
	if cfg.DatabaseURL == "" {
		log.Println("Warning: PGSQL_URL environment variable not set.")
	}

	cfg.Port = viper.GetString("PORT")
	if cfg.Port == "" {
		cfg.Port = "8080"
		log.Printf("Warning: PORT environment variable not set. Defaulting to %s\n", cfg.Port)
	}

	jwtSecret := viper.GetString("JWT_SECRET")
	if jwtSecret == "" {
		jwtSecret = "a-very-secret-key-should-be-longer-and-random" // !! CHANGE IN PRODUCTION !!
		log.Println("Warning: JWT_SECRET environment variable not set. Using default insecure key.")
	}

	// JWT expiry, e.g. "60m" or "1h"
	jwtExpiryStr := viper.GetString("JWT_EXPIRY_DURATION")
	jwtExpiryDuration, err := time.ParseDuration(jwtExpiryStr)
	if err != nil {
		jwtExpiryDuration = time.Hour * 1
		if jwtExpiryStr != "" {
			log.Printf("Warning: Invalid value for JWT_EXPIRY_DURATION ('%s'). Defaulting to %s.\n", jwtExpiryStr, jwtExpiryDuration.String())
		}
	}

	jwtIssuer := viper.GetString("JWT_ISSUER")
	if jwtIssuer == "" {
		jwtIssuer = "backoffice-app"
		log.Printf("Warning: JWT_ISSUER not set. Defaulting to %s.\n", jwtIssuer)
	}

	rateLimitPeriodStr := viper.GetString("RATE_LIMIT_PERIOD")
	rateLimitPeriod, err := time.ParseDuration(rateLimitPeriodStr)
	if err != nil {
		rateLimitPeriod = time.Minute
		if rateLimitPeriodStr != "" {
			log.Printf("Warning: Invalid value for RATE_LIMIT_PERIOD ('%s'). Defaulting to %s.\n", rateLimitPeriodStr, rateLimitPeriod.String())
		}
	}

	cfg.IsProduction = viper.GetBool("IS_PRODUCTION")
	cfg.EnableDBCheck = viper.GetBool("ENABLE_DB_CHECK")
	cfg.JWTSecret = jwtSecret
	cfg.JWTExpiryDuration = jwtExpiryDuration
	cfg.JWTIssuer = jwtIssuer
	cfg.RateLimitRequests = viper.GetInt64("RATE_LIMIT_REQUESTS")
	cfg.RateLimitPeriod = rateLimitPeriod

	return cfg, nil
}
