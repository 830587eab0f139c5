package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the application.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	NewRelic NewRelicConfig
	Fare     FareConfig
	Matching MatchingConfig
	Gateway  GatewayConfig
	Log      LogConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DatabaseConfig holds PostgreSQL configuration.
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// RedisConfig holds Redis configuration.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewRelicConfig holds New Relic configuration.
type NewRelicConfig struct {
	AppName    string
	LicenseKey string
	Enabled    bool
}

// FareConfig holds fare estimation parameters. Money values are whole
// INR units.
type FareConfig struct {
	BaseFare           int64
	RatePerKm          int64
	PerKmMinutes       float64
	MinDurationMinutes int
	TrafficFactorMin   float64
	TrafficFactorMax   float64
	SurgeMin           float64
	SurgeMax           float64
}

// MatchingConfig holds matching engine parameters.
type MatchingConfig struct {
	RadiusKm     float64
	OfferTimeout time.Duration
	// OfferLockGrace is added to the offer timeout for the driver lock TTL
	// so the lock outlives the wait it protects.
	OfferLockGrace time.Duration
}

// GatewayConfig holds external payment gateway configuration.
type GatewayConfig struct {
	Provider       string // stripe, razorpay, memory
	StripeKey      string
	RazorpayKey    string
	RazorpaySecret string
	Timeout        time.Duration
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string
	Format string
}

// Load loads configuration from environment variables.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			ReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 10*time.Second),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "dispatch"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),
		},
		NewRelic: NewRelicConfig{
			AppName:    getEnv("NEW_RELIC_APP_NAME", "dispatch-service"),
			LicenseKey: getEnv("NEW_RELIC_LICENSE_KEY", ""),
			Enabled:    getBoolEnv("NEW_RELIC_ENABLED", false),
		},
		Fare: FareConfig{
			BaseFare:           getInt64Env("FARE_BASE", 50),
			RatePerKm:          getInt64Env("FARE_RATE_PER_KM", 10),
			PerKmMinutes:       getFloatEnv("FARE_PER_KM_MINUTES", 2.0),
			MinDurationMinutes: getIntEnv("FARE_MIN_DURATION_MINUTES", 5),
			TrafficFactorMin:   getFloatEnv("FARE_TRAFFIC_FACTOR_MIN", 1.0),
			TrafficFactorMax:   getFloatEnv("FARE_TRAFFIC_FACTOR_MAX", 1.5),
			SurgeMin:           getFloatEnv("FARE_SURGE_MIN", 1.0),
			SurgeMax:           getFloatEnv("FARE_SURGE_MAX", 2.0),
		},
		Matching: MatchingConfig{
			RadiusKm:       getFloatEnv("MATCHING_RADIUS_KM", 5.0),
			OfferTimeout:   getDurationEnv("MATCHING_OFFER_TIMEOUT", 15*time.Second),
			OfferLockGrace: getDurationEnv("MATCHING_OFFER_LOCK_GRACE", 5*time.Second),
		},
		Gateway: GatewayConfig{
			Provider:       getEnv("GATEWAY_PROVIDER", "memory"),
			StripeKey:      getEnv("GATEWAY_STRIPE_KEY", ""),
			RazorpayKey:    getEnv("GATEWAY_RAZORPAY_KEY", ""),
			RazorpaySecret: getEnv("GATEWAY_RAZORPAY_SECRET", ""),
			Timeout:        getDurationEnv("GATEWAY_TIMEOUT", 10*time.Second),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "text"),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getInt64Env(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
