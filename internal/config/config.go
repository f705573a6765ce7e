package config

import (
	"os"
	"strconv"
)

type Config struct {
	// Server
	Port string

	// Database
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// Sessions
	SessionSecret string

	// Perplexity
	PerplexityAPIKey  string
	PerplexityBaseURL string
	PerplexityModel   string

	// Rate limits
	LoginLimitPerMinute int
	SignupLimitPerHour  int
}

func Load() *Config {
	loginLimit, _ := strconv.Atoi(getEnv("LOGIN_LIMIT_PER_MINUTE", "5"))
	signupLimit, _ := strconv.Atoi(getEnv("SIGNUP_LIMIT_PER_HOUR", "3"))
	return &Config{
		Port:                getEnv("PORT", "8080"),
		DBHost:              getEnv("DB_HOST", "localhost"),
		DBPort:              getEnv("DB_PORT", "5432"),
		DBUser:              getEnv("DB_USER", "postgres"),
		DBPassword:          getEnv("DB_PASSWORD", ""),
		DBName:              getEnv("DB_NAME", "thomas_db"),
		DBSSLMode:           getEnv("DB_SSLMODE", "disable"),
		SessionSecret:       getEnv("SECRET_KEY", ""),
		PerplexityAPIKey:    getEnv("PERPLEXITY_API_KEY", ""),
		PerplexityBaseURL:   getEnv("PERPLEXITY_BASE_URL", "https://api.perplexity.ai/chat/completions"),
		PerplexityModel:     getEnv("PERPLEXITY_MODEL", "sonar"),
		LoginLimitPerMinute: loginLimit,
		SignupLimitPerHour:  signupLimit,
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
