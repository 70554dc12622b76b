package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds the application configuration.
type Config struct {
	ServerPort string
	LogLevel   string

	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	SearchEndpoint string
	SearchAPIKey   string

	OpenAIEndpoint string
	OpenAIKey      string
	OpenAIModel    string

	HeroEndpoint string
	HeroAPIKey   string

	// CrawlerMode selects the crawl provider: "http" or "browser".
	CrawlerMode     string
	MaxConcurrency  int
	CrawlRatePerSec float64
	PageLoadTimeout time.Duration
	ProviderTimeout time.Duration

	DefaultRunDuration time.Duration
	DefaultMaxPages    int
}

// Load loads configuration from environment variables.
func Load() *Config {
	return &Config{
		ServerPort:       getEnv("SERVER_PORT", "8080"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "user"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "password"),
		PostgresDB:       getEnv("POSTGRES_DB", "discovery"),
		RedisAddr:        getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:    getEnv("REDIS_PASSWORD", ""),
		RedisDB:          getEnvAsInt("REDIS_DB", 0),

		SearchEndpoint: getEnv("SEARCH_ENDPOINT", ""),
		SearchAPIKey:   getEnv("SEARCH_API_KEY", ""),

		OpenAIEndpoint: getEnv("OPENAI_ENDPOINT", "https://api.openai.com/v1/chat/completions"),
		OpenAIKey:      getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:    getEnv("OPENAI_MODEL", "gpt-4o-mini"),

		HeroEndpoint: getEnv("HERO_ENDPOINT", ""),
		HeroAPIKey:   getEnv("HERO_API_KEY", ""),

		CrawlerMode:     getEnv("CRAWLER_MODE", "http"),
		MaxConcurrency:  getEnvAsInt("MAX_CONCURRENCY", 4),
		CrawlRatePerSec: getEnvAsFloat("CRAWL_RATE_PER_SEC", 2.0),
		PageLoadTimeout: getEnvAsDuration("PAGE_LOAD_TIMEOUT_SECONDS", 30) * time.Second,
		ProviderTimeout: getEnvAsDuration("PROVIDER_TIMEOUT_SECONDS", 60) * time.Second,

		DefaultRunDuration: getEnvAsDuration("DEFAULT_RUN_DURATION_MINUTES", 10) * time.Minute,
		DefaultMaxPages:    getEnvAsInt("DEFAULT_MAX_PAGES", 25),
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback int) time.Duration {
	return time.Duration(getEnvAsInt(key, fallback))
}
