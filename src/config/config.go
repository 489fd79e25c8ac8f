package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// AppConfig holds all configuration for the application.
// The values are loaded from environment variables.
type AppConfig struct {
	// Core settings
	Port         string
	DatabasePath string
	LogLevel     string

	// Security settings
	JWTSecret          string
	CSRFAuthKey        []byte
	AccessTokenExpiry  time.Duration
	RefreshTokenExpiry time.Duration
	RateLimitRPS       int
	RateLimitBurst     int

	// Exchange price API settings
	PricesAPIBaseURL  string
	PricesUserAgent   string
	CatalogCacheTTL   time.Duration
	LatestCacheTTL    time.Duration
	SeriesCacheTTL    time.Duration
	PricesHTTPTimeout time.Duration

	// Frontend URL for reference (e.g., CORS)
	FrontendBaseURL string

	// Admin Users
	AdminUsernames []string
}

// Cfg is a global instance of the AppConfig.
var Cfg *AppConfig

// LoadConfig loads configuration from environment variables or a .env file.
// It centralizes all configuration logic for the application.
func LoadConfig() {
	// 1. Try loading from the current directory (standard behavior)
	errEnv := godotenv.Load()

	// 2. If not found, try loading from the parent directory (common when running from /backend)
	if errEnv != nil {
		errEnv = godotenv.Load("../.env")
	}

	if errEnv != nil {
		if os.IsNotExist(errEnv) {
			log.Println("Info: No .env file found in current or parent directory. Relying on OS environment variables (expected in production).")
		} else {
			log.Printf("Warning: Error loading .env file: %v. Relying on OS environment variables.", errEnv)
		}
	} else {
		log.Println(".env file loaded successfully.")
	}

	log.Println("Loading application configuration...")

	// --- Security & Tokens (Secrets) ---
	jwtSecret := getRequiredEnv("JWT_SECRET")
	csrfAuthKeyStr := getRequiredEnv("CSRF_AUTH_KEY")

	// --- Token Expiry Durations ---
	accessTokenExpiry := getEnvAsDuration("ACCESS_TOKEN_EXPIRY", 60*time.Minute)
	refreshTokenExpiry := getEnvAsDuration("REFRESH_TOKEN_EXPIRY", 168*time.Hour) // 7 days

	// --- Populate the Global Config Struct ---
	Cfg = &AppConfig{
		// Core
		Port:         getEnv("PORT", "8080"),
		DatabasePath: getEnv("DATABASE_PATH", "./runefolio.db"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),

		// Security
		JWTSecret:          jwtSecret,
		CSRFAuthKey:        []byte(csrfAuthKeyStr),
		AccessTokenExpiry:  accessTokenExpiry,
		RefreshTokenExpiry: refreshTokenExpiry,
		RateLimitRPS:       getEnvAsInt("RATE_LIMIT_RPS", 25),
		RateLimitBurst:     getEnvAsInt("RATE_LIMIT_BURST", 50),

		// Exchange price API. The wiki API refuses anonymous user agents,
		// so the default identifies the project.
		PricesAPIBaseURL:  getEnv("PRICES_API_BASE_URL", "https://prices.runescape.wiki/api/v1/osrs"),
		PricesUserAgent:   getEnv("PRICES_USER_AGENT", "runefolio-backend/1.0 (github.com/username/runefolio)"),
		CatalogCacheTTL:   getEnvAsDuration("CATALOG_CACHE_TTL", 12*time.Hour),
		LatestCacheTTL:    getEnvAsDuration("LATEST_CACHE_TTL", 60*time.Second),
		SeriesCacheTTL:    getEnvAsDuration("SERIES_CACHE_TTL", 15*time.Minute),
		PricesHTTPTimeout: getEnvAsDuration("PRICES_HTTP_TIMEOUT", 20*time.Second),

		// URLs
		FrontendBaseURL: getEnv("APP_BASE_URL", "http://localhost:3000"),

		// Admin Users
		AdminUsernames: getAdminUsernames("ADMIN_USERNAMES"),
	}

	log.Printf("Configuration loaded: Port=%s, LogLevel=%s, DBPath=%s, PricesAPI=%s",
		Cfg.Port, Cfg.LogLevel, Cfg.DatabasePath, Cfg.PricesAPIBaseURL)
	log.Printf("Admin usernames loaded: %d", len(Cfg.AdminUsernames))
}

// getEnv retrieves an environment variable or returns a fallback value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	log.Printf("Environment variable %s not set, using default: %s", key, fallback)
	return fallback
}

// getRequiredEnv retrieves an environment variable or terminates the application if not set.
func getRequiredEnv(key string) string {
	value, exists := os.LookupEnv(key)
	if !exists || strings.TrimSpace(value) == "" {
		log.Fatalf("FATAL: Required environment variable %s is not set or is empty. Application cannot start securely.", key)
	}
	return value
}

// getEnvAsInt retrieves an environment variable as an integer or returns a fallback.
func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	log.Printf("Invalid integer value for %s ('%s'), using default: %d", key, valueStr, fallback)
	return fallback
}

// getEnvAsDuration retrieves an environment variable as a time.Duration or returns a fallback.
func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	log.Printf("Invalid duration value for %s ('%s'), using default: %s", key, valueStr, fallback.String())
	return fallback
}

// getAdminUsernames retrieves and parses the comma-separated list of admin usernames.
func getAdminUsernames(key string) []string {
	namesStr := getEnv(key, "")
	if namesStr == "" {
		return []string{}
	}
	names := strings.Split(namesStr, ",")
	for i, name := range names {
		names[i] = strings.TrimSpace(name)
	}
	return names
}
