package config

import (
	"encoding/hex"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	// Server
	Env                string
	Port               string
	LocalAPIKey        string
	CORSAllowedOrigins []string

	// Remote finance backend
	BackendURL     string
	RequestTimeout time.Duration

	// Local store
	DBDriver      string
	DBPath        string
	DBHost        string
	DBPort        string
	DBUser        string
	DBPassword    string
	DBName        string
	DBSSLMode     string
	MigrationsDir string
	TokenStoreKey []byte

	// Heuristics
	RulesFile                  string
	DebounceDelay              time.Duration
	MaxUploadBytes             int64
	ProcessingEstimate         time.Duration
	SlowProcessingWarning      time.Duration
	DuplicateWindowDays        int
	DuplicateFetchLimit        int
	DuplicateStrategy          string
	DuplicateMinDescriptionLen int
	SaveConcurrency            int
	Location                   *time.Location
	FormIdleTTL                time.Duration
}

var appConfig *Config

// Load loads configuration from environment variables
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	config := &Config{
		Env:                getEnv("ENV", "development"),
		Port:               getEnv("PORT", "8080"),
		LocalAPIKey:        getEnv("LOCAL_API_KEY", ""),
		CORSAllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:5173")),

		BackendURL:     strings.TrimRight(getEnv("BACKEND_URL", "http://localhost:5000/api"), "/"),
		RequestTimeout: getDuration("REQUEST_TIMEOUT", 30*time.Second),

		DBDriver:      getEnv("DB_DRIVER", "sqlite"),
		DBPath:        getEnv("DB_PATH", "fintrack.db"),
		DBHost:        getEnv("DB_HOST", "localhost"),
		DBPort:        getEnv("DB_PORT", "5432"),
		DBUser:        getEnv("DB_USER", "fintrack"),
		DBPassword:    getEnv("DB_PASSWORD", "fintrack"),
		DBName:        getEnv("DB_NAME", "fintrack"),
		DBSSLMode:     getEnv("DB_SSLMODE", "disable"),
		MigrationsDir: getEnv("MIGRATIONS_DIR", "migrations"),

		RulesFile:                  getEnv("RULES_FILE", ""),
		DebounceDelay:              getDuration("DEBOUNCE_DELAY", time.Second),
		MaxUploadBytes:             int64(getInt("MAX_UPLOAD_BYTES", 10*1024*1024)),
		ProcessingEstimate:         getDuration("PROCESSING_ESTIMATE", 15*time.Second),
		SlowProcessingWarning:      getDuration("SLOW_PROCESSING_WARNING", 20*time.Second),
		DuplicateWindowDays:        getInt("DUPLICATE_WINDOW_DAYS", 30),
		DuplicateFetchLimit:        getInt("DUPLICATE_FETCH_LIMIT", 100),
		DuplicateStrategy:          getEnv("DUPLICATE_STRATEGY", "sequential"),
		DuplicateMinDescriptionLen: getInt("DUPLICATE_MIN_DESCRIPTION_LEN", 0),
		SaveConcurrency:            getInt("SAVE_CONCURRENCY", 4),
		FormIdleTTL:                getDuration("FORM_IDLE_TTL", 30*time.Minute),
	}

	switch config.DBDriver {
	case "sqlite", "postgres":
	default:
		return nil, fmt.Errorf("invalid DB_DRIVER %q: must be sqlite or postgres", config.DBDriver)
	}

	switch config.DuplicateStrategy {
	case "sequential", "batched":
	default:
		return nil, fmt.Errorf("invalid DUPLICATE_STRATEGY %q: must be sequential or batched", config.DuplicateStrategy)
	}

	loc, err := loadLocation(getEnv("TIMEZONE", "Local"))
	if err != nil {
		return nil, err
	}
	config.Location = loc

	if raw := getEnv("TOKEN_STORE_KEY", ""); raw != "" {
		key, err := hex.DecodeString(raw)
		if err != nil || len(key) != 32 {
			return nil, fmt.Errorf("TOKEN_STORE_KEY must be 64 hex characters (32 bytes)")
		}
		config.TokenStoreKey = key
	}

	appConfig = config
	return config, nil
}

// Get returns the application configuration
func Get() *Config {
	if appConfig == nil {
		var err error
		appConfig, err = Load()
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}
	}
	return appConfig
}

// IsProduction reports whether the service runs with production settings.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		log.Printf("Warning: invalid %s value '%s', falling back to %s\n", key, raw, defaultValue)
		return defaultValue
	}
	return d
}

func getInt(key string, defaultValue int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		log.Printf("Warning: invalid %s value '%s', falling back to %d\n", key, raw, defaultValue)
		return defaultValue
	}
	return n
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func loadLocation(name string) (*time.Location, error) {
	if name == "" || name == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", name, err)
	}
	return loc, nil
}
