package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StorageMongo  = "mongo"
	StorageMemory = "memory"
)

// Config holds server configuration.
type Config struct {
	Port            string
	JWTSecret       string
	TokenTTL        time.Duration
	MongoURI        string
	MongoDBName     string
	Storage         string
	AllowedOrigins  []string
	LogLevel        string
	LogFile         string
	AuthRateRPS     float64
	AuthRateBurst   int
	ShutdownTimeout time.Duration
}

// Load reads an optional .env file and then the environment.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", f, err)
		}
	}

	cfg := &Config{
		Port:        getEnv("SERVER_PORT", "5000"),
		JWTSecret:   os.Getenv("JWT_SECRET"),
		MongoURI:    getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDBName: getEnv("MONGO_DB_NAME", "project-planner"),
		Storage:     strings.ToLower(getEnv("STORAGE", StorageMongo)),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogFile:     os.Getenv("LOG_FILE"),
		AllowedOrigins: splitList(getEnv("CORS_ORIGINS",
			"http://localhost:5173,http://localhost:5174")),
	}

	var err error
	if cfg.TokenTTL, err = getDuration("TOKEN_TTL", 7*24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.ShutdownTimeout, err = getDuration("SHUTDOWN_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.AuthRateRPS, err = getFloat("AUTH_RATE_RPS", 5); err != nil {
		return nil, err
	}
	if cfg.AuthRateBurst, err = getInt("AUTH_RATE_BURST", 10); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is not set")
	}
	if c.Storage != StorageMongo && c.Storage != StorageMemory {
		return fmt.Errorf("unknown STORAGE %q (want %q or %q)", c.Storage, StorageMongo, StorageMemory)
	}
	if c.TokenTTL <= 0 {
		return errors.New("TOKEN_TTL must be positive")
	}
	if c.AuthRateRPS <= 0 {
		return errors.New("AUTH_RATE_RPS must be positive")
	}
	if c.AuthRateBurst <= 0 {
		return errors.New("AUTH_RATE_BURST must be positive")
	}
	if _, err := strconv.Atoi(c.Port); err != nil {
		return fmt.Errorf("invalid SERVER_PORT %q", c.Port)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
