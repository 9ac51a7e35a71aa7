package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Ledger backends
const (
	LedgerBackendPostgres = "postgres"
	LedgerBackendMemory   = "memory"
)

// Config holds all configuration for the application
type Config struct {
	// Ledger storage
	LedgerBackend string
	DatabaseURL   string
	AutoMigrate   bool

	// Auth0 (admin routes and WebSocket tokens; optional)
	Auth0Domain   string
	Auth0Audience string

	// Server
	Port        string
	CORSOrigins []string
	Env         string

	// Rate limiting
	RateLimitPerMinute int
	RateLimitBurst     int

	// Program bootstrap (optional; runs initialize at startup)
	Program ProgramConfig

	// Event relay
	Relay RelayConfig
	Kafka KafkaConfig
	S3    S3Config
}

// ProgramConfig holds the parameters for initializing the settlement program at startup
type ProgramConfig struct {
	Authority    string
	Mint         string
	TokenProgram string
	Decimals     int
}

// Enabled reports whether bootstrap parameters were supplied
func (p ProgramConfig) Enabled() bool {
	return p.Mint != ""
}

// RelayConfig holds settlement event relay settings
type RelayConfig struct {
	Interval  time.Duration
	BatchSize int
}

// KafkaConfig holds Kafka producer settings. Empty Brokers disables the sink.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// S3Config holds AWS S3 configuration. Empty Bucket disables the archive.
type S3Config struct {
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	Endpoint        string // Optional: for MinIO/LocalStack local dev
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{
		LedgerBackend:      getEnv("LEDGER_BACKEND", LedgerBackendPostgres),
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		AutoMigrate:        getEnvBool("AUTO_MIGRATE", true),
		Auth0Domain:        getEnv("AUTH0_DOMAIN", ""),
		Auth0Audience:      getEnv("AUTH0_AUDIENCE", ""),
		Port:               getEnv("PORT", "8080"),
		CORSOrigins:        splitList(getEnv("CORS_ORIGINS", "http://localhost:3000")),
		Env:                getEnv("ENV", "development"),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 100),
		RateLimitBurst:     getEnvInt("RATE_LIMIT_BURST", 10),
		Program: ProgramConfig{
			Authority:    getEnv("PROGRAM_AUTHORITY", ""),
			Mint:         getEnv("PROGRAM_MINT", ""),
			TokenProgram: getEnv("PROGRAM_TOKEN_PROGRAM", ""),
			Decimals:     getEnvInt("PROGRAM_DECIMALS", 6),
		},
		Relay: RelayConfig{
			Interval:  getEnvDuration("RELAY_INTERVAL", 5*time.Second),
			BatchSize: getEnvInt("RELAY_BATCH_SIZE", 100),
		},
		Kafka: KafkaConfig{
			Brokers: splitList(getEnv("KAFKA_BROKERS", "")),
			Topic:   getEnv("KAFKA_SETTLEMENT_TOPIC", "bazaar.settlements"),
		},
		S3: S3Config{
			Region:          getEnv("S3_REGION", "us-east-1"),
			Bucket:          getEnv("S3_BUCKET", ""),
			AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
			Endpoint:        getEnv("S3_ENDPOINT", ""),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// AuthEnabled reports whether Auth0 is configured
func (c *Config) AuthEnabled() bool {
	return c.Auth0Domain != "" && c.Auth0Audience != ""
}

func (c *Config) validate() error {
	switch c.LedgerBackend {
	case LedgerBackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required")
		}
	case LedgerBackendMemory:
	default:
		return fmt.Errorf("LEDGER_BACKEND must be %q or %q, got %q", LedgerBackendPostgres, LedgerBackendMemory, c.LedgerBackend)
	}
	if (c.Auth0Domain == "") != (c.Auth0Audience == "") {
		return fmt.Errorf("AUTH0_DOMAIN and AUTH0_AUDIENCE must be set together")
	}
	if c.RateLimitPerMinute <= 0 || c.RateLimitBurst <= 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE and RATE_LIMIT_BURST must be positive")
	}
	if c.Program.Enabled() {
		if c.Program.Authority == "" || c.Program.TokenProgram == "" {
			return fmt.Errorf("PROGRAM_AUTHORITY and PROGRAM_TOKEN_PROGRAM are required with PROGRAM_MINT")
		}
		if c.Program.Decimals < 0 || c.Program.Decimals > 255 {
			return fmt.Errorf("PROGRAM_DECIMALS must be between 0 and 255")
		}
	}
	if len(c.Kafka.Brokers) > 0 && c.Kafka.Topic == "" {
		return fmt.Errorf("KAFKA_SETTLEMENT_TOPIC is required with KAFKA_BROKERS")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func splitList(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
