package config

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"computer-inventory/internal/crypto"

	"github.com/joho/godotenv"
)

// Config holds the application configuration
type Config struct {
	Port     int
	LogLevel string

	Inventory InventoryConfig

	// Database is the optional PostgreSQL mirror.
	Database DatabaseConfig

	NotificationService NotificationConfig

	Security SecurityConfig

	Server ServerConfig
}

// InventoryConfig describes the encrypted inventory file.
type InventoryConfig struct {
	DataFile string
	// Password is read from INVENTORY_PASSWORD. Commands prompt for it when
	// it is empty.
	Password        string
	Compress        bool
	KDFTime         int
	KDFMemoryKiB    int
	KDFThreads      int
	MaxPayload      int64
	LowRAMWarnBelow int
}

// KDFParams returns the Argon2id cost. Only meaningful after validation.
func (c InventoryConfig) KDFParams() crypto.Params {
	return crypto.Params{
		Time:      uint32(c.KDFTime),
		MemoryKiB: uint32(c.KDFMemoryKiB),
		Threads:   uint8(c.KDFThreads),
	}
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Enabled         bool
	Host            string
	Port            int
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// NotificationConfig holds notification service configuration
type NotificationConfig struct {
	URL            string
	Timeout        time.Duration
	RetryAttempts  int
	RetryDelay     time.Duration
	MaxPayloadSize int64
}

// SecurityConfig holds security-related configuration
type SecurityConfig struct {
	RateLimitRPS    int
	RateLimitBurst  int
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
	EnableCORS      bool
	AllowedOrigins  []string
	TrustedProxies  []string
	// JWTSecret enables bearer authentication on mutating routes.
	JWTSecret string
}

// ServerConfig holds server performance configuration
type ServerConfig struct {
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxHeaderBytes int
}

// LoadConfig reads an optional .env file, then the environment, and
// validates the result.
func LoadConfig() (*Config, error) {
	return LoadConfigFrom(".env")
}

// LoadConfigFrom is LoadConfig with an explicit dotenv path. A missing file
// is not an error; variables already set in the environment win.
func LoadConfigFrom(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read %s: %w", envFile, err)
		}
	}

	config := &Config{
		Port:     getEnvAsInt("PORT", 8080),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		Inventory: InventoryConfig{
			DataFile:        getEnv("INVENTORY_FILE", "inventory.pcinv"),
			Password:        getEnv("INVENTORY_PASSWORD", ""),
			Compress:        getEnvAsBool("INVENTORY_COMPRESS", true),
			KDFTime:         getEnvAsInt("INVENTORY_KDF_TIME", 3),
			KDFMemoryKiB:    getEnvAsInt("INVENTORY_KDF_MEMORY_KIB", 64*1024),
			KDFThreads:      getEnvAsInt("INVENTORY_KDF_THREADS", 4),
			MaxPayload:      getEnvAsInt64("INVENTORY_MAX_PAYLOAD", 256<<20),
			LowRAMWarnBelow: getEnvAsInt("INVENTORY_LOW_RAM_WARN_BELOW", 0),
		},

		Database: DatabaseConfig{
			Enabled:         getEnvAsBool("DB_ENABLED", false),
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnvAsInt("DB_PORT", 5432),
			User:            getEnv("DB_USER", ""),
			Password:        getEnv("DB_PASSWORD", ""),
			Name:            getEnv("DB_NAME", ""),
			SSLMode:         getEnv("DB_SSL_MODE", "disable"),
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 5),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
			ConnMaxIdleTime: getEnvAsDuration("DB_CONN_MAX_IDLE_TIME", 5*time.Minute),
		},

		NotificationService: NotificationConfig{
			URL:            getEnv("NOTIFIER_URL", ""),
			Timeout:        getEnvAsDuration("NOTIFIER_TIMEOUT", 10*time.Second),
			RetryAttempts:  getEnvAsInt("NOTIFIER_RETRY_ATTEMPTS", 3),
			RetryDelay:     getEnvAsDuration("NOTIFIER_RETRY_DELAY", time.Second),
			MaxPayloadSize: getEnvAsInt64("NOTIFIER_MAX_PAYLOAD_SIZE", 1024*1024),
		},

		Security: SecurityConfig{
			RateLimitRPS:    getEnvAsInt("RATE_LIMIT_RPS", 100),
			RateLimitBurst:  getEnvAsInt("RATE_LIMIT_BURST", 200),
			RequestTimeout:  getEnvAsDuration("REQUEST_TIMEOUT", 30*time.Second),
			ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT", 30*time.Second),
			EnableCORS:      getEnvAsBool("ENABLE_CORS", true),
			AllowedOrigins:  getEnvAsSlice("ALLOWED_ORIGINS", []string{"*"}),
			TrustedProxies:  getEnvAsSlice("TRUSTED_PROXIES", []string{}),
			JWTSecret:       getEnv("JWT_SECRET", ""),
		},

		Server: ServerConfig{
			ReadTimeout:    getEnvAsDuration("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:   getEnvAsDuration("SERVER_WRITE_TIMEOUT", 10*time.Second),
			IdleTimeout:    getEnvAsDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
			MaxHeaderBytes: getEnvAsInt("SERVER_MAX_HEADER_BYTES", 1<<20),
		},
	}

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// validateConfig reports every problem at once.
func validateConfig(config *Config) error {
	var errors []string

	if config.Port < 1 || config.Port > 65535 {
		errors = append(errors, "port must be between 1 and 65535")
	}
	switch config.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		errors = append(errors, fmt.Sprintf("unknown log level %q", config.LogLevel))
	}

	if config.Inventory.DataFile == "" {
		errors = append(errors, "inventory file is required")
	}
	errors = append(errors, validateKDF(config.Inventory)...)
	if config.Inventory.MaxPayload < 1024 {
		errors = append(errors, "inventory max payload must be at least 1024 bytes")
	}

	if config.Database.Enabled {
		if config.Database.User == "" {
			errors = append(errors, "database user is required")
		}
		if config.Database.Name == "" {
			errors = append(errors, "database name is required")
		}
		if config.Database.Port < 1 || config.Database.Port > 65535 {
			errors = append(errors, "database port must be between 1 and 65535")
		}
		switch config.Database.SSLMode {
		case "disable", "require", "verify-ca", "verify-full":
		default:
			errors = append(errors, fmt.Sprintf("unknown database SSL mode %q", config.Database.SSLMode))
		}
	}

	if config.NotificationService.RetryAttempts < 0 || config.NotificationService.RetryAttempts > 10 {
		errors = append(errors, "notifier retry attempts must be between 0 and 10")
	}
	if config.Security.RateLimitRPS < 1 || config.Security.RateLimitBurst < 1 {
		errors = append(errors, "rate limit must be positive")
	}

	if len(errors) > 0 {
		return fmt.Errorf("validation errors: %s", strings.Join(errors, "; "))
	}

	return nil
}

// validateKDF checks the raw values before they are narrowed into
// crypto.Params, then applies the cipher's own bounds.
func validateKDF(inv InventoryConfig) []string {
	var errors []string
	if inv.KDFTime < 1 || int64(inv.KDFTime) > math.MaxUint32 {
		errors = append(errors, fmt.Sprintf("KDF time %d is out of range", inv.KDFTime))
	}
	if inv.KDFMemoryKiB < 1 || int64(inv.KDFMemoryKiB) > math.MaxUint32 {
		errors = append(errors, fmt.Sprintf("KDF memory %d KiB is out of range", inv.KDFMemoryKiB))
	}
	if inv.KDFThreads < 1 || inv.KDFThreads > math.MaxUint8 {
		errors = append(errors, "KDF threads must be between 1 and 255")
	}
	if len(errors) > 0 {
		return errors
	}

	if err := inv.KDFParams().Validate(); err != nil {
		errors = append(errors, "KDF: "+err.Error())
	}
	return errors
}

// GetDatabaseDSN returns the database connection string
func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host, c.Database.Port, c.Database.User,
		c.Database.Password, c.Database.Name, c.Database.SSLMode)
}

// Helper functions for environment variable parsing

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return strings.Split(value, ",")
	}
	return defaultValue
}
