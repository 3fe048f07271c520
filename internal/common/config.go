package common

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Database   DatabaseConfig
	Server     ServerConfig
	OCR        OCRConfig
	Extraction ExtractionConfig
	Log        LogConfig
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	Driver           string // "postgres" | "sqlite"
	DSN              string
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	HTTPAddr       string
	GRPCAddr       string
	RateLimitEvery time.Duration
	RateLimitBurst int
	ShutdownGrace  time.Duration
}

// OCRConfig holds OCR-related configuration
type OCRConfig struct {
	Engine        string // "azure" | "tesseract"
	AzureEndpoint string
	AzureKey      string
	AzureLanguage string
	PollInterval  time.Duration
	MaxPolls      int
	Timeout       time.Duration
	Tesseract     string
	TessdataDir   string
	TesseractLang string
	TesseractPSM  int

	// FetchMaxBytes caps images the local engine downloads by URL.
	FetchMaxBytes     int
	// FetchPrivateHosts allows those downloads to reach private networks.
	FetchPrivateHosts bool
}

// ExtractionConfig points at optional keyword tables.
type ExtractionConfig struct {
	KeywordsFile string
}

type LogConfig struct {
	Level  string
	Format string
}

// LoadConfig loads configuration from environment variables, after merging
// a .env file from the working directory when one exists.
func LoadConfig() *Config {
	_ = godotenv.Load()

	return &Config{
		Database: DatabaseConfig{
			Driver:           strings.ToLower(getEnv("DB_DRIVER", "postgres")),
			DSN:              getEnv("DB_URL", ""),
			MaxConns:         getEnvAsInt32("DB_MAX_CONNS", 20),
			MinConns:         getEnvAsInt32("DB_MIN_CONNS", 5),
			MaxConnLifetime:  getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime:  getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:      getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
			StatementTimeout: getEnvAsDuration("DB_STATEMENT_TIMEOUT", 0),
		},
		Server: ServerConfig{
			HTTPAddr:       getEnv("HTTP_ADDR", ":3000"),
			GRPCAddr:       getEnv("GRPC_ADDR", ":8080"),
			RateLimitEvery: getEnvAsDuration("RATE_LIMIT_EVERY", 100*time.Millisecond),
			RateLimitBurst: getEnvAsInt("RATE_LIMIT_BURST", 30),
			ShutdownGrace:  getEnvAsDuration("SHUTDOWN_GRACE", 15*time.Second),
		},
		OCR: OCRConfig{
			Engine:            strings.ToLower(getEnv("OCR_ENGINE", "azure")),
			AzureEndpoint:     getEnv("AZURE_VISION_ENDPOINT", ""),
			AzureKey:          getEnv("AZURE_VISION_KEY", ""),
			AzureLanguage:     getEnv("AZURE_VISION_LANGUAGE", ""),
			PollInterval:      getEnvAsDuration("OCR_POLL_INTERVAL", time.Second),
			MaxPolls:          getEnvAsInt("OCR_MAX_POLLS", 0),
			Timeout:           getEnvAsDuration("OCR_TIMEOUT", 2*time.Minute),
			Tesseract:         getEnv("TESSERACT_BIN", "tesseract"),
			TessdataDir:       getEnv("TESSDATA_PREFIX", ""),
			TesseractLang:     getEnv("TESSERACT_LANG", "eng"),
			TesseractPSM:      getEnvAsInt("TESSERACT_PSM", 0),
			FetchMaxBytes:     getEnvAsInt("OCR_FETCH_MAX_BYTES", 20<<20),
			FetchPrivateHosts: getEnvAsBool("OCR_FETCH_PRIVATE_HOSTS", false),
		},
		Extraction: ExtractionConfig{
			KeywordsFile: getEnv("KEYWORDS_FILE", ""),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: strings.ToLower(getEnv("LOG_FORMAT", "text")),
		},
	}
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

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
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

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return NewAppError("CONFIG_ERROR", "DB_DRIVER must be postgres or sqlite", ErrInvalidInput)
	}
	if c.Database.DSN == "" {
		return NewAppError("CONFIG_ERROR", "DB_URL is required", ErrInvalidInput)
	}
	if c.Server.HTTPAddr == "" && c.Server.GRPCAddr == "" {
		return NewAppError("CONFIG_ERROR", "HTTP_ADDR or GRPC_ADDR is required", ErrInvalidInput)
	}
	switch c.OCR.Engine {
	case "azure":
		if c.OCR.AzureEndpoint == "" || c.OCR.AzureKey == "" {
			return NewAppError("CONFIG_ERROR", "AZURE_VISION_ENDPOINT and AZURE_VISION_KEY are required", ErrInvalidInput)
		}
	case "tesseract":
	default:
		return NewAppError("CONFIG_ERROR", "OCR_ENGINE must be azure or tesseract", ErrInvalidInput)
	}
	if c.OCR.MaxPolls < 0 {
		return NewAppError("CONFIG_ERROR", "OCR_MAX_POLLS must not be negative", ErrInvalidInput)
	}
	return nil
}
