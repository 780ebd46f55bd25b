package common

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const configPathEnv = "SOLICIT_CONFIG"

// Config holds all application configuration
type Config struct {
	Database  DatabaseConfig  `yaml:"database"`
	Server    ServerConfig    `yaml:"server"`
	OCR       OCRConfig       `yaml:"ocr"`
	Reader    ReaderConfig    `yaml:"reader"`
	Cache     CacheConfig     `yaml:"cache"`
	Extractor ExtractorConfig `yaml:"extractor"`
	Shredder  ShredderConfig  `yaml:"shredder"`
	Batch     BatchConfig     `yaml:"batch"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	LLM       LLMConfig       `yaml:"llm"`
	LogLevel  string          `yaml:"logLevel"`
}

// DatabaseConfig holds database-related configuration. An empty DSN disables persistence.
type DatabaseConfig struct {
	DSN             string        `yaml:"dsn"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
	DialTimeout     time.Duration `yaml:"dialTimeout"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	GRPCAddr string `yaml:"grpcAddr"`
	HTTPAddr string `yaml:"httpAddr"`
}

// OCRConfig holds OCR-related configuration
type OCRConfig struct {
	Pdftotext     string `yaml:"pdftotext"`
	Pdftoppm      string `yaml:"pdftoppm"`
	Tesseract     string `yaml:"tesseract"`
	TesseractLang string `yaml:"tesseractLang"`
	TessdataDir   string `yaml:"tessdataDir"`
	DPI           int    `yaml:"dpi"`
	MaxPages      int    `yaml:"maxPages"`
	PSM           int    `yaml:"psm"`
}

// ReaderConfig tunes scanned-PDF detection.
type ReaderConfig struct {
	ScannedCharsPerPage int `yaml:"scannedCharsPerPage"`
	SamplePages         int `yaml:"samplePages"`
}

// CacheConfig sizes the cache partitions.
type CacheConfig struct {
	MaxEntries        int           `yaml:"maxEntries"`
	DefaultTTL        time.Duration `yaml:"defaultTTL"`
	ScannedMultiplier int           `yaml:"scannedMultiplier"`
	PersistDir        string        `yaml:"persistDir"`
}

// ExtractorConfig bounds what is sent to the oracle.
type ExtractorConfig struct {
	MaxContentChars int `yaml:"maxContentChars"`
	MaxTableChars   int `yaml:"maxTableChars"`
}

// ShredderConfig holds chunking parameters.
type ShredderConfig struct {
	ChunkSize int `yaml:"chunkSize"`
	Overlap   int `yaml:"overlap"`
}

// BatchConfig holds batch processing parameters.
type BatchConfig struct {
	MaxConcurrency   int           `yaml:"maxConcurrency"`
	MaxRetries       int           `yaml:"maxRetries"`
	RetryDelay       time.Duration `yaml:"retryDelay"`
	RateLimitDelay   time.Duration `yaml:"rateLimitDelay"`
	ItemTimeout      time.Duration `yaml:"itemTimeout"`
	ProgressInterval time.Duration `yaml:"progressInterval"`
	QueueWorkers     int           `yaml:"queueWorkers"`
	QueueSize        int           `yaml:"queueSize"`
	JobTimeout       time.Duration `yaml:"jobTimeout"` // bounds one queued batch end to end
}

// MetricsConfig bounds the in-memory metric buffers.
type MetricsConfig struct {
	MaxRecords int `yaml:"maxRecords"`
}

// LLMConfig holds LLM-related configuration
type LLMConfig struct {
	Provider    string        `yaml:"provider"` // openai | langchain
	Model       string        `yaml:"model"`
	APIKey      string        `yaml:"apiKey"`
	BaseURL     string        `yaml:"baseURL"`
	Temperature float32       `yaml:"temperature"`
	Timeout     time.Duration `yaml:"timeout"`
	Lenient     bool          `yaml:"lenient"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			MaxOpenConns:    10,
			MaxIdleConns:    2,
			ConnMaxLifetime: 30 * time.Minute,
			DialTimeout:     3 * time.Second,
		},
		Server: ServerConfig{
			GRPCAddr: ":8080",
			HTTPAddr: ":8081",
		},
		OCR: OCRConfig{
			Pdftotext:     "pdftotext",
			Pdftoppm:      "pdftoppm",
			Tesseract:     "tesseract",
			TesseractLang: "eng",
			DPI:           300,
			MaxPages:      50,
			PSM:           6,
		},
		Reader: ReaderConfig{
			ScannedCharsPerPage: 100,
			SamplePages:         3,
		},
		Cache: CacheConfig{
			MaxEntries:        1000,
			DefaultTTL:        24 * time.Hour,
			ScannedMultiplier: 7,
		},
		Extractor: ExtractorConfig{
			MaxContentChars: 100_000,
			MaxTableChars:   20_000,
		},
		Shredder: ShredderConfig{
			ChunkSize: 1000,
			Overlap:   200,
		},
		Batch: BatchConfig{
			MaxConcurrency:   5,
			MaxRetries:       3,
			RetryDelay:       2 * time.Second,
			RateLimitDelay:   500 * time.Millisecond,
			ItemTimeout:      5 * time.Minute,
			ProgressInterval: time.Second,
			QueueWorkers:     2,
			QueueSize:        64,
			JobTimeout:       time.Hour,
		},
		Metrics: MetricsConfig{
			MaxRecords: 10_000,
		},
		LLM: LLMConfig{
			Provider:    "openai",
			Model:       "gpt-4o-mini",
			BaseURL:     "https://api.openai.com/v1",
			Temperature: 0.0,
			Timeout:     90 * time.Second,
			Lenient:     true,
		},
		LogLevel: "info",
	}
}

// LoadConfig builds defaults, overlays the YAML file named by SOLICIT_CONFIG
// (if any), then applies environment overrides.
func LoadConfig() (*Config, error) {
	cfg := DefaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, NewAppError("CONFIG_ERROR", fmt.Sprintf("read %s", path), err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, NewAppError("CONFIG_ERROR", fmt.Sprintf("parse %s", path), err)
		}
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	c.Database.DSN = getEnv("DB_URL", c.Database.DSN)
	c.Database.MaxOpenConns = getEnvAsInt("DB_MAX_CONNS", c.Database.MaxOpenConns)
	c.Database.DialTimeout = getEnvAsDuration("DB_DIAL_TIMEOUT", c.Database.DialTimeout)

	c.Server.GRPCAddr = getEnv("GRPC_ADDR", c.Server.GRPCAddr)
	c.Server.HTTPAddr = getEnv("HTTP_ADDR", c.Server.HTTPAddr)

	c.OCR.TessdataDir = getEnv("TESSDATA_PREFIX", c.OCR.TessdataDir)
	c.OCR.TesseractLang = getEnv("TESSERACT_LANG", c.OCR.TesseractLang)
	c.OCR.DPI = getEnvAsInt("OCR_DPI", c.OCR.DPI)
	c.OCR.MaxPages = getEnvAsInt("OCR_MAX_PAGES", c.OCR.MaxPages)

	c.Cache.MaxEntries = getEnvAsInt("CACHE_MAX_ENTRIES", c.Cache.MaxEntries)
	c.Cache.DefaultTTL = getEnvAsDuration("CACHE_TTL", c.Cache.DefaultTTL)
	c.Cache.PersistDir = getEnv("CACHE_DIR", c.Cache.PersistDir)

	c.Shredder.ChunkSize = getEnvAsInt("CHUNK_SIZE", c.Shredder.ChunkSize)
	c.Shredder.Overlap = getEnvAsInt("CHUNK_OVERLAP", c.Shredder.Overlap)

	c.Batch.MaxConcurrency = getEnvAsInt("BATCH_MAX_CONCURRENCY", c.Batch.MaxConcurrency)
	c.Batch.MaxRetries = getEnvAsInt("BATCH_MAX_RETRIES", c.Batch.MaxRetries)
	c.Batch.RetryDelay = getEnvAsDuration("BATCH_RETRY_DELAY", c.Batch.RetryDelay)
	c.Batch.RateLimitDelay = getEnvAsDuration("BATCH_RATE_LIMIT_DELAY", c.Batch.RateLimitDelay)
	c.Batch.ItemTimeout = getEnvAsDuration("BATCH_ITEM_TIMEOUT", c.Batch.ItemTimeout)
	c.Batch.JobTimeout = getEnvAsDuration("BATCH_JOB_TIMEOUT", c.Batch.JobTimeout)

	c.LLM.Provider = getEnv("LLM_PROVIDER", c.LLM.Provider)
	c.LLM.Model = getEnv("OPENAI_MODEL", c.LLM.Model)
	c.LLM.APIKey = getEnv("OPENAI_API_KEY", c.LLM.APIKey)
	c.LLM.BaseURL = getEnv("OPENAI_BASE_URL", c.LLM.BaseURL)
	c.LLM.Temperature = getEnvAsFloat32("OPENAI_TEMPERATURE", c.LLM.Temperature)
	c.LLM.Timeout = getEnvAsDuration("OPENAI_TIMEOUT", c.LLM.Timeout)
	c.LLM.Lenient = getEnvAsBool("LLM_LENIENT", c.LLM.Lenient)

	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
}

// SlogLevel maps LogLevel onto a slog.Level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
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

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
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

// Validate checks the loaded configuration. requireLLM is false for
// commands that never reach the oracle (shred, classify).
func (c *Config) Validate(requireLLM bool) error {
	v := NewValidator()
	v.Field("shredder.chunkSize", c.Shredder.ChunkSize, Positive)
	v.Field("shredder.overlap", c.Shredder.Overlap, NonNegative)
	v.Field("cache.maxEntries", c.Cache.MaxEntries, Positive)
	v.Field("batch.maxConcurrency", c.Batch.MaxConcurrency, Positive)
	v.Field("batch.maxRetries", c.Batch.MaxRetries, NonNegative)
	v.Field("extractor.maxContentChars", c.Extractor.MaxContentChars, Positive)
	if c.Shredder.Overlap >= c.Shredder.ChunkSize {
		v.errors = append(v.errors, ValidationError{
			Field: "shredder.overlap", Value: c.Shredder.Overlap, Message: "must be smaller than chunkSize",
		})
	}
	if requireLLM {
		v.Field("llm.provider", c.LLM.Provider, OneOf("openai", "langchain"))
		if c.LLM.Provider == "openai" {
			v.Field("llm.apiKey (OPENAI_API_KEY)", c.LLM.APIKey, Required)
		}
	}
	if v.HasErrors() {
		return NewAppError("CONFIG_ERROR", v.ErrorMessage(), ErrInvalidInput)
	}
	return nil
}
