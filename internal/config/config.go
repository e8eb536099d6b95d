package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// AppName is used as the log prefix and metrics namespace
const AppName = "house-price-estimator"

// Encoding modes
const (
	// ModePersisted applies the preprocessor stored in the model artifact
	ModePersisted = "persisted"
	// ModeRefit refits encoder and scaler against the reference dataset on every request
	ModeRefit = "refit"
)

// Default file names inside DataDir
const (
	DefaultReferenceFile = "prepared_data.csv"
	DefaultModelFile     = "house_price_model.gob"
)

// Config holds the application configuration
type Config struct {
	Port           int      `env:"PORT" envDefault:"8080"`
	DataDir        string   `env:"DATA_DIR" envDefault:"./data"`
	ModelPath      string   `env:"MODEL_PATH"`
	ReferencePath  string   `env:"REFERENCE_DATASET"`
	EncodingMode   string   `env:"ENCODING_MODE" envDefault:"persisted"`
	Locale         string   `env:"LOCALE" envDefault:"en-AU"`
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:","`
	LogLevel       string   `env:"LOG_LEVEL" envDefault:"info"`
	MetricsEnabled bool     `env:"METRICS_ENABLED" envDefault:"true"`
	Version        string   `env:"-"`
}

// Load reads an optional .env file and then the environment.
func Load() (Config, error) {
	var cfg Config

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return cfg, fmt.Errorf("load .env: %w", err)
	}
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// Resolve fills file paths derived from DataDir and checks the encoding mode.
// Call it after flag overrides are applied.
func (c *Config) Resolve() error {
	if c.DataDir == "" {
		c.DataDir = "./data"
	}
	if c.ModelPath == "" {
		c.ModelPath = filepath.Join(c.DataDir, DefaultModelFile)
	}
	if c.ReferencePath == "" {
		c.ReferencePath = filepath.Join(c.DataDir, DefaultReferenceFile)
	}

	c.EncodingMode = strings.ToLower(strings.TrimSpace(c.EncodingMode))
	switch c.EncodingMode {
	case "":
		c.EncodingMode = ModePersisted
	case ModePersisted, ModeRefit:
	default:
		return fmt.Errorf("unknown encoding mode %q (want %q or %q)", c.EncodingMode, ModePersisted, ModeRefit)
	}

	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	return nil
}
