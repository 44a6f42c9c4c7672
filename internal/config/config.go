package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/illarion/sealpost/internal/crypto"
	"github.com/illarion/sealpost/internal/logger"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"

	envPrefix = "SEALPOST_"
)

var (
	ErrMissingSecret = errors.New("secret not configured")
	ErrInvalidConfig = errors.New("invalid configuration")
)

// Config holds every recognized setting.
type Config struct {
	Env        string `env:"ENV" envDefault:"development"`
	Passphrase string `env:"PASSPHRASE"`
	Salt       string `env:"SALT"`
	DBPath     string `env:"DB" envDefault:".sealpost"`

	KDFN         int   `env:"KDF_N" envDefault:"16384"`
	KDFR         int   `env:"KDF_R" envDefault:"8"`
	KDFP         int   `env:"KDF_P" envDefault:"1"`
	KDFMaxMemory int64 `env:"KDF_MAX_MEMORY" envDefault:"33554432"`

	Mongo MongoConfig `envPrefix:"MONGODB_"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`
}

// MongoConfig selects the MongoDB posts repository when URL is set.
type MongoConfig struct {
	URL        string        `env:"URL"`
	Database   string        `env:"DATABASE" envDefault:"sealpost"`
	Collection string        `env:"COLLECTION" envDefault:"posts"`
	Timeout    time.Duration `env:"TIMEOUT" envDefault:"10s"`
}

// Enabled reports whether a MongoDB URL is configured.
func (m MongoConfig) Enabled() bool {
	return m.URL != ""
}

type loadOptions struct {
	dotenvFiles []string
	environment map[string]string
}

// Option configures Load.
type Option func(*loadOptions)

// WithDotenv sets the dotenv files to read. No files disables dotenv loading.
func WithDotenv(files ...string) Option {
	return func(o *loadOptions) {
		o.dotenvFiles = files
	}
}

// WithEnvironment parses from the given map instead of the process environment.
func WithEnvironment(vars map[string]string) Option {
	return func(o *loadOptions) {
		o.environment = vars
	}
}

// Load reads the dotenv file (if present) and parses the environment.
func Load(opts ...Option) (*Config, error) {
	o := &loadOptions{dotenvFiles: []string{".env"}}
	for _, opt := range opts {
		opt(o)
	}

	for _, file := range o.dotenvFiles {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", file, err)
		}
	}

	cfg := &Config{}
	envOpts := env.Options{Prefix: envPrefix}
	if o.environment != nil {
		envOpts.Environment = o.environment
	}
	if err := env.ParseWithOptions(cfg, envOpts); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that env parsing cannot.
func (c *Config) Validate() error {
	c.Env = strings.ToLower(strings.TrimSpace(c.Env))
	switch c.Env {
	case EnvDevelopment, EnvProduction:
	default:
		return fmt.Errorf("%w: SEALPOST_ENV must be %q or %q, got %q", ErrInvalidConfig, EnvDevelopment, EnvProduction, c.Env)
	}
	if c.DBPath == "" {
		return fmt.Errorf("%w: SEALPOST_DB is empty", ErrInvalidConfig)
	}
	if _, ok := logger.ParseLevel(c.LogLevel); !ok {
		return fmt.Errorf("%w: unknown log level %q", ErrInvalidConfig, c.LogLevel)
	}
	if err := c.KDFParams().Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// IsProduction reports whether SEALPOST_ENV is production.
func (c *Config) IsProduction() bool {
	return c.Env == EnvProduction
}

// KDFParams returns the configured scrypt parameters.
func (c *Config) KDFParams() crypto.KDFParams {
	return crypto.KDFParams{
		N:         c.KDFN,
		R:         c.KDFR,
		P:         c.KDFP,
		MaxMemory: c.KDFMaxMemory,
	}
}

// Logger builds a logger from the log settings.
func (c *Config) Logger() *slog.Logger {
	return logger.New(
		logger.WithLevelName(c.LogLevel),
		logger.WithFormat(c.LogFormat),
	)
}
