package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"

	"secureentry/internal/totp"
)

// MinBarcodeSize is the smallest BARCODE_SIZE that still yields a
// placeholder at least one pixel tall.
const MinBarcodeSize = 4

type Config struct {
	DBFile      string `env:"SECUREENTRY_DB" envDefault:"secureentry.db"`
	StoreSecret string `env:"STORE_SECRET"`
	APIAddr     string `env:"API_ADDR" envDefault:":8080"`
	AdminAddr   string `env:"ADMIN_ADDR" envDefault:"localhost:8081"`

	NTPHost      string        `env:"NTP_HOST" envDefault:"pool.ntp.org"`
	NTPTimeout   time.Duration `env:"NTP_TIMEOUT" envDefault:"5s"`
	NTPRetries   uint64        `env:"NTP_RETRIES" envDefault:"2"`
	ForceSync    bool          `env:"FORCE_SYNC" envDefault:"false"`
	OffsetMaxAge time.Duration `env:"OFFSET_MAX_AGE" envDefault:"24h"`

	TOTPDigits    int           `env:"TOTP_DIGITS" envDefault:"6"`
	TOTPPeriod    time.Duration `env:"TOTP_PERIOD" envDefault:"15s"`
	TOTPAlgorithm string        `env:"TOTP_ALGORITHM" envDefault:"SHA1"`

	Subtitle      string        `env:"PDF417_SUBTITLE" envDefault:"Screenshots won't get you in."`
	ErrorMessage  string        `env:"ERROR_MESSAGE" envDefault:"Reload ticket"`
	BarcodeSize   int           `env:"BARCODE_SIZE" envDefault:"320"`
	ImageCacheTTL time.Duration `env:"IMAGE_CACHE_TTL" envDefault:"30s"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

func Load(cliMode bool) (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(cliMode); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate(cliMode bool) error {
	if c.StoreSecret == "" && !cliMode {
		return fmt.Errorf("STORE_SECRET is required")
	}

	if c.NTPTimeout <= 0 {
		return fmt.Errorf("NTP_TIMEOUT must be greater than 0")
	}

	if c.OffsetMaxAge < 0 {
		return fmt.Errorf("OFFSET_MAX_AGE must not be negative")
	}

	// The placeholder is a quarter as tall as it is wide.
	if c.BarcodeSize < MinBarcodeSize {
		return fmt.Errorf("BARCODE_SIZE must be at least %d", MinBarcodeSize)
	}

	if c.ImageCacheTTL <= 0 {
		return fmt.Errorf("IMAGE_CACHE_TTL must be greater than 0")
	}

	if _, err := c.TOTPParams(); err != nil {
		return err
	}

	if _, err := c.Level(); err != nil {
		return err
	}

	return nil
}

// TOTPParams returns the parameters of the customer TOTP generator.
func (c *Config) TOTPParams() (totp.Params, error) {
	algo, err := totp.ParseAlgorithm(c.TOTPAlgorithm)
	if err != nil {
		return totp.Params{}, err
	}
	params := totp.Params{
		Digits:    c.TOTPDigits,
		Period:    c.TOTPPeriod,
		Algorithm: algo,
	}
	if _, err := totp.New(params); err != nil {
		return totp.Params{}, err
	}
	return params, nil
}

// SyncTimeout bounds a whole sync batch: every attempt plus backoff.
func (c *Config) SyncTimeout() time.Duration {
	return c.NTPTimeout*time.Duration(c.NTPRetries+1) + 5*time.Second
}

func (c *Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	return level, nil
}
