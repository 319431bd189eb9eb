package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/fairweather/keel/internal/backtest"
	"github.com/fairweather/keel/internal/core"
	"github.com/fairweather/keel/internal/storage/archive"
)

type Config struct {
	Backtest BacktestConfig `mapstructure:"backtest"`
	Data     DataConfig     `mapstructure:"data"`
	Archive  ArchiveConfig  `mapstructure:"archive"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

type BacktestConfig struct {
	InitialCapital    float64         `mapstructure:"initial_capital"`
	StopLossThreshold float64         `mapstructure:"stop_loss_threshold"`
	CommissionRate    float64         `mapstructure:"commission_rate"`
	Rebalance         RebalanceConfig `mapstructure:"rebalance"`
	StartDate         string          `mapstructure:"start_date"`
	EndDate           string          `mapstructure:"end_date"`
	LotSize           int64           `mapstructure:"lot_size"`
	MaxPositionPct    float64         `mapstructure:"max_position_pct"`
}

type RebalanceConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// Weekday is 0-6 with Monday=0.
	Weekday int `mapstructure:"weekday"`
}

type DataConfig struct {
	Prices  PricesConfig  `mapstructure:"prices"`
	Signals SignalsConfig `mapstructure:"signals"`
}

type PricesConfig struct {
	Format string `mapstructure:"format"` // "csv", "sqlite" or "parquet"
	Path   string `mapstructure:"path"`
}

type SignalsConfig struct {
	Format string `mapstructure:"format"` // "json" or "yaml"
	Path   string `mapstructure:"path"`
}

type ArchiveConfig struct {
	Enabled bool            `mapstructure:"enabled"`
	Type    string          `mapstructure:"type"` // "localfs" or "s3"
	Path    string          `mapstructure:"path"` // For localfs
	S3      ArchiveS3Config `mapstructure:"s3"`   // For S3
}

type ArchiveS3Config struct {
	Bucket    string `mapstructure:"bucket"`
	Endpoint  string `mapstructure:"endpoint"`
	Region    string `mapstructure:"region"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Prefix    string `mapstructure:"prefix"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// Load reads configuration from file
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	// Support environment variable overrides
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	// Expand environment variables in string values
	for _, key := range v.AllKeys() {
		val := v.GetString(key)
		if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
			envKey := strings.TrimSuffix(strings.TrimPrefix(val, "${"), "}")
			v.Set(key, os.Getenv(envKey))
		}
	}

	cfg := Defaults()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return cfg, nil
}

// Defaults returns a config with sensible defaults
func Defaults() *Config {
	return &Config{
		Backtest: BacktestConfig{
			InitialCapital:    1_000_000,
			StopLossThreshold: 0.04,
			CommissionRate:    0.0002,
			Rebalance: RebalanceConfig{
				Enabled: false,
				Weekday: 0,
			},
			LotSize:        100,
			MaxPositionPct: 0.20,
		},
		Data: DataConfig{
			Prices:  PricesConfig{Format: "csv"},
			Signals: SignalsConfig{Format: "json"},
		},
		Archive: ArchiveConfig{
			Enabled: false,
			Type:    "localfs",
			Path:    "archive",
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	switch c.Data.Prices.Format {
	case "csv", "sqlite", "parquet":
	default:
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("prices format must be csv, sqlite or parquet, got %q", c.Data.Prices.Format))
	}
	if c.Data.Prices.Path == "" {
		return core.WrapError(core.ErrConfigMissing,
			fmt.Errorf("data.prices.path is required"))
	}

	switch c.Data.Signals.Format {
	case "json", "yaml":
	default:
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("signals format must be json or yaml, got %q", c.Data.Signals.Format))
	}
	if c.Data.Signals.Path == "" {
		return core.WrapError(core.ErrConfigMissing,
			fmt.Errorf("data.signals.path is required"))
	}

	if c.Archive.Enabled {
		switch c.Archive.Type {
		case "localfs":
			if c.Archive.Path == "" {
				return core.WrapError(core.ErrConfigMissing,
					fmt.Errorf("archive.path is required for localfs archive"))
			}
		case "s3":
			if c.Archive.S3.Bucket == "" {
				return core.WrapError(core.ErrConfigMissing,
					fmt.Errorf("archive.s3.bucket is required for s3 archive"))
			}
		default:
			return core.WrapError(core.ErrConfigInvalid,
				fmt.Errorf("archive type must be localfs or s3, got %q", c.Archive.Type))
		}
	}

	engineCfg, err := c.EngineConfig()
	if err != nil {
		return err
	}
	return engineCfg.Validate()
}

// EngineConfig converts the file-level backtest section into the engine's
// parameter value, parsing the optional date bounds.
func (c *Config) EngineConfig() (backtest.Config, error) {
	cfg := backtest.Config{
		InitialCapital:    c.Backtest.InitialCapital,
		StopLossThreshold: c.Backtest.StopLossThreshold,
		CommissionRate:    c.Backtest.CommissionRate,
		RebalanceEnabled:  c.Backtest.Rebalance.Enabled,
		RebalanceWeekday:  c.Backtest.Rebalance.Weekday,
		LotSize:           c.Backtest.LotSize,
		MaxPositionPct:    c.Backtest.MaxPositionPct,
	}

	var err error
	if cfg.StartDate, err = parseBound(c.Backtest.StartDate); err != nil {
		return backtest.Config{}, core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("start_date: %w", err))
	}
	if cfg.EndDate, err = parseBound(c.Backtest.EndDate); err != nil {
		return backtest.Config{}, core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("end_date: %w", err))
	}
	return cfg, nil
}

// S3Config converts the archive section into the S3 backend's settings.
func (c *Config) S3Config() archive.S3Config {
	return archive.S3Config{
		Bucket:    c.Archive.S3.Bucket,
		Endpoint:  c.Archive.S3.Endpoint,
		Region:    c.Archive.S3.Region,
		AccessKey: c.Archive.S3.AccessKey,
		SecretKey: c.Archive.S3.SecretKey,
		Prefix:    c.Archive.S3.Prefix,
	}
}

func parseBound(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	d, err := core.ParseDate(s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
