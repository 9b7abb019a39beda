package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/jonwraymond/chatquery/cache"
	"github.com/jonwraymond/chatquery/observe"
	"github.com/jonwraymond/chatquery/resilience"
	"github.com/jonwraymond/chatquery/store"
)

// EnvPath names the environment variable that overrides the config path.
const EnvPath = "CHATQUERY_CONFIG"

// DefaultTimezone is the zone absolute query times are read in.
const DefaultTimezone = "UTC+8"

var (
	// ErrInvalidConfig indicates a configuration that failed validation.
	ErrInvalidConfig = errors.New("config: invalid configuration")

	// ErrUnsupportedFormat indicates a file extension Load cannot parse.
	ErrUnsupportedFormat = errors.New("config: unsupported format")
)

// Duration is a time.Duration written as a string such as "5s".
type Duration time.Duration

// UnmarshalText parses a Go duration string.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// MarshalText renders the duration as a Go duration string.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Config is the chatquery configuration file.
type Config struct {
	Timezone   string        `toml:"timezone" yaml:"timezone"`
	Superusers []int64       `toml:"superusers" yaml:"superusers"`
	Cache      CacheConfig   `toml:"cache" yaml:"cache"`
	Store      StoreConfig   `toml:"store" yaml:"store"`
	Fetch      FetchConfig   `toml:"fetch" yaml:"fetch"`
	Observe    ObserveConfig `toml:"observe" yaml:"observe"`
}

// CacheConfig sizes the two cache tiers.
type CacheConfig struct {
	HotSize             int    `toml:"hot_size" yaml:"hot_size"`
	ColdSize            int    `toml:"cold_size" yaml:"cold_size"`
	Path                string `toml:"path" yaml:"path"`
	MaxMessagesPerEntry int    `toml:"max_messages_per_entry" yaml:"max_messages_per_entry"`
}

// StoreConfig selects the record store.
type StoreConfig struct {
	Driver string `toml:"driver" yaml:"driver"`
	DSN    string `toml:"dsn" yaml:"dsn"`
}

// FetchConfig tunes the resilience of record store calls.
type FetchConfig struct {
	Timeout         Duration `toml:"timeout" yaml:"timeout"`
	MaxAttempts     int      `toml:"max_attempts" yaml:"max_attempts"`
	InitialDelay    Duration `toml:"initial_delay" yaml:"initial_delay"`
	BreakerFailures int      `toml:"breaker_failures" yaml:"breaker_failures"`
	BreakerReset    Duration `toml:"breaker_reset" yaml:"breaker_reset"`
}

// ObserveConfig configures telemetry.
type ObserveConfig struct {
	ServiceName string        `toml:"service_name" yaml:"service_name"`
	Tracing     TracingConfig `toml:"tracing" yaml:"tracing"`
	Metrics     MetricsConfig `toml:"metrics" yaml:"metrics"`
	Logging     LoggingConfig `toml:"logging" yaml:"logging"`
}

// TracingConfig configures span export.
type TracingConfig struct {
	Enabled   bool    `toml:"enabled" yaml:"enabled"`
	Exporter  string  `toml:"exporter" yaml:"exporter"`
	SamplePct float64 `toml:"sample_pct" yaml:"sample_pct"`
}

// MetricsConfig configures metric export.
type MetricsConfig struct {
	Enabled  bool   `toml:"enabled" yaml:"enabled"`
	Exporter string `toml:"exporter" yaml:"exporter"`
}

// LoggingConfig configures the JSON logger.
type LoggingConfig struct {
	Enabled bool   `toml:"enabled" yaml:"enabled"`
	Level   string `toml:"level" yaml:"level"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Timezone: DefaultTimezone,
		Cache: CacheConfig{
			HotSize:             cache.DefaultHotSize,
			ColdSize:            cache.DefaultColdSize,
			MaxMessagesPerEntry: cache.MaxMessagesPerEntry,
		},
		Store: StoreConfig{Driver: store.DriverSQLite},
		Fetch: FetchConfig{
			Timeout:         Duration(10 * time.Second),
			MaxAttempts:     3,
			InitialDelay:    Duration(100 * time.Millisecond),
			BreakerFailures: 5,
			BreakerReset:    Duration(30 * time.Second),
		},
		Observe: ObserveConfig{
			ServiceName: "chatquery",
			Tracing:     TracingConfig{Exporter: "none", SamplePct: 1.0},
			Metrics:     MetricsConfig{Exporter: "none"},
			Logging:     LoggingConfig{Enabled: true, Level: "info"},
		},
	}
}

// ResolvePath returns the path named by EnvPath when set, otherwise path.
func ResolvePath(path string) string {
	if env := os.Getenv(EnvPath); env != "" {
		return env
	}
	return path
}

// Load reads the file at path over Default, expands environment references
// and validates the result. An empty path returns the validated defaults.
// Unknown keys are rejected.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, cfg.Validate()
	}

	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Config{}, fmt.Errorf("read %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&cfg); err != nil {
			return Config{}, fmt.Errorf("%s: %w", path, err)
		}
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return Config{}, fmt.Errorf("%s: %w", path, err)
		}
	default:
		return Config{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
	}

	if cfg.Store.DSN, err = expandEnvStrict(cfg.Store.DSN); err != nil {
		return Config{}, fmt.Errorf("%s: store.dsn: %w", path, err)
	}
	if cfg.Cache.Path, err = expandEnvStrict(cfg.Cache.Path); err != nil {
		return Config{}, fmt.Errorf("%s: cache.path: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks every section.
func (c *Config) Validate() error {
	if c.Cache.HotSize <= 0 || c.Cache.ColdSize <= 0 {
		return fmt.Errorf("%w: cache sizes must be positive", ErrInvalidConfig)
	}
	if c.Cache.MaxMessagesPerEntry <= 0 {
		return fmt.Errorf("%w: cache.max_messages_per_entry must be positive", ErrInvalidConfig)
	}

	switch c.Store.Driver {
	case store.DriverSQLite:
	case store.DriverPostgres:
		if c.Store.DSN == "" {
			return fmt.Errorf("%w: store.dsn is required for postgres", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown store.driver %q", ErrInvalidConfig, c.Store.Driver)
	}

	if c.Fetch.Timeout < 0 || c.Fetch.InitialDelay < 0 || c.Fetch.BreakerReset < 0 {
		return fmt.Errorf("%w: fetch durations must not be negative", ErrInvalidConfig)
	}
	if c.Fetch.MaxAttempts < 0 || c.Fetch.BreakerFailures < 0 {
		return fmt.Errorf("%w: fetch counts must not be negative", ErrInvalidConfig)
	}

	if _, err := c.Location(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	obs := c.ObserveConfig()
	if err := obs.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

var utcOffset = regexp.MustCompile(`^UTC([+-])(\d{1,2})(?::(\d{2}))?$`)

// Location resolves Timezone: "UTC+8" style offsets or an IANA name.
func (c *Config) Location() (*time.Location, error) {
	tz := c.Timezone
	if tz == "" {
		tz = DefaultTimezone
	}
	if m := utcOffset.FindStringSubmatch(tz); m != nil {
		hours, _ := strconv.Atoi(m[2])
		minutes := 0
		if m[3] != "" {
			minutes, _ = strconv.Atoi(m[3])
		}
		if hours > 14 || minutes > 59 {
			return nil, fmt.Errorf("timezone %q out of range", tz)
		}
		offset := hours*3600 + minutes*60
		if m[1] == "-" {
			offset = -offset
		}
		return time.FixedZone(tz, offset), nil
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", tz, err)
	}
	return loc, nil
}

// CacheConfig returns the cache settings. Logger and Clock are left to the
// caller.
func (c *Config) CacheConfig() cache.Config {
	return cache.Config{
		HotSize:             c.Cache.HotSize,
		ColdSize:            c.Cache.ColdSize,
		Path:                c.Cache.Path,
		MaxMessagesPerEntry: c.Cache.MaxMessagesPerEntry,
	}
}

// ResilienceConfig returns the executor settings for store calls.
func (c *Config) ResilienceConfig() resilience.Config {
	return resilience.Config{
		Timeout:         time.Duration(c.Fetch.Timeout),
		MaxAttempts:     c.Fetch.MaxAttempts,
		InitialDelay:    time.Duration(c.Fetch.InitialDelay),
		BreakerFailures: c.Fetch.BreakerFailures,
		BreakerReset:    time.Duration(c.Fetch.BreakerReset),
	}
}

// ObserveConfig returns the telemetry settings.
func (c *Config) ObserveConfig() observe.Config {
	return observe.Config{
		ServiceName: c.Observe.ServiceName,
		Tracing: observe.TracingConfig{
			Enabled:   c.Observe.Tracing.Enabled,
			Exporter:  c.Observe.Tracing.Exporter,
			SamplePct: c.Observe.Tracing.SamplePct,
		},
		Metrics: observe.MetricsConfig{
			Enabled:  c.Observe.Metrics.Enabled,
			Exporter: c.Observe.Metrics.Exporter,
		},
		Logging: observe.LoggingConfig{
			Enabled: c.Observe.Logging.Enabled,
			Level:   c.Observe.Logging.Level,
		},
	}
}
