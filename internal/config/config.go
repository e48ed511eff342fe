// Package config loads proposalhub settings from an optional YAML file and
// PROPOSALHUB_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// Storage drivers.
const (
	DriverMemory   = "memory"
	DriverFS       = "fs"
	DriverS3       = "s3"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
)

// DefaultKey is the slot key the snapshot is stored under.
const DefaultKey = "proposalhub:store"

// Config is the full runtime configuration.
type Config struct {
	Storage StorageConfig `yaml:"storage"`
	Blob    BlobConfig    `yaml:"blob"`
	Log     LogConfig     `yaml:"log"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// StorageConfig selects where the snapshot blob lives.
type StorageConfig struct {
	Driver      string      `yaml:"driver"`
	Key         string      `yaml:"key"`
	SQLitePath  string      `yaml:"sqlitePath"`
	PostgresDSN string      `yaml:"postgresDSN"`
	Redis       RedisConfig `yaml:"redis"`
}

// RedisConfig holds the redis slot connection settings.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// BlobConfig configures the fs and s3 drivers.
type BlobConfig struct {
	FSRoot string   `yaml:"fsRoot"`
	Prefix string   `yaml:"prefix"`
	S3     S3Config `yaml:"s3"`
}

// S3Config configures the s3 blob driver. Credentials come from the AWS
// default chain.
type S3Config struct {
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	PathStyle bool   `yaml:"pathStyle"`
}

// LogConfig configures the zerolog logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json|console
}

// MetricsConfig selects the operation recorders attached to the service.
// Both may be enabled at once.
type MetricsConfig struct {
	Expvar     bool `yaml:"expvar"`
	Prometheus bool `yaml:"prometheus"`
}

// Enabled reports whether any recorder is selected.
func (m MetricsConfig) Enabled() bool { return m.Expvar || m.Prometheus }

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Storage: StorageConfig{
			Driver:     DriverSQLite,
			Key:        DefaultKey,
			SQLitePath: "proposalhub.db",
		},
		Blob: BlobConfig{
			FSRoot: "./blobdata",
			Prefix: "snapshots",
			S3:     S3Config{Region: "us-east-1"},
		},
		Log: LogConfig{Level: "info", Format: "json"},
	}
}

// Load reads path (when non-empty) over the defaults, applies environment
// overrides and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from PROPOSALHUB_* variables found by lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(name); ok && v != "" {
			*dst = v
		}
	}
	str("PROPOSALHUB_STORAGE_DRIVER", &c.Storage.Driver)
	str("PROPOSALHUB_STORAGE_KEY", &c.Storage.Key)
	str("PROPOSALHUB_SQLITE_PATH", &c.Storage.SQLitePath)
	str("PROPOSALHUB_POSTGRES_DSN", &c.Storage.PostgresDSN)
	str("PROPOSALHUB_REDIS_ADDR", &c.Storage.Redis.Addr)
	str("PROPOSALHUB_REDIS_PASSWORD", &c.Storage.Redis.Password)
	str("PROPOSALHUB_BLOB_FS_ROOT", &c.Blob.FSRoot)
	str("PROPOSALHUB_BLOB_PREFIX", &c.Blob.Prefix)
	str("PROPOSALHUB_BLOB_S3_BUCKET", &c.Blob.S3.Bucket)
	str("PROPOSALHUB_BLOB_S3_REGION", &c.Blob.S3.Region)
	str("PROPOSALHUB_BLOB_S3_ENDPOINT", &c.Blob.S3.Endpoint)
	str("PROPOSALHUB_LOG_LEVEL", &c.Log.Level)
	str("PROPOSALHUB_LOG_FORMAT", &c.Log.Format)
	if v, ok := lookup("PROPOSALHUB_REDIS_DB"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PROPOSALHUB_REDIS_DB: %w", err)
		}
		c.Storage.Redis.DB = n
	}
	for name, dst := range map[string]*bool{
		"PROPOSALHUB_BLOB_S3_PATH_STYLE": &c.Blob.S3.PathStyle,
		"PROPOSALHUB_METRICS_EXPVAR":     &c.Metrics.Expvar,
		"PROPOSALHUB_METRICS_PROMETHEUS": &c.Metrics.Prometheus,
	} {
		v, ok := lookup(name)
		if !ok || v == "" {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		*dst = b
	}
	c.Storage.Driver = strings.ToLower(strings.TrimSpace(c.Storage.Driver))
	return nil
}

// Validate checks driver-specific requirements.
func (c Config) Validate() error {
	var errs []error
	switch c.Storage.Driver {
	case DriverMemory, DriverFS, DriverSQLite, DriverPostgres:
	case DriverS3:
		if c.Blob.S3.Bucket == "" {
			errs = append(errs, errors.New("blob.s3.bucket required for s3 storage"))
		}
	case DriverRedis:
		if c.Storage.Redis.Addr == "" {
			errs = append(errs, errors.New("storage.redis.addr required for redis storage"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage driver %q", c.Storage.Driver))
	}
	if strings.TrimSpace(c.Storage.Key) == "" {
		errs = append(errs, errors.New("storage.key must not be empty"))
	}
	if _, err := zerolog.ParseLevel(strings.ToLower(c.Log.Level)); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	switch c.Log.Format {
	case "", "json", "console":
	default:
		errs = append(errs, fmt.Errorf("log.format must be json or console, got %q", c.Log.Format))
	}
	return errors.Join(errs...)
}
