package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

var configLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	configLogger = l
}

// Config represents the complete configuration structure
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	Content ContentConfig `yaml:"content"`
	Events  EventsConfig  `yaml:"events"`
	Logging LoggingConfig `yaml:"logging"`
}

type LoggingConfig struct {
	Level string `yaml:"level" default:"info"`
}

type ServerConfig struct {
	Host           string   `yaml:"host" default:"0.0.0.0"`
	Port           string   `yaml:"port" default:"12600"`
	AllowedOrigins []string `yaml:"allowed_origins" default:"*"`
}

type StorageConfig struct {
	// One of BackendMemory, BackendSQLite, BackendPostgres, BackendFS, BackendS3.
	Backend     string   `yaml:"backend" default:"sqlite"`
	Path        string   `yaml:"path" default:"./content.db"`
	DSN         string   `yaml:"dsn" default:""`
	Compression string   `yaml:"compression" default:"zstd"`
	Timeout     string   `yaml:"timeout" default:"5s"`
	S3          S3Config `yaml:"s3"`
}

type S3Config struct {
	Bucket          string `yaml:"bucket" default:""`
	Prefix          string `yaml:"prefix" default:"pages/"`
	Endpoint        string `yaml:"endpoint" default:""`
	Region          string `yaml:"region" default:"auto"`
	AccessKeyID     string `yaml:"access_key_id" default:""`
	SecretAccessKey string `yaml:"secret_access_key" default:""`
}

type ContentConfig struct {
	MaxListDepth int `yaml:"max_list_depth" default:"8"`
}

type EventsConfig struct {
	RedisAddr    string `yaml:"redis_addr" default:""`
	RedisChannel string `yaml:"redis_channel" default:"redux-content:pages"`
}

const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendFS       = "fs"
	BackendS3       = "s3"
)

// Environment variables that override file values. Secrets belong here rather
// than in config.yaml.
const (
	EnvLogLevel          = "LOG_LEVEL"
	EnvStorageBackend    = "STORAGE_BACKEND"
	EnvStorageDSN        = "STORAGE_DSN"
	EnvS3AccessKeyID     = "S3_ACCESS_KEY_ID"
	EnvS3SecretAccessKey = "S3_SECRET_ACCESS_KEY"
	EnvRedisAddr         = "REDIS_ADDR"
)

var AppConfig *Config

func LoadConfig(path string) error {
	config, err := Load(path)
	if err != nil {
		return err
	}

	AppConfig = config
	return nil
}

// Load reads path without touching AppConfig. Tools that need more than one
// configuration, like the migrator, use it directly.
func Load(path string) (*Config, error) {
	config := &Config{}

	// Apply default values first
	applyDefaults(config)

	data, err := os.ReadFile(path)
	if err != nil {
		// If file doesn't exist, just use defaults
		configLogger.Info().Str("path", path).Msg("Config file not found, using defaults")
	} else if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	ApplyEnv(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// ApplyEnv overrides config values with any environment variables that are set.
func ApplyEnv(config *Config) {
	overrides := []struct {
		env    string
		target *string
	}{
		{EnvLogLevel, &config.Logging.Level},
		{EnvStorageBackend, &config.Storage.Backend},
		{EnvStorageDSN, &config.Storage.DSN},
		{EnvS3AccessKeyID, &config.Storage.S3.AccessKeyID},
		{EnvS3SecretAccessKey, &config.Storage.S3.SecretAccessKey},
		{EnvRedisAddr, &config.Events.RedisAddr},
	}

	for _, o := range overrides {
		if v, ok := os.LookupEnv(o.env); ok && v != "" {
			*o.target = v
		}
	}
}

func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case BackendMemory, BackendSQLite, BackendFS:
	case BackendPostgres:
		if c.Storage.DSN == "" {
			return fmt.Errorf("storage.dsn is required for the %s backend", BackendPostgres)
		}
	case BackendS3:
		if c.Storage.S3.Bucket == "" {
			return fmt.Errorf("storage.s3.bucket is required for the %s backend", BackendS3)
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}

	switch c.Storage.Compression {
	case "zstd", "gzip", "none":
	default:
		return fmt.Errorf("unknown storage compression %q", c.Storage.Compression)
	}

	if _, err := c.Storage.TimeoutDuration(); err != nil {
		return err
	}

	if c.Content.MaxListDepth < 1 {
		return fmt.Errorf("content.max_list_depth must be positive, got %d", c.Content.MaxListDepth)
	}

	return nil
}

// TimeoutDuration parses Storage.Timeout. An empty value disables the timeout.
func (s StorageConfig) TimeoutDuration() (time.Duration, error) {
	if s.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s.Timeout)
	if err != nil {
		return 0, fmt.Errorf("invalid storage.timeout %q: %w", s.Timeout, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("storage.timeout must not be negative, got %s", s.Timeout)
	}
	return d, nil
}

func ApplyDefaults(config interface{}) {
	applyDefaults(config)
}

func applyDefaults(config interface{}) {
	v := reflect.ValueOf(config)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}

	if v.Kind() != reflect.Struct {
		return
	}

	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		if !field.IsValid() || !field.CanSet() {
			continue
		}

		// Recursively apply defaults to nested structs
		if field.Kind() == reflect.Struct {
			applyDefaults(field.Addr().Interface())
			continue
		}

		defaultValue := fieldType.Tag.Get("default")
		if defaultValue == "" {
			continue
		}

		switch field.Kind() {
		case reflect.String:
			field.SetString(defaultValue)
		case reflect.Bool:
			if val, err := strconv.ParseBool(defaultValue); err == nil {
				field.SetBool(val)
			}
		case reflect.Int:
			if val, err := strconv.ParseInt(defaultValue, 10, 64); err == nil {
				field.SetInt(val)
			}
		case reflect.Slice:
			if field.Len() == 0 && field.Type().Elem().Kind() == reflect.String {
				parts := strings.Split(defaultValue, ",")
				slice := reflect.MakeSlice(field.Type(), len(parts), len(parts))
				for j, part := range parts {
					slice.Index(j).SetString(strings.TrimSpace(part))
				}
				field.Set(slice)
			}
		default:
			configLogger.Warn().
				Str("field_name", fieldType.Name).
				Str("field_type", field.Kind().String()).
				Msg("Unsupported field type for default value")
		}
	}
}
