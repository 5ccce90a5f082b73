// Package config loads application configuration from an optional YAML file,
// a .env file and environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Storage drivers.
const (
	DriverS3     = "s3"
	DriverMinio  = "minio"
	DriverMemory = "memory"
)

// Key strategies.
const (
	KeyStrategyFilename = "filename"
	KeyStrategyUUID     = "uuid"
)

// DefaultMaxUploadBytes is the hard ceiling on a single uploaded file (25 MiB).
const DefaultMaxUploadBytes int64 = 25 << 20

// Config holds all runtime configuration for the service. It is built once at
// startup and handed to constructors; request handling never reads the environment.
type Config struct {
	Port     string `yaml:"port"`
	AppEnv   string `yaml:"app_env"`
	LogLevel string `yaml:"log_level"`

	Storage StorageConfig `yaml:"storage"`
	Upload  UploadConfig  `yaml:"upload"`

	CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`
}

// StorageConfig describes the object storage backend.
type StorageConfig struct {
	Driver    string `yaml:"driver"`
	Region    string `yaml:"region"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	// Domain is the host suffix of public URLs: https://{bucket}.{domain}/{key}.
	Domain   string `yaml:"domain"`
	Endpoint string `yaml:"endpoint"`
	UseSSL   bool   `yaml:"use_ssl"`
	// PublicBase overrides the derived https://{bucket}.{domain} base.
	PublicBase string `yaml:"public_base"`
}

// UploadConfig bounds and names accepted uploads.
type UploadConfig struct {
	MaxBytes    int64  `yaml:"max_bytes"`
	KeyStrategy string `yaml:"key_strategy"`
}

// Load reads configuration from path (if non-empty), then a .env file (if
// present), then environment variables. Later sources win.
func Load(path string) (*Config, error) {
	cfg := defaults()

	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}
	if path != "" {
		if err := parseFile(path, cfg); err != nil {
			return nil, err
		}
	}

	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	if cfg.Storage.Domain == "" {
		cfg.Storage.Domain = "s3." + cfg.Storage.Region + ".amazonaws.com"
	}
	if cfg.Storage.PublicBase == "" {
		cfg.Storage.PublicBase = derivePublicBase(cfg.Storage)
	}
	cfg.Storage.PublicBase = strings.TrimRight(cfg.Storage.PublicBase, "/")

	return cfg, nil
}

// derivePublicBase builds the URL prefix under which stored objects are
// fetched. MinIO serves buckets path-style from its own endpoint; S3 serves
// them virtual-hosted from {bucket}.{domain}.
func derivePublicBase(s StorageConfig) string {
	if s.Driver == DriverMinio && s.Endpoint != "" {
		scheme := "http"
		if s.UseSSL {
			scheme = "https"
		}
		endpoint := strings.TrimRight(strings.TrimPrefix(strings.TrimPrefix(s.Endpoint, "https://"), "http://"), "/")
		return scheme + "://" + endpoint + "/" + s.Bucket
	}
	return "https://" + s.Bucket + "." + s.Domain
}

func defaults() *Config {
	return &Config{
		Port:     "8080",
		AppEnv:   "development",
		LogLevel: "info",
		Storage: StorageConfig{
			Driver: DriverS3,
			Region: "us-east-1",
			UseSSL: true,
		},
		Upload: UploadConfig{
			MaxBytes:    DefaultMaxUploadBytes,
			KeyStrategy: KeyStrategyFilename,
		},
		CORSAllowedOrigins: []string{"*"},
	}
}

func parseFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file %q: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	cfg.Port = getEnv("PORT", cfg.Port)
	cfg.AppEnv = getEnv("APP_ENV", cfg.AppEnv)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)

	cfg.Storage.Driver = strings.ToLower(getEnv("STORAGE_DRIVER", cfg.Storage.Driver))
	cfg.Storage.Region = getEnv("STORAGE_REGION", cfg.Storage.Region)
	cfg.Storage.AccessKey = getEnv("STORAGE_ACCESS_KEY", cfg.Storage.AccessKey)
	cfg.Storage.SecretKey = getEnv("STORAGE_SECRET_KEY", cfg.Storage.SecretKey)
	cfg.Storage.Bucket = getEnv("STORAGE_BUCKET", cfg.Storage.Bucket)
	cfg.Storage.Domain = getEnv("STORAGE_DOMAIN", cfg.Storage.Domain)
	cfg.Storage.Endpoint = getEnv("STORAGE_ENDPOINT", cfg.Storage.Endpoint)
	cfg.Storage.PublicBase = getEnv("STORAGE_PUBLIC_BASE", cfg.Storage.PublicBase)
	if v := os.Getenv("STORAGE_USE_SSL"); v != "" {
		cfg.Storage.UseSSL = v == "true"
	}

	if v := os.Getenv("UPLOAD_MAX_BYTES"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("parse UPLOAD_MAX_BYTES: %w", err)
		}
		cfg.Upload.MaxBytes = n
	}
	cfg.Upload.KeyStrategy = strings.ToLower(getEnv("UPLOAD_KEY_STRATEGY", cfg.Upload.KeyStrategy))

	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		origins := make([]string, 0)
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		cfg.CORSAllowedOrigins = origins
	}
	return nil
}

// Validate reports the first missing or inconsistent setting.
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("port is required")
	}
	if c.Storage.Bucket == "" {
		return errors.New("storage bucket is required")
	}
	switch c.Storage.Driver {
	case DriverS3, DriverMinio:
		if c.Storage.AccessKey == "" || c.Storage.SecretKey == "" {
			return fmt.Errorf("storage credentials are required for driver %q", c.Storage.Driver)
		}
		if c.Storage.Driver == DriverS3 && c.Storage.Region == "" {
			return errors.New("storage region is required")
		}
		if c.Storage.Driver == DriverMinio && c.Storage.Endpoint == "" {
			return errors.New("storage endpoint is required for driver \"minio\"")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	if c.Upload.MaxBytes <= 0 {
		return errors.New("upload max bytes must be positive")
	}
	switch c.Upload.KeyStrategy {
	case KeyStrategyFilename, KeyStrategyUUID:
	default:
		return fmt.Errorf("unknown upload key strategy %q", c.Upload.KeyStrategy)
	}
	return nil
}

// IsProduction returns true when the app is running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return ":" + c.Port
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
