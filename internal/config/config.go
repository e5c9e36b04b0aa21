package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	ServiceName    string `yaml:"service_name"`
	DatabaseURL    string `yaml:"database_url"`
	HTTPListenAddr string `yaml:"http_listen_addr"`
	LogLevel       string `yaml:"log_level"`

	// Backup storage. Driver is "fs" or "s3".
	BackupDriver      string `yaml:"backup_driver"`
	BackupLocalDir    string `yaml:"backup_local_dir"`
	BackupS3Bucket    string `yaml:"backup_s3_bucket"`
	BackupS3Region    string `yaml:"backup_s3_region"`
	BackupS3Endpoint  string `yaml:"backup_s3_endpoint"`
	BackupS3AccessKey string `yaml:"backup_s3_access_key"`
	BackupS3SecretKey string `yaml:"backup_s3_secret_key"`

	// CacheDir is the directory for the persistent content cache.
	CacheDir string `yaml:"cache_dir"`
}

// Load builds the configuration once at startup: defaults, then an optional
// YAML settings file (unknown keys ignored), then environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		ServiceName:    "portal-api",
		HTTPListenAddr: ":8090",
		LogLevel:       "info",
		BackupDriver:   "fs",
		BackupLocalDir: "/var/lib/portal/backups",
		CacheDir:       "/var/lib/portal/cache",
	}

	if path := os.Getenv("PORTAL_SETTINGS_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read settings file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse settings file %s: %w", path, err)
		}
	}

	overlayEnv(&cfg.ServiceName, "SERVICE_NAME")
	overlayEnv(&cfg.DatabaseURL, "DATABASE_URL")
	overlayEnv(&cfg.HTTPListenAddr, "HTTP_LISTEN_ADDR")
	overlayEnv(&cfg.LogLevel, "LOG_LEVEL")
	overlayEnv(&cfg.BackupDriver, "BACKUP_DRIVER")
	overlayEnv(&cfg.BackupLocalDir, "BACKUP_LOCAL_DIR")
	overlayEnv(&cfg.BackupS3Bucket, "BACKUP_S3_BUCKET")
	overlayEnv(&cfg.BackupS3Region, "BACKUP_S3_REGION")
	overlayEnv(&cfg.BackupS3Endpoint, "BACKUP_S3_ENDPOINT")
	overlayEnv(&cfg.BackupS3AccessKey, "BACKUP_S3_ACCESS_KEY")
	overlayEnv(&cfg.BackupS3SecretKey, "BACKUP_S3_SECRET_KEY")
	overlayEnv(&cfg.CacheDir, "CACHE_DIR")

	return cfg, nil
}

// Validate checks that the fields the API server needs are present.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	switch c.BackupDriver {
	case "fs":
		if c.BackupLocalDir == "" {
			return fmt.Errorf("BACKUP_LOCAL_DIR is required for the fs backup driver")
		}
	case "s3":
		if c.BackupS3Bucket == "" {
			return fmt.Errorf("BACKUP_S3_BUCKET is required for the s3 backup driver")
		}
	default:
		return fmt.Errorf("unknown backup driver %q", c.BackupDriver)
	}
	return nil
}

func overlayEnv(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
