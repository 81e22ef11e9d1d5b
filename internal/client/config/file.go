package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/dmitrijs2005/anonify/internal/timex"
)

// fileConfig is a DTO used exclusively for file decoding. Pointer fields tell
// an absent key apart from a zero value, and timex.Duration lets intervals be
// written as "3s".
type fileConfig struct {
	ServerURL           *string         `json:"server_url" toml:"server_url"`
	RequestTimeout      *timex.Duration `json:"request_timeout" toml:"request_timeout"`
	ReplyDelay          *timex.Duration `json:"reply_delay" toml:"reply_delay"`
	ConfidenceThreshold *float64        `json:"confidence_threshold" toml:"confidence_threshold"`
	ReturnImage         *bool           `json:"return_image" toml:"return_image"`
	DatabasePath        *string         `json:"database_path" toml:"database_path"`
	HealthCheckInterval *timex.Duration `json:"health_check_interval" toml:"health_check_interval"`
	LogLevel            *string         `json:"log_level" toml:"log_level"`

	Archive struct {
		Dir       *string `json:"dir" toml:"dir"`
		Bucket    *string `json:"s3_bucket" toml:"s3_bucket"`
		Region    *string `json:"s3_region" toml:"s3_region"`
		Endpoint  *string `json:"s3_endpoint" toml:"s3_endpoint"`
		AccessKey *string `json:"s3_access_key" toml:"s3_access_key"`
		SecretKey *string `json:"s3_secret_key" toml:"s3_secret_key"`
	} `json:"archive" toml:"archive"`
}

// parseFile overlays cfg with the keys present in the file at path.
func parseFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	var fc fileConfig
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		err = toml.Unmarshal(data, &fc)
	} else {
		err = json.Unmarshal(data, &fc)
	}
	if err != nil {
		return fmt.Errorf("decode config %s: %w", path, err)
	}

	fc.apply(cfg)
	return nil
}

func (fc *fileConfig) apply(cfg *Config) {
	setString(&cfg.ServerURL, fc.ServerURL)
	setDuration(&cfg.RequestTimeout, fc.RequestTimeout)
	setDuration(&cfg.ReplyDelay, fc.ReplyDelay)
	if fc.ConfidenceThreshold != nil {
		cfg.ConfidenceThreshold = *fc.ConfidenceThreshold
	}
	if fc.ReturnImage != nil {
		cfg.ReturnImage = *fc.ReturnImage
	}
	setString(&cfg.DatabasePath, fc.DatabasePath)
	setDuration(&cfg.HealthCheckInterval, fc.HealthCheckInterval)
	setString(&cfg.LogLevel, fc.LogLevel)

	setString(&cfg.ArchiveDir, fc.Archive.Dir)
	setString(&cfg.S3Bucket, fc.Archive.Bucket)
	setString(&cfg.S3Region, fc.Archive.Region)
	setString(&cfg.S3Endpoint, fc.Archive.Endpoint)
	setString(&cfg.S3AccessKey, fc.Archive.AccessKey)
	setString(&cfg.S3SecretKey, fc.Archive.SecretKey)
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setDuration(dst *time.Duration, v *timex.Duration) {
	if v != nil {
		*dst = v.Duration
	}
}
