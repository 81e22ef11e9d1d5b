package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrijs2005/anonify/internal/client/redaction"
	"github.com/dmitrijs2005/anonify/internal/common"
	"github.com/dmitrijs2005/anonify/internal/flagx"
)

// Config holds runtime settings for the Anonify CLI.
//
// Units: all intervals are time.Duration. ConfidenceThreshold is a fraction
// in [0,1].
type Config struct {
	ServerURL           string        `env:"ANONIFY_SERVER_URL"`
	RequestTimeout      time.Duration `env:"ANONIFY_REQUEST_TIMEOUT"`
	ReplyDelay          time.Duration `env:"ANONIFY_REPLY_DELAY"`
	ConfidenceThreshold float64       `env:"ANONIFY_CONFIDENCE_THRESHOLD"`
	ReturnImage         bool          `env:"ANONIFY_RETURN_IMAGE"`
	DatabasePath        string        `env:"ANONIFY_DB_PATH"`
	HealthCheckInterval time.Duration `env:"ANONIFY_HEALTH_CHECK_INTERVAL"`
	LogLevel            string        `env:"ANONIFY_LOG_LEVEL"`

	ArchiveDir  string `env:"ANONIFY_ARCHIVE_DIR"`
	S3Bucket    string `env:"ANONIFY_S3_BUCKET"`
	S3Region    string `env:"ANONIFY_S3_REGION"`
	S3Endpoint  string `env:"ANONIFY_S3_ENDPOINT"`
	S3AccessKey string `env:"ANONIFY_S3_ACCESS_KEY"`
	S3SecretKey string `env:"ANONIFY_S3_SECRET_KEY"`
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:8000"
	c.RequestTimeout = 0
	c.ReplyDelay = redaction.DefaultReplyDelay
	c.ConfidenceThreshold = 0.5
	c.ReturnImage = true
	c.DatabasePath = "anonify.db"
	c.HealthCheckInterval = 3 * time.Second
	c.LogLevel = "info"
}

// Validate reports the first setting that cannot be used.
func (c *Config) Validate() error {
	u, err := url.Parse(c.ServerURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("server url %q must be an http(s) URL: %w", c.ServerURL, common.ErrValidation)
	}
	if c.ConfidenceThreshold < 0 || c.ConfidenceThreshold > 1 {
		return fmt.Errorf("confidence threshold %v out of [0,1]: %w", c.ConfidenceThreshold, common.ErrValidation)
	}
	if c.RequestTimeout < 0 || c.ReplyDelay < 0 || c.HealthCheckInterval < 0 {
		return fmt.Errorf("durations must not be negative: %w", common.ErrValidation)
	}
	if strings.TrimSpace(c.DatabasePath) == "" {
		return fmt.Errorf("database path is empty: %w", common.ErrValidation)
	}
	return nil
}

// Load builds a Config from defaults, the config file named in args, the
// environment and finally the flags in args. args excludes the program name.
func Load(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if path := flagx.ConfigFileFlag(args); path != "" {
		if err := parseFile(cfg, path); err != nil {
			return nil, err
		}
	}
	if err := parseEnv(cfg); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
