package config

import (
	"flag"
	"fmt"
	"io"

	"github.com/dmitrijs2005/anonify/internal/flagx"
)

// flagNames lists every flag parseFlags understands, in both the single and
// double dash spelling.
var flagNames = []string{
	"a", "server",
	"d", "db",
	"l", "log-level",
	"request-timeout",
	"reply-delay",
	"confidence",
	"return-image",
	"archive-dir",
	"s3-bucket",
	"s3-region",
	"s3-endpoint",
}

// parseFlags populates Config fields from command-line flags.
//
// The function filters args down to the flags it knows about, using
// flagx.FilterArgs, so cobra subcommands and their arguments do not interfere.
func parseFlags(cfg *Config, args []string) error {
	allowed := make([]string, 0, len(flagNames)*2)
	for _, n := range flagNames {
		allowed = append(allowed, "-"+n, "--"+n)
	}
	args = flagx.FilterArgs(normalizeBool(args, "return-image"), allowed)

	fs := flag.NewFlagSet("anonify", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.ServerURL, "a", cfg.ServerURL, "backend base URL")
	fs.StringVar(&cfg.ServerURL, "server", cfg.ServerURL, "backend base URL")
	fs.StringVar(&cfg.DatabasePath, "d", cfg.DatabasePath, "local database path")
	fs.StringVar(&cfg.DatabasePath, "db", cfg.DatabasePath, "local database path")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level")
	fs.DurationVar(&cfg.RequestTimeout, "request-timeout", cfg.RequestTimeout, "per-request timeout")
	fs.DurationVar(&cfg.ReplyDelay, "reply-delay", cfg.ReplyDelay, "text reply delay")
	fs.Float64Var(&cfg.ConfidenceThreshold, "confidence", cfg.ConfidenceThreshold, "detection confidence threshold")
	fs.BoolVar(&cfg.ReturnImage, "return-image", cfg.ReturnImage, "ask the backend for the redacted image")
	fs.StringVar(&cfg.ArchiveDir, "archive-dir", cfg.ArchiveDir, "archive directory")
	fs.StringVar(&cfg.S3Bucket, "s3-bucket", cfg.S3Bucket, "archive S3 bucket")
	fs.StringVar(&cfg.S3Region, "s3-region", cfg.S3Region, "archive S3 region")
	fs.StringVar(&cfg.S3Endpoint, "s3-endpoint", cfg.S3Endpoint, "archive S3 endpoint")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}
	return nil
}

// normalizeBool rewrites a bare boolean flag to its "=true" form so that
// FilterArgs does not take the following argument as its value.
func normalizeBool(args []string, name string) []string {
	out := make([]string, len(args))
	for i, a := range args {
		if a == "-"+name || a == "--"+name {
			a = "--" + name + "=true"
		}
		out[i] = a
	}
	return out
}
