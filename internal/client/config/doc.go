// Package config loads runtime configuration for the Anonify CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional config file selected with -c, -config or --config. Files
//     ending in .toml are decoded with BurntSushi/toml, anything else as JSON.
//  3. Environment variables prefixed with ANONIFY_ (see the env tags on Config).
//  4. Command-line flags, which override everything else.
//
// Supported flags
//
//	-a, --server string            backend base URL
//	-d, --db string                path of the local SQLite database
//	-l, --log-level string         debug, info, warn or error
//	--request-timeout duration     per-request timeout, 0 keeps the transport default
//	--reply-delay duration         delay before a text turn's reply is shown
//	--confidence float             detection confidence threshold in [0,1]
//	--archive-dir string           directory for archived redacted images
//	--s3-bucket string             S3 bucket for archived redacted images
//
// # File schema
//
// Durations use timex.Duration, so they can be strings like "3s" or, in JSON,
// integer nanoseconds. Keys that are absent leave the earlier value alone:
//
//	{
//	  "server_url": "http://127.0.0.1:8000",
//	  "reply_delay": "500ms",
//	  "confidence_threshold": 0.5
//	}
package config
