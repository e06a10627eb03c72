// Package config handles configuration for the server and the admin CLI,
// including defaults, an optional JSON or TOML file, KOSYNC_* environment
// variables and command-line flags, applied in that order.
package config

import (
	"fmt"
	"time"
)

// Config holds runtime settings for kosync.
//
// Fields:
//   - DBPath: location of the single store file. Parent directories are created.
//   - DBOpenTimeout: how long to wait for the store file lock.
//   - EndpointAddrGRPC: bind address for the gRPC health endpoint.
//   - ShutdownTimeout: grace period for in-flight calls on shutdown.
//   - LogLevel / LogFormat: slog level name and "text" or "json".
//   - S3RootUser / S3RootPassword: credentials for the S3-compatible backup target.
//   - S3Bucket / S3Region / S3BaseEndpoint: object storage settings.
type Config struct {
	DBPath           string
	DBOpenTimeout    time.Duration
	EndpointAddrGRPC string
	ShutdownTimeout  time.Duration
	LogLevel         string
	LogFormat        string
	S3RootUser       string
	S3RootPassword   string
	S3Bucket         string
	S3Region         string
	S3BaseEndpoint   string
}

// LoadDefaults populates Config with defaults suitable for a single host.
func (c *Config) LoadDefaults() {
	c.DBPath = "data/kosync.db"
	c.DBOpenTimeout = 1 * time.Second
	c.EndpointAddrGRPC = "0.0.0.0:3000"
	c.ShutdownTimeout = 5 * time.Second
	c.LogLevel = "info"
	c.LogFormat = "text"
	c.S3RootUser = ""
	c.S3RootPassword = ""
	c.S3Bucket = ""
	c.S3Region = "us-east-1"
	c.S3BaseEndpoint = ""
}

// Validate rejects settings that cannot work.
func (c *Config) Validate() error {
	if c.DBPath == "" {
		return fmt.Errorf("db path must not be empty")
	}
	if c.DBOpenTimeout < 0 {
		return fmt.Errorf("db open timeout must not be negative")
	}
	if c.EndpointAddrGRPC == "" {
		return fmt.Errorf("server address must not be empty")
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.LogFormat)
	}
	return nil
}

// HasS3Credentials reports whether static S3 credentials are configured.
func (c *Config) HasS3Credentials() bool {
	return c.S3RootUser != "" && c.S3RootPassword != ""
}
