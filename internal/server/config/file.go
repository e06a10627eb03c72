package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/dmitrijs2005/kosync/internal/timex"
)

// FileConfig is the on-disk form of Config. Durations use timex.Duration so
// that both "1s" strings and integer nanoseconds are accepted. Fields left
// out of the file keep their previous value.
type FileConfig struct {
	DBPath           string          `json:"db_path" toml:"db_path"`
	DBOpenTimeout    *timex.Duration `json:"db_open_timeout" toml:"db_open_timeout"`
	EndpointAddrGRPC string          `json:"endpoint_addr_grpc" toml:"endpoint_addr_grpc"`
	ShutdownTimeout  *timex.Duration `json:"shutdown_timeout" toml:"shutdown_timeout"`
	LogLevel         string          `json:"log_level" toml:"log_level"`
	LogFormat        string          `json:"log_format" toml:"log_format"`
	S3RootUser       string          `json:"s3_root_user" toml:"s3_root_user"`
	S3RootPassword   string          `json:"s3_root_password" toml:"s3_root_password"`
	S3Bucket         string          `json:"s3_bucket" toml:"s3_bucket"`
	S3Region         string          `json:"s3_region" toml:"s3_region"`
	S3BaseEndpoint   string          `json:"s3_base_endpoint" toml:"s3_base_endpoint"`
}

// parseFile overlays the file at path onto config. The format is chosen by
// extension: .toml for TOML, anything else is read as JSON.
func parseFile(config *Config, path string) error {
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	c := &FileConfig{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		md, err := toml.Decode(string(data), c)
		if err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return fmt.Errorf("parse %s: unknown keys %v", path, undecoded)
		}
	default:
		dec := json.NewDecoder(strings.NewReader(string(data)))
		dec.DisallowUnknownFields()
		if err := dec.Decode(c); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
	}

	c.apply(config)
	return nil
}

func (c *FileConfig) apply(config *Config) {
	setString(&config.DBPath, c.DBPath)
	if c.DBOpenTimeout != nil {
		config.DBOpenTimeout = c.DBOpenTimeout.Duration
	}
	setString(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	if c.ShutdownTimeout != nil {
		config.ShutdownTimeout = c.ShutdownTimeout.Duration
	}
	setString(&config.LogLevel, c.LogLevel)
	setString(&config.LogFormat, c.LogFormat)
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
