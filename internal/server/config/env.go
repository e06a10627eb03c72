package config

import (
	"fmt"
	"os"
	"time"

	"github.com/dmitrijs2005/kosync/internal/common"
)

// lookupEnv is a seam for tests.
var lookupEnv = os.LookupEnv

// parseEnv overlays KOSYNC_* environment variables onto config.
//
//	KOSYNC_DB_PATH            store file
//	KOSYNC_DB_OPEN_TIMEOUT    duration, e.g. "2s"
//	KOSYNC_SERVER_ADDRESS     gRPC bind address
//	KOSYNC_LOG_LEVEL          debug|info|warn|error
//	KOSYNC_LOG_FORMAT         text|json
//	KOSYNC_S3_ROOT_USER, KOSYNC_S3_ROOT_PASSWORD, KOSYNC_S3_BUCKET,
//	KOSYNC_S3_REGION, KOSYNC_S3_BASE_ENDPOINT
func parseEnv(config *Config) error {
	strs := map[string]*string{
		"DB_PATH":          &config.DBPath,
		"SERVER_ADDRESS":   &config.EndpointAddrGRPC,
		"LOG_LEVEL":        &config.LogLevel,
		"LOG_FORMAT":       &config.LogFormat,
		"S3_ROOT_USER":     &config.S3RootUser,
		"S3_ROOT_PASSWORD": &config.S3RootPassword,
		"S3_BUCKET":        &config.S3Bucket,
		"S3_REGION":        &config.S3Region,
		"S3_BASE_ENDPOINT": &config.S3BaseEndpoint,
	}
	for name, dst := range strs {
		if v, ok := lookupEnv(common.EnvPrefix + name); ok && v != "" {
			*dst = v
		}
	}

	durations := map[string]*time.Duration{
		"DB_OPEN_TIMEOUT":  &config.DBOpenTimeout,
		"SHUTDOWN_TIMEOUT": &config.ShutdownTimeout,
	}
	for name, dst := range durations {
		v, ok := lookupEnv(common.EnvPrefix + name)
		if !ok || v == "" {
			continue
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s%s: %w", common.EnvPrefix, name, err)
		}
		*dst = d
	}
	return nil
}
