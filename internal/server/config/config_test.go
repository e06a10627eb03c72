package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// noEnv isolates a test from the real environment.
func noEnv(t *testing.T, env map[string]string) {
	t.Helper()
	orig := lookupEnv
	t.Cleanup(func() { lookupEnv = orig })
	lookupEnv = func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

func newFlagSet(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse(args))
	return fs
}

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, "data/kosync.db", c.DBPath)
	assert.Equal(t, 1*time.Second, c.DBOpenTimeout)
	assert.Equal(t, "0.0.0.0:3000", c.EndpointAddrGRPC)
	assert.Equal(t, 5*time.Second, c.ShutdownTimeout)
	assert.Equal(t, "info", c.LogLevel)
	assert.Equal(t, "text", c.LogFormat)
	assert.Equal(t, "us-east-1", c.S3Region)
	assert.False(t, c.HasS3Credentials())
	assert.NoError(t, c.Validate())
}

func TestLoadConfig_DefaultsWithoutSources(t *testing.T) {
	noEnv(t, nil)

	c, err := LoadConfig(nil)
	require.NoError(t, err)

	var want Config
	want.LoadDefaults()
	assert.Empty(t, cmp.Diff(&want, c))
}

func TestLoadConfig_JSONFile(t *testing.T) {
	noEnv(t, nil)
	path := writeFile(t, "cfg.json", `{
		"db_path": "/var/lib/kosync/store.db",
		"db_open_timeout": "3s",
		"endpoint_addr_grpc": "127.0.0.1:4000",
		"shutdown_timeout": 2000000000,
		"log_format": "json",
		"s3_root_user": "user",
		"s3_root_password": "password",
		"s3_bucket": "bucket",
		"s3_base_endpoint": "http://minio:9000"
	}`)

	c, err := LoadConfig(newFlagSet(t, "--config", path))
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/kosync/store.db", c.DBPath)
	assert.Equal(t, 3*time.Second, c.DBOpenTimeout)
	assert.Equal(t, "127.0.0.1:4000", c.EndpointAddrGRPC)
	assert.Equal(t, 2*time.Second, c.ShutdownTimeout)
	assert.Equal(t, "info", c.LogLevel, "missing keys keep defaults")
	assert.Equal(t, "json", c.LogFormat)
	assert.Equal(t, "us-east-1", c.S3Region)
	assert.True(t, c.HasS3Credentials())
	assert.Equal(t, "bucket", c.S3Bucket)
	assert.Equal(t, "http://minio:9000", c.S3BaseEndpoint)
}

func TestLoadConfig_TOMLFile(t *testing.T) {
	noEnv(t, nil)
	path := writeFile(t, "kosync.toml", `
db_path = "store.db"
db_open_timeout = "250ms"
log_level = "debug"
s3_region = "eu-central-1"
`)

	c, err := LoadConfig(newFlagSet(t, "-c", path))
	require.NoError(t, err)

	assert.Equal(t, "store.db", c.DBPath)
	assert.Equal(t, 250*time.Millisecond, c.DBOpenTimeout)
	assert.Equal(t, "debug", c.LogLevel)
	assert.Equal(t, "eu-central-1", c.S3Region)
	assert.Equal(t, "0.0.0.0:3000", c.EndpointAddrGRPC)
}

func TestLoadConfig_BadFiles(t *testing.T) {
	noEnv(t, nil)

	tests := []struct {
		name string
		path string
	}{
		{"missing", filepath.Join(t.TempDir(), "nope.json")},
		{"invalid json", writeFile(t, "bad.json", `{ this is not valid json`)},
		{"unknown json key", writeFile(t, "extra.json", `{"database_dsn": "postgres://"}`)},
		{"invalid toml", writeFile(t, "bad.toml", `db_path = `)},
		{"unknown toml key", writeFile(t, "extra.toml", `secret_key = "x"`)},
		{"bad duration", writeFile(t, "dur.json", `{"db_open_timeout": "soon"}`)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(newFlagSet(t, "--config", tt.path))
			assert.Error(t, err)
		})
	}
}

func TestLoadConfig_EnvOverridesFile(t *testing.T) {
	path := writeFile(t, "cfg.json", `{"db_path": "from-file.db", "log_level": "warn"}`)
	noEnv(t, map[string]string{
		"KOSYNC_DB_PATH":         "from-env.db",
		"KOSYNC_SERVER_ADDRESS":  "0.0.0.0:8080",
		"KOSYNC_DB_OPEN_TIMEOUT": "10s",
		"KOSYNC_S3_BUCKET":       "backups",
		"KOSYNC_LOG_FORMAT":      "",
	})

	c, err := LoadConfig(newFlagSet(t, "--config", path))
	require.NoError(t, err)

	assert.Equal(t, "from-env.db", c.DBPath)
	assert.Equal(t, "warn", c.LogLevel)
	assert.Equal(t, "0.0.0.0:8080", c.EndpointAddrGRPC)
	assert.Equal(t, 10*time.Second, c.DBOpenTimeout)
	assert.Equal(t, "backups", c.S3Bucket)
	assert.Equal(t, "text", c.LogFormat, "empty variables are ignored")
}

func TestLoadConfig_BadEnvDuration(t *testing.T) {
	noEnv(t, map[string]string{"KOSYNC_DB_OPEN_TIMEOUT": "forever"})

	_, err := LoadConfig(nil)
	assert.ErrorContains(t, err, "KOSYNC_DB_OPEN_TIMEOUT")
}

func TestLoadConfig_FlagsOverrideEverything(t *testing.T) {
	path := writeFile(t, "cfg.json", `{"db_path": "from-file.db", "log_format": "json"}`)
	noEnv(t, map[string]string{"KOSYNC_DB_PATH": "from-env.db"})

	fs := newFlagSet(t,
		"--config", path,
		"--db-path", "from-flag.db",
		"--db-open-timeout", "7s",
		"-a", "127.0.0.1:9090",
		"--log-level", "error",
	)
	c, err := LoadConfig(fs)
	require.NoError(t, err)

	assert.Equal(t, "from-flag.db", c.DBPath)
	assert.Equal(t, 7*time.Second, c.DBOpenTimeout)
	assert.Equal(t, "127.0.0.1:9090", c.EndpointAddrGRPC)
	assert.Equal(t, "error", c.LogLevel)
	assert.Equal(t, "json", c.LogFormat, "unset flags must not reset file values")
}

func TestLoadConfig_IgnoresUnregisteredFlags(t *testing.T) {
	noEnv(t, nil)
	fs := pflag.NewFlagSet("partial", pflag.ContinueOnError)
	fs.String(FlagDBPath, "", "")
	require.NoError(t, fs.Parse([]string{"--db-path", "x.db"}))

	c, err := LoadConfig(fs)
	require.NoError(t, err)
	assert.Equal(t, "x.db", c.DBPath)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"empty db path", func(c *Config) { c.DBPath = "" }},
		{"negative timeout", func(c *Config) { c.DBOpenTimeout = -time.Second }},
		{"empty address", func(c *Config) { c.EndpointAddrGRPC = "" }},
		{"bad log format", func(c *Config) { c.LogFormat = "xml" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var c Config
			c.LoadDefaults()
			tt.mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
}
