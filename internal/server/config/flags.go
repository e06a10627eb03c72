package config

import (
	"github.com/spf13/pflag"
)

// Flag names shared with the CLI.
const (
	FlagConfig        = "config"
	FlagDBPath        = "db-path"
	FlagDBOpenTimeout = "db-open-timeout"
	FlagAddress       = "address"
	FlagLogLevel      = "log-level"
	FlagLogFormat     = "log-format"
)

// RegisterFlags adds the global configuration flags to fs. Defaults shown in
// help come from LoadDefaults; a flag only overrides file and environment
// values when it is set explicitly.
func RegisterFlags(fs *pflag.FlagSet) {
	var d Config
	d.LoadDefaults()

	fs.StringP(FlagConfig, "c", "", "path to a .json or .toml config file")
	fs.String(FlagDBPath, d.DBPath, "path to the store file")
	fs.Duration(FlagDBOpenTimeout, d.DBOpenTimeout, "how long to wait for the store file lock")
	fs.StringP(FlagAddress, "a", d.EndpointAddrGRPC, "address and port to run server")
	fs.String(FlagLogLevel, d.LogLevel, "log level (debug, info, warn, error)")
	fs.String(FlagLogFormat, d.LogFormat, "log format (text, json)")
}

// parseFlags copies explicitly set flags from fs into config. Flags that were
// not registered on fs are ignored.
func parseFlags(config *Config, fs *pflag.FlagSet) error {
	if fs == nil {
		return nil
	}

	strs := map[string]*string{
		FlagDBPath:    &config.DBPath,
		FlagAddress:   &config.EndpointAddrGRPC,
		FlagLogLevel:  &config.LogLevel,
		FlagLogFormat: &config.LogFormat,
	}
	for name, dst := range strs {
		if fs.Lookup(name) == nil || !fs.Changed(name) {
			continue
		}
		v, err := fs.GetString(name)
		if err != nil {
			return err
		}
		*dst = v
	}

	if fs.Lookup(FlagDBOpenTimeout) != nil && fs.Changed(FlagDBOpenTimeout) {
		v, err := fs.GetDuration(FlagDBOpenTimeout)
		if err != nil {
			return err
		}
		config.DBOpenTimeout = v
	}
	return nil
}

// configPath returns the --config value, or "" when unset.
func configPath(fs *pflag.FlagSet) string {
	if fs == nil || fs.Lookup(FlagConfig) == nil {
		return ""
	}
	v, _ := fs.GetString(FlagConfig)
	return v
}
