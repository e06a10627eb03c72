package config

import (
	"github.com/spf13/pflag"
)

// LoadConfig builds a Config by applying defaults, then the config file named
// by --config, then KOSYNC_* environment variables, and finally explicitly
// set command-line flags. fs may be nil.
func LoadConfig(fs *pflag.FlagSet) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if err := parseFile(cfg, configPath(fs)); err != nil {
		return nil, err
	}
	if err := parseEnv(cfg); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, fs); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
