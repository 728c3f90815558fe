// Package config loads command-line configuration shared by cmd/rfsctl
// and cmd/rfsmount, viper-backed the way the teacher's cmd/vmapfs reads
// flags directly but generalized to also accept a config file and
// environment overrides.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config is the resolved set of options every rfs command front end
// needs: where the local provider roots, and how noisy logging is.
type Config struct {
	LocalRoot string `mapstructure:"local_root"`
	LogLevel  string `mapstructure:"log_level"`
	MountPath string `mapstructure:"mount_path"`
}

// Load reads configFile (if non-empty), then RFS_-prefixed environment
// variables, then defaults, into a Config.
func Load(configFile string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("RFS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("local_root", ".")
	v.SetDefault("log_level", "INFO")
	v.SetDefault("mount_path", "")

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("rfs: reading config %q: %w", configFile, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("rfs: parsing config: %w", err)
	}
	return cfg, nil
}
