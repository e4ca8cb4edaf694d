package config

import (
	"errors"
	"os"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
)

// DefaultConfigPath is used when neither the CLI argument nor the
// SC2_PROXY_CONFIG environment variable name a file (spec §6).
const DefaultConfigPath = "sc2_proxy.toml"

// EnvVar is the environment variable that overrides the config path.
const EnvVar = "SC2_PROXY_CONFIG"

// ResolvePath implements the CLI/env/default priority from spec §6: an
// explicit CLI argument wins, then SC2_PROXY_CONFIG, then the default path.
func ResolvePath(cliArg string) string {
	if cliArg != "" {
		return cliArg
	}
	if v := os.Getenv(EnvVar); v != "" {
		return v
	}
	return DefaultConfigPath
}

// Load reads the TOML file at path into a Config seeded with DefaultConfig
// values, so every unset table or field keeps its default (spec §6: "All
// tables and fields have defaults"). A missing file is non-fatal: the
// defaults are returned unchanged. A malformed file is fatal and returned as
// an error.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || os.IsNotExist(err) {
			return cfg, nil
		}
		return Config{}, err
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Encode renders cfg as TOML, the inverse of Load/Decode. Used by the
// Remote Control server's GetConfig response and by the config TOML
// round-trip property (spec §8 property 8).
func Encode(cfg Config) ([]byte, error) {
	return toml.Marshal(cfg)
}

// Decode parses TOML bytes into a Config seeded with defaults, mirroring
// Load's missing-field-defaulting behavior but operating on an in-memory
// buffer instead of a file (used by the Remote Control server's SetConfig).
func Decode(b []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := toml.Unmarshal(b, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
