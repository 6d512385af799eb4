// Package config manages Jin's layered configuration: environment variables,
// a project-local .jin/config.yaml (walked up from the cwd), or failing that
// a user-level config.yaml ($XDG_CONFIG_HOME/jin, then ~/.jin), through a
// single viper instance.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/dabstractor/jin/internal/debug"
)

const (
	MetaDirName  = ".jin"
	ConfigFile   = "config.yaml"
	EnvPrefix    = "JIN"
	RootEnvVar   = "JIN_OBJSTORE_ROOT"
	defaultRoot  = ".jin-store"
	defaultRoute = "auto"
)

var v *viper.Viper

// Initialize sets up the viper singleton. Must be called exactly once at
// process startup, before any command reads configuration.
func Initialize() error {
	v = viper.New()
	v.SetConfigType("yaml")

	configFileSet := false

	// 1. Walk up from cwd looking for .jin/config.yaml, so subcommands work
	// from any directory inside the project tree.
	if cwd, err := os.Getwd(); err == nil {
		for dir := cwd; dir != filepath.Dir(dir); dir = filepath.Dir(dir) {
			p := filepath.Join(dir, MetaDirName, ConfigFile)
			if _, statErr := os.Stat(p); statErr == nil {
				v.SetConfigFile(p)
				configFileSet = true
				break
			}
		}
	}

	// 2. $XDG_CONFIG_HOME/jin/config.yaml
	if !configFileSet {
		if configDir, err := os.UserConfigDir(); err == nil {
			p := filepath.Join(configDir, "jin", ConfigFile)
			if _, statErr := os.Stat(p); statErr == nil {
				v.SetConfigFile(p)
				configFileSet = true
			}
		}
	}

	// 3. ~/.jin/config.yaml
	if !configFileSet {
		if home, err := os.UserHomeDir(); err == nil {
			p := filepath.Join(home, MetaDirName, ConfigFile)
			if _, statErr := os.Stat(p); statErr == nil {
				v.SetConfigFile(p)
				configFileSet = true
			}
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetDefault("json", false)
	v.SetDefault("actor", "")
	v.SetDefault("no-push", false)
	v.SetDefault("routing.mode", defaultRoute)
	v.SetDefault("sync.require-confirmation-on-mass-delete", false)
	v.SetDefault("apply.require-description", false)

	if configFileSet {
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("error reading config file: %w", err)
		}
		debug.Logf("loaded config from %s", v.ConfigFileUsed())
	} else {
		debug.Logf("no config.yaml found; using defaults and environment variables")
	}

	return nil
}

// Source identifies where a resolved configuration value came from.
type Source string

const (
	SourceDefault Source = "default"
	SourceFile    Source = "file"
	SourceEnv     Source = "env"
)

// ValueSource reports which layer supplied the current value of key.
func ValueSource(key string) Source {
	if v == nil {
		return SourceDefault
	}
	envKey := EnvPrefix + "_" + strings.NewReplacer(".", "_", "-", "_").Replace(strings.ToUpper(key))
	if _, ok := os.LookupEnv(envKey); ok {
		return SourceEnv
	}
	if v.InConfig(key) {
		return SourceFile
	}
	return SourceDefault
}

// Get returns the string value of key.
func Get(key string) string {
	if v == nil {
		return ""
	}
	return v.GetString(key)
}

// GetBool returns the bool value of key.
func GetBool(key string) bool {
	if v == nil {
		return false
	}
	return v.GetBool(key)
}

// Set writes key=value into the project config file, creating it if absent.
func Set(key, value string) error {
	if v == nil {
		return fmt.Errorf("config not initialized")
	}
	v.Set(key, value)
	path := v.ConfigFileUsed()
	if path == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return err
		}
		dir := filepath.Join(cwd, MetaDirName)
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return err
		}
		path = filepath.Join(dir, ConfigFile)
		v.SetConfigFile(path)
	}
	return v.WriteConfigAs(path)
}

// AllSettings returns the fully merged configuration map.
func AllSettings() map[string]any {
	if v == nil {
		return nil
	}
	return v.AllSettings()
}

// StoreRoot resolves the object-store root from the environment. Per the
// global-state design note, this is read once at startup and must never be
// consulted elsewhere in the program; callers thread the resolved value
// through explicitly instead of calling this more than once per process.
func StoreRoot() string {
	if root := os.Getenv(RootEnvVar); root != "" {
		return root
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return defaultRoot
	}
	return filepath.Join(home, defaultRoot)
}
