// Package config loads cd3 settings from config.yaml, CD3_* environment
// variables and built-in defaults through a viper singleton.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DirName is the per-project data directory.
const DirName = ".cd3"

// ConfigFileName is the settings file inside DirName.
const ConfigFileName = "config.yaml"

var v *viper.Viper

// Initialize sets up the viper configuration singleton.
// Should be called once at application startup.
//
// Config file lookup order, first hit wins:
//  1. .cd3/config.yaml in the working directory or any parent
//  2. $XDG_CONFIG_HOME/cd3/config.yaml
//  3. ~/.config/cd3/config.yaml
func Initialize() error {
	v = viper.New()
	v.SetConfigType("yaml")

	if path := findConfigFile(); path != "" {
		v.SetConfigFile(path)
	}

	// CD3_NO_COLOR -> no-color, CD3_DOLT_HOST -> dolt.host
	v.SetEnvPrefix("CD3")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetDefault("json", false)
	v.SetDefault("backend", "file")
	v.SetDefault("db", "")
	v.SetDefault("no-color", false)
	v.SetDefault("lock-timeout", 5*time.Second)
	v.SetDefault("list.sort", "cd3-desc,name-asc")

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.stdout", false)

	v.SetDefault("dolt.host", "127.0.0.1")
	v.SetDefault("dolt.port", 3306)
	v.SetDefault("dolt.user", "root")
	v.SetDefault("dolt.password", "")
	v.SetDefault("dolt.database", "cd3")
	v.SetDefault("dolt.auto-commit", true)

	if v.ConfigFileUsed() != "" {
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}
	return nil
}

func findConfigFile() string {
	if dir, err := FindDataDir(); err == nil {
		path := filepath.Join(dir, ConfigFileName)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	var candidates []string
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		candidates = append(candidates, filepath.Join(xdg, "cd3", ConfigFileName))
	}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".config", "cd3", ConfigFileName))
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// ErrNoDataDir is returned when no .cd3 directory exists above the
// working directory.
var ErrNoDataDir = errors.New("no .cd3 directory found (run 'cd3 init')")

// FindDataDir walks up from the working directory looking for .cd3.
// CD3_DIR overrides the search.
func FindDataDir() (string, error) {
	if dir := os.Getenv("CD3_DIR"); dir != "" {
		return filepath.Abs(dir)
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get working directory: %w", err)
	}
	for dir := cwd; ; {
		candidate := filepath.Join(dir, DirName)
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", ErrNoDataDir
		}
		dir = parent
	}
}

// ConfigFileUsed returns the loaded config file path, or "".
func ConfigFileUsed() string {
	if v == nil {
		return ""
	}
	return v.ConfigFileUsed()
}

// GetString retrieves a string configuration value
func GetString(key string) string {
	if v == nil {
		return ""
	}
	return v.GetString(key)
}

// GetBool retrieves a boolean configuration value
func GetBool(key string) bool {
	if v == nil {
		return false
	}
	return v.GetBool(key)
}

// GetInt retrieves an integer configuration value
func GetInt(key string) int {
	if v == nil {
		return 0
	}
	return v.GetInt(key)
}

// GetDuration retrieves a duration configuration value
func GetDuration(key string) time.Duration {
	if v == nil {
		return 0
	}
	return v.GetDuration(key)
}

// IsSet reports whether key has a value from any source other than defaults.
func IsSet(key string) bool {
	if v == nil {
		return false
	}
	return v.InConfig(key) || os.Getenv(envName(key)) != ""
}

func envName(key string) string {
	return "CD3_" + strings.ToUpper(strings.NewReplacer(".", "_", "-", "_").Replace(key))
}

// Set sets a configuration value
func Set(key string, value interface{}) {
	if v != nil {
		v.Set(key, value)
	}
}

// AllSettings returns all configuration settings as a map
func AllSettings() map[string]interface{} {
	if v == nil {
		return map[string]interface{}{}
	}
	return v.AllSettings()
}

// ResetForTesting drops the singleton so the next Initialize starts clean.
func ResetForTesting() {
	v = nil
}
