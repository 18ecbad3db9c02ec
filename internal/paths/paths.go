// Package paths resolves where proyek keeps its configuration and its data.
package paths

import (
	"os"
	"path/filepath"
	"runtime"
)

// AppName names the per-user directories.
const AppName = "proyek"

// Directory names used relative to the working directory.
const (
	DefaultConfigDirName = ".proyek"
	DefaultDataDirName   = ".proyek-db"
)

// ConfigFileName is the configuration file inside the config dir.
const ConfigFileName = "config.yaml"

// Environment overrides.
const (
	EnvConfigDir = "PROYEK_CONFIG_DIR"
	EnvDataDir   = "PROYEK_DATA_DIR"
)

// Replaced in tests.
var (
	homeDir       = os.UserHomeDir
	userConfigDir = os.UserConfigDir
	getwd         = os.Getwd
)

// DefaultConfigDir returns the per-user configuration directory:
// $XDG_CONFIG_HOME/proyek or ~/.config/proyek on Linux, and
// os.UserConfigDir()/proyek elsewhere.
func DefaultConfigDir() (string, error) {
	return userDir("XDG_CONFIG_HOME", ".config")
}

// DefaultDataDir returns the per-user data directory:
// $XDG_DATA_HOME/proyek or ~/.local/share/proyek on Linux, and
// os.UserConfigDir()/proyek elsewhere.
func DefaultDataDir() (string, error) {
	return userDir("XDG_DATA_HOME", ".local", "share")
}

func userDir(xdgVar string, linuxFallback ...string) (string, error) {
	if runtime.GOOS != "linux" {
		dir, err := userConfigDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(dir, AppName), nil
	}
	if xdg := os.Getenv(xdgVar); xdg != "" {
		return filepath.Join(xdg, AppName), nil
	}
	home, err := homeDir()
	if err != nil {
		return "", err
	}
	parts := append([]string{home}, linuxFallback...)
	return filepath.Join(append(parts, AppName)...), nil
}

// ResolveConfigDir picks the config dir: flag, then PROYEK_CONFIG_DIR, then
// DefaultConfigDir. Explicit values are made absolute.
func ResolveConfigDir(flag string) (string, error) {
	if dir := firstNonEmpty(flag, os.Getenv(EnvConfigDir)); dir != "" {
		return filepath.Abs(dir)
	}
	return DefaultConfigDir()
}

// ResolveDataDir picks the data dir: flag, then the config file's data_dir,
// then PROYEK_DATA_DIR, then .proyek-db under the working directory.
func ResolveDataDir(flag, configValue string) (string, error) {
	if dir := firstNonEmpty(flag, configValue, os.Getenv(EnvDataDir)); dir != "" {
		return filepath.Abs(dir)
	}
	cwd, err := getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(cwd, DefaultDataDirName), nil
}

// ConfigFile returns the config file path inside configDir.
func ConfigFile(configDir string) string {
	return filepath.Join(configDir, ConfigFileName)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
