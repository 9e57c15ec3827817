// Package config resolves runtime settings from defaults, an optional TOML or
// YAML file and TEEMO_* environment variables, in that order of precedence.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

const (
	BackendSQLite = "sqlite"
	BackendFile   = "file"
	BackendMemory = "memory"

	DriverSQLite3 = "sqlite3"
	DriverModernc = "sqlite"
)

type RuntimeConfig struct {
	DataPath             string
	StoreBackend         string
	SQLiteDriver         string
	LogFile              string
	LogLevel             string
	LogFormat            string
	DesktopNotifications bool
	DueAlerts            bool
	DueAlertBuffer       int
}

func DefaultRuntimeConfig() RuntimeConfig {
	return RuntimeConfig{
		DataPath:             "teemo.db",
		StoreBackend:         BackendSQLite,
		SQLiteDriver:         DriverSQLite3,
		LogLevel:             "info",
		LogFormat:            "text",
		DesktopNotifications: false,
		DueAlerts:            true,
		DueAlertBuffer:       64,
	}
}

// LogPath is the configured log file, or teemo.log beside the data path.
func (c RuntimeConfig) LogPath() string {
	if c.LogFile != "" {
		return c.LogFile
	}
	return filepath.Join(filepath.Dir(c.DataPath), "teemo.log")
}

func (c RuntimeConfig) Validate() error {
	switch c.StoreBackend {
	case BackendSQLite, BackendFile, BackendMemory:
	default:
		return fmt.Errorf("store_backend must be one of sqlite, file, memory; got %q", c.StoreBackend)
	}
	switch c.SQLiteDriver {
	case DriverSQLite3, DriverModernc:
	default:
		return fmt.Errorf("sqlite_driver must be sqlite3 or sqlite; got %q", c.SQLiteDriver)
	}
	if c.StoreBackend != BackendMemory && strings.TrimSpace(c.DataPath) == "" {
		return fmt.Errorf("data_path is required for the %s backend", c.StoreBackend)
	}
	if c.DueAlertBuffer <= 0 {
		return fmt.Errorf("due_alert_buffer must be positive; got %d", c.DueAlertBuffer)
	}
	return nil
}

// fileConfig mirrors RuntimeConfig with optional fields so a file only
// overrides the keys it sets.
type fileConfig struct {
	DataPath             *string `toml:"data_path" yaml:"data_path"`
	StoreBackend         *string `toml:"store_backend" yaml:"store_backend"`
	SQLiteDriver         *string `toml:"sqlite_driver" yaml:"sqlite_driver"`
	LogFile              *string `toml:"log_file" yaml:"log_file"`
	LogLevel             *string `toml:"log_level" yaml:"log_level"`
	LogFormat            *string `toml:"log_format" yaml:"log_format"`
	DesktopNotifications *bool   `toml:"desktop_notifications" yaml:"desktop_notifications"`
	DueAlerts            *bool   `toml:"due_alerts" yaml:"due_alerts"`
	DueAlertBuffer       *int    `toml:"due_alert_buffer" yaml:"due_alert_buffer"`
}

// LoadFile overlays the file at path onto base. The format follows the
// extension: .toml, or .yaml/.yml. ${VAR} references are expanded first.
func LoadFile(path string, base RuntimeConfig) (RuntimeConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return base, fmt.Errorf("reading config file: %w", err)
	}
	expanded := expandEnvVars(string(data))

	var fc fileConfig
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		if _, err := toml.Decode(expanded, &fc); err != nil {
			return base, fmt.Errorf("parsing config file: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal([]byte(expanded), &fc); err != nil {
			return base, fmt.Errorf("parsing config file: %w", err)
		}
	default:
		return base, fmt.Errorf("unsupported config extension %q", ext)
	}

	cfg := base
	setString(&cfg.DataPath, fc.DataPath)
	setString(&cfg.StoreBackend, fc.StoreBackend)
	setString(&cfg.SQLiteDriver, fc.SQLiteDriver)
	setString(&cfg.LogFile, fc.LogFile)
	setString(&cfg.LogLevel, fc.LogLevel)
	setString(&cfg.LogFormat, fc.LogFormat)
	if fc.DesktopNotifications != nil {
		cfg.DesktopNotifications = *fc.DesktopNotifications
	}
	if fc.DueAlerts != nil {
		cfg.DueAlerts = *fc.DueAlerts
	}
	if fc.DueAlertBuffer != nil && *fc.DueAlertBuffer > 0 {
		cfg.DueAlertBuffer = *fc.DueAlertBuffer
	}
	return cfg, nil
}

func setString(dst *string, v *string) {
	if v != nil && strings.TrimSpace(*v) != "" {
		*dst = strings.TrimSpace(*v)
	}
}

var envRef = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR} with the variable's value, or "" when unset.
func expandEnvVars(s string) string {
	return envRef.ReplaceAllStringFunc(s, func(match string) string {
		return os.Getenv(envRef.FindStringSubmatch(match)[1])
	})
}

func RuntimeConfigFromEnv(base RuntimeConfig) RuntimeConfig {
	cfg := base
	if v, ok := getEnvString("TEEMO_DATA_PATH"); ok {
		cfg.DataPath = v
	}
	if v, ok := getEnvString("TEEMO_STORE_BACKEND"); ok {
		cfg.StoreBackend = strings.ToLower(v)
	}
	if v, ok := getEnvString("TEEMO_SQLITE_DRIVER"); ok {
		cfg.SQLiteDriver = strings.ToLower(v)
	}
	if v, ok := getEnvString("TEEMO_LOG_FILE"); ok {
		cfg.LogFile = v
	}
	if v, ok := getEnvString("TEEMO_LOG_LEVEL"); ok {
		cfg.LogLevel = v
	}
	if v, ok := getEnvString("TEEMO_LOG_FORMAT"); ok {
		cfg.LogFormat = v
	}
	if v, ok := getEnvBool("TEEMO_DESKTOP_NOTIFICATIONS"); ok {
		cfg.DesktopNotifications = v
	}
	if v, ok := getEnvBool("TEEMO_DUE_ALERTS"); ok {
		cfg.DueAlerts = v
	}
	if v, ok := getEnvInt("TEEMO_DUE_ALERT_BUFFER"); ok && v > 0 {
		cfg.DueAlertBuffer = v
	}
	return cfg
}

func getEnvString(name string) (string, bool) {
	raw := strings.TrimSpace(os.Getenv(name))
	return raw, raw != ""
}

func getEnvInt(name string) (int, bool) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return 0, false
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return v, true
}

func getEnvBool(name string) (bool, bool) {
	raw := strings.TrimSpace(strings.ToLower(os.Getenv(name)))
	if raw == "" {
		return false, false
	}
	switch raw {
	case "1", "true", "yes", "y", "on":
		return true, true
	case "0", "false", "no", "n", "off":
		return false, true
	default:
		return false, false
	}
}
