// Package conf provides configuration management for lungcheck.
package conf

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/viper"

	"github.com/tphakala/lungcheck/internal/logger"
)

// WebServerSettings contains HTTP listener and request guard settings
type WebServerSettings struct {
	Host           string        `yaml:"host"`           // listen address, 0.0.0.0 for all interfaces
	Port           int           `yaml:"port"`           // listen port
	BodyLimit      string        `yaml:"bodylimit"`      // maximum request body, e.g. "10M"
	RequestTimeout time.Duration `yaml:"requesttimeout"` // per-request timeout, 0 disables
	RateLimit      float64       `yaml:"ratelimit"`      // requests per second per client IP, 0 disables
	RateBurst      int           `yaml:"rateburst"`      // burst allowance for the rate limiter
	CORSOrigins    []string      `yaml:"corsorigins"`    // allowed CORS origins
	ShutdownGrace  time.Duration `yaml:"shutdowngrace"`  // graceful shutdown window
}

// LungCheckAPISettings holds the diagnosis route group prefix
type LungCheckAPISettings struct {
	Prefix string `yaml:"prefix"`
}

// APIV1Settings holds version 1 API settings
type APIV1Settings struct {
	Prefix    string               `yaml:"prefix"`
	LungCheck LungCheckAPISettings `yaml:"lungcheck"`
}

// APISettings holds API path prefixes and response caching
type APISettings struct {
	Prefix          string        `yaml:"prefix"`
	V1              APIV1Settings `yaml:"v1"`
	HistoryCacheTTL time.Duration `yaml:"historycachettl"` // history response cache lifetime, 0 disables
}

// ModelSettings describes the classifier weights artifact and runtime
type ModelSettings struct {
	Path        string `yaml:"path"`        // path to the TFLite weights artifact
	Threads     int    `yaml:"threads"`     // interpreter threads, 0 means all logical cores
	Accelerator string `yaml:"accelerator"` // auto, cpu or xnnpack
}

// DatabaseSettings selects and tunes the prediction store backend
type DatabaseSettings struct {
	Type            string        `yaml:"type"`            // sqlite, mysql or postgres
	DSN             string        `yaml:"dsn"`             // connection string for mysql/postgres
	Path            string        `yaml:"path"`            // sqlite database file, ":memory:" for in-memory
	MaxOpenConns    int           `yaml:"maxopenconns"`    // pool ceiling
	MaxIdleConns    int           `yaml:"maxidleconns"`    // idle pool size
	ConnMaxLifetime time.Duration `yaml:"connmaxlifetime"` // 0 keeps connections indefinitely
	SlowQuery       time.Duration `yaml:"slowquery"`       // slow query warning threshold
	Debug           bool          `yaml:"debug"`           // log every statement
}

// LoggingSettings mirrors logger.LoggingConfig
type LoggingSettings struct {
	Level        string            `yaml:"level"`
	Format       string            `yaml:"format"`
	Timezone     string            `yaml:"timezone"`
	File         string            `yaml:"file"`
	ModuleLevels map[string]string `yaml:"modulelevels"`
}

// TelemetrySettings configures Sentry error reporting
type TelemetrySettings struct {
	Enabled     bool    `yaml:"enabled"`
	DSN         string  `yaml:"dsn"`
	Environment string  `yaml:"environment"`
	SampleRate  float64 `yaml:"samplerate"`
}

// MetricsSettings configures the Prometheus endpoint
type MetricsSettings struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Settings contains all configuration options for lungcheck.
// It is loaded once at startup and treated as read-only afterwards.
type Settings struct {
	Debug     bool              `yaml:"debug"`
	WebServer WebServerSettings `yaml:"webserver"`
	API       APISettings       `yaml:"api"`
	Model     ModelSettings     `yaml:"model"`
	Database  DatabaseSettings  `yaml:"database"`
	Logging   LoggingSettings   `yaml:"logging"`
	Telemetry TelemetrySettings `yaml:"telemetry"`
	Metrics   MetricsSettings   `yaml:"metrics"`

	ConfigFile string `yaml:"-"` // file the settings were read from, empty if defaults only
}

// Address returns the host:port the HTTP server listens on
func (s *Settings) Address() string {
	return net.JoinHostPort(s.WebServer.Host, strconv.Itoa(s.WebServer.Port))
}

// LungCheckPrefix returns the full route prefix of the diagnosis endpoints, e.g. /api/v1/lungcheck
func (a *APISettings) LungCheckPrefix() string {
	return a.Prefix + a.V1.Prefix + a.V1.LungCheck.Prefix
}

// LoggingConfig converts the logging section for logger.NewCentralLogger
func (s *Settings) LoggingConfig() *logger.LoggingConfig {
	level := s.Logging.Level
	if s.Debug && parseLevelRank(level) > parseLevelRank("debug") {
		level = "debug"
	}
	return &logger.LoggingConfig{
		Level:        level,
		Format:       s.Logging.Format,
		Timezone:     s.Logging.Timezone,
		File:         s.Logging.File,
		ModuleLevels: s.Logging.ModuleLevels,
	}
}

func parseLevelRank(level string) int {
	switch level {
	case "trace":
		return 0
	case "debug":
		return 1
	case "warn":
		return 3
	case "error":
		return 4
	default:
		return 2
	}
}

// Load reads defaults, the configuration file and APP_CONFIG__ environment variables
// into a new Settings value. An empty configFile searches the default config paths;
// a missing file there is not an error.
func Load(configFile string) (*Settings, error) {
	return load(viper.GetViper(), configFile)
}

func load(v *viper.Viper, configFile string) (*Settings, error) {
	setDefaultConfig(v)

	if err := bindEnvVars(v); err != nil {
		return nil, err
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		for _, path := range defaultConfigPaths() {
			v.AddConfigPath(path)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		GetLogger().Info("no config file found, using defaults and environment")
	}

	settings := &Settings{}
	if err := v.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}
	settings.ConfigFile = v.ConfigFileUsed()

	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}

	return settings, nil
}

// defaultConfigPaths returns the directories searched for config.yaml, in order
func defaultConfigPaths() []string {
	paths := []string{"."}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "lungcheck"))
	}
	return append(paths, "/etc/lungcheck")
}
