// env.go - Environment variable configuration and validation
package conf

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/tphakala/lungcheck/internal/logger"
)

// EnvPrefix and EnvDelimiter form variable names such as APP_CONFIG__WEBSERVER__PORT
const (
	EnvPrefix    = "APP_CONFIG"
	EnvDelimiter = "__"
)

// envBinding holds metadata for environment variable bindings
type envBinding struct {
	ConfigKey string             // Viper config key
	Validate  func(string) error // Optional validation function
}

// EnvVar returns the environment variable name bound to the config key
func (b envBinding) EnvVar() string {
	return EnvVarName(b.ConfigKey)
}

// EnvVarName converts a dotted config key to its environment variable name
func EnvVarName(configKey string) string {
	parts := strings.Split(strings.ToUpper(configKey), ".")
	return EnvPrefix + EnvDelimiter + strings.Join(parts, EnvDelimiter)
}

// getEnvBindings returns all environment variable bindings with validation
func getEnvBindings() []envBinding {
	return []envBinding{
		{"debug", validateEnvBool},

		{"webserver.host", nil},
		{"webserver.port", validateEnvPort},
		{"webserver.bodylimit", nil},
		{"webserver.requesttimeout", validateEnvDuration},
		{"webserver.ratelimit", validateEnvNonNegativeFloat},
		{"webserver.rateburst", validateEnvNonNegativeInt},
		{"webserver.corsorigins", nil},
		{"webserver.shutdowngrace", validateEnvDuration},

		{"api.prefix", validateEnvPrefix},
		{"api.v1.prefix", validateEnvPrefix},
		{"api.v1.lungcheck.prefix", validateEnvPrefix},
		{"api.historycachettl", validateEnvDuration},

		{"model.path", nil},
		{"model.threads", validateEnvNonNegativeInt},
		{"model.accelerator", validateEnvAccelerator},

		{"database.type", validateEnvDatabaseType},
		{"database.dsn", nil},
		{"database.path", nil},
		{"database.maxopenconns", validateEnvNonNegativeInt},
		{"database.maxidleconns", validateEnvNonNegativeInt},
		{"database.connmaxlifetime", validateEnvDuration},
		{"database.slowquery", validateEnvDuration},
		{"database.debug", validateEnvBool},

		{"logging.level", validateEnvLogLevel},
		{"logging.format", validateEnvLogFormat},
		{"logging.timezone", nil},
		{"logging.file", nil},

		{"telemetry.enabled", validateEnvBool},
		{"telemetry.dsn", nil},
		{"telemetry.environment", nil},
		{"telemetry.samplerate", validateEnvNonNegativeFloat},

		{"metrics.enabled", validateEnvBool},
		{"metrics.path", validateEnvPrefix},
	}
}

// bindEnvVars binds every known key to its APP_CONFIG__ variable and validates set values
func bindEnvVars(v *viper.Viper) error {
	var problems []string

	for _, binding := range getEnvBindings() {
		envVar := binding.EnvVar()
		if err := v.BindEnv(binding.ConfigKey, envVar); err != nil {
			problems = append(problems, fmt.Sprintf("failed to bind %s: %v", envVar, err))
			continue
		}

		if binding.Validate == nil {
			continue
		}
		if envValue, ok := os.LookupEnv(envVar); ok && envValue != "" {
			if err := binding.Validate(envValue); err != nil {
				problems = append(problems, fmt.Sprintf("invalid %s value '%s': %v",
					envVar, logger.RedactSensitiveData(envValue), err))
			}
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("environment variable issues:\n  - %s", strings.Join(problems, "\n  - "))
	}
	return nil
}

func validateEnvBool(value string) error {
	if _, err := strconv.ParseBool(strings.TrimSpace(value)); err != nil {
		return fmt.Errorf("invalid boolean value: %s", value)
	}
	return nil
}

func validateEnvPort(value string) error {
	port, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fmt.Errorf("invalid port number: %s", value)
	}
	if port < 1 || port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", port)
	}
	return nil
}

func validateEnvDuration(value string) error {
	if _, err := time.ParseDuration(strings.TrimSpace(value)); err != nil {
		return fmt.Errorf("invalid duration: %s", value)
	}
	return nil
}

func validateEnvNonNegativeInt(value string) error {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fmt.Errorf("invalid integer: %s", value)
	}
	if n < 0 {
		return fmt.Errorf("must not be negative, got %d", n)
	}
	return nil
}

func validateEnvNonNegativeFloat(value string) error {
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fmt.Errorf("invalid number: %s", value)
	}
	if f < 0 {
		return fmt.Errorf("must not be negative, got %g", f)
	}
	return nil
}

func validateEnvPrefix(value string) error {
	return validatePrefix(strings.TrimSpace(value))
}

func validateEnvAccelerator(value string) error {
	return validateAccelerator(strings.ToLower(strings.TrimSpace(value)))
}

func validateEnvDatabaseType(value string) error {
	return validateDatabaseType(strings.ToLower(strings.TrimSpace(value)))
}

func validateEnvLogLevel(value string) error {
	if !logger.ValidLevel(strings.TrimSpace(value)) {
		return fmt.Errorf("invalid log level: %s", value)
	}
	return nil
}

func validateEnvLogFormat(value string) error {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case logger.FormatText, logger.FormatJSON:
		return nil
	default:
		return fmt.Errorf("invalid log format: %s", value)
	}
}
