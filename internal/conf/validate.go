// conf/validate.go

package conf

import (
	"fmt"
	"strings"

	"github.com/tphakala/lungcheck/internal/logger"
)

// Accelerator choices for model.accelerator
const (
	AcceleratorAuto    = "auto"
	AcceleratorCPU     = "cpu"
	AcceleratorXNNPACK = "xnnpack"
)

// Database backends for database.type
const (
	DatabaseSQLite   = "sqlite"
	DatabaseMySQL    = "mysql"
	DatabasePostgres = "postgres"
)

// ValidationError represents a collection of validation errors
type ValidationError struct {
	Errors []string
}

// Error returns a string representation of the validation errors
func (ve ValidationError) Error() string {
	return fmt.Sprintf("Validation errors: %v", ve.Errors)
}

// ValidateSettings validates the entire Settings struct and normalizes enum casing
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}

	collect := func(err error) {
		if err != nil {
			ve.Errors = append(ve.Errors, err.Error())
		}
	}

	collect(validateWebServerSettings(&settings.WebServer))
	collect(validateAPISettings(&settings.API))
	collect(validateModelSettings(&settings.Model))
	collect(validateDatabaseSettings(&settings.Database))
	collect(validateLoggingSettings(&settings.Logging))
	collect(validateTelemetrySettings(&settings.Telemetry))
	if settings.Metrics.Enabled {
		collect(validatePrefix(settings.Metrics.Path))
	}

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

func validateWebServerSettings(s *WebServerSettings) error {
	if s.Port < 1 || s.Port > 65535 {
		return fmt.Errorf("webserver.port must be between 1 and 65535, got %d", s.Port)
	}
	if s.RequestTimeout < 0 {
		return fmt.Errorf("webserver.requesttimeout must not be negative")
	}
	if s.RateLimit < 0 || s.RateBurst < 0 {
		return fmt.Errorf("webserver rate limit settings must not be negative")
	}
	if s.RateLimit > 0 && s.RateBurst == 0 {
		return fmt.Errorf("webserver.rateburst must be at least 1 when rate limiting is enabled")
	}
	if strings.TrimSpace(s.BodyLimit) == "" {
		return fmt.Errorf("webserver.bodylimit must be set")
	}
	return nil
}

func validateAPISettings(s *APISettings) error {
	for _, p := range []string{s.Prefix, s.V1.Prefix, s.V1.LungCheck.Prefix} {
		if err := validatePrefix(p); err != nil {
			return err
		}
	}
	if s.HistoryCacheTTL < 0 {
		return fmt.Errorf("api.historycachettl must not be negative")
	}
	return nil
}

// validatePrefix accepts "" or a path segment starting with "/" and not ending with one
func validatePrefix(prefix string) error {
	if prefix == "" {
		return nil
	}
	if !strings.HasPrefix(prefix, "/") || strings.HasSuffix(prefix, "/") {
		return fmt.Errorf("path prefix %q must start with '/' and not end with '/'", prefix)
	}
	return nil
}

func validateModelSettings(s *ModelSettings) error {
	if s.Path == "" {
		return fmt.Errorf("model.path must be set")
	}
	if s.Threads < 0 {
		return fmt.Errorf("model.threads must not be negative")
	}
	s.Accelerator = strings.ToLower(s.Accelerator)
	return validateAccelerator(s.Accelerator)
}

func validateAccelerator(value string) error {
	switch value {
	case AcceleratorAuto, AcceleratorCPU, AcceleratorXNNPACK:
		return nil
	default:
		return fmt.Errorf("model.accelerator must be one of auto, cpu, xnnpack, got %q", value)
	}
}

func validateDatabaseSettings(s *DatabaseSettings) error {
	s.Type = strings.ToLower(s.Type)
	if err := validateDatabaseType(s.Type); err != nil {
		return err
	}
	switch s.Type {
	case DatabaseSQLite:
		if s.Path == "" {
			return fmt.Errorf("database.path must be set for sqlite")
		}
	default:
		if s.DSN == "" {
			return fmt.Errorf("database.dsn must be set for %s", s.Type)
		}
	}
	if s.MaxOpenConns < 0 || s.MaxIdleConns < 0 {
		return fmt.Errorf("database pool sizes must not be negative")
	}
	if s.MaxOpenConns > 0 && s.MaxIdleConns > s.MaxOpenConns {
		return fmt.Errorf("database.maxidleconns (%d) exceeds database.maxopenconns (%d)", s.MaxIdleConns, s.MaxOpenConns)
	}
	return nil
}

func validateDatabaseType(value string) error {
	switch value {
	case DatabaseSQLite, DatabaseMySQL, DatabasePostgres:
		return nil
	default:
		return fmt.Errorf("database.type must be one of sqlite, mysql, postgres, got %q", value)
	}
}

func validateLoggingSettings(s *LoggingSettings) error {
	s.Level = strings.ToLower(s.Level)
	if !logger.ValidLevel(s.Level) {
		return fmt.Errorf("logging.level %q is not a valid level", s.Level)
	}
	s.Format = strings.ToLower(s.Format)
	if s.Format != logger.FormatText && s.Format != logger.FormatJSON {
		return fmt.Errorf("logging.format must be text or json, got %q", s.Format)
	}
	return nil
}

func validateTelemetrySettings(s *TelemetrySettings) error {
	if s.Enabled && s.DSN == "" {
		return fmt.Errorf("telemetry.dsn must be set when telemetry is enabled")
	}
	if s.SampleRate < 0 || s.SampleRate > 1 {
		return fmt.Errorf("telemetry.samplerate must be between 0 and 1, got %g", s.SampleRate)
	}
	return nil
}
