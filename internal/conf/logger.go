package conf

import "github.com/tphakala/lungcheck/internal/logger"

// GetLogger returns the config package logger.
// It is fetched from the global logger each call because settings load before SetGlobal.
func GetLogger() logger.Logger {
	return logger.Global().Module("config")
}
