package api

import "github.com/tphakala/lungcheck/internal/logger"

// GetLogger returns the v1 API logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("api.v1")
}
