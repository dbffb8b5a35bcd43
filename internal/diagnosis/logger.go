package diagnosis

import (
	"sync"

	"github.com/tphakala/lungcheck/internal/logger"
)

var (
	serviceLogger logger.Logger
	initOnce      sync.Once
)

// GetLogger returns the diagnosis package logger.
func GetLogger() logger.Logger {
	initOnce.Do(func() {
		serviceLogger = logger.Global().Module("diagnosis")
	})
	return serviceLogger
}
