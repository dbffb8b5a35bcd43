// Package telemetry provides opt-in, privacy-filtered error reporting through Sentry.
package telemetry

import (
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/tphakala/lungcheck/internal/buildinfo"
	"github.com/tphakala/lungcheck/internal/conf"
	"github.com/tphakala/lungcheck/internal/errors"
	"github.com/tphakala/lungcheck/internal/logger"
)

// DefaultFlushTimeout bounds the wait for buffered events at exit.
const DefaultFlushTimeout = 2 * time.Second

var initialized atomic.Bool

// allowedExtra lists the only extra fields kept on outgoing events.
var allowedExtra = map[string]bool{
	"error_type": true,
	"component":  true,
}

// Init configures the Sentry SDK and installs the EnhancedError reporter. It is a
// no-op unless telemetry is enabled. transport may be nil to use the SDK default.
func Init(settings *conf.Settings, transport sentry.Transport) error {
	t := settings.Telemetry
	if !t.Enabled {
		GetLogger().Debug("error telemetry disabled")
		return nil
	}
	if t.DSN == "" {
		return errors.Newf("telemetry.dsn is required when telemetry is enabled").
			Component("telemetry").
			Category(errors.CategoryConfiguration).
			Build()
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              t.DSN,
		SampleRate:       t.SampleRate,
		Environment:      t.Environment,
		Release:          buildinfo.Current().Release(),
		AttachStacktrace: false,
		ServerName:       "", // keep hostnames out of events
		Transport:        transport,
		BeforeSend:       beforeSend,
	})
	if err != nil {
		return fmt.Errorf("sentry initialization failed: %w", err)
	}

	sentry.ConfigureScope(func(scope *sentry.Scope) {
		scope.SetTag("os", runtime.GOOS)
		scope.SetTag("arch", runtime.GOARCH)
		scope.SetTag("go_version", runtime.Version())
	})

	errors.SetTelemetryReporter(errors.NewSentryReporter(true))
	initialized.Store(true)

	GetLogger().Info("error telemetry enabled",
		logger.String("environment", t.Environment),
		logger.Float64("sample_rate", t.SampleRate))
	return nil
}

// beforeSend strips user and host identifying data and redacts secrets from messages.
func beforeSend(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
	event.User = sentry.User{}
	event.ServerName = ""
	event.Request = nil

	if event.Contexts != nil {
		delete(event.Contexts, "device")
		delete(event.Contexts, "os")
		delete(event.Contexts, "runtime")
	}
	for k := range event.Extra {
		if !allowedExtra[k] {
			delete(event.Extra, k)
		}
	}
	if event.Tags != nil {
		delete(event.Tags, "server_name")
		delete(event.Tags, "hostname")
	}

	event.Message = logger.RedactSensitiveData(event.Message)
	for i := range event.Exception {
		event.Exception[i].Value = logger.RedactSensitiveData(event.Exception[i].Value)
	}
	return event
}

// Flush waits up to timeout for buffered events to be delivered.
func Flush(timeout time.Duration) {
	if !initialized.Load() {
		return
	}
	sentry.Flush(timeout)
}

// Enabled reports whether Init installed the reporter.
func Enabled() bool {
	return initialized.Load()
}
