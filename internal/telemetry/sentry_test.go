package telemetry

import (
	"testing"

	"github.com/getsentry/sentry-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/lungcheck/internal/conf"
	"github.com/tphakala/lungcheck/internal/errors"
)

const testDSN = "https://public@sentry.example.com/1"

func enabledSettings() *conf.Settings {
	return &conf.Settings{Telemetry: conf.TelemetrySettings{
		Enabled:     true,
		DSN:         testDSN,
		Environment: "test",
		SampleRate:  1,
	}}
}

// initForTest installs a recording transport and undoes global state afterwards.
// Tests using it must not run in parallel.
func initForTest(t *testing.T) *MockTransport {
	t.Helper()
	transport := NewMockTransport()
	require.NoError(t, Init(enabledSettings(), transport))
	t.Cleanup(func() {
		errors.SetTelemetryReporter(nil)
		initialized.Store(false)
		_ = sentry.Init(sentry.ClientOptions{})
	})
	return transport
}

func TestInitDisabledIsNoop(t *testing.T) {
	require.NoError(t, Init(&conf.Settings{}, nil))
	assert.False(t, Enabled())
	Flush(0)
}

func TestInitRequiresDSN(t *testing.T) {
	settings := enabledSettings()
	settings.Telemetry.DSN = ""

	err := Init(settings, NewMockTransport())
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
	assert.False(t, Enabled())
}

func TestServerErrorsAreReported(t *testing.T) {
	transport := initForTest(t)
	assert.True(t, Enabled())

	_ = errors.Newf("invoke failed for postgres://admin:hunter2@db:5432/lung").
		Component("classifier").
		Category(errors.CategoryInference).
		Build()

	events := transport.Events()
	require.Len(t, events, 1)
	assert.NotContains(t, events[0].Message, "hunter2")
	assert.Equal(t, "inference", events[0].Tags["category"])
	assert.Empty(t, events[0].ServerName)
}

func TestClientErrorsAreNotReported(t *testing.T) {
	transport := initForTest(t)

	_ = errors.Newf("file must be an image").
		Category(errors.CategoryInvalidImage).
		Build()
	_ = errors.Newf("bad limit").
		Category(errors.CategoryInvalidArgument).
		Build()

	assert.Empty(t, transport.Events())
}

func TestBeforeSendStripsIdentifyingData(t *testing.T) {
	event := sentry.NewEvent()
	event.ServerName = "radiology-ws-3"
	event.User = sentry.User{ID: "42", IPAddress: "10.0.0.7"}
	event.Message = "connect failed: password=secret123"
	event.Extra = map[string]any{"component": "datastore", "filename": "patient-jane.png"}
	event.Tags = map[string]string{"hostname": "radiology-ws-3", "category": "database"}
	event.Contexts = map[string]sentry.Context{"os": {"name": "linux"}}

	out := beforeSend(event, nil)

	assert.Empty(t, out.ServerName)
	assert.True(t, out.User.IsEmpty())
	assert.NotContains(t, out.Message, "secret123")
	assert.Equal(t, map[string]any{"component": "datastore"}, out.Extra)
	assert.NotContains(t, out.Tags, "hostname")
	assert.Equal(t, "database", out.Tags["category"])
	assert.NotContains(t, out.Contexts, "os")
}
