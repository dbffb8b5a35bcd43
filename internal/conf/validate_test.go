package conf

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validSettings() *Settings {
	return &Settings{
		WebServer: WebServerSettings{
			Host: "127.0.0.1", Port: 8000, BodyLimit: "10M",
			RequestTimeout: time.Second, RateLimit: 10, RateBurst: 20,
		},
		API: APISettings{
			Prefix: "/api",
			V1:     APIV1Settings{Prefix: "/v1", LungCheck: LungCheckAPISettings{Prefix: "/lungcheck"}},
		},
		Model:    ModelSettings{Path: DefaultModelPath, Accelerator: AcceleratorAuto},
		Database: DatabaseSettings{Type: DatabaseSQLite, Path: ":memory:", MaxOpenConns: 1, MaxIdleConns: 1},
		Logging:  LoggingSettings{Level: "info", Format: "text"},
	}
}

func TestValidateSettings(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(s *Settings)
		wantErr string
	}{
		{"valid", func(*Settings) {}, ""},
		{"port zero", func(s *Settings) { s.WebServer.Port = 0 }, "webserver.port"},
		{"burst without limit ok", func(s *Settings) { s.WebServer.RateLimit = 0; s.WebServer.RateBurst = 0 }, ""},
		{"limit without burst", func(s *Settings) { s.WebServer.RateBurst = 0 }, "rateburst"},
		{"prefix trailing slash", func(s *Settings) { s.API.V1.Prefix = "/v1/" }, "path prefix"},
		{"empty prefix allowed", func(s *Settings) { s.API.Prefix = "" }, ""},
		{"unknown accelerator", func(s *Settings) { s.Model.Accelerator = "tpu" }, "model.accelerator"},
		{"missing model path", func(s *Settings) { s.Model.Path = "" }, "model.path"},
		{"mysql without dsn", func(s *Settings) { s.Database.Type = DatabaseMySQL }, "database.dsn"},
		{"idle exceeds open", func(s *Settings) { s.Database.MaxIdleConns = 5 }, "maxidleconns"},
		{"bad log level", func(s *Settings) { s.Logging.Level = "chatty" }, "logging.level"},
		{"telemetry without dsn", func(s *Settings) { s.Telemetry.Enabled = true }, "telemetry.dsn"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := validSettings()
			tt.mutate(s)
			err := ValidateSettings(s)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateSettingsCollectsAllErrors(t *testing.T) {
	t.Parallel()

	s := validSettings()
	s.WebServer.Port = -1
	s.Database.Type = "cassandra"

	err := ValidateSettings(s)
	var ve ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Len(t, ve.Errors, 2)
}
