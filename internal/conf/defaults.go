// conf/defaults.go default values for settings
package conf

import (
	"time"

	"github.com/spf13/viper"
)

// Default values referenced outside this package
const (
	DefaultModelPath  = "models/pneumonia_resnet18.tflite"
	DefaultSQLitePath = "lungcheck.db"
	DefaultHost       = "0.0.0.0"
	DefaultPort       = 8000
)

// setDefaultConfig registers default values for every configuration key.
func setDefaultConfig(v *viper.Viper) {
	v.SetDefault("debug", false)

	v.SetDefault("webserver.host", DefaultHost)
	v.SetDefault("webserver.port", DefaultPort)
	v.SetDefault("webserver.bodylimit", "10M")
	v.SetDefault("webserver.requesttimeout", 30*time.Second)
	v.SetDefault("webserver.ratelimit", 20.0)
	v.SetDefault("webserver.rateburst", 40)
	v.SetDefault("webserver.corsorigins", []string{"*"})
	v.SetDefault("webserver.shutdowngrace", 10*time.Second)

	v.SetDefault("api.prefix", "/api")
	v.SetDefault("api.v1.prefix", "/v1")
	v.SetDefault("api.v1.lungcheck.prefix", "/lungcheck")
	v.SetDefault("api.historycachettl", 2*time.Second)

	v.SetDefault("model.path", DefaultModelPath)
	v.SetDefault("model.threads", 0)
	v.SetDefault("model.accelerator", AcceleratorAuto)

	v.SetDefault("database.type", DatabaseSQLite)
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.path", DefaultSQLitePath)
	// pool of 50 plus 10 overflow connections
	v.SetDefault("database.maxopenconns", 60)
	v.SetDefault("database.maxidleconns", 50)
	v.SetDefault("database.connmaxlifetime", time.Hour)
	v.SetDefault("database.slowquery", 200*time.Millisecond)
	v.SetDefault("database.debug", false)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.timezone", "Local")
	v.SetDefault("logging.file", "")

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.dsn", "")
	v.SetDefault("telemetry.environment", "production")
	v.SetDefault("telemetry.samplerate", 1.0)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
}
