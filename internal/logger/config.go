package logger

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level        string            `yaml:"level" json:"level"`                 // default level for all modules
	Format       string            `yaml:"format" json:"format"`               // console format: "text" or "json"
	Timezone     string            `yaml:"timezone" json:"timezone"`           // "Local", "UTC", or IANA name
	File         string            `yaml:"file" json:"file"`                   // optional JSON log file path
	ModuleLevels map[string]string `yaml:"module_levels" json:"module_levels"` // per-module level overrides
}

// Default values for logging configuration, kept in sync with conf defaults.
const (
	DefaultLogLevel = "info"
	FormatText      = "text"
	FormatJSON      = "json"
)

func applyConfigDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = DefaultLogLevel
	}
	if cfg.Format == "" {
		cfg.Format = FormatText
	}
}
