package logging

import "github.com/grovetools/proctrack/config"

func init() {
	config.RegisterExtension("logging", &Config{})
}

// Config defines the structure for the logging section of proctrack.yml.
type Config struct {
	// Level is the minimum log level to output (e.g., "debug", "info", "warn", "error").
	// Can be overridden by the PROCTRACK_LOG_LEVEL environment variable.
	Level string `yaml:"level,omitempty" jsonschema:"enum=trace,enum=debug,enum=info,enum=warn,enum=warning,enum=error,description=Minimum log level (default: info)"`

	// ReportCaller, if true, includes the file, line, and function name in the log output.
	// Can be enabled with the PROCTRACK_LOG_CALLER=true environment variable.
	ReportCaller bool `yaml:"report_caller,omitempty" jsonschema:"description=Include the calling file and function"`

	File FileSinkConfig `yaml:"file,omitempty" jsonschema:"description=File sink"`

	Format FormatConfig `yaml:"format,omitempty" jsonschema:"description=Output appearance"`
}

// FileSinkConfig configures the file logging sink.
type FileSinkConfig struct {
	Enabled bool `yaml:"enabled,omitempty" jsonschema:"description=Write logs to a file"`
	// Path is the full path to the log file. Defaults to a dated file per
	// component in the state log directory.
	Path string `yaml:"path,omitempty" jsonschema:"description=Log file path"`
}

// FormatConfig controls the log output format.
type FormatConfig struct {
	// Preset can be "default" (rich text), "simple" (minimal text), or "json".
	Preset           string `yaml:"preset,omitempty" jsonschema:"enum=default,enum=simple,enum=json,description=Formatter preset"`
	DisableTimestamp bool   `yaml:"disable_timestamp,omitempty" jsonschema:"description=Omit timestamps"`
	DisableComponent bool   `yaml:"disable_component,omitempty" jsonschema:"description=Omit the component name"`
	// StructuredToStderr controls when structured logs are sent to stderr.
	// Can be "auto" (default), "always", or "never".
	StructuredToStderr string `yaml:"structured_to_stderr,omitempty" jsonschema:"enum=auto,enum=always,enum=never,description=When structured logs go to stderr"`
}
