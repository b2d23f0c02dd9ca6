package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/grovetools/proctrack/config"
	"github.com/grovetools/proctrack/pkg/paths"
	"github.com/grovetools/proctrack/util/pathutil"
	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
)

var (
	loggers   = make(map[string]*logrus.Entry)
	loggersMu sync.Mutex

	// activeConfig, when set by Configure, replaces loading proctrack.yml.
	activeConfig *config.Config
	// fileByDefault sends every component to its dated log file even when
	// logging.file is not enabled. The daemon turns this on.
	fileByDefault bool
)

// Configure sets the configuration used by loggers created afterwards and
// whether they write to the default log file.
func Configure(cfg *config.Config, fileSink bool) {
	loggersMu.Lock()
	defer loggersMu.Unlock()
	activeConfig = cfg
	fileByDefault = fileSink
}

// LogFilePath returns the default log file of a component for the given day.
func LogFilePath(component string, day time.Time) string {
	return filepath.Join(paths.LogDir(), fmt.Sprintf("%s-%s.log", component, day.Format("2006-01-02")))
}

// NewLogger creates and returns a pre-configured logger for a specific component.
// It uses a singleton pattern per component to avoid re-initializing.
func NewLogger(component string) *logrus.Entry {
	loggersMu.Lock()
	defer loggersMu.Unlock()

	if logger, exists := loggers[component]; exists {
		return logger
	}

	logger := logrus.New()
	logCfg := loadConfig()

	levelStr := "info"
	if env := os.Getenv("PROCTRACK_LOG_LEVEL"); env != "" {
		levelStr = env
	} else if logCfg.Level != "" {
		levelStr = logCfg.Level
	}
	level, err := logrus.ParseLevel(levelStr)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if os.Getenv("PROCTRACK_LOG_CALLER") == "true" || logCfg.ReportCaller {
		logger.SetReportCaller(true)
	}

	logger.SetFormatter(formatterFor(logCfg.Format))

	var writers []io.Writer

	var logFilePath string
	if logCfg.File.Enabled && logCfg.File.Path != "" {
		if expanded, err := pathutil.Expand(logCfg.File.Path); err == nil {
			logFilePath = expanded
		}
	} else if logCfg.File.Enabled || fileByDefault {
		logFilePath = LogFilePath(component, time.Now())
	}

	if logFilePath != "" {
		if file, err := openLogFile(logFilePath); err == nil {
			writers = append(writers, file)
		} else if logCfg.File.Enabled {
			// Only warn if explicitly configured
			fmt.Fprintf(os.Stderr, "proctrack: failed to open log file %s: %v\n", logFilePath, err)
		}
	}

	if shouldLogToStderr(logCfg.Format.StructuredToStderr, logger.GetLevel()) {
		writers = append(writers, GetGlobalOutput())
	}

	switch len(writers) {
	case 0:
		logger.SetOutput(io.Discard)
	case 1:
		logger.SetOutput(writers[0])
	default:
		logger.SetOutput(io.MultiWriter(writers...))
	}

	entry := logger.WithField("component", component)
	loggers[component] = entry
	return entry
}

// loadConfig decodes the logging section, falling back to defaults on any error.
func loadConfig() Config {
	var logCfg Config
	cfg := activeConfig
	if cfg == nil {
		loaded, err := config.LoadDefault()
		if err != nil {
			return logCfg
		}
		cfg = loaded
	}
	if err := cfg.UnmarshalExtension("logging", &logCfg); err != nil {
		fmt.Fprintf(os.Stderr, "proctrack: failed to parse 'logging' config: %v\n", err)
	}
	return logCfg
}

func formatterFor(format FormatConfig) logrus.Formatter {
	switch format.Preset {
	case "json":
		return &logrus.JSONFormatter{}
	case "simple":
		return &TextFormatter{Config: FormatConfig{
			DisableTimestamp: true,
			DisableComponent: true,
		}}
	default:
		return &TextFormatter{Config: format}
	}
}

// shouldLogToStderr resolves the structured_to_stderr mode. In "auto" mode
// structured logs reach stderr only when debugging or when stderr is not an
// interactive terminal.
func shouldLogToStderr(mode string, level logrus.Level) bool {
	switch mode {
	case "always":
		return true
	case "never":
		return false
	default:
		isDebug := level >= logrus.DebugLevel
		isInteractive := isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())
		return isDebug || !isInteractive
	}
}

func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
}
