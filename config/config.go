package config

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/grovetools/proctrack/errors"
	"github.com/grovetools/proctrack/pkg/paths"
	"github.com/grovetools/proctrack/schema"
	"github.com/grovetools/proctrack/util/pathutil"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Format is a configuration file syntax.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// ConfigNames are the file names searched in the config directory, in order.
var ConfigNames = []string{
	"proctrack.yml",
	"proctrack.yaml",
	"proctrack.toml",
}

var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

// Load loads configuration from path. An empty path searches the config
// directory; when no file exists there the defaults are returned.
func Load(path string) (*Config, error) {
	if path == "" {
		found, err := FindConfigFile(paths.ConfigDir())
		if err != nil {
			if errors.Is(err, errors.ErrCodeConfigNotFound) {
				return Default()
			}
			return nil, err
		}
		path = found
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.ConfigNotFound(path)
		}
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to read configuration").
			WithDetail("path", path)
	}

	cfg, err := LoadFromBytes(data, FormatFor(path))
	if err != nil {
		if pe, ok := err.(*errors.ProcTrackError); ok {
			return nil, pe.WithDetail("path", path)
		}
		return nil, err
	}
	return cfg, nil
}

// LoadDefault loads the configuration from the default location.
func LoadDefault() (*Config, error) {
	return Load("")
}

// Default returns a configuration with every default applied.
func Default() (*Config, error) {
	cfg := &Config{}
	cfg.SetDefaults()
	if err := cfg.resolvePaths(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FormatFor picks the syntax from the file extension; YAML unless .toml.
func FormatFor(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return FormatTOML
	}
	return FormatYAML
}

// LoadFromBytes parses, validates and defaults a configuration document.
func LoadFromBytes(data []byte, format Format) (*Config, error) {
	expanded := []byte(expandEnvVars(string(data)))

	var raw map[string]interface{}
	switch format {
	case FormatTOML:
		if err := toml.Unmarshal(expanded, &raw); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to parse TOML configuration")
		}
	default:
		if err := yaml.Unmarshal(expanded, &raw); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to parse YAML configuration")
		}
	}

	// Validate the document before decoding so type mismatches are reported
	// against the schema rather than as decoder errors.
	var cfg Config
	if raw != nil {
		validator, err := NewSchemaValidator()
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to create validator")
		}
		if err := validator.Validate(raw); err != nil {
			ptErr := errors.Wrap(err, errors.ErrCodeConfigValidation, "schema validation failed")
			if verr, ok := err.(*schema.ValidationError); ok && len(verr.Issues) > 0 {
				if field := verr.Issues[0].Field(); field != "" {
					ptErr = ptErr.WithDetail("field", field)
				}
			}
			return nil, ptErr
		}

		if format == FormatTOML {
			err = toml.Unmarshal(expanded, &cfg)
			cfg.Extensions = extensionKeys(raw)
		} else {
			err = yaml.Unmarshal(expanded, &cfg)
		}
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to decode configuration")
		}
	}

	cfg.SetDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if err := cfg.resolvePaths(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// resolvePaths expands the database path, defaulting it to the state dir.
func (c *Config) resolvePaths() error {
	if c.Database.Path == "" {
		c.Database.Path = paths.DatabasePath()
		return nil
	}
	expanded, err := pathutil.Expand(c.Database.Path)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeConfigInvalid, "invalid database.path").
			WithDetail("field", "database.path")
	}
	c.Database.Path = expanded
	return nil
}

// extensionKeys returns the top-level entries of raw that are not typed
// sections of Config.
func extensionKeys(raw map[string]interface{}) map[string]interface{} {
	known := map[string]bool{"tracker": true, "database": true, "daemon": true, "statistics": true}
	var out map[string]interface{}
	for key, value := range raw {
		if known[key] {
			continue
		}
		if out == nil {
			out = make(map[string]interface{})
		}
		out[key] = value
	}
	return out
}

// FindConfigFile looks for a configuration file in dir.
func FindConfigFile(dir string) (string, error) {
	for _, name := range ConfigNames {
		path := filepath.Join(dir, name)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, nil
		}
	}
	return "", errors.ConfigNotFound(dir).WithDetail("searchPath", dir)
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment values.
func expandEnvVars(content string) string {
	return envVarRegex.ReplaceAllStringFunc(content, func(match string) string {
		varName := envVarRegex.FindStringSubmatch(match)[1]

		parts := strings.SplitN(varName, ":-", 2)
		varName = parts[0]
		defaultValue := ""
		if len(parts) > 1 {
			defaultValue = parts[1]
		}

		if value := os.Getenv(varName); value != "" {
			return value
		}

		return defaultValue
	})
}
