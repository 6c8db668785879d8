package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	errs "github.com/dht-tools/dht/internal/errors"
	"github.com/dht-tools/dht/internal/fileutil"
)

// Pre-compiled regex patterns for environment variable expansion.
var (
	// envVarPattern matches ${VAR} or ${VAR:-default} syntax
	envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)
	// simpleEnvVarPattern matches $VAR syntax
	simpleEnvVarPattern = regexp.MustCompile(`\$([A-Za-z_][A-Za-z0-9_]*)`)
)

// Loader handles configuration loading and merging.
type Loader struct {
	v           *viper.Viper
	configPath  string
	searchPaths []string
}

// NewLoader creates a new configuration loader.
func NewLoader() *Loader {
	v := viper.New()
	v.SetEnvPrefix("DHT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	return &Loader{
		v:           v,
		searchPaths: []string{"."},
	}
}

// WithConfigPath sets an explicit config file path.
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// WithSearchPaths adds directories to search for config files.
func (l *Loader) WithSearchPaths(paths ...string) *Loader {
	l.searchPaths = append(l.searchPaths, paths...)
	return l
}

// Load loads the configuration.
func (l *Loader) Load() (*Config, error) {
	const op = "config.Load"

	l.setDefaults()

	if err := l.loadConfigFile(); err != nil {
		return nil, errs.ConfigWrap(err, op, "failed to load config file")
	}

	cfg := &Config{}
	if err := l.v.Unmarshal(cfg); err != nil {
		return nil, errs.ConfigWrap(err, op, "failed to unmarshal config")
	}

	l.expandEnvVars(cfg)

	return cfg, nil
}

// setDefaults sets default values using Viper.
func (l *Loader) setDefaults() {
	defaults := DefaultConfig()

	l.v.SetDefault("guardian.memory_mb", defaults.Guardian.MemoryMB)
	l.v.SetDefault("guardian.cpu_percent", defaults.Guardian.CPUPercent)
	l.v.SetDefault("guardian.timeout_seconds", defaults.Guardian.TimeoutSeconds)
	l.v.SetDefault("guardian.poll_interval_seconds", defaults.Guardian.PollIntervalSeconds)
	l.v.SetDefault("guardian.cpu_sustained_polls", defaults.Guardian.CPUSustainedPolls)
	l.v.SetDefault("guardian.grace_seconds", defaults.Guardian.GraceSeconds)

	l.v.SetDefault("operations.install.timeout_seconds", defaults.Operations.Install.TimeoutSeconds)
	l.v.SetDefault("operations.probe.timeout_seconds", defaults.Operations.Probe.TimeoutSeconds)
	l.v.SetDefault("operations.probe.memory_mb", defaults.Operations.Probe.MemoryMB)
	l.v.SetDefault("operations.probe.poll_interval_seconds", defaults.Operations.Probe.PollIntervalSeconds)

	l.v.SetDefault("retry.max_attempts", defaults.Retry.MaxAttempts)
	l.v.SetDefault("retry.initial_delay_ms", defaults.Retry.InitialDelayMS)
	l.v.SetDefault("retry.max_delay_ms", defaults.Retry.MaxDelayMS)

	l.v.SetDefault("snapshot.file", defaults.Snapshot.File)
	l.v.SetDefault("snapshot.env_allowlist", defaults.Snapshot.EnvAllowlist)

	l.v.SetDefault("output.format", defaults.Output.Format)
	l.v.SetDefault("output.color", defaults.Output.Color)
	l.v.SetDefault("output.verbose", defaults.Output.Verbose)
	l.v.SetDefault("output.log_level", defaults.Output.LogLevel)
}

// loadConfigFile loads the configuration file.
func (l *Loader) loadConfigFile() error {
	// If explicit path provided, use it
	if l.configPath != "" {
		l.v.SetConfigFile(l.configPath)
		if err := l.v.ReadInConfig(); err != nil {
			return fmt.Errorf("reading config file %s: %w", l.configPath, err)
		}
		return nil
	}

	// Search for config file in paths
	for _, searchPath := range l.searchPaths {
		for _, name := range ConfigFileNames {
			for _, ext := range ConfigFileExtensions {
				configFile := filepath.Join(searchPath, name+"."+ext)
				if _, err := os.Stat(configFile); err == nil {
					l.v.SetConfigFile(configFile)
					if err := l.v.ReadInConfig(); err != nil {
						return fmt.Errorf("reading config file %s: %w", configFile, err)
					}
					return nil
				}
			}
		}
	}

	// No config file found - this is OK, we use defaults
	return nil
}

// expandEnvVars expands environment variables in string fields that
// commonly reference the host environment.
func (l *Loader) expandEnvVars(cfg *Config) {
	cfg.Output.LogFile = expandEnvVar(cfg.Output.LogFile)
	cfg.Snapshot.File = expandEnvVar(cfg.Snapshot.File)
	for i := range cfg.Tools {
		cfg.Tools[i].Path = expandEnvVar(cfg.Tools[i].Path)
	}
}

// expandEnvVar expands environment variables in a string.
// Supports both ${VAR} and $VAR syntax.
func expandEnvVar(s string) string {
	if s == "" {
		return s
	}

	result := envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		submatch := envVarPattern.FindStringSubmatch(match)
		if len(submatch) < 2 {
			return match
		}

		varName := submatch[1]
		defaultValue := ""
		if len(submatch) > 2 {
			defaultValue = submatch[2]
		}

		if value := os.Getenv(varName); value != "" {
			return value
		}
		return defaultValue
	})

	result = simpleEnvVarPattern.ReplaceAllStringFunc(result, func(match string) string {
		varName := match[1:]
		if value := os.Getenv(varName); value != "" {
			return value
		}
		return match
	})

	return result
}

// GetConfigPath returns the path to the loaded config file, if any.
func (l *Loader) GetConfigPath() string {
	return l.v.ConfigFileUsed()
}

// WriteConfig writes the configuration to a file as YAML.
func WriteConfig(cfg *Config, path string) error {
	const op = "config.WriteConfig"

	data, err := Render(cfg)
	if err != nil {
		return errs.ConfigWrap(err, op, "failed to marshal config")
	}
	if err := fileutil.AtomicWriteFile(path, data, 0o644); err != nil {
		return errs.ConfigWrap(err, op, "failed to write config file")
	}
	return nil
}

// Render serializes a config to the YAML layout used on disk.
func Render(cfg *Config) ([]byte, error) {
	return yaml.Marshal(map[string]any{
		"guardian":   cfg.Guardian,
		"operations": cfg.Operations,
		"retry":      cfg.Retry,
		"tools":      cfg.Tools,
		"snapshot":   cfg.Snapshot,
		"output":     cfg.Output,
	})
}

// WriteDefaultConfig writes the default configuration to a file.
func WriteDefaultConfig(path string) error {
	return WriteConfig(DefaultConfig(), path)
}

// LoadFromFile loads configuration from a specific file.
func LoadFromFile(path string) (*Config, error) {
	return NewLoader().WithConfigPath(path).Load()
}

// LoadFromDirectory loads configuration from a directory.
func LoadFromDirectory(dir string) (*Config, error) {
	return NewLoader().WithSearchPaths(dir).Load()
}

// FindConfigFile searches for a config file and returns its path.
func FindConfigFile(searchPaths ...string) (string, error) {
	if len(searchPaths) == 0 {
		searchPaths = []string{"."}
	}

	for _, searchPath := range searchPaths {
		for _, name := range ConfigFileNames {
			for _, ext := range ConfigFileExtensions {
				configFile := filepath.Join(searchPath, name+"."+ext)
				if _, err := os.Stat(configFile); err == nil {
					return configFile, nil
				}
			}
		}
	}

	return "", errs.NotFound("config.FindConfigFile", "no config file found")
}

// ConfigExists returns true if a config file exists in the given directory.
func ConfigExists(dir string) bool {
	_, err := FindConfigFile(dir)
	return err == nil
}
