// Package config loads datascript.yaml, the interpreter's host
// configuration: Defaults() + Load(path, getenv) with ${VAR}/${VAR:-default}
// environment interpolation, relative-path resolution against the config
// file's directory, and a search-path fallback when no path is given.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the complete host configuration for running datascript
// programs: where to load modules from, how to log, and which document
// store (if any) to connect to automatically at startup.
type Config struct {
	BaseDir  string         `yaml:"-"` // directory containing the config file, for resolving relative paths
	Logging  LoggingConfig  `yaml:"logging"`
	Modules  ModulesConfig  `yaml:"modules"`
	Database DatabaseConfig `yaml:"database"`
}

// LoggingConfig controls where print/debug/info/warn/error natives write.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Output string `yaml:"output"` // stdout, stderr, or a file path
}

// ModulesConfig holds the `modules` section. Load parses it, but import
// resolution does not read it: imports resolve relative to the importing
// file's directory with the fixed interp.SourceExtension (".ds").
type ModulesConfig struct {
	Roots      []string `yaml:"roots"`       // module search roots
	DefaultExt string   `yaml:"default_ext"` // source file extension (default ".ds")
}

// DatabaseConfig optionally auto-connects a document store at startup,
// bound as the active database under Alias before the program runs.
type DatabaseConfig struct {
	URI   string `yaml:"uri"`
	Name  string `yaml:"name"`
	Alias string `yaml:"alias"` // binding name in the global scope (default "db")
}

// Defaults returns a Config with sensible defaults.
func Defaults() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:  "info",
			Output: "stdout",
		},
		Modules: ModulesConfig{
			DefaultExt: ".ds",
		},
	}
}

// Load reads configuration from path, applying ${VAR}/${VAR:-default}
// environment interpolation before parsing. If path is empty, it searches
// default locations (see resolveConfigPath). Returns Defaults() unmodified
// (no error) if no config file can be found anywhere.
func Load(path string, getenv func(string) string) (*Config, error) {
	resolved, err := resolveConfigPath(path, getenv)
	if err != nil {
		if path == "" {
			return Defaults(), nil
		}
		return nil, err
	}

	absPath, err := filepath.Abs(resolved)
	if err != nil {
		return nil, fmt.Errorf("resolving config path: %w", err)
	}
	baseDir := filepath.Dir(absPath)

	data, err := os.ReadFile(resolved)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	data = interpolateEnv(data, getenv)

	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	cfg.BaseDir = baseDir

	for i, root := range cfg.Modules.Roots {
		if !filepath.IsAbs(root) {
			cfg.Modules.Roots[i] = filepath.Join(baseDir, root)
		}
	}
	if cfg.Modules.DefaultExt == "" {
		cfg.Modules.DefaultExt = ".ds"
	}
	if cfg.Database.Alias == "" && cfg.Database.URI != "" {
		cfg.Database.Alias = "db"
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for internally-inconsistent settings.
func Validate(cfg *Config) error {
	var errs []string

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if cfg.Logging.Level != "" && !validLevels[cfg.Logging.Level] {
		errs = append(errs, fmt.Sprintf("logging.level %q must be debug, info, warn, or error", cfg.Logging.Level))
	}
	if cfg.Database.URI == "" && (cfg.Database.Name != "" || cfg.Database.Alias != "") {
		errs = append(errs, "database.uri is required when database.name or database.alias is set")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// resolveConfigPath finds the config file to use. Search order: explicit
// path > DATASCRIPT_CONFIG env > ./datascript.yaml.
func resolveConfigPath(explicit string, getenv func(string) string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}
	if envPath := getenv("DATASCRIPT_CONFIG"); envPath != "" {
		if _, err := os.Stat(envPath); err != nil {
			return "", fmt.Errorf("DATASCRIPT_CONFIG file not found: %s", envPath)
		}
		return envPath, nil
	}
	if _, err := os.Stat("datascript.yaml"); err == nil {
		return "datascript.yaml", nil
	}
	return "", fmt.Errorf("no config file found (tried DATASCRIPT_CONFIG, ./datascript.yaml)")
}

// envPattern matches ${VAR} or ${VAR:-default}.
var envPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func interpolateEnv(data []byte, getenv func(string) string) []byte {
	return envPattern.ReplaceAllFunc(data, func(match []byte) []byte {
		parts := envPattern.FindSubmatch(match)
		if len(parts) < 2 {
			return match
		}
		value := getenv(string(parts[1]))
		if value == "" && len(parts) >= 3 && len(parts[2]) > 0 {
			value = string(parts[2])
		}
		return []byte(value)
	})
}
