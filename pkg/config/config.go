package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config represents the configuration for depscope
type Config struct {
	// Exclude patterns for files or directories (doublestar globs or
	// plain path fragments)
	Exclude []string `yaml:"exclude"`

	// Aliases maps bundler-level alias prefixes to project-relative paths,
	// e.g. "@components" -> "src/components". A trailing "/*" on the key
	// makes it a wildcard alias.
	Aliases map[string]string `yaml:"aliases"`

	// Registry is the npm registry used for latest-version lookups
	Registry string `yaml:"registry"`

	// Severity overrides per issue kind: unused, missing, phantom,
	// circular-import, peer-conflict, peer-missing
	Severity map[string]string `yaml:"severity"`

	// Output configuration
	Output struct {
		Format string `yaml:"format"` // text, json, sarif
		File   string `yaml:"file"`   // Output file path (stdout if empty)
	} `yaml:"output"`

	// Ignore specific packages entirely (never reported)
	IgnorePackages []string `yaml:"ignorePackages"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	config := &Config{
		Exclude:  []string{},
		Aliases:  map[string]string{},
		Severity: map[string]string{},
	}
	config.Output.Format = "text"
	return config
}

// LoadConfig loads the configuration from the specified file path.
// If no path is provided, it looks for .depscope.yaml in the current directory.
func LoadConfig(configPath string) (*Config, error) {
	config := DefaultConfig()

	if configPath == "" {
		configPath = ".depscope.yaml"
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		// Config file doesn't exist, return default config
		return config, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return config, nil
}

// FindAndLoadConfig searches for a config file in the project directory and its parents
func FindAndLoadConfig(projectPath string) (*Config, error) {
	config := DefaultConfig()

	currentDir := projectPath
	for {
		configPath := filepath.Join(currentDir, ".depscope.yaml")
		if _, err := os.Stat(configPath); err == nil {
			data, err := os.ReadFile(configPath)
			if err != nil {
				return nil, fmt.Errorf("error reading config file %s: %w", configPath, err)
			}
			if err := yaml.Unmarshal(data, config); err != nil {
				return nil, fmt.Errorf("error parsing config file %s: %w", configPath, err)
			}
			return config, nil
		}

		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			// Reached the root directory, no config file found
			break
		}
		currentDir = parentDir
	}

	return config, nil
}

// IsPackageIgnored checks if a package should be ignored based on the configuration
func (c *Config) IsPackageIgnored(packageName string) bool {
	for _, ignoredPackage := range c.IgnorePackages {
		if ignoredPackage == packageName {
			return true
		}
	}
	return false
}

// SeverityFor returns the configured severity for an issue kind, or the
// given default when no override is set.
func (c *Config) SeverityFor(kind, fallback string) string {
	if s, ok := c.Severity[kind]; ok && s != "" {
		return s
	}
	return fallback
}
