package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// FileName is the tool configuration file looked up at the scan root
const FileName = ".titanlint.yaml"

// Config represents the titanlint configuration file
type Config struct {
	AllowList     []string      `yaml:"allowList"`     // Patterns exempting variable names from the check
	EnvReferences []string      `yaml:"envReferences"` // Environment objects to recognise (default: process.env)
	TitanConfig   string        `yaml:"titanConfig"`   // Explicit titan.json path; skips discovery when set
	Ignores       IgnoresConfig `yaml:"ignores"`
}

// IgnoresConfig contains ignore rules for scanning
type IgnoresConfig struct {
	Folders []string `yaml:"folders"` // Folders to skip when scanning (names or paths relative to the root)
}

// LoadConfig loads the .titanlint.yaml file from the specified directory
func LoadConfig(rootPath string) (*Config, error) {
	configPath := filepath.Join(rootPath, FileName)

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		// No config file, return default config
		return &Config{}, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return &config, nil
}

// Merge returns a copy with extra allowList patterns appended and the titan.json path overridden when set
func (c *Config) Merge(allow []string, titanConfig string) *Config {
	merged := *c
	merged.AllowList = append(append([]string{}, c.AllowList...), allow...)
	if titanConfig != "" {
		merged.TitanConfig = titanConfig
	}
	return &merged
}

// ResolveTitanConfig returns the configured titan.json path made absolute against rootPath, or "" when unset
func (c *Config) ResolveTitanConfig(rootPath string) string {
	if c.TitanConfig == "" {
		return ""
	}
	if filepath.IsAbs(c.TitanConfig) {
		return c.TitanConfig
	}
	return filepath.Join(rootPath, c.TitanConfig)
}

// Template is the content written by init-config
const Template = `# .titanlint.yaml
# Configuration file for titanlint

# Regular expressions for variables that may be read without being declared in titan.json.
# Patterns are searched, not anchored: use ^ and $ to match whole names.
allowList:
  # - ^NEXT_PUBLIC_
  # - ^VERCEL_

# Environment objects to check (default: process.env)
envReferences:
  # - process.env
  # - import.meta.env

# Path to titan.json. When empty, titanlint searches the scan root and its parents.
titanConfig: ""

ignores:
  # Folders to skip when scanning
  folders:
    # - scripts
    # - e2e
`
