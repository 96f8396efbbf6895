package titanconfig

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"muzzammil.xyz/jsonc"
)

const (
	// FileName is the pipeline configuration file searched for at the workspace root.
	FileName = "titan.json"

	envPipelineDelimiter         = "$"
	topologicalPipelineDelimiter = "^"
)

// Config is the parsed titan.json pipeline schema
type Config struct {
	Schema             string          `json:"$schema,omitempty"`
	GlobalDependencies []string        `json:"globalDependencies,omitempty"`
	GlobalEnv          []string        `json:"globalEnv,omitempty"`
	Pipeline           map[string]Task `json:"pipeline,omitempty"`
	RemoteCache        *RemoteCache    `json:"remoteCache,omitempty"`
}

// RemoteCache holds the options that control the remote cache interface
type RemoteCache struct {
	TeamID    string `json:"teamId,omitempty"`
	Signature bool   `json:"signature,omitempty"`
}

// Task is a single pipeline entry
type Task struct {
	DependsOn  []string `json:"dependsOn,omitempty"`
	Env        []string `json:"env,omitempty"`
	Outputs    []string `json:"outputs,omitempty"`
	Inputs     []string `json:"inputs,omitempty"`
	Cache      *bool    `json:"cache,omitempty"`
	OutputMode string   `json:"outputMode,omitempty"`
}

// ShouldCache reports whether the task outputs are cached. An absent "cache" key means true.
func (t Task) ShouldCache() bool {
	return t.Cache == nil || *t.Cache
}

// EnvDependencies returns the $-prefixed dependsOn entries with the prefix removed
func (t Task) EnvDependencies() []string {
	return envReferences(t.DependsOn)
}

// TopologicalDependencies returns the ^-prefixed dependsOn entries with the prefix removed
func (t Task) TopologicalDependencies() []string {
	var deps []string
	for _, dep := range t.DependsOn {
		if strings.HasPrefix(dep, topologicalPipelineDelimiter) {
			deps = append(deps, strings.TrimPrefix(dep, topologicalPipelineDelimiter))
		}
	}
	return deps
}

// TaskDependencies returns the plain task references in dependsOn
func (t Task) TaskDependencies() []string {
	var deps []string
	for _, dep := range t.DependsOn {
		if strings.HasPrefix(dep, envPipelineDelimiter) || strings.HasPrefix(dep, topologicalPipelineDelimiter) {
			continue
		}
		deps = append(deps, dep)
	}
	return deps
}

// envReferences filters entries that start with the env delimiter and strips it
func envReferences(entries []string) []string {
	var names []string
	for _, entry := range entries {
		if strings.HasPrefix(entry, envPipelineDelimiter) {
			names = append(names, strings.TrimPrefix(entry, envPipelineDelimiter))
		}
	}
	return names
}

// Parse decodes titan.json content. Comments are accepted.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := jsonc.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Load reads and parses the configuration file at path
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return cfg, nil
}

// legacyPackageJSON is the subset of package.json holding the pre-titan.json configuration
type legacyPackageJSON struct {
	Titan *Config `json:"titan"`
}

// loadLegacy returns the "titan" key of a package.json, or nil when the key is absent
func loadLegacy(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	var pkg legacyPackageJSON
	if err := json.Unmarshal(data, &pkg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return pkg.Titan, nil
}

// Problems lists non-fatal issues in the configuration. Nothing here changes the declared set.
func Problems(cfg *Config) []string {
	if cfg == nil {
		return nil
	}

	var problems []string
	for _, value := range cfg.GlobalEnv {
		if strings.HasPrefix(value, envPipelineDelimiter) {
			problems = append(problems, fmt.Sprintf("You specified %q in the \"globalEnv\" key. You should not prefix your environment variables with %q", value, envPipelineDelimiter))
		}
	}
	for _, value := range cfg.GlobalDependencies {
		if strings.HasPrefix(value, envPipelineDelimiter) {
			problems = append(problems, fmt.Sprintf("Declaring an environment variable in \"globalDependencies\" is deprecated, found %s. Use the \"globalEnv\" key instead.", value))
		}
	}

	for _, name := range sortedTaskNames(cfg.Pipeline) {
		task := cfg.Pipeline[name]
		for _, value := range task.Env {
			if strings.HasPrefix(value, envPipelineDelimiter) {
				problems = append(problems, fmt.Sprintf("%s: you specified %q in the \"env\" key. You should not prefix your environment variables with %q", name, value, envPipelineDelimiter))
			}
		}
		for _, value := range task.DependsOn {
			if strings.HasPrefix(value, envPipelineDelimiter) {
				problems = append(problems, fmt.Sprintf("%s: declaring an environment variable in \"dependsOn\" is deprecated, found %s. Use the \"env\" key instead.", name, value))
			}
		}
	}
	return problems
}
