package titanconfig

import "sort"

// EnvSet is a set of declared environment variable names
type EnvSet map[string]struct{}

// NewEnvSet builds a set from the given names
func NewEnvSet(names ...string) EnvSet {
	set := make(EnvSet, len(names))
	set.Add(names...)
	return set
}

// Add inserts names into the set
func (s EnvSet) Add(names ...string) {
	for _, name := range names {
		s[name] = struct{}{}
	}
}

// Has reports whether name is declared
func (s EnvSet) Has(name string) bool {
	_, ok := s[name]
	return ok
}

// Sorted returns the names in lexical order
func (s EnvSet) Sorted() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DeclaredEnvVars collapses the configuration into every variable name it declares:
// $-prefixed globalDependencies, globalEnv, and for each task its env plus $-prefixed dependsOn.
// globalEnv and env entries are taken verbatim.
func DeclaredEnvVars(cfg *Config) EnvSet {
	set := make(EnvSet)
	if cfg == nil {
		return set
	}

	set.Add(envReferences(cfg.GlobalDependencies)...)
	set.Add(cfg.GlobalEnv...)

	for _, task := range cfg.Pipeline {
		set.Add(task.EnvDependencies()...)
		set.Add(task.Env...)
	}
	return set
}

func sortedTaskNames(pipeline map[string]Task) []string {
	names := make([]string, 0, len(pipeline))
	for name := range pipeline {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
