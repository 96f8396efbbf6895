package titanconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

const packageJSONFile = "package.json"

// Find walks from startDir up to the filesystem root looking for the pipeline configuration.
// In each directory titan.json wins over a package.json "titan" key.
// It returns a nil config and no error when nothing is found, and the path of the
// offending file along with the error when a titan.json fails to parse.
func Find(startDir string) (*Config, string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, "", fmt.Errorf("invalid path: %w", err)
	}

	for {
		path := filepath.Join(dir, FileName)
		if isFile(path) {
			cfg, err := Load(path)
			if err != nil {
				return nil, path, err
			}
			return cfg, path, nil
		}

		// A package.json that cannot be read or lacks the legacy key does not stop the walk
		pkgPath := filepath.Join(dir, packageJSONFile)
		if isFile(pkgPath) {
			if cfg, err := loadLegacy(pkgPath); err == nil && cfg != nil {
				return cfg, pkgPath, nil
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return nil, "", nil
		}
		dir = parent
	}
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// Result is the outcome of a discovery for one start directory
type Result struct {
	Config *Config
	Path   string
	Err    error
}

// Finder memoizes Find per start directory
type Finder struct {
	mu    sync.Mutex
	cache map[string]Result
}

// NewFinder creates an empty finder
func NewFinder() *Finder {
	return &Finder{cache: make(map[string]Result)}
}

// Find returns the cached discovery result for dir, running Find on first use
func (f *Finder) Find(dir string) Result {
	key := filepath.Clean(dir)
	if abs, err := filepath.Abs(dir); err == nil {
		key = abs
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if res, ok := f.cache[key]; ok {
		return res
	}
	cfg, path, err := Find(key)
	res := Result{Config: cfg, Path: path, Err: err}
	f.cache[key] = res
	return res
}

// Invalidate drops every cached result
func (f *Finder) Invalidate() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cache = make(map[string]Result)
}
