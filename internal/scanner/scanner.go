package scanner

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/jenian/titanlint/internal/languages"
)

// FileInfo contains information about a file to be analyzed
type FileInfo struct {
	Path     string // Absolute path
	RelPath  string // Path relative to the scan root, slash separated
	Language languages.Language
}

// Scanner handles file discovery and filtering
type Scanner struct {
	excludeDirs  map[string]bool // Directory names to exclude (e.g., "node_modules")
	excludePaths []string        // Path patterns to exclude (e.g., "src/config", "k8s/*")
	excludeGlobs []string
	includeGlobs []string
	dirs         []string // Directories visited by the last Scan
}

// NewScanner creates a new scanner with default exclusions
func NewScanner() *Scanner {
	return &Scanner{
		excludeDirs: map[string]bool{
			"node_modules": true,
			".git":         true,
			".titan":       true,
			"build":        true,
			"dist":         true,
			"out":          true,
			"coverage":     true,
			".next":        true,
			".cache":       true,
			".turbo":       true,
		},
	}
}

// SetExcludeGlobs sets glob patterns to exclude
func (s *Scanner) SetExcludeGlobs(globs []string) {
	s.excludeGlobs = globs
}

// SetIncludeGlobs sets glob patterns to include (overrides excludes)
func (s *Scanner) SetIncludeGlobs(globs []string) {
	s.includeGlobs = globs
}

// AddExcludeDirs adds additional directories to exclude from scanning
// Can be directory names (e.g., "scripts") or paths (e.g., "apps/web/scripts")
func (s *Scanner) AddExcludeDirs(dirs []string) {
	for _, dir := range dirs {
		if strings.Contains(dir, "/") || strings.Contains(dir, "\\") {
			s.excludePaths = append(s.excludePaths, filepath.ToSlash(strings.TrimSuffix(dir, "/*")))
		} else if dir != "" {
			s.excludeDirs[dir] = true
		}
	}
}

// Dirs returns the directories visited by the last Scan, root first
func (s *Scanner) Dirs() []string {
	return s.dirs
}

// DetectLanguage determines the grammar from file extension
func DetectLanguage(path string) (languages.Language, bool) {
	lower := strings.ToLower(path)
	if strings.HasSuffix(lower, ".d.ts") || strings.HasSuffix(lower, ".d.mts") || strings.HasSuffix(lower, ".d.cts") {
		// Declaration files hold types only
		return "", false
	}
	switch filepath.Ext(lower) {
	case ".js", ".jsx", ".mjs", ".cjs":
		return languages.LanguageJavaScript, true
	case ".ts", ".mts", ".cts":
		return languages.LanguageTypeScript, true
	case ".tsx":
		return languages.LanguageTSX, true
	default:
		return "", false
	}
}

// matchesGlob checks if a path matches any of the glob patterns
func matchesGlob(path string, globs []string) bool {
	for _, glob := range globs {
		matched, _ := filepath.Match(glob, filepath.Base(path))
		if matched {
			return true
		}
		// Also try matching against full path
		matched, _ = filepath.Match(glob, path)
		if matched {
			return true
		}
	}
	return false
}

// shouldInclude checks if a file should be included based on include/exclude globs
func (s *Scanner) shouldInclude(relPath string) bool {
	if len(s.includeGlobs) > 0 {
		return matchesGlob(relPath, s.includeGlobs)
	}
	if len(s.excludeGlobs) > 0 {
		return !matchesGlob(relPath, s.excludeGlobs)
	}
	return true
}

// isExcludedPath checks if a slash-separated relative path is inside an excluded folder
func (s *Scanner) isExcludedPath(relPath string) bool {
	for _, excludePath := range s.excludePaths {
		if relPath == excludePath || strings.HasPrefix(relPath, excludePath+"/") {
			return true
		}
	}
	return false
}

// Scan recursively walks a directory and returns files to analyze
func (s *Scanner) Scan(rootPath string) ([]FileInfo, error) {
	var files []FileInfo
	s.dirs = nil

	root, err := filepath.Abs(rootPath)
	if err != nil {
		return nil, err
	}

	err = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return relErr
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if path != root && (s.excludeDirs[d.Name()] || s.isExcludedPath(rel)) {
				return filepath.SkipDir
			}
			s.dirs = append(s.dirs, path)
			return nil
		}

		lang, ok := DetectLanguage(path)
		if !ok {
			return nil
		}
		if s.isExcludedPath(rel) || !s.shouldInclude(rel) {
			return nil
		}

		files = append(files, FileInfo{
			Path:     path,
			RelPath:  rel,
			Language: lang,
		})
		return nil
	})

	return files, err
}
