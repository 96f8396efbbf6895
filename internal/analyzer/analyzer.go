package analyzer

import (
	"fmt"
	"sort"
)

// MessageFormat is the diagnostic text for an undeclared variable. The name is always reported with a $ prefix.
const MessageFormat = "$%s is not listed as a dependency in titan.json"

// DeclaredSet is the read-only view of declared variable names the reporter needs
type DeclaredSet interface {
	Has(name string) bool
}

// AllowList exempts matching names from the check
type AllowList interface {
	Match(name string) bool
}

// Checker joins access sites with the declared set and allowList.
// It holds no mutable state and can be shared by concurrent file analyses.
type Checker struct {
	declared DeclaredSet
	allow    AllowList
}

// NewChecker creates a checker. allow may be nil.
func NewChecker(declared DeclaredSet, allow AllowList) *Checker {
	return &Checker{declared: declared, allow: allow}
}

// Undeclared reports whether name needs a diagnostic
func (c *Checker) Undeclared(name string) bool {
	if c.declared != nil && c.declared.Has(name) {
		return false
	}
	if c.allow != nil && c.allow.Match(name) {
		return false
	}
	return true
}

// Check returns one diagnostic per resolved, undeclared site, preserving site order
func (c *Checker) Check(sites []AccessSite) []Diagnostic {
	var diagnostics []Diagnostic
	for _, site := range sites {
		if !site.Resolved {
			continue
		}
		if !c.Undeclared(site.Name) {
			continue
		}
		diagnostics = append(diagnostics, Diagnostic{
			Span:    site.Span,
			Name:    site.Name,
			Message: fmt.Sprintf(MessageFormat, site.Name),
		})
	}
	return diagnostics
}

// Report is the single-call form of Checker.Check
func Report(sites []AccessSite, declared DeclaredSet, allow AllowList) []Diagnostic {
	return NewChecker(declared, allow).Check(sites)
}

// Collect builds a ScanResult from per-file results, keeping only files with diagnostics
func Collect(results []FileResult, declared []string, configPath string) ScanResult {
	result := ScanResult{
		ConfigPath: configPath,
		Declared:   declared,
		Files:      []FileResult{},
		Scanned:    len(results),
	}
	for _, fr := range results {
		result.Sites += fr.Sites
		if len(fr.Diagnostics) > 0 {
			result.Files = append(result.Files, fr)
		}
	}
	sort.SliceStable(result.Files, func(i, j int) bool {
		return result.Files[i].Path < result.Files[j].Path
	})
	return result
}
