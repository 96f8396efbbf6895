package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/renameio/v2"
	"github.com/jenian/titanlint/internal/analyzer"
	"golang.org/x/term"
)

// ANSI color codes
const (
	colorReset     = "\033[0m"
	colorRed       = "\033[31m"
	colorGreen     = "\033[32m"
	colorGray      = "\033[90m"
	colorBold      = "\033[1m"
	colorUnderline = "\033[4m"
)

// Options controls how a report is rendered
type Options struct {
	JSON  bool // Emit the JSON document instead of the human-readable report
	Color bool // Use ANSI colors in the human-readable report
}

// ColorEnabled reports whether f is a terminal that accepts ANSI escapes.
// NO_COLOR disables colors regardless of the terminal.
func ColorEnabled(f *os.File) bool {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	if !term.IsTerminal(int(f.Fd())) {
		return false
	}
	// On Windows, enable ANSI escape sequences (handled in formatter_windows.go)
	return enableANSI(f)
}

// JSONOutput represents the JSON output format
type JSONOutput struct {
	Files    []JSONFile `json:"files"`
	Problems int        `json:"problems"`
}

// JSONFile lists the diagnostics of one file
type JSONFile struct {
	Path        string           `json:"path"`
	Diagnostics []JSONDiagnostic `json:"diagnostics"`
}

// JSONDiagnostic is a single diagnostic with its location flattened
type JSONDiagnostic struct {
	Line      int    `json:"line"`
	Column    int    `json:"column"`
	EndLine   int    `json:"endLine"`
	EndColumn int    `json:"endColumn"`
	Name      string `json:"name"`
	Message   string `json:"message"`
}

// Write renders the scan result to w
func Write(w io.Writer, result analyzer.ScanResult, opts Options) error {
	if opts.JSON {
		return writeJSON(w, result)
	}
	return writeHuman(w, result, opts.Color)
}

// WriteFile renders the scan result to path, replacing any existing file atomically.
// Reports written to files never contain colors.
func WriteFile(path string, result analyzer.ScanResult, opts Options) (err error) {
	pending, err := renameio.NewPendingFile(path)
	if err != nil {
		return fmt.Errorf("create pending report file: %w", err)
	}
	defer func() {
		// No-op once the file has been committed
		if cerr := pending.Cleanup(); cerr != nil && err == nil {
			err = fmt.Errorf("cleanup pending report file: %w", cerr)
		}
	}()

	opts.Color = false
	if err := Write(pending, result, opts); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("replace report file: %w", err)
	}
	return nil
}

// NewJSONOutput converts a scan result into its JSON document
func NewJSONOutput(result analyzer.ScanResult) JSONOutput {
	out := JSONOutput{Files: []JSONFile{}}
	for _, file := range result.Files {
		jf := JSONFile{Path: file.Path, Diagnostics: make([]JSONDiagnostic, 0, len(file.Diagnostics))}
		for _, d := range file.Diagnostics {
			jf.Diagnostics = append(jf.Diagnostics, JSONDiagnostic{
				Line:      d.Span.Line,
				Column:    d.Span.Column,
				EndLine:   d.Span.EndLine,
				EndColumn: d.Span.EndColumn,
				Name:      d.Name,
				Message:   d.Message,
			})
		}
		out.Problems += len(jf.Diagnostics)
		out.Files = append(out.Files, jf)
	}
	return out
}

func writeJSON(w io.Writer, result analyzer.ScanResult) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(NewJSONOutput(result))
}

// writeHuman prints diagnostics grouped by file, positions aligned per file
func writeHuman(w io.Writer, result analyzer.ScanResult, color bool) error {
	c := func(code string) string {
		if color {
			return code
		}
		return ""
	}

	var b strings.Builder
	problems := result.Problems()
	if problems == 0 {
		fmt.Fprintf(&b, "%s%s✓ No undeclared environment variables (%d %s checked).%s\n",
			c(colorGreen), c(colorBold), result.Scanned, plural(result.Scanned, "file"), c(colorReset))
		_, err := io.WriteString(w, b.String())
		return err
	}

	for _, file := range result.Files {
		fmt.Fprintf(&b, "%s%s%s\n", c(colorUnderline), file.Path, c(colorReset))

		positions := make([]string, len(file.Diagnostics))
		width := 0
		for i, d := range file.Diagnostics {
			positions[i] = fmt.Sprintf("%d:%d", d.Span.Line, d.Span.Column)
			width = max(width, len(positions[i]))
		}
		for i, d := range file.Diagnostics {
			fmt.Fprintf(&b, "  %s%-*s%s  %s\n", c(colorGray), width, positions[i], c(colorReset), highlightName(d, c))
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "%s%s✖ %d %s in %d %s%s\n",
		c(colorRed), c(colorBold),
		problems, plural(problems, "problem"),
		len(result.Files), plural(len(result.Files), "file"),
		c(colorReset))

	_, err := io.WriteString(w, b.String())
	return err
}

// highlightName renders the message with the variable name in bold
func highlightName(d analyzer.Diagnostic, c func(string) string) string {
	token := "$" + d.Name
	if c(colorBold) == "" || !strings.HasPrefix(d.Message, token) {
		return d.Message
	}
	return c(colorBold) + token + c(colorReset) + strings.TrimPrefix(d.Message, token)
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}

// HasIssues returns true if the scan found any undeclared environment variable
func HasIssues(result analyzer.ScanResult) bool {
	return result.Problems() > 0
}

// FormatError formats an error message
func FormatError(err error) string {
	return fmt.Sprintf("Error: %s\n", err)
}
