package analyzer

// AccessForm names the syntax used to read from the environment object
type AccessForm string

const (
	FormMember              AccessForm = "member"               // ENV.NAME
	FormOptionalMember      AccessForm = "optional-member"      // ENV?.NAME, process?.env.NAME
	FormLiteralIndex        AccessForm = "literal-index"        // ENV["NAME"]
	FormDynamicIndex        AccessForm = "dynamic-index"        // ENV[key]
	FormDestructure         AccessForm = "destructure"          // { NAME } = ENV
	FormComputedDestructure AccessForm = "computed-destructure" // { [key]: v } = ENV
	FormRest                AccessForm = "rest"                 // { ...rest } = ENV
	FormIteration           AccessForm = "iteration"            // for (k in ENV)
)

// Span is a source range. Lines and columns are 1-based.
type Span struct {
	StartByte int `json:"-"`
	EndByte   int `json:"-"`
	Line      int `json:"line"`
	Column    int `json:"column"`
	EndLine   int `json:"endLine"`
	EndColumn int `json:"endColumn"`
}

// AccessSite is a single read from the environment object
type AccessSite struct {
	Name     string     // Variable name, only meaningful when Resolved
	Resolved bool       // False when the key cannot be determined statically
	Span     Span       // Location of the key (or of the whole access when unresolved)
	Form     AccessForm // Syntax used for the access
}

// Diagnostic reports an undeclared environment variable at one access site
type Diagnostic struct {
	Span    Span   `json:"span"`
	Name    string `json:"name"`
	Message string `json:"message"`
}

// FileResult holds the analysis of a single source file
type FileResult struct {
	Path        string       // Path relative to the scan root
	Diagnostics []Diagnostic // Undeclared accesses in source order
	Sites       int          // Number of access sites found, resolved or not
}

// ScanResult contains the complete analysis results
type ScanResult struct {
	ConfigPath string       // titan.json used for the run
	Declared   []string     // Sorted declared variable names
	Files      []FileResult // Files with at least one diagnostic, sorted by path
	Scanned    int          // Number of files analyzed
	Sites      int          // Number of access sites across all files
}

// Problems returns the total number of diagnostics
func (r ScanResult) Problems() int {
	n := 0
	for _, f := range r.Files {
		n += len(f.Diagnostics)
	}
	return n
}
