package languages

import (
	"strings"

	"github.com/jenian/titanlint/internal/analyzer"
	sitter "github.com/tree-sitter/go-tree-sitter"
)

// DefaultEnvReference is the environment object recognised when none is configured
const DefaultEnvReference = "process.env"

// Node kinds that only carry TypeScript types; `typeof process.env.X` there is not a read
var typeOnlyKinds = map[string]bool{
	"type_annotation":        true,
	"type_alias_declaration": true,
	"interface_declaration":  true,
	"type_arguments":         true,
	"comment":                true,
}

// Extractor finds environment reads in JavaScript and TypeScript syntax trees.
// It is immutable once built and safe for concurrent use.
type Extractor struct {
	refs map[string]bool
}

// NewExtractor creates an extractor for the given dotted environment references
// (e.g. "process.env", "import.meta.env"). With no references it uses process.env.
func NewExtractor(refs ...string) *Extractor {
	e := &Extractor{refs: make(map[string]bool)}
	for _, ref := range refs {
		if ref = NormalizeReference(ref); ref != "" {
			e.refs[ref] = true
		}
	}
	if len(e.refs) == 0 {
		e.refs[DefaultEnvReference] = true
	}
	return e
}

// NormalizeReference strips whitespace and optional-chaining marks from a dotted reference
func NormalizeReference(ref string) string {
	ref = strings.Join(strings.Fields(ref), "")
	return strings.ReplaceAll(ref, "?.", ".")
}

// Extract walks the tree once, in source order, and returns every access site
func (e *Extractor) Extract(root *sitter.Node, source []byte) []analyzer.AccessSite {
	if root == nil {
		return nil
	}
	x := &extraction{refs: e.refs, source: source}
	x.visit(root)
	return x.sites
}

// extraction is the per-file walk state
type extraction struct {
	refs   map[string]bool
	source []byte
	sites  []analyzer.AccessSite
}

func (x *extraction) resolved(name string, n *sitter.Node, form analyzer.AccessForm) {
	x.sites = append(x.sites, analyzer.AccessSite{Name: name, Resolved: true, Span: nodeSpan(n), Form: form})
}

func (x *extraction) unresolved(n *sitter.Node, form analyzer.AccessForm) {
	x.sites = append(x.sites, analyzer.AccessSite{Span: nodeSpan(n), Form: form})
}

func (x *extraction) visitChildren(n *sitter.Node) {
	for _, c := range namedChildren(n) {
		x.visit(c)
	}
}

func (x *extraction) visit(n *sitter.Node) {
	if n == nil || typeOnlyKinds[n.Kind()] {
		return
	}

	switch n.Kind() {
	case "member_expression":
		if optional, ok := x.envObject(n.ChildByFieldName("object")); ok {
			if prop := n.ChildByFieldName("property"); prop != nil {
				x.resolved(prop.Utf8Text(x.source), prop, memberForm(optional || hasChildOfKind(n, "optional_chain")))
			}
			return
		}

	case "subscript_expression":
		if optional, ok := x.envObject(n.ChildByFieldName("object")); ok {
			index := n.ChildByFieldName("index")
			if index == nil {
				return
			}
			if name, ok := x.staticKey(index); ok {
				form := analyzer.FormLiteralIndex
				if optional || hasChildOfKind(n, "optional_chain") {
					form = analyzer.FormOptionalMember
				}
				x.resolved(name, index, form)
				return
			}
			x.unresolved(n, analyzer.FormDynamicIndex)
			x.visit(index)
			return
		}

	case "variable_declarator":
		if x.destructureFrom(n.ChildByFieldName("name"), n.ChildByFieldName("value")) {
			return
		}

	case "assignment_pattern", "assignment_expression":
		if x.destructureFrom(n.ChildByFieldName("left"), n.ChildByFieldName("right")) {
			return
		}

	case "required_parameter", "optional_parameter":
		if x.destructureFrom(n.ChildByFieldName("pattern"), n.ChildByFieldName("value")) {
			return
		}

	case "for_in_statement":
		right := n.ChildByFieldName("right")
		if _, ok := x.envObject(right); ok {
			for _, c := range namedChildren(n) {
				if sameNode(c, right) {
					x.unresolved(right, analyzer.FormIteration)
					continue
				}
				x.visit(c)
			}
			return
		}
	}

	x.visitChildren(n)
}

func memberForm(optional bool) analyzer.AccessForm {
	if optional {
		return analyzer.FormOptionalMember
	}
	return analyzer.FormMember
}

// destructureFrom handles `pattern = ENV` shapes. It returns false when value is not the environment object.
func (x *extraction) destructureFrom(pattern, value *sitter.Node) bool {
	if pattern == nil || value == nil || pattern.Kind() != "object_pattern" {
		return false
	}
	if _, ok := x.envObject(value); !ok {
		return false
	}
	x.destructure(pattern)
	return true
}

// destructure emits one site per property of an object pattern bound to the environment object.
// Each site is named by the source key; defaults are scanned right after their key.
func (x *extraction) destructure(pattern *sitter.Node) {
	for _, prop := range namedChildren(pattern) {
		switch prop.Kind() {
		case "shorthand_property_identifier_pattern":
			x.resolved(prop.Utf8Text(x.source), prop, analyzer.FormDestructure)

		case "pair_pattern":
			key := prop.ChildByFieldName("key")
			if key != nil {
				if name, ok := x.propertyKey(key); ok {
					x.resolved(name, key, analyzer.FormDestructure)
				} else {
					x.unresolved(key, analyzer.FormComputedDestructure)
					x.visitChildren(key)
				}
			}
			x.visit(prop.ChildByFieldName("value"))

		case "object_assignment_pattern":
			left := prop.ChildByFieldName("left")
			if left != nil && left.Kind() == "shorthand_property_identifier_pattern" {
				x.resolved(left.Utf8Text(x.source), left, analyzer.FormDestructure)
			} else if left != nil {
				x.unresolved(left, analyzer.FormComputedDestructure)
			}
			x.visit(prop.ChildByFieldName("right"))

		case "rest_pattern":
			x.unresolved(prop, analyzer.FormRest)

		default:
			x.visit(prop)
		}
	}
}

// propertyKey resolves a non-computed destructuring key
func (x *extraction) propertyKey(key *sitter.Node) (string, bool) {
	switch key.Kind() {
	case "property_identifier", "private_property_identifier", "identifier", "number":
		return key.Utf8Text(x.source), true
	case "string":
		return literalText(key, x.source)
	default:
		return "", false
	}
}

// staticKey resolves a subscript index that is a literal
func (x *extraction) staticKey(index *sitter.Node) (string, bool) {
	switch index.Kind() {
	case "string", "template_string":
		return literalText(index, x.source)
	case "number":
		return index.Utf8Text(x.source), true
	case "parenthesized_expression":
		if children := namedChildren(index); len(children) == 1 {
			return x.staticKey(children[0])
		}
	}
	return "", false
}

// envObject reports whether n refers to a configured environment object,
// and whether optional chaining appears inside that reference
func (x *extraction) envObject(n *sitter.Node) (optional bool, ok bool) {
	if n == nil {
		return false, false
	}
	path, optional := x.referencePath(n)
	if path == "" {
		return false, false
	}
	return optional, x.refs[path]
}

// referencePath renders a static member chain (`process.env`, `import.meta.env`, `process["env"]`)
// as a dotted path. Anything dynamic yields "".
func (x *extraction) referencePath(n *sitter.Node) (string, bool) {
	switch n.Kind() {
	case "identifier", "this", "import":
		return n.Utf8Text(x.source), false

	case "meta_property":
		return strings.Join(strings.Fields(n.Utf8Text(x.source)), ""), false

	case "member_expression":
		obj := n.ChildByFieldName("object")
		prop := n.ChildByFieldName("property")
		if obj == nil || prop == nil || prop.Kind() != "property_identifier" {
			return "", false
		}
		base, optional := x.referencePath(obj)
		if base == "" {
			return "", false
		}
		return base + "." + prop.Utf8Text(x.source), optional || hasChildOfKind(n, "optional_chain")

	case "subscript_expression":
		obj := n.ChildByFieldName("object")
		index := n.ChildByFieldName("index")
		if obj == nil || index == nil {
			return "", false
		}
		key, ok := literalText(index, x.source)
		if !ok {
			return "", false
		}
		base, optional := x.referencePath(obj)
		if base == "" {
			return "", false
		}
		return base + "." + key, optional || hasChildOfKind(n, "optional_chain")

	case "parenthesized_expression", "non_null_expression", "as_expression", "satisfies_expression":
		if children := namedChildren(n); len(children) > 0 {
			return x.referencePath(children[0])
		}
	}
	return "", false
}
