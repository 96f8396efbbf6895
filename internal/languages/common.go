package languages

import (
	"strconv"
	"strings"

	"github.com/jenian/titanlint/internal/analyzer"
	sitter "github.com/tree-sitter/go-tree-sitter"
)

// Language identifies a grammar the extractor can walk
type Language string

const (
	LanguageJavaScript Language = "javascript"
	LanguageTypeScript Language = "typescript"
	LanguageTSX        Language = "tsx"
)

// Supported reports whether lang has an extractor
func Supported(lang Language) bool {
	switch lang {
	case LanguageJavaScript, LanguageTypeScript, LanguageTSX:
		return true
	default:
		return false
	}
}

// nodeSpan converts tree-sitter positions (0-based rows, byte columns) to a 1-based span
func nodeSpan(n *sitter.Node) analyzer.Span {
	start := n.StartPosition()
	end := n.EndPosition()
	return analyzer.Span{
		StartByte: int(n.StartByte()),
		EndByte:   int(n.EndByte()),
		Line:      int(start.Row) + 1,
		Column:    int(start.Column) + 1,
		EndLine:   int(end.Row) + 1,
		EndColumn: int(end.Column) + 1,
	}
}

func sameNode(a, b *sitter.Node) bool {
	if a == nil || b == nil {
		return false
	}
	return a.StartByte() == b.StartByte() && a.EndByte() == b.EndByte() && a.Kind() == b.Kind()
}

func namedChildren(n *sitter.Node) []*sitter.Node {
	count := n.NamedChildCount()
	children := make([]*sitter.Node, 0, count)
	for i := uint(0); i < count; i++ {
		if c := n.NamedChild(i); c != nil {
			children = append(children, c)
		}
	}
	return children
}

func hasChildOfKind(n *sitter.Node, kind string) bool {
	for i := uint(0); i < n.ChildCount(); i++ {
		if c := n.Child(i); c != nil && c.Kind() == kind {
			return true
		}
	}
	return false
}

// trimQuotes removes one pair of matching quote characters
func trimQuotes(s string) string {
	if len(s) >= 2 {
		first, last := s[0], s[len(s)-1]
		if first == last && (first == '"' || first == '\'' || first == '`') {
			return s[1 : len(s)-1]
		}
	}
	return s
}

// unescape decodes a single JavaScript escape sequence, returning it unchanged when unknown
func unescape(seq string) string {
	if len(seq) == 2 {
		switch seq[1] {
		case '\'', '"', '`', '\\', '$':
			return seq[1:]
		}
	}
	if strings.HasPrefix(seq, `\u{`) && strings.HasSuffix(seq, "}") {
		if r, err := strconv.ParseUint(seq[3:len(seq)-1], 16, 32); err == nil {
			return string(rune(r))
		}
	}
	if s, err := strconv.Unquote(`"` + seq + `"`); err == nil {
		return s
	}
	return seq
}

// literalText returns the value of a string or substitution-free template literal
func literalText(n *sitter.Node, source []byte) (string, bool) {
	switch n.Kind() {
	case "string", "template_string":
	default:
		return "", false
	}

	children := namedChildren(n)
	if len(children) == 0 {
		return trimQuotes(n.Utf8Text(source)), true
	}

	var b strings.Builder
	for _, c := range children {
		switch c.Kind() {
		case "string_fragment":
			b.WriteString(c.Utf8Text(source))
		case "escape_sequence":
			b.WriteString(unescape(c.Utf8Text(source)))
		case "template_substitution":
			return "", false
		}
	}
	return b.String(), true
}
