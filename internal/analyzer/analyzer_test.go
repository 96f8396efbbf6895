package analyzer

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

type nameSet map[string]bool

func (s nameSet) Has(name string) bool { return s[name] }

type prefixAllow string

func (p prefixAllow) Match(name string) bool {
	return len(name) >= len(p) && name[:len(p)] == string(p)
}

func site(name string, line int) AccessSite {
	return AccessSite{Name: name, Resolved: true, Span: Span{Line: line, Column: 1}, Form: FormMember}
}

func TestReport_UndeclaredInOrder(t *testing.T) {
	sites := []AccessSite{
		site("X", 1),
		site("DECLARED", 2),
		site("Y", 3),
		site("X", 4),
	}

	got := Report(sites, nameSet{"DECLARED": true}, nil)

	want := []Diagnostic{
		{Span: Span{Line: 1, Column: 1}, Name: "X", Message: "$X is not listed as a dependency in titan.json"},
		{Span: Span{Line: 3, Column: 1}, Name: "Y", Message: "$Y is not listed as a dependency in titan.json"},
		{Span: Span{Line: 4, Column: 1}, Name: "X", Message: "$X is not listed as a dependency in titan.json"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Report mismatch (-want +got):\n%s", diff)
	}
}

func TestReport_UnresolvedNeverReported(t *testing.T) {
	sites := []AccessSite{
		{Resolved: false, Form: FormDynamicIndex},
		{Resolved: false, Form: FormComputedDestructure},
		{Resolved: false, Form: FormRest},
		{Resolved: false, Form: FormIteration},
	}

	if got := Report(sites, nameSet{}, nil); len(got) != 0 {
		t.Errorf("expected no diagnostics for unresolved sites, got %d", len(got))
	}
}

func TestReport_AllowList(t *testing.T) {
	sites := []AccessSite{site("NEXT_PUBLIC_URL", 1), site("SECRET", 2)}

	got := Report(sites, nameSet{}, prefixAllow("NEXT_PUBLIC_"))
	if len(got) != 1 || got[0].Name != "SECRET" {
		t.Errorf("expected only SECRET to be reported, got %+v", got)
	}
}

func TestReport_DollarNameVerbatim(t *testing.T) {
	// A globalEnv entry of "$KEY" declares the literal name "$KEY"
	sites := []AccessSite{site("$KEY", 1)}
	if got := Report(sites, nameSet{"$KEY": true}, nil); len(got) != 0 {
		t.Errorf("expected $KEY to be declared, got %+v", got)
	}
}

func TestCollect(t *testing.T) {
	results := []FileResult{
		{Path: "b.js", Sites: 2, Diagnostics: []Diagnostic{{Name: "B"}}},
		{Path: "clean.js", Sites: 3},
		{Path: "a.js", Sites: 1, Diagnostics: []Diagnostic{{Name: "A"}, {Name: "A"}}},
	}

	got := Collect(results, []string{"KEY"}, "titan.json")

	if got.Scanned != 3 {
		t.Errorf("Scanned = %d, want 3", got.Scanned)
	}
	if got.Sites != 6 {
		t.Errorf("Sites = %d, want 6", got.Sites)
	}
	if got.Problems() != 3 {
		t.Errorf("Problems() = %d, want 3", got.Problems())
	}
	paths := []string{}
	for _, f := range got.Files {
		paths = append(paths, f.Path)
	}
	if diff := cmp.Diff([]string{"a.js", "b.js"}, paths); diff != "" {
		t.Errorf("file order mismatch (-want +got):\n%s", diff)
	}
}
