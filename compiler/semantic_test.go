package compiler

import (
	"strings"
	"testing"
)

func analyze(t *testing.T, src string) *SemanticAnalyzer {
	t.Helper()
	sa := NewSemanticAnalyzer()
	sa.AnalyzeFile(parseFile(t, src))
	return sa
}

func TestSemanticClean(t *testing.T) {
	sa := analyze(t, `
class Counter {
    public count = 0
    def add(n) {
        let total = @count + n
        @count = total
        try { self.check() } catch Failure(e) { echo e }
    }
}
let c = new Counter
c.add(unknownAtTopLevel)
`)
	if len(sa.Errors()) != 0 || len(sa.Warnings()) != 0 {
		t.Errorf("errors %v warnings %v, want none", sa.Errors(), sa.Warnings())
	}
}

func TestSemanticErrors(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"class A { x\n x }", "line 2: duplicate attribute x in A"},
		{"class A { def f() { } def f() { } }", "duplicate method f in A"},
		{"class A { def f(x, x) { } }", "duplicate parameter x in f"},
		{"class A extends A { }", "class A extends itself"},
		{"trait T uses T { }", "trait T uses itself"},
		{"echo @x", "@x used outside of a method"},
		{"@x = 1", "@x used outside of a method"},
		{"echo self", "self used outside of a method"},
		{"parent.f()", "parent used outside of a method"},
	}
	for _, tc := range tests {
		sa := analyze(t, tc.input)
		if !strings.Contains(strings.Join(sa.Errors(), "\n"), tc.want) {
			t.Errorf("%q: errors %v, want one containing %q", tc.input, sa.Errors(), tc.want)
		}
	}
}

func TestSemanticWarnings(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"class A { def f() { echo y } }", "warning: line 1: undefined variable y"},
		{"class A { def f() { y = 1 } }", "undefined variable y"},
		{"class A { def f() {\n return 1\n echo 2\n } }", "warning: line 3: unreachable code after return"},
	}
	for _, tc := range tests {
		sa := analyze(t, tc.input)
		if len(sa.Errors()) != 0 {
			t.Errorf("%q: unexpected errors %v", tc.input, sa.Errors())
		}
		if !strings.Contains(strings.Join(sa.Warnings(), "\n"), tc.want) {
			t.Errorf("%q: warnings %v, want one containing %q", tc.input, sa.Warnings(), tc.want)
		}
	}
}

func TestSemanticMethodScopesAreSeparate(t *testing.T) {
	sa := analyze(t, "class A {\n def f(x) { echo x }\n def g() { echo x }\n}")
	warnings := sa.Warnings()
	if len(warnings) != 1 || !strings.Contains(warnings[0], "line 3: undefined variable x") {
		t.Errorf("warnings = %v, want one for x in g", warnings)
	}
}
