package compiler

import (
	"fmt"
	"strconv"
	"strings"
	"testing"
)

func parseFile(t *testing.T, src string) *SourceFile {
	t.Helper()
	p := NewParser(src)
	f := p.ParseSourceFile()
	if errs := p.Errors(); len(errs) > 0 {
		t.Fatalf("parse errors: %v", errs)
	}
	return f
}

func parseExpr(t *testing.T, src string) Expr {
	t.Helper()
	p := NewParser(src)
	e := p.ParseExpression()
	if errs := p.Errors(); len(errs) > 0 {
		t.Fatalf("parse %q: errors: %v", src, errs)
	}
	if e == nil {
		t.Fatalf("parse %q: nil expression", src)
	}
	return e
}

func TestParserLiterals(t *testing.T) {
	tests := []struct {
		input string
		check func(Expr) bool
		desc  string
	}{
		{"42", func(e Expr) bool { return e.(*IntLiteral).Value == 42 }, "integer"},
		{`"hello"`, func(e Expr) bool { return e.(*StringLiteral).Value == "hello" }, "string"},
		{"x", func(e Expr) bool { return e.(*Ident).Name == "x" }, "local"},
		{"@count", func(e Expr) bool { return e.(*AttrRef).Name == "count" }, "attribute"},
		{"self", func(e Expr) bool { _, ok := e.(*SelfExpr); return ok }, "self"},
		{"new Counter", func(e Expr) bool { return e.(*NewExpr).Class == "Counter" }, "new"},
		{"-5", func(e Expr) bool {
			u, ok := e.(*UnaryExpr)
			return ok && u.Op == TokenMinus && u.Operand.(*IntLiteral).Value == 5
		}, "unary minus"},
	}

	for _, tc := range tests {
		if !tc.check(parseExpr(t, tc.input)) {
			t.Errorf("%s: check failed for %q", tc.desc, tc.input)
		}
	}
}

func TestParserPrecedence(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"1 + 2 * 3", "(1 + (2 * 3))"},
		{"(1 + 2) * 3", "((1 + 2) * 3)"},
		{"1 - 2 - 3", "((1 - 2) - 3)"},
		{`"a" .. 1 + 2`, `("a" .. (1 + 2))`},
		{"a == b and c < d", "((a == b) and (c < d))"},
		{"a or b and c", "(a or (b and c))"},
		{"not a == b", "(not (a == b))"},
		{"-a * b", "((-a) * b)"},
		{"x.f(1, y + 2).g", "x.f(1, (y + 2)).g()"},
		{"@n % 2 != 0", "((@n % 2) != 0)"},
	}
	for _, tc := range tests {
		if got := exprString(parseExpr(t, tc.input)); got != tc.want {
			t.Errorf("%q parsed as %s, want %s", tc.input, got, tc.want)
		}
	}
}

// exprString renders an expression fully parenthesized.
func exprString(e Expr) string {
	switch e := e.(type) {
	case *IntLiteral:
		return strconv.FormatInt(e.Value, 10)
	case *StringLiteral:
		return `"` + e.Value + `"`
	case *Ident:
		return e.Name
	case *AttrRef:
		return "@" + e.Name
	case *SelfExpr:
		return "self"
	case *ParentExpr:
		return "parent"
	case *NewExpr:
		return "new " + e.Class
	case *CallExpr:
		args := make([]string, len(e.Args))
		for i, a := range e.Args {
			args[i] = exprString(a)
		}
		return exprString(e.Receiver) + "." + e.Method + "(" + strings.Join(args, ", ") + ")"
	case *UnaryExpr:
		if e.Op == TokenNot {
			return "(not " + exprString(e.Operand) + ")"
		}
		return "(-" + exprString(e.Operand) + ")"
	case *BinaryExpr:
		return "(" + exprString(e.Left) + " " + e.Op.String() + " " + exprString(e.Right) + ")"
	}
	return "?"
}

func TestParserClassDef(t *testing.T) {
	src := `
class Counter extends Base uses Named, Logged {
    private n = 0
    public label
    public def increment() { @n = @n + 1 }
    def value() { return @n }
    private def helper(x, y) {
        echo x, y
    }
}
`
	f := parseFile(t, src)
	defs := f.Classes()
	if len(defs) != 1 {
		t.Fatalf("got %d declarations, want 1", len(defs))
	}
	def := defs[0]
	if def.Kind != DeclClass || def.Name != "Counter" || def.Parent != "Base" {
		t.Errorf("header = %v %q extends %q", def.Kind, def.Name, def.Parent)
	}
	if strings.Join(def.Traits, ",") != "Named,Logged" {
		t.Errorf("traits = %v, want [Named Logged]", def.Traits)
	}

	if len(def.Attributes) != 2 {
		t.Fatalf("got %d attributes, want 2", len(def.Attributes))
	}
	if a := def.Attributes[0]; a.Name != "n" || !a.Private || a.Default.(*IntLiteral).Value != 0 {
		t.Errorf("attribute 0 = %+v", a)
	}
	if a := def.Attributes[1]; a.Name != "label" || a.Private || a.Default != nil {
		t.Errorf("attribute 1 = %+v", a)
	}

	if len(def.Methods) != 3 {
		t.Fatalf("got %d methods, want 3", len(def.Methods))
	}
	if m := def.Methods[0]; m.Name != "increment" || m.Private || len(m.Body) != 1 {
		t.Errorf("method 0 = %+v", m)
	}
	if _, ok := def.Methods[0].Body[0].(*AttrAssignStmt); !ok {
		t.Errorf("increment body = %T, want *AttrAssignStmt", def.Methods[0].Body[0])
	}
	if m := def.Methods[2]; m.Name != "helper" || !m.Private || strings.Join(m.Params, ",") != "x,y" {
		t.Errorf("method 2 = %+v", m)
	}
}

func TestParserTraitAndDecorator(t *testing.T) {
	src := `trait Named { public name = "anon"  def greet() { echo "hi " .. @name } }
decorator Loud decorates Counter uses Named { def value() { echo "value:" .. parent.value() } }`
	defs := parseFile(t, src).Classes()
	if len(defs) != 2 {
		t.Fatalf("got %d declarations, want 2", len(defs))
	}
	if defs[0].Kind != DeclTrait || len(defs[0].Attributes) != 1 || len(defs[0].Methods) != 1 {
		t.Errorf("trait = %+v", defs[0])
	}
	dec := defs[1]
	if dec.Kind != DeclDecorator || dec.Decorates != "Counter" || len(dec.Traits) != 1 {
		t.Errorf("decorator = %+v", dec)
	}
	echo := dec.Methods[0].Body[0].(*EchoStmt)
	concat := echo.Args[0].(*BinaryExpr)
	call := concat.Right.(*CallExpr)
	if _, ok := call.Receiver.(*ParentExpr); !ok || call.Method != "value" {
		t.Errorf("decorator body call = %s", exprString(call))
	}
}

func TestParserStatements(t *testing.T) {
	src := `let c = new Counter
c.increment(); c.increment()
x = 3
if x > 2 { echo "big" }
else { echo "small" }
while x > 0 { x = x - 1 }
throw Failure "bad"
throw Failure
try { c.boom() } catch Failure(e) { echo e.toString() } catch Exception { echo "other" }
import util/strings
add "vendor"
sh "ls", "-1"
return
`
	f := parseFile(t, src)
	want := []string{
		"*compiler.LetStmt",
		"*compiler.ExprStmt",
		"*compiler.ExprStmt",
		"*compiler.AssignStmt",
		"*compiler.IfStmt",
		"*compiler.WhileStmt",
		"*compiler.ThrowStmt",
		"*compiler.ThrowStmt",
		"*compiler.TryStmt",
		"*compiler.ImportStmt",
		"*compiler.AddStmt",
		"*compiler.ShStmt",
		"*compiler.ReturnStmt",
	}
	if len(f.Statements) != len(want) {
		t.Fatalf("got %d statements, want %d", len(f.Statements), len(want))
	}
	for i, s := range f.Statements {
		if got := typeName(s); got != want[i] {
			t.Errorf("statement %d = %s, want %s", i, got, want[i])
		}
	}

	ifs := f.Statements[4].(*IfStmt)
	if len(ifs.Then) != 1 || len(ifs.Else) != 1 {
		t.Errorf("if: then %d else %d, want 1 and 1", len(ifs.Then), len(ifs.Else))
	}
	if f.Statements[7].(*ThrowStmt).Message != nil {
		t.Error("bare throw should have no message")
	}
	try := f.Statements[8].(*TryStmt)
	if len(try.Catches) != 2 || try.Catches[0].Var != "e" || try.Catches[1].Class != "Exception" {
		t.Errorf("try catches = %+v", try.Catches)
	}
	if p := f.Statements[9].(*ImportStmt).Path; p != "util/strings" {
		t.Errorf("import path = %q", p)
	}
	if n := len(f.Statements[11].(*ShStmt).Args); n != 2 {
		t.Errorf("sh args = %d, want 2", n)
	}
}

func TestParserElseIf(t *testing.T) {
	f := parseFile(t, "if a { echo 1 } else if b { echo 2 } else { echo 3 }")
	outer := f.Statements[0].(*IfStmt)
	inner, ok := outer.Else[0].(*IfStmt)
	if !ok {
		t.Fatalf("else = %T, want *IfStmt", outer.Else[0])
	}
	if len(inner.Else) != 1 {
		t.Errorf("inner else has %d statements, want 1", len(inner.Else))
	}
}

func TestParserKeywordMethodNames(t *testing.T) {
	f := parseFile(t, "class K { def new() { } def class() { } }\nk.class()")
	if defs := f.Classes(); len(defs[0].Methods) != 2 || defs[0].Methods[1].Name != "class" {
		t.Errorf("methods = %+v", defs[0].Methods)
	}
}

func TestParserPositions(t *testing.T) {
	f := parseFile(t, "\n\nlet x = 1\n  echo x")
	if line := f.Statements[0].Pos().Line; line != 3 {
		t.Errorf("let on line %d, want 3", line)
	}
	if pos := f.Statements[1].Pos(); pos.Line != 4 || pos.Column != 3 {
		t.Errorf("echo at %+v, want line 4 column 3", pos)
	}
}

func TestParserErrors(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"let = 3", "line 1: expected variable name"},
		{"echo 1\nclass {", "line 2: expected name"},
		{"try { echo 1 }", "try without catch"},
		{"def f() { }", "def outside of a class body"},
		{"if x { class A { } }", "only allowed at top level"},
		{"echo parent", "parent can only be used as a call receiver"},
		{"echo 1 2", "unexpected INTEGER"},
		{"}", "unexpected }"},
		{`echo "open`, "unterminated string"},
		{"sh", "sh needs a command"},
		{"class A {\n def f() {\n", "unexpected end of input"},
		{"decorator D { }", "expected decorates"},
		{"echo 99999999999999999999", "integer out of range"},
	}

	for _, tc := range tests {
		p := NewParser(tc.input)
		p.ParseSourceFile()
		errs := p.Errors()
		if len(errs) == 0 {
			t.Errorf("%q: expected error containing %q", tc.input, tc.want)
			continue
		}
		if !strings.Contains(strings.Join(errs, "\n"), tc.want) {
			t.Errorf("%q: errors %v, want one containing %q", tc.input, errs, tc.want)
		}
	}
}

func TestParserCollectsMultipleErrors(t *testing.T) {
	p := NewParser("let = 1\necho ok\nthrow 5\n")
	p.ParseSourceFile()
	errs := p.Errors()
	if len(errs) != 2 {
		t.Fatalf("got %d errors, want 2: %v", len(errs), errs)
	}
	if !strings.HasPrefix(errs[0], "line 1:") || !strings.HasPrefix(errs[1], "line 3:") {
		t.Errorf("errors = %v", errs)
	}
}

func typeName(v interface{}) string {
	return fmt.Sprintf("%T", v)
}
