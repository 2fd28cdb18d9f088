package compiler

import (
	"testing"
)

// ---------------------------------------------------------------------------
// FuzzLexer: ensure the lexer never panics on arbitrary input.
// ---------------------------------------------------------------------------

var fuzzSeeds = []string{
	`( ) { } , ; . .. = == != < > <= >= + - * / %`,
	`42`, `0`, `-123`,
	`"hello"`, `"a\nb"`, `'raw'`, `''`, `"unterminated`, `'unterminated`, `"esc\`,
	`@count`, `@`, `foo`, `_x1`, `café`,
	`class trait decorator extends uses decorates public private def`,
	"# comment\nfoo",
	"a \\\nb",
	"let c = new Counter\nc.increment()\necho c.value()",
	"class A extends B uses C, D { private n = 0  def f(x) { @n = @n + x } }",
	"decorator L decorates A { def f() { parent.f() } }",
	"try { throw E \"m\" } catch E(e) { echo e.toString() } catch F { }",
	"if a { } else if b { } else { }",
	"while x < 3 { x = x + 1 }",
	"import a/b\nadd \"p\"\nsh \"ls\", \"-1\"",
	"((((", "}}}}", "class {", "def", "echo parent", "!$^&|?",
	``, `   `, "\t\n\r",
}

func FuzzLexer(f *testing.F) {
	for _, s := range fuzzSeeds {
		f.Add(s)
	}

	f.Fuzz(func(t *testing.T, data string) {
		defer func() {
			if r := recover(); r != nil {
				t.Fatalf("lexer panicked on input %q: %v", data, r)
			}
		}()

		l := NewLexer(data)
		for i := 0; i < len(data)+100; i++ {
			tok := l.NextToken()
			if tok.Type == TokenEOF {
				break
			}
		}
	})
}

// ---------------------------------------------------------------------------
// FuzzParser: ensure the parser never panics on arbitrary input.
// Parse errors are acceptable; panics are not.
// ---------------------------------------------------------------------------

func FuzzParser(f *testing.F) {
	for _, s := range fuzzSeeds {
		f.Add(s)
	}

	f.Fuzz(func(t *testing.T, data string) {
		defer func() {
			if r := recover(); r != nil {
				t.Fatalf("parser panicked on input %q: %v", data, r)
			}
		}()

		p := NewParser(data)
		file := p.ParseSourceFile()
		if len(p.Errors()) == 0 {
			NewSemanticAnalyzer().AnalyzeFile(file)
		}
	})
}
