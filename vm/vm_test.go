package vm

import (
	"bytes"
	"strconv"
	"strings"
	"testing"
)

// ---------------------------------------------------------------------------
// Test helpers
// ---------------------------------------------------------------------------

func newTestVM(t *testing.T) (*VM, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	var out, errOut bytes.Buffer
	v, err := NewVM(&Config{Stdout: &out, Stderr: &errOut, MaxDepth: DefaultMaxDepth, Shell: "sh"})
	if err != nil {
		t.Fatalf("NewVM: %v", err)
	}
	t.Cleanup(func() { v.Close() })
	return v, &out, &errOut
}

func counterDecl() *ClassDecl {
	return &ClassDecl{
		Name: "Counter",
		Kind: KindClass,
		Attributes: []AttributeDecl{
			{Name: "count", Visibility: Public, Default: Int(0)},
		},
		Methods: []MethodDecl{
			{Name: "increment", Visibility: Public, Fn: func(s *Self, args []string) error {
				v, err := s.Get("count")
				if err != nil {
					return err
				}
				n, err := strconv.Atoi(v.String())
				if err != nil {
					return err
				}
				return s.Set("count", Int(int64(n+1)))
			}},
		},
	}
}

func mustCapture(t *testing.T, v *VM, fn func() error) string {
	t.Helper()
	out, err := v.Capture(fn)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return out
}

func method(name string, fn MethodFunc) MethodDecl {
	return MethodDecl{Name: name, Visibility: Public, Fn: fn}
}

func printer(text string) MethodFunc {
	return func(s *Self, args []string) error {
		s.Println(text)
		return nil
	}
}

// ---------------------------------------------------------------------------
// End-to-end object behaviour
// ---------------------------------------------------------------------------

func TestCounter(t *testing.T) {
	v, _, _ := newTestVM(t)
	v.Declare(counterDecl())

	c := v.New("Counter")
	for i := 0; i < 2; i++ {
		if err := v.Call(c, "increment"); err != nil {
			t.Fatalf("increment: %v", err)
		}
	}
	got := mustCapture(t, v, func() error { return v.Call(c, "get", "count") })
	if got != "2" {
		t.Errorf("count = %q, want %q", got, "2")
	}
}

func TestObjectIsolation(t *testing.T) {
	v, _, _ := newTestVM(t)
	v.Declare(counterDecl())

	a := v.New("Counter")
	b := v.New("Counter")
	if a.ID == b.ID {
		t.Fatal("identities should be distinct")
	}
	for i := 0; i < 3; i++ {
		if err := v.Call(a, "increment"); err != nil {
			t.Fatal(err)
		}
	}
	if err := v.Call(b, "increment"); err != nil {
		t.Fatal(err)
	}

	if got := mustCapture(t, v, func() error { return v.Call(a, "get", "count") }); got != "3" {
		t.Errorf("a.count = %q, want 3", got)
	}
	if got := mustCapture(t, v, func() error { return v.Call(b, "get", "count") }); got != "1" {
		t.Errorf("b.count = %q, want 1", got)
	}
}

func TestNewDoesNotConstruct(t *testing.T) {
	v, _, _ := newTestVM(t)
	constructed := 0
	v.Declare(&ClassDecl{
		Name: "Lazy",
		Kind: KindClass,
		Methods: []MethodDecl{
			method("construct", func(s *Self, args []string) error {
				constructed++
				return nil
			}),
			method("ping", printer("pong")),
		},
	})

	ref := v.New("Lazy")
	if constructed != 0 {
		t.Fatalf("construct ran %d times before first dispatch", constructed)
	}
	obj := v.Objects.Lookup(ref.ID)
	if obj == nil || obj.NumAttributes() != 0 || obj.Constructed() {
		t.Fatalf("new object should be an empty unconstructed record")
	}
	for i := 0; i < 3; i++ {
		if err := v.Call(ref, "ping"); err != nil {
			t.Fatal(err)
		}
	}
	if constructed != 1 {
		t.Errorf("construct ran %d times, want 1", constructed)
	}
}

func TestExplicitConstructRunsOnce(t *testing.T) {
	v, _, _ := newTestVM(t)
	constructed := 0
	v.Declare(&ClassDecl{
		Name: "Once",
		Kind: KindClass,
		Methods: []MethodDecl{
			method("construct", func(s *Self, args []string) error {
				constructed++
				return nil
			}),
		},
	})

	ref := v.New("Once")
	if err := v.Call(ref, "construct"); err != nil {
		t.Fatal(err)
	}
	if constructed != 1 {
		t.Errorf("construct ran %d times, want 1", constructed)
	}
}

func TestAttributeDeclarationOrder(t *testing.T) {
	v, _, _ := newTestVM(t)
	var order []string
	record := func(name string) func(s *Self) (Value, error) {
		return func(s *Self) (Value, error) {
			order = append(order, name)
			return Text(name), nil
		}
	}
	v.Declare(&ClassDecl{
		Name: "Base",
		Kind: KindClass,
		Attributes: []AttributeDecl{
			{Name: "a", Visibility: Public, Init: record("a")},
			{Name: "b", Visibility: Private, Init: record("b")},
		},
	})
	v.Declare(&ClassDecl{
		Name:   "Derived",
		Kind:   KindClass,
		Parent: "Base",
		Attributes: []AttributeDecl{
			{Name: "c", Visibility: Public, Init: record("c")},
		},
	})

	ref := v.New("Derived")
	if err := v.Call(ref, "toString"); err != nil {
		t.Fatal(err)
	}
	if got := strings.Join(order, ","); got != "a,b,c" {
		t.Errorf("declaration order = %q, want %q", got, "a,b,c")
	}
	obj := v.Objects.Lookup(ref.ID)
	if a, ok := obj.Attribute("b", Private); !ok || a.Value.String() != "b" {
		t.Errorf("private attribute b = %#v, %v", a.Value, ok)
	}
}

func TestInitialiserSeesEarlierAttributes(t *testing.T) {
	v, _, _ := newTestVM(t)
	v.Declare(&ClassDecl{
		Name: "Pair",
		Kind: KindClass,
		Attributes: []AttributeDecl{
			{Name: "first", Visibility: Private, Default: Text("x")},
			{Name: "second", Visibility: Public, Init: func(s *Self) (Value, error) {
				first, err := s.Get("first")
				if err != nil {
					return Unset, err
				}
				return Text(first.String() + "y"), nil
			}},
		},
	})

	ref := v.New("Pair")
	if got := mustCapture(t, v, func() error { return v.Call(ref, "get", "second") }); got != "xy" {
		t.Errorf("second = %q, want %q", got, "xy")
	}
}

// ---------------------------------------------------------------------------
// Visibility
// ---------------------------------------------------------------------------

func secretDecl() *ClassDecl {
	return &ClassDecl{
		Name: "Vault",
		Kind: KindClass,
		Attributes: []AttributeDecl{
			{Name: "secret", Visibility: Private, Default: Text("hidden")},
			{Name: "label", Visibility: Public, Default: Text("vault")},
		},
		Methods: []MethodDecl{
			{Name: "reveal", Visibility: Public, Fn: func(s *Self, args []string) error {
				return s.Call("peek")
			}},
			{Name: "peek", Visibility: Private, Fn: func(s *Self, args []string) error {
				v, err := s.Get("secret")
				if err != nil {
					return err
				}
				s.Println(v.String())
				return nil
			}},
		},
	}
}

func TestPrivateAttributeExternalRead(t *testing.T) {
	v, _, errOut := newTestVM(t)
	v.Declare(secretDecl())
	ref := v.New("Vault")

	err := v.Call(ref, "get", "secret")
	if ExitCode(err) != 1 {
		t.Fatalf("external read of private attribute: err = %v, want exit status 1", err)
	}
	if !strings.Contains(errOut.String(), "UndefinedAttributeException: Vault.secret") {
		t.Errorf("stderr = %q", errOut.String())
	}
}

func TestPrivateAttributeExternalWrite(t *testing.T) {
	v, _, errOut := newTestVM(t)
	v.Declare(secretDecl())
	ref := v.New("Vault")

	if err := v.Call(ref, "set", "secret", "leak"); ExitCode(err) != 1 {
		t.Fatalf("external write of private attribute: err = %v", err)
	}
	if !strings.Contains(errOut.String(), "UndefinedAttributeException") {
		t.Errorf("stderr = %q", errOut.String())
	}
	obj := v.Objects.Lookup(ref.ID)
	if a, _ := obj.Attribute("secret", Private); a.Value.String() != "hidden" {
		t.Errorf("secret = %q after rejected write", a.Value.String())
	}
}

func TestPrivateMethodReachableThroughSelf(t *testing.T) {
	v, _, errOut := newTestVM(t)
	v.Declare(secretDecl())
	ref := v.New("Vault")

	if got := mustCapture(t, v, func() error { return v.Call(ref, "reveal") }); got != "hidden" {
		t.Errorf("reveal = %q, want %q", got, "hidden")
	}
	if err := v.Call(ref, "peek"); ExitCode(err) != 1 {
		t.Fatalf("external call of private method: err = %v", err)
	}
	if !strings.Contains(errOut.String(), "UndefinedMethodException: Vault.peek") {
		t.Errorf("stderr = %q", errOut.String())
	}
}

func TestSetWithoutValueUnsets(t *testing.T) {
	v, _, _ := newTestVM(t)
	v.Declare(secretDecl())
	ref := v.New("Vault")

	if err := v.Call(ref, "set", "label", ""); err != nil {
		t.Fatal(err)
	}
	obj := v.Objects.Lookup(ref.ID)
	a, _ := obj.Attribute("label", Public)
	if !a.Value.IsSet() || a.Value.String() != "" {
		t.Errorf("label = %#v, want assigned empty text", a.Value)
	}

	if err := v.Call(ref, "set", "label"); err != nil {
		t.Fatal(err)
	}
	a, _ = obj.Attribute("label", Public)
	if a.Value.IsSet() {
		t.Errorf("label = %#v, want unset", a.Value)
	}
}

// ---------------------------------------------------------------------------
// Inheritance and parent calls
// ---------------------------------------------------------------------------

func TestParentCall(t *testing.T) {
	v, _, _ := newTestVM(t)
	v.Declare(&ClassDecl{
		Name: "Animal",
		Kind: KindClass,
		Methods: []MethodDecl{
			method("speak", printer("...")),
			method("describe", printer("animal")),
		},
	})
	v.Declare(&ClassDecl{
		Name:   "Dog",
		Kind:   KindClass,
		Parent: "Animal",
		Methods: []MethodDecl{
			method("speak", func(s *Self, args []string) error {
				s.Println("woof")
				return s.Parent("speak")
			}),
		},
	})

	ref := v.New("Dog")
	if got := mustCapture(t, v, func() error { return v.Call(ref, "speak") }); got != "woof\n..." {
		t.Errorf("speak = %q", got)
	}
	if got := mustCapture(t, v, func() error { return v.Call(ref, "describe") }); got != "animal" {
		t.Errorf("inherited describe = %q", got)
	}
}

// An override inherited by a subclass reaches its own parent, once.
func TestParentCallFromInheritedOverride(t *testing.T) {
	v, _, _ := newTestVM(t)
	v.Declare(&ClassDecl{
		Name: "A",
		Kind: KindClass,
		Methods: []MethodDecl{
			method("construct", printer("A.construct")),
			method("m", printer("A")),
		},
	})
	v.Declare(&ClassDecl{
		Name:   "B",
		Kind:   KindClass,
		Parent: "A",
		Methods: []MethodDecl{
			method("construct", func(s *Self, args []string) error {
				if err := s.Parent("construct"); err != nil {
					return err
				}
				s.Println("B.construct")
				return nil
			}),
			method("m", func(s *Self, args []string) error {
				s.Println("B")
				return s.Parent("m")
			}),
		},
	})
	v.Declare(&ClassDecl{Name: "C", Kind: KindClass, Parent: "B"})

	ref := v.New("C")
	got := mustCapture(t, v, func() error { return v.Call(ref, "m") })
	if want := "A.construct\nB.construct\nB\nA"; got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
	got = mustCapture(t, v, func() error { return v.Call(ref, "m") })
	if got != "B\nA" {
		t.Errorf("second call = %q, want %q", got, "B\nA")
	}
}

func TestParentCallReachesPrivateAncestorMethod(t *testing.T) {
	v, _, _ := newTestVM(t)
	v.Declare(&ClassDecl{
		Name: "Base",
		Kind: KindClass,
		Methods: []MethodDecl{
			{Name: "helper", Visibility: Private, Fn: printer("base helper")},
		},
	})
	v.Declare(&ClassDecl{
		Name:   "Child",
		Kind:   KindClass,
		Parent: "Base",
		Methods: []MethodDecl{
			method("run", func(s *Self, args []string) error {
				return s.Parent("helper")
			}),
		},
	})

	ref := v.New("Child")
	if got := mustCapture(t, v, func() error { return v.Call(ref, "run") }); got != "base helper" {
		t.Errorf("run = %q", got)
	}
}

func TestParentCallSharesAttributes(t *testing.T) {
	v, _, _ := newTestVM(t)
	v.Declare(&ClassDecl{
		Name: "Base",
		Kind: KindClass,
		Attributes: []AttributeDecl{
			{Name: "n", Visibility: Private, Default: Int(1)},
		},
		Methods: []MethodDecl{
			method("bump", func(s *Self, args []string) error {
				return s.Set("n", Int(10))
			}),
		},
	})
	v.Declare(&ClassDecl{
		Name:   "Child",
		Kind:   KindClass,
		Parent: "Base",
		Methods: []MethodDecl{
			method("bump", func(s *Self, args []string) error {
				if err := s.Parent("bump"); err != nil {
					return err
				}
				n, err := s.Get("n")
				if err != nil {
					return err
				}
				s.Println(n.String())
				return nil
			}),
		},
	})

	ref := v.New("Child")
	if got := mustCapture(t, v, func() error { return v.Call(ref, "bump") }); got != "10" {
		t.Errorf("bump = %q, want 10", got)
	}
}

func TestCallStackInnermostFirst(t *testing.T) {
	v, _, _ := newTestVM(t)
	var stack []string
	v.Declare(&ClassDecl{
		Name: "Outer",
		Kind: KindClass,
		Methods: []MethodDecl{
			method("outer", func(s *Self, args []string) error {
				return s.Call("inner")
			}),
			method("inner", func(s *Self, args []string) error {
				stack = s.VM().CallStack()
				return nil
			}),
		},
	})

	if err := v.Call(v.New("Outer"), "outer"); err != nil {
		t.Fatal(err)
	}
	if got := strings.Join(stack, " "); got != "Outer.inner Outer.outer" {
		t.Errorf("call stack = %q", got)
	}
	if v.Depth() != 0 || len(v.CallStack()) != 0 {
		t.Errorf("context stack not unwound: depth %d", v.Depth())
	}
}

// ---------------------------------------------------------------------------
// Lifecycle
// ---------------------------------------------------------------------------

func TestCloneCopiesWithoutConstruct(t *testing.T) {
	v, _, _ := newTestVM(t)
	constructed := 0
	decl := counterDecl()
	decl.Methods = append(decl.Methods, method("construct", func(s *Self, args []string) error {
		constructed++
		return nil
	}))
	v.Declare(decl)

	src := v.New("Counter")
	if err := v.Call(src, "increment"); err != nil {
		t.Fatal(err)
	}
	dst := v.New("Counter")
	if err := v.Call(src, "clone", dst.String()); err != nil {
		t.Fatal(err)
	}
	if err := v.Call(dst, "increment"); err != nil {
		t.Fatal(err)
	}

	if constructed != 1 {
		t.Errorf("construct ran %d times, want 1 (source only)", constructed)
	}
	if got := mustCapture(t, v, func() error { return v.Call(dst, "get", "count") }); got != "2" {
		t.Errorf("clone count = %q, want 2", got)
	}
	if got := mustCapture(t, v, func() error { return v.Call(src, "get", "count") }); got != "1" {
		t.Errorf("source count = %q, want 1", got)
	}
}

func TestCloneBareIdentity(t *testing.T) {
	v, _, _ := newTestVM(t)
	v.Declare(counterDecl())

	src := v.New("Counter")
	if err := v.Call(src, "increment"); err != nil {
		t.Fatal(err)
	}
	id := newIdentity()
	if err := v.Call(src, "clone", id); err != nil {
		t.Fatal(err)
	}
	dst := Ref{Class: "Counter", ID: id}
	if got := mustCapture(t, v, func() error { return v.Call(dst, "get", "count") }); got != "1" {
		t.Errorf("clone count = %q, want 1", got)
	}
}

func TestCloneRejectsMalformedIdentity(t *testing.T) {
	v, _, errOut := newTestVM(t)
	v.Declare(counterDecl())

	err := v.Call(v.New("Counter"), "clone", "not-an-id")
	if ExitCode(err) != 1 {
		t.Fatalf("err = %v, want exit status 1", err)
	}
	if !strings.Contains(errOut.String(), "IllegalArgumentException") {
		t.Errorf("stderr = %q", errOut.String())
	}
}

func TestDestructRemovesAttributes(t *testing.T) {
	v, _, errOut := newTestVM(t)
	v.Declare(counterDecl())

	ref := v.New("Counter")
	if err := v.Call(ref, "increment"); err != nil {
		t.Fatal(err)
	}
	if err := v.Call(ref, "destruct"); err != nil {
		t.Fatal(err)
	}
	obj := v.Objects.Lookup(ref.ID)
	if !obj.Destroyed() || obj.NumAttributes() != 0 {
		t.Fatalf("destroyed = %v, attributes = %d", obj.Destroyed(), obj.NumAttributes())
	}
	if err := v.Call(ref, "get", "count"); ExitCode(err) != 1 {
		t.Fatalf("read after destruct: err = %v", err)
	}
	if !strings.Contains(errOut.String(), "UndefinedAttributeException: Counter.count") {
		t.Errorf("stderr = %q", errOut.String())
	}
}

func TestRedeclarationAddsAttributes(t *testing.T) {
	v, _, _ := newTestVM(t)
	v.Declare(counterDecl())
	ref := v.New("Counter")
	if err := v.Call(ref, "increment"); err != nil {
		t.Fatal(err)
	}

	decl := counterDecl()
	decl.Attributes = append(decl.Attributes, AttributeDecl{Name: "step", Visibility: Public, Default: Int(5)})
	v.Declare(decl)

	if got := mustCapture(t, v, func() error { return v.Call(ref, "get", "step") }); got != "5" {
		t.Errorf("step = %q, want 5", got)
	}
	if got := mustCapture(t, v, func() error { return v.Call(ref, "get", "count") }); got != "1" {
		t.Errorf("count = %q, want 1 (kept)", got)
	}
}

func TestRootObjectMethods(t *testing.T) {
	v, _, _ := newTestVM(t)
	v.Declare(counterDecl())
	ref := v.New("Counter")

	if got := mustCapture(t, v, func() error { return v.Call(ref, "toString") }); got != ref.String() {
		t.Errorf("toString = %q, want %q", got, ref.String())
	}
	if got := mustCapture(t, v, func() error { return v.Call(ref, "class") }); got != "Counter" {
		t.Errorf("class = %q", got)
	}
	if got := mustCapture(t, v, func() error { return v.Call(ref, "id") }); got != ref.ID {
		t.Errorf("id = %q", got)
	}
	if got := mustCapture(t, v, func() error { return v.Call(ref, "isKindOf", "Object") }); got != "true" {
		t.Errorf("isKindOf Object = %q", got)
	}
	if got := mustCapture(t, v, func() error { return v.Call(ref, "respondsTo", "increment") }); got != "true" {
		t.Errorf("respondsTo increment = %q", got)
	}
	if got := mustCapture(t, v, func() error { return v.Call(ref, "respondsTo", "nope") }); got != "false" {
		t.Errorf("respondsTo nope = %q", got)
	}
}

func TestParseRef(t *testing.T) {
	id := newIdentity()
	ref, err := ParseRef("Counter:" + id)
	if err != nil {
		t.Fatalf("ParseRef: %v", err)
	}
	if ref.Class != "Counter" || ref.ID != id {
		t.Errorf("ParseRef = %+v", ref)
	}

	for _, bad := range []string{"", "Counter", ":" + id, "Counter:123", id} {
		if _, err := ParseRef(bad); err == nil {
			t.Errorf("ParseRef(%q) should fail", bad)
		}
	}
}

// ---------------------------------------------------------------------------
// Failures and the host bridge
// ---------------------------------------------------------------------------

func TestMethodErrorFaults(t *testing.T) {
	v, _, errOut := newTestVM(t)
	v.Declare(&ClassDecl{
		Name: "Broken",
		Kind: KindClass,
		Methods: []MethodDecl{
			method("run", func(s *Self, args []string) error {
				return &HostError{Instruction: "false", Status: 4}
			}),
		},
	})

	err := v.Call(v.New("Broken"), "run")
	if ExitCode(err) != 4 {
		t.Fatalf("err = %v, want exit status 4", err)
	}
	if !strings.Contains(errOut.String(), "ShellErrorException: false: exit status 4") {
		t.Errorf("stderr = %q", errOut.String())
	}
	if !strings.Contains(errOut.String(), "at Broken.run") {
		t.Errorf("stack trace missing from %q", errOut.String())
	}
}

func TestMaxDepth(t *testing.T) {
	var out, errOut bytes.Buffer
	v, err := NewVM(&Config{Stdout: &out, Stderr: &errOut, MaxDepth: 50})
	if err != nil {
		t.Fatal(err)
	}
	v.Declare(&ClassDecl{
		Name: "Loop",
		Kind: KindClass,
		Methods: []MethodDecl{
			method("spin", func(s *Self, args []string) error {
				return s.Call("spin")
			}),
		},
	})

	err = v.Call(v.New("Loop"), "spin")
	if ExitCode(err) != 1 {
		t.Fatalf("err = %v, want exit status 1", err)
	}
	if !strings.Contains(errOut.String(), "call depth exceeded") {
		t.Errorf("stderr = %q", errOut.String())
	}
	if v.Depth() != 0 {
		t.Errorf("depth = %d after unwinding", v.Depth())
	}
}

func TestRunRecoversPanic(t *testing.T) {
	v, _, errOut := newTestVM(t)
	err := v.Run(func() error { panic("boom") })
	if ExitCode(err) != 1 {
		t.Fatalf("err = %v", err)
	}
	if !strings.Contains(errOut.String(), "ShellErrorException: panic: boom") {
		t.Errorf("stderr = %q", errOut.String())
	}
}

func TestExec(t *testing.T) {
	v, _, _ := newTestVM(t)
	if got := mustCapture(t, v, func() error { return v.Exec("echo hello") }); got != "hello" {
		t.Errorf("Exec output = %q", got)
	}
}

func TestExecFailureTerminates(t *testing.T) {
	v, _, errOut := newTestVM(t)
	err := v.Exec("exit 3")
	if ExitCode(err) != 3 {
		t.Fatalf("err = %v, want exit status 3", err)
	}
	if !strings.Contains(errOut.String(), "ShellErrorException") {
		t.Errorf("stderr = %q", errOut.String())
	}
}

func TestExecExportsReceiver(t *testing.T) {
	v, _, _ := newTestVM(t)
	v.Declare(&ClassDecl{
		Name: "Shell",
		Kind: KindClass,
		Methods: []MethodDecl{
			method("whoami", func(s *Self, args []string) error {
				return s.VM().Exec(`echo "$OOSH_SELF"`)
			}),
		},
	})
	ref := v.New("Shell")
	if got := mustCapture(t, v, func() error { return v.Call(ref, "whoami") }); got != ref.String() {
		t.Errorf("OOSH_SELF = %q, want %q", got, ref.String())
	}
}
