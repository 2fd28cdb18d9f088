package compiler

// ---------------------------------------------------------------------------
// AST: Abstract Syntax Tree for oosh
// ---------------------------------------------------------------------------

// Position represents a source location.
type Position struct {
	Offset int // byte offset
	Line   int // 1-based line number
	Column int // 1-based column number
}

// Node is the interface implemented by all AST nodes.
type Node interface {
	Pos() Position
	node() // marker method
}

// ---------------------------------------------------------------------------
// Expression nodes
// ---------------------------------------------------------------------------

// Expr is the interface for expression nodes.
type Expr interface {
	Node
	expr() // marker method
}

// IntLiteral represents an integer literal.
type IntLiteral struct {
	At    Position
	Value int64
}

// StringLiteral represents a string literal.
type StringLiteral struct {
	At    Position
	Value string
}

// Ident is a reference to a local variable.
type Ident struct {
	At   Position
	Name string
}

// AttrRef reads an attribute of the receiver (@name).
type AttrRef struct {
	At   Position
	Name string
}

// SelfExpr evaluates to the receiver's reference.
type SelfExpr struct {
	At Position
}

// ParentExpr is only valid as a call receiver.
type ParentExpr struct {
	At Position
}

// NewExpr mints a new object of a class.
type NewExpr struct {
	At    Position
	Class string
}

// CallExpr is a method call recv.method(args). As an expression its value is
// the captured output of the call.
type CallExpr struct {
	At       Position
	Receiver Expr
	Method   string
	Args     []Expr
}

// BinaryExpr is a binary operation.
type BinaryExpr struct {
	At    Position
	Op    TokenType
	Left  Expr
	Right Expr
}

// UnaryExpr is a prefix operation (not, unary minus).
type UnaryExpr struct {
	At      Position
	Op      TokenType
	Operand Expr
}

func (n *IntLiteral) Pos() Position    { return n.At }
func (n *StringLiteral) Pos() Position { return n.At }
func (n *Ident) Pos() Position         { return n.At }
func (n *AttrRef) Pos() Position       { return n.At }
func (n *SelfExpr) Pos() Position      { return n.At }
func (n *ParentExpr) Pos() Position    { return n.At }
func (n *NewExpr) Pos() Position       { return n.At }
func (n *CallExpr) Pos() Position      { return n.At }
func (n *BinaryExpr) Pos() Position    { return n.At }
func (n *UnaryExpr) Pos() Position     { return n.At }

func (n *IntLiteral) node()    {}
func (n *StringLiteral) node() {}
func (n *Ident) node()         {}
func (n *AttrRef) node()       {}
func (n *SelfExpr) node()      {}
func (n *ParentExpr) node()    {}
func (n *NewExpr) node()       {}
func (n *CallExpr) node()      {}
func (n *BinaryExpr) node()    {}
func (n *UnaryExpr) node()     {}

func (n *IntLiteral) expr()    {}
func (n *StringLiteral) expr() {}
func (n *Ident) expr()         {}
func (n *AttrRef) expr()       {}
func (n *SelfExpr) expr()      {}
func (n *ParentExpr) expr()    {}
func (n *NewExpr) expr()       {}
func (n *CallExpr) expr()      {}
func (n *BinaryExpr) expr()    {}
func (n *UnaryExpr) expr()     {}

// ---------------------------------------------------------------------------
// Statement nodes
// ---------------------------------------------------------------------------

// Stmt is the interface for statement nodes.
type Stmt interface {
	Node
	stmt() // marker method
}

// LetStmt declares a local variable.
type LetStmt struct {
	At    Position
	Name  string
	Value Expr
}

// AssignStmt assigns an existing local variable.
type AssignStmt struct {
	At    Position
	Name  string
	Value Expr
}

// AttrAssignStmt assigns an attribute of the receiver (@name = expr).
type AttrAssignStmt struct {
	At    Position
	Name  string
	Value Expr
}

// EchoStmt prints its arguments separated by spaces.
type EchoStmt struct {
	At   Position
	Args []Expr
}

// ReturnStmt prints its value, if any, and leaves the method.
type ReturnStmt struct {
	At    Position
	Value Expr // nil for a bare return
}

// IfStmt is a conditional. Else holds a nested IfStmt for else-if chains.
type IfStmt struct {
	At   Position
	Cond Expr
	Then []Stmt
	Else []Stmt
}

// WhileStmt is a pre-tested loop.
type WhileStmt struct {
	At   Position
	Cond Expr
	Body []Stmt
}

// ThrowStmt raises an exception.
type ThrowStmt struct {
	At      Position
	Class   string
	Message Expr // nil for an empty message
}

// CatchClause handles one exception class inside a try statement.
type CatchClause struct {
	At    Position
	Class string
	Var   string // local bound to the exception reference; may be empty
	Body  []Stmt
}

// TryStmt runs Body with a handler for each catch clause. The first clause
// is the innermost handler.
type TryStmt struct {
	At      Position
	Body    []Stmt
	Catches []*CatchClause
}

// ImportStmt loads a library once (import group/name).
type ImportStmt struct {
	At   Position
	Path string
}

// AddStmt prepends a directory to the library search path.
type AddStmt struct {
	At   Position
	Path Expr
}

// ShStmt runs a host command; the arguments are joined with spaces.
type ShStmt struct {
	At   Position
	Args []Expr
}

// ExprStmt evaluates an expression for its effect. A call statement streams
// its output instead of capturing it.
type ExprStmt struct {
	At   Position
	Expr Expr
}

// DeclStmt registers a class, trait or decorator when executed.
type DeclStmt struct {
	At   Position
	Decl *ClassDef
}

func (n *LetStmt) Pos() Position        { return n.At }
func (n *AssignStmt) Pos() Position     { return n.At }
func (n *AttrAssignStmt) Pos() Position { return n.At }
func (n *EchoStmt) Pos() Position       { return n.At }
func (n *ReturnStmt) Pos() Position     { return n.At }
func (n *IfStmt) Pos() Position         { return n.At }
func (n *WhileStmt) Pos() Position      { return n.At }
func (n *ThrowStmt) Pos() Position      { return n.At }
func (n *TryStmt) Pos() Position        { return n.At }
func (n *ImportStmt) Pos() Position     { return n.At }
func (n *AddStmt) Pos() Position        { return n.At }
func (n *ShStmt) Pos() Position         { return n.At }
func (n *ExprStmt) Pos() Position       { return n.At }
func (n *DeclStmt) Pos() Position       { return n.At }

func (n *LetStmt) node()        {}
func (n *AssignStmt) node()     {}
func (n *AttrAssignStmt) node() {}
func (n *EchoStmt) node()       {}
func (n *ReturnStmt) node()     {}
func (n *IfStmt) node()         {}
func (n *WhileStmt) node()      {}
func (n *ThrowStmt) node()      {}
func (n *TryStmt) node()        {}
func (n *ImportStmt) node()     {}
func (n *AddStmt) node()        {}
func (n *ShStmt) node()         {}
func (n *ExprStmt) node()       {}
func (n *DeclStmt) node()       {}

func (n *LetStmt) stmt()        {}
func (n *AssignStmt) stmt()     {}
func (n *AttrAssignStmt) stmt() {}
func (n *EchoStmt) stmt()       {}
func (n *ReturnStmt) stmt()     {}
func (n *IfStmt) stmt()         {}
func (n *WhileStmt) stmt()      {}
func (n *ThrowStmt) stmt()      {}
func (n *TryStmt) stmt()        {}
func (n *ImportStmt) stmt()     {}
func (n *AddStmt) stmt()        {}
func (n *ShStmt) stmt()         {}
func (n *ExprStmt) stmt()       {}
func (n *DeclStmt) stmt()       {}

// ---------------------------------------------------------------------------
// Declarations
// ---------------------------------------------------------------------------

// DeclKind distinguishes class, trait and decorator definitions.
type DeclKind int

const (
	DeclClass DeclKind = iota
	DeclTrait
	DeclDecorator
)

// ClassDef is a class, trait or decorator definition.
type ClassDef struct {
	At         Position
	Kind       DeclKind
	Name       string
	Parent     string   // extends (classes only)
	Decorates  string   // decorators only
	Traits     []string // uses
	Attributes []*AttributeDef
	Methods    []*MethodDef
}

// AttributeDef declares an attribute with an optional default expression.
type AttributeDef struct {
	At      Position
	Name    string
	Private bool
	Default Expr // nil when the attribute starts unset
}

// MethodDef declares a method.
type MethodDef struct {
	At      Position
	Name    string
	Private bool
	Params  []string
	Body    []Stmt
}

// SourceFile is a parsed script or library.
type SourceFile struct {
	Statements []Stmt
}

// Classes returns the declarations of a source file in order.
func (f *SourceFile) Classes() []*ClassDef {
	var defs []*ClassDef
	for _, s := range f.Statements {
		if d, ok := s.(*DeclStmt); ok {
			defs = append(defs, d.Decl)
		}
	}
	return defs
}

func (n *ClassDef) Pos() Position     { return n.At }
func (n *AttributeDef) Pos() Position { return n.At }
func (n *MethodDef) Pos() Position    { return n.At }

func (n *ClassDef) node()     {}
func (n *AttributeDef) node() {}
func (n *MethodDef) node()    {}
