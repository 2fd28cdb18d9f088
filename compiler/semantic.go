package compiler

import (
	"fmt"
)

// ---------------------------------------------------------------------------
// Semantic Analyzer: checks run after parsing and before execution
// ---------------------------------------------------------------------------

// SemanticAnalyzer checks a parsed file for mistakes the grammar cannot
// catch. Errors stop the file from running; warnings are only reported.
type SemanticAnalyzer struct {
	errors   []string
	warnings []string

	// locals visible in the body being analyzed
	scope map[string]bool
	// inMethod is false at top level, where self, parent and @attr are invalid
	inMethod bool
}

// NewSemanticAnalyzer creates a new semantic analyzer.
func NewSemanticAnalyzer() *SemanticAnalyzer {
	return &SemanticAnalyzer{}
}

// Errors returns accumulated analysis errors.
func (s *SemanticAnalyzer) Errors() []string {
	return s.errors
}

// Warnings returns accumulated warnings.
func (s *SemanticAnalyzer) Warnings() []string {
	return s.warnings
}

func (s *SemanticAnalyzer) errorAt(node Node, format string, args ...interface{}) {
	pos := node.Pos()
	s.errors = append(s.errors, fmt.Sprintf("line %d: %s", pos.Line, fmt.Sprintf(format, args...)))
}

func (s *SemanticAnalyzer) warnAt(node Node, format string, args ...interface{}) {
	pos := node.Pos()
	s.warnings = append(s.warnings, fmt.Sprintf("warning: line %d: %s", pos.Line, fmt.Sprintf(format, args...)))
}

// AnalyzeFile analyzes every statement and declaration of a file. Top-level
// variables are not tracked: globals may be defined by the host.
func (s *SemanticAnalyzer) AnalyzeFile(f *SourceFile) {
	s.scope = nil
	s.inMethod = false
	s.analyzeStatements(f.Statements)
}

// AnalyzeClass checks a class, trait or decorator definition.
func (s *SemanticAnalyzer) AnalyzeClass(def *ClassDef) {
	if def.Kind != DeclClass && def.Parent != "" {
		s.errorAt(def, "%s %s cannot extend %s", declKindName(def.Kind), def.Name, def.Parent)
	}
	if def.Parent == def.Name && def.Parent != "" {
		s.errorAt(def, "class %s extends itself", def.Name)
	}
	for _, t := range def.Traits {
		if t == def.Name {
			s.errorAt(def, "%s %s uses itself", declKindName(def.Kind), def.Name)
		}
	}

	attrs := make(map[string]bool)
	for _, a := range def.Attributes {
		if attrs[a.Name] {
			s.errorAt(a, "duplicate attribute %s in %s", a.Name, def.Name)
		}
		attrs[a.Name] = true
	}
	methods := make(map[string]bool)
	for _, m := range def.Methods {
		if methods[m.Name] {
			s.errorAt(m, "duplicate method %s in %s", m.Name, def.Name)
		}
		methods[m.Name] = true
		s.AnalyzeMethod(m)
	}
}

// AnalyzeMethod checks one method body.
func (s *SemanticAnalyzer) AnalyzeMethod(m *MethodDef) {
	outerScope, outerMethod := s.scope, s.inMethod
	defer func() { s.scope, s.inMethod = outerScope, outerMethod }()

	s.scope = make(map[string]bool)
	s.inMethod = true
	for _, p := range m.Params {
		if s.scope[p] {
			s.errorAt(m, "duplicate parameter %s in %s", p, m.Name)
		}
		s.scope[p] = true
	}
	s.analyzeStatements(m.Body)
	s.checkUnreachableCode(m.Body)
}

func (s *SemanticAnalyzer) analyzeStatements(stmts []Stmt) {
	for _, stmt := range stmts {
		s.analyzeStmt(stmt)
	}
}

func (s *SemanticAnalyzer) analyzeStmt(stmt Stmt) {
	switch st := stmt.(type) {
	case *LetStmt:
		s.analyzeExpr(st.Value)
		s.define(st.Name)
	case *AssignStmt:
		s.analyzeExpr(st.Value)
		s.checkVariable(st, st.Name)
	case *AttrAssignStmt:
		s.checkReceiver(st, "@"+st.Name)
		s.analyzeExpr(st.Value)
	case *EchoStmt:
		s.analyzeExprs(st.Args)
	case *ReturnStmt:
		s.analyzeExpr(st.Value)
	case *IfStmt:
		s.analyzeExpr(st.Cond)
		s.analyzeStatements(st.Then)
		s.analyzeStatements(st.Else)
	case *WhileStmt:
		s.analyzeExpr(st.Cond)
		s.analyzeStatements(st.Body)
	case *ThrowStmt:
		s.analyzeExpr(st.Message)
	case *TryStmt:
		s.analyzeStatements(st.Body)
		for _, c := range st.Catches {
			if c.Var != "" {
				s.define(c.Var)
			}
			s.analyzeStatements(c.Body)
		}
	case *AddStmt:
		s.analyzeExpr(st.Path)
	case *ShStmt:
		s.analyzeExprs(st.Args)
	case *ExprStmt:
		s.analyzeExpr(st.Expr)
	case *DeclStmt:
		s.AnalyzeClass(st.Decl)
	}
}

func (s *SemanticAnalyzer) analyzeExprs(exprs []Expr) {
	for _, e := range exprs {
		s.analyzeExpr(e)
	}
}

func (s *SemanticAnalyzer) analyzeExpr(expr Expr) {
	switch e := expr.(type) {
	case nil:
	case *Ident:
		s.checkVariable(e, e.Name)
	case *AttrRef:
		s.checkReceiver(e, "@"+e.Name)
	case *SelfExpr:
		s.checkReceiver(e, "self")
	case *ParentExpr:
		s.checkReceiver(e, "parent")
	case *CallExpr:
		s.analyzeExpr(e.Receiver)
		s.analyzeExprs(e.Args)
	case *BinaryExpr:
		s.analyzeExpr(e.Left)
		s.analyzeExpr(e.Right)
	case *UnaryExpr:
		s.analyzeExpr(e.Operand)
	}
}

func (s *SemanticAnalyzer) define(name string) {
	if s.scope != nil {
		s.scope[name] = true
	}
}

// checkVariable warns about locals read in a method before any let,
// parameter or catch binding introduces them.
func (s *SemanticAnalyzer) checkVariable(node Node, name string) {
	if s.inMethod && !s.scope[name] {
		s.warnAt(node, "undefined variable %s", name)
	}
}

func (s *SemanticAnalyzer) checkReceiver(node Node, what string) {
	if !s.inMethod {
		s.errorAt(node, "%s used outside of a method", what)
	}
}

// checkUnreachableCode warns about statements following a return.
func (s *SemanticAnalyzer) checkUnreachableCode(stmts []Stmt) {
	for i, stmt := range stmts {
		if _, ok := stmt.(*ReturnStmt); ok && i < len(stmts)-1 {
			s.warnAt(stmts[i+1], "unreachable code after return")
			return
		}
	}
}

func declKindName(k DeclKind) string {
	switch k {
	case DeclTrait:
		return "trait"
	case DeclDecorator:
		return "decorator"
	default:
		return "class"
	}
}
