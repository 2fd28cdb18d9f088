package compiler

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/chazu/oosh/vm"
)

// ---------------------------------------------------------------------------
// Environment: local variables
// ---------------------------------------------------------------------------

// env holds the local variables of one method activation or of the top level.
// Blocks share the variables of the code that contains them.
type env struct {
	vars map[string]string
}

func newEnv() *env {
	return &env{vars: make(map[string]string)}
}

func (e *env) lookup(name string) (string, bool) {
	v, ok := e.vars[name]
	return v, ok
}

func (e *env) define(name, value string) {
	e.vars[name] = value
}

func (e *env) assign(name, value string) bool {
	if _, ok := e.vars[name]; !ok {
		return false
	}
	e.vars[name] = value
	return true
}

// ---------------------------------------------------------------------------
// Interpreter
// ---------------------------------------------------------------------------

// interp walks statements and expressions. self is nil at top level.
type interp struct {
	sess *Session
	vm   *vm.VM
	self *vm.Self
	env  *env
	file string
}

// fault reports a failed instruction at node n.
func (in *interp) fault(n Node, err error) error {
	return in.vm.Fault(fmt.Sprintf("%s:%d", in.file, n.Pos().Line), err)
}

func (in *interp) requireSelf(n Node, what string) error {
	if in.self == nil {
		return in.fault(n, fmt.Errorf("%s used outside of a method", what))
	}
	return nil
}

// execBlock runs statements in order. It reports whether a return statement
// ended the block.
func (in *interp) execBlock(stmts []Stmt) (bool, error) {
	for _, s := range stmts {
		returned, err := in.exec(s)
		if err != nil || returned {
			return returned, err
		}
	}
	return false, nil
}

func (in *interp) exec(s Stmt) (bool, error) {
	switch s := s.(type) {
	case *LetStmt:
		v := ""
		if s.Value != nil {
			var err error
			if v, err = in.eval(s.Value); err != nil {
				return false, err
			}
		}
		in.env.define(s.Name, v)
		return false, nil

	case *AssignStmt:
		v, err := in.eval(s.Value)
		if err != nil {
			return false, err
		}
		if !in.env.assign(s.Name, v) {
			return false, in.fault(s, fmt.Errorf("undefined variable %s", s.Name))
		}
		return false, nil

	case *AttrAssignStmt:
		if err := in.requireSelf(s, "@"+s.Name); err != nil {
			return false, err
		}
		v, err := in.eval(s.Value)
		if err != nil {
			return false, err
		}
		return false, in.self.Set(s.Name, vm.Text(v))

	case *EchoStmt:
		vals, err := in.evalAll(s.Args)
		if err != nil {
			return false, err
		}
		fmt.Fprintln(in.vm.Output(), strings.Join(vals, " "))
		return false, nil

	case *ReturnStmt:
		if s.Value != nil {
			v, err := in.eval(s.Value)
			if err != nil {
				return false, err
			}
			fmt.Fprintln(in.vm.Output(), v)
		}
		return true, nil

	case *IfStmt:
		cond, err := in.eval(s.Cond)
		if err != nil {
			return false, err
		}
		if Truthy(cond) {
			return in.execBlock(s.Then)
		}
		return in.execBlock(s.Else)

	case *WhileStmt:
		for {
			cond, err := in.eval(s.Cond)
			if err != nil {
				return false, err
			}
			if !Truthy(cond) {
				return false, nil
			}
			if returned, err := in.execBlock(s.Body); err != nil || returned {
				return returned, err
			}
		}

	case *ThrowStmt:
		msg := ""
		if s.Message != nil {
			var err error
			if msg, err = in.eval(s.Message); err != nil {
				return false, err
			}
		}
		return false, in.vm.Throw(s.Class, msg)

	case *TryStmt:
		return in.execTry(s)

	case *ImportStmt:
		return false, in.sess.Import(s.Path)

	case *AddStmt:
		dir, err := in.eval(s.Path)
		if err != nil {
			return false, err
		}
		in.sess.Path.Add(dir)
		return false, nil

	case *ShStmt:
		vals, err := in.evalAll(s.Args)
		if err != nil {
			return false, err
		}
		return false, in.vm.Exec(strings.Join(vals, " "))

	case *ExprStmt:
		if call, ok := s.Expr.(*CallExpr); ok {
			return false, in.call(call)
		}
		_, err := in.eval(s.Expr)
		return false, err

	case *DeclStmt:
		in.vm.Declare(NewCompiler(in.sess, in.file).CompileClass(s.Decl))
		return false, nil
	}
	return false, in.fault(s, fmt.Errorf("unsupported statement %T", s))
}

// execTry nests one handler per catch clause around the body, the first
// clause innermost. A handler that finishes normally resumes execution after
// the throw.
func (in *interp) execTry(s *TryStmt) (bool, error) {
	returned := false
	run := func() error {
		r, err := in.execBlock(s.Body)
		returned = returned || r
		return err
	}
	for _, c := range s.Catches {
		inner, clause := run, c
		run = func() error {
			return in.vm.Try(inner).Catch(clause.Class, in.catchHandler(clause))
		}
	}
	err := run()
	return returned, err
}

func (in *interp) catchHandler(c *CatchClause) vm.Handler {
	return vm.HandlerFunc(func(_ *vm.VM, ex vm.Ref) error {
		if c.Var != "" {
			in.env.define(c.Var, ex.String())
		}
		_, err := in.execBlock(c.Body)
		return err
	})
}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

func (in *interp) evalAll(exprs []Expr) ([]string, error) {
	vals := make([]string, 0, len(exprs))
	for _, e := range exprs {
		v, err := in.eval(e)
		if err != nil {
			return nil, err
		}
		vals = append(vals, v)
	}
	return vals, nil
}

func (in *interp) eval(e Expr) (string, error) {
	switch e := e.(type) {
	case *IntLiteral:
		return strconv.FormatInt(e.Value, 10), nil

	case *StringLiteral:
		return e.Value, nil

	case *Ident:
		v, ok := in.env.lookup(e.Name)
		if !ok {
			return "", in.fault(e, fmt.Errorf("undefined variable %s", e.Name))
		}
		return v, nil

	case *AttrRef:
		if err := in.requireSelf(e, "@"+e.Name); err != nil {
			return "", err
		}
		v, err := in.self.Get(e.Name)
		return v.String(), err

	case *SelfExpr:
		if err := in.requireSelf(e, "self"); err != nil {
			return "", err
		}
		return in.self.Ref().String(), nil

	case *ParentExpr:
		return "", in.fault(e, errors.New("parent is not a value"))

	case *NewExpr:
		return in.vm.New(e.Class).String(), nil

	case *CallExpr:
		return in.vm.Capture(func() error { return in.call(e) })

	case *UnaryExpr:
		v, err := in.eval(e.Operand)
		if err != nil {
			return "", err
		}
		if e.Op == TokenNot {
			return boolString(!Truthy(v)), nil
		}
		n, err := toInt(v)
		if err != nil {
			return "", in.fault(e, err)
		}
		if n == math.MinInt64 {
			return "", in.fault(e, errIntegerOverflow)
		}
		return strconv.FormatInt(-n, 10), nil

	case *BinaryExpr:
		return in.evalBinary(e)
	}
	return "", in.fault(e, fmt.Errorf("unsupported expression %T", e))
}

// call dispatches a method call. self and parent receivers are inner and
// parent calls; any other receiver must evaluate to an object reference.
func (in *interp) call(c *CallExpr) error {
	args, err := in.evalAll(c.Args)
	if err != nil {
		return err
	}
	switch c.Receiver.(type) {
	case *SelfExpr:
		if err := in.requireSelf(c, "self"); err != nil {
			return err
		}
		return in.self.Call(c.Method, args...)
	case *ParentExpr:
		if err := in.requireSelf(c, "parent"); err != nil {
			return err
		}
		return in.self.Parent(c.Method, args...)
	}

	recv, err := in.eval(c.Receiver)
	if err != nil {
		return err
	}
	ref, err := vm.ParseRef(recv)
	if err != nil {
		return in.fault(c, err)
	}
	return in.vm.Call(ref, c.Method, args...)
}

func (in *interp) evalBinary(e *BinaryExpr) (string, error) {
	left, err := in.eval(e.Left)
	if err != nil {
		return "", err
	}
	switch e.Op {
	case TokenAnd:
		if !Truthy(left) {
			return boolString(false), nil
		}
		right, err := in.eval(e.Right)
		return boolString(Truthy(right)), err
	case TokenOr:
		if Truthy(left) {
			return boolString(true), nil
		}
		right, err := in.eval(e.Right)
		return boolString(Truthy(right)), err
	}

	right, err := in.eval(e.Right)
	if err != nil {
		return "", err
	}
	switch e.Op {
	case TokenConcat:
		return left + right, nil
	case TokenEq:
		return boolString(left == right), nil
	case TokenNotEq:
		return boolString(left != right), nil
	case TokenLess, TokenGreater, TokenLessEq, TokenGreaterEq:
		return boolString(compare(e.Op, left, right)), nil
	}

	a, err := toInt(left)
	if err != nil {
		return "", in.fault(e, err)
	}
	b, err := toInt(right)
	if err != nil {
		return "", in.fault(e, err)
	}
	var n int64
	switch e.Op {
	case TokenPlus:
		n = a + b
		if (b > 0 && n < a) || (b < 0 && n > a) {
			return "", in.fault(e, errIntegerOverflow)
		}
	case TokenMinus:
		n = a - b
		if (b > 0 && n > a) || (b < 0 && n < a) {
			return "", in.fault(e, errIntegerOverflow)
		}
	case TokenStar:
		n = a * b
		if a != 0 && (n/a != b || (a == -1 && b == math.MinInt64)) {
			return "", in.fault(e, errIntegerOverflow)
		}
	case TokenSlash, TokenPercent:
		if b == 0 {
			return "", in.fault(e, errors.New("division by zero"))
		}
		if e.Op == TokenSlash && a == math.MinInt64 && b == -1 {
			return "", in.fault(e, errIntegerOverflow)
		}
		if e.Op == TokenSlash {
			n = a / b
		} else {
			n = a % b
		}
	default:
		return "", in.fault(e, fmt.Errorf("unsupported operator %s", e.Op))
	}
	return strconv.FormatInt(n, 10), nil
}

// compare orders integers numerically and everything else as text.
func compare(op TokenType, left, right string) bool {
	c := strings.Compare(left, right)
	if a, err := toInt(left); err == nil {
		if b, err := toInt(right); err == nil {
			switch {
			case a < b:
				c = -1
			case a > b:
				c = 1
			default:
				c = 0
			}
		}
	}
	switch op {
	case TokenLess:
		return c < 0
	case TokenGreater:
		return c > 0
	case TokenLessEq:
		return c <= 0
	default:
		return c >= 0
	}
}

var errIntegerOverflow = errors.New("integer overflow")

func toInt(s string) (int64, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("not an integer: %q", s)
	}
	return n, nil
}

// Truthy reports whether a value counts as true: everything except the
// empty string, "0" and "false".
func Truthy(s string) bool {
	return s != "" && s != "0" && s != "false"
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
