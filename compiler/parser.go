package compiler

import (
	"fmt"
	"strconv"
	"strings"
)

// ---------------------------------------------------------------------------
// Parser: Recursive descent parser for oosh
// ---------------------------------------------------------------------------

// Parser parses oosh source code into an AST.
type Parser struct {
	lexer     *Lexer
	curToken  Token
	peekToken Token
	errors    []string
}

// NewParser creates a new parser for the given input.
func NewParser(input string) *Parser {
	p := &Parser{lexer: NewLexer(input)}
	// Read two tokens to fill curToken and peekToken
	p.nextToken()
	p.nextToken()
	return p
}

// nextToken advances to the next token.
func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	p.peekToken = p.lexer.NextToken()
}

func (p *Parser) curTokenIs(t TokenType) bool {
	return p.curToken.Type == t
}

func (p *Parser) peekTokenIs(t TokenType) bool {
	return p.peekToken.Type == t
}

// expect advances if the current token matches, otherwise records an error.
func (p *Parser) expect(t TokenType) bool {
	if p.curTokenIs(t) {
		p.nextToken()
		return true
	}
	p.errorf("expected %s, got %s", t, p.curToken)
	return false
}

// expectIdent consumes an identifier and returns its text.
func (p *Parser) expectIdent(what string) (string, bool) {
	if !p.curTokenIs(TokenIdentifier) {
		p.errorf("expected %s, got %s", what, p.curToken)
		return "", false
	}
	name := p.curToken.Literal
	p.nextToken()
	return name, true
}

// errorf records a parse error.
func (p *Parser) errorf(format string, args ...interface{}) {
	msg := fmt.Sprintf("line %d: %s", p.curToken.Pos.Line, fmt.Sprintf(format, args...))
	p.errors = append(p.errors, msg)
}

// Errors returns accumulated parse errors.
func (p *Parser) Errors() []string {
	return p.errors
}

// atTerminator reports whether the current token ends a statement.
func (p *Parser) atTerminator() bool {
	switch p.curToken.Type {
	case TokenNewline, TokenSemicolon, TokenRBrace, TokenEOF:
		return true
	}
	return false
}

func (p *Parser) skipSeparators() {
	for p.curTokenIs(TokenNewline) || p.curTokenIs(TokenSemicolon) {
		p.nextToken()
	}
}

// skipNewlines skips newlines only (used before '{' and 'else').
func (p *Parser) skipNewlines() {
	for p.curTokenIs(TokenNewline) {
		p.nextToken()
	}
}

// synchronize skips to the end of the current statement.
func (p *Parser) synchronize() {
	for !p.atTerminator() {
		p.nextToken()
	}
}

// endStatement checks that a statement is properly terminated.
func (p *Parser) endStatement() {
	if p.atTerminator() {
		return
	}
	p.errorf("unexpected %s after statement", p.curToken)
	p.synchronize()
}

// ---------------------------------------------------------------------------
// Top-level parsing
// ---------------------------------------------------------------------------

// ParseSourceFile parses a whole script or library.
func (p *Parser) ParseSourceFile() *SourceFile {
	f := &SourceFile{}
	p.skipSeparators()
	for !p.curTokenIs(TokenEOF) {
		if p.curTokenIs(TokenRBrace) {
			p.errorf("unexpected }")
			p.nextToken()
			p.skipSeparators()
			continue
		}
		if stmt := p.parseStatement(true); stmt != nil {
			f.Statements = append(f.Statements, stmt)
		}
		p.endStatement()
		p.skipSeparators()
	}
	return f
}

// ParseExpression parses a single expression.
func (p *Parser) ParseExpression() Expr {
	return p.parseExpr()
}

// parseBlock parses '{' statements '}'.
func (p *Parser) parseBlock() []Stmt {
	p.skipNewlines()
	if !p.expect(TokenLBrace) {
		p.synchronize()
		return nil
	}
	var stmts []Stmt
	p.skipSeparators()
	for !p.curTokenIs(TokenRBrace) {
		if p.curTokenIs(TokenEOF) {
			p.errorf("unexpected end of input, expected }")
			return stmts
		}
		if stmt := p.parseStatement(false); stmt != nil {
			stmts = append(stmts, stmt)
		}
		p.endStatement()
		p.skipSeparators()
	}
	p.nextToken() // }
	return stmts
}

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

func (p *Parser) parseStatement(topLevel bool) Stmt {
	pos := p.curToken.Pos
	switch p.curToken.Type {
	case TokenClass, TokenTrait, TokenDecorator:
		if !topLevel {
			p.errorf("%s declarations are only allowed at top level", p.curToken.Literal)
		}
		def := p.parseClassDef()
		if def == nil {
			return nil
		}
		return &DeclStmt{At: pos, Decl: def}
	case TokenLet:
		return p.parseLet()
	case TokenAttribute:
		if p.peekTokenIs(TokenAssign) {
			name := p.curToken.Literal
			p.nextToken()
			p.nextToken()
			return &AttrAssignStmt{At: pos, Name: name, Value: p.parseExpr()}
		}
	case TokenIdentifier:
		if p.peekTokenIs(TokenAssign) {
			name := p.curToken.Literal
			p.nextToken()
			p.nextToken()
			return &AssignStmt{At: pos, Name: name, Value: p.parseExpr()}
		}
	case TokenEcho:
		p.nextToken()
		return &EchoStmt{At: pos, Args: p.parseOptionalExprList()}
	case TokenReturn:
		p.nextToken()
		ret := &ReturnStmt{At: pos}
		if !p.atTerminator() {
			ret.Value = p.parseExpr()
		}
		return ret
	case TokenIf:
		return p.parseIf()
	case TokenWhile:
		p.nextToken()
		cond := p.parseExpr()
		return &WhileStmt{At: pos, Cond: cond, Body: p.parseBlock()}
	case TokenThrow:
		p.nextToken()
		class, ok := p.expectIdent("exception class")
		if !ok {
			p.synchronize()
			return nil
		}
		th := &ThrowStmt{At: pos, Class: class}
		if !p.atTerminator() {
			th.Message = p.parseExpr()
		}
		return th
	case TokenTry:
		return p.parseTry()
	case TokenImport:
		return p.parseImport()
	case TokenAdd:
		p.nextToken()
		return &AddStmt{At: pos, Path: p.parseExpr()}
	case TokenSh:
		p.nextToken()
		args := p.parseOptionalExprList()
		if len(args) == 0 {
			p.errorf("sh needs a command")
		}
		return &ShStmt{At: pos, Args: args}
	case TokenDef, TokenPublic, TokenPrivate:
		p.errorf("%s outside of a class body", p.curToken.Literal)
		p.synchronize()
		return nil
	}

	expr := p.parseExpr()
	if expr == nil {
		return nil
	}
	return &ExprStmt{At: pos, Expr: expr}
}

func (p *Parser) parseLet() Stmt {
	pos := p.curToken.Pos
	p.nextToken() // let
	name, ok := p.expectIdent("variable name")
	if !ok {
		p.synchronize()
		return nil
	}
	let := &LetStmt{At: pos, Name: name}
	if p.curTokenIs(TokenAssign) {
		p.nextToken()
		let.Value = p.parseExpr()
	}
	return let
}

func (p *Parser) parseIf() Stmt {
	pos := p.curToken.Pos
	p.nextToken() // if
	stmt := &IfStmt{At: pos, Cond: p.parseExpr()}
	stmt.Then = p.parseBlock()

	// else may follow on the next line
	if p.curTokenIs(TokenNewline) && p.peekTokenIs(TokenElse) {
		p.nextToken()
	}
	if p.curTokenIs(TokenElse) {
		p.nextToken()
		if p.curTokenIs(TokenIf) {
			stmt.Else = []Stmt{p.parseIf()}
		} else {
			stmt.Else = p.parseBlock()
		}
	}
	return stmt
}

func (p *Parser) parseTry() Stmt {
	pos := p.curToken.Pos
	p.nextToken() // try
	stmt := &TryStmt{At: pos, Body: p.parseBlock()}

	for {
		if p.curTokenIs(TokenNewline) && p.peekTokenIs(TokenCatch) {
			p.nextToken()
		}
		if !p.curTokenIs(TokenCatch) {
			break
		}
		clause := &CatchClause{At: p.curToken.Pos}
		p.nextToken()
		class, ok := p.expectIdent("exception class")
		if !ok {
			p.synchronize()
			return stmt
		}
		clause.Class = class
		if p.curTokenIs(TokenLParen) {
			p.nextToken()
			if clause.Var, ok = p.expectIdent("variable name"); !ok {
				p.synchronize()
				return stmt
			}
			p.expect(TokenRParen)
		}
		clause.Body = p.parseBlock()
		stmt.Catches = append(stmt.Catches, clause)
	}
	if len(stmt.Catches) == 0 {
		p.errorf("try without catch")
	}
	return stmt
}

// parseImport parses a library path such as util/strings.
func (p *Parser) parseImport() Stmt {
	pos := p.curToken.Pos
	p.nextToken() // import
	var parts []string
	for {
		if !p.curTokenIs(TokenIdentifier) && !p.curToken.Type.IsKeyword() {
			p.errorf("expected library name, got %s", p.curToken)
			p.synchronize()
			return nil
		}
		parts = append(parts, p.curToken.Literal)
		p.nextToken()
		if !p.curTokenIs(TokenSlash) {
			break
		}
		p.nextToken()
	}
	return &ImportStmt{At: pos, Path: strings.Join(parts, "/")}
}

// parseOptionalExprList parses a comma-separated expression list that may be
// empty (echo with no arguments prints an empty line).
func (p *Parser) parseOptionalExprList() []Expr {
	if p.atTerminator() {
		return nil
	}
	var exprs []Expr
	for {
		e := p.parseExpr()
		if e == nil {
			return exprs
		}
		exprs = append(exprs, e)
		if !p.curTokenIs(TokenComma) {
			return exprs
		}
		p.nextToken()
	}
}

// ---------------------------------------------------------------------------
// Declarations
// ---------------------------------------------------------------------------

func (p *Parser) parseClassDef() *ClassDef {
	def := &ClassDef{At: p.curToken.Pos}
	switch p.curToken.Type {
	case TokenTrait:
		def.Kind = DeclTrait
	case TokenDecorator:
		def.Kind = DeclDecorator
	default:
		def.Kind = DeclClass
	}
	p.nextToken()

	name, ok := p.expectIdent("name")
	if !ok {
		p.synchronize()
		return nil
	}
	def.Name = name

	if def.Kind == DeclClass && p.curTokenIs(TokenExtends) {
		p.nextToken()
		if def.Parent, ok = p.expectIdent("parent class"); !ok {
			p.synchronize()
			return nil
		}
	}
	if def.Kind == DeclDecorator {
		if !p.expect(TokenDecorates) {
			p.synchronize()
			return nil
		}
		if def.Decorates, ok = p.expectIdent("decorated class"); !ok {
			p.synchronize()
			return nil
		}
	}
	if p.curTokenIs(TokenUses) {
		p.nextToken()
		for {
			trait, ok := p.expectIdent("trait name")
			if !ok {
				p.synchronize()
				return nil
			}
			def.Traits = append(def.Traits, trait)
			if !p.curTokenIs(TokenComma) {
				break
			}
			p.nextToken()
		}
	}

	p.skipNewlines()
	if !p.expect(TokenLBrace) {
		p.synchronize()
		return nil
	}
	p.skipSeparators()
	for !p.curTokenIs(TokenRBrace) {
		if p.curTokenIs(TokenEOF) {
			p.errorf("unexpected end of input in %s", def.Name)
			return def
		}
		p.parseMember(def)
		switch p.curToken.Type {
		case TokenDef, TokenPublic, TokenPrivate:
			// members may share a line
		default:
			p.endStatement()
		}
		p.skipSeparators()
	}
	p.nextToken() // }
	return def
}

// parseMember parses one attribute or method inside a declaration body.
func (p *Parser) parseMember(def *ClassDef) {
	pos := p.curToken.Pos
	private := false
	switch p.curToken.Type {
	case TokenPrivate:
		private = true
		p.nextToken()
	case TokenPublic:
		p.nextToken()
	}

	if p.curTokenIs(TokenDef) {
		p.nextToken()
		name, ok := p.memberName()
		if !ok {
			p.synchronize()
			return
		}
		m := &MethodDef{At: pos, Name: name, Private: private}
		if p.curTokenIs(TokenLParen) {
			p.nextToken()
			for !p.curTokenIs(TokenRParen) {
				param, ok := p.expectIdent("parameter name")
				if !ok {
					p.synchronize()
					return
				}
				m.Params = append(m.Params, param)
				if !p.curTokenIs(TokenComma) {
					break
				}
				p.nextToken()
			}
			if !p.expect(TokenRParen) {
				p.synchronize()
				return
			}
		}
		m.Body = p.parseBlock()
		def.Methods = append(def.Methods, m)
		return
	}

	name, ok := p.memberName()
	if !ok {
		p.synchronize()
		return
	}
	attr := &AttributeDef{At: pos, Name: name, Private: private}
	if p.curTokenIs(TokenAssign) {
		p.nextToken()
		attr.Default = p.parseExpr()
	}
	def.Attributes = append(def.Attributes, attr)
}

// memberName accepts identifiers and reserved words, so that methods such as
// class or new can be declared and called.
func (p *Parser) memberName() (string, bool) {
	if p.curTokenIs(TokenIdentifier) || p.curToken.Type.IsKeyword() {
		name := p.curToken.Literal
		p.nextToken()
		return name, true
	}
	p.errorf("expected member name, got %s", p.curToken)
	return "", false
}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

func (p *Parser) parseExpr() Expr {
	return p.parseOr()
}

func (p *Parser) parseOr() Expr {
	left := p.parseAnd()
	for left != nil && p.curTokenIs(TokenOr) {
		pos := p.curToken.Pos
		p.nextToken()
		left = &BinaryExpr{At: pos, Op: TokenOr, Left: left, Right: p.parseAnd()}
	}
	return left
}

func (p *Parser) parseAnd() Expr {
	left := p.parseNot()
	for left != nil && p.curTokenIs(TokenAnd) {
		pos := p.curToken.Pos
		p.nextToken()
		left = &BinaryExpr{At: pos, Op: TokenAnd, Left: left, Right: p.parseNot()}
	}
	return left
}

func (p *Parser) parseNot() Expr {
	if p.curTokenIs(TokenNot) {
		pos := p.curToken.Pos
		p.nextToken()
		return &UnaryExpr{At: pos, Op: TokenNot, Operand: p.parseNot()}
	}
	return p.parseComparison()
}

func (p *Parser) parseComparison() Expr {
	left := p.parseConcat()
	switch p.curToken.Type {
	case TokenEq, TokenNotEq, TokenLess, TokenGreater, TokenLessEq, TokenGreaterEq:
		op := p.curToken
		p.nextToken()
		return &BinaryExpr{At: op.Pos, Op: op.Type, Left: left, Right: p.parseConcat()}
	}
	return left
}

func (p *Parser) parseConcat() Expr {
	left := p.parseAdditive()
	for left != nil && p.curTokenIs(TokenConcat) {
		pos := p.curToken.Pos
		p.nextToken()
		left = &BinaryExpr{At: pos, Op: TokenConcat, Left: left, Right: p.parseAdditive()}
	}
	return left
}

func (p *Parser) parseAdditive() Expr {
	left := p.parseMultiplicative()
	for left != nil && (p.curTokenIs(TokenPlus) || p.curTokenIs(TokenMinus)) {
		op := p.curToken
		p.nextToken()
		left = &BinaryExpr{At: op.Pos, Op: op.Type, Left: left, Right: p.parseMultiplicative()}
	}
	return left
}

func (p *Parser) parseMultiplicative() Expr {
	left := p.parseUnary()
	for left != nil && (p.curTokenIs(TokenStar) || p.curTokenIs(TokenSlash) || p.curTokenIs(TokenPercent)) {
		op := p.curToken
		p.nextToken()
		left = &BinaryExpr{At: op.Pos, Op: op.Type, Left: left, Right: p.parseUnary()}
	}
	return left
}

func (p *Parser) parseUnary() Expr {
	if p.curTokenIs(TokenMinus) {
		pos := p.curToken.Pos
		p.nextToken()
		return &UnaryExpr{At: pos, Op: TokenMinus, Operand: p.parseUnary()}
	}
	return p.parsePostfix()
}

// parsePostfix parses a primary followed by any number of .method(args).
func (p *Parser) parsePostfix() Expr {
	expr := p.parsePrimary()
	for expr != nil && p.curTokenIs(TokenDot) {
		pos := p.curToken.Pos
		p.nextToken()
		name, ok := p.memberName()
		if !ok {
			return nil
		}
		call := &CallExpr{At: pos, Receiver: expr, Method: name}
		if p.curTokenIs(TokenLParen) {
			p.nextToken()
			for !p.curTokenIs(TokenRParen) {
				arg := p.parseExpr()
				if arg == nil {
					return nil
				}
				call.Args = append(call.Args, arg)
				if !p.curTokenIs(TokenComma) {
					break
				}
				p.nextToken()
			}
			if !p.expect(TokenRParen) {
				return nil
			}
		}
		expr = call
	}
	if _, isParent := expr.(*ParentExpr); isParent {
		p.errorf("parent can only be used as a call receiver")
	}
	return expr
}

func (p *Parser) parsePrimary() Expr {
	tok := p.curToken
	switch tok.Type {
	case TokenInteger:
		p.nextToken()
		n, err := strconv.ParseInt(tok.Literal, 10, 64)
		if err != nil {
			p.errorf("integer out of range: %s", tok.Literal)
			return nil
		}
		return &IntLiteral{At: tok.Pos, Value: n}
	case TokenString:
		p.nextToken()
		return &StringLiteral{At: tok.Pos, Value: tok.Literal}
	case TokenIdentifier:
		p.nextToken()
		return &Ident{At: tok.Pos, Name: tok.Literal}
	case TokenAttribute:
		p.nextToken()
		return &AttrRef{At: tok.Pos, Name: tok.Literal}
	case TokenSelf:
		p.nextToken()
		return &SelfExpr{At: tok.Pos}
	case TokenParent:
		p.nextToken()
		return &ParentExpr{At: tok.Pos}
	case TokenNew:
		p.nextToken()
		class, ok := p.expectIdent("class name")
		if !ok {
			return nil
		}
		return &NewExpr{At: tok.Pos, Class: class}
	case TokenLParen:
		p.nextToken()
		e := p.parseExpr()
		if !p.expect(TokenRParen) {
			return nil
		}
		return e
	case TokenError:
		p.errorf("%s", tok.Literal)
		p.nextToken()
		return nil
	}
	p.errorf("unexpected %s", tok)
	if !p.atTerminator() {
		p.nextToken()
	}
	return nil
}
