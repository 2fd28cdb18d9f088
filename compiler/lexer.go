package compiler

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// ---------------------------------------------------------------------------
// Lexer: Tokenizer for oosh source
// ---------------------------------------------------------------------------

// Lexer tokenizes oosh source code. Newlines are significant statement
// terminators except inside parentheses.
type Lexer struct {
	input      string
	pos        int  // current position in input
	readPos    int  // reading position (after current char)
	ch         rune // current character
	line       int  // current line (1-based)
	col        int  // current column (1-based)
	parenDepth int
}

// NewLexer creates a new lexer for the given input.
func NewLexer(input string) *Lexer {
	l := &Lexer{
		input: input,
		line:  1,
		col:   0,
	}
	l.readChar()
	return l
}

// readChar reads the next character.
func (l *Lexer) readChar() {
	if l.ch == '\n' {
		l.line++
		l.col = 0
	}
	if l.readPos >= len(l.input) {
		l.ch = 0
		l.pos = l.readPos
		l.col++
		return
	}
	r, size := utf8.DecodeRuneInString(l.input[l.readPos:])
	l.ch = r
	l.pos = l.readPos
	l.readPos += size
	l.col++
}

// peekChar returns the next character without consuming it.
func (l *Lexer) peekChar() rune {
	if l.readPos >= len(l.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.readPos:])
	return r
}

func (l *Lexer) position() Position {
	return Position{Offset: l.pos, Line: l.line, Column: l.col}
}

// NextToken returns the next token.
func (l *Lexer) NextToken() Token {
	l.skipSpaceAndComments()

	pos := l.position()
	single := func(t TokenType) Token {
		lit := string(l.ch)
		l.readChar()
		return Token{Type: t, Literal: lit, Pos: pos}
	}
	double := func(t TokenType) Token {
		lit := string(l.ch) + string(l.peekChar())
		l.readChar()
		l.readChar()
		return Token{Type: t, Literal: lit, Pos: pos}
	}

	switch {
	case l.ch == 0:
		return Token{Type: TokenEOF, Pos: pos}
	case l.ch == '\n':
		return single(TokenNewline)
	case l.ch == '(':
		l.parenDepth++
		return single(TokenLParen)
	case l.ch == ')':
		if l.parenDepth > 0 {
			l.parenDepth--
		}
		return single(TokenRParen)
	case l.ch == '{':
		return single(TokenLBrace)
	case l.ch == '}':
		return single(TokenRBrace)
	case l.ch == ',':
		return single(TokenComma)
	case l.ch == ';':
		return single(TokenSemicolon)
	case l.ch == '.':
		if l.peekChar() == '.' {
			return double(TokenConcat)
		}
		return single(TokenDot)
	case l.ch == '=':
		if l.peekChar() == '=' {
			return double(TokenEq)
		}
		return single(TokenAssign)
	case l.ch == '!':
		if l.peekChar() == '=' {
			return double(TokenNotEq)
		}
		return single(TokenError)
	case l.ch == '<':
		if l.peekChar() == '=' {
			return double(TokenLessEq)
		}
		return single(TokenLess)
	case l.ch == '>':
		if l.peekChar() == '=' {
			return double(TokenGreaterEq)
		}
		return single(TokenGreater)
	case l.ch == '+':
		return single(TokenPlus)
	case l.ch == '-':
		return single(TokenMinus)
	case l.ch == '*':
		return single(TokenStar)
	case l.ch == '/':
		return single(TokenSlash)
	case l.ch == '%':
		return single(TokenPercent)
	case l.ch == '"':
		return l.readString(pos)
	case l.ch == '\'':
		return l.readRawString(pos)
	case l.ch == '@':
		l.readChar()
		if !isIdentStart(l.ch) {
			return Token{Type: TokenError, Literal: "@", Pos: pos}
		}
		return Token{Type: TokenAttribute, Literal: l.readIdentifier(), Pos: pos}
	case isDigit(l.ch):
		start := l.pos
		for isDigit(l.ch) {
			l.readChar()
		}
		return Token{Type: TokenInteger, Literal: l.input[start:l.pos], Pos: pos}
	case isIdentStart(l.ch):
		ident := l.readIdentifier()
		if t, ok := reservedWords[ident]; ok {
			return Token{Type: t, Literal: ident, Pos: pos}
		}
		return Token{Type: TokenIdentifier, Literal: ident, Pos: pos}
	default:
		return single(TokenError)
	}
}

// skipSpaceAndComments skips blanks and # comments. Newlines inside
// parentheses are skipped too.
func (l *Lexer) skipSpaceAndComments() {
	for {
		switch {
		case l.ch == ' ' || l.ch == '\t' || l.ch == '\r':
			l.readChar()
		case l.ch == '\n' && l.parenDepth > 0:
			l.readChar()
		case l.ch == '\\' && l.peekChar() == '\n':
			l.readChar()
			l.readChar()
		case l.ch == '#':
			for l.ch != '\n' && l.ch != 0 {
				l.readChar()
			}
		default:
			return
		}
	}
}

func (l *Lexer) readIdentifier() string {
	start := l.pos
	for isIdentStart(l.ch) || isDigit(l.ch) {
		l.readChar()
	}
	return l.input[start:l.pos]
}

// readString reads a double-quoted string with backslash escapes.
func (l *Lexer) readString(pos Position) Token {
	var sb strings.Builder
	l.readChar() // opening quote
	for {
		switch l.ch {
		case 0:
			return Token{Type: TokenError, Literal: "unterminated string", Pos: pos}
		case '"':
			l.readChar()
			return Token{Type: TokenString, Literal: sb.String(), Pos: pos}
		case '\\':
			l.readChar()
			switch l.ch {
			case 'n':
				sb.WriteRune('\n')
			case 't':
				sb.WriteRune('\t')
			case 0:
				return Token{Type: TokenError, Literal: "unterminated string", Pos: pos}
			default:
				sb.WriteRune(l.ch)
			}
			l.readChar()
		default:
			sb.WriteRune(l.ch)
			l.readChar()
		}
	}
}

// readRawString reads a single-quoted string; no escapes are interpreted.
func (l *Lexer) readRawString(pos Position) Token {
	l.readChar() // opening quote
	start := l.pos
	for l.ch != '\'' {
		if l.ch == 0 {
			return Token{Type: TokenError, Literal: "unterminated string", Pos: pos}
		}
		l.readChar()
	}
	lit := l.input[start:l.pos]
	l.readChar()
	return Token{Type: TokenString, Literal: lit, Pos: pos}
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}
