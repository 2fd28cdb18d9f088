package compiler

import "fmt"

// ---------------------------------------------------------------------------
// Token types for the oosh lexer
// ---------------------------------------------------------------------------

// TokenType represents the type of a token.
type TokenType int

const (
	// Special tokens
	TokenEOF TokenType = iota
	TokenError
	TokenNewline

	// Literals
	TokenInteger    // 42
	TokenString     // "hello\n", 'raw'
	TokenIdentifier // foo, Counter
	TokenAttribute  // @count

	// Delimiters
	TokenLParen    // (
	TokenRParen    // )
	TokenLBrace    // {
	TokenRBrace    // }
	TokenComma     // ,
	TokenSemicolon // ;
	TokenDot       // .

	// Operators
	TokenAssign    // =
	TokenEq        // ==
	TokenNotEq     // !=
	TokenLess      // <
	TokenGreater   // >
	TokenLessEq    // <=
	TokenGreaterEq // >=
	TokenPlus      // +
	TokenMinus     // -
	TokenStar      // *
	TokenSlash     // /
	TokenPercent   // %
	TokenConcat    // ..

	// Keywords
	TokenClass
	TokenTrait
	TokenDecorator
	TokenExtends
	TokenUses
	TokenDecorates
	TokenPublic
	TokenPrivate
	TokenDef
	TokenLet
	TokenEcho
	TokenReturn
	TokenIf
	TokenElse
	TokenWhile
	TokenThrow
	TokenTry
	TokenCatch
	TokenImport
	TokenAdd
	TokenSh
	TokenNew
	TokenSelf
	TokenParent
	TokenAnd
	TokenOr
	TokenNot
)

var tokenNames = map[TokenType]string{
	TokenEOF:        "EOF",
	TokenError:      "ERROR",
	TokenNewline:    "newline",
	TokenInteger:    "INTEGER",
	TokenString:     "STRING",
	TokenIdentifier: "IDENTIFIER",
	TokenAttribute:  "ATTRIBUTE",
	TokenLParen:     "(",
	TokenRParen:     ")",
	TokenLBrace:     "{",
	TokenRBrace:     "}",
	TokenComma:      ",",
	TokenSemicolon:  ";",
	TokenDot:        ".",
	TokenAssign:     "=",
	TokenEq:         "==",
	TokenNotEq:      "!=",
	TokenLess:       "<",
	TokenGreater:    ">",
	TokenLessEq:     "<=",
	TokenGreaterEq:  ">=",
	TokenPlus:       "+",
	TokenMinus:      "-",
	TokenStar:       "*",
	TokenSlash:      "/",
	TokenPercent:    "%",
	TokenConcat:     "..",
	TokenClass:      "class",
	TokenTrait:      "trait",
	TokenDecorator:  "decorator",
	TokenExtends:    "extends",
	TokenUses:       "uses",
	TokenDecorates:  "decorates",
	TokenPublic:     "public",
	TokenPrivate:    "private",
	TokenDef:        "def",
	TokenLet:        "let",
	TokenEcho:       "echo",
	TokenReturn:     "return",
	TokenIf:         "if",
	TokenElse:       "else",
	TokenWhile:      "while",
	TokenThrow:      "throw",
	TokenTry:        "try",
	TokenCatch:      "catch",
	TokenImport:     "import",
	TokenAdd:        "add",
	TokenSh:         "sh",
	TokenNew:        "new",
	TokenSelf:       "self",
	TokenParent:     "parent",
	TokenAnd:        "and",
	TokenOr:         "or",
	TokenNot:        "not",
}

func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Token(%d)", t)
}

// Token represents a lexical token.
type Token struct {
	Type    TokenType
	Literal string   // the raw text (decoded for strings)
	Pos     Position // start position
}

func (t Token) String() string {
	switch t.Type {
	case TokenEOF:
		return "EOF"
	case TokenNewline:
		return "newline"
	case TokenError:
		return fmt.Sprintf("ERROR(%s)", t.Literal)
	}
	if len(t.Literal) > 20 {
		return fmt.Sprintf("%s(%q...)", t.Type, t.Literal[:20])
	}
	return fmt.Sprintf("%s(%q)", t.Type, t.Literal)
}

// Reserved words mapped to their token types.
var reservedWords = map[string]TokenType{
	"class":     TokenClass,
	"trait":     TokenTrait,
	"decorator": TokenDecorator,
	"extends":   TokenExtends,
	"uses":      TokenUses,
	"decorates": TokenDecorates,
	"public":    TokenPublic,
	"private":   TokenPrivate,
	"def":       TokenDef,
	"let":       TokenLet,
	"echo":      TokenEcho,
	"return":    TokenReturn,
	"if":        TokenIf,
	"else":      TokenElse,
	"while":     TokenWhile,
	"throw":     TokenThrow,
	"try":       TokenTry,
	"catch":     TokenCatch,
	"import":    TokenImport,
	"add":       TokenAdd,
	"sh":        TokenSh,
	"new":       TokenNew,
	"self":      TokenSelf,
	"parent":    TokenParent,
	"and":       TokenAnd,
	"or":        TokenOr,
	"not":       TokenNot,
}

// IsKeyword reports whether a token type is a reserved word.
func (t TokenType) IsKeyword() bool {
	return t >= TokenClass && t <= TokenNot
}
