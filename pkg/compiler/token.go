package compiler

import "fmt"

// TokenType identifies the category of a lexed token.
type TokenType int

const (
	EOF TokenType = iota // sentinel: end of input

	// Literals
	IDENTIFIER // variable / function / selector name
	INT_LIT    // integer literal, decimal or 0x hex
	FLOAT_LIT  // floating literal (has '.', exponent, or f/F suffix)
	STRING_LIT // string literal "..."
	CHAR_LIT   // character literal 'c'

	// Keywords
	VOID     // "void"
	BOOL     // "bool"
	CHAR     // "char"
	SHORT    // "short"
	INT      // "int"
	LONG     // "long"
	FLOAT    // "float"
	DOUBLE   // "double"
	UNSIGNED // "unsigned"
	SIGNED   // "signed"
	STRUCT   // "struct"
	ENUM     // "enum"
	IF       // "if"
	ELSE     // "else"
	WHILE    // "while"
	FOR      // "for"
	RETURN   // "return"
	BREAK    // "break"
	CONTINUE // "continue"
	TRUE     // "true"
	FALSE    // "false"
	NULL     // "null"
	CONST    // "const"
	EXTERN   // "extern"
	TYPE     // "type" (method declaration)

	// Paired delimiters
	LBRACE   // {
	RBRACE   // }
	LPAREN   // (
	RPAREN   // )
	LBRACKET // [
	RBRACKET // ]

	// Punctuation
	DOT       // .
	ARROW     // ->
	SEMICOLON // ;
	COMMA     // ,
	COLON     // :
	QUESTION  // ?

	// Arithmetic / bitwise operators
	PLUS    // +
	MINUS   // -
	STAR    // * (multiply, or unary dereference)
	SLASH   // /
	PERCENT // %
	AMP     // & (binary bitwise AND, or unary address-of)
	PIPE    // |
	CARET   // ^
	TILDE   // ~
	SHL     // <<
	SHR     // >>
	AND_AND // &&
	OR_OR   // ||
	NOT     // !

	PLUS_PLUS   // ++
	MINUS_MINUS // --

	// Assignment  (order matters: ASSIGN before EQ)
	ASSIGN         // =
	PLUS_ASSIGN    // +=
	MINUS_ASSIGN   // -=
	STAR_ASSIGN    // *=
	SLASH_ASSIGN   // /=
	PERCENT_ASSIGN // %=
	AMP_ASSIGN     // &=
	PIPE_ASSIGN    // |=
	CARET_ASSIGN   // ^=
	SHL_ASSIGN     // <<=
	SHR_ASSIGN     // >>=

	// Comparison
	EQ // ==
	NE // !=
	LT // <
	GT // >
	LE // <=
	GE // >=
)

// tokenNames is indexed by TokenType.
var tokenNames = [...]string{
	EOF:            "EOF",
	IDENTIFIER:     "IDENTIFIER",
	INT_LIT:        "INT_LIT",
	FLOAT_LIT:      "FLOAT_LIT",
	STRING_LIT:     "STRING_LIT",
	CHAR_LIT:       "CHAR_LIT",
	VOID:           "VOID",
	BOOL:           "BOOL",
	CHAR:           "CHAR",
	SHORT:          "SHORT",
	INT:            "INT",
	LONG:           "LONG",
	FLOAT:          "FLOAT",
	DOUBLE:         "DOUBLE",
	UNSIGNED:       "UNSIGNED",
	SIGNED:         "SIGNED",
	STRUCT:         "STRUCT",
	ENUM:           "ENUM",
	IF:             "IF",
	ELSE:           "ELSE",
	WHILE:          "WHILE",
	FOR:            "FOR",
	RETURN:         "RETURN",
	BREAK:          "BREAK",
	CONTINUE:       "CONTINUE",
	TRUE:           "TRUE",
	FALSE:          "FALSE",
	NULL:           "NULL",
	CONST:          "CONST",
	EXTERN:         "EXTERN",
	TYPE:           "TYPE",
	LBRACE:         "LBRACE",
	RBRACE:         "RBRACE",
	LPAREN:         "LPAREN",
	RPAREN:         "RPAREN",
	LBRACKET:       "LBRACKET",
	RBRACKET:       "RBRACKET",
	DOT:            "DOT",
	ARROW:          "ARROW",
	SEMICOLON:      "SEMICOLON",
	COMMA:          "COMMA",
	COLON:          "COLON",
	QUESTION:       "QUESTION",
	PLUS:           "PLUS",
	MINUS:          "MINUS",
	STAR:           "STAR",
	SLASH:          "SLASH",
	PERCENT:        "PERCENT",
	AMP:            "AMP",
	PIPE:           "PIPE",
	CARET:          "CARET",
	TILDE:          "TILDE",
	SHL:            "SHL",
	SHR:            "SHR",
	AND_AND:        "AND_AND",
	OR_OR:          "OR_OR",
	NOT:            "NOT",
	PLUS_PLUS:      "PLUS_PLUS",
	MINUS_MINUS:    "MINUS_MINUS",
	ASSIGN:         "ASSIGN",
	PLUS_ASSIGN:    "PLUS_ASSIGN",
	MINUS_ASSIGN:   "MINUS_ASSIGN",
	STAR_ASSIGN:    "STAR_ASSIGN",
	SLASH_ASSIGN:   "SLASH_ASSIGN",
	PERCENT_ASSIGN: "PERCENT_ASSIGN",
	AMP_ASSIGN:     "AMP_ASSIGN",
	PIPE_ASSIGN:    "PIPE_ASSIGN",
	CARET_ASSIGN:   "CARET_ASSIGN",
	SHL_ASSIGN:     "SHL_ASSIGN",
	SHR_ASSIGN:     "SHR_ASSIGN",
	EQ:             "EQ",
	NE:             "NE",
	LT:             "LT",
	GT:             "GT",
	LE:             "LE",
	GE:             "GE",
}

func (tt TokenType) String() string {
	if int(tt) >= 0 && int(tt) < len(tokenNames) {
		return tokenNames[tt]
	}
	return fmt.Sprintf("TokenType(%d)", int(tt))
}

// Token is a single lexical unit produced by the Lexer. Lexeme is the exact
// source text that was matched; Value is the interpreted form (escape
// sequences decoded, literal suffixes stripped). Tokens are never mutated
// after creation.
type Token struct {
	Type   TokenType
	Lexeme string
	Value  string
	Line   int // 1-based source line
	Col    int // 1-based source column
}

func (t Token) String() string {
	return fmt.Sprintf("%-10s %-14q  line %d col %d", t.Type, t.Lexeme, t.Line, t.Col)
}

// compoundOp maps a compound-assignment token to its underlying binary
// operator. ok is false for plain ASSIGN and non-assignment tokens.
func compoundOp(tt TokenType) (TokenType, bool) {
	switch tt {
	case PLUS_ASSIGN:
		return PLUS, true
	case MINUS_ASSIGN:
		return MINUS, true
	case STAR_ASSIGN:
		return STAR, true
	case SLASH_ASSIGN:
		return SLASH, true
	case PERCENT_ASSIGN:
		return PERCENT, true
	case AMP_ASSIGN:
		return AMP, true
	case PIPE_ASSIGN:
		return PIPE, true
	case CARET_ASSIGN:
		return CARET, true
	case SHL_ASSIGN:
		return SHL, true
	case SHR_ASSIGN:
		return SHR, true
	}
	return tt, false
}

// isAssignOp reports whether tt is = or any compound assignment.
func isAssignOp(tt TokenType) bool {
	if tt == ASSIGN {
		return true
	}
	_, ok := compoundOp(tt)
	return ok
}
