package compiler

import (
	"fmt"
	"unicode"
)

// keywords maps source text to its keyword TokenType.
var keywords = map[string]TokenType{
	"void":     VOID,
	"bool":     BOOL,
	"char":     CHAR,
	"short":    SHORT,
	"int":      INT,
	"long":     LONG,
	"float":    FLOAT,
	"double":   DOUBLE,
	"unsigned": UNSIGNED,
	"signed":   SIGNED,
	"struct":   STRUCT,
	"enum":     ENUM,
	"if":       IF,
	"else":     ELSE,
	"while":    WHILE,
	"for":      FOR,
	"return":   RETURN,
	"break":    BREAK,
	"continue": CONTINUE,
	"true":     TRUE,
	"false":    FALSE,
	"null":     NULL,
	"const":    CONST,
	"extern":   EXTERN,
	"type":     TYPE,
}

// Lexer holds all mutable state for a single scanning pass over src.
// Lexical errors go to the Reporter and scanning continues; the lexer never
// aborts the compilation.
type Lexer struct {
	src    []rune
	pos    int // index of the next rune to consume
	line   int // current 1-based source line
	col    int // current 1-based source column
	diags  *Reporter
	peeked *Token // single-token lookahead buffer
}

// NewLexer returns a Lexer over src reporting through diags.
func NewLexer(src string, diags *Reporter) *Lexer {
	return &Lexer{src: []rune(src), line: 1, col: 1, diags: diags}
}

// Next consumes and returns the next token. After the end of input it
// returns the EOF token forever.
func (l *Lexer) Next() Token {
	if l.peeked != nil {
		tok := *l.peeked
		l.peeked = nil
		return tok
	}
	return l.scan()
}

// Peek returns the next token without consuming it. Repeated peeks return
// the same token.
func (l *Lexer) Peek() Token {
	if l.peeked == nil {
		tok := l.scan()
		l.peeked = &tok
	}
	return *l.peeked
}

// peek returns the rune at the current position without advancing.
func (l *Lexer) peek() rune {
	if l.pos >= len(l.src) {
		return 0
	}
	return l.src[l.pos]
}

// peek2 returns the rune one position ahead of the current position.
func (l *Lexer) peek2() rune {
	if l.pos+1 >= len(l.src) {
		return 0
	}
	return l.src[l.pos+1]
}

// advance consumes one rune and returns it.
func (l *Lexer) advance() rune {
	if l.pos >= len(l.src) {
		return 0
	}
	r := l.src[l.pos]
	l.pos++
	if r == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	return r
}

func (l *Lexer) skipWhitespace() {
	for l.pos < len(l.src) && unicode.IsSpace(l.peek()) {
		l.advance()
	}
}

// skipLineComment discards everything from the current position to
// end-of-line. The opening "//" must already have been consumed.
func (l *Lexer) skipLineComment() {
	for l.pos < len(l.src) && l.peek() != '\n' {
		l.advance()
	}
}

// skipBlockComment discards everything up to and including the closing
// "*/". The opening "/*" must already have been consumed.
func (l *Lexer) skipBlockComment(line, col int) {
	for l.pos < len(l.src) {
		if l.peek() == '*' && l.peek2() == '/' {
			l.advance() // *
			l.advance() // /
			return
		}
		l.advance()
	}
	l.diags.Errorf(line, col, "unterminated block comment")
}

// scanIdent collects a full identifier or keyword token.
// The first character (letter or '_') must still be at l.peek().
func (l *Lexer) scanIdent() Token {
	line, col := l.line, l.col
	start := l.pos
	for l.pos < len(l.src) {
		r := l.peek()
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' {
			break
		}
		l.advance()
	}
	lexeme := string(l.src[start:l.pos])
	tt := IDENTIFIER
	if kw, ok := keywords[lexeme]; ok {
		tt = kw
	}
	return Token{Type: tt, Lexeme: lexeme, Value: lexeme, Line: line, Col: col}
}

func isHexDigit(r rune) bool {
	return unicode.IsDigit(r) || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
}

// scanNumber collects an integer or floating literal. A literal starts as an
// integer and is upgraded to floating by any of: a '.', an e/E exponent, or
// a trailing f/F suffix. Hex literals ("0x") are always integers.
// The first digit must still be at l.peek().
func (l *Lexer) scanNumber() Token {
	line, col := l.line, l.col
	start := l.pos

	if l.peek() == '0' && (l.peek2() == 'x' || l.peek2() == 'X') {
		l.advance() // 0
		l.advance() // x
		digits := 0
		for l.pos < len(l.src) && isHexDigit(l.peek()) {
			l.advance()
			digits++
		}
		if digits == 0 {
			l.diags.Errorf(line, col, "hex literal has no digits")
		}
		lexeme := string(l.src[start:l.pos])
		return Token{Type: INT_LIT, Lexeme: lexeme, Value: lexeme, Line: line, Col: col}
	}

	isFloat := false
	for l.pos < len(l.src) && unicode.IsDigit(l.peek()) {
		l.advance()
	}
	if l.peek() == '.' && unicode.IsDigit(l.peek2()) {
		isFloat = true
		l.advance() // .
		for l.pos < len(l.src) && unicode.IsDigit(l.peek()) {
			l.advance()
		}
	}
	if l.peek() == 'e' || l.peek() == 'E' {
		next := l.peek2()
		if unicode.IsDigit(next) || next == '+' || next == '-' {
			isFloat = true
			l.advance() // e
			if l.peek() == '+' || l.peek() == '-' {
				l.advance()
			}
			digits := 0
			for l.pos < len(l.src) && unicode.IsDigit(l.peek()) {
				l.advance()
				digits++
			}
			if digits == 0 {
				l.diags.Errorf(line, col, "exponent has no digits")
			}
		}
	}

	numEnd := l.pos
	lexeme := string(l.src[start:numEnd])
	if l.peek() == 'f' || l.peek() == 'F' {
		l.advance() // suffix is not part of the value
		return Token{Type: FLOAT_LIT, Lexeme: lexeme + "f", Value: lexeme, Line: line, Col: col}
	}
	tt := INT_LIT
	if isFloat {
		tt = FLOAT_LIT
	}
	return Token{Type: tt, Lexeme: lexeme, Value: lexeme, Line: line, Col: col}
}

// unescape decodes one escape sequence. The backslash must already have
// been consumed; the selector character is at l.peek().
func (l *Lexer) unescape(line, col int) rune {
	r := l.advance()
	switch r {
	case 'n':
		return '\n'
	case 'r':
		return '\r'
	case 't':
		return '\t'
	case '0':
		return 0
	case '\\':
		return '\\'
	case '"':
		return '"'
	case '\'':
		return '\''
	}
	l.diags.Errorf(line, col, "unknown escape sequence \\%c", r)
	return r
}

// scanString collects a string literal "...". On an unterminated literal it
// reports once and returns what was collected so far.
func (l *Lexer) scanString() Token {
	line, col := l.line, l.col
	l.advance() // opening "
	var val []rune

	for {
		if l.pos >= len(l.src) || l.peek() == '\n' {
			l.diags.Errorf(line, col, "unterminated string literal")
			break
		}
		r := l.peek()
		if r == '"' {
			l.advance()
			break
		}
		if r == '\\' {
			l.advance()
			val = append(val, l.unescape(line, col))
			continue
		}
		val = append(val, r)
		l.advance()
	}
	return Token{Type: STRING_LIT, Lexeme: `"` + string(val) + `"`, Value: string(val), Line: line, Col: col}
}

// scanChar collects a character literal 'c' with exactly one content
// character.
func (l *Lexer) scanChar() Token {
	line, col := l.line, l.col
	l.advance() // opening '

	var val rune
	switch l.peek() {
	case '\'':
		l.diags.Errorf(line, col, "empty character literal")
	case '\\':
		l.advance()
		val = l.unescape(line, col)
	case 0, '\n':
		l.diags.Errorf(line, col, "unterminated character literal")
		return Token{Type: CHAR_LIT, Lexeme: "'", Value: "", Line: line, Col: col}
	default:
		val = l.advance()
	}

	if l.peek() != '\'' {
		l.diags.Errorf(line, col, "unterminated character literal")
	} else {
		l.advance() // closing '
	}
	return Token{Type: CHAR_LIT, Lexeme: fmt.Sprintf("'%c'", val), Value: string(val), Line: line, Col: col}
}

// operators lists multi-character operators longest first so maximal munch
// falls out of a simple prefix match.
var operators = []struct {
	text string
	tt   TokenType
}{
	{"<<=", SHL_ASSIGN},
	{">>=", SHR_ASSIGN},
	{"++", PLUS_PLUS},
	{"--", MINUS_MINUS},
	{"->", ARROW},
	{"<<", SHL},
	{">>", SHR},
	{"<=", LE},
	{">=", GE},
	{"==", EQ},
	{"!=", NE},
	{"&&", AND_AND},
	{"||", OR_OR},
	{"+=", PLUS_ASSIGN},
	{"-=", MINUS_ASSIGN},
	{"*=", STAR_ASSIGN},
	{"/=", SLASH_ASSIGN},
	{"%=", PERCENT_ASSIGN},
	{"&=", AMP_ASSIGN},
	{"|=", PIPE_ASSIGN},
	{"^=", CARET_ASSIGN},
	{"{", LBRACE},
	{"}", RBRACE},
	{"(", LPAREN},
	{")", RPAREN},
	{"[", LBRACKET},
	{"]", RBRACKET},
	{".", DOT},
	{";", SEMICOLON},
	{",", COMMA},
	{":", COLON},
	{"?", QUESTION},
	{"+", PLUS},
	{"-", MINUS},
	{"*", STAR},
	{"/", SLASH},
	{"%", PERCENT},
	{"&", AMP},
	{"|", PIPE},
	{"^", CARET},
	{"~", TILDE},
	{"!", NOT},
	{"<", LT},
	{">", GT},
	{"=", ASSIGN},
}

func (l *Lexer) matchOperator() (Token, bool) {
	line, col := l.line, l.col
	for _, op := range operators {
		if l.hasPrefix(op.text) {
			for range op.text {
				l.advance()
			}
			return Token{Type: op.tt, Lexeme: op.text, Value: op.text, Line: line, Col: col}, true
		}
	}
	return Token{}, false
}

func (l *Lexer) hasPrefix(s string) bool {
	i := l.pos
	for _, r := range s {
		if i >= len(l.src) || l.src[i] != r {
			return false
		}
		i++
	}
	return true
}

// scan skips whitespace/comments and produces the next token.
func (l *Lexer) scan() Token {
	// Skip whitespace and both comment styles in a loop so that a comment
	// followed immediately by more whitespace is handled.
	for {
		l.skipWhitespace()
		if l.pos >= len(l.src) {
			return Token{Type: EOF, Line: l.line, Col: l.col}
		}
		if l.peek() == '/' && l.peek2() == '/' {
			l.advance()
			l.advance()
			l.skipLineComment()
			continue
		}
		if l.peek() == '/' && l.peek2() == '*' {
			line, col := l.line, l.col
			l.advance()
			l.advance()
			l.skipBlockComment(line, col)
			continue
		}
		break
	}

	ch := l.peek()
	switch {
	case unicode.IsLetter(ch) || ch == '_':
		return l.scanIdent()
	case unicode.IsDigit(ch):
		return l.scanNumber()
	case ch == '"':
		return l.scanString()
	case ch == '\'':
		return l.scanChar()
	}

	if tok, ok := l.matchOperator(); ok {
		return tok
	}

	l.diags.Errorf(l.line, l.col, "unexpected character %q", ch)
	l.advance()
	return l.scan()
}
