package compiler

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// lexAll drains the lexer into a slice, including the trailing EOF token.
func lexAll(t *testing.T, src string) ([]Token, *Reporter) {
	t.Helper()
	diags := NewReporter("test.ds", io.Discard)
	lex := NewLexer(src, diags)
	var toks []Token
	for {
		tok := lex.Next()
		toks = append(toks, tok)
		if tok.Type == EOF {
			return toks, diags
		}
		require.Less(t, len(toks), 10000, "lexer did not terminate")
	}
}

func lexTypes(t *testing.T, src string) []TokenType {
	t.Helper()
	toks, _ := lexAll(t, src)
	types := make([]TokenType, 0, len(toks)-1)
	for _, tok := range toks[:len(toks)-1] {
		types = append(types, tok.Type)
	}
	return types
}

func TestLexerTokens(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []TokenType
	}{
		{
			name:     "Empty",
			input:    "",
			expected: []TokenType{},
		},
		{
			name:  "Operators",
			input: "+ - * / % & | ^ ~ ! = == != < > <= >= << >> && ||",
			expected: []TokenType{
				PLUS, MINUS, STAR, SLASH, PERCENT, AMP, PIPE, CARET, TILDE,
				NOT, ASSIGN, EQ, NE, LT, GT, LE, GE, SHL, SHR, AND_AND, OR_OR,
			},
		},
		{
			name:  "CompoundAssign",
			input: "+= -= *= /= %= &= |= ^= <<= >>=",
			expected: []TokenType{
				PLUS_ASSIGN, MINUS_ASSIGN, STAR_ASSIGN, SLASH_ASSIGN,
				PERCENT_ASSIGN, AMP_ASSIGN, PIPE_ASSIGN, CARET_ASSIGN,
				SHL_ASSIGN, SHR_ASSIGN,
			},
		},
		{
			name:  "MaximalMunch",
			input: "a+++b a<<=2 p->x",
			expected: []TokenType{
				IDENTIFIER, PLUS_PLUS, PLUS, IDENTIFIER,
				IDENTIFIER, SHL_ASSIGN, INT_LIT,
				IDENTIFIER, ARROW, IDENTIFIER,
			},
		},
		{
			name:  "Keywords",
			input: "void bool char short int long float double unsigned signed struct enum if else while for return break continue true false null const extern type",
			expected: []TokenType{
				VOID, BOOL, CHAR, SHORT, INT, LONG, FLOAT, DOUBLE, UNSIGNED,
				SIGNED, STRUCT, ENUM, IF, ELSE, WHILE, FOR, RETURN, BREAK,
				CONTINUE, TRUE, FALSE, NULL, CONST, EXTERN, TYPE,
			},
		},
		{
			name:     "KeywordPrefixIsIdent",
			input:    "integer iff structure",
			expected: []TokenType{IDENTIFIER, IDENTIFIER, IDENTIFIER},
		},
		{
			name:     "MessagePunctuation",
			input:    "[obj doIt:x]",
			expected: []TokenType{LBRACKET, IDENTIFIER, IDENTIFIER, COLON, IDENTIFIER, RBRACKET},
		},
		{
			name:     "Comments",
			input:    "a // line comment\n/* block\ncomment */ b",
			expected: []TokenType{IDENTIFIER, IDENTIFIER},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, lexTypes(t, tt.input))
		})
	}
}

func TestLexerLiterals(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantType  TokenType
		wantValue string
	}{
		{"DecimalInt", "42", INT_LIT, "42"},
		{"HexInt", "0xFF", INT_LIT, "0xFF"},
		{"PlainFloat", "3.14", FLOAT_LIT, "3.14"},
		{"ExponentFloat", "1e10", FLOAT_LIT, "1e10"},
		{"NegExponent", "2.5e-3", FLOAT_LIT, "2.5e-3"},
		{"SuffixFloat", "1.5f", FLOAT_LIT, "1.5"},
		{"IntWithSuffix", "2f", FLOAT_LIT, "2"},
		{"String", `"hi\n"`, STRING_LIT, "hi\n"},
		{"StringEscapes", `"\t\\\"x\0"`, STRING_LIT, "\t\\\"x\x00"},
		{"Char", "'a'", CHAR_LIT, "a"},
		{"CharEscape", `'\n'`, CHAR_LIT, "\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			toks, diags := lexAll(t, tt.input)
			require.False(t, diags.HasErrors())
			require.Len(t, toks, 2) // literal + EOF
			assert.Equal(t, tt.wantType, toks[0].Type)
			assert.Equal(t, tt.wantValue, toks[0].Value)
		})
	}
}

func TestLexerPositions(t *testing.T) {
	toks, _ := lexAll(t, "int x;\n  x = 1;")
	// int(1:1) x(1:5) ;(1:6) x(2:3) =(2:5) 1(2:7) ;(2:8)
	wantLines := []int{1, 1, 1, 2, 2, 2, 2}
	wantCols := []int{1, 5, 6, 3, 5, 7, 8}
	require.Len(t, toks, 8)
	for i := range wantLines {
		assert.Equal(t, wantLines[i], toks[i].Line, "token %d line", i)
		assert.Equal(t, wantCols[i], toks[i].Col, "token %d col", i)
	}
}

func TestLexerPeekIsIdempotent(t *testing.T) {
	diags := NewReporter("test.ds", io.Discard)
	lex := NewLexer("a b", diags)
	p1 := lex.Peek()
	p2 := lex.Peek()
	assert.Equal(t, p1, p2)
	assert.Equal(t, p1, lex.Next())
	assert.Equal(t, "b", lex.Next().Value)
	assert.Equal(t, EOF, lex.Next().Type)
	assert.Equal(t, EOF, lex.Next().Type, "EOF repeats forever")
}

func TestLexerErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"UnterminatedString", `"abc`},
		{"StringHitsNewline", "\"abc\nd\""},
		{"UnterminatedChar", "'a"},
		{"EmptyChar", "''"},
		{"UnknownEscape", `"\q"`},
		{"UnexpectedCharacter", "a @ b"},
		{"UnterminatedBlockComment", "a /* never closed"},
		{"HexNoDigits", "0x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, diags := lexAll(t, tt.input)
			assert.True(t, diags.HasErrors())
		})
	}
}

func TestLexerRecoversAfterError(t *testing.T) {
	// the bad character is reported and skipped, the rest still lexes
	toks, diags := lexAll(t, "int @ x;")
	assert.Equal(t, 1, diags.ErrorCount())
	require.Len(t, toks, 4)
	assert.Equal(t, INT, toks[0].Type)
	assert.Equal(t, IDENTIFIER, toks[1].Type)
	assert.Equal(t, SEMICOLON, toks[2].Type)
}
