package compiler

import (
	"errors"
	"strconv"
	"strings"
)

// errSync is the sentinel returned by parse productions after the diagnostic
// has already been reported; callers only use it to trigger synchronization.
var errSync = errors.New("syntax error")

// Parser pulls tokens from the Lexer one at a time (one token of lookahead,
// plus the lexer's own Peek for selected productions) and builds an AST.
//
// Grammar:
//
//	unit       = declaration* EOF
//	declaration = structDecl | enumDecl | externDecl | methodDecl | funcOrVar
//	structDecl = "struct" IDENT "{" (type IDENT ("[" INT "]")* ";")* "}" ";"
//	enumDecl   = "enum" IDENT "{" IDENT ("=" expression)? ("," ...)* "}" ";"
//	externDecl = "extern" type IDENT "(" params ")" ";"
//	methodDecl = "type" type type IDENT (":" "(" type ")" IDENT (IDENT ":" "(" type ")" IDENT)*)? block
//	funcOrVar  = type IDENT ("(" params ")" (block | ";") | declarator ";")
//	type       = ("unsigned"|"signed")? base "*"* ; base = void|bool|char|short|int|long|float|double|struct IDENT|enum IDENT
//	statement  = block | if | while | for | return | break | continue | varDecl | exprStmt
//	expression = assignment ; assignment = logicalOr (assignOp assignment)?
//	logicalOr .. postfix: the usual C ladder, each binary level left-associative
//	postfix    = primary ("(" args ")" | "[" expression "]" | "." IDENT | "->" IDENT | "++" | "--")*
//	primary    = literal | IDENT | "(" expression ")" | "[" expression IDENT (":" expr (IDENT ":" expr)*)? "]"
//
// On seeing "(" in unary position the parser commits to a cast when the
// lexer's peeked token starts a type, otherwise it parses a parenthesized
// subexpression; no token is ever consumed speculatively.
type Parser struct {
	lex   *Lexer
	diags *Reporter
	types *TypeTable
	tok   Token // current token

	sawConst bool // last parseBaseType consumed a leading const
}

// NewParser returns a Parser reading from lex. Struct and enum types are
// interned into types as their declarations are seen.
func NewParser(lex *Lexer, diags *Reporter, types *TypeTable) *Parser {
	p := &Parser{lex: lex, diags: diags, types: types}
	p.tok = lex.Next()
	return p
}

// errf reports a syntax error at tok and returns the synchronization
// sentinel.
func (p *Parser) errf(tok Token, format string, args ...any) error {
	p.diags.Errorf(tok.Line, tok.Col, format, args...)
	return errSync
}

// advance consumes and returns the current token.
func (p *Parser) advance() Token {
	tok := p.tok
	p.tok = p.lex.Next()
	return tok
}

// check reports whether the current token has the given type.
func (p *Parser) check(tt TokenType) bool { return p.tok.Type == tt }

// accept consumes the current token if it matches tt.
func (p *Parser) accept(tt TokenType) bool {
	if p.tok.Type == tt {
		p.advance()
		return true
	}
	return false
}

// peekNext returns the token after the current one without consuming
// anything.
func (p *Parser) peekNext() Token { return p.lex.Peek() }

// expect consumes the current token if it matches tt, otherwise reports and
// returns errSync.
func (p *Parser) expect(tt TokenType) (Token, error) {
	if p.tok.Type != tt {
		return p.tok, p.errf(p.tok, "expected %s, got %s (%q)", tt, p.tok.Type, p.tok.Lexeme)
	}
	return p.advance(), nil
}

// synchronize skips tokens until a plausible statement boundary: just past a
// semicolon, or at a token that can begin a statement or declaration. This
// bounds the diagnostics produced by a single mistake.
func (p *Parser) synchronize() {
	for p.tok.Type != EOF {
		if p.tok.Type == SEMICOLON {
			p.advance()
			return
		}
		switch p.tok.Type {
		case IF, WHILE, FOR, RETURN, BREAK, CONTINUE, LBRACE, RBRACE,
			STRUCT, ENUM, EXTERN, TYPE,
			VOID, BOOL, CHAR, SHORT, INT, LONG, FLOAT, DOUBLE, UNSIGNED, SIGNED, CONST:
			return
		}
		p.advance()
	}
}

// HasErrors reports whether any diagnostics of error severity were emitted.
func (p *Parser) HasErrors() bool { return p.diags.HasErrors() }

// Parse consumes the whole token stream and returns the compilation unit.
// Errors are reported through the Reporter; the returned unit contains every
// declaration that parsed cleanly.
func (p *Parser) Parse() *CompilationUnit {
	unit := &CompilationUnit{File: p.diags.File()}
	for p.tok.Type != EOF {
		start := p.tok
		d, err := p.parseDeclaration()
		if err != nil {
			p.synchronize()
			// synchronize stops at statement starters; when the failed
			// declaration never moved past one, drop it so the loop
			// cannot spin on the same token
			if p.tok == start {
				p.advance()
			}
			continue
		}
		if d != nil {
			unit.Decls = append(unit.Decls, d)
		}
	}
	return unit
}

//  Types

// isTypeStart reports whether tt can begin a type specifier.
func isTypeStart(tt TokenType) bool {
	switch tt {
	case VOID, BOOL, CHAR, SHORT, INT, LONG, FLOAT, DOUBLE,
		UNSIGNED, SIGNED, STRUCT, ENUM, CONST:
		return true
	}
	return false
}

// parseType parses a full type specifier including any trailing '*'s.
func (p *Parser) parseType() (*Type, error) {
	base, err := p.parseBaseType()
	if err != nil {
		return nil, err
	}
	return p.parsePointers(base), nil
}

// parseBaseType parses the type specifier without pointer declarators.
func (p *Parser) parseBaseType() (*Type, error) {
	// the qualifier attaches to the declaration, not the type; callers that
	// build VarDecls read sawConst right after their parseType call, before
	// any nested type (a cast in the initializer) overwrites it
	p.sawConst = p.accept(CONST)

	unsigned := false
	switch p.tok.Type {
	case UNSIGNED:
		p.advance()
		unsigned = true
	case SIGNED:
		p.advance()
	}

	var t *Type
	switch p.tok.Type {
	case VOID:
		p.advance()
		t = VoidType()
	case BOOL:
		p.advance()
		t = BoolType()
	case CHAR:
		p.advance()
		t = CharType()
	case SHORT:
		p.advance()
		t = ShortType()
	case INT:
		p.advance()
		t = IntType()
	case LONG:
		p.advance()
		t = LongType()
	case FLOAT:
		p.advance()
		t = FloatType()
	case DOUBLE:
		p.advance()
		t = DoubleType()
	case STRUCT:
		p.advance()
		name, err := p.expect(IDENTIFIER)
		if err != nil {
			return nil, err
		}
		t = p.types.Struct(name.Value)
	case ENUM:
		p.advance()
		name, err := p.expect(IDENTIFIER)
		if err != nil {
			return nil, err
		}
		t = p.types.Enum(name.Value, IntType())
	default:
		if unsigned {
			// "unsigned x" means "unsigned int x"
			return UnsignedOf(IntType()), nil
		}
		return nil, p.errf(p.tok, "expected type, got %s (%q)", p.tok.Type, p.tok.Lexeme)
	}

	if unsigned {
		if !t.IsInteger() || t.Kind == TypeBool || t.Kind == TypeEnum {
			p.diags.errorAt(p.tok, "'unsigned' is not valid with %s", t)
		} else {
			t = UnsignedOf(t)
		}
	}
	return t, nil
}

// parsePointers wraps t in one pointer level per '*'.
func (p *Parser) parsePointers(t *Type) *Type {
	for p.accept(STAR) {
		t = PointerTo(t)
	}
	return t
}

// parseArraySuffix folds trailing [N] declarators onto t. Sizes nest so
// that "int a[2][3]" is a 2-element array of 3-element int arrays.
func (p *Parser) parseArraySuffix(t *Type) (*Type, error) {
	var sizes []int
	for p.accept(LBRACKET) {
		szTok, err := p.expect(INT_LIT)
		if err != nil {
			return nil, err
		}
		n, convErr := strconv.ParseInt(szTok.Value, 0, 64)
		if convErr != nil || n < 0 {
			p.diags.errorAt(szTok, "invalid array size %q", szTok.Lexeme)
			n = 0
		}
		sizes = append(sizes, int(n))
		if _, err := p.expect(RBRACKET); err != nil {
			return nil, err
		}
	}
	for i := len(sizes) - 1; i >= 0; i-- {
		t = ArrayOf(t, sizes[i])
	}
	return t, nil
}

//  Declarations

func (p *Parser) parseDeclaration() (Decl, error) {
	switch p.tok.Type {
	case STRUCT:
		// "struct X {" declares; "struct X name" is a variable or function.
		p.advance()
		name, err := p.expect(IDENTIFIER)
		if err != nil {
			return nil, err
		}
		if p.check(LBRACE) {
			return p.parseStructDecl(name)
		}
		t := p.parsePointers(p.types.Struct(name.Value))
		return p.parseFuncOrVar(t, false)
	case ENUM:
		p.advance()
		name, err := p.expect(IDENTIFIER)
		if err != nil {
			return nil, err
		}
		if p.check(LBRACE) {
			return p.parseEnumDecl(name)
		}
		t := p.parsePointers(p.types.Enum(name.Value, IntType()))
		return p.parseFuncOrVar(t, false)
	case EXTERN:
		return p.parseExternDecl()
	case TYPE:
		return p.parseMethodDecl()
	default:
		if !isTypeStart(p.tok.Type) {
			return nil, p.errf(p.tok, "expected declaration, got %s (%q)", p.tok.Type, p.tok.Lexeme)
		}
		t, err := p.parseType()
		if err != nil {
			return nil, err
		}
		return p.parseFuncOrVar(t, p.sawConst)
	}
}

// parseStructDecl parses the braced body of "struct Name { ... };". The
// type was interned before this call, so pointer-to-self members resolve.
func (p *Parser) parseStructDecl(name Token) (Decl, error) {
	t := p.types.Struct(name.Value)
	redefined := t.IsComplete()
	if redefined {
		p.diags.errorAt(name, "redefinition of struct %s", name.Value)
	}

	if _, err := p.expect(LBRACE); err != nil {
		return nil, err
	}
	var fields []Field
	for !p.check(RBRACE) && !p.check(EOF) {
		ft, err := p.parseType()
		if err != nil {
			return nil, err
		}
		fname, err := p.expect(IDENTIFIER)
		if err != nil {
			return nil, err
		}
		ft, err = p.parseArraySuffix(ft)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(SEMICOLON); err != nil {
			return nil, err
		}
		if ft.Kind == TypeStruct && !ft.IsComplete() {
			p.diags.errorAt(fname, "field %q has incomplete type %s", fname.Value, ft)
			continue
		}
		fields = append(fields, Field{Name: fname.Value, Type: ft})
	}
	if _, err := p.expect(RBRACE); err != nil {
		return nil, err
	}
	if _, err := p.expect(SEMICOLON); err != nil {
		return nil, err
	}
	if !redefined {
		t.Complete(fields)
	}
	return &StructDecl{Tok: name, Name: name.Value, Type: t}, nil
}

// parseEnumDecl parses the braced body of "enum Name { ... };". Members
// without an initializer take the previous value plus one, starting at zero.
// Only literal integer initializers are accepted.
func (p *Parser) parseEnumDecl(name Token) (Decl, error) {
	t := p.types.Enum(name.Value, IntType())
	if len(t.Members) > 0 {
		p.diags.errorAt(name, "redefinition of enum %s", name.Value)
	}

	if _, err := p.expect(LBRACE); err != nil {
		return nil, err
	}
	var members []EnumMember
	var next int64
	for !p.check(RBRACE) && !p.check(EOF) {
		mname, err := p.expect(IDENTIFIER)
		if err != nil {
			return nil, err
		}
		if p.accept(ASSIGN) {
			init, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			if lit, ok := init.(*IntLit); ok {
				next = lit.Value
			} else {
				p.diags.errorAt(mname, "enumerator %q initializer must be an integer literal", mname.Value)
			}
		}
		members = append(members, EnumMember{Name: mname.Value, Value: next})
		next++
		if !p.accept(COMMA) {
			break
		}
	}
	if _, err := p.expect(RBRACE); err != nil {
		return nil, err
	}
	if _, err := p.expect(SEMICOLON); err != nil {
		return nil, err
	}
	t.Members = members
	return &EnumDecl{Tok: name, Name: name.Value, Type: t}, nil
}

// parseExternDecl parses "extern" type name "(" params ")" ";".
func (p *Parser) parseExternDecl() (Decl, error) {
	kw := p.advance() // extern
	ret, err := p.parseType()
	if err != nil {
		return nil, err
	}
	name, err := p.expect(IDENTIFIER)
	if err != nil {
		return nil, err
	}
	if !p.check(LPAREN) {
		return nil, p.errf(p.tok, "extern supports function declarations only")
	}
	params, err := p.parseParams()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(SEMICOLON); err != nil {
		return nil, err
	}
	return &FuncDecl{Tok: kw, Name: name.Value, Ret: ret, Params: params, IsExtern: true}, nil
}

// parseMethodDecl parses a method declaration:
//
//	type struct Point* void moveBy:(int) dx andY:(int) dy { ... }
//
// The selector parts are joined with underscores to name the lowered
// function, and the receiver becomes the implicit first parameter "self".
func (p *Parser) parseMethodDecl() (Decl, error) {
	kw := p.advance() // type
	recv, err := p.parseType()
	if err != nil {
		return nil, err
	}
	ret, err := p.parseType()
	if err != nil {
		return nil, err
	}
	sel, err := p.expect(IDENTIFIER)
	if err != nil {
		return nil, err
	}

	name := sel.Value
	params := []*VarDecl{{Tok: sel, Name: "self", Type: recv}}
	if p.check(COLON) {
		for {
			if _, err := p.expect(COLON); err != nil {
				return nil, err
			}
			if _, err := p.expect(LPAREN); err != nil {
				return nil, err
			}
			pt, err := p.parseType()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(RPAREN); err != nil {
				return nil, err
			}
			pname, err := p.expect(IDENTIFIER)
			if err != nil {
				return nil, err
			}
			params = append(params, &VarDecl{Tok: pname, Name: pname.Value, Type: pt})
			if !p.check(IDENTIFIER) || p.peekNext().Type != COLON {
				break
			}
			part := p.advance()
			name += "_" + part.Value
		}
	}

	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &FuncDecl{Tok: kw, Name: name, Ret: ret, Params: params, Body: body, Recv: recv}, nil
}

// parseFuncOrVar finishes a file-scope declaration whose type has been
// parsed; the name decides between function and variable. isConst only
// applies to the variable form.
func (p *Parser) parseFuncOrVar(t *Type, isConst bool) (Decl, error) {
	name, err := p.expect(IDENTIFIER)
	if err != nil {
		return nil, err
	}
	if p.check(LPAREN) {
		params, err := p.parseParams()
		if err != nil {
			return nil, err
		}
		if p.accept(SEMICOLON) {
			// forward declaration
			return &FuncDecl{Tok: name, Name: name.Value, Ret: t, Params: params, IsExtern: true}, nil
		}
		body, err := p.parseBlock()
		if err != nil {
			return nil, err
		}
		return &FuncDecl{Tok: name, Name: name.Value, Ret: t, Params: params, Body: body}, nil
	}
	return p.parseVarRest(t, name, true, isConst)
}

// parseParams parses "(" [void] | type name ("," type name)* ")".
func (p *Parser) parseParams() ([]*VarDecl, error) {
	if _, err := p.expect(LPAREN); err != nil {
		return nil, err
	}
	var params []*VarDecl
	if p.check(VOID) && p.peekNext().Type == RPAREN {
		p.advance()
	}
	for !p.check(RPAREN) && !p.check(EOF) {
		pt, err := p.parseType()
		if err != nil {
			return nil, err
		}
		pname, err := p.expect(IDENTIFIER)
		if err != nil {
			return nil, err
		}
		// array parameters decay to pointers at the boundary
		pt, err = p.parseArraySuffix(pt)
		if err != nil {
			return nil, err
		}
		if pt.Kind == TypeArray {
			pt = PointerTo(pt.Elem)
		}
		params = append(params, &VarDecl{Tok: pname, Name: pname.Value, Type: pt})
		if !p.accept(COMMA) {
			break
		}
	}
	if _, err := p.expect(RPAREN); err != nil {
		return nil, err
	}
	return params, nil
}

// parseVarRest finishes a variable declaration whose type and name have
// been parsed: array suffixes, optional initializer, semicolon.
func (p *Parser) parseVarRest(t *Type, name Token, global, isConst bool) (*VarDecl, error) {
	t, err := p.parseArraySuffix(t)
	if err != nil {
		return nil, err
	}
	var init Expr
	if p.accept(ASSIGN) {
		init, err = p.parseExpression()
		if err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(SEMICOLON); err != nil {
		return nil, err
	}
	if t.Kind == TypeVoid {
		p.diags.errorAt(name, "variable %q declared void", name.Value)
		t = IntType()
	}
	if t.Kind == TypeStruct && !t.IsComplete() {
		p.diags.errorAt(name, "variable %q has incomplete type %s", name.Value, t)
	}
	return &VarDecl{Tok: name, Name: name.Value, Type: t, Init: init, IsConst: isConst, Global: global}, nil
}

//  Statements

func (p *Parser) parseBlock() (*BlockStmt, error) {
	lbrace, err := p.expect(LBRACE)
	if err != nil {
		return nil, err
	}
	block := &BlockStmt{Tok: lbrace}
	for !p.check(RBRACE) && !p.check(EOF) {
		start := p.tok
		s, err := p.parseStatement()
		if err != nil {
			p.synchronize()
			if p.tok == start {
				p.advance()
			}
			continue
		}
		block.Stmts = append(block.Stmts, s)
	}
	if _, err := p.expect(RBRACE); err != nil {
		return nil, err
	}
	return block, nil
}

func (p *Parser) parseStatement() (Stmt, error) {
	switch p.tok.Type {
	case LBRACE:
		return p.parseBlock()
	case IF:
		return p.parseIf()
	case WHILE:
		return p.parseWhile()
	case FOR:
		return p.parseFor()
	case RETURN:
		kw := p.advance()
		var value Expr
		if !p.check(SEMICOLON) {
			var err error
			value, err = p.parseExpression()
			if err != nil {
				return nil, err
			}
		}
		if _, err := p.expect(SEMICOLON); err != nil {
			return nil, err
		}
		return &ReturnStmt{Tok: kw, Value: value}, nil
	case BREAK:
		kw := p.advance()
		if _, err := p.expect(SEMICOLON); err != nil {
			return nil, err
		}
		return &BreakStmt{Tok: kw}, nil
	case CONTINUE:
		kw := p.advance()
		if _, err := p.expect(SEMICOLON); err != nil {
			return nil, err
		}
		return &ContinueStmt{Tok: kw}, nil
	}

	if isTypeStart(p.tok.Type) {
		return p.parseVarDeclStmt()
	}

	expr, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(SEMICOLON); err != nil {
		return nil, err
	}
	return &ExprStmt{Expr: expr}, nil
}

func (p *Parser) parseVarDeclStmt() (Stmt, error) {
	t, err := p.parseType()
	if err != nil {
		return nil, err
	}
	isConst := p.sawConst
	name, err := p.expect(IDENTIFIER)
	if err != nil {
		return nil, err
	}
	d, err := p.parseVarRest(t, name, false, isConst)
	if err != nil {
		return nil, err
	}
	return &DeclStmt{Decl: d}, nil
}

func (p *Parser) parseIf() (Stmt, error) {
	kw := p.advance()
	if _, err := p.expect(LPAREN); err != nil {
		return nil, err
	}
	cond, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(RPAREN); err != nil {
		return nil, err
	}
	then, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	var els Stmt
	if p.accept(ELSE) {
		els, err = p.parseStatement()
		if err != nil {
			return nil, err
		}
	}
	return &IfStmt{Tok: kw, Cond: cond, Then: then, Else: els}, nil
}

func (p *Parser) parseWhile() (Stmt, error) {
	kw := p.advance()
	if _, err := p.expect(LPAREN); err != nil {
		return nil, err
	}
	cond, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(RPAREN); err != nil {
		return nil, err
	}
	body, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	return &WhileStmt{Tok: kw, Cond: cond, Body: body}, nil
}

func (p *Parser) parseFor() (Stmt, error) {
	kw := p.advance()
	if _, err := p.expect(LPAREN); err != nil {
		return nil, err
	}

	var init Stmt
	if !p.accept(SEMICOLON) {
		if isTypeStart(p.tok.Type) {
			var err error
			init, err = p.parseVarDeclStmt() // consumes the ';'
			if err != nil {
				return nil, err
			}
		} else {
			expr, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(SEMICOLON); err != nil {
				return nil, err
			}
			init = &ExprStmt{Expr: expr}
		}
	}

	var cond Expr
	if !p.check(SEMICOLON) {
		var err error
		cond, err = p.parseExpression()
		if err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(SEMICOLON); err != nil {
		return nil, err
	}

	var post Expr
	if !p.check(RPAREN) {
		var err error
		post, err = p.parseExpression()
		if err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(RPAREN); err != nil {
		return nil, err
	}

	body, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	return &ForStmt{Tok: kw, Init: init, Cond: cond, Post: post, Body: body}, nil
}

//  Expressions

// parseExpression is the entry point for expression parsing.
func (p *Parser) parseExpression() (Expr, error) {
	return p.parseAssignment()
}

// parseAssignment handles = and the compound assignment operators.
// Assignment is right-associative.
func (p *Parser) parseAssignment() (Expr, error) {
	left, err := p.parseLogicalOr()
	if err != nil {
		return nil, err
	}
	if !isAssignOp(p.tok.Type) {
		return left, nil
	}
	op := p.advance()
	value, err := p.parseAssignment()
	if err != nil {
		return nil, err
	}
	return &AssignExpr{Tok: op, Op: op.Type, Target: left, Value: value}, nil
}

// parseLogicalOr handles ||
func (p *Parser) parseLogicalOr() (Expr, error) {
	expr, err := p.parseLogicalAnd()
	if err != nil {
		return nil, err
	}
	for p.check(OR_OR) {
		op := p.advance()
		right, err := p.parseLogicalAnd()
		if err != nil {
			return nil, err
		}
		expr = &LogicalExpr{Tok: op, Op: op.Type, Left: expr, Right: right}
	}
	return expr, nil
}

// parseLogicalAnd handles &&
func (p *Parser) parseLogicalAnd() (Expr, error) {
	expr, err := p.parseBitwiseOr()
	if err != nil {
		return nil, err
	}
	for p.check(AND_AND) {
		op := p.advance()
		right, err := p.parseBitwiseOr()
		if err != nil {
			return nil, err
		}
		expr = &LogicalExpr{Tok: op, Op: op.Type, Left: expr, Right: right}
	}
	return expr, nil
}

// parseBitwiseOr handles |
func (p *Parser) parseBitwiseOr() (Expr, error) {
	expr, err := p.parseBitwiseXor()
	if err != nil {
		return nil, err
	}
	for p.check(PIPE) {
		op := p.advance()
		right, err := p.parseBitwiseXor()
		if err != nil {
			return nil, err
		}
		expr = &BinaryExpr{Tok: op, Op: op.Type, Left: expr, Right: right}
	}
	return expr, nil
}

// parseBitwiseXor handles ^
func (p *Parser) parseBitwiseXor() (Expr, error) {
	expr, err := p.parseBitwiseAnd()
	if err != nil {
		return nil, err
	}
	for p.check(CARET) {
		op := p.advance()
		right, err := p.parseBitwiseAnd()
		if err != nil {
			return nil, err
		}
		expr = &BinaryExpr{Tok: op, Op: op.Type, Left: expr, Right: right}
	}
	return expr, nil
}

// parseBitwiseAnd handles binary &.
// Unary & (address-of) is handled in parseUnary and is never seen here.
func (p *Parser) parseBitwiseAnd() (Expr, error) {
	expr, err := p.parseEquality()
	if err != nil {
		return nil, err
	}
	for p.check(AMP) {
		op := p.advance()
		right, err := p.parseEquality()
		if err != nil {
			return nil, err
		}
		expr = &BinaryExpr{Tok: op, Op: op.Type, Left: expr, Right: right}
	}
	return expr, nil
}

// parseEquality handles == and !=
func (p *Parser) parseEquality() (Expr, error) {
	expr, err := p.parseRelational()
	if err != nil {
		return nil, err
	}
	for p.check(EQ) || p.check(NE) {
		op := p.advance()
		right, err := p.parseRelational()
		if err != nil {
			return nil, err
		}
		expr = &BinaryExpr{Tok: op, Op: op.Type, Left: expr, Right: right}
	}
	return expr, nil
}

// parseRelational handles < > <= >=
func (p *Parser) parseRelational() (Expr, error) {
	expr, err := p.parseShift()
	if err != nil {
		return nil, err
	}
	for p.check(LT) || p.check(GT) || p.check(LE) || p.check(GE) {
		op := p.advance()
		right, err := p.parseShift()
		if err != nil {
			return nil, err
		}
		expr = &BinaryExpr{Tok: op, Op: op.Type, Left: expr, Right: right}
	}
	return expr, nil
}

// parseShift handles << and >>
func (p *Parser) parseShift() (Expr, error) {
	expr, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	for p.check(SHL) || p.check(SHR) {
		op := p.advance()
		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		expr = &BinaryExpr{Tok: op, Op: op.Type, Left: expr, Right: right}
	}
	return expr, nil
}

// parseAdditive handles + and -
func (p *Parser) parseAdditive() (Expr, error) {
	expr, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for p.check(PLUS) || p.check(MINUS) {
		op := p.advance()
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		expr = &BinaryExpr{Tok: op, Op: op.Type, Left: expr, Right: right}
	}
	return expr, nil
}

// parseMultiplicative handles * / %
func (p *Parser) parseMultiplicative() (Expr, error) {
	expr, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.check(STAR) || p.check(SLASH) || p.check(PERCENT) {
		op := p.advance()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		expr = &BinaryExpr{Tok: op, Op: op.Type, Left: expr, Right: right}
	}
	return expr, nil
}

// parseUnary handles prefix operators and casts.
func (p *Parser) parseUnary() (Expr, error) {
	switch p.tok.Type {
	case MINUS, PLUS, NOT, TILDE, STAR, AMP:
		op := p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &UnaryExpr{Tok: op, Op: op.Type, Operand: operand}, nil
	case PLUS_PLUS, MINUS_MINUS:
		op := p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &IncDecExpr{Tok: op, Op: op.Type, Operand: operand}, nil
	case LPAREN:
		// A '(' followed by a type starter is a cast; otherwise it falls
		// through to parsePostfix's parenthesized-expression case.
		if isTypeStart(p.peekNext().Type) {
			lparen := p.advance()
			to, err := p.parseType()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(RPAREN); err != nil {
				return nil, err
			}
			operand, err := p.parseUnary()
			if err != nil {
				return nil, err
			}
			return &CastExpr{Tok: lparen, To: to, Operand: operand}, nil
		}
	}
	return p.parsePostfix()
}

// parsePostfix handles calls, subscripts, member access, and postfix ++/--.
func (p *Parser) parsePostfix() (Expr, error) {
	expr, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		switch p.tok.Type {
		case LPAREN:
			name, ok := expr.(*Ident)
			if !ok {
				return nil, p.errf(p.tok, "called object is not a function name")
			}
			p.advance()
			var args []Expr
			for !p.check(RPAREN) && !p.check(EOF) {
				arg, err := p.parseAssignment()
				if err != nil {
					return nil, err
				}
				args = append(args, arg)
				if !p.accept(COMMA) {
					break
				}
			}
			if _, err := p.expect(RPAREN); err != nil {
				return nil, err
			}
			expr = &CallExpr{Tok: name.Tok, Name: name.Name, Args: args}
		case LBRACKET:
			op := p.advance()
			index, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(RBRACKET); err != nil {
				return nil, err
			}
			expr = &IndexExpr{Tok: op, Base: expr, Index: index}
		case DOT, ARROW:
			op := p.advance()
			member, err := p.expect(IDENTIFIER)
			if err != nil {
				return nil, err
			}
			expr = &MemberExpr{Tok: op, Base: expr, Member: member.Value, Arrow: op.Type == ARROW}
		case PLUS_PLUS, MINUS_MINUS:
			op := p.advance()
			expr = &IncDecExpr{Tok: op, Op: op.Type, Operand: expr, Postfix: true}
		default:
			return expr, nil
		}
	}
}

// parsePrimary handles literals, identifiers, parenthesized expressions,
// and message sends.
func (p *Parser) parsePrimary() (Expr, error) {
	switch p.tok.Type {
	case INT_LIT:
		tok := p.advance()
		v, err := strconv.ParseInt(tok.Value, 0, 64)
		if err != nil {
			p.diags.errorAt(tok, "integer literal %q out of range", tok.Lexeme)
		}
		return &IntLit{Tok: tok, Value: v, Type: IntType()}, nil
	case FLOAT_LIT:
		tok := p.advance()
		v, err := strconv.ParseFloat(tok.Value, 64)
		if err != nil {
			p.diags.errorAt(tok, "floating literal %q out of range", tok.Lexeme)
		}
		single := strings.HasSuffix(tok.Lexeme, "f") || strings.HasSuffix(tok.Lexeme, "F")
		t := DoubleType()
		if single {
			t = FloatType()
		}
		return &FloatLit{Tok: tok, Value: v, IsSingle: single, Type: t}, nil
	case STRING_LIT:
		tok := p.advance()
		return &StringLit{Tok: tok, Value: tok.Value, Type: PointerTo(CharType())}, nil
	case CHAR_LIT:
		tok := p.advance()
		var v rune
		for _, r := range tok.Value {
			v = r
			break
		}
		return &CharLit{Tok: tok, Value: v, Type: CharType()}, nil
	case TRUE, FALSE:
		tok := p.advance()
		return &BoolLit{Tok: tok, Value: tok.Type == TRUE, Type: BoolType()}, nil
	case NULL:
		tok := p.advance()
		return &NullLit{Tok: tok, Type: PointerTo(VoidType())}, nil
	case IDENTIFIER:
		tok := p.advance()
		return &Ident{Tok: tok, Name: tok.Value}, nil
	case LPAREN:
		p.advance()
		expr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(RPAREN); err != nil {
			return nil, err
		}
		return expr, nil
	case LBRACKET:
		return p.parseMessage()
	}
	return nil, p.errf(p.tok, "expected expression, got %s (%q)", p.tok.Type, p.tok.Lexeme)
}

// parseMessage handles [receiver selector] and
// [receiver part:arg part:arg ...]. The selector parts are joined with
// underscores; the joined name is the function the send lowers to.
func (p *Parser) parseMessage() (Expr, error) {
	lbracket := p.advance() // [
	recv, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	sel, err := p.expect(IDENTIFIER)
	if err != nil {
		return nil, err
	}

	selector := sel.Value
	var args []Expr
	if p.check(COLON) {
		for {
			if _, err := p.expect(COLON); err != nil {
				return nil, err
			}
			arg, err := p.parseAssignment()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			if !p.check(IDENTIFIER) || p.peekNext().Type != COLON {
				break
			}
			part := p.advance()
			selector += "_" + part.Value
		}
	}
	if _, err := p.expect(RBRACKET); err != nil {
		return nil, err
	}
	return &MessageExpr{Tok: lbracket, Receiver: recv, Selector: selector, Args: args}, nil
}
