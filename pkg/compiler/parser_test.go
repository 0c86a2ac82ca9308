package compiler

import (
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// parseUnit parses src in a fresh type table and returns the unit along
// with the reporter.
func parseUnit(t *testing.T, src string) (*CompilationUnit, *Reporter) {
	t.Helper()
	diags := NewReporter("test.ds", io.Discard)
	lex := NewLexer(src, diags)
	return NewParser(lex, diags, NewTypeTable()).Parse(), diags
}

// parseExpr parses a single expression by wrapping it in a function body.
func parseExpr(t *testing.T, expr string) Expr {
	t.Helper()
	unit, diags := parseUnit(t, "void f() { "+expr+"; }")
	require.False(t, diags.HasErrors(), "parse errors in %q", expr)
	fn := unit.Decls[0].(*FuncDecl)
	require.Len(t, fn.Body.Stmts, 1)
	return fn.Body.Stmts[0].(*ExprStmt).Expr
}

func TestParseFunction(t *testing.T) {
	unit, diags := parseUnit(t, `
int add(int a, int b) {
	return a + b;
}
`)
	require.False(t, diags.HasErrors())
	require.Len(t, unit.Decls, 1)

	fn := unit.Decls[0].(*FuncDecl)
	assert.Equal(t, "add", fn.Name)
	assert.True(t, fn.Ret.Equal(IntType()))
	require.Len(t, fn.Params, 2)
	assert.Equal(t, "a", fn.Params[0].Name)
	assert.Equal(t, "b", fn.Params[1].Name)
	require.Len(t, fn.Body.Stmts, 1)

	ret := fn.Body.Stmts[0].(*ReturnStmt)
	bin := ret.Value.(*BinaryExpr)
	assert.Equal(t, PLUS, bin.Op)
	assert.Equal(t, "a", bin.Left.(*Ident).Name)
	assert.Equal(t, "b", bin.Right.(*Ident).Name)
}

func TestParsePrecedence(t *testing.T) {
	tests := []struct {
		name string
		expr string
		want string
	}{
		{"MulBeforeAdd", "x = a + b * c", "(x ASSIGN (a PLUS (b STAR c)))"},
		{"LeftAssoc", "x = a - b - c", "(x ASSIGN ((a MINUS b) MINUS c))"},
		{"ParensOverride", "x = (a + b) * c", "(x ASSIGN ((a PLUS b) STAR c))"},
		{"ShiftBelowRelational", "x = a << 1 < b", "(x ASSIGN ((a SHL 1) LT b))"},
		{"BitwiseLadder", "x = a | b ^ c & d", "(x ASSIGN (a PIPE (b CARET (c AMP d))))"},
		{"LogicalLowest", "x = a == b && c != d", "(x ASSIGN ((a EQ b) AND_AND (c NE d)))"},
		{"OrBelowAnd", "x = a && b || c", "(x ASSIGN ((a AND_AND b) OR_OR c))"},
		{"UnaryBindsTight", "x = -a * b", "(x ASSIGN ((MINUS a) STAR b))"},
		{"AssignRightAssoc", "a = b = c", "(a ASSIGN (b ASSIGN c))"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseExpr(t, tt.expr).String())
		})
	}
}

func TestParseCastVsParen(t *testing.T) {
	cast := parseExpr(t, "x = (int)y").(*AssignExpr).Value
	c, ok := cast.(*CastExpr)
	require.True(t, ok, "(int)y is a cast")
	assert.True(t, c.To.Equal(IntType()))

	paren := parseExpr(t, "x = (y)").(*AssignExpr).Value
	_, ok = paren.(*Ident)
	assert.True(t, ok, "(y) is a parenthesized expression")

	ptr := parseExpr(t, "x = (char*)p").(*AssignExpr).Value
	cp, ok := ptr.(*CastExpr)
	require.True(t, ok)
	assert.Equal(t, "char*", cp.To.String())
}

func TestParsePostfix(t *testing.T) {
	e := parseExpr(t, "a[1].x->y++")
	inc := e.(*IncDecExpr)
	assert.True(t, inc.Postfix)
	arrow := inc.Operand.(*MemberExpr)
	assert.True(t, arrow.Arrow)
	assert.Equal(t, "y", arrow.Member)
	dot := arrow.Base.(*MemberExpr)
	assert.False(t, dot.Arrow)
	idx := dot.Base.(*IndexExpr)
	assert.Equal(t, "a", idx.Base.(*Ident).Name)
}

func TestParseCallRequiresName(t *testing.T) {
	call := parseExpr(t, "f(1, g(2))").(*CallExpr)
	assert.Equal(t, "f", call.Name)
	require.Len(t, call.Args, 2)
	inner := call.Args[1].(*CallExpr)
	assert.Equal(t, "g", inner.Name)

	_, diags := parseUnit(t, "void f() { (a + b)(1); }")
	assert.True(t, diags.HasErrors(), "only plain names are callable")
}

func TestParseMessageSend(t *testing.T) {
	tests := []struct {
		name         string
		expr         string
		wantSelector string
		wantArgs     int
	}{
		{"NoArgs", "[p magnitude]", "magnitude", 0},
		{"OneArg", "[p scaleBy:2]", "scaleBy", 1},
		{"MultiPart", "[p moveBy:1 andY:2]", "moveBy_andY", 2},
		{"ThreeParts", "[v setX:1 y:2 z:3]", "setX_y_z", 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := parseExpr(t, tt.expr).(*MessageExpr)
			assert.Equal(t, tt.wantSelector, msg.Selector)
			assert.Len(t, msg.Args, tt.wantArgs)
			assert.Equal(t, "p", msg.Receiver.(*Ident).Name)
		})
	}
}

func TestParseNestedMessage(t *testing.T) {
	msg := parseExpr(t, "[[p copy] scaleBy:2]").(*MessageExpr)
	assert.Equal(t, "scaleBy", msg.Selector)
	inner := msg.Receiver.(*MessageExpr)
	assert.Equal(t, "copy", inner.Selector)
}

func TestParseMethodDecl(t *testing.T) {
	unit, diags := parseUnit(t, `
struct Point { int x; int y; };

type struct Point* void moveBy:(int) dx andY:(int) dy {
	self->x += dx;
	self->y += dy;
}

type struct Point* int magnitude {
	return self->x;
}
`)
	require.False(t, diags.HasErrors())
	require.Len(t, unit.Decls, 3)

	move := unit.Decls[1].(*FuncDecl)
	assert.Equal(t, "moveBy_andY", move.Name)
	require.NotNil(t, move.Recv)
	require.Len(t, move.Params, 3)
	assert.Equal(t, "self", move.Params[0].Name)
	assert.Equal(t, "struct Point*", move.Params[0].Type.String())
	assert.Equal(t, "dx", move.Params[1].Name)
	assert.Equal(t, "dy", move.Params[2].Name)

	mag := unit.Decls[2].(*FuncDecl)
	assert.Equal(t, "magnitude", mag.Name)
	require.Len(t, mag.Params, 1)
}

func TestParseStructDecl(t *testing.T) {
	unit, diags := parseUnit(t, `
struct Node {
	int value;
	struct Node* next;
	char name[16];
};
`)
	require.False(t, diags.HasErrors())
	sd := unit.Decls[0].(*StructDecl)
	require.True(t, sd.Type.IsComplete())
	require.Len(t, sd.Type.Fields, 3)
	assert.Equal(t, "struct Node*", sd.Type.Fields[1].Type.String())
	assert.Equal(t, "char[16]", sd.Type.Fields[2].Type.String())
}

func TestParseStructErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"Redefinition", "struct S { int x; };\nstruct S { int y; };"},
		{"IncompleteField", "struct S { struct T inner; };"},
		{"IncompleteVariable", "struct T* makeT() { struct T local; return null; }"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, diags := parseUnit(t, tt.src)
			assert.True(t, diags.HasErrors())
		})
	}
}

func TestParseEnumDecl(t *testing.T) {
	unit, diags := parseUnit(t, `
enum Color { RED, GREEN = 10, BLUE };
`)
	require.False(t, diags.HasErrors())
	ed := unit.Decls[0].(*EnumDecl)
	require.Len(t, ed.Type.Members, 3)
	assert.Equal(t, int64(0), ed.Type.Members[0].Value)
	assert.Equal(t, int64(10), ed.Type.Members[1].Value)
	assert.Equal(t, int64(11), ed.Type.Members[2].Value)
}

func TestParseEnumRejectsExprInitializer(t *testing.T) {
	_, diags := parseUnit(t, "enum E { A = 1 + 2 };")
	assert.True(t, diags.HasErrors())
}

func TestParseTypes(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"UnsignedInt", "unsigned int x;", "unsigned int"},
		{"BareUnsigned", "unsigned x;", "unsigned int"},
		{"UnsignedChar", "unsigned char x;", "unsigned char"},
		{"SignedIsDefault", "signed int x;", "int"},
		{"DoublePointer", "char** x;", "char**"},
		{"Array", "int x[4];", "int[4]"},
		{"ArrayOfArrays", "int x[2][3];", "int[2][3]"},
		{"PointerArray", "int* x[4];", "int*[4]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			unit, diags := parseUnit(t, tt.src)
			require.False(t, diags.HasErrors())
			vd := unit.Decls[0].(*VarDecl)
			assert.Equal(t, tt.want, vd.Type.String())
		})
	}
}

func TestParseExtern(t *testing.T) {
	unit, diags := parseUnit(t, "extern int read_sector(int lba, void* buf);")
	require.False(t, diags.HasErrors())
	fn := unit.Decls[0].(*FuncDecl)
	assert.True(t, fn.IsExtern)
	assert.Nil(t, fn.Body)
	require.Len(t, fn.Params, 2)
	assert.Equal(t, "void*", fn.Params[1].Type.String())
}

func TestParseArrayParamDecays(t *testing.T) {
	unit, diags := parseUnit(t, "int sum(int xs[10]) { return xs[0]; }")
	require.False(t, diags.HasErrors())
	fn := unit.Decls[0].(*FuncDecl)
	assert.Equal(t, "int*", fn.Params[0].Type.String())
}

func TestParseForVariants(t *testing.T) {
	unit, diags := parseUnit(t, `
void f() {
	for (int i = 0; i < 10; i++) { }
	for (;;) { break; }
}
`)
	require.False(t, diags.HasErrors())
	body := unit.Decls[0].(*FuncDecl).Body
	require.Len(t, body.Stmts, 2)

	full := body.Stmts[0].(*ForStmt)
	assert.NotNil(t, full.Init)
	assert.NotNil(t, full.Cond)
	assert.NotNil(t, full.Post)

	bare := body.Stmts[1].(*ForStmt)
	assert.Nil(t, bare.Init)
	assert.Nil(t, bare.Cond)
	assert.Nil(t, bare.Post)
}

func TestParseRecovery(t *testing.T) {
	// the bad statement is reported, the following declaration still parses
	unit, diags := parseUnit(t, `
void bad() {
	int x = ;
	x = 1;
}
int good() { return 7; }
`)
	assert.True(t, diags.HasErrors())
	require.Len(t, unit.Decls, 2)
	assert.Equal(t, "good", unit.Decls[1].(*FuncDecl).Name)

	bad := unit.Decls[0].(*FuncDecl)
	require.Len(t, bad.Body.Stmts, 1, "recovery resumes at the next statement")
}

func TestParseConstQualifier(t *testing.T) {
	unit, diags := parseUnit(t, `
const int limit = 64;
int plain = 0;
void f() {
	const long mask = (long)limit;
	long open = 1;
}
`)
	require.False(t, diags.HasErrors())

	assert.True(t, unit.Decls[0].(*VarDecl).IsConst)
	assert.False(t, unit.Decls[1].(*VarDecl).IsConst)

	body := unit.Decls[2].(*FuncDecl).Body
	// the cast inside the initializer must not disturb the qualifier
	assert.True(t, body.Stmts[0].(*DeclStmt).Decl.IsConst)
	assert.False(t, body.Stmts[1].(*DeclStmt).Decl.IsConst)
}

func TestParseRecoveryAlwaysAdvances(t *testing.T) {
	// inputs whose first error lands on a synchronization boundary; the
	// recovery loops must still consume it and reach EOF
	tests := []struct {
		name string
		src  string
	}{
		{"BraceAfterBadParams", "int f( {"},
		{"BareBrace", "{"},
		{"DeclKeywordInBlock", "void f() { extern x; }"},
		{"TypeKeywordAtTop", "type"},
		{"UnclosedEverything", "struct S { int f( { while"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			done := make(chan struct{})
			go func() {
				_, diags := parseUnit(t, tt.src)
				assert.True(t, diags.HasErrors())
				close(done)
			}()
			select {
			case <-done:
			case <-time.After(5 * time.Second):
				t.Fatal("parser did not reach EOF")
			}
		})
	}
}

func TestParseErrorCap(t *testing.T) {
	// one mistake should not cascade into a diagnostic per token
	_, diags := parseUnit(t, "void f() { int x = @ # $ ; x = 1; }")
	assert.Less(t, diags.ErrorCount(), 8)
}

func TestParseLiterals(t *testing.T) {
	hex := parseExpr(t, "x = 0xFF").(*AssignExpr).Value.(*IntLit)
	assert.Equal(t, int64(255), hex.Value)

	dbl := parseExpr(t, "x = 2.5").(*AssignExpr).Value.(*FloatLit)
	assert.False(t, dbl.IsSingle)
	assert.True(t, dbl.Type.Equal(DoubleType()))

	single := parseExpr(t, "x = 2.5f").(*AssignExpr).Value.(*FloatLit)
	assert.True(t, single.IsSingle)
	assert.True(t, single.Type.Equal(FloatType()))

	str := parseExpr(t, `x = "hi"`).(*AssignExpr).Value.(*StringLit)
	assert.Equal(t, "hi", str.Value)
	assert.Equal(t, "char*", str.Type.String())

	null := parseExpr(t, "x = null").(*AssignExpr).Value.(*NullLit)
	assert.Equal(t, "void*", null.Type.String())
}
