package compiler

import "fmt"

//  Expression nodes

// Expr is implemented by every node that produces a value. Type is the
// resolved type of the value: the parser fills it for literals, the semantic
// analyzer for everything else.
type Expr interface {
	exprNode()
	Pos() Token
	String() string
}

// IntLit is an integer constant, decimal or hex.
//
//	int x = 10;
//	         ^^  IntLit{Value: 10}
type IntLit struct {
	Tok   Token
	Value int64
	Type  *Type
}

func (*IntLit) exprNode()        {}
func (e *IntLit) Pos() Token     { return e.Tok }
func (e *IntLit) String() string { return fmt.Sprintf("%d", e.Value) }

// FloatLit is a floating constant. IsSingle is true when the source carried
// an f/F suffix, selecting float instead of double.
type FloatLit struct {
	Tok      Token
	Value    float64
	IsSingle bool
	Type     *Type
}

func (*FloatLit) exprNode()        {}
func (e *FloatLit) Pos() Token     { return e.Tok }
func (e *FloatLit) String() string { return fmt.Sprintf("%g", e.Value) }

// StringLit is a string constant "..." with escapes already decoded.
type StringLit struct {
	Tok   Token
	Value string
	Type  *Type
}

func (*StringLit) exprNode()        {}
func (e *StringLit) Pos() Token     { return e.Tok }
func (e *StringLit) String() string { return fmt.Sprintf("%q", e.Value) }

// CharLit is a character constant 'c'.
type CharLit struct {
	Tok   Token
	Value rune
	Type  *Type
}

func (*CharLit) exprNode()        {}
func (e *CharLit) Pos() Token     { return e.Tok }
func (e *CharLit) String() string { return fmt.Sprintf("%q", e.Value) }

// BoolLit is true or false.
type BoolLit struct {
	Tok   Token
	Value bool
	Type  *Type
}

func (*BoolLit) exprNode()        {}
func (e *BoolLit) Pos() Token     { return e.Tok }
func (e *BoolLit) String() string { return fmt.Sprintf("%t", e.Value) }

// NullLit is the null pointer constant.
type NullLit struct {
	Tok  Token
	Type *Type
}

func (*NullLit) exprNode()        {}
func (e *NullLit) Pos() Token     { return e.Tok }
func (e *NullLit) String() string { return "null" }

// Ident is a read of a named variable, parameter, or enumerator.
//
//	return x;
//	       ^  Ident{Name: "x"}
type Ident struct {
	Tok  Token
	Name string
	Type *Type
}

func (*Ident) exprNode()        {}
func (e *Ident) Pos() Token     { return e.Tok }
func (e *Ident) String() string { return e.Name }

// UnaryExpr is Op Operand: -, +, !, ~, * (deref), & (address-of).
type UnaryExpr struct {
	Tok     Token
	Op      TokenType
	Operand Expr
	Type    *Type
}

func (*UnaryExpr) exprNode()        {}
func (e *UnaryExpr) Pos() Token     { return e.Tok }
func (e *UnaryExpr) String() string { return fmt.Sprintf("(%s %s)", e.Op, e.Operand) }

// BinaryExpr is Left Op Right for arithmetic, bitwise, shift, and
// comparison operators.
type BinaryExpr struct {
	Tok   Token
	Op    TokenType
	Left  Expr
	Right Expr
	Type  *Type
}

func (*BinaryExpr) exprNode()    {}
func (e *BinaryExpr) Pos() Token { return e.Tok }
func (e *BinaryExpr) String() string {
	return fmt.Sprintf("(%s %s %s)", e.Left, e.Op, e.Right)
}

// LogicalExpr is Left && Right or Left || Right. It is separate from
// BinaryExpr because the right operand must not be evaluated when the left
// already decides the result.
type LogicalExpr struct {
	Tok   Token
	Op    TokenType
	Left  Expr
	Right Expr
	Type  *Type
}

func (*LogicalExpr) exprNode()    {}
func (e *LogicalExpr) Pos() Token { return e.Tok }
func (e *LogicalExpr) String() string {
	return fmt.Sprintf("(%s %s %s)", e.Left, e.Op, e.Right)
}

// AssignExpr is Target op= Value. Op is ASSIGN for plain assignment or the
// compound token (PLUS_ASSIGN, SHL_ASSIGN, ...); compound forms evaluate
// the target address once, combine, and store back.
type AssignExpr struct {
	Tok    Token
	Op     TokenType
	Target Expr
	Value  Expr
	Type   *Type
}

func (*AssignExpr) exprNode()    {}
func (e *AssignExpr) Pos() Token { return e.Tok }
func (e *AssignExpr) String() string {
	return fmt.Sprintf("(%s %s %s)", e.Target, e.Op, e.Value)
}

// CallExpr is name(args). The callee is always a plain name; dsLang has no
// function pointers.
type CallExpr struct {
	Tok  Token
	Name string
	Args []Expr
	Type *Type
}

func (*CallExpr) exprNode()    {}
func (e *CallExpr) Pos() Token { return e.Tok }
func (e *CallExpr) String() string {
	return fmt.Sprintf("Call(%s, args=%v)", e.Name, e.Args)
}

// MessageExpr is [receiver selector:arg part:arg]. Selector is the
// underscore-joined form, which is also the name of the function the send
// lowers to with the receiver as first argument.
type MessageExpr struct {
	Tok      Token
	Receiver Expr
	Selector string
	Args     []Expr
	Type     *Type
}

func (*MessageExpr) exprNode()    {}
func (e *MessageExpr) Pos() Token { return e.Tok }
func (e *MessageExpr) String() string {
	return fmt.Sprintf("Message(%s, %s, args=%v)", e.Receiver, e.Selector, e.Args)
}

// IndexExpr is Base[Index].
type IndexExpr struct {
	Tok   Token
	Base  Expr
	Index Expr
	Type  *Type
}

func (*IndexExpr) exprNode()        {}
func (e *IndexExpr) Pos() Token     { return e.Tok }
func (e *IndexExpr) String() string { return fmt.Sprintf("%s[%s]", e.Base, e.Index) }

// MemberExpr is Base.Member, or Base->Member when Arrow is set.
type MemberExpr struct {
	Tok    Token
	Base   Expr
	Member string
	Arrow  bool
	Type   *Type
}

func (*MemberExpr) exprNode()    {}
func (e *MemberExpr) Pos() Token { return e.Tok }
func (e *MemberExpr) String() string {
	op := "."
	if e.Arrow {
		op = "->"
	}
	return fmt.Sprintf("(%s%s%s)", e.Base, op, e.Member)
}

// CastExpr is (To) Operand.
type CastExpr struct {
	Tok     Token
	To      *Type
	Operand Expr
	Type    *Type
}

func (*CastExpr) exprNode()        {}
func (e *CastExpr) Pos() Token     { return e.Tok }
func (e *CastExpr) String() string { return fmt.Sprintf("Cast(%s, %s)", e.To, e.Operand) }

// IncDecExpr is ++x, --x, x++, or x--.
type IncDecExpr struct {
	Tok     Token
	Op      TokenType // PLUS_PLUS or MINUS_MINUS
	Operand Expr
	Postfix bool
	Type    *Type
}

func (*IncDecExpr) exprNode()    {}
func (e *IncDecExpr) Pos() Token { return e.Tok }
func (e *IncDecExpr) String() string {
	if e.Postfix {
		return fmt.Sprintf("(%s %s)", e.Operand, e.Op)
	}
	return fmt.Sprintf("(%s %s)", e.Op, e.Operand)
}

//  Statement nodes

// Stmt is implemented by every node that produces control effect but no
// value.
type Stmt interface {
	stmtNode()
}

// BlockStmt is { stmt; ... }. It opens a new scope.
type BlockStmt struct {
	Tok   Token
	Stmts []Stmt
}

func (*BlockStmt) stmtNode() {}

// IfStmt is if (Cond) Then [else Else]. Else may be nil.
type IfStmt struct {
	Tok  Token
	Cond Expr
	Then Stmt
	Else Stmt
}

func (*IfStmt) stmtNode() {}

// WhileStmt is while (Cond) Body.
type WhileStmt struct {
	Tok  Token
	Cond Expr
	Body Stmt
}

func (*WhileStmt) stmtNode() {}

// ForStmt is for (Init; Cond; Post) Body. Every clause is optional. The
// loop introduces one scope enclosing all four parts.
type ForStmt struct {
	Tok  Token
	Init Stmt // DeclStmt or ExprStmt, may be nil
	Cond Expr // may be nil (treated as true)
	Post Expr // may be nil
	Body Stmt
}

func (*ForStmt) stmtNode() {}

// ReturnStmt is return [Value];.
type ReturnStmt struct {
	Tok   Token
	Value Expr // nil for a bare return
}

func (*ReturnStmt) stmtNode() {}

// BreakStmt is break;.
type BreakStmt struct {
	Tok Token
}

func (*BreakStmt) stmtNode() {}

// ContinueStmt is continue;.
type ContinueStmt struct {
	Tok Token
}

func (*ContinueStmt) stmtNode() {}

// ExprStmt is an expression evaluated for its side effects.
type ExprStmt struct {
	Expr Expr
}

func (*ExprStmt) stmtNode() {}

// DeclStmt is a local variable declaration inside a block.
type DeclStmt struct {
	Decl *VarDecl
}

func (*DeclStmt) stmtNode() {}

//  Declaration nodes

// Decl is implemented by every node that introduces a name at file scope.
type Decl interface {
	declNode()
}

// VarDecl declares a variable: Type Name [= Init];.
type VarDecl struct {
	Tok     Token
	Name    string
	Type    *Type
	Init    Expr // may be nil
	IsConst bool
	Global  bool
}

func (*VarDecl) declNode() {}

// FuncDecl declares a function: Ret Name(Params) Body. Body is nil for an
// extern declaration. Recv is non-nil for a method declaration, in which
// case Name is the mangled selector and Params starts with the implicit
// "self" parameter of type Recv.
type FuncDecl struct {
	Tok      Token
	Name     string
	Ret      *Type
	Params   []*VarDecl
	Variadic bool
	Body     *BlockStmt
	IsExtern bool
	Recv     *Type
}

func (*FuncDecl) declNode() {}

// Signature returns the function's type.
func (f *FuncDecl) Signature() *Type {
	params := make([]*Type, len(f.Params))
	for i, p := range f.Params {
		params[i] = p.Type
	}
	return FuncType(f.Ret, params, f.Variadic)
}

// StructDecl declares struct Name { fields };. Type is the interned struct
// type, completed by the parser.
type StructDecl struct {
	Tok  Token
	Name string
	Type *Type
}

func (*StructDecl) declNode() {}

// EnumDecl declares enum Name { members };. Type is the interned enum type
// with its members resolved.
type EnumDecl struct {
	Tok  Token
	Name string
	Type *Type
}

func (*EnumDecl) declNode() {}

// CompilationUnit is the root of the AST for one source file.
type CompilationUnit struct {
	File  string
	Decls []Decl
}
