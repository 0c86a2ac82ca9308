package compiler

// symbol is one named storage location visible in some scope.
type symbol struct {
	name    string
	typ     *Type
	isConst bool
}

// enumConst is a resolved enumerator reference.
type enumConst struct {
	typ   *Type
	value int64
}

// Analyzer walks a parsed compilation unit resolving every name, checking
// every assignment, call, and cast against the conversion rules, and
// verifying flow rules (break/continue context, all-paths-return). Failures
// go to the Reporter and the walk continues, so one pass surfaces as many
// problems as possible; an expression that fails to check gets type int and
// is not re-reported.
type Analyzer struct {
	diags *Reporter
	types *TypeTable

	scopes []map[string]*symbol
	funcs  map[string]*Type // name -> TypeFunc
	enums  map[string]enumConst

	curRet    *Type
	loopDepth int
}

// NewAnalyzer returns an Analyzer reporting through diags.
func NewAnalyzer(diags *Reporter, types *TypeTable) *Analyzer {
	a := &Analyzer{
		diags: diags,
		types: types,
		funcs: map[string]*Type{},
		enums: map[string]enumConst{},
	}
	for _, b := range runtimeBuiltins() {
		a.funcs[b.Name] = b.Sig
	}
	return a
}

// Analyze checks the whole unit. It never stops early; the Reporter's error
// count says whether the unit is sound.
func (a *Analyzer) Analyze(unit *CompilationUnit) {
	a.pushScope()
	defer a.popScope()

	// File-scope names first, so forward references between functions and
	// to globals declared later in the file resolve.
	for _, d := range unit.Decls {
		switch d := d.(type) {
		case *FuncDecl:
			if prev, ok := a.funcs[d.Name]; ok && !prev.Equal(d.Signature()) {
				a.diags.errorAt(d.Tok, "conflicting declaration of function %q", d.Name)
				continue
			}
			a.funcs[d.Name] = d.Signature()
		case *VarDecl:
			a.declare(d.Tok, d.Name, d.Type, d.IsConst)
		case *EnumDecl:
			for _, m := range d.Type.Members {
				if _, dup := a.enums[m.Name]; dup {
					a.diags.errorAt(d.Tok, "duplicate enumerator %q", m.Name)
					continue
				}
				a.enums[m.Name] = enumConst{typ: d.Type, value: m.Value}
			}
		}
	}

	for _, d := range unit.Decls {
		switch d := d.(type) {
		case *FuncDecl:
			if d.Body != nil {
				a.checkFunc(d)
			}
		case *VarDecl:
			a.checkGlobalInit(d)
		}
	}
}

//  Scopes

func (a *Analyzer) pushScope() {
	a.scopes = append(a.scopes, map[string]*symbol{})
}

func (a *Analyzer) popScope() {
	a.scopes = a.scopes[:len(a.scopes)-1]
}

// declare adds a name to the innermost scope. Redeclaring in the same scope
// is an error; shadowing an outer scope is permitted.
func (a *Analyzer) declare(tok Token, name string, t *Type, isConst bool) {
	top := a.scopes[len(a.scopes)-1]
	if _, dup := top[name]; dup {
		a.diags.errorAt(tok, "redeclaration of %q", name)
		return
	}
	top[name] = &symbol{name: name, typ: t, isConst: isConst}
}

// lookup resolves a name against the scope stack, innermost first.
func (a *Analyzer) lookup(name string) (*symbol, bool) {
	for i := len(a.scopes) - 1; i >= 0; i-- {
		if s, ok := a.scopes[i][name]; ok {
			return s, true
		}
	}
	return nil, false
}

//  Conversions

// decay turns an array value into a pointer to its element type. Every
// rvalue context applies it.
func decay(t *Type) *Type {
	if t.Kind == TypeArray {
		return PointerTo(t.Elem)
	}
	return t
}

// canImplicit reports whether a value of type from may be used where to is
// expected without a cast. Same-size integers convert freely; differing
// sizes convert implicitly only when signedness agrees; void* pairs with any
// pointer; arrays decay; structs match by name only.
func canImplicit(from, to *Type) bool {
	from = decay(from)
	if from.Equal(to) {
		return true
	}
	// enums behave as their base integer type
	ef, et := from, to
	if ef.Kind == TypeEnum {
		ef = ef.Base
	}
	if et.Kind == TypeEnum {
		et = et.Base
	}
	if ef.IsInteger() && et.IsInteger() {
		if ef.Size() == et.Size() {
			return true
		}
		return ef.IsUnsigned() == et.IsUnsigned()
	}
	if ef.IsArithmetic() && et.IsArithmetic() {
		return true
	}
	if ef.Kind == TypePointer && et.Kind == TypePointer {
		if ef.Elem.Kind == TypeVoid || et.Elem.Kind == TypeVoid {
			return true
		}
		return ef.Elem.Equal(et.Elem)
	}
	return false
}

// commonArith computes the usual arithmetic result type of two operands:
// double beats float beats integers, and the wider integer wins otherwise.
func commonArith(l, r *Type) *Type {
	if l.Kind == TypeEnum {
		l = l.Base
	}
	if r.Kind == TypeEnum {
		r = r.Base
	}
	if l.Kind == TypeDouble || r.Kind == TypeDouble {
		return DoubleType()
	}
	if l.Kind == TypeFloat || r.Kind == TypeFloat {
		return FloatType()
	}
	if l.Size() < 4 && r.Size() < 4 {
		// small integers promote to int
		return IntType()
	}
	if l.Size() >= r.Size() {
		return l
	}
	return r
}

// isLValueForm reports whether e denotes a storage location: a name, a
// subscript, a dereference, or a member access.
func isLValueForm(e Expr) bool {
	switch e := e.(type) {
	case *Ident:
		return true
	case *IndexExpr:
		return true
	case *MemberExpr:
		// p->x is addressable through the pointer whatever p is; v.x is
		// only addressable when v itself is
		return e.Arrow || isLValueForm(e.Base)
	case *UnaryExpr:
		return e.Op == STAR
	}
	return false
}

//  Functions and statements

func (a *Analyzer) checkFunc(f *FuncDecl) {
	a.curRet = f.Ret
	a.pushScope()
	for _, p := range f.Params {
		a.declare(p.Tok, p.Name, p.Type, false)
	}
	a.checkStmt(f.Body)
	a.popScope()

	// falling off the end is legal; the generator synthesizes a zero-valued
	// return, so this diagnoses without rejecting
	if f.Ret.Kind != TypeVoid && !stmtReturns(f.Body) {
		a.diags.Warnf(f.Tok.Line, f.Tok.Col, "function %q does not return a value on all paths", f.Name)
	}
}

func (a *Analyzer) checkGlobalInit(d *VarDecl) {
	if d.Init == nil {
		return
	}
	if !isConstExpr(d.Init) {
		a.diags.errorAt(d.Tok, "initializer of global %q is not a constant", d.Name)
		return
	}
	it := a.checkExpr(d.Init)
	if !canImplicit(it, d.Type) {
		a.diags.errorAt(d.Tok, "cannot initialize %s with a value of type %s", d.Type, it)
	}
}

// isConstExpr reports whether e is a literal, possibly under a sign.
func isConstExpr(e Expr) bool {
	switch e := e.(type) {
	case *IntLit, *FloatLit, *StringLit, *CharLit, *BoolLit, *NullLit:
		return true
	case *UnaryExpr:
		if e.Op == MINUS || e.Op == PLUS {
			return isConstExpr(e.Operand)
		}
	case *Ident:
		return false
	}
	return false
}

func (a *Analyzer) checkStmt(s Stmt) {
	switch s := s.(type) {
	case *BlockStmt:
		a.pushScope()
		warned := false
		for i, inner := range s.Stmts {
			if i > 0 && !warned && stmtReturns(s.Stmts[i-1]) {
				tok := stmtPos(inner)
				a.diags.Warnf(tok.Line, tok.Col, "unreachable code")
				warned = true
			}
			a.checkStmt(inner)
		}
		a.popScope()
	case *DeclStmt:
		d := s.Decl
		if d.Init != nil {
			it := a.checkRValue(d.Init)
			if d.Type.Kind == TypeArray {
				a.diags.errorAt(d.Tok, "array %q cannot have an initializer", d.Name)
			} else if !canImplicit(it, d.Type) {
				a.diags.errorAt(d.Tok, "cannot initialize %s with a value of type %s", d.Type, it)
			}
		}
		a.declare(d.Tok, d.Name, d.Type, d.IsConst)
	case *IfStmt:
		a.checkCond(s.Cond)
		a.checkStmt(s.Then)
		if s.Else != nil {
			a.checkStmt(s.Else)
		}
	case *WhileStmt:
		a.checkCond(s.Cond)
		a.loopDepth++
		a.checkStmt(s.Body)
		a.loopDepth--
	case *ForStmt:
		a.pushScope()
		if s.Init != nil {
			a.checkStmt(s.Init)
		}
		if s.Cond != nil {
			a.checkCond(s.Cond)
		}
		if s.Post != nil {
			a.checkExpr(s.Post)
		}
		a.loopDepth++
		a.checkStmt(s.Body)
		a.loopDepth--
		a.popScope()
	case *ReturnStmt:
		switch {
		case a.curRet.Kind == TypeVoid && s.Value != nil:
			a.diags.errorAt(s.Tok, "void function cannot return a value")
		case a.curRet.Kind != TypeVoid && s.Value == nil:
			a.diags.errorAt(s.Tok, "non-void function must return a value")
		case s.Value != nil:
			vt := a.checkRValue(s.Value)
			if !canImplicit(vt, a.curRet) {
				a.diags.errorAt(s.Tok, "cannot return %s from a function returning %s", vt, a.curRet)
			}
		}
	case *BreakStmt:
		if a.loopDepth == 0 {
			a.diags.errorAt(s.Tok, "break statement not within a loop")
		}
	case *ContinueStmt:
		if a.loopDepth == 0 {
			a.diags.errorAt(s.Tok, "continue statement not within a loop")
		}
	case *ExprStmt:
		a.checkExpr(s.Expr)
	}
}

// checkCond checks a branch condition, which must be scalar.
func (a *Analyzer) checkCond(e Expr) {
	t := a.checkRValue(e)
	if !t.IsScalar() {
		a.diags.errorAt(e.Pos(), "condition has non-scalar type %s", t)
	}
}

// stmtPos returns a representative token for positioning diagnostics on s.
func stmtPos(s Stmt) Token {
	switch s := s.(type) {
	case *BlockStmt:
		return s.Tok
	case *DeclStmt:
		return s.Decl.Tok
	case *ExprStmt:
		return s.Expr.Pos()
	case *IfStmt:
		return s.Tok
	case *WhileStmt:
		return s.Tok
	case *ForStmt:
		return s.Tok
	case *ReturnStmt:
		return s.Tok
	case *BreakStmt:
		return s.Tok
	case *ContinueStmt:
		return s.Tok
	}
	return Token{}
}

// stmtReturns reports whether control cannot fall off the end of s. A loop
// with a constant-true condition counts as not falling through.
func stmtReturns(s Stmt) bool {
	switch s := s.(type) {
	case *ReturnStmt:
		return true
	case *BlockStmt:
		for _, inner := range s.Stmts {
			if stmtReturns(inner) {
				return true
			}
		}
		return false
	case *IfStmt:
		return s.Else != nil && stmtReturns(s.Then) && stmtReturns(s.Else)
	case *WhileStmt:
		return condAlwaysTrue(s.Cond) && !breaksOut(s.Body)
	case *ForStmt:
		return (s.Cond == nil || condAlwaysTrue(s.Cond)) && !breaksOut(s.Body)
	}
	return false
}

// breaksOut reports whether s contains a break binding to the enclosing
// loop. Breaks inside nested loops bind to those loops and do not count.
func breaksOut(s Stmt) bool {
	switch s := s.(type) {
	case *BreakStmt:
		return true
	case *BlockStmt:
		for _, inner := range s.Stmts {
			if breaksOut(inner) {
				return true
			}
		}
	case *IfStmt:
		if breaksOut(s.Then) {
			return true
		}
		return s.Else != nil && breaksOut(s.Else)
	}
	return false
}

func condAlwaysTrue(e Expr) bool {
	switch e := e.(type) {
	case *IntLit:
		return e.Value != 0
	case *BoolLit:
		return e.Value
	}
	return false
}

//  Expressions

// checkRValue checks e in a value context: the resolved type with arrays
// decayed to pointers.
func (a *Analyzer) checkRValue(e Expr) *Type {
	return decay(a.checkExpr(e))
}

// checkExpr resolves and checks e, stores the type on the node, and returns
// it. On error the recovery type is int.
func (a *Analyzer) checkExpr(e Expr) *Type {
	t := a.typeOf(e)
	setExprType(e, t)
	return t
}

// setExprType stores t into the node's Type field.
func setExprType(e Expr, t *Type) {
	switch e := e.(type) {
	case *IntLit:
		e.Type = t
	case *FloatLit:
		e.Type = t
	case *StringLit:
		e.Type = t
	case *CharLit:
		e.Type = t
	case *BoolLit:
		e.Type = t
	case *NullLit:
		e.Type = t
	case *Ident:
		e.Type = t
	case *UnaryExpr:
		e.Type = t
	case *BinaryExpr:
		e.Type = t
	case *LogicalExpr:
		e.Type = t
	case *AssignExpr:
		e.Type = t
	case *CallExpr:
		e.Type = t
	case *MessageExpr:
		e.Type = t
	case *IndexExpr:
		e.Type = t
	case *MemberExpr:
		e.Type = t
	case *CastExpr:
		e.Type = t
	case *IncDecExpr:
		e.Type = t
	}
}

func (a *Analyzer) typeOf(e Expr) *Type {
	switch e := e.(type) {
	case *IntLit:
		return e.Type
	case *FloatLit:
		return e.Type
	case *StringLit:
		return e.Type
	case *CharLit:
		return e.Type
	case *BoolLit:
		return e.Type
	case *NullLit:
		return e.Type
	case *Ident:
		if sym, ok := a.lookup(e.Name); ok {
			return sym.typ
		}
		if ec, ok := a.enums[e.Name]; ok {
			return ec.typ
		}
		if _, ok := a.funcs[e.Name]; ok {
			a.diags.errorAt(e.Tok, "function %q used as a value", e.Name)
		} else {
			a.diags.errorAt(e.Tok, "use of undeclared identifier %q", e.Name)
		}
		return IntType()
	case *UnaryExpr:
		return a.typeOfUnary(e)
	case *BinaryExpr:
		return a.typeOfBinary(e)
	case *LogicalExpr:
		lt := a.checkRValue(e.Left)
		rt := a.checkRValue(e.Right)
		if !lt.IsScalar() {
			a.diags.errorAt(e.Left.Pos(), "operand of %q has non-scalar type %s", e.Tok.Lexeme, lt)
		}
		if !rt.IsScalar() {
			a.diags.errorAt(e.Right.Pos(), "operand of %q has non-scalar type %s", e.Tok.Lexeme, rt)
		}
		return BoolType()
	case *AssignExpr:
		return a.typeOfAssign(e)
	case *CallExpr:
		return a.checkCall(e.Tok, e.Name, e.Args, nil)
	case *MessageExpr:
		return a.checkCall(e.Tok, e.Selector, e.Args, e.Receiver)
	case *IndexExpr:
		bt := a.checkRValue(e.Base)
		it := a.checkRValue(e.Index)
		if !it.IsInteger() {
			a.diags.errorAt(e.Index.Pos(), "array subscript is not an integer")
		}
		if bt.Kind != TypePointer {
			a.diags.errorAt(e.Tok, "subscripted value of type %s is not a pointer or array", bt)
			return IntType()
		}
		return bt.Elem
	case *MemberExpr:
		return a.typeOfMember(e)
	case *CastExpr:
		ot := a.checkRValue(e.Operand)
		if e.To.Kind == TypeVoid {
			return e.To
		}
		if !ot.IsScalar() || !e.To.IsScalar() {
			a.diags.errorAt(e.Tok, "invalid cast from %s to %s", ot, e.To)
			return IntType()
		}
		return e.To
	case *IncDecExpr:
		t := a.checkExpr(e.Operand)
		if !isLValueForm(e.Operand) {
			a.diags.errorAt(e.Tok, "operand of %q is not assignable", e.Tok.Lexeme)
			return IntType()
		}
		if !t.IsArithmetic() && t.Kind != TypePointer {
			a.diags.errorAt(e.Tok, "cannot apply %q to type %s", e.Tok.Lexeme, t)
			return IntType()
		}
		return t
	}
	return IntType()
}

func (a *Analyzer) typeOfUnary(e *UnaryExpr) *Type {
	switch e.Op {
	case MINUS, PLUS:
		t := a.checkRValue(e.Operand)
		if !t.IsArithmetic() {
			a.diags.errorAt(e.Tok, "unary %q requires an arithmetic operand, got %s", e.Tok.Lexeme, t)
			return IntType()
		}
		return t
	case NOT:
		t := a.checkRValue(e.Operand)
		if !t.IsScalar() {
			a.diags.errorAt(e.Tok, "operand of ! has non-scalar type %s", t)
		}
		return BoolType()
	case TILDE:
		t := a.checkRValue(e.Operand)
		if !t.IsInteger() {
			a.diags.errorAt(e.Tok, "operand of ~ has non-integer type %s", t)
			return IntType()
		}
		return t
	case STAR:
		t := a.checkRValue(e.Operand)
		if t.Kind != TypePointer {
			a.diags.errorAt(e.Tok, "cannot dereference non-pointer type %s", t)
			return IntType()
		}
		if t.Elem.Kind == TypeVoid {
			a.diags.errorAt(e.Tok, "cannot dereference void pointer")
			return IntType()
		}
		return t.Elem
	case AMP:
		t := a.checkExpr(e.Operand)
		if !isLValueForm(e.Operand) {
			a.diags.errorAt(e.Tok, "cannot take the address of this expression")
			return PointerTo(IntType())
		}
		return PointerTo(decay(t))
	}
	return IntType()
}

func (a *Analyzer) typeOfBinary(e *BinaryExpr) *Type {
	lt := a.checkRValue(e.Left)
	rt := a.checkRValue(e.Right)

	switch e.Op {
	case PLUS, MINUS:
		// pointer arithmetic
		if lt.Kind == TypePointer && rt.IsInteger() {
			return lt
		}
		if e.Op == PLUS && lt.IsInteger() && rt.Kind == TypePointer {
			return rt
		}
		if e.Op == MINUS && lt.Kind == TypePointer && rt.Kind == TypePointer {
			if !lt.Elem.Equal(rt.Elem) {
				a.diags.errorAt(e.Tok, "cannot subtract %s from %s", rt, lt)
			}
			return LongType()
		}
		fallthrough
	case STAR, SLASH:
		if !lt.IsArithmetic() || !rt.IsArithmetic() {
			a.diags.errorAt(e.Tok, "invalid operands to %q (%s and %s)", e.Tok.Lexeme, lt, rt)
			return IntType()
		}
		return commonArith(lt, rt)
	case PERCENT, AMP, PIPE, CARET:
		if !lt.IsInteger() || !rt.IsInteger() {
			a.diags.errorAt(e.Tok, "invalid operands to %q (%s and %s)", e.Tok.Lexeme, lt, rt)
			return IntType()
		}
		return commonArith(lt, rt)
	case SHL, SHR:
		if !lt.IsInteger() || !rt.IsInteger() {
			a.diags.errorAt(e.Tok, "invalid operands to %q (%s and %s)", e.Tok.Lexeme, lt, rt)
			return IntType()
		}
		return lt
	case EQ, NE, LT, GT, LE, GE:
		switch {
		case lt.IsArithmetic() && rt.IsArithmetic():
		case lt.Kind == TypePointer && rt.Kind == TypePointer &&
			(lt.Elem.Equal(rt.Elem) || lt.Elem.Kind == TypeVoid || rt.Elem.Kind == TypeVoid):
		default:
			a.diags.errorAt(e.Tok, "cannot compare %s with %s", lt, rt)
		}
		return BoolType()
	}
	a.diags.errorAt(e.Tok, "unexpected binary operator %s", e.Tok.Type)
	return IntType()
}

func (a *Analyzer) typeOfAssign(e *AssignExpr) *Type {
	tt := a.checkExpr(e.Target)
	vt := a.checkRValue(e.Value)

	if !isLValueForm(e.Target) {
		a.diags.errorAt(e.Tok, "expression is not assignable")
		return IntType()
	}
	if id, ok := e.Target.(*Ident); ok {
		if sym, found := a.lookup(id.Name); found && sym.isConst {
			a.diags.errorAt(e.Tok, "cannot assign to const %q", id.Name)
		}
	}
	if tt.Kind == TypeArray {
		a.diags.errorAt(e.Tok, "array is not assignable")
		return IntType()
	}

	if op, compound := compoundOp(e.Op); compound {
		// the combine step follows binary-operator rules
		switch {
		case tt.Kind == TypePointer && (op == PLUS || op == MINUS) && vt.IsInteger():
		case tt.IsArithmetic() && vt.IsArithmetic():
			if (op == PERCENT || op == AMP || op == PIPE || op == CARET || op == SHL || op == SHR) &&
				(!tt.IsInteger() || !vt.IsInteger()) {
				a.diags.errorAt(e.Tok, "invalid operands to %q (%s and %s)", e.Tok.Lexeme, tt, vt)
			}
		default:
			a.diags.errorAt(e.Tok, "invalid operands to %q (%s and %s)", e.Tok.Lexeme, tt, vt)
		}
		return tt
	}

	if !canImplicit(vt, tt) {
		a.diags.errorAt(e.Tok, "cannot assign a value of type %s to %s", vt, tt)
	}
	return tt
}

// checkCall checks a function call or a message send. For a send the
// receiver is prepended to the argument list, matching the lowering.
func (a *Analyzer) checkCall(tok Token, name string, args []Expr, receiver Expr) *Type {
	all := args
	if receiver != nil {
		all = append([]Expr{receiver}, args...)
	}

	sig, ok := a.funcs[name]
	if !ok {
		if receiver != nil {
			a.diags.errorAt(tok, "no function %q for this selector", name)
		} else {
			a.diags.errorAt(tok, "call to undeclared function %q", name)
		}
		for _, arg := range all {
			a.checkRValue(arg)
		}
		return IntType()
	}

	if len(all) < len(sig.Params) || (len(all) > len(sig.Params) && !sig.Variadic) {
		a.diags.errorAt(tok, "function %q expects %d argument(s), got %d", name, len(sig.Params), len(all))
	}
	for i, arg := range all {
		at := a.checkRValue(arg)
		if i < len(sig.Params) && !canImplicit(at, sig.Params[i]) {
			a.diags.errorAt(arg.Pos(), "argument %d of %q: cannot convert %s to %s", i+1, name, at, sig.Params[i])
		}
	}
	return sig.Ret
}

func (a *Analyzer) typeOfMember(e *MemberExpr) *Type {
	bt := a.checkRValue(e.Base)
	st := bt
	if e.Arrow {
		if bt.Kind != TypePointer {
			a.diags.errorAt(e.Tok, "-> requires a pointer to struct, got %s", bt)
			return IntType()
		}
		st = bt.Elem
	}
	if st.Kind != TypeStruct {
		a.diags.errorAt(e.Tok, "member access on non-struct type %s", st)
		return IntType()
	}
	if !st.IsComplete() {
		a.diags.errorAt(e.Tok, "member access on incomplete type %s", st)
		return IntType()
	}
	f, ok := st.FieldByName(e.Member)
	if !ok {
		a.diags.errorAt(e.Tok, "no field %q in %s", e.Member, st)
		return IntType()
	}
	return f.Type
}
