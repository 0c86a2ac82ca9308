package compiler

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"dslang/pkg/ir"
)

// local is one named stack slot visible in the current scope chain.
type local struct {
	addr *ir.Value
	typ  *Type
}

// CodeGen lowers a checked compilation unit to IR. Expression lowering
// returns the produced value directly; statement lowering appends to the
// current block and switches blocks at control-flow joins. The scope chain
// and the enclosing loop's break/continue targets are generator fields,
// saved and restored around nested loops.
type CodeGen struct {
	diags *Reporter
	types *TypeTable

	mod *ir.Module
	fn  *ir.Function
	blk *ir.Block

	scopes  []map[string]*local
	globals map[string]*Type
	funcs   map[string]*Type // name -> TypeFunc
	enums   map[string]enumConst

	curRet   *Type
	breakBlk *ir.Block
	contBlk  *ir.Block

	labelCount  int
	strCount    int
	structCache map[string]*ir.Type
}

// NewCodeGen returns a CodeGen reporting internal failures through diags.
func NewCodeGen(diags *Reporter, types *TypeTable) *CodeGen {
	cg := &CodeGen{
		diags:       diags,
		types:       types,
		globals:     map[string]*Type{},
		funcs:       map[string]*Type{},
		enums:       map[string]enumConst{},
		structCache: map[string]*ir.Type{},
	}
	for _, b := range runtimeBuiltins() {
		cg.funcs[b.Name] = b.Sig
	}
	return cg
}

// Generate lowers the whole unit. It refuses to run when the Reporter
// already holds errors: lowering assumes the analyzer's postconditions.
func (cg *CodeGen) Generate(unit *CompilationUnit) (*ir.Module, error) {
	if cg.diags.HasErrors() {
		return nil, errors.New("cannot generate code for a unit with errors")
	}

	name := strings.TrimSuffix(filepath.Base(unit.File), filepath.Ext(unit.File))
	if name == "" {
		name = "unit"
	}
	cg.mod = ir.NewModule(name)

	// Named aggregates first so function bodies can reference them.
	for _, st := range cg.types.Structs() {
		if st.IsComplete() {
			cg.mod.Structs = append(cg.mod.Structs, cg.irStruct(st))
		}
	}

	// File-scope symbol tables, then runtime declarations for everything
	// the unit does not define itself.
	defined := map[string]bool{}
	for _, d := range unit.Decls {
		switch d := d.(type) {
		case *FuncDecl:
			cg.funcs[d.Name] = d.Signature()
			if d.Body != nil {
				defined[d.Name] = true
			}
		case *VarDecl:
			cg.globals[d.Name] = d.Type
		case *EnumDecl:
			for _, m := range d.Type.Members {
				cg.enums[m.Name] = enumConst{typ: d.Type, value: m.Value}
			}
		}
	}
	for _, b := range runtimeBuiltins() {
		if !defined[b.Name] {
			cg.declareFunc(b.Name, b.Sig)
		}
	}

	for _, d := range unit.Decls {
		switch d := d.(type) {
		case *EnumDecl:
			cg.genEnum(d)
		case *VarDecl:
			cg.genGlobal(d)
		case *FuncDecl:
			if d.Body == nil {
				if _, builtin := builtinByName(d.Name); !builtin {
					cg.declareFunc(d.Name, d.Signature())
				}
			} else {
				cg.genFunc(d)
			}
		}
	}
	return cg.mod, nil
}

func builtinByName(name string) (builtin, bool) {
	for _, b := range runtimeBuiltins() {
		if b.Name == name {
			return b, true
		}
	}
	return builtin{}, false
}

func (cg *CodeGen) declareFunc(name string, sig *Type) {
	names := make([]string, len(sig.Params))
	types := make([]*ir.Type, len(sig.Params))
	for i, p := range sig.Params {
		names[i] = fmt.Sprintf("p%d", i)
		types[i] = cg.irType(p)
	}
	cg.mod.NewFunction(name, cg.irType(sig.Ret), names, types, sig.Variadic)
}

func (cg *CodeGen) genGlobal(d *VarDecl) {
	g := &ir.Global{Name: d.Name, Type: cg.irType(d.Type), Const: d.IsConst}
	switch init := foldSign(d.Init).(type) {
	case nil:
		g.Kind = ir.GlobalZero
	case *IntLit:
		if d.Type.IsFloat() {
			g.Kind = ir.GlobalFloat
			g.Float = float64(init.Value)
		} else {
			g.Kind = ir.GlobalInt
			g.Int = init.Value
		}
	case *FloatLit:
		if d.Type.IsInteger() {
			g.Kind = ir.GlobalInt
			g.Int = int64(init.Value)
		} else {
			g.Kind = ir.GlobalFloat
			g.Float = init.Value
		}
	case *BoolLit:
		g.Kind = ir.GlobalInt
		if init.Value {
			g.Int = 1
		}
	case *CharLit:
		g.Kind = ir.GlobalInt
		g.Int = int64(init.Value)
	case *NullLit:
		g.Kind = ir.GlobalNull
	case *StringLit:
		g.Kind = ir.GlobalRef
		g.Ref = cg.internString(init.Value)
	default:
		// the analyzer rejected non-constant initializers already
		g.Kind = ir.GlobalZero
	}
	cg.mod.Globals = append(cg.mod.Globals, g)
}

// genEnum emits each enumerator as a named constant of the enum's base type.
// Uses fold to immediates; the names exist for readers of the emitted IR.
func (cg *CodeGen) genEnum(d *EnumDecl) {
	for _, m := range d.Type.Members {
		cg.mod.Globals = append(cg.mod.Globals, &ir.Global{
			Name:  m.Name,
			Type:  cg.irType(d.Type),
			Kind:  ir.GlobalInt,
			Int:   m.Value,
			Const: true,
		})
	}
}

// foldSign resolves a leading unary sign on a numeric literal.
func foldSign(e Expr) Expr {
	u, ok := e.(*UnaryExpr)
	if !ok || (u.Op != MINUS && u.Op != PLUS) {
		return e
	}
	inner := foldSign(u.Operand)
	if u.Op == PLUS {
		return inner
	}
	switch lit := inner.(type) {
	case *IntLit:
		return &IntLit{Tok: lit.Tok, Value: -lit.Value, Type: lit.Type}
	case *FloatLit:
		return &FloatLit{Tok: lit.Tok, Value: -lit.Value, IsSingle: lit.IsSingle, Type: lit.Type}
	}
	return e
}

// internString adds a NUL-terminated string constant and returns its name.
func (cg *CodeGen) internString(s string) string {
	name := fmt.Sprintf(".str.%d", cg.strCount)
	cg.strCount++
	cg.mod.Globals = append(cg.mod.Globals, &ir.Global{
		Name:  name,
		Type:  ir.ArrayOf(ir.I8, len(s)+1),
		Kind:  ir.GlobalStr,
		Str:   s,
		Const: true,
	})
	return name
}

//  Functions

func (cg *CodeGen) genFunc(d *FuncDecl) {
	names := make([]string, len(d.Params))
	types := make([]*ir.Type, len(d.Params))
	for i, p := range d.Params {
		names[i] = p.Name
		types[i] = cg.irType(p.Type)
	}
	cg.fn = cg.mod.NewFunction(d.Name, cg.irType(d.Ret), names, types, d.Variadic)
	cg.blk = cg.fn.NewBlock("entry")
	cg.curRet = d.Ret
	cg.labelCount = 0

	cg.pushScope()
	// parameters spill to stack slots so they are addressable like locals
	for i, p := range d.Params {
		addr := cg.blk.Alloca(types[i], p.Name)
		cg.blk.Store(cg.fn.Params[i], addr)
		cg.bind(p.Name, addr, p.Type)
	}

	cg.genStmt(d.Body)

	// Falling off the end synthesizes a return: no value for void, a
	// zero of the right category otherwise.
	if !cg.blk.Terminated() {
		switch {
		case d.Ret.Kind == TypeVoid:
			cg.blk.Ret(nil)
		case d.Ret.IsFloat():
			cg.blk.Ret(cg.blk.ConstFloat(cg.irType(d.Ret), 0))
		case d.Ret.Kind == TypePointer:
			cg.blk.Ret(cg.blk.ConstNull())
		default:
			cg.blk.Ret(cg.blk.ConstInt(cg.irType(d.Ret), 0))
		}
	}
	cg.popScope()
	cg.fn = nil
	cg.blk = nil
}

func (cg *CodeGen) pushScope() {
	cg.scopes = append(cg.scopes, map[string]*local{})
}

func (cg *CodeGen) popScope() {
	cg.scopes = cg.scopes[:len(cg.scopes)-1]
}

func (cg *CodeGen) bind(name string, addr *ir.Value, t *Type) {
	cg.scopes[len(cg.scopes)-1][name] = &local{addr: addr, typ: t}
}

func (cg *CodeGen) lookupLocal(name string) (*local, bool) {
	for i := len(cg.scopes) - 1; i >= 0; i-- {
		if l, ok := cg.scopes[i][name]; ok {
			return l, true
		}
	}
	return nil, false
}

// newBlock creates a block with a unique label derived from prefix.
func (cg *CodeGen) newBlock(prefix string) *ir.Block {
	cg.labelCount++
	return cg.fn.NewBlock(fmt.Sprintf("%s.%d", prefix, cg.labelCount))
}

//  Statements

func (cg *CodeGen) genStmt(s Stmt) {
	switch s := s.(type) {
	case *BlockStmt:
		cg.pushScope()
		for _, inner := range s.Stmts {
			if cg.blk.Terminated() {
				break // unreachable after return/break/continue
			}
			cg.genStmt(inner)
		}
		cg.popScope()
	case *DeclStmt:
		d := s.Decl
		addr := cg.blk.Alloca(cg.irType(d.Type), d.Name)
		if d.Init != nil {
			v := cg.genExpr(d.Init)
			v = cg.convert(v, decay(exprType(d.Init)), d.Type, d.Tok)
			cg.blk.Store(v, addr)
		}
		cg.bind(d.Name, addr, d.Type)
	case *ExprStmt:
		cg.genExpr(s.Expr)
	case *IfStmt:
		cg.genIf(s)
	case *WhileStmt:
		cg.genWhile(s)
	case *ForStmt:
		cg.genFor(s)
	case *ReturnStmt:
		if s.Value == nil {
			cg.blk.Ret(nil)
			return
		}
		v := cg.genExpr(s.Value)
		v = cg.convert(v, decay(exprType(s.Value)), cg.curRet, s.Tok)
		cg.blk.Ret(v)
	case *BreakStmt:
		if cg.breakBlk == nil {
			cg.diags.errorAt(s.Tok, "break statement not within a loop")
			return
		}
		cg.blk.Br(cg.breakBlk)
	case *ContinueStmt:
		if cg.contBlk == nil {
			cg.diags.errorAt(s.Tok, "continue statement not within a loop")
			return
		}
		cg.blk.Br(cg.contBlk)
	}
}

func (cg *CodeGen) genIf(s *IfStmt) {
	cond := cg.genCond(s.Cond)
	thenBlk := cg.newBlock("then")
	endBlk := cg.newBlock("endif")

	if s.Else == nil {
		cg.blk.CondBr(cond, thenBlk, endBlk)
		cg.blk = thenBlk
		cg.genStmt(s.Then)
		if !cg.blk.Terminated() {
			cg.blk.Br(endBlk)
		}
	} else {
		elseBlk := cg.newBlock("else")
		cg.blk.CondBr(cond, thenBlk, elseBlk)
		cg.blk = thenBlk
		cg.genStmt(s.Then)
		if !cg.blk.Terminated() {
			cg.blk.Br(endBlk)
		}
		cg.blk = elseBlk
		cg.genStmt(s.Else)
		if !cg.blk.Terminated() {
			cg.blk.Br(endBlk)
		}
	}
	cg.blk = endBlk
}

// genLoop runs body between the given break/continue targets, restoring the
// enclosing loop's targets afterwards so nested loops resolve their own.
func (cg *CodeGen) genLoop(breakBlk, contBlk *ir.Block, body func()) {
	savedBreak, savedCont := cg.breakBlk, cg.contBlk
	cg.breakBlk, cg.contBlk = breakBlk, contBlk
	body()
	cg.breakBlk, cg.contBlk = savedBreak, savedCont
}

func (cg *CodeGen) genWhile(s *WhileStmt) {
	condBlk := cg.newBlock("while.cond")
	bodyBlk := cg.newBlock("while.body")
	endBlk := cg.newBlock("while.end")

	cg.blk.Br(condBlk)
	cg.blk = condBlk
	cond := cg.genCond(s.Cond)
	cg.blk.CondBr(cond, bodyBlk, endBlk)

	cg.blk = bodyBlk
	cg.genLoop(endBlk, condBlk, func() { cg.genStmt(s.Body) })
	if !cg.blk.Terminated() {
		cg.blk.Br(condBlk)
	}
	cg.blk = endBlk
}

func (cg *CodeGen) genFor(s *ForStmt) {
	cg.pushScope()
	if s.Init != nil {
		cg.genStmt(s.Init)
	}

	condBlk := cg.newBlock("for.cond")
	bodyBlk := cg.newBlock("for.body")
	incBlk := cg.newBlock("for.inc")
	endBlk := cg.newBlock("for.end")

	cg.blk.Br(condBlk)
	cg.blk = condBlk
	if s.Cond != nil {
		cond := cg.genCond(s.Cond)
		cg.blk.CondBr(cond, bodyBlk, endBlk)
	} else {
		cg.blk.Br(bodyBlk)
	}

	cg.blk = bodyBlk
	cg.genLoop(endBlk, incBlk, func() { cg.genStmt(s.Body) })
	if !cg.blk.Terminated() {
		cg.blk.Br(incBlk)
	}

	cg.blk = incBlk
	if s.Post != nil {
		cg.genExpr(s.Post)
	}
	cg.blk.Br(condBlk)

	cg.blk = endBlk
	cg.popScope()
}

//  Expressions

// genCond lowers e and normalizes it to an i1: integers compare not equal
// to zero, floats to 0.0, pointers to null; a bool passes through.
func (cg *CodeGen) genCond(e Expr) *ir.Value {
	v := cg.genExpr(e)
	return cg.toBool(v, decay(exprType(e)))
}

func (cg *CodeGen) toBool(v *ir.Value, t *Type) *ir.Value {
	switch {
	case t.Kind == TypeBool:
		return v
	case t.IsFloat():
		zero := cg.blk.ConstFloat(cg.irType(t), 0)
		return cg.blk.FCmp(ir.PredONE, v, zero)
	case t.Kind == TypePointer:
		return cg.blk.ICmp(ir.PredNE, v, cg.blk.ConstNull())
	default:
		zero := cg.blk.ConstInt(cg.irType(t), 0)
		return cg.blk.ICmp(ir.PredNE, v, zero)
	}
}

func (cg *CodeGen) genExpr(e Expr) *ir.Value {
	switch e := e.(type) {
	case *IntLit:
		return cg.blk.ConstInt(cg.irType(e.Type), e.Value)
	case *FloatLit:
		return cg.blk.ConstFloat(cg.irType(e.Type), e.Value)
	case *CharLit:
		return cg.blk.ConstInt(ir.I8, int64(e.Value))
	case *BoolLit:
		val := int64(0)
		if e.Value {
			val = 1
		}
		return cg.blk.ConstInt(ir.I1, val)
	case *NullLit:
		return cg.blk.ConstNull()
	case *StringLit:
		return cg.blk.GlobalAddr(cg.internString(e.Value))
	case *Ident:
		return cg.genIdent(e)
	case *UnaryExpr:
		return cg.genUnary(e)
	case *BinaryExpr:
		return cg.genBinary(e)
	case *LogicalExpr:
		return cg.genLogical(e)
	case *AssignExpr:
		return cg.genAssign(e)
	case *CallExpr:
		return cg.genCall(e.Tok, e.Name, nil, e.Args)
	case *MessageExpr:
		// a send is a call to the underscore-joined selector with the
		// receiver as first argument; there is no dynamic dispatch
		return cg.genCall(e.Tok, e.Selector, e.Receiver, e.Args)
	case *IndexExpr, *MemberExpr:
		addr, t, ok := cg.genLValue(e)
		if !ok {
			return cg.blk.ConstInt(ir.I32, 0)
		}
		return cg.loadValue(addr, t)
	case *CastExpr:
		v := cg.genExpr(e.Operand)
		return cg.emitCast(v, decay(exprType(e.Operand)), e.To, e.Tok)
	case *IncDecExpr:
		return cg.genIncDec(e)
	}
	cg.diags.errorAt(e.Pos(), "cannot lower expression")
	return cg.blk.ConstInt(ir.I32, 0)
}

// loadValue reads a value of type t from addr. Arrays do not load; their
// address is the decayed pointer value.
func (cg *CodeGen) loadValue(addr *ir.Value, t *Type) *ir.Value {
	if t.Kind == TypeArray {
		return addr
	}
	return cg.blk.Load(cg.irType(t), addr)
}

func (cg *CodeGen) genIdent(e *Ident) *ir.Value {
	if l, ok := cg.lookupLocal(e.Name); ok {
		return cg.loadValue(l.addr, l.typ)
	}
	if t, ok := cg.globals[e.Name]; ok {
		return cg.loadValue(cg.blk.GlobalAddr(e.Name), t)
	}
	if ec, ok := cg.enums[e.Name]; ok {
		return cg.blk.ConstInt(cg.irType(ec.typ.Base), ec.value)
	}
	cg.diags.errorAt(e.Tok, "unknown variable %q", e.Name)
	return cg.blk.ConstInt(ir.I32, 0)
}

func (cg *CodeGen) genUnary(e *UnaryExpr) *ir.Value {
	switch e.Op {
	case PLUS:
		return cg.genExpr(e.Operand)
	case MINUS:
		t := decay(exprType(e.Operand))
		v := cg.genExpr(e.Operand)
		if t.IsFloat() {
			zero := cg.blk.ConstFloat(cg.irType(t), 0)
			return cg.blk.Bin(ir.OpFSub, cg.irType(t), zero, v)
		}
		zero := cg.blk.ConstInt(cg.irType(t), 0)
		return cg.blk.Bin(ir.OpSub, cg.irType(t), zero, v)
	case NOT:
		b := cg.genCond(e.Operand)
		one := cg.blk.ConstInt(ir.I1, 1)
		return cg.blk.Bin(ir.OpXor, ir.I1, b, one)
	case TILDE:
		t := decay(exprType(e.Operand))
		v := cg.genExpr(e.Operand)
		ones := cg.blk.ConstInt(cg.irType(t), -1)
		return cg.blk.Bin(ir.OpXor, cg.irType(t), v, ones)
	case STAR:
		addr := cg.genExpr(e.Operand)
		pt := decay(exprType(e.Operand))
		return cg.loadValue(addr, pt.Elem)
	case AMP:
		addr, _, ok := cg.genLValue(e.Operand)
		if !ok {
			return cg.blk.ConstNull()
		}
		return addr
	}
	cg.diags.errorAt(e.Tok, "cannot lower unary operator %s", e.Op)
	return cg.blk.ConstInt(ir.I32, 0)
}

func (cg *CodeGen) genBinary(e *BinaryExpr) *ir.Value {
	lt := decay(exprType(e.Left))
	rt := decay(exprType(e.Right))
	lv := cg.genExpr(e.Left)
	rv := cg.genExpr(e.Right)
	return cg.lowerBinary(e.Tok, e.Op, lv, lt, rv, rt)
}

// lowerBinary emits one binary operation with the usual conversions
// applied. It is shared by BinaryExpr and the combine step of compound
// assignment.
func (cg *CodeGen) lowerBinary(tok Token, op TokenType, lv *ir.Value, lt *Type, rv *ir.Value, rt *Type) *ir.Value {
	// pointer arithmetic scales by the pointee size through gep
	if lt.Kind == TypePointer && (op == PLUS || op == MINUS) && rt.IsInteger() {
		idx := cg.convert(rv, rt, LongType(), tok)
		if op == MINUS {
			zero := cg.blk.ConstInt(ir.I64, 0)
			idx = cg.blk.Bin(ir.OpSub, ir.I64, zero, idx)
		}
		return cg.blk.GEP(cg.irType(lt.Elem), lv, idx)
	}
	if rt.Kind == TypePointer && op == PLUS && lt.IsInteger() {
		idx := cg.convert(lv, lt, LongType(), tok)
		return cg.blk.GEP(cg.irType(rt.Elem), rv, idx)
	}
	if lt.Kind == TypePointer && rt.Kind == TypePointer {
		switch op {
		case MINUS:
			li := cg.blk.Cast(ir.OpPtrToInt, ir.I64, lv)
			ri := cg.blk.Cast(ir.OpPtrToInt, ir.I64, rv)
			diff := cg.blk.Bin(ir.OpSub, ir.I64, li, ri)
			size := cg.blk.ConstInt(ir.I64, int64(lt.Elem.Size()))
			return cg.blk.Bin(ir.OpSDiv, ir.I64, diff, size)
		case EQ, NE, LT, GT, LE, GE:
			return cg.blk.ICmp(cmpPred(op, true, false), lv, rv)
		}
	}

	// shifts keep the left operand's type; only the count converts
	if op == SHL || op == SHR {
		count := cg.convert(rv, rt, lt, tok)
		irT := cg.irType(lt)
		if op == SHL {
			return cg.blk.Bin(ir.OpShl, irT, lv, count)
		}
		return cg.blk.Bin(pick(lt.IsUnsigned(), ir.OpLShr, ir.OpAShr), irT, lv, count)
	}

	ct := commonArith(lt, rt)
	l := cg.convert(lv, lt, ct, tok)
	r := cg.convert(rv, rt, ct, tok)
	irT := cg.irType(ct)

	switch op {
	case EQ, NE, LT, GT, LE, GE:
		if ct.IsFloat() {
			return cg.blk.FCmp(cmpPred(op, false, true), l, r)
		}
		return cg.blk.ICmp(cmpPred(op, ct.IsUnsigned(), false), l, r)
	}

	var irOp ir.Op
	switch op {
	case PLUS:
		irOp = pick(ct.IsFloat(), ir.OpFAdd, ir.OpAdd)
	case MINUS:
		irOp = pick(ct.IsFloat(), ir.OpFSub, ir.OpSub)
	case STAR:
		irOp = pick(ct.IsFloat(), ir.OpFMul, ir.OpMul)
	case SLASH:
		switch {
		case ct.IsFloat():
			irOp = ir.OpFDiv
		case ct.IsUnsigned():
			irOp = ir.OpUDiv
		default:
			irOp = ir.OpSDiv
		}
	case PERCENT:
		irOp = pick(ct.IsUnsigned(), ir.OpURem, ir.OpSRem)
	case AMP:
		irOp = ir.OpAnd
	case PIPE:
		irOp = ir.OpOr
	case CARET:
		irOp = ir.OpXor
	default:
		cg.diags.errorAt(tok, "cannot lower binary operator %s", op)
		return l
	}
	return cg.blk.Bin(irOp, irT, l, r)
}

func pick(cond bool, a, b ir.Op) ir.Op {
	if cond {
		return a
	}
	return b
}

// cmpPred maps a comparison token to the IR predicate. Pointers compare
// unsigned.
func cmpPred(op TokenType, unsigned, float bool) ir.Pred {
	if float {
		switch op {
		case EQ:
			return ir.PredOEQ
		case NE:
			return ir.PredONE
		case LT:
			return ir.PredOLT
		case GT:
			return ir.PredOGT
		case LE:
			return ir.PredOLE
		case GE:
			return ir.PredOGE
		}
	}
	switch op {
	case EQ:
		return ir.PredEQ
	case NE:
		return ir.PredNE
	case LT:
		return pickPred(unsigned, ir.PredULT, ir.PredSLT)
	case GT:
		return pickPred(unsigned, ir.PredUGT, ir.PredSGT)
	case LE:
		return pickPred(unsigned, ir.PredULE, ir.PredSLE)
	case GE:
		return pickPred(unsigned, ir.PredUGE, ir.PredSGE)
	}
	return ir.PredEQ
}

func pickPred(cond bool, a, b ir.Pred) ir.Pred {
	if cond {
		return a
	}
	return b
}

// genLogical lowers && and || with short-circuiting. The right operand is
// evaluated in its own block; the join phi merges the short-circuit
// constant flowing from the original block with the evaluated right-hand
// boolean flowing from wherever the right operand finished.
func (cg *CodeGen) genLogical(e *LogicalExpr) *ir.Value {
	left := cg.genCond(e.Left)

	shortVal := int64(0) // a && b is false when a is false
	prefix := "land"
	if e.Op == OR_OR {
		shortVal = 1 // a || b is true when a is true
		prefix = "lor"
	}
	shortConst := cg.blk.ConstInt(ir.I1, shortVal)
	origBlk := cg.blk

	rhsBlk := cg.newBlock(prefix + ".rhs")
	endBlk := cg.newBlock(prefix + ".end")
	if e.Op == AND_AND {
		origBlk.CondBr(left, rhsBlk, endBlk)
	} else {
		origBlk.CondBr(left, endBlk, rhsBlk)
	}

	cg.blk = rhsBlk
	right := cg.genCond(e.Right)
	rhsEnd := cg.blk // the right operand may itself have branched
	rhsEnd.Br(endBlk)

	cg.blk = endBlk
	return endBlk.Phi(ir.I1, []*ir.Value{shortConst, right}, []*ir.Block{origBlk, rhsEnd})
}

func (cg *CodeGen) genAssign(e *AssignExpr) *ir.Value {
	addr, tt, ok := cg.genLValue(e.Target)
	if !ok {
		return cg.blk.ConstInt(ir.I32, 0)
	}

	if op, compound := compoundOp(e.Op); compound {
		cur := cg.loadValue(addr, tt)
		rv := cg.genExpr(e.Value)
		rt := decay(exprType(e.Value))
		result := cg.lowerBinary(e.Tok, op, cur, tt, rv, rt)
		resultT := tt
		if op != SHL && op != SHR && tt.IsArithmetic() && rt.IsArithmetic() {
			resultT = commonArith(tt, rt)
		}
		result = cg.convert(result, resultT, tt, e.Tok)
		cg.blk.Store(result, addr)
		return result
	}

	v := cg.genExpr(e.Value)
	v = cg.convert(v, decay(exprType(e.Value)), tt, e.Tok)
	cg.blk.Store(v, addr)
	return v
}

func (cg *CodeGen) genCall(tok Token, name string, receiver Expr, args []Expr) *ir.Value {
	sig, ok := cg.funcs[name]
	if !ok {
		cg.diags.errorAt(tok, "call to unknown function %q", name)
		return cg.blk.ConstInt(ir.I32, 0)
	}

	all := args
	if receiver != nil {
		all = append([]Expr{receiver}, args...)
	}
	vals := make([]*ir.Value, len(all))
	for i, arg := range all {
		v := cg.genExpr(arg)
		if i < len(sig.Params) {
			v = cg.convert(v, decay(exprType(arg)), sig.Params[i], tok)
		}
		vals[i] = v
	}
	return cg.blk.Call(cg.irType(sig.Ret), name, vals)
}

func (cg *CodeGen) genIncDec(e *IncDecExpr) *ir.Value {
	addr, t, ok := cg.genLValue(e.Operand)
	if !ok {
		return cg.blk.ConstInt(ir.I32, 0)
	}
	old := cg.loadValue(addr, t)

	var next *ir.Value
	switch {
	case t.Kind == TypePointer:
		step := int64(1)
		if e.Op == MINUS_MINUS {
			step = -1
		}
		idx := cg.blk.ConstInt(ir.I64, step)
		next = cg.blk.GEP(cg.irType(t.Elem), old, idx)
	case t.IsFloat():
		one := cg.blk.ConstFloat(cg.irType(t), 1)
		next = cg.blk.Bin(pick(e.Op == PLUS_PLUS, ir.OpFAdd, ir.OpFSub), cg.irType(t), old, one)
	default:
		one := cg.blk.ConstInt(cg.irType(t), 1)
		next = cg.blk.Bin(pick(e.Op == PLUS_PLUS, ir.OpAdd, ir.OpSub), cg.irType(t), old, one)
	}
	cg.blk.Store(next, addr)
	if e.Postfix {
		return old
	}
	return next
}

//  Lvalues

// genLValue resolves an addressable expression to the address of its
// storage: a plain name, a subscript, a dereference, or a member access.
func (cg *CodeGen) genLValue(e Expr) (*ir.Value, *Type, bool) {
	switch e := e.(type) {
	case *Ident:
		if l, ok := cg.lookupLocal(e.Name); ok {
			return l.addr, l.typ, true
		}
		if t, ok := cg.globals[e.Name]; ok {
			return cg.blk.GlobalAddr(e.Name), t, true
		}
		cg.diags.errorAt(e.Tok, "unknown variable %q", e.Name)
		return nil, nil, false
	case *UnaryExpr:
		if e.Op != STAR {
			break
		}
		addr := cg.genExpr(e.Operand)
		pt := decay(exprType(e.Operand))
		return addr, pt.Elem, true
	case *IndexExpr:
		base := cg.genExpr(e.Base) // arrays decay to their address
		bt := decay(exprType(e.Base))
		idx := cg.genExpr(e.Index)
		idx = cg.convert(idx, decay(exprType(e.Index)), LongType(), e.Tok)
		return cg.blk.GEP(cg.irType(bt.Elem), base, idx), bt.Elem, true
	case *MemberExpr:
		var base *ir.Value
		var st *Type
		if e.Arrow {
			base = cg.genExpr(e.Base)
			st = decay(exprType(e.Base)).Elem
		} else {
			var ok bool
			base, st, ok = cg.genLValue(e.Base)
			if !ok {
				return nil, nil, false
			}
		}
		f, ok := st.FieldByName(e.Member)
		if !ok {
			cg.diags.errorAt(e.Tok, "no field %q in %s", e.Member, st)
			return nil, nil, false
		}
		return cg.blk.FieldAddr(base, int64(f.Offset)), f.Type, true
	}
	cg.diags.errorAt(e.Pos(), "expression is not addressable")
	return nil, nil, false
}

//  Conversions

// convert emits the instructions for an implicit conversion; it shares the
// cast matrix with explicit casts but only runs for pairs the analyzer
// already admitted.
func (cg *CodeGen) convert(v *ir.Value, from, to *Type, tok Token) *ir.Value {
	if from.Equal(to) {
		return v
	}
	return cg.emitCast(v, from, to, tok)
}

// emitCast lowers a scalar conversion. Integer pairs truncate or extend by
// width, zero-extending iff the source is unsigned; integer/float pairs use
// signedness-aware conversions; float pairs truncate or extend; pointer
// pairs reinterpret; integer/pointer pairs reinterpret the address in
// either direction.
func (cg *CodeGen) emitCast(v *ir.Value, from, to *Type, tok Token) *ir.Value {
	if from.Kind == TypeEnum {
		from = from.Base
	}
	if to.Kind == TypeEnum {
		to = to.Base
	}
	if from.Equal(to) {
		return v
	}

	// conversion to bool is normalization, not truncation
	if to.Kind == TypeBool {
		return cg.toBool(v, from)
	}

	fromIR, toIR := cg.irType(from), cg.irType(to)
	switch {
	case from.IsInteger() && to.IsInteger():
		switch {
		case toIR.Bits < fromIR.Bits:
			return cg.blk.Cast(ir.OpTrunc, toIR, v)
		case toIR.Bits > fromIR.Bits:
			if from.IsUnsigned() {
				return cg.blk.Cast(ir.OpZExt, toIR, v)
			}
			return cg.blk.Cast(ir.OpSExt, toIR, v)
		default:
			return v // same width, representation unchanged
		}
	case from.IsInteger() && to.IsFloat():
		if from.IsUnsigned() {
			return cg.blk.Cast(ir.OpUIToFP, toIR, v)
		}
		return cg.blk.Cast(ir.OpSIToFP, toIR, v)
	case from.IsFloat() && to.IsInteger():
		if to.IsUnsigned() {
			return cg.blk.Cast(ir.OpFPToUI, toIR, v)
		}
		return cg.blk.Cast(ir.OpFPToSI, toIR, v)
	case from.IsFloat() && to.IsFloat():
		if toIR.Bits < fromIR.Bits {
			return cg.blk.Cast(ir.OpFPTrunc, toIR, v)
		}
		return cg.blk.Cast(ir.OpFPExt, toIR, v)
	case from.Kind == TypePointer && to.Kind == TypePointer:
		return cg.blk.Cast(ir.OpBitcast, ir.Ptr, v)
	case from.Kind == TypeArray && to.Kind == TypePointer:
		return v // the value is already the array's address
	case from.IsInteger() && to.Kind == TypePointer:
		return cg.blk.Cast(ir.OpIntToPtr, ir.Ptr, v)
	case from.Kind == TypePointer && to.IsInteger():
		return cg.blk.Cast(ir.OpPtrToInt, toIR, v)
	}
	cg.diags.errorAt(tok, "unsupported cast from %s to %s", from, to)
	return v
}

//  Type mapping

// irStruct maps a completed struct type to its named IR aggregate, cached
// so every reference shares one instance.
func (cg *CodeGen) irStruct(t *Type) *ir.Type {
	if cached, ok := cg.structCache[t.Name]; ok {
		return cached
	}
	// register before the fields so a pointer back to the struct terminates
	s := ir.StructOf(t.Name, nil)
	cg.structCache[t.Name] = s
	fields := make([]*ir.Type, len(t.Fields))
	for i, f := range t.Fields {
		fields[i] = cg.irType(f.Type)
	}
	s.Fields = fields
	return s
}

func (cg *CodeGen) irType(t *Type) *ir.Type {
	switch t.Kind {
	case TypeVoid:
		return ir.Void
	case TypeBool:
		return ir.I1
	case TypeChar:
		return ir.I8
	case TypeShort:
		return ir.I16
	case TypeInt:
		return ir.I32
	case TypeLong:
		return ir.I64
	case TypeFloat:
		return ir.F32
	case TypeDouble:
		return ir.F64
	case TypePointer:
		return ir.Ptr
	case TypeArray:
		return ir.ArrayOf(cg.irType(t.Elem), t.Len)
	case TypeStruct:
		return cg.irStruct(t)
	case TypeEnum:
		return cg.irType(t.Base)
	}
	return ir.I32
}

// exprType reads the resolved type off an expression node.
func exprType(e Expr) *Type {
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
		return e.Type
	case *UnaryExpr:
		return e.Type
	case *BinaryExpr:
		return e.Type
	case *LogicalExpr:
		return e.Type
	case *AssignExpr:
		return e.Type
	case *CallExpr:
		return e.Type
	case *MessageExpr:
		return e.Type
	case *IndexExpr:
		return e.Type
	case *MemberExpr:
		return e.Type
	case *CastExpr:
		return e.Type
	case *IncDecExpr:
		return e.Type
	}
	return IntType()
}
