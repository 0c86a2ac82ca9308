// Package ir is the backend-neutral SSA intermediate representation the
// compiler lowers to. A Module holds named struct layouts, globals, and
// functions; a Function is a list of basic blocks; every instruction that
// produces a result is a Value with a numeric ID unique within its function.
// Locals are modeled as explicit allocas with loads and stores, so phi nodes
// appear only where control-flow merges carry a value (short-circuit joins).
package ir

import "fmt"

// Kind is the tag of an IR type.
type Kind int

const (
	KindVoid Kind = iota
	KindInt
	KindFloat
	KindPtr
	KindArray
	KindStruct
)

// Type is one IR-level type. Integer types carry only a width; signedness
// lives in the instruction that needs it (division, extension, comparison).
type Type struct {
	Kind   Kind
	Bits   int   // Int and Float widths
	Elem   *Type // Array element
	Len    int   // Array length
	Name   string
	Fields []*Type // Struct members in declaration order
}

var (
	Void = &Type{Kind: KindVoid}
	I1   = &Type{Kind: KindInt, Bits: 1}
	I8   = &Type{Kind: KindInt, Bits: 8}
	I16  = &Type{Kind: KindInt, Bits: 16}
	I32  = &Type{Kind: KindInt, Bits: 32}
	I64  = &Type{Kind: KindInt, Bits: 64}
	F32  = &Type{Kind: KindFloat, Bits: 32}
	F64  = &Type{Kind: KindFloat, Bits: 64}
	Ptr  = &Type{Kind: KindPtr}
)

// ArrayOf returns the IR array type [n x elem].
func ArrayOf(elem *Type, n int) *Type {
	return &Type{Kind: KindArray, Elem: elem, Len: n}
}

// StructOf returns a named aggregate with the given member types.
func StructOf(name string, fields []*Type) *Type {
	return &Type{Kind: KindStruct, Name: name, Fields: fields}
}

func (t *Type) String() string {
	switch t.Kind {
	case KindVoid:
		return "void"
	case KindInt:
		return fmt.Sprintf("i%d", t.Bits)
	case KindFloat:
		return fmt.Sprintf("f%d", t.Bits)
	case KindPtr:
		return "ptr"
	case KindArray:
		return fmt.Sprintf("[%d x %s]", t.Len, t.Elem)
	case KindStruct:
		return "%" + t.Name
	}
	return fmt.Sprintf("Type(%d)", int(t.Kind))
}

// Op identifies an instruction.
type Op int

const (
	OpParam Op = iota // incoming function parameter
	OpConstInt
	OpConstFloat
	OpConstNull
	OpGlobalAddr // address of a module global
	OpAlloca
	OpLoad
	OpStore
	OpGEP       // base + index * sizeof(elem)
	OpFieldAddr // base + constant byte offset

	OpAdd
	OpSub
	OpMul
	OpSDiv
	OpUDiv
	OpSRem
	OpURem
	OpFAdd
	OpFSub
	OpFMul
	OpFDiv
	OpAnd
	OpOr
	OpXor
	OpShl
	OpLShr
	OpAShr

	OpICmp
	OpFCmp

	OpTrunc
	OpZExt
	OpSExt
	OpFPTrunc
	OpFPExt
	OpSIToFP
	OpUIToFP
	OpFPToSI
	OpFPToUI
	OpBitcast
	OpIntToPtr
	OpPtrToInt

	OpCall
	OpBr
	OpCondBr
	OpPhi
	OpRet
)

var opNames = [...]string{
	OpParam:      "param",
	OpConstInt:   "const",
	OpConstFloat: "const",
	OpConstNull:  "const",
	OpGlobalAddr: "globaladdr",
	OpAlloca:     "alloca",
	OpLoad:       "load",
	OpStore:      "store",
	OpGEP:        "gep",
	OpFieldAddr:  "fieldaddr",
	OpAdd:        "add",
	OpSub:        "sub",
	OpMul:        "mul",
	OpSDiv:       "sdiv",
	OpUDiv:       "udiv",
	OpSRem:       "srem",
	OpURem:       "urem",
	OpFAdd:       "fadd",
	OpFSub:       "fsub",
	OpFMul:       "fmul",
	OpFDiv:       "fdiv",
	OpAnd:        "and",
	OpOr:         "or",
	OpXor:        "xor",
	OpShl:        "shl",
	OpLShr:       "lshr",
	OpAShr:       "ashr",
	OpICmp:       "icmp",
	OpFCmp:       "fcmp",
	OpTrunc:      "trunc",
	OpZExt:       "zext",
	OpSExt:       "sext",
	OpFPTrunc:    "fptrunc",
	OpFPExt:      "fpext",
	OpSIToFP:     "sitofp",
	OpUIToFP:     "uitofp",
	OpFPToSI:     "fptosi",
	OpFPToUI:     "fptoui",
	OpBitcast:    "bitcast",
	OpIntToPtr:   "inttoptr",
	OpPtrToInt:   "ptrtoint",
	OpCall:       "call",
	OpBr:         "br",
	OpCondBr:     "condbr",
	OpPhi:        "phi",
	OpRet:        "ret",
}

func (op Op) String() string {
	if int(op) >= 0 && int(op) < len(opNames) {
		return opNames[op]
	}
	return fmt.Sprintf("Op(%d)", int(op))
}

// Pred is a comparison predicate. The s/u prefix selects signed or unsigned
// integer ordering; the o prefix is ordered float comparison.
type Pred string

const (
	PredEQ  Pred = "eq"
	PredNE  Pred = "ne"
	PredSLT Pred = "slt"
	PredSLE Pred = "sle"
	PredSGT Pred = "sgt"
	PredSGE Pred = "sge"
	PredULT Pred = "ult"
	PredULE Pred = "ule"
	PredUGT Pred = "ugt"
	PredUGE Pred = "uge"
	PredOEQ Pred = "oeq"
	PredONE Pred = "one"
	PredOLT Pred = "olt"
	PredOLE Pred = "ole"
	PredOGT Pred = "ogt"
	PredOGE Pred = "oge"
)

// Value is one instruction. ID is -1 when the instruction produces no
// result (store, br, ret). Args are the operand values; Blocks are branch
// targets or phi-incoming blocks, pairwise with Args for a phi.
type Value struct {
	ID       int
	Op       Op
	Type     *Type
	ElemType *Type // alloca's slot type / gep's element type
	Args     []*Value
	Int      int64
	Float    float64
	Sym      string // callee, global name, or alloca's variable name
	Pred     Pred
	Blocks   []*Block
}

// Name returns the value's printed SSA name.
func (v *Value) Name() string {
	return fmt.Sprintf("%%%d", v.ID)
}

// Block is one basic block. The instruction list ends with at most one
// terminator (br, condbr, ret).
type Block struct {
	Label  string
	Instrs []*Value
	fn     *Function
}

// Function is one IR function. Declared functions (externs) have no blocks.
type Function struct {
	Name     string
	Ret      *Type
	Params   []*Value // OpParam values, in order; Sym is the parameter name
	Variadic bool
	Blocks   []*Block
	nextID   int
}

// GlobalKind selects how a module global is initialized.
type GlobalKind int

const (
	GlobalInt GlobalKind = iota
	GlobalFloat
	GlobalNull
	GlobalStr
	GlobalZero // zero-initialized aggregate or scalar
	GlobalRef  // pointer initialized with the address of another global
)

// Global is one module-level variable or constant.
type Global struct {
	Name  string
	Type  *Type
	Kind  GlobalKind
	Int   int64
	Float float64
	Str   string
	Ref   string // GlobalRef target
	Const bool
}

// Module is the unit of IR handed to a backend.
type Module struct {
	Name    string
	Structs []*Type
	Globals []*Global
	Funcs   []*Function
}

// NewModule returns an empty module.
func NewModule(name string) *Module {
	return &Module{Name: name}
}

// NewFunction appends a function with the given signature and returns it.
// Parameter values are created eagerly so the caller can spill them.
func (m *Module) NewFunction(name string, ret *Type, paramNames []string, paramTypes []*Type, variadic bool) *Function {
	fn := &Function{Name: name, Ret: ret, Variadic: variadic}
	for i, pt := range paramTypes {
		fn.Params = append(fn.Params, &Value{ID: fn.nextID, Op: OpParam, Type: pt, Sym: paramNames[i]})
		fn.nextID++
	}
	m.Funcs = append(m.Funcs, fn)
	return fn
}

// NewBlock appends an empty block with the given label.
func (fn *Function) NewBlock(label string) *Block {
	b := &Block{Label: label, fn: fn}
	fn.Blocks = append(fn.Blocks, b)
	return b
}

// IsDecl reports whether fn is a declaration without a body.
func (fn *Function) IsDecl() bool { return len(fn.Blocks) == 0 }

func (b *Block) add(v *Value) *Value {
	b.Instrs = append(b.Instrs, v)
	return v
}

func (b *Block) newValue(op Op, t *Type) *Value {
	v := &Value{ID: b.fn.nextID, Op: op, Type: t}
	b.fn.nextID++
	return v
}

// ConstInt emits an integer constant of type t.
func (b *Block) ConstInt(t *Type, val int64) *Value {
	v := b.newValue(OpConstInt, t)
	v.Int = val
	return b.add(v)
}

// ConstFloat emits a floating constant of type t.
func (b *Block) ConstFloat(t *Type, val float64) *Value {
	v := b.newValue(OpConstFloat, t)
	v.Float = val
	return b.add(v)
}

// ConstNull emits the null pointer constant.
func (b *Block) ConstNull() *Value {
	return b.add(b.newValue(OpConstNull, Ptr))
}

// GlobalAddr emits the address of the named module global.
func (b *Block) GlobalAddr(name string) *Value {
	v := b.newValue(OpGlobalAddr, Ptr)
	v.Sym = name
	return b.add(v)
}

// Alloca emits a stack slot for one value of type t. name is carried for
// readable output only.
func (b *Block) Alloca(t *Type, name string) *Value {
	v := b.newValue(OpAlloca, Ptr)
	v.ElemType = t
	v.Sym = name
	return b.add(v)
}

// Load emits a read of type t through addr.
func (b *Block) Load(t *Type, addr *Value) *Value {
	v := b.newValue(OpLoad, t)
	v.Args = []*Value{addr}
	return b.add(v)
}

// Store emits a write of val through addr.
func (b *Block) Store(val, addr *Value) *Value {
	v := &Value{ID: -1, Op: OpStore}
	v.Args = []*Value{val, addr}
	return b.add(v)
}

// GEP emits base + index*sizeof(elem), producing a pointer.
func (b *Block) GEP(elem *Type, base, index *Value) *Value {
	v := b.newValue(OpGEP, Ptr)
	v.Args = []*Value{base, index}
	v.ElemType = elem
	return b.add(v)
}

// FieldAddr emits base + offset bytes, producing a pointer.
func (b *Block) FieldAddr(base *Value, offset int64) *Value {
	v := b.newValue(OpFieldAddr, Ptr)
	v.Args = []*Value{base}
	v.Int = offset
	return b.add(v)
}

// Bin emits a binary arithmetic/bitwise instruction of type t.
func (b *Block) Bin(op Op, t *Type, l, r *Value) *Value {
	v := b.newValue(op, t)
	v.Args = []*Value{l, r}
	return b.add(v)
}

// ICmp emits an integer comparison producing i1.
func (b *Block) ICmp(pred Pred, l, r *Value) *Value {
	v := b.newValue(OpICmp, I1)
	v.Pred = pred
	v.Args = []*Value{l, r}
	return b.add(v)
}

// FCmp emits an ordered float comparison producing i1.
func (b *Block) FCmp(pred Pred, l, r *Value) *Value {
	v := b.newValue(OpFCmp, I1)
	v.Pred = pred
	v.Args = []*Value{l, r}
	return b.add(v)
}

// Cast emits a conversion instruction to type t.
func (b *Block) Cast(op Op, t *Type, val *Value) *Value {
	v := b.newValue(op, t)
	v.Args = []*Value{val}
	return b.add(v)
}

// Call emits a call to the named function. t is the result type; Void calls
// produce no usable value but still get an ID of -1.
func (b *Block) Call(t *Type, name string, args []*Value) *Value {
	var v *Value
	if t.Kind == KindVoid {
		v = &Value{ID: -1, Op: OpCall, Type: t}
	} else {
		v = b.newValue(OpCall, t)
	}
	v.Sym = name
	v.Args = args
	return b.add(v)
}

// Br emits an unconditional branch to target.
func (b *Block) Br(target *Block) {
	b.add(&Value{ID: -1, Op: OpBr, Blocks: []*Block{target}})
}

// CondBr branches to ifTrue when cond (an i1) is nonzero, else to ifFalse.
func (b *Block) CondBr(cond *Value, ifTrue, ifFalse *Block) {
	b.add(&Value{ID: -1, Op: OpCondBr, Args: []*Value{cond}, Blocks: []*Block{ifTrue, ifFalse}})
}

// Phi merges one incoming value per predecessor block; vals and blocks are
// pairwise.
func (b *Block) Phi(t *Type, vals []*Value, blocks []*Block) *Value {
	v := b.newValue(OpPhi, t)
	v.Args = vals
	v.Blocks = blocks
	return b.add(v)
}

// Ret emits a return; val is nil for a void return.
func (b *Block) Ret(val *Value) {
	v := &Value{ID: -1, Op: OpRet}
	if val != nil {
		v.Args = []*Value{val}
	}
	b.add(v)
}

// Terminated reports whether the block already ends in a terminator.
func (b *Block) Terminated() bool {
	if len(b.Instrs) == 0 {
		return false
	}
	switch b.Instrs[len(b.Instrs)-1].Op {
	case OpBr, OpCondBr, OpRet:
		return true
	}
	return false
}
