package compiler

// builtin is one externally linked runtime routine the compiler knows the
// signature of without a source declaration.
type builtin struct {
	Name string
	Sig  *Type
}

// runtimeBuiltins lists the standard-library symbols every compilation unit
// may call. The code generator declares each one it cannot find a body for;
// the semantic analyzer checks calls against these signatures.
func runtimeBuiltins() []builtin {
	voidp := PointerTo(VoidType())
	charp := PointerTo(CharType())
	return []builtin{
		{"malloc", FuncType(voidp, []*Type{LongType()}, false)},
		{"free", FuncType(VoidType(), []*Type{voidp}, false)},
		{"memcpy", FuncType(voidp, []*Type{voidp, voidp, LongType()}, false)},
		{"memmove", FuncType(voidp, []*Type{voidp, voidp, LongType()}, false)},
		{"memset", FuncType(voidp, []*Type{voidp, IntType(), LongType()}, false)},
		{"memcmp", FuncType(IntType(), []*Type{voidp, voidp, LongType()}, false)},
		{"strlen", FuncType(LongType(), []*Type{charp}, false)},
		{"strcpy", FuncType(charp, []*Type{charp, charp}, false)},
		{"strcmp", FuncType(IntType(), []*Type{charp, charp}, false)},
		{"putchar", FuncType(IntType(), []*Type{IntType()}, false)},
		{"puts", FuncType(IntType(), []*Type{charp}, false)},
		{"printf", FuncType(IntType(), []*Type{charp}, true)},
		{"outb", FuncType(VoidType(), []*Type{IntType(), IntType()}, false)},
		{"inb", FuncType(IntType(), []*Type{IntType()}, false)},
	}
}
