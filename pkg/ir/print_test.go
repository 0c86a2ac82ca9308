package ir

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrintGlobals(t *testing.T) {
	tests := []struct {
		name   string
		global *Global
		want   string
	}{
		{
			name:   "IntVar",
			global: &Global{Name: "counter", Type: I32, Kind: GlobalInt, Int: 42},
			want:   "@counter = global i32 42",
		},
		{
			name:   "ConstFloat",
			global: &Global{Name: "pi", Type: F64, Kind: GlobalFloat, Float: 3.5, Const: true},
			want:   "@pi = constant f64 3.5",
		},
		{
			name:   "NullPtr",
			global: &Global{Name: "head", Type: Ptr, Kind: GlobalNull},
			want:   "@head = global ptr null",
		},
		{
			name:   "ZeroStruct",
			global: &Global{Name: "origin", Type: StructOf("Point", nil), Kind: GlobalZero},
			want:   "@origin = global %Point zeroinitializer",
		},
		{
			name:   "Str",
			global: &Global{Name: ".str.0", Type: ArrayOf(I8, 3), Kind: GlobalStr, Str: "hi", Const: true},
			want:   `@.str.0 = constant [3 x i8] "hi\00"`,
		},
		{
			name:   "StrEscapes",
			global: &Global{Name: ".str.1", Type: ArrayOf(I8, 4), Kind: GlobalStr, Str: "a\nb", Const: true},
			want:   `@.str.1 = constant [4 x i8] "a\0ab\00"`,
		},
		{
			name:   "RefToStr",
			global: &Global{Name: "greeting", Type: Ptr, Kind: GlobalRef, Ref: ".str.0"},
			want:   "@greeting = global ptr @.str.0",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.global.String())
		})
	}
}

func TestPrintFunction(t *testing.T) {
	m := NewModule("t")
	fn := m.NewFunction("inc", I32, []string{"x"}, []*Type{I32}, false)
	blk := fn.NewBlock("entry")
	slot := blk.Alloca(I32, "x")
	blk.Store(fn.Params[0], slot)
	loaded := blk.Load(I32, slot)
	one := blk.ConstInt(I32, 1)
	sum := blk.Bin(OpAdd, I32, loaded, one)
	blk.Ret(sum)

	got := fn.String()
	want := `define i32 @inc(i32 %0) {
entry:
  %1 = alloca i32 ; x
  store i32 %0, ptr %1
  %2 = load i32, ptr %1
  %3 = const i32 1
  %4 = add i32 %2, %3
  ret i32 %4
}
`
	assert.Equal(t, want, got)
}

func TestPrintDeclare(t *testing.T) {
	m := NewModule("t")
	fn := m.NewFunction("malloc", Ptr, []string{"p0"}, []*Type{I64}, false)
	assert.Equal(t, "declare ptr @malloc(i64)\n", fn.String())
}

func TestPrintControlFlow(t *testing.T) {
	m := NewModule("t")
	fn := m.NewFunction("f", Void, []string{"n"}, []*Type{I32}, false)
	entry := fn.NewBlock("entry")
	then := fn.NewBlock("then.1")
	end := fn.NewBlock("endif.2")

	zero := entry.ConstInt(I32, 0)
	cmp := entry.ICmp(PredSGT, fn.Params[0], zero)
	entry.CondBr(cmp, then, end)
	then.Br(end)
	end.Ret(nil)

	got := fn.String()
	assert.Contains(t, got, "%2 = icmp sgt i32 %0, i32 %1")
	assert.Contains(t, got, "condbr i1 %2, label %then.1, label %endif.2")
	assert.Contains(t, got, "br label %endif.2")
	assert.Contains(t, got, "ret void")
}

func TestPrintPhi(t *testing.T) {
	m := NewModule("t")
	fn := m.NewFunction("f", I1, nil, nil, false)
	entry := fn.NewBlock("entry")
	rhs := fn.NewBlock("land.rhs.1")
	end := fn.NewBlock("land.end.2")

	short := entry.ConstInt(I1, 0)
	entry.CondBr(short, rhs, end)
	right := rhs.ConstInt(I1, 1)
	rhs.Br(end)
	merged := end.Phi(I1, []*Value{short, right}, []*Block{entry, rhs})
	end.Ret(merged)

	assert.Contains(t, fn.String(), "%2 = phi i1 [ %0, %entry ], [ %1, %land.rhs.1 ]")
}

func TestPrintCasts(t *testing.T) {
	m := NewModule("t")
	fn := m.NewFunction("f", I64, []string{"x"}, []*Type{I32}, false)
	blk := fn.NewBlock("entry")
	wide := blk.Cast(OpSExt, I64, fn.Params[0])
	blk.Ret(wide)

	assert.Contains(t, fn.String(), "%1 = sext i32 %0 to i64")
}

func TestPrintCall(t *testing.T) {
	m := NewModule("t")
	fn := m.NewFunction("f", I64, []string{"s"}, []*Type{Ptr}, false)
	blk := fn.NewBlock("entry")
	n := blk.Call(I64, "strlen", []*Value{fn.Params[0]})
	blk.Call(Void, "free", []*Value{fn.Params[0]})
	blk.Ret(n)

	got := fn.String()
	assert.Contains(t, got, "%1 = call i64 @strlen(ptr %0)")
	assert.Contains(t, got, "call void @free(ptr %0)")
	assert.NotContains(t, got, "%-1", "void calls print without a result name")
}

func TestEmitTextModule(t *testing.T) {
	m := NewModule("demo")
	m.Structs = append(m.Structs, StructOf("Point", []*Type{I32, I32}))
	m.Globals = append(m.Globals, &Global{Name: "g", Type: I32, Kind: GlobalInt, Int: 5})
	fn := m.NewFunction("main", I32, nil, nil, false)
	blk := fn.NewBlock("entry")
	blk.Ret(blk.ConstInt(I32, 0))

	var buf bytes.Buffer
	require.NoError(t, EmitText(m, &buf))
	out := buf.String()

	assert.True(t, strings.HasPrefix(out, "module demo\n"))
	assert.Contains(t, out, "%Point = type { i32, i32 }")
	assert.Contains(t, out, "@g = global i32 5")
	assert.Contains(t, out, "define i32 @main()")
}
