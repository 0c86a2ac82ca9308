package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueIDsAreSequentialPerFunction(t *testing.T) {
	m := NewModule("t")
	fn := m.NewFunction("f", I32, []string{"a", "b"}, []*Type{I32, I32}, false)
	require.Len(t, fn.Params, 2)
	assert.Equal(t, 0, fn.Params[0].ID)
	assert.Equal(t, 1, fn.Params[1].ID)

	blk := fn.NewBlock("entry")
	c := blk.ConstInt(I32, 7)
	sum := blk.Bin(OpAdd, I32, fn.Params[0], c)
	assert.Equal(t, 2, c.ID)
	assert.Equal(t, 3, sum.ID)

	other := m.NewFunction("g", Void, nil, nil, false)
	ob := other.NewBlock("entry")
	assert.Equal(t, 0, ob.ConstInt(I32, 1).ID, "numbering restarts per function")
}

func TestNoResultInstructions(t *testing.T) {
	m := NewModule("t")
	fn := m.NewFunction("f", Void, nil, nil, false)
	blk := fn.NewBlock("entry")

	slot := blk.Alloca(I32, "x")
	val := blk.ConstInt(I32, 1)
	st := blk.Store(val, slot)
	assert.Equal(t, -1, st.ID)

	call := blk.Call(Void, "puts", []*Value{slot})
	assert.Equal(t, -1, call.ID, "void calls produce no value")

	typed := blk.Call(I32, "strlen", []*Value{slot})
	assert.GreaterOrEqual(t, typed.ID, 0)
}

func TestTerminated(t *testing.T) {
	m := NewModule("t")
	fn := m.NewFunction("f", Void, nil, nil, false)

	empty := fn.NewBlock("a")
	assert.False(t, empty.Terminated())
	empty.ConstInt(I32, 0)
	assert.False(t, empty.Terminated())
	empty.Ret(nil)
	assert.True(t, empty.Terminated())

	br := fn.NewBlock("b")
	br.Br(empty)
	assert.True(t, br.Terminated())

	cond := fn.NewBlock("c")
	flag := cond.ConstInt(I1, 1)
	cond.CondBr(flag, empty, br)
	assert.True(t, cond.Terminated())
}

func TestCmpProducesI1(t *testing.T) {
	m := NewModule("t")
	fn := m.NewFunction("f", Void, nil, nil, false)
	blk := fn.NewBlock("entry")

	a := blk.ConstInt(I32, 1)
	b := blk.ConstInt(I32, 2)
	assert.Same(t, I1, blk.ICmp(PredSLT, a, b).Type)

	x := blk.ConstFloat(F64, 1)
	y := blk.ConstFloat(F64, 2)
	assert.Same(t, I1, blk.FCmp(PredOLT, x, y).Type)
}

func TestIsDecl(t *testing.T) {
	m := NewModule("t")
	decl := m.NewFunction("ext", I32, []string{"p0"}, []*Type{Ptr}, false)
	assert.True(t, decl.IsDecl())

	def := m.NewFunction("f", Void, nil, nil, false)
	def.NewBlock("entry").Ret(nil)
	assert.False(t, def.IsDecl())
}

func TestTypeString(t *testing.T) {
	tests := []struct {
		typ  *Type
		want string
	}{
		{Void, "void"},
		{I1, "i1"},
		{I8, "i8"},
		{I32, "i32"},
		{F64, "f64"},
		{Ptr, "ptr"},
		{ArrayOf(I8, 10), "[10 x i8]"},
		{StructOf("Point", []*Type{I32, I32}), "%Point"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.typ.String())
	}
}
