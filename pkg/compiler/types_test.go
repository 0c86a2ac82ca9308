package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrimitiveSizes(t *testing.T) {
	tests := []struct {
		typ  *Type
		size int
	}{
		{BoolType(), 1},
		{CharType(), 1},
		{ShortType(), 2},
		{IntType(), 4},
		{LongType(), 8},
		{FloatType(), 4},
		{DoubleType(), 8},
		{PointerTo(IntType()), 8},
		{PointerTo(VoidType()), 8},
		{ArrayOf(IntType(), 10), 40},
		{ArrayOf(CharType(), 3), 3},
	}
	for _, tt := range tests {
		t.Run(tt.typ.String(), func(t *testing.T) {
			assert.Equal(t, tt.size, tt.typ.Size())
		})
	}
}

func TestScalarAlignmentMatchesSize(t *testing.T) {
	for _, typ := range []*Type{BoolType(), CharType(), ShortType(), IntType(),
		LongType(), FloatType(), DoubleType(), PointerTo(CharType())} {
		assert.Equal(t, typ.Size(), typ.Alignment(), typ.String())
	}
	assert.Equal(t, 4, ArrayOf(IntType(), 5).Alignment(), "array aligns to element")
}

func TestStructLayout(t *testing.T) {
	tests := []struct {
		name        string
		fields      []Field
		wantOffsets []int
		wantSize    int
		wantAlign   int
	}{
		{
			name: "PaddingBetweenFields",
			fields: []Field{
				{Name: "c", Type: CharType()},
				{Name: "n", Type: IntType()},
			},
			wantOffsets: []int{0, 4},
			wantSize:    8,
			wantAlign:   4,
		},
		{
			name: "TailPadding",
			fields: []Field{
				{Name: "n", Type: LongType()},
				{Name: "c", Type: CharType()},
			},
			wantOffsets: []int{0, 8},
			wantSize:    16,
			wantAlign:   8,
		},
		{
			name: "PackedChars",
			fields: []Field{
				{Name: "a", Type: CharType()},
				{Name: "b", Type: CharType()},
				{Name: "c", Type: CharType()},
			},
			wantOffsets: []int{0, 1, 2},
			wantSize:    3,
			wantAlign:   1,
		},
		{
			name: "MixedWidths",
			fields: []Field{
				{Name: "c", Type: CharType()},
				{Name: "s", Type: ShortType()},
				{Name: "d", Type: DoubleType()},
				{Name: "b", Type: BoolType()},
			},
			wantOffsets: []int{0, 2, 8, 16},
			wantSize:    24,
			wantAlign:   8,
		},
		{
			name:        "Empty",
			fields:      nil,
			wantOffsets: nil,
			wantSize:    0,
			wantAlign:   1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table := NewTypeTable()
			st := table.Struct("S")
			assert.False(t, st.IsComplete())
			st.Complete(tt.fields)
			require.True(t, st.IsComplete())

			assert.Equal(t, tt.wantSize, st.Size())
			assert.Equal(t, tt.wantAlign, st.Alignment())
			require.Len(t, st.Fields, len(tt.wantOffsets))
			for i, off := range tt.wantOffsets {
				assert.Equal(t, off, st.Fields[i].Offset, "field %s", st.Fields[i].Name)
			}
		})
	}
}

func TestNestedStructLayout(t *testing.T) {
	table := NewTypeTable()
	inner := table.Struct("Inner")
	inner.Complete([]Field{
		{Name: "c", Type: CharType()},
		{Name: "n", Type: LongType()},
	})
	require.Equal(t, 16, inner.Size())

	outer := table.Struct("Outer")
	outer.Complete([]Field{
		{Name: "flag", Type: BoolType()},
		{Name: "in", Type: inner}, // aligns to inner's widest field
	})
	assert.Equal(t, 8, outer.Fields[1].Offset)
	assert.Equal(t, 24, outer.Size())
	assert.Equal(t, 8, outer.Alignment())
}

func TestStructCompleteTwicePanics(t *testing.T) {
	table := NewTypeTable()
	st := table.Struct("S")
	st.Complete(nil)
	assert.Panics(t, func() { st.Complete(nil) })
}

func TestTypeTableInterning(t *testing.T) {
	table := NewTypeTable()
	a := table.Struct("Point")
	b := table.Struct("Point")
	assert.Same(t, a, b, "same tag yields the same instance")
	assert.Nil(t, table.LookupStruct("Missing"))

	e1 := table.Enum("Color", IntType())
	e2 := table.Enum("Color", IntType())
	assert.Same(t, e1, e2)
	assert.Same(t, e1, table.LookupEnum("Color"))
}

func TestTypeEqual(t *testing.T) {
	table := NewTypeTable()
	point := table.Struct("Point")
	point.Complete([]Field{{Name: "x", Type: IntType()}})

	other := NewTypeTable()
	otherPoint := other.Struct("Point")

	tests := []struct {
		name string
		a, b *Type
		want bool
	}{
		{"SamePrimitive", IntType(), IntType(), true},
		{"SignednessDiffers", IntType(), UnsignedOf(IntType()), false},
		{"DifferentWidth", IntType(), LongType(), false},
		{"Pointers", PointerTo(CharType()), PointerTo(CharType()), true},
		{"PointerPointeeDiffers", PointerTo(CharType()), PointerTo(IntType()), false},
		{"Arrays", ArrayOf(IntType(), 4), ArrayOf(IntType(), 4), true},
		{"ArrayLenDiffers", ArrayOf(IntType(), 4), ArrayOf(IntType(), 5), false},
		{"StructSelf", point, point, true},
		{"CompleteVsIncomplete", point, otherPoint, false},
		{"FuncTypes", FuncType(IntType(), []*Type{CharType()}, false),
			FuncType(IntType(), []*Type{CharType()}, false), true},
		{"FuncVariadicDiffers", FuncType(IntType(), nil, true),
			FuncType(IntType(), nil, false), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.a.Equal(tt.b))
		})
	}
}

func TestTypePredicates(t *testing.T) {
	table := NewTypeTable()
	color := table.Enum("Color", IntType())

	assert.True(t, BoolType().IsInteger())
	assert.True(t, color.IsInteger(), "enums are integral")
	assert.False(t, FloatType().IsInteger())
	assert.True(t, DoubleType().IsFloat())
	assert.True(t, PointerTo(VoidType()).IsScalar())
	assert.False(t, ArrayOf(IntType(), 2).IsScalar())

	assert.True(t, BoolType().IsUnsigned())
	assert.True(t, UnsignedOf(CharType()).IsUnsigned())
	assert.False(t, CharType().IsUnsigned())
	assert.False(t, color.IsUnsigned(), "enum follows its base type")
}

func TestTypeString(t *testing.T) {
	table := NewTypeTable()
	tests := []struct {
		typ  *Type
		want string
	}{
		{UnsignedOf(IntType()), "unsigned int"},
		{PointerTo(PointerTo(CharType())), "char**"},
		{ArrayOf(ShortType(), 8), "short[8]"},
		{table.Struct("Vec"), "struct Vec"},
		{table.Enum("Mode", IntType()), "enum Mode"},
		{FuncType(VoidType(), []*Type{IntType()}, true), "void(int, ...)"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.typ.String())
	}
}
