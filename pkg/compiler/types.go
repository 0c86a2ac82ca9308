package compiler

import (
	"fmt"
	"sort"
	"strings"
)

// TypeKind is the tag of a Type variant.
type TypeKind int

const (
	TypeVoid TypeKind = iota
	TypeBool
	TypeChar
	TypeShort
	TypeInt
	TypeLong
	TypeFloat
	TypeDouble
	TypePointer
	TypeArray
	TypeStruct
	TypeEnum
	TypeFunc
)

// Field is one struct member. Offset is valid once the struct is complete.
type Field struct {
	Name   string
	Type   *Type
	Offset int
}

// EnumMember is one enumerator with its resolved constant value.
type EnumMember struct {
	Name  string
	Value int64
}

// Type models one language type. Struct and Enum instances are interned by
// name in a TypeTable and shared by every reference, so identity comparison
// is valid for them; Pointer/Array/Func values are built per use and
// compared structurally.
type Type struct {
	Kind     TypeKind
	Unsigned bool // integer kinds only

	Elem *Type // Pointer pointee / Array element
	Len  int   // Array length

	Name     string // Struct / Enum tag
	Fields   []Field
	complete bool
	size     int
	align    int

	Base    *Type // Enum underlying integer type
	Members []EnumMember

	Ret      *Type // Func
	Params   []*Type
	Variadic bool
}

// Shared primitive instances. Unsigned integer variants are separate
// instances so the flag can live on the Type itself.
var (
	typeVoid   = &Type{Kind: TypeVoid}
	typeBool   = &Type{Kind: TypeBool}
	typeChar   = &Type{Kind: TypeChar}
	typeUChar  = &Type{Kind: TypeChar, Unsigned: true}
	typeShort  = &Type{Kind: TypeShort}
	typeUShort = &Type{Kind: TypeShort, Unsigned: true}
	typeInt    = &Type{Kind: TypeInt}
	typeUInt   = &Type{Kind: TypeInt, Unsigned: true}
	typeLong   = &Type{Kind: TypeLong}
	typeULong  = &Type{Kind: TypeLong, Unsigned: true}
	typeFloat  = &Type{Kind: TypeFloat}
	typeDouble = &Type{Kind: TypeDouble}
)

func VoidType() *Type   { return typeVoid }
func BoolType() *Type   { return typeBool }
func CharType() *Type   { return typeChar }
func ShortType() *Type  { return typeShort }
func IntType() *Type    { return typeInt }
func LongType() *Type   { return typeLong }
func FloatType() *Type  { return typeFloat }
func DoubleType() *Type { return typeDouble }

// UnsignedOf returns the unsigned counterpart of an integer type.
func UnsignedOf(t *Type) *Type {
	switch t.Kind {
	case TypeChar:
		return typeUChar
	case TypeShort:
		return typeUShort
	case TypeInt:
		return typeUInt
	case TypeLong:
		return typeULong
	}
	return t
}

// PointerTo returns a pointer type with the given pointee.
func PointerTo(elem *Type) *Type {
	return &Type{Kind: TypePointer, Elem: elem}
}

// ArrayOf returns an array type with the given element type and length.
func ArrayOf(elem *Type, n int) *Type {
	return &Type{Kind: TypeArray, Elem: elem, Len: n}
}

// FuncType returns a function type.
func FuncType(ret *Type, params []*Type, variadic bool) *Type {
	return &Type{Kind: TypeFunc, Ret: ret, Params: params, Variadic: variadic}
}

// Size returns the type's size in bytes on the 64-bit target.
// An incomplete struct or void has size 0.
func (t *Type) Size() int {
	switch t.Kind {
	case TypeVoid:
		return 0
	case TypeBool, TypeChar:
		return 1
	case TypeShort:
		return 2
	case TypeInt, TypeFloat:
		return 4
	case TypeLong, TypeDouble, TypePointer:
		return 8
	case TypeArray:
		return t.Elem.Size() * t.Len
	case TypeStruct:
		return t.size
	case TypeEnum:
		return t.Base.Size()
	}
	return 0
}

// Alignment returns the type's natural alignment in bytes. Scalars align to
// their size; arrays align to their element; a struct aligns to its widest
// field.
func (t *Type) Alignment() int {
	switch t.Kind {
	case TypeArray:
		return t.Elem.Alignment()
	case TypeStruct:
		if t.align == 0 {
			return 1
		}
		return t.align
	case TypeEnum:
		return t.Base.Alignment()
	case TypeVoid:
		return 1
	}
	return t.Size()
}

// IsComplete reports whether the type's layout is final. Only named structs
// can be incomplete.
func (t *Type) IsComplete() bool {
	if t.Kind == TypeStruct {
		return t.complete
	}
	return true
}

// Complete freezes the struct's field list and computes its layout: each
// field offset is rounded up to the field's alignment, the struct's
// alignment is the maximum field alignment, and the total size is rounded up
// to that alignment. It must be called exactly once per struct type.
func (t *Type) Complete(fields []Field) {
	if t.Kind != TypeStruct {
		panic("Complete on non-struct type " + t.String())
	}
	if t.complete {
		panic("struct " + t.Name + " completed twice")
	}
	offset := 0
	align := 1
	for i := range fields {
		fa := fields[i].Type.Alignment()
		if fa > align {
			align = fa
		}
		offset = alignUp(offset, fa)
		fields[i].Offset = offset
		offset += fields[i].Type.Size()
	}
	t.Fields = fields
	t.align = align
	t.size = alignUp(offset, align)
	t.complete = true
}

func alignUp(n, align int) int {
	if align <= 1 {
		return n
	}
	return (n + align - 1) / align * align
}

// FieldByName looks up a struct field. ok is false when the field does not
// exist or the struct is incomplete.
func (t *Type) FieldByName(name string) (Field, bool) {
	for _, f := range t.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// MemberByName looks up an enumerator.
func (t *Type) MemberByName(name string) (EnumMember, bool) {
	for _, m := range t.Members {
		if m.Name == name {
			return m, true
		}
	}
	return EnumMember{}, false
}

// IsInteger reports whether t is an integral type. Enums count as integral.
func (t *Type) IsInteger() bool {
	switch t.Kind {
	case TypeBool, TypeChar, TypeShort, TypeInt, TypeLong, TypeEnum:
		return true
	}
	return false
}

// IsFloat reports whether t is float or double.
func (t *Type) IsFloat() bool {
	return t.Kind == TypeFloat || t.Kind == TypeDouble
}

// IsArithmetic reports whether t is integral or floating.
func (t *Type) IsArithmetic() bool {
	return t.IsInteger() || t.IsFloat()
}

// IsScalar reports whether t is arithmetic or a pointer.
func (t *Type) IsScalar() bool {
	return t.IsArithmetic() || t.Kind == TypePointer
}

// IsUnsigned reports whether t is an unsigned integer type. Bool counts as
// unsigned; an enum follows its base type.
func (t *Type) IsUnsigned() bool {
	switch t.Kind {
	case TypeBool:
		return true
	case TypeEnum:
		return t.Base.IsUnsigned()
	}
	return t.Unsigned
}

// Equal reports type equality: same kind and, recursively, the same
// structural parameters. Named struct/enum types compare by name while
// incomplete and field-by-field once complete; a complete and an incomplete
// struct are never equal.
func (t *Type) Equal(o *Type) bool {
	if t == o {
		return true
	}
	if t == nil || o == nil || t.Kind != o.Kind {
		return false
	}
	switch t.Kind {
	case TypeBool, TypeVoid, TypeFloat, TypeDouble:
		return true
	case TypeChar, TypeShort, TypeInt, TypeLong:
		return t.Unsigned == o.Unsigned
	case TypePointer:
		return t.Elem.Equal(o.Elem)
	case TypeArray:
		return t.Len == o.Len && t.Elem.Equal(o.Elem)
	case TypeStruct:
		if t.Name != o.Name || t.complete != o.complete {
			return false
		}
		if !t.complete {
			return true
		}
		if len(t.Fields) != len(o.Fields) {
			return false
		}
		for i := range t.Fields {
			if t.Fields[i].Name != o.Fields[i].Name || !t.Fields[i].Type.Equal(o.Fields[i].Type) {
				return false
			}
		}
		return true
	case TypeEnum:
		return t.Name == o.Name
	case TypeFunc:
		if !t.Ret.Equal(o.Ret) || t.Variadic != o.Variadic || len(t.Params) != len(o.Params) {
			return false
		}
		for i := range t.Params {
			if !t.Params[i].Equal(o.Params[i]) {
				return false
			}
		}
		return true
	}
	return false
}

// String renders the type in source syntax, e.g. "unsigned int", "char*",
// "int[8]", "struct Point".
func (t *Type) String() string {
	switch t.Kind {
	case TypeVoid:
		return "void"
	case TypeBool:
		return "bool"
	case TypeChar, TypeShort, TypeInt, TypeLong:
		name := map[TypeKind]string{
			TypeChar: "char", TypeShort: "short", TypeInt: "int", TypeLong: "long",
		}[t.Kind]
		if t.Unsigned {
			return "unsigned " + name
		}
		return name
	case TypeFloat:
		return "float"
	case TypeDouble:
		return "double"
	case TypePointer:
		return t.Elem.String() + "*"
	case TypeArray:
		return fmt.Sprintf("%s[%d]", t.Elem, t.Len)
	case TypeStruct:
		return "struct " + t.Name
	case TypeEnum:
		return "enum " + t.Name
	case TypeFunc:
		parts := make([]string, len(t.Params))
		for i, p := range t.Params {
			parts[i] = p.String()
		}
		if t.Variadic {
			parts = append(parts, "...")
		}
		return fmt.Sprintf("%s(%s)", t.Ret, strings.Join(parts, ", "))
	}
	return fmt.Sprintf("Type(%d)", int(t.Kind))
}

// TypeTable interns struct and enum types by name so that every reference to
// "struct Point" within a compilation unit shares one canonical instance.
// It is populated during parsing and read-only afterward.
type TypeTable struct {
	structs map[string]*Type
	enums   map[string]*Type
}

func NewTypeTable() *TypeTable {
	return &TypeTable{
		structs: map[string]*Type{},
		enums:   map[string]*Type{},
	}
}

// Struct returns the canonical struct type for name, creating an incomplete
// one on first use. Self-referential members resolve through this.
func (tt *TypeTable) Struct(name string) *Type {
	if t, ok := tt.structs[name]; ok {
		return t
	}
	t := &Type{Kind: TypeStruct, Name: name}
	tt.structs[name] = t
	return t
}

// Enum returns the canonical enum type for name, creating it with base on
// first use.
func (tt *TypeTable) Enum(name string, base *Type) *Type {
	if t, ok := tt.enums[name]; ok {
		return t
	}
	t := &Type{Kind: TypeEnum, Name: name, Base: base}
	tt.enums[name] = t
	return t
}

// LookupStruct returns the struct type for name, or nil.
func (tt *TypeTable) LookupStruct(name string) *Type { return tt.structs[name] }

// LookupEnum returns the enum type for name, or nil.
func (tt *TypeTable) LookupEnum(name string) *Type { return tt.enums[name] }

// Structs returns all interned struct types in name order.
func (tt *TypeTable) Structs() []*Type {
	out := make([]*Type, 0, len(tt.structs))
	for _, t := range tt.structs {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Enums returns all interned enum types in name order.
func (tt *TypeTable) Enums() []*Type {
	out := make([]*Type, 0, len(tt.enums))
	for _, t := range tt.enums {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
