package ir

import (
	"fmt"
	"io"
	"strings"
)

// EmitText writes the module in its stable line-oriented textual form. This
// is the -S output and the hand-off format for backends that consume text.
func EmitText(m *Module, w io.Writer) error {
	_, err := io.WriteString(w, m.String())
	return err
}

func (m *Module) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "module %s\n", m.Name)

	if len(m.Structs) > 0 {
		b.WriteByte('\n')
		for _, s := range m.Structs {
			fields := make([]string, len(s.Fields))
			for i, f := range s.Fields {
				fields[i] = f.String()
			}
			fmt.Fprintf(&b, "%%%s = type { %s }\n", s.Name, strings.Join(fields, ", "))
		}
	}

	if len(m.Globals) > 0 {
		b.WriteByte('\n')
		for _, g := range m.Globals {
			b.WriteString(g.String())
			b.WriteByte('\n')
		}
	}

	for _, fn := range m.Funcs {
		b.WriteByte('\n')
		b.WriteString(fn.String())
	}
	return b.String()
}

func (g *Global) String() string {
	linkage := "global"
	if g.Const {
		linkage = "constant"
	}
	switch g.Kind {
	case GlobalInt:
		return fmt.Sprintf("@%s = %s %s %d", g.Name, linkage, g.Type, g.Int)
	case GlobalFloat:
		return fmt.Sprintf("@%s = %s %s %g", g.Name, linkage, g.Type, g.Float)
	case GlobalNull:
		return fmt.Sprintf("@%s = %s ptr null", g.Name, linkage)
	case GlobalStr:
		return fmt.Sprintf("@%s = %s %s %s", g.Name, linkage, g.Type, quoteStr(g.Str))
	case GlobalZero:
		return fmt.Sprintf("@%s = %s %s zeroinitializer", g.Name, linkage, g.Type)
	case GlobalRef:
		return fmt.Sprintf("@%s = %s ptr @%s", g.Name, linkage, g.Ref)
	}
	return fmt.Sprintf("@%s = %s %s ?", g.Name, linkage, g.Type)
}

// quoteStr renders string data with a trailing NUL, escaping non-printable
// bytes as \xx hex.
func quoteStr(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, c := range []byte(s) {
		if c >= 0x20 && c < 0x7f && c != '"' && c != '\\' {
			b.WriteByte(c)
		} else {
			fmt.Fprintf(&b, "\\%02x", c)
		}
	}
	b.WriteString("\\00\"")
	return b.String()
}

func (fn *Function) String() string {
	var b strings.Builder
	params := make([]string, len(fn.Params))
	for i, p := range fn.Params {
		if fn.IsDecl() {
			// declarations carry no body, so the parameter values never
			// appear and only the types are printed
			params[i] = p.Type.String()
		} else {
			params[i] = fmt.Sprintf("%s %%%d", p.Type, p.ID)
		}
	}
	if fn.Variadic {
		params = append(params, "...")
	}
	sig := fmt.Sprintf("%s @%s(%s)", fn.Ret, fn.Name, strings.Join(params, ", "))

	if fn.IsDecl() {
		fmt.Fprintf(&b, "declare %s\n", sig)
		return b.String()
	}

	fmt.Fprintf(&b, "define %s {\n", sig)
	for _, blk := range fn.Blocks {
		fmt.Fprintf(&b, "%s:\n", blk.Label)
		for _, v := range blk.Instrs {
			fmt.Fprintf(&b, "  %s\n", v.String())
		}
	}
	b.WriteString("}\n")
	return b.String()
}

// operand renders a value reference with its type, e.g. "i32 %4".
func operand(v *Value) string {
	return fmt.Sprintf("%s %%%d", v.Type, v.ID)
}

func (v *Value) String() string {
	switch v.Op {
	case OpConstInt:
		return fmt.Sprintf("%%%d = const %s %d", v.ID, v.Type, v.Int)
	case OpConstFloat:
		return fmt.Sprintf("%%%d = const %s %g", v.ID, v.Type, v.Float)
	case OpConstNull:
		return fmt.Sprintf("%%%d = const ptr null", v.ID)
	case OpGlobalAddr:
		return fmt.Sprintf("%%%d = globaladdr @%s", v.ID, v.Sym)
	case OpAlloca:
		if v.Sym != "" {
			return fmt.Sprintf("%%%d = alloca %s ; %s", v.ID, v.ElemType, v.Sym)
		}
		return fmt.Sprintf("%%%d = alloca %s", v.ID, v.ElemType)
	case OpLoad:
		return fmt.Sprintf("%%%d = load %s, %s", v.ID, v.Type, operand(v.Args[0]))
	case OpStore:
		return fmt.Sprintf("store %s, %s", operand(v.Args[0]), operand(v.Args[1]))
	case OpGEP:
		return fmt.Sprintf("%%%d = gep %s, %s, %s", v.ID, v.ElemType, operand(v.Args[0]), operand(v.Args[1]))
	case OpFieldAddr:
		return fmt.Sprintf("%%%d = fieldaddr %s, %d", v.ID, operand(v.Args[0]), v.Int)
	case OpICmp, OpFCmp:
		return fmt.Sprintf("%%%d = %s %s %s, %s", v.ID, v.Op, v.Pred, operand(v.Args[0]), operand(v.Args[1]))
	case OpTrunc, OpZExt, OpSExt, OpFPTrunc, OpFPExt,
		OpSIToFP, OpUIToFP, OpFPToSI, OpFPToUI,
		OpBitcast, OpIntToPtr, OpPtrToInt:
		return fmt.Sprintf("%%%d = %s %s to %s", v.ID, v.Op, operand(v.Args[0]), v.Type)
	case OpCall:
		args := make([]string, len(v.Args))
		for i, a := range v.Args {
			args[i] = operand(a)
		}
		call := fmt.Sprintf("call %s @%s(%s)", v.Type, v.Sym, strings.Join(args, ", "))
		if v.ID < 0 {
			return call
		}
		return fmt.Sprintf("%%%d = %s", v.ID, call)
	case OpBr:
		return fmt.Sprintf("br label %%%s", v.Blocks[0].Label)
	case OpCondBr:
		return fmt.Sprintf("condbr %s, label %%%s, label %%%s",
			operand(v.Args[0]), v.Blocks[0].Label, v.Blocks[1].Label)
	case OpPhi:
		inc := make([]string, len(v.Args))
		for i, a := range v.Args {
			inc[i] = fmt.Sprintf("[ %%%d, %%%s ]", a.ID, v.Blocks[i].Label)
		}
		return fmt.Sprintf("%%%d = phi %s %s", v.ID, v.Type, strings.Join(inc, ", "))
	case OpRet:
		if len(v.Args) == 0 {
			return "ret void"
		}
		return fmt.Sprintf("ret %s", operand(v.Args[0]))
	case OpParam:
		return fmt.Sprintf("%%%d = param %s", v.ID, v.Type)
	}
	// generic binary form
	if len(v.Args) == 2 {
		return fmt.Sprintf("%%%d = %s %s %%%d, %%%d", v.ID, v.Op, v.Type, v.Args[0].ID, v.Args[1].ID)
	}
	return fmt.Sprintf("%%%d = %s", v.ID, v.Op)
}
