package classfile

import (
	"encoding/binary"
	"fmt"

	"fortio.org/safecast"
)

// Opcode is a JVM instruction opcode.
type Opcode uint8

// The instruction subset the assembler can produce and Instructions can
// read back.
const (
	OpAconstNull    Opcode = 0x01
	OpLdc           Opcode = 0x12
	OpLdcW          Opcode = 0x13
	OpAload0        Opcode = 0x2a
	OpPop           Opcode = 0x57
	OpDup           Opcode = 0x59
	OpAreturn       Opcode = 0xb0
	OpReturn        Opcode = 0xb1
	OpInvokespecial Opcode = 0xb7
	OpNew           Opcode = 0xbb
	OpAthrow        Opcode = 0xbf
)

var opNames = map[Opcode]string{
	OpAconstNull:    "ACONST_NULL",
	OpLdc:           "LDC",
	OpLdcW:          "LDC_W",
	OpAload0:        "ALOAD_0",
	OpPop:           "POP",
	OpDup:           "DUP",
	OpAreturn:       "ARETURN",
	OpReturn:        "RETURN",
	OpInvokespecial: "INVOKESPECIAL",
	OpNew:           "NEW",
	OpAthrow:        "ATHROW",
}

func (op Opcode) String() string {
	if s, ok := opNames[op]; ok {
		return s
	}
	return fmt.Sprintf("OP_%02X", uint8(op))
}

// Insn is one symbolic instruction. Operand fields are used by the opcodes
// that need them: Class for NEW, Const for LDC, Owner/Name/Desc for
// INVOKESPECIAL. LDC is written as LDC_W automatically when the constant
// lands beyond index 255.
type Insn struct {
	Op    Opcode
	Class string
	Const any
	Owner string
	Name  string
	Desc  string
}

func (in Insn) String() string {
	switch in.Op {
	case OpNew:
		return fmt.Sprintf("%s %s", in.Op, in.Class)
	case OpLdc, OpLdcW:
		if s, ok := in.Const.(string); ok {
			return fmt.Sprintf("LDC %q", s)
		}
		return fmt.Sprintf("LDC %v", in.Const)
	case OpInvokespecial:
		return fmt.Sprintf("%s %s.%s %s", in.Op, in.Owner, in.Name, in.Desc)
	default:
		return in.Op.String()
	}
}

// stackDelta returns the operand stack change of in and whether control
// falls through to the next instruction.
func stackDelta(in Insn) (delta int, fallsThrough bool, err error) {
	switch in.Op {
	case OpAconstNull, OpAload0, OpDup, OpNew:
		return 1, true, nil
	case OpLdc, OpLdcW:
		switch in.Const.(type) {
		case int64, float64:
			return 2, true, nil
		}
		return 1, true, nil
	case OpPop:
		return -1, true, nil
	case OpInvokespecial:
		mt, err := ParseMethodDescriptor(in.Desc)
		if err != nil {
			return 0, false, err
		}
		return Slots(mt.Return) - mt.ArgumentSlots() - 1, true, nil
	case OpAreturn, OpAthrow:
		return -1, false, nil
	case OpReturn:
		return 0, false, nil
	default:
		return 0, false, fmt.Errorf("unsupported opcode %s", in.Op)
	}
}

// Assembler builds a straight-line method body and sizes its frame.
type Assembler struct {
	static bool
	desc   string
	insns  []Insn
}

// NewAssembler starts a body for a method with the given access flags and
// descriptor. The descriptor drives max_locals.
func NewAssembler(access uint16, desc string) *Assembler {
	return &Assembler{static: HasFlag(access, AccStatic), desc: desc}
}

// New appends NEW class.
func (a *Assembler) New(class string) *Assembler {
	a.insns = append(a.insns, Insn{Op: OpNew, Class: class})
	return a
}

// Dup appends DUP.
func (a *Assembler) Dup() *Assembler {
	a.insns = append(a.insns, Insn{Op: OpDup})
	return a
}

// Ldc appends LDC of a string or numeric constant.
func (a *Assembler) Ldc(v any) *Assembler {
	a.insns = append(a.insns, Insn{Op: OpLdc, Const: v})
	return a
}

// InvokeSpecial appends INVOKESPECIAL owner.name desc.
func (a *Assembler) InvokeSpecial(owner, name, desc string) *Assembler {
	a.insns = append(a.insns, Insn{Op: OpInvokespecial, Owner: owner, Name: name, Desc: desc})
	return a
}

// AThrow appends ATHROW.
func (a *Assembler) AThrow() *Assembler {
	a.insns = append(a.insns, Insn{Op: OpAthrow})
	return a
}

// Code finishes the body. max_stack is found by simulating the stack
// effect of every instruction; max_locals is the receiver plus argument
// slots. The body must not fall off its end.
func (a *Assembler) Code() (*Code, error) {
	mt, err := ParseMethodDescriptor(a.desc)
	if err != nil {
		return nil, err
	}
	locals := mt.ArgumentSlots()
	if !a.static {
		locals++
	}

	depth, maxDepth := 0, 0
	falls := true
	for i, in := range a.insns {
		if !falls {
			return nil, fmt.Errorf("instruction %d (%s) is unreachable", i, in)
		}
		d, ft, err := stackDelta(in)
		if err != nil {
			return nil, err
		}
		depth += d
		if depth < 0 {
			return nil, fmt.Errorf("instruction %d (%s) underflows the operand stack", i, in)
		}
		maxDepth = max(maxDepth, depth)
		falls = ft
	}
	if falls {
		return nil, fmt.Errorf("method body falls off its end")
	}

	maxStack, err := safecast.Conv[uint16](maxDepth)
	if err != nil {
		return nil, fmt.Errorf("max_stack: %w", err)
	}
	maxLocals, err := safecast.Conv[uint16](locals)
	if err != nil {
		return nil, fmt.Errorf("max_locals: %w", err)
	}
	insns := make([]Insn, len(a.insns))
	copy(insns, a.insns)
	return &Code{MaxStack: maxStack, MaxLocals: maxLocals, Insns: insns}, nil
}

// assemble encodes symbolic instructions against pool.
func assemble(insns []Insn, pool *writePool) ([]byte, error) {
	var out []byte
	for _, in := range insns {
		switch in.Op {
		case OpNew:
			idx, err := pool.class(in.Class)
			if err != nil {
				return nil, err
			}
			out = append(out, byte(OpNew))
			out = binary.BigEndian.AppendUint16(out, idx)
		case OpLdc, OpLdcW:
			idx, err := pool.constant(in.Const)
			if err != nil {
				return nil, err
			}
			switch in.Const.(type) {
			case int64, float64:
				// LDC2_W
				out = append(out, 0x14)
				out = binary.BigEndian.AppendUint16(out, idx)
			default:
				if idx <= 0xFF && in.Op == OpLdc {
					out = append(out, byte(OpLdc), byte(idx))
				} else {
					out = append(out, byte(OpLdcW))
					out = binary.BigEndian.AppendUint16(out, idx)
				}
			}
		case OpInvokespecial:
			idx, err := pool.methodref(in.Owner, in.Name, in.Desc)
			if err != nil {
				return nil, err
			}
			out = append(out, byte(OpInvokespecial))
			out = binary.BigEndian.AppendUint16(out, idx)
		case OpAconstNull, OpAload0, OpPop, OpDup, OpAreturn, OpReturn, OpAthrow:
			out = append(out, byte(in.Op))
		default:
			return nil, fmt.Errorf("cannot assemble %s", in.Op)
		}
	}
	return out, nil
}

// Instructions returns the symbolic form of the body. Bodies read from a
// class file are disassembled on demand; only the instruction subset above
// is understood.
func (c *Code) Instructions() ([]Insn, error) {
	if c.Insns != nil || c.Raw == nil {
		return c.Insns, nil
	}
	if c.pool == nil {
		return nil, fmt.Errorf("raw code without constant pool")
	}
	var out []Insn
	cur := &cursor{b: c.Raw}
	for cur.off < len(cur.b) && cur.err == nil {
		op := Opcode(cur.u1())
		in := Insn{Op: op}
		var err error
		switch op {
		case OpNew:
			in.Class, err = c.pool.class(cur.u2())
		case OpLdc:
			in.Const, err = c.pool.constant(uint16(cur.u1()))
		case OpLdcW:
			in.Op = OpLdc
			in.Const, err = c.pool.constant(cur.u2())
		case 0x14:
			in.Op = OpLdc
			in.Const, err = c.pool.constant(cur.u2())
		case OpInvokespecial:
			in.Owner, in.Name, in.Desc, err = c.pool.memberRef(cur.u2())
		case OpAconstNull, OpAload0, OpPop, OpDup, OpAreturn, OpReturn, OpAthrow:
		default:
			return nil, fmt.Errorf("offset %d: unsupported opcode 0x%02x", cur.off-1, uint8(op))
		}
		if err != nil {
			return nil, fmt.Errorf("offset %d: %w", cur.off, err)
		}
		out = append(out, in)
	}
	if cur.err != nil {
		return nil, cur.err
	}
	return out, nil
}
