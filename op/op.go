// Package op defines the opcodes emitted by the dbasic compiler and executed
// by the virtual machine.
//
// Every instruction is one opcode byte followed by zero or one operand. The
// operand width is fixed per opcode and described by its Format.
package op

// Code is a one byte opcode that indicates an operation to execute.
type Code byte

const (
	// Control flow
	Halt   Code = 0x00
	BrT    Code = 0x01 // branch on true
	BrTSC  Code = 0x02 // branch on true, keep the value (short circuit)
	BrF    Code = 0x03 // branch on false
	BrFSC  Code = 0x04 // branch on false, keep the value (short circuit)
	Br     Code = 0x05
	Not    Code = 0x06
	Neg    Code = 0x07
	Add    Code = 0x08
	Sub    Code = 0x09
	Mul    Code = 0x0a
	Div    Code = 0x0b
	Rem    Code = 0x0c
	BNot   Code = 0x0d
	BAnd   Code = 0x0e
	BOr    Code = 0x0f
	BXor   Code = 0x10
	Shl    Code = 0x11
	Shr    Code = 0x12
	Lt     Code = 0x13
	Le     Code = 0x14
	Eq     Code = 0x15
	Ne     Code = 0x16
	Ge     Code = 0x17
	Gt     Code = 0x18
	Lit    Code = 0x19 // push a long literal
	SLit   Code = 0x1a // push a short literal (-128 to 127)
	Load   Code = 0x1b // load a long from memory
	LoadB  Code = 0x1c // load a byte from memory
	Store  Code = 0x1d // store a long into memory
	StoreB Code = 0x1e // store a byte into memory
	LRef   Code = 0x1f // load a frame slot
	LSet   Code = 0x20 // store a frame slot
	Index  Code = 0x21 // index into a vector of longs
	Call   Code = 0x22
	Frame  Code = 0x23 // size the current stack frame
	Return Code = 0x24
	Drop   Code = 0x25
	Dup    Code = 0x26
	Native Code = 0x27 // execute a native instruction
	Trap   Code = 0x28
	Tuck   Code = 0x29 // a b -> b a b
)

// Format describes the operand that follows an opcode.
type Format int

const (
	// FmtNone means the opcode has no operand.
	FmtNone Format = iota
	// FmtByte is an unsigned one byte operand (frame slot, argc, trap code).
	FmtByte
	// FmtSByte is a signed one byte operand (short literal).
	FmtSByte
	// FmtWord is a signed 16 bit branch offset relative to the byte after it.
	FmtWord
	// FmtLong is a 32 bit absolute address or full range literal.
	FmtLong
)

// Operand widths in bytes.
const (
	WordSize = 2
	LongSize = 4
)

// Size returns the operand width in bytes for the format.
func (f Format) Size() int {
	switch f {
	case FmtByte, FmtSByte:
		return 1
	case FmtWord:
		return WordSize
	case FmtLong:
		return LongSize
	default:
		return 0
	}
}

// Trap codes select a runtime service for the Trap opcode.
const (
	TrapGetChar    byte = 0
	TrapPutChar    byte = 1
	TrapPrintStr   byte = 2
	TrapPrintInt   byte = 3
	TrapPrintTab   byte = 4
	TrapPrintNL    byte = 5
	TrapPrintFlush byte = 6
)

// Info contains information about an opcode.
type Info struct {
	Code   Code
	Name   string
	Format Format
}

// Size returns the encoded size of the instruction including its operand.
func (i Info) Size() int {
	return 1 + i.Format.Size()
}

var infos = make([]Info, 256)

var names = map[string]Code{}

func init() {
	type opInfo struct {
		op     Code
		name   string
		format Format
	}
	ops := []opInfo{
		{Halt, "HALT", FmtNone},
		{BrT, "BRT", FmtWord},
		{BrTSC, "BRTSC", FmtWord},
		{BrF, "BRF", FmtWord},
		{BrFSC, "BRFSC", FmtWord},
		{Br, "BR", FmtWord},
		{Not, "NOT", FmtNone},
		{Neg, "NEG", FmtNone},
		{Add, "ADD", FmtNone},
		{Sub, "SUB", FmtNone},
		{Mul, "MUL", FmtNone},
		{Div, "DIV", FmtNone},
		{Rem, "REM", FmtNone},
		{BNot, "BNOT", FmtNone},
		{BAnd, "BAND", FmtNone},
		{BOr, "BOR", FmtNone},
		{BXor, "BXOR", FmtNone},
		{Shl, "SHL", FmtNone},
		{Shr, "SHR", FmtNone},
		{Lt, "LT", FmtNone},
		{Le, "LE", FmtNone},
		{Eq, "EQ", FmtNone},
		{Ne, "NE", FmtNone},
		{Ge, "GE", FmtNone},
		{Gt, "GT", FmtNone},
		{Lit, "LIT", FmtLong},
		{SLit, "SLIT", FmtSByte},
		{Load, "LOAD", FmtNone},
		{LoadB, "LOADB", FmtNone},
		{Store, "STORE", FmtNone},
		{StoreB, "STOREB", FmtNone},
		{LRef, "LREF", FmtByte},
		{LSet, "LSET", FmtByte},
		{Index, "INDEX", FmtNone},
		{Call, "CALL", FmtByte},
		{Frame, "FRAME", FmtByte},
		{Return, "RETURN", FmtNone},
		{Drop, "DROP", FmtNone},
		{Dup, "DUP", FmtNone},
		{Native, "NATIVE", FmtLong},
		{Trap, "TRAP", FmtByte},
		{Tuck, "TUCK", FmtNone},
	}
	for _, o := range ops {
		infos[o.op] = Info{
			Code:   o.op,
			Name:   o.name,
			Format: o.format,
		}
		names[o.name] = o.op
	}
}

// GetInfo returns information about the given opcode. Unknown opcodes return
// an Info with an empty name.
func GetInfo(op Code) Info {
	return infos[op]
}

// Lookup returns the opcode with the given mnemonic.
func Lookup(name string) (Code, bool) {
	code, ok := names[name]
	return code, ok
}

// IsBranch reports whether the opcode carries a relative branch offset.
func IsBranch(op Code) bool {
	return infos[op].Format == FmtWord
}

// TrapName returns the mnemonic of a trap code.
func TrapName(code byte) string {
	switch code {
	case TrapGetChar:
		return "GETCHAR"
	case TrapPutChar:
		return "PUTCHAR"
	case TrapPrintStr:
		return "PRINTSTR"
	case TrapPrintInt:
		return "PRINTINT"
	case TrapPrintTab:
		return "PRINTTAB"
	case TrapPrintNL:
		return "PRINTNL"
	case TrapPrintFlush:
		return "FLUSH"
	default:
		return ""
	}
}
