// Package dis disassembles dbasic bytecode.
package dis

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/dbasic-io/dbasic/image"
	"github.com/dbasic-io/dbasic/internal/table"
	"github.com/dbasic-io/dbasic/memory"
	"github.com/dbasic-io/dbasic/op"
)

// Instruction is one decoded instruction.
type Instruction struct {
	Addr       memory.Addr `json:"addr"`
	Opcode     op.Code     `json:"opcode"`
	Name       string      `json:"name"`
	Operand    *int32      `json:"operand,omitempty"`
	Target     memory.Addr `json:"target,omitempty"`
	Annotation string      `json:"annotation,omitempty"`
	Size       int         `json:"size"`
}

// Decode decodes size bytes of code starting at addr.
func Decode(mem []byte, addr memory.Addr, size int) ([]Instruction, error) {
	end := int(addr) + size
	if end > len(mem) {
		return nil, fmt.Errorf("code range %d+%d outside memory of %d bytes", addr, size, len(mem))
	}
	var instructions []Instruction
	for pc := int(addr); pc < end; {
		info := op.GetInfo(op.Code(mem[pc]))
		if info.Name == "" {
			return instructions, fmt.Errorf("unknown opcode 0x%02x at %d", mem[pc], pc)
		}
		if pc+info.Size() > end {
			return instructions, fmt.Errorf("truncated %s at %d", info.Name, pc)
		}
		ins := Instruction{Addr: memory.Addr(pc), Opcode: info.Code, Name: info.Name, Size: info.Size()}
		if info.Format != op.FmtNone {
			v := operand(mem[pc+1:], info.Format)
			ins.Operand = &v
			if op.IsBranch(info.Code) {
				ins.Target = memory.Addr(pc + info.Size() + int(v))
			}
		}
		instructions = append(instructions, ins)
		pc += info.Size()
	}
	return instructions, nil
}

func operand(b []byte, format op.Format) int32 {
	switch format {
	case op.FmtByte:
		return int32(b[0])
	case op.FmtSByte:
		return int32(int8(b[0]))
	case op.FmtWord:
		return int32(int16(binary.BigEndian.Uint16(b)))
	case op.FmtLong:
		return int32(binary.BigEndian.Uint32(b))
	}
	return 0
}

// Option configures a Disassembler.
type Option func(*Disassembler)

// WithColor enables or disables color in listings.
func WithColor(enabled bool) Option {
	return func(d *Disassembler) {
		d.color = enabled
	}
}

// WithImage annotates literal operands that name globals or strings of img.
func WithImage(img *image.Image) Option {
	return func(d *Disassembler) {
		d.img = img
	}
}

// Disassembler decodes and annotates code.
type Disassembler struct {
	color bool
	img   *image.Image

	name   *color.Color
	target *color.Color
	global *color.Color
	str    *color.Color
}

func New(opts ...Option) *Disassembler {
	d := &Disassembler{color: true}
	for _, opt := range opts {
		opt(d)
	}
	d.name = color.New(color.Bold)
	d.target = color.New(color.FgYellow)
	d.global = color.New(color.FgCyan)
	d.str = color.New(color.FgGreen)
	for _, c := range []*color.Color{d.name, d.target, d.global, d.str} {
		if d.color {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return d
}

// Disassemble decodes the code and fills in annotations.
func (d *Disassembler) Disassemble(mem []byte, addr memory.Addr, size int) ([]Instruction, error) {
	instructions, err := Decode(mem, addr, size)
	for i := range instructions {
		instructions[i].Annotation = d.annotate(&instructions[i])
	}
	return instructions, err
}

func (d *Disassembler) annotate(ins *Instruction) string {
	switch {
	case op.IsBranch(ins.Opcode):
		return fmt.Sprintf("-> %d", ins.Target)
	case ins.Opcode == op.Trap:
		return op.TrapName(byte(*ins.Operand))
	case ins.Opcode == op.Lit && d.img != nil:
		return d.literal(*ins.Operand)
	}
	return ""
}

// literal names the global or string a long literal refers to, if any.
func (d *Disassembler) literal(v int32) string {
	for _, sym := range d.img.Globals().Symbols() {
		if sym.Value == v && !sym.IsConstant() {
			return sym.Name
		}
		if sym.Code && sym.Value == v {
			return "func:" + sym.Name
		}
	}
	for _, str := range d.img.Strings() {
		if int32(str.Addr) == v {
			s := str.Value
			if len(s) > 40 {
				s = s[:37] + "..."
			}
			return fmt.Sprintf("%q", s)
		}
	}
	return ""
}

// Listing writes a table of the instructions in the code range.
func (d *Disassembler) Listing(w io.Writer, mem []byte, addr memory.Addr, size int) error {
	instructions, err := d.Disassemble(mem, addr, size)
	d.Print(w, instructions)
	return err
}

// Print writes a table of decoded instructions.
func (d *Disassembler) Print(w io.Writer, instructions []Instruction) {
	var rows [][]string
	for _, ins := range instructions {
		operand := ""
		if ins.Operand != nil {
			operand = fmt.Sprintf("%d", *ins.Operand)
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", ins.Addr),
			d.name.Sprint(ins.Name),
			operand,
			d.colorize(ins),
		})
	}
	table.NewTable(w).
		WithHeader([]string{"ADDR", "OPCODE", "OPERAND", "INFO"}).
		WithColumnAlignment([]table.Alignment{
			table.AlignRight,
			table.AlignLeft,
			table.AlignRight,
			table.AlignLeft,
		}).
		WithHeaderAlignment([]table.Alignment{
			table.AlignCenter,
			table.AlignCenter,
			table.AlignCenter,
			table.AlignCenter,
		}).
		WithRows(rows).
		Render()
}

func (d *Disassembler) colorize(ins Instruction) string {
	if ins.Annotation == "" {
		return ""
	}
	switch {
	case op.IsBranch(ins.Opcode):
		return d.target.Sprint(ins.Annotation)
	case ins.Annotation[0] == '"':
		return d.str.Sprint(ins.Annotation)
	}
	return d.global.Sprint(ins.Annotation)
}
