// Package vm executes dbasic bytecode.
//
// The machine works directly on the byte pool the program was compiled into.
// Values are signed 32 bit cells on a single value stack. A call frame is a
// window of that stack holding the callee's arguments and locals.
package vm

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/dbasic-io/dbasic/memory"
	"github.com/dbasic-io/dbasic/op"
)

const (
	MaxFrameDepth = 256
	MaxStackDepth = 1024

	// DefaultContextCheckInterval is the number of instructions between
	// checks of ctx.Done().
	DefaultContextCheckInterval = 1000
)

// ErrStackOverflow is returned when the value or frame stack is exhausted.
var ErrStackOverflow = errors.New("stack overflow")

// RuntimeError reports a failure while executing an instruction.
type RuntimeError struct {
	Addr memory.Addr
	Op   string
	Err  error
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("runtime error at %d (%s): %s", e.Addr, e.Op, e.Err)
}

func (e *RuntimeError) Unwrap() error {
	return e.Err
}

// VirtualMachine is a stack machine over a byte pool. It is not safe for
// concurrent use.
type VirtualMachine struct {
	mem    []byte
	pc     memory.Addr
	opAddr memory.Addr
	sp     int
	stack  []int32
	frames [MaxFrameDepth]frame
	fp     int

	input  io.Reader
	in     *bufio.Reader
	output io.Writer
	out    *bufio.Writer

	contextCheckInterval int
	observer             Observer
	log                  zerolog.Logger
}

// New returns a machine that executes code stored in mem.
func New(mem []byte, options ...Option) *VirtualMachine {
	vm := &VirtualMachine{
		mem:                  mem,
		output:               io.Discard,
		contextCheckInterval: DefaultContextCheckInterval,
		log:                  zerolog.Nop(),
	}
	for _, opt := range options {
		opt(vm)
	}
	if vm.stack == nil {
		vm.stack = make([]int32, MaxStackDepth)
	}
	if vm.input != nil {
		vm.in = bufio.NewReader(vm.input)
	}
	vm.out = bufio.NewWriter(vm.output)
	return vm
}

// Run executes from entry until HALT, or until RETURN in the outermost
// code. It returns the value on top of the stack at that point, or zero
// when the stack is empty.
func (vm *VirtualMachine) Run(ctx context.Context, entry memory.Addr) (int32, error) {
	vm.pc = entry
	vm.sp = -1
	vm.fp = -1
	steps, err := vm.eval(ctx)
	if ferr := vm.out.Flush(); err == nil && ferr != nil {
		err = ferr
	}
	vm.log.Debug().
		Uint32("entry", uint32(entry)).
		Int("steps", steps).
		Err(err).
		Msg("run finished")
	if err != nil {
		return 0, err
	}
	result, _ := vm.TOS()
	return result, nil
}

// TOS returns the value on top of the stack.
func (vm *VirtualMachine) TOS() (int32, bool) {
	if vm.sp < 0 {
		return 0, false
	}
	return vm.stack[vm.sp], true
}

func (vm *VirtualMachine) eval(ctx context.Context) (int, error) {
	for steps := 0; ; steps++ {
		if vm.contextCheckInterval > 0 && steps%vm.contextCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return steps, err
			}
		}
		vm.opAddr = vm.pc
		code := op.Code(vm.fetchByte())
		if vm.observer != nil && !vm.observer.OnStep(vm.opAddr, code, vm.fp+1) {
			return steps, nil
		}
		halted, err := vm.step(code)
		if err != nil {
			return steps, vm.fault(code, err)
		}
		if halted {
			return steps + 1, nil
		}
	}
}

func (vm *VirtualMachine) fault(code op.Code, err error) error {
	var rerr *RuntimeError
	if errors.As(err, &rerr) {
		return err
	}
	name := op.GetInfo(code).Name
	if name == "" {
		name = fmt.Sprintf("0x%02x", byte(code))
	}
	return &RuntimeError{Addr: vm.opAddr, Op: name, Err: err}
}

func (vm *VirtualMachine) step(code op.Code) (bool, error) {
	switch code {
	case op.Halt:
		return true, nil
	case op.Br:
		vm.branch(true)
	case op.BrT:
		v, err := vm.pop()
		if err != nil {
			return false, err
		}
		vm.branch(v != 0)
	case op.BrF:
		v, err := vm.pop()
		if err != nil {
			return false, err
		}
		vm.branch(v == 0)
	case op.BrTSC, op.BrFSC:
		v, err := vm.peek()
		if err != nil {
			return false, err
		}
		taken := v != 0
		if code == op.BrFSC {
			taken = v == 0
		}
		if !taken {
			vm.sp--
		}
		vm.branch(taken)
	case op.Not, op.Neg, op.BNot:
		v, err := vm.pop()
		if err != nil {
			return false, err
		}
		r, _ := op.EvalUnary(code, v)
		return false, vm.push(r)
	case op.Add, op.Sub, op.Mul, op.Div, op.Rem, op.BAnd, op.BOr, op.BXor,
		op.Shl, op.Shr, op.Lt, op.Le, op.Eq, op.Ne, op.Ge, op.Gt:
		b, err := vm.pop()
		if err != nil {
			return false, err
		}
		a, err := vm.pop()
		if err != nil {
			return false, err
		}
		r, ok := op.EvalBinary(code, a, b)
		if !ok {
			return false, errors.New("division by zero")
		}
		return false, vm.push(r)
	case op.Lit:
		return false, vm.push(vm.fetchLong())
	case op.SLit:
		return false, vm.push(int32(int8(vm.fetchByte())))
	case op.Load, op.LoadB:
		addr, err := vm.pop()
		if err != nil {
			return false, err
		}
		v, err := vm.load(addr, code == op.LoadB)
		if err != nil {
			return false, err
		}
		return false, vm.push(v)
	case op.Store, op.StoreB:
		v, err := vm.pop()
		if err != nil {
			return false, err
		}
		addr, err := vm.pop()
		if err != nil {
			return false, err
		}
		if err := vm.store(addr, v, code == op.StoreB); err != nil {
			return false, err
		}
		return false, vm.push(v)
	case op.LRef:
		slot, err := vm.slot(vm.fetchByte())
		if err != nil {
			return false, err
		}
		return false, vm.push(vm.stack[slot])
	case op.LSet:
		slot, err := vm.slot(vm.fetchByte())
		if err != nil {
			return false, err
		}
		v, err := vm.peek()
		if err != nil {
			return false, err
		}
		vm.stack[slot] = v
	case op.Index:
		index, err := vm.pop()
		if err != nil {
			return false, err
		}
		base, err := vm.pop()
		if err != nil {
			return false, err
		}
		return false, vm.push(base + index*4)
	case op.Call:
		return false, vm.call(int(vm.fetchByte()))
	case op.Frame:
		return false, vm.enterFrame(int(vm.fetchByte()))
	case op.Return:
		return vm.ret()
	case op.Drop:
		_, err := vm.pop()
		return false, err
	case op.Dup:
		v, err := vm.peek()
		if err != nil {
			return false, err
		}
		return false, vm.push(v)
	case op.Tuck:
		b, err := vm.pop()
		if err != nil {
			return false, err
		}
		a, err := vm.pop()
		if err != nil {
			return false, err
		}
		for _, v := range []int32{b, a, b} {
			if err := vm.push(v); err != nil {
				return false, err
			}
		}
	case op.Trap:
		return false, vm.trap(vm.fetchByte())
	case op.Native:
		vm.fetchLong()
		return false, errors.New("native instructions are not supported")
	default:
		return false, errors.New("illegal opcode")
	}
	return false, nil
}

func (vm *VirtualMachine) fetchByte() byte {
	if int(vm.pc) >= len(vm.mem) {
		// Running off the end of memory halts.
		return byte(op.Halt)
	}
	b := vm.mem[vm.pc]
	vm.pc++
	return b
}

func (vm *VirtualMachine) fetchWord() int16 {
	hi := vm.fetchByte()
	lo := vm.fetchByte()
	return int16(uint16(hi)<<8 | uint16(lo))
}

func (vm *VirtualMachine) fetchLong() int32 {
	var v uint32
	for i := 0; i < 4; i++ {
		v = v<<8 | uint32(vm.fetchByte())
	}
	return int32(v)
}

// branch reads a branch offset and applies it if taken.
func (vm *VirtualMachine) branch(taken bool) {
	offset := vm.fetchWord()
	if taken {
		vm.pc = memory.Addr(int(vm.pc) + int(offset))
	}
}

func (vm *VirtualMachine) push(v int32) error {
	if vm.sp+1 >= len(vm.stack) {
		return ErrStackOverflow
	}
	vm.sp++
	vm.stack[vm.sp] = v
	return nil
}

// floor returns the lowest stack index the current frame may pop.
func (vm *VirtualMachine) floor() int {
	if vm.fp < 0 {
		return 0
	}
	return vm.frames[vm.fp].top() + 1
}

func (vm *VirtualMachine) pop() (int32, error) {
	if vm.sp < vm.floor() {
		return 0, errors.New("stack underflow")
	}
	v := vm.stack[vm.sp]
	vm.sp--
	return v, nil
}

func (vm *VirtualMachine) peek() (int32, error) {
	if vm.sp < vm.floor() {
		return 0, errors.New("stack underflow")
	}
	return vm.stack[vm.sp], nil
}

func (vm *VirtualMachine) checkAddr(addr int32, size int) error {
	if addr < 0 || int(addr)+size > len(vm.mem) {
		return fmt.Errorf("address %d out of range", addr)
	}
	return nil
}

func (vm *VirtualMachine) load(addr int32, isByte bool) (int32, error) {
	if isByte {
		if err := vm.checkAddr(addr, 1); err != nil {
			return 0, err
		}
		return int32(vm.mem[addr]), nil
	}
	if err := vm.checkAddr(addr, 4); err != nil {
		return 0, err
	}
	return int32(binary.BigEndian.Uint32(vm.mem[addr:])), nil
}

func (vm *VirtualMachine) store(addr, v int32, isByte bool) error {
	if isByte {
		if err := vm.checkAddr(addr, 1); err != nil {
			return err
		}
		vm.mem[addr] = byte(v)
		return nil
	}
	if err := vm.checkAddr(addr, 4); err != nil {
		return err
	}
	binary.BigEndian.PutUint32(vm.mem[addr:], uint32(v))
	return nil
}

func (vm *VirtualMachine) slot(n byte) (int, error) {
	if vm.fp < 0 {
		return 0, errors.New("no active frame")
	}
	f := &vm.frames[vm.fp]
	if int(n) >= f.slots {
		return 0, fmt.Errorf("frame slot %d out of range", n)
	}
	return f.base + int(n), nil
}

// call pops the callee and makes the argc values below it the first slots
// of a new frame.
func (vm *VirtualMachine) call(argc int) error {
	target, err := vm.pop()
	if err != nil {
		return err
	}
	if vm.sp+1-vm.floor() < argc {
		return errors.New("stack underflow")
	}
	if vm.fp+1 == MaxFrameDepth {
		return ErrStackOverflow
	}
	if err := vm.checkAddr(target, 1); err != nil || target == 0 {
		return fmt.Errorf("call to invalid address %d", target)
	}
	vm.fp++
	vm.frames[vm.fp] = frame{returnAddr: vm.pc, base: vm.sp + 1 - argc, slots: argc}
	if vm.observer != nil && !vm.observer.OnCall(memory.Addr(target), argc, vm.fp+1) {
		return errors.New("stopped by observer")
	}
	vm.pc = memory.Addr(target)
	return nil
}

// enterFrame resizes the current frame to n slots, clearing new ones.
func (vm *VirtualMachine) enterFrame(n int) error {
	if vm.fp < 0 {
		return errors.New("no active frame")
	}
	f := &vm.frames[vm.fp]
	if f.base+n > len(vm.stack) {
		return ErrStackOverflow
	}
	for i := f.base + f.slots; i < f.base+n; i++ {
		vm.stack[i] = 0
	}
	f.slots = n
	vm.sp = f.top()
	return nil
}

// ret returns from the current frame with the value on top of its stack,
// or zero when nothing was pushed. It halts outside any frame.
func (vm *VirtualMachine) ret() (bool, error) {
	if vm.fp < 0 {
		return true, nil
	}
	var result int32
	if vm.sp >= vm.floor() {
		result = vm.stack[vm.sp]
	}
	f := vm.frames[vm.fp]
	vm.fp--
	vm.sp = f.base - 1
	vm.pc = f.returnAddr
	if vm.observer != nil && !vm.observer.OnReturn(result, vm.fp+1) {
		return false, errors.New("stopped by observer")
	}
	return false, vm.push(result)
}

func (vm *VirtualMachine) trap(code byte) error {
	switch code {
	case op.TrapGetChar:
		return vm.push(vm.getChar())
	case op.TrapPutChar:
		v, err := vm.pop()
		if err != nil {
			return err
		}
		return vm.out.WriteByte(byte(v))
	case op.TrapPrintStr:
		addr, err := vm.pop()
		if err != nil {
			return err
		}
		return vm.printString(addr)
	case op.TrapPrintInt:
		v, err := vm.pop()
		if err != nil {
			return err
		}
		_, err = vm.out.WriteString(strconv.FormatInt(int64(v), 10))
		return err
	case op.TrapPrintTab:
		return vm.out.WriteByte('\t')
	case op.TrapPrintNL:
		if err := vm.out.WriteByte('\n'); err != nil {
			return err
		}
		return vm.out.Flush()
	case op.TrapPrintFlush:
		return vm.out.Flush()
	}
	return fmt.Errorf("unknown trap %d", code)
}

// getChar reads one byte of input, or -1 at the end of input.
func (vm *VirtualMachine) getChar() int32 {
	if vm.in == nil {
		return -1
	}
	vm.out.Flush()
	b, err := vm.in.ReadByte()
	if err != nil {
		return -1
	}
	return int32(b)
}

func (vm *VirtualMachine) printString(addr int32) error {
	if err := vm.checkAddr(addr, 1); err != nil {
		return err
	}
	for i := int(addr); i < len(vm.mem) && vm.mem[i] != 0; i++ {
		if err := vm.out.WriteByte(vm.mem[i]); err != nil {
			return err
		}
	}
	return nil
}
