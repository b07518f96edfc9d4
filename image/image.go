// Package image manages the permanent part of the memory pool: compiled code,
// global symbols, global data and interned strings.
//
// Code grows upward from the bottom of the image region and data grows
// downward from its top. The two may never overlap. Code for the unit under
// construction sits between the code base, the permanent high-water mark, and
// the code free pointer; Seal makes it permanent.
package image

import (
	"encoding/binary"
	"fmt"

	"github.com/dbasic-io/dbasic/errors"
	"github.com/dbasic-io/dbasic/memory"
	"github.com/dbasic-io/dbasic/symbol"
)

// CellSize is the size of one integer cell.
const CellSize = 4

// String is an interned string constant stored NUL terminated in the image.
type String struct {
	Value string
	Addr  memory.Addr
}

type mark struct {
	codeBase memory.Addr
	dataFree memory.Addr
	globals  int
	strings  int
}

// Image is the compiled program image.
type Image struct {
	mem      []byte
	top      memory.Addr
	globals  *symbol.Table
	strings  []*String
	codeBase memory.Addr
	codeFree memory.Addr
	dataFree memory.Addr
	commit   mark
}

// New returns an empty image occupying the image region of the pool. The
// first alignment unit is reserved so that address zero never names an
// object.
func New(pool *memory.Pool) *Image {
	img := &Image{
		mem:     pool.Bytes(),
		top:     memory.Addr(pool.ImageSize()),
		globals: symbol.NewTable(),
	}
	img.codeBase = memory.Align
	img.codeFree = img.codeBase
	img.dataFree = img.top
	img.Commit()
	return img
}

// Bytes returns the underlying memory, which is the whole pool.
func (img *Image) Bytes() []byte {
	return img.mem
}

// Globals returns the global symbol table.
func (img *Image) Globals() *symbol.Table {
	return img.globals
}

// Strings returns the interned strings, oldest first.
func (img *Image) Strings() []*String {
	return img.strings
}

// CodeBase returns the start of the unit under construction.
func (img *Image) CodeBase() memory.Addr {
	return img.codeBase
}

// CodeFree returns the next free code address.
func (img *Image) CodeFree() memory.Addr {
	return img.codeFree
}

// DataFree returns the lowest allocated data address.
func (img *Image) DataFree() memory.Addr {
	return img.dataFree
}

// Free returns the number of bytes between code and data.
func (img *Image) Free() int {
	return int(img.dataFree - img.codeFree)
}

// CodeAddr returns the offset of the next code byte within the unit under
// construction.
func (img *Image) CodeAddr() int {
	return int(img.codeFree - img.codeBase)
}

// HasPendingCode reports whether the unit under construction has any code.
func (img *Image) HasPendingCode() bool {
	return img.codeFree > img.codeBase
}

func (img *Image) reserveCode(n int) (int, error) {
	if int(img.dataFree)-int(img.codeFree) < n {
		return 0, errors.OutOfMemory("image")
	}
	off := img.CodeAddr()
	img.codeFree += memory.Addr(n)
	return off, nil
}

// EmitByte appends one code byte and returns its unit offset.
func (img *Image) EmitByte(b byte) (int, error) {
	off, err := img.reserveCode(1)
	if err != nil {
		return 0, err
	}
	img.mem[img.codeBase+memory.Addr(off)] = b
	return off, nil
}

// EmitWord appends a big-endian 16 bit word and returns its unit offset.
func (img *Image) EmitWord(v int16) (int, error) {
	off, err := img.reserveCode(2)
	if err != nil {
		return 0, err
	}
	img.PatchWord(off, v)
	return off, nil
}

// EmitLong appends a big-endian 32 bit long and returns its unit offset.
func (img *Image) EmitLong(v int32) (int, error) {
	off, err := img.reserveCode(4)
	if err != nil {
		return 0, err
	}
	img.PatchLong(off, v)
	return off, nil
}

func (img *Image) unitAddr(off int) memory.Addr {
	addr := img.codeBase + memory.Addr(off)
	if off < 0 || addr >= img.codeFree {
		panic(fmt.Sprintf("image: code offset %d outside the current unit", off))
	}
	return addr
}

// PatchByte overwrites the code byte at a unit offset.
func (img *Image) PatchByte(off int, b byte) {
	img.mem[img.unitAddr(off)] = b
}

// PatchWord overwrites the word at a unit offset.
func (img *Image) PatchWord(off int, v int16) {
	addr := img.unitAddr(off)
	binary.BigEndian.PutUint16(img.mem[addr:], uint16(v))
}

// PatchLong overwrites the long at a unit offset.
func (img *Image) PatchLong(off int, v int32) {
	addr := img.unitAddr(off)
	binary.BigEndian.PutUint32(img.mem[addr:], uint32(v))
}

// Word returns the word at a unit offset.
func (img *Image) Word(off int) int16 {
	addr := img.unitAddr(off)
	return int16(binary.BigEndian.Uint16(img.mem[addr:]))
}

// PendingCode returns the bytes of the unit under construction.
func (img *Image) PendingCode() []byte {
	return img.mem[img.codeBase:img.codeFree]
}

// AllocateData reserves size bytes, rounded to the alignment unit, at the
// top of the image.
func (img *Image) AllocateData(size int) (memory.Addr, error) {
	size = memory.RoundUp(size)
	if int(img.dataFree)-int(img.codeFree) < size {
		return 0, errors.OutOfMemory("image")
	}
	img.dataFree -= memory.Addr(size)
	return img.dataFree, nil
}

// StoreBytes copies buf into newly allocated data space.
func (img *Image) StoreBytes(buf []byte) (memory.Addr, error) {
	addr, err := img.AllocateData(len(buf))
	if err != nil {
		return 0, err
	}
	copy(img.mem[addr:], buf)
	return addr, nil
}

// StoreVector copies a vector of cells into newly allocated data space.
func (img *Image) StoreVector(values []int32) (memory.Addr, error) {
	buf := make([]byte, len(values)*CellSize)
	for i, v := range values {
		binary.BigEndian.PutUint32(buf[i*CellSize:], uint32(v))
	}
	return img.StoreBytes(buf)
}

// ReadLong reads the cell at an absolute address.
func (img *Image) ReadLong(addr memory.Addr) int32 {
	return int32(binary.BigEndian.Uint32(img.mem[addr:]))
}

// WriteLong writes the cell at an absolute address.
func (img *Image) WriteLong(addr memory.Addr, v int32) {
	binary.BigEndian.PutUint32(img.mem[addr:], uint32(v))
}

// DeclareGlobal returns the global named name, creating it if needed. An
// existing entry is returned unchanged whatever class and value are passed.
// A new Variable gets a cell holding value, and its symbol value becomes the
// cell's address.
func (img *Image) DeclareGlobal(name string, class symbol.Class, value int32) (*symbol.Symbol, error) {
	if sym, found := img.globals.Find(name); found {
		return sym, nil
	}
	addr, err := img.AllocateData(symbol.Size(name))
	if err != nil {
		return nil, err
	}
	sym := &symbol.Symbol{Name: name, Class: class, Value: value, Addr: addr}
	if class == symbol.Variable {
		// The cell is the first field of the entry.
		img.WriteLong(addr, value)
		sym.Value = int32(addr)
	}
	return img.globals.Add(sym), nil
}

// FindGlobal looks up a global symbol.
func (img *Image) FindGlobal(name string) (*symbol.Symbol, bool) {
	return img.globals.Find(name)
}

// AddString interns a string, returning the existing entry for identical
// content.
func (img *Image) AddString(value string) (*String, error) {
	for _, str := range img.strings {
		if str.Value == value {
			return str, nil
		}
	}
	buf := make([]byte, len(value)+1)
	copy(buf, value)
	addr, err := img.StoreBytes(buf)
	if err != nil {
		return nil, err
	}
	str := &String{Value: value, Addr: addr}
	img.strings = append(img.strings, str)
	return str, nil
}

// Seal makes the unit under construction permanent and returns its entry
// address and size. The next unit starts at the following aligned address.
func (img *Image) Seal() (memory.Addr, int) {
	entry := img.codeBase
	size := int(img.codeFree - img.codeBase)
	img.codeBase += memory.Addr(memory.RoundUp(size))
	img.codeFree = img.codeBase
	img.Commit()
	return entry, size
}

// Commit records the current state as the point Rollback returns to.
func (img *Image) Commit() {
	img.commit = mark{
		codeBase: img.codeBase,
		dataFree: img.dataFree,
		globals:  img.globals.Count(),
		strings:  len(img.strings),
	}
}

// Rollback discards everything added since the last commit: pending code,
// data allocations, globals and strings.
func (img *Image) Rollback() {
	m := img.commit
	for i := m.codeBase; i < img.codeFree; i++ {
		img.mem[i] = 0
	}
	for i := img.dataFree; i < m.dataFree; i++ {
		img.mem[i] = 0
	}
	img.codeBase = m.codeBase
	img.codeFree = m.codeBase
	img.dataFree = m.dataFree
	img.globals.Truncate(m.globals)
	for i := m.strings; i < len(img.strings); i++ {
		img.strings[i] = nil
	}
	img.strings = img.strings[:m.strings]
}
