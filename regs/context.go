// Package regs implements the Modbus register context: the four addressable coordinate spaces
// (coils, discrete inputs, holding registers, input registers) that a Modbus server dispatches
// requests against.
package regs

import (
	"encoding/binary"
	"errors"
	"math"
)

// ErrOutOfBounds is the only failure mode of a Context accessor: the address (or address+width
// for a typed/bulk access) falls outside the space's configured size.
var ErrOutOfBounds = errors.New("regs: address out of bounds")

// Context is the generic register context, parameterized by the size of each of the four
// coordinate spaces. It is not safe for concurrent use; the host wraps it in whatever
// synchronization primitive fits its transport (see the server package's sync.RWMutex wrapping).
type Context struct {
	coils     bitSpace
	discretes bitSpace
	holdings  []uint16
	inputs    []uint16
}

// NewContext creates a Context with the four coordinate spaces sized as given. Every address is
// zero-initialized.
func NewContext(coilCount, discreteCount, holdingCount, inputCount int) *Context {
	return &Context{
		coils:     newBitSpace(coilCount),
		discretes: newBitSpace(discreteCount),
		holdings:  make([]uint16, holdingCount),
		inputs:    make([]uint16, inputCount),
	}
}

// NewSmallContext creates the "small" named instantiation: 1000 coils, discretes, holdings and
// inputs.
func NewSmallContext() *Context {
	return NewContext(1000, 1000, 1000, 1000)
}

// NewFullContext creates the "full" named instantiation: 10000 coils, discretes, holdings and
// inputs.
func NewFullContext() *Context {
	return NewContext(10000, 10000, 10000, 10000)
}

// CoilCount returns the size of the coil space.
func (c *Context) CoilCount() int { return c.coils.count }

// DiscreteCount returns the size of the discrete input space.
func (c *Context) DiscreteCount() int { return c.discretes.count }

// HoldingCount returns the size of the holding register space.
func (c *Context) HoldingCount() int { return len(c.holdings) }

// InputCount returns the size of the input register space.
func (c *Context) InputCount() int { return len(c.inputs) }

// GetCoil returns the value of the coil at addr.
func (c *Context) GetCoil(addr uint16) (bool, error) { return c.coils.get(addr) }

// SetCoil sets the coil at addr.
func (c *Context) SetCoil(addr uint16, value bool) error { return c.coils.set(addr, value) }

// GetDiscrete returns the value of the discrete input at addr. Discrete inputs are read-only from
// the Modbus client's point of view; the host still uses SetDiscrete to drive simulated or
// acquired sensor state.
func (c *Context) GetDiscrete(addr uint16) (bool, error) { return c.discretes.get(addr) }

// SetDiscrete sets the discrete input at addr.
func (c *Context) SetDiscrete(addr uint16, value bool) error { return c.discretes.set(addr, value) }

// GetHolding returns the value of the holding register at addr.
func (c *Context) GetHolding(addr uint16) (uint16, error) {
	if int(addr) >= len(c.holdings) {
		return 0, ErrOutOfBounds
	}
	return c.holdings[addr], nil
}

// SetHolding sets the holding register at addr.
func (c *Context) SetHolding(addr uint16, value uint16) error {
	if int(addr) >= len(c.holdings) {
		return ErrOutOfBounds
	}
	c.holdings[addr] = value
	return nil
}

// GetInput returns the value of the input register at addr.
func (c *Context) GetInput(addr uint16) (uint16, error) {
	if int(addr) >= len(c.inputs) {
		return 0, ErrOutOfBounds
	}
	return c.inputs[addr], nil
}

// SetInput sets the input register at addr.
func (c *Context) SetInput(addr uint16, value uint16) error {
	if int(addr) >= len(c.inputs) {
		return ErrOutOfBounds
	}
	c.inputs[addr] = value
	return nil
}

// GetCoilsBulk reads len(dst) coils starting at addr into dst.
func (c *Context) GetCoilsBulk(addr uint16, dst []bool) error { return c.coils.getBulk(addr, dst) }

// SetCoilsBulk writes src into len(src) coils starting at addr.
func (c *Context) SetCoilsBulk(addr uint16, src []bool) error { return c.coils.setBulk(addr, src) }

// GetDiscretesBulk reads len(dst) discrete inputs starting at addr into dst.
func (c *Context) GetDiscretesBulk(addr uint16, dst []bool) error {
	return c.discretes.getBulk(addr, dst)
}

// SetDiscretesBulk writes src into len(src) discrete inputs starting at addr.
func (c *Context) SetDiscretesBulk(addr uint16, src []bool) error {
	return c.discretes.setBulk(addr, src)
}

// GetHoldingsBulk reads len(dst) holding registers starting at addr into dst.
func (c *Context) GetHoldingsBulk(addr uint16, dst []uint16) error {
	return getWordsBulk(c.holdings, addr, dst)
}

// SetHoldingsBulk writes src into len(src) holding registers starting at addr.
func (c *Context) SetHoldingsBulk(addr uint16, src []uint16) error {
	return setWordsBulk(c.holdings, addr, src)
}

// GetInputsBulk reads len(dst) input registers starting at addr into dst.
func (c *Context) GetInputsBulk(addr uint16, dst []uint16) error {
	return getWordsBulk(c.inputs, addr, dst)
}

// SetInputsBulk writes src into len(src) input registers starting at addr.
func (c *Context) SetInputsBulk(addr uint16, src []uint16) error {
	return setWordsBulk(c.inputs, addr, src)
}

// GetCoilsAsU8 packs count coils starting at addr LSB-first into dst, as used by the FC01 Read
// Coils response payload.
func (c *Context) GetCoilsAsU8(addr uint16, count uint16, dst []byte) error {
	return c.coils.getAsU8(addr, count, dst)
}

// SetCoilsFromU8 unpacks count coils LSB-first from src, starting at addr.
func (c *Context) SetCoilsFromU8(addr uint16, count uint16, src []byte) error {
	return c.coils.setFromU8(addr, count, src)
}

// GetDiscretesAsU8 packs count discrete inputs starting at addr LSB-first into dst, as used by the
// FC02 Read Discrete Inputs response payload.
func (c *Context) GetDiscretesAsU8(addr uint16, count uint16, dst []byte) error {
	return c.discretes.getAsU8(addr, count, dst)
}

// SetDiscretesFromU8 unpacks count discrete inputs LSB-first from src, starting at addr.
func (c *Context) SetDiscretesFromU8(addr uint16, count uint16, src []byte) error {
	return c.discretes.setFromU8(addr, count, src)
}

func getWordsBulk(space []uint16, addr uint16, dst []uint16) error {
	start := int(addr)
	if start+len(dst) > len(space) {
		return ErrOutOfBounds
	}
	copy(dst, space[start:start+len(dst)])
	return nil
}

func setWordsBulk(space []uint16, addr uint16, src []uint16) error {
	start := int(addr)
	if start+len(src) > len(space) {
		return ErrOutOfBounds
	}
	copy(space[start:start+len(src)], src)
	return nil
}

// HoldingAsU32 reads a big-endian, high-word-first uint32 from two consecutive holding registers
// starting at addr.
func (c *Context) HoldingAsU32(addr uint16) (uint32, error) {
	hi, lo, err := readWordPair(c.holdings, addr)
	if err != nil {
		return 0, err
	}
	return uint32(hi)<<16 | uint32(lo), nil
}

// SetHoldingAsU32 writes value into two consecutive holding registers starting at addr,
// high-order word first.
func (c *Context) SetHoldingAsU32(addr uint16, value uint32) error {
	return writeWordPair(c.holdings, addr, uint16(value>>16), uint16(value))
}

// HoldingAsI32 reads a big-endian, high-word-first int32 from two consecutive holding registers.
func (c *Context) HoldingAsI32(addr uint16) (int32, error) {
	v, err := c.HoldingAsU32(addr)
	return int32(v), err
}

// SetHoldingAsI32 writes value into two consecutive holding registers, high-order word first.
func (c *Context) SetHoldingAsI32(addr uint16, value int32) error {
	return c.SetHoldingAsU32(addr, uint32(value))
}

// HoldingAsF32 reads the IEEE-754 bit pattern of two consecutive holding registers as a float32.
func (c *Context) HoldingAsF32(addr uint16) (float32, error) {
	v, err := c.HoldingAsU32(addr)
	return math.Float32frombits(v), err
}

// SetHoldingAsF32 writes the IEEE-754 bit pattern of value into two consecutive holding registers,
// high-order word first.
func (c *Context) SetHoldingAsF32(addr uint16, value float32) error {
	return c.SetHoldingAsU32(addr, math.Float32bits(value))
}

// HoldingAsU64 reads a big-endian, high-word-first uint64 from four consecutive holding registers.
func (c *Context) HoldingAsU64(addr uint16) (uint64, error) {
	return readWordQuad(c.holdings, addr)
}

// SetHoldingAsU64 writes value into four consecutive holding registers, high-order word first.
func (c *Context) SetHoldingAsU64(addr uint16, value uint64) error {
	return writeWordQuad(c.holdings, addr, value)
}

// HoldingAsI64 reads a big-endian, high-word-first int64 from four consecutive holding registers.
func (c *Context) HoldingAsI64(addr uint16) (int64, error) {
	v, err := c.HoldingAsU64(addr)
	return int64(v), err
}

// SetHoldingAsI64 writes value into four consecutive holding registers, high-order word first.
func (c *Context) SetHoldingAsI64(addr uint16, value int64) error {
	return c.SetHoldingAsU64(addr, uint64(value))
}

// HoldingAsF64 reads the IEEE-754 bit pattern of four consecutive holding registers as a float64.
func (c *Context) HoldingAsF64(addr uint16) (float64, error) {
	v, err := c.HoldingAsU64(addr)
	return math.Float64frombits(v), err
}

// SetHoldingAsF64 writes the IEEE-754 bit pattern of value into four consecutive holding
// registers, high-order word first.
func (c *Context) SetHoldingAsF64(addr uint16, value float64) error {
	return c.SetHoldingAsU64(addr, math.Float64bits(value))
}

// InputAsU32 reads a big-endian, high-word-first uint32 from two consecutive input registers.
func (c *Context) InputAsU32(addr uint16) (uint32, error) {
	hi, lo, err := readWordPair(c.inputs, addr)
	if err != nil {
		return 0, err
	}
	return uint32(hi)<<16 | uint32(lo), nil
}

// SetInputAsU32 writes value into two consecutive input registers, high-order word first. Input
// registers are read-only from the Modbus client's point of view; the host uses this to drive
// simulated or acquired measurements.
func (c *Context) SetInputAsU32(addr uint16, value uint32) error {
	return writeWordPair(c.inputs, addr, uint16(value>>16), uint16(value))
}

// InputAsI32 reads a big-endian, high-word-first int32 from two consecutive input registers.
func (c *Context) InputAsI32(addr uint16) (int32, error) {
	v, err := c.InputAsU32(addr)
	return int32(v), err
}

// SetInputAsI32 writes value into two consecutive input registers, high-order word first.
func (c *Context) SetInputAsI32(addr uint16, value int32) error {
	return c.SetInputAsU32(addr, uint32(value))
}

// InputAsF32 reads the IEEE-754 bit pattern of two consecutive input registers as a float32.
func (c *Context) InputAsF32(addr uint16) (float32, error) {
	v, err := c.InputAsU32(addr)
	return math.Float32frombits(v), err
}

// SetInputAsF32 writes the IEEE-754 bit pattern of value into two consecutive input registers,
// high-order word first.
func (c *Context) SetInputAsF32(addr uint16, value float32) error {
	return c.SetInputAsU32(addr, math.Float32bits(value))
}

// InputAsU64 reads a big-endian, high-word-first uint64 from four consecutive input registers.
func (c *Context) InputAsU64(addr uint16) (uint64, error) {
	return readWordQuad(c.inputs, addr)
}

// SetInputAsU64 writes value into four consecutive input registers, high-order word first.
func (c *Context) SetInputAsU64(addr uint16, value uint64) error {
	return writeWordQuad(c.inputs, addr, value)
}

// InputAsI64 reads a big-endian, high-word-first int64 from four consecutive input registers.
func (c *Context) InputAsI64(addr uint16) (int64, error) {
	v, err := c.InputAsU64(addr)
	return int64(v), err
}

// SetInputAsI64 writes value into four consecutive input registers, high-order word first.
func (c *Context) SetInputAsI64(addr uint16, value int64) error {
	return c.SetInputAsU64(addr, uint64(value))
}

// InputAsF64 reads the IEEE-754 bit pattern of four consecutive input registers as a float64.
func (c *Context) InputAsF64(addr uint16) (float64, error) {
	v, err := c.InputAsU64(addr)
	return math.Float64frombits(v), err
}

// SetInputAsF64 writes the IEEE-754 bit pattern of value into four consecutive input registers,
// high-order word first.
func (c *Context) SetInputAsF64(addr uint16, value float64) error {
	return c.SetInputAsU64(addr, math.Float64bits(value))
}

func readWordPair(space []uint16, addr uint16) (hi uint16, lo uint16, err error) {
	start := int(addr)
	if start+2 > len(space) {
		return 0, 0, ErrOutOfBounds
	}
	return space[start], space[start+1], nil
}

func writeWordPair(space []uint16, addr uint16, hi uint16, lo uint16) error {
	start := int(addr)
	if start+2 > len(space) {
		return ErrOutOfBounds
	}
	space[start] = hi
	space[start+1] = lo
	return nil
}

func readWordQuad(space []uint16, addr uint16) (uint64, error) {
	start := int(addr)
	if start+4 > len(space) {
		return 0, ErrOutOfBounds
	}
	return uint64(space[start])<<48 | uint64(space[start+1])<<32 | uint64(space[start+2])<<16 | uint64(space[start+3]), nil
}

func writeWordQuad(space []uint16, addr uint16, value uint64) error {
	start := int(addr)
	if start+4 > len(space) {
		return ErrOutOfBounds
	}
	space[start] = uint16(value >> 48)
	space[start+1] = uint16(value >> 32)
	space[start+2] = uint16(value >> 16)
	space[start+3] = uint16(value)
	return nil
}

// SnapshotLen returns the deterministic length of the byte stream produced by Snapshot: packed
// coils, packed discretes (each zero-padded to a byte boundary), then big-endian input registers,
// then big-endian holding registers.
func (c *Context) SnapshotLen() int {
	return c.coils.byteLen() + c.discretes.byteLen() + len(c.inputs)*2 + len(c.holdings)*2
}

// Snapshot writes the concatenated byte stream of all four spaces, in the fixed order coils,
// discretes, inputs, holdings, into dst. dst must be at least SnapshotLen() bytes.
func (c *Context) Snapshot(dst []byte) error {
	if len(dst) < c.SnapshotLen() {
		return ErrOutOfBounds
	}
	offset := 0
	offset += copy(dst[offset:], c.coils.bits)
	offset += copy(dst[offset:], c.discretes.bits)
	offset += putWords(dst[offset:], c.inputs)
	putWords(dst[offset:], c.holdings)
	return nil
}

// Restore reads a byte stream produced by Snapshot back into the context. data must be exactly
// SnapshotLen() bytes.
func (c *Context) Restore(data []byte) error {
	if len(data) != c.SnapshotLen() {
		return ErrOutOfBounds
	}
	offset := 0
	offset += copy(c.coils.bits, data[offset:offset+c.coils.byteLen()])
	offset += copy(c.discretes.bits, data[offset:offset+c.discretes.byteLen()])
	offset += getWords(data[offset:], c.inputs)
	getWords(data[offset:], c.holdings)
	return nil
}

func putWords(dst []byte, words []uint16) int {
	for i, w := range words {
		binary.BigEndian.PutUint16(dst[i*2:i*2+2], w)
	}
	return len(words) * 2
}

func getWords(src []byte, words []uint16) int {
	for i := range words {
		words[i] = binary.BigEndian.Uint16(src[i*2 : i*2+2])
	}
	return len(words) * 2
}
