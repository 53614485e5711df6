// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package handle

import (
	"encoding/binary"
	"sync/atomic"

	"github.com/ezrec/nativecpu/memory"
)

// Handle is a single heap allocation.
//
// The first RawSize() bytes are a plain byte buffer. For array kinds the
// bytes from RawSize() up to Size() are the cells of the array, stored in
// exactly one of the cell slices as selected by the kind.
type Handle struct {
	Id   int32 // Identifier of the handle.
	Kind Kind  // Storage kind.

	size    uint32
	rawSize uint32
	count   atomic.Int32

	raw    []byte
	cell8  []byte
	cell16 []uint16
	cell32 []int32
	cell64 []int64
}

var _ memory.Memory = (*Handle)(nil)

// NewHandle creates a handle of size bytes, the first rawSize of which are
// plain bytes.
func NewHandle(id int32, kind Kind, size, rawSize int32) (h *Handle, err error) {
	switch {
	case !kind.Valid():
		err = ErrInvalidKind
	case size < 0 || rawSize < 0 || size < rawSize:
		err = ErrInvalidSize
	case !kind.IsArray() && size != rawSize:
		err = ErrInvalidSize
	case kind.IsArray() && (size-rawSize)%int32(kind.CellSize()) != 0:
		err = ErrInvalidSize
	}
	if err != nil {
		err = &ErrHandle{Id: id, Err: err}
		return
	}

	h = &Handle{
		Id:      id,
		Kind:    kind,
		size:    uint32(size),
		rawSize: uint32(rawSize),
		raw:     make([]byte, rawSize),
	}

	if kind.IsArray() {
		cells := int(size-rawSize) / kind.CellSize()
		switch kind.CellSize() {
		case 1:
			h.cell8 = make([]byte, cells)
		case 2:
			h.cell16 = make([]uint16, cells)
		case 4:
			h.cell32 = make([]int32, cells)
		case 8:
			h.cell64 = make([]int64, cells)
		}
	}

	return
}

// Size is the logical byte size of the handle.
func (h *Handle) Size() uint32 {
	return h.size
}

// RawSize is the size of the plain byte prefix.
func (h *Handle) RawSize() uint32 {
	return h.rawSize
}

// Length is the number of array cells, 0 for non-array kinds.
func (h *Handle) Length() int {
	if !h.Kind.IsArray() {
		return 0
	}
	return int(h.size-h.rawSize) / h.Kind.CellSize()
}

// Count is the current reference count.
func (h *Handle) Count() int32 {
	return h.count.Load()
}

// CountUp increments the reference count, returning the new count.
func (h *Handle) CountUp() int32 {
	return h.count.Add(1)
}

// CountDown decrements the reference count, returning the new count.
func (h *Handle) CountDown() int32 {
	return h.count.Add(-1)
}

// SetCount sets an explicit reference count.
func (h *Handle) SetCount(count int32) {
	h.count.Store(count)
}

// cell locates the byte rel within the special region: the cell index
// and the bit shift of that byte within the big-endian cell value.
func (h *Handle) cell(rel uint32) (index int, shift uint) {
	size := uint32(h.Kind.CellSize())
	index = int(rel / size)
	shift = uint(8 * (size - 1 - rel%size))
	return
}

// get8 reads one byte, which must already be bounds checked.
func (h *Handle) get8(addr uint32) uint8 {
	if addr < h.rawSize {
		return h.raw[addr]
	}

	index, shift := h.cell(addr - h.rawSize)
	switch h.Kind.CellSize() {
	case 1:
		return h.cell8[index]
	case 2:
		return uint8(h.cell16[index] >> shift)
	case 4:
		return uint8(uint32(h.cell32[index]) >> shift)
	case 8:
		return uint8(uint64(h.cell64[index]) >> shift)
	}

	panic("special region on a non-array handle")
}

// set8 writes one byte, which must already be bounds checked.
func (h *Handle) set8(addr uint32, value uint8) {
	if addr < h.rawSize {
		h.raw[addr] = value
		return
	}

	index, shift := h.cell(addr - h.rawSize)
	switch h.Kind.CellSize() {
	case 1:
		h.cell8[index] = value
	case 2:
		mask := uint16(0xff) << shift
		h.cell16[index] = (h.cell16[index] &^ mask) | (uint16(value) << shift)
	case 4:
		mask := uint32(0xff) << shift
		h.cell32[index] = int32((uint32(h.cell32[index]) &^ mask) | (uint32(value) << shift))
	case 8:
		mask := uint64(0xff) << shift
		h.cell64[index] = int64((uint64(h.cell64[index]) &^ mask) | (uint64(value) << shift))
	default:
		panic("special region on a non-array handle")
	}
}

// aligned returns the cell index when [addr, addr+width) is exactly one
// special region cell of the given width.
func (h *Handle) aligned(addr uint32, width int) (index int, ok bool) {
	if addr < h.rawSize || h.Kind.CellSize() != width {
		return
	}
	rel := addr - h.rawSize
	if rel%uint32(width) != 0 {
		return
	}
	return int(rel / uint32(width)), true
}

func (h *Handle) fault(op string, addr uint32, length int) error {
	err := memory.Check(op, addr, length, h.size)
	if err != nil {
		err = &ErrHandle{Id: h.Id, Err: err}
	}
	return err
}

func (h *Handle) Read8(addr uint32) (value uint8, err error) {
	err = h.fault("read8", addr, 1)
	if err != nil {
		return
	}
	value = h.get8(addr)
	return
}

func (h *Handle) Read16(addr uint32) (value int16, err error) {
	err = h.fault("read16", addr, 2)
	if err != nil {
		return
	}

	switch index, ok := h.aligned(addr, 2); {
	case addr+2 <= h.rawSize:
		value = int16(binary.BigEndian.Uint16(h.raw[addr:]))
	case ok:
		value = int16(h.cell16[index])
	default:
		value = int16(uint16(h.get8(addr))<<8 | uint16(h.get8(addr+1)))
	}
	return
}

func (h *Handle) Read32(addr uint32) (value int32, err error) {
	err = h.fault("read32", addr, 4)
	if err != nil {
		return
	}

	switch index, ok := h.aligned(addr, 4); {
	case addr+4 <= h.rawSize:
		value = int32(binary.BigEndian.Uint32(h.raw[addr:]))
	case ok:
		value = h.cell32[index]
	default:
		var v uint32
		for n := range uint32(4) {
			v = v<<8 | uint32(h.get8(addr+n))
		}
		value = int32(v)
	}
	return
}

func (h *Handle) Write8(addr uint32, value uint8) (err error) {
	err = h.fault("write8", addr, 1)
	if err != nil {
		return
	}
	h.set8(addr, value)
	return
}

func (h *Handle) Write16(addr uint32, value int16) (err error) {
	err = h.fault("write16", addr, 2)
	if err != nil {
		return
	}

	switch index, ok := h.aligned(addr, 2); {
	case addr+2 <= h.rawSize:
		binary.BigEndian.PutUint16(h.raw[addr:], uint16(value))
	case ok:
		h.cell16[index] = uint16(value)
	default:
		h.set8(addr, uint8(uint16(value)>>8))
		h.set8(addr+1, uint8(value))
	}
	return
}

func (h *Handle) Write32(addr uint32, value int32) (err error) {
	err = h.fault("write32", addr, 4)
	if err != nil {
		return
	}

	switch index, ok := h.aligned(addr, 4); {
	case addr+4 <= h.rawSize:
		binary.BigEndian.PutUint32(h.raw[addr:], uint32(value))
	case ok:
		h.cell32[index] = value
	default:
		for n := range uint32(4) {
			h.set8(addr+n, uint8(uint32(value)>>(8*(3-n))))
		}
	}
	return
}

func (h *Handle) ReadBytes(addr uint32, dest []byte) (err error) {
	err = h.fault("read", addr, len(dest))
	if err != nil {
		return
	}

	// Raw head, then the special tail.
	head := 0
	if addr < h.rawSize {
		head = copy(dest, h.raw[addr:])
	}
	if h.Kind.CellSize() == 1 && head < len(dest) {
		copy(dest[head:], h.cell8[addr+uint32(head)-h.rawSize:])
		return
	}
	for n := head; n < len(dest); n++ {
		dest[n] = h.get8(addr + uint32(n))
	}
	return
}

func (h *Handle) WriteBytes(addr uint32, src []byte) (err error) {
	err = h.fault("write", addr, len(src))
	if err != nil {
		return
	}

	// Raw head, then the special tail.
	head := 0
	if addr < h.rawSize {
		head = copy(h.raw[addr:], src)
	}
	if head < len(src) {
		err = h.specialWriteBytes(addr+uint32(head), src[head:])
	}
	return
}

// specialWriteBytes writes into the cell region, starting at addr.
func (h *Handle) specialWriteBytes(addr uint32, src []byte) (err error) {
	if !h.Kind.IsArray() {
		return &ErrHandle{Id: h.Id, Err: &memory.ErrAccess{Op: "special", Address: addr, Length: len(src), Size: h.rawSize}}
	}

	if h.Kind.CellSize() == 1 {
		copy(h.cell8[addr-h.rawSize:], src)
		return
	}

	for n, b := range src {
		h.set8(addr+uint32(n), b)
	}
	return
}

// Int32s returns the cells of an int, float or Object array.
func (h *Handle) Int32s() []int32 {
	return h.cell32
}

// Uint16s returns the cells of a char or short array.
func (h *Handle) Uint16s() []uint16 {
	return h.cell16
}

// Bytes returns the cells of a byte or boolean array.
func (h *Handle) Bytes() []byte {
	return h.cell8
}

// Int64s returns the cells of a long or double array.
func (h *Handle) Int64s() []int64 {
	return h.cell64
}
