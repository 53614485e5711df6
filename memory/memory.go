// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package memory

import (
	"encoding/binary"
)

// Memory is a bounds checked, byte addressable region.
type Memory interface {
	// Size of the region in bytes.
	Size() uint32
	// Read8 reads a byte.
	Read8(addr uint32) (value uint8, err error)
	// Read16 reads a 16-bit value.
	Read16(addr uint32) (value int16, err error)
	// Read32 reads a 32-bit value.
	Read32(addr uint32) (value int32, err error)
	// Write8 writes a byte.
	Write8(addr uint32, value uint8) error
	// Write16 writes a 16-bit value.
	Write16(addr uint32, value int16) error
	// Write32 writes a 32-bit value.
	Write32(addr uint32, value int32) error
	// ReadBytes fills dest from addr onwards.
	ReadBytes(addr uint32, dest []byte) error
	// WriteBytes copies src to addr onwards.
	WriteBytes(addr uint32, src []byte) error
}

// Flat is memory backed by a single contiguous allocation.
type Flat struct {
	Data []byte
}

var _ Memory = (*Flat)(nil)

// NewFlat allocates a zeroed flat memory of size bytes.
func NewFlat(size uint32) *Flat {
	return &Flat{Data: make([]byte, size)}
}

func (fm *Flat) Size() uint32 {
	return uint32(len(fm.Data))
}

func (fm *Flat) Read8(addr uint32) (value uint8, err error) {
	err = Check("read8", addr, 1, fm.Size())
	if err != nil {
		return
	}
	value = fm.Data[addr]
	return
}

func (fm *Flat) Read16(addr uint32) (value int16, err error) {
	err = Check("read16", addr, 2, fm.Size())
	if err != nil {
		return
	}
	value = int16(binary.BigEndian.Uint16(fm.Data[addr:]))
	return
}

func (fm *Flat) Read32(addr uint32) (value int32, err error) {
	err = Check("read32", addr, 4, fm.Size())
	if err != nil {
		return
	}
	value = int32(binary.BigEndian.Uint32(fm.Data[addr:]))
	return
}

func (fm *Flat) Write8(addr uint32, value uint8) (err error) {
	err = Check("write8", addr, 1, fm.Size())
	if err != nil {
		return
	}
	fm.Data[addr] = value
	return
}

func (fm *Flat) Write16(addr uint32, value int16) (err error) {
	err = Check("write16", addr, 2, fm.Size())
	if err != nil {
		return
	}
	binary.BigEndian.PutUint16(fm.Data[addr:], uint16(value))
	return
}

func (fm *Flat) Write32(addr uint32, value int32) (err error) {
	err = Check("write32", addr, 4, fm.Size())
	if err != nil {
		return
	}
	binary.BigEndian.PutUint32(fm.Data[addr:], uint32(value))
	return
}

func (fm *Flat) ReadBytes(addr uint32, dest []byte) (err error) {
	err = Check("read", addr, len(dest), fm.Size())
	if err != nil {
		return
	}
	copy(dest, fm.Data[addr:])
	return
}

func (fm *Flat) WriteBytes(addr uint32, src []byte) (err error) {
	err = Check("write", addr, len(src), fm.Size())
	if err != nil {
		return
	}
	copy(fm.Data[addr:], src)
	return
}

// ReadUtf reads a length prefixed string: a 16-bit byte count followed by
// the encoded characters.
func ReadUtf(mem Memory, addr uint32) (text string, err error) {
	length, err := mem.Read16(addr)
	if err != nil {
		return
	}

	data := make([]byte, uint16(length))
	err = mem.ReadBytes(addr+2, data)
	if err != nil {
		return
	}

	text = decodeUtf(data)
	return
}
