// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package memory

import (
	"github.com/ezrec/nativecpu/translate"
)

var f = translate.From

var (
	ErrMemoryAccess = translate.Error("memory access")
)

// ErrAccess is an out of range access to a memory region.
type ErrAccess struct {
	Op      string // Operation, such as "read32".
	Address uint32 // Offending address.
	Length  int    // Number of bytes touched.
	Size    uint32 // Size of the region.
}

func (err *ErrAccess) Error() string {
	return f("memory access %v @%#08x+%d (size %d)", err.Op, err.Address, err.Length, err.Size)
}

func (err *ErrAccess) Unwrap() error {
	return ErrMemoryAccess
}

// Check returns an *ErrAccess if [addr, addr+length) is not within [0, size).
func Check(op string, addr uint32, length int, size uint32) (err error) {
	end := uint64(addr) + uint64(length)
	if length < 0 || end > uint64(size) {
		err = &ErrAccess{Op: op, Address: addr, Length: length, Size: size}
	}
	return
}
