package cpu

import (
	"github.com/ezrec/nativecpu/memory"
)

// ConstantPool resolves constant pool entries for the load.pool instruction.
type ConstantPool interface {
	// Load returns entry index of the pool at pointer.
	Load(pointer int32, index int32) (value int32, err error)
}

// MemoryPool is a constant pool stored as a table of 32-bit words.
type MemoryPool struct {
	Memory memory.Memory
}

func (mp MemoryPool) Load(pointer int32, index int32) (value int32, err error) {
	return mp.Memory.Read32(uint32(pointer) + 4*uint32(index))
}
