package cpu

import (
	"github.com/ezrec/nativecpu/memory"
)

// Line is an assembled source line.
type Line struct {
	LineNo int      // Source line number.
	Addr   uint32   // Address of the first byte.
	Words  []string // Source words, after equate substitution.
	Length int      // Bytes assembled.
}

// Program is the output of the assembler.
type Program struct {
	Base  uint32            // Load address.
	Code  []byte            // Assembled bytes.
	Label map[string]uint32 // Label addresses.
	Lines []Line            // Assembled lines, in address order.
}

// Debug returns the line which assembled the byte at addr, or nil.
func (prog *Program) Debug(addr uint32) (line *Line) {
	for n, ln := range prog.Lines {
		if addr >= ln.Addr && addr < ln.Addr+uint32(ln.Length) {
			line = &prog.Lines[n]
			break
		}
	}

	return
}

// Binary returns the assembled bytes.
func (prog *Program) Binary() []byte {
	return prog.Code
}

// Load copies the program into memory at its base address.
func (prog *Program) Load(mem memory.Memory) (err error) {
	if len(prog.Code) == 0 {
		return
	}
	err = mem.WriteBytes(prog.Base, prog.Code)
	return
}
