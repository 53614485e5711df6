package cpu

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ezrec/nativecpu/memory"
)

func TestProgram_Debug(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{Base: 0x40}
	prog, err := asm.Parse(strings.NewReader(strings.Join([]string{
		"copy r8 r9",
		"; comment only",
		"mathc.add zero 7 r8",
		"return",
	}, "\n")))
	assert.NoError(err)

	table := [](struct {
		addr   uint32
		lineno int
	}){
		{0x40, 1},
		{0x42, 1},
		{0x43, 3},
		{0x49, 3},
		{0x4a, 4},
	}
	for _, entry := range table {
		line := prog.Debug(entry.addr)
		if assert.NotNil(line, "%#x", entry.addr) {
			assert.Equal(entry.lineno, line.LineNo, "%#x", entry.addr)
		}
	}

	assert.Equal([]string{"mathc.add", "zero", "7", "r8"}, prog.Debug(0x45).Words)
}

func TestProgram_Debug_NotFound(t *testing.T) {
	assert := assert.New(t)

	prog := &Program{
		Base:  0x10,
		Code:  []byte{0x05},
		Lines: []Line{{LineNo: 1, Addr: 0x10, Words: []string{"return"}, Length: 1}},
	}

	assert.Nil(prog.Debug(0x0f))
	assert.Nil(prog.Debug(0x11))
	assert.NotNil(prog.Debug(0x10))

	empty := &Program{}
	assert.Nil(empty.Debug(0))
}

func TestProgram_Binary(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}
	prog, err := asm.Parse(strings.NewReader("nop\nreturn\n"))
	assert.NoError(err)
	assert.Equal([]byte{0x01, 0, 0, 0x05}, prog.Binary())
}

func TestProgram_Load(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{Base: 0x20}
	prog, err := asm.Parse(strings.NewReader(".word 0x01020304\n"))
	assert.NoError(err)

	mem := memory.NewFlat(0x40)
	assert.NoError(prog.Load(mem))

	value, err := mem.Read32(0x20)
	assert.NoError(err)
	assert.Equal(int32(0x01020304), value)

	value, err = mem.Read32(0x1c)
	assert.NoError(err)
	assert.Equal(int32(0), value)

	// Loading past the end of memory fails.
	small := memory.NewFlat(0x22)
	assert.ErrorIs(prog.Load(small), memory.ErrMemoryAccess)

	// An empty program loads anywhere.
	assert.NoError((&Program{Base: 0xffff0000}).Load(small))
}
