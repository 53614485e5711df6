package cpu

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ezrec/nativecpu/handle"
	"github.com/ezrec/nativecpu/internal"
	"github.com/ezrec/nativecpu/memory"
)

const testBase = 0x100

// assemble builds a program at testBase, with the machine equates.
func assemble(t *testing.T, lines ...string) *Program {
	t.Helper()

	asm := &Assembler{Base: testBase}
	for key, value := range internal.IterSeq2Concat(Defines(), handle.Defines()) {
		asm.Predefine(key, value)
	}

	prog, err := asm.Parse(strings.NewReader(strings.Join(lines, "\n")))
	if err != nil {
		t.Fatal(err)
	}

	return prog
}

// newTestCpu loads the program into a fresh machine, with the main frame
// entered at the program base.
func newTestCpu(t *testing.T, prog *Program, args ...int32) (cpu *Cpu) {
	t.Helper()

	mem := memory.NewFlat(0x10000)
	err := prog.Load(mem)
	if err != nil {
		t.Fatal(err)
	}

	cpu = NewCpu(0, NewState(mem, 0))
	_, err = cpu.EnterFrame(false, prog.Base, 0, args...)
	if err != nil {
		t.Fatal(err)
	}

	return
}

func TestCpu_CountingLoop(t *testing.T) {
	assert := assert.New(t)

	prog := assemble(t,
		".equ LIMIT 10",
		"    mathc.add zero LIMIT r10",
		"    mathc.add zero 0 r11",
		"loop:",
		"    mathc.add r11 1 r11",
		"    if.lt r11 r10 loop",
		"    mathc.add zero SYSCALL_EXIT r9",
		"    syscall r9 r11",
		"    breakpoint",
	)

	cpu := newTestCpu(t, prog)

	err := cpu.Run(context.Background(), 1)
	assert.NoError(err)

	exited, code := cpu.Exited()
	assert.True(exited)
	assert.Equal(int32(10), code)
	assert.Equal(int32(10), cpu.Top().Register[11])
	assert.Equal(int32(10), cpu.Top().Register[10])

	// The exit result lands in the return registers.
	assert.Equal(int32(0), cpu.Top().Register[RETURN_REGISTER])
	assert.Equal(int32(0), cpu.Top().Register[RETURN_REGISTER_HI])
}

func TestCpu_Cancel(t *testing.T) {
	assert := assert.New(t)

	prog := assemble(t,
		"spin:",
		"    if.true zero zero spin",
	)
	cpu := newTestCpu(t, prog)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := cpu.Run(ctx, 1)
	assert.ErrorIs(err, context.Canceled)

	var fault *ErrFault
	if assert.ErrorAs(err, &fault) {
		assert.Equal(prog.Label["spin"], fault.Trace[0].Pc)
	}

	exited, _ := cpu.Exited()
	assert.False(exited)
}

func TestCpu_CancelRunning(t *testing.T) {
	assert := assert.New(t)

	prog := assemble(t,
		"spin:",
		"    if.true zero zero spin",
	)
	cpu := newTestCpu(t, prog)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := cpu.Run(ctx, 1)
	assert.ErrorIs(err, context.DeadlineExceeded)
}

func TestCpu_Compare(t *testing.T) {
	table := [](struct {
		name  string
		op    string
		a, b  int32
		taken bool
	}){
		{"ge_equal", "if.ge", 5, 5, true},
		{"ge_less", "if.ge", 4, 5, false},
		{"lt", "if.lt", -1, 0, true},
		{"le", "if.le", 6, 5, false},
		{"gt", "if.gt", 6, 5, true},
		{"eq", "if.eq", 3, 3, true},
		{"ne", "if.ne", 3, 3, false},
		{"true", "if.true", 0, 1, true},
		{"false", "if.false", 0, 0, false},
	}

	for _, entry := range table {
		t.Run(entry.name, func(t *testing.T) {
			assert := assert.New(t)

			prog := assemble(t, entry.op+" r8 r9 16")
			cpu := newTestCpu(t, prog, entry.a, entry.b)
			frame := cpu.Top()

			err := cpu.Step(context.Background(), frame)
			assert.NoError(err)

			if entry.taken {
				assert.Equal(uint32(testBase+16), frame.Pc)
			} else {
				assert.Equal(uint32(testBase+4), frame.Pc)
			}
		})
	}
}

func TestCpu_CompareConstBackwards(t *testing.T) {
	assert := assert.New(t)

	prog := assemble(t,
		"    nop",
		"here:",
		"    ifc.eq r8 -7 here",
	)
	cpu := newTestCpu(t, prog, -7)
	frame := cpu.Top()

	assert.NoError(cpu.Step(context.Background(), frame))
	assert.NoError(cpu.Step(context.Background(), frame))
	assert.Equal(prog.Label["here"], frame.Pc)
}

func TestCpu_Math(t *testing.T) {
	assert := assert.New(t)

	prog := assemble(t,
		"    math.mul r8 r9 r10",
		"    mathc.sub r10 2 r11",
		"    mathc.shl r11 33 r12",
		"    math.cmpl r8 r9 r13",
		"    mathc.xor r8 ~0 r14",
	)
	cpu := newTestCpu(t, prog, 6, 7)
	frame := cpu.Top()

	for range 5 {
		assert.NoError(cpu.Step(context.Background(), frame))
	}

	assert.Equal(int32(42), frame.Register[10])
	assert.Equal(int32(40), frame.Register[11])
	assert.Equal(int32(80), frame.Register[12])
	assert.Equal(int32(-1), frame.Register[13])
	assert.Equal(int32(^6), frame.Register[14])
}

func TestCpu_DivideByZero(t *testing.T) {
	assert := assert.New(t)

	prog := assemble(t, "math.div r8 zero r9")
	cpu := newTestCpu(t, prog, 100)

	err := cpu.Run(context.Background(), 1)
	assert.ErrorIs(err, ErrDivideByZero)

	var fault *ErrFault
	assert.True(errors.As(err, &fault))
	assert.Equal(1, len(fault.Trace))
}

func TestCpu_MemoryOff(t *testing.T) {
	assert := assert.New(t)

	prog := assemble(t,
		"    mem.load.int r8 r9 r10 r11",
	)
	cpu := newTestCpu(t, prog, 0, 0x1000, 0, 4)

	err := cpu.Run(context.Background(), 1)
	assert.ErrorIs(err, ErrMemoryOffUnsupported)

	var off *ErrMemoryOff
	if assert.True(errors.As(err, &off)) {
		assert.True(off.Load)
		assert.Equal(uint64(0x1004), off.Address)
		assert.Equal(int32(4), off.Offset)
	}

	prog = assemble(t, "memc.store.byte r8 r9 r10 -1")
	cpu = newTestCpu(t, prog, 0, 0x1000, 1)
	err = cpu.Run(context.Background(), 1)
	if assert.True(errors.As(err, &off)) {
		assert.False(off.Load)
		assert.Equal(uint64(0x1_0000_0fff), off.Address)
	}
}

func TestCpu_HandleRoundTrip(t *testing.T) {
	assert := assert.New(t)

	prog := assemble(t,
		"    mathc.add zero SYSCALL_MEM_HANDLE_NEW r10",
		"    mathc.add zero KIND_INTEGER_ARRAY r8",
		"    mathc.add zero 40 r9",
		"    syscall r10 r8,r9",
		"    copy rv r13",
		"    mathc.add zero 42 r11",
		"    mhc.store.int r11 r13 12",
		"    mathc.add zero 12 r14",
		"    mh.load.int r12 r13 r14",
		"    mathc.add zero SYSCALL_EXIT r10",
		"    syscall r10 r12",
	)
	cpu := newTestCpu(t, prog)

	err := cpu.Run(context.Background(), 1)
	assert.NoError(err)

	_, code := cpu.Exited()
	assert.Equal(int32(42), code)

	h, err := cpu.State.Handles.Get(cpu.Top().Register[13])
	assert.NoError(err)
	assert.Equal([]int32{0, 0, 0, 42, 0, 0, 0, 0, 0, 0}, h.Int32s())
}

func TestCpu_HandleDataTypes(t *testing.T) {
	assert := assert.New(t)

	prog := assemble(t,
		"    mhc.store.char r9 r8 2",
		"    mhc.load.char r10 r8 2",
		"    mhc.load.short r11 r8 2",
		"    mhc.store.byte r9 r8 0",
		"    mhc.load.byte r12 r8 0",
		"    mhc.load.int r13 r8 40",
	)

	cpu := newTestCpu(t, prog)
	h, err := cpu.State.Handles.Allocate(handle.KIND_CHARACTER_ARRAY, 8)
	assert.NoError(err)

	frame := cpu.Top()
	frame.Register[8] = h.Id
	frame.Register[9] = -2

	for range 5 {
		assert.NoError(cpu.Step(context.Background(), frame))
	}

	assert.Equal(int32(0xfffe), frame.Register[10])
	assert.Equal(int32(-2), frame.Register[11])
	assert.Equal(int32(-2), frame.Register[12])

	err = cpu.Step(context.Background(), frame)
	assert.ErrorIs(err, memory.ErrMemoryAccess)
}

func TestCpu_Atomic(t *testing.T) {
	assert := assert.New(t)

	prog := assemble(t,
		"    mathc.add zero 0x800 r8",
		"    mathc.add zero 5 r9",
		"    mathc.add zero 9 r10",
		"    atomic.cgs r9 r11 r10 r8 0",
		"    atomic.inc r8 0",
		"    atomic.dec r12 r8 0",
		"    atomic.cgs r9 r14 r9 r8 0",
		"    mathc.add zero SYSCALL_EXIT r13",
		"    syscall r13 r12",
	)
	cpu := newTestCpu(t, prog)
	assert.NoError(cpu.State.Memory.Write32(0x800, 5))

	err := cpu.Run(context.Background(), 1)
	assert.NoError(err)

	_, code := cpu.Exited()
	assert.Equal(int32(9), code)

	frame := cpu.Top()
	assert.Equal(int32(5), frame.Register[11])
	assert.Equal(int32(9), frame.Register[14])
	assert.Equal(int32(9), must(cpu.State.Memory.Read32(0x800)))
}

func TestCpu_CountHandle(t *testing.T) {
	assert := assert.New(t)

	prog := assemble(t,
		"    count.up r8",
		"    count.up r8",
		"    count.down r8 r9",
	)
	cpu := newTestCpu(t, prog)
	h, err := cpu.State.Handles.Allocate(handle.KIND_PLAIN, 4)
	assert.NoError(err)

	frame := cpu.Top()
	frame.Register[8] = h.Id
	for range 3 {
		assert.NoError(cpu.Step(context.Background(), frame))
	}

	assert.Equal(int32(1), frame.Register[9])
	assert.Equal(int32(1), h.Count())
}

func TestCpu_InvokeReturn(t *testing.T) {
	assert := assert.New(t)

	prog := assemble(t,
		"    mathc.add zero func r8",
		"    mathc.add zero 0x40 next.pool",
		"    mathc.add zero 3 r9",
		"    invoke r8 r9,r9",
		"    mathc.add zero SYSCALL_EXIT r10",
		"    syscall r10 rv",
		"func:",
		"    math.add r8 r9 rv",
		"    mathc.add zero 0x99 pool",
		"    mathc.add zero 0x77 thread",
		"    return",
	)
	cpu := newTestCpu(t, prog)
	cpu.Top().Register[POOL_REGISTER] = 0x11

	err := cpu.Run(context.Background(), 1)
	assert.NoError(err)

	_, code := cpu.Exited()
	assert.Equal(int32(6), code)

	frame := cpu.Top()
	assert.Equal(1, len(cpu.Frames()))
	assert.Equal(int32(0x11), frame.Register[POOL_REGISTER])
	assert.Equal(int32(0), frame.Register[NEXT_POOL_REGISTER])
	assert.Equal(int32(0x77), frame.Register[THREAD_REGISTER])
}

func TestCpu_InvokePointerAndPool(t *testing.T) {
	assert := assert.New(t)

	prog := assemble(t,
		"    mathc.add zero func r8",
		"    mathc.add zero 0x55 r9",
		"    invoke.pp r8 r9 -",
		"    breakpoint",
		"func:",
		"    mathc.add zero SYSCALL_EXIT r10",
		"    syscall r10 pool",
	)
	cpu := newTestCpu(t, prog)

	err := cpu.Run(context.Background(), 1)
	assert.NoError(err)

	_, code := cpu.Exited()
	assert.Equal(int32(0x55), code)
	assert.Equal(2, len(cpu.Frames()))
}

func TestCpu_ReturnPastMain(t *testing.T) {
	assert := assert.New(t)

	prog := assemble(t,
		"    mathc.add zero 7 rv",
		"    return",
	)
	cpu := newTestCpu(t, prog)

	err := cpu.Run(context.Background(), 1)
	assert.ErrorIs(err, ErrReturnPastMain)

	var ret *ErrReturn
	if assert.True(errors.As(err, &ret)) {
		assert.Equal(int64(7), ret.Value)
	}
}

func TestCpu_RunFloor(t *testing.T) {
	assert := assert.New(t)

	prog := assemble(t,
		"main:",
		"    breakpoint",
		"func:",
		"    mathc.add zero 5 rv",
		"    return",
	)
	cpu := newTestCpu(t, prog)
	caller := cpu.Top()

	_, err := cpu.EnterFrame(true, prog.Label["func"], 0)
	assert.NoError(err)

	// Runs until the called frame returns.
	err = cpu.Run(context.Background(), 2)
	assert.NoError(err)
	assert.Equal(caller, cpu.Top())
	assert.Equal(int32(5), caller.Register[RETURN_REGISTER])
}

func TestCpu_Breakpoint(t *testing.T) {
	assert := assert.New(t)

	prog := assemble(t, "breakpoint.marked 0x12 0")
	cpu := newTestCpu(t, prog)

	err := cpu.Run(context.Background(), 1)
	assert.ErrorIs(err, ErrBreakpointHit)

	var bp *ErrBreakpoint
	if assert.True(errors.As(err, &bp)) {
		assert.Equal("12h", bp.Mark)
	}

	prog = assemble(t, "breakpoint")
	cpu = newTestCpu(t, prog)
	err = cpu.Run(context.Background(), 1)
	if assert.True(errors.As(err, &bp)) {
		assert.Equal("Un", bp.Mark)
	}
}

func TestCpu_InvalidOpcode(t *testing.T) {
	assert := assert.New(t)

	prog := &Program{Base: testBase, Code: []byte{0xff}}
	cpu := newTestCpu(t, prog)

	err := cpu.Run(context.Background(), 1)
	assert.ErrorIs(err, ErrOpcode(0))

	var inst *ErrInstruction
	if assert.True(errors.As(err, &inst)) {
		assert.Equal(uint32(testBase), inst.Pc)
	}
}

func TestCpu_FetchPastEnd(t *testing.T) {
	assert := assert.New(t)

	mem := memory.NewFlat(0x100)
	// Truncated math at the very end of memory.
	assert.NoError(mem.Write8(0xfe, uint8(OP_MATH_CONST_INT)))

	cpu := NewCpu(0, NewState(mem, 0))
	_, err := cpu.EnterFrame(false, 0xfe, 0)
	assert.NoError(err)

	err = cpu.Run(context.Background(), 1)
	assert.ErrorIs(err, ErrInstructionTruncated)

	cpu.Reset()
	_, err = cpu.EnterFrame(false, 0x200, 0)
	assert.NoError(err)
	err = cpu.Run(context.Background(), 1)
	assert.ErrorIs(err, memory.ErrMemoryAccess)
}

func TestCpu_CacheRefill(t *testing.T) {
	assert := assert.New(t)

	lines := []string{}
	for range 1500 {
		lines = append(lines, "    mathc.add r8 1 r8")
	}
	lines = append(lines,
		"    mathc.add zero SYSCALL_EXIT r9",
		"    syscall r9 r8",
	)

	prog := assemble(t, lines...)
	cpu := newTestCpu(t, prog)

	err := cpu.Run(context.Background(), 1)
	assert.NoError(err)

	_, code := cpu.Exited()
	assert.Equal(int32(1500), code)
}

func must[T any](value T, err error) T {
	if err != nil {
		panic(err)
	}
	return value
}
