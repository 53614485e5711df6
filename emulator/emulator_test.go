package emulator

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ezrec/nativecpu/cpu"
)

func newEmulator(t *testing.T, cfg Config, program ...string) (emu *Emulator) {
	t.Helper()

	emu, err := NewEmulator(cfg)
	if err != nil {
		t.Fatal(err)
	}

	err = emu.Assemble(strings.NewReader(strings.Join(program, "\n")))
	if err != nil {
		t.Fatal(err)
	}

	err = emu.Reset()
	if err != nil {
		t.Fatal(err)
	}

	return
}

func TestEmulator(t *testing.T) {
	assert := assert.New(t)

	emu, err := NewEmulator(DefaultConfig())
	assert.NoError(err)

	assert.False(emu.Verbose)
	assert.Equal(1, len(emu.Cpus))
	assert.Nil(emu.Profile)
	assert.Equal(uint32(DEFAULT_MEMORY_SIZE), emu.State.Memory.Size())
	assert.ErrorIs(emu.Reset(), ErrNoProgram)

	_, err = NewEmulator(Config{MemorySize: 0x100})
	assert.ErrorIs(err, ErrNoCpus)
}

func TestEmulator_Defines(t *testing.T) {
	assert := assert.New(t)

	cfg := DefaultConfig()
	cfg.MemorySize = 0x10000
	emu, err := NewEmulator(cfg)
	assert.NoError(err)

	defines := map[string]string{}
	for key, value := range emu.Defines() {
		defines[key] = value
	}

	assert.Equal("65536", defines["MEMORY_SIZE"])
	assert.Equal("1", defines["NUM_CPUS"])
	assert.Equal("27", defines["SYSCALL_EXIT"])
	assert.Equal("1", defines["KIND_PLAIN"])
}

func TestEmulator_Run(t *testing.T) {
	assert := assert.New(t)

	cfg := DefaultConfig()
	cfg.Cpus = []CpuConfig{
		{Entry: "main", Args: []int32{10}},
		{Entry: "main", Args: []int32{21}},
		{Entry: "double", Args: []int32{4}},
	}

	emu := newEmulator(t, cfg,
		"main:",
		"    mathc.add zero SYSCALL_EXIT r20",
		"    syscall r20 r8",
		"double:",
		"    math.add r8 r8 r21",
		"    mathc.add zero SYSCALL_EXIT r20",
		"    syscall r20 r21",
	)

	err := emu.Run(context.Background())
	assert.NoError(err)
	assert.Equal([]int32{10, 21, 8}, emu.ExitCodes())
}

func TestEmulator_Atomic(t *testing.T) {
	assert := assert.New(t)

	cfg := DefaultConfig()
	cfg.Cpus = nil
	for range 4 {
		cfg.Cpus = append(cfg.Cpus, CpuConfig{Entry: "main", Args: []int32{1000}})
	}

	emu := newEmulator(t, cfg,
		"main:",
		"    mathc.add zero counter r21",
		"loop:",
		"    atomic.inc r21 0",
		"    mathc.sub r8 1 r8",
		"    ifc.gt r8 0 loop",
		"    mathc.add zero SYSCALL_EXIT r20",
		"    syscall r20 r8",
		"    .org 0x4000",
		"counter:",
		"    .word 0",
	)

	err := emu.Run(context.Background())
	assert.NoError(err)
	assert.Equal([]int32{0, 0, 0, 0}, emu.ExitCodes())

	value, err := emu.State.Memory.Read32(emu.Program.Label["counter"])
	assert.NoError(err)
	assert.Equal(int32(4000), value)
}

func TestEmulator_Fault(t *testing.T) {
	assert := assert.New(t)

	cfg := DefaultConfig()
	cfg.Cpus = []CpuConfig{
		{Entry: "main"},
		{Entry: "spin"},
	}

	emu := newEmulator(t, cfg,
		"main:",
		"    nop",
		"    breakpoint.marked 3 0",
		"spin:",
		"    mathc.add zero SYSCALL_SLEEP r9",
		"    mathc.add zero 10000 r10",
		"    syscall r9 r10,zero",
		"    mathc.add zero SYSCALL_EXIT r9",
		"    syscall r9 r10",
	)

	err := emu.Run(context.Background())
	assert.ErrorIs(err, cpu.ErrBreakpointHit)

	var re *ErrRuntime
	if assert.True(errors.As(err, &re)) {
		assert.Equal(0, re.Cpu)
		assert.Equal(3, re.LineNo)
	}

	var fault *cpu.ErrFault
	assert.True(errors.As(err, &fault))

	// The sleeping cpu was interrupted by the fault.
	assert.Equal([]int32{-1, 10000}, emu.ExitCodes())
	assert.Equal(int32(cpu.SYSCALL_ERROR_INTERRUPTED), emu.Cpus[1].SyscallError(cpu.SYSCALL_SLEEP))
}

func TestEmulator_FaultStopsSpinning(t *testing.T) {
	assert := assert.New(t)

	cfg := DefaultConfig()
	cfg.Cpus = []CpuConfig{
		{Entry: "spin"},
		{Entry: "main"},
	}

	emu := newEmulator(t, cfg,
		"main:",
		"    breakpoint",
		"spin:",
		"    if.true zero zero spin",
	)

	err := emu.Run(context.Background())
	assert.ErrorIs(err, cpu.ErrBreakpointHit)

	var re *ErrRuntime
	if assert.ErrorAs(err, &re) {
		assert.Equal(1, re.Cpu)
	}
	assert.Equal([]int32{-1, -1}, emu.ExitCodes())
}

func TestEmulator_Cancel(t *testing.T) {
	assert := assert.New(t)

	emu := newEmulator(t, DefaultConfig(),
		"main:",
		"    if.true zero zero main",
	)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := emu.Run(ctx)
	assert.ErrorIs(err, context.DeadlineExceeded)

	var re *ErrRuntime
	if assert.ErrorAs(err, &re) {
		assert.Equal(0, re.Cpu)
	}
}

func TestEmulator_Properties(t *testing.T) {
	assert := assert.New(t)

	cfg := DefaultConfig()
	cfg.Properties = map[string]string{
		"task_syscall_method_handler":       "handler",
		"task_syscall_method_pool_pointer":  "0x300",
		"TASK_SYSCALL_STATIC_FIELD_POINTER": "1024",
	}
	cfg.Cpus = []CpuConfig{
		{Entry: "main", TaskId: 5},
	}

	emu := newEmulator(t, cfg,
		"main:",
		"    mathc.add zero SYSCALL_TIME_MILLI_WALL r20",
		"    mathc.add zero 77 r21",
		"    syscall r20 r21",
		"    breakpoint",
		"handler:",
		"    math.add r8 r11 r22",
		"    mathc.add zero SYSCALL_EXIT r20",
		"    syscall r20 r22",
	)

	handler := int32(emu.Program.Label["handler"])
	for index, value := range map[int]int32{
		cpu.SUPERVISOR_TASK_SYSCALL_METHOD_HANDLER:       handler,
		cpu.SUPERVISOR_TASK_SYSCALL_METHOD_POOL_POINTER:  0x300,
		cpu.SUPERVISOR_TASK_SYSCALL_STATIC_FIELD_POINTER: 1024,
	} {
		property, ok := emu.State.Property(index)
		assert.True(ok)
		assert.Equal(value, property)
	}

	err := emu.Run(context.Background())
	assert.NoError(err)

	// The task id plus the first argument of the delegated call.
	assert.Equal([]int32{5 + 77}, emu.ExitCodes())
}

func TestEmulator_ResetErrors(t *testing.T) {
	program := "main:\n    breakpoint\n"

	table := [](struct {
		name string
		cfg  func(cfg *Config)
		err  error
	}){
		{"entry", func(cfg *Config) { cfg.Cpus[0].Entry = "nowhere" }, ErrSymbol("nowhere")},
		{"pool", func(cfg *Config) { cfg.Cpus[0].Pool = "0x1_0000_0000" }, ErrSymbol("0x1_0000_0000")},
		{"property", func(cfg *Config) { cfg.Properties = map[string]string{"bogus": "1"} }, ErrPropertyName},
		{"value", func(cfg *Config) {
			cfg.Properties = map[string]string{"task_syscall_method_handler": "bogus"}
		}, ErrSymbol("bogus")},
	}

	for _, entry := range table {
		cfg := DefaultConfig()
		entry.cfg(&cfg)

		emu, err := NewEmulator(cfg)
		if !assert.NoError(t, err, entry.name) {
			continue
		}
		assert.NoError(t, emu.Assemble(strings.NewReader(program)), entry.name)
		assert.ErrorIs(t, emu.Reset(), entry.err, entry.name)
	}
}

func TestEmulator_Load(t *testing.T) {
	assert := assert.New(t)

	cfg := DefaultConfig()
	cfg.MemorySize = 0x100

	emu, err := NewEmulator(cfg)
	assert.NoError(err)

	err = emu.Assemble(strings.NewReader("main: nop\n"))
	assert.ErrorIs(err, ErrProgramLength)

	err = emu.Load(&cpu.Program{Base: 0x80, Code: []byte{0x05}})
	assert.NoError(err)
	assert.Equal(uint32(0x80), emu.Program.Base)

	err = emu.Assemble(strings.NewReader("frob\n"))
	assert.ErrorIs(err, cpu.ErrInstructionInvalid)
}

func TestEmulator_Profile(t *testing.T) {
	assert := assert.New(t)

	cfg := DefaultConfig()
	cfg.Profile = true
	cfg.Cpus = append(cfg.Cpus, CpuConfig{Entry: "main"})

	emu := newEmulator(t, cfg,
		"main:",
		"    mathc.add zero SYSCALL_EXIT r20",
		"    syscall r20 zero",
	)
	if !assert.NotNil(emu.Profile) {
		return
	}

	assert.NoError(emu.Run(context.Background()))

	threads := emu.Profile.Threads()
	if assert.Equal(2, len(threads)) {
		assert.Equal("cpu-0", threads[0].Name)
		assert.Equal("cpu-1", threads[1].Name)
		calls := threads[0].Root().Children()
		if assert.Equal(1, len(calls)) {
			assert.Equal("<syscall>", calls[0].Class)
		}
	}
}
