// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

package emulator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"log"
	"maps"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ezrec/nativecpu/cpu"
	"github.com/ezrec/nativecpu/handle"
	"github.com/ezrec/nativecpu/internal"
	"github.com/ezrec/nativecpu/memory"
	"github.com/ezrec/nativecpu/profiler"
)

// propertyIndex maps configuration names to supervisor properties.
var propertyIndex = map[string]int{
	"task_syscall_method_handler":       cpu.SUPERVISOR_TASK_SYSCALL_METHOD_HANDLER,
	"task_syscall_method_pool_pointer":  cpu.SUPERVISOR_TASK_SYSCALL_METHOD_POOL_POINTER,
	"task_syscall_static_field_pointer": cpu.SUPERVISOR_TASK_SYSCALL_STATIC_FIELD_POINTER,
}

// Emulator state. Shared memory and handles, plus the virtual CPUs.
type Emulator struct {
	Verbose bool         // If set, enables verbose logging.
	Config  Config       // Machine configuration.
	State   *cpu.State   // Shared machine state.
	Cpus    []*cpu.Cpu   // Virtual CPUs.
	Program *cpu.Program // Currently loaded program listing.

	Profile *profiler.Snapshot // Frame profile, if enabled.
}

// NewEmulator creates a new emulator from a configuration.
func NewEmulator(cfg Config) (emu *Emulator, err error) {
	if len(cfg.Cpus) == 0 {
		err = ErrNoCpus
		return
	}

	mem := memory.NewFlat(cfg.MemorySize)

	emu = &Emulator{
		Verbose: cfg.Verbose,
		Config:  cfg,
		State:   cpu.NewState(mem, cfg.ArrayBase),
		Program: &cpu.Program{},
	}

	for id := range cfg.Cpus {
		vcpu := cpu.NewCpu(id, emu.State)
		vcpu.Verbose = cfg.Verbose
		vcpu.Debug = cfg.Debug
		emu.Cpus = append(emu.Cpus, vcpu)
	}

	if cfg.Profile {
		emu.SetLogger(nil)
	}

	return
}

// SetLogger starts a new frame profile of every CPU, logging the frame
// events to logger.
func (emu *Emulator) SetLogger(logger *zap.Logger) {
	emu.Profile = profiler.NewSnapshot(logger)
	for _, vcpu := range emu.Cpus {
		vcpu.Profiler = emu.Profile.MeasureThread(fmt.Sprintf("cpu-%d", vcpu.Id))
	}
}

// Defines returns an iterator over all of the defines
func (emu *Emulator) Defines() iter.Seq2[string, string] {
	machine := map[string]string{
		"MEMORY_SIZE": fmt.Sprintf("%v", emu.Config.MemorySize),
		"ARRAY_BASE":  fmt.Sprintf("%v", emu.Config.ArrayBase),
		"NUM_CPUS":    fmt.Sprintf("%v", len(emu.Cpus)),
	}

	return internal.IterSeq2Concat(maps.All(machine),
		cpu.Defines(),
		handle.Defines(),
	)
}

// Assemble assembles the source at the configured base, and loads it into
// memory.
func (emu *Emulator) Assemble(input io.Reader) (err error) {
	asm := &cpu.Assembler{
		Verbose: emu.Verbose,
		Base:    emu.Config.Base,
	}
	for key, value := range emu.Defines() {
		asm.Predefine(key, value)
	}

	prog, err := asm.Parse(input)
	if err != nil {
		return
	}

	return emu.Load(prog)
}

// Load copies a program into memory.
func (emu *Emulator) Load(prog *cpu.Program) (err error) {
	if uint64(prog.Base)+uint64(len(prog.Code)) > uint64(emu.State.Memory.Size()) {
		err = ErrProgramLength
		return
	}

	err = prog.Load(emu.State.Memory)
	if err != nil {
		return
	}

	emu.Program = prog
	return
}

// resolve returns the value of a label or a number.
func (emu *Emulator) resolve(symbol string) (value int32, err error) {
	if len(symbol) == 0 {
		return
	}

	addr, ok := emu.Program.Label[symbol]
	if ok {
		value = int32(addr)
		return
	}

	number, perr := strconv.ParseInt(symbol, 0, 64)
	if perr != nil || number < -(1<<31) || number >= (1<<32) {
		err = ErrSymbol(symbol)
		return
	}

	value = int32(number)
	return
}

// Reset the CPUs to their initial frames, and the supervisor properties to
// their configured values.
func (emu *Emulator) Reset() (err error) {
	if len(emu.Program.Code) == 0 {
		err = ErrNoProgram
		return
	}

	for name, symbol := range emu.Config.Properties {
		index, ok := propertyIndex[strings.ToLower(name)]
		if !ok {
			err = fmt.Errorf("%w: %v", ErrPropertyName, name)
			return
		}
		var value int32
		value, err = emu.resolve(symbol)
		if err != nil {
			return
		}
		emu.State.SetProperty(index, value)
	}

	for id, vcpu := range emu.Cpus {
		entry := emu.Config.Cpus[id]

		var pc, pool int32
		pc, err = emu.resolve(entry.Entry)
		if err != nil {
			return
		}
		pool, err = emu.resolve(entry.Pool)
		if err != nil {
			return
		}

		vcpu.Reset()

		var frame *cpu.Frame
		frame, err = vcpu.EnterFrame(false, uint32(pc), pool, entry.Args...)
		if err != nil {
			return
		}
		frame.TaskId = entry.TaskId

		if emu.Verbose {
			log.Printf("emulator: cpu%d entry %#08x pool %#08x task %d", id, pc, pool, entry.TaskId)
		}
	}

	return
}

// lineNo returns the source line of the faulting instruction.
func (emu *Emulator) lineNo(err error) int {
	var fault *cpu.ErrFault
	if !errors.As(err, &fault) || len(fault.Trace) == 0 {
		return 0
	}

	line := emu.Program.Debug(fault.Trace[0].Pc)
	if line == nil {
		return 0
	}
	return line.LineNo
}

// Run runs every CPU concurrently until all have exited. The first fault,
// or the cancellation of ctx, stops the others; a CPU notices within
// cpu.CONTEXT_CHECK instructions, or at once when sleeping.
func (emu *Emulator) Run(ctx context.Context) (err error) {
	g, ctx := errgroup.WithContext(ctx)

	for _, vcpu := range emu.Cpus {
		g.Go(func() (err error) {
			err = vcpu.Run(ctx, 1)
			if err != nil {
				err = &ErrRuntime{Cpu: vcpu.Id, LineNo: emu.lineNo(err), Err: err}
			}
			return
		})
	}

	err = g.Wait()
	return
}

// ExitCodes returns the exit code of every CPU, or -1 for a CPU which has
// not made the exit system call.
func (emu *Emulator) ExitCodes() (codes []int32) {
	for _, vcpu := range emu.Cpus {
		exited, code := vcpu.Exited()
		if !exited {
			code = -1
		}
		codes = append(codes, code)
	}
	return
}
