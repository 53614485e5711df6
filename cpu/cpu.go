// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package cpu

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/ezrec/nativecpu/internal"
	"github.com/ezrec/nativecpu/memory"
)

// Cpu is the simulation context of a single virtual CPU.
type Cpu struct {
	Verbose bool // Set to enable verbose logging.
	Debug   bool // Set to record execution slices, and fault on unknown system calls.

	Id       int          // Virtual CPU id.
	State    *State       // Shared machine state.
	Pool     ConstantPool // Constant pool resolver.
	Profiler Profiler     // Optional profiler.

	frames       []*Frame
	errors       [NUM_SYSCALLS]int32
	handlers     [NUM_SYSCALLS]SyscallHandler
	ipcException int32
	popped       *internal.Ring[[]Slice]

	exited   bool
	exitCode int32

	inst         Instruction
	sargs        []int32
	cache        []byte
	cacheBase    uint32
	pointCounter int
}

// NewCpu creates a new CPU attached to the shared state.
func NewCpu(id int, state *State) (cpu *Cpu) {
	cpu = &Cpu{
		Id:       id,
		State:    state,
		Pool:     MemoryPool{Memory: state.Memory},
		handlers: defaultHandlers,
		sargs:    make([]int32, 0, MAX_REGISTERS),
	}

	return
}

func (cpu *Cpu) logf(format string, args ...any) {
	log.Printf("cpu%d: %s", cpu.Id, fmt.Sprintf(format, args...))
}

// Reset the CPU, dropping every frame.
func (cpu *Cpu) Reset() {
	if cpu.Verbose {
		cpu.logf("reset")
	}

	clear(cpu.frames)
	cpu.frames = cpu.frames[:0]
	clear(cpu.errors[:])
	cpu.ipcException = 0
	cpu.exited = false
	cpu.exitCode = 0
	cpu.cache = cpu.cache[:0]
	cpu.pointCounter = 0

	cpu.popped = nil
	if cpu.Debug {
		cpu.popped = internal.NewRing[[]Slice](MAX_POPPED_SLICE_STORE)
	}
}

// Exited returns true, and the exit code, once the program has made the
// exit system call.
func (cpu *Cpu) Exited() (exited bool, code int32) {
	return cpu.exited, cpu.exitCode
}

// SyscallError returns the last error code recorded for a system call.
func (cpu *Cpu) SyscallError(index Syscall) int32 {
	if index < 0 || index >= NUM_SYSCALLS {
		index = SYSCALL_QUERY_INDEX
	}
	return cpu.errors[index]
}

// Exception returns the IPC exception register.
func (cpu *Cpu) Exception() int32 {
	return cpu.ipcException
}

// Run runs the Cpu until the frame stack drops below floor frames, or the
// program exits. Any failure is returned as an *ErrFault.
func (cpu *Cpu) Run(ctx context.Context, floor int) (err error) {
	err = cpu.RunWithoutCatch(ctx, floor)
	if err == nil {
		return
	}

	var fault *ErrFault
	if errors.As(err, &fault) {
		return
	}

	fault = &ErrFault{
		Cpu:   cpu.Id,
		Err:   err,
		Trace: cpu.Trace(),
	}

	if cpu.Debug {
		for n := len(cpu.frames) - 1; n >= 0; n-- {
			fault.Slices = append(fault.Slices, cpu.frames[n].Slices())
		}
		if cpu.popped != nil {
			fault.Popped = cpu.popped.Slice()
		}
	}

	err = fault
	return
}

// RunWithoutCatch runs the Cpu until the frame stack drops below floor
// frames, the program exits, or ctx is cancelled.
func (cpu *Cpu) RunWithoutCatch(ctx context.Context, floor int) (err error) {
	if cpu.Debug && cpu.popped == nil {
		cpu.popped = internal.NewRing[[]Slice](MAX_POPPED_SLICE_STORE)
	}

	var frame *Frame
	lastDepth := -1
	steps := 0
	for depth := len(cpu.frames); depth >= floor && !cpu.exited; depth = len(cpu.frames) {
		steps++
		if steps >= CONTEXT_CHECK {
			steps = 0
			err = ctx.Err()
			if err != nil {
				return
			}
		}

		// Reload on a frame change.
		if depth != lastDepth {
			frame = cpu.Top()
			if frame == nil {
				return
			}
			lastDepth = depth
		}

		err = cpu.Step(ctx, frame)
		if err != nil {
			return
		}
	}

	return
}

// window returns the cached instruction bytes starting at pc.
func (cpu *Cpu) window(pc uint32, size int) (code []byte, err error) {
	diff := int64(pc) - int64(cpu.cacheBase)
	if len(cpu.cache) != 0 && diff >= 0 && diff < METHOD_CACHE_SPILL && int(diff)+size <= len(cpu.cache) {
		code = cpu.cache[diff:]
		return
	}

	mem := cpu.State.Memory
	err = memory.Check("fetch", pc, 1, mem.Size())
	if err != nil {
		return
	}

	size = int(min(uint64(max(size, METHOD_CACHE)), uint64(mem.Size()-pc)))
	if cap(cpu.cache) < size {
		cpu.cache = make([]byte, size)
	}
	cpu.cache = cpu.cache[:size]
	cpu.cacheBase = pc

	err = mem.ReadBytes(pc, cpu.cache)
	if err != nil {
		cpu.cache = cpu.cache[:0]
		return
	}

	code = cpu.cache
	return
}

// fetch decodes the instruction at pc into cpu.inst.
func (cpu *Cpu) fetch(pc uint32) (err error) {
	size := 1
	for {
		var code []byte
		code, err = cpu.window(pc, size)
		if err != nil {
			return
		}

		err = cpu.inst.Decode(code)
		if !errors.Is(err, ErrInstructionTruncated) {
			return
		}

		// Retry with a wider window, unless it already reaches the end
		// of memory.
		if uint64(pc)+uint64(len(code)) >= uint64(cpu.State.Memory.Size()) {
			return
		}
		size = len(code) * 2
	}
}

// Step executes a single instruction of frame, which must be the top frame.
func (cpu *Cpu) Step(ctx context.Context, frame *Frame) (err error) {
	pc := frame.Pc
	inst := &cpu.inst

	frame.LastPc = pc

	err = cpu.fetch(pc)
	if err != nil {
		err = &ErrInstruction{Pc: pc, Op: inst.Op, Err: err}
		return
	}

	frame.LastOp = inst.Op

	encoding := inst.Op.Encoding()
	if encoding == OP_DEBUG_ENTRY {
		cpu.pointCounter = 0
	}

	if cpu.Debug && frame.slices != nil {
		slice := newSlice(pc, inst, frame.Debug.Line)
		frame.slices.Push(slice)

		if encoding == OP_DEBUG_POINT {
			cpu.pointCounter++
			if cpu.pointCounter >= POINT_THRESHOLD {
				cpu.pointCounter = 0
				cpu.logf("stuck? %v", slice)
			}
		}
	}

	if cpu.Verbose {
		cpu.logf("%08x: %v", pc, inst)
	}

	next := pc + uint32(inst.Length)

	next, err = cpu.execute(ctx, frame, pc, next)
	if err != nil {
		err = &ErrInstruction{Pc: pc, Op: inst.Op, Args: append([]int32(nil), inst.Args[:inst.NumArgs]...), Err: err}
		return
	}

	frame.Pc = next

	return
}

// regList loads the values of the registers named in the register list.
func (cpu *Cpu) regList(lr *[MAX_REGISTERS]int32) []int32 {
	cpu.sargs = cpu.sargs[:0]
	for _, reg := range cpu.inst.RegList {
		cpu.sargs = append(cpu.sargs, lr[reg])
	}
	return cpu.sargs
}

// execute performs the decoded instruction, returning the next PC.
func (cpu *Cpu) execute(ctx context.Context, frame *Frame, pc uint32, next_pc uint32) (next uint32, err error) {
	inst := &cpu.inst
	op := inst.Op
	args := &inst.Args
	lr := &frame.Register
	state := cpu.State

	next = next_pc

	switch op.Encoding() {
	case OP_COPY:
		lr[args[1]] = lr[args[0]]
	case OP_IF_ICMP:
		if op.CompareType().Compare(lr[args[0]], lr[args[1]]) {
			next = pc + uint32(args[2])
		}
	case OP_IF_ICMP_CONST:
		if op.CompareType().Compare(lr[args[0]], args[1]) {
			next = pc + uint32(args[2])
		}
	case OP_MATH_REG_INT, OP_MATH_CONST_INT:
		b := args[1]
		if !op.IsConst() {
			b = lr[args[1]]
		}
		var c int32
		c, err = op.MathType().Apply(lr[args[0]], b)
		if err != nil {
			return
		}
		lr[args[2]] = c
	case OP_LOAD_POOL:
		var value int32
		value, err = cpu.Pool.Load(lr[POOL_REGISTER], args[0])
		if err != nil {
			return
		}
		lr[args[1]] = value
		if cpu.Verbose {
			cpu.logf("pool#%d %d/%#08x -> r%d", args[0], value, value, args[1])
		}
	case OP_INVOKE:
		_, err = cpu.EnterFrame(true, uint32(lr[args[0]]), 0, cpu.regList(lr)...)
		if err != nil {
			return
		}
		cpu.pointCounter = 0
	case OP_INVOKE_POINTER_AND_POOL:
		_, err = cpu.EnterFrame(false, uint32(lr[args[0]]), lr[args[1]], cpu.regList(lr)...)
		if err != nil {
			return
		}
		cpu.pointCounter = 0
	case OP_RETURN:
		err = cpu.popFrame()
		if err != nil {
			return
		}
		cpu.pointCounter = 0
	case OP_SYSTEM_CALL:
		index := Syscall(int16(lr[args[0]]))
		err = cpu.systemCall(ctx, frame, index, cpu.regList(lr))
	case OP_MEM_HANDLE_OFF_REG, OP_MEM_HANDLE_OFF_ICONST:
		off := args[2]
		if !op.IsConst() {
			off = lr[args[2]]
		}
		err = cpu.handleAccess(op, &lr[args[0]], lr[args[1]], uint32(off))
	case OP_MEMORY_OFF_REG, OP_MEMORY_OFF_ICONST:
		base := uint64(uint32(lr[args[1]])) | uint64(uint32(lr[args[2]]))<<32
		off := args[3]
		if !op.IsConst() {
			off = lr[args[3]]
		}
		err = &ErrMemoryOff{
			Load:    op.IsLoad(),
			Address: base + uint64(int64(off)),
			Base:    base,
			Offset:  off,
			Op:      op,
		}
	case OP_ATOMIC_COMPARE_GET_AND_SET:
		state.Atomic.Lock()
		defer state.Atomic.Unlock()

		check, set := lr[args[0]], lr[args[2]]
		addr := uint32(lr[args[3]]) + uint32(args[4])

		var read int32
		read, err = state.Memory.Read32(addr)
		if err != nil {
			return
		}
		if read == check {
			err = state.Memory.Write32(addr, set)
			if err != nil {
				return
			}
		}
		lr[args[1]] = read
	case OP_ATOMIC_INT_DECREMENT_AND_GET:
		state.Atomic.Lock()
		defer state.Atomic.Unlock()

		addr := uint32(lr[args[1]]) + uint32(args[2])

		var value int32
		value, err = state.Memory.Read32(addr)
		if err != nil {
			return
		}
		value--
		err = state.Memory.Write32(addr, value)
		if err != nil {
			return
		}
		lr[args[0]] = value
	case OP_ATOMIC_INT_INCREMENT:
		state.Atomic.Lock()
		defer state.Atomic.Unlock()

		addr := uint32(lr[args[0]]) + uint32(args[1])

		var value int32
		value, err = state.Memory.Read32(addr)
		if err != nil {
			return
		}
		err = state.Memory.Write32(addr, value+1)
	case OP_MEM_HANDLE_COUNT_UP:
		_, err = state.Handles.CountUp(lr[args[0]])
	case OP_MEM_HANDLE_COUNT_DOWN:
		var count int32
		count, err = state.Handles.CountDown(lr[args[0]])
		if err != nil {
			return
		}
		lr[args[1]] = count
	case OP_DEBUG_ENTRY:
		err = cpu.debugEntry(frame, args[0], args[1], args[2], args[3])
	case OP_DEBUG_EXIT:
		if cpu.Profiler != nil {
			_ = cpu.Profiler.ExitFrame()
		}
	case OP_DEBUG_POINT:
		frame.Debug.Line = args[0]
		frame.Debug.JavaOp = args[1]
		frame.Debug.JavaPc = args[2]
	case OP_PING:
		if cpu.Debug || cpu.Verbose {
			note := cpu.poolString(frame, args[1])
			cpu.logf("PING! %04Xh: %s at %v", args[0], note, cpu.TraceTop())
		}
	case OP_BREAKPOINT, OP_BREAKPOINT_MARKED:
		mark := "Un"
		note := ""
		if op == OP_BREAKPOINT_MARKED {
			mark = fmt.Sprintf("%Xh", args[0])
			note = cpu.poolString(frame, args[1])
		}
		if cpu.Profiler != nil {
			bit := "<breakpoint?" + mark + ">"
			cpu.Profiler.EnterFrame(bit, bit, bit)
			_ = cpu.Profiler.ExitFrame()
		}
		err = &ErrBreakpoint{Mark: mark, Note: note}
	default:
		err = ErrOpcode(op)
	}

	return
}

// handleAccess performs a load or store through a memory handle.
func (cpu *Cpu) handleAccess(op Opcode, value *int32, id int32, off uint32) (err error) {
	h, err := cpu.State.Handles.Get(id)
	if err != nil {
		return
	}

	load := op.IsLoad()
	switch op.DataType() {
	case DATA_BYTE:
		if load {
			var v uint8
			v, err = h.Read8(off)
			*value = int32(int8(v))
		} else {
			err = h.Write8(off, uint8(*value))
		}
	case DATA_SHORT, DATA_CHARACTER:
		if load {
			var v int16
			v, err = h.Read16(off)
			if op.DataType() == DATA_CHARACTER {
				*value = int32(uint16(v))
			} else {
				*value = int32(v)
			}
		} else {
			err = h.Write16(off, int16(*value))
		}
	case DATA_INTEGER, DATA_FLOAT, DATA_OBJECT:
		if load {
			var v int32
			v, err = h.Read32(off)
			*value = v
		} else {
			err = h.Write32(off, *value)
		}
	default:
		err = errors.Join(ErrOpcodeDataType, fmt.Errorf("%v", op.DataType()))
	}

	return
}

// poolString loads the string at the pool entry index, or "" for index 0.
func (cpu *Cpu) poolString(frame *Frame, index int32) string {
	if index == 0 {
		return ""
	}
	pointer, err := cpu.Pool.Load(frame.Register[POOL_REGISTER], index)
	if err != nil {
		return fmt.Sprintf("pool#%d???", index)
	}
	return cpu.loadString(pointer)
}

// loadString loads a length prefixed string, without failing.
func (cpu *Cpu) loadString(addr int32) string {
	text, err := memory.ReadUtf(cpu.State.Memory, uint32(addr))
	if err != nil {
		return fmt.Sprintf("@%08x???", uint32(addr))
	}
	return text
}

// debugEntry resolves the debug names of the frame from the pool.
func (cpu *Cpu) debugEntry(frame *Frame, class, method, methodType, sourceFile int32) (err error) {
	indexes := [4]int32{class, method, methodType, sourceFile}
	var pointers [4]int32
	var names [4]string

	for n, index := range indexes {
		pointers[n], err = cpu.Pool.Load(frame.Register[POOL_REGISTER], index)
		if err != nil {
			return
		}
		if pointers[n] != 0 {
			names[n] = cpu.loadString(pointers[n])
		}
	}

	dbg := &frame.Debug
	dbg.ClassPointer, dbg.MethodPointer, dbg.TypePointer, dbg.SourceFilePointer = pointers[0], pointers[1], pointers[2], pointers[3]
	dbg.Class, dbg.Method, dbg.Type, dbg.SourceFile = names[0], names[1], names[2], names[3]

	if cpu.Profiler != nil {
		cpu.Profiler.EnterFrame(orElse(dbg.Class, "<AClass>"), orElse(dbg.Method, "<AMethod>"), orElse(dbg.Type, "<AType>"))
	}

	if cpu.Verbose {
		cpu.logf("enter %v::%v:%v", orElse(dbg.Class, "<AClass>"), orElse(dbg.Method, "<AMethod>"), orElse(dbg.Type, "<AType>"))
	}

	return
}
