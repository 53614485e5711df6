package cpu

import (
	"context"
	"errors"
	"math"
	"runtime"
	"strconv"
	"time"

	"github.com/ezrec/nativecpu/handle"
)

// SyscallHandler handles a system call made by a Cpu, returning the 64-bit
// result placed in the return register pair.
//
// Returning an *ErrSyscall records its code in the error table of the Cpu,
// with a zero result. Any other error is a fatal fault.
type SyscallHandler func(ctx context.Context, cpu *Cpu, args []int32) (value int64, err error)

// monotonic clock epoch
var epoch = time.Now()

var defaultHandlers [NUM_SYSCALLS]SyscallHandler

func init() {
	defaultHandlers = [NUM_SYSCALLS]SyscallHandler{
		SYSCALL_QUERY_INDEX:             syscallQueryIndex,
		SYSCALL_ERROR_GET:               syscallErrorGet,
		SYSCALL_ERROR_SET:               syscallErrorSet,
		SYSCALL_EXCEPTION_LOAD:          syscallExceptionLoad,
		SYSCALL_EXCEPTION_STORE:         syscallExceptionStore,
		SYSCALL_MEM_HANDLE_NEW:          syscallMemHandleNew,
		SYSCALL_MEM_SET:                 syscallMemSet,
		SYSCALL_PD_OF_STDIN:             syscallConstant(PIPE_STDIN),
		SYSCALL_PD_OF_STDOUT:            syscallConstant(PIPE_STDOUT),
		SYSCALL_PD_OF_STDERR:            syscallConstant(PIPE_STDERR),
		SYSCALL_PD_WRITE_BYTE:           syscallPdWriteByte,
		SYSCALL_PD_READ_BYTE:            syscallPdReadByte,
		SYSCALL_SLEEP:                   syscallSleep,
		SYSCALL_TIME_MILLI_WALL:         syscallTimeMilliWall,
		SYSCALL_TIME_NANO_MONO:          syscallTimeNanoMono,
		SYSCALL_SUPERVISOR_BOOT_OKAY:    syscallSupervisorBootOkay,
		SYSCALL_SUPERVISOR_PROPERTY_GET: syscallSupervisorPropertyGet,
		SYSCALL_SUPERVISOR_PROPERTY_SET: syscallSupervisorPropertySet,
		SYSCALL_CALL_STACK_HEIGHT:       syscallCallStackHeight,
		SYSCALL_CALL_STACK_ITEM:         syscallCallStackItem,
		SYSCALL_FRAME_TASK_ID_GET:       syscallFrameTaskIdGet,
		SYSCALL_FRAME_TASK_ID_SET:       syscallFrameTaskIdSet,
		SYSCALL_ARRAY_ALLOCATION_BASE:   syscallArrayAllocationBase,
		SYSCALL_BYTE_ORDER_LITTLE:       syscallConstant(0),
		SYSCALL_FATAL_TODO:              syscallFatalTodo,
		SYSCALL_VMI_MEM_FREE:            syscallVmiMem(func(ms *runtime.MemStats) uint64 { return ms.Sys - min(ms.Sys, ms.HeapAlloc) }),
		SYSCALL_VMI_MEM_USED:            syscallVmiMem(func(ms *runtime.MemStats) uint64 { return ms.HeapAlloc }),
		SYSCALL_VMI_MEM_MAX:             syscallVmiMem(func(ms *runtime.MemStats) uint64 { return ms.Sys }),
		SYSCALL_EXIT:                    syscallExit,
	}
}

// SetHandler replaces the handler of a system call for this Cpu.
// A nil handler makes the call unsupported.
func (cpu *Cpu) SetHandler(index Syscall, handler SyscallHandler) (ok bool) {
	if index < 0 || index >= NUM_SYSCALLS {
		return
	}

	cpu.handlers[index] = handler
	ok = true
	return
}

// Handler returns the handler of a system call, or nil if not supported.
func (cpu *Cpu) Handler(index Syscall) SyscallHandler {
	if index < 0 || index >= NUM_SYSCALLS {
		return nil
	}
	return cpu.handlers[index]
}

// systemCall handles the call in place for the supervisor, or for the
// exception accessors; any other call from a task enters the supervisor's
// task system call handler.
func (cpu *Cpu) systemCall(ctx context.Context, frame *Frame, index Syscall, args []int32) (err error) {
	if frame.TaskId != 0 && index != SYSCALL_EXCEPTION_LOAD && index != SYSCALL_EXCEPTION_STORE {
		err = cpu.delegate(frame, index, args)
		return
	}

	if cpu.Profiler != nil {
		cpu.Profiler.EnterFrame("<syscall>", strconv.Itoa(int(index)), "(IIIIIIII)I")
		defer func() {
			_ = cpu.Profiler.ExitFrame()
		}()
	}

	value, err := cpu.Syscall(ctx, index, args...)
	if err != nil {
		return
	}

	frame.Register[RETURN_REGISTER] = int32(value)
	frame.Register[RETURN_REGISTER_HI] = int32(value >> 32)

	return
}

// Syscall runs the handler of a system call, and records the resulting
// error code in the error table.
func (cpu *Cpu) Syscall(ctx context.Context, index Syscall, args ...int32) (value int64, err error) {
	errorDx := SYSCALL_QUERY_INDEX
	handler := cpu.Handler(index)
	if handler != nil {
		errorDx = index
	}

	var code int32
	if handler == nil {
		if cpu.Debug {
			err = ErrUnknownSyscall(index)
			return
		}
		code = SYSCALL_ERROR_UNSUPPORTED_SYSTEM_CALL
	} else {
		value, err = handler(ctx, cpu, args)
		var es *ErrSyscall
		if errors.As(err, &es) {
			value = 0
			code = es.Code
			err = nil
		}
		if err != nil {
			return
		}
	}

	cpu.errors[errorDx] = code

	if cpu.Verbose {
		cpu.logf("syscall %v%v -> %d (err: %d)", index, args, value, code)
	}

	return
}

// delegate enters the supervisor's task system call handler, passing the
// task id, static field pointer, and index of the call before its arguments.
func (cpu *Cpu) delegate(frame *Frame, index Syscall, args []int32) (err error) {
	state := cpu.State
	handler, _ := state.Property(SUPERVISOR_TASK_SYSCALL_METHOD_HANDLER)
	pool, _ := state.Property(SUPERVISOR_TASK_SYSCALL_METHOD_POOL_POINTER)
	sfp, _ := state.Property(SUPERVISOR_TASK_SYSCALL_STATIC_FIELD_POINTER)

	sargs := make([]int32, 0, 3+len(args))
	sargs = append(sargs, frame.TaskId, frame.Register[STATIC_FIELD_REGISTER], int32(index))
	sargs = append(sargs, args...)

	sv, err := cpu.EnterFrame(true, uint32(handler), 0, sargs...)
	if err != nil {
		return
	}

	sv.TaskId = 0
	sv.Register[POOL_REGISTER] = pool
	sv.Register[STATIC_FIELD_REGISTER] = sfp

	cpu.pointCounter = 0

	if cpu.Verbose {
		cpu.logf("task %d: syscall %v%v delegated to %#08x", frame.TaskId, index, args, uint32(handler))
	}

	return
}

// arg returns argument n, or zero if it was not supplied.
func arg(args []int32, n int) int32 {
	if n < len(args) {
		return args[n]
	}
	return 0
}

func errorIndex(dx int32) Syscall {
	if dx < 0 || dx >= NUM_SYSCALLS {
		return SYSCALL_QUERY_INDEX
	}
	return Syscall(dx)
}

func syscallConstant(value int64) SyscallHandler {
	return func(context.Context, *Cpu, []int32) (int64, error) {
		return value, nil
	}
}

func syscallQueryIndex(ctx context.Context, cpu *Cpu, args []int32) (value int64, err error) {
	if cpu.Handler(Syscall(arg(args, 0))) != nil {
		value = 1
	}
	return
}

func syscallErrorGet(ctx context.Context, cpu *Cpu, args []int32) (value int64, err error) {
	value = int64(cpu.errors[errorIndex(arg(args, 0))])
	return
}

func syscallErrorSet(ctx context.Context, cpu *Cpu, args []int32) (value int64, err error) {
	dx := errorIndex(arg(args, 0))
	value = int64(cpu.errors[dx])
	cpu.errors[dx] = arg(args, 1)
	return
}

func syscallExceptionLoad(ctx context.Context, cpu *Cpu, args []int32) (value int64, err error) {
	value = int64(cpu.ipcException)
	return
}

func syscallExceptionStore(ctx context.Context, cpu *Cpu, args []int32) (value int64, err error) {
	value = int64(cpu.ipcException)
	cpu.ipcException = arg(args, 0)
	return
}

func syscallMemHandleNew(ctx context.Context, cpu *Cpu, args []int32) (value int64, err error) {
	h, err := cpu.State.Handles.Allocate(handle.Kind(arg(args, 0)), arg(args, 1))
	switch {
	case errors.Is(err, handle.ErrInvalidKind):
		err = &ErrSyscall{Code: SYSCALL_ERROR_INVALID_MEMHANDLE_KIND}
	case errors.Is(err, handle.ErrInvalidSize):
		err = &ErrSyscall{Code: SYSCALL_ERROR_VALUE_OUT_OF_RANGE}
	case err == nil:
		value = int64(h.Id)
	}
	return
}

func syscallMemSet(ctx context.Context, cpu *Cpu, args []int32) (value int64, err error) {
	addr, fill, length := uint32(arg(args, 0)), uint8(arg(args, 1)), arg(args, 2)

	mem := cpu.State.Memory
	for n := range max(length, 0) {
		err = mem.Write8(addr+uint32(n), fill)
		if err != nil {
			return
		}
	}

	return
}

func syscallPdWriteByte(ctx context.Context, cpu *Cpu, args []int32) (value int64, err error) {
	err = cpu.State.writePipe(arg(args, 0), byte(arg(args, 1)))
	if err != nil {
		return
	}
	value = 1
	return
}

func syscallPdReadByte(ctx context.Context, cpu *Cpu, args []int32) (value int64, err error) {
	b, err := cpu.State.readPipe(arg(args, 0))
	value = int64(b)
	return
}

func syscallSleep(ctx context.Context, cpu *Cpu, args []int32) (value int64, err error) {
	ms, ns := arg(args, 0), arg(args, 1)
	if ms < 0 || ns < 0 || ns > 999999 {
		err = &ErrSyscall{Code: SYSCALL_ERROR_VALUE_OUT_OF_RANGE}
		return
	}

	timer := time.NewTimer(time.Duration(ms)*time.Millisecond + time.Duration(ns))
	defer timer.Stop()

	select {
	case <-ctx.Done():
		err = &ErrSyscall{Code: SYSCALL_ERROR_INTERRUPTED}
	case <-timer.C:
	}

	return
}

func syscallTimeMilliWall(ctx context.Context, cpu *Cpu, args []int32) (value int64, err error) {
	value = time.Now().UnixMilli()
	return
}

func syscallTimeNanoMono(ctx context.Context, cpu *Cpu, args []int32) (value int64, err error) {
	value = int64(time.Since(epoch))
	return
}

func syscallSupervisorBootOkay(ctx context.Context, cpu *Cpu, args []int32) (value int64, err error) {
	cpu.State.supervisorOkay.Store(true)
	return
}

func syscallSupervisorPropertyGet(ctx context.Context, cpu *Cpu, args []int32) (value int64, err error) {
	prop, ok := cpu.State.Property(int(arg(args, 0)))
	if !ok {
		err = &ErrSyscall{Code: SYSCALL_ERROR_VALUE_OUT_OF_RANGE}
		return
	}
	value = int64(prop)
	return
}

func syscallSupervisorPropertySet(ctx context.Context, cpu *Cpu, args []int32) (value int64, err error) {
	if !cpu.State.SetProperty(int(arg(args, 0)), arg(args, 1)) {
		err = &ErrSyscall{Code: SYSCALL_ERROR_VALUE_OUT_OF_RANGE}
	}
	return
}

func syscallCallStackHeight(ctx context.Context, cpu *Cpu, args []int32) (value int64, err error) {
	value = int64(len(cpu.frames))
	return
}

// syscallCallStackItem reads an item of a frame, counting down from the
// top frame at 0.
func syscallCallStackItem(ctx context.Context, cpu *Cpu, args []int32) (value int64, err error) {
	depth, item := arg(args, 0), CallStackItem(arg(args, 1))
	if depth < 0 || int(depth) >= len(cpu.frames) {
		err = &ErrSyscall{Code: SYSCALL_ERROR_VALUE_OUT_OF_RANGE}
		return
	}

	frame := cpu.frames[len(cpu.frames)-1-int(depth)]
	dbg := &frame.Debug

	var v int32
	switch item {
	case CALL_STACK_CLASS_NAME:
		v = dbg.ClassPointer
	case CALL_STACK_METHOD_NAME:
		v = dbg.MethodPointer
	case CALL_STACK_METHOD_TYPE:
		v = dbg.TypePointer
	case CALL_STACK_SOURCE_FILE:
		v = dbg.SourceFilePointer
	case CALL_STACK_SOURCE_LINE:
		v = dbg.Line
	case CALL_STACK_PC_ADDRESS:
		v = int32(frame.LastPc)
	case CALL_STACK_JAVA_OPERATION:
		v = dbg.JavaOp
	case CALL_STACK_JAVA_PC_ADDRESS:
		v = dbg.JavaPc
	case CALL_STACK_TASK_ID:
		v = frame.TaskId
	default:
		err = &ErrSyscall{Code: SYSCALL_ERROR_VALUE_OUT_OF_RANGE}
		return
	}

	value = int64(v)
	return
}

func syscallFrameTaskIdGet(ctx context.Context, cpu *Cpu, args []int32) (value int64, err error) {
	top := cpu.Top()
	if top == nil {
		err = ErrNoFrame
		return
	}
	value = int64(top.TaskId)
	return
}

func syscallFrameTaskIdSet(ctx context.Context, cpu *Cpu, args []int32) (value int64, err error) {
	top := cpu.Top()
	if top == nil {
		err = ErrNoFrame
		return
	}
	top.TaskId = arg(args, 0)
	value = 1
	return
}

func syscallArrayAllocationBase(ctx context.Context, cpu *Cpu, args []int32) (value int64, err error) {
	value = int64(cpu.State.Handles.ArrayBase)
	return
}

func syscallFatalTodo(ctx context.Context, cpu *Cpu, args []int32) (value int64, err error) {
	err = ErrFatalTodo
	return
}

func syscallVmiMem(stat func(ms *runtime.MemStats) uint64) SyscallHandler {
	return func(ctx context.Context, cpu *Cpu, args []int32) (value int64, err error) {
		var ms runtime.MemStats
		runtime.ReadMemStats(&ms)
		value = int64(min(stat(&ms), math.MaxInt32))
		return
	}
}

func syscallExit(ctx context.Context, cpu *Cpu, args []int32) (value int64, err error) {
	cpu.exited = true
	cpu.exitCode = arg(args, 0)
	return
}
