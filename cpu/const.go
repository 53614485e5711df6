// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package cpu

import (
	"fmt"
	"iter"
	"maps"
)

// Register file layout.
const (
	MAX_REGISTERS = 64 // Registers in a frame.

	ZERO_REGISTER         = 0 // Zeroed on frame entry.
	RETURN_REGISTER       = 1 // Low word of the return pair.
	RETURN_REGISTER_HI    = 2 // High word of the return pair.
	EXCEPTION_REGISTER    = 3 // Current exception.
	STATIC_FIELD_REGISTER = 4 // Static field area pointer.
	THREAD_REGISTER       = 5 // Current thread.
	POOL_REGISTER         = 6 // Constant pool pointer.
	NEXT_POOL_REGISTER    = 7 // Pool pointer for the next classic invoke.

	LOCAL_REGISTER_BASE    = 8 // First register which is not a global.
	ARGUMENT_REGISTER_BASE = 8 // First argument register of a frame.
)

// Machine limits.
const (
	FRAME_LIMIT            = 64    // Maximum frame depth.
	METHOD_CACHE           = 2048  // Instruction cache window.
	METHOD_CACHE_SPILL     = 1024  // Refill once the PC leaves this much of the window.
	MAX_EXECUTION_SLICES   = 32    // Slices kept per frame when debugging.
	MAX_POPPED_SLICE_STORE = 8     // Popped frames whose slices are kept.
	POINT_THRESHOLD        = 65536 // Debug points before a frame is reported as stuck.
	MAX_ARGUMENTS          = 6     // Argument slots of any instruction.
	CONTEXT_CHECK          = 4096  // Instructions between context cancellation checks.
)

// Syscall is a system call index.
type Syscall int32

//go:generate go tool stringer -type=Syscall -trimprefix=SYSCALL_
const (
	SYSCALL_QUERY_INDEX             = Syscall(0)
	SYSCALL_ERROR_GET               = Syscall(1)
	SYSCALL_ERROR_SET               = Syscall(2)
	SYSCALL_EXCEPTION_LOAD          = Syscall(3)
	SYSCALL_EXCEPTION_STORE         = Syscall(4)
	SYSCALL_MEM_HANDLE_NEW          = Syscall(5)
	SYSCALL_MEM_SET                 = Syscall(6)
	SYSCALL_PD_OF_STDIN             = Syscall(7)
	SYSCALL_PD_OF_STDOUT            = Syscall(8)
	SYSCALL_PD_OF_STDERR            = Syscall(9)
	SYSCALL_PD_WRITE_BYTE           = Syscall(10)
	SYSCALL_SLEEP                   = Syscall(11)
	SYSCALL_TIME_MILLI_WALL         = Syscall(12)
	SYSCALL_TIME_NANO_MONO          = Syscall(13)
	SYSCALL_SUPERVISOR_BOOT_OKAY    = Syscall(14)
	SYSCALL_SUPERVISOR_PROPERTY_GET = Syscall(15)
	SYSCALL_SUPERVISOR_PROPERTY_SET = Syscall(16)
	SYSCALL_CALL_STACK_HEIGHT       = Syscall(17)
	SYSCALL_CALL_STACK_ITEM         = Syscall(18)
	SYSCALL_FRAME_TASK_ID_GET       = Syscall(19)
	SYSCALL_FRAME_TASK_ID_SET       = Syscall(20)
	SYSCALL_ARRAY_ALLOCATION_BASE   = Syscall(21)
	SYSCALL_BYTE_ORDER_LITTLE       = Syscall(22)
	SYSCALL_FATAL_TODO              = Syscall(23)
	SYSCALL_VMI_MEM_FREE            = Syscall(24)
	SYSCALL_VMI_MEM_USED            = Syscall(25)
	SYSCALL_VMI_MEM_MAX             = Syscall(26)
	SYSCALL_EXIT                    = Syscall(27)
	SYSCALL_PD_READ_BYTE            = Syscall(28)
	NUM_SYSCALLS                    = 29
)

// System call error codes, recorded in the per-Cpu error table.
const (
	SYSCALL_ERROR_NO_ERROR                  = int32(0)
	SYSCALL_ERROR_UNSUPPORTED_SYSTEM_CALL   = int32(-1)
	SYSCALL_ERROR_PIPE_DESCRIPTOR_INVALID   = int32(-2)
	SYSCALL_ERROR_PIPE_DESCRIPTOR_BAD_WRITE = int32(-3)
	SYSCALL_ERROR_VALUE_OUT_OF_RANGE        = int32(-4)
	SYSCALL_ERROR_INVALID_MEMHANDLE_KIND    = int32(-5)
	SYSCALL_ERROR_INTERRUPTED               = int32(-6)
	SYSCALL_ERROR_PIPE_DESCRIPTOR_BAD_READ  = int32(-7)
)

// Pipe descriptors of the standard streams.
const (
	PIPE_STDIN  = 0
	PIPE_STDOUT = 1
	PIPE_STDERR = 2
)

// Supervisor property indexes.
const (
	SUPERVISOR_TASK_SYSCALL_METHOD_HANDLER       = 0 // Address of the task system call handler.
	SUPERVISOR_TASK_SYSCALL_METHOD_POOL_POINTER  = 1 // Pool pointer of the handler.
	SUPERVISOR_TASK_SYSCALL_STATIC_FIELD_POINTER = 2 // Static field pointer of the handler.
	NUM_PROPERTIES                               = 8
)

// CallStackItem selects a field of a frame for SYSCALL_CALL_STACK_ITEM.
type CallStackItem int32

//go:generate go tool stringer -type=CallStackItem -trimprefix=CALL_STACK_
const (
	CALL_STACK_CLASS_NAME      = CallStackItem(0)
	CALL_STACK_METHOD_NAME     = CallStackItem(1)
	CALL_STACK_METHOD_TYPE     = CallStackItem(2)
	CALL_STACK_SOURCE_FILE     = CallStackItem(3)
	CALL_STACK_SOURCE_LINE     = CallStackItem(4)
	CALL_STACK_PC_ADDRESS      = CallStackItem(5)
	CALL_STACK_JAVA_OPERATION  = CallStackItem(6)
	CALL_STACK_JAVA_PC_ADDRESS = CallStackItem(7)
	CALL_STACK_TASK_ID         = CallStackItem(8)
	NUM_CALL_STACK_ITEMS       = 9
)

var _cpu_defines = map[string]string{
	"MAX_REGISTERS":          fmt.Sprintf("%v", MAX_REGISTERS),
	"LOCAL_REGISTER_BASE":    fmt.Sprintf("%v", LOCAL_REGISTER_BASE),
	"ARGUMENT_REGISTER_BASE": fmt.Sprintf("%v", ARGUMENT_REGISTER_BASE),
	"FRAME_LIMIT":            fmt.Sprintf("%v", FRAME_LIMIT),
	"PIPE_STDIN":             fmt.Sprintf("%v", PIPE_STDIN),
	"PIPE_STDOUT":            fmt.Sprintf("%v", PIPE_STDOUT),
	"PIPE_STDERR":            fmt.Sprintf("%v", PIPE_STDERR),

	"SUPERVISOR_TASK_SYSCALL_METHOD_HANDLER":       fmt.Sprintf("%v", SUPERVISOR_TASK_SYSCALL_METHOD_HANDLER),
	"SUPERVISOR_TASK_SYSCALL_METHOD_POOL_POINTER":  fmt.Sprintf("%v", SUPERVISOR_TASK_SYSCALL_METHOD_POOL_POINTER),
	"SUPERVISOR_TASK_SYSCALL_STATIC_FIELD_POINTER": fmt.Sprintf("%v", SUPERVISOR_TASK_SYSCALL_STATIC_FIELD_POINTER),
}

func init() {
	for index := range Syscall(NUM_SYSCALLS) {
		_cpu_defines["SYSCALL_"+index.String()] = fmt.Sprintf("%v", int32(index))
	}
	for item := range CallStackItem(NUM_CALL_STACK_ITEMS) {
		_cpu_defines["CALL_STACK_"+item.String()] = fmt.Sprintf("%v", int32(item))
	}
}

// Defines returns the assembler equates of the machine constants.
func Defines() iter.Seq2[string, string] {
	return maps.All(_cpu_defines)
}
