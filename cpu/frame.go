// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package cpu

import (
	"github.com/ezrec/nativecpu/internal"
)

// FrameDebug is the debug metadata of a frame, set by the debug instructions.
type FrameDebug struct {
	Class      string // Class name.
	Method     string // Method name.
	Type       string // Method type descriptor.
	SourceFile string // Source file name.

	ClassPointer      int32 // Pool value of the class name.
	MethodPointer     int32 // Pool value of the method name.
	TypePointer       int32 // Pool value of the method type.
	SourceFilePointer int32 // Pool value of the source file name.

	Line   int32 // Source line.
	JavaOp int32 // Bytecode operation.
	JavaPc int32 // Bytecode address.
}

// Frame is a single call activation.
type Frame struct {
	Register [MAX_REGISTERS]int32 // Register file.

	Pc      uint32 // Next instruction.
	EntryPc uint32 // First instruction of the frame.
	LastPc  uint32 // Last executed instruction.
	LastOp  Opcode // Last executed opcode.
	TaskId  int32  // Task the frame runs on behalf of, 0 for the supervisor.

	Debug FrameDebug // Debug metadata.

	slices *internal.Ring[Slice] // Recent instructions, only when debugging.
}

// Slices returns the recently executed instructions of the frame, oldest first.
func (fr *Frame) Slices() []Slice {
	if fr.slices == nil {
		return nil
	}
	return fr.slices.Slice()
}

// Trace returns the trace element for the frame.
func (fr *Frame) Trace() TraceElement {
	return TraceElement{
		Class:      fr.Debug.Class,
		Method:     fr.Debug.Method,
		Type:       fr.Debug.Type,
		SourceFile: fr.Debug.SourceFile,
		Line:       fr.Debug.Line,
		Pc:         fr.Pc,
		JavaOp:     fr.Debug.JavaOp,
		JavaPc:     fr.Debug.JavaPc,
		TaskId:     fr.TaskId,
		Op:         fr.LastOp,
	}
}

// EnterFrame pushes a new frame which starts executing at pc.
//
// The globals of the current top frame are copied into the new frame, which
// inherits its task id. If movePool is set the pool register is loaded from
// the caller's next pool register, otherwise it is set to pool. The args are
// placed in the argument registers, and register 0 is cleared last.
func (cpu *Cpu) EnterFrame(movePool bool, pc uint32, pool int32, args ...int32) (frame *Frame, err error) {
	if cpu.Verbose {
		cpu.logf("enter frame (move pool %v) %#08x/%#08x %v", movePool, pc, pool, args)
	}

	if len(cpu.frames) >= FRAME_LIMIT {
		err = ErrFrameLimit
		return
	}

	if ARGUMENT_REGISTER_BASE+len(args) > MAX_REGISTERS {
		err = ErrTooManyArguments
		return
	}

	frame = &Frame{
		Pc:      pc,
		EntryPc: pc,
		LastPc:  pc,
	}

	if cpu.Debug {
		frame.slices = internal.NewRing[Slice](MAX_EXECUTION_SLICES)
	}

	dest := &frame.Register
	if len(cpu.frames) != 0 {
		last := cpu.frames[len(cpu.frames)-1]
		src := &last.Register
		copy(dest[:LOCAL_REGISTER_BASE], src[:LOCAL_REGISTER_BASE])
		if movePool {
			dest[POOL_REGISTER] = src[NEXT_POOL_REGISTER]
		}
		frame.TaskId = last.TaskId
	}

	copy(dest[ARGUMENT_REGISTER_BASE:], args)

	if !movePool {
		dest[POOL_REGISTER] = pool
	}

	dest[ZERO_REGISTER] = 0

	cpu.frames = append(cpu.frames, frame)

	return
}

// popFrame returns from the top frame, copying the globals back into the
// caller. The pool register is not copied, and the next pool register of
// the caller is cleared.
func (cpu *Cpu) popFrame() (err error) {
	depth := len(cpu.frames)
	if depth == 0 {
		err = ErrNoFrame
		return
	}

	was := cpu.frames[depth-1]
	if depth == 1 {
		err = &ErrReturn{
			Value:     int64(uint32(was.Register[RETURN_REGISTER])) | int64(was.Register[RETURN_REGISTER_HI])<<32,
			Exception: was.Register[EXCEPTION_REGISTER],
		}
		return
	}

	cpu.frames[depth-1] = nil
	cpu.frames = cpu.frames[:depth-1]
	now := cpu.frames[depth-2]

	if cpu.popped != nil && was.slices != nil {
		cpu.popped.Push(was.slices.Slice())
	}

	for n := range LOCAL_REGISTER_BASE {
		switch n {
		case POOL_REGISTER:
			continue
		case NEXT_POOL_REGISTER:
			now.Register[n] = 0
		default:
			now.Register[n] = was.Register[n]
		}
	}

	if cpu.Verbose {
		cpu.logf("return %08x: [%#08x:%08x ex:%#08x]", now.Pc,
			now.Register[RETURN_REGISTER_HI], now.Register[RETURN_REGISTER],
			now.Register[EXCEPTION_REGISTER])
	}

	return
}

// Frames returns the frame stack, oldest first.
func (cpu *Cpu) Frames() []*Frame {
	return cpu.frames
}

// Top returns the top frame, or nil if the stack is empty.
func (cpu *Cpu) Top() *Frame {
	if len(cpu.frames) == 0 {
		return nil
	}
	return cpu.frames[len(cpu.frames)-1]
}
