package cpu

import (
	"errors"

	"github.com/ezrec/nativecpu/translate"
)

var f = translate.From

var (
	// Cpu errors
	ErrFrameLimit           = errors.New(f("frame limit reached"))
	ErrReturnPastMain       = errors.New(f("return from the main frame"))
	ErrTooManyArguments     = errors.New(f("too many arguments for the register file"))
	ErrNoFrame              = errors.New(f("no frame to execute"))
	ErrDivideByZero         = errors.New(f("divide by zero"))
	ErrMemoryOffUnsupported = errors.New(f("raw memory access unsupported"))
	ErrBreakpointHit        = errors.New(f("breakpoint hit"))
	ErrFatalTodo            = errors.New(f("fatal todo system call"))
	ErrSyscallUnknown       = errors.New(f("unknown system call"))

	// Instruction decode errors
	ErrDecode               = errors.New(f("decode"))
	ErrInstructionTruncated = errors.New(f("instruction truncated"))
	ErrRegisterRange        = errors.New(f("register out of range"))
	ErrOpcodeMath           = errors.New(f("math"))
	ErrOpcodeDataType       = errors.New(f("data type"))

	// Assembler errors
	ErrEquateSyntax       = errors.New(f(".equ syntax"))
	ErrEquateDuplicate    = errors.New(f(".equ duplicated"))
	ErrLabelDuplicate     = errors.New(f("label duplicated"))
	ErrMacroSyntax        = errors.New(f(".macro syntax"))
	ErrMacroNesting       = errors.New(f(".macro in .macro prohibited"))
	ErrMacroDuplicate     = errors.New(f(".macro duplicated"))
	ErrMacroLonely        = errors.New(f(".macro without .endm"))
	ErrMacroLonelyEndm    = errors.New(f(".endm without .macro"))
	ErrDirectiveSyntax    = errors.New(f("directive syntax"))
	ErrOrgBackwards       = errors.New(f(".org before current address"))
	ErrOpcodeExtraArgs    = errors.New(f("excessive arguments"))
	ErrOpcodeValueMissing = errors.New(f("value missing"))
	ErrRegisterInvalid    = errors.New(f("register invalid"))
	ErrInstructionInvalid = errors.New(f("instruction invalid"))
	ErrValueRange         = errors.New(f("value out of range"))
	ErrJumpRange          = errors.New(f("jump out of range"))
)

// ErrOpcode is an opcode which is not a valid instruction.
type ErrOpcode Opcode

func (eo ErrOpcode) Error() string {
	return f("invalid instruction 0x%02x %v", uint8(eo), Opcode(eo).String())
}

func (eo ErrOpcode) Is(err error) (ok bool) {
	_, ok = err.(ErrOpcode)
	return
}

// ErrInstruction annotates a failure with the instruction which caused it.
type ErrInstruction struct {
	Pc   uint32
	Op   Opcode
	Args []int32
	Err  error
}

func (err *ErrInstruction) Error() string {
	return f("%08x %v %v: %v", err.Pc, err.Op, err.Args, err.Err)
}

func (err *ErrInstruction) Unwrap() error {
	return err.Err
}

// ErrDecodeArgs is a decode failure, with the arguments decoded so far.
type ErrDecodeArgs struct {
	Op       Opcode
	Register int // Offending register index, if any.
	Format   []ArgumentFormat
	Args     []int32
	Err      error
}

func (err *ErrDecodeArgs) Error() string {
	if errors.Is(err.Err, ErrRegisterRange) {
		return f("decode %v: register %d out of range %v %v", err.Op, err.Register, err.Format, err.Args)
	}
	return f("decode %v: %v %v %v", err.Op, err.Err, err.Format, err.Args)
}

func (err *ErrDecodeArgs) Unwrap() []error {
	return []error{ErrDecode, err.Err}
}

// ErrReturn is a return from the last frame on the stack.
type ErrReturn struct {
	Value     int64 // Return register pair.
	Exception int32 // Exception register.
}

func (err *ErrReturn) Error() string {
	return f("return from the main frame [%d] exception %#08x", err.Value, err.Exception)
}

func (err *ErrReturn) Unwrap() error {
	return ErrReturnPastMain
}

// ErrMemoryOff is a raw memory access, which is never permitted.
type ErrMemoryOff struct {
	Load    bool
	Address uint64
	Base    uint64
	Offset  int32
	Op      Opcode
}

func (err *ErrMemoryOff) Error() string {
	dir := "store"
	if err.Load {
		dir = "load"
	}
	return f("invalid memory access: %v @%#08x (%#08x + %d): %v", dir, err.Address, err.Base, err.Offset, err.Op)
}

func (err *ErrMemoryOff) Unwrap() error {
	return ErrMemoryOffUnsupported
}

// ErrBreakpoint is a breakpoint instruction.
type ErrBreakpoint struct {
	Mark string
	Note string
}

func (err *ErrBreakpoint) Error() string {
	return f("breakpoint hit (%v: %v)", err.Mark, err.Note)
}

func (err *ErrBreakpoint) Unwrap() error {
	return ErrBreakpointHit
}

// ErrSyscall is a recoverable system call failure, reported to the caller
// as an error code rather than faulting the Cpu.
type ErrSyscall struct {
	Code int32
}

func (err *ErrSyscall) Error() string {
	return f("system call error %d", err.Code)
}

// ErrUnknownSyscall is a system call index with no handler.
type ErrUnknownSyscall Syscall

func (err ErrUnknownSyscall) Error() string {
	return f("unknown system call %v", Syscall(err).String())
}

func (err ErrUnknownSyscall) Unwrap() error {
	return ErrSyscallUnknown
}

// Assembler errors

type ErrLabelMissing string

func (el ErrLabelMissing) Error() string {
	return f("label %v missing", string(el))
}

type ErrSyntax struct {
	LineNo int
	Line   string
	Err    error
}

func (err ErrSyntax) Error() string {
	return f("line %d '%v' %v", err.LineNo, err.Line, err.Err)
}

func (err ErrSyntax) Unwrap() error {
	return err.Err
}

type ErrParseNumber string

func (err ErrParseNumber) Error() string {
	return f("'%v' is not a number", string(err))
}

type ErrParseCharacter string

func (err ErrParseCharacter) Error() string {
	return f("'%v' is not a character", string(err))
}

type ErrParseExpression string

func (err ErrParseExpression) Error() string {
	return f("$(%v) is not a valid expression", string(err))
}

type ErrMacro struct {
	Macro string
	Line  int
	Err   error
}

func (err ErrMacro) Error() string {
	return f("macro %v line %v %v", err.Macro, err.Line, err.Err.Error())
}

func (err ErrMacro) Unwrap() error {
	return err.Err
}
