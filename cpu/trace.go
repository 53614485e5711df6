// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package cpu

import (
	"fmt"
	"io"
	"strings"
)

// TraceElement describes one frame of a call trace.
type TraceElement struct {
	Class      string
	Method     string
	Type       string
	SourceFile string
	Line       int32
	Pc         uint32
	JavaOp     int32
	JavaPc     int32
	TaskId     int32
	Op         Opcode
}

func orElse(value, other string) string {
	if len(value) == 0 {
		return other
	}
	return value
}

func (te TraceElement) String() string {
	return fmt.Sprintf("%v::%v:%v (%v:%d) @%08x [%v] J%02x@%d T%d",
		orElse(te.Class, "<AClass>"),
		orElse(te.Method, "<AMethod>"),
		orElse(te.Type, "<AType>"),
		orElse(te.SourceFile, "<ASource>"),
		te.Line, te.Pc, te.Op, te.JavaOp, te.JavaPc, te.TaskId)
}

// Slice is a single executed instruction, recorded when debugging.
type Slice struct {
	Pc      uint32
	Op      Opcode
	Args    []int32
	RegList []int32
	Line    int32
}

func (sl Slice) String() string {
	text := fmt.Sprintf("%08x: %-20v %v", sl.Pc, sl.Op, sl.Args)
	if sl.RegList != nil {
		text += " " + formatRegList(sl.RegList)
	}
	return fmt.Sprintf("%v (line %d)", text, sl.Line)
}

// newSlice records the decoded instruction at pc.
func newSlice(pc uint32, inst *Instruction, line int32) (sl Slice) {
	sl = Slice{
		Pc:   pc,
		Op:   inst.Op,
		Args: append([]int32(nil), inst.Args[:inst.NumArgs]...),
		Line: line,
	}
	for _, af := range inst.Op.Format() {
		if af == FORMAT_REGLIST {
			sl.RegList = append([]int32{}, inst.RegList...)
		}
	}
	return
}

// Trace returns the call trace of the Cpu, newest frame first.
func (cpu *Cpu) Trace() (trace []TraceElement) {
	trace = make([]TraceElement, 0, len(cpu.frames))
	for n := len(cpu.frames) - 1; n >= 0; n-- {
		trace = append(trace, cpu.frames[n].Trace())
	}
	return
}

// TraceTop returns the trace element of the top frame.
func (cpu *Cpu) TraceTop() (te TraceElement) {
	top := cpu.Top()
	if top != nil {
		te = top.Trace()
	}
	return
}

// ErrFault is a fatal fault, with the state of the Cpu when it happened.
type ErrFault struct {
	Cpu    int            // Cpu id.
	Err    error          // Cause of the fault.
	Trace  []TraceElement // Call trace, newest first.
	Slices [][]Slice      // Recent instructions of each frame in Trace, when debugging.
	Popped [][]Slice      // Recent instructions of recently popped frames, oldest first.
}

func (err *ErrFault) Error() string {
	if len(err.Trace) == 0 {
		return f("cpu %d: %v", err.Cpu, err.Err)
	}
	return f("cpu %d: %v at %v", err.Cpu, err.Err, err.Trace[0])
}

func (err *ErrFault) Unwrap() error {
	return err.Err
}

// Report renders the fault and its call trace, followed by the recent
// instructions of each frame and of the recently popped frames.
func (err *ErrFault) Report(w io.Writer) (werr error) {
	var sb strings.Builder

	sb.WriteString(strings.Repeat("*", 44) + "\n")

	fmt.Fprintf(&sb, "%v\n", err.Err)
	for _, te := range err.Trace {
		fmt.Fprintf(&sb, "    at %v\n", te)
	}

	for n, slices := range err.Slices {
		sb.WriteString(strings.Repeat(">", 72) + "\n")
		if n < len(err.Trace) {
			fmt.Fprintf(&sb, ">>>>>>>>>>>> %v\n", err.Trace[n])
		}
		fmt.Fprintf(&sb, "Printing the last %d instructions:\n", len(slices))
		for _, sl := range slices {
			fmt.Fprintf(&sb, "    %v\n", sl)
		}
		sb.WriteString("\n")
	}

	if len(err.Popped) != 0 {
		sb.WriteString(strings.Repeat("+", 72) + "\n")
		for _, slices := range err.Popped {
			sb.WriteString("Slices of a popped frame:\n")
			for _, sl := range slices {
				fmt.Fprintf(&sb, "    %v\n", sl)
			}
			sb.WriteString("\n")
		}
		sb.WriteString(strings.Repeat("-", 44) + "\n")
	}

	sb.WriteString(strings.Repeat("*", 44) + "\n")

	_, werr = io.WriteString(w, sb.String())
	return
}
