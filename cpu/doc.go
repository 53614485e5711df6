// Package cpu implements the native register machine and its assembler.
//
// Each Cpu runs one interpreter loop over a stack of call frames. A frame
// holds 64 32-bit registers; the registers below LOCAL_REGISTER_BASE are
// globals which are copied into a called frame and copied back out when it
// returns. Instructions are fetched from the shared memory.Memory through a
// small instruction cache, decoded into an opcode and its argument slots,
// and executed against the registers of the top frame.
//
// System calls made by the supervisor (task 0) are handled in place by the
// per-Cpu handler table. System calls made by any other task are delegated
// to supervisor code by pushing a frame at the configured handler address.
//
// The assembler provides a small text language for the instruction set,
// supporting macros, labels, equates, and compile-time expression evaluation.
package cpu
