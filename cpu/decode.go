// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package cpu

import (
	"fmt"
	"strings"
)

// Instruction is a decoded instruction.
type Instruction struct {
	Op      Opcode               // Opcode.
	Args    [MAX_ARGUMENTS]int32 // Argument slots, in format order.
	NumArgs int                  // Number of valid argument slots.
	RegList []int32              // Register list, if the format has one.
	Length  int                  // Encoded length in bytes.
}

// Decode decodes the instruction at the start of code. The register list
// storage of inst is reused.
func (inst *Instruction) Decode(code []byte) (err error) {
	inst.Args = [MAX_ARGUMENTS]int32{}
	inst.NumArgs = 0
	inst.RegList = inst.RegList[:0]
	inst.Length = 0

	if len(code) == 0 {
		err = &ErrDecodeArgs{Err: ErrInstructionTruncated}
		return
	}

	inst.Op = Opcode(code[0])
	if !inst.Op.Valid() {
		err = ErrOpcode(inst.Op)
		return
	}

	format := inst.Op.Format()
	pos := 1

	fail := func(reason error, register int) error {
		return &ErrDecodeArgs{
			Op:       inst.Op,
			Register: register,
			Format:   format,
			Args:     append([]int32(nil), inst.Args[:inst.NumArgs]...),
			Err:      reason,
		}
	}

	next := func() (value byte, ok bool) {
		if pos >= len(code) {
			return
		}
		value = code[pos]
		pos++
		ok = true
		return
	}

	for _, af := range format {
		var value int32
		switch af {
		case FORMAT_VUINT, FORMAT_VUREG, FORMAT_VPOOL, FORMAT_VJUMP:
			lo, ok := next()
			if !ok {
				return fail(ErrInstructionTruncated, 0)
			}
			base := int32(lo)
			if (base & 0x80) != 0 {
				lo, ok = next()
				if !ok {
					return fail(ErrInstructionTruncated, 0)
				}
				base = (base&0x7f)<<8 | int32(lo)
			}

			if af == FORMAT_VJUMP {
				// Sign extend from bit 14.
				value = int32(int16(base | (base&0x4000)<<1))
			} else {
				value = base
			}

			if af == FORMAT_VUREG && base >= MAX_REGISTERS {
				return fail(ErrRegisterRange, int(base))
			}
		case FORMAT_REGLIST:
			count, ok := next()
			if !ok {
				return fail(ErrInstructionTruncated, 0)
			}
			wide := (count & 0x80) != 0
			total := int(count)
			if wide {
				lo, ok := next()
				if !ok {
					return fail(ErrInstructionTruncated, 0)
				}
				total = int(count&0x7f)<<8 | int(lo)
			}
			for range total {
				reg, ok := next()
				if !ok {
					return fail(ErrInstructionTruncated, 0)
				}
				index := int(reg)
				if wide {
					lo, ok := next()
					if !ok {
						return fail(ErrInstructionTruncated, 0)
					}
					index = index<<8 | int(lo)
				}
				if index >= MAX_REGISTERS {
					return fail(ErrRegisterRange, index)
				}
				inst.RegList = append(inst.RegList, int32(index))
			}
			value = int32(total)
		case FORMAT_INT32, FORMAT_FLOAT32:
			if pos+4 > len(code) {
				return fail(ErrInstructionTruncated, 0)
			}
			value = int32(uint32(code[pos])<<24 | uint32(code[pos+1])<<16 | uint32(code[pos+2])<<8 | uint32(code[pos+3]))
			pos += 4
		}

		inst.Args[inst.NumArgs] = value
		inst.NumArgs++
	}

	inst.Length = pos
	return
}

// String formats the instruction in assembler syntax.
func (inst *Instruction) String() string {
	var sb strings.Builder
	sb.WriteString(inst.Op.String())
	for n, af := range inst.Op.Format() {
		if n >= inst.NumArgs {
			break
		}
		sb.WriteByte(' ')
		switch af {
		case FORMAT_VUREG:
			fmt.Fprintf(&sb, "r%d", inst.Args[n])
		case FORMAT_REGLIST:
			sb.WriteString(formatRegList(inst.RegList))
		case FORMAT_VJUMP:
			fmt.Fprintf(&sb, "%+d", inst.Args[n])
		default:
			fmt.Fprintf(&sb, "%d", inst.Args[n])
		}
	}
	return sb.String()
}

// formatRegList formats a register list in assembler syntax.
func formatRegList(regs []int32) string {
	if len(regs) == 0 {
		return "-"
	}
	words := make([]string, len(regs))
	for n, reg := range regs {
		words[n] = fmt.Sprintf("r%d", reg)
	}
	return strings.Join(words, ",")
}
