// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package cpu

import (
	"fmt"
)

// ArgumentFormat is the encoding of a single instruction argument.
type ArgumentFormat int

//go:generate go tool stringer -linecomment -type=ArgumentFormat
const (
	FORMAT_VUINT   = ArgumentFormat(0) // vuint
	FORMAT_VUREG   = ArgumentFormat(1) // vureg
	FORMAT_VPOOL   = ArgumentFormat(2) // vpool
	FORMAT_VJUMP   = ArgumentFormat(3) // vjump
	FORMAT_REGLIST = ArgumentFormat(4) // reglist
	FORMAT_INT32   = ArgumentFormat(5) // int32
	FORMAT_FLOAT32 = ArgumentFormat(6) // float32
)

// CompareType is the condition of a compare-and-branch.
type CompareType int

//go:generate go tool stringer -linecomment -type=CompareType
const (
	COMPARE_EQ    = CompareType(0) // eq
	COMPARE_NE    = CompareType(1) // ne
	COMPARE_LT    = CompareType(2) // lt
	COMPARE_GE    = CompareType(3) // ge
	COMPARE_GT    = CompareType(4) // gt
	COMPARE_LE    = CompareType(5) // le
	COMPARE_TRUE  = CompareType(6) // true
	COMPARE_FALSE = CompareType(7) // false
)

// Compare evaluates the condition on a pair of signed values.
func (ct CompareType) Compare(a, b int32) bool {
	switch ct {
	case COMPARE_EQ:
		return a == b
	case COMPARE_NE:
		return a != b
	case COMPARE_LT:
		return a < b
	case COMPARE_GE:
		return a >= b
	case COMPARE_GT:
		return a > b
	case COMPARE_LE:
		return a <= b
	case COMPARE_TRUE:
		return true
	}
	return false
}

// MathType is an integer math operation.
type MathType int

//go:generate go tool stringer -linecomment -type=MathType
const (
	MATH_ADD     = MathType(0)  // add
	MATH_SUB     = MathType(1)  // sub
	MATH_MUL     = MathType(2)  // mul
	MATH_DIV     = MathType(3)  // div
	MATH_REM     = MathType(4)  // rem
	MATH_NEG     = MathType(5)  // neg
	MATH_SHL     = MathType(6)  // shl
	MATH_SHR     = MathType(7)  // shr
	MATH_USHR    = MathType(8)  // ushr
	MATH_AND     = MathType(9)  // and
	MATH_OR      = MathType(10) // or
	MATH_XOR     = MathType(11) // xor
	MATH_SIGNX8  = MathType(12) // signx8
	MATH_SIGNX16 = MathType(13) // signx16
	MATH_CMPL    = MathType(14) // cmpl
	MATH_CMPG    = MathType(15) // cmpg
)

// Apply performs the operation on a and b.
// Division and remainder by zero fail with ErrDivideByZero.
func (mt MathType) Apply(a, b int32) (c int32, err error) {
	switch mt {
	case MATH_ADD:
		c = a + b
	case MATH_SUB:
		c = a - b
	case MATH_MUL:
		c = a * b
	case MATH_DIV, MATH_REM:
		if b == 0 {
			err = ErrDivideByZero
			return
		}
		// Go defines MinInt32 / -1 as MinInt32, with a remainder of 0.
		if mt == MATH_DIV {
			c = a / b
		} else {
			c = a % b
		}
	case MATH_NEG:
		c = -a
	case MATH_SHL:
		c = a << (b & 0x1f)
	case MATH_SHR:
		c = a >> (b & 0x1f)
	case MATH_USHR:
		c = int32(uint32(a) >> (b & 0x1f))
	case MATH_AND:
		c = a & b
	case MATH_OR:
		c = a | b
	case MATH_XOR:
		c = a ^ b
	case MATH_SIGNX8:
		c = int32(int8(a))
	case MATH_SIGNX16:
		c = int32(int16(a))
	case MATH_CMPL, MATH_CMPG:
		switch {
		case a < b:
			c = -1
		case a > b:
			c = 1
		}
	default:
		err = ErrOpcodeMath
	}

	return
}

// DataType is the width and signedness of a memory access.
type DataType int

//go:generate go tool stringer -linecomment -type=DataType
const (
	DATA_BYTE      = DataType(0) // byte
	DATA_SHORT     = DataType(1) // short
	DATA_CHARACTER = DataType(2) // char
	DATA_INTEGER   = DataType(3) // int
	DATA_FLOAT     = DataType(4) // float
	DATA_OBJECT    = DataType(5) // object
	DATA_LONG      = DataType(6) // long
	DATA_DOUBLE    = DataType(7) // double
)

// Opcode is the first byte of an encoded instruction.
//
// Most opcodes are a single instruction. The compare, math, and memory
// access families carry their sub-operation in the low bits.
type Opcode uint8

// Single opcodes, and the base opcode of each family.
const (
	OP_COPY                         = Opcode(0x01)
	OP_LOAD_POOL                    = Opcode(0x02)
	OP_INVOKE                       = Opcode(0x03)
	OP_INVOKE_POINTER_AND_POOL      = Opcode(0x04)
	OP_RETURN                       = Opcode(0x05)
	OP_SYSTEM_CALL                  = Opcode(0x06)
	OP_MEM_HANDLE_COUNT_UP          = Opcode(0x07)
	OP_MEM_HANDLE_COUNT_DOWN        = Opcode(0x08)
	OP_ATOMIC_COMPARE_GET_AND_SET   = Opcode(0x09)
	OP_ATOMIC_INT_DECREMENT_AND_GET = Opcode(0x0a)
	OP_ATOMIC_INT_INCREMENT         = Opcode(0x0b)
	OP_DEBUG_ENTRY                  = Opcode(0x0c)
	OP_DEBUG_EXIT                   = Opcode(0x0d)
	OP_DEBUG_POINT                  = Opcode(0x0e)
	OP_PING                         = Opcode(0x0f)
	OP_IF_ICMP                      = Opcode(0x10) // | CompareType
	OP_IF_ICMP_CONST                = Opcode(0x18) // | CompareType
	OP_IFEQ_CONST                   = OP_IF_ICMP_CONST | Opcode(COMPARE_EQ)
	OP_MATH_REG_INT                 = Opcode(0x20) // | MathType
	OP_MEM_HANDLE_OFF_REG           = Opcode(0x30) // | OP_LOAD | DataType
	OP_MEMORY_OFF_REG               = Opcode(0x40) // | OP_LOAD | DataType
	OP_BREAKPOINT                   = Opcode(0x50)
	OP_BREAKPOINT_MARKED            = Opcode(0x51)
	OP_MATH_CONST_INT               = Opcode(0xa0) // | MathType
	OP_MEM_HANDLE_OFF_ICONST        = Opcode(0xb0) // | OP_LOAD | DataType
	OP_MEMORY_OFF_ICONST            = Opcode(0xc0) // | OP_LOAD | DataType

	OP_CONST = Opcode(0x80) // Constant second operand flag of a family.
	OP_LOAD  = Opcode(0x08) // Load flag of the memory access families.
)

type opcodeInfo struct {
	mnemonic string
	format   []ArgumentFormat
}

var (
	formatCompare      = []ArgumentFormat{FORMAT_VUREG, FORMAT_VUREG, FORMAT_VJUMP}
	formatCompareConst = []ArgumentFormat{FORMAT_VUREG, FORMAT_INT32, FORMAT_VJUMP}
	formatMath         = []ArgumentFormat{FORMAT_VUREG, FORMAT_VUREG, FORMAT_VUREG}
	formatMathConst    = []ArgumentFormat{FORMAT_VUREG, FORMAT_INT32, FORMAT_VUREG}
	formatHandle       = []ArgumentFormat{FORMAT_VUREG, FORMAT_VUREG, FORMAT_VUREG}
	formatHandleConst  = []ArgumentFormat{FORMAT_VUREG, FORMAT_VUREG, FORMAT_INT32}
	formatMemory       = []ArgumentFormat{FORMAT_VUREG, FORMAT_VUREG, FORMAT_VUREG, FORMAT_VUREG}
	formatMemoryConst  = []ArgumentFormat{FORMAT_VUREG, FORMAT_VUREG, FORMAT_VUREG, FORMAT_INT32}
)

// opcodeTable describes every valid opcode. Unused entries are invalid.
var opcodeTable [256]opcodeInfo

func init() {
	single := map[Opcode]opcodeInfo{
		OP_COPY:                         {"copy", []ArgumentFormat{FORMAT_VUREG, FORMAT_VUREG}},
		OP_LOAD_POOL:                    {"load.pool", []ArgumentFormat{FORMAT_VPOOL, FORMAT_VUREG}},
		OP_INVOKE:                       {"invoke", []ArgumentFormat{FORMAT_VUREG, FORMAT_REGLIST}},
		OP_INVOKE_POINTER_AND_POOL:      {"invoke.pp", []ArgumentFormat{FORMAT_VUREG, FORMAT_VUREG, FORMAT_REGLIST}},
		OP_RETURN:                       {"return", nil},
		OP_SYSTEM_CALL:                  {"syscall", []ArgumentFormat{FORMAT_VUREG, FORMAT_REGLIST}},
		OP_MEM_HANDLE_COUNT_UP:          {"count.up", []ArgumentFormat{FORMAT_VUREG}},
		OP_MEM_HANDLE_COUNT_DOWN:        {"count.down", []ArgumentFormat{FORMAT_VUREG, FORMAT_VUREG}},
		OP_ATOMIC_COMPARE_GET_AND_SET:   {"atomic.cgs", []ArgumentFormat{FORMAT_VUREG, FORMAT_VUREG, FORMAT_VUREG, FORMAT_VUREG, FORMAT_VUINT}},
		OP_ATOMIC_INT_DECREMENT_AND_GET: {"atomic.dec", []ArgumentFormat{FORMAT_VUREG, FORMAT_VUREG, FORMAT_VUINT}},
		OP_ATOMIC_INT_INCREMENT:         {"atomic.inc", []ArgumentFormat{FORMAT_VUREG, FORMAT_VUINT}},
		OP_DEBUG_ENTRY:                  {"debug.entry", []ArgumentFormat{FORMAT_VPOOL, FORMAT_VPOOL, FORMAT_VPOOL, FORMAT_VPOOL}},
		OP_DEBUG_EXIT:                   {"debug.exit", nil},
		OP_DEBUG_POINT:                  {"debug.point", []ArgumentFormat{FORMAT_VUINT, FORMAT_VUINT, FORMAT_VUINT}},
		OP_PING:                         {"ping", []ArgumentFormat{FORMAT_VUINT, FORMAT_VPOOL}},
		OP_BREAKPOINT:                   {"breakpoint", nil},
		OP_BREAKPOINT_MARKED:            {"breakpoint.marked", []ArgumentFormat{FORMAT_VUINT, FORMAT_VPOOL}},
	}
	for op, info := range single {
		opcodeTable[op] = info
	}

	for ct := range CompareType(8) {
		opcodeTable[OP_IF_ICMP|Opcode(ct)] = opcodeInfo{"if." + ct.String(), formatCompare}
		opcodeTable[OP_IF_ICMP_CONST|Opcode(ct)] = opcodeInfo{"ifc." + ct.String(), formatCompareConst}
	}

	for mt := range MathType(16) {
		opcodeTable[OP_MATH_REG_INT|Opcode(mt)] = opcodeInfo{"math." + mt.String(), formatMath}
		opcodeTable[OP_MATH_CONST_INT|Opcode(mt)] = opcodeInfo{"mathc." + mt.String(), formatMathConst}
	}

	for dt := range DataType(8) {
		for _, load := range []Opcode{0, OP_LOAD} {
			dir := "store."
			if load != 0 {
				dir = "load."
			}
			op := load | Opcode(dt)
			opcodeTable[OP_MEM_HANDLE_OFF_REG|op] = opcodeInfo{"mh." + dir + dt.String(), formatHandle}
			opcodeTable[OP_MEM_HANDLE_OFF_ICONST|op] = opcodeInfo{"mhc." + dir + dt.String(), formatHandleConst}
			opcodeTable[OP_MEMORY_OFF_REG|op] = opcodeInfo{"mem." + dir + dt.String(), formatMemory}
			opcodeTable[OP_MEMORY_OFF_ICONST|op] = opcodeInfo{"memc." + dir + dt.String(), formatMemoryConst}
		}
	}
}

// Valid returns true if the opcode is a known instruction.
func (op Opcode) Valid() bool {
	return len(opcodeTable[op].mnemonic) != 0
}

// Encoding returns the base opcode of the family the opcode belongs to,
// or the opcode itself.
func (op Opcode) Encoding() Opcode {
	switch op & 0xf0 {
	case OP_IF_ICMP:
		return op & 0xf8
	case OP_MATH_REG_INT, OP_MATH_CONST_INT,
		OP_MEM_HANDLE_OFF_REG, OP_MEM_HANDLE_OFF_ICONST,
		OP_MEMORY_OFF_REG, OP_MEMORY_OFF_ICONST:
		return op & 0xf0
	}
	return op
}

// Format returns the argument formats of the opcode.
func (op Opcode) Format() []ArgumentFormat {
	return opcodeTable[op].format
}

// CompareType of the compare-and-branch families.
func (op Opcode) CompareType() CompareType {
	return CompareType(op & 0x07)
}

// MathType of the math families.
func (op Opcode) MathType() MathType {
	return MathType(op & 0x0f)
}

// DataType of the memory access families.
func (op Opcode) DataType() DataType {
	return DataType(op & 0x07)
}

// IsLoad returns true for the load variants of the memory access families.
func (op Opcode) IsLoad() bool {
	return (op & OP_LOAD) != 0
}

// IsConst returns true if the second operand of a family is an immediate.
func (op Opcode) IsConst() bool {
	return (op & OP_CONST) != 0
}

// String returns the mnemonic of the opcode.
func (op Opcode) String() string {
	if !op.Valid() {
		return fmt.Sprintf("op(0x%02x)", uint8(op))
	}
	return opcodeTable[op].mnemonic
}

// Lookup finds the opcode of a mnemonic.
func Lookup(mnemonic string) (op Opcode, ok bool) {
	op, ok = mnemonicMap[mnemonic]
	return
}

var mnemonicMap map[string]Opcode

func init() {
	mnemonicMap = make(map[string]Opcode, 256)
	for n := range 256 {
		op := Opcode(n)
		if op.Valid() {
			mnemonicMap[op.String()] = op
		}
	}
}
