// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package handle

import (
	"fmt"
	"iter"
	"maps"
)

// Kind identifies the storage layout of a memory handle.
type Kind int32

//go:generate go tool stringer -linecomment -type=Kind
const (
	KIND_UNDEFINED       = Kind(0)  // undefined
	KIND_PLAIN           = Kind(1)  // plain
	KIND_OBJECT          = Kind(2)  // object
	KIND_BYTE_ARRAY      = Kind(3)  // byte[]
	KIND_BOOLEAN_ARRAY   = Kind(4)  // boolean[]
	KIND_SHORT_ARRAY     = Kind(5)  // short[]
	KIND_CHARACTER_ARRAY = Kind(6)  // char[]
	KIND_INTEGER_ARRAY   = Kind(7)  // int[]
	KIND_FLOAT_ARRAY     = Kind(8)  // float[]
	KIND_OBJECT_ARRAY    = Kind(9)  // Object[]
	KIND_LONG_ARRAY      = Kind(10) // long[]
	KIND_DOUBLE_ARRAY    = Kind(11) // double[]
	NUM_KINDS            = 12
)

// Valid reports if the kind may be allocated.
func (kind Kind) Valid() bool {
	return kind > KIND_UNDEFINED && kind < NUM_KINDS
}

// IsArray reports if the kind has a special cell region.
func (kind Kind) IsArray() bool {
	return kind >= KIND_BYTE_ARRAY && kind < NUM_KINDS
}

// CellSize is the width in bytes of one array cell, or 0 for non-arrays.
func (kind Kind) CellSize() int {
	switch kind {
	case KIND_BYTE_ARRAY, KIND_BOOLEAN_ARRAY:
		return 1
	case KIND_SHORT_ARRAY, KIND_CHARACTER_ARRAY:
		return 2
	case KIND_INTEGER_ARRAY, KIND_FLOAT_ARRAY, KIND_OBJECT_ARRAY:
		return 4
	case KIND_LONG_ARRAY, KIND_DOUBLE_ARRAY:
		return 8
	}
	return 0
}

var _handle_defines = map[string]string{
	"KIND_PLAIN":           fmt.Sprintf("%v", int32(KIND_PLAIN)),
	"KIND_OBJECT":          fmt.Sprintf("%v", int32(KIND_OBJECT)),
	"KIND_BYTE_ARRAY":      fmt.Sprintf("%v", int32(KIND_BYTE_ARRAY)),
	"KIND_BOOLEAN_ARRAY":   fmt.Sprintf("%v", int32(KIND_BOOLEAN_ARRAY)),
	"KIND_SHORT_ARRAY":     fmt.Sprintf("%v", int32(KIND_SHORT_ARRAY)),
	"KIND_CHARACTER_ARRAY": fmt.Sprintf("%v", int32(KIND_CHARACTER_ARRAY)),
	"KIND_INTEGER_ARRAY":   fmt.Sprintf("%v", int32(KIND_INTEGER_ARRAY)),
	"KIND_FLOAT_ARRAY":     fmt.Sprintf("%v", int32(KIND_FLOAT_ARRAY)),
	"KIND_OBJECT_ARRAY":    fmt.Sprintf("%v", int32(KIND_OBJECT_ARRAY)),
	"KIND_LONG_ARRAY":      fmt.Sprintf("%v", int32(KIND_LONG_ARRAY)),
	"KIND_DOUBLE_ARRAY":    fmt.Sprintf("%v", int32(KIND_DOUBLE_ARRAY)),
}

// Defines returns the assembler equates of the handle kinds.
func Defines() iter.Seq2[string, string] {
	return maps.All(_handle_defines)
}
