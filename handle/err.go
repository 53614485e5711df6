// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package handle

import (
	"github.com/ezrec/nativecpu/translate"
)

var f = translate.From

var (
	ErrInvalidKind   = translate.Error("invalid memory handle kind")
	ErrInvalidSize   = translate.Error("invalid memory handle size")
	ErrUnknownHandle = translate.Error("unknown memory handle")
)

// ErrHandle annotates a handle error with the handle id.
type ErrHandle struct {
	Id  int32
	Err error
}

func (err *ErrHandle) Error() string {
	return f("handle %d: %v", err.Id, err.Err)
}

func (err *ErrHandle) Unwrap() error {
	return err.Err
}
