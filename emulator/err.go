package emulator

import (
	"github.com/ezrec/nativecpu/translate"
)

var f = translate.From

var (
	ErrNoCpus        = translate.Error("no virtual cpus configured")
	ErrNoProgram     = translate.Error("no program loaded")
	ErrPropertyName  = translate.Error("unknown supervisor property")
	ErrProgramLength = translate.Error("program does not fit in memory")
)

// ErrConfig is a configuration failure.
type ErrConfig struct {
	Path string
	Err  error
}

func (err *ErrConfig) Error() string {
	return f("config %v: %v", err.Path, err.Err)
}

func (err *ErrConfig) Unwrap() error {
	return err.Err
}

// ErrSymbol is a label or number which could not be resolved.
type ErrSymbol string

func (err ErrSymbol) Error() string {
	return f("'%v' is neither a label nor a number", string(err))
}

// ErrRuntime indicates the location of a runtime error.
type ErrRuntime struct {
	Cpu    int
	LineNo int
	Err    error
}

func (err *ErrRuntime) Error() string {
	return f("cpu%d: line %d %v", err.Cpu, err.LineNo, err.Err)
}

func (err *ErrRuntime) Unwrap() error {
	return err.Err
}
