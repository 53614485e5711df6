// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package cpu

import (
	"io"
	"sync"
	"sync/atomic"

	"github.com/ezrec/nativecpu/handle"
	"github.com/ezrec/nativecpu/memory"
)

// State is the machine state shared by every Cpu of a machine.
type State struct {
	Memory  memory.Memory // Shared memory.
	Handles *handle.Table // Shared memory handles.

	// Atomic serializes the atomic instructions of every Cpu.
	Atomic sync.Mutex

	Stdin  io.Reader // Pipe descriptor 0.
	Stdout io.Writer // Pipe descriptor 1.
	Stderr io.Writer // Pipe descriptor 2.

	pipeMutex      sync.Mutex
	propertyMutex  sync.Mutex
	properties     [NUM_PROPERTIES]int32
	supervisorOkay atomic.Bool
}

// NewState creates the shared state of a machine over mem.
func NewState(mem memory.Memory, arrayBase uint32) (state *State) {
	state = &State{
		Memory:  mem,
		Handles: handle.NewTable(arrayBase),
		Stdin:   eofReader{},
		Stdout:  io.Discard,
		Stderr:  io.Discard,
	}

	return
}

type eofReader struct{}

func (eofReader) Read([]byte) (int, error) {
	return 0, io.EOF
}

// Property returns a supervisor property.
func (state *State) Property(index int) (value int32, ok bool) {
	if index < 0 || index >= NUM_PROPERTIES {
		return
	}

	state.propertyMutex.Lock()
	defer state.propertyMutex.Unlock()

	value = state.properties[index]
	ok = true
	return
}

// SetProperty sets a supervisor property.
func (state *State) SetProperty(index int, value int32) (ok bool) {
	if index < 0 || index >= NUM_PROPERTIES {
		return
	}

	state.propertyMutex.Lock()
	defer state.propertyMutex.Unlock()

	state.properties[index] = value
	ok = true
	return
}

// SupervisorOkay returns true once the supervisor has flagged a good boot.
func (state *State) SupervisorOkay() bool {
	return state.supervisorOkay.Load()
}

// writePipe writes a byte to a standard output pipe descriptor.
func (state *State) writePipe(pd int32, value byte) (err error) {
	var w io.Writer
	switch pd {
	case PIPE_STDOUT:
		w = state.Stdout
	case PIPE_STDERR:
		w = state.Stderr
	default:
		err = &ErrSyscall{Code: SYSCALL_ERROR_PIPE_DESCRIPTOR_INVALID}
		return
	}

	state.pipeMutex.Lock()
	defer state.pipeMutex.Unlock()

	_, err = w.Write([]byte{value})
	if err != nil {
		err = &ErrSyscall{Code: SYSCALL_ERROR_PIPE_DESCRIPTOR_BAD_WRITE}
	}
	return
}

// readPipe reads a byte from the standard input pipe descriptor, returning
// -1 at the end of input.
func (state *State) readPipe(pd int32) (value int32, err error) {
	if pd != PIPE_STDIN {
		err = &ErrSyscall{Code: SYSCALL_ERROR_PIPE_DESCRIPTOR_INVALID}
		return
	}

	state.pipeMutex.Lock()
	defer state.pipeMutex.Unlock()

	var buff [1]byte
	_, err = io.ReadFull(state.Stdin, buff[:])
	switch err {
	case nil:
		value = int32(buff[0])
	case io.EOF:
		value = -1
		err = nil
	default:
		err = &ErrSyscall{Code: SYSCALL_ERROR_PIPE_DESCRIPTOR_BAD_READ}
	}
	return
}
