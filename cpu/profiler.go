package cpu

// Profiler is notified around every frame with debug metadata, and around
// every directly handled system call.
type Profiler interface {
	EnterFrame(class, method, methodType string)
	// ExitFrame may fail if the frames are unbalanced, which is ignored.
	ExitFrame() error
}
