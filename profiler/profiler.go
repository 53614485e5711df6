// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

// Package profiler records a call tree per virtual CPU from the frame
// entry and exit notifications of the interpreter.
package profiler

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ezrec/nativecpu/cpu"
)

// Node is a single call site in the call tree.
type Node struct {
	Class  string // Class name.
	Method string // Method name.
	Type   string // Method type.

	Calls int           // Completed calls.
	Total time.Duration // Time spent in the frame, including callees.
	Self  time.Duration // Time spent in the frame alone.

	children map[string]*Node
	order    []string
}

func (node *Node) key() string {
	return node.Class + "::" + node.Method + ":" + node.Type
}

// String returns the qualified method name.
func (node *Node) String() string {
	return node.key()
}

// Children returns the callees, in the order they were first called.
func (node *Node) Children() (children []*Node) {
	for _, key := range node.order {
		children = append(children, node.children[key])
	}
	return
}

func (node *Node) child(class, method, methodType string) *Node {
	probe := Node{Class: class, Method: method, Type: methodType}
	key := probe.key()

	next, ok := node.children[key]
	if !ok {
		if node.children == nil {
			node.children = make(map[string]*Node)
		}
		next = &Node{Class: class, Method: method, Type: methodType}
		node.children[key] = next
		node.order = append(node.order, key)
	}

	return next
}

type active struct {
	node    *Node
	entered time.Time
	callees time.Duration
}

// Thread is the call tree of a single CPU. It is not safe for concurrent
// use; each CPU has its own Thread.
type Thread struct {
	Name string // Name of the thread.

	snapshot *Snapshot
	logger   *zap.Logger
	root     Node
	stack    []active
}

var _ cpu.Profiler = (*Thread)(nil)

// Root returns the root of the call tree.
func (thread *Thread) Root() *Node {
	return &thread.root
}

// Depth returns the number of frames entered and not yet exited.
func (thread *Thread) Depth() int {
	return len(thread.stack)
}

// EnterFrame pushes a frame on the call tree.
func (thread *Thread) EnterFrame(class, method, methodType string) {
	parent := &thread.root
	if len(thread.stack) > 0 {
		parent = thread.stack[len(thread.stack)-1].node
	}

	node := parent.child(class, method, methodType)
	thread.stack = append(thread.stack, active{node: node, entered: thread.snapshot.now()})

	thread.logger.Debug("enter",
		zap.String("class", class),
		zap.String("method", method),
		zap.String("type", methodType),
		zap.Int("depth", len(thread.stack)),
	)
}

// ExitFrame pops the most recently entered frame.
func (thread *Thread) ExitFrame() (err error) {
	if len(thread.stack) == 0 {
		thread.logger.Warn("unbalanced exit")
		err = ErrUnbalanced
		return
	}

	top := thread.stack[len(thread.stack)-1]
	thread.stack = thread.stack[:len(thread.stack)-1]

	elapsed := thread.snapshot.now().Sub(top.entered)
	top.node.Calls++
	top.node.Total += elapsed
	top.node.Self += elapsed - top.callees

	if len(thread.stack) > 0 {
		thread.stack[len(thread.stack)-1].callees += elapsed
	}

	thread.logger.Debug("exit",
		zap.Stringer("frame", top.node),
		zap.Duration("elapsed", elapsed),
		zap.Int("depth", len(thread.stack)),
	)

	return
}

// Snapshot is a set of profiled threads.
type Snapshot struct {
	Now func() time.Time // Clock, time.Now if nil.

	logger  *zap.Logger
	mutex   sync.Mutex
	threads map[string]*Thread
}

// NewSnapshot creates an empty snapshot, logging frame events to logger.
// A nil logger discards the events.
func NewSnapshot(logger *zap.Logger) *Snapshot {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Snapshot{
		logger:  logger,
		threads: make(map[string]*Thread),
	}
}

func (snap *Snapshot) now() time.Time {
	if snap.Now != nil {
		return snap.Now()
	}
	return time.Now()
}

// MeasureThread returns the thread of the given name, creating it if needed.
func (snap *Snapshot) MeasureThread(name string) (thread *Thread) {
	snap.mutex.Lock()
	defer snap.mutex.Unlock()

	thread, ok := snap.threads[name]
	if ok {
		return
	}

	thread = &Thread{
		Name:     name,
		snapshot: snap,
		logger:   snap.logger.With(zap.String("thread", name)),
	}
	snap.threads[name] = thread

	return
}

// Threads returns the threads, sorted by name.
func (snap *Snapshot) Threads() (threads []*Thread) {
	snap.mutex.Lock()
	defer snap.mutex.Unlock()

	for _, name := range slices.Sorted(maps.Keys(snap.threads)) {
		threads = append(threads, snap.threads[name])
	}
	return
}

// Report writes the call tree of every thread.
func (snap *Snapshot) Report(w io.Writer) (err error) {
	var sb strings.Builder

	var walk func(node *Node, depth int)
	walk = func(node *Node, depth int) {
		for _, child := range node.Children() {
			sb.WriteString(strings.Repeat("  ", depth))
			sb.WriteString(f("%v calls=%d total=%v self=%v", child, child.Calls, child.Total, child.Self))
			sb.WriteString("\n")
			walk(child, depth+1)
		}
	}

	for _, thread := range snap.Threads() {
		fmt.Fprintf(&sb, "%v:\n", thread.Name)
		walk(thread.Root(), 1)
	}

	_, err = io.WriteString(w, sb.String())
	return
}
