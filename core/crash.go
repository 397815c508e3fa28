// Package core holds process-wide crash handling.
package core

import (
	"fmt"
	"os"
	"runtime/debug"
	"slices"
	"sync"

	"github.com/rs/zerolog"
)

type cleanup struct {
	id uint64
	fn func()
}

var (
	mu       sync.Mutex
	cleanups []cleanup
	nextID   uint64
	logger   = zerolog.Nop()
)

// SetLogger sets where crashes are recorded in addition to stderr
func SetLogger(l zerolog.Logger) {
	mu.Lock()
	logger = l
	mu.Unlock()
}

// RegisterCleanup adds fn to run before the process exits on a crash
// Cleanups run in reverse registration order; the returned function removes fn
func RegisterCleanup(fn func()) func() {
	mu.Lock()
	defer mu.Unlock()
	nextID++
	id := nextID
	cleanups = append(cleanups, cleanup{id: id, fn: fn})
	return func() {
		mu.Lock()
		defer mu.Unlock()
		cleanups = slices.DeleteFunc(cleanups, func(c cleanup) bool { return c.id == id })
	}
}

// runCleanups drains registered cleanups, each at most once
func runCleanups() {
	mu.Lock()
	fns := cleanups
	cleanups = nil
	mu.Unlock()

	for i := len(fns) - 1; i >= 0; i-- {
		func() {
			defer func() { _ = recover() }()
			fns[i].fn()
		}()
	}
}

// HandleCrash restores the terminal, records the panic and exits
func HandleCrash(r any) {
	if r == nil {
		return
	}

	// Terminal first, so the trace is readable
	runCleanups()

	stack := debug.Stack()
	mu.Lock()
	l := logger
	mu.Unlock()
	l.Error().Interface("panic", r).Bytes("stack", stack).Msg("crash")

	os.Stdout.Sync()
	fmt.Fprintf(os.Stderr, "\r\n\x1b[31mCRASH DETECTED: %v\x1b[0m\r\n", r)
	fmt.Fprintf(os.Stderr, "Stack Trace:\r\n%s\r\n", stack)
	os.Stderr.Sync()

	os.Exit(1)
}

// Go runs a function in a new goroutine with panic recovery.
// Use this instead of the 'go' keyword so the terminal is restored on crash.
func Go(fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				HandleCrash(r)
			}
		}()
		fn()
	}()
}

// Shutdown runs registered cleanups on a normal exit
func Shutdown() {
	runCleanups()
}
