package core

import (
	"strings"
	"testing"
)

func TestCleanupOrder(t *testing.T) {
	var order []string
	RegisterCleanup(func() { order = append(order, "screen") })
	remove := RegisterCleanup(func() { order = append(order, "removed") })
	RegisterCleanup(func() { panic("cleanup panics") })
	RegisterCleanup(func() { order = append(order, "audio") })
	remove()

	Shutdown()
	if got := strings.Join(order, ","); got != "audio,screen" {
		t.Errorf("Expected audio,screen, got %s", got)
	}

	order = nil
	Shutdown()
	if len(order) != 0 {
		t.Errorf("Cleanups ran twice: %v", order)
	}
}

func TestHandleCrashNil(t *testing.T) {
	// Must return without exiting
	HandleCrash(nil)
}

func TestGoRuns(t *testing.T) {
	done := make(chan struct{})
	Go(func() { close(done) })
	<-done
}
