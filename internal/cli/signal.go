package cli

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// SignalContext is cancelled by the first SIGINT or SIGTERM and remembers
// which signal it was. A second signal calls ForceExit, so a batch stuck on a
// slow store can still be stopped.
type SignalContext struct {
	context.Context
	Cancel func()

	// ForceExit runs on the second signal. It defaults to os.Exit(130).
	ForceExit func()

	mu     sync.Mutex
	sigVal os.Signal
}

// NewSignalContext starts listening for termination signals until the
// returned context is done.
func NewSignalContext(parent context.Context) *SignalContext {
	ctx, cancel := context.WithCancel(parent)
	sc := &SignalContext{
		Context:   ctx,
		Cancel:    cancel,
		ForceExit: func() { os.Exit(130) },
	}

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go sc.watch(sigCh)
	return sc
}

func (sc *SignalContext) watch(sigCh chan os.Signal) {
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		sc.record(sig)
	case <-sc.Done():
		return
	}

	// Cancelled by a signal: shutdown is in progress, wait for a second one.
	if sig, ok := <-sigCh; ok && sig != nil {
		sc.mu.Lock()
		force := sc.ForceExit
		sc.mu.Unlock()
		force()
	}
}

func (sc *SignalContext) record(sig os.Signal) {
	sc.mu.Lock()
	sc.sigVal = sig
	sc.mu.Unlock()
	sc.Cancel()
}

// Signal returns the signal that cancelled the context, or nil.
func (sc *SignalContext) Signal() os.Signal {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.sigVal
}
