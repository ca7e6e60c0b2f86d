// Package signal turns SIGINT and SIGTERM into context cancellation, so a
// command waiting on a record lock gives up cleanly when the user presses
// Ctrl+C.
package signal

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/mrz1836/issueflow/internal/errors"
)

// Shutdown cancels its context with errors.ErrInterrupted as the cause on the
// first SIGINT or SIGTERM. Later signals are ignored.
type Shutdown struct {
	ctx      context.Context //nolint:containedctx // Shutdown owns the context lifecycle
	cancel   context.CancelCauseFunc
	sigs     chan os.Signal
	done     chan struct{}
	stopOnce sync.Once
}

// Watch starts listening for termination signals.
//
//	sd := signal.Watch(ctx)
//	defer sd.Stop()
//	err := run(sd.Context())
//	if sd.Interrupted() { ... }
func Watch(parent context.Context) *Shutdown {
	ctx, cancel := context.WithCancelCause(parent)
	s := &Shutdown{
		ctx:    ctx,
		cancel: cancel,
		// Notify does not block on a full channel, so keep room for one signal.
		sigs: make(chan os.Signal, 1),
		done: make(chan struct{}),
	}

	signal.Notify(s.sigs, syscall.SIGINT, syscall.SIGTERM)
	go s.listen()

	return s
}

// Context is canceled by a signal, by Stop, or with its parent.
func (s *Shutdown) Context() context.Context {
	return s.ctx
}

// Interrupted reports whether a signal canceled the context.
func (s *Shutdown) Interrupted() bool {
	return stderrors.Is(context.Cause(s.ctx), errors.ErrInterrupted)
}

// Stop releases the signal subscription and cancels the context. It is safe
// to call more than once.
func (s *Shutdown) Stop() {
	s.stopOnce.Do(func() {
		signal.Stop(s.sigs)
		close(s.done)
		s.cancel(context.Canceled)
	})
}

func (s *Shutdown) interrupt(sig os.Signal) {
	s.cancel(fmt.Errorf("%w (%s)", errors.ErrInterrupted, sig))
}

func (s *Shutdown) listen() {
	for {
		select {
		case <-s.done:
			return
		case <-s.ctx.Done():
			return
		case sig := <-s.sigs:
			s.interrupt(sig)
		}
	}
}
