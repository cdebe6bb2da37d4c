// Package runctl holds the per-run controls shared by the pipeline phases:
// the cooperative cancellation token and the usage accumulator.
package runctl

import (
	"sync"
	"sync/atomic"
)

// Token is a cooperative cancellation flag. Phases poll it between steps; it
// never interrupts a collaborator call already in flight.
type Token struct {
	set  atomic.Bool
	once sync.Once
	done chan struct{}
	mu   sync.Mutex
}

func NewToken() *Token {
	return &Token{done: make(chan struct{})}
}

// Cancel marks the token. Safe to call any number of times from any goroutine.
func (t *Token) Cancel() {
	t.set.Store(true)
	t.once.Do(func() {
		close(t.doneChan())
	})
}

func (t *Token) Cancelled() bool {
	return t.set.Load()
}

// Done is closed on the first Cancel.
func (t *Token) Done() <-chan struct{} {
	return t.doneChan()
}

func (t *Token) doneChan() chan struct{} {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done == nil {
		t.done = make(chan struct{})
	}
	return t.done
}
