package usecase

import (
	"sync"

	"github.com/forPelevin/clipper/internal/progress"
	"github.com/forPelevin/clipper/internal/runctl"
	"github.com/forPelevin/clipper/internal/types"
)

type Phase string

const (
	PhaseDiscovery  Phase = "discovery"
	PhaseProduction Phase = "production"
)

// Event is one progress notification. Steps is set for discovery; Clip is
// set for production statuses of the form "Clip i/n: title (p%)".
type Event struct {
	Phase     Phase
	Status    string
	Steps     []types.ProgressStep
	Clip      *progress.ClipProgress
	Usage     types.UsageMetrics
	Cancelled bool
	Err       error
}

// Observer receives events of a phase in emission order, on a goroutine
// owned by the phase. OnEvent must not block for long.
type Observer interface {
	OnEvent(Event)
}

type ObserverFunc func(Event)

func (f ObserverFunc) OnEvent(e Event) { f(e) }

// dispatcher delivers events to one observer through a channel so that
// collaborator callbacks never run observer code themselves.
type dispatcher struct {
	ch   chan Event
	done chan struct{}
}

func newDispatcher(obs Observer) *dispatcher {
	d := &dispatcher{ch: make(chan Event, 64), done: make(chan struct{})}
	go func() {
		defer close(d.done)
		for e := range d.ch {
			if obs != nil {
				obs.OnEvent(e)
			}
		}
	}()
	return d
}

func (d *dispatcher) emit(e Event) { d.ch <- e }

// close waits until every queued event was delivered.
func (d *dispatcher) close() {
	close(d.ch)
	<-d.done
}

// reporter serializes progress and usage callbacks of one phase invocation.
type reporter struct {
	mu      sync.Mutex
	phase   Phase
	tracker *progress.Tracker
	usage   *runctl.Usage
	d       *dispatcher
	closed  bool
}

func newReporter(phase Phase, tracker *progress.Tracker, usage *runctl.Usage, obs Observer) *reporter {
	return &reporter{phase: phase, tracker: tracker, usage: usage, d: newDispatcher(obs)}
}

// progress is a ports.ProgressFunc.
func (r *reporter) progress(status string, fraction float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	e := Event{Phase: r.phase, Status: status, Usage: r.usage.Snapshot()}
	if r.tracker != nil {
		e.Steps = r.tracker.Update(status, fraction)
	}
	if cp, ok := progress.ParseClipStatus(status); ok {
		e.Clip = &cp
	}
	r.d.emit(e)
}

// record is a ports.UsageFunc.
func (r *reporter) record(kind runctl.Kind, amount float64) {
	r.usage.Record(kind, amount)
}

func (r *reporter) cancelled() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	e := Event{Phase: r.phase, Status: "Cancelled", Usage: r.usage.Snapshot(), Cancelled: true}
	if r.tracker != nil {
		e.Steps = r.tracker.Cancel()
	}
	r.d.emit(e)
}

func (r *reporter) failed(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	e := Event{Phase: r.phase, Status: "Error: " + err.Error(), Usage: r.usage.Snapshot(), Err: err}
	if r.tracker != nil {
		e.Steps = r.tracker.Steps()
	}
	r.d.emit(e)
}

// close drains pending events. Callbacks arriving afterwards are dropped.
func (r *reporter) close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	r.mu.Unlock()
	r.d.close()
}
