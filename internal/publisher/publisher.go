// Package publisher hands fetch outcomes from background workers to the
// goroutine that owns the view.
package publisher

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"stakefetcher/internal/fetcher"
	"stakefetcher/internal/stake"
)

var log = logrus.WithField("module", "publisher")

// View is the presentation side. Its methods are called only from the
// goroutine running Publisher.Run and never concurrently with each other.
// Render must replace everything previously rendered.
type View interface {
	Render(snap stake.Snapshot)
	Clear()
}

// FailureView is implemented by views that want to hear about failed
// fetches. Other views only see the fields cleared.
type FailureView interface {
	Failed(key stake.Key, err error)
}

// EventKind tells what an Event asks of the view.
type EventKind int

const (
	EventSnapshot EventKind = iota
	EventFailure
	EventClear
)

func (k EventKind) String() string {
	switch k {
	case EventSnapshot:
		return "snapshot"
	case EventFailure:
		return "failure"
	case EventClear:
		return "clear"
	default:
		return "unknown"
	}
}

// Event is one unit of work for the view.
type Event struct {
	Generation uint64
	Kind       EventKind
	Outcome    fetcher.Outcome
}

// Observer is told what became of every event that entered the mailbox:
// delivered is false when the event was superseded first.
type Observer func(ev Event, delivered bool)

// Option configures a Publisher.
type Option func(*Publisher)

// WithObserver registers fn to be told about every settled event.
func WithObserver(fn Observer) Option {
	return func(p *Publisher) {
		if fn != nil {
			p.observer = fn
		}
	}
}

// Publisher is a latest-wins mailbox between workers and the view. Posting
// never blocks; an undelivered event is replaced by any newer one, since
// the newer event fully determines what the view shows.
type Publisher struct {
	view     View
	gen      *Generation
	observer Observer

	mu      sync.Mutex
	pending *Event
	notify  chan struct{}

	// viewMu serializes every call into the view.
	viewMu sync.Mutex
}

// New creates a Publisher delivering to view. Events whose generation is no
// longer gen's current one are discarded.
func New(view View, gen *Generation, opts ...Option) *Publisher {
	p := &Publisher{
		view:     view,
		gen:      gen,
		observer: func(Event, bool) {},
		notify:   make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Publish posts the outcome of the fetch stamped gen. It returns false when
// gen is already superseded; the outcome is then dropped.
func (p *Publisher) Publish(gen uint64, outcome fetcher.Outcome) bool {
	kind := EventSnapshot
	if !outcome.OK() {
		kind = EventFailure
	}
	return p.post(Event{Generation: gen, Kind: kind, Outcome: outcome})
}

// RequestClear asks the view to clear every derived field.
func (p *Publisher) RequestClear(gen uint64) bool {
	return p.post(Event{Generation: gen, Kind: EventClear})
}

func (p *Publisher) post(ev Event) bool {
	if !p.gen.IsCurrent(ev.Generation) {
		return false
	}

	p.mu.Lock()
	replaced := p.pending
	if replaced != nil && replaced.Generation > ev.Generation {
		p.mu.Unlock()
		return false
	}
	p.pending = &ev
	p.mu.Unlock()

	if replaced != nil {
		p.observer(*replaced, false)
	}

	select {
	case p.notify <- struct{}{}:
	default:
	}
	return true
}

// Run delivers posted events to the view until ctx is done. The goroutine
// calling Run is the only one that touches the view.
func (p *Publisher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-p.notify:
			p.Flush()
		}
	}
}

// Flush delivers the pending event, if any, on the calling goroutine.
func (p *Publisher) Flush() {
	p.mu.Lock()
	ev := p.pending
	p.pending = nil
	p.mu.Unlock()

	if ev == nil {
		return
	}
	p.deliver(*ev)
}

func (p *Publisher) deliver(ev Event) {
	// A newer input may have arrived after the event was posted.
	if !p.gen.IsCurrent(ev.Generation) {
		log.WithFields(logrus.Fields{
			"generation": ev.Generation,
			"kind":       ev.Kind,
		}).Debug("dropping superseded event")
		p.observer(ev, false)
		return
	}

	p.viewMu.Lock()
	switch ev.Kind {
	case EventSnapshot:
		p.view.Render(ev.Outcome.Snapshot)
	case EventClear:
		p.view.Clear()
	case EventFailure:
		log.WithFields(logrus.Fields{
			"stake_key":  ev.Outcome.Key,
			"generation": ev.Generation,
			"kind":       ev.Outcome.Kind(),
		}).Warnf("no staking information: %v", ev.Outcome.Err)
		// Whatever is on screen belongs to an older key.
		p.view.Clear()
		if fv, ok := p.view.(FailureView); ok {
			fv.Failed(ev.Outcome.Key, ev.Outcome.Err)
		}
	}
	p.viewMu.Unlock()

	p.observer(ev, true)
}
