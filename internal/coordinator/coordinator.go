// Package coordinator turns edits of the stake key input into serialized
// background fetches and hands their outcomes to the publisher.
package coordinator

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/sourcegraph/conc/pool"

	"stakefetcher/internal/fetcher"
	"stakefetcher/internal/metrics"
	"stakefetcher/internal/publisher"
	"stakefetcher/internal/stake"
)

const defaultWorkers = 2

var log = logrus.WithField("module", "coordinator")

// task is one accepted fetch.
type task struct {
	gen    uint64
	id     string
	key    stake.Key
	ctx    context.Context
	cancel context.CancelFunc
}

// Coordinator is the refresh controller. Input edits may arrive on any
// goroutine; fetches run on a bounded worker pool and never overlap; only
// the outcome of the most recently accepted fetch reaches the view.
type Coordinator struct {
	fetcher   fetcher.Fetcher
	publisher *publisher.Publisher
	gen       publisher.Generation
	workers   int

	// fetchMu is held for a whole fetch cycle: the API does not tolerate
	// concurrent use.
	fetchMu sync.Mutex

	// pending holds at most one accepted fetch waiting for a worker.
	pending chan task

	base context.Context
	stop context.CancelFunc

	mu       sync.Mutex
	cancel   context.CancelFunc // cancels the latest accepted fetch
	phase    Phase
	phaseGen uint64
	last     Phase
	stats    Stats
}

// Option applies a configuration option to the Coordinator.
type Option func(*Coordinator)

// WithWorkers sets the size of the background worker pool.
func WithWorkers(n int) Option {
	return func(c *Coordinator) {
		if n > 0 {
			c.workers = n
		}
	}
}

// New creates a Coordinator running f and delivering to view.
func New(f fetcher.Fetcher, view publisher.View, opts ...Option) *Coordinator {
	c := &Coordinator{
		fetcher: f,
		workers: defaultWorkers,
		pending: make(chan task, 1),
		phase:   PhaseIdle,
		last:    PhaseIdle,
	}
	c.base, c.stop = context.WithCancel(context.Background())
	c.publisher = publisher.New(view, &c.gen, publisher.WithObserver(c.observe))

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Run starts the worker pool and delivers outcomes to the view on the
// calling goroutine until ctx is done. It returns once every worker has
// stopped.
func (c *Coordinator) Run(ctx context.Context) error {
	workers := pool.New().WithMaxGoroutines(c.workers)
	for i := 0; i < c.workers; i++ {
		workers.Go(func() {
			c.work(ctx)
		})
	}

	err := c.publisher.Run(ctx)

	c.stop()
	workers.Wait()
	return err
}

// OnKeyChanged is the entry point for every edit of the key input. It never
// blocks on the network.
func (c *Coordinator) OnKeyChanged(text string) {
	key := stake.Key(text)
	if !key.Complete() {
		c.clear("incomplete input")
		return
	}
	c.accept(key)
}

// Reset supersedes any fetch and clears the view.
func (c *Coordinator) Reset() {
	c.clear("reset")
}

func (c *Coordinator) clear(reason string) {
	c.mu.Lock()
	gen := c.gen.Next()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.phase = PhaseIdle
	c.phaseGen = gen
	c.stats.Cleared++
	c.mu.Unlock()

	metrics.RecordClear()
	log.WithField("generation", gen).Debugf("clearing fields: %s", reason)
	c.publisher.RequestClear(gen)
}

func (c *Coordinator) accept(key stake.Key) {
	ctx, cancel := context.WithCancel(c.base)
	t := task{
		id:     uuid.NewString(),
		key:    key,
		ctx:    ctx,
		cancel: cancel,
	}

	c.mu.Lock()
	t.gen = c.gen.Next()
	if c.cancel != nil {
		c.cancel()
	}
	c.cancel = cancel
	c.phase = PhaseFetching
	c.phaseGen = t.gen
	c.stats.Accepted++

	// Single slot: a waiting fetch is superseded by this one.
	var dropped *task
	select {
	case old := <-c.pending:
		dropped = &old
	default:
	}
	c.pending <- t
	c.mu.Unlock()

	metrics.RecordFetch(metrics.ResultAccepted)
	c.entry(t).Info("fetch accepted")

	if dropped != nil {
		dropped.cancel()
		c.settle(*dropped, PhaseSuperseded)
	}
}

func (c *Coordinator) work(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case t := <-c.pending:
			c.execute(t)
		}
	}
}

func (c *Coordinator) execute(t task) {
	defer t.cancel()

	if !c.gen.IsCurrent(t.gen) {
		c.settle(t, PhaseSuperseded)
		return
	}

	c.fetchMu.Lock()
	// Another fetch may have held the lock while this one was superseded.
	if !c.gen.IsCurrent(t.gen) {
		c.fetchMu.Unlock()
		c.settle(t, PhaseSuperseded)
		return
	}

	start := time.Now()
	outcome := c.fetcher.Fetch(t.ctx, t.key)
	elapsed := time.Since(start)
	c.fetchMu.Unlock()

	metrics.ObserveFetchDuration(elapsed.Seconds())
	c.entry(t).WithField("elapsed", elapsed).Debug("fetch finished")

	if !c.publisher.Publish(t.gen, outcome) {
		c.settle(t, PhaseSuperseded)
	}
}

// observe settles fetches once the publisher has delivered or dropped them.
func (c *Coordinator) observe(ev publisher.Event, delivered bool) {
	if ev.Kind == publisher.EventClear {
		return
	}

	t := task{gen: ev.Generation, key: ev.Outcome.Key}
	switch {
	case !delivered:
		c.settle(t, PhaseSuperseded)
	case ev.Kind == publisher.EventFailure:
		metrics.RecordFailure(string(ev.Outcome.Kind()))
		c.settle(t, PhaseFailed)
	default:
		c.settle(t, PhasePublished)
	}
}

// settle records the terminal phase of a fetch. The latest accepted fetch
// goes back to idle.
func (c *Coordinator) settle(t task, result Phase) {
	c.mu.Lock()
	switch result {
	case PhasePublished:
		c.stats.Published++
	case PhaseFailed:
		c.stats.Failed++
	case PhaseSuperseded:
		c.stats.Superseded++
	}
	if t.gen == c.phaseGen && c.phase == PhaseFetching {
		c.phase = PhaseIdle
		c.last = result
	}
	c.mu.Unlock()

	metrics.RecordFetch(result.String())
	c.entry(t).Debugf("fetch %s", result)
}

func (c *Coordinator) entry(t task) *logrus.Entry {
	fields := logrus.Fields{
		"stake_key":  t.key,
		"generation": t.gen,
	}
	if t.id != "" {
		fields["fetch_id"] = t.id
	}
	return log.WithFields(fields)
}

// State returns the phase of the latest accepted fetch and the result of
// the last one that completed.
func (c *Coordinator) State() (current Phase, last Phase) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase, c.last
}

// Stats returns lifecycle counters since New.
func (c *Coordinator) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}
