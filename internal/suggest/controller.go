package suggest

import (
	"context"
	"sync"
	"time"

	"listacerta/internal/logging"

	"k8s.io/utils/clock"
)

// State is where the controller is in its Idle -> Scheduled -> Fetching ->
// Applied cycle. StateDiscarded is only ever the outcome of a stale run; the
// controller itself never sits in it.
type State int

const (
	StateIdle State = iota
	StateScheduled
	StateFetching
	StateApplied
	StateDiscarded
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateScheduled:
		return "scheduled"
	case StateFetching:
		return "fetching"
	case StateApplied:
		return "applied"
	case StateDiscarded:
		return "discarded"
	default:
		return "unknown"
	}
}

// Snapshot is a read-only copy of what the display layer should show.
// Version grows with every published change; consumers receiving snapshots
// out of order keep the highest.
type Snapshot struct {
	Query       string
	Suggestions []Suggestion
	Loading     bool
	Generation  uint64
	State       State
	Version     uint64
}

// Stats counts pipeline runs by outcome.
type Stats struct {
	Dispatched uint64
	Applied    uint64
	Discarded  uint64
}

// Defaults for Options.
const (
	DefaultDelay          = 750 * time.Millisecond
	DefaultMinQueryLength = 3
)

// Options configures a Controller.
type Options struct {
	// Delay is the quiet period after the last edit before a fetch starts.
	Delay time.Duration
	// MinQueryLength is the shortest trimmed query, in runes, that is fetched.
	MinQueryLength int
	// Clock schedules the debounce timers. Defaults to the real clock.
	Clock clock.WithDelayedExecution
	// OnChange receives every published snapshot. It is called without the
	// controller lock held and may call back into the controller.
	OnChange func(Snapshot)
	// Context is the parent of every fetch. Values such as the usage surface
	// flow through to the gateway; cancelling it cancels in-flight runs.
	Context context.Context
}

// Controller owns the current query, generation token and visible
// suggestions. All writes go through its methods; readers get Snapshots.
type Controller struct {
	pipeline *Pipeline
	delay    time.Duration
	minLen   int
	clock    clock.WithDelayedExecution
	onChange func(Snapshot)

	ctx    context.Context
	cancel context.CancelFunc

	mu          sync.Mutex
	idle        *sync.Cond
	query       string
	pending     string // normalized query of the scheduled fetch
	generation  uint64
	timer       clock.Timer
	runCancel   context.CancelFunc
	inflight    int
	state       State
	loading     bool
	suggestions []Suggestion
	version     uint64
	closed      bool
	stats       Stats
}

// NewController creates a controller driving p.
func NewController(p *Pipeline, opts Options) *Controller {
	if opts.Delay <= 0 {
		opts.Delay = DefaultDelay
	}
	if opts.MinQueryLength <= 0 {
		opts.MinQueryLength = DefaultMinQueryLength
	}
	if opts.Clock == nil {
		opts.Clock = clock.RealClock{}
	}
	if opts.Context == nil {
		opts.Context = context.Background()
	}

	ctx, cancel := context.WithCancel(opts.Context)
	c := &Controller{
		pipeline: p,
		delay:    opts.Delay,
		minLen:   opts.MinQueryLength,
		clock:    opts.Clock,
		onChange: opts.OnChange,
		ctx:      ctx,
		cancel:   cancel,
	}
	c.idle = sync.NewCond(&c.mu)
	return c
}

// SetQuery records a new input value. Short queries clear the suggestions
// immediately; anything else (re)arms the debounce timer. Any pending timer
// or in-flight run for an older value is superseded.
func (c *Controller) SetQuery(q string) {
	c.mu.Lock()
	if c.closed || q == c.query {
		c.mu.Unlock()
		return
	}

	c.query = q
	c.generation++
	gen := c.generation
	c.stopTimerLocked()
	c.cancelRunLocked()
	// A superseded run no longer counts as loading.
	c.loading = false

	normalized := NormalizeQuery(q)
	if QueryLength(normalized) < c.minLen {
		c.pending = ""
		c.suggestions = nil
		c.state = StateIdle
		logging.SuggestDebug("gen=%d query %q below minimum, cleared", gen, normalized)
	} else {
		c.pending = normalized
		c.state = StateScheduled
		c.timer = c.clock.AfterFunc(c.delay, func() { c.fire(gen, normalized) })
		logging.SuggestDebug("gen=%d scheduled %q in %v", gen, normalized, c.delay)
	}

	snap := c.publishLocked()
	c.mu.Unlock()
	c.notify(snap)
}

// fire starts the fetch for gen if it is still the current generation.
func (c *Controller) fire(gen uint64, query string) {
	c.mu.Lock()
	if c.closed || gen != c.generation || c.state != StateScheduled {
		c.mu.Unlock()
		return
	}

	c.timer = nil
	c.pending = ""
	c.state = StateFetching
	c.loading = true
	c.suggestions = nil
	c.inflight++
	c.stats.Dispatched++

	ctx, cancel := context.WithCancel(c.ctx)
	c.runCancel = cancel
	snap := c.publishLocked()
	c.mu.Unlock()

	logging.Suggest("gen=%d fetching %q", gen, query)
	c.notify(snap)

	go func() {
		defer cancel()
		results := c.pipeline.Run(ctx, query)
		c.apply(gen, results)
	}()
}

// apply commits results for gen, or discards them if gen is stale.
func (c *Controller) apply(gen uint64, results []Suggestion) State {
	c.mu.Lock()
	c.inflight--
	if c.inflight == 0 {
		c.idle.Broadcast()
	}

	if c.closed || gen != c.generation {
		c.stats.Discarded++
		current := c.generation
		c.mu.Unlock()
		logging.SuggestDebug("gen=%d result %s (current gen=%d)", gen, StateDiscarded, current)
		return StateDiscarded
	}

	c.suggestions = results
	c.loading = false
	c.state = StateApplied
	c.runCancel = nil
	c.stats.Applied++
	snap := c.publishLocked()
	c.mu.Unlock()

	logging.Suggest("gen=%d applied %d suggestions", gen, len(results))
	c.notify(snap)
	return StateApplied
}

// Flush fires a pending debounced fetch right away and blocks until no run
// is in flight. Used by one-shot callers that do not want to wait out the
// debounce delay.
func (c *Controller) Flush() {
	c.mu.Lock()
	var fire func()
	if !c.closed && c.state == StateScheduled && c.timer != nil {
		gen, q := c.generation, c.pending
		c.stopTimerLocked()
		fire = func() { c.fire(gen, q) }
	}
	c.mu.Unlock()

	if fire != nil {
		fire()
	}
	c.Wait()
}

// Wait blocks until no pipeline run is in flight.
func (c *Controller) Wait() {
	c.mu.Lock()
	for c.inflight > 0 {
		c.idle.Wait()
	}
	c.mu.Unlock()
}

// Close tears the controller down: the pending timer is stopped, in-flight
// runs are cancelled and waited for, and no fetch is dispatched afterwards.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.stopTimerLocked()
	c.loading = false
	c.mu.Unlock()

	c.cancel()
	c.Wait()
	logging.SuggestDebug("controller closed")
}

// Snapshot returns a copy of the visible state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Stats returns run counters.
func (c *Controller) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

func (c *Controller) stopTimerLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

func (c *Controller) cancelRunLocked() {
	if c.runCancel != nil {
		c.runCancel()
		c.runCancel = nil
	}
}

func (c *Controller) publishLocked() Snapshot {
	c.version++
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() Snapshot {
	var list []Suggestion
	if c.suggestions != nil {
		list = make([]Suggestion, len(c.suggestions))
		copy(list, c.suggestions)
	}
	return Snapshot{
		Query:       c.query,
		Suggestions: list,
		Loading:     c.loading,
		Generation:  c.generation,
		State:       c.state,
		Version:     c.version,
	}
}

func (c *Controller) notify(s Snapshot) {
	if c.onChange != nil {
		c.onChange(s)
	}
}
