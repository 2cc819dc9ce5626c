package deviceinfo

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// PassKind distinguishes a full resolution from a refresh of dynamic
// properties.
type PassKind string

// Pass kinds.
const (
	PassFull    PassKind = "full"
	PassRefresh PassKind = "refresh"
)

// ProbeStatus classifies how a probe ended.
type ProbeStatus string

// Probe statuses.
const (
	StatusOK          ProbeStatus = "ok"
	StatusUnsupported ProbeStatus = "unsupported"
	StatusDenied      ProbeStatus = "denied"
	StatusFailed      ProbeStatus = "failed"
	StatusTimedOut    ProbeStatus = "timed_out"
	StatusSkipped     ProbeStatus = "skipped"
)

// ProbeResult is one probe's completion record.
type ProbeResult struct {
	Probe    string        `json:"probe"`
	Status   ProbeStatus   `json:"status"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration_ns"`
}

// PassReport summarises a finished pass.
type PassReport struct {
	ID          string        `json:"id"`
	Kind        PassKind      `json:"kind"`
	StartedAt   time.Time     `json:"started_at"`
	CompletedAt time.Time     `json:"completed_at"`
	Expected    int           `json:"expected"`
	Results     []ProbeResult `json:"results"`
}

// Duration returns how long the pass took.
func (r PassReport) Duration() time.Duration {
	return r.CompletedAt.Sub(r.StartedAt)
}

// Count returns how many results ended with status.
func (r PassReport) Count(status ProbeStatus) int {
	n := 0
	for _, res := range r.Results {
		if res.Status == status {
			n++
		}
	}
	return n
}

// EventKind is a readiness transition.
type EventKind string

// Readiness events.
const (
	EventBecameNotReady EventKind = "became_not_ready"
	EventBecameReady    EventKind = "became_ready"
)

// Event is delivered to Coordinator subscribers. For EventBecameNotReady
// Pass describes the pass that just started and has no CompletedAt.
type Event struct {
	Kind EventKind
	Pass PassReport
}

// Pass is one resolution pass. It completes once Expected probe results
// have been reported.
type Pass struct {
	ID        string
	Kind      PassKind
	StartedAt time.Time
	Expected  int

	coord     *Coordinator
	completed atomic.Int64
	done      chan struct{}

	mu      sync.Mutex
	results []ProbeResult
	report  PassReport
}

// Done is closed when the pass completes.
func (p *Pass) Done() <-chan struct{} {
	return p.done
}

// Wait blocks until the pass completes or ctx is done.
func (p *Pass) Wait(ctx context.Context) (PassReport, error) {
	select {
	case <-p.done:
		return p.Report(), nil
	case <-ctx.Done():
		return PassReport{}, ctx.Err()
	}
}

// Report returns the pass report. Before completion it has no
// CompletedAt and only the results reported so far.
func (p *Pass) Report() PassReport {
	p.mu.Lock()
	defer p.mu.Unlock()
	select {
	case <-p.done:
		return p.report
	default:
	}
	return PassReport{
		ID:        p.ID,
		Kind:      p.Kind,
		StartedAt: p.StartedAt,
		Expected:  p.Expected,
		Results:   append([]ProbeResult(nil), p.results...),
	}
}

// Completed returns how many results have been reported.
func (p *Pass) Completed() int {
	return int(p.completed.Load())
}

// Completer returns a one-shot completion handle for probe. Calls after
// the first are ignored.
func (p *Pass) Completer(probe string) func(ProbeResult) {
	var once sync.Once
	return func(res ProbeResult) {
		once.Do(func() {
			if res.Probe == "" {
				res.Probe = probe
			}
			p.ReportCompletion(res)
		})
	}
}

// ReportCompletion records one result. Results beyond Expected are dropped.
func (p *Pass) ReportCompletion(res ProbeResult) {
	p.mu.Lock()
	if int(p.completed.Load()) >= p.Expected {
		p.mu.Unlock()
		return
	}
	p.results = append(p.results, res)
	n := p.completed.Add(1)
	p.mu.Unlock()

	if int(n) == p.Expected {
		p.coord.finish(p)
	}
}

// Coordinator tracks readiness across passes. At most one pass is in
// flight at a time.
type Coordinator struct {
	dispatcher Dispatcher
	logger     Logger

	ready atomic.Bool

	mu       sync.Mutex
	inFlight *Pass
	last     *PassReport

	subMu  sync.Mutex
	subs   map[int]func(Event)
	nextID int

	// emitMu orders readiness events so a queued BecameReady cannot
	// follow the BecameNotReady of a later pass.
	emitMu sync.Mutex
}

// NewCoordinator creates a coordinator that delivers BecameReady through d.
// d may be nil, in which case ready notifications are dropped.
func NewCoordinator(d Dispatcher) *Coordinator {
	return &Coordinator{
		dispatcher: d,
		logger:     noopLogger{},
		subs:       make(map[int]func(Event)),
	}
}

// SetLogger sets the logger for the coordinator.
func (c *Coordinator) SetLogger(logger Logger) {
	c.logger = logger
}

// IsReady reports whether the last pass completed and no pass is running.
func (c *Coordinator) IsReady() bool {
	return c.ready.Load()
}

// InFlight returns the running pass, or nil.
func (c *Coordinator) InFlight() *Pass {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inFlight
}

// LastReport returns the report of the most recent completed pass.
func (c *Coordinator) LastReport() (PassReport, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.last == nil {
		return PassReport{}, false
	}
	return *c.last, true
}

// Subscribe registers fn for readiness events. BecameNotReady is
// delivered on the goroutine calling BeginPass; BecameReady on the
// dispatcher goroutine. A BecameReady whose pass was superseded before
// delivery is dropped. fn must not start a pass itself.
func (c *Coordinator) Subscribe(fn func(Event)) (unsubscribe func()) {
	c.subMu.Lock()
	id := c.nextID
	c.nextID++
	c.subs[id] = fn
	c.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.subMu.Lock()
			delete(c.subs, id)
			c.subMu.Unlock()
		})
	}
}

// BeginPass starts a pass expecting the given number of completions.
// While another pass is running it returns that pass with
// ErrPassInProgress. With expected == 0 the pass completes before
// BeginPass returns.
func (c *Coordinator) BeginPass(kind PassKind, expected int) (*Pass, error) {
	if expected < 0 {
		expected = 0
	}

	c.mu.Lock()
	if c.inFlight != nil {
		p := c.inFlight
		c.mu.Unlock()
		return p, ErrPassInProgress
	}
	p := &Pass{
		ID:        uuid.NewString(),
		Kind:      kind,
		StartedAt: time.Now(),
		Expected:  expected,
		coord:     c,
		done:      make(chan struct{}),
	}
	c.inFlight = p
	wasReady := c.ready.Swap(false)
	c.mu.Unlock()

	c.logger.Debug("resolution pass started", "pass_id", p.ID, "kind", kind, "expected", expected)

	if wasReady {
		c.emitMu.Lock()
		c.emit(Event{Kind: EventBecameNotReady, Pass: p.Report()})
		c.emitMu.Unlock()
	}
	if expected == 0 {
		c.finish(p)
	}
	return p, nil
}

func (c *Coordinator) finish(p *Pass) {
	c.mu.Lock()
	if c.inFlight != p {
		c.mu.Unlock()
		return
	}
	p.mu.Lock()
	p.report = PassReport{
		ID:          p.ID,
		Kind:        p.Kind,
		StartedAt:   p.StartedAt,
		CompletedAt: time.Now(),
		Expected:    p.Expected,
		Results:     append([]ProbeResult(nil), p.results...),
	}
	report := p.report
	p.mu.Unlock()

	c.inFlight = nil
	c.last = &report
	c.ready.Store(true)
	c.mu.Unlock()

	// Waiters observe readiness as soon as Done is closed.
	close(p.done)

	c.logger.Debug("resolution pass completed",
		"pass_id", report.ID,
		"kind", report.Kind,
		"duration", report.Duration(),
	)

	ev := Event{Kind: EventBecameReady, Pass: report}
	if c.dispatcher == nil {
		c.logger.Debug("ready notification dropped", "pass_id", report.ID, "reason", "no dispatcher")
		return
	}
	if err := c.dispatcher.Post(func() { c.emitReady(ev) }); err != nil {
		c.logger.Debug("ready notification dropped", "pass_id", report.ID, "error", err)
	}
}

// emitReady delivers ev unless a later pass has started since it was
// queued.
func (c *Coordinator) emitReady(ev Event) {
	c.emitMu.Lock()
	defer c.emitMu.Unlock()

	c.mu.Lock()
	stale := c.inFlight != nil || c.last == nil || c.last.ID != ev.Pass.ID
	c.mu.Unlock()
	if stale {
		c.logger.Debug("ready notification dropped", "pass_id", ev.Pass.ID, "reason", "superseded")
		return
	}
	c.emit(ev)
}

func (c *Coordinator) emit(ev Event) {
	c.subMu.Lock()
	fns := make([]func(Event), 0, len(c.subs))
	for _, fn := range c.subs {
		fns = append(fns, fn)
	}
	c.subMu.Unlock()

	for _, fn := range fns {
		c.deliver(fn, ev)
	}
}

func (c *Coordinator) deliver(fn func(Event), ev Event) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("readiness subscriber panicked", "event", ev.Kind, "panic", r)
		}
	}()
	fn(ev)
}
