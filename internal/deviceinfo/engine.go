package deviceinfo

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultProbeTimeout bounds a single probe when Options.ProbeTimeout is unset.
const DefaultProbeTimeout = 10 * time.Second

// closeGrace bounds how long Close waits for probe bodies that have not
// yet returned after cancellation.
const closeGrace = 2 * time.Second

// State is the engine lifecycle state.
type State string

// Engine states.
const (
	StateUninitialized State = "uninitialized"
	StateResolving     State = "resolving"
	StateReady         State = "ready"
)

// Options configures an Engine.
type Options struct {
	// Platform is required.
	Platform Platform

	// Dispatcher runs AsyncUI probes and delivers ready events. Optional;
	// without it AsyncUI probes are skipped and ready events are dropped.
	Dispatcher Dispatcher

	// Probes overrides the probes wired from Platform's capabilities.
	Probes *ProbeSet

	// ProbeTimeout bounds each probe. Zero means DefaultProbeTimeout and a
	// negative value disables the bound.
	ProbeTimeout time.Duration

	Logger Logger
}

// Engine runs resolution passes against a platform and owns the snapshot
// they write.
type Engine struct {
	platform   Platform
	dispatcher Dispatcher
	probes     ProbeSet
	timeout    time.Duration
	logger     Logger

	snapshot *Snapshot
	coord    *Coordinator

	ctx    context.Context
	cancel context.CancelFunc
	closed atomic.Bool
	wg     sync.WaitGroup

	// bodies tracks probe Run calls, which may outlive their runner
	// after a timeout.
	bodies     sync.WaitGroup
	running    atomic.Int64
	closeGrace time.Duration
}

// NewEngine creates an engine. No pass runs until Resolve is called.
func NewEngine(opts Options) (*Engine, error) {
	if opts.Platform == nil {
		return nil, ErrNoPlatform
	}

	probes := Wire(opts.Platform)
	if opts.Probes != nil {
		probes = *opts.Probes
	}

	timeout := opts.ProbeTimeout
	switch {
	case timeout == 0:
		timeout = DefaultProbeTimeout
	case timeout < 0:
		timeout = 0
	}

	var logger Logger = noopLogger{}
	if opts.Logger != nil {
		logger = opts.Logger
	}

	ctx, cancel := context.WithCancel(context.Background())
	e := &Engine{
		platform:   opts.Platform,
		dispatcher: opts.Dispatcher,
		probes:     probes,
		timeout:    timeout,
		logger:     logger,
		snapshot:   NewSnapshot(),
		coord:      NewCoordinator(opts.Dispatcher),
		ctx:        ctx,
		cancel:     cancel,
		closeGrace: closeGrace,
	}
	e.coord.SetLogger(logger)
	return e, nil
}

// Platform returns the platform the engine probes.
func (e *Engine) Platform() Platform {
	return e.platform
}

// Snapshot returns the engine's property store.
func (e *Engine) Snapshot() *Snapshot {
	return e.snapshot
}

// Properties returns a copy of the current properties.
func (e *Engine) Properties() Properties {
	return e.snapshot.Properties()
}

// IsReady reports whether a pass has completed and none is running.
func (e *Engine) IsReady() bool {
	return e.coord.IsReady()
}

// State returns the lifecycle state.
func (e *Engine) State() State {
	if e.coord.InFlight() != nil {
		return StateResolving
	}
	if _, ok := e.coord.LastReport(); ok {
		return StateReady
	}
	return StateUninitialized
}

// LastReport returns the most recent completed pass report.
func (e *Engine) LastReport() (PassReport, bool) {
	return e.coord.LastReport()
}

// Subscribe registers fn for readiness events.
func (e *Engine) Subscribe(fn func(Event)) (unsubscribe func()) {
	return e.coord.Subscribe(fn)
}

// Resolve starts a pass: full when no pass has completed yet, refresh
// otherwise. Sync probes finish before Resolve returns. While a pass is
// running Resolve returns it with ErrPassInProgress.
//
// ctx only gates starting the pass; probes are bound to the engine's
// lifetime and the per-probe timeout.
func (e *Engine) Resolve(ctx context.Context) (*Pass, error) {
	if e.closed.Load() {
		return nil, ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	kind := PassFull
	probes := e.probes.Full
	if _, ok := e.coord.LastReport(); ok {
		kind = PassRefresh
		probes = e.probes.Refresh
	}

	pass, err := e.coord.BeginPass(kind, len(probes))
	if err != nil {
		return pass, err
	}

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		select {
		case <-pass.Done():
			report := pass.Report()
			e.logger.Info("device properties resolved",
				"pass_id", report.ID,
				"kind", report.Kind,
				"probes", report.Expected,
				"failed", report.Count(StatusFailed),
				"timed_out", report.Count(StatusTimedOut),
				"duration", report.Duration(),
			)
		case <-e.ctx.Done():
		}
	}()

	for _, p := range probes {
		if p.Mode() == Sync {
			e.runProbe(pass, p)
		}
	}
	for _, p := range probes {
		if p.Mode() == Sync {
			continue
		}
		e.wg.Add(1)
		go func(p Probe) {
			defer e.wg.Done()
			e.runProbe(pass, p)
		}(p)
	}
	return pass, nil
}

// Refresh is Resolve under the name the facade exposes.
func (e *Engine) Refresh(ctx context.Context) (*Pass, error) {
	return e.Resolve(ctx)
}

// Close cancels running probes and waits for them to return. A probe
// that ignores its context is waited for at most closeGrace; it is then
// logged and left running with its writer revoked.
func (e *Engine) Close() error {
	if !e.closed.CompareAndSwap(false, true) {
		return nil
	}
	e.cancel()
	e.wg.Wait()

	done := make(chan struct{})
	go func() {
		e.bodies.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(e.closeGrace):
		e.logger.Warn("probes still running after close", "count", e.running.Load())
	}
	return nil
}

// runProbe runs p with recovery and a timeout, then reports its result
// to pass exactly once. On timeout the probe's writer is revoked so late
// writes are dropped.
func (e *Engine) runProbe(pass *Pass, p Probe) {
	complete := pass.Completer(p.Name())
	writer := e.snapshot.newPassWriter()
	env := &Env{
		Platform:   e.platform,
		Writer:     writer,
		Dispatcher: e.dispatcher,
		Logger:     e.logger,
		snapshot:   e.snapshot,
	}

	ctx, cancel := e.probeContext()
	defer cancel()

	start := time.Now()
	done := make(chan error, 1)
	e.bodies.Add(1)
	e.running.Add(1)
	go func() {
		defer e.bodies.Done()
		defer e.running.Add(-1)
		done <- e.invokeProbe(ctx, p, env)
	}()

	var err error
	select {
	case err = <-done:
	case <-ctx.Done():
		writer.Revoke()
		err = ctx.Err()
		if e.ctx.Err() != nil {
			err = ErrClosed
		}
	}

	res := ProbeResult{
		Probe:    p.Name(),
		Status:   classify(err),
		Duration: time.Since(start),
	}
	if err != nil {
		res.Error = err.Error()
	}

	switch res.Status {
	case StatusOK, StatusUnsupported, StatusSkipped:
		e.logger.Debug("probe finished", "pass_id", pass.ID, "probe", res.Probe, "status", res.Status)
	default:
		e.logger.Warn("probe finished", "pass_id", pass.ID, "probe", res.Probe, "status", res.Status, "error", res.Error)
	}
	complete(res)
}

func (e *Engine) probeContext() (context.Context, context.CancelFunc) {
	if e.timeout > 0 {
		return context.WithTimeout(e.ctx, e.timeout)
	}
	return context.WithCancel(e.ctx)
}

// invokeProbe runs p.Run, through the dispatcher for AsyncUI probes, and
// turns a panic into an error.
func (e *Engine) invokeProbe(ctx context.Context, p Probe, env *Env) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("probe %s panicked: %v", p.Name(), r)
		}
	}()

	if p.Mode() != AsyncUI {
		return p.Run(ctx, env)
	}
	if e.dispatcher == nil {
		return ErrDispatcherUnavailable
	}
	var runErr error
	if err := e.dispatcher.Invoke(ctx, func() { runErr = p.Run(ctx, env) }); err != nil {
		return err
	}
	return runErr
}

func classify(err error) ProbeStatus {
	switch {
	case err == nil:
		return StatusOK
	case errors.Is(err, context.DeadlineExceeded):
		return StatusTimedOut
	case errors.Is(err, ErrDispatcherUnavailable):
		return StatusSkipped
	case errors.Is(err, ErrAccessDenied):
		return StatusDenied
	case errors.Is(err, ErrUnsupported):
		return StatusUnsupported
	default:
		return StatusFailed
	}
}
