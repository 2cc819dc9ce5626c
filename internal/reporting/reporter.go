package reporting

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nerrad567/devicekit/internal/deviceinfo"
)

const (
	defaultQueueSize   = 8
	defaultSinkTimeout = 10 * time.Second
	fallbackDeviceKey  = "local"
)

// Source is the engine surface the reporter needs.
type Source interface {
	Subscribe(fn func(deviceinfo.Event)) (unsubscribe func())
	Properties() deviceinfo.Properties
	Refresh(ctx context.Context) (*deviceinfo.Pass, error)
}

// Update is what sinks receive for one completed pass.
type Update struct {
	DeviceKey  string
	Ready      bool
	Report     deviceinfo.PassReport
	Properties deviceinfo.Properties
	At         time.Time
}

// Sink consumes updates.
type Sink interface {
	Name() string
	Publish(ctx context.Context, u Update) error
}

// ReadinessSink is a Sink that also wants to know when a pass starts and
// the device stops being ready. u.Ready is false and u.Report describes
// the started pass.
type ReadinessSink interface {
	Sink
	PublishNotReady(ctx context.Context, u Update) error
}

// Logger is the logging surface used by the reporter.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Options configures a Reporter.
type Options struct {
	// DeviceKey names the device in topics and tags when the device id
	// is unavailable. Defaults to "local".
	DeviceKey string

	// SinkTimeout bounds each sink call. Defaults to 10s.
	SinkTimeout time.Duration

	// QueueSize is the number of readiness events buffered while sinks
	// run. Defaults to 8.
	QueueSize int

	Logger Logger
}

// Reporter runs sinks for every completed pass.
type Reporter struct {
	source   Source
	sinks    []Sink
	key      string
	timeout  time.Duration
	queue    chan deviceinfo.Event
	logger   Logger
	now      func() time.Time
	mu       sync.Mutex
	running  bool
	failures int
}

// New creates a reporter for source. Sinks may be empty.
func New(source Source, opts Options, sinks ...Sink) *Reporter {
	if opts.DeviceKey == "" {
		opts.DeviceKey = fallbackDeviceKey
	}
	if opts.SinkTimeout <= 0 {
		opts.SinkTimeout = defaultSinkTimeout
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = defaultQueueSize
	}
	var logger Logger = noopLogger{}
	if opts.Logger != nil {
		logger = opts.Logger
	}
	return &Reporter{
		source:  source,
		sinks:   sinks,
		key:     opts.DeviceKey,
		timeout: opts.SinkTimeout,
		queue:   make(chan deviceinfo.Event, opts.QueueSize),
		logger:  logger,
		now:     time.Now,
	}
}

// Run subscribes to readiness events and publishes each completed pass
// until ctx is cancelled. Readiness sinks also see each pass start.
// Events arrive on the dispatcher goroutine, so the subscriber only
// enqueues.
func (r *Reporter) Run(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return errors.New("reporting: reporter already running")
	}
	r.running = true
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		r.running = false
		r.mu.Unlock()
	}()

	unsubscribe := r.source.Subscribe(func(ev deviceinfo.Event) {
		select {
		case r.queue <- ev:
		default:
			r.logger.Warn("reporting queue full, dropping event", "event", ev.Kind, "pass_id", ev.Pass.ID)
		}
	})
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-r.queue:
			var err error
			switch ev.Kind {
			case deviceinfo.EventBecameReady:
				err = r.Publish(ctx, ev.Pass)
			case deviceinfo.EventBecameNotReady:
				err = r.PublishNotReady(ctx, ev.Pass)
			}
			if err != nil {
				r.logger.Warn("reporting had sink failures", "event", ev.Kind, "pass_id", ev.Pass.ID, "error", err)
			}
		}
	}
}

// Publish runs every sink for report and waits for them. The returned
// error joins every sink failure.
func (r *Reporter) Publish(ctx context.Context, report deviceinfo.PassReport) error {
	props := r.source.Properties()
	u := Update{
		DeviceKey:  r.deviceKey(props),
		Ready:      true,
		Report:     report,
		Properties: props,
		At:         r.now().UTC(),
	}
	return r.fanOut(ctx, r.sinks, u, Sink.Publish)
}

// PublishNotReady tells every ReadinessSink that the pass in report has
// started.
func (r *Reporter) PublishNotReady(ctx context.Context, report deviceinfo.PassReport) error {
	var sinks []Sink
	for _, sink := range r.sinks {
		if _, ok := sink.(ReadinessSink); ok {
			sinks = append(sinks, sink)
		}
	}
	if len(sinks) == 0 {
		return nil
	}
	props := r.source.Properties()
	u := Update{
		DeviceKey:  r.deviceKey(props),
		Report:     report,
		Properties: props,
		At:         r.now().UTC(),
	}
	return r.fanOut(ctx, sinks, u, func(s Sink, ctx context.Context, u Update) error {
		return s.(ReadinessSink).PublishNotReady(ctx, u)
	})
}

func (r *Reporter) fanOut(ctx context.Context, sinks []Sink, u Update, publish func(Sink, context.Context, Update) error) error {
	report := u.Report
	var (
		g    errgroup.Group
		mu   sync.Mutex
		errs []error
	)
	for _, sink := range sinks {
		g.Go(func() error {
			sctx, cancel := context.WithTimeout(ctx, r.timeout)
			defer cancel()

			if err := publish(sink, sctx, u); err != nil {
				err = fmt.Errorf("sink %s: %w", sink.Name(), err)
				r.logger.Warn("reporting sink failed", "sink", sink.Name(), "pass_id", report.ID, "error", err)
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
				return err
			}
			r.logger.Debug("reporting sink published", "sink", sink.Name(), "pass_id", report.ID)
			return nil
		})
	}
	if err := g.Wait(); err == nil {
		return nil
	}

	r.mu.Lock()
	r.failures += len(errs)
	r.mu.Unlock()
	return errors.Join(errs...)
}

// Failures returns the number of sink failures seen so far.
func (r *Reporter) Failures() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.failures
}

// DeviceKey returns the key used for the current properties.
func (r *Reporter) DeviceKey() string {
	return r.deviceKey(r.source.Properties())
}

func (r *Reporter) deviceKey(props deviceinfo.Properties) string {
	if props.DeviceID.Status == deviceinfo.IDResolved && props.DeviceID.Value != "" {
		return props.DeviceID.Value
	}
	return r.key
}

// RunRefresh starts a refresh pass every interval until ctx is cancelled.
// A non-positive interval disables the ticker and returns immediately.
func (r *Reporter) RunRefresh(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.TriggerRefresh(ctx, "interval")
		}
	}
}

// TriggerRefresh starts a refresh pass. An overlapping pass is not an
// error; the in-flight pass already covers the request.
func (r *Reporter) TriggerRefresh(ctx context.Context, reason string) {
	pass, err := r.source.Refresh(ctx)
	switch {
	case errors.Is(err, deviceinfo.ErrPassInProgress):
		r.logger.Debug("refresh skipped, pass in progress", "reason", reason)
	case err != nil:
		r.logger.Warn("refresh failed to start", "reason", reason, "error", err)
	default:
		r.logger.Debug("refresh started", "reason", reason, "pass_id", pass.ID)
	}
}
