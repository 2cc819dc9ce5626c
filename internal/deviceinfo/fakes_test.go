package deviceinfo

import (
	"context"
	"sync"
)

// fakePlatform implements every Source interface with canned answers.
type fakePlatform struct {
	mu sync.Mutex

	identity    Identity
	identityErr error
	id          string
	idErr       error

	power    PowerStatus
	powerErr error

	memory    MemoryStatus
	memoryErr error

	cameras    []CameraInfo
	camerasErr error
	sessions   map[string]*fakeSession
	openErr    map[string]error
	opened     []string

	display    DisplayMetrics
	displayErr error

	sensors   map[SensorKind]bool
	sensorErr map[SensorKind]error
	panicOn   SensorKind

	storage    []string
	storageErr error

	theme    Theme
	themeErr error

	processors  int
	vibrator    bool
	orientation Orientation

	// block, when set, makes MemoryStatus wait on it.
	block chan struct{}
}

func newFakePlatform() *fakePlatform {
	return &fakePlatform{
		identity: Identity{Name: "Lumia 920 RM-820", Manufacturer: "Nokia"},
		id:       "abc123",
		power:    PowerStatus{ChargePercent: 80},
		memory:   MemoryStatus{CurrentUsage: 1 << 20, DeviceTotal: 2 << 30},
		cameras: []CameraInfo{
			{ID: "0", Facing: FacingBack},
			{ID: "1", Facing: FacingFront},
		},
		sessions: map[string]*fakeSession{
			"0": {flash: true, photo: []Size{{640, 480}, {1920, 1080}, {640, 480}, {1280, 720}}},
			"1": {photo: []Size{{640, 480}}},
		},
		openErr: map[string]error{},
		display: DisplayMetrics{Width: 768, Height: 1280, RawDPIX: 332, RawDPIY: 332},
		sensors: map[SensorKind]bool{
			SensorAccelerometer: true,
			SensorCompass:       true,
		},
		sensorErr:   map[SensorKind]error{},
		storage:     []string{"/media/sd"},
		theme:       Theme{Accent: Color{A: 255, R: 0x1B, G: 0xA1, B: 0xE2}, AppTheme: ThemeDark},
		processors:  4,
		vibrator:    true,
		orientation: OrientationPortrait,
	}
}

func (f *fakePlatform) Name() string { return "fake" }

func (f *fakePlatform) DeviceInfo(context.Context) (Identity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.identity, f.identityErr
}

func (f *fakePlatform) DeviceID(context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.id, f.idErr
}

func (f *fakePlatform) PowerStatus(context.Context) (PowerStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.power, f.powerErr
}

func (f *fakePlatform) MemoryStatus(ctx context.Context) (MemoryStatus, error) {
	f.mu.Lock()
	block := f.block
	m, err := f.memory, f.memoryErr
	f.mu.Unlock()
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return MemoryStatus{}, ctx.Err()
		}
	}
	return m, err
}

func (f *fakePlatform) Cameras(context.Context) ([]CameraInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cameras, f.camerasErr
}

func (f *fakePlatform) OpenCamera(_ context.Context, id string) (CameraSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.openErr[id]; err != nil {
		return nil, err
	}
	s, ok := f.sessions[id]
	if !ok {
		return nil, ErrUnsupported
	}
	f.opened = append(f.opened, id)
	return s, nil
}

func (f *fakePlatform) DisplayMetrics(context.Context) (DisplayMetrics, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.display, f.displayErr
}

func (f *fakePlatform) HasSensor(_ context.Context, kind SensorKind) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if kind == f.panicOn && kind != "" {
		panic("sensor driver crashed")
	}
	return f.sensors[kind], f.sensorErr[kind]
}

func (f *fakePlatform) RemovableStorage(context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.storage, f.storageErr
}

func (f *fakePlatform) Theme(context.Context) (Theme, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.theme, f.themeErr
}

func (f *fakePlatform) ProcessorCount(context.Context) (int, error) {
	return f.processors, nil
}

func (f *fakePlatform) HasVibrator(context.Context) (bool, error) {
	return f.vibrator, nil
}

func (f *fakePlatform) Orientation(context.Context) (Orientation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.orientation, nil
}

type fakeSession struct {
	mu        sync.Mutex
	flash     bool
	autoFocus bool
	photo     []Size
	video     []Size
	closed    int
}

func (s *fakeSession) HasFlash() bool     { return s.flash }
func (s *fakeSession) HasAutoFocus() bool { return s.autoFocus }

func (s *fakeSession) Resolutions(kind StreamKind) ([]Size, error) {
	if kind == StreamVideo {
		return s.video, nil
	}
	return s.photo, nil
}

func (s *fakeSession) Close() error {
	s.mu.Lock()
	s.closed++
	s.mu.Unlock()
	return nil
}

// barePlatform implements no Source interfaces.
type barePlatform struct{}

func (barePlatform) Name() string { return "bare" }

// syncDispatcher runs work inline on the calling goroutine.
type syncDispatcher struct {
	mu    sync.Mutex
	posts int
}

func (d *syncDispatcher) Invoke(_ context.Context, fn func()) error {
	fn()
	return nil
}

func (d *syncDispatcher) Post(fn func()) error {
	d.mu.Lock()
	d.posts++
	d.mu.Unlock()
	fn()
	return nil
}

// heldDispatcher queues posted work until release is called.
type heldDispatcher struct {
	mu     sync.Mutex
	queued []func()
}

func (d *heldDispatcher) Invoke(_ context.Context, fn func()) error {
	fn()
	return nil
}

func (d *heldDispatcher) Post(fn func()) error {
	d.mu.Lock()
	d.queued = append(d.queued, fn)
	d.mu.Unlock()
	return nil
}

// release runs the queued work in order.
func (d *heldDispatcher) release() {
	d.mu.Lock()
	queued := d.queued
	d.queued = nil
	d.mu.Unlock()
	for _, fn := range queued {
		fn()
	}
}

// unavailableDispatcher rejects all work.
type unavailableDispatcher struct{}

func (unavailableDispatcher) Invoke(context.Context, func()) error { return ErrDispatcherUnavailable }
func (unavailableDispatcher) Post(func()) error                    { return ErrDispatcherUnavailable }

// allProbes returns every built-in probe regardless of capability, so
// probes for absent capabilities run and record their defaults.
func allProbes() ProbeSet {
	var set ProbeSet
	for _, p := range builtinProbes() {
		set.Full = append(set.Full, p)
		if refreshProbes[p.name] {
			set.Refresh = append(set.Refresh, p)
		}
	}
	return set
}
