package deviceinfo

import "context"

// Mode says where a probe runs within a pass.
type Mode int

// Probe modes.
const (
	// Sync probes run inline, in order, before any async probe starts.
	Sync Mode = iota
	// Async probes run on their own goroutine.
	Async
	// AsyncUI probes run their body on the dispatcher goroutine.
	AsyncUI
)

func (m Mode) String() string {
	switch m {
	case Sync:
		return "sync"
	case Async:
		return "async"
	case AsyncUI:
		return "async_ui"
	}
	return "unknown"
}

// Probe resolves one group of properties.
type Probe interface {
	Name() string
	Mode() Mode
	Run(ctx context.Context, env *Env) error
}

// Env is what a probe may touch while it runs.
type Env struct {
	Platform   Platform
	Writer     *Writer
	Dispatcher Dispatcher
	Logger     Logger

	snapshot *Snapshot
}

// Properties returns the snapshot as written so far in this pass.
func (e *Env) Properties() Properties {
	if e.snapshot == nil {
		return Properties{}
	}
	return e.snapshot.Properties()
}

// Probe names.
const (
	ProbeIdentity  = "identity"
	ProbeMemory    = "memory"
	ProbePower     = "power"
	ProbeProcessor = "processor"
	ProbeSensors   = "sensors"
	ProbeVibration = "vibration"
	ProbeCamera    = "camera"
	ProbeSDCard    = "sdcard"
	ProbeScreen    = "screen"
	ProbeTheme     = "theme"
)

// funcProbe adapts a function into a Probe.
type funcProbe struct {
	name     string
	mode     Mode
	run      func(ctx context.Context, env *Env) error
	requires func(p Platform) bool
}

func (f *funcProbe) Name() string { return f.name }
func (f *funcProbe) Mode() Mode   { return f.mode }

func (f *funcProbe) Run(ctx context.Context, env *Env) error {
	return f.run(ctx, env)
}

// NewProbe builds a Probe from a function.
func NewProbe(name string, mode Mode, run func(ctx context.Context, env *Env) error) Probe {
	return &funcProbe{name: name, mode: mode, run: run}
}

// ProbeSet is the probe configuration for full and refresh passes.
type ProbeSet struct {
	Full    []Probe
	Refresh []Probe
}

// Names returns the probe names for kind, in run order.
func (s ProbeSet) Names(kind PassKind) []string {
	probes := s.Full
	if kind == PassRefresh {
		probes = s.Refresh
	}
	names := make([]string, len(probes))
	for i, p := range probes {
		names[i] = p.Name()
	}
	return names
}

// refreshProbes lists the probes whose values change at runtime.
var refreshProbes = map[string]bool{
	ProbeMemory: true,
	ProbePower:  true,
	ProbeSDCard: true,
	ProbeTheme:  true,
}

// Wire returns the built-in probes for the capabilities p implements.
func Wire(p Platform) ProbeSet {
	var set ProbeSet
	for _, probe := range builtinProbes() {
		if probe.requires != nil && !probe.requires(p) {
			continue
		}
		set.Full = append(set.Full, probe)
		if refreshProbes[probe.name] {
			set.Refresh = append(set.Refresh, probe)
		}
	}
	return set
}

// builtinProbes returns the probes in full-pass order: sync probes first,
// identity leading so the camera probe can read the device name.
func builtinProbes() []*funcProbe {
	return []*funcProbe{
		{name: ProbeIdentity, mode: Sync, run: runIdentity, requires: has[IdentitySource]},
		{name: ProbeMemory, mode: Sync, run: runMemory, requires: has[MemorySource]},
		{name: ProbePower, mode: Sync, run: runPower, requires: has[PowerSource]},
		{name: ProbeProcessor, mode: Sync, run: runProcessor},
		{name: ProbeSensors, mode: Sync, run: runSensors, requires: has[SensorSource]},
		{name: ProbeVibration, mode: Sync, run: runVibration, requires: has[VibrationSource]},
		{name: ProbeCamera, mode: Async, run: runCamera, requires: has[CameraSource]},
		{name: ProbeSDCard, mode: Async, run: runSDCard, requires: has[StorageSource]},
		{name: ProbeScreen, mode: AsyncUI, run: runScreen, requires: has[DisplaySource]},
		{name: ProbeTheme, mode: AsyncUI, run: runTheme, requires: has[ThemeSource]},
	}
}

func has[T any](p Platform) bool {
	_, ok := p.(T)
	return ok
}
