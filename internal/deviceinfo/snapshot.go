package deviceinfo

import (
	"slices"
	"sync"
)

// IDStatus tracks how far device id resolution got.
type IDStatus string

// Device id statuses.
const (
	IDUnresolved  IDStatus = "unresolved"
	IDResolved    IDStatus = "resolved"
	IDDenied      IDStatus = "denied"
	IDUnavailable IDStatus = "unavailable"
)

// DeviceID is the stable device identifier and its resolution status.
// Value is only meaningful when Status is IDResolved.
type DeviceID struct {
	Value  string   `json:"value,omitempty"`
	Status IDStatus `json:"status"`
}

// PowerInfo is the battery state recorded by the power probe.
type PowerInfo struct {
	ChargePercent  int  `json:"charge_percent"`
	HasBatteryInfo bool `json:"has_battery_info"`
	ExternalPower  bool `json:"external_power"`
	PowerSaving    bool `json:"power_saving"`
}

// CameraFacing describes one camera side.
type CameraFacing struct {
	Present          bool   `json:"present"`
	Flash            bool   `json:"flash"`
	AutoFocus        bool   `json:"auto_focus"`
	PhotoResolutions []Size `json:"photo_resolutions"`
	VideoResolutions []Size `json:"video_resolutions"`
}

func (c CameraFacing) clone() CameraFacing {
	c.PhotoResolutions = slices.Clone(c.PhotoResolutions)
	c.VideoResolutions = slices.Clone(c.VideoResolutions)
	return c
}

// Cameras holds the back and front camera descriptions.
type Cameras struct {
	Back  CameraFacing `json:"back"`
	Front CameraFacing `json:"front"`
}

// Screen is what the screen probe derives from display metrics.
type Screen struct {
	Resolution     Resolution     `json:"resolution"`
	Size           Size           `json:"size"`
	DiagonalInches float64        `json:"diagonal_inches"`
	Display        DisplayMetrics `json:"display"`
}

// Sensors records the presence of each sensor kind.
type Sensors struct {
	Accelerometer bool `json:"accelerometer"`
	Compass       bool `json:"compass"`
	Gyroscope     bool `json:"gyroscope"`
	Inclinometer  bool `json:"inclinometer"`
	Orientation   bool `json:"orientation"`
	Proximity     bool `json:"proximity"`
}

// Has reports whether kind was detected.
func (s Sensors) Has(kind SensorKind) bool {
	switch kind {
	case SensorAccelerometer:
		return s.Accelerometer
	case SensorCompass:
		return s.Compass
	case SensorGyroscope:
		return s.Gyroscope
	case SensorInclinometer:
		return s.Inclinometer
	case SensorOrientation:
		return s.Orientation
	case SensorProximity:
		return s.Proximity
	}
	return false
}

func (s *Sensors) set(kind SensorKind, present bool) {
	switch kind {
	case SensorAccelerometer:
		s.Accelerometer = present
	case SensorCompass:
		s.Compass = present
	case SensorGyroscope:
		s.Gyroscope = present
	case SensorInclinometer:
		s.Inclinometer = present
	case SensorOrientation:
		s.Orientation = present
	case SensorProximity:
		s.Proximity = present
	}
}

// Properties is a point-in-time copy of everything the probes resolved.
type Properties struct {
	Identity       Identity     `json:"identity"`
	DeviceID       DeviceID     `json:"device_id"`
	Power          PowerInfo    `json:"power"`
	Cameras        Cameras      `json:"cameras"`
	Memory         MemoryStatus `json:"memory"`
	Screen         Screen       `json:"screen"`
	Sensors        Sensors      `json:"sensors"`
	HasSDCard      bool         `json:"has_sd_card"`
	HasVibration   bool         `json:"has_vibration"`
	ProcessorCount int          `json:"processor_count"`
	Theme          Theme        `json:"theme"`
}

func (p Properties) clone() Properties {
	p.Cameras.Back = p.Cameras.Back.clone()
	p.Cameras.Front = p.Cameras.Front.clone()
	return p
}

// Field names a group of properties written together.
type Field string

// Snapshot fields.
const (
	FieldIdentity  Field = "identity"
	FieldDeviceID  Field = "device_id"
	FieldPower     Field = "power"
	FieldCameras   Field = "cameras"
	FieldMemory    Field = "memory"
	FieldScreen    Field = "screen"
	FieldSensors   Field = "sensors"
	FieldSDCard    Field = "sd_card"
	FieldVibration Field = "vibration"
	FieldProcessor Field = "processor"
	FieldTheme     Field = "theme"
)

// Change is delivered to OnChange listeners after a field is written.
type Change struct {
	Field Field
}

// Snapshot is the shared property store. Reads return copies; writes go
// through a Writer so a timed-out probe can be cut off.
type Snapshot struct {
	mu    sync.RWMutex
	props Properties

	listenersMu sync.Mutex
	listeners   map[int]func(Change)
	nextID      int

	writer *Writer
}

// NewSnapshot returns a snapshot holding the pre-resolution defaults.
func NewSnapshot() *Snapshot {
	s := &Snapshot{
		props: Properties{
			DeviceID: DeviceID{Status: IDUnresolved},
			Power:    PowerInfo{ChargePercent: UnknownCharge},
			Screen:   Screen{Resolution: ResolutionUnknown},
		},
		listeners: make(map[int]func(Change)),
	}
	s.writer = &Writer{s: s}
	return s
}

// Properties returns a deep copy of the current values.
func (s *Snapshot) Properties() Properties {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.props.clone()
}

// DeviceID returns the resolved id, or ErrNotResolved, ErrAccessDenied or
// ErrUnsupported depending on how identity resolution ended.
func (s *Snapshot) DeviceID() (string, error) {
	s.mu.RLock()
	id := s.props.DeviceID
	s.mu.RUnlock()

	switch id.Status {
	case IDResolved:
		return id.Value, nil
	case IDDenied:
		return "", ErrAccessDenied
	case IDUnavailable:
		return "", ErrUnsupported
	default:
		return "", ErrNotResolved
	}
}

// OnChange registers fn for field change notifications. fn runs on the
// writing goroutine after the snapshot lock is released.
func (s *Snapshot) OnChange(fn func(Change)) (unsubscribe func()) {
	s.listenersMu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.listenersMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.listenersMu.Lock()
			delete(s.listeners, id)
			s.listenersMu.Unlock()
		})
	}
}

// Writer returns the snapshot's permanent writer. It is never revoked.
func (s *Snapshot) Writer() *Writer {
	return s.writer
}

// newPassWriter returns a writer that the engine revokes when its probe
// times out.
func (s *Snapshot) newPassWriter() *Writer {
	return &Writer{s: s}
}

func (s *Snapshot) notify(c Change) {
	s.listenersMu.Lock()
	fns := make([]func(Change), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.listenersMu.Unlock()

	for _, fn := range fns {
		fn(c)
	}
}

// Writer applies grouped writes to a Snapshot.
type Writer struct {
	s       *Snapshot
	revoked bool // guarded by s.mu
}

// Revoke drops every later write through w. Writes already applied stay.
func (w *Writer) Revoke() {
	w.s.mu.Lock()
	w.revoked = true
	w.s.mu.Unlock()
}

// Revoked reports whether Revoke was called.
func (w *Writer) Revoked() bool {
	w.s.mu.RLock()
	defer w.s.mu.RUnlock()
	return w.revoked
}

func (w *Writer) update(field Field, fn func(p *Properties)) bool {
	w.s.mu.Lock()
	if w.revoked {
		w.s.mu.Unlock()
		return false
	}
	fn(&w.s.props)
	w.s.mu.Unlock()

	w.s.notify(Change{Field: field})
	return true
}

// SetIdentity records descriptive identity.
func (w *Writer) SetIdentity(id Identity) bool {
	return w.update(FieldIdentity, func(p *Properties) { p.Identity = id })
}

// SetDeviceID records a resolved device id.
func (w *Writer) SetDeviceID(value string) bool {
	return w.update(FieldDeviceID, func(p *Properties) {
		p.DeviceID = DeviceID{Value: value, Status: IDResolved}
	})
}

// SetDeviceIDStatus records a non-resolved outcome and clears any value.
func (w *Writer) SetDeviceIDStatus(status IDStatus) bool {
	return w.update(FieldDeviceID, func(p *Properties) {
		p.DeviceID = DeviceID{Status: status}
		if status == IDResolved {
			p.DeviceID.Status = IDUnresolved
		}
	})
}

// SetPower records battery state.
func (w *Writer) SetPower(info PowerInfo) bool {
	return w.update(FieldPower, func(p *Properties) { p.Power = info })
}

// ResetCameras returns both camera facings to their defaults.
func (w *Writer) ResetCameras() bool {
	return w.update(FieldCameras, func(p *Properties) { p.Cameras = Cameras{} })
}

// SetCameras records both facings at once.
func (w *Writer) SetCameras(c Cameras) bool {
	c.Back = c.Back.clone()
	c.Front = c.Front.clone()
	return w.update(FieldCameras, func(p *Properties) { p.Cameras = c })
}

// SetMemory records memory counters.
func (w *Writer) SetMemory(m MemoryStatus) bool {
	return w.update(FieldMemory, func(p *Properties) { p.Memory = m })
}

// SetScreen records derived screen properties.
func (w *Writer) SetScreen(sc Screen) bool {
	return w.update(FieldScreen, func(p *Properties) { p.Screen = sc })
}

// SetSensors replaces every sensor flag.
func (w *Writer) SetSensors(s Sensors) bool {
	return w.update(FieldSensors, func(p *Properties) { p.Sensors = s })
}

// SetSDCard records removable storage presence.
func (w *Writer) SetSDCard(present bool) bool {
	return w.update(FieldSDCard, func(p *Properties) { p.HasSDCard = present })
}

// SetVibration records vibration motor presence.
func (w *Writer) SetVibration(present bool) bool {
	return w.update(FieldVibration, func(p *Properties) { p.HasVibration = present })
}

// SetProcessorCount records the core count.
func (w *Writer) SetProcessorCount(n int) bool {
	return w.update(FieldProcessor, func(p *Properties) { p.ProcessorCount = n })
}

// SetTheme records the accent colour and app theme.
func (w *Writer) SetTheme(t Theme) bool {
	return w.update(FieldTheme, func(p *Properties) { p.Theme = t })
}

// SetAppTheme records the app theme and keeps the current accent.
func (w *Writer) SetAppTheme(t AppTheme) bool {
	return w.update(FieldTheme, func(p *Properties) { p.Theme.AppTheme = t })
}
