package reporting

import (
	"context"
	"time"

	"github.com/nerrad567/devicekit/internal/deviceinfo"
	"github.com/nerrad567/devicekit/internal/history"
	"github.com/nerrad567/devicekit/internal/infrastructure/influxdb"
	"github.com/nerrad567/devicekit/internal/infrastructure/mqtt"
)

// HistorySink records each pass in the history repository.
type HistorySink struct {
	repo history.Repository
}

// NewHistorySink creates a sink over repo.
func NewHistorySink(repo history.Repository) *HistorySink {
	return &HistorySink{repo: repo}
}

func (s *HistorySink) Name() string { return "history" }

func (s *HistorySink) Publish(ctx context.Context, u Update) error {
	return s.repo.Record(ctx, u.Report, u.Properties)
}

// Publisher is the MQTT surface used by MQTTSink. *mqtt.Client
// satisfies it.
type Publisher interface {
	PublishJSON(topic string, v any) error
}

// ReadyMessage is the retained payload on the ready topic.
type ReadyMessage struct {
	Ready       bool                `json:"ready"`
	PassID      string              `json:"pass_id"`
	Kind        deviceinfo.PassKind `json:"kind"`
	CompletedAt time.Time           `json:"completed_at"`
	DurationMS  int64               `json:"duration_ms"`
	Probes      int                 `json:"probes"`
	Failed      int                 `json:"failed"`
	TimedOut    int                 `json:"timed_out"`
}

// MQTTSink publishes retained properties and readiness topics.
type MQTTSink struct {
	pub    Publisher
	topics mqtt.Topics
}

// NewMQTTSink creates a sink over pub.
func NewMQTTSink(pub Publisher) *MQTTSink {
	return &MQTTSink{pub: pub}
}

func (s *MQTTSink) Name() string { return "mqtt" }

func (s *MQTTSink) Publish(_ context.Context, u Update) error {
	if err := s.pub.PublishJSON(s.topics.DeviceProperties(u.DeviceKey), u.Properties); err != nil {
		return err
	}
	return s.pub.PublishJSON(s.topics.DeviceReady(u.DeviceKey), readyMessage(u))
}

// PublishNotReady replaces the retained ready topic while a pass runs.
func (s *MQTTSink) PublishNotReady(_ context.Context, u Update) error {
	return s.pub.PublishJSON(s.topics.DeviceReady(u.DeviceKey), ReadyMessage{
		Ready:  false,
		PassID: u.Report.ID,
		Kind:   u.Report.Kind,
		Probes: u.Report.Expected,
	})
}

func readyMessage(u Update) ReadyMessage {
	return ReadyMessage{
		Ready:       u.Ready,
		PassID:      u.Report.ID,
		Kind:        u.Report.Kind,
		CompletedAt: u.Report.CompletedAt,
		DurationMS:  u.Report.Duration().Milliseconds(),
		Probes:      len(u.Report.Results),
		Failed:      u.Report.Count(deviceinfo.StatusFailed),
		TimedOut:    u.Report.Count(deviceinfo.StatusTimedOut),
	}
}

// PointWriter is the InfluxDB surface used by InfluxSink.
// *influxdb.Client satisfies it.
type PointWriter interface {
	WritePower(deviceKey string, s influxdb.PowerSample, at time.Time)
	WriteMemory(deviceKey string, s influxdb.MemorySample, at time.Time)
	WritePass(deviceKey string, s influxdb.PassSample, at time.Time)
}

// InfluxSink writes power, memory and pass points.
type InfluxSink struct {
	w PointWriter
}

// NewInfluxSink creates a sink over w.
func NewInfluxSink(w PointWriter) *InfluxSink {
	return &InfluxSink{w: w}
}

func (s *InfluxSink) Name() string { return "influxdb" }

func (s *InfluxSink) Publish(_ context.Context, u Update) error {
	p := u.Properties
	s.w.WritePower(u.DeviceKey, influxdb.PowerSample{
		ChargePercent:  p.Power.ChargePercent,
		HasBatteryInfo: p.Power.HasBatteryInfo,
		ExternalPower:  p.Power.ExternalPower,
		PowerSaving:    p.Power.PowerSaving,
	}, u.At)
	s.w.WriteMemory(u.DeviceKey, influxdb.MemorySample{
		Current: p.Memory.CurrentUsage,
		Peak:    p.Memory.PeakUsage,
		Limit:   p.Memory.UsageLimit,
		Total:   p.Memory.DeviceTotal,
	}, u.At)
	s.w.WritePass(u.DeviceKey, influxdb.PassSample{
		Kind:     string(u.Report.Kind),
		Duration: u.Report.Duration(),
		Probes:   len(u.Report.Results),
		Failed:   u.Report.Count(deviceinfo.StatusFailed),
		TimedOut: u.Report.Count(deviceinfo.StatusTimedOut),
	}, u.At)
	return nil
}

// Broadcaster is the WebSocket hub surface used by BroadcastSink.
type Broadcaster interface {
	Broadcast(channel string, payload any)
}

// ChannelReady is the WebSocket channel readiness updates go to.
const ChannelReady = "device.ready"

// BroadcastSink pushes readiness to WebSocket clients.
type BroadcastSink struct {
	hub Broadcaster
}

// NewBroadcastSink creates a sink over hub.
func NewBroadcastSink(hub Broadcaster) *BroadcastSink {
	return &BroadcastSink{hub: hub}
}

func (s *BroadcastSink) Name() string { return "websocket" }

func (s *BroadcastSink) Publish(_ context.Context, u Update) error {
	s.hub.Broadcast(ChannelReady, map[string]any{
		"device":     u.DeviceKey,
		"pass":       readyMessage(u),
		"properties": u.Properties,
	})
	return nil
}
