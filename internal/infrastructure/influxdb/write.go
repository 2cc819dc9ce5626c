package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names written by devicekit.
const (
	MeasurementPower  = "device_power"
	MeasurementMemory = "device_memory"
	MeasurementPass   = "device_pass"
)

// PowerSample is one battery reading.
type PowerSample struct {
	ChargePercent  int
	HasBatteryInfo bool
	ExternalPower  bool
	PowerSaving    bool
}

// MemorySample is one memory reading in bytes.
type MemorySample struct {
	Current uint64
	Peak    uint64
	Limit   uint64
	Total   uint64
}

// PassSample summarises one resolution pass.
type PassSample struct {
	Kind     string
	Duration time.Duration
	Probes   int
	Failed   int
	TimedOut int
}

// WritePower records a battery reading. Unknown charge is not written
// as a number so dashboards don't plot the sentinel.
func (c *Client) WritePower(deviceKey string, s PowerSample, at time.Time) {
	fields := map[string]interface{}{
		"has_battery_info": s.HasBatteryInfo,
		"external_power":   s.ExternalPower,
		"power_saving":     s.PowerSaving,
	}
	if s.HasBatteryInfo && s.ChargePercent >= 0 {
		fields["charge_percent"] = s.ChargePercent
	}
	c.WritePoint(MeasurementPower, map[string]string{"device": deviceKey}, fields, at)
}

// WriteMemory records memory counters.
func (c *Client) WriteMemory(deviceKey string, s MemorySample, at time.Time) {
	c.WritePoint(MeasurementMemory, map[string]string{"device": deviceKey}, map[string]interface{}{
		"current_bytes": s.Current,
		"peak_bytes":    s.Peak,
		"limit_bytes":   s.Limit,
		"total_bytes":   s.Total,
	}, at)
}

// WritePass records pass timing and probe outcome counts.
func (c *Client) WritePass(deviceKey string, s PassSample, at time.Time) {
	c.WritePoint(MeasurementPass, map[string]string{"device": deviceKey, "kind": s.Kind}, map[string]interface{}{
		"duration_ms": s.Duration.Milliseconds(),
		"probes":      s.Probes,
		"failed":      s.Failed,
		"timed_out":   s.TimedOut,
	}, at)
}

// WritePoint writes a custom point. Dropped silently after Close.
//
// Parameters:
//   - measurement: The measurement name (table)
//   - tags: Key-value pairs for indexing (low cardinality)
//   - fields: Key-value pairs for the actual data
//   - at: Timestamp of the sample
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}, at time.Time) {
	if c.closed.Load() || c.writer == nil {
		return
	}
	c.writer.WritePoint(write.NewPoint(measurement, tags, fields, at))
}
