package api

import (
	"database/sql"
	"net/http"
	"runtime"
	"time"

	"github.com/nerrad567/devicekit/internal/deviceinfo"
)

// DBStatser exposes connection pool statistics. *database.DB satisfies it.
type DBStatser interface {
	Stats() sql.DBStats
}

// SystemMetrics represents the complete system metrics response.
type SystemMetrics struct {
	Timestamp     string           `json:"timestamp"`
	Version       string           `json:"version"`
	UptimeSeconds int64            `json:"uptime_seconds"`
	Runtime       RuntimeMetrics   `json:"runtime"`
	WebSocket     WSMetrics        `json:"websocket"`
	MQTT          ConnMetrics      `json:"mqtt"`
	InfluxDB      ConnMetrics      `json:"influxdb"`
	Resolution    ResolutionMetric `json:"resolution"`
	Database      *DatabaseMetrics `json:"database,omitempty"`
}

// RuntimeMetrics contains Go runtime statistics.
type RuntimeMetrics struct {
	Goroutines    int     `json:"goroutines"`
	MemoryAllocMB float64 `json:"memory_alloc_mb"`
	MemoryTotalMB float64 `json:"memory_total_mb"`
	NumGC         uint32  `json:"num_gc"`
}

// WSMetrics contains WebSocket hub statistics.
type WSMetrics struct {
	ConnectedClients int    `json:"connected_clients"`
	DroppedMessages  uint64 `json:"dropped_messages"`
}

// ConnMetrics reports an optional backend link.
type ConnMetrics struct {
	Configured bool `json:"configured"`
	Connected  bool `json:"connected"`
}

// ResolutionMetric summarises the latest pass.
type ResolutionMetric struct {
	Ready          bool   `json:"ready"`
	State          string `json:"state"`
	LastPassID     string `json:"last_pass_id,omitempty"`
	LastPassKind   string `json:"last_pass_kind,omitempty"`
	LastDurationMS int64  `json:"last_duration_ms,omitempty"`
	Failed         int    `json:"failed"`
	TimedOut       int    `json:"timed_out"`
}

// DatabaseMetrics contains database connection pool statistics.
type DatabaseMetrics struct {
	OpenConnections int   `json:"open_connections"`
	InUse           int   `json:"in_use"`
	Idle            int   `json:"idle"`
	WaitCount       int64 `json:"wait_count"`
}

// handleMetrics returns runtime, connection and resolution metrics.
func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	metrics := SystemMetrics{
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		Version:       s.version,
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
		Runtime: RuntimeMetrics{
			Goroutines:    runtime.NumGoroutine(),
			MemoryAllocMB: float64(memStats.Alloc) / 1024 / 1024,
			MemoryTotalMB: float64(memStats.TotalAlloc) / 1024 / 1024,
			NumGC:         memStats.NumGC,
		},
		WebSocket: WSMetrics{
			ConnectedClients: s.hub.ClientCount(),
			DroppedMessages:  s.hub.Dropped(),
		},
		MQTT:     connMetrics(s.mqtt),
		InfluxDB: connMetrics(s.influx),
		Resolution: ResolutionMetric{
			Ready: s.device.IsReady(),
			State: string(s.device.State()),
		},
	}

	if report, ok := s.device.LastReport(); ok {
		metrics.Resolution.LastPassID = report.ID
		metrics.Resolution.LastPassKind = string(report.Kind)
		metrics.Resolution.LastDurationMS = report.Duration().Milliseconds()
		metrics.Resolution.Failed = report.Count(deviceinfo.StatusFailed)
		metrics.Resolution.TimedOut = report.Count(deviceinfo.StatusTimedOut)
	}

	if s.db != nil {
		stats := s.db.Stats()
		metrics.Database = &DatabaseMetrics{
			OpenConnections: stats.OpenConnections,
			InUse:           stats.InUse,
			Idle:            stats.Idle,
			WaitCount:       stats.WaitCount,
		}
	}

	writeJSON(w, http.StatusOK, metrics)
}

func connMetrics(c ConnectionChecker) ConnMetrics {
	if c == nil {
		return ConnMetrics{}
	}
	return ConnMetrics{Configured: true, Connected: c.IsConnected()}
}
