// Package reporting fans completed resolution passes out to sinks.
//
// A Reporter subscribes to an engine's readiness events. Each time a pass
// completes it snapshots the properties and runs every Sink concurrently:
// SQLite history, retained MQTT topics, InfluxDB points and WebSocket
// broadcasts. Sink failures are logged and never feed back into
// readiness. The Reporter also owns the periodic refresh ticker and the
// MQTT refresh command.
package reporting
