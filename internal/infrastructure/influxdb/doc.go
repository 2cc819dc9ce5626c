// Package influxdb writes device telemetry to InfluxDB v2.
//
// After each resolution pass devicekit records:
//
//	device_power   charge, external power, power saving (tag: device)
//	device_memory  current/peak/limit/total bytes (tag: device)
//	device_pass    duration and probe outcome counts (tags: device, kind)
//
// Writes are non-blocking and batched; asynchronous failures are delivered
// to the callback set with SetOnError.
package influxdb
