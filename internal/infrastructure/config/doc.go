// Package config loads devicekit settings from YAML with environment
// overrides.
//
// Load applies, in order: built-in defaults, the YAML file, then
// DEVICEKIT_* variables, and finally validates the result. Secrets (MQTT
// password, InfluxDB token, JWT secret, secure-store fallback) are best
// supplied through the environment:
//
//	DEVICEKIT_JWT_SECRET=... DEVICEKIT_DEVICE_PLATFORM=profile devicekit
package config
