// Package api implements the HTTP REST API and WebSocket server for devicekit.
//
// This package provides:
//   - Read endpoints for resolved device properties, readiness and history
//   - A refresh endpoint that starts a resolution pass
//   - WebSocket hub pushing readiness transitions to subscribed clients
//   - JWT bearer authentication with ticket-based WebSocket auth
//   - Middleware stack (request ID, logging, recovery, CORS, body limit)
//   - TLS support for production deployments
//
// # Readiness
//
// Reads never block on a pass. While a pass is in flight the properties
// endpoint returns whatever the snapshot holds, with "ready": false, and
// the id endpoint answers 503 until the identity probe has run.
//
// # Security
//
// When security.jwt.enabled is set, refresh and WebSocket tickets require
// a bearer token whose role grants the matching permission. Refresh is
// additionally token-bucket limited when security.rate_limit.enabled is set.
package api
