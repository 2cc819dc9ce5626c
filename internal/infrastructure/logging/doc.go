// Package logging is the slog setup shared by every devicekit component.
//
// Entries carry service and version attributes, and subsystems add their
// own with Component:
//
//	log := logging.New(cfg.Logging, version)
//	log.Component("deviceinfo").Info("pass complete", "pass_id", id)
//
// Attributes whose keys mention a secret, token, password, ticket or the
// secure-store fallback are written as "[redacted]".
package logging
