package history

import (
	"context"
	"errors"
	"time"

	"github.com/nerrad567/devicekit/internal/deviceinfo"
)

// ErrNotFound is returned by Latest when no pass has been recorded.
var ErrNotFound = errors.New("history: no passes recorded")

// Entry is one recorded pass.
type Entry struct {
	PassID      string                   `json:"pass_id"`
	Kind        deviceinfo.PassKind      `json:"kind"`
	DeviceID    string                   `json:"device_id,omitempty"`
	StartedAt   time.Time                `json:"started_at"`
	CompletedAt time.Time                `json:"completed_at"`
	Properties  deviceinfo.Properties    `json:"properties"`
	Results     []deviceinfo.ProbeResult `json:"results"`
}

// Repository stores and retrieves pass history.
//
// Implementations must be thread-safe and use UTC timestamps.
type Repository interface {
	// Record stores a completed pass with the properties it produced.
	Record(ctx context.Context, report deviceinfo.PassReport, props deviceinfo.Properties) error

	// Latest returns the most recently completed pass.
	Latest(ctx context.Context) (Entry, error)

	// List returns up to limit passes, newest first.
	List(ctx context.Context, limit int) ([]Entry, error)

	// Prune deletes passes completed more than olderThan ago.
	Prune(ctx context.Context, olderThan time.Duration) (int64, error)
}
