package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/nerrad567/devicekit/internal/deviceinfo"
)

// deviceResponse is the body of GET /device.
type deviceResponse struct {
	Ready      bool                   `json:"ready"`
	State      deviceinfo.State       `json:"state"`
	Properties deviceinfo.Properties  `json:"properties"`
	LastPass   *deviceinfo.PassReport `json:"last_pass,omitempty"`
	MemoryMiB  memoryView             `json:"memory_mib"`
}

// memoryView is the memory counters in MiB, one decimal place.
type memoryView struct {
	Current float64 `json:"current"`
	Peak    float64 `json:"peak"`
	Limit   float64 `json:"limit"`
	Total   float64 `json:"total"`
}

func newMemoryView(m deviceinfo.MemoryStatus) memoryView {
	mib := func(b uint64) float64 { return deviceinfo.TransformBytes(b, deviceinfo.Mega, 1) }
	return memoryView{
		Current: mib(m.CurrentUsage),
		Peak:    mib(m.PeakUsage),
		Limit:   mib(m.UsageLimit),
		Total:   mib(m.DeviceTotal),
	}
}

// passResponse describes a started pass.
type passResponse struct {
	PassID    string              `json:"pass_id"`
	Kind      deviceinfo.PassKind `json:"kind"`
	StartedAt time.Time           `json:"started_at"`
	Expected  int                 `json:"expected"`
}

func newPassResponse(p *deviceinfo.Pass) passResponse {
	return passResponse{PassID: p.ID, Kind: p.Kind, StartedAt: p.StartedAt, Expected: p.Expected}
}

func (s *Server) lastPass() *deviceinfo.PassReport {
	report, ok := s.device.LastReport()
	if !ok {
		return nil
	}
	return &report
}

// handleGetDevice returns the resolved properties. It never waits for an
// in-flight pass.
func (s *Server) handleGetDevice(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.currentDevice())
}

func (s *Server) currentDevice() deviceResponse {
	props := s.device.Properties()
	return deviceResponse{
		Ready:      s.device.IsReady(),
		State:      s.device.State(),
		Properties: props,
		LastPass:   s.lastPass(),
		MemoryMiB:  newMemoryView(props.Memory),
	}
}

// handleGetReady returns readiness without the property payload.
func (s *Server) handleGetReady(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"ready":     s.device.IsReady(),
		"state":     s.device.State(),
		"last_pass": s.lastPass(),
	})
}

// handleGetDeviceID returns the stable device id.
func (s *Server) handleGetDeviceID(w http.ResponseWriter, _ *http.Request) {
	id, err := s.device.ID()
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]string{"id": id})
	case errors.Is(err, deviceinfo.ErrAccessDenied):
		writeError(w, http.StatusForbidden, ErrCodeAccessDenied, "device id access was denied by the platform")
	case errors.Is(err, deviceinfo.ErrUnsupported):
		writeError(w, http.StatusNotImplemented, ErrCodeUnsupported, "device id is not available on this platform")
	case errors.Is(err, deviceinfo.ErrNotResolved):
		writeUnavailable(w, ErrCodeNotReady, "device id not resolved yet")
	default:
		s.logger.Error("reading device id", "error", err)
		writeInternalError(w, "failed to read device id")
	}
}

// handleGetOrientation reads the live orientation. It is never cached.
func (s *Server) handleGetOrientation(w http.ResponseWriter, r *http.Request) {
	o, err := s.device.Orientation(r.Context())
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]any{
			"orientation": o,
			"landscape":   o.IsLandscape(),
		})
	case errors.Is(err, deviceinfo.ErrUnsupported):
		writeError(w, http.StatusNotImplemented, ErrCodeUnsupported, "orientation is not available on this platform")
	case errors.Is(err, deviceinfo.ErrAccessDenied):
		writeError(w, http.StatusForbidden, ErrCodeAccessDenied, "orientation access was denied by the platform")
	default:
		s.logger.Warn("reading orientation", "error", err)
		writeInternalError(w, "failed to read orientation")
	}
}

// handleGetLocale returns time zone and language settings.
func (s *Server) handleGetLocale(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"time_zone":    s.device.TimeZone(),
		"offset_hours": s.device.TimeZoneOffset(),
		"language":     s.device.LanguageCode(),
	})
}

// handleListHistory returns recorded passes, newest first.
func (s *Server) handleListHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeUnavailable(w, ErrCodeUnavailable, "history is not configured")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeBadRequest(w, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	entries, err := s.history.List(r.Context(), limit)
	if err != nil {
		s.logger.Error("listing pass history", "error", err)
		writeInternalError(w, "failed to list history")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"entries": entries,
		"count":   len(entries),
	})
}

// handleRefresh starts a refresh pass. With ?wait=true it blocks until
// the pass completes or the request is cancelled and returns the report.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	requestedBy := "anonymous"
	if claims, ok := claimsFromContext(r.Context()); ok {
		requestedBy = claims.Subject
	}

	pass, err := s.device.Refresh(r.Context())
	switch {
	case errors.Is(err, deviceinfo.ErrPassInProgress):
		resp := map[string]any{
			"status":  http.StatusConflict,
			"code":    ErrCodeConflict,
			"message": "a resolution pass is already in progress",
		}
		if pass != nil {
			resp["pass"] = newPassResponse(pass)
		}
		writeJSON(w, http.StatusConflict, resp)
		return
	case errors.Is(err, deviceinfo.ErrClosed):
		writeUnavailable(w, ErrCodeUnavailable, "device engine is shut down")
		return
	case err != nil:
		s.logger.Error("starting refresh", "error", err)
		writeInternalError(w, "failed to start refresh")
		return
	}

	s.logger.Info("refresh requested", "pass_id", pass.ID, "requested_by", requestedBy)

	if wait, _ := strconv.ParseBool(r.URL.Query().Get("wait")); wait {
		report, err := pass.Wait(r.Context())
		if err != nil {
			writeUnavailable(w, ErrCodeNotReady, "request ended before the pass completed")
			return
		}
		writeJSON(w, http.StatusOK, report)
		return
	}

	writeJSON(w, http.StatusAccepted, newPassResponse(pass))
}
