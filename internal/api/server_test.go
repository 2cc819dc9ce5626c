package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nerrad567/devicekit/internal/auth"
	"github.com/nerrad567/devicekit/internal/device"
	"github.com/nerrad567/devicekit/internal/deviceinfo"
	"github.com/nerrad567/devicekit/internal/history"
	"github.com/nerrad567/devicekit/internal/infrastructure/config"
	"github.com/nerrad567/devicekit/internal/infrastructure/database"
	"github.com/nerrad567/devicekit/internal/infrastructure/logging"
	"github.com/nerrad567/devicekit/internal/reporting"
	"github.com/nerrad567/devicekit/migrations"
)

var _ DeviceView = (*device.Device)(nil)

const testJWTSecret = "test-secret-key-at-least-32-characters-long"

// fakeDevice is a DeviceView whose answers are set by the test.
type fakeDevice struct {
	mu          sync.Mutex
	props       deviceinfo.Properties
	state       deviceinfo.State
	ready       bool
	report      *deviceinfo.PassReport
	id          string
	idErr       error
	orientation deviceinfo.Orientation
	orientErr   error
	coord       *deviceinfo.Coordinator
	refreshN    int // expected probes for the next refresh pass
	refreshErr  error
	subs        []func(deviceinfo.Event)
}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{
		props:       deviceinfo.Properties{Identity: deviceinfo.Identity{Name: "Lumia 920"}},
		state:       deviceinfo.StateReady,
		ready:       true,
		id:          "abc123",
		orientation: deviceinfo.OrientationPortrait,
		coord:       deviceinfo.NewCoordinator(nil),
	}
}

func (f *fakeDevice) Properties() deviceinfo.Properties {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.props
}

func (f *fakeDevice) State() deviceinfo.State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *fakeDevice) IsReady() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ready
}

func (f *fakeDevice) LastReport() (deviceinfo.PassReport, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.report == nil {
		return deviceinfo.PassReport{}, false
	}
	return *f.report, true
}

func (f *fakeDevice) ID() (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.id, f.idErr
}

func (f *fakeDevice) Orientation(context.Context) (deviceinfo.Orientation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.orientation, f.orientErr
}

func (f *fakeDevice) TimeZone() string        { return "UTC" }
func (f *fakeDevice) TimeZoneOffset() float64 { return 0 }
func (f *fakeDevice) LanguageCode() string    { return "en" }

func (f *fakeDevice) Refresh(context.Context) (*deviceinfo.Pass, error) {
	f.mu.Lock()
	expected, err := f.refreshN, f.refreshErr
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return f.coord.BeginPass(deviceinfo.PassRefresh, expected)
}

func (f *fakeDevice) Subscribe(fn func(deviceinfo.Event)) func() {
	f.mu.Lock()
	f.subs = append(f.subs, fn)
	f.mu.Unlock()
	return func() {}
}

func (f *fakeDevice) emit(ev deviceinfo.Event) {
	f.mu.Lock()
	subs := append([]func(deviceinfo.Event){}, f.subs...)
	f.mu.Unlock()
	for _, fn := range subs {
		fn(ev)
	}
}

func testLogger() *logging.Logger {
	return logging.New(config.LoggingConfig{Level: "error", Format: "text", Output: "stdout"}, "test")
}

func testDeps(dev DeviceView) Deps {
	return Deps{
		Config: config.APIConfig{
			Host: "127.0.0.1",
			Port: 0,
			Timeouts: config.APITimeoutConfig{
				Read:  5,
				Write: 5,
				Idle:  5,
			},
		},
		WS: config.WebSocketConfig{
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		Security: config.SecurityConfig{
			JWT: config.JWTConfig{
				Secret:         testJWTSecret,
				AccessTokenTTL: 15,
			},
		},
		Logger:  testLogger(),
		Device:  dev,
		Version: "test",
	}
}

// testServer creates a Server over a fake device with auth disabled.
func testServer(t *testing.T, mutate ...func(*Deps)) (*Server, *fakeDevice) {
	t.Helper()

	dev := newFakeDevice()
	deps := testDeps(dev)
	for _, m := range mutate {
		m(&deps)
	}

	srv, err := New(deps)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go srv.hub.Run(ctx)

	return srv, dev
}

func serve(t *testing.T, h http.Handler, method, path string, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal %q: %v", w.Body.String(), err)
	}
	return resp
}

// ─── Health & Middleware ───────────────────────────────────────────

func TestNew_RequiresDeps(t *testing.T) {
	if _, err := New(Deps{Device: newFakeDevice()}); err == nil {
		t.Error("New() without logger should fail")
	}
	if _, err := New(Deps{Logger: testLogger()}); err == nil {
		t.Error("New() without device should fail")
	}
}

func TestHealth(t *testing.T) {
	srv, _ := testServer(t)
	w := serve(t, srv.buildRouter(), http.MethodGet, "/api/v1/health")

	if w.Code != http.StatusOK {
		t.Fatalf("health status = %d, want %d", w.Code, http.StatusOK)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}
	resp := decode(t, w)
	if resp["status"] != "ok" || resp["version"] != "test" || resp["ready"] != true {
		t.Errorf("health = %v", resp)
	}
}

func TestRequestID(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	if w := serve(t, router, http.MethodGet, "/api/v1/health"); w.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID header to be set")
	}
	w := serve(t, router, http.MethodGet, "/api/v1/health", "X-Request-ID", "client-123")
	if got := w.Header().Get("X-Request-ID"); got != "client-123" {
		t.Errorf("X-Request-ID = %q, want %q", got, "client-123")
	}

	for _, bad := range []string{"has space", strings.Repeat("x", maxRequestIDLen+1)} {
		w := serve(t, router, http.MethodGet, "/api/v1/health", "X-Request-ID", bad)
		if got := w.Header().Get("X-Request-ID"); got == bad || got == "" {
			t.Errorf("X-Request-ID for %q = %q, want a generated id", bad, got)
		}
	}
}

func TestRetryAfter(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{time.Millisecond, "1"},
		{time.Second, "1"},
		{10*time.Second + time.Millisecond, "11"},
	}
	for _, tt := range tests {
		if got := retryAfter(tt.in); got != tt.want {
			t.Errorf("retryAfter(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRecovery(t *testing.T) {
	srv, _ := testServer(t)
	h := srv.requestIDMiddleware(srv.recoveryMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("probe exploded")
	})))

	w := serve(t, h, http.MethodGet, "/")
	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
}

func TestCORS_Preflight(t *testing.T) {
	srv, _ := testServer(t)
	w := serve(t, srv.buildRouter(), http.MethodOptions, "/api/v1/health", "Origin", "http://localhost:3000")

	if w.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d, want %d", w.Code, http.StatusNoContent)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("ACAO = %q, want %q", got, "http://localhost:3000")
	}
}

func TestCORS_DisallowedOrigin(t *testing.T) {
	srv, _ := testServer(t, func(d *Deps) {
		d.Config.CORS.AllowedOrigins = []string{"http://panel.local"}
	})
	w := serve(t, srv.buildRouter(), http.MethodGet, "/api/v1/health", "Origin", "http://evil.example")
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("ACAO = %q, want empty", got)
	}
}

func TestNotFound(t *testing.T) {
	srv, _ := testServer(t)
	if w := serve(t, srv.buildRouter(), http.MethodGet, "/api/v1/nonexistent"); w.Code != http.StatusNotFound {
		t.Errorf("unknown route status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

// ─── Device Reads ──────────────────────────────────────────────────

func TestGetDevice(t *testing.T) {
	srv, dev := testServer(t)
	dev.report = &deviceinfo.PassReport{ID: "p1", Kind: deviceinfo.PassFull}
	dev.mu.Lock()
	dev.props.Memory = deviceinfo.MemoryStatus{CurrentUsage: 3 << 19, DeviceTotal: 1 << 30}
	dev.mu.Unlock()

	w := serve(t, srv.buildRouter(), http.MethodGet, "/api/v1/device")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var resp deviceResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !resp.Ready || resp.Properties.Identity.Name != "Lumia 920" {
		t.Errorf("device = %+v", resp)
	}
	if resp.LastPass == nil || resp.LastPass.ID != "p1" {
		t.Errorf("last_pass = %+v", resp.LastPass)
	}
	if resp.MemoryMiB.Current != 1.5 || resp.MemoryMiB.Total != 1024 {
		t.Errorf("memory_mib = %+v, want current 1.5 total 1024", resp.MemoryMiB)
	}
}

func TestGetDevice_NotReadyDoesNotBlock(t *testing.T) {
	srv, dev := testServer(t)
	dev.ready = false
	dev.state = deviceinfo.StateResolving

	w := serve(t, srv.buildRouter(), http.MethodGet, "/api/v1/device/ready")
	resp := decode(t, w)
	if resp["ready"] != false || resp["state"] != string(deviceinfo.StateResolving) {
		t.Errorf("ready = %v", resp)
	}
}

func TestGetDeviceID(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantErr  string
	}{
		{name: "resolved", wantCode: http.StatusOK},
		{name: "denied", err: fmt.Errorf("reading id: %w", deviceinfo.ErrAccessDenied), wantCode: http.StatusForbidden, wantErr: ErrCodeAccessDenied},
		{name: "unsupported", err: deviceinfo.ErrUnsupported, wantCode: http.StatusNotImplemented, wantErr: ErrCodeUnsupported},
		{name: "not resolved", err: deviceinfo.ErrNotResolved, wantCode: http.StatusServiceUnavailable, wantErr: ErrCodeNotReady},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, dev := testServer(t)
			dev.idErr = tt.err

			w := serve(t, srv.buildRouter(), http.MethodGet, "/api/v1/device/id")
			if w.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantCode)
			}
			resp := decode(t, w)
			if tt.wantErr == "" {
				if resp["id"] != "abc123" {
					t.Errorf("id = %v", resp["id"])
				}
				return
			}
			if resp["code"] != tt.wantErr {
				t.Errorf("code = %v, want %s", resp["code"], tt.wantErr)
			}
		})
	}
}

func TestGetOrientation(t *testing.T) {
	srv, dev := testServer(t)
	router := srv.buildRouter()

	dev.orientation = deviceinfo.OrientationLandscapeLeft
	resp := decode(t, serve(t, router, http.MethodGet, "/api/v1/device/orientation"))
	if resp["orientation"] != string(deviceinfo.OrientationLandscapeLeft) || resp["landscape"] != true {
		t.Errorf("orientation = %v", resp)
	}

	dev.orientErr = deviceinfo.ErrUnsupported
	if w := serve(t, router, http.MethodGet, "/api/v1/device/orientation"); w.Code != http.StatusNotImplemented {
		t.Errorf("unsupported status = %d, want 501", w.Code)
	}
}

func TestGetLocale(t *testing.T) {
	srv, _ := testServer(t)
	resp := decode(t, serve(t, srv.buildRouter(), http.MethodGet, "/api/v1/device/locale"))
	if resp["time_zone"] != "UTC" || resp["language"] != "en" {
		t.Errorf("locale = %v", resp)
	}
}

func newHistoryRepo(t *testing.T) *history.SQLiteRepository {
	t.Helper()
	db, err := database.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory() error = %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // Test cleanup
	if _, err := db.Migrate(context.Background(), migrations.FS); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	return history.NewSQLiteRepository(db.DB)
}

func TestListHistory(t *testing.T) {
	repo := newHistoryRepo(t)
	srv, _ := testServer(t, func(d *Deps) { d.History = repo })
	router := srv.buildRouter()

	base := time.Now().UTC()
	for i := range 3 {
		report := deviceinfo.PassReport{
			ID:          fmt.Sprintf("p%d", i),
			Kind:        deviceinfo.PassRefresh,
			StartedAt:   base.Add(time.Duration(i) * time.Second),
			CompletedAt: base.Add(time.Duration(i)*time.Second + time.Millisecond),
		}
		if err := repo.Record(context.Background(), report, deviceinfo.Properties{}); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}

	w := serve(t, router, http.MethodGet, "/api/v1/device/history?limit=2")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	var resp struct {
		Entries []history.Entry `json:"entries"`
		Count   int             `json:"count"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Count != 2 || resp.Entries[0].PassID != "p2" {
		t.Errorf("history = %+v", resp)
	}

	if w := serve(t, router, http.MethodGet, "/api/v1/device/history?limit=abc"); w.Code != http.StatusBadRequest {
		t.Errorf("bad limit status = %d, want 400", w.Code)
	}
}

func TestListHistory_NotConfigured(t *testing.T) {
	srv, _ := testServer(t)
	if w := serve(t, srv.buildRouter(), http.MethodGet, "/api/v1/device/history"); w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", w.Code)
	}
}

func TestMetrics(t *testing.T) {
	srv, dev := testServer(t)
	dev.report = &deviceinfo.PassReport{
		ID:   "p1",
		Kind: deviceinfo.PassFull,
		Results: []deviceinfo.ProbeResult{
			{Probe: deviceinfo.ProbeCamera, Status: deviceinfo.StatusFailed},
		},
	}

	w := serve(t, srv.buildRouter(), http.MethodGet, "/api/v1/metrics")
	var m SystemMetrics
	if err := json.Unmarshal(w.Body.Bytes(), &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if m.Resolution.LastPassID != "p1" || m.Resolution.Failed != 1 {
		t.Errorf("resolution = %+v", m.Resolution)
	}
	if m.MQTT.Configured || m.Database != nil {
		t.Errorf("unconfigured backends reported: %+v", m)
	}
}

// ─── Refresh ───────────────────────────────────────────────────────

func TestRefresh_Accepted(t *testing.T) {
	srv, dev := testServer(t)
	dev.refreshN = 1

	w := serve(t, srv.buildRouter(), http.MethodPost, "/api/v1/device/refresh")
	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202; body %s", w.Code, w.Body.String())
	}
	var resp passResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.PassID == "" || resp.Kind != deviceinfo.PassRefresh || resp.Expected != 1 {
		t.Errorf("pass = %+v", resp)
	}
}

func TestRefresh_InProgress(t *testing.T) {
	srv, dev := testServer(t)
	dev.refreshN = 1
	router := srv.buildRouter()

	if w := serve(t, router, http.MethodPost, "/api/v1/device/refresh"); w.Code != http.StatusAccepted {
		t.Fatalf("first status = %d, want 202", w.Code)
	}
	w := serve(t, router, http.MethodPost, "/api/v1/device/refresh")
	if w.Code != http.StatusConflict {
		t.Fatalf("second status = %d, want 409", w.Code)
	}
	resp := decode(t, w)
	pass, ok := resp["pass"].(map[string]any)
	if !ok || pass["pass_id"] == "" {
		t.Errorf("conflict body = %v", resp)
	}
}

func TestRefresh_Wait(t *testing.T) {
	srv, _ := testServer(t)

	// Zero probes complete immediately.
	w := serve(t, srv.buildRouter(), http.MethodPost, "/api/v1/device/refresh?wait=true")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body %s", w.Code, w.Body.String())
	}
	var report deviceinfo.PassReport
	if err := json.Unmarshal(w.Body.Bytes(), &report); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if report.ID == "" || report.CompletedAt.IsZero() {
		t.Errorf("report = %+v", report)
	}
}

func TestRefresh_Closed(t *testing.T) {
	srv, dev := testServer(t)
	dev.refreshErr = deviceinfo.ErrClosed
	if w := serve(t, srv.buildRouter(), http.MethodPost, "/api/v1/device/refresh"); w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", w.Code)
	}
}

func bearer(t *testing.T, role auth.Role) string {
	t.Helper()
	token, err := auth.GenerateAccessToken("tester", role, testJWTSecret, 5)
	if err != nil {
		t.Fatalf("GenerateAccessToken() error = %v", err)
	}
	return "Bearer " + token
}

func TestRefresh_Auth(t *testing.T) {
	srv, _ := testServer(t, func(d *Deps) { d.Security.JWT.Enabled = true })
	router := srv.buildRouter()

	tests := []struct {
		name     string
		header   []string
		wantCode int
	}{
		{name: "missing token", wantCode: http.StatusUnauthorized},
		{name: "garbage token", header: []string{"Authorization", "Bearer nope"}, wantCode: http.StatusUnauthorized},
		{name: "viewer", header: []string{"Authorization", bearer(t, auth.RoleViewer)}, wantCode: http.StatusForbidden},
		{name: "operator", header: []string{"Authorization", bearer(t, auth.RoleOperator)}, wantCode: http.StatusAccepted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if w := serve(t, router, http.MethodPost, "/api/v1/device/refresh", tt.header...); w.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", w.Code, tt.wantCode)
			}
		})
	}

	// Reads need a token too, but any role will do.
	if w := serve(t, router, http.MethodGet, "/api/v1/device"); w.Code != http.StatusUnauthorized {
		t.Errorf("read without token status = %d, want 401", w.Code)
	}
	if w := serve(t, router, http.MethodGet, "/api/v1/device", "Authorization", bearer(t, auth.RoleViewer)); w.Code != http.StatusOK {
		t.Errorf("read as viewer status = %d, want 200", w.Code)
	}
}

func TestRefresh_RateLimited(t *testing.T) {
	srv, _ := testServer(t, func(d *Deps) {
		d.Security.RateLimit = config.RateLimitConfig{Enabled: true, RequestsPerMinute: 1, Burst: 2}
	})
	router := srv.buildRouter()

	for i := range 2 {
		if w := serve(t, router, http.MethodPost, "/api/v1/device/refresh"); w.Code != http.StatusAccepted {
			t.Fatalf("request %d status = %d, want 202", i, w.Code)
		}
	}
	w := serve(t, router, http.MethodPost, "/api/v1/device/refresh")
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After header")
	}
}

// ─── WebSocket ─────────────────────────────────────────────────────

func TestWSTicket_SingleUse(t *testing.T) {
	srv, _ := testServer(t)
	w := serve(t, srv.buildRouter(), http.MethodPost, "/api/v1/auth/ws-ticket")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	ticket, ok := decode(t, w)["ticket"].(string)
	if !ok || ticket == "" {
		t.Fatal("expected ticket to be a non-empty string")
	}
	if _, ok := srv.tickets.validate(ticket); !ok {
		t.Error("ticket should be valid on first use")
	}
	if _, ok := srv.tickets.validate(ticket); ok {
		t.Error("ticket should not be valid on second use")
	}
}

func TestWSTicket_Expiry(t *testing.T) {
	ts := newTicketStore()
	ticket := generateTicket()
	ts.tickets[ticket] = ticketEntry{expiresAt: time.Now().Add(-time.Second)}

	if _, ok := ts.validate(ticket); ok {
		t.Error("expired ticket should not be valid")
	}

	ts.tickets["stale"] = ticketEntry{expiresAt: time.Now().Add(-time.Second)}
	ts.cleanExpired()
	if len(ts.tickets) != 0 {
		t.Errorf("cleanExpired left %d tickets", len(ts.tickets))
	}
}

func TestWebSocket_RequiresTicketWithAuth(t *testing.T) {
	srv, _ := testServer(t, func(d *Deps) { d.Security.JWT.Enabled = true })
	if w := serve(t, srv.buildRouter(), http.MethodGet, "/api/v1/ws"); w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
	if w := serve(t, srv.buildRouter(), http.MethodGet, "/api/v1/ws?ticket=bogus"); w.Code != http.StatusUnauthorized {
		t.Errorf("bogus ticket status = %d, want 401", w.Code)
	}
}

func newHubClient(hub *Hub, channels ...string) *WSClient {
	c := newWSClient(hub, nil, "test", func() any { return nil })
	c.setChannels(channels, true)
	return c
}

func TestHub_BroadcastToSubscribed(t *testing.T) {
	hub := NewHub(config.WebSocketConfig{MaxMessageSize: 8192, PingInterval: 30, PongTimeout: 10}, testLogger())

	subscribed := newHubClient(hub, ChannelReadiness)
	other := newHubClient(hub, reporting.ChannelReady)
	hub.Register(subscribed)
	hub.Register(other)

	hub.Broadcast(ChannelReadiness, map[string]any{"ready": true})

	select {
	case msg := <-subscribed.send:
		var wsMsg WSMessage
		if err := json.Unmarshal(msg, &wsMsg); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if wsMsg.Type != WSTypeEvent || wsMsg.Channel != ChannelReadiness {
			t.Errorf("message = %+v, want event on %q", wsMsg, ChannelReadiness)
		}
	default:
		t.Fatal("subscribed client got nothing")
	}

	select {
	case <-other.send:
		t.Error("client on another channel should not receive message")
	default:
	}
}

func TestHub_DropsForFullQueue(t *testing.T) {
	hub := NewHub(config.WebSocketConfig{}, testLogger())
	client := newHubClient(hub, ChannelReadiness)
	hub.Register(client)

	for range wsSendBufferSize + 3 {
		hub.Broadcast(ChannelReadiness, nil)
	}
	if got := hub.Dropped(); got != 3 {
		t.Errorf("Dropped() = %d, want 3", got)
	}
}

func TestHub_UnregisterTwice(t *testing.T) {
	hub := NewHub(config.WebSocketConfig{}, testLogger())
	client := newHubClient(hub, ChannelReadiness)

	hub.Register(client)
	if hub.ClientCount() != 1 {
		t.Errorf("after register count = %d, want 1", hub.ClientCount())
	}
	hub.Unregister(client)
	hub.Unregister(client)
	if hub.ClientCount() != 0 {
		t.Errorf("after unregister count = %d, want 0", hub.ClientCount())
	}

	// A late broadcast to a closed client is counted, not a panic.
	if client.enqueue([]byte("{}")) {
		t.Error("enqueue() on closed client = true")
	}
}

func TestHub_RunDisconnectsOnCancel(t *testing.T) {
	hub := NewHub(config.WebSocketConfig{}, testLogger())
	client := newHubClient(hub)
	hub.Register(client)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(done)
	}()
	cancel()
	<-done

	if hub.ClientCount() != 0 {
		t.Errorf("ClientCount() = %d after shutdown", hub.ClientCount())
	}
	if _, ok := <-client.send; ok {
		t.Error("send queue still open after shutdown")
	}
}

func TestRelayReadiness(t *testing.T) {
	srv, _ := testServer(t)
	client := newHubClient(srv.hub, ChannelReadiness)
	srv.hub.Register(client)

	srv.relayReadiness(deviceinfo.Event{
		Kind: deviceinfo.EventBecameReady,
		Pass: deviceinfo.PassReport{ID: "p9", Kind: deviceinfo.PassRefresh},
	})

	select {
	case msg := <-client.send:
		var wsMsg struct {
			Payload map[string]any `json:"payload"`
		}
		if err := json.Unmarshal(msg, &wsMsg); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if wsMsg.Payload["ready"] != true || wsMsg.Payload["pass_id"] != "p9" {
			t.Errorf("payload = %v", wsMsg.Payload)
		}
	case <-time.After(time.Second):
		t.Fatal("no readiness broadcast")
	}
}

func dialWS(t *testing.T, srv *Server) *websocket.Conn {
	t.Helper()
	ts := httptest.NewServer(srv.buildRouter())
	t.Cleanup(ts.Close)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	resp.Body.Close() //nolint:errcheck // Test cleanup

	t.Cleanup(func() { conn.Close() }) //nolint:errcheck // Test cleanup

	//nolint:errcheck // Test deadline
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	return conn
}

func roundTrip(t *testing.T, conn *websocket.Conn, req WSRequest) WSMessage {
	t.Helper()
	if err := conn.WriteJSON(req); err != nil {
		t.Fatalf("WriteJSON() error = %v", err)
	}
	var msg WSMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	return msg
}

func TestWebSocket_SubscribeAndReceive(t *testing.T) {
	srv, dev := testServer(t)
	srv.unsubscribe = dev.Subscribe(srv.relayReadiness)
	conn := dialWS(t, srv)

	ack := roundTrip(t, conn, WSRequest{Type: WSTypeSubscribe, ID: "1", Channels: []string{ChannelReadiness}})
	if ack.Type != WSTypeResponse || ack.ID != "1" {
		t.Fatalf("ack = %+v", ack)
	}

	dev.emit(deviceinfo.Event{
		Kind: deviceinfo.EventBecameNotReady,
		Pass: deviceinfo.PassReport{ID: "p2", Kind: deviceinfo.PassRefresh},
	})

	var ev WSMessage
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatalf("ReadJSON(event) error = %v", err)
	}
	if ev.Type != WSTypeEvent || ev.Channel != ChannelReadiness {
		t.Errorf("event = %+v", ev)
	}
	payload, ok := ev.Payload.(map[string]any)
	if !ok {
		t.Fatalf("payload = %T, want object", ev.Payload)
	}
	if payload["ready"] != false || payload["pass_id"] != "p2" || payload["kind"] != "refresh" {
		t.Errorf("payload = %v, want not ready for refresh p2", payload)
	}
}

func TestWebSocket_Requests(t *testing.T) {
	srv, _ := testServer(t)
	conn := dialWS(t, srv)

	tests := []struct {
		name     string
		req      WSRequest
		wantType string
	}{
		{"ping", WSRequest{Type: WSTypePing, ID: "p"}, WSTypePong},
		{"snapshot", WSRequest{Type: WSTypeSnapshot, ID: "s"}, WSTypeResponse},
		{"unknown channel", WSRequest{Type: WSTypeSubscribe, ID: "u", Channels: []string{"device.secrets"}}, WSTypeError},
		{"no channels", WSRequest{Type: WSTypeSubscribe, ID: "n"}, WSTypeError},
		{"unsubscribe", WSRequest{Type: WSTypeUnsubscribe, ID: "x", Channels: []string{reporting.ChannelReady}}, WSTypeResponse},
		{"unknown type", WSRequest{Type: "reboot", ID: "r"}, WSTypeError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := roundTrip(t, conn, tt.req)
			if msg.Type != tt.wantType || msg.ID != tt.req.ID {
				t.Errorf("reply = %+v, want type %q id %q", msg, tt.wantType, tt.req.ID)
			}
		})
	}
}

func TestWebSocket_SnapshotCarriesDevice(t *testing.T) {
	srv, _ := testServer(t)
	conn := dialWS(t, srv)

	if err := conn.WriteJSON(WSRequest{Type: WSTypeSnapshot, ID: "s"}); err != nil {
		t.Fatalf("WriteJSON() error = %v", err)
	}
	var msg struct {
		Payload deviceResponse `json:"payload"`
	}
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	if msg.Payload.State == "" {
		t.Errorf("snapshot payload = %+v, want device state", msg.Payload)
	}
}

func TestWebSocket_InvalidJSONKeepsConnection(t *testing.T) {
	srv, _ := testServer(t)
	conn := dialWS(t, srv)

	if err := conn.WriteMessage(websocket.TextMessage, []byte("{not json")); err != nil {
		t.Fatalf("WriteMessage() error = %v", err)
	}
	var msg WSMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	if msg.Type != WSTypeError {
		t.Errorf("reply type = %q, want error", msg.Type)
	}

	if reply := roundTrip(t, conn, WSRequest{Type: WSTypePing}); reply.Type != WSTypePong {
		t.Errorf("after bad frame reply = %+v", reply)
	}
}
