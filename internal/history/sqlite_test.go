package history

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nerrad567/devicekit/internal/deviceinfo"
	"github.com/nerrad567/devicekit/internal/infrastructure/database"
	"github.com/nerrad567/devicekit/migrations"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	db, err := database.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory() error = %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // Test cleanup

	if _, err := db.Migrate(context.Background(), migrations.FS); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	return NewSQLiteRepository(db.DB)
}

func report(id string, kind deviceinfo.PassKind, completed time.Time) deviceinfo.PassReport {
	return deviceinfo.PassReport{
		ID:          id,
		Kind:        kind,
		StartedAt:   completed.Add(-50 * time.Millisecond),
		CompletedAt: completed,
		Expected:    1,
		Results: []deviceinfo.ProbeResult{
			{Probe: deviceinfo.ProbePower, Status: deviceinfo.StatusOK, Duration: time.Millisecond},
		},
	}
}

func TestRecordAndList(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	props := deviceinfo.Properties{
		DeviceID: deviceinfo.DeviceID{Value: "dev-1", Status: deviceinfo.IDResolved},
		Power:    deviceinfo.PowerInfo{ChargePercent: 55, HasBatteryInfo: true},
		Screen:   deviceinfo.Screen{Resolution: deviceinfo.ResolutionHD720},
	}
	// Whole-second and fractional timestamps must still order correctly.
	if err := repo.Record(ctx, report("p1", deviceinfo.PassFull, base), props); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if err := repo.Record(ctx, report("p2", deviceinfo.PassRefresh, base.Add(1500*time.Millisecond)), props); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if err := repo.Record(ctx, report("p3", deviceinfo.PassRefresh, base.Add(time.Second)), props); err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	entries, err := repo.List(ctx, 10)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("List() returned %d entries, want 3", len(entries))
	}
	order := []string{entries[0].PassID, entries[1].PassID, entries[2].PassID}
	if order[0] != "p2" || order[1] != "p3" || order[2] != "p1" {
		t.Errorf("order = %v, want [p2 p3 p1]", order)
	}

	e := entries[2]
	if e.Kind != deviceinfo.PassFull || e.DeviceID != "dev-1" {
		t.Errorf("entry = %+v", e)
	}
	if e.Properties.Screen.Resolution != deviceinfo.ResolutionHD720 || e.Properties.Power.ChargePercent != 55 {
		t.Errorf("properties = %+v", e.Properties)
	}
	if len(e.Results) != 1 || e.Results[0].Status != deviceinfo.StatusOK {
		t.Errorf("results = %+v", e.Results)
	}
	if !e.CompletedAt.Equal(base) {
		t.Errorf("CompletedAt = %v, want %v", e.CompletedAt, base)
	}
}

func TestLatest(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if _, err := repo.Latest(ctx); !errors.Is(err, ErrNotFound) {
		t.Errorf("Latest() on empty repo error = %v, want ErrNotFound", err)
	}

	now := time.Now().UTC()
	_ = repo.Record(ctx, report("old", deviceinfo.PassFull, now.Add(-time.Minute)), deviceinfo.Properties{})
	_ = repo.Record(ctx, report("new", deviceinfo.PassRefresh, now), deviceinfo.Properties{})

	e, err := repo.Latest(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if e.PassID != "new" {
		t.Errorf("Latest() = %s, want new", e.PassID)
	}
}

func TestRecordValidation(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if err := repo.Record(ctx, deviceinfo.PassReport{}, deviceinfo.Properties{}); err == nil {
		t.Error("Record() without pass id should fail")
	}
	r := report("dup", deviceinfo.PassFull, time.Now())
	if err := repo.Record(ctx, r, deviceinfo.Properties{}); err != nil {
		t.Fatal(err)
	}
	if err := repo.Record(ctx, r, deviceinfo.Properties{}); err == nil {
		t.Error("Record() of a duplicate pass id should fail")
	}
}

func TestPrune(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	now := time.Now().UTC()

	_ = repo.Record(ctx, report("ancient", deviceinfo.PassFull, now.Add(-48*time.Hour)), deviceinfo.Properties{})
	_ = repo.Record(ctx, report("recent", deviceinfo.PassRefresh, now), deviceinfo.Properties{})

	n, err := repo.Prune(ctx, 24*time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("Prune() removed %d, want 1", n)
	}
	if _, err := repo.Prune(ctx, 0); err == nil {
		t.Error("Prune(0) should fail")
	}

	entries, _ := repo.List(ctx, 0)
	if len(entries) != 1 || entries[0].PassID != "recent" {
		t.Errorf("remaining = %+v", entries)
	}
}
