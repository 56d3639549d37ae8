package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"scalper-core/internal/events"
	"scalper-core/pkg/config"
	"scalper-core/pkg/db"
)

const testWatchlist = `instruments:
  - token: 1
    symbol: RELIANCE
    margin: 5
  - token: 2
    symbol: TCS
    margin: 5
`

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	watch := filepath.Join(dir, "instruments.yaml")
	if err := os.WriteFile(watch, []byte(testWatchlist), 0o644); err != nil {
		t.Fatalf("write watchlist: %v", err)
	}
	return &config.Config{
		Port:            "0",
		DBPath:          filepath.Join(dir, "test.db"),
		UseMockFeed:     true,
		UsePaperGateway: true,
		PaperBalance:    100000,
		InstrumentFile:  watch,

		EntryTriggerPct:       0.35,
		MaxRiskPctPerTrade:    1.0,
		MaxPositionInvestment: 50000,
		MinPositionInvestment: 5000,
		PositionStoplossPct:   0.5,
		PositionTargetPct:     0.75,
		AccountStoplossPct:    5.0,
		AccountTargetSLPct:    2.0,
		AccountTargetPct:      10.0,
		EntryTimeStart:        "00:00:00",
		EntryTimeEnd:          "23:59:58",
		ExitTime:              "23:59:59",
	}
}

func openDB(t *testing.T, cfg *config.Config) *db.Database {
	t.Helper()
	database, err := db.New(cfg.DBPath)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	if err := db.ApplyMigrations(database); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return database
}

func TestNewSeedsSession(t *testing.T) {
	cfg := testConfig(t)
	database := openDB(t, cfg)
	ctx := context.Background()

	eng, err := New(ctx, cfg, database, events.NewBus())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	// Controls row seeded from compiled defaults.
	ctl, err := database.GetControls(ctx)
	if err != nil {
		t.Fatalf("controls not seeded: %v", err)
	}
	if ctl.EntryTriggerPct != 0.35 || ctl.ExitTime != "23:59:59" {
		t.Fatalf("seeded controls = %+v", ctl)
	}

	// Universe seeded from the watchlist file.
	rows, err := database.ListActiveInstruments(ctx)
	if err != nil || len(rows) != 2 {
		t.Fatalf("instruments = %v (err %v), want 2", rows, err)
	}

	// Paper mode gets a synthetic account with the configured balance.
	snaps := eng.Snapshots()
	if len(snaps) != 1 {
		t.Fatalf("accounts = %d, want 1", len(snaps))
	}
	if snaps[0].InitialValue != 100000 || snaps[0].CurrentValue != 100000 {
		t.Fatalf("snapshot = %+v", snaps[0])
	}
	if !eng.EntriesAllowed() {
		t.Fatal("entries blocked at session start")
	}
	if len(eng.Positions()) != 0 {
		t.Fatal("positions open at session start")
	}
}

func TestStoredControlsOverrideDefaults(t *testing.T) {
	cfg := testConfig(t)
	database := openDB(t, cfg)
	ctx := context.Background()

	stored := db.Controls{
		EntryTriggerPct:       0.50,
		MaxRiskPctPerTrade:    2.0,
		MaxPositionInvestment: 25000,
		MinPositionInvestment: 5000,
		PositionStoplossPct:   1.0,
		PositionTargetPct:     1.5,
		AccountStoplossPct:    4.0,
		AccountTargetSLPct:    1.0,
		AccountTargetPct:      8.0,
		EntryTimeStart:        "00:00:00",
		EntryTimeEnd:          "23:59:58",
		ExitTime:              "23:59:59",
	}
	if err := database.UpsertControls(ctx, stored); err != nil {
		t.Fatalf("upsert controls: %v", err)
	}

	eng, err := New(ctx, cfg, database, events.NewBus())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got := eng.Controls(); got.EntryTriggerPct != 0.50 || got.MaxRiskPctPerTrade != 2.0 {
		t.Fatalf("controls = %+v, want stored row", got)
	}
}

func TestStartAndShutdown(t *testing.T) {
	cfg := testConfig(t)
	database := openDB(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	eng, err := New(ctx, cfg, database, events.NewBus())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	eng.Start(ctx)
	time.Sleep(50 * time.Millisecond)
	cancel()
	time.Sleep(50 * time.Millisecond)
}
