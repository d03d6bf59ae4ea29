package app

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"

	"github.com/alanyoungcy/flipbot/internal/cache/memory"
	"github.com/alanyoungcy/flipbot/internal/cache/redis"
	"github.com/alanyoungcy/flipbot/internal/config"
	"github.com/alanyoungcy/flipbot/internal/persist"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Defaults()
	cfg.Persist.Dir = t.TempDir()
	cfg.Flip.Reforges = []string{"Heroic"}
	return &cfg
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestWireLocalBackends(t *testing.T) {
	cfg := testConfig(t)
	deps, cleanup, err := Wire(context.Background(), cfg, discardLogger())
	if err != nil {
		t.Fatal(err)
	}
	defer cleanup()

	if _, ok := deps.VolumeCache.(*memory.VolumeCache); !ok {
		t.Errorf("VolumeCache = %T, want in-memory", deps.VolumeCache)
	}
	if _, ok := deps.SignalBus.(*memory.SignalBus); !ok {
		t.Errorf("SignalBus = %T, want in-memory", deps.SignalBus)
	}
	if _, ok := deps.SnapshotStore.(*persist.DirStore); !ok {
		t.Errorf("SnapshotStore = %T, want dir", deps.SnapshotStore)
	}
	if _, ok := deps.LockManager.(*memory.LockManager); !ok {
		t.Errorf("LockManager = %T, want in-memory", deps.LockManager)
	}
	if deps.FlipStore != nil || deps.Archiver != nil || deps.SharedLedger != nil {
		t.Error("optional backends wired without configuration")
	}
	if len(deps.HealthChecks) != 0 {
		t.Errorf("HealthChecks = %v", deps.HealthChecks)
	}
}

func TestWireDistributedLockSharesLedger(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig(t)
	cfg.Scan.DistributedLock = true
	cfg.Redis.Addr = mr.Addr()

	deps, cleanup, err := Wire(context.Background(), cfg, discardLogger())
	if err != nil {
		t.Fatal(err)
	}
	defer cleanup()

	if _, ok := deps.LockManager.(*redis.LockManager); !ok {
		t.Errorf("LockManager = %T, want redis", deps.LockManager)
	}
	if _, ok := deps.SharedLedger.(*redis.DedupLedger); !ok {
		t.Errorf("SharedLedger = %T, want redis", deps.SharedLedger)
	}
	if _, ok := deps.VolumeCache.(*memory.VolumeCache); !ok {
		t.Errorf("VolumeCache = %T, want in-memory", deps.VolumeCache)
	}
}

func TestBackendSelection(t *testing.T) {
	cfg := config.Defaults()
	if needsRedis(&cfg) || needsS3(&cfg) {
		t.Fatal("defaults should need neither redis nor s3")
	}
	cfg.Scan.DistributedLock = true
	cfg.Archive.Enabled = true
	if !needsRedis(&cfg) || !needsS3(&cfg) {
		t.Error("lock and archive should pull in redis and s3")
	}
}

func TestBuildEngineRestoresSnapshots(t *testing.T) {
	cfg := testConfig(t)
	if err := os.WriteFile(filepath.Join(cfg.Persist.Dir, persist.LedgerFile), []byte(`["a","b"]`), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(cfg.Persist.Dir, persist.NameCacheFile), []byte(`{"Heroic Hyperion":"Hyperion"}`), 0o644); err != nil {
		t.Fatal(err)
	}

	a := New(cfg, discardLogger())
	deps, cleanup, err := Wire(context.Background(), cfg, discardLogger())
	if err != nil {
		t.Fatal(err)
	}
	defer cleanup()

	eng, err := a.buildEngine(context.Background(), deps)
	if err != nil {
		t.Fatal(err)
	}
	if eng.ledger.Len() != 2 || eng.ledger.ShouldReport("a") {
		t.Errorf("ledger not restored: len=%d", eng.ledger.Len())
	}
	if eng.normalizer.Len() != 1 {
		t.Errorf("name cache not restored: len=%d", eng.normalizer.Len())
	}
	if eng.archiver != nil {
		t.Error("archiver built without archive config")
	}

	eng.ledger.MarkReported("c")
	a.finalSave(eng)
	data, err := os.ReadFile(filepath.Join(cfg.Persist.Dir, persist.LedgerFile))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `["a","b","c"]` {
		t.Errorf("saved ledger = %s", data)
	}
	gauges := eng.gauges()
	if gauges["ledger_size"]() != 3 {
		t.Errorf("ledger_size gauge = %d", gauges["ledger_size"]())
	}
}

func TestBuildEngineRejectsBadThresholds(t *testing.T) {
	cfg := testConfig(t)
	cfg.Flip.MinListings = 1
	deps, cleanup, err := Wire(context.Background(), cfg, discardLogger())
	if err != nil {
		t.Fatal(err)
	}
	defer cleanup()
	if _, err := New(cfg, discardLogger()).buildEngine(context.Background(), deps); err == nil {
		t.Error("expected threshold validation error")
	}
}
