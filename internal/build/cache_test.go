package build

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/goplus/modbuilder/internal/config"
	"github.com/goplus/modbuilder/internal/env"
	"github.com/goplus/modbuilder/internal/reconcile"
)

func request(t *testing.T, optimize int, libs ...string) *reconcile.Request {
	t.Helper()
	cfg, err := config.Parse([]byte("module_name = demo\n"))
	if err != nil {
		t.Fatal(err)
	}
	req, err := reconcile.Reconcile(context.Background(), cfg, reconcile.Args{}, &env.Facts{Optimize: optimize, Libraries: libs})
	if err != nil {
		t.Fatal(err)
	}
	return req
}

func TestSaveAndLoadStamp(t *testing.T) {
	dir := t.TempDir()
	now := time.Now().Truncate(time.Second)

	if err := saveStamp(dir, newStamp(request(t, 3, "eigen"), now)); err != nil {
		t.Fatalf("saveStamp failed: %v", err)
	}

	loaded, err := loadStamp(dir)
	if err != nil {
		t.Fatalf("loadStamp failed: %v", err)
	}
	if loaded.ModuleName != "demo" || loaded.Optimize != 3 {
		t.Errorf("loaded = %+v", loaded)
	}
	if len(loaded.Libraries) != 1 || loaded.Libraries[0] != "eigen" {
		t.Errorf("Libraries = %v", loaded.Libraries)
	}
	if !loaded.BuildTime.Equal(now) {
		t.Errorf("BuildTime mismatch: got %v, want %v", loaded.BuildTime, now)
	}
}

func TestLoadStamp_NotExist(t *testing.T) {
	if _, err := loadStamp(t.TempDir()); !os.IsNotExist(err) {
		t.Fatalf("loadStamp err = %v, want not-exist", err)
	}
}

func TestLoadStamp_InvalidJSON(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, stampFile), []byte("invalid json"), 0644); err != nil {
		t.Fatalf("failed to write test file: %v", err)
	}
	if _, err := loadStamp(dir); err == nil {
		t.Fatal("expected error for invalid JSON, got nil")
	}
}

func TestStampChanges(t *testing.T) {
	stamp := newStamp(request(t, 3, "eigen"), time.Now())

	if got := stamp.changes(request(t, 3, "eigen")); len(got) != 0 {
		t.Errorf("changes = %v, want none", got)
	}
	got := stamp.changes(request(t, 2))
	if len(got) != 2 || got[0] != "optimize" || got[1] != "libraries" {
		t.Errorf("changes = %v, want [optimize libraries]", got)
	}
}
