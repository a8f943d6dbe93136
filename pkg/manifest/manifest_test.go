package manifest

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/arcadelab/sessiontape/pkg/config"
)

func TestNewManifest(t *testing.T) {
	cfg := config.Default()
	cfg.Source = "config.yaml"
	now := time.Date(2024, 5, 12, 9, 30, 0, 0, time.Local)

	man := New(Options{
		Name:       "20240512_093000",
		CreatedAt:  now,
		Hostname:   "host",
		AppVersion: "test",
		Config:     cfg,
	})

	if man.SchemaVersion != SchemaVersion {
		t.Fatalf("unexpected schema version: %d", man.SchemaVersion)
	}
	if man.SessionID == "" {
		t.Fatal("expected a session id")
	}
	if man.CreatedAt.Location() != time.UTC {
		t.Fatalf("expected CreatedAt in UTC, got %s", man.CreatedAt.Location())
	}
	if man.Capture.FrameRate != cfg.Capture.FrameRate {
		t.Fatalf("capture frame rate mismatch: %v", man.Capture.FrameRate)
	}
	if man.Artifacts.Video != "20240512_093000.mp4" {
		t.Fatalf("unexpected video artifact: %s", man.Artifacts.Video)
	}
	if man.Artifacts.Events != "20240512_093000_events.jsonl" {
		t.Fatalf("unexpected events artifact: %s", man.Artifacts.Events)
	}
	if man.Outcome.State != StatePending {
		t.Fatalf("expected pending outcome, got %s", man.Outcome.State)
	}
}

func TestManifestIDsAreUnique(t *testing.T) {
	cfg := config.Default()
	opts := Options{Name: "run", CreatedAt: time.Now(), Config: cfg}

	first := New(opts)
	second := New(opts)
	if first.SessionID == second.SessionID {
		t.Fatalf("expected distinct session ids, both %s", first.SessionID)
	}
}

func TestSaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Source = "explicit"
	now := time.Now().UTC().Round(time.Second)

	man := New(Options{
		Name:       "run",
		CreatedAt:  now,
		Hostname:   "host",
		AppVersion: "version",
		Config:     cfg,
	})
	man.Outcome.State = StateCompleted
	man.Outcome.FramesWritten = 42

	path := Path(dir, "run")
	if err := Save(man, path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.SessionID != man.SessionID {
		t.Fatalf("session id mismatch: %s vs %s", loaded.SessionID, man.SessionID)
	}
	if !loaded.CreatedAt.Equal(man.CreatedAt) {
		t.Fatalf("created at mismatch: %s vs %s", loaded.CreatedAt, man.CreatedAt)
	}
	if loaded.Outcome.FramesWritten != 42 {
		t.Fatalf("unexpected frames written: %d", loaded.Outcome.FramesWritten)
	}
}

func TestLoadRejectsCorruptManifest(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "manifest.json")
	if err := os.WriteFile(path, []byte("{broken"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestResolveNameAvoidsCollisions(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2024, 5, 12, 9, 30, 0, 0, time.UTC)

	name, err := ResolveName(dir, now)
	if err != nil {
		t.Fatalf("ResolveName failed: %v", err)
	}
	if name != "20240512_093000" {
		t.Fatalf("unexpected name: %s", name)
	}

	if err := os.WriteFile(Path(dir, name), []byte("{}"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	next, err := ResolveName(dir, now)
	if err != nil {
		t.Fatalf("ResolveName failed: %v", err)
	}
	if next != "20240512_093000_01" {
		t.Fatalf("unexpected collision name: %s", next)
	}
}

func TestResolveNameRejectsEmptyDir(t *testing.T) {
	if _, err := ResolveName("  ", time.Now()); err == nil {
		t.Fatal("expected error for empty sessions directory")
	}
}
