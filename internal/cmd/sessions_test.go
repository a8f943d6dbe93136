package cmd

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"github.com/arcadelab/sessiontape/pkg/catalog"
	"github.com/arcadelab/sessiontape/pkg/config"
)

func seedCatalog(t *testing.T, cfg config.Config) string {
	t.Helper()
	db, err := catalog.Open(cfg.Paths.CatalogPath)
	if err != nil {
		t.Fatalf("open catalog: %v", err)
	}
	defer db.Close()

	store := catalog.NewStore(db)
	sess := catalog.Session{
		ID:            "sess-1",
		Name:          "20240512_093000",
		CreatedAt:     time.Date(2024, 5, 12, 9, 30, 0, 0, time.UTC),
		FrameRate:     10,
		State:         "completed",
		FramesWritten: 120,
	}
	if err := store.InsertSession(context.Background(), sess); err != nil {
		t.Fatalf("seed session: %v", err)
	}
	return sess.ID
}

func TestSessionsCommandListsCatalog(t *testing.T) {
	cfg := newTestConfig(t)
	id := seedCatalog(t, cfg)
	ctx := &AppContext{Config: cfg, Logger: newTestLogger()}

	fs := parseCommandFlags(t, newSessionsCommand(), nil)

	var stdout bytes.Buffer
	if err := runSessions(fs, nil, ctx, &stdout, io.Discard); err != nil {
		t.Fatalf("runSessions returned error: %v", err)
	}

	if !bytes.Contains(stdout.Bytes(), []byte(id)) {
		t.Fatalf("expected session id in listing, got %q", stdout.String())
	}
	if !bytes.Contains(stdout.Bytes(), []byte("20240512_093000")) {
		t.Fatalf("expected session name in listing, got %q", stdout.String())
	}
}

func TestSessionsCommandEmptyCatalog(t *testing.T) {
	cfg := newTestConfig(t)
	ctx := &AppContext{Config: cfg, Logger: newTestLogger()}

	fs := parseCommandFlags(t, newSessionsCommand(), nil)

	var stdout bytes.Buffer
	if err := runSessions(fs, nil, ctx, &stdout, io.Discard); err != nil {
		t.Fatalf("runSessions returned error: %v", err)
	}
	if !bytes.Contains(stdout.Bytes(), []byte("No sessions recorded yet.")) {
		t.Fatalf("expected empty notice, got %q", stdout.String())
	}
}

func TestSessionsCommandAnnotatesFight(t *testing.T) {
	cfg := newTestConfig(t)
	id := seedCatalog(t, cfg)
	ctx := &AppContext{Config: cfg, Logger: newTestLogger()}

	fs := parseCommandFlags(t, newSessionsCommand(), []string{"-id", id, "-boss", "Grim", "-outcome", "win"})
	if err := runSessions(fs, nil, ctx, io.Discard, io.Discard); err != nil {
		t.Fatalf("runSessions returned error: %v", err)
	}

	// Partial annotation flags are rejected.
	fs = parseCommandFlags(t, newSessionsCommand(), []string{"-boss", "Grim"})
	if err := runSessions(fs, nil, ctx, io.Discard, io.Discard); err == nil {
		t.Fatal("expected error for incomplete annotation flags")
	}
}

func TestReportCommandAggregates(t *testing.T) {
	cfg := newTestConfig(t)
	id := seedCatalog(t, cfg)
	ctx := &AppContext{Config: cfg, Logger: newTestLogger()}

	db, err := catalog.Open(cfg.Paths.CatalogPath)
	if err != nil {
		t.Fatalf("open catalog: %v", err)
	}
	store := catalog.NewStore(db)
	outcomes := []string{catalog.OutcomeLoss, catalog.OutcomeLoss, catalog.OutcomeWin}
	for _, outcome := range outcomes {
		if err := store.InsertFight(context.Background(), catalog.Fight{
			SessionID: id,
			Boss:      "grim",
			Outcome:   outcome,
			CreatedAt: time.Now(),
		}); err != nil {
			t.Fatalf("seed fight: %v", err)
		}
	}
	db.Close()

	fs := parseCommandFlags(t, newReportCommand(), nil)

	var stdout bytes.Buffer
	if err := runReport(fs, nil, ctx, &stdout, io.Discard); err != nil {
		t.Fatalf("runReport returned error: %v", err)
	}

	if !bytes.Contains(stdout.Bytes(), []byte("grim")) {
		t.Fatalf("expected boss row, got %q", stdout.String())
	}
	if !bytes.Contains(stdout.Bytes(), []byte("wins=  1 losses=  2")) {
		t.Fatalf("expected win/loss counts, got %q", stdout.String())
	}
	if !bytes.Contains(stdout.Bytes(), []byte("Overall: 3 fights")) {
		t.Fatalf("expected overall summary, got %q", stdout.String())
	}
}

func TestReportCommandEmpty(t *testing.T) {
	cfg := newTestConfig(t)
	ctx := &AppContext{Config: cfg, Logger: newTestLogger()}

	fs := parseCommandFlags(t, newReportCommand(), nil)

	var stdout bytes.Buffer
	if err := runReport(fs, nil, ctx, &stdout, io.Discard); err != nil {
		t.Fatalf("runReport returned error: %v", err)
	}
	if !bytes.Contains(stdout.Bytes(), []byte("No fight outcomes recorded yet.")) {
		t.Fatalf("expected empty notice, got %q", stdout.String())
	}
}
