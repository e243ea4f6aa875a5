package ops

import (
	"bufio"
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mocho-app/mocho/internal/config"
	"github.com/mocho-app/mocho/internal/cycle"
	"github.com/mocho-app/mocho/internal/db"
	"github.com/mocho-app/mocho/internal/errors"
)

// setupExportDB returns a database plus a config whose allowed_paths
// includes the database directory.
func setupExportDB(t *testing.T) (*sql.DB, *config.Config, string) {
	t.Helper()
	tmpDir := t.TempDir()
	database, err := db.Init(tmpDir)
	if err != nil {
		t.Fatalf("db.Init failed: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	cfg := config.DefaultConfig()
	cfg.AllowedPaths = []string{tmpDir}
	return database, cfg, tmpDir
}

// seedHistory logs a period and a pregnancy through a Session.
func seedHistory(t *testing.T, database *sql.DB) {
	t.Helper()
	ctx := context.Background()
	store := db.NewStore(database)
	s := Open(ctx, store, store, nil)
	if _, err := s.LogPeriod(ctx, day(2025, time.January, 1)); err != nil {
		t.Fatalf("LogPeriod failed: %v", err)
	}
	if _, err := s.LogPregnancy(ctx, day(2025, time.February, 20)); err != nil {
		t.Fatalf("LogPregnancy failed: %v", err)
	}
}

func readLines(t *testing.T, path string) []map[string]any {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open export: %v", err)
	}
	defer f.Close()

	var lines []map[string]any
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var m map[string]any
		if err := json.Unmarshal(scanner.Bytes(), &m); err != nil {
			t.Fatalf("line %d is not JSON: %v", len(lines)+1, err)
		}
		lines = append(lines, m)
	}
	return lines
}

func TestExport_HappyPath(t *testing.T) {
	database, cfg, tmpDir := setupExportDB(t)
	seedHistory(t, database)

	exportPath := filepath.Join(tmpDir, "export.jsonl")
	out, err := Export(context.Background(), database, cfg, ExportInput{Path: exportPath})
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if out.Path != exportPath || !out.Record || out.Events != 2 || out.ExportedAt == 0 {
		t.Errorf("Export() = %+v", out)
	}

	lines := readLines(t, exportPath)
	if len(lines) != 4 {
		t.Fatalf("export has %d lines, want header + record + 2 events", len(lines))
	}
	if lines[0]["_mocho_export"] != true || lines[0]["schema_version"] != ExportSchemaVersion {
		t.Errorf("header = %v", lines[0])
	}
	if lines[1]["type"] != LineRecord || lines[1]["key"] != cycle.RecordKey {
		t.Errorf("record line = %v", lines[1])
	}
	rec := lines[1]["record"].(map[string]any)
	if rec["isPregnant"] != true || rec["lastPeriodDate"] != "2025-01-01" {
		t.Errorf("record = %v", rec)
	}
	first := lines[2]["event"].(map[string]any)
	if lines[2]["type"] != LineEvent || first["kind"] != "period" {
		t.Errorf("events not oldest first: %v", lines[2])
	}
}

func TestExport_EmptyStore(t *testing.T) {
	database, cfg, tmpDir := setupExportDB(t)

	out, err := Export(context.Background(), database, cfg, ExportInput{Path: filepath.Join(tmpDir, "empty.jsonl")})
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if out.Record || out.Events != 0 {
		t.Errorf("Export() = %+v, want header only", out)
	}
	if lines := readLines(t, out.Path); len(lines) != 1 {
		t.Errorf("export has %d lines, want 1", len(lines))
	}
}

func TestExport_RejectsPathOutsideAllowedDirs(t *testing.T) {
	database, cfg, _ := setupExportDB(t)
	outside := filepath.Join(t.TempDir(), "x.jsonl")

	_, err := Export(context.Background(), database, cfg, ExportInput{Path: outside})
	if !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("Export() error = %v, want INVALID_REQUEST", err)
	}
	if _, statErr := os.Stat(outside); !os.IsNotExist(statErr) {
		t.Error("file written outside allowed directories")
	}
}

func TestExport_LeavesNoTempFiles(t *testing.T) {
	database, cfg, tmpDir := setupExportDB(t)
	seedHistory(t, database)

	if _, err := Export(context.Background(), database, cfg, ExportInput{Path: filepath.Join(tmpDir, "a.jsonl")}); err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	matches, _ := filepath.Glob(filepath.Join(tmpDir, "*.tmp"))
	if len(matches) != 0 {
		t.Errorf("temp files left behind: %v", matches)
	}
}

func TestExport_Cancelled(t *testing.T) {
	database, cfg, tmpDir := setupExportDB(t)
	seedHistory(t, database)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	exportPath := filepath.Join(tmpDir, "cancelled.jsonl")
	_, err := Export(ctx, database, cfg, ExportInput{Path: exportPath})
	if err == nil {
		t.Fatal("Export() with cancelled context succeeded")
	}
	if _, statErr := os.Stat(exportPath); !os.IsNotExist(statErr) {
		t.Error("cancelled export left a file at the destination")
	}
}
