package ops

import (
	"bufio"
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/mocho-app/mocho/internal/config"
	"github.com/mocho-app/mocho/internal/cycle"
	"github.com/mocho-app/mocho/internal/db"
	"github.com/mocho-app/mocho/internal/errors"
)

// ExportSchemaVersion is written to the header of every export file.
const ExportSchemaVersion = "1.0"

// Export line types following the header.
const (
	LineRecord = "record"
	LineEvent  = "event"
)

// ExportInput contains parameters for the Export operation.
type ExportInput struct {
	Path string // optional, default: ~/.mocho/exports/mocho-<timestamp>.jsonl
}

// ExportOutput contains the result of the Export operation.
type ExportOutput struct {
	Path       string `json:"path"`
	Record     bool   `json:"record"`
	Events     int    `json:"events"`
	ExportedAt int64  `json:"exported_at"`
}

// ExportHeader is the first line of a JSONL export file.
type ExportHeader struct {
	MochoExport   bool   `json:"_mocho_export"`
	SchemaVersion string `json:"schema_version"`
	ExportedAt    int64  `json:"exported_at"`
}

// ExportLine is every line after the header: the cycle record or one event.
type ExportLine struct {
	Type   string          `json:"type"`
	Key    string          `json:"key,omitempty"`
	Record json.RawMessage `json:"record,omitempty"`
	Event  *cycle.Event    `json:"event,omitempty"`
}

// Export writes the stored record and the full history to a JSONL file.
// The file is written to a temp path and renamed into place, so an existing
// export survives a failed run.
func Export(ctx context.Context, database *sql.DB, cfg *config.Config, input ExportInput) (*ExportOutput, error) {
	now := time.Now()
	exportedAt := now.Unix()

	exportPath := input.Path
	if exportPath == "" {
		var err error
		exportPath, err = defaultExportPath(now)
		if err != nil {
			return nil, err
		}
	}
	if err := ValidatePath(exportPath, PathCheckWrite, cfg); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(exportPath), 0700); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to create export directory: %w", err))
	}

	randBytes := make([]byte, 8)
	if _, err := rand.Read(randBytes); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to generate temp file name: %w", err))
	}
	tempPath := exportPath + "." + hex.EncodeToString(randBytes) + ".tmp"
	file, err := openFileNoFollow(tempPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to create export file: %w", err))
	}

	success := false
	defer func() {
		if file != nil {
			file.Close()
		}
		if !success {
			os.Remove(tempPath)
		}
	}()

	w := bufio.NewWriter(file)
	enc := json.NewEncoder(w)

	if err := enc.Encode(ExportHeader{MochoExport: true, SchemaVersion: ExportSchemaVersion, ExportedAt: exportedAt}); err != nil {
		return nil, errors.NewInternal(err)
	}

	out := &ExportOutput{Path: exportPath, ExportedAt: exportedAt}

	raw, found, err := db.ReadRecord(ctx, database, cycle.RecordKey)
	if err != nil {
		return nil, err
	}
	if found {
		if !json.Valid(raw) {
			return nil, errors.NewStoreRead(cycle.RecordKey, fmt.Errorf("stored record is not valid JSON"))
		}
		if err := enc.Encode(ExportLine{Type: LineRecord, Key: cycle.RecordKey, Record: raw}); err != nil {
			return nil, errors.NewInternal(err)
		}
		out.Record = true
	}

	rows, err := db.StreamEvents(ctx, database)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		select {
		case <-ctx.Done():
			return nil, errors.NewCancelled("export")
		default:
		}

		e, err := db.ScanEventFromRows(rows)
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		if err := enc.Encode(ExportLine{Type: LineEvent, Event: e}); err != nil {
			return nil, errors.NewInternal(err)
		}
		out.Events++
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}

	if err := w.Flush(); err != nil {
		return nil, errors.NewInternal(err)
	}
	if err := file.Sync(); err != nil {
		return nil, errors.NewInternal(err)
	}
	// Close before rename; Windows cannot rename an open file.
	if err := file.Close(); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to close export file: %w", err))
	}
	file = nil

	// os.Rename would follow a symlink planted at the destination.
	if isSymlink(exportPath) {
		return nil, errors.NewInternal(fmt.Errorf("export path is a symlink"))
	}
	if err := os.Rename(tempPath, exportPath); err != nil {
		if runtime.GOOS == "windows" {
			if _, statErr := os.Stat(exportPath); statErr == nil {
				return nil, errors.NewInvalidRequest("export destination already exists; choose a new path or delete the existing file")
			}
		}
		return nil, errors.NewInternal(fmt.Errorf("failed to finalize export: %w", err))
	}

	success = true
	return out, nil
}

// defaultExportPath returns ~/.mocho/exports/mocho-<timestamp>.jsonl.
func defaultExportPath(now time.Time) (string, error) {
	dir, err := DefaultExportsDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, fmt.Sprintf("mocho-%s.jsonl", now.Format("2006-01-02T150405"))), nil
}
