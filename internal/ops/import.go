package ops

import (
	"bufio"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"

	"github.com/mocho-app/mocho/internal/config"
	"github.com/mocho-app/mocho/internal/cycle"
	"github.com/mocho-app/mocho/internal/db"
	"github.com/mocho-app/mocho/internal/errors"
)

// ImportMode controls how existing history is treated during import.
type ImportMode string

const (
	ImportModeMerge   ImportMode = "merge"   // keep history, skip events whose ID exists
	ImportModeReplace ImportMode = "replace" // clear history first
)

// maxImportLine bounds a single JSONL line.
const maxImportLine = 1 << 20

// ImportInput contains parameters for the Import operation.
type ImportInput struct {
	Path string     // required
	Mode ImportMode // default: merge
}

// ImportOutput contains the result of the Import operation.
type ImportOutput struct {
	Record   bool          `json:"record"`
	Imported int           `json:"imported"`
	Skipped  int           `json:"skipped"`
	Removed  int64         `json:"removed"`
	Errors   []ImportError `json:"errors"`
}

// ImportError describes a line that could not be imported.
type ImportError struct {
	Line    int    `json:"line"`
	ID      string `json:"id,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// parsedExport is the validated content of an export file.
type parsedExport struct {
	record []byte // re-encoded, nil when the file has no record line
	events []cycle.Event
}

// Import loads an export file. The record line replaces the stored record.
// Any invalid line aborts the import with nothing written; otherwise all
// changes are applied in one transaction. Callers holding a Session must
// Reload it afterwards.
func Import(ctx context.Context, database *sql.DB, cfg *config.Config, input ImportInput) (*ImportOutput, error) {
	if input.Mode == "" {
		input.Mode = ImportModeMerge
	}
	if input.Mode != ImportModeMerge && input.Mode != ImportModeReplace {
		return nil, errors.NewInvalidRequest("mode must be one of: merge, replace")
	}
	if err := ValidatePath(input.Path, PathCheckRead, cfg); err != nil {
		return nil, err
	}

	file, err := openFileNoFollowRead(input.Path)
	if err != nil {
		if _, ok := err.(*errors.MochoError); ok {
			return nil, err
		}
		return nil, errors.NewInternal(fmt.Errorf("failed to open import file: %w", err))
	}
	defer file.Close()

	parsed, parseErrors := parseExportFile(file)
	if len(parseErrors) > 0 {
		return &ImportOutput{Errors: parseErrors}, nil
	}

	tx, err := database.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer tx.Rollback() //nolint:errcheck

	out := &ImportOutput{Errors: []ImportError{}}

	if input.Mode == ImportModeReplace {
		if out.Removed, err = db.DeleteEvents(ctx, tx); err != nil {
			return nil, err
		}
	}

	if parsed.record != nil {
		if err := db.WriteRecord(ctx, tx, cycle.RecordKey, parsed.record); err != nil {
			return nil, err
		}
		out.Record = true
	}

	for _, e := range parsed.events {
		if ctx.Err() != nil {
			return nil, errors.NewCancelled("import")
		}
		err := db.InsertEvent(ctx, tx, e)
		if err == db.ErrUniqueConstraint {
			out.Skipped++
			continue
		}
		if err != nil {
			return nil, err
		}
		out.Imported++
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return out, nil
}

// parseExportFile reads and validates every line of an export file.
func parseExportFile(r io.Reader) (*parsedExport, []ImportError) {
	parsed := &parsedExport{}
	var parseErrors []ImportError
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxImportLine)
	lineNum := 0
	sawHeader := false

	fail := func(id, code, msg string) {
		parseErrors = append(parseErrors, ImportError{Line: lineNum, ID: id, Code: code, Message: msg})
	}

	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var header ExportHeader
		if err := json.Unmarshal(line, &header); err != nil {
			fail("", "PARSE_ERROR", fmt.Sprintf("invalid JSON: %v", err))
			continue
		}
		if header.MochoExport {
			sawHeader = true
			continue
		}

		var el ExportLine
		if err := json.Unmarshal(line, &el); err != nil {
			fail("", "PARSE_ERROR", fmt.Sprintf("invalid JSON: %v", err))
			continue
		}

		switch el.Type {
		case LineRecord:
			if parsed.record != nil {
				fail("", "INVALID_RECORD", "more than one record line")
				continue
			}
			rec, err := cycle.Decode(el.Record)
			if err != nil {
				fail("", "INVALID_RECORD", err.Error())
				continue
			}
			data, err := cycle.Encode(rec)
			if err != nil {
				fail("", "INVALID_RECORD", err.Error())
				continue
			}
			parsed.record = data

		case LineEvent:
			e := el.Event
			switch {
			case e == nil || e.ID == "":
				fail("", "INVALID_EVENT", "missing event id")
			case !cycle.ValidEventKind(e.Kind):
				fail(e.ID, "INVALID_EVENT", fmt.Sprintf("unknown event kind %q", e.Kind))
			case e.Date.IsZero():
				fail(e.ID, "INVALID_EVENT", "missing event date")
			case seen[e.ID]:
				fail(e.ID, "DUPLICATE_EVENT", "event id appears more than once")
			default:
				seen[e.ID] = true
				parsed.events = append(parsed.events, *e)
			}

		default:
			fail("", "INVALID_LINE", fmt.Sprintf("unknown line type %q", el.Type))
		}
	}

	if err := scanner.Err(); err != nil {
		fail("", "READ_ERROR", fmt.Sprintf("failed to read file: %v", err))
	}
	if !sawHeader && len(parseErrors) == 0 {
		lineNum = 1
		fail("", "MISSING_HEADER", "file is not a mocho export")
	}

	return parsed, parseErrors
}
