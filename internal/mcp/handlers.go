package mcp

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"

	"github.com/mocho-app/mocho/internal/config"
	"github.com/mocho-app/mocho/internal/errors"
	"github.com/mocho-app/mocho/internal/logging"
	"github.com/mocho-app/mocho/internal/ops"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	session *ops.Session
	db      *sql.DB
	cfg     *config.Config
	logger  *zap.Logger
	now     func() time.Time
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(session *ops.Session, db *sql.DB, cfg *config.Config, logger *zap.Logger) *Handlers {
	return &Handlers{
		session: session,
		db:      db,
		cfg:     cfg,
		logger:  logging.OrNop(logger),
		now:     time.Now,
	}
}

// Request types for each tool

// DateRequest represents the arguments for tools that act on a single day.
type DateRequest struct {
	Date string `json:"date,omitempty"`
}

// SettingsRequest represents the arguments for cycle_settings.
type SettingsRequest struct {
	CycleLengthDays  *int   `json:"cycle_length_days,omitempty"`
	PeriodLengthDays *int   `json:"period_length_days,omitempty"`
	Date             string `json:"date,omitempty"`
}

// HistoryRequest represents the arguments for cycle_history.
type HistoryRequest struct {
	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`
}

// ExportRequest represents the arguments for cycle_export.
type ExportRequest struct {
	Path string `json:"path,omitempty"`
}

// ImportRequest represents the arguments for cycle_import.
type ImportRequest struct {
	Path string `json:"path"`
	Mode string `json:"mode,omitempty"`
}

// TipRequest represents the arguments for pregnancy_tip.
type TipRequest struct {
	Week *int   `json:"week,omitempty"`
	Date string `json:"date,omitempty"`
}

// Handler implementations

// HandleStatus handles the cycle_status tool call.
func (h *Handlers) HandleStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[DateRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	today, err := ops.ResolveDate(input.Date, h.now())
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(h.session.Status(today))
}

// HandleLogPeriod handles the cycle_log_period tool call.
func (h *Handlers) HandleLogPeriod(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[DateRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	today, err := ops.ResolveDate(input.Date, h.now())
	if err != nil {
		return errorResult(err), nil
	}
	result, err := h.session.LogPeriod(ctx, today)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleLogPregnancy handles the pregnancy_log tool call.
func (h *Handlers) HandleLogPregnancy(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[DateRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	today, err := ops.ResolveDate(input.Date, h.now())
	if err != nil {
		return errorResult(err), nil
	}
	result, err := h.session.LogPregnancy(ctx, today)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleSettings handles the cycle_settings tool call.
func (h *Handlers) HandleSettings(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SettingsRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	today, err := ops.ResolveDate(input.Date, h.now())
	if err != nil {
		return errorResult(err), nil
	}
	result, err := h.session.UpdateSettings(ctx, ops.SettingsInput{
		CycleLengthDays:  input.CycleLengthDays,
		PeriodLengthDays: input.PeriodLengthDays,
		Today:            today,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleHistory handles the cycle_history tool call.
func (h *Handlers) HandleHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[HistoryRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	result, err := ops.History(ctx, h.db, ops.HistoryInput{Limit: input.Limit, Offset: input.Offset})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleExport handles the cycle_export tool call.
func (h *Handlers) HandleExport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ExportRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	result, err := ops.Export(ctx, h.db, h.cfg, ops.ExportInput{Path: input.Path})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleImport handles the cycle_import tool call. The session is reloaded
// so later calls see the imported record.
func (h *Handlers) HandleImport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ImportRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	result, err := ops.Import(ctx, h.db, h.cfg, ops.ImportInput{
		Path: input.Path,
		Mode: ops.ImportMode(input.Mode),
	})
	if err != nil {
		return errorResult(err), nil
	}
	if result.Record {
		if err := h.session.Reload(ctx); err != nil {
			return errorResult(err), nil
		}
	}
	return successResult(result)
}

// HandleTip handles the pregnancy_tip tool call.
func (h *Handlers) HandleTip(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[TipRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	var week int
	if input.Week != nil {
		week = *input.Week
	} else {
		r := h.session.Record()
		if !r.IsPregnant {
			return errorResult(errors.NewInvalidRequest("week is required when not in pregnancy mode")), nil
		}
		today, err := ops.ResolveDate(input.Date, h.now())
		if err != nil {
			return errorResult(err), nil
		}
		week = r.GestationalWeek(today)
	}
	return successResult(ops.Tip(ops.TipInput{Week: week}))
}

// Result helpers

// errorResult creates an MCP error result from any error.
// INTERNAL errors are reported without their message or details.
func errorResult(err error) *mcp.CallToolResult {
	me := errors.As(err)

	errorObj := map[string]any{
		"code":    me.Code,
		"message": me.Message,
		"status":  me.Status,
	}
	if me.Code == errors.ErrInternal {
		errorObj["message"] = "an internal error occurred"
	} else {
		// Keep context added by fmt.Errorf wrappers, e.g. "notify period_due: ..."
		if err != error(me) {
			errorObj["message"] = strings.TrimSuffix(err.Error(), me.Error()) + me.Message
		}
		if me.Details != nil {
			errorObj["details"] = me.Details
		}
	}

	content, _ := json.Marshal(map[string]any{"error": errorObj})
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
