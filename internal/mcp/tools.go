package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

const dateParamDesc = "Calendar date as YYYY-MM-DD. Defaults to today."

var statusToolDef = mcp.NewTool("cycle_status",
	mcp.WithDescription("Show the tracker state for a day: next period, days remaining, fertile window and cycle day when tracking; gestational week, weekly tip and danger signs when pregnant."),
	mcp.WithReadOnlyHintAnnotation(true),
	mcp.WithString("date", mcp.Description(dateParamDesc)),
)

var logPeriodToolDef = mcp.NewTool("cycle_log_period",
	mcp.WithDescription("Record that a period started on the given day. Always returns to tracking mode and clears pregnancy data."),
	mcp.WithString("date", mcp.Description(dateParamDesc)),
)

var settingsToolDef = mcp.NewTool("cycle_settings",
	mcp.WithDescription("Change the assumed cycle length and/or period length in days. Omitted fields are unchanged."),
	mcp.WithNumber("cycle_length_days", mcp.Description("Days between period starts (positive integer).")),
	mcp.WithNumber("period_length_days", mcp.Description("Length of a period in days (positive integer).")),
	mcp.WithString("date", mcp.Description("Day the change is recorded under in history. Defaults to today.")),
)

var historyToolDef = mcp.NewTool("cycle_history",
	mcp.WithDescription("List logged actions (periods, pregnancies, settings changes), newest first."),
	mcp.WithReadOnlyHintAnnotation(true),
	mcp.WithNumber("limit", mcp.Description("Max items to return (default 20, max 100).")),
	mcp.WithNumber("offset", mcp.Description("Items to skip for pagination.")),
)

var exportToolDef = mcp.NewTool("cycle_export",
	mcp.WithDescription("Export the cycle record and history to a JSONL file in ~/.mocho/exports or a configured allowed path."),
	mcp.WithString("path", mcp.Description("Destination .jsonl path. Defaults to ~/.mocho/exports/mocho-<timestamp>.jsonl.")),
)

var importToolDef = mcp.NewTool("cycle_import",
	mcp.WithDescription("Import a JSONL export. The exported record replaces the current one; history is merged or replaced."),
	mcp.WithDestructiveHintAnnotation(true),
	mcp.WithString("path", mcp.Required(), mcp.Description("Source .jsonl path.")),
	mcp.WithString("mode", mcp.Enum("merge", "replace"), mcp.Description("merge keeps existing history (default); replace clears it first.")),
)

var pregnancyLogToolDef = mcp.NewTool("pregnancy_log",
	mcp.WithDescription("Enter pregnancy mode at week 1 as of the given day. The last period date is kept."),
	mcp.WithString("date", mcp.Description(dateParamDesc)),
)

var pregnancyTipToolDef = mcp.NewTool("pregnancy_tip",
	mcp.WithDescription("Return the advisory tip and danger signs for a gestational week. Without a week, uses the current week in pregnancy mode."),
	mcp.WithReadOnlyHintAnnotation(true),
	mcp.WithNumber("week", mcp.Description("Gestational week.")),
	mcp.WithString("date", mcp.Description("Day used to derive the current week when week is omitted. Defaults to today.")),
)
