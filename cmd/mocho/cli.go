package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/mocho-app/mocho/internal/config"
	"github.com/mocho-app/mocho/internal/cycle"
	"github.com/mocho-app/mocho/internal/errors"
	"github.com/mocho-app/mocho/internal/ops"
	"github.com/mocho-app/mocho/internal/reminder"
	"github.com/mocho-app/mocho/internal/web"
)

// env carries the opened resources shared by all commands.
type env struct {
	db      *sql.DB
	cfg     *config.Config
	session *ops.Session
	logger  *zap.Logger
	now     func() time.Time
}

// newCLIApp creates the CLI application with all commands.
// e may be nil when only help or version output is needed.
func newCLIApp(e *env) *cli.App {
	app := &cli.App{
		Name:    "mocho",
		Usage:   "Local cycle and pregnancy tracker",
		Version: Version,
		Commands: []*cli.Command{
			statusCmd(e),
			logPeriodCmd(e),
			logPregnancyCmd(e),
			tipCmd(e),
			settingsCmd(e),
			historyCmd(e),
			remindersCmd(e),
			exportCmd(e),
			importCmd(e),
			serveCmd(e),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// dateFlag returns the --date flag shared by day-based commands.
func dateFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "date",
		Aliases: []string{"d"},
		Usage:   "Day to act on as YYYY-MM-DD (default: today)",
	}
}

// today resolves --date against the env clock.
func (e *env) today(c *cli.Context) (cycle.Date, error) {
	return ops.ResolveDate(c.String("date"), e.now())
}

// statusCmd creates the status command.
func statusCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Show predictions for a day",
		Flags: []cli.Flag{dateFlag()},
		Action: func(c *cli.Context) error {
			today, err := e.today(c)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, e.session.Status(today))
		},
	}
}

// logPeriodCmd creates the log-period command.
func logPeriodCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:  "log-period",
		Usage: "Record that a period started (leaves pregnancy mode)",
		Flags: []cli.Flag{dateFlag()},
		Action: func(c *cli.Context) error {
			today, err := e.today(c)
			if err != nil {
				return outputError(err)
			}
			out, err := e.session.LogPeriod(c.Context, today)
			return outputAction(c, out, err)
		},
	}
}

// logPregnancyCmd creates the log-pregnancy command.
func logPregnancyCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:  "log-pregnancy",
		Usage: "Enter pregnancy mode at week 1",
		Flags: []cli.Flag{dateFlag()},
		Action: func(c *cli.Context) error {
			today, err := e.today(c)
			if err != nil {
				return outputError(err)
			}
			out, err := e.session.LogPregnancy(c.Context, today)
			return outputAction(c, out, err)
		},
	}
}

// tipCmd creates the tip command.
func tipCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:  "tip",
		Usage: "Show the pregnancy tip for a week (default: the current week)",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "week", Aliases: []string{"w"}, Usage: "Gestational week"},
			dateFlag(),
		},
		Action: func(c *cli.Context) error {
			var week int
			if c.IsSet("week") {
				week = c.Int("week")
			} else {
				r := e.session.Record()
				if !r.IsPregnant {
					return outputError(errors.NewInvalidRequest("--week is required when not in pregnancy mode"))
				}
				today, err := e.today(c)
				if err != nil {
					return outputError(err)
				}
				week = r.GestationalWeek(today)
			}
			return outputJSON(c, ops.Tip(ops.TipInput{Week: week}))
		},
	}
}

// settingsCmd creates the settings command.
func settingsCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:  "settings",
		Usage: "Change the cycle and period lengths",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "cycle-length", Aliases: []string{"c"}, Usage: "Cycle length in days"},
			&cli.IntFlag{Name: "period-length", Aliases: []string{"p"}, Usage: "Period length in days"},
			dateFlag(),
		},
		Action: func(c *cli.Context) error {
			today, err := e.today(c)
			if err != nil {
				return outputError(err)
			}
			input := ops.SettingsInput{Today: today}
			if c.IsSet("cycle-length") {
				v := c.Int("cycle-length")
				input.CycleLengthDays = &v
			}
			if c.IsSet("period-length") {
				v := c.Int("period-length")
				input.PeriodLengthDays = &v
			}
			out, err := e.session.UpdateSettings(c.Context, input)
			return outputAction(c, out, err)
		},
	}
}

// historyCmd creates the history command.
func historyCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "List logged actions, newest first",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: ops.DefaultListLimit, Usage: "Maximum items to return"},
			&cli.IntFlag{Name: "offset", Aliases: []string{"o"}, Value: 0, Usage: "Items to skip"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.History(c.Context, e.db, ops.HistoryInput{
				Limit:  c.Int("limit"),
				Offset: c.Int("offset"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		},
	}
}

// remindersCmd creates the reminders command.
func remindersCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:  "reminders",
		Usage: "List the reminders due on a day",
		Flags: []cli.Flag{dateFlag()},
		Action: func(c *cli.Context) error {
			today, err := e.today(c)
			if err != nil {
				return outputError(err)
			}
			notices := reminder.Notices(e.session.Record(), today)
			if notices == nil {
				notices = []reminder.Notice{}
			}
			return outputJSON(c, map[string]any{
				"date":    today,
				"notices": notices,
			})
		},
	}
}

// exportCmd creates the export command.
func exportCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export the record and history to a JSONL file",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Usage: "Export file path (default: ~/.mocho/exports/mocho-<timestamp>.jsonl)"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Export(c.Context, e.db, e.cfg, ops.ExportInput{Path: c.String("path")})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		},
	}
}

// importCmd creates the import command.
func importCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:  "import",
		Usage: "Import a JSONL export",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Required: true, Usage: "Import file path"},
			&cli.StringFlag{Name: "mode", Aliases: []string{"m"}, Value: string(ops.ImportModeMerge), Usage: "merge|replace"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Import(c.Context, e.db, e.cfg, ops.ImportInput{
				Path: c.String("path"),
				Mode: ops.ImportMode(c.String("mode")),
			})
			if err != nil {
				return outputError(err)
			}
			if output.Record {
				if err := e.session.Reload(c.Context); err != nil {
					return outputError(err)
				}
			}
			return outputJSON(c, output)
		},
	}
}

// serveCmd creates the serve command: web UI plus the reminder scheduler.
func serveCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the web UI and daily reminders",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Usage: "Address to bind (default from config)"},
			&cli.IntFlag{Name: "port", Usage: "Port to listen on (default from config)"},
			&cli.BoolFlag{Name: "no-reminders", Usage: "Do not schedule reminders"},
		},
		Action: func(c *cli.Context) error {
			bind := e.cfg.WebBind
			if c.IsSet("bind") {
				bind = c.String("bind")
			}
			port := e.cfg.WebPort
			if c.IsSet("port") {
				port = c.Int("port")
			}
			if port <= 0 || port > 65535 {
				return outputError(errors.NewInvalidRequest(fmt.Sprintf("invalid port %d", port)))
			}

			if !c.Bool("no-reminders") {
				sched, err := reminder.New(e.session, nil, e.cfg.ReminderSchedule, e.logger)
				if err != nil {
					return outputError(err)
				}
				sched.Start()
				defer sched.Stop()
			}

			srv := web.NewServer(e.session, e.db, e.logger, Version, bind, port)
			if err := web.Run(context.Background(), srv, e.logger); err != nil {
				return outputError(errors.NewInternal(err))
			}
			return nil
		},
	}
}

// Helper functions

// outputJSON marshals result to the app's writer as JSON.
func outputJSON(c *cli.Context, v any) error {
	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputAction prints an action result. When the save failed the retained
// state is still printed before the error.
func outputAction(c *cli.Context, out *ops.ActionOutput, err error) error {
	if err != nil {
		if out != nil {
			_ = outputJSON(c, out)
		}
		return outputError(err)
	}
	return outputJSON(c, out)
}

// outputError formats error for CLI.
func outputError(err error) error {
	mErr := errors.As(err)
	if mErr.Code == errors.ErrInternal {
		return cli.Exit(fmt.Sprintf("[%s] %s", mErr.Code, err.Error()), 1)
	}
	return cli.Exit(fmt.Sprintf("[%s] %s", mErr.Code, mErr.Message), 1)
}
