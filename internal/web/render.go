package web

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"go.uber.org/zap"

	"github.com/mocho-app/mocho/internal/cycle"
	"github.com/mocho-app/mocho/internal/errors"
	"github.com/mocho-app/mocho/internal/logging"
	"github.com/mocho-app/mocho/internal/ops"
)

// PageData contains common fields used across all page templates.
type PageData struct {
	Title   string
	Version string
	Nav     string // active nav item: "today", "tips"
}

// DashboardPageData is the template data for the dashboard.
type DashboardPageData struct {
	PageData
	Status  *ops.StatusOutput
	History []cycle.Event
	Notice  string // confirmation after a saved action
	Error   string // save failure, shown above the retained state
}

// TipsPageData is the template data for the tips page.
type TipsPageData struct {
	PageData
	CurrentWeek  int
	RenderedHTML template.HTML
}

// ErrorPageData is the template data for the error page.
type ErrorPageData struct {
	PageData
	StatusCode int
	Message    string
}

// Renderer manages template parsing and rendering.
type Renderer struct {
	templates map[string]*template.Template
	version   string
	logger    *zap.Logger
}

// NewRenderer creates a Renderer by parsing templates from the given FS.
func NewRenderer(templateFS fs.FS, version string, logger *zap.Logger) *Renderer {
	funcMap := template.FuncMap{
		"formatDate": formatDate,
		"formatTime": formatTime,
		"plural":     plural,
		"countdown":  countdown,
		"phaseLabel": phaseLabel,
	}

	layoutTmpl := template.Must(template.New("layout").Funcs(funcMap).ParseFS(templateFS, "layout.html"))

	pages := map[string]string{
		"dashboard": "dashboard.html",
		"tips":      "tips.html",
		"error":     "error.html",
	}

	templates := make(map[string]*template.Template, len(pages))
	for name, file := range pages {
		t := template.Must(layoutTmpl.Clone())
		template.Must(t.ParseFS(templateFS, file))
		templates[name] = t
	}

	return &Renderer{
		templates: templates,
		version:   version,
		logger:    logging.OrNop(logger),
	}
}

// renderPage renders a named page template with the given data and HTTP 200 status.
func (r *Renderer) renderPage(w http.ResponseWriter, name string, data any) {
	r.renderPageStatus(w, http.StatusOK, name, data)
}

// renderPageStatus renders a named page into a buffer first so a template
// failure never leaves a half-written page.
func (r *Renderer) renderPageStatus(w http.ResponseWriter, status int, name string, data any) {
	t, ok := r.templates[name]
	if !ok {
		r.logger.Error("template not found", zap.String("template", name))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		r.logger.Error("template execution failed", zap.String("template", name), zap.Error(err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

// renderError renders an error response with content negotiation.
func (r *Renderer) renderError(w http.ResponseWriter, req *http.Request, err error) {
	mErr := errors.As(err)

	status := mErr.Status
	message := mErr.Message
	if mErr.Code == errors.ErrInternal {
		r.logger.Error("request failed", zap.String("path", req.URL.Path), zap.Error(err))
		message = "internal error"
	}

	if wantsJSON(req) {
		renderJSON(w, status, map[string]any{
			"error": map[string]any{
				"code":    string(mErr.Code),
				"message": message,
				"status":  status,
			},
		})
		return
	}

	r.renderPageStatus(w, status, "error", ErrorPageData{
		PageData: PageData{
			Title:   fmt.Sprintf("Error %d", status),
			Version: r.version,
		},
		StatusCode: status,
		Message:    message,
	})
}

// wantsJSON reports whether the client asked for JSON.
func wantsJSON(req *http.Request) bool {
	return strings.Contains(req.Header.Get("Accept"), "application/json")
}

// renderJSON writes a JSON response.
func renderJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// renderMarkdown converts markdown text to HTML using goldmark.
// Raw HTML in the source is omitted by goldmark's default renderer.
func renderMarkdown(md string) template.HTML {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(md), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(md))
	}
	return template.HTML(buf.String())
}

// tipsMarkdown builds the tips page body. The entry for currentWeek's table
// key is marked; currentWeek 0 marks nothing.
func tipsMarkdown(currentWeek int) string {
	currentKey, hasCurrent := cycle.TipKey(currentWeek)

	var b strings.Builder
	b.WriteString("## Week by week\n\n")
	for _, e := range ops.TipTable() {
		if hasCurrent && e.Week == currentKey {
			fmt.Fprintf(&b, "- **Week %d (you are here):** %s\n", e.Week, e.Tip)
			continue
		}
		fmt.Fprintf(&b, "- **Week %d:** %s\n", e.Week, e.Tip)
	}
	b.WriteString("\n## Call your doctor right away if you have\n\n")
	for _, s := range cycle.DangerSigns() {
		fmt.Fprintf(&b, "- %s\n", s)
	}
	b.WriteString("\n> ")
	b.WriteString(cycle.GenericTip)
	b.WriteString("\n")
	return b.String()
}

// formatDate formats a calendar date as "Mon, Jan 2 2006". Nil and zero
// dates render as "-".
func formatDate(v any) string {
	var d cycle.Date
	switch x := v.(type) {
	case cycle.Date:
		d = x
	case *cycle.Date:
		if x == nil {
			return "-"
		}
		d = *x
	default:
		return "-"
	}
	if d.IsZero() {
		return "-"
	}
	return d.Time().Format("Mon, Jan 2 2006")
}

// formatTime formats a Unix timestamp as "2006-01-02 15:04" UTC.
func formatTime(unix int64) string {
	return time.Unix(unix, 0).UTC().Format("2006-01-02 15:04")
}

// plural returns "1 day" / "3 days".
func plural(n int, word string) string {
	if n == 1 || n == -1 {
		return fmt.Sprintf("%d %s", n, word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}

// countdown describes the days until the next period: "in 3 days",
// "today" or "2 days late".
func countdown(days *int) string {
	switch {
	case days == nil:
		return "-"
	case *days == 0:
		return "today"
	case *days < 0:
		return plural(-*days, "day") + " late"
	}
	return "in " + plural(*days, "day")
}

func phaseLabel(phase string) string {
	switch phase {
	case ops.PhasePeriod:
		return "Period"
	case ops.PhaseFertile:
		return "Fertile window"
	case ops.PhaseOvulation:
		return "Ovulation day"
	case ops.PhaseLate:
		return "Period is late"
	case ops.PhaseSafe:
		return "Low fertility"
	}
	return ""
}
