package web

import (
	"context"
	"database/sql"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mocho-app/mocho/internal/cycle"
	"github.com/mocho-app/mocho/internal/errors"
	"github.com/mocho-app/mocho/internal/ops"
)

// recentHistory is how many history entries the dashboard shows.
const recentHistory = 5

// Handlers contains HTTP route handlers for the web UI.
type Handlers struct {
	session  *ops.Session
	db       *sql.DB
	renderer *Renderer
	logger   *zap.Logger
	now      func() time.Time
}

// today resolves the optional date parameter, defaulting to the current day.
func (h *Handlers) today(r *http.Request) (cycle.Date, error) {
	return ops.ResolveDate(r.FormValue("date"), h.now())
}

// HandleDashboard handles GET /, the current status plus action forms.
func (h *Handlers) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	today, err := h.today(r)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	data := h.dashboardData(r, today)
	switch r.URL.Query().Get("saved") {
	case "period":
		data.Notice = "Period logged."
	case "pregnancy":
		data.Notice = "Pregnancy mode started."
	case "settings":
		data.Notice = "Settings saved."
	}
	if err := h.session.LoadErr(); err != nil {
		data.Error = errors.As(err).Message
	}
	h.renderer.renderPage(w, "dashboard", data)
}

func (h *Handlers) dashboardData(r *http.Request, today cycle.Date) DashboardPageData {
	data := DashboardPageData{
		PageData: PageData{
			Title:   "Today",
			Version: h.renderer.version,
			Nav:     "today",
		},
		Status: h.session.Status(today),
	}
	if h.db != nil {
		hist, err := ops.History(r.Context(), h.db, ops.HistoryInput{Limit: recentHistory})
		if err != nil {
			h.logger.Warn("history unavailable", zap.Error(err))
		} else {
			data.History = hist.Items
		}
	}
	return data
}

// HandleLogPeriod handles POST /period.
func (h *Handlers) HandleLogPeriod(w http.ResponseWriter, r *http.Request) {
	h.handleAction(w, r, "period", h.session.LogPeriod)
}

// HandleLogPregnancy handles POST /pregnancy.
func (h *Handlers) HandleLogPregnancy(w http.ResponseWriter, r *http.Request) {
	h.handleAction(w, r, "pregnancy", h.session.LogPregnancy)
}

// HandleSettings handles POST /settings.
func (h *Handlers) HandleSettings(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("invalid form data"))
		return
	}
	cycleLen, err := parseOptionalInt(r.PostForm, "cycle_length_days")
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	periodLen, err := parseOptionalInt(r.PostForm, "period_length_days")
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	h.handleAction(w, r, "settings", func(ctx context.Context, today cycle.Date) (*ops.ActionOutput, error) {
		return h.session.UpdateSettings(ctx, ops.SettingsInput{
			CycleLengthDays:  cycleLen,
			PeriodLengthDays: periodLen,
			Today:            today,
		})
	})
}

// handleAction runs a state-changing action and responds with JSON, or
// redirects back to the dashboard. A failed save re-renders the dashboard
// with the error and the retained in-memory state.
func (h *Handlers) handleAction(w http.ResponseWriter, r *http.Request, name string, action func(context.Context, cycle.Date) (*ops.ActionOutput, error)) {
	if err := r.ParseForm(); err != nil {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("invalid form data"))
		return
	}
	today, err := h.today(r)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	out, err := action(r.Context(), today)
	if err != nil {
		if out == nil || !errors.Is(err, errors.ErrStoreWrite) {
			h.renderer.renderError(w, r, err)
			return
		}
		mErr := errors.As(err)
		if wantsJSON(r) {
			renderJSON(w, mErr.Status, map[string]any{
				"error": map[string]any{
					"code":    string(mErr.Code),
					"message": mErr.Message,
					"status":  mErr.Status,
				},
				"result": out,
			})
			return
		}
		data := h.dashboardData(r, today)
		data.Error = mErr.Message
		h.renderer.renderPageStatus(w, mErr.Status, "dashboard", data)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, out)
		return
	}
	http.Redirect(w, r, "/?saved="+url.QueryEscape(name), http.StatusSeeOther)
}

// HandleTips handles GET /tips with the full week-by-week tip table.
func (h *Handlers) HandleTips(w http.ResponseWriter, r *http.Request) {
	today, err := h.today(r)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	week := h.session.Record().GestationalWeek(today)

	h.renderer.renderPage(w, "tips", TipsPageData{
		PageData: PageData{
			Title:   "Pregnancy tips",
			Version: h.renderer.version,
			Nav:     "tips",
		},
		CurrentWeek:  week,
		RenderedHTML: renderMarkdown(tipsMarkdown(week)),
	})
}

// HandleAPIStatus handles GET /api/status.
func (h *Handlers) HandleAPIStatus(w http.ResponseWriter, r *http.Request) {
	today, err := h.today(r)
	if err != nil {
		mErr := errors.As(err)
		renderJSON(w, mErr.Status, map[string]any{
			"error": map[string]any{
				"code":    string(mErr.Code),
				"message": mErr.Message,
				"status":  mErr.Status,
			},
		})
		return
	}
	renderJSON(w, http.StatusOK, h.session.Status(today))
}

// parseOptionalInt parses an integer form field. Empty means unset.
func parseOptionalInt(form url.Values, name string) (*int, error) {
	s := strings.TrimSpace(form.Get(name))
	if s == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return nil, errors.NewInvalidRequest(name + " must be an integer")
	}
	return &v, nil
}
