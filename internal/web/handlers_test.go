package web

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/mocho-app/mocho/internal/cycle"
	"github.com/mocho-app/mocho/internal/db"
	"github.com/mocho-app/mocho/internal/errors"
	"github.com/mocho-app/mocho/internal/ops"
)

var testNow = time.Date(2025, time.January, 10, 9, 30, 0, 0, time.UTC)

// flakyStore wraps the SQLite store and fails writes on demand.
type flakyStore struct {
	*db.Store
	failWrites bool
}

func (s *flakyStore) Write(ctx context.Context, key string, value []byte) error {
	if s.failWrites {
		return errors.NewStoreWrite(key, stderrors.New("disk full"))
	}
	return s.Store.Write(ctx, key, value)
}

func setupTest(t *testing.T) (*Handlers, *flakyStore) {
	t.Helper()
	tmpDir := t.TempDir()
	database, err := db.Init(tmpDir)
	if err != nil {
		t.Fatalf("db.Init: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	store := &flakyStore{Store: db.NewStore(database)}
	session := ops.Open(context.Background(), store, store, nil)

	templateSub, err := fs.Sub(templateFS, "templates")
	if err != nil {
		t.Fatalf("template sub-FS: %v", err)
	}

	return &Handlers{
		session:  session,
		db:       database,
		renderer: NewRenderer(templateSub, "test", nil),
		logger:   zap.NewNop(),
		now:      func() time.Time { return testNow },
	}, store
}

func postForm(h http.HandlerFunc, path string, form url.Values, accept string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func seedPeriod(t *testing.T, h *Handlers, date string) {
	t.Helper()
	rec := postForm(h.HandleLogPeriod, "/period", url.Values{"date": {date}}, "")
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("seed period: status = %d, want 303", rec.Code)
	}
}

// --- HandleDashboard ---

func TestHandleDashboard_NoHistory(t *testing.T) {
	h, _ := setupTest(t)

	req := httptest.NewRequest("GET", "/", nil)
	rec := httptest.NewRecorder()
	h.HandleDashboard(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "No period logged yet") {
		t.Error("expected empty-state message")
	}
	if !strings.Contains(body, "Fri, Jan 10 2025") {
		t.Error("expected today's date in response")
	}
	if strings.Contains(body, "Recent history") {
		t.Error("did not expect history section without events")
	}
}

func TestHandleDashboard_Tracking(t *testing.T) {
	h, _ := setupTest(t)
	seedPeriod(t, h, "2025-01-01")

	req := httptest.NewRequest("GET", "/?saved=period", nil)
	rec := httptest.NewRecorder()
	h.HandleDashboard(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{
		"Period logged.",
		"Wed, Jan 29 2025",
		"in 19 days",
		"Recent history",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("expected %q in response", want)
		}
	}
}

func TestHandleDashboard_Pregnant(t *testing.T) {
	h, _ := setupTest(t)
	seedPeriod(t, h, "2024-12-01")
	rec := postForm(h.HandleLogPregnancy, "/pregnancy", url.Values{"date": {"2024-12-06"}}, "")
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", rec.Code)
	}

	req := httptest.NewRequest("GET", "/", nil)
	rec = httptest.NewRecorder()
	h.HandleDashboard(rec, req)

	body := rec.Body.String()
	if !strings.Contains(body, "of pregnancy") {
		t.Error("expected pregnancy headline")
	}
	if strings.Contains(body, `action="/pregnancy"`) {
		t.Error("pregnancy form should be hidden in pregnant mode")
	}
}

func TestHandleDashboard_InvalidDate(t *testing.T) {
	h, _ := setupTest(t)

	req := httptest.NewRequest("GET", "/?date=not-a-date", nil)
	rec := httptest.NewRecorder()
	h.HandleDashboard(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

// --- POST actions ---

func TestHandleLogPeriod_Redirect(t *testing.T) {
	h, _ := setupTest(t)

	rec := postForm(h.HandleLogPeriod, "/period", url.Values{}, "")
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/?saved=period" {
		t.Errorf("Location = %q, want /?saved=period", loc)
	}

	last := h.session.Record().LastPeriodDate
	if last == nil || !last.Equal(cycle.NewDate(2025, time.January, 10)) {
		t.Errorf("LastPeriodDate = %v, want 2025-01-10", last)
	}

	hist, err := ops.History(context.Background(), h.db, ops.HistoryInput{})
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(hist.Items) != 1 || hist.Items[0].Kind != cycle.EventPeriod {
		t.Errorf("history = %+v, want one period event", hist.Items)
	}
}

func TestHandleLogPeriod_JSON(t *testing.T) {
	h, _ := setupTest(t)

	rec := postForm(h.HandleLogPeriod, "/period", url.Values{"date": {"2025-01-01"}}, "application/json")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var out ops.ActionOutput
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !out.Saved {
		t.Error("expected saved = true")
	}
	if out.Status == nil || out.Status.NextPeriodDate == nil || out.Status.NextPeriodDate.String() != "2025-01-29" {
		t.Errorf("next period = %v, want 2025-01-29", out.Status)
	}
}

func TestHandleLogPeriod_InvalidDate(t *testing.T) {
	h, _ := setupTest(t)

	rec := postForm(h.HandleLogPeriod, "/period", url.Values{"date": {"2025-13-45"}}, "application/json")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if h.session.Record().LastPeriodDate != nil {
		t.Error("record should be unchanged after invalid date")
	}
}

func TestHandleLogPeriod_SaveFailureKeepsState(t *testing.T) {
	h, store := setupTest(t)
	store.failWrites = true

	rec := postForm(h.HandleLogPeriod, "/period", url.Values{"date": {"2025-01-01"}}, "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "class=\"alert\"") {
		t.Error("expected save error on the dashboard")
	}
	if !strings.Contains(body, "Wed, Jan 29 2025") {
		t.Error("expected in-memory prediction despite save failure")
	}

	// Retry once the store recovers
	store.failWrites = false
	rec = postForm(h.HandleLogPeriod, "/period", url.Values{"date": {"2025-01-01"}}, "")
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("retry status = %d, want 303", rec.Code)
	}
}

func TestHandleLogPeriod_SaveFailureJSON(t *testing.T) {
	h, store := setupTest(t)
	store.failWrites = true

	rec := postForm(h.HandleLogPeriod, "/period", url.Values{"date": {"2025-01-01"}}, "application/json")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}

	var resp struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
		Result ops.ActionOutput `json:"result"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Error.Code != "STORE_WRITE" {
		t.Errorf("code = %q, want STORE_WRITE", resp.Error.Code)
	}
	if resp.Result.Saved {
		t.Error("expected saved = false")
	}
}

func TestHandleSettings(t *testing.T) {
	h, _ := setupTest(t)

	rec := postForm(h.HandleSettings, "/settings", url.Values{
		"cycle_length_days":  {"30"},
		"period_length_days": {""},
	}, "")
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", rec.Code)
	}
	r := h.session.Record()
	if r.CycleLengthDays != 30 {
		t.Errorf("CycleLengthDays = %d, want 30", r.CycleLengthDays)
	}
	if r.PeriodLengthDays != 5 {
		t.Errorf("PeriodLengthDays = %d, want 5 (unchanged)", r.PeriodLengthDays)
	}
}

func TestHandleSettings_Invalid(t *testing.T) {
	h, _ := setupTest(t)

	tests := []struct {
		name string
		form url.Values
	}{
		{"not a number", url.Values{"cycle_length_days": {"abc"}}},
		{"zero", url.Values{"cycle_length_days": {"0"}}},
		{"negative", url.Values{"period_length_days": {"-3"}}},
		{"empty", url.Values{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postForm(h.HandleSettings, "/settings", tt.form, "application/json")
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
			if !strings.Contains(rec.Body.String(), "INVALID_REQUEST") {
				t.Error("expected INVALID_REQUEST in response")
			}
		})
	}
}

// --- HandleTips ---

func TestHandleTips(t *testing.T) {
	h, _ := setupTest(t)

	req := httptest.NewRequest("GET", "/tips", nil)
	rec := httptest.NewRecorder()
	h.HandleTips(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "poppy seed") {
		t.Error("expected week 1 tip in response")
	}
	if strings.Contains(body, "you are here") {
		t.Error("no week should be marked outside pregnancy mode")
	}
	if !strings.Contains(body, "<blockquote>") {
		t.Error("expected generic tip rendered as blockquote")
	}
}

func TestHandleTips_MarksCurrentWeek(t *testing.T) {
	h, _ := setupTest(t)
	rec := postForm(h.HandleLogPregnancy, "/pregnancy", url.Values{"date": {"2024-12-01"}}, "")
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", rec.Code)
	}

	req := httptest.NewRequest("GET", "/tips", nil)
	rec = httptest.NewRecorder()
	h.HandleTips(rec, req)

	if !strings.Contains(rec.Body.String(), "you are here") {
		t.Error("expected current week marker")
	}
}

// --- HandleAPIStatus ---

func TestHandleAPIStatus(t *testing.T) {
	h, _ := setupTest(t)
	seedPeriod(t, h, "2025-01-01")

	req := httptest.NewRequest("GET", "/api/status?date=2025-01-20", nil)
	rec := httptest.NewRecorder()
	h.HandleAPIStatus(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}

	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out["today"] != "2025-01-20" {
		t.Errorf("today = %v, want 2025-01-20", out["today"])
	}
	if out["mode"] != "tracking" {
		t.Errorf("mode = %v, want tracking", out["mode"])
	}
	if out["next_period_date"] != "2025-01-29" {
		t.Errorf("next_period_date = %v, want 2025-01-29", out["next_period_date"])
	}
}

func TestHandleAPIStatus_InvalidDate(t *testing.T) {
	h, _ := setupTest(t)

	req := httptest.NewRequest("GET", "/api/status?date=yesterday", nil)
	rec := httptest.NewRecorder()
	h.HandleAPIStatus(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "INVALID_REQUEST") {
		t.Error("expected INVALID_REQUEST")
	}
}

// --- Error rendering ---

func TestRenderError_HTML(t *testing.T) {
	h, _ := setupTest(t)

	req := httptest.NewRequest("GET", "/", nil)
	rec := httptest.NewRecorder()
	h.renderer.renderError(rec, req, errors.NewInvalidRequest("bad input"))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type = %q, want text/html", ct)
	}
	if !strings.Contains(rec.Body.String(), "bad input") {
		t.Error("expected error message in page")
	}
}

func TestRenderError_InternalHidden(t *testing.T) {
	h, _ := setupTest(t)

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Accept", "application/json")
	rec := httptest.NewRecorder()
	h.renderer.renderError(rec, req, stderrors.New("secret database path"))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "secret") {
		t.Error("internal error details leaked")
	}
}

// --- Server wiring ---

func TestServer_SecurityHeadersAndRoutes(t *testing.T) {
	h, _ := setupTest(t)
	handler := newHandler(h.session, h.db, nil, "test")

	tests := []struct {
		method string
		path   string
		want   int
	}{
		{"GET", "/", http.StatusOK},
		{"GET", "/tips", http.StatusOK},
		{"GET", "/api/status", http.StatusOK},
		{"GET", "/static/style.css", http.StatusOK},
		{"GET", "/missing", http.StatusNotFound},
		{"GET", "/period", http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d", rec.Code, tt.want)
			}
			if rec.Header().Get("X-Frame-Options") != "DENY" {
				t.Error("missing X-Frame-Options")
			}
			if !strings.Contains(rec.Header().Get("Content-Security-Policy"), "default-src 'self'") {
				t.Error("missing Content-Security-Policy")
			}
		})
	}
}

// --- helpers ---

func TestParseOptionalInt(t *testing.T) {
	form := url.Values{"a": {" 28 "}, "b": {""}, "c": {"x"}}

	v, err := parseOptionalInt(form, "a")
	if err != nil || v == nil || *v != 28 {
		t.Errorf("parseOptionalInt(a) = %v, %v", v, err)
	}
	v, err = parseOptionalInt(form, "b")
	if err != nil || v != nil {
		t.Errorf("parseOptionalInt(b) = %v, %v; want nil, nil", v, err)
	}
	if _, err := parseOptionalInt(form, "c"); !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("parseOptionalInt(c) err = %v, want INVALID_REQUEST", err)
	}
}

func TestCountdown(t *testing.T) {
	n := func(i int) *int { return &i }
	tests := []struct {
		in   *int
		want string
	}{
		{nil, "-"},
		{n(0), "today"},
		{n(1), "in 1 day"},
		{n(19), "in 19 days"},
		{n(-2), "2 days late"},
	}
	for _, tt := range tests {
		if got := countdown(tt.in); got != tt.want {
			t.Errorf("countdown(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
