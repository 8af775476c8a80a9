package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/MrSnakeDoc/shelfwatch/internal/domain"
	"github.com/MrSnakeDoc/shelfwatch/internal/httpserver/deps"
	"github.com/MrSnakeDoc/shelfwatch/internal/logger"
	"github.com/MrSnakeDoc/shelfwatch/internal/notify"
	"github.com/MrSnakeDoc/shelfwatch/internal/reorder"
	"github.com/MrSnakeDoc/shelfwatch/internal/store/memory"
)

var fixedNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

type testEnv struct {
	handler http.Handler
	store   *memory.Store
	trigger chan struct{}
}

func newTestEnv(t *testing.T, mutate func(*deps.Deps)) *testEnv {
	t.Helper()

	now := func() time.Time { return fixedNow }
	// store clock ticks so CreatedAt orders items by insertion
	var tick time.Duration
	st := memory.New(nil, func() time.Time {
		tick += time.Second
		return fixedNow.Add(tick)
	})
	log := logger.NewNop()
	trigger := make(chan struct{}, 1)

	d := deps.Deps{
		Logger:        log,
		StartTime:     fixedNow,
		Version:       "test",
		TimeNow:       now,
		Location:      time.UTC,
		APIRatePerMin: 6000,
		APIBurst:      1000,
		StoreBackend:  "memory",
		Store:         st,
		Notifier:      notify.NewLogNotifier(log, true),
		Resolver:      reorder.NewResolver(st, nil, st, log, nil, 0, 0, now),
		NotifyTrigger: trigger,
	}
	if mutate != nil {
		mutate(&d)
	}
	return &testEnv{handler: NewRouter(log, d), store: st, trigger: trigger}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		if err := json.NewEncoder(&buf).Encode(b); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) add(t *testing.T, name string, expiry domain.Date, reminder int) domain.Item {
	t.Helper()
	it, err := e.store.AddItem(context.Background(), domain.Item{
		Name:         name,
		Category:     domain.CategoryGrocery,
		ExpiryDate:   expiry,
		ReminderDays: reminder,
	})
	if err != nil {
		t.Fatalf("add %s: %v", name, err)
	}
	return it
}

type itemBody struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	Category     string        `json:"category"`
	ExpiryDate   string        `json:"expiryDate"`
	ReminderDays int           `json:"reminderDays"`
	Status       domain.Status `json:"status"`
	Snoozed      bool          `json:"snoozed"`
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func today(offset int) domain.Date {
	return domain.DateOf(fixedNow).AddDays(offset)
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.do(t, http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestItems_CRUD(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodPost, "/api/items", map[string]any{
		"name":         "  Greek Yogurt ",
		"category":     "grocery",
		"expiryDate":   "2026-03-12",
		"reminderDays": 3,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d body=%s", rec.Code, rec.Body.String())
	}
	created := decode[itemBody](t, rec)
	if created.ID == "" || created.Name != "Greek Yogurt" || created.Category != "Grocery" {
		t.Errorf("unexpected created item: %+v", created)
	}
	if created.Status != domain.StatusSoon {
		t.Errorf("status = %q, want %q", created.Status, domain.StatusSoon)
	}
	if loc := rec.Header().Get("Location"); loc != "/api/items/"+created.ID {
		t.Errorf("Location = %q", loc)
	}

	rec = env.do(t, http.MethodGet, "/api/items/"+created.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}

	rec = env.do(t, http.MethodPut, "/api/items/"+created.ID, map[string]any{
		"name":         "Greek Yogurt",
		"category":     "Grocery",
		"expiryDate":   "2026-04-30",
		"reminderDays": 3,
		"status":       "ignored",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d body=%s", rec.Code, rec.Body.String())
	}
	if got := decode[itemBody](t, rec); got.Status != domain.StatusActive || got.ID != created.ID {
		t.Errorf("unexpected updated item: %+v", got)
	}

	rec = env.do(t, http.MethodDelete, "/api/items/"+created.ID, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rec.Code)
	}
	rec = env.do(t, http.MethodGet, "/api/items/"+created.ID, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("get after delete = %d, want 404", rec.Code)
	}
}

func TestItems_CreateValidation(t *testing.T) {
	env := newTestEnv(t, nil)

	tests := []struct {
		name string
		body any
	}{
		{"not json", "{"},
		{"missing name", map[string]any{"expiryDate": "2026-03-12"}},
		{"blank name", map[string]any{"name": "   ", "expiryDate": "2026-03-12"}},
		{"missing expiry", map[string]any{"name": "Milk"}},
		{"bad date", map[string]any{"name": "Milk", "expiryDate": "12/03/2026"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/api/items", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400 (body=%s)", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestItems_TimestampExpiryUsesConfiguredZone(t *testing.T) {
	env := newTestEnv(t, func(d *deps.Deps) {
		d.Location = time.FixedZone("UTC+9", 9*3600)
	})

	rec := env.do(t, http.MethodPost, "/api/items", map[string]any{
		"name":       "Tofu",
		"expiryDate": "2026-03-10T20:00:00Z",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d body=%s", rec.Code, rec.Body.String())
	}
	if got := decode[itemBody](t, rec).ExpiryDate; got != "2026-03-11" {
		t.Errorf("expiryDate = %q, want the day in the configured zone (2026-03-11)", got)
	}
}

func TestItems_UnknownID(t *testing.T) {
	env := newTestEnv(t, nil)

	tests := []struct {
		method, path string
		body         any
	}{
		{http.MethodGet, "/api/items/nope", nil},
		{http.MethodPut, "/api/items/nope", map[string]any{"name": "x", "expiryDate": "2026-03-12"}},
		{http.MethodDelete, "/api/items/nope", nil},
		{http.MethodPost, "/api/items/nope/snooze", map[string]any{"days": 1}},
		{http.MethodGet, "/api/items/nope/reorder", nil},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			if rec := env.do(t, tt.method, tt.path, tt.body); rec.Code != http.StatusNotFound {
				t.Errorf("status = %d, want 404", rec.Code)
			}
		})
	}
}

func TestItems_ListFilters(t *testing.T) {
	env := newTestEnv(t, nil)
	env.add(t, "Whole Milk", today(1), 2)
	env.add(t, "Oat Milk", today(30), 2)
	env.add(t, "Bread", today(-1), 2)

	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{"all", "", []string{"Whole Milk", "Oat Milk", "Bread"}},
		{"by status", "?status=Expired", []string{"Bread"}},
		{"by name", "?q=MILK", []string{"Whole Milk", "Oat Milk"}},
		{"both", "?q=milk&status=Active", []string{"Oat Milk"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodGet, "/api/items"+tt.query, nil)
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d", rec.Code)
			}
			got := decode[[]itemBody](t, rec)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d items, want %d: %+v", len(got), len(tt.want), got)
			}
			for i := range got {
				if got[i].Name != tt.want[i] {
					t.Errorf("item %d = %q, want %q", i, got[i].Name, tt.want[i])
				}
			}
		})
	}
}

func TestItems_Snooze(t *testing.T) {
	env := newTestEnv(t, nil)
	it := env.add(t, "Milk", today(1), 2)

	rec := env.do(t, http.MethodPost, "/api/items/"+it.ID+"/snooze", map[string]any{"days": 0})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("zero days: status = %d, want 400", rec.Code)
	}

	rec = env.do(t, http.MethodPost, "/api/items/"+it.ID+"/snooze", map[string]any{"days": 3})
	if rec.Code != http.StatusOK {
		t.Fatalf("snooze status = %d body=%s", rec.Code, rec.Body.String())
	}
	if got := decode[itemBody](t, rec); !got.Snoozed {
		t.Error("item should be snoozed")
	}
}

func TestSummary(t *testing.T) {
	env := newTestEnv(t, nil)
	env.add(t, "Active", today(60), 3)
	for i, off := range []int{5, -2, 1, -7, 0, 2} {
		env.add(t, "Due"+string(rune('A'+i)), today(off), 5)
	}

	rec := env.do(t, http.MethodGet, "/api/summary", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	got := decode[struct {
		Total     int                   `json:"total"`
		Counts    map[domain.Status]int `json:"counts"`
		Attention []itemBody            `json:"attention"`
	}](t, rec)

	if got.Total != 7 {
		t.Errorf("total = %d", got.Total)
	}
	if got.Counts[domain.StatusActive] != 1 || got.Counts[domain.StatusSoon] != 4 || got.Counts[domain.StatusExpired] != 2 {
		t.Errorf("counts = %v", got.Counts)
	}
	if len(got.Attention) != 5 {
		t.Fatalf("attention has %d items, want 5", len(got.Attention))
	}
	// sorted by expiry: -7, -2, 0, 1, 2
	want := []string{"DueD", "DueB", "DueE", "DueC", "DueF"}
	for i, w := range want {
		if got.Attention[i].Name != w {
			t.Errorf("attention[%d] = %q, want %q", i, got.Attention[i].Name, w)
		}
	}
}

func TestSettings(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		env := newTestEnv(t, nil)

		rec := env.do(t, http.MethodGet, "/api/settings", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("get status = %d", rec.Code)
		}
		if got := decode[domain.AppSettings](t, rec); got.AffiliateLinkBase != domain.DefaultAffiliateLinkBase {
			t.Errorf("default base = %q", got.AffiliateLinkBase)
		}

		rec = env.do(t, http.MethodPut, "/api/settings", map[string]any{
			"notificationsEnabled": true,
			"digestModeEnabled":    true,
			"categoryStorePreferences": map[string]string{
				"medicine": "https://pharmacy.example/search?q=",
			},
		})
		if rec.Code != http.StatusOK {
			t.Fatalf("put status = %d body=%s", rec.Code, rec.Body.String())
		}
		if strings.Contains(rec.Body.String(), "warning") {
			t.Errorf("unexpected warning: %s", rec.Body.String())
		}

		s, err := env.store.GetAppSettings(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		if !s.NotificationsEnabled || !s.DigestModeEnabled {
			t.Errorf("toggles not saved: %+v", s)
		}
		if s.CategoryStorePreferences[domain.CategoryMedicine] != "https://pharmacy.example/search?q=" {
			t.Errorf("preferences = %v", s.CategoryStorePreferences)
		}
	})

	t.Run("permission denied still saves", func(t *testing.T) {
		env := newTestEnv(t, func(d *deps.Deps) {
			d.Notifier = notify.NewLogNotifier(d.Logger, false)
		})

		rec := env.do(t, http.MethodPut, "/api/settings", map[string]any{"notificationsEnabled": true})
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		got := decode[struct {
			Settings domain.AppSettings `json:"settings"`
			Warning  string             `json:"warning"`
		}](t, rec)
		if got.Warning != "Permission denied" {
			t.Errorf("warning = %q", got.Warning)
		}

		s, _ := env.store.GetAppSettings(context.Background())
		if !s.NotificationsEnabled {
			t.Error("toggle should be saved even without permission")
		}
	})

	t.Run("rejects unknown category", func(t *testing.T) {
		env := newTestEnv(t, nil)
		rec := env.do(t, http.MethodPut, "/api/settings", map[string]any{
			"categoryStorePreferences": map[string]string{"Toys": "https://toys.example/?q="},
		})
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("rejects non-url template", func(t *testing.T) {
		env := newTestEnv(t, nil)
		rec := env.do(t, http.MethodPut, "/api/settings", map[string]any{"affiliateLinkBase": "not a url"})
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})
}

func TestPermissionEndpoints(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodGet, "/api/notifications/permission", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"granted":true`) {
		t.Errorf("get: %d %s", rec.Code, rec.Body.String())
	}
	rec = env.do(t, http.MethodPost, "/api/notifications/permission", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"granted":true`) {
		t.Errorf("post: %d %s", rec.Code, rec.Body.String())
	}
}

func TestReorder(t *testing.T) {
	env := newTestEnv(t, nil)
	it := env.add(t, "Greek Yogurt", today(1), 2)

	rec := env.do(t, http.MethodGet, "/api/items/"+it.ID+"/reorder", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	got := decode[reorder.Result](t, rec)
	want := domain.DefaultAffiliateLinkBase + "Greek%20Yogurt"
	if got.URL != want || got.IsAffiliate || got.Source != reorder.SourceFallback {
		t.Errorf("result = %+v, want fallback %s", got, want)
	}

	rec = env.do(t, http.MethodGet, "/api/items/"+it.ID+"/reorder?redirect=1", nil)
	if rec.Code != http.StatusFound {
		t.Fatalf("redirect status = %d", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != want {
		t.Errorf("Location = %q, want %q", loc, want)
	}
}

func TestBackup(t *testing.T) {
	env := newTestEnv(t, nil)
	env.add(t, "Milk", today(1), 2)

	rec := env.do(t, http.MethodGet, "/api/backup", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("export status = %d", rec.Code)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "expiry_backup_2026-03-10.json") {
		t.Errorf("Content-Disposition = %q", cd)
	}
	if !strings.Contains(rec.Body.String(), `"name": "Milk"`) {
		t.Errorf("export body = %s", rec.Body.String())
	}

	doc := `[
		{"id":"a","name":"Rice","category":"Grocery","expiryDate":"2027-01-01","reminderDays":30},
		{"id":"b","name":"Aspirin","category":"Medicine","expiryDate":"2026-03-11","reminderDays":7}
	]`
	rec = env.do(t, http.MethodPost, "/api/backup", doc)
	if rec.Code != http.StatusOK {
		t.Fatalf("import status = %d body=%s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"imported":2`) {
		t.Errorf("import body = %s", rec.Body.String())
	}
	items, _ := env.store.GetItems(context.Background())
	if len(items) != 2 {
		t.Errorf("collection should be replaced, got %d items", len(items))
	}

	for name, bad := range map[string]string{
		"object":       `{"id":"a"}`,
		"missing name": `[{"id":"a","expiryDate":"2027-01-01"}]`,
		"duplicate id": `[{"id":"a","name":"x","expiryDate":"2027-01-01"},{"id":"a","name":"y","expiryDate":"2027-01-01"}]`,
	} {
		t.Run(name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/api/backup", bad)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
	items, _ = env.store.GetItems(context.Background())
	if len(items) != 2 {
		t.Errorf("rejected imports must not touch the collection, got %d items", len(items))
	}
}

func TestNotifyCheck(t *testing.T) {
	env := newTestEnv(t, nil)

	if rec := env.do(t, http.MethodPost, "/notify/check", nil); rec.Code != http.StatusAccepted {
		t.Errorf("first trigger = %d, want 202", rec.Code)
	}
	if rec := env.do(t, http.MethodPost, "/notify/check", nil); rec.Code != http.StatusTooManyRequests {
		t.Errorf("second trigger = %d, want 429", rec.Code)
	}
	<-env.trigger
	if rec := env.do(t, http.MethodPost, "/notify/check", nil); rec.Code != http.StatusAccepted {
		t.Errorf("after drain = %d, want 202", rec.Code)
	}
}

func TestOpsEndpoints_CIDRRestricted(t *testing.T) {
	env := newTestEnv(t, func(d *deps.Deps) {
		d.AllowedCIDRS = []string{"10.0.0.0/8"}
		d.Gatherer = prometheus.NewRegistry()
	})

	// httptest requests come from 192.0.2.1
	for _, path := range []string{"/readyz", "/infra", "/metrics"} {
		if rec := env.do(t, http.MethodGet, path, nil); rec.Code != http.StatusForbidden {
			t.Errorf("%s = %d, want 403", path, rec.Code)
		}
	}
	if rec := env.do(t, http.MethodGet, "/healthz", nil); rec.Code != http.StatusOK {
		t.Errorf("healthz = %d, want 200", rec.Code)
	}
}

func TestReadyzAndInfra(t *testing.T) {
	env := newTestEnv(t, nil)

	if rec := env.do(t, http.MethodGet, "/readyz", nil); rec.Code != http.StatusOK {
		t.Errorf("readyz = %d", rec.Code)
	}

	rec := env.do(t, http.MethodGet, "/infra", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("infra = %d", rec.Code)
	}
	got := decode[struct {
		Mode       string `json:"mode"`
		Components map[string]struct {
			OK bool `json:"ok"`
		} `json:"components"`
	}](t, rec)
	if got.Mode != "degraded" {
		t.Errorf("mode = %q, want degraded without a lookup endpoint", got.Mode)
	}
	if !got.Components["store"].OK || got.Components["lookup"].OK {
		t.Errorf("components = %+v", got.Components)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewCounter(prometheus.CounterOpts{Name: "shelfwatch_test_total"}))
	env := newTestEnv(t, func(d *deps.Deps) { d.Gatherer = reg })

	rec := env.do(t, http.MethodGet, "/metrics", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "shelfwatch_test_total") {
		t.Errorf("metrics body missing counter")
	}
}

func TestAPI_RateLimited(t *testing.T) {
	env := newTestEnv(t, func(d *deps.Deps) {
		d.APIBurst = 2
		d.APIRatePerMin = 1
	})

	for i := 0; i < 2; i++ {
		if rec := env.do(t, http.MethodGet, "/api/items", nil); rec.Code != http.StatusOK {
			t.Fatalf("request %d = %d", i, rec.Code)
		}
	}
	rec := env.do(t, http.MethodGet, "/api/items", nil)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("third request = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After")
	}
}

func TestAPI_HostEnforced(t *testing.T) {
	env := newTestEnv(t, func(d *deps.Deps) {
		d.AllowedHosts = []string{"shelf.example.com"}
	})

	// httptest requests use Host example.com
	if rec := env.do(t, http.MethodGet, "/api/items", nil); rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rec.Code)
	}
}
