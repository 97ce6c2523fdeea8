package http_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpadapter "github.com/couchcryptid/traffic-count-etl/internal/adapter/http"
	"github.com/couchcryptid/traffic-count-etl/internal/domain"
)

// --- mocks ---

type mockReadiness struct {
	err error
}

func (m *mockReadiness) CheckReadiness(_ context.Context) error { return m.err }

type mockSites struct {
	sites       []domain.Site
	data        map[string]domain.Dataset
	rebuildErr  error
	invalidated []string
}

func (m *mockSites) Sites() []domain.Site { return m.sites }

func (m *mockSites) Site(id string) (domain.Site, bool) { return domain.FindSite(m.sites, id) }

func (m *mockSites) Get(_ context.Context, id, _ string) domain.Dataset { return m.data[id] }

func (m *mockSites) Invalidate(id string) { m.invalidated = append(m.invalidated, id) }

func (m *mockSites) Rebuild(_ context.Context, id, _ string) (domain.Dataset, error) {
	if _, ok := m.Site(id); !ok {
		return domain.Dataset{}, fmt.Errorf("%q: %w", id, domain.ErrUnknownSite)
	}
	if m.rebuildErr != nil {
		return domain.Dataset{}, m.rebuildErr
	}
	return m.data[id], nil
}

// --- fixtures ---

func paris(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation(domain.DefaultTimezone)
	require.NoError(t, err)
	return loc
}

func record(ts time.Time, direction string, cat domain.Category, count *float64) domain.Record {
	r := domain.Record{Datetime: ts, Direction: direction, UnifiedCategory: cat, Count: count}
	domain.DeriveCalendar(&r)
	r.WeekdayFR = domain.FrenchDay(r.Weekday)
	r.DayType = domain.DayTypeOf(r.Weekday)
	return r
}

func newSites(t *testing.T) *mockSites {
	t.Helper()
	loc := paris(t)
	mon := time.Date(2023, time.June, 12, 8, 0, 0, 0, loc)
	sat := time.Date(2023, time.June, 17, 10, 0, 0, 0, loc)
	ten := 10.0

	road := domain.Dataset{
		SiteID:   "bonette",
		Kind:     domain.SiteRoad,
		Location: loc,
		Metadata: domain.Metadata{SiteName: "Col de la Bonette", Direction1: "vers Bonette", Direction2: "vers Jausiers"},
		Records: []domain.Record{
			record(mon, "1", domain.CategoryLight, nil),
			record(mon.Add(time.Hour), "2", domain.CategoryLight, nil),
			record(sat, "1", domain.CategoryBike, nil),
			record(sat.Add(time.Hour), "1", domain.CategoryHeavy, nil),
		},
	}
	ped := domain.Dataset{
		SiteID:   "jausiers",
		Kind:     domain.SitePedestrian,
		Location: loc,
		Metadata: domain.Metadata{SiteName: "Jausiers", Direction1: domain.DefaultDirection1, Direction2: domain.DefaultDirection2},
		Records:  []domain.Record{record(mon, "", domain.CategoryPedestrian, &ten)},
	}

	return &mockSites{
		sites: []domain.Site{
			{ID: "bonette", Name: "Col de la Bonette", Type: "routier", Coords: []float64{44.32, 6.80}},
			{ID: "jausiers", Name: "Jausiers", Type: "pieton"},
		},
		data: map[string]domain.Dataset{"bonette": road, "jausiers": ped},
	}
}

func newTestServer(sites *mockSites, readyErr error) *httpadapter.Server {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return httpadapter.NewServer(":0", sites, &mockReadiness{err: readyErr}, logger)
}

func do(t *testing.T, srv *httpadapter.Server, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

// --- probes ---

func TestHealthzReturns200(t *testing.T) {
	rec := do(t, newTestServer(newSites(t), nil), http.MethodGet, "/healthz")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", decode[map[string]string](t, rec)["status"])
}

func TestReadyzReturns200WhenReady(t *testing.T) {
	rec := do(t, newTestServer(newSites(t), nil), http.MethodGet, "/readyz")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ready", decode[map[string]string](t, rec)["status"])
}

func TestReadyzReturns503WhenNotReady(t *testing.T) {
	rec := do(t, newTestServer(newSites(t), fmt.Errorf("site registry is empty or unreadable")), http.MethodGet, "/readyz")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	body := decode[map[string]string](t, rec)
	assert.Equal(t, "not ready", body["status"])
	assert.Equal(t, "site registry is empty or unreadable", body["error"])
}

func TestMetricsEndpoint(t *testing.T) {
	rec := do(t, newTestServer(newSites(t), nil), http.MethodGet, "/metrics")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

// --- API ---

func TestListSites(t *testing.T) {
	rec := do(t, newTestServer(newSites(t), nil), http.MethodGet, "/api/sites")

	require.Equal(t, http.StatusOK, rec.Code)
	type site struct {
		ID        string  `json:"id"`
		Kind      string  `json:"kind"`
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	}
	got := decode[[]site](t, rec)
	assert.Equal(t, []site{
		{ID: "bonette", Kind: "road", Latitude: 44.32, Longitude: 6.80},
		{ID: "jausiers", Kind: "pedestrian"},
	}, got)
}

type synthesisBody struct {
	Period string `json:"period"`
	Days   struct {
		Total   int `json:"total"`
		Workday int `json:"workday"`
		Weekend int `json:"weekend"`
	} `json:"days"`
	Synthesis struct {
		Direction1 string `json:"direction_1"`
		Rows       []struct {
			Label      string `json:"label"`
			Direction1 struct {
				Total int `json:"total"`
			} `json:"direction_1"`
			Direction2 struct {
				Total int `json:"total"`
			} `json:"direction_2"`
		} `json:"rows"`
	} `json:"synthesis"`
	Pedestrian *struct {
		Total int `json:"total"`
	} `json:"pedestrian"`
}

func TestSynthesis(t *testing.T) {
	rec := do(t, newTestServer(newSites(t), nil), http.MethodGet, "/api/sites/bonette/synthesis?start=2023-06-12&end=2023-06-18")

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[synthesisBody](t, rec)

	assert.Equal(t, "du 12/06/2023 au 18/06/2023", body.Period)
	assert.Equal(t, 7, body.Days.Total)
	assert.Equal(t, 5, body.Days.Workday)
	assert.Equal(t, 2, body.Days.Weekend)
	assert.Equal(t, "vers Bonette", body.Synthesis.Direction1)

	require.Len(t, body.Synthesis.Rows, 5)
	last := body.Synthesis.Rows[4]
	assert.Equal(t, "Toutes Mobilités", last.Label)
	assert.Equal(t, 3, last.Direction1.Total)
	assert.Equal(t, 1, last.Direction2.Total)
	assert.Nil(t, body.Pedestrian)
}

func TestSynthesis_SeasonFilters(t *testing.T) {
	rec := do(t, newTestServer(newSites(t), nil), http.MethodGet, "/api/sites/bonette/synthesis?season=06-15:06-30")

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[synthesisBody](t, rec)
	assert.Equal(t, "Toute la période, saison 06-15:06-30", body.Period)
	assert.Equal(t, 2, body.Synthesis.Rows[4].Direction1.Total)
	assert.Equal(t, 0, body.Synthesis.Rows[4].Direction2.Total)
}

func TestSynthesis_Pedestrian(t *testing.T) {
	rec := do(t, newTestServer(newSites(t), nil), http.MethodGet, "/api/sites/jausiers/synthesis")

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[synthesisBody](t, rec)
	require.NotNil(t, body.Pedestrian)
	assert.Equal(t, 10, body.Pedestrian.Total)
}

func TestDatasetRoutes_BadRequests(t *testing.T) {
	srv := newTestServer(newSites(t), nil)

	tests := []struct {
		name   string
		target string
		status int
	}{
		{"unknown site", "/api/sites/nope/synthesis", http.StatusNotFound},
		{"start without end", "/api/sites/bonette/synthesis?start=2023-06-01", http.StatusBadRequest},
		{"bad date", "/api/sites/bonette/timeline?start=2023-13-01&end=2023-12-31", http.StatusBadRequest},
		{"reversed range", "/api/sites/bonette/heatmap?start=2023-06-30&end=2023-06-01", http.StatusBadRequest},
		{"bad season", "/api/sites/bonette/comparison?season=13-01:02-30", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, srv, http.MethodGet, tt.target)
			assert.Equal(t, tt.status, rec.Code)
			assert.NotEmpty(t, decode[map[string]string](t, rec)["error"])
		})
	}
}

func TestTimeline(t *testing.T) {
	srv := newTestServer(newSites(t), nil)

	rec := do(t, srv, http.MethodGet, "/api/sites/bonette/timeline")
	require.Equal(t, http.StatusOK, rec.Code)
	auto := decode[struct {
		Frequency string `json:"frequency"`
		Points    []struct {
			Group  string  `json:"group"`
			Volume float64 `json:"volume"`
		} `json:"points"`
	}](t, rec)
	assert.Equal(t, "H", auto.Frequency, "a six-day span is bucketed hourly")
	assert.NotEmpty(t, auto.Points)

	rec = do(t, srv, http.MethodGet, "/api/sites/bonette/timeline?freq=d&cats=VL&dirs=2")
	require.Equal(t, http.StatusOK, rec.Code)
	daily := decode[struct {
		Frequency string `json:"frequency"`
		Points    []struct {
			Group  string  `json:"group"`
			Volume float64 `json:"volume"`
		} `json:"points"`
	}](t, rec)
	assert.Equal(t, "D", daily.Frequency)
	require.Len(t, daily.Points, 1)
	assert.Equal(t, "VL - vers Jausiers", daily.Points[0].Group)
	assert.InDelta(t, 1.0, daily.Points[0].Volume, 1e-9)
}

func TestHeatmapAndComparison(t *testing.T) {
	srv := newTestServer(newSites(t), nil)

	rec := do(t, srv, http.MethodGet, "/api/sites/bonette/heatmap")
	require.Equal(t, http.StatusOK, rec.Code)
	heat := decode[struct {
		Days []string `json:"days"`
	}](t, rec)
	assert.Equal(t, domain.FrenchDaysOrder, heat.Days)

	rec = do(t, srv, http.MethodGet, "/api/sites/bonette/comparison?cats=PL")
	require.Equal(t, http.StatusOK, rec.Code)
	cmpBody := decode[struct {
		Annual []struct {
			Year     int     `json:"year"`
			Category string  `json:"category"`
			TMJ      float64 `json:"tmj"`
		} `json:"annual"`
	}](t, rec)
	require.Len(t, cmpBody.Annual, 1)
	assert.Equal(t, 2023, cmpBody.Annual[0].Year)
	assert.Equal(t, "PL", cmpBody.Annual[0].Category)
}

func TestReportRoutes(t *testing.T) {
	srv := newTestServer(newSites(t), nil)

	rec := do(t, srv, http.MethodGet, "/api/sites/bonette/report")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "Col de la Bonette")
	assert.Contains(t, rec.Body.String(), "vers Jausiers")

	rec = do(t, srv, http.MethodGet, "/api/sites/bonette/report.csv")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "synthese_bonette.csv")
	assert.Contains(t, rec.Body.String(), "categorie;sens;total;tmj;tmj_jo;tmj_we;vt\n")
}

func TestInvalidate(t *testing.T) {
	sites := newSites(t)
	srv := newTestServer(sites, nil)

	rec := do(t, srv, http.MethodPost, "/api/sites/bonette/invalidate")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"bonette"}, sites.invalidated)

	rec = do(t, srv, http.MethodPost, "/api/sites/nope/invalidate")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, srv, http.MethodGet, "/api/sites/bonette/invalidate")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRebuild(t *testing.T) {
	tests := []struct {
		name   string
		site   string
		err    error
		status int
	}{
		{"rebuilt", "bonette", nil, http.StatusOK},
		{"unknown", "nope", nil, http.StatusNotFound},
		{"no sources", "bonette", fmt.Errorf("ingest: %w", domain.ErrNoSourceFiles), http.StatusConflict},
		{"fault", "bonette", fmt.Errorf("disk full"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sites := newSites(t)
			sites.rebuildErr = tt.err

			rec := do(t, newTestServer(sites, nil), http.MethodPost, "/api/sites/"+tt.site+"/rebuild")

			assert.Equal(t, tt.status, rec.Code)
			if tt.status == http.StatusOK {
				body := decode[map[string]any](t, rec)
				assert.Equal(t, "bonette", body["site_id"])
				assert.InDelta(t, 4.0, body["records"], 1e-9)
			}
		})
	}
}
