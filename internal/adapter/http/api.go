package http

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"

	"github.com/couchcryptid/traffic-count-etl/internal/analytics"
	"github.com/couchcryptid/traffic-count-etl/internal/domain"
	"github.com/couchcryptid/traffic-count-etl/internal/period"
	"github.com/couchcryptid/traffic-count-etl/internal/report"
)

type siteView struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Kind      domain.SiteType `json:"kind"`
	Keywords  []string        `json:"keywords,omitempty"`
	Latitude  float64         `json:"latitude"`
	Longitude float64         `json:"longitude"`
}

type synthesisResponse struct {
	SiteID     string                       `json:"site_id"`
	Kind       domain.SiteType              `json:"kind"`
	Metadata   domain.Metadata              `json:"metadata"`
	Period     string                       `json:"period"`
	Days       period.DayCounts             `json:"days"`
	Synthesis  analytics.SynthesisTable     `json:"synthesis"`
	Modal      analytics.Split              `json:"modal"`
	Pedestrian *analytics.PedestrianSummary `json:"pedestrian,omitempty"`
}

type timelineResponse struct {
	Frequency analytics.Frequency       `json:"frequency"`
	Points    []analytics.TimelinePoint `json:"points"`
}

type rebuildResponse struct {
	SiteID  string `json:"site_id"`
	Records int    `json:"records"`
}

// datasetHandler serves one site's dataset for a parsed selection.
type datasetHandler func(w http.ResponseWriter, r *http.Request, ds domain.Dataset, q query)

// withDataset resolves the {id} path value and the query string. Unknown
// sites get 404 and malformed selections 400.
func (s *Server) withDataset(next datasetHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		if _, ok := s.sites.Site(id); !ok {
			writeError(w, http.StatusNotFound, fmt.Sprintf("unknown site %q", id))
			return
		}
		q, err := parseQuery(r.URL.Query())
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		next(w, r, s.sites.Get(r.Context(), id, ""), q)
	}
}

func (s *Server) handleSites(w http.ResponseWriter, _ *http.Request) {
	sites := s.sites.Sites()
	out := make([]siteView, 0, len(sites))
	for _, site := range sites {
		out = append(out, siteView{
			ID:        site.ID,
			Name:      site.Name,
			Kind:      site.Kind(),
			Keywords:  site.Keywords,
			Latitude:  site.Lat(),
			Longitude: site.Lon(),
		})
	}
	sharedobs.WriteJSON(w, http.StatusOK, out)
}

func (s *Server) handleSynthesis(w http.ResponseWriter, _ *http.Request, ds domain.Dataset, q query) {
	sharedobs.WriteJSON(w, http.StatusOK, synthesize(ds, q.window))
}

func synthesize(ds domain.Dataset, win period.Window) synthesisResponse {
	filtered, days := win.Apply(ds)
	resp := synthesisResponse{
		SiteID:    ds.SiteID,
		Kind:      ds.Kind,
		Metadata:  ds.Metadata,
		Period:    report.PeriodLabel(win),
		Days:      days,
		Synthesis: analytics.Synthesis(filtered, days),
		Modal:     analytics.ModalSplit(filtered),
	}
	if ds.Kind == domain.SitePedestrian {
		summary := analytics.SummarizePedestrian(filtered, days)
		resp.Pedestrian = &summary
	}
	return resp
}

func (s *Server) handleTimeline(w http.ResponseWriter, _ *http.Request, ds domain.Dataset, q query) {
	filtered, _ := q.window.Apply(ds)

	freq := analytics.ParseFrequency(q.freq)
	if q.freq == "" {
		freq = analytics.Daily
		if first, last, ok := filtered.DateBounds(); ok {
			freq = analytics.AutoFrequency(first, last)
		}
	}

	points := analytics.Timeline(filtered, freq, q.cats, q.dirs)
	if points == nil {
		points = []analytics.TimelinePoint{}
	}
	sharedobs.WriteJSON(w, http.StatusOK, timelineResponse{Frequency: freq, Points: points})
}

func (s *Server) handleHeatmap(w http.ResponseWriter, _ *http.Request, ds domain.Dataset, q query) {
	filtered, _ := q.window.Apply(ds)
	sharedobs.WriteJSON(w, http.StatusOK, analytics.WeeklyHeatmap(filtered, q.window.Start, q.window.End))
}

func (s *Server) handleComparison(w http.ResponseWriter, _ *http.Request, ds domain.Dataset, q query) {
	filtered, _ := q.window.Apply(ds)
	sharedobs.WriteJSON(w, http.StatusOK, analytics.Compare(filtered, q.cats))
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request, ds domain.Dataset, q query) {
	resp := synthesize(ds, q.window)

	var buf bytes.Buffer
	err := report.HTML(&buf, report.Input{
		SiteName:    ds.Metadata.SiteName,
		PeriodLabel: resp.Period,
		Synthesis:   resp.Synthesis,
		Modal:       resp.Modal,
		Pedestrian:  resp.Pedestrian,
	})
	if err != nil {
		s.logger.Error("render report failed", "site_id", ds.SiteID, "error", err)
		writeError(w, http.StatusInternalServerError, "report rendering failed")
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	buf.WriteTo(w) //nolint:errcheck // client went away
}

func (s *Server) handleReportCSV(w http.ResponseWriter, _ *http.Request, ds domain.Dataset, q query) {
	resp := synthesize(ds, q.window)

	var buf bytes.Buffer
	if err := report.WriteSynthesisCSV(&buf, resp.Synthesis); err != nil {
		s.logger.Error("export synthesis failed", "site_id", ds.SiteID, "error", err)
		writeError(w, http.StatusInternalServerError, "synthesis export failed")
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="synthese_%s.csv"`, ds.SiteID))
	w.WriteHeader(http.StatusOK)
	buf.WriteTo(w) //nolint:errcheck // client went away
}

func (s *Server) handleInvalidate(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, ok := s.sites.Site(id); !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("unknown site %q", id))
		return
	}
	s.sites.Invalidate(id)
	sharedobs.WriteJSON(w, http.StatusOK, map[string]string{"status": "invalidated", "site_id": id})
}

func (s *Server) handleRebuild(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	ds, err := s.sites.Rebuild(r.Context(), id, "")
	switch {
	case errors.Is(err, domain.ErrUnknownSite):
		writeError(w, http.StatusNotFound, fmt.Sprintf("unknown site %q", id))
	case errors.Is(err, domain.ErrNoSourceFiles):
		writeError(w, http.StatusConflict, fmt.Sprintf("no source files for site %q", id))
	case err != nil:
		s.logger.Error("site rebuild failed", "site_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "rebuild failed")
	default:
		s.logger.Info("site rebuilt on request", "site_id", id, "records", len(ds.Records))
		sharedobs.WriteJSON(w, http.StatusOK, rebuildResponse{SiteID: id, Records: len(ds.Records)})
	}
}
