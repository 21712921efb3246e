package api

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/goldenhour-labs/goldenhour/internal/report"
)

// showReportChart renders the daily report as an HTML bar/line chart
// using go-echarts. Debugging and wall-display use; the JSON report at
// /api/report is the canonical machine-readable form.
func (s *Server) showReportChart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	days, err := s.reportDays(r)
	if err != nil {
		s.writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	rep := report.Build(s.ledger.Snapshot(), s.cfg.Intersections, s.clock.Now(), days)

	labels := make([]string, 0, len(rep.Days))
	incidents := make([]opts.BarData, 0, len(rep.Days))
	cleared := make([]opts.BarData, 0, len(rep.Days))
	saved := make([]opts.LineData, 0, len(rep.Days))
	for _, row := range rep.Days {
		labels = append(labels, row.Day)
		incidents = append(incidents, opts.BarData{Value: row.Incidents})
		cleared = append(cleared, opts.BarData{Value: row.Cleared})
		saved = append(saved, opts.LineData{Value: row.AvgTimeSavedSeconds})
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "GoldenHour Corridor Report", Theme: "dark", Width: "1100px", Height: "500px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Corridor activations per day",
			Subtitle: fmt.Sprintf("last %d days, %d intersections", rep.PeriodDays, len(rep.Intersections)),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(labels).
		AddSeries("incidents", incidents).
		AddSeries("cleared", cleared)

	line := charts.NewLine()
	line.SetXAxis(labels).AddSeries("avg time saved (s)", saved)
	bar.Overlap(line)

	var buf bytes.Buffer
	if err := bar.Render(&buf); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to render chart: %v", err))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}
