package report

import (
	"fmt"
	"io"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// RenderDailyPNG writes a PNG bar chart of incidents per day for the
// report period.
func RenderDailyPNG(rep Report, w io.Writer) error {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("Corridor activations, last %d days", rep.PeriodDays)
	p.Y.Label.Text = "incidents"
	p.Y.Min = 0

	values := make(plotter.Values, len(rep.Days))
	labels := make([]string, len(rep.Days))
	for i, row := range rep.Days {
		values[i] = float64(row.Incidents)
		labels[i] = row.Day
	}

	bars, err := plotter.NewBarChart(values, vg.Points(20))
	if err != nil {
		return fmt.Errorf("failed to build bar chart: %w", err)
	}
	bars.LineStyle.Width = vg.Length(0)
	p.Add(bars)
	p.NominalX(labels...)

	wt, err := p.WriterTo(10*vg.Inch, 4*vg.Inch, "png")
	if err != nil {
		return fmt.Errorf("failed to render plot: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write plot: %w", err)
	}
	return nil
}
