// Package report derives higher-level aggregates from the incident
// ledger: daily totals and per-intersection averages. It is a pure fold
// over a ledger snapshot, so it is stable under concurrent ingestion.
package report

import (
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/goldenhour-labs/goldenhour/internal/corridor"
)

// DailyRow aggregates one calendar day (UTC).
type DailyRow struct {
	Day                 string  `json:"day"` // YYYY-MM-DD
	Incidents           int     `json:"incidents"`
	Cleared             int     `json:"cleared"`
	AvgTimeSavedSeconds float64 `json:"avgTimeSavedSeconds"`
	P85TimeSavedSeconds float64 `json:"p85TimeSavedSeconds"`
}

// IntersectionRow aggregates one intersection across the period.
type IntersectionRow struct {
	IntersectionID   string  `json:"intersectionId"`
	Name             string  `json:"name"`
	Activations      int     `json:"activations"`
	MeanGreenSeconds float64 `json:"meanGreenSeconds"`
	MeanETASeconds   float64 `json:"meanEtaSeconds"`
}

// Report is the derived view served by /api/report.
type Report struct {
	PeriodDays    int               `json:"periodDays"`
	GeneratedAt   time.Time         `json:"generatedAt"`
	Days          []DailyRow        `json:"days"` // oldest first, one row per day in the period
	Intersections []IntersectionRow `json:"intersections"`
}

// Build folds a ledger snapshot into a Report covering the last `days`
// calendar days up to and including now's day. Incidents outside the
// period are ignored.
func Build(incidents []corridor.Incident, intersections []corridor.IntersectionConfig, now time.Time, days int) Report {
	if days < 1 {
		days = 1
	}
	today := now.UTC().Truncate(24 * time.Hour)
	periodStart := today.AddDate(0, 0, -(days - 1))

	byDay := make(map[string][]corridor.Incident)
	var inPeriod []corridor.Incident
	for _, inc := range incidents {
		day := inc.ReceivedAt.UTC().Truncate(24 * time.Hour)
		if day.Before(periodStart) || day.After(today) {
			continue
		}
		key := day.Format("2006-01-02")
		byDay[key] = append(byDay[key], inc)
		inPeriod = append(inPeriod, inc)
	}

	rep := Report{PeriodDays: days, GeneratedAt: now}
	for d := periodStart; !d.After(today); d = d.AddDate(0, 0, 1) {
		key := d.Format("2006-01-02")
		row := DailyRow{Day: key}
		var saved []float64
		for _, inc := range byDay[key] {
			row.Incidents++
			if inc.CorridorClearedAt != nil {
				row.Cleared++
			}
			saved = append(saved, inc.TimeSavedSeconds)
		}
		if len(saved) > 0 {
			sort.Float64s(saved)
			row.AvgTimeSavedSeconds = stat.Mean(saved, nil)
			row.P85TimeSavedSeconds = stat.Quantile(0.85, stat.Empirical, saved, nil)
		}
		rep.Days = append(rep.Days, row)
	}

	for _, ic := range intersections {
		row := IntersectionRow{IntersectionID: ic.ID, Name: ic.Name}
		var green, eta []float64
		for _, inc := range inPeriod {
			for _, sw := range inc.Switches {
				if sw.IntersectionID != ic.ID {
					continue
				}
				row.Activations++
				green = append(green, sw.RevertedAt.Sub(sw.SwitchedAt).Seconds())
				eta = append(eta, sw.SwitchedAt.Sub(inc.ReceivedAt).Seconds())
			}
		}
		if len(green) > 0 {
			row.MeanGreenSeconds = stat.Mean(green, nil)
			row.MeanETASeconds = stat.Mean(eta, nil)
		}
		rep.Intersections = append(rep.Intersections, row)
	}
	return rep
}
