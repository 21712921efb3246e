package report

import (
	"bytes"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/goldenhour-labs/goldenhour/internal/corridor"
)

var testIntersections = []corridor.IntersectionConfig{
	{ID: "sig-1", Name: "Main & 1st", ETAOffsetSeconds: 0},
	{ID: "sig-2", Name: "Main & 2nd", ETAOffsetSeconds: 8},
}

func incidentAt(id int64, at time.Time, saved float64, cleared bool) corridor.Incident {
	inc := corridor.Incident{
		ID:               id,
		ReceivedAt:       at,
		TimeSavedSeconds: saved,
		Switches: []corridor.SignalSwitch{
			{IntersectionID: "sig-1", SwitchedAt: at, RevertedAt: at.Add(5 * time.Second)},
			{IntersectionID: "sig-2", SwitchedAt: at.Add(8 * time.Second), RevertedAt: at.Add(13 * time.Second)},
		},
	}
	if cleared {
		t := at.Add(time.Minute)
		inc.CorridorClearedAt = &t
	}
	return inc
}

func TestBuildDailyRows(t *testing.T) {
	now := time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC)
	yesterday := now.AddDate(0, 0, -1)
	lastWeek := now.AddDate(0, 0, -7)

	incidents := []corridor.Incident{
		incidentAt(4, now, 100, false),
		incidentAt(3, now.Add(-time.Hour), 50, true),
		incidentAt(2, yesterday, 80, true),
		incidentAt(1, lastWeek, 70, true), // outside a 3-day period
	}

	rep := Build(incidents, testIntersections, now, 3)

	wantDays := []DailyRow{
		{Day: "2026-03-12"},
		{Day: "2026-03-13", Incidents: 1, Cleared: 1, AvgTimeSavedSeconds: 80, P85TimeSavedSeconds: 80},
		{Day: "2026-03-14", Incidents: 2, Cleared: 1, AvgTimeSavedSeconds: 75, P85TimeSavedSeconds: 100},
	}
	if diff := cmp.Diff(wantDays, rep.Days); diff != "" {
		t.Errorf("daily rows mismatch (-want +got):\n%s", diff)
	}
	if rep.PeriodDays != 3 {
		t.Errorf("PeriodDays = %d, want 3", rep.PeriodDays)
	}
}

func TestBuildIntersectionRows(t *testing.T) {
	now := time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC)
	incidents := []corridor.Incident{
		incidentAt(1, now.Add(-2*time.Hour), 100, true),
		incidentAt(2, now.Add(-time.Hour), 100, true),
	}

	rep := Build(incidents, testIntersections, now, 1)

	if len(rep.Intersections) != 2 {
		t.Fatalf("got %d intersection rows, want 2", len(rep.Intersections))
	}
	sig2 := rep.Intersections[1]
	if sig2.IntersectionID != "sig-2" || sig2.Name != "Main & 2nd" {
		t.Errorf("unexpected row identity: %+v", sig2)
	}
	if sig2.Activations != 2 {
		t.Errorf("Activations = %d, want 2", sig2.Activations)
	}
	if sig2.MeanGreenSeconds != 5 {
		t.Errorf("MeanGreenSeconds = %f, want 5", sig2.MeanGreenSeconds)
	}
	if sig2.MeanETASeconds != 8 {
		t.Errorf("MeanETASeconds = %f, want 8", sig2.MeanETASeconds)
	}
}

func TestBuildEmptyLedger(t *testing.T) {
	now := time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC)
	rep := Build(nil, testIntersections, now, 2)

	if len(rep.Days) != 2 {
		t.Fatalf("got %d day rows, want 2", len(rep.Days))
	}
	for _, row := range rep.Days {
		if row.Incidents != 0 || row.AvgTimeSavedSeconds != 0 {
			t.Errorf("empty ledger produced non-zero row: %+v", row)
		}
	}
	for _, row := range rep.Intersections {
		if row.Activations != 0 {
			t.Errorf("empty ledger produced activations: %+v", row)
		}
	}
}

func TestRenderDailyPNG(t *testing.T) {
	now := time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC)
	rep := Build([]corridor.Incident{incidentAt(1, now, 100, true)}, testIntersections, now, 7)

	var buf bytes.Buffer
	if err := RenderDailyPNG(rep, &buf); err != nil {
		t.Fatalf("RenderDailyPNG() error: %v", err)
	}
	// PNG magic bytes.
	if buf.Len() < 8 || !bytes.HasPrefix(buf.Bytes(), []byte("\x89PNG")) {
		t.Errorf("output does not look like a PNG (%d bytes)", buf.Len())
	}
}
