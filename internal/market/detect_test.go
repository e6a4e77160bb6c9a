package market

import (
	"fmt"
	"testing"
)

func seriesFromCloses(closes []float64) Series {
	s := make(Series, len(closes))
	for i, c := range closes {
		s[i] = PricePoint{
			Date:  fmt.Sprintf("2024-01-%02d", i+1),
			Close: c,
		}
	}
	return s
}

func TestDetectSpikesShortSeries(t *testing.T) {
	// Anything below leftWindow+rightWindow+1 points yields no detections.
	for n := 0; n < 9; n++ {
		closes := make([]float64, n)
		for i := range closes {
			closes[i] = 100 + float64(i%3)*10
		}
		if got := DetectSpikes(seriesFromCloses(closes), DefaultDetectParams); got != nil {
			t.Errorf("len=%d: got %d spikes, want none", n, len(got))
		}
	}
}

func TestDetectSpikesMonotonicRamp(t *testing.T) {
	closes := make([]float64, 30)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	if got := DetectSpikes(seriesFromCloses(closes), DefaultDetectParams); len(got) != 0 {
		t.Errorf("ramp produced %d spikes, want 0", len(got))
	}
}

func TestDetectSpikesIsolatedPeak(t *testing.T) {
	// Flat baseline of 100 with the 5th point 10% above: exactly index 4,
	// as a peak.
	closes := []float64{100, 100, 100, 100, 110, 100, 100, 100, 100}
	got := DetectSpikes(seriesFromCloses(closes), DefaultDetectParams)
	if len(got) != 1 {
		t.Fatalf("got %d spikes, want 1", len(got))
	}
	sp := got[0]
	if sp.Index != 4 {
		t.Errorf("Index = %d, want 4", sp.Index)
	}
	if sp.Kind != SpikePeak {
		t.Errorf("Kind = %s, want peak", sp.Kind)
	}
	if sp.Date != "2024-01-05" {
		t.Errorf("Date = %s, want 2024-01-05", sp.Date)
	}
	if sp.ChangePercent != 10 {
		t.Errorf("ChangePercent = %v, want 10", sp.ChangePercent)
	}
	if sp.NewsLoaded || sp.NewsSummary != "" {
		t.Error("fresh spike should have no enrichment state")
	}
}

func TestDetectSpikesIsolatedValley(t *testing.T) {
	closes := []float64{100, 100, 100, 100, 88, 100, 100, 100, 100}
	got := DetectSpikes(seriesFromCloses(closes), DefaultDetectParams)
	if len(got) != 1 {
		t.Fatalf("got %d spikes, want 1", len(got))
	}
	if got[0].Kind != SpikeValley {
		t.Errorf("Kind = %s, want valley", got[0].Kind)
	}
}

func TestDetectSpikesTieDisqualifies(t *testing.T) {
	// The candidate equals one neighbor; strict comparison rejects it.
	closes := []float64{100, 100, 100, 100, 110, 110, 100, 100, 100, 100}
	for _, sp := range DetectSpikes(seriesFromCloses(closes), DefaultDetectParams) {
		if sp.Index == 4 || sp.Index == 5 {
			t.Errorf("tied point at index %d detected as %s", sp.Index, sp.Kind)
		}
	}
}

func TestDetectSpikesProminenceFilter(t *testing.T) {
	// 1% bump above baseline is a strict local max but below the 2% floor.
	closes := []float64{100, 100, 100, 100, 101, 100, 100, 100, 100}
	if got := DetectSpikes(seriesFromCloses(closes), DefaultDetectParams); len(got) != 0 {
		t.Errorf("sub-threshold bump detected: %+v", got)
	}

	// Lowering the floor admits it.
	p := DetectParams{LeftWindow: 4, RightWindow: 4, MinProminencePct: 0.5}
	if got := DetectSpikes(seriesFromCloses(closes), p); len(got) != 1 {
		t.Errorf("got %d spikes with 0.5%% floor, want 1", len(got))
	}
}

func TestDetectSpikesRerunReplacesState(t *testing.T) {
	closes := []float64{100, 100, 100, 100, 110, 100, 100, 100, 100}
	s := seriesFromCloses(closes)

	first := DetectSpikes(s, DefaultDetectParams)
	first[0].NewsLoaded = true
	first[0].NewsSummary = "stale"

	second := DetectSpikes(s, DefaultDetectParams)
	if second[0].NewsLoaded || second[0].NewsSummary != "" {
		t.Error("re-detection carried over enrichment state")
	}
}

func TestChangePercent(t *testing.T) {
	s := seriesFromCloses([]float64{0, 50, 55})
	if got := ChangePercent(s, 0); got != 0 {
		t.Errorf("first point change = %v, want 0", got)
	}
	if got := ChangePercent(s, 1); got != 0 {
		t.Errorf("change vs zero close = %v, want 0", got)
	}
	if got := ChangePercent(s, 2); got != 10 {
		t.Errorf("change = %v, want 10", got)
	}
}
