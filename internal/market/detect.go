package market

import "math"

// SpikeKind classifies a flagged chart point.
type SpikeKind string

const (
	SpikePeak   SpikeKind = "peak"
	SpikeValley SpikeKind = "valley"
	SpikePoint  SpikeKind = "point" // user-selected, not a detected extremum
)

// Spike is a point of interest on the chart: a detected extremum or a point
// the user clicked directly. Index is only valid against the series version
// it was computed from; a refetch discards all prior spikes.
type Spike struct {
	Date          string    `json:"date"`
	Index         int       `json:"index"`
	Close         float64   `json:"close"`
	ChangePercent float64   `json:"changePercent"`
	Kind          SpikeKind `json:"kind"`
	NewsLoaded    bool      `json:"newsLoaded"`
	NewsSummary   string    `json:"newsSummary,omitempty"`
}

// DetectParams tunes the fractal extremum scan.
type DetectParams struct {
	LeftWindow       int     // neighbors compared before the candidate
	RightWindow      int     // neighbors compared after the candidate
	MinProminencePct float64 // minimum % deviation from the neighbor mean
}

// DefaultDetectParams matches the chart's default sensitivity.
var DefaultDetectParams = DetectParams{
	LeftWindow:       4,
	RightWindow:      4,
	MinProminencePct: 2.0,
}

// DetectSpikes scans a series for locally significant extrema. A point is a
// peak iff its close strictly exceeds every close in the left and right
// windows, a valley iff strictly below all of them; ties disqualify.
// Candidates whose prominence (deviation from the neighbor mean, in percent)
// falls below MinProminencePct are dropped. Series shorter than
// LeftWindow+RightWindow+1 yield no detections.
func DetectSpikes(s Series, p DetectParams) []Spike {
	if p.LeftWindow <= 0 || p.RightWindow <= 0 {
		p = DefaultDetectParams
	}
	if len(s) < p.LeftWindow+p.RightWindow+1 {
		return nil
	}

	var spikes []Spike
	for i := p.LeftWindow; i <= len(s)-1-p.RightWindow; i++ {
		c := s[i].Close

		isPeak, isValley := true, true
		var neighborSum float64
		for j := i - p.LeftWindow; j <= i+p.RightWindow; j++ {
			if j == i {
				continue
			}
			n := s[j].Close
			neighborSum += n
			if c <= n {
				isPeak = false
			}
			if c >= n {
				isValley = false
			}
		}
		if !isPeak && !isValley {
			continue
		}

		mean := neighborSum / float64(p.LeftWindow+p.RightWindow)
		if mean == 0 {
			continue
		}
		prominence := math.Abs(c-mean) / mean * 100
		if prominence < p.MinProminencePct {
			continue
		}

		kind := SpikePeak
		if isValley {
			kind = SpikeValley
		}
		spikes = append(spikes, Spike{
			Date:          s[i].Date,
			Index:         i,
			Close:         c,
			ChangePercent: ChangePercent(s, i),
			Kind:          kind,
		})
	}
	return spikes
}

// ChangePercent returns the percentage change of the close at index i versus
// the previous point, or 0 when there is no previous point or its close is 0.
func ChangePercent(s Series, i int) float64 {
	if i <= 0 || i >= len(s) {
		return 0
	}
	prev := s[i-1].Close
	if prev == 0 {
		return 0
	}
	return (s[i].Close - prev) / prev * 100
}
