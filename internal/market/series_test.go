package market

import (
	"errors"
	"fmt"
	"testing"
)

func TestNormalizeSortsAndTrimsDates(t *testing.T) {
	rows := []Row{
		{Timestamp: "2024-06-05T04:00:00Z", Close: 103},
		{Timestamp: "2024-06-03 09:30:00", Close: 101},
		{Timestamp: "2024-06-04", Close: 102},
	}

	s, err := Normalize(rows, RangeMax)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if len(s) != 3 {
		t.Fatalf("got %d points, want 3", len(s))
	}
	wantDates := []string{"2024-06-03", "2024-06-04", "2024-06-05"}
	for i, want := range wantDates {
		if s[i].Date != want {
			t.Errorf("point %d date = %s, want %s", i, s[i].Date, want)
		}
	}
	for i := 1; i < len(s); i++ {
		if s[i].Date <= s[i-1].Date {
			t.Errorf("dates not strictly increasing at %d: %s <= %s", i, s[i].Date, s[i-1].Date)
		}
	}
}

func TestNormalizeDuplicateDatesLastWins(t *testing.T) {
	rows := []Row{
		{Timestamp: "2024-06-03T04:00:00Z", Close: 100},
		{Timestamp: "2024-06-03T20:00:00Z", Close: 105},
	}
	s, err := Normalize(rows, RangeMax)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if len(s) != 1 {
		t.Fatalf("got %d points, want 1", len(s))
	}
	if s[0].Close != 105 {
		t.Errorf("Close = %v, want 105 (last row wins)", s[0].Close)
	}
}

func TestNormalizeMissingFieldsDefaultZero(t *testing.T) {
	s, err := Normalize([]Row{{Timestamp: "2024-06-03", Close: 100}}, RangeMax)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	p := s[0]
	if p.Open != 0 || p.High != 0 || p.Low != 0 || p.AdjClose != 0 || p.Volume != 0 {
		t.Errorf("absent fields should be zero, got %+v", p)
	}
}

func TestNormalizeRangeTail(t *testing.T) {
	// 200 trading days; 3M keeps exactly the last 66 in chronological order.
	rows := make([]Row, 200)
	for i := range rows {
		rows[i] = Row{
			Timestamp: fmt.Sprintf("2024-%02d-%02d", i/28+1, i%28+1),
			Close:     float64(i),
		}
	}
	s, err := Normalize(rows, Range3M)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if len(s) != 66 {
		t.Fatalf("got %d points, want 66", len(s))
	}
	if s[len(s)-1].Close != 199 {
		t.Errorf("last point Close = %v, want 199", s[len(s)-1].Close)
	}
	if s[0].Close != 134 {
		t.Errorf("first point Close = %v, want 134", s[0].Close)
	}
}

func TestNormalizeMaxKeepsEverything(t *testing.T) {
	rows := make([]Row, 300)
	for i := range rows {
		rows[i] = Row{Timestamp: fmt.Sprintf("2023-01-01T00:00:0%dZ", i%10), Close: 1}
	}
	// All rows collapse to one date; use distinct dates instead.
	rows = rows[:0]
	for y := 2020; y < 2023; y++ {
		for m := 1; m <= 12; m++ {
			rows = append(rows, Row{Timestamp: fmt.Sprintf("%d-%02d-15", y, m), Close: 1})
		}
	}
	s, err := Normalize(rows, RangeMax)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if len(s) != 36 {
		t.Errorf("MAX range trimmed series: got %d points, want 36", len(s))
	}
}

func TestNormalizeNoData(t *testing.T) {
	_, err := Normalize(nil, Range1M)
	if !errors.Is(err, ErrNoData) {
		t.Errorf("err = %v, want ErrNoData", err)
	}

	// Rows with unparseable timestamps also count as no data.
	_, err = Normalize([]Row{{Timestamp: "garbage"}}, Range1M)
	if !errors.Is(err, ErrNoData) {
		t.Errorf("err = %v, want ErrNoData for unparseable rows", err)
	}
}

func TestParseRange(t *testing.T) {
	r, err := ParseRange("")
	if err != nil || r != Range3M {
		t.Errorf("ParseRange(\"\") = %v, %v; want 3M default", r, err)
	}
	if _, err := ParseRange("2W"); err == nil {
		t.Error("ParseRange(\"2W\") should fail")
	}
	var verr *ValidationError
	_, err = ParseRange("forever")
	if !errors.As(err, &verr) {
		t.Errorf("ParseRange error type = %T, want *ValidationError", err)
	}
	if r, _ := ParseRange("1y"); r != Range1Y {
		t.Errorf("ParseRange is not case-insensitive: got %v", r)
	}
}
