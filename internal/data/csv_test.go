package data

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestParseBarsCSV(t *testing.T) {
	input := `timestamp,open,high,low,close,volume
2025-03-14 09:00:00,1.2000,1.2010,1.1990,1.2005,1500
2025-03-14 09:01:00,1.2005,1.2020,1.2000,1.2015,1800
`
	bars, err := ParseBarsCSV(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseBarsCSV() error = %v", err)
	}
	if len(bars) != 2 {
		t.Fatalf("bars = %d, want 2", len(bars))
	}

	first := bars[0]
	if !first.Open.Equal(decimal.RequireFromString("1.2000")) {
		t.Errorf("Open = %s, want 1.2000", first.Open)
	}
	if !first.Close.Equal(decimal.RequireFromString("1.2005")) {
		t.Errorf("Close = %s, want 1.2005", first.Close)
	}
	if first.Volume != 1500 {
		t.Errorf("Volume = %d, want 1500", first.Volume)
	}
	want := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)
	if !first.Timestamp.Equal(want) {
		t.Errorf("Timestamp = %v, want %v", first.Timestamp, want)
	}
}

func TestParseBarsCSV_NoHeader(t *testing.T) {
	input := "2025-03-14 09:00:00,1.2000,1.2010,1.1990,1.2005,1500\n"
	bars, err := ParseBarsCSV(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseBarsCSV() error = %v", err)
	}
	if len(bars) != 1 {
		t.Fatalf("bars = %d, want 1", len(bars))
	}
}

func TestParseBarsCSV_UnixTimestamp(t *testing.T) {
	input := "1741942800,1.2000,1.2010,1.1990,1.2005,1500\n"
	bars, err := ParseBarsCSV(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseBarsCSV() error = %v", err)
	}
	if bars[0].Timestamp != time.Unix(1741942800, 0).UTC() {
		t.Errorf("Timestamp = %v, want %v", bars[0].Timestamp, time.Unix(1741942800, 0).UTC())
	}
}

func TestParseBarsCSV_BadRow(t *testing.T) {
	input := "2025-03-14 09:00:00,not-a-price,1.2010,1.1990,1.2005,1500\n"
	if _, err := ParseBarsCSV(strings.NewReader(input)); err == nil {
		t.Fatal("ParseBarsCSV() expected error for bad price")
	}
}
