// Package data provides a market-data client backed by CSV files for
// backtesting and research.
package data

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tathienbao/strategy-engine/internal/types"
)

// ParseBarsCSV parses bars from a CSV reader.
// Format: timestamp,open,high,low,close,volume with an optional header
// row. Timestamps may be RFC 3339, "2006-01-02 15:04:05", or Unix
// seconds.
func ParseBarsCSV(r io.Reader) ([]types.Bar, error) {
	reader := csv.NewReader(bufio.NewReader(r))
	reader.TrimLeadingSpace = true

	var bars []types.Bar
	lineNum := 0

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNum+1, err)
		}
		lineNum++

		if lineNum == 1 && isHeader(record) {
			continue
		}
		if len(record) < 6 {
			return nil, fmt.Errorf("line %d: expected 6 fields, got %d", lineNum, len(record))
		}

		ts, err := parseTimestamp(record[0])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNum, err)
		}

		open, err := decimal.NewFromString(record[1])
		if err != nil {
			return nil, fmt.Errorf("line %d: open: %w", lineNum, err)
		}
		high, err := decimal.NewFromString(record[2])
		if err != nil {
			return nil, fmt.Errorf("line %d: high: %w", lineNum, err)
		}
		low, err := decimal.NewFromString(record[3])
		if err != nil {
			return nil, fmt.Errorf("line %d: low: %w", lineNum, err)
		}
		closePrice, err := decimal.NewFromString(record[4])
		if err != nil {
			return nil, fmt.Errorf("line %d: close: %w", lineNum, err)
		}
		volume, err := strconv.ParseInt(record[5], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: volume: %w", lineNum, err)
		}

		bars = append(bars, types.Bar{
			Open:      open,
			High:      high,
			Low:       low,
			Close:     closePrice,
			Volume:    volume,
			Timestamp: ts,
		})
	}

	return bars, nil
}

// LoadBarsFile reads bars from a CSV file on disk.
func LoadBarsFile(path string) ([]types.Bar, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer file.Close()

	bars, err := ParseBarsCSV(file)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return bars, nil
}

func isHeader(record []string) bool {
	if len(record) == 0 {
		return false
	}
	_, err := parseTimestamp(record[0])
	return err != nil
}

func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.UTC(), nil
		}
	}
	if unix, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(unix, 0).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}
