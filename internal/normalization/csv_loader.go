package normalization

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"signal-backtest-lab/internal/domain"
)

// Loader errors
var (
	ErrNoPriceColumn = errors.New("no close/price column in CSV header")
	ErrNoTimeColumn  = errors.New("no date/timestamp column in CSV header")
	ErrBadTimestamp  = errors.New("unparseable timestamp")
	ErrBadPrice      = errors.New("unparseable price")
)

// Header names recognised case-insensitively, in priority order.
var (
	timeColumns  = []string{"date", "datetime", "timestamp", "time"}
	priceColumns = []string{"close", "adj close", "adj_close", "price"}
)

// Layouts accepted for textual timestamps. Values without a zone are UTC.
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05-07:00",
}

// LoadCSVFile opens path and parses it with LoadCSV.
func LoadCSVFile(path, symbol string) ([]*domain.PricePoint, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open price file: %w", err)
	}
	defer f.Close()

	return LoadCSV(f, symbol)
}

// LoadCSV parses an OHLC-style CSV export into price points for symbol.
// The time column is the first header named date/datetime/timestamp/time,
// or an unnamed first column (index exports). The price column is close,
// then adj close, then price. Rows with an empty, null or NaN price are
// skipped. Rows are returned in file order; use PreparePrices to sort and
// validate.
func LoadCSV(r io.Reader, symbol string) ([]*domain.PricePoint, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty file", ErrNoTimeColumn)
		}
		return nil, fmt.Errorf("read CSV header: %w", err)
	}

	timeIdx, priceIdx, err := detectColumns(header)
	if err != nil {
		return nil, err
	}

	var points []*domain.PricePoint
	for line := 2; ; line++ {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read CSV line %d: %w", line, err)
		}
		if timeIdx >= len(rec) || priceIdx >= len(rec) {
			continue
		}

		raw := strings.TrimSpace(rec[priceIdx])
		if isMissing(raw) {
			continue
		}
		price, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("%w at line %d: %q", ErrBadPrice, line, raw)
		}
		if math.IsNaN(price) {
			continue
		}

		ts, err := ParseTimestamp(rec[timeIdx])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		points = append(points, &domain.PricePoint{
			Symbol:      symbol,
			TimestampMs: ts,
			Price:       price,
		})
	}

	return points, nil
}

// ParseTimestamp converts a date string or Unix number to Unix milliseconds.
// Numbers at or above 1e11 are taken as milliseconds, smaller ones as seconds.
func ParseTimestamp(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		if n >= 1e11 || n <= -1e11 {
			return n, nil
		}
		return n * 1000, nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UnixMilli(), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrBadTimestamp, s)
}

func detectColumns(header []string) (timeIdx, priceIdx int, err error) {
	names := make([]string, len(header))
	for i, h := range header {
		names[i] = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
	}

	timeIdx = indexOfFirst(names, timeColumns)
	if timeIdx < 0 && len(names) > 0 && names[0] == "" {
		timeIdx = 0
	}
	if timeIdx < 0 {
		return 0, 0, fmt.Errorf("%w: %v", ErrNoTimeColumn, header)
	}

	priceIdx = indexOfFirst(names, priceColumns)
	if priceIdx < 0 {
		return 0, 0, fmt.Errorf("%w: %v", ErrNoPriceColumn, header)
	}
	return timeIdx, priceIdx, nil
}

func indexOfFirst(names, wanted []string) int {
	for _, w := range wanted {
		for i, n := range names {
			if n == w {
				return i
			}
		}
	}
	return -1
}

func isMissing(s string) bool {
	switch strings.ToLower(s) {
	case "", "null", "nan", "na", "n/a":
		return true
	}
	return false
}
