package github

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

var errMissingColumn = errors.New("missing required column")

var csvHeader = []string{"Date", "Open", "High", "Low", "Close", "Adj Close", "Volume"}

// ParseCSV decodes a dataset file. Columns are matched by header name, case
// insensitively; Date and Close are required. Rows whose date cannot be parsed
// are skipped, empty or non-numeric cells become nil.
func ParseCSV(r io.Reader) ([]Row, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	dateCol, ok := cols["date"]
	if !ok {
		return nil, fmt.Errorf("%w: Date", errMissingColumn)
	}
	closeCol, ok := cols["close"]
	if !ok {
		return nil, fmt.Errorf("%w: Close", errMissingColumn)
	}

	cell := func(rec []string, name string) string {
		i, ok := cols[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	var rows []Row
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row: %w", err)
		}
		if dateCol >= len(rec) || closeCol >= len(rec) {
			continue
		}

		date, err := parseDate(strings.TrimSpace(rec[dateCol]))
		if err != nil {
			continue
		}
		rows = append(rows, Row{
			Date:     date,
			Open:     parseFloat(cell(rec, "open")),
			High:     parseFloat(cell(rec, "high")),
			Low:      parseFloat(cell(rec, "low")),
			Close:    parseFloat(strings.TrimSpace(rec[closeCol])),
			AdjClose: parseFloat(cell(rec, "adj close")),
			Volume:   parseInt(cell(rec, "volume")),
		})
	}
	return rows, nil
}

// EncodeCSV renders rows in the repository's dataset format.
func EncodeCSV(rows []Row) []byte {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write(csvHeader)
	for _, r := range rows {
		_ = w.Write([]string{
			r.Date.Format("2006-01-02"),
			formatFloat(r.Open),
			formatFloat(r.High),
			formatFloat(r.Low),
			formatFloat(r.Close),
			formatFloat(r.AdjClose),
			formatInt(r.Volume),
		})
	}
	w.Flush()
	return buf.Bytes()
}

func parseDate(s string) (time.Time, error) {
	if len(s) >= 10 {
		if t, err := time.Parse("2006-01-02", s[:10]); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", s)
}

func parseFloat(s string) *float64 {
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

func parseInt(s string) *int64 {
	if s == "" {
		return nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil {
			return nil
		}
		v = int64(f)
	}
	return &v
}

func formatFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func formatInt(v *int64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatInt(*v, 10)
}
