package costs

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"time"
)

// Required CSV columns. Header names must match; column order is free.
var reportColumns = []string{
	"date", "service", "region",
	"amortized_cost", "blended_cost", "unblended_cost", "usage_quantity",
}

// ParseReport parses a daily cost CSV. A malformed row (unparseable date,
// wrong field count, or no parseable numeric field at all) is skipped and
// counted, never fatal for the file. A numeric field that is merely empty or
// garbled defaults to zero as long as at least one field parsed.
//
// A missing or incomplete header is a file-level error; the caller leaves the
// file unmarked so the next cycle retries it.
func ParseReport(data []byte) ([]Record, int, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1 // row length is checked per row below

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, 0, fmt.Errorf("read csv: %w", err)
	}
	if len(rows) == 0 {
		return nil, 0, nil
	}

	col, err := headerIndex(rows[0])
	if err != nil {
		return nil, 0, err
	}

	var records []Record
	skipped := 0
	for _, row := range rows[1:] {
		rec, ok := parseRow(row, col)
		if !ok {
			skipped++
			continue
		}
		records = append(records, rec)
	}

	return records, skipped, nil
}

// headerIndex maps each required column name to its position in the header.
func headerIndex(header []string) (map[string]int, error) {
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[name] = i
	}
	for _, name := range reportColumns {
		if _, ok := col[name]; !ok {
			return nil, fmt.Errorf("csv header missing column %q", name)
		}
	}
	return col, nil
}

func parseRow(row []string, col map[string]int) (Record, bool) {
	field := func(name string) (string, bool) {
		i := col[name]
		if i >= len(row) {
			return "", false
		}
		return row[i], true
	}

	dateStr, ok := field("date")
	if !ok {
		return Record{}, false
	}
	date, err := time.Parse(DateFormat, dateStr)
	if err != nil {
		// The exporter writes plain dates, but tolerate full timestamps.
		date, err = time.Parse(time.RFC3339, dateStr)
		if err != nil {
			return Record{}, false
		}
	}

	service, _ := field("service")
	region, _ := field("region")

	parsedAny := false
	num := func(name string) float64 {
		s, ok := field(name)
		if !ok {
			return 0
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0
		}
		parsedAny = true
		return v
	}

	rec := Record{
		Date:          date,
		Service:       service,
		Region:        region,
		AmortizedCost: num("amortized_cost"),
		BlendedCost:   num("blended_cost"),
		UnblendedCost: num("unblended_cost"),
		UsageQuantity: num("usage_quantity"),
	}
	if !parsedAny {
		return Record{}, false
	}

	return rec, true
}

// MarshalReport builds the CSV document the exporter uploads, one row per
// record plus the header.
func MarshalReport(records []Record) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write(reportColumns); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}

	for _, rec := range records {
		row := []string{
			rec.Date.Format(DateFormat),
			rec.Service,
			rec.Region,
			formatCost(rec.AmortizedCost),
			formatCost(rec.BlendedCost),
			formatCost(rec.UnblendedCost),
			formatCost(rec.UsageQuantity),
		}
		if err := writer.Write(row); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}

	return buf.Bytes(), nil
}

// Cost Explorer amounts carry up to 5 decimal places.
func formatCost(v float64) string {
	return strconv.FormatFloat(v, 'f', 5, 64)
}
