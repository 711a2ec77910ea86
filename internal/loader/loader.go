// Package loader supplies immutable datasets to the pipeline: CSV
// ingestion with per-field type coercion, a persisted columnar snapshot
// for faster reload, and TTL-based memoization of load results.
//
// Ingestion never silently coerces or discards: every row that fails to
// parse is counted and reported to the caller.
package loader

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/muzzz404/dld-dubai/internal/logger"
	"github.com/muzzz404/dld-dubai/pkg/dataset"
)

// Common loader errors.
var (
	// ErrMissingColumn is returned when a schema field has no matching
	// CSV column. Schema stability is a hard guarantee; a missing column
	// is never silently ignored.
	ErrMissingColumn = errors.New("schema field missing from source columns")
	// ErrEmptySource is returned when the source has no header row.
	ErrEmptySource = errors.New("source has no header row")
	// ErrSnapshotCorrupt is returned when a persisted snapshot cannot be
	// decoded or does not match the expected schema.
	ErrSnapshotCorrupt = errors.New("snapshot corrupt or incompatible")
)

// Source describes one loadable dataset.
type Source struct {
	// Name is the logical dataset name (also the snapshot filename stem).
	Name string `json:"name"`
	// Path is the CSV file path.
	Path string `json:"path"`
	// Schema declares the fields to load and their types. Fields are
	// matched to CSV columns by name; other columns are ignored.
	Schema dataset.Schema `json:"-"`
	// DayFirst parses ambiguous numeric dates as day-month-year.
	DayFirst bool `json:"dayFirst,omitempty"`
}

// IngestReport accounts for every row seen during ingestion.
type IngestReport struct {
	// Rows is the number of data rows read from the source.
	Rows int `json:"rows"`
	// Loaded is the number of rows that made it into the dataset.
	Loaded int `json:"loaded"`
	// Dropped is the number of rows discarded because a non-nullable
	// field failed to parse.
	Dropped int `json:"dropped"`
	// FieldErrors counts parse failures per field, including failures
	// on nullable fields that were stored as nulls.
	FieldErrors map[string]int `json:"fieldErrors,omitempty"`
}

// Load reads a CSV source into a dataset.
//
// Rows whose non-nullable fields fail coercion are dropped and counted;
// nullable fields that fail coercion become nulls and are counted. The
// report is returned even alongside a usable dataset, so callers can
// always surface the drop count.
func Load(ctx context.Context, src Source) (*dataset.Dataset, *IngestReport, error) {
	file, err := os.Open(src.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("open source %q: %w", src.Path, err)
	}
	defer file.Close()

	ds, report, err := ingest(ctx, file, src)
	if err != nil {
		return nil, nil, err
	}

	logger.Info("dataset loaded",
		"dataset", src.Name,
		"rows", report.Rows,
		"loaded", report.Loaded,
		"dropped", report.Dropped,
	)
	logger.LogDropped(src.Name, "ingest", report.Dropped, report.Rows)

	return ds, report, nil
}

// ingest parses CSV content into a dataset per the source's schema.
func ingest(ctx context.Context, r io.Reader, src Source) (*dataset.Dataset, *IngestReport, error) {
	reader := csv.NewReader(r)

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil, fmt.Errorf("source %q: %w", src.Name, ErrEmptySource)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("source %q: reading header: %w", src.Name, err)
	}

	// Map each schema field to its column index, failing on absent columns.
	columnIdx := make(map[string]int, len(header))
	for i, name := range header {
		columnIdx[strings.TrimSpace(name)] = i
	}
	fields := src.Schema.Fields()
	indices := make([]int, len(fields))
	for i, f := range fields {
		idx, ok := columnIdx[f.Name]
		if !ok {
			return nil, nil, fmt.Errorf("source %q: %w: %q", src.Name, ErrMissingColumn, f.Name)
		}
		indices[i] = idx
	}

	report := &IngestReport{FieldErrors: make(map[string]int)}
	var records []dataset.Record

	for {
		if report.Rows%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, nil, err
			}
		}

		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("source %q: row %d: %w", src.Name, report.Rows+1, err)
		}
		report.Rows++

		rec := make(dataset.Record, len(fields))
		keep := true
		for i, f := range fields {
			raw := ""
			if indices[i] < len(row) {
				raw = strings.TrimSpace(row[indices[i]])
			}
			val, err := coerce(raw, f, src.DayFirst)
			if err != nil {
				report.FieldErrors[f.Name]++
				if !f.Nullable {
					keep = false
					break
				}
				val = nil
			}
			rec[f.Name] = val
		}
		if !keep {
			report.Dropped++
			continue
		}
		records = append(records, rec)
	}
	report.Loaded = len(records)

	ds, err := dataset.New(src.Schema, records)
	if err != nil {
		return nil, nil, fmt.Errorf("source %q: %w", src.Name, err)
	}
	return ds, report, nil
}

// coerce converts one raw CSV cell to the field's typed value.
// Empty cells are nulls for nullable fields and errors otherwise.
func coerce(raw string, f dataset.Field, dayFirst bool) (dataset.Value, error) {
	if raw == "" {
		if f.Nullable {
			return nil, nil
		}
		return nil, fmt.Errorf("empty value for non-nullable field")
	}

	switch f.Type {
	case dataset.TypeString:
		return raw, nil
	case dataset.TypeNumber:
		num, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("parse number: %w", err)
		}
		return num, nil
	case dataset.TypeBool:
		switch strings.ToLower(raw) {
		case "true", "1", "yes":
			return true, nil
		case "false", "0", "no":
			return false, nil
		}
		return nil, fmt.Errorf("parse bool: unrecognized value %q", raw)
	case dataset.TypeDate:
		return parseDate(raw, dayFirst)
	}
	return nil, fmt.Errorf("unknown field type %q", f.Type)
}

// Date layouts tried in order. Ambiguous numeric dates honor the source's
// day-first setting (DLD exports use day-month-year).
var (
	dayFirstLayouts = []string{
		"02-01-2006", "02/01/2006", "02-01-2006 15:04:05",
		time.RFC3339, "2006-01-02", "2006-01-02 15:04:05",
	}
	monthFirstLayouts = []string{
		time.RFC3339, "2006-01-02", "2006-01-02 15:04:05",
		"01-02-2006", "01/02/2006",
	}
)

// parseDate parses a date cell, trying the applicable layouts in order.
func parseDate(raw string, dayFirst bool) (time.Time, error) {
	layouts := monthFirstLayouts
	if dayFirst {
		layouts = dayFirstLayouts
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("parse date: unrecognized value %q", raw)
}
