package pipeline

import (
	"fmt"
	"time"

	"github.com/muzzz404/dld-dubai/pkg/dataset"
)

// DefaultMaxInvalidRatio is the tolerated fraction of records whose date
// value is null or unparsable before PeriodBucket fails outright.
const DefaultMaxInvalidRatio = 0.5

// PeriodBucket returns a new dataset with a calendar bucket field appended,
// derived from the given date field. The source dataset is untouched.
//
// Records whose date value is null are dropped from the output; the dropped
// count is always returned so callers can surface it. If the dropped
// fraction exceeds the tolerance, the whole operation fails instead.
func PeriodBucket(ds *dataset.Dataset, spec dataset.BucketSpec) (*dataset.Dataset, int, error) {
	if !spec.Granularity.Valid() {
		return nil, 0, newInvalidDateField(spec.Field, fmt.Sprintf("unknown granularity %q", spec.Granularity))
	}

	schema := ds.Schema()
	field, ok := schema.Field(spec.Field)
	if !ok {
		return nil, 0, newSchemaMismatch(spec.Field, "field not in schema")
	}
	if field.Type != dataset.TypeDate {
		return nil, 0, newInvalidDateField(spec.Field, fmt.Sprintf("expected a date field, got %s", field.Type))
	}

	bucketName := spec.BucketFieldName()
	outSchema, err := schema.WithField(dataset.Field{Name: bucketName, Type: dataset.TypeString})
	if err != nil {
		return nil, 0, newInvalidDateField(spec.Field, fmt.Sprintf("bucket field %q: %v", bucketName, err))
	}

	tolerance := spec.MaxInvalidRatio
	if tolerance <= 0 {
		tolerance = DefaultMaxInvalidRatio
	}

	dropped := 0
	records := make([]dataset.Record, 0, ds.Len())
	for i := 0; i < ds.Len(); i++ {
		rec := ds.Record(i)
		when, ok := rec[spec.Field].(time.Time)
		if !ok {
			dropped++
			continue
		}

		out := make(dataset.Record, len(rec)+1)
		for k, v := range rec {
			out[k] = v
		}
		out[bucketName] = BucketKey(when, spec.Granularity)
		records = append(records, out)
	}

	if total := ds.Len(); total > 0 {
		ratio := float64(dropped) / float64(total)
		if ratio > tolerance {
			return nil, dropped, newInvalidDateField(spec.Field,
				fmt.Sprintf("%d of %d records have invalid dates (tolerance %.0f%%)", dropped, total, tolerance*100))
		}
	}

	out, err := dataset.New(outSchema, records)
	if err != nil {
		return nil, dropped, err
	}
	return out, dropped, nil
}

// BucketKey returns the calendar bucket key for a date at the given
// granularity. Keys are deterministic and, within one granularity, sort
// lexically in chronological order:
//
//	day     2024-01-15
//	week    2024-W03 (ISO week year)
//	month   2024-01
//	quarter 2024-Q1
//	year    2024
func BucketKey(when time.Time, g dataset.Granularity) string {
	switch g {
	case dataset.GranularityDay:
		return when.Format("2006-01-02")
	case dataset.GranularityWeek:
		year, week := when.ISOWeek()
		return fmt.Sprintf("%04d-W%02d", year, week)
	case dataset.GranularityMonth:
		return when.Format("2006-01")
	case dataset.GranularityQuarter:
		quarter := (int(when.Month())-1)/3 + 1
		return fmt.Sprintf("%04d-Q%d", when.Year(), quarter)
	case dataset.GranularityYear:
		return when.Format("2006")
	default:
		return ""
	}
}
