package pipeline

import (
	"fmt"
	"sort"

	"github.com/muzzz404/dld-dubai/pkg/dataset"
)

// Stats holds descriptive statistics for one numeric field of a view.
type Stats struct {
	Field  string  `json:"field"`
	Count  int     `json:"count"`
	Sum    float64 `json:"sum"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// Describe computes descriptive statistics for a numeric field.
//
// Count is the number of non-null values. When Count is zero the remaining
// statistics are undefined: they are left at zero and the caller must check
// Count before displaying them. No substitute values are fabricated.
func Describe(view dataset.FilteredView, field string) (Stats, error) {
	f, ok := view.Schema().Field(field)
	if !ok {
		return Stats{}, newSchemaMismatch(field, "field not in schema")
	}
	if f.Type != dataset.TypeNumber {
		return Stats{}, newSchemaMismatch(field, fmt.Sprintf("describe requires a number field, got %s", f.Type))
	}

	values := make([]float64, 0, view.Len())
	for i := 0; i < view.Len(); i++ {
		if num, ok := asNumber(view.Value(i, field)); ok {
			values = append(values, num)
		}
	}

	stats := Stats{Field: field, Count: len(values)}
	if len(values) == 0 {
		return stats, nil
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	for _, v := range values {
		stats.Sum += v
	}
	stats.Mean = stats.Sum / float64(len(values))
	stats.Min = sorted[0]
	stats.Max = sorted[len(sorted)-1]
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		stats.Median = (sorted[mid-1] + sorted[mid]) / 2
	} else {
		stats.Median = sorted[mid]
	}
	return stats, nil
}
