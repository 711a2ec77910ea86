package dataset

import "fmt"

// PredicateKind identifies a predicate variant.
type PredicateKind string

// Predicate variants. One kind per condition shape so behavior is centrally
// testable instead of duplicated per dashboard view.
const (
	// KindEquals matches records whose field equals Value exactly.
	KindEquals PredicateKind = "eq"
	// KindIn matches records whose field equals any of Values.
	KindIn PredicateKind = "in"
	// KindRange matches records whose numeric field lies in [Min, Max] (inclusive).
	// Either bound may be omitted for a half-open range.
	KindRange PredicateKind = "range"
	// KindContains matches records whose string field contains Value as a substring.
	KindContains PredicateKind = "contains"
	// KindExpr matches records for which the compiled expression evaluates to true.
	// The expression sees the record's fields as variables.
	KindExpr PredicateKind = "expr"
)

// Predicate is one filter condition. Predicates combine with logical AND;
// the result does not depend on their order.
//
// For all kinds except an explicit eq against nil, a missing (null) field
// value is non-matching: the record is excluded, never an error.
type Predicate struct {
	// Kind selects the predicate variant.
	Kind PredicateKind `json:"kind"`
	// Field is the schema field the predicate applies to (all kinds except expr).
	Field string `json:"field,omitempty"`
	// Value is the comparison value for eq and contains.
	Value Value `json:"value,omitempty"`
	// Values is the membership set for in.
	Values []Value `json:"values,omitempty"`
	// Min is the inclusive lower bound for range (nil = unbounded).
	Min *float64 `json:"min,omitempty"`
	// Max is the inclusive upper bound for range (nil = unbounded).
	Max *float64 `json:"max,omitempty"`
	// Expr is the boolean expression source for expr.
	Expr string `json:"expr,omitempty"`
}

// Eq builds an equality predicate.
func Eq(field string, value Value) Predicate {
	return Predicate{Kind: KindEquals, Field: field, Value: value}
}

// In builds a set-membership predicate.
func In(field string, values ...Value) Predicate {
	return Predicate{Kind: KindIn, Field: field, Values: values}
}

// Range builds an inclusive numeric range predicate.
// Pass nil for an unbounded side.
func Range(field string, min, max *float64) Predicate {
	return Predicate{Kind: KindRange, Field: field, Min: min, Max: max}
}

// Contains builds a substring-match predicate.
func Contains(field, substring string) Predicate {
	return Predicate{Kind: KindContains, Field: field, Value: substring}
}

// Expr builds an expression predicate.
func Expr(source string) Predicate {
	return Predicate{Kind: KindExpr, Expr: source}
}

// Reduction identifies an aggregation reduction function.
type Reduction string

// Built-in reductions.
const (
	ReduceCount  Reduction = "count"
	ReduceSum    Reduction = "sum"
	ReduceMean   Reduction = "mean"
	ReduceMedian Reduction = "median"
	ReduceMin    Reduction = "min"
	ReduceMax    Reduction = "max"
)

// AggregationSpec requests one grouped reduction over a filtered view.
type AggregationSpec struct {
	// Name identifies the resulting summary table. Empty = derived
	// as "<reduce>_<target>_by_<groupBy>".
	Name string `json:"name,omitempty"`
	// GroupBy is the grouping field. Empty means whole-view (one row, key "all").
	GroupBy string `json:"groupBy,omitempty"`
	// Target is the field the reduction applies to. Must be numeric for
	// every reduction except count, which accepts any field or none.
	Target string `json:"target,omitempty"`
	// Reduce is the reduction function.
	Reduce Reduction `json:"reduce"`
	// Limit keeps only the top N rows after ordering (0 = all).
	Limit int `json:"limit,omitempty"`
}

// TableName returns the explicit Name or a derived one.
func (s AggregationSpec) TableName() string {
	if s.Name != "" {
		return s.Name
	}
	name := string(s.Reduce)
	if s.Target != "" {
		name += "_" + s.Target
	}
	if s.GroupBy != "" {
		name += "_by_" + s.GroupBy
	}
	return name
}

// SummaryRow is one group of a summary table.
type SummaryRow struct {
	// Key is the group key (a distinct value of the grouping field).
	Key string `json:"key"`
	// Value is the reduction result for the group.
	Value float64 `json:"value"`
	// Count is the number of view records in the group.
	Count int `json:"count"`
}

// SummaryTable is the grouped reduction result for one AggregationSpec.
// Rows are ordered by descending Value, ties broken by ascending Key, so
// "top N" consumption is deterministic. An empty table is a valid result;
// renderers must handle it explicitly.
type SummaryTable struct {
	Name    string       `json:"name"`
	GroupBy string       `json:"groupBy,omitempty"`
	Target  string       `json:"target,omitempty"`
	Reduce  Reduction    `json:"reduce"`
	Rows    []SummaryRow `json:"rows"`
}

// Empty reports whether the table has no rows.
func (t SummaryTable) Empty() bool { return len(t.Rows) == 0 }

// Row returns the row for the given group key.
func (t SummaryTable) Row(key string) (SummaryRow, bool) {
	for _, r := range t.Rows {
		if r.Key == key {
			return r, true
		}
	}
	return SummaryRow{}, false
}

// Granularity is a calendar bucketing period.
type Granularity string

// Supported bucket granularities. Bucket keys sort lexically in
// chronological order within one granularity.
const (
	GranularityDay     Granularity = "day"     // 2006-01-02
	GranularityWeek    Granularity = "week"    // 2006-W02 (ISO week)
	GranularityMonth   Granularity = "month"   // 2006-01
	GranularityQuarter Granularity = "quarter" // 2006-Q1
	GranularityYear    Granularity = "year"    // 2006
)

// Valid reports whether g is a known granularity.
func (g Granularity) Valid() bool {
	switch g {
	case GranularityDay, GranularityWeek, GranularityMonth, GranularityQuarter, GranularityYear:
		return true
	}
	return false
}

// BucketSpec requests a calendar bucket field derived from a date field.
type BucketSpec struct {
	// Field is the date field to bucket.
	Field string `json:"field"`
	// Granularity selects the calendar period.
	Granularity Granularity `json:"granularity"`
	// As is the name of the added bucket field. Empty = "<field>_<granularity>".
	As string `json:"as,omitempty"`
	// MaxInvalidRatio is the tolerated fraction of unparsable/null dates
	// before bucketing fails outright (0 = use the default tolerance).
	MaxInvalidRatio float64 `json:"maxInvalidRatio,omitempty"`
}

// BucketFieldName returns the explicit or derived name of the bucket field.
func (b BucketSpec) BucketFieldName() string {
	if b.As != "" {
		return b.As
	}
	return fmt.Sprintf("%s_%s", b.Field, b.Granularity)
}

// ComputedFieldKind identifies how a computed field is evaluated.
type ComputedFieldKind string

// Computed field kinds.
const (
	// ComputedExpr evaluates an expression over the record's fields.
	ComputedExpr ComputedFieldKind = "expr"
	// ComputedScript calls a JavaScript transform(record) function.
	ComputedScript ComputedFieldKind = "script"
)

// ComputedField declares a derived column added before filtering.
type ComputedField struct {
	// Name is the new field's name.
	Name string `json:"name"`
	// Type is the declared type of the computed values.
	Type FieldType `json:"type"`
	// Kind selects the evaluation engine (default expr).
	Kind ComputedFieldKind `json:"kind,omitempty"`
	// Expr is the expression source (kind expr).
	Expr string `json:"expr,omitempty"`
	// Script is the JavaScript source defining transform(record) (kind script).
	Script string `json:"script,omitempty"`
}

// QuerySpec is the declarative form of one dashboard query: which dataset,
// which derived columns, which records, and which summaries.
type QuerySpec struct {
	// Dataset names the dataset the query runs against.
	Dataset string `json:"dataset"`
	// Computed lists derived columns added before filtering.
	Computed []ComputedField `json:"computed,omitempty"`
	// Predicates are AND-combined filter conditions.
	Predicates []Predicate `json:"predicates,omitempty"`
	// Bucket optionally adds a calendar bucket field to the filtered data.
	Bucket *BucketSpec `json:"bucket,omitempty"`
	// Aggregations are the summary tables to compute.
	Aggregations []AggregationSpec `json:"aggregations,omitempty"`
}
