package pipeline

import (
	"fmt"
	"sort"
	"time"

	"github.com/muzzz404/dld-dubai/internal/registry"
	"github.com/muzzz404/dld-dubai/pkg/dataset"
)

// groupKeyAll is the single group key used when no grouping field is set.
const groupKeyAll = "all"

// Aggregate computes one grouped reduction over a filtered view.
//
// Group keys are exactly the distinct values of the grouping field present
// in the view. Rows are ordered by descending reduction value with ties
// broken by ascending key, then truncated to spec.Limit if set, so "top N"
// consumption is deterministic.
//
// An empty view yields an empty table, not an error; callers must handle
// empty tables explicitly. A non-empty group whose target values are all
// null yields an empty-reduction error, never a silent zero.
func Aggregate(view dataset.FilteredView, spec dataset.AggregationSpec) (dataset.SummaryTable, error) {
	table := dataset.SummaryTable{
		Name:    spec.TableName(),
		GroupBy: spec.GroupBy,
		Target:  spec.Target,
		Reduce:  spec.Reduce,
	}

	reduction, ok := registry.Lookup(string(spec.Reduce))
	if !ok {
		return dataset.SummaryTable{}, newInvalidReduction(string(spec.Reduce))
	}

	schema := view.Schema()
	if spec.GroupBy != "" && !schema.Has(spec.GroupBy) {
		return dataset.SummaryTable{}, newSchemaMismatch(spec.GroupBy, "grouping field not in schema")
	}
	if spec.Target != "" {
		field, ok := schema.Field(spec.Target)
		if !ok {
			return dataset.SummaryTable{}, newSchemaMismatch(spec.Target, "target field not in schema")
		}
		if reduction.RequiresNumeric && field.Type != dataset.TypeNumber {
			return dataset.SummaryTable{}, newSchemaMismatch(spec.Target,
				fmt.Sprintf("%s requires a number field, got %s", spec.Reduce, field.Type))
		}
	} else if reduction.RequiresNumeric {
		return dataset.SummaryTable{}, newSchemaMismatch("", fmt.Sprintf("%s requires a target field", spec.Reduce))
	}

	if view.Len() == 0 {
		return table, nil
	}

	groups := groupView(view, spec.GroupBy)

	rows := make([]dataset.SummaryRow, 0, len(groups))
	for _, g := range groups {
		values := collectNumbers(view, g.indices, spec.Target)
		if reduction.RequiresNumeric && len(values) == 0 {
			return dataset.SummaryTable{}, newEmptyReduction(spec.Target, g.key)
		}
		rows = append(rows, dataset.SummaryRow{
			Key:   g.key,
			Value: reduction.Reduce(values, len(g.indices)),
			Count: len(g.indices),
		})
	}

	// Descending by value; ties ascending by key for determinism.
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Value != rows[j].Value {
			return rows[i].Value > rows[j].Value
		}
		return rows[i].Key < rows[j].Key
	})

	if spec.Limit > 0 && len(rows) > spec.Limit {
		rows = rows[:spec.Limit]
	}

	table.Rows = rows
	return table, nil
}

// group is one distinct value of the grouping field with its view positions.
type group struct {
	key     string
	indices []int
}

// groupView splits view positions by the grouping field's distinct values,
// preserving first-seen order. An empty groupBy puts everything in one group.
func groupView(view dataset.FilteredView, groupBy string) []group {
	if groupBy == "" {
		indices := make([]int, view.Len())
		for i := range indices {
			indices[i] = i
		}
		return []group{{key: groupKeyAll, indices: indices}}
	}

	byKey := make(map[string][]int)
	order := make([]string, 0)
	for i := 0; i < view.Len(); i++ {
		key := groupKey(view.Value(i, groupBy))
		if _, seen := byKey[key]; !seen {
			order = append(order, key)
		}
		byKey[key] = append(byKey[key], i)
	}

	groups := make([]group, 0, len(order))
	for _, key := range order {
		groups = append(groups, group{key: key, indices: byKey[key]})
	}
	return groups
}

// groupKey renders a grouping value as a stable string key.
func groupKey(v dataset.Value) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return fmt.Sprintf("%g", val)
	case bool:
		return fmt.Sprintf("%t", val)
	case time.Time:
		return val.Format(time.RFC3339)
	default:
		return fmt.Sprintf("%v", val)
	}
}

// collectNumbers gathers the non-null numeric target values at the given
// view positions. An empty target yields no values (count-style reductions).
func collectNumbers(view dataset.FilteredView, positions []int, target string) []float64 {
	if target == "" {
		return nil
	}
	values := make([]float64, 0, len(positions))
	for _, i := range positions {
		if num, ok := asNumber(view.Value(i, target)); ok {
			values = append(values, num)
		}
	}
	return values
}
