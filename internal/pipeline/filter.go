package pipeline

import (
	"fmt"
	"strings"
	"time"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/muzzz404/dld-dubai/pkg/dataset"
)

// matcher decides whether a single record satisfies one predicate.
type matcher func(rec dataset.Record) (bool, error)

// ApplyFilters returns the view of ds restricted to records matching all
// predicates. Predicates combine with logical AND; the result does not
// depend on their order (only the field-not-found diagnostic order does).
//
// Every predicate's field must exist in the dataset's schema; a missing
// field fails with a schema-mismatch error naming it, never a silent skip.
func ApplyFilters(ds *dataset.Dataset, preds []dataset.Predicate) (dataset.FilteredView, error) {
	return ApplyFiltersView(ds.View(), preds)
}

// ApplyFiltersView is ApplyFilters over an existing view, so filter stages
// compose: ApplyFiltersView(ApplyFilters(d, p), p) equals ApplyFilters(d, p).
func ApplyFiltersView(view dataset.FilteredView, preds []dataset.Predicate) (dataset.FilteredView, error) {
	schema := view.Schema()

	// Validate and compile all predicates up front, in declaration order.
	matchers := make([]matcher, 0, len(preds))
	for _, p := range preds {
		m, err := compilePredicate(schema, p)
		if err != nil {
			return dataset.FilteredView{}, err
		}
		matchers = append(matchers, m)
	}

	// Single pass: a record passes only if every predicate matches.
	n := view.Len()
	indices := make([]int, 0, n)
	for i := 0; i < n; i++ {
		rec := view.Record(i)
		pass := true
		for _, m := range matchers {
			ok, err := m(rec)
			if err != nil {
				return dataset.FilteredView{}, err
			}
			if !ok {
				pass = false
				break
			}
		}
		if pass {
			indices = append(indices, view.SourceIndex(i))
		}
	}

	return dataset.NewView(view.Source(), indices), nil
}

// compilePredicate validates p against the schema and returns its matcher.
func compilePredicate(schema dataset.Schema, p dataset.Predicate) (matcher, error) {
	if p.Kind == dataset.KindExpr {
		return compileExprPredicate(schema, p)
	}

	if p.Field == "" {
		return nil, newInvalidPredicate("", fmt.Sprintf("%s predicate requires a field", p.Kind))
	}
	field, ok := schema.Field(p.Field)
	if !ok {
		return nil, newSchemaMismatch(p.Field, "field not in schema")
	}

	switch p.Kind {
	case dataset.KindEquals:
		want := p.Value
		return func(rec dataset.Record) (bool, error) {
			got := rec[field.Name]
			if want == nil {
				return got == nil, nil
			}
			if got == nil {
				return false, nil
			}
			return valuesEqual(got, want), nil
		}, nil

	case dataset.KindIn:
		if len(p.Values) == 0 {
			return nil, newInvalidPredicate(p.Field, "in predicate requires at least one value")
		}
		values := p.Values
		return func(rec dataset.Record) (bool, error) {
			got := rec[field.Name]
			if got == nil {
				// Null field values are non-matching, not an error.
				return false, nil
			}
			for _, want := range values {
				if want != nil && valuesEqual(got, want) {
					return true, nil
				}
			}
			return false, nil
		}, nil

	case dataset.KindRange:
		if field.Type != dataset.TypeNumber {
			return nil, newSchemaMismatch(p.Field, fmt.Sprintf("range predicate requires a number field, got %s", field.Type))
		}
		if p.Min == nil && p.Max == nil {
			return nil, newInvalidPredicate(p.Field, "range predicate requires at least one bound")
		}
		if p.Min != nil && p.Max != nil && *p.Min > *p.Max {
			return nil, newInvalidRange(p.Field, *p.Min, *p.Max)
		}
		min, max := p.Min, p.Max
		return func(rec dataset.Record) (bool, error) {
			num, ok := asNumber(rec[field.Name])
			if !ok {
				return false, nil
			}
			if min != nil && num < *min {
				return false, nil
			}
			if max != nil && num > *max {
				return false, nil
			}
			return true, nil
		}, nil

	case dataset.KindContains:
		if field.Type != dataset.TypeString {
			return nil, newSchemaMismatch(p.Field, fmt.Sprintf("contains predicate requires a string field, got %s", field.Type))
		}
		substr, ok := p.Value.(string)
		if !ok {
			return nil, newInvalidPredicate(p.Field, "contains predicate requires a string value")
		}
		return func(rec dataset.Record) (bool, error) {
			s, ok := rec[field.Name].(string)
			if !ok {
				return false, nil
			}
			return strings.Contains(s, substr), nil
		}, nil

	default:
		return nil, newInvalidPredicate(p.Field, fmt.Sprintf("unknown predicate kind %q", p.Kind))
	}
}

// compileExprPredicate compiles an expression predicate.
// The expression sees the record's fields as variables; undefined variables
// are allowed so sparse records evaluate rather than crash.
func compileExprPredicate(schema dataset.Schema, p dataset.Predicate) (matcher, error) {
	if strings.TrimSpace(p.Expr) == "" {
		return nil, newInvalidPredicate("", "expr predicate requires an expression")
	}
	program, err := expr.Compile(p.Expr, expr.AllowUndefinedVariables())
	if err != nil {
		return nil, newInvalidPredicate("", fmt.Sprintf("expression %q: %v", p.Expr, err))
	}
	src := p.Expr
	return func(rec dataset.Record) (bool, error) {
		out, err := runExpr(program, rec)
		if err != nil {
			return false, newInvalidPredicate("", fmt.Sprintf("expression %q: %v", src, err))
		}
		return toBool(out), nil
	}, nil
}

// runExpr evaluates a compiled program against a record's fields.
func runExpr(program *vm.Program, rec dataset.Record) (interface{}, error) {
	env := make(map[string]interface{}, len(rec))
	for k, v := range rec {
		env[k] = v
	}
	return expr.Run(program, env)
}

// valuesEqual compares two cell values, normalizing numeric types and
// comparing dates by instant.
func valuesEqual(a, b dataset.Value) bool {
	if an, ok := asNumber(a); ok {
		bn, ok := asNumber(b)
		return ok && an == bn
	}
	if at, ok := a.(time.Time); ok {
		bt, ok := b.(time.Time)
		return ok && at.Equal(bt)
	}
	return a == b
}

// asNumber extracts a float64 from a cell value.
// Integer values appear when predicates are built in Go code rather than
// decoded from JSON, so they are normalized here.
func asNumber(v dataset.Value) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

// toBool converts an expression result to a boolean, treating non-boolean
// results as a truthy check.
func toBool(v interface{}) bool {
	switch val := v.(type) {
	case bool:
		return val
	case nil:
		return false
	case string:
		return val != ""
	case float64:
		return val != 0
	case int:
		return val != 0
	default:
		return true
	}
}
