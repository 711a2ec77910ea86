package config

import (
	"fmt"

	"github.com/muzzz404/dld-dubai/internal/loader"
	"github.com/muzzz404/dld-dubai/pkg/dataset"
)

// Definition is the fully decoded query definition: the dataset source to
// load and the query to run against it.
type Definition struct {
	Source *loader.Source
	Query  *dataset.QuerySpec
}

// Decode converts a parsed and schema-validated document into a typed
// Definition. It performs the semantic checks the schema cannot express,
// such as predicate kinds requiring their matching payload fields.
func Decode(data map[string]interface{}) (*Definition, error) {
	datasetRaw, ok := data["dataset"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("dataset section is required and must be a mapping")
	}

	source, schema, err := decodeSource(datasetRaw)
	if err != nil {
		return nil, err
	}

	spec := &dataset.QuerySpec{Dataset: source.Name}
	if queryRaw, ok := data["query"].(map[string]interface{}); ok {
		if err := decodeQuery(queryRaw, spec); err != nil {
			return nil, err
		}
	}

	source.Schema = schema
	return &Definition{Source: source, Query: spec}, nil
}

func decodeSource(raw map[string]interface{}) (*loader.Source, dataset.Schema, error) {
	name, _ := raw["name"].(string)
	if name == "" {
		return nil, dataset.Schema{}, fmt.Errorf("dataset.name is required")
	}
	path, _ := raw["path"].(string)
	if path == "" {
		return nil, dataset.Schema{}, fmt.Errorf("dataset.path is required")
	}

	fieldsRaw, ok := raw["fields"].([]interface{})
	if !ok || len(fieldsRaw) == 0 {
		return nil, dataset.Schema{}, fmt.Errorf("dataset.fields must list at least one field")
	}

	fields := make([]dataset.Field, 0, len(fieldsRaw))
	for i, item := range fieldsRaw {
		fieldRaw, ok := item.(map[string]interface{})
		if !ok {
			return nil, dataset.Schema{}, fmt.Errorf("dataset.fields[%d] must be a mapping", i)
		}
		fieldName, _ := fieldRaw["name"].(string)
		fieldType, _ := fieldRaw["type"].(string)
		nullable, _ := fieldRaw["nullable"].(bool)
		fields = append(fields, dataset.Field{
			Name:     fieldName,
			Type:     dataset.FieldType(fieldType),
			Nullable: nullable,
		})
	}

	schema, err := dataset.NewSchema(fields...)
	if err != nil {
		return nil, dataset.Schema{}, fmt.Errorf("dataset.fields: %w", err)
	}

	dayFirst, _ := raw["dayFirst"].(bool)
	return &loader.Source{Name: name, Path: path, DayFirst: dayFirst}, schema, nil
}

func decodeQuery(raw map[string]interface{}, spec *dataset.QuerySpec) error {
	if computedRaw, ok := raw["computed"].([]interface{}); ok {
		for i, item := range computedRaw {
			field, err := decodeComputed(item)
			if err != nil {
				return fmt.Errorf("query.computed[%d]: %w", i, err)
			}
			spec.Computed = append(spec.Computed, field)
		}
	}

	if predsRaw, ok := raw["predicates"].([]interface{}); ok {
		for i, item := range predsRaw {
			pred, err := decodePredicate(item)
			if err != nil {
				return fmt.Errorf("query.predicates[%d]: %w", i, err)
			}
			spec.Predicates = append(spec.Predicates, pred)
		}
	}

	if bucketRaw, ok := raw["bucket"].(map[string]interface{}); ok {
		bucket, err := decodeBucket(bucketRaw)
		if err != nil {
			return fmt.Errorf("query.bucket: %w", err)
		}
		spec.Bucket = bucket
	}

	if aggsRaw, ok := raw["aggregations"].([]interface{}); ok {
		for i, item := range aggsRaw {
			agg, err := decodeAggregation(item)
			if err != nil {
				return fmt.Errorf("query.aggregations[%d]: %w", i, err)
			}
			spec.Aggregations = append(spec.Aggregations, agg)
		}
	}
	return nil
}

func decodeComputed(item interface{}) (dataset.ComputedField, error) {
	raw, ok := item.(map[string]interface{})
	if !ok {
		return dataset.ComputedField{}, fmt.Errorf("must be a mapping")
	}

	name, _ := raw["name"].(string)
	if name == "" {
		return dataset.ComputedField{}, fmt.Errorf("name is required")
	}
	fieldType, _ := raw["type"].(string)
	kind, _ := raw["kind"].(string)
	if kind == "" {
		kind = string(dataset.ComputedExpr)
	}
	expr, _ := raw["expr"].(string)
	script, _ := raw["script"].(string)

	switch dataset.ComputedFieldKind(kind) {
	case dataset.ComputedExpr:
		if expr == "" {
			return dataset.ComputedField{}, fmt.Errorf("expr is required for kind %q", kind)
		}
	case dataset.ComputedScript:
		if script == "" {
			return dataset.ComputedField{}, fmt.Errorf("script is required for kind %q", kind)
		}
	default:
		return dataset.ComputedField{}, fmt.Errorf("unknown kind %q", kind)
	}

	return dataset.ComputedField{
		Name:   name,
		Type:   dataset.FieldType(fieldType),
		Kind:   dataset.ComputedFieldKind(kind),
		Expr:   expr,
		Script: script,
	}, nil
}

func decodePredicate(item interface{}) (dataset.Predicate, error) {
	raw, ok := item.(map[string]interface{})
	if !ok {
		return dataset.Predicate{}, fmt.Errorf("must be a mapping")
	}

	kind, _ := raw["kind"].(string)
	field, _ := raw["field"].(string)

	switch dataset.PredicateKind(kind) {
	case dataset.KindEquals:
		if field == "" {
			return dataset.Predicate{}, fmt.Errorf("field is required for kind %q", kind)
		}
		value, present := raw["value"]
		if !present {
			return dataset.Predicate{}, fmt.Errorf("value is required for kind %q", kind)
		}
		return dataset.Eq(field, normalizeValue(value)), nil

	case dataset.KindIn:
		if field == "" {
			return dataset.Predicate{}, fmt.Errorf("field is required for kind %q", kind)
		}
		valuesRaw, ok := raw["values"].([]interface{})
		if !ok || len(valuesRaw) == 0 {
			return dataset.Predicate{}, fmt.Errorf("values must list at least one value for kind %q", kind)
		}
		values := make([]dataset.Value, len(valuesRaw))
		for i, v := range valuesRaw {
			values[i] = normalizeValue(v)
		}
		return dataset.In(field, values...), nil

	case dataset.KindRange:
		if field == "" {
			return dataset.Predicate{}, fmt.Errorf("field is required for kind %q", kind)
		}
		min, hasMin := numberValue(raw["min"])
		max, hasMax := numberValue(raw["max"])
		if !hasMin && !hasMax {
			return dataset.Predicate{}, fmt.Errorf("at least one of min, max is required for kind %q", kind)
		}
		pred := dataset.Predicate{Kind: dataset.KindRange, Field: field}
		if hasMin {
			pred.Min = &min
		}
		if hasMax {
			pred.Max = &max
		}
		return pred, nil

	case dataset.KindContains:
		if field == "" {
			return dataset.Predicate{}, fmt.Errorf("field is required for kind %q", kind)
		}
		value, _ := raw["value"].(string)
		if value == "" {
			return dataset.Predicate{}, fmt.Errorf("value must be a non-empty string for kind %q", kind)
		}
		return dataset.Contains(field, value), nil

	case dataset.KindExpr:
		expr, _ := raw["expr"].(string)
		if expr == "" {
			return dataset.Predicate{}, fmt.Errorf("expr is required for kind %q", kind)
		}
		return dataset.Expr(expr), nil

	default:
		return dataset.Predicate{}, fmt.Errorf("unknown kind %q", kind)
	}
}

func decodeBucket(raw map[string]interface{}) (*dataset.BucketSpec, error) {
	field, _ := raw["field"].(string)
	if field == "" {
		return nil, fmt.Errorf("field is required")
	}
	granularity, _ := raw["granularity"].(string)
	g := dataset.Granularity(granularity)
	if !g.Valid() {
		return nil, fmt.Errorf("unknown granularity %q", granularity)
	}

	bucket := &dataset.BucketSpec{Field: field, Granularity: g}
	if as, ok := raw["as"].(string); ok {
		bucket.As = as
	}
	if ratio, ok := numberValue(raw["maxInvalidRatio"]); ok {
		bucket.MaxInvalidRatio = ratio
	}
	return bucket, nil
}

func decodeAggregation(item interface{}) (dataset.AggregationSpec, error) {
	raw, ok := item.(map[string]interface{})
	if !ok {
		return dataset.AggregationSpec{}, fmt.Errorf("must be a mapping")
	}

	reduce, _ := raw["reduce"].(string)
	if reduce == "" {
		return dataset.AggregationSpec{}, fmt.Errorf("reduce is required")
	}
	groupByRaw, present := raw["groupBy"]
	if !present {
		return dataset.AggregationSpec{}, fmt.Errorf("groupBy is required")
	}
	groupBy, _ := groupByRaw.(string)

	spec := dataset.AggregationSpec{
		GroupBy: groupBy,
		Reduce:  dataset.Reduction(reduce),
	}
	if name, ok := raw["name"].(string); ok {
		spec.Name = name
	}
	if target, ok := raw["target"].(string); ok {
		spec.Target = target
	}
	if limit, ok := numberValue(raw["limit"]); ok {
		if limit < 0 {
			return dataset.AggregationSpec{}, fmt.Errorf("limit must not be negative")
		}
		spec.Limit = int(limit)
	}
	return spec, nil
}

// normalizeValue converts parser-produced scalars into dataset values.
// JSON decodes all numbers as float64; YAML produces int for whole numbers.
func normalizeValue(v interface{}) dataset.Value {
	switch val := v.(type) {
	case int:
		return float64(val)
	case int64:
		return float64(val)
	case float64, string, bool, nil:
		return val
	default:
		return val
	}
}

func numberValue(v interface{}) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	default:
		return 0, false
	}
}
