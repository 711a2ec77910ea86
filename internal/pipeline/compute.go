package pipeline

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dop251/goja"
	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/muzzz404/dld-dubai/pkg/dataset"
)

// Error code and sentinel for computed-field failures.
const ErrCodeInvalidComputed = "INVALID_COMPUTED_FIELD"

// ErrInvalidComputed is returned when a computed field is malformed or its
// evaluation fails.
var ErrInvalidComputed = errors.New("invalid computed field")

// MaxScriptLength is the maximum allowed script source length in bytes.
const MaxScriptLength = 100 * 1024

func newInvalidComputed(name, message string) *Error {
	return &Error{Code: ErrCodeInvalidComputed, Field: name, Message: message, sentinel: ErrInvalidComputed}
}

// ComputeFields returns a new dataset extended with the given derived
// columns, evaluated per record before any filtering. The source dataset
// is untouched. Evaluation results are coerced to each field's declared
// type; a result that cannot be coerced becomes a null value when the
// field is nullable and an error otherwise.
func ComputeFields(ds *dataset.Dataset, fields []dataset.ComputedField) (*dataset.Dataset, error) {
	if len(fields) == 0 {
		return ds, nil
	}

	schema := ds.Schema()
	evaluators := make([]*fieldEvaluator, 0, len(fields))
	for _, cf := range fields {
		ev, err := newFieldEvaluator(schema, cf)
		if err != nil {
			return nil, err
		}
		var serr error
		schema, serr = schema.WithField(dataset.Field{Name: cf.Name, Type: cf.Type, Nullable: true})
		if serr != nil {
			return nil, newInvalidComputed(cf.Name, serr.Error())
		}
		evaluators = append(evaluators, ev)
	}

	records := make([]dataset.Record, ds.Len())
	for i := 0; i < ds.Len(); i++ {
		src := ds.Record(i)
		out := make(dataset.Record, len(src)+len(evaluators))
		for k, v := range src {
			out[k] = v
		}
		for _, ev := range evaluators {
			val, err := ev.eval(out)
			if err != nil {
				return nil, err
			}
			out[ev.field.Name] = val
		}
		records[i] = out
	}

	return dataset.New(schema, records)
}

// fieldEvaluator evaluates one computed field per record.
// Goja runtimes are not goroutine-safe; each evaluator owns its own
// runtime and ComputeFields runs single-threaded, matching the pipeline's
// synchronous model.
type fieldEvaluator struct {
	field   dataset.ComputedField
	program *vm.Program   // expr kind
	runtime *goja.Runtime // script kind
	fn      goja.Callable
}

// newFieldEvaluator validates and compiles a computed field.
func newFieldEvaluator(schema dataset.Schema, cf dataset.ComputedField) (*fieldEvaluator, error) {
	if cf.Name == "" {
		return nil, newInvalidComputed("", "computed field requires a name")
	}
	if schema.Has(cf.Name) {
		return nil, newInvalidComputed(cf.Name, "field already in schema")
	}
	switch cf.Type {
	case dataset.TypeString, dataset.TypeNumber, dataset.TypeBool:
	default:
		return nil, newInvalidComputed(cf.Name, fmt.Sprintf("unsupported computed type %q", cf.Type))
	}

	kind := cf.Kind
	if kind == "" {
		kind = dataset.ComputedExpr
	}

	switch kind {
	case dataset.ComputedExpr:
		if strings.TrimSpace(cf.Expr) == "" {
			return nil, newInvalidComputed(cf.Name, "expr computed field requires an expression")
		}
		program, err := expr.Compile(cf.Expr, expr.AllowUndefinedVariables())
		if err != nil {
			return nil, newInvalidComputed(cf.Name, fmt.Sprintf("expression %q: %v", cf.Expr, err))
		}
		return &fieldEvaluator{field: cf, program: program}, nil

	case dataset.ComputedScript:
		if strings.TrimSpace(cf.Script) == "" {
			return nil, newInvalidComputed(cf.Name, "script computed field requires a script")
		}
		if len(cf.Script) > MaxScriptLength {
			return nil, newInvalidComputed(cf.Name,
				fmt.Sprintf("script exceeds maximum length of %d bytes", MaxScriptLength))
		}
		runtime := goja.New()
		if _, err := runtime.RunString(cf.Script); err != nil {
			return nil, newInvalidComputed(cf.Name, fmt.Sprintf("script compilation failed: %v", err))
		}
		transformVal := runtime.Get("transform")
		if transformVal == nil || goja.IsUndefined(transformVal) {
			return nil, newInvalidComputed(cf.Name, "transform function not found in script")
		}
		fn, ok := goja.AssertFunction(transformVal)
		if !ok {
			return nil, newInvalidComputed(cf.Name, "transform is not a function")
		}
		return &fieldEvaluator{field: cf, runtime: runtime, fn: fn}, nil

	default:
		return nil, newInvalidComputed(cf.Name, fmt.Sprintf("unknown computed kind %q", kind))
	}
}

// eval computes the field's value for one record.
func (e *fieldEvaluator) eval(rec dataset.Record) (dataset.Value, error) {
	var raw interface{}

	if e.program != nil {
		out, err := runExpr(e.program, rec)
		if err != nil {
			return nil, newInvalidComputed(e.field.Name, fmt.Sprintf("evaluation failed: %v", err))
		}
		raw = out
	} else {
		jsRecord := e.runtime.ToValue(map[string]interface{}(rec))
		result, err := e.fn(goja.Undefined(), jsRecord)
		if err != nil {
			return nil, newInvalidComputed(e.field.Name, fmt.Sprintf("transform failed: %v", err))
		}
		raw = result.Export()
	}

	return coerceComputed(e.field, raw)
}

// coerceComputed converts an evaluation result to the field's declared type.
func coerceComputed(field dataset.ComputedField, raw interface{}) (dataset.Value, error) {
	if raw == nil {
		return nil, nil
	}
	switch field.Type {
	case dataset.TypeNumber:
		if num, ok := asNumber(raw); ok {
			return num, nil
		}
	case dataset.TypeString:
		if s, ok := raw.(string); ok {
			return s, nil
		}
	case dataset.TypeBool:
		if b, ok := raw.(bool); ok {
			return b, nil
		}
	}
	return nil, newInvalidComputed(field.Name,
		fmt.Sprintf("cannot coerce %T result to %s", raw, field.Type))
}
