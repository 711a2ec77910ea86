package pipeline

import (
	"errors"
	"strings"
	"testing"

	"github.com/muzzz404/dld-dubai/pkg/dataset"
)

func roiDataset(t *testing.T) *dataset.Dataset {
	t.Helper()
	schema := dataset.MustSchema(
		dataset.Field{Name: "price", Type: dataset.TypeNumber},
		dataset.Field{Name: "rent", Type: dataset.TypeNumber, Nullable: true},
	)
	ds, err := dataset.New(schema, []dataset.Record{
		{"price": 1000000.0, "rent": 80000.0},
		{"price": 500000.0, "rent": 30000.0},
		{"price": 750000.0, "rent": nil},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return ds
}

func TestComputeFields_Expr(t *testing.T) {
	ds := roiDataset(t)

	out, err := ComputeFields(ds, []dataset.ComputedField{
		{Name: "gross_yield", Type: dataset.TypeNumber, Kind: dataset.ComputedExpr,
			Expr: "rent != nil ? rent / price * 100 : nil"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := out.Value(0, "gross_yield"); got != 8.0 {
		t.Errorf("expected 8, got %v", got)
	}
	if got := out.Value(1, "gross_yield"); got != 6.0 {
		t.Errorf("expected 6, got %v", got)
	}
	if got := out.Value(2, "gross_yield"); got != nil {
		t.Errorf("expected nil for null rent, got %v", got)
	}
	if ds.Schema().Has("gross_yield") {
		t.Error("source dataset must not gain the computed field")
	}
}

func TestComputeFields_Script(t *testing.T) {
	ds := roiDataset(t)

	out, err := ComputeFields(ds, []dataset.ComputedField{
		{Name: "tier", Type: dataset.TypeString, Kind: dataset.ComputedScript,
			Script: `function transform(rec) { return rec.price >= 750000 ? "premium" : "standard"; }`},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"premium", "standard", "premium"}
	for i, tier := range want {
		if got := out.Value(i, "tier"); got != tier {
			t.Errorf("row %d: expected %s, got %v", i, tier, got)
		}
	}
}

func TestComputeFields_ChainedFields(t *testing.T) {
	ds := roiDataset(t)

	// The second field can reference the first.
	out, err := ComputeFields(ds, []dataset.ComputedField{
		{Name: "half_price", Type: dataset.TypeNumber, Expr: "price / 2"},
		{Name: "quarter_price", Type: dataset.TypeNumber, Expr: "half_price / 2"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := out.Value(0, "quarter_price"); got != 250000.0 {
		t.Errorf("expected 250000, got %v", got)
	}
}

func TestComputeFields_NoFieldsReturnsSource(t *testing.T) {
	ds := roiDataset(t)
	out, err := ComputeFields(ds, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != ds {
		t.Error("expected the source dataset back unchanged")
	}
}

func TestComputeFields_Errors(t *testing.T) {
	ds := roiDataset(t)

	tests := []struct {
		name   string
		field  dataset.ComputedField
		errMsg string
	}{
		{
			name:   "missing name",
			field:  dataset.ComputedField{Type: dataset.TypeNumber, Expr: "1"},
			errMsg: "requires a name",
		},
		{
			name:   "duplicate of schema field",
			field:  dataset.ComputedField{Name: "price", Type: dataset.TypeNumber, Expr: "1"},
			errMsg: "already in schema",
		},
		{
			name:   "unsupported type",
			field:  dataset.ComputedField{Name: "when", Type: dataset.TypeDate, Expr: "1"},
			errMsg: "unsupported computed type",
		},
		{
			name:   "empty expression",
			field:  dataset.ComputedField{Name: "x", Type: dataset.TypeNumber, Kind: dataset.ComputedExpr},
			errMsg: "requires an expression",
		},
		{
			name:   "bad expression",
			field:  dataset.ComputedField{Name: "x", Type: dataset.TypeNumber, Expr: "price +"},
			errMsg: "expression",
		},
		{
			name: "script without transform",
			field: dataset.ComputedField{Name: "x", Type: dataset.TypeNumber,
				Kind: dataset.ComputedScript, Script: "var y = 1;"},
			errMsg: "transform function not found",
		},
		{
			name: "transform not a function",
			field: dataset.ComputedField{Name: "x", Type: dataset.TypeNumber,
				Kind: dataset.ComputedScript, Script: "var transform = 42;"},
			errMsg: "not a function",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ComputeFields(ds, []dataset.ComputedField{tt.field})
			if !errors.Is(err, ErrInvalidComputed) {
				t.Fatalf("expected ErrInvalidComputed, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.errMsg) {
				t.Errorf("expected message containing %q, got %q", tt.errMsg, err.Error())
			}
		})
	}
}

func TestComputeFields_CoercionFailure(t *testing.T) {
	ds := roiDataset(t)

	_, err := ComputeFields(ds, []dataset.ComputedField{
		{Name: "x", Type: dataset.TypeBool, Expr: "price"},
	})
	if !errors.Is(err, ErrInvalidComputed) {
		t.Fatalf("expected ErrInvalidComputed, got %v", err)
	}
}

func TestComputeFields_ScriptTooLong(t *testing.T) {
	ds := roiDataset(t)

	long := "function transform(rec) { return 1; }" + strings.Repeat("//x\n", MaxScriptLength/4)
	_, err := ComputeFields(ds, []dataset.ComputedField{
		{Name: "x", Type: dataset.TypeNumber, Kind: dataset.ComputedScript, Script: long},
	})
	if !errors.Is(err, ErrInvalidComputed) {
		t.Fatalf("expected ErrInvalidComputed, got %v", err)
	}
	if !strings.Contains(err.Error(), "maximum length") {
		t.Errorf("expected length error, got %q", err.Error())
	}
}
