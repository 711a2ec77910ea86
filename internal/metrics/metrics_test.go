package metrics

import (
	"errors"
	"math"
	"testing"

	"github.com/muzzz404/dld-dubai/pkg/dataset"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestGrossYield(t *testing.T) {
	got, err := GrossYield(1000000, 80000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !almostEqual(got, 8.0) {
		t.Errorf("expected 8, got %g", got)
	}

	if _, err := GrossYield(0, 80000); !errors.Is(err, ErrNonPositivePrice) {
		t.Errorf("expected ErrNonPositivePrice, got %v", err)
	}
	if _, err := GrossYield(-100, 80000); !errors.Is(err, ErrNonPositivePrice) {
		t.Errorf("expected ErrNonPositivePrice, got %v", err)
	}
}

func TestNetYield(t *testing.T) {
	// 80k rent minus 2% expenses on 1M = 60k, over 1M = 6%.
	got, err := NetYield(1000000, 80000, 0.02)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !almostEqual(got, 6.0) {
		t.Errorf("expected 6, got %g", got)
	}

	if _, err := NetYield(0, 80000, 0.02); !errors.Is(err, ErrNonPositivePrice) {
		t.Errorf("expected ErrNonPositivePrice, got %v", err)
	}
}

func TestROI(t *testing.T) {
	// Effective rent 80k*0.95=76k, expenses 1M*0.02=20k, cash flow 56k = 5.6%.
	roiPct, cashFlow, err := ROI(1000000, 80000, 0.02, 0.05)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !almostEqual(cashFlow, 56000) {
		t.Errorf("expected cash flow 56000, got %g", cashFlow)
	}
	if !almostEqual(roiPct, 5.6) {
		t.Errorf("expected 5.6%%, got %g", roiPct)
	}

	if _, _, err := ROI(0, 80000, 0.02, 0.05); !errors.Is(err, ErrNonPositivePrice) {
		t.Errorf("expected ErrNonPositivePrice, got %v", err)
	}
}

func TestTotalReturn(t *testing.T) {
	if got := TotalReturn(5.6, 3.2); !almostEqual(got, 8.8) {
		t.Errorf("expected 8.8, got %g", got)
	}
}

func TestEvaluate(t *testing.T) {
	// Same numbers as TestROI, plus gross 8%, net 6% and 3.2% appreciation.
	inv, err := Evaluate(1000000, 80000, 0.02, 0.05, 3.2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !almostEqual(inv.GrossYieldPct, 8.0) {
		t.Errorf("expected gross 8, got %g", inv.GrossYieldPct)
	}
	if !almostEqual(inv.NetYieldPct, 6.0) {
		t.Errorf("expected net 6, got %g", inv.NetYieldPct)
	}
	if !almostEqual(inv.ROIPct, 5.6) {
		t.Errorf("expected roi 5.6, got %g", inv.ROIPct)
	}
	if !almostEqual(inv.CashFlow, 56000) {
		t.Errorf("expected cash flow 56000, got %g", inv.CashFlow)
	}
	if !almostEqual(inv.TotalReturnPct, 8.8) {
		t.Errorf("expected total return 8.8, got %g", inv.TotalReturnPct)
	}

	if _, err := Evaluate(0, 80000, 0.02, 0.05, 0); !errors.Is(err, ErrNonPositivePrice) {
		t.Errorf("expected ErrNonPositivePrice, got %v", err)
	}
}

func TestPercentChange(t *testing.T) {
	got, err := PercentChange(120, 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !almostEqual(got, 20.0) {
		t.Errorf("expected 20, got %g", got)
	}

	got, err = PercentChange(80, 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !almostEqual(got, -20.0) {
		t.Errorf("expected -20, got %g", got)
	}

	if _, err := PercentChange(50, 0); !errors.Is(err, ErrUndefinedChange) {
		t.Errorf("expected ErrUndefinedChange, got %v", err)
	}
}

func priceView(t *testing.T, prices []interface{}) dataset.FilteredView {
	t.Helper()
	schema := dataset.MustSchema(
		dataset.Field{Name: "price", Type: dataset.TypeNumber, Nullable: true},
	)
	records := make([]dataset.Record, len(prices))
	for i, p := range prices {
		records[i] = dataset.Record{"price": p}
	}
	ds, err := dataset.New(schema, records)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return ds.View()
}

func TestComparePeriods(t *testing.T) {
	current := priceView(t, []interface{}{200.0, 400.0})
	previous := priceView(t, []interface{}{100.0, 200.0, 300.0})

	cmp, err := ComparePeriods(current, previous, "price")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !cmp.Count.Defined || !almostEqual(cmp.Count.ChangePct, -100.0/3) {
		t.Errorf("unexpected count delta: %+v", cmp.Count)
	}
	if !cmp.Sum.Defined || !almostEqual(cmp.Sum.ChangePct, 0) {
		t.Errorf("unexpected sum delta: %+v", cmp.Sum)
	}
	if !cmp.Mean.Defined || !almostEqual(cmp.Mean.ChangePct, 50.0) {
		t.Errorf("unexpected mean delta: %+v", cmp.Mean)
	}
}

func TestComparePeriods_EmptyPreviousUndefined(t *testing.T) {
	current := priceView(t, []interface{}{200.0})
	previous := priceView(t, nil)

	cmp, err := ComparePeriods(current, previous, "price")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cmp.Count.Defined || cmp.Sum.Defined || cmp.Mean.Defined || cmp.Median.Defined {
		t.Errorf("deltas against an empty period must be undefined: %+v", cmp)
	}
	if cmp.Count.Current != 1 {
		t.Errorf("current values still reported, got %+v", cmp.Count)
	}
}

func TestComparePeriods_UnknownField(t *testing.T) {
	current := priceView(t, []interface{}{200.0})
	if _, err := ComparePeriods(current, current, "worth"); err == nil {
		t.Error("expected error for unknown field")
	}
}

func TestTableTrend_ReordersRowsByKey(t *testing.T) {
	// Table rows arrive ordered by descending value; the projection must
	// follow key (chronological) order instead: 100, 200, 300 → 400.
	table := dataset.SummaryTable{
		Name:    "sum_price_by_month",
		GroupBy: "month",
		Rows: []dataset.SummaryRow{
			{Key: "2024-03", Value: 300},
			{Key: "2024-02", Value: 200},
			{Key: "2024-01", Value: 100},
		},
	}

	got := TableTrend(table, 2)
	want := []float64{400, 500}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if !almostEqual(got[i], want[i]) {
			t.Errorf("period %d: expected %g, got %g", i, want[i], got[i])
		}
	}

	if table.Rows[0].Key != "2024-03" {
		t.Error("input table rows must not be reordered")
	}
}

func TestTableTrend_TooFewRows(t *testing.T) {
	table := dataset.SummaryTable{
		Rows: []dataset.SummaryRow{{Key: "2024-01", Value: 100}},
	}
	if got := TableTrend(table, 2); got != nil {
		t.Errorf("expected nil for a single-row table, got %v", got)
	}
}

func TestProjectTrend(t *testing.T) {
	tests := []struct {
		name    string
		values  []float64
		periods int
		want    []float64
	}{
		{
			name:    "linear series continues",
			values:  []float64{100, 200, 300},
			periods: 2,
			want:    []float64{400, 500},
		},
		{
			name:    "declining series floors at zero",
			values:  []float64{300, 100},
			periods: 3,
			want:    []float64{0, 0, 0},
		},
		{
			name:    "trailing window only",
			values:  []float64{1000, 0, 100, 200, 300, 400, 500, 600},
			periods: 1,
			want:    []float64{700},
		},
		{
			name:    "too few points",
			values:  []float64{100},
			periods: 2,
			want:    nil,
		},
		{
			name:    "zero periods",
			values:  []float64{100, 200},
			periods: 0,
			want:    nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ProjectTrend(tt.values, tt.periods)
			if len(got) != len(tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
			for i := range tt.want {
				if !almostEqual(got[i], tt.want[i]) {
					t.Errorf("period %d: expected %g, got %g", i, tt.want[i], got[i])
					break
				}
			}
		})
	}
}
