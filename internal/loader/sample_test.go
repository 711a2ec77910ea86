package loader

import (
	"fmt"
	"testing"

	"github.com/muzzz404/dld-dubai/pkg/dataset"
)

func sequenceDataset(t *testing.T, n int) *dataset.Dataset {
	t.Helper()
	schema := dataset.MustSchema(dataset.Field{Name: "seq", Type: dataset.TypeNumber})
	records := make([]dataset.Record, n)
	for i := range records {
		records[i] = dataset.Record{"seq": float64(i)}
	}
	ds, err := dataset.New(schema, records)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return ds
}

func TestSample_Deterministic(t *testing.T) {
	ds := sequenceDataset(t, 100)

	a, err := Sample(ds, 10, 42)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := Sample(ds, 10, 42)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if a.Len() != 10 || b.Len() != 10 {
		t.Fatalf("expected 10 rows, got %d and %d", a.Len(), b.Len())
	}
	for i := 0; i < a.Len(); i++ {
		if a.Value(i, "seq") != b.Value(i, "seq") {
			t.Fatalf("same seed produced different samples at row %d", i)
		}
	}
}

func TestSample_DifferentSeeds(t *testing.T) {
	ds := sequenceDataset(t, 100)

	a, _ := Sample(ds, 10, 1)
	b, _ := Sample(ds, 10, 2)

	same := true
	for i := 0; i < a.Len(); i++ {
		if a.Value(i, "seq") != b.Value(i, "seq") {
			same = false
			break
		}
	}
	if same {
		t.Error("different seeds produced identical samples")
	}
}

func TestSample_SourceOrderPreserved(t *testing.T) {
	ds := sequenceDataset(t, 50)

	sample, err := Sample(ds, 20, 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	prev := -1.0
	for i := 0; i < sample.Len(); i++ {
		cur := sample.Value(i, "seq").(float64)
		if cur <= prev {
			t.Fatalf("sample not in source order at row %d: %g after %g", i, cur, prev)
		}
		prev = cur
	}
}

func TestSample_SmallDatasetReturnedWhole(t *testing.T) {
	ds := sequenceDataset(t, 5)

	for _, n := range []int{5, 10, 0, -1} {
		t.Run(fmt.Sprintf("n=%d", n), func(t *testing.T) {
			sample, err := Sample(ds, n, 42)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if sample != ds {
				t.Error("expected the source dataset back unchanged")
			}
		})
	}
}
