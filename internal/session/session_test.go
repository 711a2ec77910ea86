package session

import (
	"sync"
	"testing"

	"github.com/muzzz404/dld-dubai/pkg/dataset"
)

func testDataset(t *testing.T) *dataset.Dataset {
	t.Helper()
	schema := dataset.MustSchema(dataset.Field{Name: "area", Type: dataset.TypeString})
	ds, err := dataset.New(schema, []dataset.Record{{"area": "Deira"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return ds
}

func TestSession_AttachAndLookup(t *testing.T) {
	sess := New()
	ds := testDataset(t)

	if err := sess.Attach("transactions", ds); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := sess.Dataset("transactions")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != ds {
		t.Error("expected the attached dataset instance")
	}

	if _, err := sess.Dataset("rentals"); err == nil {
		t.Error("expected error for unattached name")
	}
}

func TestSession_AttachValidation(t *testing.T) {
	sess := New()

	if err := sess.Attach("", testDataset(t)); err == nil {
		t.Error("expected error for empty name")
	}
	if err := sess.Attach("transactions", nil); err == nil {
		t.Error("expected error for nil dataset")
	}
}

func TestSession_ReattachReplaces(t *testing.T) {
	sess := New()
	first := testDataset(t)
	second := testDataset(t)

	if err := sess.Attach("transactions", first); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := sess.Attach("transactions", second); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, _ := sess.Dataset("transactions")
	if got != second {
		t.Error("expected the replacement dataset")
	}
}

func TestSession_Detach(t *testing.T) {
	sess := New()
	if err := sess.Attach("transactions", testDataset(t)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sess.Detach("transactions")
	if _, err := sess.Dataset("transactions"); err == nil {
		t.Error("expected error after detach")
	}
}

func TestSession_NamesSorted(t *testing.T) {
	sess := New()
	for _, name := range []string{"rentals", "transactions", "projects"} {
		if err := sess.Attach(name, testDataset(t)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	names := sess.Names()
	want := []string{"projects", "rentals", "transactions"}
	if len(names) != len(want) {
		t.Fatalf("expected %v, got %v", want, names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("position %d: expected %s, got %s", i, want[i], names[i])
		}
	}
}

func TestSession_IsolatedAndConcurrent(t *testing.T) {
	a := New()
	b := New()
	if a.ID() == b.ID() {
		t.Error("expected distinct session IDs")
	}

	if err := a.Attach("transactions", testDataset(t)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := b.Dataset("transactions"); err == nil {
		t.Error("sessions must not share datasets")
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_, _ = a.Dataset("transactions")
				_ = a.Names()
			}
		}()
	}
	wg.Wait()
}
