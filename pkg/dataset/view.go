package dataset

// FilteredView is an order-preserving subset of a dataset, held as indices
// into the source. It carries no record data of its own, so creating one is
// cheap and the source is never mutated.
//
// A FilteredView is ephemeral: it is produced per request, owned by the
// caller, and discarded after rendering.
type FilteredView struct {
	source  *Dataset
	indices []int
}

// NewView creates a view over the given source restricted to indices.
// Indices must be valid positions in the source and in ascending order to
// preserve record order; the pipeline guarantees this for its outputs.
func NewView(source *Dataset, indices []int) FilteredView {
	return FilteredView{source: source, indices: indices}
}

// Len returns the number of records in the view.
func (v FilteredView) Len() int { return len(v.indices) }

// Source returns the underlying dataset.
func (v FilteredView) Source() *Dataset { return v.source }

// Schema returns the schema of the underlying dataset.
func (v FilteredView) Schema() Schema {
	if v.source == nil {
		return Schema{}
	}
	return v.source.Schema()
}

// Record returns the i-th record of the view.
// Callers must treat the returned map as read-only.
func (v FilteredView) Record(i int) Record {
	return v.source.Record(v.indices[i])
}

// Value returns the value of the named field at view position i.
func (v FilteredView) Value(i int, field string) Value {
	return v.source.Value(v.indices[i], field)
}

// Indices returns a copy of the view's source indices.
func (v FilteredView) Indices() []int {
	out := make([]int, len(v.indices))
	copy(out, v.indices)
	return out
}

// SourceIndex returns the source-dataset index of view position i.
func (v FilteredView) SourceIndex(i int) int { return v.indices[i] }

// Materialize copies the view's records into a standalone dataset.
// The records themselves are shared with the source (read-only by contract).
func (v FilteredView) Materialize() (*Dataset, error) {
	records := make([]Record, len(v.indices))
	for i, idx := range v.indices {
		records[i] = v.source.Record(idx)
	}
	return New(v.source.Schema(), records)
}
