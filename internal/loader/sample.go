package loader

import (
	"math/rand"

	"github.com/muzzz404/dld-dubai/pkg/dataset"
)

// Sample returns a deterministic random sample of up to n records, for
// faster development and testing against large exports. The same seed
// always selects the same records. Record order is preserved, so the
// sample behaves like a smaller instance of the source dataset.
func Sample(ds *dataset.Dataset, n int, seed int64) (*dataset.Dataset, error) {
	if n <= 0 || ds.Len() <= n {
		return ds, nil
	}

	rng := rand.New(rand.NewSource(seed))
	picked := rng.Perm(ds.Len())[:n]

	// Keep source order: mark picked positions, then walk in order.
	keep := make(map[int]bool, n)
	for _, i := range picked {
		keep[i] = true
	}
	indices := make([]int, 0, n)
	for i := 0; i < ds.Len(); i++ {
		if keep[i] {
			indices = append(indices, i)
		}
	}

	return dataset.NewView(ds, indices).Materialize()
}
