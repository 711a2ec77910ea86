package registry

import "sort"

func init() {
	registerBuiltinReductions()
}

// registerBuiltinReductions registers the standard reduction set.
func registerBuiltinReductions() {
	// count - number of records in the group; well-defined as zero for
	// an empty group and valid for any target field, including none.
	MustRegister(Reduction{
		Name: "count",
		Reduce: func(_ []float64, rows int) float64 {
			return float64(rows)
		},
	})

	MustRegister(Reduction{
		Name:            "sum",
		RequiresNumeric: true,
		Reduce: func(values []float64, _ int) float64 {
			var total float64
			for _, v := range values {
				total += v
			}
			return total
		},
	})

	MustRegister(Reduction{
		Name:            "mean",
		RequiresNumeric: true,
		Reduce: func(values []float64, _ int) float64 {
			var total float64
			for _, v := range values {
				total += v
			}
			return total / float64(len(values))
		},
	})

	// median - middle value; mean of the two middle values for even counts.
	MustRegister(Reduction{
		Name:            "median",
		RequiresNumeric: true,
		Reduce: func(values []float64, _ int) float64 {
			sorted := make([]float64, len(values))
			copy(sorted, values)
			sort.Float64s(sorted)
			mid := len(sorted) / 2
			if len(sorted)%2 == 0 {
				return (sorted[mid-1] + sorted[mid]) / 2
			}
			return sorted[mid]
		},
	})

	MustRegister(Reduction{
		Name:            "min",
		RequiresNumeric: true,
		Reduce: func(values []float64, _ int) float64 {
			lowest := values[0]
			for _, v := range values[1:] {
				if v < lowest {
					lowest = v
				}
			}
			return lowest
		},
	})

	MustRegister(Reduction{
		Name:            "max",
		RequiresNumeric: true,
		Reduce: func(values []float64, _ int) float64 {
			highest := values[0]
			for _, v := range values[1:] {
				if v > highest {
					highest = v
				}
			}
			return highest
		},
	})
}
