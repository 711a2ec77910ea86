// Package registry provides the reduction-function registry for the
// aggregation pipeline.
//
// # Overview
//
// Instead of a hard-coded switch over reduction names, reduction functions
// register themselves by name. This allows additional reductions (for
// example stddev or a percentile) to be added without modifying the
// aggregation code.
//
// # Adding a New Reduction
//
// Implement a Reduction and register it in an init() function:
//
//	func init() {
//	    registry.MustRegister(registry.Reduction{
//	        Name:            "stddev",
//	        RequiresNumeric: true,
//	        Reduce:          stddev,
//	    })
//	}
//
// Built-in reductions (count, sum, mean, median, min, max) are registered
// automatically at startup.
package registry

import (
	"fmt"
	"sort"
	"sync"
)

// Reduction is a named reduction function over one group of records.
type Reduction struct {
	// Name is the registry key, as referenced by aggregation specs.
	Name string
	// RequiresNumeric indicates the target field must be a number field.
	// Non-numeric reductions (count) accept any target, or none.
	RequiresNumeric bool
	// Reduce computes the reduction from the group's numeric values
	// (null values already removed) and the group's total row count.
	// For RequiresNumeric reductions the pipeline guarantees values is
	// non-empty; an all-null group is reported as an empty reduction
	// before Reduce is called.
	Reduce func(values []float64, rows int) float64
}

var (
	mu         sync.RWMutex
	reductions = make(map[string]Reduction)
)

// Register adds a reduction to the registry.
// Registering a duplicate name or a nil Reduce function is an error.
func Register(r Reduction) error {
	if r.Name == "" {
		return fmt.Errorf("reduction name cannot be empty")
	}
	if r.Reduce == nil {
		return fmt.Errorf("reduction %q: Reduce function is required", r.Name)
	}

	mu.Lock()
	defer mu.Unlock()

	if _, exists := reductions[r.Name]; exists {
		return fmt.Errorf("reduction %q already registered", r.Name)
	}
	reductions[r.Name] = r
	return nil
}

// MustRegister is like Register but panics on error.
// Intended for init()-time registration of statically known reductions.
func MustRegister(r Reduction) {
	if err := Register(r); err != nil {
		panic(err)
	}
}

// Lookup returns the reduction registered under name.
func Lookup(name string) (Reduction, bool) {
	mu.RLock()
	defer mu.RUnlock()
	r, ok := reductions[name]
	return r, ok
}

// Names returns the registered reduction names in sorted order.
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()

	names := make([]string, 0, len(reductions))
	for name := range reductions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
