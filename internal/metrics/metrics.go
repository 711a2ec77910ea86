// Package metrics computes derived financial metrics for real-estate
// analysis: rental yields, return on investment, appreciation, and
// period-over-period comparisons.
//
// All functions are pure and side-effect free. Undefined computations
// (division by a non-positive base) fail with typed errors; no substitute
// value is ever guessed.
package metrics

import (
	"errors"
	"fmt"
	"sort"

	"github.com/muzzz404/dld-dubai/internal/pipeline"
	"github.com/muzzz404/dld-dubai/pkg/dataset"
)

// Common errors.
var (
	// ErrNonPositivePrice is returned when a yield or ROI is requested
	// against a zero or negative purchase price.
	ErrNonPositivePrice = errors.New("purchase price must be positive")
	// ErrUndefinedChange is returned when a percent change is requested
	// against a zero previous value.
	ErrUndefinedChange = errors.New("percent change from zero is undefined")
)

// Default assumption rates for investment calculations.
const (
	// DefaultExpensesPct is the assumed annual expenses as a fraction of price.
	DefaultExpensesPct = 0.2
	// DefaultVacancyRate is the assumed vacancy rate.
	DefaultVacancyRate = 0.05
)

// GrossYield returns the gross rental yield as a percentage.
func GrossYield(price, annualRent float64) (float64, error) {
	if price <= 0 {
		return 0, fmt.Errorf("gross yield: %w (got %v)", ErrNonPositivePrice, price)
	}
	return annualRent / price * 100, nil
}

// NetYield returns the rental yield after expenses as a percentage.
// expensesPct is the annual expenses as a fraction of the price.
func NetYield(price, annualRent, expensesPct float64) (float64, error) {
	if price <= 0 {
		return 0, fmt.Errorf("net yield: %w (got %v)", ErrNonPositivePrice, price)
	}
	expenses := price * expensesPct
	return (annualRent - expenses) / price * 100, nil
}

// ROI returns the return on investment as a percentage together with the
// annual cash flow, applying the given expense fraction and vacancy rate.
func ROI(price, annualRent, expensesPct, vacancyRate float64) (roiPct, cashFlow float64, err error) {
	if price <= 0 {
		return 0, 0, fmt.Errorf("roi: %w (got %v)", ErrNonPositivePrice, price)
	}
	expenses := price * expensesPct
	effectiveRent := annualRent * (1 - vacancyRate)
	cashFlow = effectiveRent - expenses
	return cashFlow / price * 100, cashFlow, nil
}

// TotalReturn returns yield plus appreciation, both as percentages.
func TotalReturn(yieldPct, appreciationPct float64) float64 {
	return yieldPct + appreciationPct
}

// Investment summarizes the return profile of one purchase.
type Investment struct {
	GrossYieldPct  float64 `json:"grossYieldPct"`
	NetYieldPct    float64 `json:"netYieldPct"`
	ROIPct         float64 `json:"roiPct"`
	CashFlow       float64 `json:"cashFlow"`
	TotalReturnPct float64 `json:"totalReturnPct"`
}

// Evaluate computes the full return profile for a purchase: gross and net
// yields, ROI with cash flow, and total return including appreciation.
func Evaluate(price, annualRent, expensesPct, vacancyRate, appreciationPct float64) (Investment, error) {
	gross, err := GrossYield(price, annualRent)
	if err != nil {
		return Investment{}, err
	}
	net, err := NetYield(price, annualRent, expensesPct)
	if err != nil {
		return Investment{}, err
	}
	roi, cashFlow, err := ROI(price, annualRent, expensesPct, vacancyRate)
	if err != nil {
		return Investment{}, err
	}
	return Investment{
		GrossYieldPct:  gross,
		NetYieldPct:    net,
		ROIPct:         roi,
		CashFlow:       cashFlow,
		TotalReturnPct: TotalReturn(roi, appreciationPct),
	}, nil
}

// PercentChange returns the relative change from previous to current as a
// percentage. A zero previous value is an undefined change, not infinity.
func PercentChange(current, previous float64) (float64, error) {
	if previous == 0 {
		return 0, ErrUndefinedChange
	}
	return (current - previous) / previous * 100, nil
}

// Delta is one metric compared across two periods.
type Delta struct {
	Current  float64 `json:"current"`
	Previous float64 `json:"previous"`
	// ChangePct is the percent change; valid only when Defined is true.
	ChangePct float64 `json:"changePct"`
	// Defined is false when the previous value is zero, in which case
	// ChangePct must not be displayed.
	Defined bool `json:"defined"`
}

// newDelta builds a Delta, leaving ChangePct undefined for a zero base.
func newDelta(current, previous float64) Delta {
	d := Delta{Current: current, Previous: previous}
	if change, err := PercentChange(current, previous); err == nil {
		d.ChangePct = change
		d.Defined = true
	}
	return d
}

// Comparison holds period-over-period deltas for one numeric field.
type Comparison struct {
	Field  string `json:"field"`
	Count  Delta  `json:"count"`
	Sum    Delta  `json:"sum"`
	Mean   Delta  `json:"mean"`
	Median Delta  `json:"median"`
}

// ComparePeriods compares descriptive statistics of a numeric field across
// a current and a previous view (typically two date-range filters of the
// same dataset). Either view may be empty; deltas against an empty
// previous period are marked undefined rather than inflated.
func ComparePeriods(current, previous dataset.FilteredView, field string) (Comparison, error) {
	cur, err := pipeline.Describe(current, field)
	if err != nil {
		return Comparison{}, err
	}
	prev, err := pipeline.Describe(previous, field)
	if err != nil {
		return Comparison{}, err
	}

	return Comparison{
		Field:  field,
		Count:  newDelta(float64(cur.Count), float64(prev.Count)),
		Sum:    newDelta(cur.Sum, prev.Sum),
		Mean:   newDelta(cur.Mean, prev.Mean),
		Median: newDelta(cur.Median, prev.Median),
	}, nil
}

// TableTrend projects the continuation of a calendar-bucketed summary
// table. Rows are re-ordered by ascending key before projecting, since
// bucket keys sort chronologically while table rows are ordered by value.
// Returns nil when the table has fewer than two rows.
func TableTrend(table dataset.SummaryTable, periods int) []float64 {
	if len(table.Rows) < 2 {
		return nil
	}
	rows := make([]dataset.SummaryRow, len(table.Rows))
	copy(rows, table.Rows)
	sort.Slice(rows, func(i, j int) bool { return rows[i].Key < rows[j].Key })

	values := make([]float64, len(rows))
	for i, row := range rows {
		values[i] = row.Value
	}
	return ProjectTrend(values, periods)
}

// ProjectTrend projects the next periods of a series using the mean
// first-difference of the trailing window (at most the last 6 points).
// Projected values are floored at zero. Returns nil when the series has
// fewer than two points, as no trend is defined.
func ProjectTrend(values []float64, periods int) []float64 {
	if len(values) < 2 || periods <= 0 {
		return nil
	}

	window := values
	if len(window) > 6 {
		window = window[len(window)-6:]
	}

	var meanDiff float64
	for i := 1; i < len(window); i++ {
		meanDiff += window[i] - window[i-1]
	}
	meanDiff /= float64(len(window) - 1)

	projected := make([]float64, periods)
	last := values[len(values)-1]
	for i := range projected {
		last += meanDiff
		if last < 0 {
			last = 0
		}
		projected[i] = last
	}
	return projected
}
