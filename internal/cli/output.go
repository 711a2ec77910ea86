package cli

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/muzzz404/dld-dubai/internal/loader"
	"github.com/muzzz404/dld-dubai/internal/metrics"
	"github.com/muzzz404/dld-dubai/internal/pipeline"
	"github.com/muzzz404/dld-dubai/pkg/dataset"
)

// OutputOptions configures CLI output behavior.
type OutputOptions struct {
	Verbose bool
	Quiet   bool
}

// PrintQueryResult displays the tables produced by a query run.
func PrintQueryResult(w io.Writer, result *pipeline.Result, opts OutputOptions) {
	if !opts.Quiet {
		fmt.Fprintf(w, "✓ Query %s matched %d of %d rows\n",
			result.ID, result.View.Len(), result.View.Source().Len())
		if result.Dropped > 0 {
			fmt.Fprintf(w, "  Rows dropped during bucketing: %d\n", result.Dropped)
		}
	}

	names := make([]string, 0, len(result.Tables))
	for name := range result.Tables {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		fmt.Fprintln(w)
		PrintSummaryTable(w, result.Tables[name])
	}
}

// PrintSummaryTable renders an aggregation result as an aligned text table.
// Empty tables print an explicit notice so a silent filter mismatch is
// visible.
func PrintSummaryTable(w io.Writer, table dataset.SummaryTable) {
	fmt.Fprintf(w, "%s (%s of %s by %s)\n",
		table.Name, table.Reduce, targetLabel(table.Target), groupLabel(table.GroupBy))

	if table.Empty() {
		fmt.Fprintln(w, "  (no rows matched)")
		return
	}

	keyWidth := len("KEY")
	for _, row := range table.Rows {
		if len(row.Key) > keyWidth {
			keyWidth = len(row.Key)
		}
	}

	fmt.Fprintf(w, "  %-*s  %14s  %8s\n", keyWidth, "KEY", "VALUE", "COUNT")
	for _, row := range table.Rows {
		fmt.Fprintf(w, "  %-*s  %14s  %8d\n", keyWidth, row.Key, formatNumber(row.Value), row.Count)
	}
}

// PrintStats displays descriptive statistics for a numeric field.
func PrintStats(w io.Writer, stats pipeline.Stats) {
	fmt.Fprintf(w, "Field %s\n", stats.Field)
	if stats.Count == 0 {
		fmt.Fprintln(w, "  (no values)")
		return
	}
	fmt.Fprintf(w, "  Count:  %d\n", stats.Count)
	fmt.Fprintf(w, "  Sum:    %s\n", formatNumber(stats.Sum))
	fmt.Fprintf(w, "  Mean:   %s\n", formatNumber(stats.Mean))
	fmt.Fprintf(w, "  Median: %s\n", formatNumber(stats.Median))
	fmt.Fprintf(w, "  Min:    %s\n", formatNumber(stats.Min))
	fmt.Fprintf(w, "  Max:    %s\n", formatNumber(stats.Max))
}

// PrintComparison displays period-over-period deltas for one field.
// Deltas against a zero previous value show n/a instead of a percentage.
func PrintComparison(w io.Writer, cmp metrics.Comparison) {
	fmt.Fprintf(w, "Field %s (current vs previous)\n", cmp.Field)
	printDelta(w, "Count", cmp.Count)
	printDelta(w, "Sum", cmp.Sum)
	printDelta(w, "Mean", cmp.Mean)
	printDelta(w, "Median", cmp.Median)
}

func printDelta(w io.Writer, label string, d metrics.Delta) {
	change := "n/a"
	if d.Defined {
		change = fmt.Sprintf("%+.1f%%", d.ChangePct)
	}
	fmt.Fprintf(w, "  %-7s %14s  (prev %s, %s)\n",
		label+":", formatNumber(d.Current), formatNumber(d.Previous), change)
}

// PrintInvestment displays the return profile of one purchase.
func PrintInvestment(w io.Writer, inv metrics.Investment) {
	fmt.Fprintf(w, "Gross yield:  %s%%\n", formatNumber(inv.GrossYieldPct))
	fmt.Fprintf(w, "Net yield:    %s%%\n", formatNumber(inv.NetYieldPct))
	fmt.Fprintf(w, "ROI:          %s%%\n", formatNumber(inv.ROIPct))
	fmt.Fprintf(w, "Cash flow:    %s\n", formatNumber(inv.CashFlow))
	fmt.Fprintf(w, "Total return: %s%%\n", formatNumber(inv.TotalReturnPct))
}

// PrintProjection displays a table's projected continuation. Nothing is
// printed when the projection is empty.
func PrintProjection(w io.Writer, name string, projected []float64) {
	if len(projected) == 0 {
		return
	}
	parts := make([]string, len(projected))
	for i, v := range projected {
		parts[i] = formatNumber(v)
	}
	fmt.Fprintf(w, "%s projected next %d: %s\n", name, len(projected), strings.Join(parts, ", "))
}

// PrintIngestReport displays how many rows were loaded and dropped.
func PrintIngestReport(w io.Writer, name string, report *loader.IngestReport, verbose bool) {
	fmt.Fprintf(w, "✓ Loaded %s: %d of %d rows\n", name, report.Loaded, report.Rows)
	if report.Dropped > 0 {
		fmt.Fprintf(w, "  Rows dropped: %d\n", report.Dropped)
	}

	if !verbose || len(report.FieldErrors) == 0 {
		return
	}
	fields := make([]string, 0, len(report.FieldErrors))
	for field := range report.FieldErrors {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	fmt.Fprintln(w, "  Field coercion failures:")
	for _, field := range fields {
		fmt.Fprintf(w, "    %s: %d\n", field, report.FieldErrors[field])
	}
}

// formatNumber renders a float without trailing noise, keeping integers
// free of a decimal point.
func formatNumber(v float64) string {
	s := fmt.Sprintf("%.2f", v)
	s = strings.TrimRight(s, "0")
	s = strings.TrimSuffix(s, ".")
	return s
}

func targetLabel(target string) string {
	if target == "" {
		return "rows"
	}
	return target
}

func groupLabel(groupBy string) string {
	if groupBy == "" {
		return "all"
	}
	return groupBy
}
