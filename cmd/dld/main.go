// Package main provides the CLI entry point for the dld analytics tool.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/muzzz404/dld-dubai/internal/cli"
	"github.com/muzzz404/dld-dubai/internal/config"
	"github.com/muzzz404/dld-dubai/internal/loader"
	"github.com/muzzz404/dld-dubai/internal/logger"
	"github.com/muzzz404/dld-dubai/internal/metrics"
	"github.com/muzzz404/dld-dubai/internal/pipeline"
	"github.com/muzzz404/dld-dubai/internal/session"
	"github.com/muzzz404/dld-dubai/pkg/dataset"
)

// Exit codes
const (
	ExitSuccess         = 0
	ExitValidationError = 1
	ExitParseError      = 2
	ExitRuntimeError    = 3
)

var (
	// Global flags
	verbose bool
	quiet   bool

	// Query command flags
	sampleSize     int
	sampleSeed     int64
	noSnapshot     bool
	projectPeriods int

	// ROI command flags
	expensesPct     float64
	vacancyRate     float64
	appreciationPct float64

	// Build information (set via ldflags during build)
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(ExitRuntimeError)
	}
}

var rootCmd = &cobra.Command{
	Use:   "dld",
	Short: "dld - Dubai real-estate transaction analytics",
	Long: `dld is a CLI tool for filtering and aggregating real-estate
transaction datasets.

It parses and validates query definition files (JSON/YAML format), loads
the declared CSV dataset, then runs the declarative filter, bucket and
aggregation pipeline against it.

Examples:
  # Validate a query definition
  dld validate query.yaml

  # Run a query and print the summary tables
  dld query query.yaml

  # Describe a numeric field over the filtered rows
  dld describe query.yaml actual_worth`,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		if verbose {
			logger.SetLevel(slog.LevelDebug)
		} else if quiet {
			logger.SetLevel(slog.LevelError)
		}
	},
}

var validateCmd = &cobra.Command{
	Use:   "validate <query-file>",
	Short: "Validate a query definition file",
	Long: `Validate a query definition file against the schema.

Supports both JSON and YAML formats. The format is auto-detected
based on file extension (.json, .yaml, .yml) or content.

Exit codes:
  0 - Definition is valid
  1 - Validation errors (schema violations)
  2 - Parse errors (invalid JSON/YAML syntax)

Examples:
  dld validate query.json
  dld validate --verbose query.yaml`,
	Args: cobra.ExactArgs(1),
	Run:  runValidate,
}

var queryCmd = &cobra.Command{
	Use:   "query <query-file>",
	Short: "Run a query and print the summary tables",
	Long: `Run the query defined in the file against its dataset.

The definition is first validated against the schema. The dataset is
loaded from a columnar snapshot when one exists next to the CSV,
falling back to the CSV itself.

Flags:
  --sample N    Run against a random sample of N rows
  --seed S      Seed for the sample (default 42)
  --no-snapshot Ignore an existing snapshot and re-read the CSV

Exit codes:
  0 - Query completed
  1 - Validation errors
  2 - Parse errors
  3 - Runtime errors

Examples:
  dld query query.yaml
  dld query --sample 1000 query.yaml`,
	Args: cobra.ExactArgs(1),
	Run:  runQuery,
}

var describeCmd = &cobra.Command{
	Use:   "describe <query-file> <field>",
	Short: "Print statistics for a numeric field",
	Long: `Load the dataset, run the query's compute, bucket and filter stages
and print count, sum, mean, median, min and max for the given numeric
field over the matching rows.

Exit codes follow the query command.`,
	Args: cobra.ExactArgs(2),
	Run:  runDescribe,
}

var compareCmd = &cobra.Command{
	Use:   "compare <current-query-file> <previous-query-file> <field>",
	Short: "Compare a field's statistics across two query periods",
	Long: `Run two query definitions, typically the same query with different
date-range predicates, and compare count, sum, mean and median of the
given numeric field between the two filtered views.

Percent changes against an empty previous period are reported as n/a
rather than inflated.

Exit codes follow the query command.

Examples:
  dld compare q2-2024.yaml q1-2024.yaml actual_worth`,
	Args: cobra.ExactArgs(3),
	Run:  runCompare,
}

var roiCmd = &cobra.Command{
	Use:   "roi <price> <annual-rent>",
	Short: "Compute yields and return on investment for a purchase",
	Long: `Compute gross yield, net yield, ROI, annual cash flow and total
return for a purchase price and expected annual rent.

Flags:
  --expenses P      Annual expenses as a fraction of price (default 0.2)
  --vacancy R       Vacancy rate (default 0.05)
  --appreciation A  Expected annual appreciation percentage (default 0)

Examples:
  dld roi 1200000 84000
  dld roi --expenses 0.15 --appreciation 4 1200000 84000`,
	Args: cobra.ExactArgs(2),
	Run:  runROI,
}

var convertCmd = &cobra.Command{
	Use:   "convert <query-file>",
	Short: "Convert the dataset CSV to a columnar snapshot",
	Long: `Read the CSV declared in the query definition and write a
compressed columnar snapshot next to it. Subsequent query runs load
the snapshot instead of re-parsing the CSV.`,
	Args: cobra.ExactArgs(1),
	Run:  runConvert,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  "Print version, commit hash, and build date information.",
	Run:   runVersion,
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress non-error output")

	// Query command flags
	queryCmd.Flags().IntVar(&sampleSize, "sample", 0, "Run against a random sample of N rows")
	queryCmd.Flags().Int64Var(&sampleSeed, "seed", 42, "Seed for --sample")
	queryCmd.Flags().BoolVar(&noSnapshot, "no-snapshot", false, "Ignore an existing snapshot and re-read the CSV")
	queryCmd.Flags().IntVar(&projectPeriods, "project", 0, "Project bucketed tables N periods forward")

	// ROI command flags
	roiCmd.Flags().Float64Var(&expensesPct, "expenses", metrics.DefaultExpensesPct, "Annual expenses as a fraction of price")
	roiCmd.Flags().Float64Var(&vacancyRate, "vacancy", metrics.DefaultVacancyRate, "Vacancy rate")
	roiCmd.Flags().Float64Var(&appreciationPct, "appreciation", 0, "Expected annual appreciation percentage")

	// Add commands
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(describeCmd)
	rootCmd.AddCommand(compareCmd)
	rootCmd.AddCommand(roiCmd)
	rootCmd.AddCommand(convertCmd)
	rootCmd.AddCommand(versionCmd)
}

func runValidate(_ *cobra.Command, args []string) {
	queryPath := args[0]

	if !quiet {
		fmt.Printf("Validating query definition: %s\n", queryPath)
	}

	result := config.ParseQueryFile(queryPath)

	if len(result.ParseErrors) > 0 {
		cli.PrintParseErrors(result.ParseErrors, verbose)
		os.Exit(ExitParseError)
	}
	if len(result.ValidationErrors) > 0 {
		cli.PrintValidationErrors(result.ValidationErrors, quiet)
		os.Exit(ExitValidationError)
	}

	if !quiet {
		fmt.Printf("✓ Query definition is valid (format: %s)\n", result.Format)
		if verbose {
			if def, err := config.Decode(result.Data); err == nil {
				fmt.Printf("  Dataset: %s (%s)\n", def.Source.Name, def.Source.Path)
				fmt.Printf("  Predicates: %d\n", len(def.Query.Predicates))
				fmt.Printf("  Aggregations: %d\n", len(def.Query.Aggregations))
			}
		}
	}

	os.Exit(ExitSuccess)
}

func runQuery(_ *cobra.Command, args []string) {
	def := loadDefinition(args[0])

	ds := loadDataset(def.Source)
	if sampleSize > 0 {
		sampled, err := loader.Sample(ds, sampleSize, sampleSeed)
		if err != nil {
			fmt.Fprintf(os.Stderr, "✗ Failed to sample dataset: %v\n", err)
			os.Exit(ExitRuntimeError)
		}
		ds = sampled
	}

	sess := session.New()
	if err := sess.Attach(def.Source.Name, ds); err != nil {
		fmt.Fprintf(os.Stderr, "✗ Failed to attach dataset: %v\n", err)
		os.Exit(ExitRuntimeError)
	}

	if !quiet {
		fmt.Println("Running query...")
	}

	attached, err := sess.Dataset(def.Query.Dataset)
	if err != nil {
		fmt.Fprintf(os.Stderr, "✗ %v\n", err)
		os.Exit(ExitRuntimeError)
	}

	result, err := pipeline.Run(context.Background(), attached, *def.Query)
	if err != nil {
		printPipelineError(err)
		os.Exit(ExitRuntimeError)
	}

	cli.PrintQueryResult(os.Stdout, result, cli.OutputOptions{Verbose: verbose, Quiet: quiet})

	if projectPeriods > 0 && def.Query.Bucket != nil {
		bucketField := def.Query.Bucket.BucketFieldName()
		for name, table := range result.Tables {
			if table.GroupBy != bucketField {
				continue
			}
			cli.PrintProjection(os.Stdout, name, metrics.TableTrend(table, projectPeriods))
		}
	}
	os.Exit(ExitSuccess)
}

func runDescribe(_ *cobra.Command, args []string) {
	def := loadDefinition(args[0])
	field := args[1]

	ds := loadDataset(def.Source)

	stats, err := describeField(context.Background(), ds, *def.Query, field)
	if err != nil {
		printPipelineError(err)
		os.Exit(ExitRuntimeError)
	}

	cli.PrintStats(os.Stdout, stats)
	os.Exit(ExitSuccess)
}

func runCompare(_ *cobra.Command, args []string) {
	current := loadDefinition(args[0])
	previous := loadDefinition(args[1])
	field := args[2]

	ctx := context.Background()
	curView, err := stagedView(ctx, loadDataset(current.Source), *current.Query)
	if err != nil {
		printPipelineError(err)
		os.Exit(ExitRuntimeError)
	}
	prevView, err := stagedView(ctx, loadDataset(previous.Source), *previous.Query)
	if err != nil {
		printPipelineError(err)
		os.Exit(ExitRuntimeError)
	}

	cmp, err := metrics.ComparePeriods(curView, prevView, field)
	if err != nil {
		printPipelineError(err)
		os.Exit(ExitRuntimeError)
	}

	cli.PrintComparison(os.Stdout, cmp)
	os.Exit(ExitSuccess)
}

func runROI(_ *cobra.Command, args []string) {
	price, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		fmt.Fprintf(os.Stderr, "✗ Invalid price %q: %v\n", args[0], err)
		os.Exit(ExitValidationError)
	}
	annualRent, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		fmt.Fprintf(os.Stderr, "✗ Invalid annual rent %q: %v\n", args[1], err)
		os.Exit(ExitValidationError)
	}

	inv, err := metrics.Evaluate(price, annualRent, expensesPct, vacancyRate, appreciationPct)
	if err != nil {
		fmt.Fprintf(os.Stderr, "✗ %v\n", err)
		os.Exit(ExitValidationError)
	}

	cli.PrintInvestment(os.Stdout, inv)
	os.Exit(ExitSuccess)
}

func runConvert(_ *cobra.Command, args []string) {
	def := loadDefinition(args[0])

	ds, report, err := loader.Load(context.Background(), *def.Source)
	if err != nil {
		fmt.Fprintf(os.Stderr, "✗ Failed to load dataset: %v\n", err)
		os.Exit(ExitRuntimeError)
	}
	if !quiet {
		cli.PrintIngestReport(os.Stdout, def.Source.Name, report, verbose)
	}

	snapPath := loader.SnapshotPath(*def.Source)
	if err := loader.SaveSnapshot(snapPath, def.Source.Name, ds); err != nil {
		fmt.Fprintf(os.Stderr, "✗ Failed to write snapshot: %v\n", err)
		os.Exit(ExitRuntimeError)
	}
	if !quiet {
		fmt.Printf("✓ Snapshot written: %s\n", snapPath)
	}

	os.Exit(ExitSuccess)
}

func runVersion(_ *cobra.Command, _ []string) {
	fmt.Printf("Version: %s\n", version)
	fmt.Printf("Commit: %s\n", commit)
	fmt.Printf("Build Date: %s\n", buildDate)
}

// loadDefinition parses, validates and decodes a query file, exiting with
// the matching code on failure.
func loadDefinition(path string) *config.Definition {
	result := config.ParseQueryFile(path)

	if len(result.ParseErrors) > 0 {
		cli.PrintParseErrors(result.ParseErrors, verbose)
		os.Exit(ExitParseError)
	}
	if len(result.ValidationErrors) > 0 {
		cli.PrintValidationErrors(result.ValidationErrors, quiet)
		os.Exit(ExitValidationError)
	}

	def, err := config.Decode(result.Data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "✗ Invalid query definition: %v\n", err)
		os.Exit(ExitValidationError)
	}
	return def
}

// stagedView runs the query's compute, bucket and filter stages, skipping
// aggregations, so predicates on computed or bucket fields resolve the
// same way they do for a full query run.
func stagedView(ctx context.Context, ds *dataset.Dataset, spec dataset.QuerySpec) (dataset.FilteredView, error) {
	spec.Aggregations = nil
	result, err := pipeline.Run(ctx, ds, spec)
	if err != nil {
		return dataset.FilteredView{}, err
	}
	return result.View, nil
}

// describeField describes a numeric field over the query's filtered view.
func describeField(ctx context.Context, ds *dataset.Dataset, spec dataset.QuerySpec, field string) (pipeline.Stats, error) {
	view, err := stagedView(ctx, ds, spec)
	if err != nil {
		return pipeline.Stats{}, err
	}
	return pipeline.Describe(view, field)
}

// loadDataset loads the source, preferring an up-to-date snapshot unless
// --no-snapshot is set. An unusable snapshot falls back to the CSV with a
// warning rather than failing the run.
func loadDataset(src *loader.Source) *dataset.Dataset {
	if !noSnapshot {
		if ds, ok := trySnapshot(src); ok {
			if !quiet {
				fmt.Printf("✓ Loaded %s from snapshot: %d rows\n", src.Name, ds.Len())
			}
			return ds
		}
	}

	ds, report, err := loader.Load(context.Background(), *src)
	if err != nil {
		fmt.Fprintf(os.Stderr, "✗ Failed to load dataset: %v\n", err)
		os.Exit(ExitRuntimeError)
	}
	if !quiet {
		cli.PrintIngestReport(os.Stdout, src.Name, report, verbose)
	}
	return ds
}

// trySnapshot loads an existing snapshot for the source. Every load
// failure is warned about, corrupt or not, so a CSV fallback is never
// silent.
func trySnapshot(src *loader.Source) (*dataset.Dataset, bool) {
	snapPath := loader.SnapshotPath(*src)
	if _, err := os.Stat(snapPath); err != nil {
		return nil, false
	}
	ds, err := loader.LoadSnapshot(snapPath, src.Schema)
	if err != nil {
		logger.Warn("snapshot unusable, falling back to CSV",
			"path", snapPath, "error", err)
		return nil, false
	}
	return ds, true
}

// printPipelineError surfaces structured pipeline errors with their code.
func printPipelineError(err error) {
	var perr *pipeline.Error
	if errors.As(err, &perr) {
		fmt.Fprintf(os.Stderr, "✗ Query failed: %s\n", perr.Error())
		return
	}
	fmt.Fprintf(os.Stderr, "✗ Query failed: %v\n", err)
}
