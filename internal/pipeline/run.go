package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/muzzz404/dld-dubai/internal/logger"
	"github.com/muzzz404/dld-dubai/pkg/dataset"
)

// Result is the outcome of running one query: the filtered view plus the
// requested summary tables, keyed by table name. Results are ephemeral and
// owned solely by the caller.
type Result struct {
	// ID identifies this query run in logs.
	ID uuid.UUID
	// View is the filtered (and possibly bucketed) view of the dataset.
	View dataset.FilteredView
	// Tables holds one summary table per aggregation spec.
	Tables map[string]dataset.SummaryTable
	// Dropped is the number of records dropped during bucketing.
	Dropped int
}

// Run executes a full query against a dataset: computed fields, filters,
// calendar bucketing, then aggregations. The source dataset is never
// modified; all outputs belong to the caller.
//
// The context is consulted between stages; a canceled context aborts the
// run with ctx.Err().
func Run(ctx context.Context, ds *dataset.Dataset, spec dataset.QuerySpec) (*Result, error) {
	result := &Result{
		ID:     uuid.New(),
		Tables: make(map[string]dataset.SummaryTable, len(spec.Aggregations)),
	}
	queryID := result.ID.String()
	log := logger.WithQuery(queryID)

	log.Debug("query started",
		"dataset", spec.Dataset,
		"predicates", len(spec.Predicates),
		"aggregations", len(spec.Aggregations),
	)

	working := ds

	if len(spec.Computed) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		start := time.Now()
		extended, err := ComputeFields(working, spec.Computed)
		if err != nil {
			return nil, err
		}
		working = extended
		logger.LogStage(queryID, "compute", working.Len(), time.Since(start))
	}

	if spec.Bucket != nil {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		start := time.Now()
		bucketed, dropped, err := PeriodBucket(working, *spec.Bucket)
		if err != nil {
			return nil, err
		}
		working = bucketed
		result.Dropped = dropped
		logger.LogDropped(spec.Dataset, "bucket", dropped, ds.Len())
		logger.LogStage(queryID, "bucket", working.Len(), time.Since(start))
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()
	view, err := ApplyFilters(working, spec.Predicates)
	if err != nil {
		return nil, err
	}
	result.View = view
	logger.LogStage(queryID, "filter", view.Len(), time.Since(start))

	for _, agg := range spec.Aggregations {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		start := time.Now()
		table, err := Aggregate(view, agg)
		if err != nil {
			return nil, err
		}
		result.Tables[table.Name] = table
		logger.LogStage(queryID, "aggregate", len(table.Rows), time.Since(start))
	}

	log.Debug("query completed",
		"matched", view.Len(),
		"tables", len(result.Tables),
		"dropped", result.Dropped,
	)
	return result, nil
}
