package graph

import "github.com/datapeak/backend/pkg/common"

// MaxRecordsPerBuild caps how many records a single graph build may process.
const MaxRecordsPerBuild = 1000

// BuildResult holds the in-memory graph produced from one batch of records,
// ready to be persisted.
type BuildResult struct {
	Entities []common.Entity
	Edges    []common.Edge
}

// Build runs one full extraction and aggregation pass over a dataset's
// records. Batches larger than MaxRecordsPerBuild are truncated. Build has no
// side effects; persistence is the store adapter's job.
func Build(records []common.Record) BuildResult {
	if len(records) > MaxRecordsPerBuild {
		records = records[:MaxRecordsPerBuild]
	}

	return BuildResult{
		Entities: ExtractEntities(records),
		Edges:    AggregateEdges(CollectObservations(records)),
	}
}
