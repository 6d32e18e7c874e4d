package store

import (
	"context"
	"fmt"

	"github.com/datapeak/backend/pkg/common"
)

// GraphWriter is the write surface one graph rebuild runs on. Implementations
// scope every call to a single dataset and run inside one transaction, so a
// failed rebuild leaves the previous graph intact.
type GraphWriter interface {
	// DeleteGraph removes the dataset's existing nodes and edges.
	DeleteGraph(ctx context.Context) error

	// InsertNodes persists the entities and returns the generated node id per
	// entity key.
	InsertNodes(ctx context.Context, entities []common.Entity) (map[common.EntityKey]int64, error)

	// InsertEdges persists the resolved edges.
	InsertEdges(ctx context.Context, edges []ResolvedEdge) error
}

// ReplaceGraph rebuilds a dataset's graph on the writer. The previous graph is
// deleted before the new nodes and edges go in, so rebuilding an unchanged
// dataset converges on the same graph instead of accumulating copies. The
// returned int counts edges dropped because a key had no node id.
func ReplaceGraph(
	ctx context.Context,
	w GraphWriter,
	entities []common.Entity,
	edges []common.Edge,
) (common.BuildSummary, int, error) {
	var summary common.BuildSummary

	if err := w.DeleteGraph(ctx); err != nil {
		return summary, 0, fmt.Errorf("failed to clear previous graph: %w", err)
	}

	lookup, err := w.InsertNodes(ctx, entities)
	if err != nil {
		return summary, 0, fmt.Errorf("failed to save nodes: %w", err)
	}

	resolved, dropped := ResolveEdges(edges, lookup)
	if len(resolved) > 0 {
		if err := w.InsertEdges(ctx, resolved); err != nil {
			return summary, dropped, fmt.Errorf("failed to save edges: %w", err)
		}
	}

	summary.NodesCreated = len(entities)
	summary.EdgesCreated = len(resolved)
	return summary, dropped, nil
}

// RecordWriter is the write surface one dataset ingestion runs on, scoped to a
// single dataset like GraphWriter.
type RecordWriter interface {
	// DeleteRecords removes the dataset's existing records.
	DeleteRecords(ctx context.Context) error

	// InsertRecordChunk persists one chunk of records and returns the inserted
	// row count.
	InsertRecordChunk(ctx context.Context, records []common.Record) (int, error)
}

// ReplaceRecords stores a dataset's records in chunks, first deleting whatever
// a previous attempt left behind. A retried or redelivered ingestion of the
// same file therefore ends with exactly one copy of each row, which keeps node
// occurrence counts honest on later builds.
func ReplaceRecords(
	ctx context.Context,
	w RecordWriter,
	records []common.Record,
	chunkSize int,
) (int, error) {
	if err := w.DeleteRecords(ctx); err != nil {
		return 0, fmt.Errorf("failed to clear previous records: %w", err)
	}

	inserted := 0
	err := ChunkRange(len(records), chunkSize, func(start, end int) error {
		count, err := w.InsertRecordChunk(ctx, records[start:end])
		if err != nil {
			return err
		}
		inserted += count
		return nil
	})
	if err != nil {
		return inserted, fmt.Errorf("failed to insert records: %w", err)
	}
	return inserted, nil
}
