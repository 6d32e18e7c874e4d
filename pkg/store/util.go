package store

import "github.com/datapeak/backend/pkg/common"

// ResolvedEdge is an edge whose entity keys have been replaced with the
// store-generated node identifiers of one build.
type ResolvedEdge struct {
	SourceID        int64
	TargetID        int64
	Type            string
	Weight          float64
	OccurrenceCount int
}

// ResolveEdges maps each edge's source and target key to a node id. Edges
// referencing a key missing from the lookup are dropped; the dropped count is
// returned so callers can log it. This should not happen when extraction and
// persistence share the same entity rule, but a partially failed node insert
// must not take the whole build down at this stage.
func ResolveEdges(edges []common.Edge, lookup map[common.EntityKey]int64) ([]ResolvedEdge, int) {
	resolved := make([]ResolvedEdge, 0, len(edges))
	dropped := 0

	for _, edge := range edges {
		sourceID, okSource := lookup[edge.Source]
		targetID, okTarget := lookup[edge.Target]
		if !okSource || !okTarget {
			dropped++
			continue
		}
		resolved = append(resolved, ResolvedEdge{
			SourceID:        sourceID,
			TargetID:        targetID,
			Type:            edge.Type,
			Weight:          edge.Weight,
			OccurrenceCount: edge.OccurrenceCount,
		})
	}

	return resolved, dropped
}

// ChunkRange invokes fn over [start, end) windows of at most chunkSize
// elements until total is covered or fn returns an error.
func ChunkRange(total, chunkSize int, fn func(start, end int) error) error {
	if total <= 0 {
		return nil
	}
	if chunkSize <= 0 {
		chunkSize = total
	}
	for start := 0; start < total; start += chunkSize {
		end := min(start+chunkSize, total)
		if err := fn(start, end); err != nil {
			return err
		}
	}
	return nil
}
