package graph

import "github.com/datapeak/backend/pkg/common"

// CollectObservations emits one co-occurrence observation per unordered pair
// of entity keys appearing in the same record. For a record contributing k
// keys this is O(k²), which is fine because k is bounded by the dataset's
// column count.
func CollectObservations(records []common.Record) []common.Observation {
	observations := make([]common.Observation, 0)

	for _, record := range records {
		keys := recordEntityKeys(record)
		for i := 0; i < len(keys); i++ {
			for j := i + 1; j < len(keys); j++ {
				observations = append(observations, common.Observation{
					Source: keys[i],
					Target: keys[j],
					Type:   common.RelationCoOccurs,
				})
			}
		}
	}

	return observations
}

type edgeBucket struct {
	source common.EntityKey
	target common.EntityKey
	typ    string
}

// AggregateEdges groups observations by (source, target, type) and produces
// one edge per bucket. Bucketing is order-sensitive: an (A,B) observation and
// a (B,A) observation land in different buckets. Callers that need symmetric
// edges must feed consistently ordered observations, which record extraction
// guarantees through its lexicographic field ordering.
//
// Edge weights are normalized globally: each weight is the bucket's share of
// the total observation count, so all weights of one build sum to 1.0.
func AggregateEdges(observations []common.Observation) []common.Edge {
	if len(observations) == 0 {
		return nil
	}

	counts := make(map[edgeBucket]int)
	order := make([]edgeBucket, 0)

	for _, obs := range observations {
		bucket := edgeBucket{source: obs.Source, target: obs.Target, typ: obs.Type}
		if _, ok := counts[bucket]; !ok {
			order = append(order, bucket)
		}
		counts[bucket]++
	}

	total := float64(len(observations))
	edges := make([]common.Edge, 0, len(order))
	for _, bucket := range order {
		count := counts[bucket]
		edges = append(edges, common.Edge{
			Source:          bucket.source,
			Target:          bucket.target,
			Type:            bucket.typ,
			Weight:          float64(count) / total,
			OccurrenceCount: count,
		})
	}

	return edges
}
