package common

// Record is a single flat row of a dataset: a mapping from field name to a
// scalar value. Values come straight from JSON decoding, so a value is one of
// string, float64, bool, or nil. Records are immutable once ingested.
type Record map[string]any

// EntityKey identifies an entity within one build by the field it was
// observed in and its exact value. Using a struct key instead of a joined
// string avoids collisions when values contain a delimiter.
type EntityKey struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

// Entity represents a node in the knowledge graph. An entity is a distinct
// (field, value) pair observed in a dataset, typed by inference heuristics.
//
// Occurrences counts how many records contained the exact pair.
type Entity struct {
	Key         EntityKey `json:"key"`
	Name        string    `json:"entity_name"`
	Type        string    `json:"entity_type"`
	Occurrences int       `json:"occurrences"`
}

// RelationCoOccurs is the relationship type for entities observed in the
// same record.
const RelationCoOccurs = "co_occurs_in_record"

// Observation is one raw co-occurrence of two entities within a single
// record, before aggregation. Each observation carries a weight of 1.
type Observation struct {
	Source EntityKey `json:"source"`
	Target EntityKey `json:"target"`
	Type   string    `json:"type"`
}

// Edge represents an aggregated, weighted relationship between two entities.
//
// Weight is the bucket's share of all observations in the build, so the
// weights of all edges produced by one build sum to 1.0.
type Edge struct {
	Source          EntityKey `json:"source"`
	Target          EntityKey `json:"target"`
	Type            string    `json:"relationship_type"`
	Weight          float64   `json:"weight"`
	OccurrenceCount int       `json:"occurrence_count"`
}

// BuildSummary reports what a graph build persisted.
type BuildSummary struct {
	NodesCreated int `json:"nodes_created"`
	EdgesCreated int `json:"edges_created"`
}

// KnowledgeEntry is a stored knowledge-base record, created by explicit user
// action or by upstream analysis. It is read-only on the search path.
type KnowledgeEntry struct {
	ID             string         `json:"id"`
	Title          string         `json:"title"`
	Content        string         `json:"content"`
	Category       string         `json:"category"`
	Tags           []string       `json:"tags"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	RelevanceScore float64        `json:"relevance_score"`
}

// ScoredEntry augments a KnowledgeEntry with the relevance computed for one
// query. It exists only in ranking output and is never persisted.
type ScoredEntry struct {
	KnowledgeEntry
	CalculatedRelevance float64 `json:"calculated_relevance"`
}

// Insight is a separately stored AI-generated summary record. Insights are
// surfaced alongside knowledge search results but are not relevance-scored.
type Insight struct {
	ID              string  `json:"id"`
	Title           string  `json:"title"`
	Description     string  `json:"description"`
	InsightType     string  `json:"insight_type"`
	ConfidenceScore float64 `json:"confidence_score"`
}

// Dataset describes one uploaded dataset and its ingestion state.
type Dataset struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Status   string `json:"status"`
	RowCount int    `json:"row_count"`
	FileKey  string `json:"file_key,omitempty"`
}
