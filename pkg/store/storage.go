package store

import (
	"context"
	"errors"

	"github.com/datapeak/backend/pkg/common"
)

// ErrDatasetNotFound is returned when a dataset id does not exist or is not
// owned by the requesting user.
var ErrDatasetNotFound = errors.New("dataset not found")

// GraphStorage persists knowledge graphs against the relational store. It is
// the sole writer of graph data; a build owns its dataset's nodes and edges.
type GraphStorage interface {
	// FetchRecords returns up to limit records of the user's dataset in
	// ingestion order.
	FetchRecords(ctx context.Context, userID, datasetID string, limit int) ([]common.Record, error)

	// SaveGraph replaces the dataset's graph with the given entities and
	// edges in one transaction. Node insertion completes and yields
	// generated identifiers before edge resolution; edges referencing an
	// unpersisted node are dropped rather than failing the build.
	SaveGraph(ctx context.Context, userID, datasetID string, entities []common.Entity, edges []common.Edge) (common.BuildSummary, error)
}

// KnowledgeStorage serves the knowledge-base search path and manual entry
// creation.
type KnowledgeStorage interface {
	FindEntriesByToken(ctx context.Context, userID, token string, limit int) ([]common.KnowledgeEntry, error)
	FindInsights(ctx context.Context, userID, query string, limit int) ([]common.Insight, error)
	CreateEntry(ctx context.Context, userID string, entry common.KnowledgeEntry) (common.KnowledgeEntry, error)
}

// DatasetStorage manages datasets and their ingested records.
type DatasetStorage interface {
	CreateDataset(ctx context.Context, userID, name, fileKey string) (common.Dataset, error)
	ListDatasets(ctx context.Context, userID string) ([]common.Dataset, error)
	InsertRecords(ctx context.Context, datasetID string, records []common.Record) (int, error)
	SetDatasetStatus(ctx context.Context, datasetID, status string, rowCount int) error
}

// Storage is the full store surface backed by one database.
type Storage interface {
	GraphStorage
	KnowledgeStorage
	DatasetStorage
}
