package pgx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	pgx5 "github.com/jackc/pgx/v5"

	"github.com/datapeak/backend/internal/util"
	"github.com/datapeak/backend/pkg/common"
	"github.com/datapeak/backend/pkg/logger"
	"github.com/datapeak/backend/pkg/store"
)

const nodeInsertChunk = 250

type nodeProperties struct {
	Field       string `json:"field"`
	Occurrences int    `json:"occurrences"`
}

type edgeProperties struct {
	OccurrenceCount int `json:"occurrence_count"`
}

// SaveGraph replaces the dataset's graph in one transaction: prior nodes and
// edges are deleted, nodes are bulk-inserted returning their generated ids,
// and edges are resolved against those ids before insertion. Rebuilding an
// unchanged dataset therefore yields the same graph instead of duplicating
// it, and a failure anywhere rolls the whole build back.
func (s *Store) SaveGraph(
	ctx context.Context,
	userID string,
	datasetID string,
	entities []common.Entity,
	edges []common.Edge,
) (common.BuildSummary, error) {
	var summary common.BuildSummary

	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return summary, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	internalID, err := s.datasetInternalID(ctx, tx, userID, datasetID)
	if err != nil {
		return summary, err
	}

	writer := &txGraphWriter{tx: tx, userID: userID, datasetID: internalID}
	summary, dropped, err := store.ReplaceGraph(ctx, writer, entities, edges)
	if err != nil {
		return common.BuildSummary{}, err
	}
	if dropped > 0 {
		logger.Warn("[Graph] Dropped edges referencing unpersisted nodes", "dropped", dropped, "dataset_id", datasetID)
	}

	if err := tx.Commit(ctx); err != nil {
		return common.BuildSummary{}, fmt.Errorf("failed to commit graph build: %w", err)
	}
	return summary, nil
}

// txGraphWriter runs one dataset's graph rebuild on an open transaction.
type txGraphWriter struct {
	tx        pgx5.Tx
	userID    string
	datasetID int64
}

func (w *txGraphWriter) DeleteGraph(ctx context.Context) error {
	_, err := w.tx.Exec(ctx, `
		DELETE FROM graph_edges
		WHERE source_node_id IN (SELECT id FROM graph_nodes WHERE dataset_id = $1)
	`, w.datasetID)
	if err != nil {
		return fmt.Errorf("failed to clear previous edges: %w", err)
	}
	_, err = w.tx.Exec(ctx, `DELETE FROM graph_nodes WHERE dataset_id = $1`, w.datasetID)
	if err != nil {
		return fmt.Errorf("failed to clear previous nodes: %w", err)
	}
	return nil
}

func (w *txGraphWriter) InsertNodes(ctx context.Context, entities []common.Entity) (map[common.EntityKey]int64, error) {
	lookup := make(map[common.EntityKey]int64, len(entities))
	err := store.ChunkRange(len(entities), nodeInsertChunk, func(start, end int) error {
		chunk := entities[start:end]
		batch := &pgx5.Batch{}
		for _, entity := range chunk {
			properties, err := json.Marshal(nodeProperties{
				Field:       entity.Key.Field,
				Occurrences: entity.Occurrences,
			})
			if err != nil {
				return err
			}
			batch.Queue(`
				INSERT INTO graph_nodes (user_id, dataset_id, entity_type, entity_name, properties)
				VALUES ($1, $2, $3, $4, $5)
				RETURNING id
			`, w.userID, w.datasetID, entity.Type, util.SanitizePostgresText(entity.Name), properties)
		}

		results := w.tx.SendBatch(ctx, batch)
		for _, entity := range chunk {
			var nodeID int64
			if err := results.QueryRow().Scan(&nodeID); err != nil {
				results.Close()
				return fmt.Errorf("failed to insert node %q: %w", entity.Name, err)
			}
			lookup[entity.Key] = nodeID
		}
		return results.Close()
	})
	if err != nil {
		return nil, err
	}
	return lookup, nil
}

func (w *txGraphWriter) InsertEdges(ctx context.Context, edges []store.ResolvedEdge) error {
	rows := make([][]any, 0, len(edges))
	for _, edge := range edges {
		properties, err := json.Marshal(edgeProperties{OccurrenceCount: edge.OccurrenceCount})
		if err != nil {
			return err
		}
		rows = append(rows, []any{w.userID, edge.SourceID, edge.TargetID, edge.Type, edge.Weight, properties})
	}

	_, err := w.tx.CopyFrom(
		ctx,
		pgx5.Identifier{"graph_edges"},
		[]string{"user_id", "source_node_id", "target_node_id", "relationship_type", "weight", "properties"},
		pgx5.CopyFromRows(rows),
	)
	return err
}

func (s *Store) datasetInternalID(ctx context.Context, tx pgx5.Tx, userID, datasetID string) (int64, error) {
	var internalID int64
	err := tx.QueryRow(ctx, `
		SELECT id FROM datasets WHERE public_id = $1 AND user_id = $2
	`, datasetID, userID).Scan(&internalID)
	if errors.Is(err, pgx5.ErrNoRows) {
		return 0, store.ErrDatasetNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to look up dataset: %w", err)
	}
	return internalID, nil
}
