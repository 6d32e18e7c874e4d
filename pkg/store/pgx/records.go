package pgx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	pgx5 "github.com/jackc/pgx/v5"
	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/datapeak/backend/internal/util"
	"github.com/datapeak/backend/pkg/common"
	"github.com/datapeak/backend/pkg/store"
)

const recordInsertChunk = 500

// FetchRecords returns up to limit records of the user's dataset in ingestion
// order.
func (s *Store) FetchRecords(ctx context.Context, userID, datasetID string, limit int) ([]common.Record, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT r.data
		FROM dataset_records r
		JOIN datasets d ON d.id = r.dataset_id
		WHERE d.public_id = $1 AND d.user_id = $2
		ORDER BY r.id
		LIMIT $3
	`, datasetID, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	records := make([]common.Record, 0)
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var record common.Record
		if err := json.Unmarshal(data, &record); err != nil {
			return nil, fmt.Errorf("failed to decode record: %w", err)
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// CreateDataset inserts a dataset row in pending state and returns it with a
// generated public id.
func (s *Store) CreateDataset(ctx context.Context, userID, name, fileKey string) (common.Dataset, error) {
	publicID, err := gonanoid.New()
	if err != nil {
		return common.Dataset{}, fmt.Errorf("failed to generate dataset id: %w", err)
	}

	dataset := common.Dataset{
		ID:      publicID,
		Name:    util.SanitizePostgresText(name),
		Status:  "pending",
		FileKey: fileKey,
	}
	_, err = s.conn.Exec(ctx, `
		INSERT INTO datasets (public_id, user_id, name, status, file_key, row_count)
		VALUES ($1, $2, $3, $4, $5, 0)
	`, dataset.ID, userID, dataset.Name, dataset.Status, dataset.FileKey)
	if err != nil {
		return common.Dataset{}, fmt.Errorf("failed to create dataset: %w", err)
	}
	return dataset, nil
}

// ListDatasets returns all datasets of the user, newest first.
func (s *Store) ListDatasets(ctx context.Context, userID string) ([]common.Dataset, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT public_id, name, status, row_count
		FROM datasets
		WHERE user_id = $1
		ORDER BY id DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list datasets: %w", err)
	}
	defer rows.Close()

	datasets := make([]common.Dataset, 0)
	for rows.Next() {
		var d common.Dataset
		if err := rows.Scan(&d.ID, &d.Name, &d.Status, &d.RowCount); err != nil {
			return nil, err
		}
		datasets = append(datasets, d)
	}
	return datasets, rows.Err()
}

// InsertRecords replaces the records of a dataset in one transaction: rows
// left behind by a previous attempt are deleted before the chunked insert, so
// retried or redelivered ingestions never duplicate rows.
func (s *Store) InsertRecords(ctx context.Context, datasetID string, records []common.Record) (int, error) {
	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var internalID int64
	err = tx.QueryRow(ctx, `
		SELECT id FROM datasets WHERE public_id = $1
	`, datasetID).Scan(&internalID)
	if err != nil {
		if errors.Is(err, pgx5.ErrNoRows) {
			return 0, store.ErrDatasetNotFound
		}
		return 0, fmt.Errorf("failed to look up dataset: %w", err)
	}

	writer := &txRecordWriter{tx: tx, datasetID: internalID}
	inserted, err := store.ReplaceRecords(ctx, writer, records, recordInsertChunk)
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit record insert: %w", err)
	}
	return inserted, nil
}

// txRecordWriter runs one dataset's record ingestion on an open transaction.
type txRecordWriter struct {
	tx        pgx5.Tx
	datasetID int64
}

func (w *txRecordWriter) DeleteRecords(ctx context.Context) error {
	_, err := w.tx.Exec(ctx, `DELETE FROM dataset_records WHERE dataset_id = $1`, w.datasetID)
	return err
}

func (w *txRecordWriter) InsertRecordChunk(ctx context.Context, records []common.Record) (int, error) {
	rows := make([][]any, 0, len(records))
	for _, record := range records {
		data, err := json.Marshal(record)
		if err != nil {
			return 0, err
		}
		rows = append(rows, []any{w.datasetID, data})
	}

	count, err := w.tx.CopyFrom(
		ctx,
		pgx5.Identifier{"dataset_records"},
		[]string{"dataset_id", "data"},
		pgx5.CopyFromRows(rows),
	)
	return int(count), err
}

// SetDatasetStatus updates the ingestion state and row count of a dataset.
func (s *Store) SetDatasetStatus(ctx context.Context, datasetID, status string, rowCount int) error {
	tag, err := s.conn.Exec(ctx, `
		UPDATE datasets SET status = $2, row_count = $3 WHERE public_id = $1
	`, datasetID, status, rowCount)
	if err != nil {
		return fmt.Errorf("failed to update dataset status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrDatasetNotFound
	}
	return nil
}
