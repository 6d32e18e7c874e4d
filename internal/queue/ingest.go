package queue

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/datapeak/backend/internal/storage"
	"github.com/datapeak/backend/internal/util"
	csvloader "github.com/datapeak/backend/pkg/loader/csv"
	"github.com/datapeak/backend/pkg/logger"
	pgstore "github.com/datapeak/backend/pkg/store/pgx"
)

// IngestMsg is the payload published to the ingest queue when a dataset CSV
// has been uploaded.
type IngestMsg struct {
	DatasetID string `json:"dataset_id"`
	UserID    string `json:"user_id"`
	FileKey   string `json:"file_key"`
}

// ProcessIngest downloads a dataset's CSV from S3, parses its rows into
// records, and bulk-inserts them. The dataset ends up in ready state with its
// row count, or in failed state when parsing or persistence fails.
func ProcessIngest(
	ctx context.Context,
	s3Client *awss3.Client,
	conn *pgxpool.Pool,
	msg string,
) error {
	data := new(IngestMsg)
	if err := json.Unmarshal([]byte(msg), data); err != nil {
		return fmt.Errorf("failed to decode ingest message: %w", err)
	}

	st := pgstore.New(conn)

	file, err := storage.GetFile(ctx, s3Client, data.FileKey)
	if err != nil {
		markFailed(ctx, st, data.DatasetID)
		return fmt.Errorf("failed to fetch dataset file: %w", err)
	}

	records, err := csvloader.ParseRecords(bytes.NewReader(file))
	if err != nil {
		markFailed(ctx, st, data.DatasetID)
		return fmt.Errorf("failed to parse dataset file: %w", err)
	}

	inserted, err := util.RetryWithContext(ctx, 3, func(ctx context.Context) (int, error) {
		return st.InsertRecords(ctx, data.DatasetID, records)
	})
	if err != nil {
		markFailed(ctx, st, data.DatasetID)
		return fmt.Errorf("failed to insert records: %w", err)
	}

	if err := st.SetDatasetStatus(ctx, data.DatasetID, "ready", inserted); err != nil {
		return err
	}

	logger.Info("[Ingest] Dataset ingested", "dataset_id", data.DatasetID, "rows", inserted)
	return nil
}

func markFailed(ctx context.Context, st *pgstore.Store, datasetID string) {
	err := util.RetryErrWithContext(ctx, 3, func(ctx context.Context) error {
		return st.SetDatasetStatus(ctx, datasetID, "failed", 0)
	})
	if err != nil {
		logger.Error("[Ingest] Failed to mark dataset as failed", "dataset_id", datasetID, "err", err)
	}
}
