package routes

import (
	"encoding/json"
	"fmt"
	"net/http"

	_ "github.com/go-playground/validator"
	"github.com/labstack/echo/v4"
	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/datapeak/backend/internal/queue"
	"github.com/datapeak/backend/internal/server/middleware"
	"github.com/datapeak/backend/internal/storage"
	"github.com/datapeak/backend/pkg/common"
	"github.com/datapeak/backend/pkg/logger"
	pgstore "github.com/datapeak/backend/pkg/store/pgx"
)

// CreateDatasetHandler accepts a CSV upload (multipart/form-data), stores the
// raw file, and queues the dataset for ingestion by the worker.
func CreateDatasetHandler(c echo.Context) error {
	type createDatasetBody struct {
		Name string `form:"name" validate:"required"`
	}

	type createDatasetResponse struct {
		Message string          `json:"message"`
		Dataset *common.Dataset `json:"dataset,omitempty"`
	}

	data := new(createDatasetBody)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, createDatasetResponse{Message: "Invalid request body"})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, createDatasetResponse{Message: "Invalid request body"})
	}

	upload, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, createDatasetResponse{Message: "No dataset file provided"})
	}

	user := c.(*middleware.AppContext).User
	if user == nil {
		return c.JSON(http.StatusUnauthorized, createDatasetResponse{Message: "Unauthorized"})
	}

	src, err := upload.Open()
	if err != nil {
		return c.JSON(http.StatusBadRequest, createDatasetResponse{Message: "Could not open file"})
	}
	defer src.Close()

	ctx := c.Request().Context()
	s3Client := c.(*middleware.AppContext).App.S3

	fileID, err := gonanoid.New()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, createDatasetResponse{Message: "Internal server error"})
	}
	key, err := storage.PutFile(
		ctx,
		s3Client,
		fmt.Sprintf("datasets/%s", user.UserID),
		upload.Filename,
		fileID,
		src,
	)
	if err != nil {
		logger.Error("Failed to upload dataset file", "err", err)
		return c.JSON(http.StatusInternalServerError, createDatasetResponse{Message: "Internal server error"})
	}

	conn := c.(*middleware.AppContext).App.DBConn
	st := pgstore.New(conn)

	dataset, err := st.CreateDataset(ctx, user.UserID, data.Name, key)
	if err != nil {
		logger.Error("Failed to create dataset", "err", err)
		return c.JSON(http.StatusInternalServerError, createDatasetResponse{Message: "Internal server error"})
	}

	msg, err := json.Marshal(queue.IngestMsg{
		DatasetID: dataset.ID,
		UserID:    user.UserID,
		FileKey:   key,
	})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, createDatasetResponse{Message: "Internal server error"})
	}

	ch := c.(*middleware.AppContext).App.Queue
	if err := queue.PublishFIFO(ch, queue.IngestQueue, msg); err != nil {
		logger.Error("Failed to publish ingest job", "dataset_id", dataset.ID, "err", err)
		return c.JSON(http.StatusInternalServerError, createDatasetResponse{Message: "Internal server error"})
	}

	return c.JSON(http.StatusOK, createDatasetResponse{
		Message: "Dataset created, ingestion queued",
		Dataset: &dataset,
	})
}

// GetDatasetsHandler lists the caller's datasets.
func GetDatasetsHandler(c echo.Context) error {
	user := c.(*middleware.AppContext).User
	if user == nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}

	ctx := c.Request().Context()
	conn := c.(*middleware.AppContext).App.DBConn
	st := pgstore.New(conn)

	datasets, err := st.ListDatasets(ctx, user.UserID)
	if err != nil {
		logger.Error("Failed to list datasets", "err", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
	}

	return c.JSON(http.StatusOK, datasets)
}
