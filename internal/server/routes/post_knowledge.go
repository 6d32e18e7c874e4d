package routes

import (
	"net/http"

	_ "github.com/go-playground/validator"
	"github.com/labstack/echo/v4"

	"github.com/datapeak/backend/internal/server/middleware"
	"github.com/datapeak/backend/pkg/common"
	"github.com/datapeak/backend/pkg/logger"
	pgstore "github.com/datapeak/backend/pkg/store/pgx"
)

// CreateKnowledgeEntryHandler stores a manual knowledge-base entry for the
// caller. The stored relevance score is clamped to [0, 1].
func CreateKnowledgeEntryHandler(c echo.Context) error {
	type createEntryRequest struct {
		Title          string         `json:"title" validate:"required"`
		Content        string         `json:"content" validate:"required"`
		Category       string         `json:"category"`
		Tags           []string       `json:"tags"`
		Metadata       map[string]any `json:"metadata"`
		RelevanceScore float64        `json:"relevance_score"`
	}

	type createEntryResponse struct {
		Message string                 `json:"message"`
		Entry   *common.KnowledgeEntry `json:"entry,omitempty"`
	}

	data := new(createEntryRequest)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, createEntryResponse{Message: "Invalid request body"})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, createEntryResponse{Message: "Title and content are required"})
	}

	user := c.(*middleware.AppContext).User
	if user == nil {
		return c.JSON(http.StatusUnauthorized, createEntryResponse{Message: "Unauthorized"})
	}

	score := data.RelevanceScore
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}

	ctx := c.Request().Context()
	conn := c.(*middleware.AppContext).App.DBConn
	st := pgstore.New(conn)

	entry, err := st.CreateEntry(ctx, user.UserID, common.KnowledgeEntry{
		Title:          data.Title,
		Content:        data.Content,
		Category:       data.Category,
		Tags:           data.Tags,
		Metadata:       data.Metadata,
		RelevanceScore: score,
	})
	if err != nil {
		logger.Error("Failed to create knowledge entry", "err", err)
		return c.JSON(http.StatusInternalServerError, createEntryResponse{Message: "Internal server error"})
	}

	return c.JSON(http.StatusOK, createEntryResponse{
		Message: "Knowledge entry created",
		Entry:   &entry,
	})
}
