package routes

import (
	"errors"
	"net/http"

	_ "github.com/go-playground/validator"
	"github.com/labstack/echo/v4"

	"github.com/datapeak/backend/internal/server/middleware"
	"github.com/datapeak/backend/pkg/common"
	"github.com/datapeak/backend/pkg/logger"
	"github.com/datapeak/backend/pkg/search"
	pgstore "github.com/datapeak/backend/pkg/store/pgx"
)

// SearchKnowledgeHandler runs one ranked knowledge search for the caller.
func SearchKnowledgeHandler(c echo.Context) error {
	type searchRequest struct {
		Query string `json:"query" validate:"required"`
	}

	type searchResponse struct {
		Success          bool                 `json:"success"`
		KnowledgeResults []common.ScoredEntry `json:"knowledge_results"`
		InsightResults   []common.Insight     `json:"insight_results"`
		TotalFound       int                  `json:"total_found"`
		SearchTerms      []string             `json:"search_terms"`
	}

	data := new(searchRequest)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Search query is required"})
	}

	user := c.(*middleware.AppContext).User
	if user == nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}

	ctx := c.Request().Context()
	conn := c.(*middleware.AppContext).App.DBConn
	ranker := search.NewRanker(pgstore.New(conn))

	result, err := ranker.Search(ctx, user.UserID, data.Query)
	if err != nil {
		if errors.Is(err, search.ErrEmptyQuery) {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "Search query must not be empty"})
		}
		logger.Error("[Search] Search failed", "err", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
	}

	return c.JSON(http.StatusOK, searchResponse{
		Success:          true,
		KnowledgeResults: result.KnowledgeResults,
		InsightResults:   result.InsightResults,
		TotalFound:       result.TotalFound,
		SearchTerms:      result.SearchTerms,
	})
}
