package httpserver

import (
	"net/http"
	"strconv"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/service/search"
	"github.com/Skotchmaster/storefront/internal/util"
)

type SearchHandler struct {
	ES    *elasticsearch.Client
	Index string
}

func (h *SearchHandler) Search(c echo.Context) error {
	query := c.QueryParam("q")
	if query == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "q is required")
	}
	page, _ := strconv.Atoi(c.QueryParam("page"))
	size, _ := strconv.Atoi(c.QueryParam("size"))
	from, limit := util.Calculate(page, size)

	total, items, err := search.Products(c.Request().Context(), h.ES, h.Index, query, from, limit)
	if err != nil {
		logging.FromContext(c.Request().Context()).Error("search_error", "error", err)
		return echo.NewHTTPError(http.StatusBadGateway, "search unavailable")
	}

	return c.JSON(http.StatusOK, map[string]any{
		"items": items,
		"meta": map[string]any{
			"total":  total,
			"offset": from,
			"limit":  limit,
		},
	})
}
