package fiber

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"chart-engine-service/internal/charts/core/usecase"

	"github.com/gofiber/fiber/v2"
)

type GetChartUseCase interface {
	Execute(ctx context.Context, in usecase.GetChartInput) (*usecase.GetChartOutput, error)
}

type ResyncChartsUseCase interface {
	Execute(ctx context.Context, names ...string) (*usecase.ResyncOutput, error)
}

type ChartHandler struct {
	get    GetChartUseCase
	resync ResyncChartsUseCase
}

func NewChartHandler(get GetChartUseCase, resync ResyncChartsUseCase) *ChartHandler {
	return &ChartHandler{get: get, resync: resync}
}

// GetChart godoc
// @Summary Read a chart series
// @Description Returns one value per column for each of the last `limit` periods, oldest first. Missing periods read as 0.
// @Tags Charts
// @Produce json
// @Param chart path string true "Chart name"
// @Param span query string false "Span: hour | day" default(day)
// @Param limit query int false "Number of periods (1-500)" default(30)
// @Param offset query int false "Unix time inside the last period; now when omitted"
// @Param group query string false "Group key for grouped charts"
// @Success 200 {object} ChartResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /charts/{chart} [get]
func (h *ChartHandler) GetChart(c *fiber.Ctx) error {
	limit := usecase.DefaultLimit
	if s := c.Query("limit", ""); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil {
			return c.Status(http.StatusBadRequest).JSON(ErrorResponse{
				Error:   "invalid_query",
				Message: "invalid 'limit' parameter",
			})
		}
		limit = v
	}

	var offset int64
	if s := c.Query("offset", ""); s != "" {
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return c.Status(http.StatusBadRequest).JSON(ErrorResponse{
				Error:   "invalid_query",
				Message: "invalid 'offset' parameter",
			})
		}
		offset = v
	}

	in := usecase.GetChartInput{
		Chart:  c.Params("chart"),
		Span:   c.Query("span", "day"),
		Limit:  limit,
		Offset: offset,
		Group:  c.Query("group", ""),
	}

	res, err := h.get.Execute(c.Context(), in)
	if err != nil {
		switch {
		case errors.Is(err, usecase.ErrUnknownChart):
			return c.Status(http.StatusNotFound).JSON(ErrorResponse{
				Error:   "unknown_chart",
				Message: err.Error(),
			})
		case errors.Is(err, usecase.ErrInvalidSpan),
			errors.Is(err, usecase.ErrInvalidLimit),
			errors.Is(err, usecase.ErrInvalidOffset),
			errors.Is(err, usecase.ErrInvalidGroup):
			return c.Status(http.StatusBadRequest).JSON(ErrorResponse{
				Error:   "invalid_query",
				Message: err.Error(),
			})
		default:
			return c.Status(http.StatusInternalServerError).JSON(ErrorResponse{
				Error: "internal_server_error",
			})
		}
	}

	return c.Status(http.StatusOK).JSON(ChartResponse{
		Chart:  res.Chart,
		Span:   string(res.Span),
		Series: res.Series,
	})
}

// Resync godoc
// @Summary Resync charts
// @Description Recomputes the current buckets of the named charts from the primary tables. All charts when the list is empty.
// @Tags Charts
// @Accept json
// @Produce json
// @Param body body ResyncRequest false "Charts to resync"
// @Success 200 {object} ResyncResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /admin/charts/resync [post]
func (h *ChartHandler) Resync(c *fiber.Ctx) error {
	var req ResyncRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(http.StatusBadRequest).JSON(ErrorResponse{
				Error:   "invalid_json",
				Message: "Request body is not valid JSON",
			})
		}
	}

	res, err := h.resync.Execute(c.Context(), req.Charts...)
	if err != nil {
		if errors.Is(err, usecase.ErrUnknownChart) {
			return c.Status(http.StatusNotFound).JSON(ErrorResponse{
				Error:   "unknown_chart",
				Message: err.Error(),
			})
		}
		return c.Status(http.StatusInternalServerError).JSON(ErrorResponse{
			Error: "internal_server_error",
		})
	}

	return c.Status(http.StatusOK).JSON(ResyncResponse{
		Resynced: res.Resynced,
		Failed:   res.Failed,
	})
}
