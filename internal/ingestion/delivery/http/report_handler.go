package http

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"golang-trade-clearinghouse/internal/ingestion/service"
	"golang-trade-clearinghouse/pkg/logger"
	"golang-trade-clearinghouse/pkg/utils"
)

// ReportHandler handles HTTP requests for the trade reports.
type ReportHandler struct {
	reportService service.ReportService
	logger        *logger.Logger
}

// NewReportHandler creates a new ReportHandler.
func NewReportHandler(reportService service.ReportService, logger *logger.Logger) *ReportHandler {
	return &ReportHandler{reportService: reportService, logger: logger}
}

// RegisterRoutes registers the report routes to the Echo group.
func (h *ReportHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/blotter", h.GetBlotter)
	g.GET("/positions", h.GetPositions)
	g.GET("/alarms", h.GetAlarms)
}

// queryDate reads the required ?date=YYYY-MM-DD parameter. On failure it has already written the 400.
func queryDate(c echo.Context) (time.Time, bool, error) {
	raw := c.QueryParam("date")
	if raw == "" {
		return time.Time{}, false, c.JSON(http.StatusBadRequest, echo.Map{"error": "Missing required parameter: date"})
	}
	date, err := utils.ParseDate(raw)
	if err != nil {
		return time.Time{}, false, c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid date format. Use YYYY-MM-DD"})
	}
	return date, true, nil
}

// GetBlotter godoc
// @Summary Get the trade blotter
// @Description List every trade of a trade date with its notional value
// @Tags reports
// @Produce  json
// @Param   date  query    string true    "Trade date (YYYY-MM-DD)"
// @Success 200 {array} dto.BlotterItem
// @Failure 400 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /blotter [get]
func (h *ReportHandler) GetBlotter(c echo.Context) error {
	date, ok, err := queryDate(c)
	if !ok {
		return err
	}

	items, err := h.reportService.Blotter(c.Request().Context(), date)
	if err != nil {
		h.logger.Error("Failed to get blotter", logger.ErrorField(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, items)
}

// GetPositions godoc
// @Summary Get account positions
// @Description Share of each ticker in each account's notional value for a trade date
// @Tags reports
// @Produce  json
// @Param   date  query    string true    "Trade date (YYYY-MM-DD)"
// @Success 200 {object} dto.PositionsResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /positions [get]
func (h *ReportHandler) GetPositions(c echo.Context) error {
	date, ok, err := queryDate(c)
	if !ok {
		return err
	}

	positions, err := h.reportService.Positions(c.Request().Context(), date)
	if err != nil {
		h.logger.Error("Failed to get positions", logger.ErrorField(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, positions)
}

// GetAlarms godoc
// @Summary Get compliance alarms
// @Description List compliance alerts raised on trades of a trade date
// @Tags reports
// @Produce  json
// @Param   date  query    string true    "Trade date (YYYY-MM-DD)"
// @Success 200 {array} dto.AlarmItem
// @Failure 400 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /alarms [get]
func (h *ReportHandler) GetAlarms(c echo.Context) error {
	date, ok, err := queryDate(c)
	if !ok {
		return err
	}

	alarms, err := h.reportService.Alarms(c.Request().Context(), date)
	if err != nil {
		h.logger.Error("Failed to get alarms", logger.ErrorField(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, alarms)
}
