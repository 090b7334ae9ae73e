package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"golang-trade-clearinghouse/internal/ingestion/service"
)

// HealthHandler serves the liveness endpoint.
type HealthHandler struct {
	healthService service.HealthService
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(healthService service.HealthService) *HealthHandler {
	return &HealthHandler{healthService: healthService}
}

// RegisterRoutes registers the health route to the Echo group.
func (h *HealthHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/health", h.GetHealth)
}

// GetHealth godoc
// @Summary Health check
// @Description Reports service status and database connectivity
// @Tags operations
// @Produce  json
// @Success 200 {object} dto.HealthResponse
// @Failure 500 {object} dto.HealthResponse
// @Router /health [get]
func (h *HealthHandler) GetHealth(c echo.Context) error {
	resp, ok := h.healthService.Check(c.Request().Context())
	if !ok {
		return c.JSON(http.StatusInternalServerError, resp)
	}
	return c.JSON(http.StatusOK, resp)
}
