package http

import (
	"net/http"
	"time"

	"golang-microcap-tracker/internal/tracker/dto"
	"golang-microcap-tracker/internal/tracker/service"
	"golang-microcap-tracker/pkg/logger"
	"golang-microcap-tracker/pkg/utils"

	"github.com/labstack/echo/v4"
)

// PortfolioHandler serves the read side: portfolio, trade log and equity curve.
type PortfolioHandler struct {
	reportService service.ReportService
	logger        *logger.Logger
}

// NewPortfolioHandler creates a new PortfolioHandler.
func NewPortfolioHandler(reportService service.ReportService, logger *logger.Logger) *PortfolioHandler {
	return &PortfolioHandler{reportService: reportService, logger: logger}
}

// RegisterRoutes registers the read routes to the Echo group.
func (h *PortfolioHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/portfolio", h.GetPortfolio)
	g.GET("/trades", h.ListTrades)
	g.GET("/equity", h.ListEquity)
}

// GetPortfolio godoc
// @Summary Get the current portfolio
// @Tags portfolio
// @Produce  json
// @Success 200 {object} dto.PortfolioResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /portfolio [get]
func (h *PortfolioHandler) GetPortfolio(c echo.Context) error {
	resp, err := h.reportService.GetPortfolio(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to load portfolio"})
	}
	return c.JSON(http.StatusOK, resp)
}

// ListTrades godoc
// @Summary List trades
// @Description Trade log, optionally filtered by symbol and an inclusive date range
// @Tags portfolio
// @Produce  json
// @Param   symbol query string false "Ticker"
// @Param   from   query string false "YYYY-MM-DD"
// @Param   to     query string false "YYYY-MM-DD"
// @Success 200 {array} entity.Trade
// @Failure 400 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /trades [get]
func (h *PortfolioHandler) ListTrades(c echo.Context) error {
	filter := dto.TradeFilter{Symbol: c.QueryParam("symbol")}

	var err error
	if filter.From, err = queryDate(c, "from"); err != nil {
		return c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid from date, expected YYYY-MM-DD"})
	}
	if filter.To, err = queryDate(c, "to"); err != nil {
		return c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid to date, expected YYYY-MM-DD"})
	}

	trades, err := h.reportService.ListTrades(c.Request().Context(), filter)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to list trades"})
	}
	return c.JSON(http.StatusOK, trades)
}

// ListEquity godoc
// @Summary Get the equity curve
// @Tags portfolio
// @Produce  json
// @Success 200 {array} entity.EquityPoint
// @Failure 500 {object} dto.ErrorResponse
// @Router /equity [get]
func (h *PortfolioHandler) ListEquity(c echo.Context) error {
	points, err := h.reportService.ListEquity(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to load equity curve"})
	}
	return c.JSON(http.StatusOK, points)
}

func queryDate(c echo.Context, name string) (*time.Time, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return nil, nil
	}
	t, err := utils.ParseDate(raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
