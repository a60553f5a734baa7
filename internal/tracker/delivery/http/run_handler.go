package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"golang-microcap-tracker/internal/tracker/dto"
	"golang-microcap-tracker/internal/tracker/repository"
	"golang-microcap-tracker/internal/tracker/service"
	"golang-microcap-tracker/pkg/logger"
	"golang-microcap-tracker/pkg/utils"

	"github.com/labstack/echo/v4"
)

// RunHandler triggers daily runs over HTTP.
type RunHandler struct {
	runService service.DailyRunService
	logger     *logger.Logger
}

// NewRunHandler creates a new RunHandler.
func NewRunHandler(runService service.DailyRunService, logger *logger.Logger) *RunHandler {
	return &RunHandler{runService: runService, logger: logger}
}

// RegisterRoutes registers the run routes to the Echo group.
func (h *RunHandler) RegisterRoutes(g *echo.Group) {
	g.POST("", h.CreateRun)
}

// CreateRun godoc
// @Summary Execute a daily run
// @Description Runs stop-loss, decision, execution and valuation for one date and persists the result
// @Tags runs
// @Accept  json
// @Produce  json
// @Param   run  body    dto.RunRequest   true    "Run options"
// @Success 200 {object} dto.RunReport
// @Failure 400 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /runs [post]
func (h *RunHandler) CreateRun(c echo.Context) error {
	var req dto.RunRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request payload"})
	}

	opts := dto.RunOptions{
		NoAI:    req.NoAI,
		Weekly:  req.Weekly,
		Model:   req.Model,
		Trigger: dto.TriggerAPI,
	}
	if req.AsOf != "" {
		asOf, err := utils.ParseDate(req.AsOf)
		if err != nil {
			return c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid as_of date, expected YYYY-MM-DD"})
		}
		if asOf.After(utils.TimeNowUTC()) {
			return c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "as_of cannot be in the future"})
		}
		opts.AsOf = asOf
	}

	// a client disconnect must not abort a run half-way through its oracles
	ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request().Context()), 10*time.Minute)
	defer cancel()

	report, err := h.runService.Run(ctx, opts)
	if errors.Is(err, service.ErrRunInProgress) || errors.Is(err, repository.ErrRunAlreadySaved) {
		return c.JSON(http.StatusConflict, dto.ErrorResponse{Error: err.Error()})
	}
	if err != nil {
		h.logger.Error("Run triggered over HTTP failed", logger.ErrorField(err), logger.StringField("as_of", req.AsOf))
		return c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: err.Error()})
	}
	return c.JSON(http.StatusOK, report)
}
