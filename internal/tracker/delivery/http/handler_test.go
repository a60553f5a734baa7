package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"golang-microcap-tracker/internal/entity"
	"golang-microcap-tracker/internal/tracker/dto"
	"golang-microcap-tracker/internal/tracker/repository"
	"golang-microcap-tracker/internal/tracker/service"
	"golang-microcap-tracker/pkg/logger"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockReportService struct {
	mock.Mock
}

func (m *MockReportService) GetPortfolio(ctx context.Context) (*dto.PortfolioResponse, error) {
	args := m.Called(ctx)
	resp, _ := args.Get(0).(*dto.PortfolioResponse)
	return resp, args.Error(1)
}

func (m *MockReportService) ListTrades(ctx context.Context, filter dto.TradeFilter) ([]entity.Trade, error) {
	args := m.Called(ctx, filter)
	trades, _ := args.Get(0).([]entity.Trade)
	return trades, args.Error(1)
}

func (m *MockReportService) ListEquity(ctx context.Context) ([]entity.EquityPoint, error) {
	args := m.Called(ctx)
	points, _ := args.Get(0).([]entity.EquityPoint)
	return points, args.Error(1)
}

type MockDailyRunService struct {
	mock.Mock
}

func (m *MockDailyRunService) Run(ctx context.Context, opts dto.RunOptions) (*dto.RunReport, error) {
	args := m.Called(ctx, opts)
	report, _ := args.Get(0).(*dto.RunReport)
	return report, args.Error(1)
}

func serve(e *echo.Echo, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestPortfolioHandler_GetPortfolio(t *testing.T) {
	reports := new(MockReportService)
	reports.On("GetPortfolio", mock.Anything).Return(&dto.PortfolioResponse{
		Cash:     decimal.RequireFromString("12.5"),
		Equity:   decimal.RequireFromString("20"),
		Holdings: []dto.HoldingResponse{{Symbol: "AAA", Shares: 3}},
	}, nil)

	e := NewRouter(reports, new(MockDailyRunService), logger.NewNop())
	rec := serve(e, http.MethodGet, "/api/v1/portfolio", "")

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "12.5", body["cash"])
	assert.Len(t, body["holdings"], 1)
}

func TestPortfolioHandler_ListTrades(t *testing.T) {
	t.Run("filters are parsed", func(t *testing.T) {
		reports := new(MockReportService)
		reports.On("ListTrades", mock.Anything, mock.MatchedBy(func(f dto.TradeFilter) bool {
			return f.Symbol == "abc" &&
				f.From != nil && f.From.Equal(time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)) &&
				f.To == nil
		})).Return([]entity.Trade{{Symbol: "ABC", Side: entity.TradeSideBuy, Quantity: 2}}, nil)

		e := NewRouter(reports, new(MockDailyRunService), logger.NewNop())
		rec := serve(e, http.MethodGet, "/api/v1/trades?symbol=abc&from=2025-03-01", "")

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"symbol":"ABC"`)
		reports.AssertExpectations(t)
	})

	t.Run("bad date", func(t *testing.T) {
		reports := new(MockReportService)
		e := NewRouter(reports, new(MockDailyRunService), logger.NewNop())
		rec := serve(e, http.MethodGet, "/api/v1/trades?to=03/01/2025", "")

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		reports.AssertNotCalled(t, "ListTrades", mock.Anything, mock.Anything)
	})
}

func TestPortfolioHandler_ListEquityError(t *testing.T) {
	reports := new(MockReportService)
	reports.On("ListEquity", mock.Anything).Return(nil, errors.New("locked"))

	e := NewRouter(reports, new(MockDailyRunService), logger.NewNop())
	rec := serve(e, http.MethodGet, "/api/v1/equity", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestRunHandler_CreateRun(t *testing.T) {
	t.Run("runs with options", func(t *testing.T) {
		runs := new(MockDailyRunService)
		runs.On("Run", mock.Anything, mock.MatchedBy(func(o dto.RunOptions) bool {
			return o.AsOf.Equal(time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)) &&
				o.Weekly && o.NoAI && o.Model == "gpt-4.1" && o.Trigger == dto.TriggerAPI
		})).Return(&dto.RunReport{RunID: "run-1", Equity: decimal.NewFromInt(101)}, nil)

		e := NewRouter(new(MockReportService), runs, logger.NewNop())
		rec := serve(e, http.MethodPost, "/api/v1/runs", `{"as_of":"2025-03-14","no_ai":true,"weekly":true,"model":"gpt-4.1"}`)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"run_id":"run-1"`)
		runs.AssertExpectations(t)
	})

	t.Run("run in progress", func(t *testing.T) {
		runs := new(MockDailyRunService)
		runs.On("Run", mock.Anything, mock.Anything).Return(nil, service.ErrRunInProgress)

		e := NewRouter(new(MockReportService), runs, logger.NewNop())
		rec := serve(e, http.MethodPost, "/api/v1/runs", `{}`)
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("date already saved", func(t *testing.T) {
		runs := new(MockDailyRunService)
		runs.On("Run", mock.Anything, mock.Anything).Return(nil, fmt.Errorf("failed to save run: %w", repository.ErrRunAlreadySaved))

		e := NewRouter(new(MockReportService), runs, logger.NewNop())
		rec := serve(e, http.MethodPost, "/api/v1/runs", `{"as_of":"2025-03-14"}`)
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("run failure", func(t *testing.T) {
		runs := new(MockDailyRunService)
		runs.On("Run", mock.Anything, mock.Anything).Return(nil, errors.New("price oracle returned a zero price"))

		e := NewRouter(new(MockReportService), runs, logger.NewNop())
		rec := serve(e, http.MethodPost, "/api/v1/runs", `{}`)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Contains(t, rec.Body.String(), "zero price")
	})

	t.Run("invalid dates", func(t *testing.T) {
		runs := new(MockDailyRunService)
		e := NewRouter(new(MockReportService), runs, logger.NewNop())

		rec := serve(e, http.MethodPost, "/api/v1/runs", `{"as_of":"14.03.2025"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		rec = serve(e, http.MethodPost, "/api/v1/runs", `{"as_of":"2999-01-01"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		runs.AssertNotCalled(t, "Run", mock.Anything, mock.Anything)
	})
}

func TestHealth(t *testing.T) {
	e := NewRouter(new(MockReportService), new(MockDailyRunService), logger.NewNop())
	rec := serve(e, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}
