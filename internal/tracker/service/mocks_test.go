package service

import (
	"context"
	"time"

	"golang-microcap-tracker/internal/engine"
	"golang-microcap-tracker/internal/entity"
	"golang-microcap-tracker/internal/tracker/config"
	"golang-microcap-tracker/internal/tracker/dto"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

type MockPortfolioRepository struct {
	mock.Mock
}

func (m *MockPortfolioRepository) Load(ctx context.Context) (entity.Portfolio, error) {
	args := m.Called(ctx)
	return args.Get(0).(entity.Portfolio), args.Error(1)
}

func (m *MockPortfolioRepository) SaveRun(ctx context.Context, run entity.RunRecord) error {
	args := m.Called(ctx, run)
	return args.Error(0)
}

func (m *MockPortfolioRepository) ListTrades(ctx context.Context, filter dto.TradeFilter) ([]entity.Trade, error) {
	args := m.Called(ctx, filter)
	trades, _ := args.Get(0).([]entity.Trade)
	return trades, args.Error(1)
}

func (m *MockPortfolioRepository) ListEquity(ctx context.Context) ([]entity.EquityPoint, error) {
	args := m.Called(ctx)
	points, _ := args.Get(0).([]entity.EquityPoint)
	return points, args.Error(1)
}

type MockDecisionRepository struct {
	mock.Mock
}

func (m *MockDecisionRepository) Propose(ctx context.Context, req dto.DecisionRequest) (entity.OrderSet, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(entity.OrderSet), args.Error(1)
}

func (m *MockDecisionRepository) Provider() string {
	return "openai"
}

func (m *MockDecisionRepository) Model(override string) string {
	if override != "" {
		return override
	}
	return "gpt-4o-mini"
}

type MockNewsRepository struct {
	mock.Mock
}

func (m *MockNewsRepository) Headlines(ctx context.Context) ([]dto.Headline, error) {
	args := m.Called(ctx)
	headlines, _ := args.Get(0).([]dto.Headline)
	return headlines, args.Error(1)
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) SendMessage(text string) error {
	args := m.Called(text)
	return args.Error(0)
}

type MockDailyRunService struct {
	mock.Mock
}

func (m *MockDailyRunService) Run(ctx context.Context, opts dto.RunOptions) (*dto.RunReport, error) {
	args := m.Called(ctx, opts)
	report, _ := args.Get(0).(*dto.RunReport)
	return report, args.Error(1)
}

// staticPrices is a price oracle backed by a map; unknown symbols are zero.
func staticPrices(prices map[string]string) engine.PriceOracleFunc {
	return func(_ context.Context, symbol string, _ time.Time) (decimal.Decimal, error) {
		if p, ok := prices[symbol]; ok {
			return decimal.RequireFromString(p), nil
		}
		return decimal.Zero, nil
	}
}

func testConfig() *config.Config {
	return &config.Config{
		AI: config.AI{Enabled: true, Provider: "openai"},
		Engine: config.Engine{
			ZeroPricePolicy:      "accept",
			MicroCapThresholdUsd: 300_000_000,
			StartingCash:         100,
		},
		Scheduler: config.Scheduler{
			Enabled:             true,
			Cron:                "0 6 * * 2-6",
			TimeZone:            "America/New_York",
			DeepResearchWeekday: "friday",
		},
	}
}

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func dp(s string) *decimal.Decimal {
	v := d(s)
	return &v
}
