package service

import (
	"context"
	"errors"

	"golang-microcap-tracker/internal/entity"
	"golang-microcap-tracker/internal/tracker/config"
	"golang-microcap-tracker/internal/tracker/dto"
	"golang-microcap-tracker/internal/tracker/repository"
	"golang-microcap-tracker/pkg/logger"

	"github.com/shopspring/decimal"
)

// ReportService is the read side of the store used by the HTTP API.
type ReportService interface {
	GetPortfolio(ctx context.Context) (*dto.PortfolioResponse, error)
	ListTrades(ctx context.Context, filter dto.TradeFilter) ([]entity.Trade, error)
	ListEquity(ctx context.Context) ([]entity.EquityPoint, error)
}

type reportService struct {
	store        repository.PortfolioRepository
	startingCash decimal.Decimal
	logger       *logger.Logger
}

// NewReportService creates a new report service.
func NewReportService(cfg *config.Config, store repository.PortfolioRepository, log *logger.Logger) ReportService {
	return &reportService{
		store:        store,
		startingCash: cfg.Engine.StartingCashDecimal(),
		logger:       log,
	}
}

// GetPortfolio returns the stored portfolio marked at its last known closes.
// Before the first run it reports the starting cash.
func (s *reportService) GetPortfolio(ctx context.Context) (*dto.PortfolioResponse, error) {
	p, err := s.store.Load(ctx)
	if errors.Is(err, repository.ErrPortfolioNotFound) {
		p = entity.NewPortfolio(s.startingCash)
	} else if err != nil {
		s.logger.Error("Failed to load portfolio", logger.ErrorField(err))
		return nil, err
	}

	resp := &dto.PortfolioResponse{
		Cash:     p.Cash,
		Equity:   p.Cash,
		Holdings: make([]dto.HoldingResponse, 0, len(p.Holdings)),
	}
	for _, h := range p.Holdings {
		resp.Holdings = append(resp.Holdings, mapToHoldingResponse(h))
		resp.Equity = resp.Equity.Add(h.MarketValue())
	}
	return resp, nil
}

func (s *reportService) ListTrades(ctx context.Context, filter dto.TradeFilter) ([]entity.Trade, error) {
	trades, err := s.store.ListTrades(ctx, filter)
	if err != nil {
		s.logger.Error("Failed to list trades", logger.ErrorField(err), logger.StringField("symbol", filter.Symbol))
		return nil, err
	}
	return trades, nil
}

func (s *reportService) ListEquity(ctx context.Context) ([]entity.EquityPoint, error) {
	points, err := s.store.ListEquity(ctx)
	if err != nil {
		s.logger.Error("Failed to list equity curve", logger.ErrorField(err))
		return nil, err
	}
	return points, nil
}

func mapToHoldingResponse(h entity.Holding) dto.HoldingResponse {
	resp := dto.HoldingResponse{
		Symbol:          h.Symbol,
		Shares:          h.Shares,
		AvgPrice:        h.AvgPrice,
		StopLossPercent: h.StopLossPercent,
		LastClose:       h.LastClose,
		MarketValue:     h.MarketValue(),
		UnrealizedPnL:   h.MarketValue().Sub(h.CostBasis()),
	}
	if h.HasStopLoss() {
		stop := h.StopPrice()
		resp.StopPrice = &stop
	}
	return resp
}
