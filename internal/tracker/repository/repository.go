package repository

import (
	"context"
	"errors"
	"time"

	"golang-microcap-tracker/internal/entity"
	"golang-microcap-tracker/internal/tracker/dto"

	"github.com/shopspring/decimal"
)

var (
	// ErrPortfolioNotFound is returned by Load when nothing has been saved yet.
	ErrPortfolioNotFound = errors.New("portfolio not found")
	// ErrPriceNotFound is returned when a provider has no record of the
	// symbol on the requested session.
	ErrPriceNotFound = errors.New("price not found")
	// ErrRunAlreadySaved is returned by SaveRun for a run dated on or before
	// the latest saved equity point.
	ErrRunAlreadySaved = errors.New("a run is already saved for this date or a later one")
	// ErrInvalidOrderSet is returned when a decision provider answers with
	// content that is not a valid order set.
	ErrInvalidOrderSet = errors.New("invalid order set")
)

// PriceRepository answers last-close questions. A zero price means unknown.
type PriceRepository interface {
	LastClose(ctx context.Context, symbol string, asOf time.Time) (decimal.Decimal, error)
}

// DecisionRepository proposes the orders of a run.
type DecisionRepository interface {
	Propose(ctx context.Context, req dto.DecisionRequest) (entity.OrderSet, error)
	Provider() string
	// Model returns the model a request with the given override will use.
	Model(override string) string
}

// NewsRepository supplies recent headlines used as decision context.
type NewsRepository interface {
	Headlines(ctx context.Context) ([]dto.Headline, error)
}

// PortfolioRepository persists the portfolio, the append-only trade log and
// the equity curve.
type PortfolioRepository interface {
	// Load returns ErrPortfolioNotFound when no portfolio was ever saved.
	Load(ctx context.Context) (entity.Portfolio, error)
	// SaveRun persists everything a run produced as one unit. It returns
	// ErrRunAlreadySaved when the run's date is not after the latest saved
	// equity point.
	SaveRun(ctx context.Context, run entity.RunRecord) error
	ListTrades(ctx context.Context, filter dto.TradeFilter) ([]entity.Trade, error)
	ListEquity(ctx context.Context) ([]entity.EquityPoint, error)
}

func matchTrade(t entity.Trade, f dto.TradeFilter) bool {
	if f.Symbol != "" && !equalSymbol(t.Symbol, f.Symbol) {
		return false
	}
	if f.From != nil && t.Date.Before(*f.From) {
		return false
	}
	if f.To != nil && t.Date.After(*f.To) {
		return false
	}
	return true
}

func equalSymbol(a, b string) bool {
	return entity.NormalizeSymbol(a) == entity.NormalizeSymbol(b)
}
