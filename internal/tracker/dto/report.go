package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// TradeFilter narrows the trade log. Zero values match everything.
type TradeFilter struct {
	Symbol string
	From   *time.Time
	To     *time.Time
}

// HoldingResponse is a holding as shown by the API.
type HoldingResponse struct {
	Symbol          string           `json:"symbol"`
	Shares          int64            `json:"shares"`
	AvgPrice        decimal.Decimal  `json:"avg_price"`
	StopLossPercent *decimal.Decimal `json:"stop_loss_percent,omitempty"`
	StopPrice       *decimal.Decimal `json:"stop_price,omitempty"`
	LastClose       decimal.Decimal  `json:"last_close"`
	MarketValue     decimal.Decimal  `json:"market_value"`
	UnrealizedPnL   decimal.Decimal  `json:"unrealized_pnl"`
}

// PortfolioResponse is the body of GET /api/v1/portfolio. Equity is marked at
// the stored last closes; no price is fetched.
type PortfolioResponse struct {
	Cash     decimal.Decimal   `json:"cash"`
	Equity   decimal.Decimal   `json:"equity"`
	Holdings []HoldingResponse `json:"holdings"`
}

// ErrorResponse represents a generic error response body.
type ErrorResponse struct {
	Error string `json:"error"`
}
