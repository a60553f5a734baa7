package entity

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Holding is one open position in a single symbol.
type Holding struct {
	ID              uint             `gorm:"primaryKey" json:"-"`
	Symbol          string           `gorm:"uniqueIndex;not null" json:"symbol"`
	Shares          int64            `gorm:"not null" json:"shares"`
	AvgPrice        decimal.Decimal  `gorm:"type:varchar(64);not null" json:"avg_price"`
	StopLossPercent *decimal.Decimal `gorm:"type:varchar(64)" json:"stop_loss_percent,omitempty"`
	LastClose       decimal.Decimal  `gorm:"type:varchar(64);not null" json:"last_close"`
}

func (Holding) TableName() string {
	return "holdings"
}

// HasStopLoss reports whether the holding carries an automatic stop.
func (h Holding) HasStopLoss() bool {
	return h.StopLossPercent != nil
}

// StopPrice returns avgPrice * (1 - stopLossPercent/100).
func (h Holding) StopPrice() decimal.Decimal {
	if h.StopLossPercent == nil {
		return decimal.Zero
	}
	factor := decimal.NewFromInt(1).Sub(h.StopLossPercent.Div(decimal.NewFromInt(100)))
	return h.AvgPrice.Mul(factor)
}

// MarketValue returns shares * lastClose.
func (h Holding) MarketValue() decimal.Decimal {
	return h.LastClose.Mul(decimal.NewFromInt(h.Shares))
}

// CostBasis returns shares * avgPrice.
func (h Holding) CostBasis() decimal.Decimal {
	return h.AvgPrice.Mul(decimal.NewFromInt(h.Shares))
}

// Clone returns a copy that shares no pointers with h.
func (h Holding) Clone() Holding {
	c := h
	if h.StopLossPercent != nil {
		sl := *h.StopLossPercent
		c.StopLossPercent = &sl
	}
	return c
}

// NormalizeSymbol upper-cases and trims a ticker.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
