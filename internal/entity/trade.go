package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

type TradeSide string

const (
	TradeSideBuy  TradeSide = "BUY"
	TradeSideSell TradeSide = "SELL"
)

type TradeReason string

const (
	TradeReasonStopLoss   TradeReason = "STOP_LOSS"
	TradeReasonAIDecision TradeReason = "AI_DECISION"
)

// Trade is an immutable audit record. Trades are only ever appended.
type Trade struct {
	ID        uint            `gorm:"primaryKey" json:"-"`
	RunID     string          `gorm:"index" json:"run_id,omitempty"`
	Date      time.Time       `gorm:"index;not null" json:"date"`
	Symbol    string          `gorm:"index;not null" json:"symbol"`
	Side      TradeSide       `gorm:"type:varchar(4);not null" json:"side"`
	Quantity  int64           `gorm:"not null" json:"quantity"`
	Price     decimal.Decimal `gorm:"type:varchar(64);not null" json:"price"`
	Reason    TradeReason     `gorm:"type:varchar(16);not null" json:"reason"`
	CreatedAt time.Time       `gorm:"autoCreateTime" json:"-"`
}

func (Trade) TableName() string {
	return "trades"
}

// Amount returns quantity * price.
func (t Trade) Amount() decimal.Decimal {
	return t.Price.Mul(decimal.NewFromInt(t.Quantity))
}
