package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// EquityPoint is one point of the equity curve. There is one point per run date.
type EquityPoint struct {
	Date   time.Time       `gorm:"primaryKey" json:"date"`
	Equity decimal.Decimal `gorm:"type:varchar(64);not null" json:"equity"`
}

func (EquityPoint) TableName() string {
	return "equity_points"
}
