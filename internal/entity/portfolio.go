package entity

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Portfolio is the root aggregate: a cash balance and at most one holding per symbol.
type Portfolio struct {
	Cash     decimal.Decimal `json:"cash"`
	Holdings []Holding       `json:"holdings"`
}

// NewPortfolio returns an empty portfolio funded with cash.
func NewPortfolio(cash decimal.Decimal) Portfolio {
	return Portfolio{Cash: cash, Holdings: []Holding{}}
}

// Clone returns a deep copy of p.
func (p Portfolio) Clone() Portfolio {
	c := Portfolio{Cash: p.Cash, Holdings: make([]Holding, 0, len(p.Holdings))}
	for _, h := range p.Holdings {
		c.Holdings = append(c.Holdings, h.Clone())
	}
	return c
}

// Find returns the index of the holding for symbol, matched case-insensitively, or -1.
func (p Portfolio) Find(symbol string) int {
	symbol = strings.TrimSpace(symbol)
	for i := range p.Holdings {
		if strings.EqualFold(p.Holdings[i].Symbol, symbol) {
			return i
		}
	}
	return -1
}

// PurgeFlat removes every holding with no shares left.
func (p *Portfolio) PurgeFlat() {
	kept := p.Holdings[:0]
	for _, h := range p.Holdings {
		if h.Shares > 0 {
			kept = append(kept, h)
		}
	}
	p.Holdings = kept
}

// PortfolioState is the persisted cash row of the portfolio.
type PortfolioState struct {
	ID        uint            `gorm:"primaryKey" json:"-"`
	Cash      decimal.Decimal `gorm:"type:varchar(64);not null" json:"cash"`
	AsOf      time.Time       `gorm:"not null" json:"as_of"`
	UpdatedAt time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (PortfolioState) TableName() string {
	return "portfolio_state"
}
