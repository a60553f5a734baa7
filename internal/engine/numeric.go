package engine

import (
	"fmt"
	"strings"
	"time"

	"golang-microcap-tracker/internal/entity"

	"github.com/shopspring/decimal"
)

func qty(n int64) decimal.Decimal {
	return decimal.NewFromInt(n)
}

// nonNegative clamps negative oracle answers to zero so lastClose stays >= 0.
func nonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

func tradeDate(asOf time.Time) time.Time {
	y, m, d := asOf.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func newTrade(asOf time.Time, symbol string, side entity.TradeSide, quantity int64, price decimal.Decimal, reason entity.TradeReason) entity.Trade {
	return entity.Trade{
		Date:     tradeDate(asOf),
		Symbol:   symbol,
		Side:     side,
		Quantity: quantity,
		Price:    price,
		Reason:   reason,
	}
}

// CheckInvariants verifies what every engine component guarantees on output:
// cash is not negative, every holding has shares, prices are not negative and
// symbols are unique case-insensitively.
func CheckInvariants(p entity.Portfolio) error {
	if p.Cash.IsNegative() {
		return fmt.Errorf("negative cash %s", p.Cash)
	}
	seen := make(map[string]struct{}, len(p.Holdings))
	for _, h := range p.Holdings {
		key := strings.ToUpper(h.Symbol)
		if _, dup := seen[key]; dup {
			return fmt.Errorf("duplicate holding %s", h.Symbol)
		}
		seen[key] = struct{}{}
		if h.Shares <= 0 {
			return fmt.Errorf("holding %s has %d shares", h.Symbol, h.Shares)
		}
		if h.AvgPrice.IsNegative() || h.LastClose.IsNegative() {
			return fmt.Errorf("holding %s has a negative price", h.Symbol)
		}
		if h.StopLossPercent != nil && h.StopLossPercent.IsNegative() {
			return fmt.Errorf("holding %s has a negative stop-loss", h.Symbol)
		}
	}
	return nil
}
