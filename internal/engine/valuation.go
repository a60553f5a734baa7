package engine

import (
	"context"
	"fmt"
	"time"

	"golang-microcap-tracker/internal/entity"

	"github.com/shopspring/decimal"
)

// Valuator marks a portfolio to market.
type Valuator struct {
	oracle PriceOracle
	opts   Options
}

func NewValuator(oracle PriceOracle, opts Options) *Valuator {
	return &Valuator{oracle: oracle, opts: opts.withDefaults()}
}

// Valuate returns cash + sum(shares*lastClose). Holdings without a positive
// lastClose are priced through the oracle first and the fetched close is kept
// on the returned portfolio. Valuating the returned portfolio again yields the
// same equity.
func (v *Valuator) Valuate(ctx context.Context, p entity.Portfolio, asOf time.Time) (entity.Portfolio, decimal.Decimal, error) {
	out := p.Clone()
	equity := out.Cash

	for i := range out.Holdings {
		h := &out.Holdings[i]
		if !h.LastClose.IsPositive() {
			last, err := v.oracle.LastClose(ctx, h.Symbol, asOf)
			if err != nil {
				return p, decimal.Zero, fmt.Errorf("failed to get last close for %s: %w", h.Symbol, err)
			}
			last = nonNegative(last)
			if last.IsZero() && v.opts.ZeroPricePolicy == ZeroPriceFail {
				return p, decimal.Zero, fmt.Errorf("%s: %w", h.Symbol, ErrZeroPrice)
			}
			h.LastClose = last
		}
		equity = equity.Add(h.MarketValue())
	}

	return out, equity, nil
}
