package engine

import (
	"context"
	"fmt"
	"time"

	"golang-microcap-tracker/internal/entity"

	"github.com/shopspring/decimal"
)

// StopLossEvaluator liquidates positions whose close fell to or below their
// stop price.
type StopLossEvaluator struct {
	oracle PriceOracle
	opts   Options
}

func NewStopLossEvaluator(oracle PriceOracle, opts Options) *StopLossEvaluator {
	return &StopLossEvaluator{oracle: oracle, opts: opts.withDefaults()}
}

// Evaluate fetches the close of every open holding carrying a stop-loss (every
// open holding with RefreshAllPrices), one at a time and in portfolio order,
// and records it as lastClose whether or not the stop fires. A holding whose close is <= avgPrice*(1-stop/100) is sold in full
// at that close.
// Liquidated holdings are removed before returning.
//
// An oracle error aborts the evaluation: the returned portfolio is then the
// unmodified input and no trades are reported.
func (e *StopLossEvaluator) Evaluate(ctx context.Context, p entity.Portfolio, asOf time.Time) (entity.Portfolio, []entity.Trade, error) {
	out := p.Clone()
	var trades []entity.Trade

	for i := range out.Holdings {
		h := &out.Holdings[i]
		if h.Shares <= 0 || (!h.HasStopLoss() && !e.opts.RefreshAllPrices) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return p, nil, err
		}

		last, err := e.oracle.LastClose(ctx, h.Symbol, asOf)
		if err != nil {
			return p, nil, fmt.Errorf("failed to get last close for %s: %w", h.Symbol, err)
		}
		last = nonNegative(last)

		if last.IsZero() {
			switch e.opts.ZeroPricePolicy {
			case ZeroPriceFail:
				return p, nil, fmt.Errorf("%s: %w", h.Symbol, ErrZeroPrice)
			case ZeroPriceSkip:
				continue
			}
		}
		h.LastClose = last

		if !h.HasStopLoss() || last.GreaterThan(h.StopPrice()) {
			continue
		}

		t := newTrade(asOf, h.Symbol, entity.TradeSideSell, h.Shares, last, entity.TradeReasonStopLoss)
		out.Cash = out.Cash.Add(t.Amount())
		trades = append(trades, t)
		h.Shares = 0
		h.AvgPrice = decimal.Zero
	}

	out.PurgeFlat()
	return out, trades, nil
}
