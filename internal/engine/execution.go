package engine

import (
	"time"

	"golang-microcap-tracker/internal/entity"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderApplied OrderStatus = "applied"
	OrderSkipped OrderStatus = "skipped"
)

// SkipReason says why an order was not applied.
type SkipReason string

const (
	SkipHoldingNotFound   SkipReason = "holding_not_found"
	SkipHoldingFlat       SkipReason = "holding_flat"
	SkipInvalidSymbol     SkipReason = "invalid_symbol"
	SkipInvalidQuantity   SkipReason = "invalid_quantity"
	SkipMarketCapExceeded SkipReason = "market_cap_exceeded"
	SkipNoPrice           SkipReason = "no_price"
	SkipInsufficientCash  SkipReason = "insufficient_cash"
)

// OrderResult is the outcome of one order of an OrderSet.
type OrderResult struct {
	Side   entity.TradeSide `json:"side"`
	Index  int              `json:"index"`
	Order  entity.Order     `json:"order"`
	Status OrderStatus      `json:"status"`
	Reason SkipReason       `json:"reason,omitempty"`
	Trade  *entity.Trade    `json:"trade,omitempty"`
}

func (r OrderResult) Applied() bool {
	return r.Status == OrderApplied
}

// BatchResult is what applying an OrderSet produced. Results holds exactly one
// entry per order: sells first, then buys, each in input order.
type BatchResult struct {
	Portfolio entity.Portfolio
	Trades    []entity.Trade
	Results   []OrderResult
}

// Skipped returns the results of orders that were not applied.
func (b BatchResult) Skipped() []OrderResult {
	var out []OrderResult
	for _, r := range b.Results {
		if !r.Applied() {
			out = append(out, r)
		}
	}
	return out
}

// OrderExecutor applies an OrderSet to a portfolio. Sells run before buys so
// that proceeds fund purchases. An order that cannot be applied is skipped and
// never fails the batch.
type OrderExecutor struct {
	opts Options
}

func NewOrderExecutor(opts Options) *OrderExecutor {
	return &OrderExecutor{opts: opts.withDefaults()}
}

func (x *OrderExecutor) Apply(p entity.Portfolio, set entity.OrderSet, asOf time.Time) BatchResult {
	res := BatchResult{
		Portfolio: p.Clone(),
		Results:   make([]OrderResult, 0, len(set.Sells)+len(set.Buys)),
	}

	for i, o := range set.Sells {
		res.record(entity.TradeSideSell, i, o, x.sell(&res.Portfolio, o, asOf))
	}
	res.Portfolio.PurgeFlat()

	for i, o := range set.Buys {
		res.record(entity.TradeSideBuy, i, o, x.buy(&res.Portfolio, o, set.MicroCapOnly, asOf))
	}

	return res
}

type outcome struct {
	trade  *entity.Trade
	reason SkipReason
}

func (b *BatchResult) record(side entity.TradeSide, index int, o entity.Order, oc outcome) {
	r := OrderResult{Side: side, Index: index, Order: o}
	if oc.trade == nil {
		r.Status = OrderSkipped
		r.Reason = oc.reason
	} else {
		r.Status = OrderApplied
		t := *oc.trade
		r.Trade = &t
		b.Trades = append(b.Trades, t)
	}
	b.Results = append(b.Results, r)
}

func skip(reason SkipReason) outcome {
	return outcome{reason: reason}
}

// sell realises min(quantity, shares) at lastClose, or avgPrice when lastClose
// is zero. A non-positive quantity sells the whole position.
func (x *OrderExecutor) sell(p *entity.Portfolio, o entity.Order, asOf time.Time) outcome {
	idx := p.Find(o.Symbol)
	if idx < 0 {
		return skip(SkipHoldingNotFound)
	}
	h := &p.Holdings[idx]
	if h.Shares <= 0 {
		return skip(SkipHoldingFlat)
	}

	n := h.Shares
	if o.Quantity > 0 && o.Quantity < h.Shares {
		n = o.Quantity
	}

	price := h.LastClose
	if !price.IsPositive() {
		price = h.AvgPrice
	}
	if !price.IsPositive() && x.opts.ZeroPricePolicy != ZeroPriceAccept {
		return skip(SkipNoPrice)
	}
	price = nonNegative(price)

	t := newTrade(asOf, h.Symbol, entity.TradeSideSell, n, price, entity.TradeReasonAIDecision)
	p.Cash = p.Cash.Add(t.Amount())
	h.Shares -= n
	if h.Shares == 0 {
		h.AvgPrice = decimal.Zero
	}
	return outcome{trade: &t}
}

// buy pays assumedPrice, or the held lastClose when no positive assumedPrice
// was given, and merges the lot into the existing position at a weighted
// average cost.
func (x *OrderExecutor) buy(p *entity.Portfolio, o entity.Order, microCapOnly bool, asOf time.Time) outcome {
	symbol := entity.NormalizeSymbol(o.Symbol)
	if symbol == "" {
		return skip(SkipInvalidSymbol)
	}
	if o.Quantity <= 0 {
		return skip(SkipInvalidQuantity)
	}
	if microCapOnly && o.MarketCapUsd != nil && o.MarketCapUsd.GreaterThan(x.opts.MicroCapThresholdUsd) {
		return skip(SkipMarketCapExceeded)
	}

	idx := p.Find(symbol)
	var price decimal.Decimal
	switch {
	case o.AssumedPrice != nil && o.AssumedPrice.IsPositive():
		price = *o.AssumedPrice
	case idx >= 0:
		price = p.Holdings[idx].LastClose
	}
	if !price.IsPositive() {
		return skip(SkipNoPrice)
	}

	cost := price.Mul(qty(o.Quantity))
	if cost.GreaterThan(p.Cash) {
		return skip(SkipInsufficientCash)
	}
	p.Cash = p.Cash.Sub(cost)

	stop := validStop(o.StopLossPercent)
	if idx < 0 {
		p.Holdings = append(p.Holdings, entity.Holding{
			Symbol:          symbol,
			Shares:          o.Quantity,
			AvgPrice:        price,
			StopLossPercent: stop,
			LastClose:       price,
		})
	} else {
		h := &p.Holdings[idx]
		total := h.CostBasis().Add(cost)
		h.Shares += o.Quantity
		h.AvgPrice = total.Div(qty(h.Shares))
		h.LastClose = price
		if stop != nil {
			h.StopLossPercent = stop
		}
		symbol = h.Symbol
	}

	t := newTrade(asOf, symbol, entity.TradeSideBuy, o.Quantity, price, entity.TradeReasonAIDecision)
	return outcome{trade: &t}
}

// validStop copies a stop-loss percent, dropping negative values.
func validStop(pct *decimal.Decimal) *decimal.Decimal {
	if pct == nil || pct.IsNegative() {
		return nil
	}
	c := *pct
	return &c
}
