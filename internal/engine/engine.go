// Package engine holds the portfolio state-transition logic: stop-loss
// evaluation, order execution and mark-to-market valuation.
//
// Every component takes a Portfolio by value, works on a deep copy and returns
// the copy together with the trades it emitted. The caller's portfolio is never
// mutated, so a run that aborts half-way leaves nothing behind.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// PriceOracle answers "what was the last close of symbol as of date".
// A zero price is the oracle's sentinel for "unknown".
type PriceOracle interface {
	LastClose(ctx context.Context, symbol string, asOf time.Time) (decimal.Decimal, error)
}

// PriceOracleFunc adapts a function to PriceOracle.
type PriceOracleFunc func(ctx context.Context, symbol string, asOf time.Time) (decimal.Decimal, error)

func (f PriceOracleFunc) LastClose(ctx context.Context, symbol string, asOf time.Time) (decimal.Decimal, error) {
	return f(ctx, symbol, asOf)
}

// ZeroPricePolicy decides what a zero close from the oracle means.
type ZeroPricePolicy string

const (
	// ZeroPriceAccept treats zero as a tradable close: it may trigger a stop and may be a sale price.
	ZeroPriceAccept ZeroPricePolicy = "accept"
	// ZeroPriceSkip treats zero as unknown: prices are left untouched and nothing trades at zero.
	ZeroPriceSkip ZeroPricePolicy = "skip"
	// ZeroPriceFail aborts the run with ErrZeroPrice.
	ZeroPriceFail ZeroPricePolicy = "fail"
)

// ErrZeroPrice is returned under ZeroPriceFail when the oracle answers zero.
var ErrZeroPrice = errors.New("price oracle returned a zero price")

// ParseZeroPricePolicy parses a policy name. An empty name selects ZeroPriceAccept.
func ParseZeroPricePolicy(s string) (ZeroPricePolicy, error) {
	switch p := ZeroPricePolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return ZeroPriceAccept, nil
	case ZeroPriceAccept, ZeroPriceSkip, ZeroPriceFail:
		return p, nil
	default:
		return "", fmt.Errorf("unknown zero price policy %q", s)
	}
}

// Options tunes the engine components.
type Options struct {
	ZeroPricePolicy      ZeroPricePolicy
	MicroCapThresholdUsd decimal.Decimal
	// RefreshAllPrices makes the stop-loss pass also refresh lastClose of
	// holdings without a stop-loss.
	RefreshAllPrices bool
}

// DefaultOptions returns the standard engine behaviour: zero prices are
// accepted and micro-caps are companies up to 300M USD.
func DefaultOptions() Options {
	return Options{
		ZeroPricePolicy:      ZeroPriceAccept,
		MicroCapThresholdUsd: decimal.NewFromInt(300_000_000),
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.ZeroPricePolicy == "" {
		o.ZeroPricePolicy = d.ZeroPricePolicy
	}
	if !o.MicroCapThresholdUsd.IsPositive() {
		o.MicroCapThresholdUsd = d.MicroCapThresholdUsd
	}
	return o
}
