package engine

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"golang-microcap-tracker/internal/entity"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var asOf = time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func dp(s string) *decimal.Decimal {
	v := d(s)
	return &v
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...interface{}) {
	t.Helper()
	assert.True(t, d(want).Equal(got), append([]interface{}{"want %s got %s", want, got.String()}, msgAndArgs...)...)
}

// fakeOracle answers from a fixed table and records every call.
type fakeOracle struct {
	prices map[string]decimal.Decimal
	err    error
	calls  []string
}

func (f *fakeOracle) LastClose(_ context.Context, symbol string, _ time.Time) (decimal.Decimal, error) {
	f.calls = append(f.calls, symbol)
	if f.err != nil {
		return decimal.Zero, f.err
	}
	return f.prices[strings.ToUpper(symbol)], nil
}

func withPolicy(p ZeroPricePolicy) Options {
	o := DefaultOptions()
	o.ZeroPricePolicy = p
	return o
}

func TestParseZeroPricePolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    ZeroPricePolicy
		wantErr bool
	}{
		{in: "", want: ZeroPriceAccept},
		{in: "accept", want: ZeroPriceAccept},
		{in: " Skip ", want: ZeroPriceSkip},
		{in: "FAIL", want: ZeroPriceFail},
		{in: "ignore", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseZeroPricePolicy(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStopLossEvaluator_Evaluate(t *testing.T) {
	t.Run("empty portfolio emits nothing", func(t *testing.T) {
		oracle := &fakeOracle{}
		ev := NewStopLossEvaluator(oracle, DefaultOptions())

		out, trades, err := ev.Evaluate(context.Background(), entity.NewPortfolio(d("100")), asOf)

		require.NoError(t, err)
		assert.Empty(t, trades)
		assertDecimal(t, "100", out.Cash)
		assert.Empty(t, oracle.calls)
	})

	t.Run("close below stop price liquidates the holding", func(t *testing.T) {
		oracle := &fakeOracle{prices: map[string]decimal.Decimal{"AAA": d("9.0")}}
		ev := NewStopLossEvaluator(oracle, DefaultOptions())
		in := entity.Portfolio{Holdings: []entity.Holding{
			{Symbol: "AAA", Shares: 10, AvgPrice: d("10"), StopLossPercent: dp("8")},
		}}

		out, trades, err := ev.Evaluate(context.Background(), in, asOf)

		require.NoError(t, err)
		require.Len(t, trades, 1)
		assert.Equal(t, entity.TradeSideSell, trades[0].Side)
		assert.Equal(t, entity.TradeReasonStopLoss, trades[0].Reason)
		assert.Equal(t, int64(10), trades[0].Quantity)
		assertDecimal(t, "9", trades[0].Price)
		assert.Equal(t, asOf, trades[0].Date)
		assertDecimal(t, "90", out.Cash)
		assert.Empty(t, out.Holdings)
		require.NoError(t, CheckInvariants(out))

		// the caller's portfolio is untouched
		require.Len(t, in.Holdings, 1)
		assert.Equal(t, int64(10), in.Holdings[0].Shares)
		assert.True(t, in.Cash.IsZero())
	})

	t.Run("close exactly at stop price triggers", func(t *testing.T) {
		oracle := &fakeOracle{prices: map[string]decimal.Decimal{"AAA": d("9.2")}}
		ev := NewStopLossEvaluator(oracle, DefaultOptions())
		in := entity.Portfolio{Holdings: []entity.Holding{
			{Symbol: "AAA", Shares: 10, AvgPrice: d("10"), StopLossPercent: dp("8")},
		}}

		out, trades, err := ev.Evaluate(context.Background(), in, asOf)

		require.NoError(t, err)
		assert.Len(t, trades, 1)
		assertDecimal(t, "92", out.Cash)
	})

	t.Run("close above stop refreshes lastClose only", func(t *testing.T) {
		oracle := &fakeOracle{prices: map[string]decimal.Decimal{"AAA": d("9.5"), "BBB": d("3")}}
		ev := NewStopLossEvaluator(oracle, DefaultOptions())
		in := entity.Portfolio{Cash: d("5"), Holdings: []entity.Holding{
			{Symbol: "AAA", Shares: 10, AvgPrice: d("10"), StopLossPercent: dp("8"), LastClose: d("10")},
			{Symbol: "BBB", Shares: 2, AvgPrice: d("4"), LastClose: d("4")},
		}}

		out, trades, err := ev.Evaluate(context.Background(), in, asOf)

		require.NoError(t, err)
		assert.Empty(t, trades)
		require.Len(t, out.Holdings, 2)
		assertDecimal(t, "9.5", out.Holdings[0].LastClose)
		assertDecimal(t, "4", out.Holdings[1].LastClose, "holdings without a stop are not priced here")
		assert.Equal(t, []string{"AAA"}, oracle.calls)
	})

	t.Run("refreshing all prices never sells holdings without a stop", func(t *testing.T) {
		oracle := &fakeOracle{prices: map[string]decimal.Decimal{"AAA": d("9.5"), "BBB": d("0.5")}}
		opts := DefaultOptions()
		opts.RefreshAllPrices = true
		in := entity.Portfolio{Holdings: []entity.Holding{
			{Symbol: "AAA", Shares: 10, AvgPrice: d("10"), StopLossPercent: dp("8"), LastClose: d("10")},
			{Symbol: "BBB", Shares: 2, AvgPrice: d("4"), LastClose: d("4")},
		}}

		out, trades, err := NewStopLossEvaluator(oracle, opts).Evaluate(context.Background(), in, asOf)

		require.NoError(t, err)
		assert.Empty(t, trades)
		assertDecimal(t, "0.5", out.Holdings[1].LastClose)
		assert.Equal(t, []string{"AAA", "BBB"}, oracle.calls)
	})

	t.Run("oracle error aborts and returns the input", func(t *testing.T) {
		boom := errors.New("timeout")
		ev := NewStopLossEvaluator(&fakeOracle{err: boom}, DefaultOptions())
		in := entity.Portfolio{Cash: d("1"), Holdings: []entity.Holding{
			{Symbol: "AAA", Shares: 10, AvgPrice: d("10"), StopLossPercent: dp("8")},
		}}

		out, trades, err := ev.Evaluate(context.Background(), in, asOf)

		assert.ErrorIs(t, err, boom)
		assert.Nil(t, trades)
		assert.Equal(t, in, out)
	})
}

func TestStopLossEvaluator_ZeroPricePolicy(t *testing.T) {
	portfolio := func() entity.Portfolio {
		return entity.Portfolio{Cash: d("1"), Holdings: []entity.Holding{
			{Symbol: "AAA", Shares: 10, AvgPrice: d("10"), StopLossPercent: dp("8"), LastClose: d("9.5")},
		}}
	}
	oracle := &fakeOracle{prices: map[string]decimal.Decimal{}}

	t.Run("accept sells at zero", func(t *testing.T) {
		out, trades, err := NewStopLossEvaluator(oracle, withPolicy(ZeroPriceAccept)).Evaluate(context.Background(), portfolio(), asOf)

		require.NoError(t, err)
		require.Len(t, trades, 1)
		assert.True(t, trades[0].Price.IsZero())
		assertDecimal(t, "1", out.Cash)
		assert.Empty(t, out.Holdings)
	})

	t.Run("skip keeps the holding and its last close", func(t *testing.T) {
		out, trades, err := NewStopLossEvaluator(oracle, withPolicy(ZeroPriceSkip)).Evaluate(context.Background(), portfolio(), asOf)

		require.NoError(t, err)
		assert.Empty(t, trades)
		require.Len(t, out.Holdings, 1)
		assertDecimal(t, "9.5", out.Holdings[0].LastClose)
	})

	t.Run("fail surfaces ErrZeroPrice", func(t *testing.T) {
		in := portfolio()
		out, trades, err := NewStopLossEvaluator(oracle, withPolicy(ZeroPriceFail)).Evaluate(context.Background(), in, asOf)

		assert.ErrorIs(t, err, ErrZeroPrice)
		assert.Nil(t, trades)
		assert.Equal(t, in, out)
	})
}

func TestOrderExecutor_Buys(t *testing.T) {
	x := NewOrderExecutor(DefaultOptions())

	t.Run("buy spending all cash", func(t *testing.T) {
		set := entity.OrderSet{Buys: []entity.Order{{Symbol: "BBB", Quantity: 5, AssumedPrice: dp("20")}}}

		res := x.Apply(entity.NewPortfolio(d("100")), set, asOf)

		assert.True(t, res.Portfolio.Cash.IsZero())
		require.Len(t, res.Portfolio.Holdings, 1)
		h := res.Portfolio.Holdings[0]
		assert.Equal(t, "BBB", h.Symbol)
		assert.Equal(t, int64(5), h.Shares)
		assertDecimal(t, "20", h.AvgPrice)
		assertDecimal(t, "20", h.LastClose)
		require.Len(t, res.Trades, 1)
		assert.Equal(t, entity.TradeSideBuy, res.Trades[0].Side)
		assert.Equal(t, entity.TradeReasonAIDecision, res.Trades[0].Reason)
		require.Len(t, res.Results, 1)
		assert.True(t, res.Results[0].Applied())
		assert.Equal(t, res.Trades[0], *res.Results[0].Trade)
	})

	t.Run("buy beyond cash is skipped", func(t *testing.T) {
		set := entity.OrderSet{Buys: []entity.Order{{Symbol: "BBB", Quantity: 5, AssumedPrice: dp("30")}}}

		res := x.Apply(entity.NewPortfolio(d("100")), set, asOf)

		assertDecimal(t, "100", res.Portfolio.Cash)
		assert.Empty(t, res.Portfolio.Holdings)
		assert.Empty(t, res.Trades)
		require.Len(t, res.Results, 1)
		assert.Equal(t, OrderSkipped, res.Results[0].Status)
		assert.Equal(t, SkipInsufficientCash, res.Results[0].Reason)
		assert.Nil(t, res.Results[0].Trade)
	})

	t.Run("adding to a position weights the average cost", func(t *testing.T) {
		in := entity.Portfolio{Cash: d("100"), Holdings: []entity.Holding{
			{Symbol: "CCC", Shares: 10, AvgPrice: d("10"), LastClose: d("12"), StopLossPercent: dp("5")},
		}}
		set := entity.OrderSet{Buys: []entity.Order{{Symbol: "ccc", Quantity: 5, AssumedPrice: dp("13")}}}

		res := x.Apply(in, set, asOf)

		require.Len(t, res.Portfolio.Holdings, 1)
		h := res.Portfolio.Holdings[0]
		assert.Equal(t, int64(15), h.Shares)
		assertDecimal(t, "11", h.AvgPrice)
		assertDecimal(t, "13", h.LastClose)
		assertDecimal(t, "5", *h.StopLossPercent, "prior stop persists")
		assertDecimal(t, "35", res.Portfolio.Cash)
		assert.Equal(t, "CCC", res.Trades[0].Symbol)
	})

	t.Run("a new stop-loss overwrites the old one", func(t *testing.T) {
		in := entity.Portfolio{Cash: d("100"), Holdings: []entity.Holding{
			{Symbol: "CCC", Shares: 1, AvgPrice: d("10"), LastClose: d("10"), StopLossPercent: dp("5")},
		}}
		set := entity.OrderSet{Buys: []entity.Order{{Symbol: "CCC", Quantity: 1, StopLossPercent: dp("12")}}}

		res := x.Apply(in, set, asOf)

		h := res.Portfolio.Holdings[0]
		assertDecimal(t, "12", *h.StopLossPercent)
		assertDecimal(t, "10", res.Trades[0].Price, "held lastClose is used without an assumed price")
	})

	t.Run("later buys see cash consumed by earlier ones", func(t *testing.T) {
		set := entity.OrderSet{Buys: []entity.Order{
			{Symbol: "AAA", Quantity: 6, AssumedPrice: dp("10")},
			{Symbol: "BBB", Quantity: 5, AssumedPrice: dp("10")},
			{Symbol: "CCC", Quantity: 4, AssumedPrice: dp("10")},
		}}

		res := x.Apply(entity.NewPortfolio(d("100")), set, asOf)

		assert.True(t, res.Portfolio.Cash.IsZero())
		require.Len(t, res.Results, 3)
		assert.True(t, res.Results[0].Applied())
		assert.Equal(t, SkipInsufficientCash, res.Results[1].Reason)
		assert.True(t, res.Results[2].Applied())
		assert.Len(t, res.Skipped(), 1)
	})

	t.Run("skip reasons", func(t *testing.T) {
		in := entity.Portfolio{Cash: d("1000"), Holdings: []entity.Holding{
			{Symbol: "OLD", Shares: 1, AvgPrice: d("2")},
		}}
		set := entity.OrderSet{MicroCapOnly: true, Buys: []entity.Order{
			{Symbol: "  ", Quantity: 1, AssumedPrice: dp("1")},
			{Symbol: "ZERO", Quantity: 0, AssumedPrice: dp("1")},
			{Symbol: "BIG", Quantity: 1, AssumedPrice: dp("1"), MarketCapUsd: dp("300000001")},
			{Symbol: "NEW", Quantity: 1},
			{Symbol: "OLD", Quantity: 1},
			{Symbol: "NEG", Quantity: 1, AssumedPrice: dp("-3")},
		}}

		res := x.Apply(in, set, asOf)

		reasons := make([]SkipReason, 0, len(res.Results))
		for _, r := range res.Results {
			assert.Equal(t, OrderSkipped, r.Status)
			reasons = append(reasons, r.Reason)
		}
		assert.Equal(t, []SkipReason{
			SkipInvalidSymbol, SkipInvalidQuantity, SkipMarketCapExceeded,
			SkipNoPrice, SkipNoPrice, SkipNoPrice,
		}, reasons)
		assertDecimal(t, "1000", res.Portfolio.Cash)
		assert.Empty(t, res.Trades)
	})

	t.Run("market cap is ignored without the micro-cap flag", func(t *testing.T) {
		set := entity.OrderSet{Buys: []entity.Order{
			{Symbol: "BIG", Quantity: 1, AssumedPrice: dp("1"), MarketCapUsd: dp("900000000")},
			{Symbol: "SMALL", Quantity: 1, AssumedPrice: dp("1"), MarketCapUsd: dp("300000000")},
		}}

		res := x.Apply(entity.NewPortfolio(d("10")), set, asOf)
		assert.Len(t, res.Trades, 2)

		set.MicroCapOnly = true
		res = x.Apply(entity.NewPortfolio(d("10")), set, asOf)
		require.Len(t, res.Trades, 1)
		assert.Equal(t, "SMALL", res.Trades[0].Symbol)
	})

	t.Run("negative stop-loss is not adopted", func(t *testing.T) {
		set := entity.OrderSet{Buys: []entity.Order{{Symbol: "AAA", Quantity: 1, AssumedPrice: dp("1"), StopLossPercent: dp("-5")}}}

		res := x.Apply(entity.NewPortfolio(d("10")), set, asOf)

		require.Len(t, res.Portfolio.Holdings, 1)
		assert.Nil(t, res.Portfolio.Holdings[0].StopLossPercent)
	})
}

func TestOrderExecutor_Sells(t *testing.T) {
	x := NewOrderExecutor(DefaultOptions())

	t.Run("zero quantity sells everything at lastClose", func(t *testing.T) {
		in := entity.Portfolio{Holdings: []entity.Holding{
			{Symbol: "CCC", Shares: 10, AvgPrice: d("10"), LastClose: d("12")},
		}}

		res := x.Apply(in, entity.OrderSet{Sells: []entity.Order{{Symbol: "CCC"}}}, asOf)

		assert.Empty(t, res.Portfolio.Holdings)
		assertDecimal(t, "120", res.Portfolio.Cash)
		require.Len(t, res.Trades, 1)
		assert.Equal(t, int64(10), res.Trades[0].Quantity)
		assertDecimal(t, "12", res.Trades[0].Price)
		assert.Equal(t, entity.TradeReasonAIDecision, res.Trades[0].Reason)
	})

	t.Run("partial sell keeps the average cost", func(t *testing.T) {
		in := entity.Portfolio{Holdings: []entity.Holding{
			{Symbol: "CCC", Shares: 10, AvgPrice: d("10"), LastClose: d("12")},
		}}

		res := x.Apply(in, entity.OrderSet{Sells: []entity.Order{{Symbol: "ccc", Quantity: 4}}}, asOf)

		require.Len(t, res.Portfolio.Holdings, 1)
		assert.Equal(t, int64(6), res.Portfolio.Holdings[0].Shares)
		assertDecimal(t, "10", res.Portfolio.Holdings[0].AvgPrice)
		assertDecimal(t, "48", res.Portfolio.Cash)
	})

	t.Run("oversized quantity is capped at the position", func(t *testing.T) {
		in := entity.Portfolio{Holdings: []entity.Holding{
			{Symbol: "CCC", Shares: 3, AvgPrice: d("10"), LastClose: d("2")},
		}}

		res := x.Apply(in, entity.OrderSet{Sells: []entity.Order{{Symbol: "CCC", Quantity: 50}}}, asOf)

		assert.Equal(t, int64(3), res.Trades[0].Quantity)
		assert.Empty(t, res.Portfolio.Holdings)
	})

	t.Run("falls back to avgPrice without a close", func(t *testing.T) {
		in := entity.Portfolio{Holdings: []entity.Holding{
			{Symbol: "CCC", Shares: 2, AvgPrice: d("7.5")},
		}}

		res := x.Apply(in, entity.OrderSet{Sells: []entity.Order{{Symbol: "CCC"}}}, asOf)

		assertDecimal(t, "7.5", res.Trades[0].Price)
		assertDecimal(t, "15", res.Portfolio.Cash)
	})

	t.Run("unknown and already flat symbols are skipped", func(t *testing.T) {
		in := entity.Portfolio{Holdings: []entity.Holding{
			{Symbol: "CCC", Shares: 2, AvgPrice: d("1"), LastClose: d("1")},
		}}
		set := entity.OrderSet{Sells: []entity.Order{{Symbol: "XYZ"}, {Symbol: "CCC"}, {Symbol: "CCC"}}}

		res := x.Apply(in, set, asOf)

		require.Len(t, res.Results, 3)
		assert.Equal(t, SkipHoldingNotFound, res.Results[0].Reason)
		assert.True(t, res.Results[1].Applied())
		assert.Equal(t, SkipHoldingFlat, res.Results[2].Reason)
		assert.Len(t, res.Trades, 1)
	})
}

func TestOrderExecutor_SellsFundBuys(t *testing.T) {
	in := entity.Portfolio{Cash: d("50"), Holdings: []entity.Holding{
		{Symbol: "DDD", Shares: 10, AvgPrice: d("8"), LastClose: d("10")},
	}}
	set := entity.OrderSet{
		Buys:  []entity.Order{{Symbol: "DDD", Quantity: 10, AssumedPrice: dp("12")}},
		Sells: []entity.Order{{Symbol: "DDD", Quantity: 10}},
	}

	res := NewOrderExecutor(DefaultOptions()).Apply(in, set, asOf)

	require.Len(t, res.Results, 2)
	assert.Equal(t, entity.TradeSideSell, res.Results[0].Side)
	assert.Equal(t, entity.TradeSideBuy, res.Results[1].Side)
	assert.True(t, res.Results[1].Applied(), "buy of 120 must fit in 50+100")
	assertDecimal(t, "30", res.Portfolio.Cash)
	require.Len(t, res.Portfolio.Holdings, 1)
	assertDecimal(t, "12", res.Portfolio.Holdings[0].AvgPrice, "a fresh lot after a full exit")
	require.NoError(t, CheckInvariants(res.Portfolio))
}

func TestOrderExecutor_ZeroPricedSell(t *testing.T) {
	in := entity.Portfolio{Cash: d("3"), Holdings: []entity.Holding{{Symbol: "AAA", Shares: 4}}}
	set := entity.OrderSet{Sells: []entity.Order{{Symbol: "AAA"}}}

	res := NewOrderExecutor(withPolicy(ZeroPriceAccept)).Apply(in, set, asOf)
	require.Len(t, res.Trades, 1)
	assert.True(t, res.Trades[0].Price.IsZero())
	assert.Empty(t, res.Portfolio.Holdings)

	for _, p := range []ZeroPricePolicy{ZeroPriceSkip, ZeroPriceFail} {
		res = NewOrderExecutor(withPolicy(p)).Apply(in, set, asOf)
		assert.Empty(t, res.Trades, string(p))
		assert.Equal(t, SkipNoPrice, res.Results[0].Reason, string(p))
		assert.Len(t, res.Portfolio.Holdings, 1, string(p))
	}
}

func TestOrderExecutor_Invariants(t *testing.T) {
	x := NewOrderExecutor(DefaultOptions())
	p := entity.NewPortfolio(d("250"))

	days := []entity.OrderSet{
		{Buys: []entity.Order{
			{Symbol: "AAA", Quantity: 7, AssumedPrice: dp("13.37")},
			{Symbol: "BBB", Quantity: 100, AssumedPrice: dp("1.05")},
			{Symbol: "CCC", Quantity: 40, AssumedPrice: dp("2.5")},
		}},
		{Sells: []entity.Order{{Symbol: "BBB", Quantity: 30}}, Buys: []entity.Order{
			{Symbol: "AAA", Quantity: 3, AssumedPrice: dp("11.11")},
			{Symbol: "DDD", Quantity: 1000, AssumedPrice: dp("0.33")},
		}},
		{Sells: []entity.Order{{Symbol: "AAA"}, {Symbol: "BBB"}, {Symbol: "CCC", Quantity: -1}}, Buys: []entity.Order{
			{Symbol: "EEE", Quantity: 9, AssumedPrice: dp("21.9")},
			{Symbol: "FFF", Quantity: 1, AssumedPrice: dp("0.01")},
		}},
	}

	for i, set := range days {
		res := x.Apply(p, set, asOf.AddDate(0, 0, i))
		require.NoError(t, CheckInvariants(res.Portfolio), "day %d", i)
		assert.False(t, res.Portfolio.Cash.IsNegative(), "day %d", i)
		assert.Len(t, res.Results, len(set.Buys)+len(set.Sells), "day %d", i)
		p = res.Portfolio
	}
}

func TestValuator_Valuate(t *testing.T) {
	t.Run("sums cash and marked positions", func(t *testing.T) {
		oracle := &fakeOracle{prices: map[string]decimal.Decimal{"BBB": d("4")}}
		v := NewValuator(oracle, DefaultOptions())
		in := entity.Portfolio{Cash: d("10.5"), Holdings: []entity.Holding{
			{Symbol: "AAA", Shares: 2, AvgPrice: d("1"), LastClose: d("3")},
			{Symbol: "BBB", Shares: 5, AvgPrice: d("1")},
		}}

		out, equity, err := v.Valuate(context.Background(), in, asOf)

		require.NoError(t, err)
		assertDecimal(t, "36.5", equity)
		assertDecimal(t, "4", out.Holdings[1].LastClose)
		assert.Equal(t, []string{"BBB"}, oracle.calls)
		assert.True(t, in.Holdings[1].LastClose.IsZero())

		again, equity2, err := v.Valuate(context.Background(), out, asOf)
		require.NoError(t, err)
		assert.True(t, equity.Equal(equity2))
		assert.Equal(t, out, again)
		assert.Len(t, oracle.calls, 1)
	})

	t.Run("unpriced holdings count as zero unless failing", func(t *testing.T) {
		in := entity.Portfolio{Cash: d("1"), Holdings: []entity.Holding{{Symbol: "AAA", Shares: 2}}}
		oracle := &fakeOracle{prices: map[string]decimal.Decimal{}}

		_, equity, err := NewValuator(oracle, withPolicy(ZeroPriceSkip)).Valuate(context.Background(), in, asOf)
		require.NoError(t, err)
		assertDecimal(t, "1", equity)

		_, _, err = NewValuator(oracle, withPolicy(ZeroPriceFail)).Valuate(context.Background(), in, asOf)
		assert.ErrorIs(t, err, ErrZeroPrice)
	})

	t.Run("oracle error is returned", func(t *testing.T) {
		in := entity.Portfolio{Holdings: []entity.Holding{{Symbol: "AAA", Shares: 2}}}
		_, _, err := NewValuator(&fakeOracle{err: context.DeadlineExceeded}, DefaultOptions()).Valuate(context.Background(), in, asOf)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}

func TestCheckInvariants(t *testing.T) {
	assert.NoError(t, CheckInvariants(entity.NewPortfolio(decimal.Zero)))
	assert.Error(t, CheckInvariants(entity.NewPortfolio(d("-1"))))
	assert.Error(t, CheckInvariants(entity.Portfolio{Holdings: []entity.Holding{{Symbol: "A", Shares: 0}}}))
	assert.Error(t, CheckInvariants(entity.Portfolio{Holdings: []entity.Holding{
		{Symbol: "A", Shares: 1}, {Symbol: "a", Shares: 1},
	}}))
}
