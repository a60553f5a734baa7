package repository

import (
	"context"
	"fmt"
	"time"

	"golang-microcap-tracker/internal/entity"
	"golang-microcap-tracker/internal/tracker/config"
	"golang-microcap-tracker/pkg/logger"
	"golang-microcap-tracker/pkg/utils"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/shopspring/decimal"
)

// barLookback covers long weekends and market holidays.
const barLookback = 10 * 24 * time.Hour

type alpacaRepository struct {
	client *marketdata.Client
	feed   string
	logger *logger.Logger
}

// NewAlpacaRepository creates a price repository backed by Alpaca daily bars.
func NewAlpacaRepository(cfg *config.Config, log *logger.Logger) PriceRepository {
	opts := marketdata.ClientOpts{
		APIKey:    cfg.Alpaca.APIKey,
		APISecret: cfg.Alpaca.APISecret,
	}
	if cfg.Alpaca.BaseURL != "" {
		opts.BaseURL = cfg.Alpaca.BaseURL
	}
	return &alpacaRepository{
		client: marketdata.NewClient(opts),
		feed:   cfg.Alpaca.Feed,
		logger: log,
	}
}

func (r *alpacaRepository) LastClose(ctx context.Context, symbol string, asOf time.Time) (decimal.Decimal, error) {
	if err := ctx.Err(); err != nil {
		return decimal.Zero, err
	}

	day := utils.TruncateDate(asOf)
	bars, err := r.client.GetBars(entity.NormalizeSymbol(symbol), marketdata.GetBarsRequest{
		TimeFrame: marketdata.OneDay,
		Start:     day.Add(-barLookback),
		End:       day.AddDate(0, 0, 1),
		Feed:      marketdata.Feed(r.feed),
	})
	if err != nil {
		return decimal.Zero, fmt.Errorf("GetBars %s: %w", symbol, err)
	}

	closes := make([]datedClose, 0, len(bars))
	for _, b := range bars {
		closes = append(closes, datedClose{at: b.Timestamp, close: b.Close})
	}
	return lastCloseOnOrBefore(closes, day), nil
}

type datedClose struct {
	at    time.Time
	close float64
}

// lastCloseOnOrBefore picks the latest bar whose calendar date is not after day.
func lastCloseOnOrBefore(closes []datedClose, day time.Time) decimal.Decimal {
	var best *datedClose
	for i := range closes {
		c := &closes[i]
		if utils.TruncateDate(c.at).After(day) {
			continue
		}
		if best == nil || c.at.After(best.at) {
			best = c
		}
	}
	if best == nil {
		return decimal.Zero
	}
	return decimal.NewFromFloat(best.close)
}
