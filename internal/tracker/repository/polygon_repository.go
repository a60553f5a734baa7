package repository

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang-microcap-tracker/internal/entity"
	"golang-microcap-tracker/internal/tracker/config"
	"golang-microcap-tracker/pkg/logger"
	"golang-microcap-tracker/pkg/utils"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"
)

type polygonRepository struct {
	client         *http.Client
	cfg            config.Polygon
	logger         *logger.Logger
	requestLimiter *rate.Limiter
}

// NewPolygonRepository creates a price repository backed by the Polygon.io
// daily open/close endpoint.
func NewPolygonRepository(cfg *config.Config, log *logger.Logger) PriceRepository {
	return &polygonRepository{
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		cfg:            cfg.Polygon,
		logger:         log,
		requestLimiter: newRequestLimiter(cfg.Polygon.MaxRequestPerMinute),
	}
}

func (r *polygonRepository) LastClose(ctx context.Context, symbol string, asOf time.Time) (decimal.Decimal, error) {
	if err := r.requestLimiter.Wait(ctx); err != nil {
		return decimal.Zero, fmt.Errorf("failed to wait for request limit: %w", err)
	}

	symbol = entity.NormalizeSymbol(symbol)
	endpoint := fmt.Sprintf("%s/v1/open-close/%s/%s?adjusted=true&apiKey=%s",
		strings.TrimRight(r.cfg.BaseURL, "/"),
		url.PathEscape(symbol),
		utils.FormatDate(asOf),
		url.QueryEscape(r.cfg.APIKey),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to create new http request: %w", err)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to send request to Polygon API: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to read Polygon response: %w", err)
	}

	// Polygon answers 404 for sessions without a print and for unknown tickers.
	if resp.StatusCode == http.StatusNotFound {
		r.logger.Error("No Polygon close for date", logger.StringField("symbol", symbol), logger.StringField("as_of", utils.FormatDate(asOf)))
		return decimal.Zero, fmt.Errorf("%w: polygon %s on %s", ErrPriceNotFound, symbol, utils.FormatDate(asOf))
	}
	if resp.StatusCode != http.StatusOK {
		r.logger.Error("Received non-OK response from Polygon API", logger.IntField("status_code", resp.StatusCode), logger.StringField("symbol", symbol))
		return decimal.Zero, fmt.Errorf("received non-OK response from Polygon API: %d - %s", resp.StatusCode, string(body))
	}

	return closeFromJSON(body, "close"), nil
}

// closeFromJSON reads a numeric field keeping its literal precision. A missing
// or non-numeric field yields zero.
func closeFromJSON(body []byte, path string) decimal.Decimal {
	v := gjson.GetBytes(body, path)
	if v.Type != gjson.Number {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(v.Raw)
	if err != nil {
		return decimal.NewFromFloat(v.Float())
	}
	return d
}

func newRequestLimiter(perMinute int) *rate.Limiter {
	if perMinute <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1)
}
