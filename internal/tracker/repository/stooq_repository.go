package repository

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang-microcap-tracker/internal/tracker/config"
	"golang-microcap-tracker/pkg/logger"
	"golang-microcap-tracker/pkg/utils"

	"github.com/shopspring/decimal"
)

type stooqRepository struct {
	client *http.Client
	cfg    config.Stooq
	logger *logger.Logger
}

// NewStooqRepository creates a price repository reading Stooq daily CSV history.
func NewStooqRepository(cfg *config.Config, log *logger.Logger) PriceRepository {
	return &stooqRepository{
		client: &http.Client{Timeout: 30 * time.Second},
		cfg:    cfg.Stooq,
		logger: log,
	}
}

func stooqSymbol(symbol string) string {
	s := strings.ToLower(strings.TrimSpace(symbol))
	if strings.HasSuffix(s, ".us") {
		return s
	}
	return s + ".us"
}

func (r *stooqRepository) LastClose(ctx context.Context, symbol string, asOf time.Time) (decimal.Decimal, error) {
	endpoint := fmt.Sprintf("%s/q/d/l/?s=%s&i=d", strings.TrimRight(r.cfg.BaseURL, "/"), url.QueryEscape(stooqSymbol(symbol)))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to create new http request: %w", err)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to send request to Stooq: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return decimal.Zero, fmt.Errorf("received non-OK response from Stooq: %d - %s", resp.StatusCode, string(body))
	}

	last, err := lastCloseFromCSV(resp.Body, asOf)
	if err != nil {
		return decimal.Zero, err
	}
	if last.IsZero() {
		r.logger.Warn("No Stooq close on or before date", logger.StringField("symbol", symbol), logger.StringField("as_of", utils.FormatDate(asOf)))
	}
	return last, nil
}

// lastCloseFromCSV scans Date,Open,High,Low,Close,Volume rows in ascending date
// order and returns the close of the last row dated on or before asOf.
func lastCloseFromCSV(r io.Reader, asOf time.Time) (decimal.Decimal, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	cutoff := utils.TruncateDate(asOf)
	last := decimal.Zero
	for {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return decimal.Zero, fmt.Errorf("failed to parse Stooq csv: %w", err)
		}
		if len(rec) < 6 {
			continue
		}
		d, err := utils.ParseDate(rec[0])
		if err != nil {
			continue
		}
		if d.After(cutoff) {
			break
		}
		if c, err := decimal.NewFromString(strings.TrimSpace(rec[4])); err == nil {
			last = c
		}
	}
	return last, nil
}
