package repository

import (
	"bufio"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang-microcap-tracker/internal/entity"
	"golang-microcap-tracker/internal/tracker/dto"
	"golang-microcap-tracker/pkg/common"
	"golang-microcap-tracker/pkg/logger"
	"golang-microcap-tracker/pkg/utils"

	"github.com/shopspring/decimal"
)

const (
	portfolioFile = "portfolio.csv"
	tradesFile    = "trades.csv"
	equityFile    = "equity.csv"
	decisionsFile = "decisions.jsonl"
)

var (
	portfolioHeader = []string{"Symbol", "Shares", "AvgPrice", "StopLossPercent", "LastClose", "Cash"}
	tradeHeader     = []string{"Date", "Symbol", "Side", "Quantity", "Price", "Reason"}
	equityHeader    = []string{"Date", "Equity"}
)

// csvPortfolioRepository keeps the portfolio, trade log and equity curve as CSV
// files in one directory.
type csvPortfolioRepository struct {
	mu     sync.Mutex
	dir    string
	logger *logger.Logger
}

// NewCSVPortfolioRepository creates a file store rooted at dir, creating it if needed.
func NewCSVPortfolioRepository(dir string, log *logger.Logger) (PortfolioRepository, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}
	return &csvPortfolioRepository{dir: dir, logger: log}, nil
}

func (r *csvPortfolioRepository) path(name string) string {
	return filepath.Join(r.dir, name)
}

// readRows returns every record after the header. A missing file yields os.ErrNotExist.
func readRows(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var rows [][]string
	first := true
	for {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
		}
		if first {
			first = false
			continue
		}
		if len(rec) == 1 && strings.TrimSpace(rec[0]) == "" {
			continue
		}
		for i := range rec {
			rec[i] = strings.TrimSpace(rec[i])
		}
		rows = append(rows, rec)
	}
	return rows, nil
}

func parseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func parseOptionalDecimal(s string) *decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil
	}
	return &d
}

func parseShares(s string) int64 {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		if d, derr := decimal.NewFromString(s); derr == nil {
			return d.IntPart()
		}
		return 0
	}
	return n
}

func (r *csvPortfolioRepository) Load(ctx context.Context) (entity.Portfolio, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows, err := readRows(r.path(portfolioFile))
	if errors.Is(err, os.ErrNotExist) {
		return entity.Portfolio{}, ErrPortfolioNotFound
	}
	if err != nil {
		return entity.Portfolio{}, err
	}

	p := entity.NewPortfolio(decimal.Zero)
	for _, row := range rows {
		if len(row) < len(portfolioHeader) {
			continue
		}
		p.Cash = parseDecimal(row[5])
		if strings.EqualFold(row[0], common.CashSymbol) {
			continue
		}
		h := entity.Holding{
			Symbol:          entity.NormalizeSymbol(row[0]),
			Shares:          parseShares(row[1]),
			AvgPrice:        parseDecimal(row[2]),
			StopLossPercent: parseOptionalDecimal(row[3]),
			LastClose:       parseDecimal(row[4]),
		}
		if h.Shares <= 0 || p.Find(h.Symbol) >= 0 {
			r.logger.Warn("Dropping portfolio row", logger.StringField("symbol", h.Symbol), logger.Field("shares", h.Shares))
			continue
		}
		p.Holdings = append(p.Holdings, h)
	}
	return p, nil
}

func portfolioRows(p entity.Portfolio) [][]string {
	rows := [][]string{portfolioHeader}
	for _, h := range p.Holdings {
		stop := ""
		if h.StopLossPercent != nil {
			stop = h.StopLossPercent.String()
		}
		rows = append(rows, []string{
			h.Symbol,
			strconv.FormatInt(h.Shares, 10),
			h.AvgPrice.String(),
			stop,
			h.LastClose.String(),
			p.Cash.String(),
		})
	}
	if len(p.Holdings) == 0 {
		rows = append(rows, []string{common.CashSymbol, "0", "0", "", "0", p.Cash.String()})
	}
	return rows
}

func tradeRow(t entity.Trade) []string {
	return []string{
		utils.FormatDate(t.Date),
		t.Symbol,
		string(t.Side),
		strconv.FormatInt(t.Quantity, 10),
		t.Price.String(),
		string(t.Reason),
	}
}

// writeTemp writes rows to a hidden temp file next to name and returns its path.
func (r *csvPortfolioRepository) writeTemp(name string, rows [][]string) (string, error) {
	return r.stageAppend(name, nil, rows)
}

// stageAppend writes a temp copy of name followed by rows. A missing file is
// started with header. The live file is left untouched.
func (r *csvPortfolioRepository) stageAppend(name string, header []string, rows [][]string) (string, error) {
	f, err := os.CreateTemp(r.dir, "."+name+"-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	fail := func(err error) (string, error) {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("failed to stage %s: %w", name, err)
	}

	if header != nil {
		existing, err := os.ReadFile(r.path(name))
		switch {
		case errors.Is(err, os.ErrNotExist) || (err == nil && len(existing) == 0):
			rows = append([][]string{header}, rows...)
		case err != nil:
			return fail(err)
		default:
			if existing[len(existing)-1] != '\n' {
				existing = append(existing, '\n')
			}
			if _, err := f.Write(existing); err != nil {
				return fail(err)
			}
		}
	}

	w := csv.NewWriter(f)
	if err := w.WriteAll(rows); err != nil {
		return fail(err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}

type stagedFile struct {
	name string
	tmp  string
}

// commitStaged swaps every staged file into place. When a swap fails, the files
// already swapped are restored from their backups and the rest are discarded.
func (r *csvPortfolioRepository) commitStaged(files []stagedFile) error {
	type swapped struct {
		target, backup string
		hadOld         bool
	}
	var done []swapped
	rollback := func(from int) {
		for i := len(done) - 1; i >= 0; i-- {
			if done[i].hadOld {
				os.Rename(done[i].backup, done[i].target)
			} else {
				os.Remove(done[i].target)
			}
		}
		for _, f := range files[from:] {
			os.Remove(f.tmp)
		}
	}

	for i, f := range files {
		sw := swapped{target: r.path(f.name), backup: r.path("." + f.name + ".bak")}
		if err := os.Rename(sw.target, sw.backup); err == nil {
			sw.hadOld = true
		} else if !errors.Is(err, os.ErrNotExist) {
			rollback(i)
			return fmt.Errorf("failed to back up %s: %w", f.name, err)
		}
		if err := os.Rename(f.tmp, sw.target); err != nil {
			if sw.hadOld {
				os.Rename(sw.backup, sw.target)
			}
			rollback(i)
			return fmt.Errorf("failed to replace %s: %w", f.name, err)
		}
		done = append(done, sw)
	}

	for _, sw := range done {
		if sw.hadOld {
			os.Remove(sw.backup)
		}
	}
	return nil
}

func (r *csvPortfolioRepository) readEquity() ([]entity.EquityPoint, error) {
	rows, err := readRows(r.path(equityFile))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	points := make([]entity.EquityPoint, 0, len(rows))
	for _, row := range rows {
		if len(row) < 2 {
			continue
		}
		d, err := utils.ParseDate(row[0])
		if err != nil {
			continue
		}
		points = append(points, entity.EquityPoint{Date: d, Equity: parseDecimal(row[1])})
	}
	return points, nil
}

// SaveRun stages the trade log, equity curve and portfolio, then swaps them into
// place together. The equity curve only grows forward: a run dated on or
// before the last saved point is refused with ErrRunAlreadySaved, so trades are
// never logged twice for one session.
func (r *csvPortfolioRepository) SaveRun(ctx context.Context, run entity.RunRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	points, err := r.readEquity()
	if err != nil {
		return err
	}
	point := run.Equity
	point.Date = utils.TruncateDate(point.Date)
	for _, p := range points {
		if !point.Date.After(p.Date) {
			return fmt.Errorf("%w: %s (saved %s)", ErrRunAlreadySaved, utils.FormatDate(point.Date), utils.FormatDate(p.Date))
		}
	}

	var staged []stagedFile
	discard := func() {
		for _, f := range staged {
			os.Remove(f.tmp)
		}
	}

	if len(run.Trades) > 0 {
		rows := make([][]string, 0, len(run.Trades))
		for _, t := range run.Trades {
			rows = append(rows, tradeRow(t))
		}
		tmp, err := r.stageAppend(tradesFile, tradeHeader, rows)
		if err != nil {
			return err
		}
		staged = append(staged, stagedFile{name: tradesFile, tmp: tmp})
	}

	equityTmp, err := r.stageAppend(equityFile, equityHeader, [][]string{{utils.FormatDate(point.Date), point.Equity.String()}})
	if err != nil {
		discard()
		return err
	}
	staged = append(staged, stagedFile{name: equityFile, tmp: equityTmp})

	portfolioTmp, err := r.writeTemp(portfolioFile, portfolioRows(run.Portfolio))
	if err != nil {
		discard()
		return err
	}
	staged = append(staged, stagedFile{name: portfolioFile, tmp: portfolioTmp})

	if err := r.commitStaged(staged); err != nil {
		return err
	}

	if run.Decision != nil {
		if err := r.appendDecision(*run.Decision); err != nil {
			r.logger.Warn("Failed to append decision log", logger.ErrorField(err), logger.StringField("run_id", run.RunID))
		}
	}
	return nil
}

func (r *csvPortfolioRepository) appendDecision(d entity.DecisionLog) error {
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}
	line, err := json.Marshal(d)
	if err != nil {
		return err
	}
	f, err := os.OpenFile(r.path(decisionsFile), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	w.Write(line)
	w.WriteByte('\n')
	return w.Flush()
}

func (r *csvPortfolioRepository) ListTrades(ctx context.Context, filter dto.TradeFilter) ([]entity.Trade, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows, err := readRows(r.path(tradesFile))
	if errors.Is(err, os.ErrNotExist) {
		return []entity.Trade{}, nil
	}
	if err != nil {
		return nil, err
	}

	trades := make([]entity.Trade, 0, len(rows))
	for _, row := range rows {
		if len(row) < len(tradeHeader) {
			continue
		}
		d, err := utils.ParseDate(row[0])
		if err != nil {
			continue
		}
		t := entity.Trade{
			Date:     d,
			Symbol:   row[1],
			Side:     entity.TradeSide(strings.ToUpper(row[2])),
			Quantity: parseShares(row[3]),
			Price:    parseDecimal(row[4]),
			Reason:   entity.TradeReason(strings.ToUpper(row[5])),
		}
		if matchTrade(t, filter) {
			trades = append(trades, t)
		}
	}
	return trades, nil
}

func (r *csvPortfolioRepository) ListEquity(ctx context.Context) ([]entity.EquityPoint, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	points, err := r.readEquity()
	if err != nil {
		return nil, err
	}
	if points == nil {
		points = []entity.EquityPoint{}
	}
	return points, nil
}
