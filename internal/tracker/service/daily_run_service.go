package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang-microcap-tracker/internal/engine"
	"golang-microcap-tracker/internal/entity"
	"golang-microcap-tracker/internal/tracker/config"
	"golang-microcap-tracker/internal/tracker/dto"
	"golang-microcap-tracker/internal/tracker/repository"
	"golang-microcap-tracker/pkg/logger"
	"golang-microcap-tracker/pkg/telegram"
	"golang-microcap-tracker/pkg/utils"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// ErrRunInProgress is returned when a daily run is requested while another one
// is still executing in this process.
var ErrRunInProgress = errors.New("a daily run is already in progress")

// DailyRunService executes the daily pipeline: stop-loss, decision, execution,
// valuation and persistence.
type DailyRunService interface {
	Run(ctx context.Context, opts dto.RunOptions) (*dto.RunReport, error)
}

type dailyRunService struct {
	store     repository.PortfolioRepository
	decisions repository.DecisionRepository
	news      repository.NewsRepository
	notifier  telegram.Notifier

	stopLoss *engine.StopLossEvaluator
	executor *engine.OrderExecutor
	valuator *engine.Valuator

	aiEnabled    bool
	startingCash decimal.Decimal
	now          func() time.Time

	mu     sync.Mutex
	logger *logger.Logger
}

// NewDailyRunService wires the engine to its oracles and the store. decisions,
// news and notifier may be nil: a nil decision provider disables the AI step.
func NewDailyRunService(
	cfg *config.Config,
	store repository.PortfolioRepository,
	prices repository.PriceRepository,
	decisions repository.DecisionRepository,
	news repository.NewsRepository,
	notifier telegram.Notifier,
	log *logger.Logger,
) (DailyRunService, error) {
	opts, err := cfg.Engine.Options()
	if err != nil {
		return nil, fmt.Errorf("invalid engine config: %w", err)
	}
	return &dailyRunService{
		store:        store,
		decisions:    decisions,
		news:         news,
		notifier:     notifier,
		stopLoss:     engine.NewStopLossEvaluator(prices, opts),
		executor:     engine.NewOrderExecutor(opts),
		valuator:     engine.NewValuator(prices, opts),
		aiEnabled:    cfg.AI.Enabled && decisions != nil,
		startingCash: cfg.Engine.StartingCashDecimal(),
		now:          utils.TimeNowUTC,
		logger:       log,
	}, nil
}

// Run executes one daily run. Nothing is persisted unless every step succeeds.
func (s *dailyRunService) Run(ctx context.Context, opts dto.RunOptions) (*dto.RunReport, error) {
	if !s.mu.TryLock() {
		return nil, ErrRunInProgress
	}
	defer s.mu.Unlock()

	start := time.Now()
	runID := uuid.NewString()
	ctx = logger.WithRunID(ctx, runID)

	asOf := opts.AsOf
	if asOf.IsZero() {
		asOf = utils.DefaultAsOf(s.now())
	}
	asOf = utils.TruncateDate(asOf)

	s.logger.InfoContext(ctx, "Starting daily run",
		logger.StringField("as_of", utils.FormatDate(asOf)),
		logger.StringField("trigger", string(opts.Trigger)),
		logger.Field("no_ai", opts.NoAI),
		logger.Field("weekly", opts.Weekly),
	)

	report, err := s.run(ctx, runID, asOf, opts)
	if err != nil {
		s.logger.ErrorContext(ctx, "Daily run failed", logger.ErrorField(err), logger.StringField("as_of", utils.FormatDate(asOf)))
		s.notify(ctx, telegram.FormatRunFailure(asOf, runID, err))
		return nil, err
	}
	report.Duration = time.Since(start)

	s.logger.InfoContext(ctx, "Daily run completed",
		logger.StringField("as_of", utils.FormatDate(asOf)),
		logger.StringerField("equity", report.Equity),
		logger.StringerField("cash", report.Cash),
		logger.IntField("trades", len(report.Trades())),
		logger.IntField("skipped", len(report.Skipped())),
		logger.Field("duration", report.Duration),
	)
	s.notify(ctx, telegram.FormatRunReport(report)...)
	return report, nil
}

func (s *dailyRunService) run(ctx context.Context, runID string, asOf time.Time, opts dto.RunOptions) (*dto.RunReport, error) {
	p, err := s.store.Load(ctx)
	if errors.Is(err, repository.ErrPortfolioNotFound) {
		s.logger.InfoContext(ctx, "No saved portfolio, starting fresh", logger.StringerField("cash", s.startingCash))
		p = entity.NewPortfolio(s.startingCash)
	} else if err != nil {
		return nil, fmt.Errorf("failed to load portfolio: %w", err)
	}
	if err := engine.CheckInvariants(p); err != nil {
		return nil, fmt.Errorf("stored portfolio is inconsistent: %w", err)
	}

	p, stopTrades, err := s.stopLoss.Evaluate(ctx, p, asOf)
	if err != nil {
		return nil, fmt.Errorf("stop-loss evaluation failed: %w", err)
	}
	for _, t := range stopTrades {
		s.logger.InfoContext(ctx, "Stop-loss triggered",
			logger.StringField("symbol", t.Symbol),
			logger.Field("quantity", t.Quantity),
			logger.StringerField("price", t.Price),
		)
	}

	report := &dto.RunReport{
		RunID:          runID,
		AsOf:           asOf,
		StopLossTrades: stopTrades,
		DecisionTrades: []entity.Trade{},
	}

	var decision *entity.DecisionLog
	if s.aiEnabled && !opts.NoAI {
		var set entity.OrderSet
		set, err = s.propose(ctx, p, asOf, opts)
		if err != nil {
			return nil, err
		}

		batch := s.executor.Apply(p, set, asOf)
		p = batch.Portfolio
		report.DecisionTrades = batch.Trades
		report.Results = batch.Results
		report.AIUsed = true
		report.Provider = s.decisions.Provider()
		report.Model = s.decisions.Model(opts.Model)

		for _, res := range batch.Skipped() {
			s.logger.WarnContext(ctx, "Order skipped",
				logger.StringField("side", string(res.Side)),
				logger.StringField("symbol", res.Order.Symbol),
				logger.Field("quantity", res.Order.Quantity),
				logger.StringField("reason", string(res.Reason)),
			)
		}

		decision, err = newDecisionLog(runID, asOf, report.Provider, report.Model, set, batch.Results)
		if err != nil {
			return nil, err
		}
	}

	p, equity, err := s.valuator.Valuate(ctx, p, asOf)
	if err != nil {
		return nil, fmt.Errorf("valuation failed: %w", err)
	}
	if err := engine.CheckInvariants(p); err != nil {
		return nil, fmt.Errorf("portfolio invariant violated: %w", err)
	}

	record := entity.RunRecord{
		RunID:     runID,
		AsOf:      asOf,
		Portfolio: p,
		Trades:    report.Trades(),
		Equity:    entity.EquityPoint{Date: asOf, Equity: equity},
		Decision:  decision,
	}
	if err := s.store.SaveRun(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to save run: %w", err)
	}

	report.Equity = equity
	report.Cash = p.Cash
	report.Holdings = p.Holdings
	return report, nil
}

// propose asks the decision provider for today's orders. Headlines are
// optional context; a news failure never fails the run.
func (s *dailyRunService) propose(ctx context.Context, p entity.Portfolio, asOf time.Time, opts dto.RunOptions) (entity.OrderSet, error) {
	req := dto.DecisionRequest{
		Portfolio:    p.Clone(),
		AsOf:         asOf,
		DeepResearch: opts.Weekly,
		Model:        opts.Model,
	}
	if s.news != nil {
		headlines, err := s.news.Headlines(ctx)
		if err != nil {
			s.logger.WarnContext(ctx, "Headlines unavailable, continuing without", logger.ErrorField(err))
		} else {
			req.Headlines = headlines
		}
	}

	s.logger.DebugContext(ctx, "Requesting order set",
		logger.StringField("provider", s.decisions.Provider()),
		logger.StringField("model", s.decisions.Model(opts.Model)),
		logger.IntField("headlines", len(req.Headlines)),
	)
	set, err := s.decisions.Propose(ctx, req)
	if err != nil {
		return entity.OrderSet{}, fmt.Errorf("decision provider failed: %w", err)
	}
	s.logger.InfoContext(ctx, "Received order set",
		logger.IntField("buys", len(set.Buys)),
		logger.IntField("sells", len(set.Sells)),
		logger.Field("micro_cap_only", set.MicroCapOnly),
	)
	return set, nil
}

func newDecisionLog(runID string, asOf time.Time, provider, model string, set entity.OrderSet, results []engine.OrderResult) (*entity.DecisionLog, error) {
	setJSON, err := json.Marshal(set)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal order set: %w", err)
	}
	resultsJSON, err := json.Marshal(results)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal order results: %w", err)
	}
	return &entity.DecisionLog{
		RunID:    runID,
		AsOf:     asOf,
		Provider: provider,
		Model:    model,
		OrderSet: datatypes.JSON(setJSON),
		Results:  datatypes.JSON(resultsJSON),
	}, nil
}

func (s *dailyRunService) notify(ctx context.Context, messages ...string) {
	if s.notifier == nil {
		return
	}
	for _, msg := range messages {
		if err := s.notifier.SendMessage(msg); err != nil {
			s.logger.WarnContext(ctx, "Failed to send telegram notification", logger.ErrorField(err))
			return
		}
	}
}
