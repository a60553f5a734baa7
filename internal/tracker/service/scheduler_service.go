package service

import (
	"context"
	"errors"
	"fmt"
	"time"
	_ "time/tzdata"

	"golang-microcap-tracker/internal/tracker/config"
	"golang-microcap-tracker/internal/tracker/dto"
	"golang-microcap-tracker/pkg/logger"
	"golang-microcap-tracker/pkg/utils"

	"github.com/robfig/cron/v3"
)

// SchedulerService triggers the daily run on a cron schedule.
type SchedulerService interface {
	Start(ctx context.Context) error
	RunScheduled(ctx context.Context, now time.Time)
}

type schedulerService struct {
	runner   DailyRunService
	cronSpec string
	location *time.Location
	weekly   bool
	weekday  time.Weekday
	parser   cron.Parser
	logger   *logger.Logger
}

// NewSchedulerService validates the cron expression, time zone and weekly day.
func NewSchedulerService(cfg *config.Config, runner DailyRunService, log *logger.Logger) (SchedulerService, error) {
	loc, err := time.LoadLocation(cfg.Scheduler.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("invalid scheduler time zone: %w", err)
	}
	day, weekly, err := cfg.Scheduler.Weekday()
	if err != nil {
		return nil, err
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	if _, err := parser.Parse(cfg.Scheduler.Cron); err != nil {
		return nil, fmt.Errorf("invalid scheduler cron %q: %w", cfg.Scheduler.Cron, err)
	}

	return &schedulerService{
		runner:   runner,
		cronSpec: cfg.Scheduler.Cron,
		location: loc,
		weekly:   weekly,
		weekday:  day,
		parser:   parser,
		logger:   log,
	}, nil
}

// Start runs the cron loop until ctx is cancelled, then waits for a running
// job to finish.
func (s *schedulerService) Start(ctx context.Context) error {
	c := cron.New(
		cron.WithLocation(s.location),
		cron.WithParser(s.parser),
		cron.WithChain(cron.Recover(cron.DefaultLogger)),
	)
	if _, err := c.AddFunc(s.cronSpec, func() {
		s.RunScheduled(ctx, time.Now())
	}); err != nil {
		return fmt.Errorf("failed to schedule daily run: %w", err)
	}

	c.Start()
	s.logger.Info("Scheduler started", logger.StringField("cron", s.cronSpec), logger.StringField("time_zone", s.location.String()))

	<-ctx.Done()
	s.logger.Info("Scheduler service stopping")
	<-c.Stop().Done()
	return nil
}

// RunScheduled runs the day before now in the scheduler's time zone. The
// deep-research flag is set when that day is the configured weekday.
func (s *schedulerService) RunScheduled(ctx context.Context, now time.Time) {
	asOf := utils.TruncateDate(now.In(s.location)).AddDate(0, 0, -1)
	opts := dto.RunOptions{
		AsOf:    asOf,
		Weekly:  s.weekly && asOf.Weekday() == s.weekday,
		Trigger: dto.TriggerCron,
	}

	report, err := s.runner.Run(ctx, opts)
	if errors.Is(err, ErrRunInProgress) {
		s.logger.Warn("Skipping scheduled run, another run is in progress", logger.StringField("as_of", utils.FormatDate(asOf)))
		return
	}
	if err != nil {
		s.logger.Error("Scheduled run failed", logger.ErrorField(err), logger.StringField("as_of", utils.FormatDate(asOf)))
		return
	}
	s.logger.Info("Scheduled run finished", logger.StringField("run_id", report.RunID), logger.StringerField("equity", report.Equity))
}
