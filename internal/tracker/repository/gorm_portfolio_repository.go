package repository

import (
	"context"
	"errors"
	"fmt"

	"golang-microcap-tracker/internal/entity"
	"golang-microcap-tracker/internal/tracker/dto"
	"golang-microcap-tracker/pkg/logger"
	"golang-microcap-tracker/pkg/utils"

	"gorm.io/gorm"
)

const portfolioStateID = 1

type gormPortfolioRepository struct {
	db     *gorm.DB
	logger *logger.Logger
}

// NewGormPortfolioRepository creates a store on a SQLite or PostgreSQL database.
func NewGormPortfolioRepository(db *gorm.DB, log *logger.Logger) PortfolioRepository {
	return &gormPortfolioRepository{db: db, logger: log}
}

// AutoMigrate creates the tracker tables. PostgreSQL deployments use the SQL
// migrations instead.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&entity.PortfolioState{},
		&entity.Holding{},
		&entity.Trade{},
		&entity.EquityPoint{},
		&entity.DecisionLog{},
	)
}

func (r *gormPortfolioRepository) Load(ctx context.Context) (entity.Portfolio, error) {
	var state entity.PortfolioState
	err := r.db.WithContext(ctx).First(&state, portfolioStateID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return entity.Portfolio{}, ErrPortfolioNotFound
	}
	if err != nil {
		return entity.Portfolio{}, fmt.Errorf("failed to load portfolio state: %w", err)
	}

	var holdings []entity.Holding
	if err := r.db.WithContext(ctx).Order("id").Find(&holdings).Error; err != nil {
		return entity.Portfolio{}, fmt.Errorf("failed to load holdings: %w", err)
	}

	p := entity.NewPortfolio(state.Cash)
	for _, h := range holdings {
		if h.Shares > 0 {
			p.Holdings = append(p.Holdings, h)
		}
	}
	return p, nil
}

// SaveRun replaces the holdings, appends trades and the equity point in a
// single transaction. A run dated on or before the latest equity point is
// refused with ErrRunAlreadySaved.
func (r *gormPortfolioRepository) SaveRun(ctx context.Context, run entity.RunRecord) error {
	point := run.Equity
	point.Date = utils.TruncateDate(point.Date)

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var latest []entity.EquityPoint
		if err := tx.Order("date desc").Limit(1).Find(&latest).Error; err != nil {
			return fmt.Errorf("failed to read latest equity point: %w", err)
		}
		if len(latest) > 0 && !point.Date.After(latest[0].Date) {
			return fmt.Errorf("%w: %s (saved %s)", ErrRunAlreadySaved, utils.FormatDate(point.Date), utils.FormatDate(latest[0].Date))
		}

		state := entity.PortfolioState{ID: portfolioStateID, Cash: run.Portfolio.Cash, AsOf: run.AsOf}
		if err := tx.Save(&state).Error; err != nil {
			return fmt.Errorf("failed to save portfolio state: %w", err)
		}

		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&entity.Holding{}).Error; err != nil {
			return fmt.Errorf("failed to clear holdings: %w", err)
		}
		if len(run.Portfolio.Holdings) > 0 {
			holdings := make([]entity.Holding, 0, len(run.Portfolio.Holdings))
			for _, h := range run.Portfolio.Holdings {
				h = h.Clone()
				h.ID = 0
				holdings = append(holdings, h)
			}
			if err := tx.Create(&holdings).Error; err != nil {
				return fmt.Errorf("failed to save holdings: %w", err)
			}
		}

		if len(run.Trades) > 0 {
			trades := make([]entity.Trade, len(run.Trades))
			for i, t := range run.Trades {
				t.ID = 0
				t.RunID = run.RunID
				trades[i] = t
			}
			if err := tx.Create(&trades).Error; err != nil {
				return fmt.Errorf("failed to append trades: %w", err)
			}
		}

		if err := tx.Create(&point).Error; err != nil {
			return fmt.Errorf("failed to save equity point: %w", err)
		}

		if run.Decision != nil {
			if err := tx.Create(run.Decision).Error; err != nil {
				return fmt.Errorf("failed to save decision log: %w", err)
			}
		}
		return nil
	})
}

func (r *gormPortfolioRepository) ListTrades(ctx context.Context, filter dto.TradeFilter) ([]entity.Trade, error) {
	q := r.db.WithContext(ctx).Model(&entity.Trade{})
	if filter.Symbol != "" {
		q = q.Where("symbol = ?", entity.NormalizeSymbol(filter.Symbol))
	}
	if filter.From != nil {
		q = q.Where("date >= ?", *filter.From)
	}
	if filter.To != nil {
		q = q.Where("date <= ?", *filter.To)
	}

	trades := []entity.Trade{}
	if err := q.Order("date, id").Find(&trades).Error; err != nil {
		return nil, fmt.Errorf("failed to list trades: %w", err)
	}
	return trades, nil
}

func (r *gormPortfolioRepository) ListEquity(ctx context.Context) ([]entity.EquityPoint, error) {
	points := []entity.EquityPoint{}
	if err := r.db.WithContext(ctx).Order("date").Find(&points).Error; err != nil {
		return nil, fmt.Errorf("failed to list equity: %w", err)
	}
	return points, nil
}
