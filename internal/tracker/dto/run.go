package dto

import (
	"time"

	"golang-microcap-tracker/internal/engine"
	"golang-microcap-tracker/internal/entity"

	"github.com/shopspring/decimal"
)

// Trigger names what started a run.
type Trigger string

const (
	TriggerCLI  Trigger = "cli"
	TriggerCron Trigger = "cron"
	TriggerAPI  Trigger = "api"
)

// RunOptions mirror the command-line surface of a daily run.
type RunOptions struct {
	AsOf    time.Time
	NoAI    bool
	Weekly  bool
	Model   string
	Trigger Trigger
}

// RunReport summarises a completed run.
type RunReport struct {
	RunID          string               `json:"run_id"`
	AsOf           time.Time            `json:"as_of"`
	Equity         decimal.Decimal      `json:"equity"`
	Cash           decimal.Decimal      `json:"cash"`
	Holdings       []entity.Holding     `json:"holdings"`
	StopLossTrades []entity.Trade       `json:"stop_loss_trades"`
	DecisionTrades []entity.Trade       `json:"decision_trades"`
	Results        []engine.OrderResult `json:"results,omitempty"`
	AIUsed         bool                 `json:"ai_used"`
	Provider       string               `json:"provider,omitempty"`
	Model          string               `json:"model,omitempty"`
	Duration       time.Duration        `json:"duration"`
}

// Trades returns every trade of the run in emission order.
func (r *RunReport) Trades() []entity.Trade {
	out := make([]entity.Trade, 0, len(r.StopLossTrades)+len(r.DecisionTrades))
	out = append(out, r.StopLossTrades...)
	return append(out, r.DecisionTrades...)
}

// Skipped returns the orders that were not applied.
func (r *RunReport) Skipped() []engine.OrderResult {
	var out []engine.OrderResult
	for _, res := range r.Results {
		if !res.Applied() {
			out = append(out, res)
		}
	}
	return out
}

// RunRequest is the body of POST /api/v1/runs. AsOf is YYYY-MM-DD.
type RunRequest struct {
	AsOf   string `json:"as_of"`
	NoAI   bool   `json:"no_ai"`
	Weekly bool   `json:"weekly"`
	Model  string `json:"model"`
}
