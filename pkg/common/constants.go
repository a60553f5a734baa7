package common

const (
	// CashSymbol marks the portfolio row carrying only the cash balance.
	CashSymbol = "CASH"

	// DefaultMicroCapThresholdUsd is the market cap above which buys are rejected when an
	// order set asks for micro-caps only.
	DefaultMicroCapThresholdUsd = 300_000_000

	// DefaultStartingCash is the equity a brand new portfolio starts with.
	DefaultStartingCash = 100

	// RedisKeyLastClose caches a close price per symbol and date.
	RedisKeyLastClose = "last_close:%s:%s"
)
