package entity

import "github.com/shopspring/decimal"

// Order is one proposed buy or sell. Optional fields are nil when the decision
// oracle omitted them. A non-positive sell quantity means "sell everything".
type Order struct {
	Symbol          string           `json:"symbol"`
	Quantity        int64            `json:"quantity"`
	AssumedPrice    *decimal.Decimal `json:"assumedPrice,omitempty"`
	StopLossPercent *decimal.Decimal `json:"stopLossPercent,omitempty"`
	MarketCapUsd    *decimal.Decimal `json:"marketCapUsd,omitempty"`
}

// OrderSet is the decision oracle's output for one run. It is consumed once and
// only persisted through its effects and the decision log.
type OrderSet struct {
	MicroCapOnly bool    `json:"microCapOnly"`
	Buys         []Order `json:"buys"`
	Sells        []Order `json:"sells"`
}

// IsEmpty reports whether the set carries no orders at all.
func (o OrderSet) IsEmpty() bool {
	return len(o.Buys) == 0 && len(o.Sells) == 0
}
