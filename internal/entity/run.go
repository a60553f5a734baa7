package entity

import (
	"time"

	"gorm.io/datatypes"
)

// DecisionLog records what the decision oracle proposed during a run and what
// became of every order.
type DecisionLog struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	RunID     string         `gorm:"uniqueIndex;not null" json:"run_id"`
	AsOf      time.Time      `gorm:"index;not null" json:"as_of"`
	Provider  string         `gorm:"not null" json:"provider"`
	Model     string         `json:"model"`
	OrderSet  datatypes.JSON `json:"order_set"`
	Results   datatypes.JSON `json:"results"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
}

func (DecisionLog) TableName() string {
	return "decision_logs"
}

// RunRecord is everything a successful run persists, in one unit.
type RunRecord struct {
	RunID     string
	AsOf      time.Time
	Portfolio Portfolio
	Trades    []Trade
	Equity    EquityPoint
	Decision  *DecisionLog
}
