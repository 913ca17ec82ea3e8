// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"time"

	"monad-trader/internal/models"
)

// DataStore defines the interface for data persistence.
type DataStore interface {
	// Decisions
	CreateDecision(ctx context.Context, record *models.DecisionRecord) error
	UpdateDecisionExecution(ctx context.Context, id string, results []models.ActionResult, executedAt time.Time) error
	GetDecisions(ctx context.Context, filter DecisionFilter) ([]models.DecisionRecord, error)
	GetDecisionByID(ctx context.Context, id string) (*models.DecisionRecord, error)

	// Trades
	LogTrade(ctx context.Context, trade *models.TradeLog) error
	GetTrades(ctx context.Context, filter TradeFilter) ([]models.TradeLog, error)

	Close() error
}

// DecisionFilter filters decision history queries.
type DecisionFilter struct {
	StartDate time.Time
	EndDate   time.Time
	Executed  *bool
	Limit     int
}

// TradeFilter filters trade history queries.
type TradeFilter struct {
	Pair      string
	Status    models.ExecutionStatus
	StartDate time.Time
	EndDate   time.Time
	Limit     int
}
