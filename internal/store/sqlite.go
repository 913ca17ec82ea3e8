package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"monad-trader/internal/models"
)

// SQLiteStore implements DataStore using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite data store.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// initSchema creates the database tables if they don't exist.
func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS decision_history (
		id TEXT PRIMARY KEY,
		created_at DATETIME NOT NULL,
		trading TEXT NOT NULL,
		lending TEXT NOT NULL,
		lending_market TEXT,
		execution_results TEXT,
		executed_at DATETIME
	);
	CREATE INDEX IF NOT EXISTS idx_decisions_created ON decision_history(created_at);

	CREATE TABLE IF NOT EXISTS trading_history (
		id TEXT PRIMARY KEY,
		timestamp DATETIME NOT NULL,
		pair TEXT NOT NULL,
		action TEXT NOT NULL,
		token_in TEXT NOT NULL,
		token_out TEXT NOT NULL,
		amount_in TEXT NOT NULL,
		expected_amount_out TEXT,
		tx_hash TEXT,
		status TEXT NOT NULL,
		error TEXT,
		decision_id TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_trades_timestamp ON trading_history(timestamp);
	CREATE INDEX IF NOT EXISTS idx_trades_pair ON trading_history(pair);
	CREATE INDEX IF NOT EXISTS idx_trades_decision ON trading_history(decision_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateDecision persists a new decision record.
func (s *SQLiteStore) CreateDecision(ctx context.Context, record *models.DecisionRecord) error {
	trading, _ := json.Marshal(record.Trading)
	lending, _ := json.Marshal(record.Lending)
	market := ""
	if record.LendingMarket != nil {
		raw, _ := json.Marshal(record.LendingMarket)
		market = string(raw)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO decision_history (id, created_at, trading, lending, lending_market)
		VALUES (?, ?, ?, ?, ?)
	`, record.ID, record.CreatedAt, string(trading), string(lending), market)
	if err != nil {
		return fmt.Errorf("failed to save decision: %w", err)
	}
	return nil
}

// UpdateDecisionExecution records the execution outcome of a decision.
func (s *SQLiteStore) UpdateDecisionExecution(ctx context.Context, id string, results []models.ActionResult, executedAt time.Time) error {
	raw, _ := json.Marshal(results)

	res, err := s.db.ExecContext(ctx, `
		UPDATE decision_history SET execution_results = ?, executed_at = ? WHERE id = ?
	`, string(raw), executedAt, id)
	if err != nil {
		return fmt.Errorf("failed to update decision execution: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("decision not found: %s", id)
	}
	return nil
}

// GetDecisions retrieves decision records from the database.
func (s *SQLiteStore) GetDecisions(ctx context.Context, filter DecisionFilter) ([]models.DecisionRecord, error) {
	query := "SELECT id, created_at, trading, lending, COALESCE(lending_market, ''), COALESCE(execution_results, ''), executed_at FROM decision_history WHERE 1=1"
	args := []interface{}{}

	if !filter.StartDate.IsZero() {
		query += " AND created_at >= ?"
		args = append(args, filter.StartDate)
	}
	if !filter.EndDate.IsZero() {
		query += " AND created_at <= ?"
		args = append(args, filter.EndDate)
	}
	if filter.Executed != nil {
		if *filter.Executed {
			query += " AND executed_at IS NOT NULL"
		} else {
			query += " AND executed_at IS NULL"
		}
	}

	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query decisions: %w", err)
	}
	defer rows.Close()

	var records []models.DecisionRecord
	for rows.Next() {
		record, err := scanDecision(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *record)
	}

	return records, rows.Err()
}

// GetDecisionByID retrieves a single decision record.
func (s *SQLiteStore) GetDecisionByID(ctx context.Context, id string) (*models.DecisionRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, created_at, trading, lending, COALESCE(lending_market, ''), COALESCE(execution_results, ''), executed_at
		FROM decision_history WHERE id = ?
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query decision: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("decision not found: %s", id)
	}
	return scanDecision(rows)
}

func scanDecision(rows *sql.Rows) (*models.DecisionRecord, error) {
	var record models.DecisionRecord
	var tradingJSON, lendingJSON, marketJSON, resultsJSON string
	var executedAt sql.NullTime

	if err := rows.Scan(&record.ID, &record.CreatedAt, &tradingJSON, &lendingJSON, &marketJSON, &resultsJSON, &executedAt); err != nil {
		return nil, fmt.Errorf("failed to scan decision: %w", err)
	}

	json.Unmarshal([]byte(tradingJSON), &record.Trading)
	json.Unmarshal([]byte(lendingJSON), &record.Lending)
	if marketJSON != "" {
		var market models.LendingMetrics
		if json.Unmarshal([]byte(marketJSON), &market) == nil {
			record.LendingMarket = &market
		}
	}
	if resultsJSON != "" {
		json.Unmarshal([]byte(resultsJSON), &record.ExecutionResults)
	}
	if executedAt.Valid {
		t := executedAt.Time
		record.ExecutedAt = &t
	}
	return &record, nil
}

// LogTrade persists a trade log entry.
func (s *SQLiteStore) LogTrade(ctx context.Context, trade *models.TradeLog) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO trading_history (id, timestamp, pair, action, token_in, token_out, amount_in, expected_amount_out, tx_hash, status, error, decision_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, trade.ID, trade.Timestamp, trade.Pair, string(trade.Action), trade.TokenIn, trade.TokenOut, trade.AmountIn, trade.ExpectedAmountOut, trade.TxHash, string(trade.Status), trade.Error, trade.DecisionID)
	if err != nil {
		return fmt.Errorf("failed to log trade: %w", err)
	}
	return nil
}

// GetTrades retrieves trade logs from the database.
func (s *SQLiteStore) GetTrades(ctx context.Context, filter TradeFilter) ([]models.TradeLog, error) {
	query := "SELECT id, timestamp, pair, action, token_in, token_out, amount_in, COALESCE(expected_amount_out, ''), COALESCE(tx_hash, ''), status, COALESCE(error, ''), COALESCE(decision_id, '') FROM trading_history WHERE 1=1"
	args := []interface{}{}

	if filter.Pair != "" {
		query += " AND pair = ?"
		args = append(args, filter.Pair)
	}
	if filter.Status != "" {
		query += " AND status = ?"
		args = append(args, string(filter.Status))
	}
	if !filter.StartDate.IsZero() {
		query += " AND timestamp >= ?"
		args = append(args, filter.StartDate)
	}
	if !filter.EndDate.IsZero() {
		query += " AND timestamp <= ?"
		args = append(args, filter.EndDate)
	}

	query += " ORDER BY timestamp DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query trades: %w", err)
	}
	defer rows.Close()

	var trades []models.TradeLog
	for rows.Next() {
		var t models.TradeLog
		var action, status string
		if err := rows.Scan(&t.ID, &t.Timestamp, &t.Pair, &action, &t.TokenIn, &t.TokenOut, &t.AmountIn, &t.ExpectedAmountOut, &t.TxHash, &status, &t.Error, &t.DecisionID); err != nil {
			return nil, fmt.Errorf("failed to scan trade: %w", err)
		}
		t.Action = models.TradeAction(action)
		t.Status = models.ExecutionStatus(status)
		trades = append(trades, t)
	}

	return trades, rows.Err()
}
