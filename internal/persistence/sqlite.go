package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tathienbao/strategy-engine/internal/types"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository opens (or creates) the database at path and runs
// migrations.
func NewSQLiteRepository(path string) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	repo := &SQLiteRepository{db: db}

	if err := repo.Migrate(context.Background()); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return repo, nil
}

// Migrate runs database migrations.
func (r *SQLiteRepository) Migrate(ctx context.Context) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS strategy_state (
			strategy_id TEXT NOT NULL,
			key TEXT NOT NULL,
			value TEXT NOT NULL,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (strategy_id, key)
		)`,

		`CREATE TABLE IF NOT EXISTS orders (
			id TEXT PRIMARY KEY,
			strategy_id TEXT NOT NULL,
			symbol TEXT NOT NULL,
			venue TEXT NOT NULL,
			side INTEGER NOT NULL,
			type INTEGER NOT NULL,
			quantity TEXT NOT NULL,
			price TEXT NOT NULL,
			purpose INTEGER NOT NULL,
			time_in_force INTEGER NOT NULL,
			status INTEGER NOT NULL,
			order_time DATETIME NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_orders_strategy ON orders(strategy_id)`,

		`CREATE TABLE IF NOT EXISTS fills (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			order_id TEXT NOT NULL,
			symbol TEXT NOT NULL,
			venue TEXT NOT NULL,
			side INTEGER NOT NULL,
			fill_price TEXT NOT NULL,
			filled_qty TEXT NOT NULL,
			fill_time DATETIME NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_fills_time ON fills(fill_time)`,

		`CREATE TABLE IF NOT EXISTS positions (
			id TEXT PRIMARY KEY,
			strategy_id TEXT NOT NULL,
			symbol TEXT NOT NULL,
			venue TEXT NOT NULL,
			market_position INTEGER NOT NULL,
			quantity TEXT NOT NULL,
			avg_entry_price TEXT NOT NULL,
			entry_time DATETIME NOT NULL,
			exit_time DATETIME,
			fill_count INTEGER NOT NULL DEFAULT 0,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_positions_strategy ON positions(strategy_id)`,

		`CREATE TABLE IF NOT EXISTS equity_snapshots (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp DATETIME NOT NULL,
			equity TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_equity_timestamp ON equity_snapshots(timestamp)`,
	}

	for _, migration := range migrations {
		if _, err := r.db.ExecContext(ctx, migration); err != nil {
			return fmt.Errorf("execute migration: %w", err)
		}
	}

	return nil
}

// SaveStrategyState upserts the full key/value state of a strategy in a
// single transaction. Keys absent from state are removed so a load
// mirrors the last save exactly.
func (r *SQLiteRepository) SaveStrategyState(ctx context.Context, strategyID types.StrategyID, state map[string]string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM strategy_state WHERE strategy_id = ?`, string(strategyID)); err != nil {
		return fmt.Errorf("clear strategy state: %w", err)
	}

	for key, value := range state {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO strategy_state (strategy_id, key, value) VALUES (?, ?, ?)`,
			string(strategyID), key, value); err != nil {
			return fmt.Errorf("insert strategy state: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit strategy state: %w", err)
	}
	return nil
}

// LoadStrategyState returns the saved key/value state of a strategy.
// A strategy with no saved state yields an empty map.
func (r *SQLiteRepository) LoadStrategyState(ctx context.Context, strategyID types.StrategyID) (map[string]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT key, value FROM strategy_state WHERE strategy_id = ?`, string(strategyID))
	if err != nil {
		return nil, fmt.Errorf("query strategy state: %w", err)
	}
	defer func() { _ = rows.Close() }()

	state := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		state[key] = value
	}

	return state, rows.Err()
}

// SaveOrder upserts an order audit record.
func (r *SQLiteRepository) SaveOrder(ctx context.Context, strategyID types.StrategyID, order types.Order) error {
	query := `INSERT OR REPLACE INTO orders
		(id, strategy_id, symbol, venue, side, type, quantity, price, purpose, time_in_force, status, order_time)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		string(order.ID),
		string(strategyID),
		order.Symbol.Code,
		order.Symbol.Venue,
		order.Side,
		order.Type,
		order.Quantity.String(),
		order.Price.String(),
		order.Purpose,
		order.TimeInForce,
		order.Status,
		order.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	return nil
}

// GetOrders returns all order audit records for a strategy, oldest
// first.
func (r *SQLiteRepository) GetOrders(ctx context.Context, strategyID types.StrategyID) ([]types.Order, error) {
	query := `SELECT id, symbol, venue, side, type, quantity, price, purpose, time_in_force, status, order_time
		FROM orders WHERE strategy_id = ? ORDER BY order_time, id`

	rows, err := r.db.QueryContext(ctx, query, string(strategyID))
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var orders []types.Order
	for rows.Next() {
		var o types.Order
		var id, code, venue, quantity, price string

		if err := rows.Scan(&id, &code, &venue, &o.Side, &o.Type, &quantity, &price,
			&o.Purpose, &o.TimeInForce, &o.Status, &o.Timestamp); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}

		o.ID = types.OrderID(id)
		o.Symbol = types.Symbol{Code: code, Venue: venue}
		o.Quantity, _ = decimal.NewFromString(quantity)
		o.Price, _ = decimal.NewFromString(price)

		orders = append(orders, o)
	}

	return orders, rows.Err()
}

// SaveFill saves an execution fill.
func (r *SQLiteRepository) SaveFill(ctx context.Context, fill FillRecord) error {
	query := `INSERT INTO fills (order_id, symbol, venue, side, fill_price, filled_qty, fill_time)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		string(fill.OrderID),
		fill.Symbol.Code,
		fill.Symbol.Venue,
		fill.Side,
		fill.FillPrice.String(),
		fill.FilledQty.String(),
		fill.FillTime,
	)
	if err != nil {
		return fmt.Errorf("insert fill: %w", err)
	}

	return nil
}

// GetFills returns fills in a time range, oldest first.
func (r *SQLiteRepository) GetFills(ctx context.Context, from, to time.Time) ([]FillRecord, error) {
	query := `SELECT id, order_id, symbol, venue, side, fill_price, filled_qty, fill_time
		FROM fills WHERE fill_time BETWEEN ? AND ? ORDER BY fill_time, id`

	rows, err := r.db.QueryContext(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("query fills: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var fills []FillRecord
	for rows.Next() {
		var f FillRecord
		var orderID, code, venue, price, qty string

		if err := rows.Scan(&f.ID, &orderID, &code, &venue, &f.Side, &price, &qty, &f.FillTime); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}

		f.OrderID = types.OrderID(orderID)
		f.Symbol = types.Symbol{Code: code, Venue: venue}
		f.FillPrice, _ = decimal.NewFromString(price)
		f.FilledQty, _ = decimal.NewFromString(qty)

		fills = append(fills, f)
	}

	return fills, rows.Err()
}

// SavePosition upserts a position audit record.
func (r *SQLiteRepository) SavePosition(ctx context.Context, strategyID types.StrategyID, position types.Position) error {
	query := `INSERT OR REPLACE INTO positions
		(id, strategy_id, symbol, venue, market_position, quantity, avg_entry_price, entry_time, exit_time, fill_count, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)`

	var exitTime interface{}
	if !position.ExitTime.IsZero() {
		exitTime = position.ExitTime
	}

	_, err := r.db.ExecContext(ctx, query,
		string(position.ID),
		string(strategyID),
		position.Symbol.Code,
		position.Symbol.Venue,
		position.MarketPosition,
		position.Quantity.String(),
		position.AvgEntryPrice.String(),
		position.EntryTime,
		exitTime,
		position.FillCount,
	)
	if err != nil {
		return fmt.Errorf("insert position: %w", err)
	}

	return nil
}

// GetClosedPositions returns flat positions that saw at least one fill,
// oldest exit first.
func (r *SQLiteRepository) GetClosedPositions(ctx context.Context, strategyID types.StrategyID) ([]types.Position, error) {
	query := `SELECT id, symbol, venue, market_position, quantity, avg_entry_price, entry_time, exit_time, fill_count
		FROM positions WHERE strategy_id = ? AND market_position = ? AND fill_count > 0
		ORDER BY exit_time, id`

	rows, err := r.db.QueryContext(ctx, query, string(strategyID), types.MarketPositionFlat)
	if err != nil {
		return nil, fmt.Errorf("query positions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var positions []types.Position
	for rows.Next() {
		var p types.Position
		var id, code, venue, quantity, avgEntry string
		var exitTime sql.NullTime

		if err := rows.Scan(&id, &code, &venue, &p.MarketPosition, &quantity, &avgEntry,
			&p.EntryTime, &exitTime, &p.FillCount); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}

		p.ID = types.PositionID(id)
		p.Symbol = types.Symbol{Code: code, Venue: venue}
		p.Quantity, _ = decimal.NewFromString(quantity)
		p.AvgEntryPrice, _ = decimal.NewFromString(avgEntry)
		if exitTime.Valid {
			p.ExitTime = exitTime.Time
		}

		positions = append(positions, p)
	}

	return positions, rows.Err()
}

// SaveEquitySnapshot saves an equity snapshot.
func (r *SQLiteRepository) SaveEquitySnapshot(ctx context.Context, snapshot EquitySnapshot) error {
	query := `INSERT INTO equity_snapshots (timestamp, equity) VALUES (?, ?)`

	_, err := r.db.ExecContext(ctx, query, snapshot.Timestamp, snapshot.Equity.String())
	if err != nil {
		return fmt.Errorf("insert equity snapshot: %w", err)
	}

	return nil
}

// GetEquityHistory returns equity snapshots in a time range.
func (r *SQLiteRepository) GetEquityHistory(ctx context.Context, from, to time.Time) ([]EquitySnapshot, error) {
	query := `SELECT id, timestamp, equity FROM equity_snapshots
		WHERE timestamp BETWEEN ? AND ? ORDER BY timestamp, id`

	rows, err := r.db.QueryContext(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("query equity history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var snapshots []EquitySnapshot
	for rows.Next() {
		var s EquitySnapshot
		var equity string

		if err := rows.Scan(&s.ID, &s.Timestamp, &equity); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		s.Equity, _ = decimal.NewFromString(equity)

		snapshots = append(snapshots, s)
	}

	return snapshots, rows.Err()
}

// Close closes the database connection.
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}
