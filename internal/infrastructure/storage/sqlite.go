package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/arbmon/crypto_arb_monitor/internal/domain"
	_ "github.com/mattn/go-sqlite3"
)

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, err
	}

	return store, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS monitoring_sessions (
			id TEXT PRIMARY KEY,
			context_id TEXT NOT NULL,
			symbol TEXT NOT NULL,
			exchanges TEXT NOT NULL,
			threshold_pct REAL NOT NULL,
			interval_ms INTEGER NOT NULL,
			status TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			last_evaluated_at DATETIME
		);`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_sessions_context_symbol ON monitoring_sessions(context_id, symbol);`,
		`CREATE TABLE IF NOT EXISTS arbitrage_alerts (
			id TEXT PRIMARY KEY,
			symbol TEXT NOT NULL,
			buy_exchange TEXT NOT NULL,
			sell_exchange TEXT NOT NULL,
			buy_price REAL NOT NULL,
			sell_price REAL NOT NULL,
			spread_amount REAL NOT NULL,
			spread_pct REAL NOT NULL,
			created_at DATETIME NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_alerts_symbol_venues ON arbitrage_alerts(symbol, buy_exchange, sell_exchange, created_at);`,
		`CREATE TABLE IF NOT EXISTS market_data (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			symbol TEXT NOT NULL,
			exchange TEXT NOT NULL,
			best_bid REAL,
			best_ask REAL,
			bid_size REAL,
			ask_size REAL,
			fetched_at DATETIME NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_market_data_symbol ON market_data(symbol, fetched_at);`,
	}

	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return fmt.Errorf("failed to exec query %s: %w", q, err)
		}
	}

	return nil
}

// SessionRepository implementation

func (s *SQLiteStore) SaveSession(ctx context.Context, session *domain.MonitoringSession) error {
	query := `INSERT INTO monitoring_sessions (id, context_id, symbol, exchanges, threshold_pct, interval_ms, status, created_at, last_evaluated_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			  ON CONFLICT(context_id, symbol) DO UPDATE SET
			  id=excluded.id,
			  exchanges=excluded.exchanges,
			  threshold_pct=excluded.threshold_pct,
			  interval_ms=excluded.interval_ms,
			  status=excluded.status,
			  created_at=excluded.created_at,
			  last_evaluated_at=excluded.last_evaluated_at`
	_, err := s.db.ExecContext(ctx, query,
		session.ID, session.ContextID, session.Symbol.String(),
		strings.Join(session.Exchanges, ","), session.ThresholdPct,
		session.Interval.Milliseconds(), string(session.Status),
		session.CreatedAt, session.LastEvaluatedAt)
	return err
}

func (s *SQLiteStore) ListSessions(ctx context.Context) ([]*domain.MonitoringSession, error) {
	query := `SELECT id, context_id, symbol, exchanges, threshold_pct, interval_ms, status, created_at, last_evaluated_at FROM monitoring_sessions`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*domain.MonitoringSession
	for rows.Next() {
		var (
			sess       domain.MonitoringSession
			symbol     string
			exchanges  string
			intervalMs int64
			status     string
		)
		if err := rows.Scan(&sess.ID, &sess.ContextID, &symbol, &exchanges, &sess.ThresholdPct, &intervalMs, &status, &sess.CreatedAt, &sess.LastEvaluatedAt); err != nil {
			return nil, err
		}
		sym, err := domain.ParseSymbol(symbol)
		if err != nil {
			return nil, fmt.Errorf("stored session %s has bad symbol %q: %w", sess.ID, symbol, err)
		}
		sess.Symbol = sym
		sess.Exchanges = strings.Split(exchanges, ",")
		sess.Interval = time.Duration(intervalMs) * time.Millisecond
		sess.Status = domain.SessionStatus(status)
		sessions = append(sessions, &sess)
	}
	return sessions, rows.Err()
}

func (s *SQLiteStore) DeleteSessionsByContext(ctx context.Context, contextID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM monitoring_sessions WHERE context_id = ?`, contextID)
	return err
}

func (s *SQLiteStore) DeleteAllSessions(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM monitoring_sessions`)
	return err
}

// AlertRepository implementation

func (s *SQLiteStore) SaveAlert(ctx context.Context, signal *domain.ArbitrageSignal) error {
	query := `INSERT INTO arbitrage_alerts (id, symbol, buy_exchange, sell_exchange, buy_price, sell_price, spread_amount, spread_pct, created_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query,
		signal.ID, signal.Symbol.String(), signal.BuyExchange, signal.SellExchange,
		signal.BuyPrice, signal.SellPrice, signal.Spread, signal.SpreadPct, signal.Timestamp)
	return err
}

func (s *SQLiteStore) HasRecentAlert(ctx context.Context, symbol domain.CanonicalSymbol, buyExchange, sellExchange string, since time.Time) (bool, error) {
	query := `SELECT COUNT(1) FROM arbitrage_alerts
			  WHERE symbol = ? AND buy_exchange = ? AND sell_exchange = ? AND created_at > ?`
	var count int
	err := s.db.QueryRowContext(ctx, query, symbol.String(), buyExchange, sellExchange, since).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *SQLiteStore) ListAlerts(ctx context.Context, limit int) ([]*domain.ArbitrageSignal, error) {
	query := `SELECT id, symbol, buy_exchange, sell_exchange, buy_price, sell_price, spread_amount, spread_pct, created_at
			  FROM arbitrage_alerts ORDER BY created_at DESC LIMIT ?`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var alerts []*domain.ArbitrageSignal
	for rows.Next() {
		var (
			sig    domain.ArbitrageSignal
			symbol string
		)
		if err := rows.Scan(&sig.ID, &symbol, &sig.BuyExchange, &sig.SellExchange, &sig.BuyPrice, &sig.SellPrice, &sig.Spread, &sig.SpreadPct, &sig.Timestamp); err != nil {
			return nil, err
		}
		sym, err := domain.ParseSymbol(symbol)
		if err != nil {
			return nil, fmt.Errorf("stored alert %s has bad symbol %q: %w", sig.ID, symbol, err)
		}
		sig.Symbol = sym
		sig.Actionable = true
		alerts = append(alerts, &sig)
	}
	return alerts, rows.Err()
}

// MarketDataRepository implementation

func (s *SQLiteStore) SaveQuote(ctx context.Context, quote domain.Quote) error {
	query := `INSERT INTO market_data (symbol, exchange, best_bid, best_ask, bid_size, ask_size, fetched_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query,
		quote.Symbol.String(), quote.Exchange,
		quote.BidPrice, quote.AskPrice, quote.BidSize, quote.AskSize, quote.FetchedAt)
	return err
}

func (s *SQLiteStore) ListQuotes(ctx context.Context, symbol domain.CanonicalSymbol, limit int) ([]domain.Quote, error) {
	query := `SELECT symbol, exchange, best_bid, best_ask, bid_size, ask_size, fetched_at
			  FROM market_data WHERE symbol = ? ORDER BY fetched_at DESC LIMIT ?`
	rows, err := s.db.QueryContext(ctx, query, symbol.String(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var quotes []domain.Quote
	for rows.Next() {
		var (
			q   domain.Quote
			sym string
		)
		if err := rows.Scan(&sym, &q.Exchange, &q.BidPrice, &q.AskPrice, &q.BidSize, &q.AskSize, &q.FetchedAt); err != nil {
			return nil, err
		}
		parsed, err := domain.ParseSymbol(sym)
		if err != nil {
			return nil, fmt.Errorf("stored quote has bad symbol %q: %w", sym, err)
		}
		q.Symbol = parsed
		quotes = append(quotes, q)
	}
	return quotes, rows.Err()
}
