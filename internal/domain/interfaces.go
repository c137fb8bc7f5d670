package domain

import (
	"context"
	"time"
)

// MarketDataProvider is the upstream quote source for one exchange at a
// time. FetchQuote never fails through a panic or a Go error: every
// failure path resolves to a *FetchFailure value.
type MarketDataProvider interface {
	ListSymbols(ctx context.Context, exchange, instrumentType string) ([]CanonicalSymbol, error)
	FetchQuote(ctx context.Context, exchange string, symbol CanonicalSymbol) (Quote, *FetchFailure)
}

// AlertDispatcher receives structured results for presentation. The
// core never pre-formats messages; rendering belongs to the dispatcher.
type AlertDispatcher interface {
	DispatchSignal(ctx context.Context, signal *ArbitrageSignal) error
	DispatchNotice(ctx context.Context, notice Notice) error
}

// SessionRepository persists monitoring sessions so a restart can
// resume active watches. At most one row exists per (context, symbol).
type SessionRepository interface {
	SaveSession(ctx context.Context, session *MonitoringSession) error
	ListSessions(ctx context.Context) ([]*MonitoringSession, error)
	DeleteSessionsByContext(ctx context.Context, contextID string) error
	DeleteAllSessions(ctx context.Context) error
}

// AlertRepository stores triggered alerts and backs the duplicate
// suppression window.
type AlertRepository interface {
	SaveAlert(ctx context.Context, signal *ArbitrageSignal) error
	HasRecentAlert(ctx context.Context, symbol CanonicalSymbol, buyExchange, sellExchange string, since time.Time) (bool, error)
	ListAlerts(ctx context.Context, limit int) ([]*ArbitrageSignal, error)
}

// MarketDataRepository stores per-fetch top-of-book snapshots.
type MarketDataRepository interface {
	SaveQuote(ctx context.Context, quote Quote) error
	ListQuotes(ctx context.Context, symbol CanonicalSymbol, limit int) ([]Quote, error)
}
