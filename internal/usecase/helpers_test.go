package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/arbmon/crypto_arb_monitor/internal/domain"
)

var btcUsdt = domain.CanonicalSymbol{Base: "BTC", Quote: "USDT"}

// mockProvider serves canned quotes and failures per exchange.
type mockProvider struct {
	mu               sync.Mutex
	quotes           map[string]domain.Quote
	failures         map[string]*domain.FetchFailure
	delay            map[string]time.Duration
	blockUntilCancel map[string]bool
	symbols          []domain.CanonicalSymbol
	listErr          error
	listCalls        int
}

func (m *mockProvider) ListSymbols(ctx context.Context, exchange, instrumentType string) ([]domain.CanonicalSymbol, error) {
	m.mu.Lock()
	m.listCalls++
	m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.symbols, nil
}

func (m *mockProvider) FetchQuote(ctx context.Context, exchange string, symbol domain.CanonicalSymbol) (domain.Quote, *domain.FetchFailure) {
	if m.blockUntilCancel[exchange] {
		<-ctx.Done()
		return domain.Quote{}, &domain.FetchFailure{Exchange: exchange, Reason: "context deadline exceeded", Retryable: true}
	}
	if d := m.delay[exchange]; d > 0 {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return domain.Quote{}, &domain.FetchFailure{Exchange: exchange, Reason: "context deadline exceeded", Retryable: true}
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if f, ok := m.failures[exchange]; ok {
		return domain.Quote{}, f
	}
	q, ok := m.quotes[exchange]
	if !ok {
		return domain.Quote{}, &domain.FetchFailure{Exchange: exchange, Reason: "no data", Retryable: true}
	}
	q.Exchange = exchange
	q.Symbol = symbol
	q.FetchedAt = time.Now()
	return q, nil
}

func (m *mockProvider) setQuote(exchange string, bid, ask float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.quotes == nil {
		m.quotes = make(map[string]domain.Quote)
	}
	m.quotes[exchange] = domain.Quote{BidPrice: bid, BidSize: 1, AskPrice: ask, AskSize: 1}
}

type memorySessionRepo struct {
	mu       sync.Mutex
	sessions map[string]*domain.MonitoringSession
}

func newMemorySessionRepo() *memorySessionRepo {
	return &memorySessionRepo{sessions: make(map[string]*domain.MonitoringSession)}
}

func (r *memorySessionRepo) SaveSession(ctx context.Context, session *domain.MonitoringSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *session
	r.sessions[session.ContextID+"|"+session.Symbol.String()] = &copied
	return nil
}

func (r *memorySessionRepo) ListSessions(ctx context.Context) ([]*domain.MonitoringSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.MonitoringSession, 0, len(r.sessions))
	for _, s := range r.sessions {
		copied := *s
		out = append(out, &copied)
	}
	return out, nil
}

func (r *memorySessionRepo) DeleteSessionsByContext(ctx context.Context, contextID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key, s := range r.sessions {
		if s.ContextID == contextID {
			delete(r.sessions, key)
		}
	}
	return nil
}

func (r *memorySessionRepo) DeleteAllSessions(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions = make(map[string]*domain.MonitoringSession)
	return nil
}

type memoryAlertRepo struct {
	mu     sync.Mutex
	alerts []*domain.ArbitrageSignal
}

func (r *memoryAlertRepo) SaveAlert(ctx context.Context, signal *domain.ArbitrageSignal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alerts = append(r.alerts, signal)
	return nil
}

func (r *memoryAlertRepo) HasRecentAlert(ctx context.Context, symbol domain.CanonicalSymbol, buyExchange, sellExchange string, since time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.alerts {
		if a.Symbol == symbol && a.BuyExchange == buyExchange && a.SellExchange == sellExchange && a.Timestamp.After(since) {
			return true, nil
		}
	}
	return false, nil
}

func (r *memoryAlertRepo) ListAlerts(ctx context.Context, limit int) ([]*domain.ArbitrageSignal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if limit > len(r.alerts) {
		limit = len(r.alerts)
	}
	return append([]*domain.ArbitrageSignal(nil), r.alerts[:limit]...), nil
}

func (r *memoryAlertRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.alerts)
}

type memoryMarketRepo struct {
	mu     sync.Mutex
	quotes []domain.Quote
}

func (r *memoryMarketRepo) SaveQuote(ctx context.Context, quote domain.Quote) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.quotes = append(r.quotes, quote)
	return nil
}

func (r *memoryMarketRepo) ListQuotes(ctx context.Context, symbol domain.CanonicalSymbol, limit int) ([]domain.Quote, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Quote
	for _, q := range r.quotes {
		if q.Symbol == symbol {
			out = append(out, q)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

type captureDispatcher struct {
	mu      sync.Mutex
	signals []*domain.ArbitrageSignal
	notices []domain.Notice
}

func (d *captureDispatcher) DispatchSignal(ctx context.Context, signal *domain.ArbitrageSignal) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.signals = append(d.signals, signal)
	return nil
}

func (d *captureDispatcher) DispatchNotice(ctx context.Context, notice domain.Notice) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.notices = append(d.notices, notice)
	return nil
}

func (d *captureDispatcher) signalCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.signals)
}

func (d *captureDispatcher) noticeCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.notices)
}

// healthySet builds a QuoteSet directly, bypassing the aggregator.
func healthySet(symbol domain.CanonicalSymbol, exchanges []string, quotes map[string]domain.Quote) domain.QuoteSet {
	set := domain.QuoteSet{
		Symbol:    symbol,
		Exchanges: exchanges,
		Quotes:    make(map[string]domain.Quote),
		Failures:  make(map[string]*domain.FetchFailure),
	}
	for ex, q := range quotes {
		q.Exchange = ex
		q.Symbol = symbol
		set.Quotes[ex] = q
	}
	return set
}
