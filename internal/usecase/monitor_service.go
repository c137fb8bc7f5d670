package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/arbmon/crypto_arb_monitor/internal/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	DefaultThresholdPct           = 0.5
	DefaultMonitorInterval        = 10 * time.Second
	DefaultFailureEscalationTicks = 3
)

type MonitorConfig struct {
	DefaultThresholdPct    float64
	DefaultInterval        time.Duration
	FailureEscalationTicks int
}

// MonitorService owns the lifecycle of recurring monitoring sessions.
// One goroutine runs per session; the registry is keyed by
// (context, symbol) and guarded by a single mutex so start, stop and
// reset are mutually exclusive with tick rescheduling.
type MonitorService struct {
	aggregator    *Aggregator
	detector      *ArbitrageDetector
	marketService *MarketService
	dispatcher    domain.AlertDispatcher
	sessions      domain.SessionRepository
	logger        *zap.Logger
	cfg           MonitorConfig

	mu      sync.Mutex
	watches map[sessionKey]*watch
}

type sessionKey struct {
	ContextID string
	Symbol    string
}

type watch struct {
	session  *domain.MonitoringSession
	cancel   context.CancelFunc
	stopChan chan struct{}

	// touched only from the session goroutine
	failedTicks int
	escalated   bool
}

func NewMonitorService(
	aggregator *Aggregator,
	detector *ArbitrageDetector,
	marketService *MarketService,
	dispatcher domain.AlertDispatcher,
	sessions domain.SessionRepository,
	cfg MonitorConfig,
	logger *zap.Logger,
) *MonitorService {
	if cfg.DefaultThresholdPct <= 0 {
		cfg.DefaultThresholdPct = DefaultThresholdPct
	}
	if cfg.DefaultInterval <= 0 {
		cfg.DefaultInterval = DefaultMonitorInterval
	}
	if cfg.FailureEscalationTicks <= 0 {
		cfg.FailureEscalationTicks = DefaultFailureEscalationTicks
	}
	return &MonitorService{
		aggregator:    aggregator,
		detector:      detector,
		marketService: marketService,
		dispatcher:    dispatcher,
		sessions:      sessions,
		logger:        logger,
		cfg:           cfg,
		watches:       make(map[sessionKey]*watch),
	}
}

// Start creates a session and schedules its first tick immediately.
// Starting a second session for the same (context, symbol) implicitly
// stops the prior one; the new session's parameters win.
func (m *MonitorService) Start(ctx context.Context, contextID string, symbol domain.CanonicalSymbol, exchanges []string, thresholdPct float64, interval time.Duration) (*domain.MonitoringSession, error) {
	if len(exchanges) < 2 {
		return nil, domain.ErrInsufficientVenues
	}
	if err := domain.ValidateExchanges(exchanges); err != nil {
		return nil, err
	}
	if thresholdPct <= 0 {
		thresholdPct = m.cfg.DefaultThresholdPct
	}
	if interval <= 0 {
		interval = m.cfg.DefaultInterval
	}

	session := &domain.MonitoringSession{
		ID:           uuid.NewString(),
		ContextID:    contextID,
		Symbol:       symbol,
		Exchanges:    append([]string(nil), exchanges...),
		ThresholdPct: thresholdPct,
		Interval:     interval,
		Status:       domain.SessionActive,
		CreatedAt:    time.Now().UTC(),
	}

	m.mu.Lock()
	key := sessionKey{ContextID: contextID, Symbol: symbol.String()}
	if existing, ok := m.watches[key]; ok {
		m.stopWatchLocked(key, existing)
	}

	watchCtx, cancel := context.WithCancel(context.Background())
	w := &watch{
		session:  session,
		cancel:   cancel,
		stopChan: make(chan struct{}),
	}
	m.watches[key] = w
	m.mu.Unlock()

	if err := m.sessions.SaveSession(ctx, session); err != nil {
		m.logger.Warn("failed to persist session", zap.String("session_id", session.ID), zap.Error(err))
	}

	go m.run(watchCtx, w)

	m.logger.Info("monitoring session started",
		zap.String("session_id", session.ID),
		zap.String("context_id", contextID),
		zap.String("symbol", symbol.String()),
		zap.Strings("exchanges", exchanges),
		zap.Float64("threshold_pct", thresholdPct),
		zap.Duration("interval", interval))

	return session, nil
}

// Stop halts the session for (context, symbol). Stopping a stopped or
// nonexistent session is a no-op.
func (m *MonitorService) Stop(ctx context.Context, contextID string, symbol domain.CanonicalSymbol) error {
	m.mu.Lock()
	key := sessionKey{ContextID: contextID, Symbol: symbol.String()}
	w, ok := m.watches[key]
	var stopped domain.MonitoringSession
	if ok {
		stopped = m.stopWatchLocked(key, w)
	}
	m.mu.Unlock()

	if !ok {
		return nil
	}

	if err := m.sessions.SaveSession(ctx, &stopped); err != nil {
		m.logger.Warn("failed to persist stopped session", zap.String("session_id", stopped.ID), zap.Error(err))
	}

	m.logger.Info("monitoring session stopped",
		zap.String("session_id", stopped.ID),
		zap.String("context_id", contextID),
		zap.String("symbol", symbol.String()))
	return nil
}

// Reset stops every session owned by the context and discards its
// persisted state.
func (m *MonitorService) Reset(ctx context.Context, contextID string) error {
	m.mu.Lock()
	for key, w := range m.watches {
		if key.ContextID == contextID {
			m.stopWatchLocked(key, w)
		}
	}
	m.mu.Unlock()

	if err := m.sessions.DeleteSessionsByContext(ctx, contextID); err != nil {
		return fmt.Errorf("delete sessions for %s: %w", contextID, err)
	}

	m.logger.Info("monitoring context reset", zap.String("context_id", contextID))
	return nil
}

// ResetAll is a full teardown of session state across all contexts.
func (m *MonitorService) ResetAll(ctx context.Context) error {
	m.mu.Lock()
	for key, w := range m.watches {
		m.stopWatchLocked(key, w)
	}
	m.mu.Unlock()

	if err := m.sessions.DeleteAllSessions(ctx); err != nil {
		return fmt.Errorf("delete all sessions: %w", err)
	}

	m.logger.Info("all monitoring sessions reset")
	return nil
}

// Shutdown cancels every running watch without touching persisted
// state, so active sessions can be resumed on the next boot.
func (m *MonitorService) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, w := range m.watches {
		w.cancel()
		close(w.stopChan)
		delete(m.watches, key)
	}
}

// Resume restarts watches for sessions persisted as ACTIVE.
func (m *MonitorService) Resume(ctx context.Context) error {
	stored, err := m.sessions.ListSessions(ctx)
	if err != nil {
		return fmt.Errorf("list sessions: %w", err)
	}
	for _, s := range stored {
		if s.Status != domain.SessionActive {
			continue
		}
		if _, err := m.Start(ctx, s.ContextID, s.Symbol, s.Exchanges, s.ThresholdPct, s.Interval); err != nil {
			m.logger.Warn("failed to resume session", zap.String("session_id", s.ID), zap.Error(err))
		}
	}
	return nil
}

// Sessions returns a snapshot of the live registry.
func (m *MonitorService) Sessions() []*domain.MonitoringSession {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*domain.MonitoringSession, 0, len(m.watches))
	for _, w := range m.watches {
		copied := *w.session
		out = append(out, &copied)
	}
	return out
}

// stopWatchLocked must be called with m.mu held. It returns a snapshot
// of the stopped session that is safe to persist or log after the lock
// is released; a tick already past its cancellation check may still
// write LastEvaluatedAt under m.mu, so the live struct must not be
// read outside it.
func (m *MonitorService) stopWatchLocked(key sessionKey, w *watch) domain.MonitoringSession {
	w.cancel()
	close(w.stopChan)
	w.session.Status = domain.SessionStopped
	delete(m.watches, key)
	return *w.session
}

func (m *MonitorService) run(ctx context.Context, w *watch) {
	ticker := time.NewTicker(w.session.Interval)
	defer ticker.Stop()

	m.tick(ctx, w)

	for {
		select {
		case <-ticker.C:
			m.tick(ctx, w)
		case <-w.stopChan:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (m *MonitorService) tick(ctx context.Context, w *watch) {
	session := w.session

	set := m.aggregator.Aggregate(ctx, session.Symbol, session.Exchanges)

	// The session may have been stopped while the fetch was in flight;
	// a stale tick must not dispatch.
	if ctx.Err() != nil {
		return
	}

	m.mu.Lock()
	session.LastEvaluatedAt = time.Now().UTC()
	m.mu.Unlock()

	if set.AllFailed() {
		w.failedTicks++
		if w.failedTicks >= m.cfg.FailureEscalationTicks && !w.escalated {
			w.escalated = true
			notice := domain.Notice{
				ContextID: session.ContextID,
				Symbol:    session.Symbol,
				Kind:      domain.NoticeDataOutage,
				Message:   fmt.Sprintf("all exchanges failed for %d consecutive checks", w.failedTicks),
				Timestamp: time.Now().UTC(),
			}
			if ctx.Err() != nil {
				return
			}
			if err := m.dispatcher.DispatchNotice(ctx, notice); err != nil {
				m.logger.Error("failed to dispatch outage notice", zap.Error(err))
			}
		}
		return
	}
	w.failedTicks = 0
	w.escalated = false

	signal, err := m.detector.Detect(set, session.ThresholdPct)
	if err != nil {
		// A tick with nothing to report keeps the session running.
		if !errors.Is(err, domain.ErrNoOpportunity) && !errors.Is(err, domain.ErrInsufficientVenues) {
			m.logger.Error("detection failed", zap.String("session_id", session.ID), zap.Error(err))
		}
		return
	}
	if !signal.Actionable {
		return
	}

	signal.ContextID = session.ContextID
	signal.SessionID = session.ID

	fresh, err := m.marketService.RecordAlert(ctx, signal)
	if err != nil {
		m.logger.Warn("failed to record alert", zap.String("session_id", session.ID), zap.Error(err))
	} else if !fresh {
		return
	}

	if ctx.Err() != nil {
		return
	}
	if err := m.dispatcher.DispatchSignal(ctx, signal); err != nil {
		m.logger.Error("failed to dispatch signal",
			zap.String("session_id", session.ID),
			zap.String("symbol", session.Symbol.String()),
			zap.Error(err))
		return
	}

	m.logger.Info("arbitrage signal dispatched",
		zap.String("session_id", session.ID),
		zap.String("symbol", session.Symbol.String()),
		zap.String("buy", signal.BuyExchange),
		zap.String("sell", signal.SellExchange),
		zap.Float64("spread_pct", signal.SpreadPct))
}
