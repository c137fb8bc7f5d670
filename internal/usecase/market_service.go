package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/arbmon/crypto_arb_monitor/internal/domain"
	"go.uber.org/zap"
)

const (
	DefaultInstrumentType = "spot"
	DefaultSymbolCacheTTL = time.Minute
	DefaultDedupWindow    = 5 * time.Minute
)

type MarketServiceConfig struct {
	InstrumentType string
	SymbolCacheTTL time.Duration
	DedupWindow    time.Duration
}

// MarketService implements the one-shot command surface: consolidated
// views and checks over an exchange set, symbol validation, and the
// persistence shared with the monitoring flow.
type MarketService struct {
	provider   domain.MarketDataProvider
	aggregator *Aggregator
	cbbo       *CbboEngine
	detector   *ArbitrageDetector
	alerts     domain.AlertRepository
	market     domain.MarketDataRepository
	logger     *zap.Logger
	cfg        MarketServiceConfig

	mu          sync.Mutex
	symbolCache map[string]symbolCacheEntry

	timeNow func() time.Time
}

type symbolCacheEntry struct {
	symbols   map[string]struct{}
	fetchedAt time.Time
}

func NewMarketService(
	provider domain.MarketDataProvider,
	aggregator *Aggregator,
	cbbo *CbboEngine,
	detector *ArbitrageDetector,
	alerts domain.AlertRepository,
	market domain.MarketDataRepository,
	cfg MarketServiceConfig,
	logger *zap.Logger,
) *MarketService {
	if cfg.InstrumentType == "" {
		cfg.InstrumentType = DefaultInstrumentType
	}
	if cfg.SymbolCacheTTL <= 0 {
		cfg.SymbolCacheTTL = DefaultSymbolCacheTTL
	}
	if cfg.DedupWindow <= 0 {
		cfg.DedupWindow = DefaultDedupWindow
	}
	return &MarketService{
		provider:    provider,
		aggregator:  aggregator,
		cbbo:        cbbo,
		detector:    detector,
		alerts:      alerts,
		market:      market,
		logger:      logger,
		cfg:         cfg,
		symbolCache: make(map[string]symbolCacheEntry),
		timeNow:     time.Now,
	}
}

// CheckResult is one evaluation of a symbol across an exchange set.
// Signal is nil when detection produced no comparable venue pair;
// NoSignalReason says why. Failed exchanges are reported alongside any
// partial result instead of aborting the check.
type CheckResult struct {
	Cbbo            domain.CbboResult       `json:"cbbo"`
	Signal          *domain.ArbitrageSignal `json:"signal,omitempty"`
	NoSignalReason  string                  `json:"no_signal_reason,omitempty"`
	FailedExchanges []string                `json:"failed_exchanges,omitempty"`
}

// Check runs one aggregation round and evaluates both the CBBO and the
// arbitrage spread against the threshold. Signals below threshold are
// returned with Actionable false so the caller can still display them.
func (s *MarketService) Check(ctx context.Context, symbol domain.CanonicalSymbol, exchanges []string, thresholdPct float64) (*CheckResult, error) {
	if len(exchanges) < 2 {
		return nil, domain.ErrInsufficientVenues
	}
	if err := domain.ValidateExchanges(exchanges); err != nil {
		return nil, err
	}

	set := s.aggregator.Aggregate(ctx, symbol, exchanges)
	s.persistQuotes(ctx, set)

	result := &CheckResult{
		Cbbo:            s.cbbo.Compute(set),
		FailedExchanges: set.FailedExchanges(),
	}

	signal, err := s.detector.Detect(set, thresholdPct)
	switch {
	case err == nil:
		result.Signal = signal
		if signal.Actionable {
			if _, err := s.RecordAlert(ctx, signal); err != nil {
				s.logger.Warn("failed to record alert", zap.Error(err))
			}
		}
	case errors.Is(err, domain.ErrNoOpportunity), errors.Is(err, domain.ErrInsufficientVenues):
		result.NoSignalReason = err.Error()
	default:
		return nil, err
	}

	return result, nil
}

// ViewMarket returns the raw per-venue picture plus the consolidated
// view, with no threshold logic applied.
func (s *MarketService) ViewMarket(ctx context.Context, symbol domain.CanonicalSymbol, exchanges []string) (domain.QuoteSet, domain.CbboResult, error) {
	if len(exchanges) == 0 {
		return domain.QuoteSet{}, domain.CbboResult{}, domain.ErrInsufficientVenues
	}
	if err := domain.ValidateExchanges(exchanges); err != nil {
		return domain.QuoteSet{}, domain.CbboResult{}, err
	}

	set := s.aggregator.Aggregate(ctx, symbol, exchanges)
	s.persistQuotes(ctx, set)

	return set, s.cbbo.Compute(set), nil
}

// ValidSymbol reports whether the exchange lists the symbol. Listings
// are cached per exchange for a short TTL to bound upstream load.
func (s *MarketService) ValidSymbol(ctx context.Context, exchange string, symbol domain.CanonicalSymbol) (bool, error) {
	cacheKey := exchange + "/" + s.cfg.InstrumentType

	s.mu.Lock()
	entry, ok := s.symbolCache[cacheKey]
	fresh := ok && s.timeNow().Sub(entry.fetchedAt) < s.cfg.SymbolCacheTTL
	s.mu.Unlock()

	if !fresh {
		symbols, err := s.provider.ListSymbols(ctx, exchange, s.cfg.InstrumentType)
		if err != nil {
			return false, fmt.Errorf("list symbols for %s: %w", exchange, err)
		}
		entry = symbolCacheEntry{
			symbols:   make(map[string]struct{}, len(symbols)),
			fetchedAt: s.timeNow(),
		}
		for _, sym := range symbols {
			entry.symbols[sym.String()] = struct{}{}
		}
		s.mu.Lock()
		s.symbolCache[cacheKey] = entry
		s.mu.Unlock()
	}

	_, listed := entry.symbols[symbol.String()]
	return listed, nil
}

// SymbolListed reports whether at least one of the exchanges lists the
// symbol. An error is returned only when every listing lookup failed,
// so a single unreachable exchange cannot veto validation.
func (s *MarketService) SymbolListed(ctx context.Context, symbol domain.CanonicalSymbol, exchanges []string) (bool, error) {
	var lastErr error
	checked := 0
	for _, ex := range exchanges {
		listed, err := s.ValidSymbol(ctx, ex, symbol)
		if err != nil {
			lastErr = err
			continue
		}
		checked++
		if listed {
			return true, nil
		}
	}
	if checked == 0 && lastErr != nil {
		return false, lastErr
	}
	return false, nil
}

// QuoteHistory returns recent stored top-of-book snapshots for the
// symbol, newest first.
func (s *MarketService) QuoteHistory(ctx context.Context, symbol domain.CanonicalSymbol, limit int) ([]domain.Quote, error) {
	return s.market.ListQuotes(ctx, symbol, limit)
}

// RecordAlert persists an actionable signal unless an alert for the
// same symbol and venue pair was already stored inside the dedup
// window. Returns whether the signal is fresh.
func (s *MarketService) RecordAlert(ctx context.Context, signal *domain.ArbitrageSignal) (bool, error) {
	since := s.timeNow().Add(-s.cfg.DedupWindow)
	recent, err := s.alerts.HasRecentAlert(ctx, signal.Symbol, signal.BuyExchange, signal.SellExchange, since)
	if err != nil {
		return false, err
	}
	if recent {
		return false, nil
	}
	if err := s.alerts.SaveAlert(ctx, signal); err != nil {
		return false, err
	}
	return true, nil
}

// RecentAlerts exposes stored alerts for the API layer.
func (s *MarketService) RecentAlerts(ctx context.Context, limit int) ([]*domain.ArbitrageSignal, error) {
	return s.alerts.ListAlerts(ctx, limit)
}

func (s *MarketService) persistQuotes(ctx context.Context, set domain.QuoteSet) {
	for _, ex := range set.Exchanges {
		quote, ok := set.Quotes[ex]
		if !ok {
			continue
		}
		if err := s.market.SaveQuote(ctx, quote); err != nil {
			s.logger.Warn("failed to persist quote",
				zap.String("exchange", ex),
				zap.String("symbol", set.Symbol.String()),
				zap.Error(err))
		}
	}
}
