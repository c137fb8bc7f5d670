package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/arbmon/crypto_arb_monitor/internal/domain"
	"go.uber.org/zap"
)

const DefaultFetchTimeout = 5 * time.Second

// Aggregator fans one symbol's quote fetch out across a set of
// exchanges concurrently and joins the results into a QuoteSet. A slow
// or failing exchange is bounded by the per-fetch timeout and never
// blocks the others.
type Aggregator struct {
	provider domain.MarketDataProvider
	timeout  time.Duration
	logger   *zap.Logger
}

func NewAggregator(provider domain.MarketDataProvider, timeout time.Duration, logger *zap.Logger) *Aggregator {
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	return &Aggregator{
		provider: provider,
		timeout:  timeout,
		logger:   logger,
	}
}

// Aggregate returns exactly one entry per requested exchange, always.
// Total upstream failure yields a QuoteSet where every entry is a
// FetchFailure; that is a valid result, not an error.
func (a *Aggregator) Aggregate(ctx context.Context, symbol domain.CanonicalSymbol, exchanges []string) domain.QuoteSet {
	set := domain.QuoteSet{
		Symbol:    symbol,
		Exchanges: append([]string(nil), exchanges...),
		Quotes:    make(map[string]domain.Quote, len(exchanges)),
		Failures:  make(map[string]*domain.FetchFailure),
	}

	type fetchResult struct {
		exchange string
		quote    domain.Quote
		failure  *domain.FetchFailure
	}

	results := make(chan fetchResult, len(exchanges))
	var wg sync.WaitGroup

	for _, ex := range exchanges {
		wg.Add(1)
		go func(exchange string) {
			defer wg.Done()

			fetchCtx, cancel := context.WithTimeout(ctx, a.timeout)
			defer cancel()

			quote, failure := a.provider.FetchQuote(fetchCtx, exchange, symbol)
			results <- fetchResult{exchange: exchange, quote: quote, failure: failure}
		}(ex)
	}

	wg.Wait()
	close(results)

	for r := range results {
		if r.failure != nil {
			a.logger.Debug("exchange fetch failed",
				zap.String("exchange", r.exchange),
				zap.String("symbol", symbol.String()),
				zap.String("reason", r.failure.Reason),
				zap.Bool("retryable", r.failure.Retryable))
			set.Failures[r.exchange] = r.failure
			continue
		}
		set.Quotes[r.exchange] = r.quote
	}

	return set
}
