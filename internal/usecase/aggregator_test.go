package usecase

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/arbmon/crypto_arb_monitor/internal/domain"
)

func TestAggregateOneEntryPerExchange(t *testing.T) {
	provider := &mockProvider{
		failures: map[string]*domain.FetchFailure{
			"bybit": {Exchange: "bybit", Reason: "status 500", Retryable: true},
		},
	}
	provider.setQuote("okx", 100, 101)
	provider.setQuote("binance", 102, 103)

	exchanges := []string{"okx", "binance", "bybit"}
	set := NewAggregator(provider, time.Second, zap.NewNop()).Aggregate(context.Background(), btcUsdt, exchanges)

	if len(set.Quotes)+len(set.Failures) != len(exchanges) {
		t.Fatalf("quotes %d + failures %d, want %d total", len(set.Quotes), len(set.Failures), len(exchanges))
	}
	for _, ex := range exchanges {
		_, quoted := set.Quotes[ex]
		_, failed := set.Failures[ex]
		if quoted == failed {
			t.Errorf("exchange %s: quoted=%v failed=%v, want exactly one", ex, quoted, failed)
		}
	}
	if set.Quotes["okx"].Exchange != "okx" {
		t.Errorf("quote exchange = %q, want okx", set.Quotes["okx"].Exchange)
	}
}

func TestAggregateTotalFailure(t *testing.T) {
	provider := &mockProvider{
		failures: map[string]*domain.FetchFailure{
			"okx":     {Exchange: "okx", Reason: "connection refused", Retryable: true},
			"binance": {Exchange: "binance", Reason: "status 503", Retryable: true},
		},
	}

	set := NewAggregator(provider, time.Second, zap.NewNop()).Aggregate(context.Background(), btcUsdt, []string{"okx", "binance"})

	if !set.AllFailed() {
		t.Error("set should report all venues failed")
	}
	if got := set.FailedExchanges(); len(got) != 2 || got[0] != "okx" || got[1] != "binance" {
		t.Errorf("failed exchanges = %v, want [okx binance] in requested order", got)
	}
}

func TestAggregateHangingExchangeTimesOut(t *testing.T) {
	provider := &mockProvider{
		blockUntilCancel: map[string]bool{"deribit": true},
	}
	provider.setQuote("okx", 100, 101)

	start := time.Now()
	set := NewAggregator(provider, 50*time.Millisecond, zap.NewNop()).Aggregate(context.Background(), btcUsdt, []string{"okx", "deribit"})

	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("aggregate took %v, hang was not bounded", elapsed)
	}
	if _, ok := set.Quotes["okx"]; !ok {
		t.Error("healthy venue should still produce a quote")
	}
	failure, ok := set.Failures["deribit"]
	if !ok {
		t.Fatal("hanging venue should be converted to a failure entry")
	}
	if !failure.Retryable {
		t.Error("timeout failure should be retryable")
	}
}

func TestAggregateRunsConcurrently(t *testing.T) {
	delay := 80 * time.Millisecond
	provider := &mockProvider{
		delay: map[string]time.Duration{
			"okx":     delay,
			"binance": delay,
			"bybit":   delay,
			"deribit": delay,
		},
	}
	for _, ex := range domain.KnownExchanges {
		provider.setQuote(ex, 100, 101)
	}

	start := time.Now()
	set := NewAggregator(provider, time.Second, zap.NewNop()).Aggregate(context.Background(), btcUsdt, domain.KnownExchanges)
	elapsed := time.Since(start)

	if set.HealthyCount() != len(domain.KnownExchanges) {
		t.Fatalf("healthy count = %d, want %d", set.HealthyCount(), len(domain.KnownExchanges))
	}
	// Sequential fetching would take at least 4x the per-venue delay.
	if elapsed >= 3*delay {
		t.Errorf("aggregate took %v for 4 venues with %v delay each, fetches look sequential", elapsed, delay)
	}
}
