package domain

import (
	"errors"
	"fmt"
	"time"
)

// Supported exchange identifiers. Extending this list is enough to add
// a venue; nothing else in the core keys off the exchange name.
var KnownExchanges = []string{"okx", "binance", "bybit", "deribit"}

var ErrUnknownExchange = errors.New("unknown exchange")

func ValidateExchanges(exchanges []string) error {
	for _, ex := range exchanges {
		if !IsKnownExchange(ex) {
			return fmt.Errorf("%w: %q", ErrUnknownExchange, ex)
		}
	}
	return nil
}

func IsKnownExchange(name string) bool {
	for _, ex := range KnownExchanges {
		if ex == name {
			return true
		}
	}
	return false
}

// Quote is one exchange's top-of-book snapshot. A zero price means that
// side was missing upstream; such a quote is partial and contributes
// only its present side to reductions.
type Quote struct {
	Exchange  string          `json:"exchange"`
	Symbol    CanonicalSymbol `json:"symbol"`
	BidPrice  float64         `json:"bid_price"`
	BidSize   float64         `json:"bid_size"`
	AskPrice  float64         `json:"ask_price"`
	AskSize   float64         `json:"ask_size"`
	FetchedAt time.Time       `json:"fetched_at"`
}

func (q Quote) HasBid() bool { return q.BidPrice > 0 }
func (q Quote) HasAsk() bool { return q.AskPrice > 0 }

// FetchFailure records why one exchange produced no quote. Transport
// problems and bad HTTP statuses are retryable; a payload the adapter
// cannot make sense of is not.
type FetchFailure struct {
	Exchange  string `json:"exchange"`
	Reason    string `json:"reason"`
	Retryable bool   `json:"retryable"`
}

func (f *FetchFailure) Error() string {
	return fmt.Sprintf("fetch failed for %s: %s", f.Exchange, f.Reason)
}

// QuoteSet is the outcome of one aggregation round: exactly one entry
// per requested exchange, either in Quotes or in Failures. Exchanges
// preserves the requested order and drives tie-breaking downstream.
type QuoteSet struct {
	Symbol    CanonicalSymbol          `json:"symbol"`
	Exchanges []string                 `json:"exchanges"`
	Quotes    map[string]Quote         `json:"quotes"`
	Failures  map[string]*FetchFailure `json:"failures"`
}

func (qs QuoteSet) HealthyCount() int {
	return len(qs.Quotes)
}

func (qs QuoteSet) AllFailed() bool {
	return len(qs.Quotes) == 0 && len(qs.Exchanges) > 0
}

// FailedExchanges returns the failed venues in requested order.
func (qs QuoteSet) FailedExchanges() []string {
	var failed []string
	for _, ex := range qs.Exchanges {
		if _, ok := qs.Failures[ex]; ok {
			failed = append(failed, ex)
		}
	}
	return failed
}
