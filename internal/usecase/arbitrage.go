package usecase

import (
	"time"

	"github.com/arbmon/crypto_arb_monitor/internal/domain"
	"github.com/google/uuid"
)

// ArbitrageDetector derives buy/sell venues and the spread between them
// from a QuoteSet. Like the CBBO reduction it is pure computation.
type ArbitrageDetector struct {
	cbbo *CbboEngine
}

func NewArbitrageDetector(cbbo *CbboEngine) *ArbitrageDetector {
	return &ArbitrageDetector{cbbo: cbbo}
}

// Detect picks the venue with the globally lowest ask as the buy side
// and the venue with the globally highest bid as the sell side. These
// are derived independently of the CBBO attribution, though with the
// same tie-break rule (first venue in requested order wins).
//
// Returns ErrInsufficientVenues when fewer than two venues contributed
// a usable side, and ErrNoOpportunity when buy and sell venue would be
// identical or the spread is negative. Both are valid "nothing to
// report" outcomes, not fetch errors. A signal below threshold is still
// returned, with Actionable set to false.
func (d *ArbitrageDetector) Detect(set domain.QuoteSet, thresholdPct float64) (*domain.ArbitrageSignal, error) {
	var (
		bestAsk   float64
		bestBid   float64
		buyVenue  string
		sellVenue string
		usable    int
	)

	for _, ex := range set.Exchanges {
		quote, ok := set.Quotes[ex]
		if !ok {
			continue
		}
		if quote.HasBid() || quote.HasAsk() {
			usable++
		}
		if quote.HasAsk() && (buyVenue == "" || quote.AskPrice < bestAsk) {
			bestAsk = quote.AskPrice
			buyVenue = ex
		}
		if quote.HasBid() && (sellVenue == "" || quote.BidPrice > bestBid) {
			bestBid = quote.BidPrice
			sellVenue = ex
		}
	}

	if usable < 2 || buyVenue == "" || sellVenue == "" {
		return nil, domain.ErrInsufficientVenues
	}
	if buyVenue == sellVenue {
		return nil, domain.ErrNoOpportunity
	}

	spread := bestBid - bestAsk
	if spread < 0 {
		return nil, domain.ErrNoOpportunity
	}
	spreadPct := spread / bestAsk * 100

	cbbo := d.cbbo.Compute(set)

	return &domain.ArbitrageSignal{
		ID:           uuid.NewString(),
		Symbol:       set.Symbol,
		BuyExchange:  buyVenue,
		BuyPrice:     bestAsk,
		SellExchange: sellVenue,
		SellPrice:    bestBid,
		Spread:       spread,
		SpreadPct:    spreadPct,
		MidPrice:     cbbo.MidPrice,
		HasMid:       cbbo.HasMid,
		ThresholdPct: thresholdPct,
		Actionable:   spreadPct >= thresholdPct,
		Breakdown:    cbbo.Breakdown,
		Timestamp:    time.Now().UTC(),
	}, nil
}
