package usecase

import (
	"time"

	"github.com/arbmon/crypto_arb_monitor/internal/domain"
)

// CbboEngine reduces a QuoteSet into a consolidated best bid and offer.
// Pure computation over already-fetched data; no I/O.
type CbboEngine struct{}

func NewCbboEngine() *CbboEngine {
	return &CbboEngine{}
}

// Compute reduces bids and asks independently: a partial quote still
// contributes its present side. Venues are visited in the requested
// exchange order and a best price is only replaced on strict
// improvement, so ties go to the first venue encountered.
func (e *CbboEngine) Compute(set domain.QuoteSet) domain.CbboResult {
	result := domain.CbboResult{
		Symbol:     set.Symbol,
		Breakdown:  make([]domain.VenueBBO, 0, len(set.Exchanges)),
		ComputedAt: time.Now().UTC(),
	}

	for _, ex := range set.Exchanges {
		bbo := domain.VenueBBO{Exchange: ex}

		if failure, ok := set.Failures[ex]; ok {
			bbo.Failed = true
			bbo.FailureReason = failure.Reason
			result.Breakdown = append(result.Breakdown, bbo)
			continue
		}

		quote, ok := set.Quotes[ex]
		if !ok {
			result.Breakdown = append(result.Breakdown, bbo)
			continue
		}

		if quote.HasBid() {
			bbo.HasBid = true
			bbo.Bid = quote.BidPrice
			bbo.BidSize = quote.BidSize
			if !result.HasBestBid || quote.BidPrice > result.BestBid.Price {
				result.BestBid = domain.PriceVenue{Price: quote.BidPrice, Venue: ex}
				result.HasBestBid = true
			}
		}
		if quote.HasAsk() {
			bbo.HasAsk = true
			bbo.Ask = quote.AskPrice
			bbo.AskSize = quote.AskSize
			if !result.HasBestAsk || quote.AskPrice < result.BestAsk.Price {
				result.BestAsk = domain.PriceVenue{Price: quote.AskPrice, Venue: ex}
				result.HasBestAsk = true
			}
		}

		result.Breakdown = append(result.Breakdown, bbo)
	}

	if result.HasBestBid && result.HasBestAsk {
		result.MidPrice = (result.BestBid.Price + result.BestAsk.Price) / 2
		result.HasMid = true
	}

	return result
}
