package domain

import "time"

// PriceVenue attributes a consolidated price to the venue it came from.
type PriceVenue struct {
	Price float64 `json:"price"`
	Venue string  `json:"venue"`
}

// VenueBBO is one exchange's row in the per-venue breakdown. Missing
// sides are marked explicitly rather than the venue being omitted.
type VenueBBO struct {
	Exchange      string  `json:"exchange"`
	Bid           float64 `json:"bid,omitempty"`
	BidSize       float64 `json:"bid_size,omitempty"`
	HasBid        bool    `json:"has_bid"`
	Ask           float64 `json:"ask,omitempty"`
	AskSize       float64 `json:"ask_size,omitempty"`
	HasAsk        bool    `json:"has_ask"`
	Failed        bool    `json:"failed,omitempty"`
	FailureReason string  `json:"failure_reason,omitempty"`
}

// CbboResult is the consolidated best bid and offer reduced from one
// QuoteSet. MidPrice is defined only when both sides exist.
type CbboResult struct {
	Symbol     CanonicalSymbol `json:"symbol"`
	BestBid    PriceVenue      `json:"best_bid"`
	HasBestBid bool            `json:"has_best_bid"`
	BestAsk    PriceVenue      `json:"best_ask"`
	HasBestAsk bool            `json:"has_best_ask"`
	MidPrice   float64         `json:"mid_price,omitempty"`
	HasMid     bool            `json:"has_mid"`
	Breakdown  []VenueBBO      `json:"breakdown"`
	ComputedAt time.Time       `json:"computed_at"`
}
