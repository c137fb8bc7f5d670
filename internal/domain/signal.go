package domain

import (
	"errors"
	"time"
)

// ErrNoOpportunity is the valid negative outcome of detection: prices
// were usable but no profitable spread exists.
var ErrNoOpportunity = errors.New("no arbitrage opportunity")

// ErrInsufficientVenues means fewer than two exchanges were requested
// or usable, so no cross-venue comparison is possible.
var ErrInsufficientVenues = errors.New("insufficient venues")

// ArbitrageSignal describes a detected cross-venue spread. Buy venue
// carries the globally lowest ask, sell venue the globally highest bid.
// Actionable is set when SpreadPct meets the session threshold; signals
// below threshold are still computed so one-shot checks can show them.
type ArbitrageSignal struct {
	ID           string          `json:"id"`
	ContextID    string          `json:"context_id,omitempty"`
	SessionID    string          `json:"session_id,omitempty"`
	Symbol       CanonicalSymbol `json:"symbol"`
	BuyExchange  string          `json:"buy_exchange"`
	BuyPrice     float64         `json:"buy_price"`
	SellExchange string          `json:"sell_exchange"`
	SellPrice    float64         `json:"sell_price"`
	Spread       float64         `json:"spread"`
	SpreadPct    float64         `json:"spread_pct"`
	MidPrice     float64         `json:"mid_price,omitempty"`
	HasMid       bool            `json:"has_mid"`
	ThresholdPct float64         `json:"threshold_pct"`
	Actionable   bool            `json:"actionable"`
	Breakdown    []VenueBBO      `json:"breakdown"`
	Timestamp    time.Time       `json:"timestamp"`
}

// NoticeKind classifies out-of-band notifications to the dispatcher.
type NoticeKind string

const (
	// NoticeDataOutage signals that every exchange failed for several
	// consecutive monitoring ticks, i.e. a systemic data problem rather
	// than a transient one.
	NoticeDataOutage NoticeKind = "data_outage"
)

// Notice is a non-signal notification for a monitoring context.
type Notice struct {
	ContextID string          `json:"context_id"`
	Symbol    CanonicalSymbol `json:"symbol"`
	Kind      NoticeKind      `json:"kind"`
	Message   string          `json:"message"`
	Timestamp time.Time       `json:"timestamp"`
}
