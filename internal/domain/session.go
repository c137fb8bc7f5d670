package domain

import "time"

type SessionStatus string

const (
	SessionActive  SessionStatus = "ACTIVE"
	SessionStopped SessionStatus = "STOPPED"
)

// MonitoringSession is one recurring watch: a symbol, an exchange set,
// a threshold and a polling interval, owned by a single context (chat,
// user, API client). Only the session manager mutates it.
type MonitoringSession struct {
	ID              string          `json:"id"`
	ContextID       string          `json:"context_id"`
	Symbol          CanonicalSymbol `json:"symbol"`
	Exchanges       []string        `json:"exchanges"`
	ThresholdPct    float64         `json:"threshold_pct"`
	Interval        time.Duration   `json:"interval"`
	Status          SessionStatus   `json:"status"`
	CreatedAt       time.Time       `json:"created_at"`
	LastEvaluatedAt time.Time       `json:"last_evaluated_at"`
}
