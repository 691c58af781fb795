package models

import "time"

// AlertKind identifies the transition an alert was emitted for.
type AlertKind string

const (
	AlertBreakout     AlertKind = "breakout"
	AlertSqueezeEntry AlertKind = "squeeze_entry"
	AlertTightSqueeze AlertKind = "tight_squeeze"
)

// AlertEvent is emitted when consecutive snapshots for a key diverge.
// Immutable once created.
type AlertEvent struct {
	ID          string         `json:"id"`
	Kind        AlertKind      `json:"kind"`
	Symbol      string         `json:"symbol"`
	Timeframe   string         `json:"timeframe"`
	Price       *float64       `json:"price"`
	Signal      BreakoutSignal `json:"signal,omitempty"`
	Regime      RegimeState    `json:"regime,omitempty"`
	SqueezeBars int            `json:"squeeze_bars,omitempty"`
	Timestamp   time.Time      `json:"timestamp"`
}
