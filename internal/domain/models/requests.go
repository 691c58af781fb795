package models

// Requests for screener HTTP endpoints. Defined in domain for consistency and reuse.

type AnalysisRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required"`
	TF     string `query:"tf" json:"tf" default:"15m" validate:"oneof=5m 15m 1h 4h"`
}

type AlertsRequest struct {
	Limit int    `query:"limit" json:"limit" default:"50" validate:"gte=1,lte=50"`
	TF    string `query:"tf" json:"tf" validate:"omitempty,oneof=5m 15m 1h 4h"`
}

type WatchlistRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required,min=4,max=20"`
}
