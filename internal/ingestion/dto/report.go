package dto

// ErrorResponse represents a generic error response body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// BlotterItem is one trade row of the blotter view.
type BlotterItem struct {
	ID         uint64  `json:"id"`
	Ticker     string  `json:"ticker"`
	Account    string  `json:"account"`
	Quantity   int64   `json:"quantity"`
	Price      float64 `json:"price"`
	TotalValue float64 `json:"total_value"`
}

// PositionsResponse maps account -> ticker -> share of the account's value ("20.0%").
type PositionsResponse map[string]map[string]string

// AlarmItem is one triggered compliance alert with its trade context.
type AlarmItem struct {
	Account     string `json:"account"`
	Ticker      string `json:"ticker"`
	Rule        string `json:"rule"`
	Severity    string `json:"severity"`
	Description string `json:"description"`
	Triggered   bool   `json:"triggered"`
}

// HealthResponse reports dependency status.
type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database,omitempty"`
	Redis    string `json:"redis,omitempty"`
	Service  string `json:"service,omitempty"`
	Error    string `json:"error,omitempty"`
}
