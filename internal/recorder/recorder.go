package recorder

import "time"

// QueryEvent is one dashboard interaction.
type QueryEvent struct {
	ID         string    `json:"id"`
	Timestamp  time.Time `json:"timestamp"`
	Ticker     string    `json:"ticker"`
	Start      string    `json:"start"`
	End        string    `json:"end"`
	Interval   string    `json:"interval"`
	Column     string    `json:"column"`
	Projection string    `json:"projection"`
	Rows       int       `json:"rows"`
	Forecast   *float64  `json:"forecast,omitempty"` // last projected value
	Error      string    `json:"error,omitempty"`
}

// Snapshot is one scheduled watchlist evaluation.
type Snapshot struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Ticker    string    `json:"ticker"`
	LastPrice float64   `json:"last_price"`
	Forecast  float64   `json:"forecast"`
	Method    string    `json:"method"`
}

// Recorder persists interaction and snapshot history.
type Recorder interface {
	RecordQuery(evt *QueryEvent) error
	RecordSnapshot(snap *Snapshot) error
	RecentQueries(limit int) ([]QueryEvent, error)
	Close() error
}
