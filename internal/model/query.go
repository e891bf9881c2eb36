package model

import "time"

// DateLayout is the date format used by the UI, the CLI and the provider.
const DateLayout = "2006-01-02"

// ProjectionMode selects which forecast path runs after the fetch.
type ProjectionMode string

const (
	ProjectionNone   ProjectionMode = "none"
	ProjectionModel  ProjectionMode = "model"
	ProjectionRandom ProjectionMode = "random"
)

// Intervals lists the bar sizes every fetcher understands.
var Intervals = []string{"1m", "5m", "15m", "30m", "1h", "1d", "1wk", "1mo"}

// ValidInterval reports whether iv is one of Intervals.
func ValidInterval(iv string) bool {
	for _, v := range Intervals {
		if v == iv {
			return true
		}
	}
	return false
}

// Query is one user interaction: what to fetch and how to present it.
type Query struct {
	Ticker     string         `json:"ticker"`
	Start      time.Time      `json:"start"`
	End        time.Time      `json:"end"` // exclusive
	Interval   string         `json:"interval"`
	Column     string         `json:"column,omitempty"`
	Projection ProjectionMode `json:"projection"`
	Seed       int64          `json:"seed"`
	Horizon    int            `json:"horizon"`
	Tail       int            `json:"tail,omitempty"` // 0 = all rows
}
