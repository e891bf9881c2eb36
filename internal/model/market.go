package model

import "time"

// OHLCV represents a single candlestick bar.
type OHLCV struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Point is one dated value of a selected series.
type Point struct {
	Time  time.Time `json:"time"`
	Value float64   `json:"value"`
}

// Row is one line of the display table. Values follow View.Columns order;
// missing cells are nil.
type Row struct {
	Time   time.Time  `json:"time"`
	Values []*float64 `json:"values"`
}
