package model

// Forecast is the output of a projection path.
type Forecast struct {
	Method string  `json:"method"`
	Points []Point `json:"points"`
}

// Last returns the final projected value, or 0 when there are no points.
func (f *Forecast) Last() float64 {
	if f == nil || len(f.Points) == 0 {
		return 0
	}
	return f.Points[len(f.Points)-1].Value
}

// Summary holds headline statistics for the selected series.
type Summary struct {
	First     float64  `json:"first"`
	Last      float64  `json:"last"`
	Change    float64  `json:"change"`
	ChangePct float64  `json:"change_pct"`
	High      float64  `json:"high"`
	Low       float64  `json:"low"`
	Position  float64  `json:"position"` // 0.0 ~ 1.0 within [Low, High]
	SMA20     *float64 `json:"sma20,omitempty"`
	RSI14     *float64 `json:"rsi14,omitempty"`
}
