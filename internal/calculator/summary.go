package calculator

import (
	"log"

	"StockDash/internal/model"
)

// Summarize computes the headline statistics for a selected series.
// It returns nil for an empty series.
func Summarize(points []model.Point) *model.Summary {
	if len(points) == 0 {
		return nil
	}
	vals := PointValues(points)
	s := &model.Summary{
		First: vals[0],
		Last:  vals[len(vals)-1],
	}
	s.Change = s.Last - s.First
	if s.First != 0 {
		s.ChangePct = s.Change / s.First * 100
	}

	if h, l, err := CalculateRange(vals, 0); err == nil {
		s.High, s.Low = h, l
	}
	if pos, err := CalculatePosition(s.Last, s.High, s.Low); err != nil {
		log.Printf("[WARN] range position calculation failed: %v", err)
		s.Position = 0.5
	} else {
		s.Position = pos
	}

	if sma, err := CalculateSMA(vals, 20); err == nil {
		s.SMA20 = &sma
	}
	if rsi, err := CalculateRSI(vals, 14); err == nil {
		s.RSI14 = &rsi
	}
	return s
}
