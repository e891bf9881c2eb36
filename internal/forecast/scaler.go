package forecast

import (
	"encoding/json"
	"fmt"
	"os"
)

// MinMaxScaler rescales values from [DataMin, DataMax] onto [FeatureMin, FeatureMax].
type MinMaxScaler struct {
	DataMin    float64 `json:"data_min"`
	DataMax    float64 `json:"data_max"`
	FeatureMin float64 `json:"feature_min"`
	FeatureMax float64 `json:"feature_max"`
}

// LoadScaler reads scaler parameters from a JSON file. A missing feature
// range defaults to [0, 1].
func LoadScaler(path string) (*MinMaxScaler, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scaler: %w", err)
	}
	var s MinMaxScaler
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse scaler: %w", err)
	}
	if s.FeatureMin == 0 && s.FeatureMax == 0 {
		s.FeatureMax = 1
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks that both ranges are non-degenerate.
func (s *MinMaxScaler) Validate() error {
	if s.DataMax <= s.DataMin {
		return fmt.Errorf("scaler: data_max (%v) must exceed data_min (%v)", s.DataMax, s.DataMin)
	}
	if s.FeatureMax <= s.FeatureMin {
		return fmt.Errorf("scaler: feature_max (%v) must exceed feature_min (%v)", s.FeatureMax, s.FeatureMin)
	}
	return nil
}

func (s *MinMaxScaler) scale() float64 {
	return (s.FeatureMax - s.FeatureMin) / (s.DataMax - s.DataMin)
}

// Transform scales every value into the feature range. A nil scaler is the identity.
func (s *MinMaxScaler) Transform(vals []float64) []float64 {
	out := make([]float64, len(vals))
	if s == nil {
		copy(out, vals)
		return out
	}
	k := s.scale()
	for i, v := range vals {
		out[i] = (v-s.DataMin)*k + s.FeatureMin
	}
	return out
}

// InverseTransform maps a scaled value back to price units.
func (s *MinMaxScaler) InverseTransform(v float64) float64 {
	if s == nil {
		return v
	}
	return (v-s.FeatureMin)/s.scale() + s.DataMin
}
