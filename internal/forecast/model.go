package forecast

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// ErrShape is returned when a model receives an input of the wrong length.
var ErrShape = errors.New("model input has wrong shape")

// Model maps a fixed-length window of scaled values to one scaled forecast value.
type Model interface {
	WindowSize() int
	Predict(window []float64) (float64, error)
}

// WindowModel is a linear model over the last Window scaled closes:
// y = bias + sum(weights[i] * x[i]).
type WindowModel struct {
	Window  int       `json:"window"`
	Weights []float64 `json:"weights"`
	Bias    float64   `json:"bias"`
}

// LoadModel reads a WindowModel from a JSON file.
func LoadModel(path string) (*WindowModel, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model: %w", err)
	}
	var m WindowModel
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse model: %w", err)
	}
	if m.Window == 0 {
		m.Window = len(m.Weights)
	}
	if m.Window <= 0 {
		return nil, errors.New("model: window must be positive")
	}
	if len(m.Weights) != m.Window {
		return nil, fmt.Errorf("model: %d weights for window %d: %w", len(m.Weights), m.Window, ErrShape)
	}
	return &m, nil
}

func (m *WindowModel) WindowSize() int { return m.Window }

func (m *WindowModel) Predict(window []float64) (float64, error) {
	if len(window) != len(m.Weights) {
		return 0, fmt.Errorf("%w: got %d values, want %d", ErrShape, len(window), len(m.Weights))
	}
	y := m.Bias
	for i, x := range window {
		y += m.Weights[i] * x
	}
	return y, nil
}
