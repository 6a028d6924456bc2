// Package scoring computes the trust/release score that drives masking level
// selection. Evaluation is a pure function of explicit factors and weights;
// the same inputs always produce the same score, bit for bit.
package scoring

import (
	"fmt"
	"sync"
)

// Weights is the configured linear combination evaluated by the model. All
// factor weights must be non-negative; the bias recentres the combination and
// the gain sharpens the sigmoid. Weights are configuration: this engine
// evaluates them, it never learns them.
type Weights struct {
	Role        float64
	Purpose     float64
	Sensitivity float64
	Compliance  float64
	Frequency   float64
	Violation   float64
	Bias        float64
	Gain        float64
}

// DefaultWeights are the development defaults. They place an admin requester
// with an allow-listed purpose and LOW sensitivity above the reveal threshold
// and a floor-trust requester on CRITICAL data below the suppression one.
func DefaultWeights() Weights {
	return Weights{
		Role:        0.30,
		Purpose:     0.20,
		Sensitivity: 0.25,
		Compliance:  0.10,
		Frequency:   0.10,
		Violation:   0.05,
		Bias:        -0.60,
		Gain:        5.0,
	}
}

// Validate rejects weight sets the model cannot evaluate safely.
func (w Weights) Validate() error {
	for name, v := range map[string]float64{
		"role": w.Role, "purpose": w.Purpose, "sensitivity": w.Sensitivity,
		"compliance": w.Compliance, "frequency": w.Frequency, "violation": w.Violation,
	} {
		if v < 0 {
			return fmt.Errorf("weight %s must be non-negative, got %v", name, v)
		}
	}
	if w.Sum() == 0 {
		return fmt.Errorf("at least one factor weight must be positive")
	}
	if w.Gain <= 0 {
		return fmt.Errorf("gain must be positive, got %v", w.Gain)
	}
	return nil
}

// Sum returns the total of the factor weights, excluding bias and gain.
func (w Weights) Sum() float64 {
	return w.Role + w.Purpose + w.Sensitivity + w.Compliance + w.Frequency + w.Violation
}

// Model holds the active weight set behind a lock so operators can apply a
// fixed-point update of the weights while decisions are in flight. Each
// decision reads one consistent snapshot.
type Model struct {
	mu      sync.RWMutex
	weights Weights
}

func NewModel(w Weights) (*Model, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	return &Model{weights: w}, nil
}

// Snapshot returns the current weight set.
func (m *Model) Snapshot() Weights {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.weights
}

// UpdateWeights swaps in a new validated weight set.
func (m *Model) UpdateWeights(w Weights) error {
	if err := w.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.weights = w
	return nil
}
